package commands

import (
	"context"
	"flag"
	"io"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
	"tasker/internal/session"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd prints the profile of the logged-in user.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return []string{"profile"} }
func (c *WhoamiCmd) Synopsis() string  { return "Show the current user" }
func (c *WhoamiCmd) Usage() string     { return "tasker whoami" }
func (c *WhoamiCmd) NeedsAuth() bool   { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Manager, svc service.Service, args []string, out, errOut io.Writer) int {
	user, err := svc.Me(ctx)
	if err != nil {
		return reportError(errOut, err)
	}
	output.FormatUser(out, user)
	return exitcode.Success
}
