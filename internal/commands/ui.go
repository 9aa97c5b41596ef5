package commands

import (
	"context"
	"flag"
	"io"
	"os"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/session"
	"tasker/internal/tui"
)

func init() {
	Register(&UICmd{})
}

// UICmd starts the interactive terminal client.
type UICmd struct{}

func (c *UICmd) Name() string      { return "ui" }
func (c *UICmd) Aliases() []string { return nil }
func (c *UICmd) Synopsis() string  { return "Start the interactive client" }
func (c *UICmd) Usage() string     { return "tasker ui" }
func (c *UICmd) NeedsAuth() bool   { return false }

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UICmd) Run(ctx context.Context, cfg *config.Config, sess *session.Manager, svc service.Service, args []string, out, errOut io.Writer) int {
	if err := tui.Run(ctx, sess, svc, os.Stdin, out); err != nil {
		return reportError(errOut, err)
	}
	return exitcode.Success
}
