package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
	"tasker/internal/session"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd reports the local session state without calling the service.
type StatusCmd struct {
	now func() time.Time
}

// SetNow sets the clock used for expiry (for testing).
func (c *StatusCmd) SetNow(now func() time.Time) {
	c.now = now
}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return nil }
func (c *StatusCmd) Synopsis() string  { return "Show login state" }
func (c *StatusCmd) Usage() string     { return "tasker status" }
func (c *StatusCmd) NeedsAuth() bool   { return false }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Manager, svc service.Service, args []string, out, errOut io.Writer) int {
	if sess.State() != session.Authenticated {
		fmt.Fprintln(out, "logged out")
		return exitcode.Success
	}

	fmt.Fprintln(out, "logged in")

	// Opaque tokens carry no claims; that is not an error.
	claims, err := sess.Claims()
	if err != nil {
		return exitcode.Success
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if claims.Subject != "" {
		fmt.Fprintf(out, "subject: %s\n", claims.Subject)
	}
	fmt.Fprintf(out, "token:   %s\n", output.FormatExpiry(claims.ExpiresAt, now()))
	return exitcode.Success
}
