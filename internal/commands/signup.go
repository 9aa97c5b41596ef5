package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasker/internal/account"
	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/session"
)

func init() {
	Register(&SignupCmd{})
}

// SignupCmd implements the signup command. A successful signup also logs in.
type SignupCmd struct {
	flags    credentialFlags
	fullName string
}

// SetCredentials sets email, password and full name (for testing).
func (c *SignupCmd) SetCredentials(email, password, fullName string) {
	c.flags.email = email
	c.flags.password = password
	c.fullName = fullName
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return []string{"register"} }
func (c *SignupCmd) Synopsis() string  { return "Create an account and log in" }
func (c *SignupCmd) Usage() string {
	return "tasker signup --email <email> (--password <pw> | --password-stdin) [--name <full name>]"
}
func (c *SignupCmd) NeedsAuth() bool { return false }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	c.flags.register(fs)
	fs.StringVar(&c.fullName, "name", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Manager, svc service.Service, args []string, out, errOut io.Writer) int {
	creds, err := c.flags.credentials()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	creds.FullName = strings.TrimSpace(c.fullName)

	if _, err := account.Signup(ctx, svc, sess, creds); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
