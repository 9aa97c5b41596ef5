package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tasker/internal/account"
	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/session"
)

func init() {
	Register(&LoginCmd{})
}

// credentialFlags holds the flags shared by login and signup.
type credentialFlags struct {
	email         string
	password      string
	passwordStdin bool
	stdin         io.Reader
}

func (f *credentialFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.email, "email", "", "")
	fs.StringVar(&f.email, "e", "", "")
	fs.StringVar(&f.password, "password", "", "")
	fs.StringVar(&f.password, "p", "", "")
	fs.BoolVar(&f.passwordStdin, "password-stdin", false, "")
}

// credentials builds Credentials from the flags, reading the password from
// stdin when --password-stdin is set.
func (f *credentialFlags) credentials() (service.Credentials, error) {
	creds := service.Credentials{
		Email:    strings.TrimSpace(f.email),
		Password: f.password,
	}
	if f.passwordStdin {
		in := f.stdin
		if in == nil {
			in = os.Stdin
		}
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return creds, fmt.Errorf("read password: %w", err)
		}
		creds.Password = strings.TrimRight(line, "\r\n")
	}
	return creds, nil
}

// LoginCmd implements the login command.
type LoginCmd struct {
	flags credentialFlags
}

// SetCredentials sets email and password (for testing).
func (c *LoginCmd) SetCredentials(email, password string) {
	c.flags.email = email
	c.flags.password = password
}

// SetStdin sets the reader used by --password-stdin (for testing).
func (c *LoginCmd) SetStdin(r io.Reader) {
	c.flags.stdin = r
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in to the task service" }
func (c *LoginCmd) Usage() string {
	return "tasker login --email <email> (--password <pw> | --password-stdin)"
}
func (c *LoginCmd) NeedsAuth() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	c.flags.register(fs)
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Manager, svc service.Service, args []string, out, errOut io.Writer) int {
	creds, err := c.flags.credentials()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := account.Login(ctx, svc, sess, creds); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
