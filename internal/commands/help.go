package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/session"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasker help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Manager, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, HelpText)
	return exitcode.Success
}

// HelpText is the usage text printed by help and on usage errors.
const HelpText = `Usage:
  tasker                                   List all tasks
  tasker list [common flags] [--open]      List tasks, newest first
  tasker add [common flags] <title...>
  tasker create [common flags] <title...>
  tasker done [common flags] <id>
  tasker complete [common flags] <id>
  tasker edit [common flags] <id> <title...>
  tasker whoami [common flags]
  tasker login [common flags] --email <email> (--password <pw> | --password-stdin)
  tasker signup [common flags] --email <email> (--password <pw> | --password-stdin) [--name <name>]
  tasker logout [common flags]
  tasker status [common flags]
  tasker ui [common flags]
  tasker help
  tasker version

Common flags:
  --config <dir>   Override config directory
  --api-url <url>  Override the task service URL
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
