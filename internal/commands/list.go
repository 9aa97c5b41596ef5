package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/output"
	"tasker/internal/service"
	"tasker/internal/session"
	"tasker/internal/tasklist"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tasker` (no args) and `tasker list`.
type ListCmd struct {
	openOnly bool
}

// SetOpenOnly hides completed tasks (for testing).
func (c *ListCmd) SetOpenOnly(v bool) {
	c.openOnly = v
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "tasker list [--open]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.openOnly, "open", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Manager, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	list := tasklist.New()
	ticket := list.Mount()
	defer list.Unmount()

	tasks, err := svc.ListTasks(ctx)
	if err != nil {
		return reportError(errOut, err)
	}
	list.Load(ticket, tasks)

	printed := 0
	for _, task := range list.Tasks() {
		if c.openOnly && task.IsCompleted {
			continue
		}
		output.FormatTask(out, task)
		printed++
	}

	if printed == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}
