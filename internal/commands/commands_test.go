package commands_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"tasker/internal/commands"
	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/session"
	"tasker/internal/testutil"
)

// newSession returns a session manager persisting under dir.
func newSession(t *testing.T, dir string) *session.Manager {
	t.Helper()
	sess := session.NewManager(session.NewFileStore(dir), nil)
	sess.Restore(context.Background())
	return sess
}

// loggedIn returns a session that already holds a token.
func loggedIn(t *testing.T) *session.Manager {
	t.Helper()
	sess := newSession(t, t.TempDir())
	if err := sess.Establish(context.Background(), "tok123"); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	return sess
}

// runCommand is a helper to run a command against a service and session.
func runCommand(t *testing.T, cmd commands.Command, svc service.Service, sess *session.Manager, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cfg := &config.Config{
		Dir:   t.TempDir(),
		Quiet: quiet,
	}
	if sess == nil {
		sess = newSession(t, cfg.Dir)
	}

	code = cmd.Run(context.Background(), cfg, sess, svc, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasker 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "help", stdout)
}

func TestListCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", false)
	svc.AddTask("File taxes", true)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, loggedIn(t), nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	expected := "   1  [ ] 2024-01-01  Buy milk\n   2  [x] 2024-01-01  File taxes\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_OpenOnly(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", false)
	svc.AddTask("File taxes", true)

	cmd := &commands.ListCmd{}
	cmd.SetOpenOnly(true)
	stdout, _, code := runCommand(t, cmd, svc, loggedIn(t), nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "   1  [ ] 2024-01-01  Buy milk\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	tests := []struct {
		name  string
		quiet bool
		want  string
	}{
		{"normal", false, "no tasks found\n"},
		{"quiet", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			stdout, _, code := runCommand(t, &commands.ListCmd{}, svc, loggedIn(t), nil, tt.quiet)
			if code != exitcode.Success {
				t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
			}
			if stdout != tt.want {
				t.Errorf("expected %q, got %q", tt.want, stdout)
			}
		})
	}
}

func TestListCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name:     "backend",
			err:      fmt.Errorf("list tasks: %w: 500 boom", service.ErrNetwork),
			wantCode: exitcode.BackendError,
			wantErr:  "error: list tasks: network error: 500 boom\n",
		},
		{
			name:     "expired token",
			err:      fmt.Errorf("list tasks: %w: token expired or revoked (run: tasker login)", service.ErrAuth),
			wantCode: exitcode.AuthError,
			wantErr:  "error: list tasks: auth error: token expired or revoked (run: tasker login)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.ListTasksErr = tt.err

			stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, loggedIn(t), nil, false)
			if code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, code)
			}
			if stdout != "" {
				t.Errorf("expected no stdout, got %q", stdout)
			}
			if stderr != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, stderr)
			}
		})
	}
}

func TestListCommand_UnexpectedArgument(t *testing.T) {
	svc := testutil.NewFakeService()
	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, loggedIn(t), []string{"work"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unexpected argument: work\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.Calls()) != 0 {
		t.Errorf("expected no service calls, got %v", svc.Calls())
	}
}

func TestAddCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Existing", false)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, loggedIn(t), []string{"  Buy", "milk  "}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}

	tasks := svc.Tasks()
	if len(tasks) != 2 || tasks[0].Title != "Buy milk" {
		t.Errorf("expected new task first, got %+v", tasks)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	svc := testutil.NewFakeService()
	stdout, _, code := runCommand(t, &commands.CreateCmd{}, svc, loggedIn(t), []string{"Buy milk"}, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_TitleRequired(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"blank", []string{"   "}},
		{"tabs and spaces", []string{"\t", " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, loggedIn(t), tt.args, false)

			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != "error: title required\n" {
				t.Errorf("unexpected stderr %q", stderr)
			}
			if len(svc.Calls()) != 0 {
				t.Errorf("expected no service calls, got %v", svc.Calls())
			}
		})
	}
}

func TestDoneCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Keep", false)
	target := svc.AddTask("Finish", false)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, loggedIn(t), []string{fmt.Sprint(target.ID)}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}

	tasks := svc.Tasks()
	if tasks[0].IsCompleted {
		t.Error("other task must stay open")
	}
	if !tasks[1].IsCompleted {
		t.Error("target task should be completed")
	}
}

func TestDoneCommand_AlreadyCompleted(t *testing.T) {
	svc := testutil.NewFakeService()
	task := svc.AddTask("Finished", true)

	_, _, code := runCommand(t, &commands.DoneCmd{}, svc, loggedIn(t), []string{fmt.Sprint(task.ID)}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if calls := svc.Calls(); len(calls) != 1 || calls[0] != "CompleteTask" {
		t.Errorf("expected the request to be sent, got %v", calls)
	}
}

func TestDoneCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"missing id", nil, exitcode.UserError, "error: task id required\n"},
		{"bad id", []string{"abc"}, exitcode.UserError, "error: invalid task id: abc\n"},
		{"unknown id", []string{"42"}, exitcode.BackendError, "error: network error: not found: Todo not found\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			_, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, loggedIn(t), tt.args, false)
			if code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, code)
			}
			if stderr != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, stderr)
			}
		})
	}
}

func TestEditCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	other := svc.AddTask("Other", false)
	task := svc.AddTask("Old title", true)

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, svc, loggedIn(t), []string{fmt.Sprint(task.ID), "New", "title"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}

	tasks := svc.Tasks()
	if tasks[0] != other {
		t.Errorf("other task changed: %+v", tasks[0])
	}
	if tasks[1].Title != "New title" || !tasks[1].IsCompleted {
		t.Errorf("unexpected edited task %+v", tasks[1])
	}
}

func TestEditCommand_TitleRequired(t *testing.T) {
	svc := testutil.NewFakeService()
	task := svc.AddTask("Keep", false)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, loggedIn(t), []string{fmt.Sprint(task.ID), " "}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: title required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if svc.Tasks()[0].Title != "Keep" {
		t.Error("task should be unchanged")
	}
}

func TestWhoamiCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.WhoamiCmd{}, svc, loggedIn(t), nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	expected := "id:     1\nemail:  a@b.com\nname:   Ada\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestWhoamiCommand_AuthError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.MeErr = fmt.Errorf("me: %w: Could not validate credentials", service.ErrAuth)

	_, stderr, code := runCommand(t, &commands.WhoamiCmd{}, svc, loggedIn(t), nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: ") {
		t.Errorf("expected error line, got %q", stderr)
	}
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name      string
		aliases   []string
		needsAuth bool
	}{
		{"list", []string{"ls"}, true},
		{"add", nil, true},
		{"create", nil, true},
		{"done", []string{"complete"}, true},
		{"edit", []string{"rename"}, true},
		{"whoami", []string{"profile"}, true},
		{"login", nil, false},
		{"signup", []string{"register"}, false},
		{"logout", nil, false},
		{"status", nil, false},
		{"ui", nil, false},
		{"help", nil, false},
		{"version", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := commands.DefaultRegistry.Find(tt.name)
			if !ok {
				t.Fatalf("command %q not registered", tt.name)
			}
			if cmd.NeedsAuth() != tt.needsAuth {
				t.Errorf("NeedsAuth = %v, want %v", cmd.NeedsAuth(), tt.needsAuth)
			}
			for _, alias := range tt.aliases {
				if got, ok := commands.DefaultRegistry.Find(alias); !ok || got != cmd {
					t.Errorf("alias %q does not resolve to %q", alias, tt.name)
				}
			}
		})
	}
}

func TestRegistry_DuplicateAlias(t *testing.T) {
	reg := commands.NewRegistry()
	if err := reg.Register(&commands.DoneCmd{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := reg.Register(&commands.DoneCmd{})
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRegistry_AllListsEachCommandOnce(t *testing.T) {
	all := commands.DefaultRegistry.All()

	seen := make(map[string]bool)
	var names []string
	for _, cmd := range all {
		if seen[cmd.Name()] {
			t.Errorf("command %q listed twice", cmd.Name())
		}
		seen[cmd.Name()] = true
		names = append(names, cmd.Name())
	}
	if len(all) != 13 {
		t.Errorf("expected 13 commands, got %d: %v", len(all), names)
	}
	if names[0] != "add" || names[len(names)-1] != "whoami" {
		t.Errorf("expected sorted names, got %v", names)
	}
}
