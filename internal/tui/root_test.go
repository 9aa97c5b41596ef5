package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tasker/internal/router"
	"tasker/internal/service"
	"tasker/internal/session"
	"tasker/internal/testutil"
)

func newSession(t *testing.T, loggedIn bool) *session.Manager {
	t.Helper()
	sess := session.NewManager(session.NewFileStore(t.TempDir()), nil)
	if loggedIn {
		if err := sess.Establish(context.Background(), "tok123"); err != nil {
			t.Fatalf("Establish: %v", err)
		}
	}
	return sess
}

// collect runs cmd and returns the messages it produces. Commands that do
// not return promptly (cursor blink, spinner frames) are skipped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// settle feeds the results of cmd back into m until nothing is left to do.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	pending := []tea.Cmd{cmd}
	for round := 0; len(pending) > 0; round++ {
		if round > 10 {
			t.Fatal("model did not settle")
		}
		var next []tea.Cmd
		for _, c := range pending {
			for _, msg := range collect(c) {
				if _, ok := msg.(spinner.TickMsg); ok {
					continue
				}
				model, followUp := m.Update(msg)
				m = model.(Model)
				if followUp != nil {
					next = append(next, followUp)
				}
			}
		}
		pending = next
	}
	return m
}

// press sends one key and settles the result.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	model, cmd := m.Update(keyMsg(k))
	return settle(t, model.(Model), cmd)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// typeText types s into whatever has focus.
func typeText(m Model, s string) Model {
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return model.(Model)
}

func start(t *testing.T, svc *testutil.FakeService, loggedIn bool) (Model, *session.Manager) {
	t.Helper()
	sess := newSession(t, loggedIn)
	m := NewRootModel(context.Background(), sess, svc)
	return settle(t, m, m.Init()), sess
}

func titles(m Model) []string {
	var out []string
	for _, task := range m.list.Tasks() {
		out = append(out, task.Title)
	}
	return out
}

func TestStartsOnLoginWhenLoggedOut(t *testing.T) {
	svc := testutil.NewFakeService()
	m, _ := start(t, svc, false)

	if m.shown != router.ViewLogin {
		t.Fatalf("shown = %v, want login", m.shown)
	}
	if !strings.Contains(m.View(), "Log in") {
		t.Error("login form not rendered")
	}
	if len(svc.Calls()) != 0 {
		t.Errorf("expected no service calls, got %v", svc.Calls())
	}
}

func TestStartsOnTasksWhenLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", false)

	sess := newSession(t, true)
	m := NewRootModel(context.Background(), sess, svc)

	if !strings.Contains(m.View(), "Loading tasks...") {
		t.Error("expected loading indicator before the first response")
	}

	m = settle(t, m, m.Init())
	if m.shown != router.ViewTasks {
		t.Fatalf("shown = %v, want tasks", m.shown)
	}
	if m.loading {
		t.Error("loading should be cleared")
	}
	view := m.View()
	if strings.Contains(view, "Loading") {
		t.Error("loading indicator should be gone")
	}
	if !strings.Contains(view, "Buy milk") {
		t.Errorf("task not rendered:\n%s", view)
	}
}

func TestLoginFlow(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", false)
	m, sess := start(t, svc, false)

	m = typeText(m, "a@b.com")
	m = press(t, m, "tab")
	m = typeText(m, "secret")
	m = press(t, m, "enter")

	if sess.State() != session.Authenticated {
		t.Fatal("session should be authenticated")
	}
	if m.shown != router.ViewTasks {
		t.Fatalf("shown = %v, want tasks", m.shown)
	}
	if got := titles(m); len(got) != 1 || got[0] != "Buy milk" {
		t.Errorf("tasks = %v", got)
	}
	if m.fields[fieldPassword].Value() != "" {
		t.Error("password field should be cleared after login")
	}
}

func TestLoginFlow_Errors(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		wantErr   string
		wantCalls int
	}{
		{"missing fields", "", "", "validation error: email and password required", 0},
		{"wrong password", "a@b.com", "nope", "auth error: Invalid email or password", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			m, sess := start(t, svc, false)

			m = typeText(m, tt.email)
			m = press(t, m, "tab")
			m = typeText(m, tt.password)
			m = press(t, m, "enter")

			if sess.State() != session.Unauthenticated {
				t.Error("session should stay unauthenticated")
			}
			if m.shown != router.ViewLogin {
				t.Errorf("shown = %v, want login", m.shown)
			}
			if m.err != tt.wantErr {
				t.Errorf("err = %q, want %q", m.err, tt.wantErr)
			}
			if len(svc.Calls()) != tt.wantCalls {
				t.Errorf("calls = %v", svc.Calls())
			}
		})
	}
}

func TestSignupFlow(t *testing.T) {
	svc := testutil.NewFakeService()
	m, sess := start(t, svc, false)

	m = press(t, m, "ctrl+s")
	if m.shown != router.ViewSignup {
		t.Fatalf("shown = %v, want signup", m.shown)
	}
	if !strings.Contains(m.View(), "Create an account") {
		t.Error("signup form not rendered")
	}

	m = typeText(m, "new@b.com")
	m = press(t, m, "tab")
	m = typeText(m, "pw")
	m = press(t, m, "tab")
	m = typeText(m, "Grace")
	m = press(t, m, "enter")

	if sess.State() != session.Authenticated {
		t.Fatal("signup should log in")
	}
	if m.shown != router.ViewTasks {
		t.Errorf("shown = %v, want tasks", m.shown)
	}
	calls := svc.Calls()
	if len(calls) < 2 || calls[0] != "Signup" || calls[1] != "Login" {
		t.Errorf("calls = %v, want Signup then Login first", calls)
	}

	// ctrl+s leads back to login while logged out only.
	m = press(t, m, "ctrl+s")
	if m.shown != router.ViewTasks {
		t.Errorf("ctrl+s changed the main view to %v", m.shown)
	}
}

func TestTasks_AddCompleteEdit(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Old", false)
	m, _ := start(t, svc, true)

	// Add puts the server's task first.
	svc.Now = time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC)
	m = press(t, m, "a")
	m = typeText(m, "  Buy milk  ")
	m = press(t, m, "enter")
	if got := titles(m); len(got) != 2 || got[0] != "Buy milk" || got[1] != "Old" {
		t.Fatalf("after add: %v", got)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}

	// Each row shows the day the task was created.
	view := m.View()
	for _, want := range []string{"2024-02-03  Buy milk", "2024-01-01  Old"} {
		if !strings.Contains(view, want) {
			t.Errorf("missing %q in:\n%s", want, view)
		}
	}

	// Edit keeps the position.
	m = press(t, m, "j")
	m = press(t, m, "e")
	if m.editLine.Value() != "Old" {
		t.Errorf("edit line = %q, want prefilled title", m.editLine.Value())
	}
	m.editLine.SetValue("Renamed")
	m = press(t, m, "enter")
	tasks := m.list.Tasks()
	if tasks[1].Title != "Renamed" || tasks[1].IsCompleted {
		t.Errorf("after edit: %+v", tasks[1])
	}

	// Complete the second task only; the title survives.
	m = press(t, m, " ")
	tasks = m.list.Tasks()
	if tasks[0].IsCompleted || !tasks[1].IsCompleted || tasks[1].Title != "Renamed" {
		t.Errorf("after complete: %+v", tasks)
	}
	if tasks[0].Title != "Buy milk" {
		t.Errorf("other task changed: %+v", tasks[0])
	}
}

func TestTasks_CompletedTaskNotEditable(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Done already", true)
	m, _ := start(t, svc, true)

	m = press(t, m, "e")
	if m.mode != editNone {
		t.Errorf("mode = %v, want no edit on a completed task", m.mode)
	}
	for _, call := range svc.Calls() {
		if call == "EditTask" {
			t.Error("completed task must not be edited")
		}
	}
}

func TestTasks_BlankTitleRejected(t *testing.T) {
	svc := testutil.NewFakeService()
	m, _ := start(t, svc, true)

	m = press(t, m, "a")
	m = typeText(m, "   ")
	m = press(t, m, "enter")

	if m.err != "validation error: title required" {
		t.Errorf("err = %q", m.err)
	}
	if m.list.Len() != 0 {
		t.Errorf("list changed: %v", titles(m))
	}
	for _, call := range svc.Calls() {
		if call == "CreateTask" {
			t.Error("blank title must not reach the service")
		}
	}

	m = press(t, m, "esc")
	if m.mode != editNone || m.err != "" {
		t.Error("esc should leave edit mode and clear the error")
	}
}

func TestTasks_FailedWriteLeavesList(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Keep", false)
	m, _ := start(t, svc, true)

	svc.CompleteTaskErr = fmt.Errorf("complete task: %w: 500 boom", service.ErrNetwork)
	m = press(t, m, " ")

	if m.list.Tasks()[0].IsCompleted {
		t.Error("failed write must not change the list")
	}
	if !strings.Contains(m.View(), "error: complete task: network error: 500 boom") {
		t.Errorf("error not rendered:\n%s", m.View())
	}
}

func TestTasks_StaleResponsesDropped(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("First", false)
	m, _ := start(t, svc, true)

	staleTicket := m.list.Current()
	late := taskSavedMsg{ticket: staleTicket, task: service.Task{ID: 99, Title: "late"}, created: true}

	// Leaving the view unmounts the list.
	m = press(t, m, "tab")
	if m.shown != router.ViewProfile {
		t.Fatalf("shown = %v, want profile", m.shown)
	}
	if m.list.Mounted() {
		t.Fatal("list should be unmounted")
	}

	model, _ := m.Update(late)
	m = model.(Model)
	model, _ = m.Update(tasksLoadedMsg{ticket: staleTicket, tasks: []service.Task{{ID: 1, Title: "late"}}})
	m = model.(Model)
	if m.list.Len() != 0 {
		t.Errorf("stale results reached the list: %v", titles(m))
	}

	// Coming back mounts afresh and reloads.
	m = press(t, m, "tab")
	if got := titles(m); len(got) != 1 || got[0] != "First" {
		t.Errorf("after return: %v", got)
	}
	model, _ = m.Update(late)
	m = model.(Model)
	if m.list.Len() != 1 {
		t.Error("result from an earlier mount must be dropped")
	}
}

func TestTasks_Reload(t *testing.T) {
	svc := testutil.NewFakeService()
	m, _ := start(t, svc, true)

	svc.AddTask("Added elsewhere", false)
	m = press(t, m, "r")

	if got := titles(m); len(got) != 1 || got[0] != "Added elsewhere" {
		t.Errorf("after reload: %v", got)
	}
}

func TestProfileAndLogout(t *testing.T) {
	svc := testutil.NewFakeService()
	m, sess := start(t, svc, true)

	m = press(t, m, "tab")
	view := m.View()
	if !strings.Contains(view, "a@b.com") || !strings.Contains(view, "Ada") {
		t.Errorf("profile not rendered:\n%s", view)
	}

	m = press(t, m, "L")
	if sess.State() != session.Unauthenticated {
		t.Fatal("logout should clear the session")
	}
	if m.shown != router.ViewLogin {
		t.Errorf("shown = %v, want login", m.shown)
	}
	if m.user != nil {
		t.Error("profile should be forgotten")
	}
}

func TestProfile_StaleResponseDropped(t *testing.T) {
	svc := testutil.NewFakeService()
	m, _ := start(t, svc, true)

	// Profile, back to tasks and to profile again, without letting the
	// first Me request finish.
	model, first := m.Update(keyMsg("tab"))
	m = model.(Model)
	model, _ = m.Update(keyMsg("tab"))
	m = model.(Model)
	model, second := m.Update(keyMsg("tab"))
	m = model.(Model)
	if m.shown != router.ViewProfile || !m.loading {
		t.Fatalf("shown = %v loading = %v, want loading profile", m.shown, m.loading)
	}

	for _, msg := range collect(first) {
		if _, ok := msg.(profileLoadedMsg); !ok {
			continue
		}
		model, _ = m.Update(msg)
		m = model.(Model)
	}
	if !m.loading || m.user != nil {
		t.Error("first response must not finish the second load")
	}

	m = settle(t, m, second)
	if m.loading || m.user == nil || m.user.Email != "a@b.com" {
		t.Errorf("loading = %v user = %+v after the current response", m.loading, m.user)
	}
}

func TestQuit(t *testing.T) {
	svc := testutil.NewFakeService()
	m, _ := start(t, svc, true)

	model, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if model.(Model).list.Mounted() {
		t.Error("quitting should unmount the list")
	}
}
