// Package tui is the interactive terminal client. The router decides which
// views are reachable; the task view renders a tasklist.List that is mounted
// while the view is shown and unmounted when the user leaves it.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasker/internal/account"
	"tasker/internal/output"
	"tasker/internal/router"
	"tasker/internal/service"
	"tasker/internal/session"
	"tasker/internal/tasklist"
)

// Messages
type authDoneMsg struct {
	err error
}

type loggedOutMsg struct {
	err error
}

type tasksLoadedMsg struct {
	ticket tasklist.Ticket
	tasks  []service.Task
	err    error
}

// taskSavedMsg carries the server's copy of a created or updated task.
type taskSavedMsg struct {
	ticket  tasklist.Ticket
	task    service.Task
	created bool
	err     error
}

// profileLoadedMsg carries the seq of the request that produced it.
type profileLoadedMsg struct {
	seq  int
	user service.User
	err  error
}

// editMode is what the task view's input line is doing.
type editMode int

const (
	editNone editMode = iota
	editAdd
	editTitle
)

// Form field indexes.
const (
	fieldEmail = iota
	fieldPassword
	fieldName
)

// Model is the root Bubble Tea model
type Model struct {
	ctx   context.Context
	sess  *session.Manager
	svc   service.Service
	views *router.Router
	list  *tasklist.List

	// shown is the view the model last entered; it trails the router
	// until syncView catches up.
	shown router.View

	width  int
	height int

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	loading bool
	err     string

	// Auth forms
	fields []textinput.Model
	focus  int

	// Task view
	cursor   int
	mode     editMode
	editID   int64
	editLine textinput.Model

	// Profile view
	user       *service.User
	profileSeq int

	// initCmd is the entry work for the first view, returned by Init.
	initCmd tea.Cmd
}

// NewRootModel creates the root model for an already restored session.
func NewRootModel(ctx context.Context, sess *session.Manager, svc service.Service) Model {
	email := textinput.New()
	email.Prompt = "email:    "
	email.PromptStyle = InputPromptStyle
	email.CharLimit = 254

	password := textinput.New()
	password.Prompt = "password: "
	password.PromptStyle = InputPromptStyle
	password.EchoMode = textinput.EchoPassword

	name := textinput.New()
	name.Prompt = "name:     "
	name.PromptStyle = InputPromptStyle
	name.Placeholder = "optional"

	line := textinput.New()
	line.Prompt = "❯ "
	line.PromptStyle = InputPromptStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	views := router.New(sess)
	m := Model{
		ctx:      ctx,
		sess:     sess,
		svc:      svc,
		views:    views,
		list:     tasklist.New(),
		shown:    views.View(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		fields:   []textinput.Model{email, password, name},
		editLine: line,
	}
	m.initCmd = m.enterCmd(m.shown)
	return m
}

// Run starts the program on in/out and blocks until the user quits.
func Run(ctx context.Context, sess *session.Manager, svc service.Service, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(
		NewRootModel(ctx, sess, svc),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initCmd)
}

// View returns the currently entered view.
func (m Model) View() string {
	var body string
	switch m.shown {
	case router.ViewLogin, router.ViewSignup:
		body = m.authView()
	case router.ViewTasks:
		body = m.tasksView()
	case router.ViewProfile:
		body = m.profileView()
	}

	parts := []string{m.renderHeader(), BodyStyle.Render(body)}
	if m.err != "" {
		parts = append(parts, ErrorStyle.Render("error: "+m.err))
	}
	parts = append(parts, StatusBarStyle.Render(m.help.ShortHelpView(m.bindings())))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case authDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.resetForms()
		return m, m.syncView()

	case loggedOutMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.user = nil
		return m, m.syncView()

	case tasksLoadedMsg:
		if !m.list.Mounted() || msg.ticket != m.list.Current() {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.list.Load(msg.ticket, msg.tasks)
		m.clampCursor()
		return m, nil

	case taskSavedMsg:
		if !m.list.Mounted() || msg.ticket != m.list.Current() {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		if msg.created {
			m.list.Prepend(msg.ticket, msg.task)
			m.cursor = 0
		} else {
			m.list.Replace(msg.ticket, msg.task)
		}
		return m, nil

	case profileLoadedMsg:
		if m.shown != router.ViewProfile || msg.seq != m.profileSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		user := msg.user
		m.user = &user
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Interrupt) {
			m.list.Unmount()
			return m, tea.Quit
		}
		switch m.shown {
		case router.ViewLogin, router.ViewSignup:
			return m.updateAuth(msg)
		case router.ViewTasks:
			return m.updateTasks(msg)
		case router.ViewProfile:
			return m.updateProfile(msg)
		}
	}

	return m, nil
}

// syncView enters the router's current view if the model is showing a
// different one.
func (m *Model) syncView() tea.Cmd {
	next := m.views.View()
	if next == m.shown {
		return nil
	}
	return m.enter(next)
}

// enter leaves the shown view and enters v.
func (m *Model) enter(v router.View) tea.Cmd {
	if m.shown == router.ViewTasks && v != router.ViewTasks {
		m.list.Unmount()
		m.mode = editNone
		m.editLine.Blur()
	}
	m.shown = v
	m.err = ""
	m.loading = false
	return m.enterCmd(v)
}

// enterCmd starts whatever v needs on entry.
func (m *Model) enterCmd(v router.View) tea.Cmd {
	switch v {
	case router.ViewTasks:
		ticket := m.list.Mount()
		m.cursor = 0
		m.loading = true
		return tea.Batch(m.loadTasksCmd(ticket), m.spinner.Tick)
	case router.ViewProfile:
		m.profileSeq++
		m.loading = true
		return tea.Batch(m.loadProfileCmd(m.profileSeq), m.spinner.Tick)
	default:
		return m.focusField(fieldEmail)
	}
}

func (m Model) loadTasksCmd(ticket tasklist.Ticket) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		tasks, err := svc.ListTasks(ctx)
		return tasksLoadedMsg{ticket: ticket, tasks: tasks, err: err}
	}
}

func (m Model) loadProfileCmd(seq int) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		user, err := svc.Me(ctx)
		return profileLoadedMsg{seq: seq, user: user, err: err}
	}
}

// Auth flow

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.ToggleForm):
		other := router.ViewSignup
		if m.shown == router.ViewSignup {
			other = router.ViewLogin
		}
		if err := m.views.Show(other); err != nil {
			m.err = err.Error()
			return m, nil
		}
		return m, m.syncView()

	case key.Matches(msg, m.keys.Submit):
		return m.submitAuth()

	case key.Matches(msg, m.keys.NextField):
		return m, m.focusField((m.focus + 1) % m.fieldCount())

	case key.Matches(msg, m.keys.PrevField):
		return m, m.focusField((m.focus + m.fieldCount() - 1) % m.fieldCount())
	}

	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return m, cmd
}

// fieldCount is 2 on the login form and 3 on signup.
func (m Model) fieldCount() int {
	if m.shown == router.ViewSignup {
		return 3
	}
	return 2
}

func (m *Model) focusField(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.fields {
		if j == i {
			cmd = m.fields[j].Focus()
		} else {
			m.fields[j].Blur()
		}
	}
	return cmd
}

func (m *Model) resetForms() {
	for i := range m.fields {
		m.fields[i].Reset()
	}
	m.focus = fieldEmail
}

func (m Model) submitAuth() (tea.Model, tea.Cmd) {
	creds := service.Credentials{
		Email:    strings.TrimSpace(m.fields[fieldEmail].Value()),
		Password: m.fields[fieldPassword].Value(),
	}
	signup := m.shown == router.ViewSignup
	if signup {
		creds.FullName = strings.TrimSpace(m.fields[fieldName].Value())
	}
	if err := service.ValidateCredentials(creds); err != nil {
		m.err = err.Error()
		return m, nil
	}

	m.loading = true
	m.err = ""
	ctx, svc, sess := m.ctx, m.svc, m.sess
	return m, tea.Batch(func() tea.Msg {
		if signup {
			_, err := account.Signup(ctx, svc, sess, creds)
			return authDoneMsg{err: err}
		}
		return authDoneMsg{err: account.Login(ctx, svc, sess, creds)}
	}, m.spinner.Tick)
}

// Main flow: tasks

func (m Model) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode != editNone {
		return m.updateEditLine(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.list.Unmount()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Switch):
		m.views.Next()
		return m, m.syncView()

	case m.loading:
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.list.Len()-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Reload):
		return m, m.enterCmd(router.ViewTasks)

	case key.Matches(msg, m.keys.Add):
		m.mode = editAdd
		m.editLine.Placeholder = "new task"
		m.editLine.SetValue("")
		return m, m.editLine.Focus()

	case key.Matches(msg, m.keys.Edit):
		// Completed tasks are read-only.
		task, ok := m.list.At(m.cursor)
		if !ok || task.IsCompleted {
			return m, nil
		}
		m.mode = editTitle
		m.editID = task.ID
		m.editLine.Placeholder = ""
		m.editLine.SetValue(task.Title)
		m.editLine.CursorEnd()
		return m, m.editLine.Focus()

	case key.Matches(msg, m.keys.Complete):
		task, ok := m.list.At(m.cursor)
		if !ok {
			return m, nil
		}
		return m, m.saveCmd(func(ctx context.Context, svc service.Service) (service.Task, error) {
			return svc.CompleteTask(ctx, task.ID)
		}, false)
	}

	return m, nil
}

func (m Model) updateEditLine(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = editNone
		m.editLine.Blur()
		m.err = ""
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		title, err := service.NormalizeTitle(m.editLine.Value())
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		mode, id := m.mode, m.editID
		m.mode = editNone
		m.editLine.Blur()
		if mode == editAdd {
			return m, m.saveCmd(func(ctx context.Context, svc service.Service) (service.Task, error) {
				return svc.CreateTask(ctx, title)
			}, true)
		}
		return m, m.saveCmd(func(ctx context.Context, svc service.Service) (service.Task, error) {
			return svc.EditTask(ctx, id, title)
		}, false)
	}

	var cmd tea.Cmd
	m.editLine, cmd = m.editLine.Update(msg)
	return m, cmd
}

// saveCmd runs a task write tagged with the current mount.
func (m Model) saveCmd(call func(context.Context, service.Service) (service.Task, error), created bool) tea.Cmd {
	ctx, svc, ticket := m.ctx, m.svc, m.list.Current()
	return func() tea.Msg {
		task, err := call(ctx, svc)
		return taskSavedMsg{ticket: ticket, task: task, created: created, err: err}
	}
}

func (m *Model) clampCursor() {
	if m.cursor >= m.list.Len() {
		m.cursor = m.list.Len() - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Main flow: profile

func (m Model) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Switch):
		m.views.Next()
		return m, m.syncView()

	case m.loading:
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		return m, m.enterCmd(router.ViewProfile)

	case key.Matches(msg, m.keys.Logout):
		m.loading = true
		ctx, sess := m.ctx, m.sess
		return m, func() tea.Msg {
			_, err := account.Logout(ctx, sess)
			return loggedOutMsg{err: err}
		}
	}
	return m, nil
}

// Rendering

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("tasker")

	var tabs []string
	for _, v := range m.views.Flow().Views() {
		style := TabStyle
		if v == m.shown {
			style = ActiveTabStyle
		}
		tabs = append(tabs, style.Render(tabTitle(v)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, append([]string{title, "  "}, tabs...)...)
}

func tabTitle(v router.View) string {
	switch v {
	case router.ViewLogin:
		return "Log in"
	case router.ViewSignup:
		return "Sign up"
	case router.ViewTasks:
		return "Tasks"
	case router.ViewProfile:
		return "Profile"
	}
	return v.String()
}

func (m Model) loadingLine(what string) string {
	return m.spinner.View() + " " + what
}

func (m Model) authView() string {
	var b strings.Builder
	if m.shown == router.ViewSignup {
		b.WriteString(TitleStyle.Render("Create an account"))
	} else {
		b.WriteString(TitleStyle.Render("Log in"))
	}
	b.WriteString("\n\n")
	for i := 0; i < m.fieldCount(); i++ {
		b.WriteString(m.fields[i].View())
		b.WriteString("\n")
	}
	if m.loading {
		b.WriteString("\n" + m.loadingLine("Signing in..."))
	}
	return b.String()
}

func (m Model) tasksView() string {
	if m.loading {
		return m.loadingLine("Loading tasks...")
	}

	var b strings.Builder
	tasks := m.list.Tasks()
	if len(tasks) == 0 {
		b.WriteString(TaskOpenStyle.Render("no tasks yet, press a to add one"))
		b.WriteString("\n")
	}
	for i, task := range tasks {
		box, style := "[ ]", TaskOpenStyle
		if task.IsCompleted {
			box, style = "[x]", TaskDoneStyle
		}
		line := fmt.Sprintf("%s %s", box, style.Render(task.Title))
		if date := output.FormatDate(task.CreatedAt); date != "" {
			line = fmt.Sprintf("%s %s  %s", box, LabelStyle.Render(date), style.Render(task.Title))
		}
		if i == m.cursor {
			line = SelectedStyle.Render("›") + " " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.mode != editNone {
		b.WriteString("\n")
		b.WriteString(m.editLine.View())
	}
	return b.String()
}

func (m Model) profileView() string {
	if m.loading {
		return m.loadingLine("Loading profile...")
	}
	if m.user == nil {
		return ""
	}
	name := m.user.FullName
	if strings.TrimSpace(name) == "" {
		name = "(not set)"
	}
	rows := []string{
		TitleStyle.Render("Profile"),
		"",
		LabelStyle.Render("email: ") + m.user.Email,
		LabelStyle.Render("name:  ") + name,
	}
	return strings.Join(rows, "\n")
}

func (m Model) bindings() []key.Binding {
	switch m.shown {
	case router.ViewTasks:
		return m.keys.tasksHelp()
	case router.ViewProfile:
		return m.keys.profileHelp()
	default:
		return m.keys.authHelp()
	}
}
