package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the application
type KeyMap struct {
	// Navigation
	Up     key.Binding
	Down   key.Binding
	Switch key.Binding

	// Forms
	NextField  key.Binding
	PrevField  key.Binding
	ToggleForm key.Binding
	Submit     key.Binding
	Cancel     key.Binding

	// Tasks
	Add      key.Binding
	Edit     key.Binding
	Complete key.Binding
	Reload   key.Binding

	// Profile
	Logout key.Binding

	Quit      key.Binding
	Interrupt key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Switch: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "tasks/profile"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		ToggleForm: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "login/signup"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Complete: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "complete"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// authHelp lists the bindings shown under the login and signup forms.
func (k KeyMap) authHelp() []key.Binding {
	return []key.Binding{k.NextField, k.Submit, k.ToggleForm, k.Interrupt}
}

// tasksHelp lists the bindings shown under the task list.
func (k KeyMap) tasksHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Add, k.Edit, k.Complete, k.Reload, k.Switch, k.Quit}
}

// profileHelp lists the bindings shown under the profile.
func (k KeyMap) profileHelp() []key.Binding {
	return []key.Binding{k.Logout, k.Reload, k.Switch, k.Quit}
}
