package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the issue board.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	CycleStatus   key.Binding // Status filter: All, Open, In Progress, Done.
	CyclePriority key.Binding // Priority filter: All, Low .. Critical.
	ToggleSort    key.Binding // Newest or oldest first.

	ChangeStatus key.Binding // Open the status dropdown for the selected issue.
	Dismiss      key.Binding
	Reload       key.Binding
	Quit         key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("n", "right", "pgdown"),
		key.WithHelp("n", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("p", "left", "pgup"),
		key.WithHelp("p", "prev page"),
	),
	CycleStatus: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "status filter"),
	),
	CyclePriority: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "priority filter"),
	),
	ToggleSort: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "sort"),
	),
	ChangeStatus: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "change status"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextPage, k.PrevPage, k.CycleStatus, k.CyclePriority, k.ToggleSort, k.ChangeStatus, k.Reload, k.Quit}
}
