package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of list screens in nav mode.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Top         key.Binding
	Bottom      key.Binding
	View        key.Binding
	Add         key.Binding
	Edit        key.Binding
	Delete      key.Binding
	Toggle      key.Binding
	Filter      key.Binding
	ClearFilter key.Binding
	Refresh     key.Binding
	PrevColumn  key.Binding
	NextColumn  key.Binding
	Narrow      key.Binding
	Widen       key.Binding
	Confirm     key.Binding
	Back        key.Binding
}

// GlobalKeyMap holds bindings that work on every signed-in screen.
type GlobalKeyMap struct {
	NextScreen  key.Binding
	PrevScreen  key.Binding
	Dismiss     key.Binding
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
	Logout      key.Binding
	ToggleTheme key.Binding
}

// DefaultKeyMap returns the default list keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		View: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle status"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f", "/"),
			key.WithHelp("f", "filters"),
		),
		ClearFilter: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear filters"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		PrevColumn: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "prev col"),
		),
		NextColumn: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "next col"),
		),
		Narrow: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "narrow col"),
		),
		Widen: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "widen col"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
	}
}

// DefaultGlobalKeyMap returns the app-wide keybindings.
func DefaultGlobalKeyMap() GlobalKeyMap {
	return GlobalKeyMap{
		NextScreen: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next screen"),
		),
		PrevScreen: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev screen"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		ToggleTheme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "theme"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "sign out"),
		),
	}
}

// FormKeyMap defines keybindings inside the drawer.
type FormKeyMap struct {
	NextField key.Binding
	PrevField key.Binding
	Save      key.Binding
	Reset     key.Binding
	Cancel    key.Binding
}

// DefaultFormKeyMap returns the default form keybindings.
func DefaultFormKeyMap() FormKeyMap {
	return FormKeyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev field"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reset"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
