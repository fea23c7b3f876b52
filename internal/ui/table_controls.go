package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"healthdesk/internal/theme"
)

// listPage is what the root model needs from a table screen.
type listPage interface {
	Name() string
	// Init loads the first page unless it was already loaded.
	Init() tea.Cmd
	// Reset forgets rows, filters and the open drawer.
	Reset()
	Update(msg tea.Msg) tea.Cmd
	View() string
	SetFrame(x, y, width, height int)
	SetStyles(st theme.Styles)
	CapturesInput() bool
	HelpBindings() []key.Binding
}

var (
	_ listPage = (*departmentsPage)(nil)
	_ listPage = (*patientsPage)(nil)
)
