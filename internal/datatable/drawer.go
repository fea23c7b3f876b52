package datatable

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/theme"
)

// Form is the command handle a drawer drives. The drawer never reads the
// form's fields; submit and reset go through these methods.
type Form interface {
	// Submit validates and returns the command performing the save, or nil
	// when validation failed and errors are now shown.
	Submit() tea.Cmd
	// Reset restores the form to its initial values.
	Reset()
	Update(msg tea.Msg) tea.Cmd
	View(width int) string
}

// DefaultDrawerWidth is the panel width in cells.
const DefaultDrawerWidth = 56

// Drawer is a right-hand panel hosting a Form. It renders nothing and
// ignores all input while closed.
type Drawer struct {
	Title       string
	SubmitLabel string
	CancelLabel string
	Width       int
	// HideActions removes the submit and cancel bar (read-only detail).
	HideActions bool

	// OnSubmit defaults to calling the form's Submit.
	OnSubmit func(form Form) tea.Cmd
	// OnClose is called by cancel, esc and backdrop clicks. Without it the
	// drawer closes itself.
	OnClose func() tea.Cmd

	form         Form
	open         bool
	loading      bool
	spinner      spinner.Model
	styles       theme.Styles
	screenWidth  int
	screenHeight int
}

// NewDrawer returns a closed drawer.
func NewDrawer() *Drawer {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return &Drawer{
		SubmitLabel: "Submit",
		CancelLabel: "Cancel",
		Width:       DefaultDrawerWidth,
		spinner:     sp,
		styles:      theme.New(theme.Dark),
	}
}

// SetStyles applies a theme.
func (d *Drawer) SetStyles(s theme.Styles) {
	d.styles = s
}

// SetScreenSize records the terminal size for layout and backdrop hit tests.
func (d *Drawer) SetScreenSize(w, h int) {
	d.screenWidth, d.screenHeight = w, h
}

// Open mounts form under title.
func (d *Drawer) Open(title string, form Form) {
	d.Title = title
	d.form = form
	d.open = true
	d.loading = false
}

// Close unmounts the form.
func (d *Drawer) Close() {
	d.open = false
	d.loading = false
	d.form = nil
	d.HideActions = false
}

// IsOpen reports whether the drawer is mounted.
func (d *Drawer) IsOpen() bool {
	return d.open
}

// Form returns the hosted form, nil when closed.
func (d *Drawer) Form() Form {
	return d.form
}

// SetLoading marks a submit in flight. The returned command starts the spinner.
func (d *Drawer) SetLoading(loading bool) tea.Cmd {
	d.loading = loading
	if loading {
		return d.spinner.Tick
	}
	return nil
}

// Loading reports whether a submit is in flight.
func (d *Drawer) Loading() bool {
	return d.loading
}

// PanelWidth is the rendered width in cells, bounded by the screen.
func (d *Drawer) PanelWidth() int {
	w := d.Width
	if w <= 0 {
		w = DefaultDrawerWidth
	}
	if d.screenWidth > 0 {
		w = min(w, d.screenWidth)
	}
	return w
}

// Submit delegates to OnSubmit (or the form) unless a submit is in flight.
func (d *Drawer) Submit() tea.Cmd {
	if !d.open || d.loading || d.HideActions || d.form == nil {
		return nil
	}
	if d.OnSubmit != nil {
		return d.OnSubmit(d.form)
	}
	return d.form.Submit()
}

// Cancel requests closing unless a submit is in flight.
func (d *Drawer) Cancel() tea.Cmd {
	if !d.open || d.loading {
		return nil
	}
	if d.OnClose != nil {
		return d.OnClose()
	}
	d.Close()
	return nil
}

// Update routes input to the hosted form.
func (d *Drawer) Update(msg tea.Msg) tea.Cmd {
	if !d.open {
		return nil
	}
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !d.loading {
			return nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			return d.Submit()
		case "esc":
			return d.Cancel()
		case "ctrl+r":
			if !d.loading && !d.HideActions && d.form != nil {
				d.form.Reset()
			}
			return nil
		}
		if d.loading || d.form == nil {
			return nil
		}
		return d.form.Update(msg)
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft &&
			d.screenWidth > 0 && msg.X < d.screenWidth-d.PanelWidth() {
			return d.Cancel()
		}
		return nil
	}
	if d.form != nil {
		return d.form.Update(msg)
	}
	return nil
}

// View renders the panel, or "" when closed.
func (d *Drawer) View() string {
	if !d.open {
		return ""
	}
	st := d.styles
	width := d.PanelWidth()
	inner := max(10, width-st.Drawer.GetHorizontalFrameSize())

	title := st.Title.Width(inner).Render(d.Title)
	var body string
	if d.form != nil {
		body = d.form.View(inner)
	}

	sections := []string{title, "", body}
	if !d.HideActions {
		sections = append(sections, "", d.actionsView())
	} else {
		sections = append(sections, "", st.Muted.Render("esc close"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	style := st.Drawer.Width(inner)
	if d.screenHeight > 0 {
		style = style.Height(max(1, d.screenHeight-st.Drawer.GetVerticalBorderSize()))
	}
	return style.Render(content)
}

func (d *Drawer) actionsView() string {
	st := d.styles
	if d.loading {
		return strings.Join([]string{
			st.DisabledButton.Render(d.CancelLabel),
			st.DisabledButton.Render(d.spinner.View() + " Loading..."),
		}, " ")
	}
	return strings.Join([]string{
		st.Button.Render(d.CancelLabel + " (esc)"),
		st.FocusedButton.Render(d.SubmitLabel + " (ctrl+s)"),
	}, " ")
}
