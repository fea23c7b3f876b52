package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/theme"
)

// renderHelp renders a one-line footer from bindings.
func renderHelp(st theme.Styles, bindings []key.Binding, width int) string {
	keys := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		keys = append(keys, helpKey(st, h.Key, h.Desc))
	}
	return st.Footer.Width(width).MaxHeight(1).Render(strings.Join(keys, "  "))
}

func helpKey(st theme.Styles, key, desc string) string {
	return st.HelpKey.Render(key) + " " + st.HelpDesc.Render(desc)
}

// helpColumnWidth fits the widest help line.
const helpColumnWidth = 40

// renderFullHelp renders the help screen.
func renderFullHelp(st theme.Styles, width, height int) string {
	content := lipgloss.NewStyle().
		Width(max(10, width-4)).
		MaxHeight(max(1, height-2)).
		Padding(1, 2)

	left := []string{
		titleSection(st, "Everywhere"),
		helpSection(st, []helpItem{
			{"tab / shift+tab", "Next / previous screen"},
			{"x", "Dismiss message"},
			{"ctrl+t", "Toggle dark / light theme"},
			{"ctrl+o", "Sign out"},
			{"?", "Toggle help"},
			{"q / ctrl+c", "Quit"},
		}),
		titleSection(st, "Lists"),
		helpSection(st, []helpItem{
			{"j / k", "Move down / up"},
			{"g / G", "First / last row"},
			{"enter / click", "Open details"},
			{"a", "Add"},
			{"e", "Edit selected"},
			{"d then y", "Delete selected"},
			{"t", "Toggle status"},
			{"r", "Refresh"},
			{"H / L", "Focus previous / next column"},
			{"< / >", "Narrow / widen focused column"},
			{"drag header edge", "Resize column"},
		}),
	}
	right := []string{
		titleSection(st, "Pages"),
		helpSection(st, []helpItem{
			{"[ / ]", "Previous / next page"},
			{"{ / }", "First / last page"},
			{"1-9", "Jump to page"},
			{"+ / -", "Page size"},
		}),
		titleSection(st, "Filters"),
		helpSection(st, []helpItem{
			{"f or /", "Focus filters"},
			{"tab / shift+tab", "Next / previous control"},
			{"space / ← →", "Change selection"},
			{"↑ / ↓ on numbers", "Step value"},
			{"enter", "Search"},
			{"C", "Clear filters"},
			{"esc", "Back to the list"},
		}),
		titleSection(st, "Drawer"),
		helpSection(st, []helpItem{
			{"tab / shift+tab", "Next / previous field"},
			{"ctrl+s", "Save"},
			{"ctrl+r", "Reset"},
			{"esc / click outside", "Close"},
		}),
	}

	var body string
	if inner := width - 8; inner >= 2*helpColumnWidth {
		// Two columns keep every section visible on a standard terminal.
		col := lipgloss.NewStyle().Width(inner / 2)
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			col.Render(strings.Join(left, "\n\n")),
			col.Render(strings.Join(right, "\n\n")),
		)
	} else {
		body = strings.Join(append(left, right...), "\n\n")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		st.Title.Width(width).Render("Help"),
		content.Render(body),
		st.Footer.Width(width).Render(helpKey(st, "esc", "close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(st theme.Styles, title string) string {
	return st.Label.Render(title)
}

func helpSection(st theme.Styles, items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+st.HelpKey.Render(item.key)+" - "+st.HelpDesc.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
