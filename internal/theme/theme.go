package theme

import "github.com/charmbracelet/lipgloss"

// Palette is the set of colors a theme is built from.
type Palette struct {
	Name    string
	Base    lipgloss.Color
	Surface lipgloss.Color
	Stripe  lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Accent  lipgloss.Color
	Green   lipgloss.Color
	Red     lipgloss.Color
	Yellow  lipgloss.Color
}

// Dark is the default palette.
var Dark = Palette{
	Name:    "dark",
	Base:    lipgloss.Color("#1D221E"),
	Surface: lipgloss.Color("#2A332C"),
	Stripe:  lipgloss.Color("#232B24"),
	Muted:   lipgloss.Color("#7E8C80"),
	Text:    lipgloss.Color("#D6E0D3"),
	Accent:  lipgloss.Color("#8FA082"),
	Green:   lipgloss.Color("#a6e3a1"),
	Red:     lipgloss.Color("#f38ba8"),
	Yellow:  lipgloss.Color("#f9e2af"),
}

// Light mirrors Dark for bright terminals.
var Light = Palette{
	Name:    "light",
	Base:    lipgloss.Color("#F7F8F5"),
	Surface: lipgloss.Color("#E4E9E1"),
	Stripe:  lipgloss.Color("#EEF1EC"),
	Muted:   lipgloss.Color("#6B776D"),
	Text:    lipgloss.Color("#1F2620"),
	Accent:  lipgloss.Color("#4D6B45"),
	Green:   lipgloss.Color("#2E7D32"),
	Red:     lipgloss.Color("#C62828"),
	Yellow:  lipgloss.Color("#B7791F"),
}

// Styles are the lipgloss styles derived from a palette.
type Styles struct {
	Palette Palette

	Base             lipgloss.Style
	Header           lipgloss.Style
	Title            lipgloss.Style
	TableHeader      lipgloss.Style
	ActiveHeader     lipgloss.Style
	SelectedRow      lipgloss.Style
	NormalRow        lipgloss.Style
	StripedRow       lipgloss.Style
	Divider          lipgloss.Style
	Footer           lipgloss.Style
	HelpKey          lipgloss.Style
	HelpDesc         lipgloss.Style
	Error            lipgloss.Style
	Success          lipgloss.Style
	Label            lipgloss.Style
	Input            lipgloss.Style
	FocusedInput     lipgloss.Style
	Button           lipgloss.Style
	FocusedButton    lipgloss.Style
	DisabledButton   lipgloss.Style
	Panel            lipgloss.Style
	Drawer           lipgloss.Style
	Breadcrumb       lipgloss.Style
	BreadcrumbActive lipgloss.Style
	EmptyState       lipgloss.Style
	StatusBar        lipgloss.Style
	Muted            lipgloss.Style
	ActiveBadge      lipgloss.Style
	InactiveBadge    lipgloss.Style
	NavItem          lipgloss.Style
	NavItemActive    lipgloss.Style
}

// New derives the style set for p.
func New(p Palette) Styles {
	return Styles{
		Palette: p,

		Base: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Base),

		Header: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.Muted),

		TableHeader: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			Background(p.Surface),

		ActiveHeader: lipgloss.NewStyle().
			Foreground(p.Base).
			Bold(true).
			Background(p.Accent),

		SelectedRow: lipgloss.NewStyle().
			Foreground(p.Base).
			Background(p.Accent),

		NormalRow: lipgloss.NewStyle().
			Foreground(p.Text),

		StripedRow: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Stripe),

		Divider: lipgloss.NewStyle().
			Foreground(p.Muted),

		Footer: lipgloss.NewStyle().
			Foreground(p.Muted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(p.Muted),

		HelpKey: lipgloss.NewStyle().
			Foreground(p.Accent),

		HelpDesc: lipgloss.NewStyle().
			Foreground(p.Muted),

		Error: lipgloss.NewStyle().
			Foreground(p.Red).
			Padding(0, 1),

		Success: lipgloss.NewStyle().
			Foreground(p.Green).
			Padding(0, 1),

		Label: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		Input: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Surface).
			Padding(0, 1),

		FocusedInput: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Surface).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(p.Accent),

		Button: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Surface).
			Padding(0, 2),

		FocusedButton: lipgloss.NewStyle().
			Foreground(p.Base).
			Background(p.Accent).
			Bold(true).
			Padding(0, 2),

		DisabledButton: lipgloss.NewStyle().
			Foreground(p.Muted).
			Background(p.Surface).
			Padding(0, 2),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Muted).
			Padding(0, 1),

		Drawer: lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderTop(false).
			BorderRight(false).
			BorderBottom(false).
			BorderForeground(p.Accent).
			Padding(0, 2),

		Breadcrumb: lipgloss.NewStyle().
			Foreground(p.Muted),

		BreadcrumbActive: lipgloss.NewStyle().
			Foreground(p.Accent),

		EmptyState: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true).
			Align(lipgloss.Center),

		StatusBar: lipgloss.NewStyle().
			Foreground(p.Muted).
			Padding(0, 1),

		Muted: lipgloss.NewStyle().
			Foreground(p.Muted),

		ActiveBadge: lipgloss.NewStyle().
			Foreground(p.Green).
			Bold(true),

		InactiveBadge: lipgloss.NewStyle().
			Foreground(p.Red),

		NavItem: lipgloss.NewStyle().
			Foreground(p.Text).
			Padding(0, 1),

		NavItemActive: lipgloss.NewStyle().
			Foreground(p.Base).
			Background(p.Accent).
			Bold(true).
			Padding(0, 1),
	}
}

// ByName returns the styles for "light" or, for anything else, "dark".
func ByName(name string) Styles {
	if name == Light.Name {
		return New(Light)
	}
	return New(Dark)
}

// Toggle returns the name of the other theme.
func Toggle(name string) string {
	if name == Light.Name {
		return Dark.Name
	}
	return Light.Name
}
