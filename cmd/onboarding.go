package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/config"
	"healthdesk/internal/theme"
)

// setupResult is what the first-run setup collected.
type setupResult struct {
	APIBaseURL string
	DevOrgID   string
}

// shouldRunOnboarding reports whether stdin is an interactive terminal.
func shouldRunOnboarding() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

type onboardingStep int

const (
	stepURL onboardingStep = iota
	stepOrg
	stepDone
)

type onboardingModel struct {
	step     onboardingStep
	styles   theme.Styles
	urlInput textinput.Model
	orgInput textinput.Model
	result   setupResult
	canceled bool
	err      string
	width    int
	height   int
}

func newOnboardingModel(cfg *config.Config) onboardingModel {
	st := theme.ByName(cfg.Theme)

	url := textinput.New()
	url.Placeholder = "https://api.example.com/api/v1"
	url.CharLimit = 300
	url.Prompt = "url> "
	url.SetValue(cfg.APIBaseURL)
	url.Focus()

	org := textinput.New()
	org.Placeholder = "leave empty to use the org from your token"
	org.CharLimit = 100
	org.Prompt = "org> "
	org.SetValue(cfg.DevOrgID)

	return onboardingModel{
		step:     stepURL,
		styles:   st,
		urlInput: url,
		orgInput: org,
	}
}

func (m onboardingModel) Init() tea.Cmd { return textinput.Blink }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.canceled = true
			m.step = stepDone
			return m, tea.Quit
		}

		switch m.step {
		case stepURL:
			if msg.String() == "enter" {
				raw := strings.TrimRight(strings.TrimSpace(m.urlInput.Value()), "/")
				if err := config.ValidateBaseURL(raw); err != nil {
					m.err = err.Error()
					return m, nil
				}
				m.err = ""
				m.result.APIBaseURL = raw
				m.step = stepOrg
				m.urlInput.Blur()
				return m, m.orgInput.Focus()
			}
			var cmd tea.Cmd
			m.urlInput, cmd = m.urlInput.Update(msg)
			m.err = ""
			return m, cmd
		case stepOrg:
			switch msg.String() {
			case "enter":
				m.result.DevOrgID = strings.TrimSpace(m.orgInput.Value())
				m.step = stepDone
				return m, tea.Quit
			case "shift+tab":
				m.step = stepURL
				m.orgInput.Blur()
				return m, m.urlInput.Focus()
			}
			var cmd tea.Cmd
			m.orgInput, cmd = m.orgInput.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}
	st := m.styles

	header := renderSetupHeader(st, width)
	tabs := m.renderTabs(width)
	footer := m.renderFooter(width)
	content := m.renderContent(width)

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, footer))
}

func renderSetupHeader(st theme.Styles, width int) string {
	left := "  " + st.Header.Render("healthdesk") + " " + st.Muted.Render("› Setup")
	return st.Title.Width(width).Render(left)
}

func (m onboardingModel) renderTabs(width int) string {
	st := m.styles
	tab := func(label string, active bool) string {
		if active {
			return st.NavItemActive.Render(label)
		}
		return st.NavItem.Render(label)
	}
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(st.Palette.Muted).
		Render(lipgloss.JoinHorizontal(lipgloss.Left,
			tab("API", m.step == stepURL),
			tab("Organization", m.step == stepOrg)))
}

func (m onboardingModel) renderFooter(width int) string {
	st := m.styles
	var keys []string
	switch m.step {
	case stepURL:
		keys = []string{helpText(st, "enter", "next"), helpText(st, "esc", "cancel")}
	case stepOrg:
		keys = []string{helpText(st, "enter", "save"), helpText(st, "shift+tab", "back"), helpText(st, "esc", "cancel")}
	default:
		keys = []string{st.Muted.Render("Setup complete")}
	}
	return st.Footer.Width(width).Render(strings.Join(keys, "  "))
}

func helpText(st theme.Styles, key, desc string) string {
	return st.HelpKey.Render(key) + " " + st.HelpDesc.Render(desc)
}

func (m onboardingModel) renderContent(width int) string {
	st := m.styles
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}
	inputWidth := max(30, cardWidth-14)

	var body string
	switch m.step {
	case stepURL:
		lines := []string{
			st.Label.Render("Where is the healthcare API?"),
			"",
			st.FocusedInput.Width(inputWidth).Render(m.urlInput.View()),
		}
		if m.err != "" {
			lines = append(lines, st.Error.Render(m.err))
		}
		lines = append(lines, "",
			st.Muted.Render("The base URL including the version prefix, e.g. /api/v1."),
			st.Muted.Render(fmt.Sprintf("You can change it later with --api-url or %sAPI_BASE_URL.", config.EnvPrefix)))
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stepOrg:
		body = lipgloss.JoinVertical(lipgloss.Left,
			st.Label.Render("Development organization (optional)"),
			"",
			st.FocusedInput.Width(inputWidth).Render(m.orgInput.View()),
			"",
			st.Muted.Render("Used when the signed-in token carries no org_id."),
			st.Muted.Render("API: "+m.result.APIBaseURL),
		)
	default:
		body = st.Success.Render("Saved.")
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(st.Panel.Width(cardWidth).Render(body))
}

// runOnboarding asks for the API base URL on first run. A canceled setup
// returns an empty result.
func runOnboarding(cfg *config.Config) (setupResult, error) {
	p := tea.NewProgram(newOnboardingModel(cfg), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return setupResult{}, err
	}
	m, ok := final.(onboardingModel)
	if !ok || m.canceled {
		return setupResult{}, nil
	}
	return m.result, nil
}
