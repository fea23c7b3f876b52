package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"healthdesk/internal/config"
	"healthdesk/internal/model"
	"healthdesk/internal/session"
	"healthdesk/internal/theme"
)

// ThemeKey is the store key holding the theme preference.
const ThemeKey = "theme"

const (
	settingTheme = iota
	settingOrg
	settingLogout
	settingCount
)

// orgChangedMsg is sent after the organization override was saved.
type orgChangedMsg struct {
	orgID string
}

// SettingsModel shows preferences and account actions.
type SettingsModel struct {
	session *session.Session
	store   session.Store
	cfg     *config.Config
	styles  *theme.Styles
	logger  *zap.Logger
	keys    KeyMap

	themeName string
	focus     int
	editing   bool
	orgInput  textinput.Model
}

// NewSettingsModel creates the settings screen.
func NewSettingsModel(sess *session.Session, store session.Store, cfg *config.Config, styles *theme.Styles, logger *zap.Logger) *SettingsModel {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "org-123"
	in.CharLimit = 64
	return &SettingsModel{
		session:   sess,
		store:     store,
		cfg:       cfg,
		styles:    styles,
		logger:    logger,
		keys:      DefaultKeyMap(),
		themeName: styles.Palette.Name,
		orgInput:  in,
	}
}

// CapturesInput is true while the organization field is being edited.
func (m *SettingsModel) CapturesInput() bool {
	return m.editing
}

// SetTheme records the active theme name.
func (m *SettingsModel) SetTheme(name string) {
	m.themeName = name
}

// Update handles input.
func (m *SettingsModel) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	if m.editing {
		switch keyMsg.String() {
		case "esc":
			m.editing = false
			m.orgInput.Blur()
			return nil
		case "enter":
			m.editing = false
			m.orgInput.Blur()
			return m.saveOrg(strings.TrimSpace(m.orgInput.Value()))
		}
		var cmd tea.Cmd
		m.orgInput, cmd = m.orgInput.Update(keyMsg)
		return cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.focus = (m.focus + settingCount - 1) % settingCount
	case key.Matches(keyMsg, m.keys.Down):
		m.focus = (m.focus + 1) % settingCount
	case keyMsg.String() == "enter" || keyMsg.String() == " ":
		switch m.focus {
		case settingTheme:
			return toggleThemeCmd(m.store, m.themeName, m.logger)
		case settingOrg:
			m.editing = true
			m.orgInput.SetValue(m.session.OrgID())
			m.orgInput.CursorEnd()
			return m.orgInput.Focus()
		case settingLogout:
			return logoutCmd(m.session, m.logger)
		}
	}
	return nil
}

func (m *SettingsModel) saveOrg(orgID string) tea.Cmd {
	if orgID == "" || orgID == m.session.OrgID() {
		return nil
	}
	sess, logger := m.session, m.logger
	return func() tea.Msg {
		if err := sess.SetOrgID(context.Background(), orgID); err != nil {
			logger.Error("failed to save organization", zap.Error(err))
			return model.ErrorMsg{Err: fmt.Errorf("failed to save organization: %w", err)}
		}
		return orgChangedMsg{orgID: orgID}
	}
}

// View renders the settings list.
func (m *SettingsModel) View(width, height int) string {
	st := *m.styles
	item := func(i int, label, value string) string {
		style := st.NavItem
		marker := "  "
		if i == m.focus {
			style = st.NavItemActive
			marker = "› "
		}
		return style.Render(marker+label) + "  " + value
	}

	org := st.Muted.Render(m.session.OrgID())
	if m.editing {
		org = st.FocusedInput.Render(m.orgInput.View())
	}

	items := []string{
		item(settingTheme, "Theme", st.Muted.Render(m.themeName)),
		item(settingOrg, "Organization", org),
		item(settingLogout, "Sign out", st.Muted.Render(m.session.Email())),
	}

	info := detailRows(st, min(70, max(30, width-4)), []detailRow{
		{"API", m.cfg.APIBaseURL},
		{"Data dir", m.cfg.DataDir},
		{"Org name", m.session.OrgName()},
		{"Role", titleCase(m.session.Role())},
		{"Cache", fmt.Sprintf("%s stale time", m.cfg.StaleTime)},
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		st.Title.Render("Settings"),
		"",
		strings.Join(items, "\n"),
		"",
		st.Panel.Render(info),
	)
}

// HelpBindings returns the keys that apply on the settings screen.
func (m *SettingsModel) HelpBindings() []key.Binding {
	if m.editing {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{
		m.keys.Up, m.keys.Down,
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	}
}

func toggleThemeCmd(store session.Store, current string, logger *zap.Logger) tea.Cmd {
	next := theme.Toggle(current)
	return func() tea.Msg {
		if err := store.Set(context.Background(), ThemeKey, next); err != nil {
			logger.Warn("failed to persist theme", zap.Error(err))
		}
		return model.ThemeChangedMsg{Theme: next}
	}
}

func logoutCmd(sess *session.Session, logger *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		if err := sess.Teardown(context.Background()); err != nil {
			logger.Error("failed to clear session", zap.Error(err))
			return model.ErrorMsg{Err: fmt.Errorf("failed to sign out: %w", err)}
		}
		return model.LoggedOutMsg{}
	}
}
