package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/model"
	"healthdesk/internal/session"
	"healthdesk/internal/theme"
	"healthdesk/internal/util"
)

// DashboardModel is the signed-in landing screen.
type DashboardModel struct {
	session *session.Session
	styles  *theme.Styles
	now     func() time.Time
}

// NewDashboardModel creates the dashboard.
func NewDashboardModel(sess *session.Session, styles *theme.Styles) *DashboardModel {
	return &DashboardModel{session: sess, styles: styles, now: time.Now}
}

func (m *DashboardModel) expiryText() string {
	exp := m.session.ExpiresAt()
	if exp.IsZero() {
		return util.Placeholder
	}
	left := exp.Sub(m.now())
	if left <= 0 {
		return "expired"
	}
	return fmt.Sprintf("%s (in %s)", exp.Local().Format("Jan 02, 2006 15:04"), left.Round(time.Minute))
}

// Update maps the shortcut keys shown on the dashboard to screens.
func (m *DashboardModel) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	var target model.Screen
	switch keyMsg.String() {
	case "p":
		target = model.ScreenPatients
	case "d":
		target = model.ScreenDepartments
	case "s":
		target = model.ScreenSettings
	default:
		return nil
	}
	return func() tea.Msg { return model.NavigateMsg{Screen: target} }
}

// View renders the account card and the navigation shortcuts.
func (m *DashboardModel) View(width, height int) string {
	st := *m.styles
	name := m.session.Email()
	if u, ok := m.session.User(); ok {
		name = u.DisplayName()
	}
	if name == "" {
		name = "there"
	}

	org := m.session.OrgName()
	if org == "" {
		org = m.session.OrgID()
	}

	account := detailRows(st, min(60, max(30, width-4)), []detailRow{
		{"Email", m.session.Email()},
		{"Role", titleCase(m.session.Role())},
		{"Organization", org},
		{"Org ID", m.session.OrgID()},
		{"Session ends", m.expiryText()},
		{"Home", m.session.DashboardPath()},
	})

	shortcuts := make([]string, 0, len(model.NavScreens))
	for _, s := range model.NavScreens {
		if s == model.ScreenDashboard {
			continue
		}
		shortcut := strings.ToLower(s.Label()[:1])
		shortcuts = append(shortcuts, st.HelpKey.Render(shortcut)+" "+st.HelpDesc.Render(s.Label())+" "+st.Muted.Render(m.session.BuildRoute(s.Path())))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		st.Title.Render("Welcome back, "+name),
		"",
		st.Panel.Render(account),
		"",
		st.Label.Render("Go to"),
		strings.Join(shortcuts, "\n"),
		"",
		st.Muted.Render("tab / shift+tab to switch screens"),
	)
}
