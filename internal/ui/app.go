package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"healthdesk/internal/api"
	"healthdesk/internal/config"
	"healthdesk/internal/model"
	"healthdesk/internal/query"
	"healthdesk/internal/session"
	"healthdesk/internal/theme"
)

// Deps are the services the UI runs on.
type Deps struct {
	Config  *config.Config
	Session *session.Session
	Store   session.Store
	Cache   *query.Cache
	Client  *api.Client
	Logger  *zap.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	deps      Deps
	styles    *theme.Styles
	themeName string
	screen    model.Screen

	width  int
	height int

	error       string
	info        string
	showingHelp bool

	login       *LoginModel
	dashboard   *DashboardModel
	settings    *SettingsModel
	departments *departmentsPage
	patients    *patientsPage
	pages       map[string]listPage

	keys  GlobalKeyMap
	prefs *prefsWriter
}

// New creates the root model. The stored theme preference wins over the
// configured one.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	themeName := deps.Config.Theme
	if v, ok, err := deps.Store.Get(context.Background(), ThemeKey); err == nil && ok && v != "" {
		themeName = v
	}
	styles := theme.ByName(themeName)
	st := &styles

	prefs := newPrefsWriter(deps.Config.PrefsPath(), prefsDelay, deps.Logger)
	pd := pageDeps{
		cache:    deps.Cache,
		session:  deps.Session,
		prefs:    prefs,
		logger:   deps.Logger,
		styles:   st,
		pageSize: deps.Config.DefaultPageSize,
	}

	m := Model{
		deps:        deps,
		styles:      st,
		themeName:   styles.Palette.Name,
		screen:      model.ScreenLogin,
		login:       NewLoginModel(api.NewAuth(deps.Client), deps.Session, st, deps.Logger),
		dashboard:   NewDashboardModel(deps.Session, st),
		settings:    NewSettingsModel(deps.Session, deps.Store, deps.Config, st, deps.Logger),
		departments: newDepartmentsPage(deps.Client, pd),
		patients:    newPatientsPage(deps.Client, pd),
		keys:        DefaultGlobalKeyMap(),
		prefs:       prefs,
	}
	m.pages = map[string]listPage{
		m.departments.Name(): m.departments,
		m.patients.Name():    m.patients,
	}
	if deps.Session.IsAuthenticated() {
		m.screen = model.ScreenDashboard
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("HealthDesk")
}

// Screen returns the active screen.
func (m Model) Screen() model.Screen {
	return m.screen
}

func (m Model) pageFor(s model.Screen) listPage {
	switch s {
	case model.ScreenDepartments:
		return m.departments
	case model.ScreenPatients:
		return m.patients
	}
	return nil
}

// capturing reports whether the active screen owns every key.
func (m Model) capturing() bool {
	if p := m.pageFor(m.screen); p != nil {
		return p.CapturesInput()
	}
	if m.screen == model.ScreenSettings {
		return m.settings.CapturesInput()
	}
	return false
}

func (m Model) navigate(s model.Screen) (Model, tea.Cmd) {
	m.screen = s
	m.showingHelp = false
	if p := m.pageFor(s); p != nil {
		return m, p.Init()
	}
	return m, nil
}

func (m Model) cycleScreen(delta int) (Model, tea.Cmd) {
	idx := 0
	for i, s := range model.NavScreens {
		if s == m.screen {
			idx = i
		}
	}
	n := len(model.NavScreens)
	return m.navigate(model.NavScreens[(idx+delta+n)%n])
}

// signOut drops everything tied to the previous user and shows login.
func (m Model) signOut(notice string) Model {
	m.deps.Cache.Clear()
	for _, p := range m.pages {
		p.Reset()
	}
	m.login.Reset(notice)
	m.screen = model.ScreenLogin
	m.showingHelp = false
	m.error = ""
	m.info = ""
	return m
}

func (m Model) quit() tea.Cmd {
	if err := m.prefs.Flush(); err != nil {
		m.deps.Logger.Warn("failed to persist ui preferences", zap.Error(err))
	}
	return tea.Quit
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.screen == model.ScreenLogin || m.showingHelp {
			return m, nil
		}
		return m, m.updateScreen(msg)

	case model.LoginSucceededMsg:
		m.login.Update(msg)
		m.deps.Cache.Clear()
		for _, p := range m.pages {
			p.Reset()
		}
		m.error = ""
		m.info = "Signed in as " + msg.Response.User.DisplayName()
		m.deps.Logger.Info("signed in", zap.String("org_id", m.deps.Session.OrgID()))
		return m.navigate(model.ScreenDashboard)

	case model.LoginFailedMsg:
		return m, m.login.Update(msg)

	case model.UnauthorizedMsg:
		m.deps.Logger.Info("session rejected by api")
		var teardown tea.Cmd
		if m.deps.Session.Token() != "" {
			sess, logger := m.deps.Session, m.deps.Logger
			teardown = func() tea.Msg {
				if err := sess.Teardown(context.Background()); err != nil {
					logger.Error("failed to clear session", zap.Error(err))
				}
				return nil
			}
		}
		return m.signOut(sessionExpiredText), teardown

	case model.LoggedOutMsg:
		m.deps.Logger.Info("signed out")
		return m.signOut(""), nil

	case model.NavigateMsg:
		return m.navigate(msg.Screen)

	case model.ThemeChangedMsg:
		*m.styles = theme.ByName(msg.Theme)
		m.themeName = m.styles.Palette.Name
		m.settings.SetTheme(m.themeName)
		for _, p := range m.pages {
			p.SetStyles(*m.styles)
		}
		return m, nil

	case model.ErrorMsg:
		if msg.Err != nil {
			m.error = msg.Err.Error()
		}
		m.info = ""
		return m, nil

	case model.StatusMsg:
		m.info = msg.Text
		return m, nil

	case orgChangedMsg:
		m.deps.Cache.Clear()
		for _, p := range m.pages {
			p.Reset()
		}
		m.info = "Organization set to " + msg.orgID
		if p := m.pageFor(m.screen); p != nil {
			return m, p.Init()
		}
		return m, nil

	case spinner.TickMsg:
		cmds := []tea.Cmd{m.login.Update(msg)}
		for _, p := range m.pages {
			cmds = append(cmds, p.Update(msg))
		}
		return m, tea.Batch(cmds...)

	case entityMsg:
		if p, ok := m.pages[msg.entity()]; ok {
			return m, p.Update(msg)
		}
		return m, nil
	}

	return m, m.updateScreen(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, m.quit()
	}

	if m.showingHelp {
		if msg.String() == "esc" || key.Matches(msg, m.keys.Help) {
			m.showingHelp = false
		}
		return m, nil
	}

	if m.screen == model.ScreenLogin {
		return m, m.login.Update(msg)
	}

	if !m.capturing() {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, m.quit()
		case key.Matches(msg, m.keys.Help):
			m.showingHelp = true
			return m, nil
		case key.Matches(msg, m.keys.NextScreen):
			return m.cycleScreen(1)
		case key.Matches(msg, m.keys.PrevScreen):
			return m.cycleScreen(-1)
		case key.Matches(msg, m.keys.Dismiss) && (m.error != "" || m.info != ""):
			m.error = ""
			m.info = ""
			return m, nil
		case key.Matches(msg, m.keys.Logout):
			return m, logoutCmd(m.deps.Session, m.deps.Logger)
		case key.Matches(msg, m.keys.ToggleTheme):
			return m, toggleThemeCmd(m.deps.Store, m.themeName, m.deps.Logger)
		}
	}

	return m, m.updateScreen(msg)
}

func (m Model) updateScreen(msg tea.Msg) tea.Cmd {
	if p := m.pageFor(m.screen); p != nil {
		return p.Update(msg)
	}
	switch m.screen {
	case model.ScreenLogin:
		return m.login.Update(msg)
	case model.ScreenDashboard:
		return m.dashboard.Update(msg)
	case model.ScreenSettings:
		return m.settings.Update(msg)
	}
	return nil
}

func (m Model) helpBindings() []key.Binding {
	var local []key.Binding
	if p := m.pageFor(m.screen); p != nil {
		local = p.HelpBindings()
		if p.CapturesInput() {
			return local
		}
	} else if m.screen == model.ScreenSettings {
		local = m.settings.HelpBindings()
		if m.settings.CapturesInput() {
			return local
		}
	}
	return append(local, m.keys.NextScreen, m.keys.Help, m.keys.Quit)
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	st := *m.styles

	if m.screen == model.ScreenLogin {
		return m.login.View(m.width, m.height)
	}
	if m.showingHelp {
		return renderFullHelp(st, m.width, m.height)
	}

	top := []string{
		renderHeader(st, m.routeParts(), m.accountLabel(), m.width),
		renderTabs(st, m.screen, m.width),
	}
	if m.error != "" {
		top = append(top, st.Error.Width(m.width).Render("Error: "+m.error+"  (x to dismiss)"))
	}
	if m.info != "" {
		top = append(top, st.Success.Width(m.width).Render(m.info))
	}
	header := lipgloss.JoinVertical(lipgloss.Left, top...)
	footer := renderHelp(st, m.helpBindings(), m.width)
	contentHeight := max(1, m.height-lipgloss.Height(header)-lipgloss.Height(footer))

	var content string
	if p := m.pageFor(m.screen); p != nil {
		p.SetFrame(0, lipgloss.Height(header), m.width, contentHeight)
		content = p.View()
	} else {
		switch m.screen {
		case model.ScreenDashboard:
			content = m.dashboard.View(m.width, contentHeight)
		case model.ScreenSettings:
			content = m.settings.View(m.width, contentHeight)
		}
	}

	content = lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

// routeParts splits the org-scoped route of the active screen, e.g.
// "/org-123/departments" into ["org-123", "departments"].
func (m Model) routeParts() []string {
	route := m.deps.Session.DashboardPath()
	if m.screen != model.ScreenDashboard {
		route = m.deps.Session.BuildRoute(m.screen.Path())
	}
	return strings.Split(strings.Trim(route, "/"), "/")
}

func (m Model) accountLabel() string {
	label := m.deps.Session.Email()
	if role := m.deps.Session.Role(); role != "" {
		label += " · " + role
	}
	return label
}

func renderTabs(st theme.Styles, screen model.Screen, width int) string {
	tabs := make([]string, 0, len(model.NavScreens))
	for _, s := range model.NavScreens {
		style := st.NavItem
		if s == screen {
			style = st.NavItemActive
		}
		tabs = append(tabs, style.Render(s.Label()))
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(st.Palette.Muted).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, tabs...))
}

func renderHeader(st theme.Styles, breadcrumbParts []string, account string, width int) string {
	title := st.Header.Render("healthdesk")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := st.Breadcrumb.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = st.BreadcrumbActive.Render(part)
			} else {
				parts[i] = st.Breadcrumb.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb
	right := st.Breadcrumb.Render(account) + "  "

	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return st.Title.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}
