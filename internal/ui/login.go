package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"healthdesk/internal/api"
	"healthdesk/internal/model"
	"healthdesk/internal/session"
	"healthdesk/internal/theme"
)

const (
	loginEmail = iota
	loginPassword
	loginSubmit
)

// sessionExpiredText is shown on the login screen after a 401.
const sessionExpiredText = "Session expired. Please sign in again."

// LoginModel is the sign-in screen.
type LoginModel struct {
	auth    *api.Auth
	session *session.Session
	logger  *zap.Logger
	styles  *theme.Styles

	email    textinput.Model
	password textinput.Model
	focus    int

	errors     model.FieldErrors
	general    string
	notice     string
	submitting bool
	spinner    spinner.Model
}

// NewLoginModel creates the sign-in screen.
func NewLoginModel(auth *api.Auth, sess *session.Session, styles *theme.Styles, logger *zap.Logger) *LoginModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	email := textinput.New()
	email.Prompt = ""
	email.Placeholder = "doctor@hospital.com"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Prompt = ""
	password.Placeholder = "Enter your password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &LoginModel{
		auth:     auth,
		session:  sess,
		logger:   logger,
		styles:   styles,
		email:    email,
		password: password,
		errors:   model.FieldErrors{},
		spinner:  sp,
	}
}

// Reset clears the form. notice is shown above it, e.g. after a 401.
func (m *LoginModel) Reset(notice string) {
	m.email.SetValue("")
	m.password.SetValue("")
	m.errors = model.FieldErrors{}
	m.general = ""
	m.notice = notice
	m.submitting = false
	m.setFocus(loginEmail)
}

// Errors returns the inline field errors.
func (m *LoginModel) Errors() model.FieldErrors {
	return m.errors
}

// Submitting reports whether a login request is in flight.
func (m *LoginModel) Submitting() bool {
	return m.submitting
}

func (m *LoginModel) setFocus(i int) tea.Cmd {
	m.focus = i
	m.email.Blur()
	m.password.Blur()
	switch i {
	case loginEmail:
		return m.email.Focus()
	case loginPassword:
		return m.password.Focus()
	}
	return nil
}

// Submit validates locally and, when both fields are present, signs in.
// Only the first missing field is reported.
func (m *LoginModel) Submit() tea.Cmd {
	if m.submitting {
		return nil
	}
	req := model.LoginRequest{
		Email:    strings.TrimSpace(m.email.Value()),
		Password: m.password.Value(),
	}
	m.errors = model.FieldErrors{}
	m.general = ""
	if errs, ok := req.Ok(); !ok {
		for _, field := range []string{"email", "password"} {
			if msg, found := errs[field]; found {
				m.errors[field] = msg
				break
			}
		}
		return nil
	}

	m.submitting = true
	m.notice = ""
	auth, sess, logger := m.auth, m.session, m.logger
	login := func() tea.Msg {
		ctx := context.Background()
		resp, err := auth.Login(ctx, req)
		if err != nil {
			logger.Info("login rejected", zap.String("email", req.Email), zap.Error(err))
			return model.LoginFailedMsg{Message: api.MessageOr(err, "Invalid email or password")}
		}
		if err := sess.Begin(ctx, resp); err != nil {
			logger.Error("failed to persist session", zap.Error(err))
			return model.LoginFailedMsg{Message: err.Error()}
		}
		return model.LoginSucceededMsg{Response: resp}
	}
	return tea.Batch(m.spinner.Tick, login)
}

// Update handles input.
func (m *LoginModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case model.LoginFailedMsg:
		m.submitting = false
		m.general = msg.Message
		return nil
	case model.LoginSucceededMsg:
		m.submitting = false
		return nil
	case spinner.TickMsg:
		if !m.submitting {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *LoginModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.submitting {
		return nil
	}
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("tab", "down"))):
		return m.setFocus((m.focus + 1) % 3)
	case key.Matches(msg, key.NewBinding(key.WithKeys("shift+tab", "up"))):
		return m.setFocus((m.focus + 2) % 3)
	case msg.String() == "enter":
		if m.focus == loginEmail {
			return m.setFocus(loginPassword)
		}
		return m.Submit()
	}

	var cmd tea.Cmd
	switch m.focus {
	case loginEmail:
		before := m.email.Value()
		m.email, cmd = m.email.Update(msg)
		if m.email.Value() != before {
			delete(m.errors, "email")
			m.general = ""
		}
	case loginPassword:
		before := m.password.Value()
		m.password, cmd = m.password.Update(msg)
		if m.password.Value() != before {
			delete(m.errors, "password")
			m.general = ""
		}
	}
	return cmd
}

// View renders a centered sign-in card.
func (m *LoginModel) View(width, height int) string {
	st := *m.styles
	cardWidth := min(52, max(30, width-4))
	inner := cardWidth - 4

	field := func(label string, in textinput.Model, focused bool, errKey string) string {
		box := st.Input
		if focused {
			box = st.FocusedInput
		}
		in.Width = inner - 4
		lines := []string{st.Label.Render(label), box.Width(inner).Render(in.View())}
		if msg, ok := m.errors[errKey]; ok {
			lines = append(lines, st.Error.Render(msg))
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	button := st.Button.Render("Sign In")
	switch {
	case m.submitting:
		button = st.DisabledButton.Render(m.spinner.View() + " Signing in...")
	case m.focus == loginSubmit:
		button = st.FocusedButton.Render("Sign In")
	}

	sections := []string{
		st.Title.Render("HealthDesk"),
		st.Muted.Render("Sign in to your AI Healthcare Platform"),
		"",
	}
	if m.notice != "" {
		sections = append(sections, st.Error.Render(m.notice), "")
	}
	if m.general != "" {
		sections = append(sections, st.Error.Render(m.general), "")
	}
	sections = append(sections,
		field("Email", m.email, m.focus == loginEmail, "email"),
		"",
		field("Password", m.password, m.focus == loginPassword, "password"),
		"",
		button,
	)

	card := st.Panel.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

// HelpBindings returns the keys that apply on the login screen.
func (m *LoginModel) HelpBindings() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sign in")),
		key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}
