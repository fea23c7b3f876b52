package model

// Bubble Tea message types

// ErrorMsg represents an error message.
type ErrorMsg struct {
	Err error
}

// LoginSucceededMsg is sent after /auth/login returns a token.
type LoginSucceededMsg struct {
	Response LoginResponse
}

// LoginFailedMsg carries the user-facing reason a login attempt failed.
type LoginFailedMsg struct {
	Message string
}

// LoggedOutMsg is sent after the session has been torn down.
type LoggedOutMsg struct{}

// UnauthorizedMsg is sent when the API rejected the stored token.
// The session has already been torn down when it arrives.
type UnauthorizedMsg struct{}

// NavigateMsg switches the active screen.
type NavigateMsg struct {
	Screen Screen
}

// ThemeChangedMsg is sent after the theme preference was toggled.
type ThemeChangedMsg struct {
	Theme string
}

// StatusMsg shows a transient success line in the status bar.
type StatusMsg struct {
	Text string
}

// Screen represents different app screens.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenDashboard
	ScreenPatients
	ScreenDepartments
	ScreenSettings
)

// Path is the org-relative route of the screen.
func (s Screen) Path() string {
	switch s {
	case ScreenLogin:
		return "/login"
	case ScreenPatients:
		return "/patients"
	case ScreenDepartments:
		return "/departments"
	case ScreenSettings:
		return "/settings"
	default:
		return "/"
	}
}

// Label is the navigation label of the screen.
func (s Screen) Label() string {
	switch s {
	case ScreenLogin:
		return "Login"
	case ScreenPatients:
		return "Patients"
	case ScreenDepartments:
		return "Departments"
	case ScreenSettings:
		return "Settings"
	default:
		return "Dashboard"
	}
}

// NavScreens is the tab order of the signed-in screens.
var NavScreens = []Screen{ScreenDashboard, ScreenPatients, ScreenDepartments, ScreenSettings}
