package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"healthdesk/internal/model"
	"healthdesk/internal/theme"
)

// DepartmentFormModel edits one department inside the drawer.
type DepartmentFormModel struct {
	fieldSet
	original *model.Department
	orgID    string
}

// NewDepartmentFormModel creates a form for row, or an empty one scoped to
// orgID when row is nil.
func NewDepartmentFormModel(row *model.Department, orgID string, styles theme.Styles) *DepartmentFormModel {
	code := textField("code", "Department Code *", "e.g. CARD", 20)
	code.upper = true

	m := &DepartmentFormModel{
		fieldSet: newFieldSet(styles,
			textField("org_id", "Organization ID *", "org-123", 64),
			textField("name", "Department Name *", "Cardiology", 100),
			code,
			areaField("description", "Description *", "What the department does"),
			toggleField("is_active", "Active"),
		),
		original: row,
		orgID:    orgID,
	}
	m.Reset()
	return m
}

// Reset restores the edited record, or the blank create form.
func (m *DepartmentFormModel) Reset() {
	in := model.DepartmentInput{OrgID: m.orgID, IsActive: true}
	if m.original != nil {
		in = m.original.Input()
	}
	m.set("org_id", in.OrgID)
	m.set("name", in.Name)
	m.set("code", in.Code)
	m.set("description", in.Description)
	m.setOn("is_active", in.IsActive)
	m.clearErrors()
}

// Input returns the normalized form contents.
func (m *DepartmentFormModel) Input() model.DepartmentInput {
	return model.DepartmentInput{
		OrgID:       m.value("org_id"),
		Name:        m.value("name"),
		Description: m.value("description"),
		Code:        m.value("code"),
		IsActive:    m.on("is_active"),
	}.Normalize()
}

// Submit validates and hands the payload to the page. Invalid input shows
// inline errors and returns nil.
func (m *DepartmentFormModel) Submit() tea.Cmd {
	in := m.Input()
	errs, ok := in.Ok()
	m.errors = errs
	if !ok {
		return nil
	}
	return func() tea.Msg {
		return formSubmitMsg{name: departmentsName, body: in}
	}
}

// Update handles input.
func (m *DepartmentFormModel) Update(msg tea.Msg) tea.Cmd {
	return m.update(msg)
}

// View renders the form.
func (m *DepartmentFormModel) View(width int) string {
	return m.view(width)
}
