package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"healthdesk/internal/model"
	"healthdesk/internal/theme"
	"healthdesk/internal/util"
)

var (
	genderOptions    = []string{"", "male", "female", "other"}
	bloodTypeOptions = []string{"", "A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	statusOptions    = []string{"active", "recovered", "inactive"}
)

// PatientFormModel edits one patient inside the drawer.
type PatientFormModel struct {
	fieldSet
	original *model.Patient
	orgID    string
}

// NewPatientFormModel creates a form for row, or an empty one when row is nil.
func NewPatientFormModel(row *model.Patient, orgID string, styles theme.Styles) *PatientFormModel {
	m := &PatientFormModel{
		fieldSet: newFieldSet(styles,
			textField("first_name", "First Name *", "Sarah", 60),
			textField("last_name", "Last Name *", "Johnson", 60),
			textField("email", "Email", "sarah.j@email.com", 120),
			textField("phone", "Phone", "+1 (555) 123-4567", 30),
			choiceField("gender", "Gender *", genderOptions),
			textField("date_of_birth", "Date of Birth *", "YYYY-MM-DD", 20),
			choiceField("blood_type", "Blood Type", bloodTypeOptions),
			textField("condition", "Condition", "Regular Checkup", 120),
			choiceField("status", "Status *", statusOptions),
			toggleField("insured", "Insured"),
			textField("org_id", "Organization ID *", "org-123", 64),
		),
		original: row,
		orgID:    orgID,
	}
	m.Reset()
	return m
}

// Reset restores the edited record, or the blank create form.
func (m *PatientFormModel) Reset() {
	in := model.PatientInput{OrgID: m.orgID, Status: "active"}
	if m.original != nil {
		in = m.original.Input()
	}
	m.set("first_name", in.FirstName)
	m.set("last_name", in.LastName)
	m.set("email", in.Email)
	m.set("phone", in.Phone)
	m.set("gender", in.Gender)
	m.set("date_of_birth", in.DateOfBirth)
	m.set("blood_type", in.BloodType)
	m.set("condition", in.Condition)
	m.set("status", in.Status)
	m.setOn("insured", in.Insured)
	m.set("org_id", in.OrgID)
	m.clearErrors()
}

// Input returns the normalized form contents. Dates typed in any accepted
// layout are converted to YYYY-MM-DD.
func (m *PatientFormModel) Input() model.PatientInput {
	dob := m.value("date_of_birth")
	if iso, err := util.ParseDateInput(dob); err == nil {
		dob = iso
	}
	return model.PatientInput{
		OrgID:       m.value("org_id"),
		FirstName:   m.value("first_name"),
		LastName:    m.value("last_name"),
		Email:       m.value("email"),
		Phone:       m.value("phone"),
		Gender:      m.value("gender"),
		DateOfBirth: dob,
		BloodType:   m.value("blood_type"),
		Condition:   m.value("condition"),
		Status:      m.value("status"),
		Insured:     m.on("insured"),
	}.Normalize()
}

// Submit validates and hands the payload to the page.
func (m *PatientFormModel) Submit() tea.Cmd {
	in := m.Input()
	errs, ok := in.Ok()
	m.errors = errs
	if !ok {
		return nil
	}
	return func() tea.Msg {
		return formSubmitMsg{name: patientsName, body: in}
	}
}

// Update handles input.
func (m *PatientFormModel) Update(msg tea.Msg) tea.Cmd {
	return m.update(msg)
}

// View renders the form.
func (m *PatientFormModel) View(width int) string {
	return m.view(width)
}
