package ui

import (
	"fmt"
	"strings"
	"time"

	"healthdesk/internal/api"
	"healthdesk/internal/datatable"
	"healthdesk/internal/model"
	"healthdesk/internal/theme"
	"healthdesk/internal/util"
)

const patientsName = "patients"

type patientsPage = entityPage[model.Patient]

func patientColumns(st *theme.Styles) []datatable.Column[model.Patient] {
	return []datatable.Column[model.Patient]{
		{
			Key: "name", Header: "Patient", Width: 200,
			Render: func(p model.Patient, _ datatable.Actions[model.Patient]) string {
				return p.FullName()
			},
		},
		{
			Key: "gender", Header: "Gender", Width: 90,
			Render: func(p model.Patient, _ datatable.Actions[model.Patient]) string {
				return titleCase(p.Gender)
			},
		},
		{Key: "blood_type", Header: "Blood", Width: 80},
		{Key: "phone", Header: "Phone", Width: 150},
		{Key: "email", Header: "Email", Width: 200},
		{
			Key: "last_visit", Header: "Last Visit", Width: 120,
			Render: func(p model.Patient, _ datatable.Actions[model.Patient]) string {
				return util.FormatDateHuman(p.LastVisit, time.Now())
			},
		},
		{
			Key: "status", Header: "Status", Width: 110,
			Render: func(p model.Patient, _ datatable.Actions[model.Patient]) string {
				return patientStatus(st, p.Status)
			},
		},
		{
			Key: "actions", Header: "Actions", Width: 120, Fixed: true,
			Render: func(_ model.Patient, a datatable.Actions[model.Patient]) string {
				return actionHints(a)
			},
		},
	}
}

func patientFilters() []datatable.Descriptor {
	minAge, maxAge := 0.0, 120.0
	return []datatable.Descriptor{
		{Key: "search", Label: "Search", Kind: datatable.KindText, Placeholder: "Search by name, email or phone..."},
		{Key: "gender", Label: "Gender", Kind: datatable.KindSelect, Options: []datatable.Option{
			{Label: "Male", Value: "male"},
			{Label: "Female", Value: "female"},
			{Label: "Other", Value: "other"},
		}},
		{Key: "status", Label: "Status", Kind: datatable.KindSelect, Options: []datatable.Option{
			{Label: "Active", Value: "active"},
			{Label: "Recovered", Value: "recovered"},
			{Label: "Inactive", Value: "inactive"},
		}},
		{Key: "blood_type", Label: "Blood Type", Kind: datatable.KindMultiSelect, Options: bloodTypeFilterOptions()},
		{Key: "min_age", Label: "Min Age", Kind: datatable.KindNumber, Min: &minAge, Max: &maxAge},
		{Key: "last_visit", Label: "Last Visit", Kind: datatable.KindDateRange},
		{Key: "insured", Label: "Insured only", Kind: datatable.KindCheckbox},
	}
}

func bloodTypeFilterOptions() []datatable.Option {
	opts := make([]datatable.Option, 0, len(bloodTypeOptions))
	for _, t := range bloodTypeOptions {
		if t != "" {
			opts = append(opts, datatable.Option{Label: t, Value: t})
		}
	}
	return opts
}

func patientSpec(st *theme.Styles) entitySpec[model.Patient] {
	return entitySpec[model.Patient]{
		name:      patientsName,
		title:     "Patients",
		singular:  "Patient",
		columns:   patientColumns(st),
		filters:   patientFilters(),
		emptyText: "No patients found. Try adjusting your filters or add a new patient.",
		id:        func(p model.Patient) string { return p.ID },
		label:     func(p model.Patient) string { return p.FullName() },
		newForm: func(row *model.Patient, orgID string, st theme.Styles) datatable.Form {
			return NewPatientFormModel(row, orgID, st)
		},
		toggle: func(p model.Patient) any {
			if p.Status == "active" {
				return model.PatientStatusPatch{Status: "inactive"}
			}
			return model.PatientStatusPatch{Status: "active"}
		},
		detail: patientDetail,
	}
}

func newPatientsPage(client *api.Client, deps pageDeps) *patientsPage {
	resource := api.NewResource[model.Patient](client, "/patients/", patientsName)
	return newEntityPage(patientSpec(deps.styles), resource, deps)
}

func patientDetail(p model.Patient, st theme.Styles, width int) string {
	age := util.Placeholder
	if n := p.Age(time.Now()); n >= 0 {
		age = fmt.Sprintf("%d", n)
	}
	insured := "No"
	if p.Insured {
		insured = "Yes"
	}
	return detailRows(st, width, []detailRow{
		{"Age", age},
		{"Gender", titleCase(p.Gender)},
		{"Born", util.FormatDate(p.DateOfBirth)},
		{"Blood Type", p.BloodType},
		{"Phone", p.Phone},
		{"Email", p.Email},
		{"Condition", p.Condition},
		{"Status", patientStatus(&st, p.Status)},
		{"Insured", insured},
		{"Last Visit", util.FormatDateTime(p.LastVisit)},
		{"Organization", p.OrgID},
	})
}

func patientStatus(st *theme.Styles, status string) string {
	switch status {
	case "active":
		return st.ActiveBadge.Render("● Active")
	case "":
		return util.Placeholder
	default:
		return st.InactiveBadge.Render("○ " + titleCase(status))
	}
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
