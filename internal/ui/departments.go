package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/api"
	"healthdesk/internal/datatable"
	"healthdesk/internal/model"
	"healthdesk/internal/theme"
	"healthdesk/internal/util"
)

const departmentsName = "departments"

// departmentsPage is the department list screen.
type departmentsPage = entityPage[model.Department]

func departmentColumns(st *theme.Styles) []datatable.Column[model.Department] {
	return []datatable.Column[model.Department]{
		{Key: "name", Header: "Name", Width: 180},
		{Key: "code", Header: "Code", Width: 120},
		{Key: "description", Header: "Description", Width: 350},
		{
			Key: "is_active", Header: "Status", Width: 100,
			Render: func(d model.Department, _ datatable.Actions[model.Department]) string {
				return statusBadge(st, d.IsActive)
			},
		},
		{
			Key: "created_at", Header: "Created", Width: 160,
			Render: func(d model.Department, _ datatable.Actions[model.Department]) string {
				return util.FormatDateTime(d.CreatedAt)
			},
		},
		{
			Key: "updated_at", Header: "Updated", Width: 160,
			Render: func(d model.Department, _ datatable.Actions[model.Department]) string {
				return util.FormatDateTime(d.UpdatedAt)
			},
		},
		{
			Key: "actions", Header: "Actions", Width: 120, Fixed: true,
			Render: func(_ model.Department, a datatable.Actions[model.Department]) string {
				return actionHints(a)
			},
		},
	}
}

var departmentFilters = []datatable.Descriptor{
	{Key: "search", Label: "Search", Kind: datatable.KindText, Placeholder: "Search by name or description..."},
	{Key: "code", Label: "Code", Kind: datatable.KindText, Placeholder: "Search by code..."},
	{Key: "status", Label: "Status", Kind: datatable.KindSelect, Options: []datatable.Option{
		{Label: "Active", Value: "active"},
		{Label: "Inactive", Value: "inactive"},
	}},
	{Key: "created", Label: "Created", Kind: datatable.KindDateRange},
}

func departmentSpec(st *theme.Styles) entitySpec[model.Department] {
	return entitySpec[model.Department]{
		name:      departmentsName,
		title:     "Departments",
		singular:  "Department",
		columns:   departmentColumns(st),
		filters:   departmentFilters,
		emptyText: "No departments found. Try adjusting your filters or add a new department.",
		id:        func(d model.Department) string { return d.ID },
		label:     func(d model.Department) string { return d.Name },
		newForm: func(row *model.Department, orgID string, st theme.Styles) datatable.Form {
			return NewDepartmentFormModel(row, orgID, st)
		},
		toggle: func(d model.Department) any {
			return model.DepartmentStatusPatch{IsActive: !d.IsActive}
		},
		detail: departmentDetail,
	}
}

func newDepartmentsPage(client *api.Client, deps pageDeps) *departmentsPage {
	resource := api.NewResource[model.Department](client, "/departments/", departmentsName)
	return newEntityPage(departmentSpec(deps.styles), resource, deps)
}

func departmentDetail(d model.Department, st theme.Styles, width int) string {
	desc := d.Description
	if strings.TrimSpace(desc) == "" {
		desc = util.Placeholder
	}
	return detailRows(st, width, []detailRow{
		{"Code", d.Code},
		{"Status", statusBadge(&st, d.IsActive)},
		{"Organization", d.OrgID},
		{"Created", util.FormatDateTime(d.CreatedAt)},
		{"Updated", util.FormatDateTime(d.UpdatedAt)},
		{"Description", desc},
	})
}

type detailRow struct {
	label string
	value string
}

// detailRows renders label/value pairs, wrapping values to width.
func detailRows(st theme.Styles, width int, rows []detailRow) string {
	labelWidth := 14
	valueWidth := max(10, width-labelWidth-1)
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		value := r.value
		if value == "" {
			value = util.Placeholder
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			st.Label.Width(labelWidth).Render(r.label),
			" ",
			lipgloss.NewStyle().Width(valueWidth).Render(value),
		))
	}
	return strings.Join(lines, "\n")
}

func statusBadge(st *theme.Styles, active bool) string {
	if active {
		return st.ActiveBadge.Render(util.FormatStatus(true))
	}
	return st.InactiveBadge.Render(util.FormatStatus(false))
}

// actionHints lists the row actions available from the keyboard.
func actionHints[T any](a datatable.Actions[T]) string {
	hints := []string{}
	if a.OnView != nil {
		hints = append(hints, "⏎ view")
	}
	if a.OnEdit != nil {
		hints = append(hints, "e")
	}
	if a.OnDelete != nil {
		hints = append(hints, "d")
	}
	if a.OnToggle != nil {
		hints = append(hints, "t")
	}
	return strings.Join(hints, " ")
}
