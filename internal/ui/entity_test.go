package ui

import (
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthdesk/internal/api"
	"healthdesk/internal/datatable"
	"healthdesk/internal/model"
	"healthdesk/internal/query"
)

func loadedDepartments(t *testing.T, stale time.Duration, handler http.HandlerFunc) (*harness, *departmentsPage) {
	t.Helper()
	h := newHarness(t, stale, handler)
	p := newDepartmentsPage(h.client, h.deps)
	p.SetFrame(0, 0, 140, 40)
	drive(p, p.Init())
	require.Len(t, p.table.Rows(), 2)
	return h, p
}

func TestDepartmentsPage_InitLoadsFirstPage(t *testing.T) {
	h, p := loadedDepartments(t, 0, departmentsAPI(sampleDepartments()))

	req := h.last()
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/departments/", req.path)
	assert.Equal(t, "1", req.query.Get("page"))
	assert.Equal(t, "10", req.query.Get("limit"))
	assert.Equal(t, "org-123", req.query.Get("org_id"))

	assert.Equal(t, 2, p.pager.Total)
	assert.Nil(t, p.Init(), "a loaded page does not refetch on revisit")

	view := stripANSI(p.View())
	assert.Contains(t, view, "Departments")
	assert.Contains(t, view, "Showing 1-2 of 2 departments")
	assert.Contains(t, view, "Cardiology")
}

func TestDepartmentsPage_SearchThenClear(t *testing.T) {
	h, p := loadedDepartments(t, 0, departmentsAPI(sampleDepartments()))

	p.filters.SetValues(datatable.Values{"status": "active", "code": "CARD"})
	drive(p, p.filters.Search())

	req := h.last()
	assert.Equal(t, "active", req.query.Get("status"))
	assert.Equal(t, "CARD", req.query.Get("code"))
	assert.Equal(t, "1", req.query.Get("page"))
	assert.Equal(t, "active", p.Applied()["status"])

	drive(p, p.filters.Clear())

	assert.Empty(t, p.Applied())
	req = h.last()
	keys := make([]string, 0, len(req.query))
	for k := range req.query {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"page", "limit", "org_id"}, keys)
	assert.Equal(t, "", p.filters.Values()["status"])
}

func TestDepartmentsPage_ReapplyAfterClearRoundTrips(t *testing.T) {
	h, p := loadedDepartments(t, 0, departmentsAPI(sampleDepartments()))
	draft := datatable.Values{"status": "active", "code": "CARD"}

	p.filters.SetValues(draft)
	drive(p, p.filters.Search())
	first := p.Applied()
	firstQuery := h.last().query

	drive(p, p.filters.Clear())
	require.Empty(t, p.Applied())

	p.filters.SetValues(draft)
	drive(p, p.filters.Search())

	assert.True(t, first.Equal(p.Applied()), "first=%v second=%v", first, p.Applied())
	assert.Equal(t, firstQuery, h.last().query)
}

func TestDepartmentsPage_FilterDraftIsNotApplied(t *testing.T) {
	h, p := loadedDepartments(t, 0, departmentsAPI(sampleDepartments()))
	before := len(h.requests())

	p.filters.SetValues(datatable.Values{"search": "card"})

	assert.Len(t, h.requests(), before)
	assert.Empty(t, p.Applied()["search"])
}

func TestEntityPage_DropsSupersededResponses(t *testing.T) {
	h := newHarness(t, 0, departmentsAPI(nil))
	p := newDepartmentsPage(h.client, h.deps)

	p.fetch()
	first := p.seq
	p.fetch()
	second := p.seq

	p.Update(listLoadedMsg[model.Department]{name: departmentsName, seq: second, page: api.Page[model.Department]{
		Items: sampleDepartments()[:1], Total: 1,
	}})
	p.Update(listLoadedMsg[model.Department]{name: departmentsName, seq: first, page: api.Page[model.Department]{
		Items: sampleDepartments(), Total: 2,
	}})

	require.Len(t, p.table.Rows(), 1)
	assert.Equal(t, "Cardiology", p.table.Rows()[0].Name)
	assert.Equal(t, 1, p.pager.Total)
	assert.False(t, p.loading)
}

func TestEntityPage_ResetDropsInFlightResponses(t *testing.T) {
	h := newHarness(t, 0, departmentsAPI(nil))
	p := newDepartmentsPage(h.client, h.deps)

	p.fetch()
	seq := p.seq
	p.Reset()

	p.Update(listLoadedMsg[model.Department]{name: departmentsName, seq: seq, page: api.Page[model.Department]{
		Items: sampleDepartments(), Total: 2,
	}})
	assert.Empty(t, p.table.Rows())
	assert.NotNil(t, p.Init(), "a reset page fetches again")
}

func TestDepartmentsPage_ListErrorIsShown(t *testing.T) {
	h := newHarness(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid filter"})
	})
	p := newDepartmentsPage(h.client, h.deps)
	p.SetFrame(0, 0, 120, 30)

	drive(p, p.Init())

	assert.Equal(t, "Invalid filter", p.loadErr)
	assert.Contains(t, stripANSI(p.View()), "Error loading departments: Invalid filter")
}

func TestDepartmentsPage_UnauthorizedListSignsOut(t *testing.T) {
	h := newHarness(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Not authenticated"})
	})
	p := newDepartmentsPage(h.client, h.deps)

	msgs := drive(p, p.Init())

	_, ok := findMsg[model.UnauthorizedMsg](msgs)
	assert.True(t, ok)
}

func TestDepartmentsPage_CreateValidatesAndInvalidatesList(t *testing.T) {
	h, p := loadedDepartments(t, time.Minute, departmentsAPI(sampleDepartments()))
	require.Len(t, h.requests(), 1)

	p.Update(runes("a"))
	require.True(t, p.drawer.IsOpen())
	assert.Equal(t, "Add Department", p.drawer.Title)
	assert.True(t, p.CapturesInput())

	form, ok := p.drawer.Form().(*DepartmentFormModel)
	require.True(t, ok)
	assert.Equal(t, "org-123", form.value("org_id"))

	assert.Empty(t, drive(p, p.drawer.Submit()))
	assert.Equal(t, "Department name is required", form.Errors()["name"])
	assert.Equal(t, "Department code is required", form.Errors()["code"])
	assert.Equal(t, "Description is required", form.Errors()["description"])
	assert.Len(t, h.requests(), 1, "invalid input is never sent")

	form.set("name", "Oncology")
	form.move(2)
	form.Update(runes("onc"))
	assert.Equal(t, "ONC", form.value("code"))
	form.set("description", "Cancer care")

	msgs := drive(p, p.drawer.Submit())

	calls := h.requests()
	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPost, calls[1].method)
	assert.Equal(t, "ONC", calls[1].body["code"])
	assert.Equal(t, "org-123", calls[1].body["org_id"])
	assert.Equal(t, http.MethodGet, calls[2].method, "the cached list is refetched after a save")

	status, ok := findMsg[model.StatusMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Department created", status.Text)
	assert.False(t, p.drawer.IsOpen())

	_, cached := h.cache.Get(query.Key{departmentsName, "detail", "d-new"})
	assert.True(t, cached)
}

func TestDepartmentsPage_SaveErrorKeepsDrawerOpen(t *testing.T) {
	base := departmentsAPI(sampleDepartments())
	_, p := loadedDepartments(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			writeJSON(w, http.StatusConflict, map[string]any{"detail": "Code already in use"})
			return
		}
		base(w, r)
	})

	p.Update(runes("e"))
	require.True(t, p.drawer.IsOpen())
	assert.Equal(t, "Edit Department", p.drawer.Title)
	assert.Equal(t, "Update", p.drawer.SubmitLabel)

	msgs := drive(p, p.drawer.Submit())

	errMsg, ok := findMsg[model.ErrorMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Code already in use", errMsg.Err.Error())
	assert.True(t, p.drawer.IsOpen())
	assert.False(t, p.drawer.Loading())
}

func TestDepartmentsPage_ToggleFailureLeavesRows(t *testing.T) {
	base := departmentsAPI(sampleDepartments())
	h, p := loadedDepartments(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
			return
		}
		base(w, r)
	})

	msgs := drive(p, p.Update(runes("t")))

	put := h.last()
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/departments/d1", put.path)
	assert.Equal(t, false, put.body["is_active"])

	errMsg, ok := findMsg[model.ErrorMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Failed to update department status", errMsg.Err.Error())
	assert.True(t, p.table.Rows()[0].IsActive)
}

func TestDepartmentsPage_ToggleRefetches(t *testing.T) {
	h, p := loadedDepartments(t, time.Minute, departmentsAPI(sampleDepartments()))

	msgs := drive(p, p.Update(runes("t")))

	calls := h.requests()
	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Equal(t, http.MethodGet, calls[2].method)
	status, ok := findMsg[model.StatusMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Department status updated", status.Text)
}

func TestDepartmentsPage_DeleteNeedsConfirmation(t *testing.T) {
	h, p := loadedDepartments(t, 0, departmentsAPI(sampleDepartments()))

	assert.Nil(t, p.Update(runes("d")))
	assert.True(t, p.CapturesInput())
	assert.Contains(t, stripANSI(p.View()), `Are you sure you want to delete "Cardiology"? (y/N)`)

	assert.Nil(t, p.Update(runes("n")))
	assert.False(t, p.CapturesInput())
	for _, c := range h.requests() {
		assert.NotEqual(t, http.MethodDelete, c.method)
	}

	p.Update(runes("j"))
	p.Update(runes("d"))
	msgs := drive(p, p.Update(runes("y")))

	var deleted bool
	for _, c := range h.requests() {
		if c.method == http.MethodDelete {
			deleted = true
			assert.Equal(t, "/departments/d2", c.path)
		}
	}
	assert.True(t, deleted)
	status, ok := findMsg[model.StatusMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Department deleted", status.Text)
}

func TestDepartmentsPage_DeleteFailureLeavesRows(t *testing.T) {
	base := departmentsAPI(sampleDepartments())
	_, p := loadedDepartments(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
			return
		}
		base(w, r)
	})

	p.Update(runes("d"))
	msgs := drive(p, p.Update(runes("y")))

	errMsg, ok := findMsg[model.ErrorMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Failed to delete department", errMsg.Err.Error())
	assert.Len(t, p.table.Rows(), 2)
}

func TestDepartmentsPage_DetailViewActions(t *testing.T) {
	updated := sampleDepartments()
	updated[0].Name = "Cardiology & Vascular"
	h, p := loadedDepartments(t, 0, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/departments/d1" {
			writeJSON(w, http.StatusOK, envelope(updated[0]))
			return
		}
		departmentsAPI(sampleDepartments())(w, r)
	})

	drive(p, p.Update(tea.KeyMsg{Type: tea.KeyEnter}))

	assert.Equal(t, "/departments/d1", h.last().path)
	require.True(t, p.drawer.IsOpen())
	assert.True(t, p.drawer.HideActions)
	assert.Equal(t, "Cardiology & Vascular", p.drawer.Title)
	assert.Contains(t, stripANSI(p.View()), "Heart care")

	p.Update(runes("e"))
	assert.Equal(t, drawerEdit, p.mode)
	assert.Equal(t, "Edit Department", p.drawer.Title)
	assert.False(t, p.drawer.HideActions)
	form, ok := p.drawer.Form().(*DepartmentFormModel)
	require.True(t, ok)
	assert.Equal(t, "Cardiology & Vascular", form.value("name"))
}

func TestDepartmentsPage_PageSizeIsRemembered(t *testing.T) {
	h, p := loadedDepartments(t, 0, departmentsAPI(sampleDepartments()))
	p.pager.Page = 3

	drive(p, p.pager.OnPageSizeChange(25))

	req := h.last()
	assert.Equal(t, "25", req.query.Get("limit"))
	assert.Equal(t, "1", req.query.Get("page"))
	assert.Equal(t, 25, h.deps.prefs.Table(departmentsName).PageSize)

	again := newDepartmentsPage(h.client, h.deps)
	assert.Equal(t, 25, again.pager.PageSize)
}

func TestPatientsPage_SendsMultiValueFilters(t *testing.T) {
	h := newHarness(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope(map[string]any{
			"patients": []model.Patient{
				{ID: "p1", FirstName: "Ada", LastName: "Grey", Status: "active", BloodType: "A+"},
			},
			"total": 1,
		}))
	})
	p := newPatientsPage(h.client, h.deps)
	p.SetFrame(0, 0, 160, 40)
	drive(p, p.Init())
	require.Len(t, p.table.Rows(), 1)

	p.filters.SetValues(datatable.Values{
		"blood_type": []string{"A+", "O-"},
		"insured":    true,
		"min_age":    "30",
	})
	drive(p, p.filters.Search())

	req := h.last()
	assert.Equal(t, "/patients/", req.path)
	assert.Equal(t, []string{"A+", "O-"}, req.query["blood_type"])
	assert.Equal(t, "true", req.query.Get("insured"))
	assert.Equal(t, "30", req.query.Get("min_age"))
	assert.Contains(t, stripANSI(p.View()), "Ada Grey")
}

func TestPatientsPage_ToggleFlipsStatus(t *testing.T) {
	h := newHarness(t, 0, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope(map[string]any{
			"patients": []model.Patient{{ID: "p1", FirstName: "Ada", LastName: "Grey", Status: "recovered"}},
			"total":    1,
		}))
	})
	p := newPatientsPage(h.client, h.deps)
	drive(p, p.Init())

	drive(p, p.Update(runes("t")))

	var put call
	for _, c := range h.requests() {
		if c.method == http.MethodPut {
			put = c
		}
	}
	assert.Equal(t, "/patients/p1", put.path)
	assert.Equal(t, "active", put.body["status"])
}

func TestActionHints(t *testing.T) {
	noop := func(model.Department) tea.Cmd { return nil }
	hints := actionHints(datatable.Actions[model.Department]{OnView: noop, OnEdit: noop, OnDelete: noop})
	assert.Equal(t, "⏎ view e d", hints)
	assert.False(t, strings.Contains(hints, "t"))
}
