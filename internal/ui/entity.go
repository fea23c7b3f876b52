package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"healthdesk/internal/api"
	"healthdesk/internal/datatable"
	"healthdesk/internal/model"
	"healthdesk/internal/query"
	"healthdesk/internal/session"
	"healthdesk/internal/theme"
)

type drawerMode int

const (
	drawerClosed drawerMode = iota
	drawerCreate
	drawerEdit
	drawerView
)

const (
	verbDelete = "delete"
	verbToggle = "toggle"
)

// entitySpec configures an entityPage for one REST collection.
type entitySpec[T any] struct {
	name     string // collection name and cache key root, e.g. "departments"
	title    string // "Departments"
	singular string // "Department"

	columns   []datatable.Column[T]
	filters   []datatable.Descriptor
	emptyText string

	id    func(T) string
	label func(T) string

	newForm func(row *T, orgID string, st theme.Styles) datatable.Form
	// toggle returns the status patch flipping row, nil when the entity has
	// no status toggle.
	toggle func(row T) any
	detail func(row T, st theme.Styles, width int) string
}

// pageDeps are the shared services every entity page needs.
type pageDeps struct {
	cache    *query.Cache
	session  *session.Session
	prefs    *prefsWriter
	logger   *zap.Logger
	styles   *theme.Styles
	pageSize int
}

// entityMsg is implemented by messages that belong to one entity page.
type entityMsg interface {
	entity() string
}

// formSubmitMsg carries a validated payload from a drawer form.
type formSubmitMsg struct {
	name string
	body any
}

func (m formSubmitMsg) entity() string { return m.name }

type listLoadedMsg[T any] struct {
	name string
	seq  int
	page api.Page[T]
	err  error
}

func (m listLoadedMsg[T]) entity() string { return m.name }

type detailLoadedMsg[T any] struct {
	name string
	id   string
	row  T
	err  error
}

func (m detailLoadedMsg[T]) entity() string { return m.name }

type savedMsg[T any] struct {
	name    string
	created bool
	id      string
	row     T
	err     error
}

func (m savedMsg[T]) entity() string { return m.name }

type mutatedMsg struct {
	name string
	verb string
	id   string
	err  error
}

func (m mutatedMsg) entity() string { return m.name }

// entityPage is a list screen: filters, a resizable table, pagination and a
// drawer for create, edit and read-only detail.
type entityPage[T any] struct {
	spec     entitySpec[T]
	resource *api.Resource[T]
	deps     pageDeps
	keys     KeyMap

	table   *datatable.Table[T]
	filters *datatable.FilterPanel
	pager   *datatable.Pagination
	drawer  *datatable.Drawer

	// applied is the filter set the current list was fetched with. The
	// panel holds the draft.
	applied datatable.Values
	seq     int
	loading bool
	loaded  bool
	loadErr string
	cursor  int

	mode          drawerMode
	editing       *T
	viewing       *detailView[T]
	pendingDelete *T

	x, y          int
	width, height int
}

func newEntityPage[T any](spec entitySpec[T], resource *api.Resource[T], deps pageDeps) *entityPage[T] {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	prefs := deps.prefs.Table(spec.name)
	pageSize := deps.pageSize
	if prefs.PageSize > 0 {
		pageSize = prefs.PageSize
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	p := &entityPage[T]{
		spec:     spec,
		resource: resource,
		deps:     deps,
		keys:     DefaultKeyMap(),
		table:    datatable.NewTable(spec.columns, prefs.Widths),
		filters:  datatable.NewFilterPanel(spec.filters, nil),
		pager:    datatable.NewPagination(pageSize),
		drawer:   datatable.NewDrawer(),
		applied:  datatable.Values{},
	}
	p.table.SetEmptyMessage(spec.emptyText)

	p.table.Actions = datatable.Actions[T]{
		OnEdit:   p.openEdit,
		OnDelete: p.confirmDelete,
		OnView:   p.openView,
	}
	if spec.toggle != nil {
		p.table.Actions.OnToggle = p.toggleRow
	}
	p.table.OnResize = func(w datatable.Widths) tea.Cmd {
		deps.prefs.UpdateTable(spec.name, func(tp *TablePrefs) { tp.Widths = w })
		return nil
	}
	p.table.OnRowClick = func(row T) tea.Cmd {
		p.selectRow(row)
		return p.openView(row)
	}

	p.filters.OnSearch = p.search
	p.filters.OnClear = p.clear

	p.pager.OnPageChange = func(page int) tea.Cmd {
		p.pager.Page = page
		return p.fetch()
	}
	p.pager.OnPageSizeChange = func(size int) tea.Cmd {
		p.pager.PageSize = size
		p.pager.Page = 1
		deps.prefs.UpdateTable(spec.name, func(tp *TablePrefs) { tp.PageSize = size })
		return p.fetch()
	}

	p.drawer.OnSubmit = func(form datatable.Form) tea.Cmd {
		cmd := form.Submit()
		if cmd == nil {
			return nil
		}
		return tea.Batch(p.drawer.SetLoading(true), cmd)
	}
	p.drawer.OnClose = func() tea.Cmd {
		p.closeDrawer()
		return nil
	}

	p.SetStyles(*deps.styles)
	return p
}

// Name is the collection this page lists.
func (p *entityPage[T]) Name() string {
	return p.spec.name
}

// Init fetches the first page once.
func (p *entityPage[T]) Init() tea.Cmd {
	if p.loaded || p.loading {
		return nil
	}
	return p.fetch()
}

// Reset drops all state tied to the signed-in user.
func (p *entityPage[T]) Reset() {
	p.closeDrawer()
	p.pendingDelete = nil
	p.filters.SetValues(nil)
	p.filters.Blur()
	p.applied = datatable.Values{}
	p.pager.Page = 1
	p.pager.Total = 0
	p.table.SetRows(nil)
	p.table.SetLoading(false)
	p.loading = false
	p.loaded = false
	p.loadErr = ""
	p.cursor = 0
	p.seq++
}

// SetStyles applies a theme to every component.
func (p *entityPage[T]) SetStyles(st theme.Styles) {
	p.table.SetStyles(st)
	p.filters.SetStyles(st)
	p.pager.SetStyles(st)
	p.drawer.SetStyles(st)
}

// SetFrame places the page on screen.
func (p *entityPage[T]) SetFrame(x, y, width, height int) {
	p.x, p.y = x, y
	p.width, p.height = width, height
	p.drawer.SetScreenSize(x+width, height)
}

// CapturesInput reports whether keys belong to the page rather than the
// global key map.
func (p *entityPage[T]) CapturesInput() bool {
	return p.drawer.IsOpen() || p.filters.Focused() || p.pendingDelete != nil
}

// Applied returns a copy of the filters the list was last fetched with.
func (p *entityPage[T]) Applied() datatable.Values {
	return p.applied.Clone()
}

func (p *entityPage[T]) search() tea.Cmd {
	p.applied = p.filters.Values()
	p.pager.Page = 1
	return p.fetch()
}

func (p *entityPage[T]) clear() tea.Cmd {
	p.applied = datatable.Values{}
	p.pager.Page = 1
	return p.fetch()
}

func (p *entityPage[T]) listParams() url.Values {
	params := p.applied.Query()
	params.Set("page", strconv.Itoa(p.pager.Page))
	params.Set("limit", strconv.Itoa(p.pager.PageSize))
	if org := p.deps.session.OrgID(); org != "" {
		params.Set("org_id", org)
	}
	return params
}

func (p *entityPage[T]) listPrefix() query.Key {
	return query.Key{p.spec.name, "list"}
}

func (p *entityPage[T]) detailKey(id string) query.Key {
	return query.Key{p.spec.name, "detail", id}
}

// fetch loads the current page. Responses of earlier fetches are dropped.
func (p *entityPage[T]) fetch() tea.Cmd {
	params := p.listParams()
	key := query.Key{p.spec.name, "list", params.Encode()}
	p.seq++
	p.loading = true
	p.loadErr = ""
	p.filters.SetBusy(true)

	name, seq, cache, resource := p.spec.name, p.seq, p.deps.cache, p.resource
	load := func() tea.Msg {
		page, err := query.Fetch(context.Background(), cache, key, func(ctx context.Context) (api.Page[T], error) {
			return resource.List(ctx, params)
		})
		return listLoadedMsg[T]{name: name, seq: seq, page: page, err: err}
	}
	return tea.Batch(p.table.SetLoading(true), load)
}

func (p *entityPage[T]) refresh() tea.Cmd {
	p.deps.cache.Invalidate(p.listPrefix())
	return p.fetch()
}

func (p *entityPage[T]) handleList(msg listLoadedMsg[T]) tea.Cmd {
	if msg.seq != p.seq {
		return nil
	}
	p.loading = false
	p.filters.SetBusy(false)
	p.table.SetLoading(false)

	if msg.err != nil {
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return unauthorized
		}
		p.deps.logger.Warn("failed to load list", zap.String("entity", p.spec.name), zap.Error(msg.err))
		p.loadErr = api.MessageOr(msg.err, "Something went wrong")
		return nil
	}

	p.loaded = true
	rows := msg.page.Items
	p.table.SetRows(rows)
	p.cursor = max(0, min(p.cursor, len(rows)-1))
	p.table.ScrollTo(p.cursor)

	total := max(msg.page.Total, len(rows))
	return p.pager.SetTotal(total)
}

func (p *entityPage[T]) selected() (T, bool) {
	rows := p.table.Rows()
	if p.cursor < 0 || p.cursor >= len(rows) {
		var zero T
		return zero, false
	}
	return rows[p.cursor], true
}

func (p *entityPage[T]) selectRow(row T) {
	id := p.spec.id(row)
	for i, r := range p.table.Rows() {
		if p.spec.id(r) == id {
			p.cursor = i
			return
		}
	}
}

func (p *entityPage[T]) moveCursor(delta int) {
	n := len(p.table.Rows())
	if n == 0 {
		return
	}
	p.cursor = max(0, min(n-1, p.cursor+delta))
	p.table.ScrollTo(p.cursor)
}

func (p *entityPage[T]) openCreate() tea.Cmd {
	p.editing = nil
	p.viewing = nil
	p.mode = drawerCreate
	form := p.spec.newForm(nil, p.deps.session.OrgID(), *p.deps.styles)
	p.drawer.SubmitLabel = "Save"
	p.drawer.HideActions = false
	p.drawer.Open("Add "+p.spec.singular, form)
	return nil
}

func (p *entityPage[T]) openEdit(row T) tea.Cmd {
	r := row
	p.editing = &r
	p.viewing = nil
	p.mode = drawerEdit
	form := p.spec.newForm(&r, p.deps.session.OrgID(), *p.deps.styles)
	p.drawer.SubmitLabel = "Update"
	p.drawer.HideActions = false
	p.drawer.Open("Edit "+p.spec.singular, form)
	return nil
}

func (p *entityPage[T]) openView(row T) tea.Cmd {
	id := p.spec.id(row)
	p.editing = nil
	p.mode = drawerView
	p.viewing = &detailView[T]{row: row, render: p.spec.detail, styles: p.deps.styles, loading: true}
	p.drawer.Open(p.spec.label(row), p.viewing)
	p.drawer.HideActions = true

	name, cache, resource := p.spec.name, p.deps.cache, p.resource
	key := p.detailKey(id)
	return func() tea.Msg {
		row, err := query.Fetch(context.Background(), cache, key, func(ctx context.Context) (T, error) {
			return resource.Get(ctx, id)
		})
		return detailLoadedMsg[T]{name: name, id: id, row: row, err: err}
	}
}

func (p *entityPage[T]) handleDetail(msg detailLoadedMsg[T]) tea.Cmd {
	if p.mode != drawerView || p.viewing == nil || p.spec.id(p.viewing.row) != msg.id {
		return nil
	}
	p.viewing.loading = false
	if msg.err != nil {
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return unauthorized
		}
		p.deps.logger.Warn("failed to load detail", zap.String("entity", p.spec.name), zap.String("id", msg.id), zap.Error(msg.err))
		p.viewing.err = api.MessageOr(msg.err, "Something went wrong")
		return nil
	}
	p.viewing.row = msg.row
	p.drawer.Title = p.spec.label(msg.row)
	return nil
}

func (p *entityPage[T]) closeDrawer() {
	p.drawer.Close()
	p.mode = drawerClosed
	p.editing = nil
	p.viewing = nil
}

func (p *entityPage[T]) save(body any) tea.Cmd {
	name, resource := p.spec.name, p.resource
	if p.editing == nil {
		return func() tea.Msg {
			row, err := resource.Create(context.Background(), body)
			return savedMsg[T]{name: name, created: true, row: row, err: err}
		}
	}
	id := p.spec.id(*p.editing)
	return func() tea.Msg {
		row, err := resource.Update(context.Background(), id, body)
		return savedMsg[T]{name: name, id: id, row: row, err: err}
	}
}

func (p *entityPage[T]) handleSaved(msg savedMsg[T]) tea.Cmd {
	p.drawer.SetLoading(false)
	if msg.err != nil {
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return unauthorized
		}
		p.deps.logger.Error("failed to save", zap.String("entity", p.spec.name), zap.String("id", msg.id), zap.Error(msg.err))
		return errorCmd(api.MessageOr(msg.err, "Something went wrong"))
	}

	cache := p.deps.cache
	cache.Invalidate(p.listPrefix())
	verb := "updated"
	if msg.created {
		verb = "created"
		if id := p.spec.id(msg.row); id != "" {
			cache.Set(p.detailKey(id), msg.row)
		}
	} else {
		cache.Invalidate(p.detailKey(msg.id))
	}
	p.deps.logger.Info("saved", zap.String("entity", p.spec.name), zap.String("verb", verb))

	p.closeDrawer()
	return tea.Batch(p.fetch(), statusCmd(fmt.Sprintf("%s %s", p.spec.singular, verb)))
}

func (p *entityPage[T]) toggleRow(row T) tea.Cmd {
	if p.spec.toggle == nil {
		return nil
	}
	id := p.spec.id(row)
	patch := p.spec.toggle(row)
	name, resource := p.spec.name, p.resource
	return func() tea.Msg {
		_, err := resource.Update(context.Background(), id, patch)
		return mutatedMsg{name: name, verb: verbToggle, id: id, err: err}
	}
}

func (p *entityPage[T]) confirmDelete(row T) tea.Cmd {
	r := row
	p.pendingDelete = &r
	return nil
}

func (p *entityPage[T]) deleteRow(row T) tea.Cmd {
	id := p.spec.id(row)
	name, resource := p.spec.name, p.resource
	return func() tea.Msg {
		err := resource.Delete(context.Background(), id)
		return mutatedMsg{name: name, verb: verbDelete, id: id, err: err}
	}
}

func (p *entityPage[T]) handleMutated(msg mutatedMsg) tea.Cmd {
	noun := strings.ToLower(p.spec.singular)
	if msg.err != nil {
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return unauthorized
		}
		text := fmt.Sprintf("Failed to update %s status", noun)
		if msg.verb == verbDelete {
			text = fmt.Sprintf("Failed to delete %s", noun)
		}
		p.deps.logger.Error(text, zap.String("id", msg.id), zap.Error(msg.err))
		return errorCmd(text)
	}

	cache := p.deps.cache
	cache.Invalidate(p.detailKey(msg.id))
	cache.Invalidate(p.listPrefix())

	text := p.spec.singular + " status updated"
	if msg.verb == verbDelete {
		text = p.spec.singular + " deleted"
		if p.viewing != nil && p.spec.id(p.viewing.row) == msg.id {
			p.closeDrawer()
		}
	}
	return tea.Batch(p.fetch(), statusCmd(text))
}

// Update handles input and the page's own messages.
func (p *entityPage[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case listLoadedMsg[T]:
		return p.handleList(msg)
	case detailLoadedMsg[T]:
		return p.handleDetail(msg)
	case savedMsg[T]:
		return p.handleSaved(msg)
	case mutatedMsg:
		return p.handleMutated(msg)
	case formSubmitMsg:
		return p.save(msg.body)
	case tea.KeyMsg:
		return p.handleKey(msg)
	case tea.MouseMsg:
		if p.drawer.IsOpen() {
			return p.drawer.Update(msg)
		}
		return p.table.Update(msg)
	}
	return tea.Batch(p.table.Update(msg), p.drawer.Update(msg))
}

func (p *entityPage[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	if p.pendingDelete != nil {
		row := *p.pendingDelete
		p.pendingDelete = nil
		if key.Matches(msg, p.keys.Confirm) {
			return p.deleteRow(row)
		}
		return nil
	}

	if p.drawer.IsOpen() {
		if p.mode == drawerView && p.viewing != nil {
			switch {
			case key.Matches(msg, p.keys.Edit):
				return p.openEdit(p.viewing.row)
			case key.Matches(msg, p.keys.Delete):
				return p.confirmDelete(p.viewing.row)
			}
		}
		return p.drawer.Update(msg)
	}

	if p.filters.Focused() {
		if key.Matches(msg, p.keys.Back) {
			return p.filters.Blur()
		}
		return p.filters.Update(msg)
	}

	if p.table.Resizing() && key.Matches(msg, p.keys.Back) {
		p.table.CancelResize()
		return nil
	}

	switch {
	case key.Matches(msg, p.keys.Up):
		p.moveCursor(-1)
	case key.Matches(msg, p.keys.Down):
		p.moveCursor(1)
	case key.Matches(msg, p.keys.Top):
		p.moveCursor(-len(p.table.Rows()))
	case key.Matches(msg, p.keys.Bottom):
		p.moveCursor(len(p.table.Rows()))
	case key.Matches(msg, p.keys.Add):
		return p.openCreate()
	case key.Matches(msg, p.keys.Filter):
		return p.filters.Focus()
	case key.Matches(msg, p.keys.ClearFilter):
		return p.filters.Clear()
	case key.Matches(msg, p.keys.Refresh):
		return p.refresh()
	case key.Matches(msg, p.keys.PrevColumn):
		p.table.FocusPrev()
	case key.Matches(msg, p.keys.NextColumn):
		p.table.FocusNext()
	case key.Matches(msg, p.keys.Narrow):
		return p.table.ResizeFocused(-1)
	case key.Matches(msg, p.keys.Widen):
		return p.table.ResizeFocused(1)
	case key.Matches(msg, p.keys.View), key.Matches(msg, p.keys.Edit),
		key.Matches(msg, p.keys.Delete), key.Matches(msg, p.keys.Toggle):
		row, ok := p.selected()
		if !ok || p.loading {
			return nil
		}
		actions := p.table.Actions
		switch {
		case key.Matches(msg, p.keys.View):
			return actions.OnView(row)
		case key.Matches(msg, p.keys.Edit):
			return actions.OnEdit(row)
		case key.Matches(msg, p.keys.Delete):
			return actions.OnDelete(row)
		case actions.OnToggle != nil:
			return actions.OnToggle(row)
		}
	default:
		return p.pager.Update(msg)
	}
	return nil
}

func (p *entityPage[T]) resultsLine() string {
	if p.loading {
		return "Loading..."
	}
	start, end := p.pager.Range()
	return fmt.Sprintf("Showing %d-%d of %d %s", start, end, p.pager.Total, p.spec.name)
}

// View renders the page into its frame.
func (p *entityPage[T]) View() string {
	st := *p.deps.styles
	width, height := max(20, p.width), max(8, p.height)

	mainWidth := width
	if p.drawer.IsOpen() {
		mainWidth = max(20, width-p.drawer.PanelWidth()-1)
	}

	top := []string{st.Title.Render(p.spec.title)}
	if !p.filters.Empty() {
		top = append(top, p.filters.View(mainWidth))
	}
	top = append(top, st.Muted.Render(p.resultsLine()))
	if p.pendingDelete != nil {
		top = append(top, st.Error.Render(fmt.Sprintf("Are you sure you want to delete %q? (y/N)", p.spec.label(*p.pendingDelete))))
	}
	header := lipgloss.JoinVertical(lipgloss.Left, top...)
	headerHeight := lipgloss.Height(header) + 1

	var footer string
	if !p.loading && p.pager.Total > 0 {
		footer = p.pager.View(mainWidth)
	}
	footerHeight := 0
	if footer != "" {
		footerHeight = lipgloss.Height(footer) + 1
	}

	var body string
	if p.loadErr != "" {
		body = st.Error.Render(fmt.Sprintf("Error loading %s: %s", p.spec.name, p.loadErr))
	} else {
		p.table.SetOrigin(p.x, p.y+headerHeight)
		p.table.SetHeight(height - headerHeight - footerHeight)
		highlight := p.cursor
		if p.drawer.IsOpen() && p.mode != drawerView {
			highlight = -1
		}
		body = p.table.View(mainWidth, highlight)
	}

	sections := []string{header, "", body}
	if footer != "" {
		sections = append(sections, "", footer)
	}
	main := lipgloss.NewStyle().Width(mainWidth).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	if !p.drawer.IsOpen() {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, main, " ", p.drawer.View())
}

// HelpBindings returns the keys that apply in the page's current state.
func (p *entityPage[T]) HelpBindings() []key.Binding {
	switch {
	case p.pendingDelete != nil:
		return []key.Binding{p.keys.Confirm, key.NewBinding(key.WithKeys("n"), key.WithHelp("any", "cancel"))}
	case p.drawer.IsOpen() && p.mode == drawerView:
		return []key.Binding{p.keys.Edit, p.keys.Delete, p.keys.Back}
	case p.drawer.IsOpen():
		fk := DefaultFormKeyMap()
		return []key.Binding{fk.NextField, fk.PrevField, fk.Save, fk.Reset, fk.Cancel}
	case p.filters.Focused():
		return []key.Binding{
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next filter")),
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done")),
		}
	}
	bindings := []key.Binding{p.keys.Up, p.keys.Down, p.keys.View, p.keys.Add, p.keys.Edit, p.keys.Delete}
	if p.spec.toggle != nil {
		bindings = append(bindings, p.keys.Toggle)
	}
	return append(bindings, p.keys.Filter, p.keys.Refresh, p.keys.Narrow, p.keys.Widen,
		key.NewBinding(key.WithKeys("[", "]"), key.WithHelp("[/]", "page")))
}

// detailView is the read-only drawer content for one record.
type detailView[T any] struct {
	row     T
	render  func(row T, st theme.Styles, width int) string
	styles  *theme.Styles
	loading bool
	err     string
}

func (v *detailView[T]) Submit() tea.Cmd        { return nil }
func (v *detailView[T]) Reset()                 {}
func (v *detailView[T]) Update(tea.Msg) tea.Cmd { return nil }

func (v *detailView[T]) View(width int) string {
	st := *v.styles
	body := v.render(v.row, st, width)
	switch {
	case v.err != "":
		body = lipgloss.JoinVertical(lipgloss.Left, st.Error.Render(v.err), "", body)
	case v.loading:
		body = lipgloss.JoinVertical(lipgloss.Left, st.Muted.Render("Refreshing..."), "", body)
	}
	return body
}

func unauthorized() tea.Msg {
	return model.UnauthorizedMsg{}
}

func errorCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return model.ErrorMsg{Err: errors.New(text)}
	}
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return model.StatusMsg{Text: text}
	}
}
