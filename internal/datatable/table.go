// Package datatable is the generic list engine every entity screen is built
// from: a column-resizable table, a filter panel, a pagination control and a
// drawer hosting a form. The components hold no domain knowledge and perform
// no I/O; every effect is surfaced as a callback returning a tea.Cmd.
package datatable

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/theme"
	"healthdesk/internal/util"
)

const (
	// DefaultColumnWidth applies to columns that declare no width.
	DefaultColumnWidth = 150
	// MinColumnWidth is the floor a drag can shrink a column to.
	MinColumnWidth = 80
	// CellPixels converts widths to terminal cells.
	CellPixels = 8
)

// Actions are row-level commands a cell renderer may advertise.
type Actions[T any] struct {
	OnEdit   func(row T) tea.Cmd
	OnDelete func(row T) tea.Cmd
	OnView   func(row T) tea.Cmd
	OnToggle func(row T) tea.Cmd
}

// Column describes one table column. Widths are in pixels.
type Column[T any] struct {
	Key    string `json:"key"`
	Header string `json:"header"`
	Width  int    `json:"width,omitempty"`

	// Fixed columns have no resize handle.
	Fixed bool `json:"fixed,omitempty"`

	Render func(row T, actions Actions[T]) string `json:"-"`
}

// Widths maps column key to pixel width.
type Widths map[string]int

// Clone returns an independent copy.
func (w Widths) Clone() Widths {
	out := make(Widths, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// resizeSession lives from the press on a handle to the next release.
type resizeSession struct {
	key        string
	startX     int
	startWidth int
}

// Table renders rows of T with resizable columns.
type Table[T any] struct {
	columns []Column[T]
	rows    []T
	// fields caches each row's JSON object for default cell rendering.
	fields []map[string]any
	widths Widths

	loading      bool
	emptyMessage string
	spinner      spinner.Model
	styles       theme.Styles

	originX, originY int
	height           int
	offset           int
	focused          int

	resize *resizeSession

	// Actions is handed to every column renderer.
	Actions Actions[T]
	// OnResize receives the full width map on every drag tick.
	OnResize func(Widths) tea.Cmd
	// OnRowClick receives the clicked row.
	OnRowClick func(row T) tea.Cmd
}

// NewTable builds a table. A non-nil widths map is authoritative; columns it
// does not mention fall back to their declared width, then DefaultColumnWidth.
func NewTable[T any](columns []Column[T], widths Widths) *Table[T] {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	t := &Table[T]{
		columns:      columns,
		emptyMessage: "No data available",
		spinner:      sp,
		styles:       theme.New(theme.Dark),
		height:       12,
	}
	t.SetWidths(widths)
	return t
}

// SetWidths replaces the width map.
func (t *Table[T]) SetWidths(widths Widths) {
	t.widths = make(Widths, len(t.columns))
	for _, col := range t.columns {
		w := col.Width
		if w <= 0 {
			w = DefaultColumnWidth
		}
		t.widths[col.Key] = w
	}
	for k, v := range widths {
		t.widths[k] = v
	}
}

// Widths returns a copy of the current width map.
func (t *Table[T]) Widths() Widths {
	return t.widths.Clone()
}

// Width returns the pixel width of the column with key.
func (t *Table[T]) Width(key string) int {
	return t.widths[key]
}

// Columns returns the column descriptors.
func (t *Table[T]) Columns() []Column[T] {
	return t.columns
}

// SetRows replaces the rows.
func (t *Table[T]) SetRows(rows []T) {
	t.rows = rows
	t.fields = make([]map[string]any, len(rows))
	for i, row := range rows {
		t.fields[i] = rowFields(row)
	}
	if t.offset >= len(rows) {
		t.offset = 0
	}
}

// Rows returns the current rows.
func (t *Table[T]) Rows() []T {
	return t.rows
}

// SetLoading toggles the loading state. The returned command starts the spinner.
func (t *Table[T]) SetLoading(loading bool) tea.Cmd {
	t.loading = loading
	if loading {
		return t.spinner.Tick
	}
	return nil
}

// Loading reports whether the loading indicator is shown.
func (t *Table[T]) Loading() bool {
	return t.loading
}

// SetEmptyMessage sets the text shown when there are no rows.
func (t *Table[T]) SetEmptyMessage(msg string) {
	t.emptyMessage = msg
}

// SetStyles applies a theme.
func (t *Table[T]) SetStyles(s theme.Styles) {
	t.styles = s
}

// SetOrigin records the screen cell of the table's top-left corner so mouse
// events can be hit-tested.
func (t *Table[T]) SetOrigin(x, y int) {
	t.originX, t.originY = x, y
}

// SetHeight sets the total rendered height including header and divider.
func (t *Table[T]) SetHeight(h int) {
	t.height = max(3, h)
}

func (t *Table[T]) bodyHeight() int {
	return t.height - 2
}

// ScrollTo adjusts the viewport so row idx is visible.
func (t *Table[T]) ScrollTo(idx int) {
	body := t.bodyHeight()
	switch {
	case idx < t.offset:
		t.offset = max(0, idx)
	case idx >= t.offset+body:
		t.offset = idx - body + 1
	}
}

// Resizing reports whether a resize session is active.
func (t *Table[T]) Resizing() bool {
	return t.resize != nil
}

// SelectionSuppressed is true while a drag is in progress: row highlight
// and row clicks are disabled until the pointer is released.
func (t *Table[T]) SelectionSuppressed() bool {
	return t.resize != nil
}

// CancelResize drops an active resize session.
func (t *Table[T]) CancelResize() {
	t.resize = nil
}

// FocusedColumn returns the key of the keyboard-focused column.
func (t *Table[T]) FocusedColumn() string {
	if len(t.columns) == 0 {
		return ""
	}
	return t.columns[t.focused].Key
}

// FocusNext moves keyboard focus one column right, wrapping.
func (t *Table[T]) FocusNext() {
	if len(t.columns) > 0 {
		t.focused = (t.focused + 1) % len(t.columns)
	}
}

// FocusPrev moves keyboard focus one column left, wrapping.
func (t *Table[T]) FocusPrev() {
	if len(t.columns) > 0 {
		t.focused = (t.focused - 1 + len(t.columns)) % len(t.columns)
	}
}

// ResizeFocused widens (positive) or narrows (negative) the focused column by
// deltaCells, with the same floor as a drag.
func (t *Table[T]) ResizeFocused(deltaCells int) tea.Cmd {
	if len(t.columns) == 0 || t.columns[t.focused].Fixed {
		return nil
	}
	key := t.columns[t.focused].Key
	return t.setWidth(key, t.widths[key]+deltaCells*CellPixels)
}

func (t *Table[T]) setWidth(key string, px int) tea.Cmd {
	t.widths[key] = max(MinColumnWidth, px)
	if t.OnResize == nil {
		return nil
	}
	return t.OnResize(t.widths.Clone())
}

// Update handles mouse input and spinner ticks.
func (t *Table[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !t.loading {
			return nil
		}
		var cmd tea.Cmd
		t.spinner, cmd = t.spinner.Update(msg)
		return cmd
	case tea.MouseMsg:
		return t.handleMouse(msg)
	}
	return nil
}

func (t *Table[T]) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if t.resize != nil {
		switch msg.Action {
		case tea.MouseActionMotion:
			return t.setWidth(t.resize.key, t.resize.startWidth+(msg.X-t.resize.startX)*CellPixels)
		case tea.MouseActionRelease:
			t.resize = nil
		}
		return nil
	}

	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}

	relX, relY := msg.X-t.originX, msg.Y-t.originY
	if relX < 0 || relY < 0 {
		return nil
	}

	if relY == 0 {
		if key, ok := t.handleAt(relX); ok {
			t.resize = &resizeSession{key: key, startX: msg.X, startWidth: t.widths[key]}
		}
		return nil
	}

	if relY < 2 || t.loading || t.OnRowClick == nil {
		return nil
	}
	idx := t.offset + relY - 2
	if relY-2 >= t.bodyHeight() || idx >= len(t.rows) || relX >= t.totalCells() {
		return nil
	}
	return t.OnRowClick(t.rows[idx])
}

// handleAt returns the resizable column whose handle covers header cell x.
// The handle is the separator after the column plus the cell before it.
func (t *Table[T]) handleAt(x int) (string, bool) {
	pos := 0
	for _, col := range t.columns {
		sep := pos + t.cells(col.Key)
		if !col.Fixed && (x == sep || x == sep-1) {
			return col.Key, true
		}
		pos = sep + 1
	}
	return "", false
}

func (t *Table[T]) cells(key string) int {
	return max(1, t.widths[key]/CellPixels)
}

func (t *Table[T]) totalCells() int {
	total := 0
	for _, col := range t.columns {
		total += t.cells(col.Key) + 1
	}
	return total
}

// CellText returns the text shown for column key of row without styling.
func (t *Table[T]) CellText(rowIdx int, key string) string {
	if rowIdx < 0 || rowIdx >= len(t.rows) {
		return ""
	}
	for _, col := range t.columns {
		if col.Key == key {
			return t.cellContent(rowIdx, col)
		}
	}
	return ""
}

func (t *Table[T]) cellContent(rowIdx int, col Column[T]) string {
	if col.Render != nil {
		return col.Render(t.rows[rowIdx], t.Actions)
	}
	return util.FormatCell(t.fields[rowIdx][col.Key])
}

// RowKey returns the row's "id" field, or its position when it has none.
func (t *Table[T]) RowKey(rowIdx int) string {
	if rowIdx >= 0 && rowIdx < len(t.fields) {
		if id, ok := t.fields[rowIdx]["id"]; ok && id != nil && fmt.Sprint(id) != "" {
			return fmt.Sprint(id)
		}
	}
	return fmt.Sprintf("#%d", rowIdx)
}

func rowFields(row any) map[string]any {
	b, err := json.Marshal(row)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// View renders the table clipped to width. highlight is the caller's cursor
// row, or -1 for none.
func (t *Table[T]) View(width, highlight int) string {
	s := t.styles
	sep := s.Divider.Render("│")
	activeSep := lipgloss.NewStyle().Foreground(s.Palette.Accent).Bold(true).Render("┃")

	var header strings.Builder
	var divider strings.Builder
	for i, col := range t.columns {
		cw := t.cells(col.Key)
		label := util.TruncateString(col.Header, cw-1)
		st := s.TableHeader
		if i == t.focused {
			st = s.ActiveHeader
		}
		header.WriteString(st.Width(cw).MaxHeight(1).Render(" " + label))
		if t.resize != nil && t.resize.key == col.Key {
			header.WriteString(activeSep)
		} else if col.Fixed {
			header.WriteString(sep)
		} else {
			header.WriteString(s.Divider.Render("┆"))
		}
		divider.WriteString(s.Divider.Render(strings.Repeat("─", cw) + "┼"))
	}

	lines := []string{header.String(), divider.String()}
	body := t.bodyHeight()

	switch {
	case t.loading:
		lines = append(lines, s.Muted.Render(" "+t.spinner.View()+" Loading..."))
	case len(t.rows) == 0:
		lines = append(lines, s.EmptyState.Width(max(1, t.totalCells())).Render(t.emptyMessage))
	default:
		if highlight >= 0 {
			t.ScrollTo(highlight)
		}
		for i := t.offset; i < len(t.rows) && i < t.offset+body; i++ {
			st := s.NormalRow
			if i%2 == 1 {
				st = s.StripedRow
			}
			if i == highlight && !t.SelectionSuppressed() {
				st = s.SelectedRow
			}
			var row strings.Builder
			for _, col := range t.columns {
				cw := t.cells(col.Key)
				content := t.cellContent(i, col)
				if col.Render == nil {
					content = util.TruncateString(content, cw-1)
				}
				row.WriteString(st.Width(cw).MaxWidth(cw).MaxHeight(1).Render(" " + content))
				row.WriteString(sep)
			}
			lines = append(lines, row.String())
		}
	}

	clip := lipgloss.NewStyle().MaxWidth(max(1, width))
	for i := range lines {
		lines[i] = clip.Render(lines[i])
	}
	return strings.Join(lines, "\n")
}
