package datatable

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/theme"
)

// DefaultPageSizeOptions are offered when none are configured.
var DefaultPageSizeOptions = []int{5, 10, 20, 50, 100}

// windowSize is the number of page buttons shown at once.
const windowSize = 5

// Pagination is a stateless-by-contract page control: Page, PageSize and
// Total are owned by the caller and changes are requested through callbacks.
type Pagination struct {
	Page            int
	PageSize        int
	Total           int
	PageSizeOptions []int

	OnPageChange     func(page int) tea.Cmd
	OnPageSizeChange func(size int) tea.Cmd

	styles theme.Styles
}

// NewPagination returns a control on page 1.
func NewPagination(pageSize int) *Pagination {
	return &Pagination{
		Page:            1,
		PageSize:        pageSize,
		PageSizeOptions: DefaultPageSizeOptions,
		styles:          theme.New(theme.Dark),
	}
}

// SetStyles applies a theme.
func (p *Pagination) SetStyles(s theme.Styles) {
	p.styles = s
}

// TotalPages is ceil(Total / PageSize), 0 when there is nothing to page.
func (p *Pagination) TotalPages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Range returns the 1-based indexes of the first and last item on the page.
func (p *Pagination) Range() (start, end int) {
	if p.Total <= 0 || p.PageSize <= 0 {
		return 0, 0
	}
	start = (p.Page-1)*p.PageSize + 1
	end = min(p.Page*p.PageSize, p.Total)
	return start, end
}

// RangeLabel renders "41-47 of 47".
func (p *Pagination) RangeLabel() string {
	start, end := p.Range()
	return fmt.Sprintf("%d-%d of %d", start, end, p.Total)
}

// Window returns the page numbers to show: all of them when there are at
// most five, otherwise five centred on the current page and pinned to the
// first or last five near either end.
func (p *Pagination) Window() []int {
	total := p.TotalPages()
	if total == 0 {
		return nil
	}
	var from, to int
	switch {
	case total <= windowSize:
		from, to = 1, total
	case p.Page <= 3:
		from, to = 1, windowSize
	case p.Page >= total-2:
		from, to = total-windowSize+1, total
	default:
		from, to = p.Page-2, p.Page+2
	}
	pages := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		pages = append(pages, i)
	}
	return pages
}

// GoTo clamps page into range and requests it. Nothing is requested when the
// clamped page is the current one.
func (p *Pagination) GoTo(page int) tea.Cmd {
	target := max(1, min(page, p.TotalPages()))
	if target == p.Page || p.OnPageChange == nil {
		return nil
	}
	return p.OnPageChange(target)
}

// First requests page 1.
func (p *Pagination) First() tea.Cmd { return p.GoTo(1) }

// Prev requests the previous page.
func (p *Pagination) Prev() tea.Cmd { return p.GoTo(p.Page - 1) }

// Next requests the next page.
func (p *Pagination) Next() tea.Cmd { return p.GoTo(p.Page + 1) }

// Last requests the last page.
func (p *Pagination) Last() tea.Cmd { return p.GoTo(p.TotalPages()) }

// SetPageSize requests a new page size. Resetting the page is up to the caller.
func (p *Pagination) SetPageSize(size int) tea.Cmd {
	if size <= 0 || size == p.PageSize || p.OnPageSizeChange == nil {
		return nil
	}
	return p.OnPageSizeChange(size)
}

// CyclePageSize steps through PageSizeOptions.
func (p *Pagination) CyclePageSize(delta int) tea.Cmd {
	opts := p.options()
	idx := 0
	for i, o := range opts {
		if o == p.PageSize {
			idx = i
			break
		}
		if o < p.PageSize {
			idx = i
		}
	}
	idx = max(0, min(len(opts)-1, idx+delta))
	return p.SetPageSize(opts[idx])
}

func (p *Pagination) options() []int {
	if len(p.PageSizeOptions) == 0 {
		return DefaultPageSizeOptions
	}
	return p.PageSizeOptions
}

// SetTotal updates the total. When the current page falls past the new last
// page it requests the last page, or page 1 once the result is empty.
func (p *Pagination) SetTotal(total int) tea.Cmd {
	p.Total = total
	if p.OnPageChange == nil {
		return nil
	}
	last := p.TotalPages()
	switch {
	case last > 0 && p.Page > last:
		return p.OnPageChange(last)
	case last == 0 && p.Page > 1:
		return p.OnPageChange(1)
	}
	return nil
}

// Update maps keys to page requests: [ ] previous/next, { } first/last,
// + - page size, and digits 1-9 jump to that page.
func (p *Pagination) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || p.Total <= 0 {
		return nil
	}
	switch s := keyMsg.String(); s {
	case "[":
		return p.Prev()
	case "]":
		return p.Next()
	case "{":
		return p.First()
	case "}":
		return p.Last()
	case "+", "=":
		return p.CyclePageSize(1)
	case "-":
		return p.CyclePageSize(-1)
	default:
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 9 {
			return p.GoTo(n)
		}
	}
	return nil
}

// View renders nothing when Total is zero.
func (p *Pagination) View(width int) string {
	if p.Total <= 0 {
		return ""
	}
	st := p.styles
	total := p.TotalPages()

	sizes := make([]string, 0, len(p.options()))
	for _, o := range p.options() {
		label := strconv.Itoa(o)
		if o == p.PageSize {
			label = st.HelpKey.Bold(true).Render("[" + label + "]")
		} else {
			label = st.Muted.Render(label)
		}
		sizes = append(sizes, label)
	}
	left := st.Muted.Render("Rows per page ") + strings.Join(sizes, " ") +
		st.Muted.Render("   "+p.RangeLabel())

	nav := func(label string, enabled bool) string {
		if enabled {
			return st.HelpKey.Render(label)
		}
		return st.Muted.Faint(true).Render(label)
	}
	parts := []string{
		nav("«", p.Page > 1),
		nav("‹", p.Page > 1),
	}
	for _, n := range p.Window() {
		if n == p.Page {
			parts = append(parts, st.FocusedButton.Padding(0, 1).Render(strconv.Itoa(n)))
		} else {
			parts = append(parts, st.HelpDesc.Render(strconv.Itoa(n)))
		}
	}
	parts = append(parts,
		nav("›", p.Page < total),
		nav("»", p.Page < total),
	)
	right := strings.Join(parts, " ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		return left + "\n" + right
	}
	return left + strings.Repeat(" ", gap) + right
}
