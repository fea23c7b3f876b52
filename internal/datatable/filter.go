package datatable

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/theme"
	"healthdesk/internal/util"
)

// Kind selects the control rendered for a filter.
type Kind int

const (
	KindText Kind = iota
	KindSelect
	KindDate
	KindNumber
	KindCheckbox
	KindDateRange
	KindMultiSelect
)

var kindNames = [...]string{"text", "select", "date", "number", "checkbox", "dateRange", "multiselect"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown filter kind %q", string(b))
}

// Option is one choice of a select or multiselect.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Descriptor declares one filter. Date ranges store their halves under
// Key+"_from" and Key+"_to".
type Descriptor struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Kind        Kind     `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Step        *float64 `json:"step,omitempty"`
	Default     any      `json:"defaultValue,omitempty"`
}

// Keys returns the value keys the descriptor owns.
func (d Descriptor) Keys() []string {
	if d.Kind == KindDateRange {
		return []string{d.Key + "_from", d.Key + "_to"}
	}
	return []string{d.Key}
}

// Blank returns the value a key holds after Clear.
func (d Descriptor) Blank() any {
	if d.Default != nil && d.Kind != KindDateRange {
		if s, ok := d.Default.([]string); ok {
			return append([]string{}, s...)
		}
		return d.Default
	}
	switch d.Kind {
	case KindCheckbox:
		return false
	case KindMultiSelect:
		return []string{}
	default:
		return ""
	}
}

// Values is a filter value set. Text-like kinds hold string, checkboxes
// hold bool and multiselects hold []string.
type Values map[string]any

// Clone returns a deep copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		if s, ok := val.([]string); ok {
			val = append([]string{}, s...)
		}
		out[k] = val
	}
	return out
}

// Equal compares two value sets.
func (v Values) Equal(o Values) bool {
	if len(v) == 0 && len(o) == 0 {
		return true
	}
	return reflect.DeepEqual(v, o)
}

// Query renders the non-empty values as URL parameters. Empty strings,
// false and empty slices are omitted; slices become repeated parameters.
func (v Values) Query() url.Values {
	q := url.Values{}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch val := v[k].(type) {
		case nil:
		case string:
			if s := strings.TrimSpace(val); s != "" {
				q[k] = []string{s}
			}
		case bool:
			if val {
				q[k] = []string{"true"}
			}
		case []string:
			if len(val) > 0 {
				q[k] = append([]string{}, val...)
			}
		case float64:
			q[k] = []string{strconv.FormatFloat(val, 'f', -1, 64)}
		case int:
			q[k] = []string{strconv.Itoa(val)}
		default:
			q[k] = []string{fmt.Sprint(val)}
		}
	}
	return q
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return strings.TrimSpace(val) != ""
	case []string:
		return len(val) > 0
	default:
		return true
	}
}

// slot is one keyboard focus stop inside the panel.
type slot struct {
	ctrl   int // -1 for buttons
	part   int // 0, or 1 for the "to" half of a range
	button string
}

type control struct {
	desc   Descriptor
	inputs []textinput.Model
	cursor int // option cursor for selects
}

// FilterPanel renders one control per descriptor plus Search and Clear.
type FilterPanel struct {
	descriptors []Descriptor
	controls    []*control
	values      Values
	focus       int
	active      bool
	busy        bool
	styles      theme.Styles

	// OnChange receives the full draft after every edit.
	OnChange func(Values) tea.Cmd
	// OnSearch is invoked by the Search button.
	OnSearch func() tea.Cmd
	// OnClear, when set, replaces emitting the cleared set through OnChange.
	OnClear func() tea.Cmd
}

// NewFilterPanel builds a panel showing values.
func NewFilterPanel(descriptors []Descriptor, values Values) *FilterPanel {
	p := &FilterPanel{
		descriptors: descriptors,
		styles:      theme.New(theme.Dark),
	}
	for _, d := range descriptors {
		c := &control{desc: d}
		switch d.Kind {
		case KindText, KindDate, KindNumber:
			c.inputs = []textinput.Model{newFilterInput(d, d.Placeholder)}
		case KindDateRange:
			c.inputs = []textinput.Model{newFilterInput(d, "from"), newFilterInput(d, "to")}
		}
		p.controls = append(p.controls, c)
	}
	p.SetValues(values)
	return p
}

func newFilterInput(d Descriptor, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	if placeholder == "" {
		ti.Placeholder = d.Label
	}
	switch d.Kind {
	case KindDate, KindDateRange:
		ti.CharLimit = 10
		if placeholder == "" || placeholder == d.Label {
			ti.Placeholder = "YYYY-MM-DD"
		}
		ti.Width = 12
	case KindNumber:
		ti.CharLimit = 12
		ti.Width = 8
	default:
		ti.CharLimit = 100
		ti.Width = 18
	}
	return ti
}

// Empty reports whether the panel has no descriptors and renders nothing.
func (p *FilterPanel) Empty() bool {
	return len(p.descriptors) == 0
}

// SetStyles applies a theme.
func (p *FilterPanel) SetStyles(s theme.Styles) {
	p.styles = s
}

// SetBusy disables Search while a list fetch is in flight.
func (p *FilterPanel) SetBusy(busy bool) {
	p.busy = busy
}

// Values returns a copy of the displayed draft.
func (p *FilterPanel) Values() Values {
	return p.values.Clone()
}

// SetValues replaces the displayed draft without emitting OnChange.
func (p *FilterPanel) SetValues(values Values) {
	p.values = Values{}
	for _, c := range p.controls {
		for i, k := range c.desc.Keys() {
			v, ok := values[k]
			if !ok {
				if c.desc.Kind == KindDateRange {
					v = ""
				} else {
					v = c.desc.Blank()
				}
			}
			if s, ok := v.([]string); ok {
				v = append([]string{}, s...)
			}
			p.values[k] = v
			if i < len(c.inputs) {
				s, _ := v.(string)
				c.inputs[i].SetValue(s)
			}
		}
	}
	for k, v := range values {
		if _, ok := p.values[k]; !ok {
			p.values[k] = v
		}
	}
}

// HasActive reports whether any filter holds a value that is truthy and
// differs from its default.
func (p *FilterPanel) HasActive() bool {
	for _, d := range p.descriptors {
		for _, k := range d.Keys() {
			v := p.values[k]
			if d.Kind != KindDateRange && d.Default != nil && reflect.DeepEqual(v, d.Default) {
				continue
			}
			if truthy(v) {
				return true
			}
		}
	}
	return false
}

// Focus gives the panel keyboard focus on its first control.
func (p *FilterPanel) Focus() tea.Cmd {
	if p.Empty() {
		return nil
	}
	p.active = true
	p.focus = 0
	return p.focusSlot()
}

// Blur removes keyboard focus, normalizing the focused input.
func (p *FilterPanel) Blur() tea.Cmd {
	cmd := p.leaveSlot()
	p.active = false
	return cmd
}

// Focused reports whether the panel owns the keyboard.
func (p *FilterPanel) Focused() bool {
	return p.active
}

func (p *FilterPanel) slots() []slot {
	var out []slot
	for i, c := range p.controls {
		out = append(out, slot{ctrl: i})
		if c.desc.Kind == KindDateRange {
			out = append(out, slot{ctrl: i, part: 1})
		}
	}
	out = append(out, slot{ctrl: -1, button: "search"})
	if p.HasActive() {
		out = append(out, slot{ctrl: -1, button: "clear"})
	}
	return out
}

func (p *FilterPanel) current() slot {
	slots := p.slots()
	if p.focus >= len(slots) {
		p.focus = len(slots) - 1
	}
	return slots[p.focus]
}

func (p *FilterPanel) focusSlot() tea.Cmd {
	s := p.current()
	if s.ctrl < 0 {
		return nil
	}
	c := p.controls[s.ctrl]
	if s.part < len(c.inputs) {
		return c.inputs[s.part].Focus()
	}
	return nil
}

// leaveSlot blurs the focused input, clamping numbers and normalizing dates.
func (p *FilterPanel) leaveSlot() tea.Cmd {
	s := p.current()
	if s.ctrl < 0 {
		return nil
	}
	c := p.controls[s.ctrl]
	if s.part >= len(c.inputs) {
		return nil
	}
	in := &c.inputs[s.part]
	in.Blur()

	raw := in.Value()
	normalized := raw
	switch c.desc.Kind {
	case KindNumber:
		normalized = clampNumber(raw, c.desc.Min, c.desc.Max)
	case KindDate, KindDateRange:
		if iso, err := util.ParseDateInput(raw); err == nil {
			normalized = iso
		}
	}
	if normalized == raw {
		return nil
	}
	in.SetValue(normalized)
	return p.set(c.desc.Keys()[s.part], normalized)
}

func clampNumber(raw string, lo, hi *float64) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ""
	}
	if lo != nil && n < *lo {
		n = *lo
	}
	if hi != nil && n > *hi {
		n = *hi
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func (p *FilterPanel) set(key string, v any) tea.Cmd {
	p.values[key] = v
	if p.OnChange == nil {
		return nil
	}
	return p.OnChange(p.values.Clone())
}

// Search invokes OnSearch unless the panel is busy.
func (p *FilterPanel) Search() tea.Cmd {
	if p.busy || p.OnSearch == nil {
		return nil
	}
	return p.OnSearch()
}

// Clear resets every key to its default (or empty) and invokes OnClear, or
// emits the cleared set through OnChange when no OnClear is set.
func (p *FilterPanel) Clear() tea.Cmd {
	cleared := Values{}
	for _, d := range p.descriptors {
		for _, k := range d.Keys() {
			if d.Kind == KindDateRange {
				cleared[k] = ""
			} else {
				cleared[k] = d.Blank()
			}
		}
	}
	p.SetValues(cleared)
	if p.OnClear != nil {
		return p.OnClear()
	}
	if p.OnChange != nil {
		return p.OnChange(p.values.Clone())
	}
	return nil
}

// Update handles keys while the panel is focused.
func (p *FilterPanel) Update(msg tea.Msg) tea.Cmd {
	if p.Empty() || !p.active {
		return nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch keyMsg.String() {
	case "tab", "down":
		if keyMsg.String() == "down" && p.stepNumber(-1) {
			return p.numberChanged()
		}
		return p.move(1)
	case "shift+tab", "up":
		if keyMsg.String() == "up" && p.stepNumber(1) {
			return p.numberChanged()
		}
		return p.move(-1)
	case "enter":
		s := p.current()
		if s.button == "clear" {
			return p.Clear()
		}
		if s.ctrl >= 0 {
			switch p.controls[s.ctrl].desc.Kind {
			case KindCheckbox, KindMultiSelect:
				return p.toggle(s.ctrl)
			}
		}
		return tea.Batch(p.leaveSlot(), p.focusSlot(), p.Search())
	case " ":
		s := p.current()
		if s.ctrl >= 0 {
			switch p.controls[s.ctrl].desc.Kind {
			case KindCheckbox, KindMultiSelect:
				return p.toggle(s.ctrl)
			case KindSelect:
				return p.cycle(s.ctrl, 1)
			}
		}
	case "left", "right":
		delta := 1
		if keyMsg.String() == "left" {
			delta = -1
		}
		s := p.current()
		if s.ctrl >= 0 {
			switch p.controls[s.ctrl].desc.Kind {
			case KindSelect:
				return p.cycle(s.ctrl, delta)
			case KindMultiSelect:
				c := p.controls[s.ctrl]
				if n := len(c.desc.Options); n > 0 {
					c.cursor = (c.cursor + delta + n) % n
				}
				return nil
			}
		}
	}

	return p.updateInput(keyMsg)
}

func (p *FilterPanel) move(delta int) tea.Cmd {
	leave := p.leaveSlot()
	n := len(p.slots())
	p.focus = (p.focus + delta + n) % n
	return tea.Batch(leave, p.focusSlot())
}

func (p *FilterPanel) stepNumber(dir int) bool {
	s := p.current()
	if s.ctrl < 0 || p.controls[s.ctrl].desc.Kind != KindNumber {
		return false
	}
	c := p.controls[s.ctrl]
	step := 1.0
	if c.desc.Step != nil {
		step = *c.desc.Step
	}
	n, _ := strconv.ParseFloat(c.inputs[0].Value(), 64)
	n += float64(dir) * step
	c.inputs[0].SetValue(clampNumber(strconv.FormatFloat(n, 'f', -1, 64), c.desc.Min, c.desc.Max))
	return true
}

func (p *FilterPanel) numberChanged() tea.Cmd {
	c := p.controls[p.current().ctrl]
	return p.set(c.desc.Key, c.inputs[0].Value())
}

func (p *FilterPanel) toggle(ctrl int) tea.Cmd {
	c := p.controls[ctrl]
	switch c.desc.Kind {
	case KindCheckbox:
		on, _ := p.values[c.desc.Key].(bool)
		return p.set(c.desc.Key, !on)
	case KindMultiSelect:
		if len(c.desc.Options) == 0 {
			return nil
		}
		opt := c.desc.Options[c.cursor].Value
		cur, _ := p.values[c.desc.Key].([]string)
		next := make([]string, 0, len(cur)+1)
		found := false
		for _, v := range cur {
			if v == opt {
				found = true
				continue
			}
			next = append(next, v)
		}
		if !found {
			next = append(next, opt)
		}
		return p.set(c.desc.Key, next)
	}
	return nil
}

// cycle moves a select through "" (All) and its options.
func (p *FilterPanel) cycle(ctrl int, delta int) tea.Cmd {
	c := p.controls[ctrl]
	choices := append([]string{""}, optionValues(c.desc.Options)...)
	cur, _ := p.values[c.desc.Key].(string)
	idx := 0
	for i, v := range choices {
		if v == cur {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(choices)) % len(choices)
	return p.set(c.desc.Key, choices[idx])
}

func optionValues(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

func (p *FilterPanel) updateInput(msg tea.KeyMsg) tea.Cmd {
	s := p.current()
	if s.ctrl < 0 {
		return nil
	}
	c := p.controls[s.ctrl]
	if s.part >= len(c.inputs) {
		return nil
	}
	if c.desc.Kind == KindNumber && msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			if !strings.ContainsRune("0123456789.-", r) {
				return nil
			}
		}
	}

	before := c.inputs[s.part].Value()
	var cmd tea.Cmd
	c.inputs[s.part], cmd = c.inputs[s.part].Update(msg)
	after := c.inputs[s.part].Value()
	if after == before {
		return cmd
	}
	return tea.Batch(cmd, p.set(c.desc.Keys()[s.part], after))
}

// View renders the controls in a wrapped row. It returns "" without descriptors.
func (p *FilterPanel) View(width int) string {
	if p.Empty() {
		return ""
	}
	st := p.styles
	cur := slot{ctrl: -2}
	if p.active {
		cur = p.current()
	}

	var items []string
	for i, c := range p.controls {
		label := st.Label.Render(c.desc.Label)
		var body string
		switch c.desc.Kind {
		case KindText, KindDate, KindNumber:
			body = p.renderInput(c.inputs[0], cur.ctrl == i)
		case KindDateRange:
			body = p.renderInput(c.inputs[0], cur.ctrl == i && cur.part == 0) +
				st.Muted.Render(" → ") +
				p.renderInput(c.inputs[1], cur.ctrl == i && cur.part == 1)
		case KindSelect:
			v, _ := p.values[c.desc.Key].(string)
			text := "All"
			for _, o := range c.desc.Options {
				if o.Value == v {
					text = o.Label
				}
			}
			body = p.inputStyle(cur.ctrl == i).Render("‹ " + text + " ›")
		case KindCheckbox:
			on, _ := p.values[c.desc.Key].(bool)
			box := "[ ]"
			if on {
				box = "[x]"
			}
			body = p.inputStyle(cur.ctrl == i).Render(box)
		case KindMultiSelect:
			selected, _ := p.values[c.desc.Key].([]string)
			parts := make([]string, 0, len(c.desc.Options))
			for j, o := range c.desc.Options {
				mark := " "
				for _, v := range selected {
					if v == o.Value {
						mark = "x"
					}
				}
				text := fmt.Sprintf("[%s] %s", mark, o.Label)
				if cur.ctrl == i && j == c.cursor {
					text = st.HelpKey.Render(text)
				}
				parts = append(parts, text)
			}
			body = p.inputStyle(cur.ctrl == i).Render(strings.Join(parts, " "))
		}
		items = append(items, lipgloss.JoinVertical(lipgloss.Left, label, body))
	}

	searchStyle := st.Button
	switch {
	case p.busy:
		searchStyle = st.DisabledButton
	case cur.button == "search":
		searchStyle = st.FocusedButton
	}
	buttons := []string{searchStyle.Render("Search")}
	if p.HasActive() {
		clearStyle := st.Button
		if cur.button == "clear" {
			clearStyle = st.FocusedButton
		}
		buttons = append(buttons, clearStyle.Render("Clear"))
	}
	items = append(items, lipgloss.JoinVertical(lipgloss.Left, " ", strings.Join(buttons, " ")))

	return wrapItems(items, width, 2)
}

func (p *FilterPanel) inputStyle(focused bool) lipgloss.Style {
	if focused {
		return p.styles.FocusedInput
	}
	return p.styles.Input
}

func (p *FilterPanel) renderInput(in textinput.Model, focused bool) string {
	return p.inputStyle(focused).Render(in.View())
}

// wrapItems lays blocks out left to right, starting a new row when width is exceeded.
func wrapItems(items []string, width, gap int) string {
	var rows []string
	var row []string
	used := 0
	spacer := strings.Repeat(" ", gap)
	for _, it := range items {
		w := lipgloss.Width(it)
		if len(row) > 0 && width > 0 && used+gap+w > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, used = nil, 0
		}
		if len(row) > 0 {
			row = append(row, spacer)
			used += gap
		}
		row = append(row, it)
		used += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return strings.Join(rows, "\n")
}
