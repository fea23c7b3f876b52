package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthdesk/internal/model"
	"healthdesk/internal/theme"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldArea
	fieldChoice
	fieldToggle
)

// formField is one labelled control of a drawer form.
type formField struct {
	key   string
	label string
	kind  fieldKind
	// upper forces typed text to upper case.
	upper   bool
	input   textinput.Model
	area    textarea.Model
	options []string
	choice  int
	on      bool
}

func textField(key, label, placeholder string, limit int) *formField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	return &formField{key: key, label: label, kind: fieldText, input: ti}
}

func areaField(key, label, placeholder string) *formField {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 500
	ta.SetHeight(4)
	ta.Prompt = ""
	return &formField{key: key, label: label, kind: fieldArea, area: ta}
}

// choiceField cycles through options; "" is a valid option meaning unset.
func choiceField(key, label string, options []string) *formField {
	return &formField{key: key, label: label, kind: fieldChoice, options: options}
}

func toggleField(key, label string) *formField {
	return &formField{key: key, label: label, kind: fieldToggle}
}

func (f *formField) value() string {
	switch f.kind {
	case fieldText:
		return f.input.Value()
	case fieldArea:
		return f.area.Value()
	case fieldChoice:
		if f.choice < len(f.options) {
			return f.options[f.choice]
		}
	}
	return ""
}

func (f *formField) set(v string) {
	switch f.kind {
	case fieldText:
		if f.upper {
			v = strings.ToUpper(v)
		}
		f.input.SetValue(v)
	case fieldArea:
		f.area.SetValue(v)
	case fieldChoice:
		f.choice = 0
		for i, o := range f.options {
			if strings.EqualFold(o, v) {
				f.choice = i
			}
		}
	}
}

func (f *formField) focus() tea.Cmd {
	switch f.kind {
	case fieldText:
		return f.input.Focus()
	case fieldArea:
		return f.area.Focus()
	}
	return nil
}

func (f *formField) blur() {
	switch f.kind {
	case fieldText:
		f.input.Blur()
	case fieldArea:
		f.area.Blur()
	}
}

// fieldSet is the focus ring and inline error state shared by drawer forms.
type fieldSet struct {
	fields []*formField
	focus  int
	errors model.FieldErrors
	keys   FormKeyMap
	styles theme.Styles
}

func newFieldSet(styles theme.Styles, fields ...*formField) fieldSet {
	s := fieldSet{
		fields: fields,
		errors: model.FieldErrors{},
		keys:   DefaultFormKeyMap(),
		styles: styles,
	}
	if len(fields) > 0 {
		fields[0].focus()
	}
	return s
}

func (s *fieldSet) field(key string) *formField {
	for _, f := range s.fields {
		if f.key == key {
			return f
		}
	}
	return nil
}

func (s *fieldSet) value(key string) string {
	if f := s.field(key); f != nil {
		return f.value()
	}
	return ""
}

func (s *fieldSet) on(key string) bool {
	if f := s.field(key); f != nil {
		return f.on
	}
	return false
}

func (s *fieldSet) set(key, v string) {
	if f := s.field(key); f != nil {
		f.set(v)
	}
}

func (s *fieldSet) setOn(key string, on bool) {
	if f := s.field(key); f != nil {
		f.on = on
	}
}

// Errors returns the inline validation messages currently shown.
func (s *fieldSet) Errors() model.FieldErrors {
	return s.errors
}

func (s *fieldSet) clearErrors() {
	s.errors = model.FieldErrors{}
}

func (s *fieldSet) move(delta int) tea.Cmd {
	if len(s.fields) == 0 {
		return nil
	}
	s.fields[s.focus].blur()
	s.focus = (s.focus + delta + len(s.fields)) % len(s.fields)
	return s.fields[s.focus].focus()
}

func (s *fieldSet) update(msg tea.Msg) tea.Cmd {
	if len(s.fields) == 0 {
		return nil
	}
	f := s.fields[s.focus]

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, s.keys.NextField):
			return s.move(1)
		case key.Matches(keyMsg, s.keys.PrevField):
			return s.move(-1)
		}

		switch f.kind {
		case fieldChoice:
			switch keyMsg.String() {
			case "right", " ", "l":
				f.choice = (f.choice + 1) % len(f.options)
				delete(s.errors, f.key)
			case "left", "h":
				f.choice = (f.choice - 1 + len(f.options)) % len(f.options)
				delete(s.errors, f.key)
			}
			return nil
		case fieldToggle:
			switch keyMsg.String() {
			case " ", "enter", "left", "right":
				f.on = !f.on
			}
			return nil
		}
	}

	var cmd tea.Cmd
	switch f.kind {
	case fieldText:
		before := f.input.Value()
		f.input, cmd = f.input.Update(msg)
		if f.upper {
			if up := strings.ToUpper(f.input.Value()); up != f.input.Value() {
				f.input.SetValue(up)
			}
		}
		if f.input.Value() != before {
			delete(s.errors, f.key)
		}
	case fieldArea:
		before := f.area.Value()
		f.area, cmd = f.area.Update(msg)
		if f.area.Value() != before {
			delete(s.errors, f.key)
		}
	}
	return cmd
}

func (s *fieldSet) view(width int) string {
	st := s.styles
	inner := max(10, width-2)
	blocks := make([]string, 0, len(s.fields))
	for i, f := range s.fields {
		focused := i == s.focus
		box := st.Input
		if focused {
			box = st.FocusedInput
		}

		var control string
		switch f.kind {
		case fieldText:
			f.input.Width = inner - 4
			control = box.Width(inner).Render(f.input.View())
		case fieldArea:
			f.area.SetWidth(inner - 4)
			control = box.Width(inner).Render(f.area.View())
		case fieldChoice:
			label := f.value()
			if label == "" {
				label = "—"
			}
			control = box.Render("‹ " + label + " ›")
		case fieldToggle:
			mark := "[ ]"
			if f.on {
				mark = "[x]"
			}
			control = box.Render(mark)
		}

		lines := []string{st.Label.Render(f.label), control}
		if msg, ok := s.errors[f.key]; ok {
			lines = append(lines, st.Error.Render(msg))
		}
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left, lines...))
	}
	return strings.Join(blocks, "\n\n")
}
