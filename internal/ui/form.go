package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sazonarte/frontdesk/internal/feature"
)

// formField is one labelled input. name matches the JSON field the
// validator reports, so field errors land next to the right input.
type formField struct {
	name  string
	label string
	input textinput.Model
}

// form is a small stack of text inputs with per-field errors. It backs the
// login screen and the inline create/search prompts.
type form struct {
	title      string
	submit     string
	fields     []formField
	focus      int
	errors     map[string]string
	submitting bool
	cancelable bool
}

type fieldSpec struct {
	name        string
	label       string
	placeholder string
	secret      bool
	limit       int
}

func newForm(title, submit string, specs ...fieldSpec) form {
	f := form{title: title, submit: submit}
	for i, spec := range specs {
		ti := textinput.New()
		ti.Placeholder = spec.placeholder
		ti.Prompt = ""
		ti.Width = 32
		if spec.limit > 0 {
			ti.CharLimit = spec.limit
		}
		if spec.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		if i == 0 {
			ti.Focus()
		}
		f.fields = append(f.fields, formField{name: spec.name, label: spec.label, input: ti})
	}
	return f
}

func loginForm(email string) form {
	f := newForm("Sign in", "Sign in",
		fieldSpec{name: "email", label: "Email", placeholder: "you@restaurant.com", limit: 254},
		fieldSpec{name: "password", label: "Password", secret: true, limit: 128},
	)
	if email != "" {
		f.fields[0].input.SetValue(email)
		f.setFocus(1)
	}
	return f
}

func newTableForm() form {
	f := newForm("New table", "Create",
		fieldSpec{name: "number", label: "Number", placeholder: "12", limit: 999},
		fieldSpec{name: "location", label: "Location", placeholder: "Terrace (optional)", limit: 100},
	)
	f.cancelable = true
	return f
}

func searchForm(current string) form {
	f := newForm("Search categories", "Search",
		fieldSpec{name: "name", label: "Name", placeholder: "empty shows all"},
	)
	f.fields[0].input.SetValue(current)
	f.cancelable = true
	return f
}

// value returns the trimmed contents of the named field.
func (f form) value(name string) string {
	for _, field := range f.fields {
		if field.name == name {
			return strings.TrimSpace(field.input.Value())
		}
	}
	return ""
}

// raw returns the untrimmed contents, for secrets.
func (f form) raw(name string) string {
	for _, field := range f.fields {
		if field.name == name {
			return field.input.Value()
		}
	}
	return ""
}

func (f *form) setFocus(i int) {
	if len(f.fields) == 0 {
		return
	}
	i = (i + len(f.fields)) % len(f.fields)
	for j := range f.fields {
		if j == i {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
	f.focus = i
}

// setError shows err against its fields. Anything other than a validation
// failure is left to the caller.
func (f *form) setError(err error) bool {
	var verr *feature.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	f.errors = make(map[string]string, len(verr.Fields))
	for name, msg := range verr.Fields {
		f.errors[name] = msg
	}
	for i, field := range f.fields {
		if _, ok := f.errors[field.name]; ok {
			f.setFocus(i)
			break
		}
	}
	return true
}

// update routes a key to the form. submit is true when enter is pressed on
// the last field.
func (f form) update(msg tea.KeyMsg, keys keyMap) (form, tea.Cmd, bool) {
	if f.submitting {
		return f, nil, false
	}
	switch {
	case key.Matches(msg, keys.Confirm):
		if f.focus == len(f.fields)-1 {
			f.errors = nil
			return f, nil, true
		}
		f.setFocus(f.focus + 1)
		return f, nil, false
	case key.Matches(msg, keys.NextField):
		f.setFocus(f.focus + 1)
		return f, nil, false
	case key.Matches(msg, keys.PrevField):
		f.setFocus(f.focus - 1)
		return f, nil, false
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	if f.errors != nil {
		delete(f.errors, f.fields[f.focus].name)
	}
	return f, cmd, false
}

func (f form) view(styles Styles, width int) string {
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(f.title))
	b.WriteString("\n\n")
	for i, field := range f.fields {
		label := styles.MutedText.Render(field.label)
		if i == f.focus {
			label = styles.Text.Bold(true).Render(field.label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(field.input.View())
		b.WriteString("\n")
		if msg, ok := f.errors[field.name]; ok {
			b.WriteString(styles.DangerText.Render(field.label + " " + msg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if f.submitting {
		b.WriteString(styles.FaintText.Render(f.submit + "…"))
	} else {
		hint := "enter " + strings.ToLower(f.submit)
		if f.cancelable {
			hint += " · esc cancel"
		}
		b.WriteString(styles.MutedText.Render(hint))
	}
	panel := styles.Panel
	if width > 0 {
		panel = panel.Width(min(width-4, 48))
	}
	return panel.Render(b.String())
}
