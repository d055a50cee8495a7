package ui

import (
	"fmt"

	"duet/internal/models"
	"duet/internal/styles"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type fieldKind int

const (
	fieldEnabled fieldKind = iota
	fieldKey
	fieldURL
	fieldModel
)

type settingsField struct {
	model models.ModelID
	kind  fieldKind
	input textinput.Model
}

// settingsForm edits a copy of the persisted settings. Nothing reaches the
// session until the form is saved.
type settingsForm struct {
	base    models.Settings
	enabled map[models.ModelID]bool
	fields  []settingsField
	focus   int
	err     string
}

func newSettingsForm(s models.Settings) *settingsForm {
	f := &settingsForm{base: s, enabled: map[models.ModelID]bool{}}
	for _, id := range models.AllModels {
		e := s.Endpoint(id)
		f.enabled[id] = e.Enabled
		f.fields = append(f.fields,
			settingsField{model: id, kind: fieldEnabled},
			settingsField{model: id, kind: fieldKey, input: newField("API key  ", e.APIKey, true)},
			settingsField{model: id, kind: fieldURL, input: newField("API URL  ", e.URL, false)},
			settingsField{model: id, kind: fieldModel, input: newField("Model    ", e.Model, false)},
		)
	}
	f.setFocus(0)
	return f
}

func newField(prompt, value string, secret bool) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.SetValue(value)
	in.CharLimit = 512
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func (f *settingsForm) setFocus(i int) {
	n := len(f.fields)
	f.focus = ((i % n) + n) % n
	for j := range f.fields {
		if j == f.focus && f.fields[j].kind != fieldEnabled {
			f.fields[j].input.Focus()
			continue
		}
		f.fields[j].input.Blur()
	}
}

// Settings returns the edited settings on top of the ones the form was
// opened with.
func (f *settingsForm) Settings() models.Settings {
	s := f.base
	for _, id := range models.AllModels {
		e := s.Endpoint(id)
		e.Enabled = f.enabled[id]
		for _, fld := range f.fields {
			if fld.model != id {
				continue
			}
			switch fld.kind {
			case fieldKey:
				e.APIKey = fld.input.Value()
			case fieldURL:
				if fld.input.Value() != e.URL {
					// a new URL may be the other endpoint style
					e.Kind = ""
				}
				e.URL = fld.input.Value()
			case fieldModel:
				e.Model = fld.input.Value()
			}
		}
		s.SetEndpoint(id, e)
	}
	return s
}

func (m *Model) openSettings() {
	m.modal = modalSettings
	m.alert = ""
	m.settingsForm = newSettingsForm(m.Session.Settings())
	m.TextInput.Blur()
}

func (m *Model) updateSettings(msg tea.KeyMsg) tea.Cmd {
	f := m.settingsForm
	switch msg.String() {
	case "esc":
		m.closeModal()
		return nil
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return nil
	case "enter":
		if err := m.Session.ApplySettings(f.Settings()); err != nil {
			f.err = err.Error()
			return nil
		}
		m.closeModal()
		m.setNotice("Settings saved")
		return nil
	}

	fld := &f.fields[f.focus]
	if fld.kind == fieldEnabled {
		if msg.String() == " " || msg.String() == "space" {
			f.enabled[fld.model] = !f.enabled[fld.model]
		}
		return nil
	}
	var cmd tea.Cmd
	fld.input, cmd = fld.input.Update(msg)
	return cmd
}

func (m *Model) RenderSettingsModal() string {
	f := m.settingsForm
	lines := []string{styles.ModalTitleStyle.Render("Settings")}

	for slot, id := range models.AllModels {
		header := lipgloss.NewStyle().Bold(true).Foreground(styles.ModelColor(slot)).Render(m.Session.Label(id))
		if slot > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, header)
		for i, fld := range f.fields {
			if fld.model != id {
				continue
			}
			cursor := "  "
			if i == f.focus {
				cursor = "> "
			}
			var row string
			if fld.kind == fieldEnabled {
				box := "[ ]"
				if f.enabled[id] {
					box = "[x]"
				}
				row = fmt.Sprintf("%s%s Enabled", cursor, box)
			} else {
				row = cursor + fld.input.View()
			}
			lines = append(lines, styles.ModalItemStyle.Render(row))
		}
	}

	if f.err != "" {
		lines = append(lines, "", styles.ErrorStyle.Width(styles.ContentWidth).Render(f.err))
	}
	lines = append(lines, lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Tab/↑/↓: move • Space: toggle • Enter: save • Esc: cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
