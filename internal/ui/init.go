package ui

import (
	"context"
	"time"

	"duet/internal/models"
	"duet/internal/session"
	"duet/internal/styles"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// NewModel builds the UI state for sess. Exports are written to exportDir.
func NewModel(sess *session.Session, exportDir string) *Model {
	styles.Apply(sess.Theme())

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.Prompt = "❯ "
	ta.MaxHeight = maxInputHeight
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	applyTextareaTheme(&ta)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	rename := textinput.New()
	rename.CharLimit = 120
	rename.Prompt = "Title: "

	vp := viewport.New(60, 15)
	vp.KeyMap = viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		Session:   sess,
		TextInput: ta,
		Viewport:  vp,
		Spinner:   s,
		settled:   map[models.ModelID]session.Outcome{},
		failures:  map[failureKey]string{},

		renameInput: rename,
		ExportDir:   exportDir,
		ctx:         ctx,
		cancel:      cancel,
	}
	m.UpdateViewport()
	return m
}

func applyTextareaTheme(ta *textarea.Model) {
	t := styles.CurrentTheme
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(t.Primary)
	ta.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(t.TextMuted)
	ta.FocusedStyle.Text = lipgloss.NewStyle().Foreground(t.TextPrimary)
	ta.BlurredStyle.Text = lipgloss.NewStyle().Foreground(t.TextMuted)
	ta.FocusedStyle.Placeholder = styles.PlaceholderStyle
	ta.BlurredStyle.Placeholder = styles.PlaceholderStyle
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.Spinner.Tick, tickTokens())
}

func tickTokens() tea.Cmd {
	return tea.Tick(tokenTickInterval, func(t time.Time) tea.Msg {
		return tokenTickMsg(t)
	})
}

// NewProgram wires a bubbletea program to sess. The program is stored on
// the model so request goroutines can push per-model results.
func NewProgram(sess *session.Session, exportDir string) *tea.Program {
	m := NewModel(sess, exportDir)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.Program = p
	return p
}
