package ui

import (
	"errors"
	"fmt"
	"strings"

	"duet/internal/models"
	"duet/internal/session"
	"duet/internal/styles"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.turn != nil {
			m.UpdateViewport()
		}
		return m, spCmd

	case ModelSettledMsg:
		if m.turn == msg.Turn {
			m.settled[msg.Outcome.Model] = msg.Outcome
			m.UpdateViewport()
		}
		return m, nil

	case TurnSettledMsg:
		m.completeTurn(msg)
		return m, nil

	case tokenTickMsg:
		m.rolloverTokens()
		return m, tickTokens()

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 72 {
			ModalWidth = 72
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		if m.modal != modalNone {
			return m, m.updateModal(msg)
		}

		if isNewlineShortcut(msg) {
			m.TextInput.InsertString("\n")
			m.updateInputLayout()
			return m, nil
		}

		switch msg.String() {
		case "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			return m, m.send()
		case "ctrl+n":
			if _, err := m.Session.CreateChat(); err != nil {
				m.setError(err)
			}
			m.TextInput.Reset()
			m.updateInputLayout()
			m.UpdateViewport()
			return m, nil
		case "ctrl+h":
			m.openChats()
			return m, nil
		case "ctrl+r":
			m.openRename()
			return m, nil
		case "ctrl+o":
			m.openSettings()
			return m, nil
		case "ctrl+s":
			m.modal = modalShortcuts
			return m, nil
		case "ctrl+e":
			m.exportCurrent()
			return m, nil
		case "ctrl+t":
			m.cycleTheme()
			return m, nil
		case "ctrl+b":
			if err := m.Session.SetSidebarCollapsed(!m.Session.SidebarCollapsed()); err != nil {
				m.setError(err)
			}
			m.resize()
			return m, nil
		case "ctrl+k":
			m.ShowTokens = !m.ShowTokens
			if m.ShowTokens {
				m.rolloverTokens()
			}
			return m, nil
		case "f1":
			m.toggle(models.ModelOne)
			return m, nil
		case "f2":
			m.toggle(models.ModelTwo)
			return m, nil
		case "alt+1":
			m.selectWinner(models.ModelOne)
			return m, nil
		case "alt+2":
			m.selectWinner(models.ModelTwo)
			return m, nil
		case "pgup", "pgdown":
			m.Viewport, vpCmd = m.Viewport.Update(msg)
			return m, vpCmd
		}
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Filter out terminal background color queries and cursor reference codes that leak into the input
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

// send records the input as a new turn and returns the command that runs
// the requests.
func (m *Model) send() tea.Cmd {
	turn, err := m.Session.BeginTurn(m.TextInput.Value())
	if err != nil {
		var cfgErr *session.ConfigError
		switch {
		case errors.Is(err, session.ErrEmptyMessage):
		case errors.Is(err, session.ErrTurnInFlight):
			m.setNotice("Waiting for the current replies...")
		case errors.As(err, &cfgErr):
			m.modal = modalAlert
			m.alert = cfgErr.Error()
		default:
			m.setError(err)
		}
		return nil
	}

	m.turn = turn
	m.settled = map[models.ModelID]session.Outcome{}
	m.notice = ""
	m.TextInput.Reset()
	m.updateInputLayout()
	m.UpdateViewport()
	return m.dispatch(turn)
}

func (m *Model) dispatch(turn *session.Turn) tea.Cmd {
	sess, p, ctx := m.Session, m.Program, m.ctx
	return func() tea.Msg {
		outcomes := sess.Dispatch(ctx, turn, func(o session.Outcome) {
			if p != nil {
				p.Send(ModelSettledMsg{Turn: turn, Outcome: o})
			}
		})
		return TurnSettledMsg{Turn: turn, Outcomes: outcomes}
	}
}

func (m *Model) completeTurn(msg TurnSettledMsg) {
	_, err := m.Session.CompleteTurn(msg.Turn, msg.Outcomes)
	answered := false
	for _, o := range msg.Outcomes {
		if o.OK() {
			answered = true
			continue
		}
		m.failures[failureKey{chat: msg.Turn.ChatID, turn: msg.Turn.Number, model: o.Model}] = o.Err.Error()
	}
	if m.turn == msg.Turn {
		m.turn = nil
		m.settled = map[models.ModelID]session.Outcome{}
	}
	switch {
	case err != nil:
		m.setError(err)
	case !answered:
		m.setError(errors.New("no model answered, try again"))
	}
	m.UpdateViewport()
}

func (m *Model) toggle(id models.ModelID) {
	on, err := m.Session.Toggle(id)
	if err != nil {
		var cfgErr *session.ConfigError
		if errors.As(err, &cfgErr) {
			m.modal = modalAlert
			m.alert = cfgErr.Error()
			return
		}
		m.setError(err)
		return
	}
	state := "off"
	if on {
		state = "on"
	}
	m.setNotice(fmt.Sprintf("%s turned %s", m.Session.Label(id), state))
}

func (m *Model) selectWinner(id models.ModelID) {
	turn := m.Session.PendingSelection()
	if turn == 0 {
		m.setNotice("No response waiting for a choice")
		return
	}
	sel, err := m.Session.SelectWinner(turn, id)
	if err != nil {
		m.setError(err)
		return
	}
	notice := fmt.Sprintf("Kept %s's response", m.Session.Label(sel.Winner))
	if sel.Deactivated {
		notice += fmt.Sprintf(", %s turned off", m.Session.Label(sel.Loser))
	}
	m.setNotice(notice)
	m.UpdateViewport()
}

func (m *Model) exportCurrent() {
	path, err := m.Session.ExportCurrent(m.ExportDir)
	if err != nil {
		m.setError(err)
		return
	}
	m.setNotice("Exported to " + path)
}

func (m *Model) cycleTheme() {
	name := styles.Next(m.Session.Theme())
	if err := m.Session.SetTheme(name); err != nil {
		m.setError(err)
		return
	}
	styles.Apply(name)
	applyTextareaTheme(&m.TextInput)
	m.Spinner.Style = styles.SpinnerStyle
	m.buildRenderers()
	m.UpdateViewport()
	m.setNotice("Theme: " + name)
}

func (m *Model) rolloverTokens() {
	if _, err := m.Session.RolloverTokens(); err != nil {
		m.setError(err)
	}
}

func (m *Model) setNotice(s string) {
	m.notice = s
	m.noticeErr = false
}

func (m *Model) setError(err error) {
	m.notice = err.Error()
	m.noticeErr = true
}

// resize recomputes every width that depends on the window or the sidebar.
func (m *Model) resize() {
	if m.WindowWidth == 0 {
		return
	}
	chatWidth := m.WindowWidth - 2
	if m.sidebarShown() {
		chatWidth -= SidebarWidth + 2
	}
	if chatWidth > MaxChatWidth {
		chatWidth = MaxChatWidth
	}
	if chatWidth < 20 {
		chatWidth = 20
	}
	m.Viewport.Width = chatWidth

	m.updateInputLayout()
	m.buildRenderers()
	m.UpdateViewport()
}

func (m *Model) sidebarShown() bool {
	return !m.Session.SidebarCollapsed() && m.WindowWidth >= CompactWidthThresh
}

func (m *Model) buildRenderers() {
	style := styles.CurrentTheme.GlamourStyle()
	m.Renderer, _ = glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(m.Viewport.Width-6),
	)
	m.panelRenderer, _ = glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(panelWidth(m.Viewport.Width)-2),
	)
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 5
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}
