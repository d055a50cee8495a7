package ui

import (
	"errors"
	"fmt"
	"time"

	"duet/internal/session"
	"duet/internal/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m *Model) updateModal(msg tea.KeyMsg) tea.Cmd {
	switch m.modal {
	case modalChats:
		m.updateChats(msg)
	case modalRename:
		return m.updateRename(msg)
	case modalSettings:
		return m.updateSettings(msg)
	case modalShortcuts:
		switch msg.String() {
		case "esc", "enter", "ctrl+s":
			m.closeModal()
		}
	case modalAlert:
		switch msg.String() {
		case "esc", "enter":
			m.closeModal()
		case "ctrl+o":
			m.openSettings()
		}
	}
	return nil
}

func (m *Model) closeModal() {
	m.modal = modalNone
	m.alert = ""
	m.settingsForm = nil
	m.renameInput.Blur()
	m.TextInput.Focus()
}

func (m *Model) openChats() {
	m.modal = modalChats
	m.chatItems = m.Session.ChatList()
	m.chatIdx = 0
	for i, it := range m.chatItems {
		if it.Current {
			m.chatIdx = i
			break
		}
	}
	m.chatPage = m.chatIdx / HistoryPageSize
}

func (m *Model) updateChats(msg tea.KeyMsg) {
	n := len(m.chatItems)
	switch msg.String() {
	case "esc", "ctrl+h":
		m.closeModal()
		return
	case "up", "k":
		if n == 0 {
			return
		}
		m.chatIdx--
		if m.chatIdx < 0 {
			m.chatIdx = n - 1
		}
	case "down", "j":
		if n == 0 {
			return
		}
		m.chatIdx++
		if m.chatIdx >= n {
			m.chatIdx = 0
		}
	case "left", "h":
		if m.chatPage > 0 {
			m.chatIdx = (m.chatPage - 1) * HistoryPageSize
		}
	case "right", "l":
		if next := (m.chatPage + 1) * HistoryPageSize; next < n {
			m.chatIdx = next
		}
	case "enter":
		if n == 0 {
			return
		}
		if _, err := m.Session.LoadChat(m.chatItems[m.chatIdx].ID); err != nil {
			m.setError(err)
		}
		m.closeModal()
		m.UpdateViewport()
		return
	case "d", "delete":
		if n == 0 {
			return
		}
		if err := m.Session.DeleteChat(m.chatItems[m.chatIdx].ID); err != nil {
			m.setError(err)
			return
		}
		m.chatItems = m.Session.ChatList()
		if m.chatIdx >= len(m.chatItems) {
			m.chatIdx = len(m.chatItems) - 1
		}
		m.UpdateViewport()
	}
	m.chatPage = m.chatIdx / HistoryPageSize
}

func (m *Model) openRename() {
	chat := m.Session.Current()
	m.modal = modalRename
	m.renameID = chat.ID
	m.renameInput.SetValue(chat.Title)
	m.renameInput.CursorEnd()
	m.renameInput.Focus()
	m.TextInput.Blur()
}

func (m *Model) updateRename(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closeModal()
		return nil
	case "enter":
		err := m.Session.RenameChat(m.renameID, m.renameInput.Value())
		if errors.Is(err, session.ErrEmptyTitle) {
			return nil
		}
		if err != nil {
			m.setError(err)
		}
		m.closeModal()
		return nil
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return cmd
}

func (m *Model) RenderChatPicker() string {
	n := len(m.chatItems)
	totalPages := (n + HistoryPageSize - 1) / HistoryPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Chats (%d) - Page %d/%d", n, m.chatPage+1, totalPages))

	var body string
	if n == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No chats yet"))
	} else {
		start := m.chatPage * HistoryPageSize
		end := min(start+HistoryPageSize, n)
		items := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			chat := m.chatItems[i]
			isSelected := i == m.chatIdx
			cursor := "  "
			if isSelected {
				cursor = "> "
			}
			timeStr := RelativeTime(time.Unix(chat.UpdatedAtUnix, 0))
			availableWidth := styles.ContentWidth - 2 - len(cursor) - 1 - len(timeStr)
			name := TruncateRunes(chat.Title, availableWidth)

			itemContent := fmt.Sprintf("%s%s %s", cursor, name, lipgloss.NewStyle().Foreground(styles.HintColor).Render(timeStr))
			preview := "  " + TruncateRunes(PromptPreview(chat.Preview), styles.ContentWidth-4)
			if isSelected {
				items = append(items, styles.ModalSelectedStyle.Render(itemContent))
			} else {
				items = append(items, styles.ModalItemStyle.Render(itemContent))
			}
			items = append(items, styles.ModalItemStyle.Foreground(styles.HintColor).Render(preview))
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • ←/→: page • Enter: open • d: delete • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderRenameModal() string {
	title := styles.ModalTitleStyle.Render("Rename Chat")
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Enter: save • Esc: cancel")
	return lipgloss.JoinVertical(lipgloss.Left, title, m.renameInput.View(), hint)
}

func (m *Model) RenderAlert() string {
	title := styles.ModalTitleStyle.Render("Heads up")
	body := lipgloss.NewStyle().Width(styles.ContentWidth).Render(m.alert)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Ctrl+O: settings • Enter/Esc: close")
	return lipgloss.JoinVertical(lipgloss.Left, title, body, hint)
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send to active models"},
		{"Shift+Enter", "New line"},
		{"Alt+1/Alt+2", "Keep response of V1/V2"},
		{"F1/F2", "Turn V1/V2 on or off"},
		{"Ctrl+N", "New chat"},
		{"Ctrl+H", "Chats"},
		{"Ctrl+R", "Rename chat"},
		{"Ctrl+E", "Export chat as JSON"},
		{"Ctrl+O", "Settings"},
		{"Ctrl+T", "Next theme"},
		{"Ctrl+B", "Toggle sidebar"},
		{"Ctrl+K", "Toggle token info"},
		{"PgUp/PgDn", "Scroll"},
		{"Ctrl+S", "Shortcuts (this menu)"},
		{"Ctrl+C", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", styles.KeyStyle.Render(s.key), styles.DescStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, items...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, listContent)

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}
