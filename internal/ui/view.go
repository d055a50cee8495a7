package ui

import (
	"fmt"
	"slices"
	"strings"

	"duet/internal/history"
	"duet/internal/models"
	"duet/internal/styles"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type panelKind int

const (
	panelReply panelKind = iota
	panelError
	panelThinking
)

// panel is one model's slot under a user turn.
type panel struct {
	slot int
	id   models.ModelID
	kind panelKind
	body string
}

func GetWelcomeScreen(width, height int) string {
	art := `
 ╭─────────────────────────────────────────╮
 │                                         │
 │   ██████╗ ██╗   ██╗███████╗████████╗    │
 │   ██╔══██╗██║   ██║██╔════╝╚══██╔══╝    │
 │   ██║  ██║██║   ██║█████╗     ██║       │
 │   ██║  ██║██║   ██║██╔══╝     ██║       │
 │   ██████╔╝╚██████╔╝███████╗   ██║       │
 │   ╚═════╝  ╚═════╝ ╚══════╝   ╚═╝       │
 │                                         │
 ╰─────────────────────────────────────────╯
`
	subtitle := "Two models, one question. Keep the answer you like."

	styledArt := styles.WelcomeArtStyle.Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Render(subtitle)

	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) UpdateViewport() {
	chat := m.Session.Current()
	if len(chat.Messages) == 0 {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	turns := history.Turns(chat.Messages)
	blocks := make([]string, 0, len(turns)*2)
	for i, t := range turns {
		blocks = append(blocks, FormatUserMessage(t.User, m.Viewport.Width, i == 0))
		if r := m.renderReplies(chat.ID, t, chat.Selections[t.Number]); r != "" {
			blocks = append(blocks, r)
		}
	}

	m.Viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.Viewport.GotoBottom()
}

func (m *Model) renderReplies(chatID string, t history.Turn, winner models.ModelID) string {
	pending := m.turn != nil && m.turn.ChatID == chatID && m.turn.Number == t.Number

	var panels []panel
	for slot, id := range models.AllModels {
		if reply, ok := t.Replies[id]; ok {
			panels = append(panels, panel{slot: slot, id: id, kind: panelReply, body: reply})
			continue
		}
		if msg, ok := m.failures[failureKey{chat: chatID, turn: t.Number, model: id}]; ok {
			panels = append(panels, panel{slot: slot, id: id, kind: panelError, body: msg})
			continue
		}
		if !pending || !slices.Contains(m.turn.Models, id) {
			continue
		}
		o, ok := m.settled[id]
		switch {
		case !ok:
			panels = append(panels, panel{slot: slot, id: id, kind: panelThinking})
		case o.OK():
			panels = append(panels, panel{slot: slot, id: id, kind: panelReply, body: o.Reply.Text})
		default:
			panels = append(panels, panel{slot: slot, id: id, kind: panelError, body: o.Err.Error()})
		}
	}

	var out []string
	switch {
	case winner.Valid() && t.Dual():
		for _, p := range panels {
			if p.id == winner {
				out = append(out, m.formatSingle(p, true))
			}
		}
	case len(panels) == 2:
		out = append(out, m.formatDual(panels[0], panels[1]))
		if t.Dual() && !pending && t.Number == m.Session.PendingSelection() {
			out = append(out, styles.HintStyle.Render("Alt+1: keep V1 • Alt+2: keep V2"))
		}
	case len(panels) == 1:
		out = append(out, m.formatSingle(panels[0], false))
	}

	for _, u := range t.Untagged {
		out = append(out, FormatUntaggedMessage(renderMarkdown(m.Renderer, u)))
	}
	return strings.Join(out, "\n\n")
}

func (m *Model) panelBody(p panel, r *glamour.TermRenderer) string {
	switch p.kind {
	case panelError:
		return styles.ErrorStyle.Render("Error: " + p.body)
	case panelThinking:
		return m.Spinner.View() + " " + styles.ThinkingStyle.Render("Thinking...")
	default:
		return renderMarkdown(r, p.body)
	}
}

func (m *Model) formatSingle(p panel, selected bool) string {
	label := styles.AiLabelStyle(p.slot).Render(m.Session.Label(p.id))
	if selected {
		label += styles.SelectedMarkerStyle.Render("✓ selected")
	}
	return FormatAIMessage(p.slot, label, m.panelBody(p, m.Renderer))
}

func (m *Model) formatDual(a, b panel) string {
	w := panelWidth(m.Viewport.Width)
	render := func(p panel) string {
		label := styles.AiLabelStyle(p.slot).Render(m.Session.Label(p.id))
		body := lipgloss.JoinVertical(lipgloss.Left, label, "", m.panelBody(p, m.panelRenderer))
		return styles.PanelStyle(p.slot, w).Render(body)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, render(a), " ", render(b))
}

// panelWidth is the inner width of one of two panels sharing width.
func panelWidth(width int) int {
	// two borders and two padding columns per panel, one gap between them
	w := (width-1)/2 - 4
	if w < 10 {
		w = 10
	}
	return w
}

func renderMarkdown(r *glamour.TermRenderer, s string) string {
	if r == nil {
		return s
	}
	out, err := r.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(out, "\n")
}

func (m *Model) RenderSidebar(height int) string {
	lines := []string{styles.SidebarTitleStyle.Render("Chats")}
	for _, it := range m.Session.ChatList() {
		if len(lines)+2 > height {
			break
		}
		style, prefix := styles.SidebarItemStyle, "  "
		if it.Current {
			style, prefix = styles.SidebarCurrentStyle, "▌ "
		}
		lines = append(lines,
			style.Render(prefix+TruncateRunes(it.Title, SidebarWidth-2)),
			styles.HintStyle.Render("  "+TruncateRunes(it.Preview, SidebarWidth-2)),
		)
	}
	return styles.SidebarStyle.Width(SidebarWidth).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) RenderBottomBar() string {
	ready := m.Session.ReadyModels()

	var left []string
	for slot, id := range models.AllModels {
		name := fmt.Sprintf("V%d", slot+1)
		if slices.Contains(ready, id) {
			left = append(left, styles.BadgeStyle.Background(styles.ModelColor(slot)).Render(name))
			continue
		}
		left = append(left, styles.InactiveBadgeStyle.Render(name))
	}
	if m.turn != nil {
		left = append(left, m.Spinner.View()+styles.InfoStyle.Render(" waiting for replies"))
	} else {
		left = append(left, styles.InfoStyle.Render(TruncateRunes(m.Session.Current().Title, 30)))
	}
	leftSide := strings.Join(left, " ")

	var right []string
	if m.notice != "" {
		if m.noticeErr {
			right = append(right, styles.ErrorStyle.Render(TruncateRunes(m.notice, 60)))
		} else {
			right = append(right, styles.NoticeStyle.Render(TruncateRunes(m.notice, 60)))
		}
	}
	if m.ShowTokens {
		t := m.Session.Tokens()
		right = append(right, styles.TokenStyle.Render(fmt.Sprintf("Today: %d tokens • Chat: ~%d tokens", t.Today, t.CurrentChat)))
	}
	right = append(right, styles.HintStyle.Render("Ctrl+S: shortcuts"))
	rightSide := strings.Join(right, "  ")

	width := m.WindowWidth - 2
	gap := width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if gap < 1 {
		gap = 1
	}
	bar := leftSide + strings.Repeat(" ", gap) + rightSide
	return styles.BottomBarStyle.Width(m.WindowWidth).Render(bar)
}

func (m *Model) View() string {
	inputWidth := m.WindowWidth - 4
	inputBox := styles.InputBoxStyle.Width(inputWidth).Render(m.TextInput.View())

	body := m.Viewport.View()
	if m.sidebarShown() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.RenderSidebar(m.Viewport.Height), " ", body)
	}

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("DUET"),
		"",
		body,
		"",
		inputBox,
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, m.RenderBottomBar())

	var box string
	switch m.modal {
	case modalChats:
		box = m.RenderChatPicker()
	case modalRename:
		box = m.RenderRenameModal()
	case modalSettings:
		box = m.RenderSettingsModal()
	case modalShortcuts:
		box = m.RenderShortcutsModal()
	case modalAlert:
		box = m.RenderAlert()
	default:
		return content
	}

	return lipgloss.Place(
		m.WindowWidth,
		m.WindowHeight,
		lipgloss.Center,
		lipgloss.Center,
		styles.ModalStyle.Width(ModalWidth).Render(box),
	)
}
