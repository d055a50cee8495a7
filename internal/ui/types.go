package ui

import (
	"context"
	"time"

	"duet/internal/models"
	"duet/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const (
	MaxChatWidth       = 160
	CompactWidthThresh = 100 // Width below which the sidebar is hidden
	SidebarWidth       = 28

	HistoryPageSize = 10

	maxInputHeight = 6

	tokenTickInterval = time.Minute
)

// ModalWidth is recomputed on every resize.
var ModalWidth = 60

type modal int

const (
	modalNone modal = iota
	modalChats
	modalRename
	modalSettings
	modalShortcuts
	modalAlert
)

// ModelSettledMsg is sent from the request goroutine as soon as one model
// of the in-flight turn has an answer or an error.
type ModelSettledMsg struct {
	Turn    *session.Turn
	Outcome session.Outcome
}

// TurnSettledMsg is returned once every model of the turn has settled.
type TurnSettledMsg struct {
	Turn     *session.Turn
	Outcomes []session.Outcome
}

// tokenTickMsg drives the daily token counter rollover.
type tokenTickMsg time.Time

// failureKey identifies an inline error shown in place of a model's reply.
type failureKey struct {
	chat  string
	turn  int
	model models.ModelID
}

type Model struct {
	Session *session.Session

	Viewport  viewport.Model
	TextInput textarea.Model
	Spinner   spinner.Model
	Renderer  *glamour.TermRenderer
	// panelRenderer wraps at the width of one side-by-side panel.
	panelRenderer *glamour.TermRenderer

	WindowWidth  int
	WindowHeight int

	// in-flight turn and the outcomes that arrived so far
	turn    *session.Turn
	settled map[models.ModelID]session.Outcome
	// failures are kept for the life of the program only; the transcript
	// records nothing for a failed model.
	failures map[failureKey]string

	modal        modal
	alert        string
	chatIdx      int
	chatPage     int
	chatItems    []models.ChatListItem
	renameInput  textinput.Model
	renameID     string
	settingsForm *settingsForm

	notice    string
	noticeErr bool

	ShowTokens bool
	ExportDir  string

	ctx     context.Context
	cancel  context.CancelFunc
	Program *tea.Program
}
