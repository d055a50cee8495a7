// Package history keeps the two per-model prompt contexts derived from a
// chat's canonical transcript.
//
// The transcript is the source of truth. The histories are rebuilt from it
// whenever a chat is loaded and are mutated independently afterwards: a user
// turn goes to both, an assistant reply only to the model that produced it,
// and selecting a winner removes the loser's reply from the loser's history.
package history

import (
	"slices"

	"duet/internal/models"
)

// Manager holds one ordered history per model slot.
type Manager struct {
	logs map[models.ModelID][]models.HistoryEntry
}

func New() *Manager {
	m := &Manager{}
	m.Reset()
	return m
}

// Reset clears both histories.
func (m *Manager) Reset() {
	m.logs = make(map[models.ModelID][]models.HistoryEntry, len(models.AllModels))
	for _, id := range models.AllModels {
		m.logs[id] = []models.HistoryEntry{}
	}
}

// AppendUser pushes the same user turn onto both histories.
func (m *Manager) AppendUser(turn int, text string) {
	for _, id := range models.AllModels {
		m.logs[id] = append(m.logs[id], models.HistoryEntry{Role: models.RoleUser, Content: text, Turn: turn})
	}
}

// AppendAssistant pushes a reply onto the named model's history only.
func (m *Manager) AppendAssistant(id models.ModelID, turn int, text string) {
	m.logs[id] = append(m.logs[id], models.HistoryEntry{Role: models.RoleAssistant, Content: text, Turn: turn})
}

// Discard removes id's assistant entry for turn. It reports whether an entry
// was removed.
func (m *Manager) Discard(id models.ModelID, turn int) bool {
	log := m.logs[id]
	for i := len(log) - 1; i >= 0; i-- {
		e := log[i]
		if e.Turn < turn {
			break
		}
		if e.Turn == turn && e.Role == models.RoleAssistant {
			m.logs[id] = slices.Delete(log, i, i+1)
			return true
		}
	}
	return false
}

// History returns a copy of id's history.
func (m *Manager) History(id models.ModelID) []models.HistoryEntry {
	return slices.Clone(m.logs[id])
}

func (m *Manager) Len(id models.ModelID) int {
	return len(m.logs[id])
}

// Last returns the final entry of id's history.
func (m *Manager) Last(id models.ModelID) (models.HistoryEntry, bool) {
	log := m.logs[id]
	if len(log) == 0 {
		return models.HistoryEntry{}, false
	}
	return log[len(log)-1], true
}

// Rebuild resets the histories and replays messages into them.
func (m *Manager) Rebuild(messages []models.Message, selections map[int]models.ModelID) {
	m.Reset()

	turn := 0
	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case models.RoleUser:
			turn++
			m.AppendUser(turn, msg.Content)
		case models.RoleAssistant:
			if turn == 0 {
				continue
			}
			if next, ok := dualPartner(messages, i); ok {
				m.appendDual(turn, msg, next, selections[turn])
				i++
				continue
			}
			m.appendReplayed(turn, msg)
		}
	}
}

// Replay builds a fresh Manager from a transcript.
func Replay(messages []models.Message, selections map[int]models.ModelID) *Manager {
	m := New()
	m.Rebuild(messages, selections)
	return m
}

func (m *Manager) appendDual(turn int, a, b models.Message, winner models.ModelID) {
	for _, msg := range []models.Message{a, b} {
		if winner != "" && msg.Model != winner {
			continue
		}
		m.AppendAssistant(msg.Model, turn, msg.Content)
	}
}

func (m *Manager) appendReplayed(turn int, msg models.Message) {
	if msg.Model.Valid() {
		m.AppendAssistant(msg.Model, turn, msg.Content)
		return
	}
	// untagged replies come from imported single-model transcripts
	for _, id := range models.AllModels {
		m.AppendAssistant(id, turn, msg.Content)
	}
}

// dualPartner returns the message after i when messages[i] and
// messages[i+1] form a dual-response pair.
func dualPartner(messages []models.Message, i int) (models.Message, bool) {
	if i+1 >= len(messages) {
		return models.Message{}, false
	}
	a, b := messages[i], messages[i+1]
	if b.Role != models.RoleAssistant || !a.Model.Valid() || !b.Model.Valid() || a.Model == b.Model {
		return models.Message{}, false
	}
	return b, true
}

// Turn describes the assistant replies recorded for one user turn.
type Turn struct {
	Number  int
	User    string
	Replies map[models.ModelID]string
	// Untagged holds replies with no model tag, shown to both models.
	Untagged []string
}

// Dual reports whether both models answered this turn.
func (t Turn) Dual() bool {
	_, one := t.Replies[models.ModelOne]
	_, two := t.Replies[models.ModelTwo]
	return one && two
}

// Turns groups a transcript by user turn.
func Turns(messages []models.Message) []Turn {
	var turns []Turn
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			turns = append(turns, Turn{Number: len(turns) + 1, User: msg.Content, Replies: map[models.ModelID]string{}})
		case models.RoleAssistant:
			if len(turns) == 0 {
				continue
			}
			t := &turns[len(turns)-1]
			if msg.Model.Valid() {
				t.Replies[msg.Model] = msg.Content
				continue
			}
			t.Untagged = append(t.Untagged, msg.Content)
		}
	}
	return turns
}
