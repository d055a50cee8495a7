package session

import (
	"fmt"

	"duet/internal/history"
	"duet/internal/models"
)

// Selection is the result of picking a winner for a dual-response turn.
type Selection struct {
	Turn        int
	Winner      models.ModelID
	Loser       models.ModelID
	Discarded   bool
	Deactivated bool
}

// SelectWinner keeps winner's reply for turn of the current chat and drops
// the loser's reply from the loser's live history. The transcript keeps both
// replies. The choice is recorded on the chat so a reload rebuilds the same
// histories, and it cannot be undone.
func (s *Session) SelectWinner(turn int, winner models.ModelID) (Selection, error) {
	if !winner.Valid() {
		return Selection{}, fmt.Errorf("session: unknown model %q", winner)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.current()
	if chat == nil {
		return Selection{}, ErrChatNotFound
	}
	if p := s.pending; p != nil && p.ChatID == chat.ID && p.Number == turn {
		return Selection{}, ErrTurnInFlight
	}

	turns := history.Turns(chat.Messages)
	if turn < 1 || turn > len(turns) {
		return Selection{}, ErrTurnNotFound
	}
	if !turns[turn-1].Dual() {
		return Selection{}, ErrNotDualTurn
	}
	if _, done := chat.Selections[turn]; done {
		return Selection{}, ErrAlreadySelected
	}

	loser := winner.Other()
	sel := Selection{Turn: turn, Winner: winner, Loser: loser}
	sel.Discarded = s.hist.Discard(loser, turn)

	if chat.Selections == nil {
		chat.Selections = make(map[int]models.ModelID)
	}
	chat.Selections[turn] = winner
	chat.UpdatedAt = s.nowMillis()

	if s.opts.DeactivateLoser && s.active[loser] {
		s.active[loser] = false
		sel.Deactivated = true
	}

	s.log.Info("winner selected", "chat", chat.ID, "turn", turn, "model", winner, "deactivated", sel.Deactivated)
	return sel, s.flushChats()
}

// Selections returns the recorded winners of the current chat by turn.
func (s *Session) Selections() map[int]models.ModelID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[int]models.ModelID{}
	if c := s.current(); c != nil {
		for k, v := range c.Selections {
			out[k] = v
		}
	}
	return out
}

// PendingSelection returns the latest dual-response turn of the current chat
// that has no winner yet, or 0.
func (s *Session) PendingSelection() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.current()
	if chat == nil {
		return 0
	}
	turns := history.Turns(chat.Messages)
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if _, done := chat.Selections[t.Number]; t.Dual() && !done {
			return t.Number
		}
	}
	return 0
}
