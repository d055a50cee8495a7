package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"duet/internal/models"
	"duet/internal/provider"
)

// Turn is a user message that has been recorded and is waiting on its
// replies. It carries a snapshot of each ready model's prompt so the
// requests run without holding the session lock.
type Turn struct {
	ChatID string
	Number int
	Text   string
	Models []models.ModelID

	prompts   map[models.ModelID][]models.HistoryEntry
	providers map[models.ModelID]provider.Provider
}

// Dual reports whether the turn was sent to both models.
func (t *Turn) Dual() bool {
	return len(t.Models) == len(models.AllModels)
}

// Outcome is the settled result of one model's request.
type Outcome struct {
	Model models.ModelID
	Reply provider.Reply
	Err   error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// TurnResult is what CompleteTurn recorded.
type TurnResult struct {
	Turn     *Turn
	Outcomes []Outcome
	// Appended lists the models whose reply was added to the transcript.
	Appended []models.ModelID
	Tokens   int
}

// BeginTurn records text as the next user turn of the current chat. The
// message reaches the transcript and both histories before any request is
// made. No state changes when an error is returned.
func (s *Session) BeginTurn(text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return nil, ErrTurnInFlight
	}
	ready := s.readyModels()
	if len(ready) == 0 {
		return nil, s.configError()
	}
	chat := s.current()
	if chat == nil {
		return nil, ErrChatNotFound
	}

	if len(chat.Messages) == 0 {
		chat.Title = titleFrom(text)
	}
	chat.Messages = append(chat.Messages, models.Message{Role: models.RoleUser, Content: text})
	chat.UpdatedAt = s.nowMillis()
	number := chat.UserTurns()
	s.hist.AppendUser(number, text)

	turn := &Turn{
		ChatID:    chat.ID,
		Number:    number,
		Text:      text,
		Models:    ready,
		prompts:   make(map[models.ModelID][]models.HistoryEntry, len(ready)),
		providers: make(map[models.ModelID]provider.Provider, len(ready)),
	}
	for _, id := range ready {
		turn.prompts[id] = s.hist.History(id)
		turn.providers[id] = s.providers[id]
	}
	s.pending = turn

	s.log.Info("turn started", "chat", chat.ID, "turn", number, "models", len(ready))
	if err := s.flushChats(); err != nil {
		s.log.Error("flush chats", "chat", chat.ID, "error", err)
	}
	return turn, nil
}

func (s *Session) configError() error {
	for _, id := range models.AllModels {
		if s.settings.Endpoint(id).Configured() && s.providers[id] == nil {
			return &ConfigError{Model: id, Label: s.label(id), Reason: "endpoint could not be set up, check its URL in Settings"}
		}
	}
	for _, id := range models.AllModels {
		if s.settings.Endpoint(id).Configured() {
			return &ConfigError{Reason: "Both models are turned off. Activate one to send a message."}
		}
	}
	return &ConfigError{Reason: "Please configure at least one model in Settings first."}
}

// Dispatch sends the turn to every model it was recorded for, concurrently,
// and returns once all of them have settled. notify, when set, is called
// from the request goroutine as each model settles.
func (s *Session) Dispatch(ctx context.Context, turn *Turn, notify func(Outcome)) []Outcome {
	outcomes := make([]Outcome, len(turn.Models))

	var wg sync.WaitGroup
	for i, id := range turn.Models {
		wg.Add(1)
		go func(i int, id models.ModelID) {
			defer wg.Done()

			o := s.call(ctx, turn, id)
			outcomes[i] = o
			if notify != nil {
				notify(o)
			}
		}(i, id)
	}
	wg.Wait()

	return outcomes
}

func (s *Session) call(ctx context.Context, turn *Turn, id models.ModelID) Outcome {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	p := turn.providers[id]
	if p == nil {
		return Outcome{Model: id, Err: provider.ErrNotConfigured}
	}

	reply, err := p.Complete(ctx, turn.prompts[id])
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &provider.TransportError{Err: ctx.Err()}
		}
		s.log.Warn("model request failed", "chat", turn.ChatID, "turn", turn.Number, "model", id, "error", err)
		return Outcome{Model: id, Err: err}
	}
	return Outcome{Model: id, Reply: reply}
}

// CompleteTurn records the settled outcomes of turn. Successful replies are
// appended to the transcript in model order and, if the chat is still
// current, to the replying model's history. The send control is released
// whatever the outcomes were.
func (s *Session) CompleteTurn(turn *Turn, outcomes []Outcome) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == turn {
		s.pending = nil
	}

	res := TurnResult{Turn: turn, Outcomes: outcomes}
	now := s.opts.Now()
	_, chat := s.findChat(turn.ChatID)
	live := chat != nil && turn.ChatID == s.currentID

	failed := 0
	for _, id := range models.AllModels {
		o, ok := outcomeFor(outcomes, id)
		if !ok {
			continue
		}
		if !o.OK() {
			failed++
			continue
		}
		n := o.Reply.TokenCount(s.opts.Estimator)
		s.usage.Add(now, n)
		res.Tokens += n

		if chat == nil {
			continue
		}
		chat.Messages = append(chat.Messages, models.Message{Role: models.RoleAssistant, Content: o.Reply.Text, Model: id})
		if live {
			s.hist.AppendAssistant(id, turn.Number, o.Reply.Text)
		}
		res.Appended = append(res.Appended, id)
	}

	if chat == nil {
		s.log.Warn("turn settled after its chat was deleted", "chat", turn.ChatID, "turn", turn.Number)
	} else if len(res.Appended) > 0 {
		chat.UpdatedAt = now.UnixMilli()
	}
	s.log.Info("turn settled", "chat", turn.ChatID, "turn", turn.Number,
		"replies", len(res.Appended), "failed", failed, "tokens", res.Tokens)

	var errs []error
	if chat != nil {
		errs = append(errs, s.flushChats())
	}
	if err := s.store.SaveTokenUsage(s.usage.Usage()); err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

func outcomeFor(outcomes []Outcome, id models.ModelID) (Outcome, bool) {
	for _, o := range outcomes {
		if o.Model == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// SendTurn records text, queries the ready models and records their replies.
func (s *Session) SendTurn(ctx context.Context, text string) (TurnResult, error) {
	turn, err := s.BeginTurn(text)
	if err != nil {
		return TurnResult{}, err
	}
	return s.CompleteTurn(turn, s.Dispatch(ctx, turn, nil))
}
