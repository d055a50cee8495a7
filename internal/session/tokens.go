package session

import (
	"fmt"
	"time"

	"duet/internal/models"
)

// Counter is the daily token counter. It resets to zero the first time it is
// touched on a new calendar day.
type Counter struct {
	usage models.TokenUsage
}

func NewCounter(u models.TokenUsage) Counter {
	return Counter{usage: u}
}

// Rollover resets the counter when now falls on a different day than the
// stamp. It reports whether a reset happened.
func (c *Counter) Rollover(now time.Time) bool {
	day := now.Format(models.DayLayout)
	if c.usage.Date == day {
		return false
	}
	c.usage = models.TokenUsage{Today: 0, Date: day}
	return true
}

// Add records n tokens used at now.
func (c *Counter) Add(now time.Time, n int) {
	c.Rollover(now)
	if n > 0 {
		c.usage.Today += n
	}
}

func (c *Counter) Usage() models.TokenUsage {
	return c.usage
}

// Tokens holds the counters shown in the token panel.
type Tokens struct {
	Today       int
	CurrentChat int
}

// Tokens returns today's usage and the size estimate of the current chat.
// It does not write; a stale day reads as zero until RolloverTokens runs.
func (s *Session) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t Tokens
	if u := s.usage.Usage(); u.Date == s.opts.Now().Format(models.DayLayout) {
		t.Today = u.Today
	}
	if chat := s.current(); chat != nil {
		t.CurrentChat = chatTokens(*chat, s.opts.CharsPerToken)
	}
	return t
}

// chatTokens estimates a transcript's size: total characters over
// charsPerToken, rounded up.
func chatTokens(chat models.Chat, charsPerToken int) int {
	chars := 0
	for _, m := range chat.Messages {
		chars += len([]rune(m.Content))
	}
	return (chars + charsPerToken - 1) / charsPerToken
}

// RolloverTokens resets and persists the daily counter once a new day has
// started. It reports whether a reset happened.
func (s *Session) RolloverTokens() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.usage.Rollover(s.opts.Now()) {
		return false, nil
	}
	if err := s.store.SaveTokenUsage(s.usage.Usage()); err != nil {
		return true, fmt.Errorf("session: save token usage: %w", err)
	}
	return true, nil
}
