// Package session owns all mutable client state: the chat list, the current
// chat's per-model histories, settings, model toggles and the daily token
// counter.
//
// A Session is built once at startup and shared by the presentation layer.
// Every exported method takes the session lock, so bubbletea commands running
// on their own goroutines can call into it safely. Network calls are made
// outside the lock (see Dispatch).
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"duet/internal/history"
	"duet/internal/models"
	"duet/internal/provider"
)

var (
	ErrEmptyMessage    = errors.New("session: message is empty")
	ErrTurnInFlight    = errors.New("session: a turn is already in flight")
	ErrChatNotFound    = errors.New("session: chat not found")
	ErrTurnNotFound    = errors.New("session: turn not found")
	ErrNotDualTurn     = errors.New("session: turn does not have two responses")
	ErrAlreadySelected = errors.New("session: a response was already selected for this turn")
	ErrEmptyTitle      = errors.New("session: title is empty")
)

// ConfigError means a model cannot be used until it is enabled and given a
// credential. Nothing is mutated when it is returned.
type ConfigError struct {
	Model  models.ModelID
	Label  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Model == "" {
		return e.Reason
	}
	label := e.Label
	if label == "" {
		label = e.Model.Label()
	}
	if e.Reason == "" {
		return fmt.Sprintf("Please configure %s in Settings first.", label)
	}
	return fmt.Sprintf("%s: %s", label, e.Reason)
}

// Store is the durable key/value backing of a session.
type Store interface {
	LoadChats() ([]models.Chat, error)
	SaveChats([]models.Chat) error
	LoadTokenUsage() (models.TokenUsage, error)
	SaveTokenUsage(models.TokenUsage) error
	LoadSettings() (models.Settings, error)
	SaveSettings(models.Settings) error
	LoadTheme() (string, error)
	SaveTheme(string) error
	LoadSidebarCollapsed() (bool, error)
	SaveSidebarCollapsed(bool) error
}

// Factory builds the provider for an endpoint.
type Factory func(models.Endpoint, provider.Options) (provider.Provider, error)

type Options struct {
	Generation provider.Options
	// Timeout bounds each upstream request. Zero means no bound.
	Timeout time.Duration
	// DeactivateLoser turns the losing model off after a selection.
	DeactivateLoser bool
	// CharsPerToken drives the chat-size estimate and, when Estimator is
	// nil, the fallback usage estimate.
	CharsPerToken int
	Estimator     provider.Estimator
	Factory       Factory
	// Seed fills gaps in the loaded settings (credentials from the
	// environment, default URLs). ApplySettings reuses it for URLs and
	// model names only.
	Seed func(models.Settings) models.Settings
	// Labels are the display names of the models. Missing entries fall
	// back to ModelID.Label.
	Labels map[models.ModelID]string
	Now    func() time.Time
	Logger *slog.Logger
}

type Session struct {
	mu sync.Mutex

	store Store
	opts  Options
	log   *slog.Logger

	chats     []models.Chat
	currentID string
	hist      *history.Manager

	settings  models.Settings
	providers map[models.ModelID]provider.Provider
	active    map[models.ModelID]bool

	usage   Counter
	pending *Turn

	theme            string
	sidebarCollapsed bool
}

// New loads persisted state from store and makes a chat current: the first
// stored chat, or a fresh one when there are none.
func New(store Store, opts Options) (*Session, error) {
	if opts.CharsPerToken <= 0 {
		opts.CharsPerToken = provider.CharsPerToken
	}
	if opts.Estimator == nil {
		opts.Estimator = provider.CharEstimator(opts.CharsPerToken)
	}
	if opts.Factory == nil {
		opts.Factory = provider.New
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Session{
		store:  store,
		opts:   opts,
		log:    opts.Logger,
		hist:   history.New(),
		active: make(map[models.ModelID]bool, len(models.AllModels)),
	}

	var err error
	if s.chats, err = store.LoadChats(); err != nil {
		return nil, fmt.Errorf("session: load chats: %w", err)
	}
	if s.settings, err = store.LoadSettings(); err != nil {
		return nil, fmt.Errorf("session: load settings: %w", err)
	}
	if opts.Seed != nil {
		s.settings = opts.Seed(s.settings)
	}
	usage, err := store.LoadTokenUsage()
	if err != nil {
		return nil, fmt.Errorf("session: load token usage: %w", err)
	}
	s.usage = Counter{usage: usage}
	if s.usage.Rollover(s.opts.Now()) {
		if err := store.SaveTokenUsage(s.usage.Usage()); err != nil {
			return nil, err
		}
	}
	if s.theme, err = store.LoadTheme(); err != nil {
		return nil, fmt.Errorf("session: load theme: %w", err)
	}
	if s.sidebarCollapsed, err = store.LoadSidebarCollapsed(); err != nil {
		return nil, fmt.Errorf("session: load sidebar state: %w", err)
	}

	s.buildProviders()
	for _, id := range models.AllModels {
		s.active[id] = s.settings.Endpoint(id).Configured()
	}

	if len(s.chats) == 0 {
		if _, err := s.createChat(); err != nil {
			return nil, err
		}
	} else {
		s.loadChat(s.chats[0].ID)
	}
	return s, nil
}

func (s *Session) buildProviders() {
	s.providers = make(map[models.ModelID]provider.Provider, len(models.AllModels))
	for _, id := range models.AllModels {
		e := s.settings.Endpoint(id)
		if !e.Configured() {
			continue
		}
		p, err := s.opts.Factory(e, s.opts.Generation)
		if err != nil {
			s.log.Warn("provider unavailable", "model", id, "error", err)
			continue
		}
		s.providers[id] = p
	}
}

// ready reports whether id is enabled, credentialed and toggled active.
func (s *Session) ready(id models.ModelID) bool {
	return s.active[id] && s.settings.Endpoint(id).Configured() && s.providers[id] != nil
}

// ReadyModels returns the models a turn sent now would go to.
func (s *Session) ReadyModels() []models.ModelID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyModels()
}

func (s *Session) readyModels() []models.ModelID {
	var ids []models.ModelID
	for _, id := range models.AllModels {
		if s.ready(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Active reports the toggle state of id.
func (s *Session) Active(id models.ModelID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[id]
}

// Toggle flips id's active flag. Models that are not enabled or have no
// credential cannot be toggled.
func (s *Session) Toggle(id models.ModelID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.settings.Endpoint(id).Configured() {
		return false, &ConfigError{Model: id, Label: s.label(id)}
	}
	s.active[id] = !s.active[id]
	return s.active[id], nil
}

// Label returns the display name of id.
func (s *Session) Label(id models.ModelID) string {
	return s.label(id)
}

func (s *Session) label(id models.ModelID) string {
	if l := s.opts.Labels[id]; l != "" {
		return l
	}
	return id.Label()
}

func (s *Session) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// ApplySettings persists settings and rebuilds the providers. Models that
// were not usable before and now are get activated.
func (s *Session) ApplySettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range models.AllModels {
		e := settings.Endpoint(id)
		e.APIKey = strings.TrimSpace(e.APIKey)
		e.URL = strings.TrimSpace(e.URL)
		settings.SetEndpoint(id, e)
	}
	if s.opts.Seed != nil {
		// Only blank URLs and model names are refilled. A key or kind the
		// user cleared stays cleared.
		edited := settings
		settings = s.opts.Seed(settings)
		for _, id := range models.AllModels {
			e, typed := settings.Endpoint(id), edited.Endpoint(id)
			e.APIKey, e.Kind = typed.APIKey, typed.Kind
			settings.SetEndpoint(id, e)
		}
	}
	if err := s.store.SaveSettings(settings); err != nil {
		return fmt.Errorf("session: save settings: %w", err)
	}

	before := make(map[models.ModelID]bool, len(models.AllModels))
	for _, id := range models.AllModels {
		before[id] = s.settings.Endpoint(id).Configured()
	}

	s.settings = settings
	s.buildProviders()
	for _, id := range models.AllModels {
		now := settings.Endpoint(id).Configured()
		switch {
		case !now:
			s.active[id] = false
		case !before[id]:
			s.active[id] = true
		}
	}
	return nil
}

// Busy reports whether a turn is in flight. The send control is disabled
// while it is.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// History returns a copy of id's live history for the current chat.
func (s *Session) History(id models.ModelID) []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.History(id)
}

func (s *Session) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *Session) SetTheme(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveTheme(name); err != nil {
		return err
	}
	s.theme = name
	return nil
}

func (s *Session) SidebarCollapsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebarCollapsed
}

func (s *Session) SetSidebarCollapsed(collapsed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveSidebarCollapsed(collapsed); err != nil {
		return err
	}
	s.sidebarCollapsed = collapsed
	return nil
}

func (s *Session) nowMillis() int64 {
	return s.opts.Now().UnixMilli()
}
