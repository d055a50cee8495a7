package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"duet/internal/models"

	_ "modernc.org/sqlite"
)

// Keys of the persisted blobs.
const (
	KeyChats            = "chats"
	KeyTokenUsage       = "tokenUsage"
	KeySettings         = "settings"
	KeyTheme            = "theme"
	KeySidebarCollapsed = "sidebarCollapsed"
)

// Store is a key -> JSON blob store on top of sqlite.
type Store struct {
	*sql.DB
	defaults models.Settings
	theme    string
	now      func() time.Time
}

type Option func(*Store)

// WithDefaultSettings sets what LoadSettings returns before anything is saved.
func WithDefaultSettings(s models.Settings) Option {
	return func(st *Store) { st.defaults = s }
}

func WithDefaultTheme(name string) Option {
	return func(st *Store) { st.theme = name }
}

// WithClock overrides the clock used to stamp a fresh token counter.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// Open opens (or creates) the store at path.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps writes serialized
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	st := &Store{DB: conn, theme: "modern", now: time.Now}
	for _, opt := range opts {
		opt(st)
	}
	return st, nil
}

// GetJSON decodes the blob under key into dst. found is false when the key
// has never been written.
func (s *Store) GetJSON(key string, dst any) (found bool, err error) {
	var raw string
	err = s.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db: read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("db: decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key, replacing any previous value.
func (s *Store) PutJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("db: encode %s: %w", key, err)
	}
	_, err = s.Exec(
		`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		string(data),
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("db: write %s: %w", key, err)
	}
	return nil
}

func (s *Store) LoadChats() ([]models.Chat, error) {
	chats := []models.Chat{}
	if _, err := s.GetJSON(KeyChats, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *Store) SaveChats(chats []models.Chat) error {
	if chats == nil {
		chats = []models.Chat{}
	}
	return s.PutJSON(KeyChats, chats)
}

// LoadTokenUsage returns the stored counter, or a zero counter stamped today.
func (s *Store) LoadTokenUsage() (models.TokenUsage, error) {
	var u models.TokenUsage
	found, err := s.GetJSON(KeyTokenUsage, &u)
	if err != nil {
		return models.TokenUsage{}, err
	}
	if !found {
		return models.TokenUsage{Date: s.now().Format(models.DayLayout)}, nil
	}
	return u, nil
}

func (s *Store) SaveTokenUsage(u models.TokenUsage) error {
	return s.PutJSON(KeyTokenUsage, u)
}

func (s *Store) LoadSettings() (models.Settings, error) {
	settings := s.defaults
	if _, err := s.GetJSON(KeySettings, &settings); err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

func (s *Store) SaveSettings(settings models.Settings) error {
	return s.PutJSON(KeySettings, settings)
}

func (s *Store) LoadTheme() (string, error) {
	theme := s.theme
	if _, err := s.GetJSON(KeyTheme, &theme); err != nil {
		return "", err
	}
	return theme, nil
}

func (s *Store) SaveTheme(name string) error {
	return s.PutJSON(KeyTheme, name)
}

func (s *Store) LoadSidebarCollapsed() (bool, error) {
	var collapsed bool
	if _, err := s.GetJSON(KeySidebarCollapsed, &collapsed); err != nil {
		return false, err
	}
	return collapsed, nil
}

func (s *Store) SaveSidebarCollapsed(collapsed bool) error {
	return s.PutJSON(KeySidebarCollapsed, collapsed)
}
