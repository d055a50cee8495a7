package session

import (
	"fmt"
	"strings"

	"duet/internal/export"
	"duet/internal/models"

	"github.com/google/uuid"
)

const (
	DefaultTitle = "New Chat"

	titleLimit   = 30
	previewLimit = 40
)

func (s *Session) findChat(id string) (int, *models.Chat) {
	for i := range s.chats {
		if s.chats[i].ID == id {
			return i, &s.chats[i]
		}
	}
	return -1, nil
}

func (s *Session) current() *models.Chat {
	_, c := s.findChat(s.currentID)
	return c
}

func (s *Session) flushChats() error {
	if err := s.store.SaveChats(s.chats); err != nil {
		return fmt.Errorf("session: save chats: %w", err)
	}
	return nil
}

// CreateChat makes a fresh empty chat current.
func (s *Session) CreateChat() (models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createChat()
}

func (s *Session) createChat() (models.Chat, error) {
	now := s.nowMillis()
	chat := models.Chat{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.chats = append([]models.Chat{chat}, s.chats...)
	s.currentID = chat.ID
	s.hist.Reset()

	s.log.Info("chat created", "chat", chat.ID)
	return chat.Clone(), s.flushChats()
}

// DeleteChat removes a chat. When it was current, the first remaining chat
// is loaded, or a new one is created.
func (s *Session) DeleteChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, _ := s.findChat(id)
	if i < 0 {
		return ErrChatNotFound
	}
	s.chats = append(s.chats[:i], s.chats[i+1:]...)
	s.log.Info("chat deleted", "chat", id)

	if id != s.currentID {
		return s.flushChats()
	}
	if len(s.chats) == 0 {
		_, err := s.createChat()
		return err
	}
	s.loadChat(s.chats[0].ID)
	return s.flushChats()
}

// LoadChat makes id current and rebuilds both histories from its transcript.
func (s *Session) LoadChat(id string) (models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, c := s.findChat(id); c == nil {
		return models.Chat{}, ErrChatNotFound
	}
	return s.loadChat(id), nil
}

func (s *Session) loadChat(id string) models.Chat {
	_, c := s.findChat(id)
	s.currentID = id
	s.hist.Rebuild(c.Messages, c.Selections)
	return c.Clone()
}

func (s *Session) RenameChat(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	_, c := s.findChat(id)
	if c == nil {
		return ErrChatNotFound
	}
	c.Title = title
	c.UpdatedAt = s.nowMillis()
	return s.flushChats()
}

// Current returns a copy of the current chat.
func (s *Session) Current() models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.current(); c != nil {
		return c.Clone()
	}
	return models.Chat{}
}

// Chats returns copies of every chat, newest first.
func (s *Session) Chats() []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = c.Clone()
	}
	return out
}

// ChatList summarises the chats for the sidebar.
func (s *Session) ChatList() []models.ChatListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.ChatListItem, 0, len(s.chats))
	for _, c := range s.chats {
		items = append(items, models.ChatListItem{
			ID:            c.ID,
			Title:         c.Title,
			Preview:       preview(c),
			UpdatedAtUnix: c.UpdatedAt / 1000,
			Current:       c.ID == s.currentID,
		})
	}
	return items
}

// Histories returns copies of both live histories.
func (s *Session) Histories() map[models.ModelID][]models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[models.ModelID][]models.HistoryEntry, len(models.AllModels))
	for _, id := range models.AllModels {
		out[id] = s.hist.History(id)
	}
	return out
}

// ExportCurrent writes the current chat as a JSON document into dir.
func (s *Session) ExportCurrent(dir string) (string, error) {
	chat := s.Current()
	path, err := export.Write(dir, chat, s.opts.Now())
	if err != nil {
		return "", err
	}
	s.log.Info("chat exported", "chat", chat.ID, "path", path)
	return path, nil
}

// ImportChat adds an exported chat document and makes it current.
func (s *Session) ImportChat(data []byte) (models.Chat, error) {
	chat, err := export.Unmarshal(data)
	if err != nil {
		return models.Chat{}, err
	}
	return s.importChat(chat)
}

// ImportFile imports the exported document at path.
func (s *Session) ImportFile(path string) (models.Chat, error) {
	chat, err := export.ReadFile(path)
	if err != nil {
		return models.Chat{}, err
	}
	return s.importChat(chat)
}

func (s *Session) importChat(chat models.Chat) (models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, c := s.findChat(chat.ID); chat.ID == "" || c != nil {
		chat.ID = uuid.NewString()
	}
	if strings.TrimSpace(chat.Title) == "" {
		chat.Title = DefaultTitle
	}
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	now := s.nowMillis()
	if chat.CreatedAt == 0 {
		chat.CreatedAt = now
	}
	if chat.UpdatedAt == 0 {
		chat.UpdatedAt = now
	}

	s.chats = append([]models.Chat{chat}, s.chats...)
	loaded := s.loadChat(chat.ID)
	s.log.Info("chat imported", "chat", chat.ID, "messages", len(chat.Messages))
	return loaded, s.flushChats()
}

// titleFrom derives a chat title from its first user message.
func titleFrom(text string) string {
	r := []rune(text)
	if len(r) <= titleLimit {
		return text
	}
	return string(r[:titleLimit]) + "..."
}

func preview(c models.Chat) string {
	if len(c.Messages) == 0 {
		return "No messages yet"
	}
	text := strings.Join(strings.Fields(c.Messages[len(c.Messages)-1].Content), " ")
	r := []rune(text)
	if len(r) <= previewLimit {
		return text
	}
	return string(r[:previewLimit]) + "..."
}
