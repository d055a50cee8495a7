// Package export turns a single chat into a standalone JSON document and
// back.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"duet/internal/models"
)

// Extension of exported files.
const Extension = ".json"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Marshal encodes chat as an indented JSON document.
func Marshal(chat models.Chat) ([]byte, error) {
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	return json.MarshalIndent(chat, "", "  ")
}

// FileName builds the export file name from the chat title and now.
func FileName(title string, now time.Time) string {
	return fmt.Sprintf("%s_%d%s", unsafeChars.ReplaceAllString(title, "_"), now.UnixMilli(), Extension)
}

// Write saves chat into dir and returns the file path.
func Write(dir string, chat models.Chat, now time.Time) (string, error) {
	data, err := Marshal(chat)
	if err != nil {
		return "", fmt.Errorf("export: encode chat: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(chat.Title, now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write file: %w", err)
	}
	return path, nil
}

// Unmarshal parses an exported document. Messages with an unknown role are
// rejected; an unknown model tag is dropped.
func Unmarshal(data []byte) (models.Chat, error) {
	var chat models.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return models.Chat{}, fmt.Errorf("export: decode chat: %w", err)
	}
	if chat.Messages == nil {
		return models.Chat{}, errors.New("export: document has no messages field")
	}
	for i, m := range chat.Messages {
		switch m.Role {
		case models.RoleUser:
			chat.Messages[i].Model = ""
		case models.RoleAssistant:
			if m.Model != "" && !m.Model.Valid() {
				chat.Messages[i].Model = ""
			}
		default:
			return models.Chat{}, fmt.Errorf("export: message %d has unknown role %q", i, m.Role)
		}
	}
	for turn, id := range chat.Selections {
		if !id.Valid() {
			delete(chat.Selections, turn)
		}
	}
	return chat, nil
}

// ReadFile loads an exported document from path.
func ReadFile(path string) (models.Chat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Chat{}, fmt.Errorf("export: read file: %w", err)
	}
	return Unmarshal(data)
}
