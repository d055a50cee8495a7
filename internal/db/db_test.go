package db

import (
	"path/filepath"
	"testing"
	"time"

	"duet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "duet.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_Defaults(t *testing.T) {
	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)
	defaults := models.Settings{Model1Enabled: true, APIURL1: "u1"}
	st := openTestStore(t, WithDefaultSettings(defaults), WithClock(func() time.Time { return day }))

	chats, err := st.LoadChats()
	require.NoError(t, err)
	assert.Empty(t, chats)
	assert.NotNil(t, chats)

	usage, err := st.LoadTokenUsage()
	require.NoError(t, err)
	assert.Equal(t, models.TokenUsage{Today: 0, Date: "2026-03-04"}, usage)

	settings, err := st.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, defaults, settings)

	theme, err := st.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, "modern", theme)

	collapsed, err := st.LoadSidebarCollapsed()
	require.NoError(t, err)
	assert.False(t, collapsed)
}

func TestStore_RoundTrip(t *testing.T) {
	st := openTestStore(t)

	chats := []models.Chat{{
		ID:    "c1",
		Title: "Hello",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "Hi"},
			{Role: models.RoleAssistant, Content: "X", Model: models.ModelOne},
			{Role: models.RoleAssistant, Content: "Y", Model: models.ModelTwo},
		},
		Selections: map[int]models.ModelID{1: models.ModelTwo},
		CreatedAt:  1,
		UpdatedAt:  2,
	}}
	require.NoError(t, st.SaveChats(chats))
	require.NoError(t, st.SaveTokenUsage(models.TokenUsage{Today: 42, Date: "2026-03-04"}))
	require.NoError(t, st.SaveTheme("light"))
	require.NoError(t, st.SaveSidebarCollapsed(true))

	got, err := st.LoadChats()
	require.NoError(t, err)
	assert.Equal(t, chats, got)

	usage, err := st.LoadTokenUsage()
	require.NoError(t, err)
	assert.Equal(t, 42, usage.Today)

	theme, err := st.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, "light", theme)

	collapsed, err := st.LoadSidebarCollapsed()
	require.NoError(t, err)
	assert.True(t, collapsed)
}

func TestStore_Overwrite(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.SaveChats([]models.Chat{{ID: "a"}, {ID: "b"}}))
	require.NoError(t, st.SaveChats([]models.Chat{{ID: "b"}}))

	got, err := st.LoadChats()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestStore_CorruptBlob(t *testing.T) {
	st := openTestStore(t)

	_, err := st.Exec("INSERT INTO kv(key, value, updated_at) VALUES(?, ?, 0)", KeyChats, "{not json")
	require.NoError(t, err)

	_, err = st.LoadChats()
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyChats)
}
