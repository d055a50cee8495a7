package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWrappedLineCount(t *testing.T) {
	tests := []struct {
		name  string
		value string
		width int
		want  int
	}{
		{"empty", "", 10, 1},
		{"fits", "hello", 10, 1},
		{"exact", "0123456789", 10, 1},
		{"wraps", "0123456789a", 10, 2},
		{"newlines", "a\n\nb", 10, 3},
		{"wide runes", "日本語日本語", 4, 3},
		{"zero width", "anything", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WrappedLineCount(tt.value, tt.width))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", TruncateRunes("short", 10))
	assert.Equal(t, "abcd…", TruncateRunes("abcdefgh", 5))
	assert.Equal(t, "ééé…", TruncateRunes("éééééé", 4))
	assert.Equal(t, "…", TruncateRunes("abc", 1))
	assert.Equal(t, "", TruncateRunes("abc", 0))
}

func TestPromptPreview(t *testing.T) {
	assert.Equal(t, "one two three", PromptPreview("  one\ntwo\r\n   three "))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 min ago"},
		{5 * time.Minute, "5 mins ago"},
		{time.Hour, "1 hr ago"},
		{3 * time.Hour, "3 hrs ago"},
		{24 * time.Hour, "1 day ago"},
		{3 * 24 * time.Hour, "3 days ago"},
		{14 * 24 * time.Hour, "2 weeks ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relativeTo(now, now.Add(-tt.ago)), tt.ago.String())
	}
}

func TestPanelWidth(t *testing.T) {
	assert.Equal(t, 39, panelWidth(88))
	assert.Equal(t, 10, panelWidth(12))
}
