package ui

import (
	"fmt"
	"strings"
	"time"

	"duet/internal/styles"

	"github.com/mattn/go-runewidth"
)

// WrappedLineCount returns how many terminal rows value takes when wrapped
// at width cells.
func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return 1
	}
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

func PromptPreview(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func RelativeTime(t time.Time) string {
	return relativeTo(time.Now(), t)
}

func relativeTo(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	}
	if d < 24*time.Hour {
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1 hr ago"
		}
		return fmt.Sprintf("%d hrs ago", hrs)
	}
	days := int(d.Hours() / 24)
	if days < 14 {
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	weeks := days / 7
	if weeks == 1 {
		return "1 week ago"
	}
	return fmt.Sprintf("%d weeks ago", weeks)
}

func FormatUserMessage(content string, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	msg := styles.UserMsgStyle.Width(width - 4).Render(content)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

// FormatAIMessage frames a reply from the model in slot under a rendered label.
func FormatAIMessage(slot int, label, content string) string {
	msg := styles.AiMsgStyle(slot).Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

// FormatUntaggedMessage frames an imported reply that names no model.
func FormatUntaggedMessage(content string) string {
	label := styles.UntaggedLabelStyle.Render("ASSISTANT")
	msg := styles.UntaggedMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}
