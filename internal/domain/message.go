package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type MessageID int64

// Message is the canonical stored form of a chat line. ID and CreatedAt are
// assigned by the store.
type Message struct {
	ID        MessageID `json:"id"`
	RoomID    RoomID    `json:"room"`
	Author    User      `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"ts"`
}

// NormalizeContent trims surrounding whitespace and rejects empty content.
// maxLen counts runes; zero means unlimited.
func NormalizeContent(raw string, maxLen int) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if maxLen > 0 && utf8.RuneCountInString(content) > maxLen {
		return "", ErrMessageTooLong
	}
	return content, nil
}
