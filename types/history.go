package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one post appended to a channel's history log.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Agent     string    `json:"agent"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHistoryEntry creates an entry with a fresh ID.
func NewHistoryEntry(channel, agent, content string) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		Channel:   channel,
		Agent:     agent,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// RenderHistory renders entries as "agent: content" lines.
func RenderHistory(entries []HistoryEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Agent+": "+e.Content)
	}
	return strings.Join(lines, "\n")
}
