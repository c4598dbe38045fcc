package conversation

import (
	"github.com/OTFiles/CosmoSynthAI/types"
)

// SystemChannel is the history log key for system notices.
const SystemChannel = "#system"

// historyLog is the append-only per-channel record of routed posts.
type historyLog struct {
	entries map[string][]types.HistoryEntry
}

func newHistoryLog() *historyLog {
	return &historyLog{entries: make(map[string][]types.HistoryEntry)}
}

func (h *historyLog) Append(channel, agent, content string) types.HistoryEntry {
	e := types.NewHistoryEntry(channel, agent, content)
	h.entries[channel] = append(h.entries[channel], e)
	return e
}

// Recent returns a copy of the last n entries of channel (all when n <= 0).
func (h *historyLog) Recent(channel string, n int) []types.HistoryEntry {
	all := h.entries[channel]
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	if len(all) == 0 {
		return nil
	}
	out := make([]types.HistoryEntry, len(all))
	copy(out, all)
	return out
}

func (h *historyLog) snapshot() map[string][]types.HistoryEntry {
	out := make(map[string][]types.HistoryEntry, len(h.entries))
	for ch, entries := range h.entries {
		out[ch] = append([]types.HistoryEntry(nil), entries...)
	}
	return out
}

func (h *historyLog) restore(entries map[string][]types.HistoryEntry) {
	h.entries = make(map[string][]types.HistoryEntry, len(entries))
	for ch, list := range entries {
		h.entries[ch] = append([]types.HistoryEntry(nil), list...)
	}
}
