package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/types"
	"github.com/google/uuid"
)

// PriorityRecord is one queued forced-speaker task.
type PriorityRecord struct {
	Agent  string `json:"agent"`
	Tier   string `json:"tier"`
	Reason string `json:"reason,omitempty"`
}

// Snapshot is a point-in-time copy of the whole conversation state.
type Snapshot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Round            int    `json:"round"`
	LastRotation     int    `json:"last_rotation"`
	LastSpeaker      string `json:"last_speaker,omitempty"`
	OpeningDelivered bool   `json:"opening_delivered"`

	Priority    []PriorityRecord                `json:"priority,omitempty"`
	Transcripts map[string][]types.Message      `json:"transcripts"`
	History     map[string][]types.HistoryEntry `json:"history"`
	Topology    topology.State                  `json:"topology"`
}

// SnapshotStore persists conversation snapshots.
type SnapshotStore interface {
	Store

	// Save persists snap, assigning an ID and creation time when missing.
	Save(ctx context.Context, snap *Snapshot) error

	// Get returns the snapshot with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// Latest returns the most recently saved snapshot, or ErrNotFound.
	Latest(ctx context.Context) (*Snapshot, error)

	// List returns snapshot IDs, newest first.
	List(ctx context.Context) ([]string, error)
}

func prepareSnapshot(snap *Snapshot) error {
	if snap == nil {
		return ErrInvalidInput
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	return nil
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// cloneSnapshot deep-copies through the wire encoding.
func cloneSnapshot(snap *Snapshot) (*Snapshot, error) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}
