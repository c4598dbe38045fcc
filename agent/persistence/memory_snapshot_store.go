package persistence

import (
	"context"
	"sync"
)

// MemorySnapshotStore keeps snapshots in process memory.
// Suitable for development and testing; data is lost on restart.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots []*Snapshot
	retention int
	closed    bool
}

// NewMemorySnapshotStore creates a new in-memory snapshot store
func NewMemorySnapshotStore(config StoreConfig) *MemorySnapshotStore {
	return &MemorySnapshotStore{retention: config.Retention}
}

// Close closes the store
func (s *MemorySnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy
func (s *MemorySnapshotStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Save stores a deep copy of snap.
func (s *MemorySnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := prepareSnapshot(snap); err != nil {
		return err
	}
	c, err := cloneSnapshot(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.snapshots = append(s.snapshots, c)
	if s.retention > 0 && len(s.snapshots) > s.retention {
		s.snapshots = append([]*Snapshot(nil), s.snapshots[len(s.snapshots)-s.retention:]...)
	}
	return nil
}

// Get returns a copy of the snapshot with id.
func (s *MemorySnapshotStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	for _, snap := range s.snapshots {
		if snap.ID == id {
			return cloneSnapshot(snap)
		}
	}
	return nil, ErrNotFound
}

// Latest returns a copy of the newest snapshot.
func (s *MemorySnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if len(s.snapshots) == 0 {
		return nil, ErrNotFound
	}
	return cloneSnapshot(s.snapshots[len(s.snapshots)-1])
}

// List returns snapshot IDs, newest first.
func (s *MemorySnapshotStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	ids := make([]string, 0, len(s.snapshots))
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		ids = append(ids, s.snapshots[i].ID)
	}
	return ids, nil
}
