package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSnapshotStore 是基于文件的 SnapshotStore 实现。
// 每个快照一个 JSON 文件，index.json 按保存顺序记录快照 ID。
// 适合单节点部署.
type FileSnapshotStore struct {
	baseDir   string
	index     []string // oldest first
	retention int
	mu        sync.RWMutex
	closed    bool
}

// NewFileSnapshotStore 创建文件快照存储
func NewFileSnapshotStore(config StoreConfig) (*FileSnapshotStore, error) {
	baseDir := filepath.Join(config.BaseDir, "snapshots")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot store directory: %w", err)
	}

	store := &FileSnapshotStore{
		baseDir:   baseDir,
		retention: config.Retention,
	}
	if err := store.loadIndex(); err != nil {
		return nil, fmt.Errorf("failed to load snapshot index: %w", err)
	}
	return store, nil
}

func (s *FileSnapshotStore) indexPath() string {
	return filepath.Join(s.baseDir, "index.json")
}

func (s *FileSnapshotStore) snapshotPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileSnapshotStore) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.index)
}

// writeAtomic 写入临时文件后重命名
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Close 关闭存储
func (s *FileSnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping 检查存储是否可用
func (s *FileSnapshotStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Save 写入快照文件并更新索引，超出保留数量的旧快照会被删除
func (s *FileSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := prepareSnapshot(snap); err != nil {
		return err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	if err := writeAtomic(s.snapshotPath(snap.ID), data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	index := append(append([]string(nil), s.index...), snap.ID)
	var expired []string
	if s.retention > 0 && len(index) > s.retention {
		expired = index[:len(index)-s.retention]
		index = index[len(index)-s.retention:]
	}

	indexData, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot index: %w", err)
	}
	if err := writeAtomic(s.indexPath(), indexData); err != nil {
		return fmt.Errorf("failed to write snapshot index: %w", err)
	}
	s.index = index

	for _, id := range expired {
		_ = os.Remove(s.snapshotPath(id))
	}
	return nil
}

// Get 读取指定快照
func (s *FileSnapshotStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.read(id)
}

func (s *FileSnapshotStore) read(id string) (*Snapshot, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, ErrInvalidInput
	}
	data, err := os.ReadFile(s.snapshotPath(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// Latest 读取最新快照
func (s *FileSnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if len(s.index) == 0 {
		return nil, ErrNotFound
	}
	return s.read(s.index[len(s.index)-1])
}

// List 返回快照 ID，最新的在前
func (s *FileSnapshotStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	ids := make([]string, 0, len(s.index))
	for i := len(s.index) - 1; i >= 0; i-- {
		ids = append(ids, s.index[i])
	}
	return ids, nil
}
