package persistence

import "fmt"

// NewSnapshotStore creates a new SnapshotStore based on the configuration
func NewSnapshotStore(config StoreConfig) (SnapshotStore, error) {
	switch config.Type {
	case StoreTypeMemory, "":
		return NewMemorySnapshotStore(config), nil
	case StoreTypeFile:
		return NewFileSnapshotStore(config)
	case StoreTypeRedis:
		return NewRedisSnapshotStore(config)
	default:
		return nil, fmt.Errorf("unsupported snapshot store type: %s", config.Type)
	}
}
