package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore is a Redis-based implementation of SnapshotStore.
// Snapshots are stored as JSON strings, indexed by a sorted set scored
// by creation time.
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
	retention int
}

// NewRedisSnapshotStore creates a new Redis-based snapshot store
func NewRedisSnapshotStore(config StoreConfig) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port),
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
		PoolSize: config.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSnapshotStoreWithClient(client, config), nil
}

// NewRedisSnapshotStoreWithClient wraps an existing client. The store owns
// the client and closes it on Close.
func NewRedisSnapshotStoreWithClient(client *redis.Client, config StoreConfig) *RedisSnapshotStore {
	keyPrefix := config.Redis.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "cosmosynth:"
	}
	return &RedisSnapshotStore{
		client:    client,
		keyPrefix: keyPrefix + "snapshot:",
		retention: config.Retention,
	}
}

// Close closes the store
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSnapshotStore) dataKey(id string) string {
	return s.keyPrefix + "data:" + id
}

func (s *RedisSnapshotStore) indexKey() string {
	return s.keyPrefix + "index"
}

// Save persists a snapshot and trims the index to the retention limit
func (s *RedisSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := prepareSnapshot(snap); err != nil {
		return err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.dataKey(snap.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(snap.CreatedAt.UnixNano()), Member: snap.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if s.retention <= 0 {
		return nil
	}
	return s.trim(ctx)
}

func (s *RedisSnapshotStore) trim(ctx context.Context) error {
	count, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to count snapshots: %w", err)
	}
	excess := count - int64(s.retention)
	if excess <= 0 {
		return nil
	}

	expired, err := s.client.ZRange(ctx, s.indexKey(), 0, excess-1).Result()
	if err != nil {
		return fmt.Errorf("failed to list expired snapshots: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range expired {
		pipe.Del(ctx, s.dataKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to trim snapshots: %w", err)
	}
	return nil
}

// Get retrieves a snapshot by ID
func (s *RedisSnapshotStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.dataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

// Latest retrieves the newest snapshot
func (s *RedisSnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot index: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, ids[0])
}

// List returns snapshot IDs, newest first
func (s *RedisSnapshotStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot index: %w", err)
	}
	return ids, nil
}
