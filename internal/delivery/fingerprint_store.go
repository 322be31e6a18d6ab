package delivery

import (
	"context"
	"fmt"
	"sync"

	cache "cadbridge/internal/cache/iface"
)

// FingerprintStore remembers the content hash last delivered per destination.
type FingerprintStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, fingerprint string) error
	// Clear forgets every entry and returns how many there were.
	Clear(ctx context.Context) (int, error)
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore keeps fingerprints in process memory; they are lost on restart.
func NewMemoryStore() FingerprintStore {
	return &memoryStore{entries: make(map[string]string)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fp, ok := m.entries[key]
	return fp, ok, nil
}

func (m *memoryStore) Put(_ context.Context, key, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = fingerprint
	return nil
}

func (m *memoryStore) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	m.entries = make(map[string]string)
	return n, nil
}

// DefaultRedisHashKey is the hash holding all fingerprints when they are shared through Redis.
const DefaultRedisHashKey = "cadbridge:fingerprints"

type redisStore struct {
	cache   cache.Cache
	hashKey string
}

// NewRedisStore keeps fingerprints in one Redis hash so several processes share them.
func NewRedisStore(c cache.Cache, hashKey string) FingerprintStore {
	if hashKey == "" {
		hashKey = DefaultRedisHashKey
	}
	return &redisStore{cache: c, hashKey: hashKey}
}

func (r *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	fp, err := r.cache.HGet(ctx, r.hashKey, key)
	if cache.IsKeyNotFoundError(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read fingerprint: %w", err)
	}
	return fp, true, nil
}

func (r *redisStore) Put(ctx context.Context, key, fingerprint string) error {
	if err := r.cache.HSet(ctx, r.hashKey, key, fingerprint); err != nil {
		return fmt.Errorf("failed to write fingerprint: %w", err)
	}
	return nil
}

func (r *redisStore) Clear(ctx context.Context) (int, error) {
	n, err := r.cache.HLen(ctx, r.hashKey)
	if err != nil {
		return 0, fmt.Errorf("failed to count fingerprints: %w", err)
	}
	if err := r.cache.Delete(ctx, r.hashKey); err != nil {
		return 0, fmt.Errorf("failed to clear fingerprints: %w", err)
	}
	return int(n), nil
}
