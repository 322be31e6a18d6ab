package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get and HGet when the key or field is absent.
var ErrKeyNotFound = errors.New("key not found")

func IsKeyNotFoundError(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// Cache defines the interface for cache operations (Redis)
type Cache interface {
	// Basic operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	// Hash operations (for the shared fingerprint table)
	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HLen(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
