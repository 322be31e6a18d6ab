package noop

import (
	"context"
	"sync"

	coordinator "cadbridge/internal/coordinator/iface"
)

type noopCoordinator struct {
	mu   sync.Mutex
	held map[string][]byte
}

// NewNoopCoordinator provides in-process locking for single-instance deployments.
func NewNoopCoordinator() coordinator.Coordinator {
	return &noopCoordinator{held: make(map[string][]byte)}
}

func (c *noopCoordinator) TryAcquire(ctx context.Context, path string, owner []byte) (coordinator.Lock, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.held[path]; ok {
		return nil, false, nil
	}
	c.held[path] = owner
	return &noopLock{c: c, path: path}, true, nil
}

func (c *noopCoordinator) Holder(path string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held[path], nil
}

func (c *noopCoordinator) Close() error { return nil }

type noopLock struct {
	c    *noopCoordinator
	path string
	once sync.Once
}

func (l *noopLock) Release() error {
	l.once.Do(func() {
		l.c.mu.Lock()
		delete(l.c.held, l.path)
		l.c.mu.Unlock()
	})
	return nil
}
