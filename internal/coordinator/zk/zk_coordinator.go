package zk

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	coordinator "cadbridge/internal/coordinator/iface"
	"cadbridge/internal/logger"

	"github.com/go-zookeeper/zk"
)

type zkCoordinator struct {
	conn   *zk.Conn
	logger logger.Logger
}

// NewZKCoordinator creates a new ZooKeeper coordinator
func NewZKCoordinator(servers []string, sessionTimeout time.Duration, log logger.Logger) (coordinator.Coordinator, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	log.Info("connected to zookeeper",
		logger.Any("servers", servers),
	)

	return &zkCoordinator{
		conn:   conn,
		logger: log.With(logger.String("component", "zk_coordinator")),
	}, nil
}

// TryAcquire creates an ephemeral node at lockPath. The node disappears with the session, so
// a crashed holder never keeps the lock.
func (c *zkCoordinator) TryAcquire(ctx context.Context, lockPath string, owner []byte) (coordinator.Lock, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if err := c.ensureParentPath(lockPath); err != nil {
		return nil, false, err
	}

	_, err := c.conn.Create(lockPath, owner, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if errors.Is(err, zk.ErrNodeExists) {
		c.logger.Debug("lock held by another process", logger.String("path", lockPath))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create lock node: %w", err)
	}

	c.logger.Debug("lock acquired", logger.String("path", lockPath))
	return &zkLock{conn: c.conn, path: lockPath, logger: c.logger}, true, nil
}

func (c *zkCoordinator) Holder(lockPath string) ([]byte, error) {
	data, _, err := c.conn.Get(lockPath)
	if errors.Is(err, zk.ErrNoNode) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return data, nil
}

func (c *zkCoordinator) Close() error {
	c.logger.Info("closing zookeeper connection")
	c.conn.Close()
	return nil
}

// ensureParentPath creates the persistent parents of p if they don't exist
func (c *zkCoordinator) ensureParentPath(p string) error {
	parent := path.Dir(p)
	if parent == "/" || parent == "." {
		return nil
	}

	exists, _, err := c.conn.Exists(parent)
	if err != nil {
		return fmt.Errorf("failed to check parent path: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.ensureParentPath(parent); err != nil {
		return err
	}

	_, err = c.conn.Create(parent, []byte{}, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("failed to create parent path: %w", err)
	}
	return nil
}

type zkLock struct {
	conn   *zk.Conn
	path   string
	logger logger.Logger
}

func (l *zkLock) Release() error {
	err := l.conn.Delete(l.path, -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.logger.Debug("lock released", logger.String("path", l.path))
	return nil
}
