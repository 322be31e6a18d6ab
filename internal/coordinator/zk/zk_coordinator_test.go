package zk

import (
	"context"
	"os"
	"testing"
	"time"

	"cadbridge/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 10 * time.Second

func setupTestCoordinator(t *testing.T) *zkCoordinator {
	if testing.Short() {
		t.Skip("skipping zookeeper integration test in short mode")
	}
	server := os.Getenv("CADBRIDGE_TEST_ZK")
	if server == "" {
		t.Skip("CADBRIDGE_TEST_ZK not set")
	}

	log, err := logger.NewZapLoggerForDev()
	require.NoError(t, err, "failed to create logger")

	coord, err := NewZKCoordinator([]string{server}, testTimeout, log)
	require.NoError(t, err, "failed to connect to zookeeper")
	t.Cleanup(func() { coord.Close() })

	return coord.(*zkCoordinator)
}

func TestTryAcquire_Exclusive(t *testing.T) {
	first := setupTestCoordinator(t)
	second := setupTestCoordinator(t)
	ctx := context.Background()
	lockPath := "/test/cadbridge/locks/writer"

	lock, ok, err := first.TryAcquire(ctx, lockPath, []byte("node-a"))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.TryAcquire(ctx, lockPath, []byte("node-b"))
	require.NoError(t, err)
	assert.False(t, ok, "second session must not get the lock")

	holder, err := second.Holder(lockPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("node-a"), holder)

	require.NoError(t, lock.Release())

	lock, ok, err = second.TryAcquire(ctx, lockPath, []byte("node-b"))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, lock.Release())

	holder, err = first.Holder(lockPath)
	require.NoError(t, err)
	assert.Nil(t, holder)
}

func TestLockReleasedWithSession(t *testing.T) {
	first := setupTestCoordinator(t)
	second := setupTestCoordinator(t)
	ctx := context.Background()
	lockPath := "/test/cadbridge/locks/session"

	_, ok, err := first.TryAcquire(ctx, lockPath, []byte("node-a"))
	require.NoError(t, err)
	require.True(t, ok)

	first.Close()

	assert.Eventually(t, func() bool {
		lock, ok, err := second.TryAcquire(ctx, lockPath, []byte("node-b"))
		if err != nil || !ok {
			return false
		}
		_ = lock.Release()
		return true
	}, testTimeout, 200*time.Millisecond)
}
