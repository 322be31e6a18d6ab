package local

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"cadbridge/internal/logger"
	transfer "cadbridge/internal/transfer/iface"
)

type localTransport struct {
	baseDir string
	logger  logger.Logger

	mu      sync.Mutex
	created map[string]bool
}

// NewLocalTransport writes documents below baseDir. Used for development and as a drop folder
// picked up by an external file-transfer agent.
func NewLocalTransport(baseDir string, log logger.Logger) (transfer.Transport, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	return &localTransport{
		baseDir: baseDir,
		logger:  log.With(logger.String("component", "local_transport")),
		created: make(map[string]bool),
	}, nil
}

func (t *localTransport) Name() string {
	return "local:" + t.baseDir
}

func (t *localTransport) Store(ctx context.Context, data []byte, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return transfer.Classify(err)
	}

	target, err := t.resolve(remotePath)
	if err != nil {
		return err
	}

	if err := t.ensureDir(filepath.Dir(target)); err != nil {
		return err
	}

	// Write to a temp file first so a reader never sees a partial document.
	tmp := target + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return transfer.Classify(fmt.Errorf("failed to write %s: %w", tmp, err))
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return transfer.Classify(fmt.Errorf("failed to rename %s: %w", tmp, err))
	}

	t.logger.Debug("document stored", logger.String("path", target), logger.Int("bytes", len(data)))
	return nil
}

func (t *localTransport) resolve(remotePath string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(remotePath))
	if clean == "/" {
		return "", transfer.NewError(transfer.CodeInvalidPath, false, fmt.Errorf("empty remote path"))
	}
	return filepath.Join(t.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (t *localTransport) ensureDir(dir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.created[dir] {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return transfer.Classify(fmt.Errorf("failed to create %s: %w", dir, err))
	}
	t.created[dir] = true
	t.logger.Info("created export directory", logger.String("dir", dir))
	return nil
}
