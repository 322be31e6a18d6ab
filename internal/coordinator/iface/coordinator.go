package coordinator

import "context"

// DefaultWriterLockPath guards the sheet and export writers.
const DefaultWriterLockPath = "/cadbridge/locks/writer"

// Coordinator provides cross-process exclusion for the export writers.
type Coordinator interface {
	// TryAcquire takes the lock at path without waiting. ok is false when another process holds
	// it. owner is stored on the lock node for operators.
	TryAcquire(ctx context.Context, path string, owner []byte) (lock Lock, ok bool, err error)
	// Holder returns the owner data of the lock at path, or nil when it is free.
	Holder(path string) ([]byte, error)
	Close() error
}

type Lock interface {
	Release() error
}
