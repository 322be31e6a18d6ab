package transfer

import "context"

// Transport delivers one document to a remote location. remotePath is slash separated and
// relative to the transport's root (bucket prefix or base directory). Implementations create
// the containing bucket or directory before the first write to it.
type Transport interface {
	Store(ctx context.Context, data []byte, remotePath string) error
	// Name identifies the transport in logs and fingerprint keys.
	Name() string
}
