package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

const (
	CodeEndpointUnreachable = "E_ENDPOINT_UNREACHABLE"
	CodeAuthInvalid         = "E_AUTH_INVALID"
	CodeBucketNotFound      = "E_BUCKET_NOT_FOUND"
	CodePermissionDenied    = "E_PERMISSION_DENIED"
	CodeTimeout             = "E_TIMEOUT"
	CodeCancelled           = "E_CANCELLED"
	CodeInvalidPath         = "E_INVALID_PATH"
	CodeServerError         = "E_SERVER_ERROR"
	CodeWriteFailed         = "E_WRITE_FAILED"
)

// Error wraps transport failures with a retryability hint.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// IsRetryable reports whether another attempt may succeed. Errors that carry no
// classification are treated as transient; cancellation never is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Retryable
	}
	return true
}

// CodeOf returns the classification code of err, or CodeWriteFailed when it has none.
func CodeOf(err error) string {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Code
	}
	return CodeWriteFailed
}

// Classify maps generic I/O failures onto the taxonomy. Already classified errors pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var terr *Error
	if errors.As(err, &terr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return NewError(CodeCancelled, false, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return NewError(CodeTimeout, true, err)
	case errors.Is(err, os.ErrPermission):
		return NewError(CodePermissionDenied, false, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(CodeTimeout, true, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewError(CodeEndpointUnreachable, true, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewError(CodeEndpointUnreachable, true, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return NewError(CodeTimeout, true, err)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "unreachable"), strings.Contains(msg, "no such host"):
		return NewError(CodeEndpointUnreachable, true, err)
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "permission denied"):
		return NewError(CodePermissionDenied, false, err)
	}

	return NewError(CodeWriteFailed, true, err)
}
