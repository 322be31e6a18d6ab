package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, CodeTimeout, true},
		{"cancelled", fmt.Errorf("put: %w", context.Canceled), CodeCancelled, false},
		{"permission", fmt.Errorf("open: %w", os.ErrPermission), CodePermissionDenied, false},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, CodeEndpointUnreachable, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "sftp.example"}, CodeEndpointUnreachable, true},
		{"message timeout", errors.New("i/o timeout while writing"), CodeTimeout, true},
		{"message access denied", errors.New("Access Denied"), CodePermissionDenied, false},
		{"unknown", errors.New("weird"), CodeWriteFailed, true},
		{"already classified", NewError(CodeAuthInvalid, false, errors.New("bad key")), CodeAuthInvalid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.err)
			assert.Equal(t, tt.code, CodeOf(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Classify(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", NewError(CodePermissionDenied, false, nil))))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", NewError(CodeTimeout, true, nil))))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "E_TIMEOUT", NewError(CodeTimeout, true, nil).Error())
	assert.Equal(t, "E_TIMEOUT: slow", NewError(CodeTimeout, true, errors.New("slow")).Error())
}
