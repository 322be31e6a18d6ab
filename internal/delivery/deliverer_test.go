package delivery

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"cadbridge/internal/logger"
	transfer "cadbridge/internal/transfer/iface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport returns the queued errors in order, then succeeds.
type scriptedTransport struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	stored map[string][]byte
}

func (s *scriptedTransport) Name() string { return "fake" }

func (s *scriptedTransport) Store(ctx context.Context, data []byte, remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	if s.stored == nil {
		s.stored = map[string][]byte{}
	}
	s.stored[remotePath] = data
	return nil
}

type fakeClock struct {
	now    time.Time
	delays []time.Duration
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.delays = append(c.delays, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestDeliverer(tr transfer.Transport, naming Naming, policy RetryPolicy) (*Deliverer, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)}
	d := NewDeliverer(tr, NewMemoryStore(), naming, policy, logger.NewNopLogger())
	d.sleep = clock.sleep
	d.now = func() time.Time { return clock.now }
	return d, clock
}

var exportedAt = time.Date(2025, 5, 5, 21, 0, 0, 0, time.UTC)

func retryable() error {
	return transfer.NewError(transfer.CodeTimeout, true, errors.New("i/o timeout"))
}

func TestDeliver_FingerprintDedup(t *testing.T) {
	tr := &scriptedTransport{}
	d, _ := newTestDeliverer(tr, Naming{Policy: NamingStable, Dir: "exports"}, DefaultRetryPolicy())
	ctx := context.Background()

	res, err := d.Deliver(ctx, "198513", []byte("<a/>"), exportedAt)
	require.NoError(t, err)
	assert.Equal(t, StatusTransferred, res.Status)
	assert.Equal(t, "exports/incident_198513.xml", res.Path)
	assert.Equal(t, 1, res.Attempts)

	res, err = d.Deliver(ctx, "198513", []byte("<a/>"), exportedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.Equal(t, 1, tr.calls)

	res, err = d.Deliver(ctx, "198513", []byte("<b/>"), exportedAt)
	require.NoError(t, err)
	assert.Equal(t, StatusTransferred, res.Status)
	assert.Equal(t, 2, tr.calls)

	n, err := d.ClearFingerprints(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err = d.Deliver(ctx, "198513", []byte("<b/>"), exportedAt)
	require.NoError(t, err)
	assert.Equal(t, StatusTransferred, res.Status)
	assert.Equal(t, 3, tr.calls)
}

func TestDeliver_UniqueNamingStillDedups(t *testing.T) {
	tr := &scriptedTransport{}
	d, _ := newTestDeliverer(tr, Naming{Policy: NamingUnique}, DefaultRetryPolicy())
	ctx := context.Background()

	res, err := d.Deliver(ctx, "7", []byte("x"), exportedAt)
	require.NoError(t, err)
	assert.Equal(t, "call_7_1746478800000.xml", res.Path)

	res, err = d.Deliver(ctx, "7", []byte("x"), exportedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.Equal(t, 1, tr.calls)
}

func TestDeliver_RetryBoundWithMonotonicBackoff(t *testing.T) {
	tr := &scriptedTransport{errs: []error{retryable(), retryable(), retryable(), retryable(), retryable(), retryable()}}
	policy := RetryPolicy{MaxRetries: 4, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	d, clock := newTestDeliverer(tr, Naming{Policy: NamingStable}, policy)

	res, err := d.Deliver(context.Background(), "1", []byte("x"), exportedAt)
	require.Error(t, err)
	assert.True(t, IsRetryBudgetExhaustedError(err))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, transfer.CodeTimeout, res.ErrorCode)

	assert.Equal(t, policy.MaxRetries+1, tr.calls)
	assert.Equal(t, policy.MaxRetries+1, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}, clock.delays)
	for i := 1; i < len(clock.delays); i++ {
		assert.GreaterOrEqual(t, clock.delays[i], clock.delays[i-1])
		assert.LessOrEqual(t, clock.delays[i], policy.MaxDelay)
	}

	_, ok, _ := d.store.Get(context.Background(), d.fingerprintKey("1", exportedAt))
	assert.False(t, ok, "fingerprint must not be recorded on failure")
}

func TestDeliver_RecoversAfterTransientFailures(t *testing.T) {
	tr := &scriptedTransport{errs: []error{retryable(), errors.New("connection reset")}}
	d, clock := newTestDeliverer(tr, Naming{Policy: NamingStable}, DefaultRetryPolicy())

	res, err := d.Deliver(context.Background(), "1", []byte("x"), exportedAt)
	require.NoError(t, err)
	assert.Equal(t, StatusTransferred, res.Status)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, clock.delays, 2)
}

func TestDeliver_NonRetryableShortCircuits(t *testing.T) {
	for _, code := range []string{transfer.CodeAuthInvalid, transfer.CodePermissionDenied, transfer.CodeBucketNotFound} {
		t.Run(code, func(t *testing.T) {
			tr := &scriptedTransport{errs: []error{transfer.NewError(code, false, errors.New("denied"))}}
			d, clock := newTestDeliverer(tr, Naming{Policy: NamingStable}, DefaultRetryPolicy())

			res, err := d.Deliver(context.Background(), "1", []byte("x"), exportedAt)
			require.Error(t, err)
			assert.False(t, IsRetryBudgetExhaustedError(err))
			assert.Equal(t, StatusFailed, res.Status)
			assert.Equal(t, code, res.ErrorCode)
			assert.Equal(t, 1, tr.calls)
			assert.Empty(t, clock.delays)
		})
	}
}

func TestDeliver_ElapsedBudget(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = retryable()
	}
	tr := &scriptedTransport{errs: errs}
	policy := RetryPolicy{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: time.Minute, MaxElapsed: 10 * time.Second}
	d, clock := newTestDeliverer(tr, Naming{Policy: NamingStable}, policy)

	_, err := d.Deliver(context.Background(), "1", []byte("x"), exportedAt)
	require.Error(t, err)
	assert.True(t, IsRetryBudgetExhaustedError(err))

	// 1s + 2s + 4s = 7s slept; the next 8s delay would exceed 10s.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, clock.delays)
	assert.Equal(t, 4, tr.calls)
}

func TestDeliver_CancelledWhileWaiting(t *testing.T) {
	tr := &scriptedTransport{errs: []error{retryable()}}
	d := NewDeliverer(tr, NewMemoryStore(), Naming{Policy: NamingStable}, RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour}, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Deliver(ctx, "1", []byte("x"), exportedAt)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 1, tr.calls)
}

type failingStore struct{ FingerprintStore }

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis down")
}

func (failingStore) Put(context.Context, string, string) error {
	return errors.New("redis down")
}

func TestDeliver_FingerprintStoreFailureDoesNotBlockTransfer(t *testing.T) {
	tr := &scriptedTransport{}
	d := NewDeliverer(tr, failingStore{}, Naming{Policy: NamingStable}, DefaultRetryPolicy(), logger.NewNopLogger())

	res, err := d.Deliver(context.Background(), "1", []byte("x"), exportedAt)
	require.NoError(t, err)
	assert.Equal(t, StatusTransferred, res.Status)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "2d711642b726b04401627ca9fbac32f5c8530fb1903cc4db02258717921a4881", Fingerprint([]byte("x")))
	assert.NotEqual(t, Fingerprint([]byte("x")), Fingerprint([]byte("x ")))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 500 * time.Millisecond, MaxDelay: 3 * time.Second}
	assert.Equal(t, 500*time.Millisecond, p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 3*time.Second, p.Delay(3))
	assert.Equal(t, 3*time.Second, p.Delay(60))
	assert.Equal(t, 500*time.Millisecond, p.Delay(-1))
}

func TestRetryPolicy_DelayUncappedNeverWraps(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second}
	prev := p.Delay(0)
	for attempt := 1; attempt <= 100; attempt++ {
		d := p.Delay(attempt)
		require.Positive(t, d, "attempt %d", attempt)
		require.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
	assert.Equal(t, time.Duration(math.MaxInt64), p.Delay(100))
}

func TestNaming(t *testing.T) {
	stable := Naming{Policy: NamingStable, Dir: "/out/"}
	assert.Equal(t, "out/incident_42.xml", stable.Path("42", exportedAt))
	assert.Equal(t, stable.Path("42", exportedAt), stable.Destination("42", exportedAt))

	unique := Naming{Policy: NamingUnique, Dir: "out"}
	assert.Equal(t, "out/call_42_1746478800000.xml", unique.Path("42", exportedAt))
	assert.Equal(t, "out/call_42_*.xml", unique.Destination("42", exportedAt))

}
