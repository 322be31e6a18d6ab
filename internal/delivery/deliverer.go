package delivery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"cadbridge/internal/logger"
	transfer "cadbridge/internal/transfer/iface"
)

type Status string

const (
	StatusTransferred Status = "TRANSFERRED"
	StatusUnchanged   Status = "UNCHANGED"
	StatusFailed      Status = "FAILED"
)

// ErrRetryBudgetExhausted is returned when retryable failures outlast the retry policy.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

func IsRetryBudgetExhaustedError(err error) bool {
	return errors.Is(err, ErrRetryBudgetExhausted)
}

type Result struct {
	Status      Status `json:"status"`
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Attempts    int    `json:"attempts"`
	ErrorCode   string `json:"error_code,omitempty"`
}

// Deliverer sends documents through a transport, skipping content already delivered to the
// same destination and retrying transient failures.
type Deliverer struct {
	transport transfer.Transport
	store     FingerprintStore
	naming    Naming
	policy    RetryPolicy
	logger    logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewDeliverer(transport transfer.Transport, store FingerprintStore, naming Naming, policy RetryPolicy, log logger.Logger) *Deliverer {
	if store == nil {
		store = NewMemoryStore()
	}
	if !naming.Policy.Valid() {
		naming.Policy = NamingStable
	}
	return &Deliverer{
		transport: transport,
		store:     store,
		naming:    naming,
		policy:    policy,
		logger:    log.With(logger.String("component", "deliverer"), logger.String("transport", transport.Name())),
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Fingerprint is the hex SHA-256 of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Deliver stores data for callID. The fingerprint is recorded only after a successful transfer,
// so a failed delivery is retried in full on the next call.
func (d *Deliverer) Deliver(ctx context.Context, callID string, data []byte, exportedAt time.Time) (Result, error) {
	remotePath := d.naming.Path(callID, exportedAt)
	key := d.fingerprintKey(callID, exportedAt)
	fp := Fingerprint(data)
	result := Result{Path: remotePath, Fingerprint: fp}

	log := d.logger.With(logger.String("incident_id", callID), logger.String("path", remotePath))

	prev, ok, err := d.store.Get(ctx, key)
	if err != nil {
		log.Warn("fingerprint lookup failed, delivering anyway", logger.Error(err))
	} else if ok && prev == fp {
		log.Debug("content unchanged, skipping transfer")
		result.Status = StatusUnchanged
		return result, nil
	}

	start := d.now()
	for attempt := 0; ; attempt++ {
		result.Attempts = attempt + 1

		err := d.transport.Store(ctx, data, remotePath)
		if err == nil {
			if perr := d.store.Put(ctx, key, fp); perr != nil {
				log.Warn("failed to record fingerprint", logger.Error(perr))
			}
			log.Info("document transferred", logger.Int("attempts", result.Attempts))
			result.Status = StatusTransferred
			return result, nil
		}

		result.ErrorCode = transfer.CodeOf(err)
		if !transfer.IsRetryable(err) {
			log.Error("transfer failed, not retryable", logger.String("code", result.ErrorCode), logger.Error(err))
			result.Status = StatusFailed
			return result, fmt.Errorf("failed to transfer %s: %w", remotePath, err)
		}

		if attempt >= d.policy.MaxRetries {
			return d.exhausted(log, result, err)
		}

		delay := d.policy.Delay(attempt)
		if d.policy.MaxElapsed > 0 && d.now().Sub(start)+delay > d.policy.MaxElapsed {
			return d.exhausted(log, result, err)
		}

		log.Warn("transfer failed, retrying",
			logger.Int("attempt", result.Attempts),
			logger.Duration("delay", delay),
			logger.String("code", result.ErrorCode),
			logger.Error(err))

		if serr := d.sleep(ctx, delay); serr != nil {
			result.Status = StatusFailed
			result.ErrorCode = transfer.CodeCancelled
			return result, fmt.Errorf("transfer of %s interrupted: %w", remotePath, serr)
		}
	}
}

func (d *Deliverer) exhausted(log logger.Logger, result Result, lastErr error) (Result, error) {
	log.Error("transfer failed, retries exhausted",
		logger.Int("attempts", result.Attempts),
		logger.String("code", result.ErrorCode),
		logger.Error(lastErr))
	result.Status = StatusFailed
	return result, fmt.Errorf("%w after %d attempts: %w", ErrRetryBudgetExhausted, result.Attempts, lastErr)
}

// ClearFingerprints forgets every recorded fingerprint so the next delivery of each incident
// transfers again.
func (d *Deliverer) ClearFingerprints(ctx context.Context) (int, error) {
	n, err := d.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	d.logger.Info("fingerprints cleared", logger.Int("count", n))
	return n, nil
}

// Naming exposes the configured naming so callers can report the path without delivering.
func (d *Deliverer) Naming() Naming {
	return d.naming
}

func (d *Deliverer) fingerprintKey(callID string, exportedAt time.Time) string {
	return callID + "|" + d.transport.Name() + ":" + d.naming.Destination(callID, exportedAt)
}
