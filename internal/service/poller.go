package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	coordinator "cadbridge/internal/coordinator/iface"
	"cadbridge/internal/delivery"
	"cadbridge/internal/domain"
	"cadbridge/internal/logger"
	repository "cadbridge/internal/repository/iface"
	source "cadbridge/internal/source/iface"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DefaultPollSchedule runs a batch every five minutes. Schedules include a seconds field.
const DefaultPollSchedule = "0 */5 * * * *"

var (
	ErrBatchInProgress = errors.New("batch already in progress")
	ErrWriterLockHeld  = errors.New("writer lock held by another process")
)

func IsBatchInProgressError(err error) bool {
	return errors.Is(err, ErrBatchInProgress)
}

func IsWriterLockHeldError(err error) bool {
	return errors.Is(err, ErrWriterLockHeld)
}

type BatchRequest struct {
	DaysBack   int               `json:"days_back"`
	ActiveOnly bool              `json:"active_only"`
	Trigger    domain.RunTrigger `json:"trigger,omitempty"`
}

// BatchSummary counts what a batch did. Every fetched call lands in exactly one of Filtered,
// Transferred, Unchanged or Failed; SheetFailed counts sheet errors independently.
type BatchSummary struct {
	RunID        string          `json:"run_id"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Request      BatchRequest    `json:"request"`
	Total        int             `json:"total"`
	Filtered     int             `json:"filtered"`
	Transferred  int             `json:"transferred"`
	Unchanged    int             `json:"unchanged"`
	Failed       int             `json:"failed"`
	IngestFailed int             `json:"ingest_failed"`
	SheetFailed  int             `json:"sheet_failed"`
	Cancelled    bool            `json:"cancelled,omitempty"`
	Outcomes     []ExportOutcome `json:"outcomes"`
}

type PollerConfig struct {
	Schedule   string
	DaysBack   int
	ActiveOnly bool
	LockPath   string
	Owner      string
}

type IPoller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	RunBatch(ctx context.Context, req BatchRequest) (BatchSummary, error)
}

// Poller pulls calls from the platform on a schedule and exports them one at a time. Calls are
// never processed in parallel so each batch puts a bounded load on the platform API.
type Poller struct {
	source      source.Source
	exporter    IExporter
	filter      *IncidentFilter
	coordinator coordinator.Coordinator
	runs        repository.RunRepository
	cfg         PollerConfig
	logger      logger.Logger

	cron    *cron.Cron
	running atomic.Bool

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	newRunID func() string
	now      func() time.Time
}

func NewPoller(
	src source.Source,
	exporter IExporter,
	filter *IncidentFilter,
	coord coordinator.Coordinator,
	runs repository.RunRepository,
	cfg PollerConfig,
	log logger.Logger,
) *Poller {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultPollSchedule
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 1
	}
	if cfg.LockPath == "" {
		cfg.LockPath = coordinator.DefaultWriterLockPath
	}
	return &Poller{
		source:      src,
		exporter:    exporter,
		filter:      filter,
		coordinator: coord,
		runs:        runs,
		cfg:         cfg,
		logger:      log.With(logger.String("component", "poller")),
		cron:        cron.New(cron.WithSeconds()),
		newRunID:    uuid.NewString,
		now:         time.Now,
	}
}

// Start registers the poll schedule and starts the cron runner.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	_, err := p.cron.AddFunc(p.cfg.Schedule, p.tick)
	if err != nil {
		return fmt.Errorf("failed to add poll cron: %w", err)
	}
	p.cron.Start()

	p.logger.Info("poller started",
		logger.String("schedule", p.cfg.Schedule),
		logger.Int("days_back", p.cfg.DaysBack),
		logger.Bool("active_only", p.cfg.ActiveOnly),
		logger.String("filter", p.filter.String()))
	return nil
}

// Stop cancels a running batch and waits for it to return, or for ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	cronCtx := p.cron.Stop()
	select {
	case <-cronCtx.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop poller: %w", ctx.Err())
	}
}

func (p *Poller) tick() {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	summary, err := p.RunBatch(ctx, BatchRequest{
		DaysBack:   p.cfg.DaysBack,
		ActiveOnly: p.cfg.ActiveOnly,
		Trigger:    domain.RunTriggerSchedule,
	})
	switch {
	case IsBatchInProgressError(err):
		p.logger.Warn("previous batch still running, skipping tick")
	case IsWriterLockHeldError(err):
		p.logger.Info("writer lock held elsewhere, skipping tick")
	case err != nil:
		p.logger.Error("scheduled batch failed", logger.String("run_id", summary.RunID), logger.Error(err))
	}
}

// RunBatch fetches calls and exports each in source order. A failure on one call is counted and
// the batch moves on; only a failure to list calls fails the batch as a whole. Batches that got
// past the locks are recorded in the run history.
func (p *Poller) RunBatch(ctx context.Context, req BatchRequest) (BatchSummary, error) {
	if req.DaysBack <= 0 {
		req.DaysBack = p.cfg.DaysBack
	}
	if req.Trigger == "" {
		req.Trigger = domain.RunTriggerManual
	}
	summary := BatchSummary{
		RunID:     p.newRunID(),
		StartedAt: p.now().UTC(),
		Request:   req,
		Outcomes:  []ExportOutcome{},
	}

	if !p.running.CompareAndSwap(false, true) {
		return summary, ErrBatchInProgress
	}
	defer p.running.Store(false)

	log := p.logger.With(logger.String("run_id", summary.RunID))

	lock, ok, err := p.coordinator.TryAcquire(ctx, p.cfg.LockPath, []byte(p.cfg.Owner))
	if err != nil {
		return summary, fmt.Errorf("failed to acquire writer lock: %w", err)
	}
	if !ok {
		return summary, ErrWriterLockHeld
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("failed to release writer lock", logger.Error(err))
		}
	}()

	err = p.runLocked(ctx, log, &summary)
	summary.FinishedAt = p.now().UTC()
	p.record(ctx, log, summary, err)
	if err != nil {
		return summary, err
	}

	log.Info("batch finished",
		logger.Int("total", summary.Total),
		logger.Int("filtered", summary.Filtered),
		logger.Int("transferred", summary.Transferred),
		logger.Int("unchanged", summary.Unchanged),
		logger.Int("failed", summary.Failed),
		logger.Int("sheet_failed", summary.SheetFailed),
		logger.Bool("cancelled", summary.Cancelled),
		logger.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

func (p *Poller) runLocked(ctx context.Context, log logger.Logger, summary *BatchSummary) error {
	incidents, err := p.fetch(ctx, summary.Request)
	if err != nil {
		return err
	}
	summary.Total = len(incidents)
	log.Info("batch started",
		logger.Int("calls", len(incidents)),
		logger.Int("days_back", summary.Request.DaysBack),
		logger.Bool("active_only", summary.Request.ActiveOnly),
		logger.String("trigger", string(summary.Request.Trigger)))

	for _, incident := range incidents {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		p.processOne(ctx, log, incident, summary)
	}
	return nil
}

// record stores the batch even when ctx was cancelled mid-batch.
func (p *Poller) record(ctx context.Context, log logger.Logger, summary BatchSummary, batchErr error) {
	if p.runs == nil {
		return
	}
	run := summaryToRun(summary, p.cfg.Owner, batchErr)
	if err := p.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("failed to record sync run", logger.Error(err))
	}
}

func summaryToRun(s BatchSummary, owner string, batchErr error) *domain.SyncRun {
	run := &domain.SyncRun{
		RunID:        s.RunID,
		Kind:         domain.SyncRunKind,
		Trigger:      s.Request.Trigger,
		Status:       domain.RunStatusCompleted,
		Owner:        owner,
		DaysBack:     s.Request.DaysBack,
		ActiveOnly:   s.Request.ActiveOnly,
		Total:        s.Total,
		Filtered:     s.Filtered,
		Transferred:  s.Transferred,
		Unchanged:    s.Unchanged,
		Failed:       s.Failed,
		IngestFailed: s.IngestFailed,
		SheetFailed:  s.SheetFailed,
		Cancelled:    s.Cancelled,
		StartedAt:    s.StartedAt.UnixMilli(),
		FinishedAt:   s.FinishedAt.UnixMilli(),
	}
	for _, o := range s.Outcomes {
		if o.DeliveryStatus() == delivery.StatusFailed {
			run.FailedCalls = append(run.FailedCalls, o.IncidentID)
		}
	}
	switch {
	case batchErr != nil:
		run.Status = domain.RunStatusFailed
		run.Error = batchErr.Error()
	case s.Failed > 0 || s.Cancelled:
		run.Status = domain.RunStatusPartial
	}
	return run
}

func (p *Poller) fetch(ctx context.Context, req BatchRequest) ([]domain.RawIncident, error) {
	if req.ActiveOnly {
		incidents, err := p.source.FetchActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active calls: %w", err)
		}
		return incidents, nil
	}
	incidents, err := p.source.FetchRecent(ctx, req.DaysBack)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent calls: %w", err)
	}
	return incidents, nil
}

func (p *Poller) processOne(ctx context.Context, log logger.Logger, incident domain.RawIncident, summary *BatchSummary) {
	log = log.With(logger.String("incident_id", incident.ID))

	matched, err := p.filter.Match(incident)
	if err != nil {
		log.Warn("incident filter failed, exporting anyway", logger.Error(err))
		matched = true
	}
	if !matched {
		summary.Filtered++
		log.Debug("incident filtered out")
		return
	}

	extra, err := p.source.FetchExtra(ctx, incident.ID)
	if err != nil {
		summary.Failed++
		summary.IngestFailed++
		summary.Outcomes = append(summary.Outcomes, ExportOutcome{
			IncidentID:    incident.ID,
			ExportedAt:    p.now().UTC(),
			DeliveryError: fmt.Sprintf("failed to fetch extra data: %v", err),
		})
		log.Error("failed to fetch extra data, skipping incident", logger.Error(err))
		return
	}

	outcome := p.exporter.Export(ctx, incident, extra)
	summary.Outcomes = append(summary.Outcomes, outcome)

	switch outcome.DeliveryStatus() {
	case delivery.StatusTransferred:
		summary.Transferred++
	case delivery.StatusUnchanged:
		summary.Unchanged++
	default:
		summary.Failed++
	}
	if outcome.SheetFailed() {
		summary.SheetFailed++
	}
}
