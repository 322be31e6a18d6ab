package service

import (
	"context"
	"fmt"
	"strings"

	coordinator "cadbridge/internal/coordinator/iface"
	"cadbridge/internal/domain"
	"cadbridge/internal/logger"
	source "cadbridge/internal/source/iface"
)

// ICallSync exports or previews a single call by id.
type ICallSync interface {
	ExportCall(ctx context.Context, callID string) (ExportOutcome, error)
	PreviewCall(ctx context.Context, callID string) (Preview, error)
}

// CallSync fetches one call with its extra data and hands it to the exporter under the writer
// lock. It backs both the push driver and the operator export endpoint.
type CallSync struct {
	source      source.Source
	exporter    IExporter
	coordinator coordinator.Coordinator
	lockPath    string
	owner       []byte
	logger      logger.Logger
}

func NewCallSync(
	src source.Source,
	exporter IExporter,
	coord coordinator.Coordinator,
	lockPath, owner string,
	log logger.Logger,
) *CallSync {
	if lockPath == "" {
		lockPath = coordinator.DefaultWriterLockPath
	}
	return &CallSync{
		source:      src,
		exporter:    exporter,
		coordinator: coord,
		lockPath:    lockPath,
		owner:       []byte(owner),
		logger:      log.With(logger.String("component", "call_sync")),
	}
}

// ExportCall returns an error only when the call could not be exported at all: the lock is held
// elsewhere or the platform fetch failed. Sink failures are reported in the outcome.
func (s *CallSync) ExportCall(ctx context.Context, callID string) (ExportOutcome, error) {
	callID = strings.TrimSpace(callID)

	lock, ok, err := s.coordinator.TryAcquire(ctx, s.lockPath, s.owner)
	if err != nil {
		return ExportOutcome{IncidentID: callID}, fmt.Errorf("failed to acquire writer lock: %w", err)
	}
	if !ok {
		return ExportOutcome{IncidentID: callID}, ErrWriterLockHeld
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("failed to release writer lock", logger.Error(err))
		}
	}()

	incident, extra, err := s.fetch(ctx, callID)
	if err != nil {
		return ExportOutcome{IncidentID: callID}, err
	}
	return s.exporter.Export(ctx, incident, extra), nil
}

func (s *CallSync) PreviewCall(ctx context.Context, callID string) (Preview, error) {
	incident, extra, err := s.fetch(ctx, strings.TrimSpace(callID))
	if err != nil {
		return Preview{}, err
	}
	return s.exporter.Preview(incident, extra)
}

// fetch loads the call and its extra data. A call whose extra data is missing is exported
// without units or activity timestamps.
func (s *CallSync) fetch(ctx context.Context, callID string) (domain.RawIncident, domain.ExtraData, error) {
	incident, err := s.source.FetchIncident(ctx, callID)
	if err != nil {
		return domain.RawIncident{}, domain.ExtraData{}, err
	}

	extra, err := s.source.FetchExtra(ctx, callID)
	if err != nil {
		if !source.IsIncidentNotFoundError(err) {
			return domain.RawIncident{}, domain.ExtraData{}, err
		}
		s.logger.Warn("call has no extra data", logger.String("incident_id", callID))
		extra = domain.ExtraData{}
	}
	return incident, extra, nil
}
