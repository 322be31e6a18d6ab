package service

import (
	"context"
	"fmt"
	"time"

	"cadbridge/internal/delivery"
	"cadbridge/internal/domain"
	"cadbridge/internal/export/rowexport"
	"cadbridge/internal/export/xmlexport"
	"cadbridge/internal/logger"
	"cadbridge/internal/mapping"
)

// IDeliverer is the part of delivery.Deliverer the exporter depends on.
type IDeliverer interface {
	Deliver(ctx context.Context, callID string, data []byte, exportedAt time.Time) (delivery.Result, error)
	ClearFingerprints(ctx context.Context) (int, error)
}

// ExportOutcome records what happened to one incident in each sink. The two sinks are
// independent: either may fail while the other succeeds.
type ExportOutcome struct {
	IncidentID    string           `json:"incident_id"`
	ExportedAt    time.Time        `json:"exported_at"`
	Delivery      *delivery.Result `json:"delivery,omitempty"`
	DeliveryError string           `json:"delivery_error,omitempty"`
	Sheet         *UpsertResult    `json:"sheet,omitempty"`
	SheetError    string           `json:"sheet_error,omitempty"`
}

// DeliveryStatus returns FAILED when the XML was not delivered, whatever the cause.
func (o ExportOutcome) DeliveryStatus() delivery.Status {
	if o.Delivery == nil || o.DeliveryError != "" {
		return delivery.StatusFailed
	}
	return o.Delivery.Status
}

func (o ExportOutcome) SheetFailed() bool {
	return o.SheetError != "" || (o.Sheet != nil && o.Sheet.Action == UpsertFailed)
}

// Preview is the derivation of one incident without any side effects.
type Preview struct {
	Incident domain.DerivedIncident `json:"incident"`
	Row      []string               `json:"row"`
	XML      string                 `json:"xml"`
	Path     string                 `json:"path"`
}

type IExporter interface {
	Export(ctx context.Context, incident domain.RawIncident, extra domain.ExtraData) ExportOutcome
	Preview(incident domain.RawIncident, extra domain.ExtraData) (Preview, error)
	ClearFingerprints(ctx context.Context) (int, error)
}

// Exporter derives an incident once and fans it out to the XML delivery and the sheet.
type Exporter struct {
	transformer *mapping.Transformer
	serializer  *xmlexport.Serializer
	deliverer   IDeliverer
	naming      delivery.Naming
	sheet       ISheetWriter
	logger      logger.Logger
	now         func() time.Time
}

// NewExporter builds the export pipeline. sheet may be nil when the sheet mirror is disabled.
func NewExporter(
	transformer *mapping.Transformer,
	serializer *xmlexport.Serializer,
	deliverer IDeliverer,
	naming delivery.Naming,
	sheet ISheetWriter,
	log logger.Logger,
) *Exporter {
	return &Exporter{
		transformer: transformer,
		serializer:  serializer,
		deliverer:   deliverer,
		naming:      naming,
		sheet:       sheet,
		logger:      log.With(logger.String("component", "exporter")),
		now:         time.Now,
	}
}

func (e *Exporter) Export(ctx context.Context, incident domain.RawIncident, extra domain.ExtraData) ExportOutcome {
	exportedAt := e.now().UTC()
	derived := e.transformer.Transform(incident, extra)
	outcome := ExportOutcome{IncidentID: derived.IncidentID, ExportedAt: exportedAt}
	log := e.logger.With(logger.String("incident_id", derived.IncidentID))

	document, err := e.serializer.Serialize(derived)
	if err != nil {
		outcome.DeliveryError = fmt.Sprintf("failed to serialize incident: %v", err)
		log.Error("failed to serialize incident", logger.Error(err))
	} else {
		result, err := e.deliverer.Deliver(ctx, derived.IncidentID, document, exportedAt)
		outcome.Delivery = &result
		if err != nil {
			outcome.DeliveryError = err.Error()
			log.Error("failed to deliver incident",
				logger.String("path", result.Path),
				logger.String("error_code", result.ErrorCode),
				logger.Int("attempts", result.Attempts),
				logger.Error(err))
		} else {
			log.Info("incident delivered",
				logger.String("status", string(result.Status)),
				logger.String("path", result.Path),
				logger.Int("attempts", result.Attempts))
		}
	}

	if e.sheet != nil {
		upsert, err := e.sheet.Upsert(ctx, derived, exportedAt)
		outcome.Sheet = &upsert
		if err != nil {
			outcome.SheetError = err.Error()
			log.Error("failed to write sheet row", logger.Error(err))
		}
	}

	return outcome
}

func (e *Exporter) Preview(incident domain.RawIncident, extra domain.ExtraData) (Preview, error) {
	exportedAt := e.now().UTC()
	derived := e.transformer.Transform(incident, extra)

	document, err := e.serializer.Serialize(derived)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to serialize incident: %w", err)
	}

	return Preview{
		Incident: derived,
		Row:      rowexport.Build(derived, exportedAt),
		XML:      string(document),
		Path:     e.naming.Path(derived.IncidentID, exportedAt),
	}, nil
}

func (e *Exporter) ClearFingerprints(ctx context.Context) (int, error) {
	cleared, err := e.deliverer.ClearFingerprints(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear fingerprints: %w", err)
	}
	e.logger.Info("fingerprints cleared", logger.Int("count", cleared))
	return cleared, nil
}
