package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cadbridge/internal/domain"
	"cadbridge/internal/export/rowexport"
	"cadbridge/internal/logger"
	tabular "cadbridge/internal/tabular/iface"
)

type UpsertAction string

const (
	UpsertUpdated  UpsertAction = "UPDATED"
	UpsertAppended UpsertAction = "APPENDED"
	UpsertFailed   UpsertAction = "FAILED"
)

// UpsertResult reports what the writer did with one row. Row is the 1-based sheet row for
// updates and 0 when the row was appended.
type UpsertResult struct {
	Action UpsertAction `json:"action"`
	Row    int          `json:"row,omitempty"`
}

type ISheetWriter interface {
	Upsert(ctx context.Context, incident domain.DerivedIncident, exportedAt time.Time) (UpsertResult, error)
}

// SheetWriter keeps one row per call id in the "Call Data" sheet. It assumes it is the only
// writer; concurrent writers can race between lookup and update and produce duplicate rows.
type SheetWriter struct {
	store  tabular.Store
	sheet  string
	logger logger.Logger

	mu          sync.Mutex
	headerReady bool
}

func NewSheetWriter(store tabular.Store, sheet string, log logger.Logger) *SheetWriter {
	if sheet == "" {
		sheet = rowexport.SheetName
	}
	return &SheetWriter{
		store:  store,
		sheet:  sheet,
		logger: log.With(logger.String("component", "sheet_writer")),
	}
}

// Upsert updates the row whose Call ID matches the incident, or appends a new one. A failed
// lookup or update falls back to append; an error is returned only when nothing was written.
func (w *SheetWriter) Upsert(ctx context.Context, incident domain.DerivedIncident, exportedAt time.Time) (UpsertResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ensureHeader(ctx)

	values := rowexport.Build(incident, exportedAt)
	log := w.logger.With(logger.String("incident_id", incident.IncidentID))

	row, err := w.findRow(ctx, incident.IncidentID)
	if err != nil {
		log.Warn("call id lookup failed, appending", logger.Error(err))
	}

	if row > 0 {
		err := w.store.UpdateRow(ctx, w.sheet, row, values)
		if err == nil {
			log.Debug("sheet row updated", logger.Int("row", row))
			return UpsertResult{Action: UpsertUpdated, Row: row}, nil
		}
		log.Warn("sheet row update failed, appending", logger.Int("row", row), logger.Error(err))
	}

	if err := w.store.AppendRow(ctx, w.sheet, values); err != nil {
		log.Error("sheet append failed", logger.Error(err))
		return UpsertResult{Action: UpsertFailed}, fmt.Errorf("failed to append sheet row for %s: %w", incident.IncidentID, err)
	}

	log.Debug("sheet row appended")
	return UpsertResult{Action: UpsertAppended}, nil
}

// findRow returns the 1-based row holding callID, or 0 when absent.
func (w *SheetWriter) findRow(ctx context.Context, callID string) (int, error) {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return 0, nil
	}

	ids, err := w.store.ReadColumn(ctx, w.sheet, rowexport.KeyColumn)
	if err != nil {
		return 0, err
	}

	// Row 1 is the header.
	for i := 1; i < len(ids); i++ {
		if strings.TrimSpace(ids[i]) == callID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (w *SheetWriter) ensureHeader(ctx context.Context) {
	if w.headerReady {
		return
	}
	if err := w.store.EnsureHeader(ctx, w.sheet, rowexport.Header); err != nil {
		w.logger.Warn("failed to ensure sheet header", logger.Error(err))
		return
	}
	w.headerReady = true
}
