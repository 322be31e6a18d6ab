package handler

import (
	"context"
	"fmt"

	"cadbridge/commons/error_handler"
	"cadbridge/commons/handler"
	"cadbridge/internal/delivery"
	"cadbridge/internal/dto"
	"cadbridge/internal/logger"
	"cadbridge/internal/service"
)

type SyncHandler struct {
	logger logger.Logger
	poller service.IPoller
}

func NewSyncHandler(log logger.Logger, poller service.IPoller) *SyncHandler {
	return &SyncHandler{
		logger: log.With(logger.String("component", "sync_handler")),
		poller: poller,
	}
}

// SyncService runs one batch synchronously. Per-call failures make the response a partial
// success; the batch itself only fails when calls could not be listed.
func (h *SyncHandler) SyncService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.SyncRequest],
) (dto.SyncResponse, *error_handler.ErrorCollection) {
	req := service.BatchRequest{
		DaysBack:   ioutil.Body.DaysBack,
		ActiveOnly: ioutil.Body.ActiveOnly,
	}

	summary, err := h.poller.RunBatch(ctx, req)
	resp := toSyncResponse(summary)
	if err != nil {
		switch {
		case service.IsBatchInProgressError(err), service.IsWriterLockHeldError(err):
			return resp, error_handler.NewErrorCollection().
				AddError(error_handler.CodeConflict, err.Error(), nil)
		default:
			h.logger.Error("sync failed", logger.String("run_id", summary.RunID), logger.Error(err))
			return resp, error_handler.NewErrorCollection().
				AddError(error_handler.CodeBadGateway, err.Error(), nil)
		}
	}

	if summary.Failed == 0 {
		return resp, nil
	}
	errs := error_handler.NewErrorCollection().MarkPartial()
	for _, o := range resp.Outcomes {
		if o.DeliveryStatus != string(delivery.StatusFailed) {
			continue
		}
		errs.AddError(error_handler.CodeBadGateway, fmt.Sprintf("call %s failed: %s", o.IncidentID, o.DeliveryError), o.IncidentID)
	}
	return resp, errs
}

func toSyncResponse(s service.BatchSummary) dto.SyncResponse {
	resp := dto.SyncResponse{
		RunID:        s.RunID,
		StartedAt:    formatTime(s.StartedAt),
		FinishedAt:   formatTime(s.FinishedAt),
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
		Outcomes:     make([]dto.ExportOutcomeResponse, 0, len(s.Outcomes)),
	}
	for _, o := range s.Outcomes {
		resp.Outcomes = append(resp.Outcomes, toOutcomeResponse(o))
	}
	return resp
}
