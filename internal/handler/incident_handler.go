package handler

import (
	"context"
	"errors"

	"cadbridge/commons/error_handler"
	"cadbridge/commons/handler"
	"cadbridge/internal/dto"
	"cadbridge/internal/export/rowexport"
	"cadbridge/internal/logger"
	"cadbridge/internal/service"
	source "cadbridge/internal/source/iface"
)

type IncidentHandler struct {
	logger logger.Logger
	calls  service.ICallSync
}

func NewIncidentHandler(log logger.Logger, calls service.ICallSync) *IncidentHandler {
	return &IncidentHandler{
		logger: log.With(logger.String("component", "incident_handler")),
		calls:  calls,
	}
}

func (h *IncidentHandler) ExportService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ExportIncidentRequest],
) (dto.ExportIncidentResponse, *error_handler.ErrorCollection) {
	incidentID := ioutil.PathParam("incident_id")
	if incidentID == "" {
		return dto.ExportIncidentResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, "incident_id is required", nil)
	}

	outcome, err := h.calls.ExportCall(ctx, incidentID)
	resp := dto.ExportIncidentResponse{ExportOutcomeResponse: toOutcomeResponse(outcome)}
	if err != nil {
		return resp, h.fetchError(incidentID, err)
	}

	if outcome.DeliveryError == "" && !outcome.SheetFailed() {
		return resp, nil
	}
	errs := error_handler.NewErrorCollection().MarkPartial()
	if outcome.DeliveryError != "" {
		errs.AddError(error_handler.CodeBadGateway, outcome.DeliveryError, "delivery")
	}
	if outcome.SheetFailed() {
		errs.AddError(error_handler.CodeBadGateway, outcome.SheetError, "sheet")
	}
	return resp, errs
}

func (h *IncidentHandler) PreviewService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.PreviewIncidentRequest],
) (dto.PreviewIncidentResponse, *error_handler.ErrorCollection) {
	incidentID := ioutil.PathParam("incident_id")
	if incidentID == "" {
		return dto.PreviewIncidentResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, "incident_id is required", nil)
	}

	preview, err := h.calls.PreviewCall(ctx, incidentID)
	if err != nil {
		return dto.PreviewIncidentResponse{}, h.fetchError(incidentID, err)
	}

	row := make(map[string]string, len(rowexport.Header))
	for i, column := range rowexport.Header {
		if i < len(preview.Row) {
			row[column] = preview.Row[i]
		}
	}

	return dto.PreviewIncidentResponse{
		Incident: preview.Incident,
		Row:      row,
		XML:      preview.XML,
		Path:     preview.Path,
	}, nil
}

func (h *IncidentHandler) fetchError(incidentID string, err error) *error_handler.ErrorCollection {
	switch {
	case source.IsIncidentNotFoundError(err):
		return error_handler.NewErrorCollection().
			AddError(error_handler.CodeNotFound, "incident not found", incidentID)
	case service.IsWriterLockHeldError(err):
		return error_handler.NewErrorCollection().
			AddError(error_handler.CodeConflict, err.Error(), incidentID)
	case errors.Is(err, context.Canceled):
		return error_handler.NewErrorCollection().
			AddError(error_handler.CodeServiceUnavailable, "request cancelled", incidentID)
	default:
		h.logger.Error("failed to load incident",
			logger.String("incident_id", incidentID),
			logger.Error(err))
		return error_handler.NewErrorCollection().
			AddError(error_handler.CodeBadGateway, err.Error(), incidentID)
	}
}
