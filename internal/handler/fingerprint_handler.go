package handler

import (
	"context"

	"cadbridge/commons/error_handler"
	"cadbridge/commons/handler"
	"cadbridge/internal/dto"
	"cadbridge/internal/logger"
)

// FingerprintClearer forgets delivered-content fingerprints.
type FingerprintClearer interface {
	ClearFingerprints(ctx context.Context) (int, error)
}

type FingerprintHandler struct {
	logger  logger.Logger
	clearer FingerprintClearer
}

func NewFingerprintHandler(log logger.Logger, clearer FingerprintClearer) *FingerprintHandler {
	return &FingerprintHandler{
		logger:  log.With(logger.String("component", "fingerprint_handler")),
		clearer: clearer,
	}
}

func (h *FingerprintHandler) ClearService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ClearFingerprintsRequest],
) (dto.ClearFingerprintsResponse, *error_handler.ErrorCollection) {
	cleared, err := h.clearer.ClearFingerprints(ctx)
	if err != nil {
		h.logger.Error("failed to clear fingerprints", logger.Error(err))
		return dto.ClearFingerprintsResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, err.Error(), nil)
	}
	return dto.ClearFingerprintsResponse{Cleared: cleared}, nil
}
