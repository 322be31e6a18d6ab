package handler

import (
	"context"

	"cadbridge/commons/error_handler"
	"cadbridge/commons/handler"
	coordinator "cadbridge/internal/coordinator/iface"
	"cadbridge/internal/dto"
	"cadbridge/internal/logger"
)

type HealthHandler struct {
	logger      logger.Logger
	serviceName string
	version     string
	coordinator coordinator.Coordinator
	lockPath    string
}

func NewHealthHandler(
	log logger.Logger,
	serviceName, version string,
	coord coordinator.Coordinator,
	lockPath string,
) *HealthHandler {
	if lockPath == "" {
		lockPath = coordinator.DefaultWriterLockPath
	}
	return &HealthHandler{
		logger:      log.With(logger.String("component", "health_handler")),
		serviceName: serviceName,
		version:     version,
		coordinator: coord,
		lockPath:    lockPath,
	}
}

func (h *HealthHandler) HealthService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.HealthCheckRequest],
) (dto.HealthCheckResponse, *error_handler.ErrorCollection) {
	h.logger.Debug("health check requested")

	response := dto.HealthCheckResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Version: h.version,
	}

	if h.coordinator != nil {
		holder, err := h.coordinator.Holder(h.lockPath)
		if err != nil {
			h.logger.Warn("failed to read writer lock holder", logger.Error(err))
			response.Status = "degraded"
		} else {
			response.WriterLockHolder = string(holder)
		}
	}

	return response, nil
}
