package handler

import (
	"context"
	"time"

	"cadbridge/commons/error_handler"
	"cadbridge/commons/handler"
	"cadbridge/internal/domain"
	"cadbridge/internal/dto"
	"cadbridge/internal/logger"
	repositoryIface "cadbridge/internal/repository/iface"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type RunHandler struct {
	logger  logger.Logger
	runRepo repositoryIface.RunRepository
}

func NewRunHandler(
	log logger.Logger,
	runRepo repositoryIface.RunRepository,
) *RunHandler {
	return &RunHandler{
		logger:  log.With(logger.String("component", "run_handler")),
		runRepo: runRepo,
	}
}

func (h *RunHandler) GetRunService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.GetRunRequest],
) (dto.GetRunResponse, *error_handler.ErrorCollection) {
	runID := ioutil.PathParam("run_id")
	if runID == "" {
		return dto.GetRunResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, "run_id is required", nil)
	}

	run, err := h.runRepo.GetByID(ctx, runID)
	if err != nil {
		if repositoryIface.IsRunNotFoundError(err) {
			return dto.GetRunResponse{}, error_handler.NewErrorCollection().
				AddError(error_handler.CodeNotFound, "run not found", runID)
		}
		h.logger.Error("failed to get run", logger.String("run_id", runID), logger.Error(err))
		return dto.GetRunResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to get run", nil)
	}

	return dto.GetRunResponse{RunResponse: toRunResponse(run)}, nil
}

func (h *RunHandler) ListRunsService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ListRunsRequest],
) (dto.ListRunsResponse, *error_handler.ErrorCollection) {
	limit := ioutil.QueryInt("limit", defaultRunsLimit)
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	result, err := h.runRepo.List(ctx, limit, ioutil.QueryParams["next_token"])
	if err != nil {
		if repositoryIface.IsInvalidNextTokenError(err) {
			return dto.ListRunsResponse{}, error_handler.NewErrorCollection().
				AddError(error_handler.CodeValidationError, "invalid next_token", nil)
		}
		h.logger.Error("failed to list runs", logger.Error(err))
		return dto.ListRunsResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to list runs", nil)
	}

	runs := make([]dto.RunResponse, len(result.Runs))
	for i, run := range result.Runs {
		runs[i] = toRunResponse(run)
	}

	return dto.ListRunsResponse{
		Runs: runs,
		PaginationResponse: dto.PaginationResponse{
			Count:     len(runs),
			NextToken: result.NextToken,
		},
	}, nil
}

func toRunResponse(run *domain.SyncRun) dto.RunResponse {
	return dto.RunResponse{
		RunID:        run.RunID,
		Trigger:      string(run.Trigger),
		Status:       string(run.Status),
		Owner:        run.Owner,
		DaysBack:     run.DaysBack,
		ActiveOnly:   run.ActiveOnly,
		Total:        run.Total,
		Filtered:     run.Filtered,
		Transferred:  run.Transferred,
		Unchanged:    run.Unchanged,
		Failed:       run.Failed,
		IngestFailed: run.IngestFailed,
		SheetFailed:  run.SheetFailed,
		Cancelled:    run.Cancelled,
		FailedCalls:  run.FailedCalls,
		Error:        run.Error,
		StartedAt:    formatMillis(run.StartedAt),
		FinishedAt:   formatMillis(run.FinishedAt),
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return formatTime(time.UnixMilli(ms))
}
