package repository

import (
	"context"
	"errors"

	"cadbridge/internal/domain"
)

var (
	ErrRunNotFound      = errors.New("sync run not found")
	ErrInvalidNextToken = errors.New("invalid next token")
)

func IsRunNotFoundError(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

func IsInvalidNextTokenError(err error) bool {
	return errors.Is(err, ErrInvalidNextToken)
}

// PaginationResult contains paginated results
type PaginationResult struct {
	Runs      []*domain.SyncRun
	NextToken string // opaque, empty on the last page
}

// RunRepository stores the history of polling batches.
type RunRepository interface {
	Create(ctx context.Context, run *domain.SyncRun) error
	GetByID(ctx context.Context, runID string) (*domain.SyncRun, error)
	// List returns runs newest first.
	List(ctx context.Context, limit int, nextToken string) (*PaginationResult, error)
}
