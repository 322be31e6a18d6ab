package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"cadbridge/internal/domain"
	repository "cadbridge/internal/repository/iface"
)

// DefaultCapacity bounds how many runs are kept.
const DefaultCapacity = 100

// runRepository keeps the most recent runs in process memory. Tokens are offsets into the
// newest-first list, so concurrent inserts can shift a page by a few entries.
type runRepository struct {
	mu       sync.RWMutex
	capacity int
	runs     []*domain.SyncRun // oldest first
}

func NewRunRepository(capacity int) repository.RunRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &runRepository{capacity: capacity}
}

func (r *runRepository) Create(_ context.Context, run *domain.SyncRun) error {
	stored := *run
	stored.Kind = domain.SyncRunKind
	stored.FailedCalls = append([]string(nil), run.FailedCalls...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, &stored)
	if over := len(r.runs) - r.capacity; over > 0 {
		r.runs = append([]*domain.SyncRun(nil), r.runs[over:]...)
	}
	return nil
}

func (r *runRepository) GetByID(_ context.Context, runID string) (*domain.SyncRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].RunID == runID {
			run := *r.runs[i]
			return &run, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", repository.ErrRunNotFound, runID)
}

func (r *runRepository) List(_ context.Context, limit int, nextToken string) (*repository.PaginationResult, error) {
	offset := 0
	if nextToken != "" {
		n, err := strconv.Atoi(nextToken)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", repository.ErrInvalidNextToken, nextToken)
		}
		offset = n
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := &repository.PaginationResult{Runs: []*domain.SyncRun{}}
	total := len(r.runs)
	for i := offset; i < total && len(result.Runs) < limit; i++ {
		run := *r.runs[total-1-i]
		result.Runs = append(result.Runs, &run)
	}
	if next := offset + len(result.Runs); next < total && len(result.Runs) > 0 {
		result.NextToken = strconv.Itoa(next)
	}
	return result, nil
}
