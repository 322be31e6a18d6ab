package memory

import (
	"context"
	"fmt"
	"testing"

	"cadbridge/internal/domain"
	repository "cadbridge/internal/repository/iface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepository_CreateAndGet(t *testing.T) {
	repo := NewRunRepository(0)
	run := &domain.SyncRun{RunID: "run-1", Status: domain.RunStatusPartial, FailedCalls: []string{"7"}}
	require.NoError(t, repo.Create(context.Background(), run))

	run.FailedCalls[0] = "changed"

	got, err := repo.GetByID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPartial, got.Status)
	assert.Equal(t, domain.SyncRunKind, got.Kind)
	assert.Equal(t, []string{"7"}, got.FailedCalls)

	_, err = repo.GetByID(context.Background(), "run-2")
	assert.True(t, repository.IsRunNotFoundError(err))
}

func TestRunRepository_ListPagesNewestFirst(t *testing.T) {
	repo := NewRunRepository(10)
	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Create(context.Background(), &domain.SyncRun{RunID: fmt.Sprintf("run-%d", i)}))
	}

	var ids []string
	token := ""
	for {
		page, err := repo.List(context.Background(), 2, token)
		require.NoError(t, err)
		for _, r := range page.Runs {
			ids = append(ids, r.RunID)
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	assert.Equal(t, []string{"run-5", "run-4", "run-3", "run-2", "run-1"}, ids)
}

func TestRunRepository_CapacityDropsOldest(t *testing.T) {
	repo := NewRunRepository(2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Create(context.Background(), &domain.SyncRun{RunID: fmt.Sprintf("run-%d", i)}))
	}

	page, err := repo.List(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, page.Runs, 2)
	assert.Equal(t, "run-3", page.Runs[0].RunID)
	assert.Empty(t, page.NextToken)

	_, err = repo.GetByID(context.Background(), "run-1")
	assert.True(t, repository.IsRunNotFoundError(err))
}

func TestRunRepository_InvalidToken(t *testing.T) {
	repo := NewRunRepository(2)
	_, err := repo.List(context.Background(), 10, "page-two")
	assert.True(t, repository.IsInvalidNextTokenError(err))
}
