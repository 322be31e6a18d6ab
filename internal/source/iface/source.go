package source

import (
	"context"
	"errors"

	"cadbridge/internal/domain"
)

var ErrIncidentNotFound = errors.New("incident not found")

func IsIncidentNotFoundError(err error) bool {
	return errors.Is(err, ErrIncidentNotFound)
}

// Source is the dispatch platform as seen by the ingestion drivers. Implementations return
// canonical domain shapes only; wire-format variations are resolved before they get here.
type Source interface {
	// FetchRecent returns calls created within the last daysBack days, in platform order.
	FetchRecent(ctx context.Context, daysBack int) ([]domain.RawIncident, error)
	FetchActive(ctx context.Context) ([]domain.RawIncident, error)
	FetchIncident(ctx context.Context, incidentID string) (domain.RawIncident, error)
	FetchExtra(ctx context.Context, incidentID string) (domain.ExtraData, error)
}
