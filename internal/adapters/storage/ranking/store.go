package ranking

import (
	"context"

	domain "crux/internal/domain/ranking"
)

// Store persists weekly score entries.
type Store interface {
	ApplyDelta(ctx context.Context, memberID, cohortID string, week int, delta float64) error
	Get(ctx context.Context, memberID, cohortID string, week int) (domain.Entry, error)
	ListByCohort(ctx context.Context, cohortID string) ([]domain.Entry, error)
	ListTotals(ctx context.Context) ([]domain.Total, error)
}
