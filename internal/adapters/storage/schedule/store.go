package schedule

import (
	"context"

	domain "crux/internal/domain/schedule"
)

// Store persists weekly schedule entries.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, value domain.Entry) error
	Delete(ctx context.Context, id string) error
	ListByCohort(ctx context.Context, cohortID string) ([]domain.Entry, error)
	FirstForDay(ctx context.Context, cohortID, day string) (domain.Entry, error)
}
