package cohort

import (
	"context"
	"time"

	domain "crux/internal/domain/cohort"
)

// Store persists Cohort state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Cohort, error)
	GetByNumber(ctx context.Context, number int) (domain.Cohort, error)
	ActiveOn(ctx context.Context, date time.Time) (domain.Cohort, error)
	Save(ctx context.Context, value domain.Cohort) error
	List(ctx context.Context) ([]domain.Cohort, error)
}
