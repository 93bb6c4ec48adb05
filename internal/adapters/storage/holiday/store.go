package holiday

import (
	"context"
	"time"

	domain "crux/internal/domain/holiday"
)

// Store persists blackout dates.
type Store interface {
	Save(ctx context.Context, value domain.BlackoutDate) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.BlackoutDate, error)
	IsBlackout(ctx context.Context, t time.Time) (bool, error)
}
