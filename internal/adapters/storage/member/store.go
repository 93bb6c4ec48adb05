package member

import (
	"context"

	domain "crux/internal/domain/member"
)

// RosterFilter selects members for batch jobs. Zero-valued fields do not filter.
type RosterFilter struct {
	Location      string
	CohortNumbers []int
	Role          string
	ActiveOnly    bool
}

// Store persists Member state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	Save(ctx context.Context, value domain.Member) error
	ListRoster(ctx context.Context, filter RosterFilter) ([]domain.Member, error)
}
