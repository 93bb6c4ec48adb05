package attendance

import (
	"context"
	"time"

	domain "crux/internal/domain/attendance"
)

// PendingRequest is a pending request with the requesting member's name.
type PendingRequest struct {
	domain.Request
	MemberName string `json:"member_name"`
}

// Store persists attendance requests.
type Store interface {
	Create(ctx context.Context, value domain.Request) error
	GetByID(ctx context.Context, id string) (domain.Request, error)
	LockForDecision(ctx context.Context, id string) error
	SaveDecision(ctx context.Context, value domain.Request) error
	HasLiveRequest(ctx context.Context, memberID, cohortID string, week int) (bool, error)
	HasApproved(ctx context.Context, memberID, cohortID string, week int) (bool, error)
	RejectPendingOn(ctx context.Context, cohortID string, day, now time.Time) (int64, error)
	ListByMemberCohort(ctx context.Context, memberID, cohortID string) ([]domain.Request, error)
	ListPending(ctx context.Context, cohortID string) ([]PendingRequest, error)
	CountAlternates(ctx context.Context, memberID, cohortID string) (int, error)
}

// StatsStore persists the per-member attendance counters.
type StatsStore interface {
	Increment(ctx context.Context, memberID, cohortID, field string) error
	Get(ctx context.Context, memberID, cohortID string) (domain.Stats, error)
}
