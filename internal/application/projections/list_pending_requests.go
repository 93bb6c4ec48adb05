package projections

import (
	"context"
	"errors"
	"time"

	attendanceStore "crux/internal/adapters/storage/attendance"
	"crux/internal/domain/apperror"
)

// ListPendingRequestsDeps holds dependencies for ListPendingRequests.
type ListPendingRequestsDeps struct {
	Resolver        ScheduleResolver
	AttendanceStore AttendanceStore
	Now             func() time.Time // injectable for testing
}

// QueryListPendingRequests returns the active cohort's undecided requests, oldest first.
// POST: Empty (never nil) when no cohort is running
func QueryListPendingRequests(ctx context.Context, deps ListPendingRequestsDeps) ([]attendanceStore.PendingRequest, error) {
	active, err := deps.Resolver.ActiveCohort(ctx, clock(deps.Now))
	if errors.Is(err, apperror.ErrNotFound) {
		return []attendanceStore.PendingRequest{}, nil
	}
	if err != nil {
		return nil, err
	}
	pending, err := deps.AttendanceStore.ListPending(ctx, active.ID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []attendanceStore.PendingRequest{}
	}
	return pending, nil
}
