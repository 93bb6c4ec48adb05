package projections

import (
	"context"
	"errors"
	"time"

	"crux/internal/adapters/storage"
	"crux/internal/domain/apperror"
	domainAttendance "crux/internal/domain/attendance"
)

// GetAttendanceRateQuery carries query parameters.
type GetAttendanceRateQuery struct {
	MemberID string
}

// GetAttendanceRateResult carries the member's rate in the active cohort.
type GetAttendanceRateResult struct {
	MemberID string                 `json:"member_id"`
	CohortID string                 `json:"cohort_id"`
	Gap      int                    `json:"gap"`
	Stats    domainAttendance.Stats `json:"stats"`
	Rate     float64                `json:"rate"`
}

// GetAttendanceRateDeps holds dependencies for GetAttendanceRate.
type GetAttendanceRateDeps struct {
	Resolver    ScheduleResolver
	MemberStore MemberStore
	StatsStore  StatsStore
	Now         func() time.Time // injectable for testing
}

// QueryGetAttendanceRate computes a member's attendance rate for the active cohort.
// PRE: MemberID identifies a member
// POST: Returns the rate rounded to 2 decimals, or ErrNotFound when there is no cohort or no stats row
func QueryGetAttendanceRate(ctx context.Context, query GetAttendanceRateQuery, deps GetAttendanceRateDeps) (GetAttendanceRateResult, error) {
	active, err := deps.Resolver.ActiveCohort(ctx, clock(deps.Now))
	if err != nil {
		return GetAttendanceRateResult{}, err
	}
	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return GetAttendanceRateResult{}, notFound(err)
	}
	stats, err := deps.StatsStore.Get(ctx, m.ID, active.ID)
	if err != nil {
		return GetAttendanceRateResult{}, notFound(err)
	}

	gap := active.Gap(m.CohortNumber)
	return GetAttendanceRateResult{
		MemberID: m.ID,
		CohortID: active.ID,
		Gap:      gap,
		Stats:    stats,
		Rate:     stats.Rate(gap),
	}, nil
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.Wrap(apperror.ErrNotFound, err)
	}
	return err
}
