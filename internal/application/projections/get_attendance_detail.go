package projections

import (
	"context"
	"errors"
	"time"

	"crux/internal/adapters/storage"
	domainAttendance "crux/internal/domain/attendance"
)

// GetAttendanceDetailQuery carries query parameters.
type GetAttendanceDetailQuery struct {
	MemberID string
}

// GetAttendanceDetailResult carries a member's counters and requests in the active cohort.
type GetAttendanceDetailResult struct {
	MemberID            string                     `json:"member_id"`
	CohortID            string                     `json:"cohort_id"`
	OnTime              int                        `json:"on_time"`
	Late                int                        `json:"late"`
	Absent              int                        `json:"absent"`
	AlternatesRemaining int                        `json:"alternates_remaining"`
	Requests            []domainAttendance.Request `json:"requests"`
}

// GetAttendanceDetailDeps holds dependencies for GetAttendanceDetail.
type GetAttendanceDetailDeps struct {
	Resolver        ScheduleResolver
	MemberStore     MemberStore
	StatsStore      StatsStore
	AttendanceStore AttendanceStore
	Now             func() time.Time // injectable for testing
}

// QueryGetAttendanceDetail returns a member's attendance summary.
// A member with no stats row yet reports zero counters.
// PRE: MemberID identifies a member
// POST: Requests are ordered by week
func QueryGetAttendanceDetail(ctx context.Context, query GetAttendanceDetailQuery, deps GetAttendanceDetailDeps) (GetAttendanceDetailResult, error) {
	active, err := deps.Resolver.ActiveCohort(ctx, clock(deps.Now))
	if err != nil {
		return GetAttendanceDetailResult{}, err
	}
	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return GetAttendanceDetailResult{}, notFound(err)
	}

	result := GetAttendanceDetailResult{MemberID: m.ID, CohortID: active.ID}
	stats, err := deps.StatsStore.Get(ctx, m.ID, active.ID)
	switch {
	case err == nil:
		result.OnTime, result.Late, result.Absent = stats.OnTime, stats.Late, stats.Absent
	case !errors.Is(err, storage.ErrNotFound):
		return GetAttendanceDetailResult{}, err
	}

	used, err := deps.AttendanceStore.CountAlternates(ctx, m.ID, active.ID)
	if err != nil {
		return GetAttendanceDetailResult{}, err
	}
	result.AlternatesRemaining = domainAttendance.MaxAlternates - used

	result.Requests, err = deps.AttendanceStore.ListByMemberCohort(ctx, m.ID, active.ID)
	if err != nil {
		return GetAttendanceDetailResult{}, err
	}
	if result.Requests == nil {
		result.Requests = []domainAttendance.Request{}
	}
	return result, nil
}
