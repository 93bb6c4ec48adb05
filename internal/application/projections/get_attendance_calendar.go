package projections

import (
	"context"
	"time"

	domainAttendance "crux/internal/domain/attendance"
	domainCohort "crux/internal/domain/cohort"
)

// GetAttendanceCalendarQuery carries query parameters.
type GetAttendanceCalendarQuery struct {
	MemberID string
}

// GetAttendanceCalendarResult lists the dates a member attended, as YYYY-MM-DD.
type GetAttendanceCalendarResult struct {
	OnTime []string `json:"on_time"`
	Late   []string `json:"late"`
}

// GetAttendanceCalendarDeps holds dependencies for GetAttendanceCalendar.
type GetAttendanceCalendarDeps struct {
	Resolver        ScheduleResolver
	AttendanceStore AttendanceStore
	Now             func() time.Time // injectable for testing
}

// QueryGetAttendanceCalendar returns the dates of the member's on-time and
// late approvals in the active cohort.
func QueryGetAttendanceCalendar(ctx context.Context, query GetAttendanceCalendarQuery, deps GetAttendanceCalendarDeps) (GetAttendanceCalendarResult, error) {
	active, err := deps.Resolver.ActiveCohort(ctx, clock(deps.Now))
	if err != nil {
		return GetAttendanceCalendarResult{}, err
	}
	requests, err := deps.AttendanceStore.ListByMemberCohort(ctx, query.MemberID, active.ID)
	if err != nil {
		return GetAttendanceCalendarResult{}, err
	}

	result := GetAttendanceCalendarResult{OnTime: []string{}, Late: []string{}}
	for _, r := range requests {
		if r.Status != domainAttendance.StatusApproved {
			continue
		}
		day := r.RequestDate.Format(domainCohort.DateFormat)
		switch r.Outcome {
		case domainAttendance.OutcomeOnTime:
			result.OnTime = append(result.OnTime, day)
		case domainAttendance.OutcomeLate:
			result.Late = append(result.Late, day)
		}
	}
	return result, nil
}
