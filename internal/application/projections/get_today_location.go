package projections

import (
	"context"
	"time"
)

// GetTodayLocationResult describes today's session.
type GetTodayLocationResult struct {
	CohortID  string `json:"cohort_id"`
	Week      int    `json:"week"`
	Day       string `json:"day"`
	Location  string `json:"location"`
	StartTime string `json:"start_time"`
}

// GetTodayLocationDeps holds dependencies for GetTodayLocation.
type GetTodayLocationDeps struct {
	Resolver ScheduleResolver
	Now      func() time.Time // injectable for testing
}

// QueryGetTodayLocation returns where the active cohort trains today.
// POST: Returns ErrMissingWeeklyStaffInfo when no session is scheduled today
func QueryGetTodayLocation(ctx context.Context, deps GetTodayLocationDeps) (GetTodayLocationResult, error) {
	now := deps.Resolver.Local(clock(deps.Now))
	active, err := deps.Resolver.ActiveCohort(ctx, now)
	if err != nil {
		return GetTodayLocationResult{}, err
	}
	entry, err := deps.Resolver.DaySchedule(ctx, active.ID, now)
	if err != nil {
		return GetTodayLocationResult{}, err
	}
	return GetTodayLocationResult{
		CohortID:  active.ID,
		Week:      deps.Resolver.WeekIndex(active, now),
		Day:       entry.Day,
		Location:  entry.Location,
		StartTime: entry.StartTime,
	}, nil
}
