package projections

import (
	"context"
	"errors"
	"time"

	"crux/internal/adapters/storage"
	memberStore "crux/internal/adapters/storage/member"
	"crux/internal/domain/apperror"
)

// MemberSummary is one row of the member directory.
type MemberSummary struct {
	MemberID       string  `json:"member_id"`
	Name           string  `json:"name"`
	HomeLocation   string  `json:"home_location"`
	Level          int     `json:"level"`
	CohortNumber   int     `json:"cohort_number"`
	AttendanceRate float64 `json:"attendance_rate"` // in the running cohort, 0 without stats
}

// ListActiveMembersDeps holds dependencies for ListActiveMembers.
type ListActiveMembersDeps struct {
	Resolver    ScheduleResolver
	RosterStore RosterStore
	StatsStore  StatsStore
	Now         func() time.Time // injectable for testing
}

// QueryListActiveMembers returns every active member by name with their
// attendance rate in the running cohort.
// POST: Rates are 0 when no cohort is running or the member has no stats
func QueryListActiveMembers(ctx context.Context, deps ListActiveMembersDeps) ([]MemberSummary, error) {
	members, err := deps.RosterStore.ListRoster(ctx, memberStore.RosterFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	active, err := deps.Resolver.ActiveCohort(ctx, clock(deps.Now))
	running := err == nil
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	out := make([]MemberSummary, 0, len(members))
	for _, m := range members {
		row := MemberSummary{
			MemberID:     m.ID,
			Name:         m.Name,
			HomeLocation: m.HomeLocation,
			Level:        m.Level,
			CohortNumber: m.CohortNumber,
		}
		if running {
			stats, err := deps.StatsStore.Get(ctx, m.ID, active.ID)
			switch {
			case err == nil:
				row.AttendanceRate = stats.Rate(active.Gap(m.CohortNumber))
			case !errors.Is(err, storage.ErrNotFound):
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, nil
}
