package projections

import (
	"context"
	"slices"
)

// ListSessionDatesQuery carries query parameters.
type ListSessionDatesQuery struct {
	MemberID string
}

// ListSessionDatesResult lists the club dates a member logged sessions on.
type ListSessionDatesResult struct {
	Dates []string `json:"dates"` // YYYY-MM-DD, ascending, no repeats
}

// ListSessionDatesDeps holds dependencies for ListSessionDates.
type ListSessionDatesDeps struct {
	Resolver    ScheduleResolver
	RecordStore RecordStore
}

// QueryListSessionDates returns the dates of a member's sessions for calendar marking.
func QueryListSessionDates(ctx context.Context, query ListSessionDatesQuery, deps ListSessionDatesDeps) (ListSessionDatesResult, error) {
	sessions, err := deps.RecordStore.ListSessionsByMember(ctx, query.MemberID)
	if err != nil {
		return ListSessionDatesResult{}, err
	}
	dates := make([]string, 0, len(sessions))
	for _, s := range sessions {
		dates = append(dates, deps.Resolver.Local(s.StartTime).Format("2006-01-02"))
	}
	slices.Sort(dates)
	return ListSessionDatesResult{Dates: slices.Compact(dates)}, nil
}
