package projections

import (
	"context"

	domainRecord "crux/internal/domain/record"
)

// ListSessionsQuery carries query parameters.
type ListSessionsQuery struct {
	MemberID string
}

// SessionView is one logged session with its problem counts.
type SessionView struct {
	Session  domainRecord.Session   `json:"session"`
	Problems []domainRecord.Problem `json:"problems"`
	Solved   int                    `json:"solved"`
}

// ListSessionsDeps holds dependencies for ListSessions.
type ListSessionsDeps struct {
	RecordStore RecordStore
}

// QueryListSessions returns the member's sessions, newest first.
// POST: Solved is the sum of Solved over Problems
func QueryListSessions(ctx context.Context, query ListSessionsQuery, deps ListSessionsDeps) ([]SessionView, error) {
	sessions, err := deps.RecordStore.ListSessionsByMember(ctx, query.MemberID)
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		problems, err := deps.RecordStore.ListProblems(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		view := SessionView{Session: s, Problems: problems}
		for _, p := range problems {
			view.Solved += p.Solved
		}
		views = append(views, view)
	}
	return views, nil
}
