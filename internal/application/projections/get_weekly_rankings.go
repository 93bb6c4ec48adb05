package projections

import (
	"context"
	"errors"
	"time"

	"crux/internal/domain/apperror"
	domainRanking "crux/internal/domain/ranking"
)

// GetWeeklyRankingsQuery carries query parameters.
type GetWeeklyRankingsQuery struct {
	CohortID string // optional, defaults to the active cohort
}

// WeekRanking is one week's leaderboard, highest score first.
type WeekRanking struct {
	Week    int                   `json:"week"`
	Entries []domainRanking.Entry `json:"entries"`
}

// GetWeeklyRankingsResult carries every week of a cohort's rankings.
type GetWeeklyRankingsResult struct {
	CohortID    string        `json:"cohort_id"`
	CurrentWeek int           `json:"current_week"` // 0 when the cohort is not running today
	Weeks       []WeekRanking `json:"weeks"`
}

// GetWeeklyRankingsDeps holds dependencies for GetWeeklyRankings.
type GetWeeklyRankingsDeps struct {
	Resolver     ScheduleResolver
	RankingStore RankingStore
	Now          func() time.Time // injectable for testing
}

// QueryGetWeeklyRankings groups a cohort's score entries by week.
// PRE: CohortID is empty or names an existing cohort
// POST: Weeks ascend; entries within a week are ordered by score descending
func QueryGetWeeklyRankings(ctx context.Context, query GetWeeklyRankingsQuery, deps GetWeeklyRankingsDeps) (GetWeeklyRankingsResult, error) {
	now := clock(deps.Now)
	result := GetWeeklyRankingsResult{CohortID: query.CohortID, Weeks: []WeekRanking{}}

	active, err := deps.Resolver.ActiveCohort(ctx, now)
	switch {
	case err == nil:
		if result.CohortID == "" || result.CohortID == active.ID {
			result.CohortID = active.ID
			result.CurrentWeek = deps.Resolver.WeekIndex(active, now)
		}
	case errors.Is(err, apperror.ErrNotFound) && query.CohortID != "":
		// A past cohort can still be browsed.
	default:
		return GetWeeklyRankingsResult{}, err
	}

	entries, err := deps.RankingStore.ListByCohort(ctx, result.CohortID)
	if err != nil {
		return GetWeeklyRankingsResult{}, err
	}
	for _, e := range entries {
		n := len(result.Weeks)
		if n == 0 || result.Weeks[n-1].Week != e.Week {
			result.Weeks = append(result.Weeks, WeekRanking{Week: e.Week})
			n++
		}
		result.Weeks[n-1].Entries = append(result.Weeks[n-1].Entries, e)
	}
	return result, nil
}
