package projections

import (
	"context"
	"errors"
	"time"

	"crux/internal/domain/apperror"
	domainRanking "crux/internal/domain/ranking"
)

// CohortRanking is one cohort's leaderboard of whole-cohort totals.
type CohortRanking struct {
	CohortID     string                `json:"cohort_id"`
	CohortNumber int                   `json:"cohort_number"`
	Entries      []domainRanking.Total `json:"entries"`
}

// GetCohortRankingsResult carries a leaderboard for every cohort with scores.
type GetCohortRankingsResult struct {
	Cohorts []CohortRanking `json:"cohorts"`
}

// GetCohortRankingsDeps holds dependencies for GetCohortRankings.
type GetCohortRankingsDeps struct {
	Resolver     ScheduleResolver
	RankingStore RankingStore
	Now          func() time.Time // injectable for testing
}

// QueryGetCohortRankings sums each member's weekly scores per cohort.
// POST: Cohorts ascend by number, entries by total descending. With no
// scores at all, the running cohort is returned with an empty leaderboard.
func QueryGetCohortRankings(ctx context.Context, deps GetCohortRankingsDeps) (GetCohortRankingsResult, error) {
	totals, err := deps.RankingStore.ListTotals(ctx)
	if err != nil {
		return GetCohortRankingsResult{}, err
	}
	result := GetCohortRankingsResult{Cohorts: []CohortRanking{}}
	for _, t := range totals {
		n := len(result.Cohorts)
		if n == 0 || result.Cohorts[n-1].CohortID != t.CohortID {
			result.Cohorts = append(result.Cohorts, CohortRanking{CohortID: t.CohortID, CohortNumber: t.CohortNumber})
			n++
		}
		result.Cohorts[n-1].Entries = append(result.Cohorts[n-1].Entries, t)
	}
	if len(result.Cohorts) > 0 {
		return result, nil
	}

	active, err := deps.Resolver.ActiveCohort(ctx, clock(deps.Now))
	switch {
	case err == nil:
		result.Cohorts = append(result.Cohorts, CohortRanking{CohortID: active.ID, CohortNumber: active.Number, Entries: []domainRanking.Total{}})
	case !errors.Is(err, apperror.ErrNotFound):
		return GetCohortRankingsResult{}, err
	}
	return result, nil
}
