package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"crux/internal/adapters/storage"
	"crux/internal/domain/ranking"
	"crux/internal/domain/record"
)

// ScoreStore applies signed deltas to weekly score entries.
type ScoreStore interface {
	ApplyDelta(ctx context.Context, memberID, cohortID string, week int, delta float64) error
}

// RankingAggregator keeps each weekly score equal to the sum of the live
// contributions of the member's problems in that week. It never recomputes
// from scratch; callers invoke it for every problem mutation inside the
// mutation's transaction.
type RankingAggregator struct {
	Scores   ScoreStore
	Members  MemberLookup
	Resolver *ScheduleResolver
}

// OnCreate adds the problem's contribution to its week.
// POST: score(member, cohort, week) grows by Contribution; sessions outside any cohort are ignored
func (a *RankingAggregator) OnCreate(ctx context.Context, s record.Session, p record.Problem) error {
	return a.apply(ctx, s, p, 1)
}

// OnUpdate replaces prior's contribution, counted in priorSession's week,
// with next's, counted in nextSession's week. The two weeks, and even the
// cohorts, may differ when the session itself was moved.
// PRE: prior and priorSession are the persisted state, read under row locks
func (a *RankingAggregator) OnUpdate(ctx context.Context, priorSession record.Session, prior record.Problem, nextSession record.Session, next record.Problem) error {
	if err := a.apply(ctx, priorSession, prior, -1); err != nil {
		return err
	}
	return a.apply(ctx, nextSession, next, 1)
}

// OnDelete removes the problem's contribution from its week.
func (a *RankingAggregator) OnDelete(ctx context.Context, s record.Session, p record.Problem) error {
	return a.apply(ctx, s, p, -1)
}

// apply uses the member's level at the time of the call, not at the time
// the problem was logged.
func (a *RankingAggregator) apply(ctx context.Context, s record.Session, p record.Problem, sign float64) error {
	if s.CohortID == "" {
		return nil
	}
	c, err := a.Resolver.Cohorts.GetByID(ctx, s.CohortID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	start := a.Resolver.Local(s.StartTime)
	if !c.Contains(start) {
		return nil
	}
	m, err := a.Members.GetByID(ctx, s.MemberID)
	if err != nil {
		return mapStoreError(err)
	}

	delta := sign * ranking.Contribution(p.Solved, p.Difficulty, m.Level)
	if delta == 0 {
		return nil
	}
	week := c.WeekIndex(start)
	if err := a.Scores.ApplyDelta(ctx, s.MemberID, c.ID, week, delta); err != nil {
		return err
	}
	slog.Debug("ranking_event", "event", "score_applied", "member_id", s.MemberID, "cohort_id", c.ID, "week", week, "delta", delta)
	return nil
}
