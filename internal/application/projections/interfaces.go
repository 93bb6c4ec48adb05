package projections

import (
	"context"
	"time"

	attendanceStore "crux/internal/adapters/storage/attendance"
	memberStore "crux/internal/adapters/storage/member"
	domainAttendance "crux/internal/domain/attendance"
	domainCohort "crux/internal/domain/cohort"
	domainMember "crux/internal/domain/member"
	domainRanking "crux/internal/domain/ranking"
	domainRecord "crux/internal/domain/record"
	domainSchedule "crux/internal/domain/schedule"
)

// ScheduleResolver answers cohort, week, and session questions on the club calendar.
// orchestrators.ScheduleResolver implements it.
type ScheduleResolver interface {
	Local(t time.Time) time.Time
	ActiveCohort(ctx context.Context, t time.Time) (domainCohort.Cohort, error)
	WeekIndex(c domainCohort.Cohort, t time.Time) int
	DaySchedule(ctx context.Context, cohortID string, t time.Time) (domainSchedule.Entry, error)
}

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (domainMember.Member, error)
}

// RosterStore interface for member list queries.
type RosterStore interface {
	ListRoster(ctx context.Context, filter memberStore.RosterFilter) ([]domainMember.Member, error)
}

// StatsStore interface for attendance counter queries.
type StatsStore interface {
	Get(ctx context.Context, memberID, cohortID string) (domainAttendance.Stats, error)
}

// AttendanceStore interface for attendance request queries.
type AttendanceStore interface {
	ListByMemberCohort(ctx context.Context, memberID, cohortID string) ([]domainAttendance.Request, error)
	ListPending(ctx context.Context, cohortID string) ([]attendanceStore.PendingRequest, error)
	CountAlternates(ctx context.Context, memberID, cohortID string) (int, error)
}

// RankingStore interface for weekly score queries.
type RankingStore interface {
	ListByCohort(ctx context.Context, cohortID string) ([]domainRanking.Entry, error)
	ListTotals(ctx context.Context) ([]domainRanking.Total, error)
}

// RecordStore interface for climbing session queries.
type RecordStore interface {
	ListSessionsByMember(ctx context.Context, memberID string) ([]domainRecord.Session, error)
	ListProblems(ctx context.Context, sessionID string) ([]domainRecord.Problem, error)
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
