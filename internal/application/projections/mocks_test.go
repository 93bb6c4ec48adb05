package projections

import (
	"context"
	"time"

	"crux/internal/adapters/storage"
	attendanceStore "crux/internal/adapters/storage/attendance"
	"crux/internal/domain/apperror"
	domainAttendance "crux/internal/domain/attendance"
	domainCohort "crux/internal/domain/cohort"
	domainMember "crux/internal/domain/member"
	domainRanking "crux/internal/domain/ranking"
	domainSchedule "crux/internal/domain/schedule"
)

var kst = time.FixedZone("KST", 9*60*60)

// fixedNow is Monday of week 3 of the mock cohort.
func fixedNow() time.Time { return time.Date(2026, 3, 16, 20, 0, 0, 0, kst) }

var cohort5 = domainCohort.Cohort{
	ID: "c-5", Number: 5, Name: "5기",
	StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	EndDate:   time.Date(2026, 6, 28, 0, 0, 0, 0, time.UTC),
}

// mockResolver implements ScheduleResolver for testing.
type mockResolver struct {
	active  *domainCohort.Cohort
	entries map[string]domainSchedule.Entry // by day
}

func (m *mockResolver) Local(t time.Time) time.Time { return t.In(kst) }

func (m *mockResolver) ActiveCohort(_ context.Context, t time.Time) (domainCohort.Cohort, error) {
	if m.active == nil || !m.active.Contains(t.In(kst)) {
		return domainCohort.Cohort{}, apperror.ErrNotFound
	}
	return *m.active, nil
}

func (m *mockResolver) WeekIndex(c domainCohort.Cohort, t time.Time) int {
	return c.WeekIndex(t.In(kst))
}

func (m *mockResolver) DaySchedule(_ context.Context, _ string, t time.Time) (domainSchedule.Entry, error) {
	e, ok := m.entries[domainSchedule.DayOf(t.In(kst))]
	if !ok {
		return domainSchedule.Entry{}, apperror.ErrMissingWeeklyStaffInfo
	}
	return e, nil
}

func activeResolver() *mockResolver {
	c := cohort5
	return &mockResolver{
		active: &c,
		entries: map[string]domainSchedule.Entry{
			domainSchedule.Monday: {ID: "s-1", CohortID: "c-5", Day: domainSchedule.Monday, Location: "yeonnam", StartTime: "19:00"},
		},
	}
}

// mockMemberStore implements MemberStore for testing.
type mockMemberStore struct {
	members map[string]domainMember.Member
}

func (m *mockMemberStore) GetByID(_ context.Context, id string) (domainMember.Member, error) {
	mem, ok := m.members[id]
	if !ok {
		return domainMember.Member{}, storage.ErrNotFound
	}
	return mem, nil
}

// mockStatsStore implements StatsStore for testing.
type mockStatsStore struct {
	stats map[string]domainAttendance.Stats // by member id
}

func (m *mockStatsStore) Get(_ context.Context, memberID, _ string) (domainAttendance.Stats, error) {
	s, ok := m.stats[memberID]
	if !ok {
		return domainAttendance.Stats{}, storage.ErrNotFound
	}
	return s, nil
}

// mockAttendanceStore implements AttendanceStore for testing.
type mockAttendanceStore struct {
	requests []domainAttendance.Request
	pending  []attendanceStore.PendingRequest
}

func (m *mockAttendanceStore) ListByMemberCohort(_ context.Context, memberID, cohortID string) ([]domainAttendance.Request, error) {
	var out []domainAttendance.Request
	for _, r := range m.requests {
		if r.MemberID == memberID && r.CohortID == cohortID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockAttendanceStore) ListPending(_ context.Context, _ string) ([]attendanceStore.PendingRequest, error) {
	return m.pending, nil
}

func (m *mockAttendanceStore) CountAlternates(_ context.Context, memberID, cohortID string) (int, error) {
	n := 0
	for _, r := range m.requests {
		if r.MemberID == memberID && r.CohortID == cohortID && r.Status == domainAttendance.StatusApproved && r.Alternate {
			n++
		}
	}
	return n, nil
}

// mockRankingStore implements RankingStore for testing.
type mockRankingStore struct {
	entries map[string][]domainRanking.Entry // by cohort id
	totals  []domainRanking.Total
}

func (m *mockRankingStore) ListByCohort(_ context.Context, cohortID string) ([]domainRanking.Entry, error) {
	return m.entries[cohortID], nil
}

func (m *mockRankingStore) ListTotals(_ context.Context) ([]domainRanking.Total, error) {
	return m.totals, nil
}

func approved(id, memberID string, week int, outcome string, alternate bool, at time.Time) domainAttendance.Request {
	r := domainAttendance.NewPending(id, memberID, "c-5", week, "yeonnam", at)
	_ = r.Approve(outcome, alternate, "mgr-1", at.Add(time.Hour))
	return r
}
