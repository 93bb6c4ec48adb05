package orchestrators

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"crux/internal/adapters/storage"
	attendanceStore "crux/internal/adapters/storage/attendance"
	cohortStore "crux/internal/adapters/storage/cohort"
	holidayStore "crux/internal/adapters/storage/holiday"
	memberStore "crux/internal/adapters/storage/member"
	rankingStore "crux/internal/adapters/storage/ranking"
	recordStore "crux/internal/adapters/storage/record"
	scheduleStore "crux/internal/adapters/storage/schedule"
	"crux/internal/adapters/storage/storagetest"
	"crux/internal/domain/holiday"
	"crux/internal/domain/schedule"
)

var kst = time.FixedZone("KST", 9*60*60)

// club wires real SQLite stores around a small roster:
//
//	c-3 (3기) 2025-07-07..2025-11-02
//	c-4 (4기) 2025-11-03..2026-03-01
//	c-5 (5기) 2026-03-02..2026-06-28, starts on a Monday
//
// c-5 trains Monday 19:00 at yeonnam, Wednesday 19:00 at sinchon and
// Sunday 10:00 at yeonnam.
type club struct {
	db         *storage.TimedDB
	resolver   *ScheduleResolver
	attendance *attendanceStore.SQLStore
	stats      *attendanceStore.SQLStatsStore
	members    *memberStore.SQLStore
	holidays   *holidayStore.SQLStore
	records    *recordStore.SQLStore
	scores     *rankingStore.SQLStore
	ids        atomic.Int64
}

func newClub(t *testing.T) *club {
	t.Helper()
	db := storagetest.OpenDB(t)
	storagetest.SeedCohort(t, db, "c-3", 3, "2025-07-07", "2025-11-02")
	storagetest.SeedCohort(t, db, "c-4", 4, "2025-11-03", "2026-03-01")
	storagetest.SeedCohort(t, db, "c-5", 5, "2026-03-02", "2026-06-28")

	c := &club{
		db:         db,
		attendance: attendanceStore.NewSQLStore(db),
		stats:      attendanceStore.NewSQLStatsStore(db),
		members:    memberStore.NewSQLStore(db),
		holidays:   holidayStore.NewSQLStore(db),
		records:    recordStore.NewSQLStore(db),
		scores:     rankingStore.NewSQLStore(db),
	}
	schedules := scheduleStore.NewSQLStore(db)
	c.resolver = NewScheduleResolver(cohortStore.NewSQLStore(db), schedules, kst)

	ctx := context.Background()
	for _, e := range []schedule.Entry{
		{ID: "s-mon", CohortID: "c-5", Day: schedule.Monday, Location: "yeonnam", StartTime: "19:00"},
		{ID: "s-wed", CohortID: "c-5", Day: schedule.Wednesday, Location: "sinchon", StartTime: "19:00"},
		{ID: "s-sun", CohortID: "c-5", Day: schedule.Sunday, Location: "yeonnam", StartTime: "10:00"},
	} {
		if err := schedules.Save(ctx, e); err != nil {
			t.Fatalf("seed schedule: %v", err)
		}
	}

	storagetest.SeedMember(t, db, "m-1", "member", "yeonnam", "c-5")
	storagetest.SeedMember(t, db, "m-2", "member", "sinchon", "c-5")
	storagetest.SeedMember(t, db, "m-3", "member", "yeonnam", "c-4")
	storagetest.SeedMember(t, db, "m-old", "member", "yeonnam", "c-3")
	storagetest.SeedMember(t, db, "mgr-1", "manager", "yeonnam", "c-5")
	return c
}

func (c *club) genID() string {
	return fmt.Sprintf("id-%d", c.ids.Add(1))
}

func (c *club) blackout(t *testing.T, date string) {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.holidays.Save(context.Background(), holiday.BlackoutDate{ID: "h-" + date, Date: d}); err != nil {
		t.Fatalf("seed blackout: %v", err)
	}
}

func at(date, clock string) func() time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, kst)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func (c *club) submitDeps(now func() time.Time) SubmitAttendanceDeps {
	return SubmitAttendanceDeps{
		Resolver:        c.resolver,
		Holidays:        c.holidays,
		AttendanceStore: c.attendance,
		GenerateID:      c.genID,
		Now:             now,
	}
}

func (c *club) decideDeps(now func() time.Time) DecideAttendanceDeps {
	return DecideAttendanceDeps{
		Tx:              c.db,
		Resolver:        c.resolver,
		AttendanceStore: c.attendance,
		StatsStore:      c.stats,
		MemberStore:     c.members,
		Now:             now,
	}
}

func (c *club) reconcileDeps(now func() time.Time) ReconcileDeps {
	return ReconcileDeps{
		Tx:              c.db,
		Resolver:        c.resolver,
		Holidays:        c.holidays,
		AttendanceStore: c.attendance,
		StatsStore:      c.stats,
		Roster:          c.members,
		GenerateID:      c.genID,
		Now:             now,
	}
}

func (c *club) activityDeps() LogActivityDeps {
	return LogActivityDeps{
		Tx:       c.db,
		Resolver: c.resolver,
		Records:  c.records,
		Aggregator: &RankingAggregator{
			Scores:   c.scores,
			Members:  c.members,
			Resolver: c.resolver,
		},
		GenerateID: c.genID,
		Now:        at("2026-12-31", "23:00"),
	}
}

// submit files a request for memberID at the given club time and fails the test on error.
func (c *club) submit(t *testing.T, memberID string, now func() time.Time) string {
	t.Helper()
	res, err := ExecuteSubmitAttendance(context.Background(), SubmitAttendanceInput{MemberID: memberID}, c.submitDeps(now))
	if err != nil {
		t.Fatalf("submit for %s: %v", memberID, err)
	}
	return res.RequestID
}
