package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	memberStore "crux/internal/adapters/storage/member"
	"crux/internal/domain/apperror"
	"crux/internal/domain/attendance"
	"crux/internal/domain/cohort"
	"crux/internal/domain/member"
	"crux/internal/domain/schedule"

	"github.com/google/uuid"
)

// Job names, as used by the scheduler and the admin API.
const (
	JobRejectStalePending = "reject_stale_pending"
	JobBackfillHoliday    = "backfill_holiday"
	JobBackfillAbsence    = "backfill_absence"
)

// JobReport summarises one reconciliation run.
// For RejectStalePending, Created counts requests transitioned to rejected.
type JobReport struct {
	Job        string `json:"job"`
	Date       string `json:"date"`
	Candidates int    `json:"candidates"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

// ReconcileAttendanceStore defines the attendance store interface needed by the jobs.
type ReconcileAttendanceStore interface {
	RejectPendingOn(ctx context.Context, cohortID string, day, now time.Time) (int64, error)
	HasApproved(ctx context.Context, memberID, cohortID string, week int) (bool, error)
	Create(ctx context.Context, r attendance.Request) error
}

// RosterLister selects the members a job applies to.
type RosterLister interface {
	ListRoster(ctx context.Context, filter memberStore.RosterFilter) ([]member.Member, error)
}

// ReconcileDeps holds dependencies for the reconciliation jobs.
type ReconcileDeps struct {
	Tx              Transactor
	Resolver        *ScheduleResolver
	Holidays        BlackoutChecker
	AttendanceStore ReconcileAttendanceStore
	StatsStore      StatsIncrementer
	Roster          RosterLister
	GenerateID      func() string    // optional, defaults to uuid
	Now             func() time.Time // injectable for testing
}

// ReconcileJobs binds every reconciliation job to deps, keyed by job name.
func ReconcileJobs(deps ReconcileDeps) map[string]JobFunc {
	return map[string]JobFunc{
		JobRejectStalePending: func(ctx context.Context) (JobReport, error) { return ExecuteRejectStalePending(ctx, deps) },
		JobBackfillHoliday:    func(ctx context.Context) (JobReport, error) { return ExecuteBackfillHoliday(ctx, deps) },
		JobBackfillAbsence:    func(ctx context.Context) (JobReport, error) { return ExecuteBackfillAbsence(ctx, deps) },
	}
}

func (d ReconcileDeps) newID() string {
	if d.GenerateID != nil {
		return d.GenerateID()
	}
	return uuid.New().String()
}

// ExecuteRejectStalePending rejects every request still pending from today.
// PRE: Runs once near the end of the club day
// POST: No pending request with today's request date remains in the active cohort
func ExecuteRejectStalePending(ctx context.Context, deps ReconcileDeps) (JobReport, error) {
	now := deps.Resolver.Local(clock(deps.Now))
	report := JobReport{Job: JobRejectStalePending, Date: now.Format(cohort.DateFormat)}

	active, ok, err := jobCohort(ctx, deps.Resolver, now, report.Job)
	if err != nil || !ok {
		return report, err
	}

	n, err := deps.AttendanceStore.RejectPendingOn(ctx, active.ID, now, now)
	if err != nil {
		return report, err
	}
	report.Candidates = int(n)
	report.Created = int(n)

	slog.Info("job_event", "event", "job_finished", "job", report.Job, "date", report.Date, "rejected", n)
	return report, nil
}

// ExecuteBackfillHoliday approves a holiday record for every member who
// would have trained at today's location on a blackout date.
// PRE: Runs once per club day, after RejectStalePending
// POST: Each candidate has an approved request for the week
// INVARIANT: Members already approved this week are skipped, so reruns create nothing
func ExecuteBackfillHoliday(ctx context.Context, deps ReconcileDeps) (JobReport, error) {
	now := deps.Resolver.Local(clock(deps.Now))
	report := JobReport{Job: JobBackfillHoliday, Date: now.Format(cohort.DateFormat)}

	blackout, err := deps.Holidays.IsBlackout(ctx, now)
	if err != nil {
		return report, err
	}
	if !blackout {
		slog.Debug("job_event", "event", "job_skipped", "job", report.Job, "reason", "not_a_holiday")
		return report, nil
	}
	active, ok, err := jobCohort(ctx, deps.Resolver, now, report.Job)
	if err != nil || !ok {
		return report, err
	}
	entry, err := deps.Resolver.DaySchedule(ctx, active.ID, now)
	if errors.Is(err, apperror.ErrMissingWeeklyStaffInfo) {
		slog.Info("job_event", "event", "job_skipped", "job", report.Job, "reason", "no_schedule", "cohort_id", active.ID)
		return report, nil
	}
	if err != nil {
		return report, err
	}

	members, err := deps.Roster.ListRoster(ctx, memberStore.RosterFilter{
		Location:      entry.Location,
		CohortNumbers: []int{active.Number, active.PreviousNumber()},
	})
	if err != nil {
		return report, err
	}

	week := active.WeekIndex(now)
	for _, m := range members {
		backfill(ctx, deps, &report, m, active, week, func(ctx context.Context) error {
			return deps.AttendanceStore.Create(ctx, attendance.NewBackfill(deps.newID(), m.ID, active.ID, week, entry.Location, attendance.OutcomeHoliday, now))
		})
	}

	slog.Info("job_event", "event", "job_finished", "job", report.Job, "date", report.Date, "candidates", report.Candidates, "created", report.Created, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// ExecuteBackfillAbsence records an absence for every active member who
// has no approved request in the week that ends today.
// PRE: Runs once per club day; does nothing unless today is the last day of a cohort week
// POST: Each candidate has an approved request and its absent counter incremented
// INVARIANT: The request and the counter change in one transaction per member
func ExecuteBackfillAbsence(ctx context.Context, deps ReconcileDeps) (JobReport, error) {
	now := deps.Resolver.Local(clock(deps.Now))
	report := JobReport{Job: JobBackfillAbsence, Date: now.Format(cohort.DateFormat)}

	active, ok, err := jobCohort(ctx, deps.Resolver, now, report.Job)
	if err != nil || !ok {
		return report, err
	}
	if !IsWeekClosingDay(active, now) {
		slog.Debug("job_event", "event", "job_skipped", "job", report.Job, "reason", "not_week_end")
		return report, nil
	}

	members, err := deps.Roster.ListRoster(ctx, memberStore.RosterFilter{
		CohortNumbers: []int{active.Number, active.PreviousNumber()},
		Role:          member.RoleMember,
		ActiveOnly:    true,
	})
	if err != nil {
		return report, err
	}

	week := active.WeekIndex(now)
	for _, m := range members {
		backfill(ctx, deps, &report, m, active, week, func(ctx context.Context) error {
			req := attendance.NewBackfill(deps.newID(), m.ID, active.ID, week, m.HomeLocation, attendance.OutcomeAbsent, now)
			if err := deps.AttendanceStore.Create(ctx, req); err != nil {
				return err
			}
			return deps.StatsStore.Increment(ctx, m.ID, active.ID, attendance.FieldAbsent)
		})
	}

	slog.Info("job_event", "event", "job_finished", "job", report.Job, "date", report.Date, "candidates", report.Candidates, "created", report.Created, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// IsWeekClosingDay reports whether t falls on the weekday before the
// cohort's start weekday, the last day of every cohort week.
func IsWeekClosingDay(c cohort.Cohort, t time.Time) bool {
	start := schedule.WeekdayIndex(c.StartDate.Weekday())
	return schedule.WeekdayIndex(t.Weekday()) == (start+6)%7
}

// backfill runs create for one member in its own transaction unless the
// member already has an approved request this week. Failures are counted
// and logged; the batch continues.
func backfill(ctx context.Context, deps ReconcileDeps, report *JobReport, m member.Member, active cohort.Cohort, week int, create func(ctx context.Context) error) {
	report.Candidates++
	skipped := false
	err := deps.Tx.InTx(ctx, func(ctx context.Context) error {
		approved, err := deps.AttendanceStore.HasApproved(ctx, m.ID, active.ID, week)
		if err != nil {
			return err
		}
		if approved {
			skipped = true
			return nil
		}
		return create(ctx)
	})
	switch {
	case err != nil:
		report.Failed++
		slog.Error("job_event", "event", "member_failed", "job", report.Job, "member_id", m.ID, "error", err)
	case skipped:
		report.Skipped++
	default:
		report.Created++
	}
}

// jobCohort resolves the active cohort for a job. ok is false when no
// cohort is running, which is not an error for a nightly job.
func jobCohort(ctx context.Context, r *ScheduleResolver, now time.Time, job string) (cohort.Cohort, bool, error) {
	active, err := r.ActiveCohort(ctx, now)
	if errors.Is(err, apperror.ErrNotFound) {
		slog.Info("job_event", "event", "job_skipped", "job", job, "reason", "no_active_cohort")
		return cohort.Cohort{}, false, nil
	}
	if err != nil {
		return cohort.Cohort{}, false, err
	}
	return active, true, nil
}
