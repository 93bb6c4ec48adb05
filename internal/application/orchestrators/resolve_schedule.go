package orchestrators

import (
	"context"
	"errors"
	"time"

	"crux/internal/adapters/storage"
	"crux/internal/domain/apperror"
	"crux/internal/domain/cohort"
	"crux/internal/domain/schedule"
)

// CohortLookup defines the cohort store interface needed by the resolver.
type CohortLookup interface {
	GetByID(ctx context.Context, id string) (cohort.Cohort, error)
	ActiveOn(ctx context.Context, t time.Time) (cohort.Cohort, error)
}

// ScheduleLookup defines the schedule store interface needed by the resolver.
type ScheduleLookup interface {
	FirstForDay(ctx context.Context, cohortID, day string) (schedule.Entry, error)
}

// ScheduleResolver answers "which cohort, which week, which session" for an
// instant, evaluated on the club's calendar.
type ScheduleResolver struct {
	Cohorts   CohortLookup
	Schedules ScheduleLookup
	Location  *time.Location
}

// NewScheduleResolver creates a resolver for the club time zone loc.
// A nil loc means UTC.
func NewScheduleResolver(cohorts CohortLookup, schedules ScheduleLookup, loc *time.Location) *ScheduleResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleResolver{Cohorts: cohorts, Schedules: schedules, Location: loc}
}

// Local converts t to the club's time zone.
func (r *ScheduleResolver) Local(t time.Time) time.Time {
	return t.In(r.Location)
}

// ActiveCohort returns the cohort whose window contains the club date of t.
// POST: Returns apperror.ErrNotFound when no cohort is running
func (r *ScheduleResolver) ActiveCohort(ctx context.Context, t time.Time) (cohort.Cohort, error) {
	c, err := r.Cohorts.ActiveOn(ctx, r.Local(t))
	if errors.Is(err, storage.ErrNotFound) {
		return cohort.Cohort{}, apperror.New(apperror.ErrNotFound, "no active cohort")
	}
	if err != nil {
		return cohort.Cohort{}, err
	}
	return c, nil
}

// WeekIndex returns the 1-based week of t within c.
func (r *ScheduleResolver) WeekIndex(c cohort.Cohort, t time.Time) int {
	return c.WeekIndex(r.Local(t))
}

// DaySchedule returns the cohort's session for the weekday of t.
// POST: Returns apperror.ErrMissingWeeklyStaffInfo when none is configured
func (r *ScheduleResolver) DaySchedule(ctx context.Context, cohortID string, t time.Time) (schedule.Entry, error) {
	entry, err := r.Schedules.FirstForDay(ctx, cohortID, schedule.DayOf(r.Local(t)))
	if errors.Is(err, storage.ErrNotFound) {
		return schedule.Entry{}, apperror.ErrMissingWeeklyStaffInfo
	}
	if err != nil {
		return schedule.Entry{}, err
	}
	return entry, nil
}

// mapStoreError converts storage sentinels into user-facing errors.
// Errors that already carry an apperror code pass through.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrRowLocked):
		return apperror.Wrap(apperror.ErrResourceLocked, err)
	case errors.Is(err, storage.ErrNotFound):
		return apperror.Wrap(apperror.ErrNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return apperror.Wrap(apperror.ErrInvalidFieldState, err)
	}
	return err
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
