package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crux/internal/adapters/storage"
	"crux/internal/domain/apperror"
	"crux/internal/domain/attendance"

	"github.com/google/uuid"
)

// SubmitAttendanceStore defines the attendance store interface needed for submission.
type SubmitAttendanceStore interface {
	HasLiveRequest(ctx context.Context, memberID, cohortID string, week int) (bool, error)
	Create(ctx context.Context, r attendance.Request) error
}

// BlackoutChecker reports whether a club date has no regular session.
type BlackoutChecker interface {
	IsBlackout(ctx context.Context, t time.Time) (bool, error)
}

// SubmitAttendanceInput carries input for the submit orchestrator.
type SubmitAttendanceInput struct {
	MemberID string
}

// SubmitAttendanceResult describes the created pending request.
type SubmitAttendanceResult struct {
	RequestID string `json:"id"`
	CohortID  string `json:"cohort_id"`
	Week      int    `json:"week"`
	Location  string `json:"location"`
}

// SubmitAttendanceDeps holds dependencies for SubmitAttendance.
type SubmitAttendanceDeps struct {
	Resolver        *ScheduleResolver
	Holidays        BlackoutChecker
	AttendanceStore SubmitAttendanceStore
	GenerateID      func() string    // optional, defaults to uuid
	Now             func() time.Time // injectable for testing
}

// ExecuteSubmitAttendance records a member's attendance request for today's session.
// PRE: MemberID identifies an authenticated member
// POST: A pending request exists for (member, active cohort, week)
// INVARIANT: At most one pending or approved request per member and week
func ExecuteSubmitAttendance(ctx context.Context, input SubmitAttendanceInput, deps SubmitAttendanceDeps) (SubmitAttendanceResult, error) {
	if input.MemberID == "" {
		return SubmitAttendanceResult{}, apperror.New(apperror.ErrInvalidField, "member is required")
	}
	now := deps.Resolver.Local(clock(deps.Now))

	active, err := deps.Resolver.ActiveCohort(ctx, now)
	if errors.Is(err, apperror.ErrNotFound) {
		return SubmitAttendanceResult{}, apperror.New(apperror.ErrAttendancePeriodInvalid, "no cohort is running today")
	}
	if err != nil {
		return SubmitAttendanceResult{}, err
	}
	week := deps.Resolver.WeekIndex(active, now)

	entry, err := deps.Resolver.DaySchedule(ctx, active.ID, now)
	if errors.Is(err, apperror.ErrMissingWeeklyStaffInfo) {
		return SubmitAttendanceResult{}, apperror.New(apperror.ErrAttendancePeriodInvalid, "no session is scheduled today")
	}
	if err != nil {
		return SubmitAttendanceResult{}, err
	}

	blackout, err := deps.Holidays.IsBlackout(ctx, now)
	if err != nil {
		return SubmitAttendanceResult{}, err
	}
	if blackout {
		return SubmitAttendanceResult{}, apperror.New(apperror.ErrAttendancePeriodInvalid, "today is a holiday")
	}

	live, err := deps.AttendanceStore.HasLiveRequest(ctx, input.MemberID, active.ID, week)
	if err != nil {
		return SubmitAttendanceResult{}, err
	}
	if live {
		return SubmitAttendanceResult{}, apperror.ErrDuplicateAttendance
	}

	id := uuid.New().String()
	if deps.GenerateID != nil {
		id = deps.GenerateID()
	}
	req := attendance.NewPending(id, input.MemberID, active.ID, week, entry.Location, now)
	if err := req.Validate(); err != nil {
		return SubmitAttendanceResult{}, apperror.Wrap(apperror.ErrInvalidField, err)
	}

	// A concurrent submit that slipped past HasLiveRequest trips the unique index.
	if err := deps.AttendanceStore.Create(ctx, req); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return SubmitAttendanceResult{}, apperror.Wrap(apperror.ErrDuplicateAttendance, err)
		}
		return SubmitAttendanceResult{}, err
	}

	slog.Info("attendance_event", "event", "request_submitted", "request_id", id, "member_id", input.MemberID, "cohort_id", active.ID, "week", week, "location", entry.Location)
	return SubmitAttendanceResult{RequestID: id, CohortID: active.ID, Week: week, Location: entry.Location}, nil
}
