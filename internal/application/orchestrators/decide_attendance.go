package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crux/internal/domain/apperror"
	"crux/internal/domain/attendance"
	"crux/internal/domain/cohort"
	"crux/internal/domain/member"
)

// Transactor runs fn inside one database transaction carried by ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DecisionStore defines the attendance store interface needed to accept or reject.
type DecisionStore interface {
	LockForDecision(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (attendance.Request, error)
	SaveDecision(ctx context.Context, r attendance.Request) error
}

// StatsIncrementer bumps one attendance counter under a row lock.
type StatsIncrementer interface {
	Increment(ctx context.Context, memberID, cohortID, field string) error
}

// MemberLookup defines the member store interface needed to load one member.
type MemberLookup interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// DecideAttendanceInput identifies the request and the manager deciding it.
type DecideAttendanceInput struct {
	RequestID string
	ActorID   string
}

// DecideAttendanceDeps holds dependencies for AcceptAttendance and RejectAttendance.
type DecideAttendanceDeps struct {
	Tx              Transactor
	Resolver        *ScheduleResolver
	AttendanceStore DecisionStore
	StatsStore      StatsIncrementer
	MemberStore     MemberLookup
	Now             func() time.Time // injectable for testing
}

// ExecuteAcceptAttendance approves a pending request and credits the member's stats.
// PRE: ActorID is a manager
// POST: Request is approved with an outcome, and exactly one counter was incremented
// INVARIANT: The request row is locked without waiting; contention returns ErrResourceLocked
func ExecuteAcceptAttendance(ctx context.Context, input DecideAttendanceInput, deps DecideAttendanceDeps) (attendance.Request, error) {
	if input.RequestID == "" {
		return attendance.Request{}, apperror.New(apperror.ErrInvalidField, "request id is required")
	}
	now := deps.Resolver.Local(clock(deps.Now))

	var decided attendance.Request
	err := deps.Tx.InTx(ctx, func(ctx context.Context) error {
		req, err := lockPending(ctx, input.RequestID, deps.AttendanceStore)
		if err != nil {
			return err
		}

		requestTime := deps.Resolver.Local(req.RequestTime)
		entry, err := deps.Resolver.DaySchedule(ctx, req.CohortID, requestTime)
		if err != nil {
			return err
		}
		outcome, err := attendance.ClassifyOutcome(entry, requestTime)
		if err != nil {
			return err
		}

		m, err := deps.MemberStore.GetByID(ctx, req.MemberID)
		if err != nil {
			return mapStoreError(err)
		}
		active, err := activeOrRequestCohort(ctx, deps.Resolver, req.CohortID, now)
		if err != nil {
			return err
		}
		alternate := attendance.IsAlternate(active.Number, m.CohortNumber, m.HomeLocation, entry.Location)

		if err := req.Approve(outcome, alternate, input.ActorID, now); err != nil {
			return apperror.Wrap(apperror.ErrInvalidFieldState, err)
		}
		if err := deps.AttendanceStore.SaveDecision(ctx, req); err != nil {
			return mapStoreError(err)
		}

		if field, ok := attendance.FieldForOutcome(outcome); ok {
			if err := deps.StatsStore.Increment(ctx, req.MemberID, req.CohortID, field); err != nil {
				return mapStoreError(err)
			}
		}
		decided = req
		return nil
	})
	if err != nil {
		return attendance.Request{}, mapStoreError(err)
	}

	slog.Info("attendance_event", "event", "request_accepted", "request_id", decided.ID, "member_id", decided.MemberID, "actor_id", input.ActorID, "outcome", decided.Outcome, "alternate", decided.Alternate)
	return decided, nil
}

// ExecuteRejectAttendance rejects a pending request. Stats are untouched.
// PRE: ActorID is a manager
// POST: Request is rejected with processing time and actor set
func ExecuteRejectAttendance(ctx context.Context, input DecideAttendanceInput, deps DecideAttendanceDeps) (attendance.Request, error) {
	if input.RequestID == "" {
		return attendance.Request{}, apperror.New(apperror.ErrInvalidField, "request id is required")
	}
	now := deps.Resolver.Local(clock(deps.Now))

	var decided attendance.Request
	err := deps.Tx.InTx(ctx, func(ctx context.Context) error {
		req, err := lockPending(ctx, input.RequestID, deps.AttendanceStore)
		if err != nil {
			return err
		}
		if err := req.Reject(input.ActorID, now); err != nil {
			return apperror.Wrap(apperror.ErrInvalidFieldState, err)
		}
		if err := deps.AttendanceStore.SaveDecision(ctx, req); err != nil {
			return mapStoreError(err)
		}
		decided = req
		return nil
	})
	if err != nil {
		return attendance.Request{}, mapStoreError(err)
	}

	slog.Info("attendance_event", "event", "request_rejected", "request_id", decided.ID, "member_id", decided.MemberID, "actor_id", input.ActorID)
	return decided, nil
}

// lockPending takes the no-wait decision lock and loads the request.
// PRE: ctx carries a transaction
func lockPending(ctx context.Context, id string, store DecisionStore) (attendance.Request, error) {
	if err := store.LockForDecision(ctx, id); err != nil {
		return attendance.Request{}, mapStoreError(err)
	}
	req, err := store.GetByID(ctx, id)
	if err != nil {
		return attendance.Request{}, mapStoreError(err)
	}
	if !req.IsPending() {
		return attendance.Request{}, apperror.New(apperror.ErrInvalidFieldState, "request is already "+req.Status)
	}
	return req, nil
}

// activeOrRequestCohort returns today's cohort, or the request's own cohort
// when the decision happens after every cohort has ended.
func activeOrRequestCohort(ctx context.Context, r *ScheduleResolver, cohortID string, now time.Time) (cohort.Cohort, error) {
	active, err := r.ActiveCohort(ctx, now)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return cohort.Cohort{}, err
	}
	c, err := r.Cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return cohort.Cohort{}, mapStoreError(err)
	}
	return c, nil
}
