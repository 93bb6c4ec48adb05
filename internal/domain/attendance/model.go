package attendance

import (
	"errors"
	"strings"
	"time"

	"crux/internal/domain/schedule"
)

// Processing status constants
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Outcome constants. An empty Outcome means none has been assigned.
const (
	OutcomeOnTime  = "on_time"
	OutcomeLate    = "late"
	OutcomeAbsent  = "absent"
	OutcomeHoliday = "holiday"
)

// MaxAlternates is how many alternate-location approvals a member may use per cohort.
const MaxAlternates = 2

// Domain errors
var (
	ErrNotPending       = errors.New("attendance request has already been processed")
	ErrEmptyMemberID    = errors.New("attendance request must be associated with a member")
	ErrEmptyCohortID    = errors.New("attendance request must be associated with a cohort")
	ErrInvalidWeek      = errors.New("week must be positive")
	ErrEmptyRequestTime = errors.New("request time must be set")
	ErrInvalidStatus    = errors.New("status must be 'pending', 'approved', or 'rejected'")
	ErrInvalidOutcome   = errors.New("outcome must be 'on_time', 'late', 'absent', or 'holiday'")
	ErrOutcomeMismatch  = errors.New("outcome must be set iff the request is approved")
)

// Request is a member's attendance request for one week of a cohort.
type Request struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	CohortID    string    `json:"cohort_id"`
	Week        int       `json:"week"`
	Location    string    `json:"location"`
	RequestTime time.Time `json:"request_time"`
	RequestDate time.Time `json:"request_date"` // local calendar date of RequestTime, midnight UTC
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"` // zero until processed
	ProcessedBy string    `json:"processed_by"` // empty when processed by a job
	Outcome     string    `json:"outcome"`
	Alternate   bool      `json:"alternate"`
}

// Validate checks if the Request has valid data.
// PRE: Request struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Outcome is set iff Status is approved
func (r *Request) Validate() error {
	if strings.TrimSpace(r.MemberID) == "" {
		return ErrEmptyMemberID
	}
	if strings.TrimSpace(r.CohortID) == "" {
		return ErrEmptyCohortID
	}
	if r.Week < 1 {
		return ErrInvalidWeek
	}
	if r.RequestTime.IsZero() {
		return ErrEmptyRequestTime
	}
	switch r.Status {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return ErrInvalidStatus
	}
	if r.Outcome != "" && !IsValidOutcome(r.Outcome) {
		return ErrInvalidOutcome
	}
	if (r.Status == StatusApproved) != (r.Outcome != "") {
		return ErrOutcomeMismatch
	}
	return nil
}

// IsPending returns true if the request has not been processed yet.
func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// Approve moves a pending request to approved with the given outcome.
// PRE: Request is pending, outcome is valid
// POST: Status is approved, processing fields and outcome are set
func (r *Request) Approve(outcome string, alternate bool, actorID string, now time.Time) error {
	if !r.IsPending() {
		return ErrNotPending
	}
	if !IsValidOutcome(outcome) {
		return ErrInvalidOutcome
	}
	r.Status = StatusApproved
	r.Outcome = outcome
	r.Alternate = alternate
	r.ProcessedBy = actorID
	r.ProcessedAt = now
	return nil
}

// Reject moves a pending request to rejected. Outcome stays empty.
// PRE: Request is pending
// POST: Status is rejected, processing fields are set
func (r *Request) Reject(actorID string, now time.Time) error {
	if !r.IsPending() {
		return ErrNotPending
	}
	r.Status = StatusRejected
	r.ProcessedBy = actorID
	r.ProcessedAt = now
	return nil
}

// NewPending builds a member-submitted request.
func NewPending(id, memberID, cohortID string, week int, location string, now time.Time) Request {
	return Request{
		ID:          id,
		MemberID:    memberID,
		CohortID:    cohortID,
		Week:        week,
		Location:    location,
		RequestTime: now,
		RequestDate: localDate(now),
		Status:      StatusPending,
	}
}

// NewBackfill builds a job-created request that is approved on creation.
func NewBackfill(id, memberID, cohortID string, week int, location, outcome string, now time.Time) Request {
	return Request{
		ID:          id,
		MemberID:    memberID,
		CohortID:    cohortID,
		Week:        week,
		Location:    location,
		RequestTime: now,
		RequestDate: localDate(now),
		Status:      StatusApproved,
		ProcessedAt: now,
		Outcome:     outcome,
	}
}

// ClassifyOutcome returns late if requestTime is past the schedule's start plus the grace period, else on time.
func ClassifyOutcome(entry schedule.Entry, requestTime time.Time) (string, error) {
	late, err := entry.IsLate(requestTime)
	if err != nil {
		return "", err
	}
	if late {
		return OutcomeLate, nil
	}
	return OutcomeOnTime, nil
}

// IsAlternate reports whether an approval counts as attending away from home.
// Members more than one generation behind the active cohort never count as alternate.
func IsAlternate(activeNumber, memberNumber int, homeLocation, scheduleLocation string) bool {
	if activeNumber-memberNumber > 1 {
		return false
	}
	return homeLocation != scheduleLocation
}

// IsValidOutcome reports whether outcome is a known outcome.
func IsValidOutcome(outcome string) bool {
	switch outcome {
	case OutcomeOnTime, OutcomeLate, OutcomeAbsent, OutcomeHoliday:
		return true
	}
	return false
}

func localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
