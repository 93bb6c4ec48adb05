package attendance

import (
	"errors"
	"math"
)

// Stats counter fields
const (
	FieldOnTime = "on_time"
	FieldLate   = "late"
	FieldAbsent = "absent"
)

// ErrInvalidField is returned for a counter name outside the known fields.
var ErrInvalidField = errors.New("stats field must be 'on_time', 'late', or 'absent'")

// Stats holds the running attendance counters for a member within a cohort.
// INVARIANT: counters only ever increase
type Stats struct {
	MemberID string `json:"member_id"`
	CohortID string `json:"cohort_id"`
	OnTime   int    `json:"on_time"`
	Late     int    `json:"late"`
	Absent   int    `json:"absent"`
}

// FieldForOutcome maps an approval outcome to the counter it increments.
// Holiday approvals touch no counter.
func FieldForOutcome(outcome string) (string, bool) {
	switch outcome {
	case OutcomeOnTime:
		return FieldOnTime, true
	case OutcomeLate:
		return FieldLate, true
	case OutcomeAbsent:
		return FieldAbsent, true
	}
	return "", false
}

// IsValidField reports whether field names a stats counter.
func IsValidField(field string) bool {
	switch field {
	case FieldOnTime, FieldLate, FieldAbsent:
		return true
	}
	return false
}

// Rate computes the attendance rate in percent, rounded to 2 decimals.
// gap is active cohort number minus the member's cohort number.
//
// Within the grace window (gap < 2) every pair of lates counts as one
// attendance and one absence. Older members get 100 once they have any
// on-time attendance, else 0.
func (s Stats) Rate(gap int) float64 {
	if gap >= 2 {
		if s.OnTime > 0 {
			return 100
		}
		return 0
	}
	lateAsAbsence := s.Late / 2
	lateAsAttendance := s.Late % 2
	denominator := s.OnTime + s.Absent + lateAsAttendance + lateAsAbsence
	if denominator == 0 {
		return 0
	}
	numerator := s.OnTime + lateAsAttendance
	return round2(float64(numerator) / float64(denominator) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
