package record

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Difficulty bounds, matching member climbing levels.
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// Locations are the gym branches a session may be logged at.
var Locations = []string{
	"ilsan", "yeonnam", "yangjae", "sillim", "magok", "hongdae", "snu",
	"gangnam", "sadang", "sinsa", "nonhyeon", "mullae", "sinchon",
}

// Domain errors
var (
	ErrEmptyMemberID     = errors.New("session must be associated with a member")
	ErrEmptyLocation     = errors.New("session location cannot be empty")
	ErrUnknownLocation   = errors.New("session location is not a known branch")
	ErrEmptyStartTime    = errors.New("session start time must be set")
	ErrEmptyEndTime      = errors.New("session end time must be set")
	ErrInvalidTimes      = errors.New("session must end after it starts")
	ErrSpansDays         = errors.New("session must start and end on the same date")
	ErrEndsInFuture      = errors.New("session can only be logged after it ends")
	ErrEmptySessionID    = errors.New("problem must be associated with a session")
	ErrInvalidDifficulty = errors.New("difficulty must be between 1 and 10")
	ErrNegativeSolved    = errors.New("solved count cannot be negative")
)

// Session is one logged climbing visit.
type Session struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	CohortID  string    `json:"cohort_id"` // empty when no cohort covered StartTime
	Location  string    `json:"location"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Validate checks if the Session has valid data as of now.
// PRE: StartTime and EndTime are expressed in the club's location
// POST: Returns error if validation fails, nil otherwise
func (s *Session) Validate(now time.Time) error {
	if strings.TrimSpace(s.MemberID) == "" {
		return ErrEmptyMemberID
	}
	if strings.TrimSpace(s.Location) == "" {
		return ErrEmptyLocation
	}
	if !slices.Contains(Locations, s.Location) {
		return ErrUnknownLocation
	}
	if s.StartTime.IsZero() {
		return ErrEmptyStartTime
	}
	if s.EndTime.IsZero() {
		return ErrEmptyEndTime
	}
	if !s.StartTime.Before(s.EndTime) {
		return ErrInvalidTimes
	}
	sy, sm, sd := s.StartTime.Date()
	ey, em, ed := s.EndTime.In(s.StartTime.Location()).Date()
	if sy != ey || sm != em || sd != ed {
		return ErrSpansDays
	}
	if s.EndTime.After(now) {
		return ErrEndsInFuture
	}
	return nil
}

// OwnedBy reports whether memberID may mutate this session.
func (s *Session) OwnedBy(memberID string) bool {
	return s.MemberID == memberID
}

// Problem is the count of solved boulder problems at one difficulty within a session.
type Problem struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	Difficulty int    `json:"difficulty"`
	Solved     int    `json:"solved"`
}

// Validate checks if the Problem has valid data.
func (p *Problem) Validate() error {
	if strings.TrimSpace(p.SessionID) == "" {
		return ErrEmptySessionID
	}
	if p.Difficulty < MinDifficulty || p.Difficulty > MaxDifficulty {
		return ErrInvalidDifficulty
	}
	if p.Solved < 0 {
		return ErrNegativeSolved
	}
	return nil
}
