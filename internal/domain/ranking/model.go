package ranking

import "errors"

// Multipliers applied to solved counts relative to the climber's own level.
const (
	BelowLevelMultiplier = 0.5
	AtLevelMultiplier    = 1.0
	AboveLevelMultiplier = 2.0
)

// Domain errors
var (
	ErrEmptyMemberID = errors.New("score entry must be associated with a member")
	ErrEmptyCohortID = errors.New("score entry must be associated with a cohort")
	ErrInvalidWeek   = errors.New("week must be positive")
)

// Entry is the accumulated weekly score of one member within a cohort.
// INVARIANT: a persisted Entry always has Score > 0
type Entry struct {
	MemberID   string  `json:"member_id"`
	MemberName string  `json:"member_name"` // filled by read queries only
	CohortID   string  `json:"cohort_id"`
	Week       int     `json:"week"`
	Score      float64 `json:"score"`
}

// Total is a member's score summed over every week of a cohort.
type Total struct {
	CohortID     string  `json:"cohort_id"`
	CohortNumber int     `json:"cohort_number"`
	MemberID     string  `json:"member_id"`
	MemberName   string  `json:"member_name"`
	Score        float64 `json:"score"`
}

// Validate checks if the Entry has valid data.
func (e *Entry) Validate() error {
	if e.MemberID == "" {
		return ErrEmptyMemberID
	}
	if e.CohortID == "" {
		return ErrEmptyCohortID
	}
	if e.Week < 1 {
		return ErrInvalidWeek
	}
	return nil
}

// Multiplier returns the weight for a problem of the given difficulty
// climbed by a member at memberLevel.
func Multiplier(difficulty, memberLevel int) float64 {
	switch {
	case difficulty < memberLevel:
		return BelowLevelMultiplier
	case difficulty > memberLevel:
		return AboveLevelMultiplier
	default:
		return AtLevelMultiplier
	}
}

// Contribution is the score a single activity record adds to its weekly entry.
func Contribution(solved, difficulty, memberLevel int) float64 {
	return float64(solved) * Multiplier(difficulty, memberLevel)
}
