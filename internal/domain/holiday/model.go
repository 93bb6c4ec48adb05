package holiday

import (
	"errors"
	"time"

	"crux/internal/domain/cohort"
)

// Domain errors
var (
	ErrEmptyDate = errors.New("blackout date cannot be zero")
)

// BlackoutDate is a calendar day on which no regular session is held.
type BlackoutDate struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`   // calendar date at midnight UTC
	Reason string    `json:"reason"` // optional
}

// Validate checks if the BlackoutDate has valid data.
// PRE: BlackoutDate struct is populated
// POST: Returns nil if valid, error otherwise
func (b *BlackoutDate) Validate() error {
	if b.Date.IsZero() {
		return ErrEmptyDate
	}
	return nil
}

// Matches returns true if t falls on this blackout date, judged in t's own location.
// INVARIANT: BlackoutDate fields are not mutated
func (b *BlackoutDate) Matches(t time.Time) bool {
	return cohort.Date(t).Equal(cohort.Date(b.Date))
}
