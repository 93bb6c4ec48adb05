package cohort

import (
	"errors"
	"strings"
	"time"
)

// DateFormat is the storage and wire format for calendar dates.
const DateFormat = "2006-01-02"

// Domain errors
var (
	ErrEmptyName      = errors.New("cohort name cannot be empty")
	ErrInvalidNumber  = errors.New("cohort number must be positive")
	ErrInvalidDates   = errors.New("start date must not be after end date")
	ErrEmptyStartDate = errors.New("start date cannot be zero")
	ErrEmptyEndDate   = errors.New("end date cannot be zero")
)

// Cohort is a time-boxed membership generation ("5기").
// StartDate and EndDate are calendar dates held at midnight UTC (see Date).
type Cohort struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Validate checks if the Cohort has valid data.
// PRE: Cohort struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Cohort) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Number <= 0 {
		return ErrInvalidNumber
	}
	if c.StartDate.IsZero() {
		return ErrEmptyStartDate
	}
	if c.EndDate.IsZero() {
		return ErrEmptyEndDate
	}
	if c.StartDate.After(c.EndDate) {
		return ErrInvalidDates
	}
	return nil
}

// Contains returns true if the given date falls within [StartDate, EndDate].
// INVARIANT: Cohort fields are not mutated
func (c *Cohort) Contains(date time.Time) bool {
	d := Date(date)
	return !d.Before(Date(c.StartDate)) && !d.After(Date(c.EndDate))
}

// WeekIndex returns the 1-based week of date within the cohort:
// floor(days since start / 7) + 1.
func (c *Cohort) WeekIndex(date time.Time) int {
	return DaysBetween(c.StartDate, date)/7 + 1
}

// PreviousNumber is the generation number whose members are still in their grace period.
func (c *Cohort) PreviousNumber() int {
	return c.Number - 1
}

// Gap returns how many generations older memberNumber is than this cohort.
func (c *Cohort) Gap(memberNumber int) int {
	return c.Number - memberNumber
}

// Date returns the calendar date of t (in t's own location) as midnight UTC,
// so that differences between dates are exact multiples of 24h.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}
