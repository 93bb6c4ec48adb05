package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Day of week constants
const (
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
	Sunday    = "sunday"
)

// ValidDays contains all valid day values, indexed Mon=0..Sun=6.
var ValidDays = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// LateGrace is how long after the start time a request still counts as on time.
const LateGrace = 30 * time.Minute

// Domain errors
var (
	ErrEmptyCohortID  = errors.New("cohort ID cannot be empty")
	ErrInvalidDay     = errors.New("day must be a valid day of the week")
	ErrEmptyLocation  = errors.New("workout location cannot be empty")
	ErrEmptyStartTime = errors.New("start time cannot be empty")
)

// Entry is the designated workout location and start time for one weekday of a cohort.
type Entry struct {
	ID        string `json:"id"`
	CohortID  string `json:"cohort_id"`
	Day       string `json:"day"` // monday, tuesday, etc.
	Location  string `json:"location"`
	StartTime string `json:"start_time"` // HH:MM format
	StaffID   string `json:"staff_id"`   // manager on duty, optional
}

// Validate checks if the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.CohortID) == "" {
		return ErrEmptyCohortID
	}
	if !isValidDay(e.Day) {
		return ErrInvalidDay
	}
	if strings.TrimSpace(e.Location) == "" {
		return ErrEmptyLocation
	}
	if strings.TrimSpace(e.StartTime) == "" {
		return ErrEmptyStartTime
	}
	if _, err := time.Parse("15:04", e.StartTime); err != nil {
		return fmt.Errorf("invalid start time %q: %w", e.StartTime, err)
	}
	return nil
}

// StartOn returns the session start instant on the calendar day of t, in t's location.
// PRE: StartTime is in HH:MM format
func (e *Entry) StartOn(t time.Time) (time.Time, error) {
	clock, err := time.Parse("15:04", e.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time %q: %w", e.StartTime, err)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, t.Location()), nil
}

// IsLate reports whether requestTime is past StartTime + LateGrace on the same day.
// Exactly at the threshold is not late.
func (e *Entry) IsLate(requestTime time.Time) (bool, error) {
	start, err := e.StartOn(requestTime)
	if err != nil {
		return false, err
	}
	return requestTime.After(start.Add(LateGrace)), nil
}

// DayOf returns the day constant for t's weekday.
func DayOf(t time.Time) string {
	return ValidDays[WeekdayIndex(t.Weekday())]
}

// WeekdayIndex maps time.Weekday onto Mon=0..Sun=6.
func WeekdayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func isValidDay(day string) bool {
	for _, d := range ValidDays {
		if d == day {
			return true
		}
	}
	return false
}
