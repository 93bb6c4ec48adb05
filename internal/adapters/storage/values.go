package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the stored form of calendar dates.
const DateFormat = "2006-01-02"

// FormatTime renders an instant for a TEXT column, normalised to UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// NullTime renders an optional instant; the zero time becomes NULL.
func NullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(t), Valid: true}
}

// NullString maps "" to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// BoolInt renders a bool for an INTEGER flag column.
func BoolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ParseTime parses a stored instant. Older rows written by other tools may
// use space-separated layouts, so several are accepted.
func ParseTime(value string) (time.Time, error) {
	if idx := strings.Index(value, " m="); idx != -1 {
		value = value[:idx]
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", value)
}

// ParseDate parses a stored calendar date as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unsupported date format: %q", value)
	}
	return t, nil
}

// Instant is a stored instant column. NULL scans to the zero time.
type Instant time.Time

// Scan implements sql.Scanner.
func (i *Instant) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Instant{}
		return nil
	case time.Time:
		*i = Instant(v)
		return nil
	case string:
		return i.parse(v)
	case []byte:
		return i.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into an instant", src)
}

func (i *Instant) parse(value string) error {
	if value == "" {
		*i = Instant{}
		return nil
	}
	t, err := ParseTime(value)
	if err != nil {
		return err
	}
	*i = Instant(t)
	return nil
}

// Time returns the instant as a time.Time.
func (i Instant) Time() time.Time {
	return time.Time(i)
}

// Date is a stored calendar date column, read as midnight UTC.
type Date time.Time

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		y, m, day := v.Date()
		*d = Date(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into a date", src)
}

func (d *Date) parse(value string) error {
	t, err := ParseDate(value)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return time.Time(d)
}
