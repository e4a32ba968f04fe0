package records

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for calendar dates.
const dateLayout = "2006-01-02"

// Date is a calendar day with no clock and no zone. Deadlines compare by
// day, so carrying a time.Time around invites off-by-timezone bugs.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate creates a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is before other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// After reports whether d is after other.
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// Equal reports whether two dates denote the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// DaysApart returns the absolute number of days between two dates.
func (d Date) DaysApart(other Date) int {
	diff := d.Time().Sub(other.Time()) / (24 * time.Hour)
	if diff < 0 {
		diff = -diff
	}
	return int(diff)
}

// String returns the date in YYYY-MM-DD form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

// MarshalYAML implements yaml.InterfaceMarshaler.
func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.InterfaceUnmarshaler.
func (d *Date) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
