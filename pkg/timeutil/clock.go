// Package timeutil converts between wall-clock instants, minutes since
// midnight and civil calendar dates.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the number of distinct minute-of-day values.
const MinutesPerDay = 24 * 60

// MinuteOfDay is a wall-clock time expressed as minutes since midnight (0-1439).
type MinuteOfDay int

// NewMinuteOfDay builds a MinuteOfDay from an hour and a minute.
func NewMinuteOfDay(hour, minute int) (MinuteOfDay, error) {
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour %d out of range 0-23", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minute %d out of range 0-59", minute)
	}
	return MinuteOfDay(hour*60 + minute), nil
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (MinuteOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	m, err := NewMinuteOfDay(hour, minute)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return m, nil
}

// MustParseClock is ParseClock for constants; it panics on malformed input.
func MustParseClock(s string) MinuteOfDay {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MinuteOf returns the minute of day of t in t's own location.
func MinuteOf(t time.Time) MinuteOfDay {
	return MinuteOfDay(t.Hour()*60 + t.Minute())
}

// Valid reports whether m lies within a single day.
func (m MinuteOfDay) Valid() bool {
	return m >= 0 && m < MinutesPerDay
}

// MustValid panics when m is outside 0-1439. Callers use it where an
// out-of-range value means a store invariant was broken upstream.
func (m MinuteOfDay) MustValid() MinuteOfDay {
	if !m.Valid() {
		panic(fmt.Sprintf("timeutil: minute of day %d outside 0-%d", int(m), MinutesPerDay-1))
	}
	return m
}

// Hour returns the hour component.
func (m MinuteOfDay) Hour() int { return int(m) / 60 }

// Minute returns the minute-within-hour component.
func (m MinuteOfDay) Minute() int { return int(m) % 60 }

// String formats m as 24-hour "HH:MM".
func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", m.Hour(), m.Minute())
}

// Format12h formats m for display, e.g. "2:30 PM".
func (m MinuteOfDay) Format12h() string {
	period := "AM"
	if m.Hour() >= 12 {
		period = "PM"
	}
	hour := m.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, m.Minute(), period)
}

// On returns the instant at minute m on date d in loc.
func (m MinuteOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, m.Hour(), m.Minute(), 0, 0, loc)
}

// MarshalText implements encoding.TextMarshaler.
func (m MinuteOfDay) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("minute of day %d out of range", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MinuteOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
