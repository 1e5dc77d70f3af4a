package model

import (
	"fmt"
	"strings"
	"time"
)

// ClockTime is a time of day expressed in minutes since midnight.
type ClockTime int

// Clock builds a ClockTime from an hour and a minute.
func Clock(hour, minute int) ClockTime { return ClockTime(hour*60 + minute) }

// ParseClock parses an "HH:MM" string.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock(t.Hour(), t.Minute()), nil
}

// ClockOf returns the time of day of t in its own location.
func ClockOf(t time.Time) ClockTime { return Clock(t.Hour(), t.Minute()) }

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

// String renders the zero-padded "HH:MM" form.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// TimeWindow is a time-of-day range. Both bounds are exclusive.
type TimeWindow struct {
	Earliest ClockTime
	Latest   ClockTime
}

// Contains reports whether c lies strictly between Earliest and Latest.
func (w TimeWindow) Contains(c ClockTime) bool {
	return c > w.Earliest && c < w.Latest
}

func (w TimeWindow) String() string {
	return w.Earliest.String() + "-" + w.Latest.String()
}

// ParseTimeWindow parses "HH:MM-HH:MM".
func ParseTimeWindow(s string) (TimeWindow, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok || from == "" || to == "" {
		return TimeWindow{}, fmt.Errorf("invalid time window %q", s)
	}
	e, err := ParseClock(from)
	if err != nil {
		return TimeWindow{}, err
	}
	l, err := ParseClock(to)
	if err != nil {
		return TimeWindow{}, err
	}
	if l <= e {
		return TimeWindow{}, fmt.Errorf("time window %q ends before it starts", s)
	}
	return TimeWindow{Earliest: e, Latest: l}, nil
}

// Evening and EarlyMorning are the default return-trip eligibility windows.
var (
	Evening      = TimeWindow{Earliest: Clock(17, 0), Latest: Clock(23, 59)}
	EarlyMorning = TimeWindow{Earliest: Clock(0, 0), Latest: Clock(3, 0)}
)

// DefaultWindows returns the evening and early-morning windows.
func DefaultWindows() []TimeWindow { return []TimeWindow{Evening, EarlyMorning} }
