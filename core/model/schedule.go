package model

import "time"

// Schedule holds the light-on and light-off instants derived from an
// estimate. Start and End are computed once from ComputedAt and never
// re-derived.
type Schedule struct {
	UserID     string        `json:"user_id"`
	Station    StationName   `json:"station"`
	ComputedAt time.Time     `json:"computed_at"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Travel     time.Duration `json:"travel"`
	Activity   time.Duration `json:"activity"`
}

// NewSchedule derives a schedule from an available estimate. It returns
// false when the estimate is unavailable.
func NewSchedule(userID string, station StationName, now time.Time, est Estimate, activity time.Duration) (Schedule, bool) {
	if !est.Available() {
		return Schedule{}, false
	}
	travel := est.Duration()
	start := now.Add(travel)
	return Schedule{
		UserID:     userID,
		Station:    station,
		ComputedAt: now,
		Start:      start,
		End:        start.Add(activity),
		Travel:     travel,
		Activity:   activity,
	}, true
}

// StartClock renders Start as "HH:MM".
func (s Schedule) StartClock() string { return ClockOf(s.Start).String() }

// EndClock renders End as "HH:MM".
func (s Schedule) EndClock() string { return ClockOf(s.End).String() }

// CrossesMidnight reports whether End falls on a later calendar day than Start.
func (s Schedule) CrossesMidnight() bool {
	sy, sm, sd := s.Start.Date()
	ey, em, ed := s.End.Date()
	return sy != ey || sm != em || sd != ed
}
