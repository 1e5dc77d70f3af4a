package model

import (
	"fmt"
	"time"
)

// EstimateKind tells which of the three estimate states holds.
type EstimateKind int

const (
	// EstimateUnavailable means no trustworthy trip exists, typically because
	// the last train has already left.
	EstimateUnavailable EstimateKind = iota
	// EstimateMinutes carries a travel time in whole minutes.
	EstimateMinutes
	// EstimateAlreadyThere means the user is at or next to the destination.
	EstimateAlreadyThere
)

func (k EstimateKind) String() string {
	switch k {
	case EstimateMinutes:
		return "minutes"
	case EstimateAlreadyThere:
		return "already_there"
	default:
		return "unavailable"
	}
}

// AlreadyThereDuration is the minimal positive duration used for the
// already-there state (0.1 minute).
const AlreadyThereDuration = 6 * time.Second

// Estimate is the travel time from a start station to the destination.
// The zero value is unavailable.
type Estimate struct {
	kind    EstimateKind
	minutes int
}

// Minutes returns an estimate of n minutes. Negative values are clamped to 0.
func Minutes(n int) Estimate {
	if n < 0 {
		n = 0
	}
	return Estimate{kind: EstimateMinutes, minutes: n}
}

// AlreadyThere returns the already-there sentinel estimate.
func AlreadyThere() Estimate { return Estimate{kind: EstimateAlreadyThere} }

// Unavailable returns the estimate used when no valid trip exists.
func Unavailable() Estimate { return Estimate{kind: EstimateUnavailable} }

func (e Estimate) Kind() EstimateKind { return e.kind }

// Available reports whether a schedule can be derived from the estimate.
func (e Estimate) Available() bool { return e.kind != EstimateUnavailable }

// Minutes returns the whole-minute value; it is 0 unless Kind is EstimateMinutes.
func (e Estimate) Minutes() int { return e.minutes }

// Duration returns the travel time. Unavailable estimates have no duration.
func (e Estimate) Duration() time.Duration {
	switch e.kind {
	case EstimateMinutes:
		return time.Duration(e.minutes) * time.Minute
	case EstimateAlreadyThere:
		return AlreadyThereDuration
	default:
		return 0
	}
}

func (e Estimate) String() string {
	switch e.kind {
	case EstimateMinutes:
		return fmt.Sprintf("%dm", e.minutes)
	case EstimateAlreadyThere:
		return "already there"
	default:
		return "unavailable"
	}
}
