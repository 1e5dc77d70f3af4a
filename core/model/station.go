package model

import "strings"

// StationSuffix is the marker some data sources append to station names.
const StationSuffix = "駅"

// StationName identifies a transit stop. Names coming from different
// sources disagree on the trailing StationSuffix, so they must be compared
// through Normalize.
type StationName string

// Normalize trims whitespace and removes a trailing StationSuffix.
func (s StationName) Normalize() StationName {
	n := strings.TrimSpace(string(s))
	n = strings.TrimSuffix(n, StationSuffix)
	return StationName(strings.TrimSpace(n))
}

// WithSuffix returns the normalized name followed by StationSuffix.
func (s StationName) WithSuffix() StationName {
	n := s.Normalize()
	if n == "" {
		return n
	}
	return n + StationSuffix
}

// Equal reports whether both names denote the same station.
func (s StationName) Equal(other StationName) bool {
	return s.Normalize() == other.Normalize()
}

// IsZero reports whether the name is empty once normalized.
func (s StationName) IsZero() bool { return s.Normalize() == "" }

func (s StationName) String() string { return string(s) }

// RemoveStation returns candidates without any entry equal to target.
// The input slice is left untouched.
func RemoveStation(candidates []StationName, target StationName) []StationName {
	out := make([]StationName, 0, len(candidates))
	for _, c := range candidates {
		if c.Equal(target) {
			continue
		}
		out = append(out, c)
	}
	return out
}
