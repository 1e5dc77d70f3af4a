// Package resolver determines the departure station of a chat request.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/homecoming/core/model"
)

// ErrNoStation means no candidate station could be derived from the input.
// It is a prompt for the user, not a failure.
var ErrNoStation = errors.New("no station found")

// Entity classes that may name a station.
var stationClasses = map[string]bool{"LOC": true, "ART": true}

// Entity is a named entity extracted from free text.
type Entity struct {
	Form    string `json:"form"`
	StdForm string `json:"std_form"`
	Class   string `json:"class"`
}

// Recognizer extracts named entities from a sentence.
type Recognizer interface {
	Recognize(ctx context.Context, sentence string) ([]Entity, error)
}

// Locator lists stations near a coordinate, closest first.
type Locator interface {
	Nearby(ctx context.Context, lat, lon float64) ([]model.StationName, error)
}

// Resolver maps text and coordinates to a departure station.
type Resolver struct {
	recognizer  Recognizer
	locator     Locator
	destination model.StationName
}

// New creates a Resolver. destination is never returned as a departure.
func New(r Recognizer, l Locator, destination model.StationName) *Resolver {
	return &Resolver{recognizer: r, locator: l, destination: destination}
}

// FromText returns the first location-like entity of text.
func (r *Resolver) FromText(ctx context.Context, text string) (model.StationName, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoStation
	}
	entities, err := r.recognizer.Recognize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("recognize entities: %w", err)
	}
	if s := FirstStation(entities); !s.IsZero() {
		return s, nil
	}
	return "", ErrNoStation
}

// FromLocation returns the closest station to the coordinate other than the
// destination.
func (r *Resolver) FromLocation(ctx context.Context, lat, lon float64) (model.StationName, error) {
	stations, err := r.locator.Nearby(ctx, lat, lon)
	if err != nil {
		return "", fmt.Errorf("nearby stations: %w", err)
	}
	stations = model.RemoveStation(stations, r.destination)
	if len(stations) == 0 {
		return "", ErrNoStation
	}
	return stations[0], nil
}

// FirstStation returns the standard form of the first LOC or ART entity.
func FirstStation(entities []Entity) model.StationName {
	for _, e := range entities {
		if !stationClasses[e.Class] {
			continue
		}
		form := e.StdForm
		if form == "" {
			form = e.Form
		}
		if s := model.StationName(form).Normalize(); !s.IsZero() {
			return s
		}
	}
	return ""
}
