package transit

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/homecoming/core/model"
)

// Result is an estimate together with the instant it was computed for.
type Result struct {
	Estimate model.Estimate
	At       time.Time
}

// Estimator fetches a fresh search result and extracts an estimate from it.
// Nothing is cached between calls.
type Estimator struct {
	fetcher     Fetcher
	extractor   *Extractor
	destination model.StationName
	now         func() time.Time
}

// NewEstimator builds an Estimator for trips ending at destination.
func NewEstimator(f Fetcher, x *Extractor, destination model.StationName) *Estimator {
	if x == nil {
		x = NewExtractor()
	}
	return &Estimator{fetcher: f, extractor: x, destination: destination, now: time.Now}
}

// WithClock replaces the time source. It is meant for tests.
func (e *Estimator) WithClock(now func() time.Time) *Estimator {
	e.now = now
	return e
}

// Destination returns the station trips end at.
func (e *Estimator) Destination() model.StationName { return e.destination }

// Estimate returns the travel time from start to the destination as of now.
func (e *Estimator) Estimate(ctx context.Context, start model.StationName) (Result, error) {
	now := e.now()
	doc, err := e.fetcher.Fetch(ctx, start.Normalize(), e.destination.Normalize(), now)
	if err != nil {
		return Result{Estimate: model.Unavailable(), At: now}, err
	}
	est, err := e.extractor.Extract(doc)
	if err != nil {
		return Result{Estimate: model.Unavailable(), At: now}, fmt.Errorf("extract %s: %w", start, err)
	}
	return Result{Estimate: est, At: now}, nil
}
