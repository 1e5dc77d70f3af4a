package transit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kilianp07/homecoming/core/model"
)

const (
	summarySelector   = ".small"
	itinerarySelector = "li.time"
	arrow             = "→"
	hourMarker        = "時"
	hourUnit          = "時間"
	minuteUnit        = "分"
	// "HH:MM→HH:MM" is eleven runes long.
	itineraryPrefixLen = 11
)

var (
	// ErrMalformedItinerary is returned when the departure/arrival pair
	// cannot be read from a page that does contain a route summary.
	ErrMalformedItinerary = errors.New("malformed itinerary")
	// ErrMalformedDuration is returned when the summary text is not a duration.
	ErrMalformedDuration = errors.New("malformed duration")
)

// Fetcher retrieves the search result page for a trip starting now.
type Fetcher interface {
	Fetch(ctx context.Context, from, to model.StationName, now time.Time) (*goquery.Document, error)
}

// Trip is the first itinerary of a search result.
type Trip struct {
	Departure model.ClockTime
	Arrival   model.ClockTime
}

// Extractor derives an Estimate from a search result page.
type Extractor struct {
	Windows []model.TimeWindow
}

// NewExtractor returns an Extractor using windows, or the default evening
// and early-morning windows when none are given.
func NewExtractor(windows ...model.TimeWindow) *Extractor {
	if len(windows) == 0 {
		windows = model.DefaultWindows()
	}
	return &Extractor{Windows: windows}
}

// Extract reads the minimum travel time from doc.
//
// A page without a summary marker means the search found no ride, which
// happens when the start station is the destination or next to it; it
// yields the already-there estimate before any other check. A first
// departure outside every eligibility window yields an unavailable estimate
// whatever the summary says.
func (e *Extractor) Extract(doc *goquery.Document) (model.Estimate, error) {
	summary := doc.Find(summarySelector).First()
	if summary.Length() == 0 {
		return model.AlreadyThere(), nil
	}
	trip, err := FirstTrip(doc)
	if err != nil {
		return model.Unavailable(), err
	}
	if !e.Eligible(trip.Departure) {
		return model.Unavailable(), nil
	}
	mins, err := ParseDurationText(summary.Text())
	if err != nil {
		return model.Unavailable(), err
	}
	return model.Minutes(mins), nil
}

// Eligible reports whether a departure falls in one of the windows.
func (e *Extractor) Eligible(dep model.ClockTime) bool {
	for _, w := range e.Windows {
		if w.Contains(dep) {
			return true
		}
	}
	return false
}

// FirstTrip reads the departure and arrival of the first itinerary, which
// the result page renders as the second li.time entry.
func FirstTrip(doc *goquery.Document) (Trip, error) {
	items := doc.Find(itinerarySelector)
	if items.Length() < 2 {
		return Trip{}, fmt.Errorf("%w: %d time entries", ErrMalformedItinerary, items.Length())
	}
	text := strings.TrimSpace(items.Eq(1).Text())
	if r := []rune(text); len(r) > itineraryPrefixLen {
		text = string(r[:itineraryPrefixLen])
	}
	dep, arr, ok := strings.Cut(text, arrow)
	if !ok {
		return Trip{}, fmt.Errorf("%w: %q", ErrMalformedItinerary, text)
	}
	d, err := model.ParseClock(strings.TrimSpace(dep))
	if err != nil {
		return Trip{}, fmt.Errorf("%w: %v", ErrMalformedItinerary, err)
	}
	a, err := model.ParseClock(strings.TrimSpace(arr))
	if err != nil {
		return Trip{}, fmt.Errorf("%w: %v", ErrMalformedItinerary, err)
	}
	return Trip{Departure: d, Arrival: a}, nil
}

// ParseDurationText converts a summary such as "1時間20分" or "45分" into
// minutes. The hour form is chosen only by the presence of the hour marker.
func ParseDurationText(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, hourMarker) {
		hourPart, minPart, ok := strings.Cut(strings.ReplaceAll(s, minuteUnit, ""), hourUnit)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, s)
		}
		h, err := atoi(hourPart)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, s)
		}
		m := 0
		if strings.TrimSpace(minPart) != "" {
			if m, err = atoi(minPart); err != nil {
				return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, s)
			}
		}
		return h*60 + m, nil
	}
	m, err := atoi(strings.ReplaceAll(s, minuteUnit, ""))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, s)
	}
	return m, nil
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}
