package transit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/homecoming/core/model"
)

func page(t *testing.T, summary, itinerary string) *goquery.Document {
	t.Helper()
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	b.WriteString(`<li class="time">出発</li>`)
	if itinerary != "" {
		b.WriteString(`<li class="time">` + itinerary + `</li>`)
	}
	b.WriteString("</ul>")
	if summary != "" {
		b.WriteString(`<span class="small">` + summary + `</span>`)
	}
	b.WriteString("</body></html>")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	return doc
}

func TestExtractNoSummaryIsAlreadyThere(t *testing.T) {
	x := NewExtractor()
	for _, it := range []string{"", "10:00→10:30", "garbage"} {
		est, err := x.Extract(page(t, "", it))
		require.NoError(t, err)
		assert.Equal(t, model.EstimateAlreadyThere, est.Kind(), "itinerary %q", it)
		assert.Equal(t, model.AlreadyThereDuration, est.Duration())
	}
}

func TestExtractEveningMinutes(t *testing.T) {
	est, err := NewExtractor().Extract(page(t, "55分", "22:00→22:55[発]"))
	require.NoError(t, err)
	assert.Equal(t, model.EstimateMinutes, est.Kind())
	assert.Equal(t, 55, est.Minutes())
}

func TestExtractHourAndMinutes(t *testing.T) {
	est, err := NewExtractor().Extract(page(t, "1時間20分", "01:10→02:30"))
	require.NoError(t, err)
	assert.Equal(t, 80, est.Minutes())
}

func TestExtractOutsideWindowsIsUnavailable(t *testing.T) {
	for _, summary := range []string{"55分", "1時間20分", "not a duration"} {
		est, err := NewExtractor().Extract(page(t, summary, "10:00→10:55"))
		require.NoError(t, err)
		assert.Equal(t, model.EstimateUnavailable, est.Kind(), summary)
	}
}

func TestExtractWindowBoundsAreExclusive(t *testing.T) {
	x := NewExtractor()
	cases := map[string]model.EstimateKind{
		"17:00→17:30": model.EstimateUnavailable,
		"17:01→17:30": model.EstimateMinutes,
		"23:58→00:28": model.EstimateMinutes,
		"23:59→00:29": model.EstimateUnavailable,
		"00:00→00:30": model.EstimateUnavailable,
		"02:59→03:29": model.EstimateMinutes,
		"03:00→03:30": model.EstimateUnavailable,
	}
	for it, want := range cases {
		est, err := x.Extract(page(t, "30分", it))
		require.NoError(t, err)
		assert.Equal(t, want, est.Kind(), it)
	}
}

func TestExtractMalformedItinerary(t *testing.T) {
	_, err := NewExtractor().Extract(page(t, "30分", "soon"))
	assert.ErrorIs(t, err, ErrMalformedItinerary)
	_, err = NewExtractor().Extract(page(t, "30分", ""))
	assert.ErrorIs(t, err, ErrMalformedItinerary)
}

func TestExtractMalformedDuration(t *testing.T) {
	_, err := NewExtractor().Extract(page(t, "すぐ", "22:00→22:30"))
	assert.ErrorIs(t, err, ErrMalformedDuration)
}

func TestParseDurationText(t *testing.T) {
	cases := map[string]int{
		"1時間20分":   80,
		"45分":      45,
		" 2時間5分 ": 125,
		"1時間":      60,
		"0分":       0,
	}
	for in, want := range cases {
		got, err := ParseDurationText(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "分", "x時間5分", "-3分"} {
		_, err := ParseDurationText(bad)
		assert.Error(t, err, bad)
	}
}

func TestCustomWindows(t *testing.T) {
	w, err := model.ParseTimeWindow("09:00-11:00")
	require.NoError(t, err)
	est, err := NewExtractor(w).Extract(page(t, "40分", "10:00→10:40"))
	require.NoError(t, err)
	assert.Equal(t, 40, est.Minutes())
}

type stubFetcher struct {
	doc  *goquery.Document
	err  error
	from model.StationName
	to   model.StationName
	at   time.Time
}

func (s *stubFetcher) Fetch(_ context.Context, from, to model.StationName, now time.Time) (*goquery.Document, error) {
	s.from, s.to, s.at = from, to, now
	return s.doc, s.err
}

func TestEstimatorNormalizesStationsAndCapturesNow(t *testing.T) {
	now := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	f := &stubFetcher{doc: page(t, "25分", "22:03→22:28")}
	e := NewEstimator(f, nil, "渋谷駅").WithClock(func() time.Time { return now })
	res, err := e.Estimate(context.Background(), "新宿駅")
	require.NoError(t, err)
	assert.Equal(t, model.StationName("新宿"), f.from)
	assert.Equal(t, model.StationName("渋谷"), f.to)
	assert.Equal(t, now, f.at)
	assert.Equal(t, now, res.At)
	assert.Equal(t, 25, res.Estimate.Minutes())
}

func TestEstimatorPropagatesFetchError(t *testing.T) {
	boom := errors.New("boom")
	e := NewEstimator(&stubFetcher{err: boom}, nil, "渋谷")
	res, err := e.Estimate(context.Background(), "新宿")
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Estimate.Available())
}
