package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/homecoming/core/model"
)

type fakeRecognizer struct {
	entities []Entity
	err      error
}

func (f fakeRecognizer) Recognize(context.Context, string) ([]Entity, error) {
	return f.entities, f.err
}

type fakeLocator struct {
	stations []model.StationName
	err      error
}

func (f fakeLocator) Nearby(context.Context, float64, float64) ([]model.StationName, error) {
	return f.stations, f.err
}

func TestFromTextPicksFirstLocation(t *testing.T) {
	r := New(fakeRecognizer{entities: []Entity{
		{Form: "今", StdForm: "今", Class: "DAT"},
		{Form: "渋谷駅", StdForm: "渋谷駅", Class: "LOC"},
		{Form: "新宿", StdForm: "新宿", Class: "ART"},
	}}, nil, "自宅")
	s, err := r.FromText(context.Background(), "今渋谷駅にいます")
	require.NoError(t, err)
	assert.Equal(t, model.StationName("渋谷"), s)
}

func TestFromTextNoEntity(t *testing.T) {
	r := New(fakeRecognizer{entities: []Entity{{StdForm: "明日", Class: "DAT"}}}, nil, "自宅")
	_, err := r.FromText(context.Background(), "明日")
	assert.ErrorIs(t, err, ErrNoStation)

	_, err = r.FromText(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoStation)
}

func TestFromTextRecognizerError(t *testing.T) {
	boom := errors.New("boom")
	r := New(fakeRecognizer{err: boom}, nil, "自宅")
	_, err := r.FromText(context.Background(), "渋谷")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoStation)
}

func TestFromLocationRemovesDestination(t *testing.T) {
	for _, dest := range []model.StationName{"恵比寿", "恵比寿駅"} {
		r := New(nil, fakeLocator{stations: []model.StationName{"恵比寿駅", "代官山駅"}}, dest)
		s, err := r.FromLocation(context.Background(), 35.64, 139.71)
		require.NoError(t, err)
		assert.Equal(t, model.StationName("代官山駅"), s, "destination %q", dest)
	}
}

func TestFromLocationOnlyDestination(t *testing.T) {
	r := New(nil, fakeLocator{stations: []model.StationName{"恵比寿駅"}}, "恵比寿")
	_, err := r.FromLocation(context.Background(), 35.64, 139.71)
	assert.ErrorIs(t, err, ErrNoStation)

	r = New(nil, fakeLocator{}, "恵比寿")
	_, err = r.FromLocation(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoStation)
}
