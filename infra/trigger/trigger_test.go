package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/homecoming/core/model"
)

func job(phase model.Phase) model.TriggerJob {
	return model.TriggerJob{ID: "j1", UserID: "U1", Phase: phase, FireAt: time.Date(2024, 5, 1, 22, 55, 0, 0, time.UTC)}
}

func TestHTTPTriggerPostsWithoutBody(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.ContentLength > 0 {
			t.Errorf("expected empty body")
		}
		paths = append(paths, r.URL.Path)
	}))
	defer srv.Close()

	trig, err := New(ModuleConfig{Conf: map[string]any{"url": srv.URL + "/light"}})
	require.NoError(t, err)
	require.NoError(t, trig.Fire(context.Background(), job(model.PhaseOn)))
	require.NoError(t, trig.Fire(context.Background(), job(model.PhaseOff)))
	assert.Equal(t, []string{"/light", "/light"}, paths)
}

func TestHTTPTriggerPhaseURLs(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Path)
	}))
	defer srv.Close()

	trig, err := NewHTTPTrigger(HTTPConfig{OnURL: srv.URL + "/on", OffURL: srv.URL + "/off"}, nil)
	require.NoError(t, err)
	require.NoError(t, trig.Fire(context.Background(), job(model.PhaseOn)))
	require.NoError(t, trig.Fire(context.Background(), job(model.PhaseOff)))
	assert.Equal(t, []string{"/on", "/off"}, got)
}

func TestHTTPTriggerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	trig, err := NewHTTPTrigger(HTTPConfig{URL: srv.URL}, nil)
	require.NoError(t, err)
	assert.Error(t, trig.Fire(context.Background(), job(model.PhaseOn)))
}

func TestHTTPTriggerRequiresURL(t *testing.T) {
	_, err := New(ModuleConfig{Type: "http"})
	assert.Error(t, err)
	_, err = NewHTTPTrigger(HTTPConfig{OnURL: "http://x"}, nil)
	assert.Error(t, err)
}

func TestUnknownType(t *testing.T) {
	_, err := New(ModuleConfig{Type: "zigbee"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt")
	assert.Equal(t, []string{"http", "mqtt"}, Types())
}

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
	closed  bool
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	f.topic, f.payload = topic, payload
	return f.err
}

func (f *fakePublisher) Disconnect() { f.closed = true }

func TestMQTTTriggerPublishesCommand(t *testing.T) {
	pub := &fakePublisher{}
	trig := newMQTTTrigger("home/{user}/light/{phase}", pub)
	require.NoError(t, trig.Fire(context.Background(), job(model.PhaseOff)))
	assert.Equal(t, "home/U1/light/off", pub.topic)

	var cmd Command
	require.NoError(t, json.Unmarshal(pub.payload, &cmd))
	assert.Equal(t, "j1", cmd.JobID)
	assert.Equal(t, model.PhaseOff, cmd.Phase)

	pub.err = errors.New("broker down")
	assert.Error(t, trig.Fire(context.Background(), job(model.PhaseOn)))
	require.NoError(t, trig.Close())
	assert.True(t, pub.closed)
}

func TestMQTTConfigDefaults(t *testing.T) {
	c := MQTTConfig{}
	c.SetDefaults()
	assert.Equal(t, "homecoming/{user}/light", c.Topic)
	assert.Error(t, c.Validate())
}

func TestValidateWithoutConnecting(t *testing.T) {
	assert.NoError(t, Validate(ModuleConfig{Conf: map[string]any{"url": "http://lamp/toggle"}}))
	assert.Error(t, Validate(ModuleConfig{Type: "http"}))
	assert.NoError(t, Validate(ModuleConfig{Type: "mqtt", Conf: map[string]any{"broker": "tcp://localhost:1883"}}))
	assert.Error(t, Validate(ModuleConfig{Type: "mqtt"}))
	assert.Error(t, Validate(ModuleConfig{Type: "zigbee"}))
}
