// Package webhook serves the LINE callback endpoint and the schedule API.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/metrics"
	"github.com/kilianp07/homecoming/core/model"
	"github.com/kilianp07/homecoming/core/monitoring"
	"github.com/kilianp07/homecoming/core/resolver"
)

// Replies sent in answer to a chat message.
const (
	MsgWelcome   = "お疲れ様です。%sからお帰りですね。"
	MsgNoNearby  = "最寄り駅が見つかりませんでした。"
	MsgAskAgain  = "もう一度駅名を入力してください。"
	eventTimeout = 30 * time.Second
)

// Resolver maps chat input to a departure station.
type Resolver interface {
	FromText(ctx context.Context, text string) (model.StationName, error)
	FromLocation(ctx context.Context, lat, lon float64) (model.StationName, error)
}

// Replier answers a message through its reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Runner schedules the lights for a user in the background.
type Runner interface {
	Go(userID string, start model.StationName, activity time.Duration)
}

// JobLister lists trigger jobs that have not fired yet.
type JobLister interface {
	Pending(ctx context.Context) ([]model.TriggerJob, error)
}

// Handler dispatches webhook events.
type Handler struct {
	secret   string
	resolver Resolver
	replier  Replier
	runner   Runner
	jobs     JobLister
	activity time.Duration
	rec      metrics.RequestRecorder
	log      logger.Logger

	inflight sync.WaitGroup
}

// Option customizes a Handler.
type Option func(*Handler)

func WithLogger(l logger.Logger) Option { return func(h *Handler) { h.log = logger.OrNop(l) } }

func WithRecorder(r metrics.RequestRecorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.rec = r
		}
	}
}

// WithJobs exposes pending jobs on GET /api/schedules.
func WithJobs(j JobLister) Option { return func(h *Handler) { h.jobs = j } }

// WithActivity sets how long the lights stay on.
func WithActivity(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.activity = d
		}
	}
}

// NewHandler creates a Handler verifying callbacks with the channel secret.
func NewHandler(secret string, res Resolver, rep Replier, run Runner, opts ...Option) *Handler {
	h := &Handler{
		secret:   secret,
		resolver: res,
		replier:  rep,
		runner:   run,
		activity: 30 * time.Minute,
		rec:      metrics.NopSink{},
		log:      logger.Nop{},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Router returns the HTTP routes wrapped in recovery and access logging.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(Recovery(h.log))
	r.Use(AccessLog(h.log))
	r.HandleFunc("/", h.hello).Methods(http.MethodGet)
	r.HandleFunc("/callback", h.callback).Methods(http.MethodPost)
	if h.jobs != nil {
		r.HandleFunc("/api/schedules", h.schedules).Methods(http.MethodGet)
	}
	return r
}

// Drain waits for event goroutines started by earlier callbacks.
func (h *Handler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) hello(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("hello world!"))
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(h.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.log.Warnf("callback rejected: %v", err)
		} else {
			h.log.Errorf("parse callback: %v", err)
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	for _, ev := range cb.Events {
		ev := ev
		h.inflight.Add(1)
		monitoring.Go("webhook.event", func() {
			defer h.inflight.Done()
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			h.handleEvent(ctx, ev)
		})
	}
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) handleEvent(ctx context.Context, ev webhook.EventInterface) {
	msg, ok := ev.(webhook.MessageEvent)
	if !ok {
		h.log.Debugf("ignoring %T", ev)
		h.record("unsupported", false)
		return
	}
	userID := sourceUser(msg.Source)
	switch m := msg.Message.(type) {
	case webhook.LocationMessageContent:
		h.onLocation(ctx, msg.ReplyToken, userID, m.Latitude, m.Longitude)
	case webhook.TextMessageContent:
		h.onText(ctx, msg.ReplyToken, userID, m.Text)
	default:
		h.log.Debugf("ignoring message %T", m)
		h.record("unsupported", false)
	}
}

func (h *Handler) onLocation(ctx context.Context, token, userID string, lat, lon float64) {
	station, err := h.resolver.FromLocation(ctx, lat, lon)
	if err != nil {
		if !errors.Is(err, resolver.ErrNoStation) {
			h.log.Errorf("locate %.5f,%.5f: %v", lat, lon, err)
			monitoring.CaptureException(err, map[string]string{"component": "webhook", "event": "location"})
		}
		h.record("location", false)
		h.reply(ctx, token, MsgNoNearby)
		return
	}
	h.record("location", true)
	h.reply(ctx, token, fmt.Sprintf(MsgWelcome, station))
	h.schedule(userID, station)
}

func (h *Handler) onText(ctx context.Context, token, userID, text string) {
	station, err := h.resolver.FromText(ctx, text)
	if err != nil {
		if !errors.Is(err, resolver.ErrNoStation) {
			h.log.Errorf("resolve %q: %v", text, err)
			monitoring.CaptureException(err, map[string]string{"component": "webhook", "event": "text"})
		}
		h.record("text", false)
		h.reply(ctx, token, MsgAskAgain)
		return
	}
	h.record("text", true)
	h.schedule(userID, station)
}

func (h *Handler) schedule(userID string, station model.StationName) {
	if userID == "" {
		h.log.Warnf("no user id for %s, nothing to push to", station)
		return
	}
	h.runner.Go(userID, station, h.activity)
}

func (h *Handler) reply(ctx context.Context, token, text string) {
	if err := h.replier.Reply(ctx, token, text); err != nil {
		h.log.Warnf("reply: %v", err)
	}
}

func (h *Handler) record(kind string, resolved bool) {
	if err := h.rec.RecordRequest(metrics.RequestEvent{Kind: kind, Resolved: resolved, Time: time.Now()}); err != nil {
		h.log.Warnf("record request: %v", err)
	}
}

func (h *Handler) schedules(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.Pending(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if user := r.URL.Query().Get("user_id"); user != "" {
		filtered := jobs[:0]
		for _, j := range jobs {
			if j.UserID == user {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}
	if jobs == nil {
		jobs = []model.TriggerJob{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(jobs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func sourceUser(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}
