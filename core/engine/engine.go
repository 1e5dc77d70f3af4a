package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/homecoming/core/events"
	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/metrics"
	"github.com/kilianp07/homecoming/core/model"
	"github.com/kilianp07/homecoming/core/monitoring"
	"github.com/kilianp07/homecoming/core/transit"
)

// User-facing messages.
const (
	MsgScheduled      = "%sから%sまでライトを点灯します。"
	MsgLastTrainGone  = "終電が過ぎています。"
	MsgFetchFailed    = "経路を取得できませんでした。しばらくしてからもう一度お試しください。"
	MsgPlanFailed     = "ライトの予約に失敗しました。もう一度お試しください。"
	DefaultActivity   = 30 * time.Minute
	pushTimeout       = 10 * time.Second
	defaultRunTimeout = 2 * time.Minute
)

// Estimator produces a travel time estimate from a start station.
type Estimator interface {
	Estimate(ctx context.Context, start model.StationName) (transit.Result, error)
}

// Notifier delivers text messages to a chat user.
type Notifier interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, userID, text string) error
}

// Planner turns a schedule into armed trigger jobs.
type Planner interface {
	Plan(ctx context.Context, sched model.Schedule) ([]model.TriggerJob, error)
	Wait(ctx context.Context, jobs ...model.TriggerJob) error
}

// Publisher receives schedule events.
type Publisher interface {
	Publish(events.Event)
}

// Engine computes a schedule for a user and hands it to the Planner.
type Engine struct {
	estimator Estimator
	notifier  Notifier
	planner   Planner
	log       logger.Logger
	metrics   metrics.MetricsSink
	pub       Publisher
}

// Option customizes an Engine.
type Option func(*Engine)

func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = logger.OrNop(l) } }

func WithMetrics(m metrics.MetricsSink) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.pub = p } }

// New creates an Engine.
func New(est Estimator, n Notifier, p Planner, opts ...Option) *Engine {
	e := &Engine{
		estimator: est,
		notifier:  n,
		planner:   p,
		log:       logger.Nop{},
		metrics:   metrics.NopSink{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run estimates the trip from start, notifies the user and plans the light
// triggers. It returns a nil schedule without error when no train can be
// taken anymore.
func (e *Engine) Run(ctx context.Context, userID string, start model.StationName, activity time.Duration) (*model.Schedule, error) {
	sched, _, err := e.run(ctx, userID, start, activity)
	return sched, err
}

// RunBlocking behaves like Run and then waits until both triggers have fired
// or ctx is done.
func (e *Engine) RunBlocking(ctx context.Context, userID string, start model.StationName, activity time.Duration) (*model.Schedule, error) {
	sched, jobs, err := e.run(ctx, userID, start, activity)
	if err != nil || sched == nil {
		return sched, err
	}
	if err := e.planner.Wait(ctx, jobs...); err != nil {
		return sched, fmt.Errorf("wait for triggers: %w", err)
	}
	return sched, nil
}

// Go runs the engine in the background, detached from the caller's context.
// Failures are logged and reported to the monitor.
func (e *Engine) Go(userID string, start model.StationName, activity time.Duration) {
	monitoring.Go("engine.run", func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
		defer cancel()
		if _, err := e.Run(ctx, userID, start, activity); err != nil {
			e.log.Errorf("schedule for %s from %s: %v", userID, start, err)
			monitoring.CaptureException(err, map[string]string{"component": "engine", "station": start.String()})
		}
	})
}

func (e *Engine) run(ctx context.Context, userID string, start model.StationName, activity time.Duration) (*model.Schedule, []model.TriggerJob, error) {
	if activity <= 0 {
		activity = DefaultActivity
	}
	start = start.Normalize()
	res, err := e.estimator.Estimate(ctx, start)
	if err != nil {
		e.record(userID, start, model.Unavailable(), res.At, nil)
		e.push(userID, MsgFetchFailed)
		return nil, nil, fmt.Errorf("estimate from %s: %w", start, err)
	}

	sched, ok := model.NewSchedule(userID, start, res.At, res.Estimate, activity)
	if !ok {
		e.log.Infof("no train from %s for %s", start, userID)
		e.record(userID, start, res.Estimate, res.At, nil)
		e.push(userID, MsgLastTrainGone)
		return nil, nil, nil
	}
	e.log.Debugw("schedule computed", map[string]any{
		"user_id":  userID,
		"station":  start.String(),
		"estimate": res.Estimate.String(),
		"start":    sched.Start.Format(time.RFC3339),
		"end":      sched.End.Format(time.RFC3339),
	})
	e.record(userID, start, res.Estimate, res.At, &sched)

	jobs, err := e.planner.Plan(ctx, sched)
	if err != nil {
		e.push(userID, MsgPlanFailed)
		return nil, nil, fmt.Errorf("plan triggers: %w", err)
	}
	e.push(userID, fmt.Sprintf(MsgScheduled, sched.StartClock(), sched.EndClock()))
	return &sched, jobs, nil
}

// push delivers text outside the request context so a cancelled caller does
// not swallow the notification.
func (e *Engine) push(userID, text string) {
	if e.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := e.notifier.Push(ctx, userID, text); err != nil {
		e.log.Warnf("push to %s: %v", userID, err)
	}
}

func (e *Engine) record(userID string, station model.StationName, est model.Estimate, at time.Time, sched *model.Schedule) {
	if at.IsZero() {
		at = time.Now()
	}
	if err := e.metrics.RecordEstimate(metrics.EstimateEvent{
		UserID:  userID,
		Station: station,
		Kind:    est.Kind(),
		Travel:  est.Duration(),
		Time:    at,
	}); err != nil {
		e.log.Warnf("record estimate: %v", err)
	}
	if e.pub != nil {
		e.pub.Publish(events.ScheduleEvent{
			UserID:   userID,
			Station:  station,
			Estimate: est.Kind().String(),
			Schedule: sched,
			Time:     at,
		})
	}
}
