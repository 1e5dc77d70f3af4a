package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/homecoming/core/events"
	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/metrics"
	"github.com/kilianp07/homecoming/core/model"
)

// ErrClosed is returned once the scheduler has been closed.
var ErrClosed = errors.New("scheduler closed")

// Trigger performs the physical action of a job.
type Trigger interface {
	Fire(ctx context.Context, job model.TriggerJob) error
}

// Publisher receives job lifecycle events.
type Publisher interface {
	Publish(events.Event)
}

// Timer is the handle returned by an AfterFunc implementation.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run after d. Implementations must not call f
// synchronously.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Config defines scheduler behaviour loaded from configuration.
type Config struct {
	// RetryOnce repeats a failed trigger call a single time.
	RetryOnce bool `json:"retry_once"`
	// FireTimeoutSeconds bounds one trigger call.
	FireTimeoutSeconds int `json:"fire_timeout_seconds"`
	// MaxLatenessMinutes drops "on" jobs found this late when reloaded.
	// "off" jobs always fire so a light is never left on.
	MaxLatenessMinutes int `json:"max_lateness_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.FireTimeoutSeconds <= 0 {
		c.FireTimeoutSeconds = 10
	}
	if c.MaxLatenessMinutes <= 0 {
		c.MaxLatenessMinutes = 15
	}
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

func WithLogger(l logger.Logger) Option { return func(s *Scheduler) { s.log = logger.OrNop(l) } }

func WithPublisher(p Publisher) Option { return func(s *Scheduler) { s.pub = p } }

func WithRecorder(r metrics.TriggerRecorder) Option { return func(s *Scheduler) { s.rec = r } }

// WithClock replaces the time source and timer implementation.
func WithClock(now func() time.Time, after AfterFunc) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
		if after != nil {
			s.after = after
		}
	}
}

// Scheduler arms one timer per pending job.
type Scheduler struct {
	cfg     Config
	store   Store
	trigger Trigger
	log     logger.Logger
	pub     Publisher
	rec     metrics.TriggerRecorder
	now     func() time.Time
	after   AfterFunc

	mu      sync.Mutex
	jobs    map[string]model.TriggerJob
	timers  map[string]Timer
	done    map[string]chan struct{}
	closed  bool
	stopped chan struct{}
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. Start must be called before jobs fire.
func New(cfg Config, store Store, trig Trigger, opts ...Option) *Scheduler {
	cfg.SetDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:     cfg,
		store:   store,
		trigger: trig,
		log:     logger.Nop{},
		rec:     metrics.NopSink{},
		now:     time.Now,
		after:   realAfterFunc,
		jobs:    map[string]model.TriggerJob{},
		timers:  map[string]Timer{},
		done:    map[string]chan struct{}{},
		stopped: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start reloads pending jobs from the store and arms their timers.
func (s *Scheduler) Start(ctx context.Context) error {
	pending, err := s.store.List(ctx, Filter{State: model.JobPending})
	if err != nil {
		return fmt.Errorf("load pending jobs: %w", err)
	}
	maxLate := time.Duration(s.cfg.MaxLatenessMinutes) * time.Minute
	now := s.now()
	armed := 0
	for _, j := range pending {
		if j.Phase == model.PhaseOn && now.Sub(j.FireAt) > maxLate {
			s.log.Warnf("dropping stale job %s for %s (due %s)", j.ID, j.UserID, j.FireAt.Format(time.RFC3339))
			s.finish(ctx, j, model.JobCancelled, events.JobCancelled, nil)
			continue
		}
		if err := s.arm(j); err != nil {
			return err
		}
		armed++
	}
	s.log.Infof("scheduler started with %d pending jobs", armed)
	return nil
}

// Plan replaces the user's pending jobs with an "on" job at sched.Start and
// an "off" job at sched.End.
func (s *Scheduler) Plan(ctx context.Context, sched model.Schedule) ([]model.TriggerJob, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if s.releaseLit(sched.UserID) {
		s.log.Infof("turned lights off for %s before replanning", sched.UserID)
	}
	n, err := s.Cancel(ctx, sched.UserID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.log.Infof("superseded %d pending jobs for %s", n, sched.UserID)
	}
	now := s.now()
	jobs := []model.TriggerJob{
		newJob(sched.UserID, model.PhaseOn, sched.Start, now),
		newJob(sched.UserID, model.PhaseOff, sched.End, now),
	}
	// Both jobs are stored before either is armed so a failure never
	// leaves an "on" without its "off".
	for i, j := range jobs {
		if err := s.store.Save(ctx, j); err != nil {
			s.discard(ctx, jobs[:i])
			return nil, fmt.Errorf("save job %s: %w", j.Key(), err)
		}
	}
	for i, j := range jobs {
		if err := s.arm(j); err != nil {
			s.disarm(jobs[:i])
			s.discard(ctx, jobs)
			return nil, err
		}
	}
	for _, j := range jobs {
		s.publish(events.JobEvent{Job: j, Action: events.JobScheduled, Time: now})
	}
	return jobs, nil
}

// releaseLit fires the user's pending "off" right away when its "on" has
// already fired, keeping on/off calls paired on toggle endpoints.
func (s *Scheduler) releaseLit(userID string) bool {
	s.mu.Lock()
	offID := ""
	for id, j := range s.jobs {
		if j.UserID != userID {
			continue
		}
		if j.Phase == model.PhaseOn {
			s.mu.Unlock()
			return false
		}
		offID = id
	}
	if offID == "" {
		s.mu.Unlock()
		return false
	}
	if t := s.timers[offID]; t != nil {
		t.Stop()
	}
	s.mu.Unlock()
	s.fire(offID)
	return true
}

// disarm stops jobs armed by a failed Plan.
func (s *Scheduler) disarm(jobs []model.TriggerJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		if t := s.timers[j.ID]; t != nil {
			t.Stop()
		}
		if ch := s.done[j.ID]; ch != nil {
			close(ch)
		}
		s.forget(j.ID)
	}
}

// discard marks jobs saved by a failed Plan as cancelled.
func (s *Scheduler) discard(ctx context.Context, jobs []model.TriggerJob) {
	for _, j := range jobs {
		if err := s.store.SetState(ctx, j.ID, model.JobCancelled); err != nil {
			s.log.Errorf("discard job %s: %v", j.ID, err)
		}
	}
}

func newJob(userID string, phase model.Phase, at, now time.Time) model.TriggerJob {
	return model.TriggerJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		Phase:     phase,
		FireAt:    at,
		State:     model.JobPending,
		CreatedAt: now,
	}
}

// Cancel stops every armed job of the user and returns how many were cancelled.
func (s *Scheduler) Cancel(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	var cancelled []model.TriggerJob
	var chans []chan struct{}
	for id, j := range s.jobs {
		if j.UserID != userID {
			continue
		}
		if t := s.timers[id]; t != nil {
			t.Stop()
		}
		cancelled = append(cancelled, j)
		chans = append(chans, s.done[id])
		s.forget(id)
	}
	s.mu.Unlock()

	var firstErr error
	for i, j := range cancelled {
		if err := s.store.SetState(ctx, j.ID, model.JobCancelled); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cancel job %s: %w", j.ID, err)
		}
		close(chans[i])
		s.publish(events.JobEvent{Job: j, Action: events.JobCancelled, Time: s.now()})
	}
	return len(cancelled), firstErr
}

// Pending lists jobs that have not fired yet.
func (s *Scheduler) Pending(ctx context.Context) ([]model.TriggerJob, error) {
	return s.store.List(ctx, Filter{State: model.JobPending})
}

// Wait blocks until every given job has fired, failed or been cancelled.
func (s *Scheduler) Wait(ctx context.Context, jobs ...model.TriggerJob) error {
	for _, j := range jobs {
		s.mu.Lock()
		ch, ok := s.done[j.ID]
		s.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopped:
			return ErrClosed
		}
	}
	return nil
}

// Close stops all timers and waits for in-flight triggers. Pending jobs stay
// pending in the store and are picked up by the next Start.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	close(s.stopped)
	s.mu.Unlock()
	s.wg.Wait()
	s.cancel()
	return nil
}

func (s *Scheduler) arm(j model.TriggerJob) error {
	delay := j.FireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	id := j.ID
	s.jobs[id] = j
	s.done[id] = make(chan struct{})
	s.timers[id] = s.after(delay, func() { s.fire(id) })
	s.log.Debugw("job armed", map[string]any{"job_id": id, "user_id": j.UserID, "phase": string(j.Phase), "delay": delay.String()})
	return nil
}

// forget drops bookkeeping for id. s.mu must be held.
func (s *Scheduler) forget(id string) {
	delete(s.jobs, id)
	delete(s.timers, id)
	delete(s.done, id)
}

func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	done := s.done[id]
	s.forget(id)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	defer close(done)

	// Marked before calling out so a crash mid-call never fires twice.
	if err := s.store.SetState(s.ctx, id, model.JobFired); err != nil {
		s.log.Errorf("mark job %s fired: %v", id, err)
	}
	lateness := s.now().Sub(j.FireAt)
	err := s.call(j)
	if err != nil && s.cfg.RetryOnce {
		s.log.Warnf("trigger %s for %s failed, retrying once: %v", j.Phase, j.UserID, err)
		err = s.call(j)
	}
	ev := metrics.TriggerEvent{JobID: id, UserID: j.UserID, Phase: j.Phase, Success: err == nil, Lateness: lateness, Time: s.now()}
	if err != nil {
		ev.Error = err.Error()
		s.log.Errorf("trigger %s for %s failed: %v", j.Phase, j.UserID, err)
		s.finish(s.ctx, j, model.JobFailed, events.JobFailed, err)
	} else {
		s.log.Infof("trigger %s fired for %s", j.Phase, j.UserID)
		j.State = model.JobFired
		s.publish(events.JobEvent{Job: j, Action: events.JobFired, Lateness: lateness, Time: s.now()})
	}
	if rerr := s.rec.RecordTrigger(ev); rerr != nil {
		s.log.Warnf("record trigger: %v", rerr)
	}
}

func (s *Scheduler) call(j model.TriggerJob) error {
	ctx, cancel := context.WithTimeout(s.ctx, time.Duration(s.cfg.FireTimeoutSeconds)*time.Second)
	defer cancel()
	return s.trigger.Fire(ctx, j)
}

func (s *Scheduler) finish(ctx context.Context, j model.TriggerJob, state model.JobState, action events.JobAction, cause error) {
	if err := s.store.SetState(ctx, j.ID, state); err != nil {
		s.log.Errorf("set job %s %s: %v", j.ID, state, err)
	}
	j.State = state
	ev := events.JobEvent{Job: j, Action: action, Time: s.now()}
	if cause != nil {
		ev.Err = cause.Error()
	}
	s.publish(ev)
}

func (s *Scheduler) publish(ev events.Event) {
	if s.pub != nil {
		s.pub.Publish(ev)
	}
}
