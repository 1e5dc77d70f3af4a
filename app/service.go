package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/homecoming/api/webhook"
	"github.com/kilianp07/homecoming/config"
	"github.com/kilianp07/homecoming/core/engine"
	"github.com/kilianp07/homecoming/core/events"
	coremetrics "github.com/kilianp07/homecoming/core/metrics"
	"github.com/kilianp07/homecoming/core/model"
	coremon "github.com/kilianp07/homecoming/core/monitoring"
	"github.com/kilianp07/homecoming/core/resolver"
	"github.com/kilianp07/homecoming/core/scheduler"
	coretransit "github.com/kilianp07/homecoming/core/transit"
	"github.com/kilianp07/homecoming/infra/geocode"
	"github.com/kilianp07/homecoming/infra/journal"
	"github.com/kilianp07/homecoming/infra/line"
	"github.com/kilianp07/homecoming/infra/logger"
	"github.com/kilianp07/homecoming/infra/metrics"
	"github.com/kilianp07/homecoming/infra/monitoring"
	"github.com/kilianp07/homecoming/infra/ner"
	"github.com/kilianp07/homecoming/infra/store"
	"github.com/kilianp07/homecoming/infra/transit"
	"github.com/kilianp07/homecoming/infra/trigger"
	"github.com/kilianp07/homecoming/internal/eventbus"
)

// Option customizes a Service.
type Option func(*Service)

// WithNotifier replaces the LINE push channel used by the engine.
func WithNotifier(n engine.Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithTrigger replaces the configured trigger.
func WithTrigger(t scheduler.Trigger) Option { return func(s *Service) { s.trigger = t } }

// WithStore replaces the configured job store.
func WithStore(st scheduler.Store) Option { return func(s *Service) { s.store = st } }

// Service wires the webhook, the engine and the trigger scheduler.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	bus       *eventbus.Bus[events.Event]
	sink      coremetrics.MetricsSink
	store     scheduler.Store
	trigger   scheduler.Trigger
	notifier  engine.Notifier
	journal   *journal.Journal
	scheduler *scheduler.Scheduler
	estimator *coretransit.Estimator
	engine    *engine.Engine
	handler   *webhook.Handler
	server    *webhook.Server
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{cfg: cfg, log: logger.New("service"), bus: eventbus.New[events.Event](64)}
	for _, o := range opts {
		o(svc)
	}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	if svc.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if cfg.Journal.Enabled {
		if svc.journal, err = journal.New(cfg.Journal, logger.New("journal")); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	if svc.store == nil {
		if svc.store, err = store.Open(cfg.Store); err != nil {
			return nil, fmt.Errorf("job store: %w", err)
		}
	}
	if svc.trigger == nil {
		if svc.trigger, err = trigger.New(cfg.Trigger); err != nil {
			return nil, fmt.Errorf("trigger: %w", err)
		}
	}
	svc.scheduler = scheduler.New(cfg.Scheduler, svc.store, svc.trigger,
		scheduler.WithLogger(logger.New("scheduler")),
		scheduler.WithPublisher(svc.bus),
		scheduler.WithRecorder(coremetrics.As[coremetrics.TriggerRecorder](svc.sink)),
	)

	if svc.estimator, err = NewEstimator(cfg, svc.sink); err != nil {
		return nil, err
	}
	destination := model.StationName(cfg.Destination)

	var replier *line.Notifier
	if cfg.Line.Validate() == nil {
		if replier, err = line.NewNotifier(cfg.Line, logger.New("line")); err != nil {
			return nil, fmt.Errorf("line: %w", err)
		}
		if svc.notifier == nil {
			svc.notifier = replier
		}
	}
	if svc.notifier == nil {
		return nil, errors.New("no notification channel configured")
	}

	svc.engine = engine.New(svc.estimator, svc.notifier, svc.scheduler,
		engine.WithLogger(logger.New("engine")),
		engine.WithMetrics(svc.sink),
		engine.WithPublisher(svc.bus),
	)

	if replier != nil {
		res := resolver.New(
			ner.New(cfg.NER, logger.New("ner")),
			geocode.New(cfg.Geocode, logger.New("geocode")),
			destination,
		)
		svc.handler = webhook.NewHandler(cfg.Line.ChannelSecret, res, replier, svc.engine,
			webhook.WithLogger(logger.New("webhook")),
			webhook.WithRecorder(coremetrics.As[coremetrics.RequestRecorder](svc.sink)),
			webhook.WithJobs(svc.scheduler),
			webhook.WithActivity(cfg.Activity()),
		)
		svc.server = webhook.NewServer(cfg.Server, svc.handler, logger.New("http"))
	}
	return svc, nil
}

// NewEstimator builds the travel time estimator for cfg. sink may be nil.
func NewEstimator(cfg *config.Config, sink coremetrics.MetricsSink) (*coretransit.Estimator, error) {
	windows, err := cfg.Transit.ParseWindows()
	if err != nil {
		return nil, fmt.Errorf("transit windows: %w", err)
	}
	fetcher := transit.NewFetcher(cfg.Transit, logger.New("transit"), coremetrics.As[coremetrics.FetchRecorder](sink))
	return coretransit.NewEstimator(fetcher, coretransit.NewExtractor(windows...), model.StationName(cfg.Destination)), nil
}

// Engine returns the schedule engine.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Estimator returns the travel time estimator.
func (s *Service) Estimator() *coretransit.Estimator { return s.estimator }

// Scheduler returns the trigger scheduler.
func (s *Service) Scheduler() *scheduler.Scheduler { return s.scheduler }

// Start launches background consumers and reloads pending trigger jobs.
func (s *Service) Start(ctx context.Context) error {
	if s.journal != nil {
		sub := s.bus.Subscribe()
		go s.journal.Run(ctx, sub)
	}
	metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("collector"))
	if addr := s.cfg.Metrics.Address; addr != "" && coremetrics.Has(s.cfg.Metrics.Sinks, "prometheus") {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s.scheduler.Start(ctx)
}

// Run starts the service and serves the webhook until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.server == nil {
		return errors.New("line channel is not configured")
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.server.Run(ctx)
}

// Close stops pending timers and releases resources. Pending jobs stay in
// the store for the next start.
func (s *Service) Close() error {
	var errs []error
	if err := s.scheduler.Close(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	if c, ok := s.trigger.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trigger: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	s.bus.Close()
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
