package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/homecoming/core/metrics"
)

// PromSink records estimates, fetches and triggers in Prometheus metrics.
type PromSink struct {
	estimates    *prometheus.CounterVec
	travel       prometheus.Histogram
	fetches      *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	triggers     *prometheus.CounterVec
	lateness     *prometheus.HistogramVec
	requests     *prometheus.CounterVec
	jobs         *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homecoming_estimates_total",
			Help: "Travel time estimates by outcome",
		}, []string{"kind"}),
		travel: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "homecoming_travel_minutes",
			Help:    "Estimated travel time in minutes",
			Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180},
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homecoming_fetch_attempts_total",
			Help: "Route search page fetch attempts",
		}, []string{"success"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "homecoming_fetch_latency_seconds",
			Help:    "Route search page fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homecoming_triggers_total",
			Help: "Light trigger calls by phase and outcome",
		}, []string{"phase", "success"}),
		lateness: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homecoming_trigger_lateness_seconds",
			Help:    "Delay between planned and actual trigger time",
			Buckets: []float64{0.01, 0.1, 1, 5, 30, 60, 300, 900},
		}, []string{"phase"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homecoming_chat_requests_total",
			Help: "Inbound chat events by kind",
		}, []string{"kind", "resolved"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homecoming_job_transitions_total",
			Help: "Trigger job lifecycle transitions",
		}, []string{"action", "phase"}),
	}
	var err error
	if s.estimates, err = register(reg, s.estimates); err != nil {
		return nil, err
	}
	if s.travel, err = register(reg, s.travel); err != nil {
		return nil, err
	}
	if s.fetches, err = register(reg, s.fetches); err != nil {
		return nil, err
	}
	if s.fetchLatency, err = register(reg, s.fetchLatency); err != nil {
		return nil, err
	}
	if s.triggers, err = register(reg, s.triggers); err != nil {
		return nil, err
	}
	if s.lateness, err = register(reg, s.lateness); err != nil {
		return nil, err
	}
	if s.requests, err = register(reg, s.requests); err != nil {
		return nil, err
	}
	if s.jobs, err = register(reg, s.jobs); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordEstimate counts the estimate and observes its travel time.
func (s *PromSink) RecordEstimate(ev coremetrics.EstimateEvent) error {
	s.estimates.WithLabelValues(ev.Kind.String()).Inc()
	if ev.Travel > 0 {
		s.travel.Observe(ev.Travel.Minutes())
	}
	return nil
}

// RecordFetch counts a fetch attempt.
func (s *PromSink) RecordFetch(ev coremetrics.FetchEvent) error {
	s.fetches.WithLabelValues(strconv.FormatBool(ev.Success)).Inc()
	s.fetchLatency.Observe(ev.Latency.Seconds())
	return nil
}

// RecordTrigger counts a trigger call.
func (s *PromSink) RecordTrigger(ev coremetrics.TriggerEvent) error {
	phase := string(ev.Phase)
	s.triggers.WithLabelValues(phase, strconv.FormatBool(ev.Success)).Inc()
	if ev.Lateness >= 0 {
		s.lateness.WithLabelValues(phase).Observe(ev.Lateness.Seconds())
	}
	return nil
}

// RecordRequest counts an inbound chat event.
func (s *PromSink) RecordRequest(ev coremetrics.RequestEvent) error {
	s.requests.WithLabelValues(ev.Kind, strconv.FormatBool(ev.Resolved)).Inc()
	return nil
}

// RecordJob counts a job transition.
func (s *PromSink) RecordJob(ev coremetrics.JobEvent) error {
	s.jobs.WithLabelValues(ev.Action, string(ev.Phase)).Inc()
	return nil
}
