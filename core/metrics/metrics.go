package metrics

import (
	"time"

	"github.com/kilianp07/homecoming/core/model"
)

// EstimateEvent is recorded for every travel time estimate.
type EstimateEvent struct {
	UserID  string
	Station model.StationName
	Kind    model.EstimateKind
	Travel  time.Duration
	Time    time.Time
}

// MetricsSink records estimates for observability purposes.
type MetricsSink interface {
	RecordEstimate(ev EstimateEvent) error
}

// TriggerEvent captures the outcome of one trigger call.
type TriggerEvent struct {
	JobID    string
	UserID   string
	Phase    model.Phase
	Success  bool
	Lateness time.Duration
	Error    string
	Time     time.Time
}

// TriggerRecorder records trigger outcomes.
type TriggerRecorder interface {
	RecordTrigger(ev TriggerEvent) error
}

// FetchEvent describes one timetable fetch attempt.
type FetchEvent struct {
	Attempt int
	Success bool
	Latency time.Duration
	Time    time.Time
}

// FetchRecorder records timetable fetch attempts.
type FetchRecorder interface {
	RecordFetch(ev FetchEvent) error
}

// RequestEvent records an inbound chat event.
type RequestEvent struct {
	// Kind is "location", "text" or "unsupported".
	Kind     string
	Resolved bool
	Time     time.Time
}

// RequestRecorder records inbound chat events.
type RequestRecorder interface {
	RecordRequest(ev RequestEvent) error
}

// JobEvent counts trigger job lifecycle transitions.
type JobEvent struct {
	// Action is "scheduled", "fired", "failed" or "cancelled".
	Action string
	Phase  model.Phase
	Time   time.Time
}

// JobRecorder records trigger job transitions.
type JobRecorder interface {
	RecordJob(ev JobEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordEstimate(EstimateEvent) error { return nil }
func (NopSink) RecordTrigger(TriggerEvent) error   { return nil }
func (NopSink) RecordFetch(FetchEvent) error       { return nil }
func (NopSink) RecordRequest(RequestEvent) error   { return nil }
func (NopSink) RecordJob(JobEvent) error           { return nil }

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []ModuleConfig `json:"sinks"`
	// Address serves /metrics when a prometheus sink is configured.
	Address string `json:"address"`
}

// As returns sink as the recorder interface T, or a NopSink when sink does
// not implement it.
func As[T any](sink MetricsSink) T {
	if r, ok := sink.(T); ok {
		return r
	}
	var nop any = NopSink{}
	return nop.(T)
}
