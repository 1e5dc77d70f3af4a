package events

import (
	"time"

	"github.com/kilianp07/homecoming/core/model"
)

// ScheduleEvent is published once per handled request, whether or not a
// schedule could be built.
type ScheduleEvent struct {
	UserID   string            `json:"user_id"`
	Station  model.StationName `json:"station"`
	Estimate string            `json:"estimate"`
	Schedule *model.Schedule   `json:"schedule,omitempty"`
	Time     time.Time         `json:"time"`
}

// JobAction describes what happened to a trigger job.
type JobAction string

const (
	JobScheduled JobAction = "scheduled"
	JobFired     JobAction = "fired"
	JobFailed    JobAction = "failed"
	JobCancelled JobAction = "cancelled"
)

// JobEvent is published on every trigger job transition.
type JobEvent struct {
	Job    model.TriggerJob `json:"job"`
	Action JobAction        `json:"action"`
	Err    string           `json:"error,omitempty"`
	// Lateness is how long after FireAt the trigger actually ran.
	Lateness time.Duration `json:"lateness,omitempty"`
	Time     time.Time     `json:"time"`
}

// Event is the union carried by the application bus.
type Event interface{}
