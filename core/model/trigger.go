package model

import (
	"fmt"
	"time"
)

// Phase identifies which of the two light triggers a job fires.
type Phase string

const (
	PhaseOn  Phase = "on"
	PhaseOff Phase = "off"
)

// JobState tracks the lifecycle of a trigger job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobFired     JobState = "fired"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// TriggerJob is a delayed trigger keyed by (UserID, Phase, FireAt).
type TriggerJob struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	Phase     Phase     `json:"phase" yaml:"phase"`
	FireAt    time.Time `json:"fire_at" yaml:"fire_at"`
	State     JobState  `json:"state" yaml:"state"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Key returns the identity used to deduplicate jobs.
func (j TriggerJob) Key() string {
	return fmt.Sprintf("%s/%s/%d", j.UserID, j.Phase, j.FireAt.UnixMilli())
}
