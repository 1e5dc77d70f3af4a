package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/homecoming/core/model"
	"github.com/kilianp07/homecoming/infra/mqtt"
)

// MQTTConfig configures a broker backed trigger.
type MQTTConfig struct {
	mqtt.Config
	// Topic may contain {user} and {phase} placeholders.
	Topic string `json:"topic"`
}

// SetDefaults applies sane defaults.
func (c *MQTTConfig) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "homecoming/{user}/light"
	}
	if c.ClientID == "" {
		c.ClientID = "homecoming"
	}
}

// Command is the payload published for each job.
type Command struct {
	JobID  string      `json:"job_id"`
	UserID string      `json:"user_id"`
	Phase  model.Phase `json:"phase"`
	FireAt time.Time   `json:"fire_at"`
	SentAt time.Time   `json:"sent_at"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Disconnect()
}

// MQTTTrigger publishes a Command per job.
type MQTTTrigger struct {
	topic string
	pub   publisher
}

func newMQTTTrigger(topic string, pub publisher) *MQTTTrigger {
	return &MQTTTrigger{topic: topic, pub: pub}
}

// Topic resolves the placeholders for job.
func (t *MQTTTrigger) Topic(job model.TriggerJob) string {
	return strings.NewReplacer("{user}", job.UserID, "{phase}", string(job.Phase)).Replace(t.topic)
}

// Fire publishes the command for job.
func (t *MQTTTrigger) Fire(ctx context.Context, job model.TriggerJob) error {
	payload, err := json.Marshal(Command{
		JobID:  job.ID,
		UserID: job.UserID,
		Phase:  job.Phase,
		FireAt: job.FireAt,
		SentAt: time.Now(),
	})
	if err != nil {
		return err
	}
	if err := t.pub.Publish(ctx, t.Topic(job), payload); err != nil {
		return fmt.Errorf("publish %s: %w", job.Phase, err)
	}
	return nil
}

// Close disconnects from the broker.
func (t *MQTTTrigger) Close() error {
	t.pub.Disconnect()
	return nil
}
