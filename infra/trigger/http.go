package trigger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	resty "gopkg.in/resty.v1"

	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/model"
)

// HTTPConfig configures a webhook style trigger.
type HTTPConfig struct {
	// URL receives both phases unless OnURL/OffURL override it.
	URL            string `json:"url"`
	OnURL          string `json:"on_url"`
	OffURL         string `json:"off_url"`
	Method         string `json:"method"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Method == "" {
		c.Method = http.MethodPost
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks that every phase has a target.
func (c HTTPConfig) Validate() error {
	if c.URL == "" && (c.OnURL == "" || c.OffURL == "") {
		return fmt.Errorf("trigger url is required")
	}
	return nil
}

func (c HTTPConfig) target(p model.Phase) string {
	switch {
	case p == model.PhaseOn && c.OnURL != "":
		return c.OnURL
	case p == model.PhaseOff && c.OffURL != "":
		return c.OffURL
	default:
		return c.URL
	}
}

// HTTPTrigger calls a URL without a body for each job.
type HTTPTrigger struct {
	cfg    HTTPConfig
	client *resty.Client
	log    logger.Logger
}

func NewHTTPTrigger(cfg HTTPConfig, log logger.Logger) (*HTTPTrigger, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HTTPTrigger{
		cfg:    cfg,
		client: resty.New().SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
		log:    logger.OrNop(log),
	}, nil
}

// Fire sends a single request for job.
func (t *HTTPTrigger) Fire(ctx context.Context, job model.TriggerJob) error {
	url := t.cfg.target(job.Phase)
	resp, err := t.client.R().SetContext(ctx).Execute(t.cfg.Method, url)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", job.Phase, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("trigger %s returned %d", job.Phase, resp.StatusCode())
	}
	t.log.Debugf("trigger %s for %s answered %d", job.Phase, job.UserID, resp.StatusCode())
	return nil
}
