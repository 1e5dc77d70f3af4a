package transit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	resty "gopkg.in/resty.v1"

	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/metrics"
	"github.com/kilianp07/homecoming/core/model"
	coretransit "github.com/kilianp07/homecoming/core/transit"
)

// DefaultBaseURL is the public route search result page.
const DefaultBaseURL = "https://transit.yahoo.co.jp/search/result"

// Config controls the search page client.
type Config struct {
	BaseURL string `json:"base_url"`
	// MaxAttempts caps fetch attempts. A negative value retries until the
	// context is done.
	MaxAttempts       int    `json:"max_attempts"`
	InitialBackoffMs  int    `json:"initial_backoff_ms"`
	MaxBackoffSeconds int    `json:"max_backoff_seconds"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	UserAgent         string `json:"user_agent"`
	// Windows overrides the departure eligibility windows, as "HH:MM-HH:MM".
	Windows []string `json:"windows"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 8
	}
	if c.InitialBackoffMs <= 0 {
		c.InitialBackoffMs = 500
	}
	if c.MaxBackoffSeconds <= 0 {
		c.MaxBackoffSeconds = 10
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	if c.UserAgent == "" {
		c.UserAgent = "homecoming/1.0"
	}
}

// ParseWindows returns the configured eligibility windows, or nil when the
// defaults apply.
func (c Config) ParseWindows() ([]model.TimeWindow, error) {
	var out []model.TimeWindow
	for _, s := range c.Windows {
		w, err := model.ParseTimeWindow(s)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	_, err := c.ParseWindows()
	return err
}

// Fetcher downloads route search pages with bounded exponential retry.
type Fetcher struct {
	cfg     Config
	client  *resty.Client
	log     logger.Logger
	metrics metrics.FetchRecorder
}

// NewFetcher creates a Fetcher. rec may be nil.
func NewFetcher(cfg Config, log logger.Logger, rec metrics.FetchRecorder) *Fetcher {
	cfg.SetDefaults()
	if rec == nil {
		rec = metrics.NopSink{}
	}
	client := resty.New().
		SetTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second).
		SetHeader("User-Agent", cfg.UserAgent)
	return &Fetcher{cfg: cfg, client: client, log: logger.OrNop(log), metrics: rec}
}

// Fetch returns the parsed search result for a trip from from to to starting
// at now. Failing attempts are retried; once retries are exhausted a
// *transit.TransientFetchError is returned and no document.
func (f *Fetcher) Fetch(ctx context.Context, from, to model.StationName, now time.Time) (*goquery.Document, error) {
	params := Query(from, to, now)
	var (
		doc      *goquery.Document
		attempts int
	)
	op := func() error {
		attempts++
		began := time.Now()
		d, err := f.get(ctx, params)
		f.record(attempts, err == nil, time.Since(began))
		if err != nil {
			return err
		}
		doc = d
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.log.Warnf("fetch %s→%s attempt %d failed, retrying in %s: %v", from, to, attempts, wait, err)
	}
	if err := backoff.RetryNotify(op, f.policy(ctx), notify); err != nil {
		f.log.Errorf("fetch %s→%s gave up after %d attempts: %v", from, to, attempts, err)
		var perm *permanentError
		if errors.As(err, &perm) {
			return nil, perm.err
		}
		return nil, &coretransit.TransientFetchError{Attempts: attempts, Err: err}
	}
	f.log.Debugw("route page fetched", map[string]any{"from": from.String(), "to": to.String(), "attempts": attempts})
	return doc, nil
}

func (f *Fetcher) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(f.cfg.InitialBackoffMs) * time.Millisecond
	b.MaxInterval = time.Duration(f.cfg.MaxBackoffSeconds) * time.Second
	b.MaxElapsedTime = 0
	var bo backoff.BackOff = b
	if f.cfg.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(b, uint64(f.cfg.MaxAttempts-1))
	}
	return backoff.WithContext(bo, ctx)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (f *Fetcher) get(ctx context.Context, params url.Values) (*goquery.Document, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetMultiValueQueryParams(params).
		Get(f.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, backoff.Permanent(&permanentError{err: fmt.Errorf("parse page: %w", err)})
	}
	return doc, nil
}

func (f *Fetcher) record(attempt int, ok bool, latency time.Duration) {
	if err := f.metrics.RecordFetch(metrics.FetchEvent{Attempt: attempt, Success: ok, Latency: latency, Time: time.Now()}); err != nil {
		f.log.Warnf("record fetch: %v", err)
	}
}
