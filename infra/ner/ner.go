// Package ner calls a named entity recognition API to find station names in
// free text.
package ner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	resty "gopkg.in/resty.v1"

	"github.com/kilianp07/homecoming/auth"
	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/resolver"
)

// Config controls the recognition client.
type Config struct {
	// BaseURL ends with a slash; the "v1/ne" endpoint is appended.
	BaseURL        string    `json:"base_url"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	Auth           auth.Conf `json:"auth"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.ce-cotoha.com/api/dev/nlp/"
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.Auth.AuthURL == "" {
		c.Auth.AuthURL = "https://api.ce-cotoha.com/v1/oauth/accesstokens"
	}
	c.Auth.SetDefaults()
}

// Validate checks credentials are present.
func (c Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("ner auth: %w", err)
	}
	return nil
}

type tokenSource interface {
	GetToken(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

type request struct {
	Sentence string `json:"sentence"`
}

type response struct {
	Result  []resolver.Entity `json:"result"`
	Status  int               `json:"status"`
	Message string            `json:"message"`
}

// Client implements resolver.Recognizer.
type Client struct {
	cfg    Config
	client *resty.Client
	tokens tokenSource
	log    logger.Logger
}

func New(cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	return &Client{
		cfg:    cfg,
		client: resty.New().SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
		tokens: auth.NewClientCred(cfg.Auth),
		log:    logger.OrNop(log),
	}
}

// Recognize returns the entities found in sentence. A rejected token is
// refreshed and the call repeated once.
func (c *Client) Recognize(ctx context.Context, sentence string) ([]resolver.Entity, error) {
	tok, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	out, status, err := c.call(ctx, tok, sentence)
	if err == nil && status == http.StatusUnauthorized {
		c.log.Infof("ner token rejected, refreshing")
		if tok, err = c.tokens.ForceRefresh(ctx); err != nil {
			return nil, err
		}
		out, status, err = c.call(ctx, tok, sentence)
	}
	if err != nil {
		return nil, fmt.Errorf("ner request: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("ner returned %d", status)
	}
	return out.Result, nil
}

func (c *Client) call(ctx context.Context, token, sentence string) (*response, int, error) {
	var out response
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json;charset=UTF-8").
		SetBody(request{Sentence: sentence}).
		SetResult(&out).
		Post(c.cfg.BaseURL + "v1/ne")
	if err != nil {
		return nil, 0, err
	}
	return &out, resp.StatusCode(), nil
}
