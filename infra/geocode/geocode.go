// Package geocode lists railway stations near a coordinate.
package geocode

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	resty "gopkg.in/resty.v1"

	"github.com/kilianp07/homecoming/core/logger"
	"github.com/kilianp07/homecoming/core/model"
)

// DefaultBaseURL is the public nearest-station lookup.
const DefaultBaseURL = "http://map.simpleapi.net/stationapi"

// Config controls the station lookup client.
type Config struct {
	BaseURL         string `json:"base_url"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
	CacheTTLMinutes int    `json:"cache_ttl_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.CacheTTLMinutes <= 0 {
		c.CacheTTLMinutes = 24 * 60
	}
}

// Client looks up stations and caches results by rounded coordinate.
type Client struct {
	cfg    Config
	client *resty.Client
	cache  *cache.Cache
	log    logger.Logger
}

func New(cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	return &Client{
		cfg:    cfg,
		client: resty.New().SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
		cache:  cache.New(ttl, 2*ttl),
		log:    logger.OrNop(log),
	}
}

// CacheKey rounds the coordinate to three decimals, roughly 100m.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("station:%.3f:%.3f", lat, lon)
}

// Nearby returns stations near (lat, lon), closest first.
func (c *Client) Nearby(ctx context.Context, lat, lon float64) ([]model.StationName, error) {
	key := CacheKey(lat, lon)
	if v, ok := c.cache.Get(key); ok {
		return append([]model.StationName(nil), v.([]model.StationName)...), nil
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"x":      strconv.FormatFloat(lon, 'f', -1, 64),
			"y":      strconv.FormatFloat(lat, 'f', -1, 64),
			"output": "xml",
		}).
		Get(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("station lookup: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("station lookup returned %d", resp.StatusCode())
	}
	names, err := Decode(resp.Body())
	if err != nil {
		return nil, err
	}
	c.log.Debugw("stations found", map[string]any{"lat": lat, "lon": lon, "count": len(names)})
	c.cache.SetDefault(key, names)
	return append([]model.StationName(nil), names...), nil
}

// Decode reads every station name of a lookup response in document order.
func Decode(body []byte) ([]model.StationName, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var out []model.StationName
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode station list: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "name" {
			continue
		}
		var n string
		if err := dec.DecodeElement(&n, &se); err != nil {
			return nil, fmt.Errorf("decode station name: %w", err)
		}
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, model.StationName(n))
		}
	}
}
