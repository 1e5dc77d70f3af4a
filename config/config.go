package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/homecoming/api/webhook"
	"github.com/kilianp07/homecoming/core/metrics"
	"github.com/kilianp07/homecoming/core/scheduler"
	"github.com/kilianp07/homecoming/infra/geocode"
	"github.com/kilianp07/homecoming/infra/journal"
	"github.com/kilianp07/homecoming/infra/line"
	// Registers the built-in metrics sinks checked by Validate.
	_ "github.com/kilianp07/homecoming/infra/metrics"
	"github.com/kilianp07/homecoming/infra/monitoring"
	"github.com/kilianp07/homecoming/infra/ner"
	"github.com/kilianp07/homecoming/infra/store"
	"github.com/kilianp07/homecoming/infra/transit"
	"github.com/kilianp07/homecoming/infra/trigger"
)

// EnvPrefix marks structured overrides such as HC_LINE__CHANNEL_SECRET.
const EnvPrefix = "HC_"

// legacyEnv maps the historical flat variable names onto config keys.
var legacyEnv = map[string]string{
	"LINE_CHANNEL_ACCESS_TOKEN": "line.channel_access_token",
	"LINE_CHANNEL_SECRET":       "line.channel_secret",
	"TRIGGER_URL":               "trigger.conf.url",
	"CLIENT_ID":                 "ner.auth.client_id",
	"CLIENT_SECRET":             "ner.auth.client_secret",
	"end_station":               "destination",
	"PORT":                      "server.port",
}

// Config is the complete service configuration.
type Config struct {
	Server    webhook.Config          `json:"server"`
	Line      line.Config             `json:"line"`
	NER       ner.Config              `json:"ner"`
	Geocode   geocode.Config          `json:"geocode"`
	Transit   transit.Config          `json:"transit"`
	Trigger   trigger.ModuleConfig    `json:"trigger"`
	Scheduler scheduler.Config        `json:"scheduler"`
	Store     store.Config            `json:"store"`
	Journal   journal.Config          `json:"journal"`
	Metrics   metrics.Config          `json:"metrics"`
	Sentry    monitoring.SentryConfig `json:"sentry"`
	// ActivityMinutes is how long the lights stay on after arrival.
	ActivityMinutes int `json:"activity_minutes"`
	// Destination is the home station.
	Destination string `json:"destination"`
}

// Load reads configuration from .env, the optional file at path and the
// environment, then applies defaults and validates every section.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read behaves like Load without validation. Commands that only need part of
// the configuration validate the sections they use.
func Read(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("load legacy env: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults fills every section with its defaults.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.NER.SetDefaults()
	c.Geocode.SetDefaults()
	c.Transit.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Store.SetDefaults()
	c.Journal.SetDefaults()
	if c.Trigger.Type == "" {
		c.Trigger.Type = "http"
	}
	if c.ActivityMinutes <= 0 {
		c.ActivityMinutes = 30
	}
}

// Validate reports every invalid section at once.
func (c Config) Validate() error {
	var errs []error
	check := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	check("server", c.Server.Validate())
	check("line", c.Line.Validate())
	check("ner", c.NER.Validate())
	check("transit", c.Transit.Validate())
	check("trigger", trigger.Validate(c.Trigger))
	check("store", c.Store.Validate())
	check("metrics", metrics.ValidateSinks(c.Metrics.Sinks))
	if strings.TrimSpace(c.Destination) == "" {
		errs = append(errs, errors.New("destination station is required"))
	}
	return errors.Join(errs...)
}

// Activity returns how long the lights stay on.
func (c Config) Activity() time.Duration {
	return time.Duration(c.ActivityMinutes) * time.Minute
}
