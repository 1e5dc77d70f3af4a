package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const fullYAML = `server:
  port: 9000
line:
  channel_secret: "secret"
  channel_access_token: "token"
ner:
  auth:
    client_id: "id"
    client_secret: "shh"
transit:
  max_attempts: 3
  windows: ["21:00-23:59"]
trigger:
  type: "mqtt"
  conf:
    broker: "tcp://localhost:1883"
    topic: "home/{user}/lamp"
scheduler:
  retry_once: true
store:
  driver: "memory"
metrics:
  sinks:
    - type: "prometheus"
destination: "自宅駅"
activity_minutes: 45
`

//nolint:gocyclo
func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", fullYAML))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"port", cfg.Server.Port, 9000},
		{"line.secret", cfg.Line.ChannelSecret, "secret"},
		{"ner.client_id", cfg.NER.Auth.ClientID, "id"},
		{"ner.base_url", cfg.NER.BaseURL, "https://api.ce-cotoha.com/api/dev/nlp/"},
		{"transit.max_attempts", cfg.Transit.MaxAttempts, 3},
		{"transit.windows", len(cfg.Transit.Windows), 1},
		{"trigger.type", cfg.Trigger.Type, "mqtt"},
		{"trigger.topic", cfg.Trigger.Conf["topic"], "home/{user}/lamp"},
		{"scheduler.retry_once", cfg.Scheduler.RetryOnce, true},
		{"scheduler.fire_timeout", cfg.Scheduler.FireTimeoutSeconds, 10},
		{"store.driver", cfg.Store.Driver, "memory"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "prometheus", true},
		{"destination", cfg.Destination, "自宅駅"},
		{"activity", cfg.Activity(), 45 * time.Minute},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "env-token")
	t.Setenv("LINE_CHANNEL_SECRET", "env-secret")
	t.Setenv("TRIGGER_URL", "http://lamp.local/toggle")
	t.Setenv("CLIENT_ID", "cid")
	t.Setenv("CLIENT_SECRET", "csecret")
	t.Setenv("end_station", "自宅")
	t.Setenv("PORT", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Line.ChannelAccessToken != "env-token" || cfg.Line.ChannelSecret != "env-secret" {
		t.Fatalf("line credentials not mapped: %+v", cfg.Line)
	}
	if cfg.Trigger.Type != "http" || cfg.Trigger.Conf["url"] != "http://lamp.local/toggle" {
		t.Fatalf("trigger not mapped: %+v", cfg.Trigger)
	}
	if cfg.NER.Auth.ClientID != "cid" || cfg.NER.Auth.ClientSecret != "csecret" {
		t.Fatalf("ner credentials not mapped: %+v", cfg.NER.Auth)
	}
	if cfg.Destination != "自宅" {
		t.Fatalf("destination %q", cfg.Destination)
	}
	if cfg.Server.Port != 5000 {
		t.Fatalf("port %d", cfg.Server.Port)
	}
	if cfg.Activity() != 30*time.Minute {
		t.Fatalf("activity %v", cfg.Activity())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("HC_SERVER__PORT", "7000")
	t.Setenv("HC_LINE__CHANNEL_SECRET", "override")
	cfg, err := Load(writeConfig(t, "config.yaml", fullYAML))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Fatalf("port %d", cfg.Server.Port)
	}
	if cfg.Line.ChannelSecret != "override" {
		t.Fatalf("secret %q", cfg.Line.ChannelSecret)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"store":{"driver":"memory"},"destination":"自宅"}`)
	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Destination != "自宅" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejectsMissingSections(t *testing.T) {
	path := writeConfig(t, "config.yaml", "server:\n  port: 8080\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	if _, err := Read(writeConfig(t, "config.toml", "")); err == nil {
		t.Fatal("expected format error")
	}
}
