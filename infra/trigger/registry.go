// Package trigger switches the lights through an HTTP endpoint or an MQTT
// broker.
package trigger

import (
	"fmt"
	"strings"

	"github.com/kilianp07/homecoming/core/factory"
	"github.com/kilianp07/homecoming/core/scheduler"
	"github.com/kilianp07/homecoming/infra/logger"
	"github.com/kilianp07/homecoming/infra/mqtt"
)

// ModuleConfig selects a trigger implementation by type.
type ModuleConfig = factory.ModuleConfig

var registry = factory.NewRegistry[scheduler.Trigger]()

func init() {
	_ = Register("http", func(conf map[string]any) (scheduler.Trigger, error) {
		var c HTTPConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewHTTPTrigger(c, logger.New("trigger_http"))
	})

	_ = Register("mqtt", func(conf map[string]any) (scheduler.Trigger, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		c.SetDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		cli, err := mqtt.NewPahoClient(c.Config, logger.New("trigger_mqtt"))
		if err != nil {
			return nil, err
		}
		return newMQTTTrigger(c.Topic, cli), nil
	})
}

// Register adds a trigger factory identified by name.
func Register(name string, f factory.Factory[scheduler.Trigger]) error {
	return registry.Register(name, f)
}

// New creates the trigger described by cfg. An empty type means "http".
func New(cfg ModuleConfig) (scheduler.Trigger, error) {
	if cfg.Type == "" {
		cfg.Type = "http"
	}
	return registry.Create(cfg)
}

// Types lists the registered trigger types.
func Types() []string { return registry.Names() }

// Validate decodes cfg and checks it without connecting anywhere.
func Validate(cfg ModuleConfig) error {
	switch strings.ToLower(cfg.Type) {
	case "", "http":
		var c HTTPConfig
		if err := factory.Decode(cfg.Conf, &c); err != nil {
			return err
		}
		return c.Validate()
	case "mqtt":
		var c MQTTConfig
		if err := factory.Decode(cfg.Conf, &c); err != nil {
			return err
		}
		c.SetDefaults()
		return c.Validate()
	}
	if registry.Has(cfg.Type) {
		return nil
	}
	return fmt.Errorf("unknown trigger type %q (known: %v)", cfg.Type, Types())
}
