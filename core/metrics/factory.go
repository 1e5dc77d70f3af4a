package metrics

import (
	"fmt"

	"github.com/kilianp07/homecoming/core/factory"
)

// ModuleConfig is one entry of metrics.sinks.
type ModuleConfig = factory.ModuleConfig

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a sink factory under name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewMetricsSink builds every configured sink. No sink yields a NopSink and
// several sinks are fanned out through a MultiSink.
func NewMetricsSink(cfgs []ModuleConfig) (MetricsSink, error) {
	sinks := make([]MetricsSink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, fmt.Errorf("sink %s: %w", c.Type, err)
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}

// ValidateSinks checks that every configured sink type is known.
func ValidateSinks(cfgs []ModuleConfig) error {
	for _, c := range cfgs {
		if !sinkRegistry.Has(c.Type) {
			return fmt.Errorf("unknown metrics sink %q (known: %v)", c.Type, sinkRegistry.Names())
		}
	}
	return nil
}

// Has reports whether a sink of the given type appears in cfgs.
func Has(cfgs []ModuleConfig, typ string) bool {
	for _, c := range cfgs {
		if c.Type == typ {
			return true
		}
	}
	return false
}
