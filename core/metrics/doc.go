// Package metrics defines the observability events of the service and the
// sink interfaces recording them. Sinks like PromSink and InfluxSink live in
// infra/metrics and register themselves by name; NewMetricsSink builds a
// MultiSink when several are configured.
package metrics
