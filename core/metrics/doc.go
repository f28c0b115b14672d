// Package metrics defines the sinks that record solve runs. Sinks like
// PromSink and InfluxSink live in infra/metrics and register themselves by
// name; NewMetricsSink builds one from configuration and wraps several in
// a MultiSink. Optional recorder interfaces let a sink opt into step and
// relaxation events.
package metrics
