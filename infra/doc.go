// Package infra holds the adapters around the scheduler core: grid and
// rule file readers, run history stores, metrics sinks, the MQTT notifier
// and error monitoring. They depend on core types, never the reverse.
package infra
