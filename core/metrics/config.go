package metrics

import "github.com/kilianp07/oncall/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr starts the /metrics endpoint when set, e.g. ":9091".
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
}
