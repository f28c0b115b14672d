package metrics

import (
	coremetrics "github.com/kilianp07/oncall/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records solve runs in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	steps       *prometheus.CounterVec
	relaxed     *prometheus.CounterVec
	unfilled    prometheus.Gauge
	lastRelaxed prometheus.Gauge
}

// NewPromSink registers solve metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oncall_runs_total",
			Help: "Total number of solve runs by final status",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oncall_run_duration_seconds",
			Help:    "Wall time of a solve run",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"status"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oncall_relaxation_steps_total",
			Help: "Relaxation controller steps by phase and solver status",
		}, []string{"phase", "status"}),
		relaxed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oncall_relaxed_rules_total",
			Help: "Rules left disabled by a run",
		}, []string{"rule"}),
		unfilled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oncall_last_run_unfilled_cells",
			Help: "Open cells left empty by the last run",
		}),
		lastRelaxed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oncall_last_run_relaxed_units",
			Help: "Relaxation units disabled by the last run",
		}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.steps, err = register(reg, s.steps); err != nil {
		return nil, err
	}
	if s.relaxed, err = register(reg, s.relaxed); err != nil {
		return nil, err
	}
	if s.unfilled, err = register(reg, s.unfilled); err != nil {
		return nil, err
	}
	if s.lastRelaxed, err = register(reg, s.lastRelaxed); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c was registered
// by an earlier sink.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun counts the run and observes its duration.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Status).Inc()
	s.duration.WithLabelValues(ev.Status).Observe(ev.Elapsed.Seconds())
	s.unfilled.Set(float64(ev.Unfilled))
	s.lastRelaxed.Set(float64(ev.Relaxed))
	return nil
}

// RecordStep counts a controller step.
func (s *PromSink) RecordStep(ev coremetrics.StepEvent) error {
	s.steps.WithLabelValues(ev.Phase, ev.Status).Inc()
	return nil
}

// RecordRelaxation counts a relaxed rule.
func (s *PromSink) RecordRelaxation(ev coremetrics.RelaxationEvent) error {
	s.relaxed.WithLabelValues(ev.Rule).Inc()
	return nil
}
