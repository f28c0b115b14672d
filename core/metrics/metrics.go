package metrics

import "time"

// Run statuses.
const (
	StatusOK            = "ok"
	StatusRelaxed       = "relaxed"
	StatusUnsatisfiable = "unsatisfiable"
	StatusTimeout       = "timeout"
	StatusInvalid       = "invalid"
	StatusError         = "error"
)

// RunEvent summarises one solve run.
type RunEvent struct {
	RunID       string
	Status      string
	Residents   int
	Days        int
	Rules       int
	Constraints int
	Relaxed     int
	Assigned    int
	Unfilled    int
	Steps       int
	Elapsed     time.Duration
	Time        time.Time
}

// MetricsSink records solve runs.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// StepEvent is one relaxation controller step.
type StepEvent struct {
	RunID    string
	Phase    string
	Action   string
	Unit     string
	Status   string
	Disabled int
	Elapsed  time.Duration
	Time     time.Time
}

// StepRecorder is implemented by sinks able to record controller steps.
type StepRecorder interface {
	RecordStep(ev StepEvent) error
}

// RelaxationEvent reports a rule left disabled by a run.
type RelaxationEvent struct {
	RunID    string
	Rule     string
	Unit     string
	Priority int
	// Violated counts the constraints of the unit the final schedule breaks.
	Violated int
	Time     time.Time
}

// RelaxationRecorder records relaxed rules.
type RelaxationRecorder interface {
	RecordRelaxation(ev RelaxationEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error               { return nil }
func (NopSink) RecordStep(StepEvent) error             { return nil }
func (NopSink) RecordRelaxation(RelaxationEvent) error { return nil }
