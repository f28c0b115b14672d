package relax

import (
	"fmt"
	"time"
)

// Granularity values.
const (
	GranularityRule       = "rule"
	GranularityConstraint = "constraint"
)

// Objective values.
const (
	ObjectiveNone     = "none"
	ObjectiveCoverage = "coverage"
)

// Fixed conflict policies.
const (
	FixedConflictsFatal = "fatal"
	FixedConflictsRelax = "relax"
)

// Config holds the relaxation settings.
type Config struct {
	StepTimeoutMS  int `json:"step_timeout_ms" yaml:"step_timeout_ms"`
	FinalTimeoutMS int `json:"final_timeout_ms" yaml:"final_timeout_ms"`
	// Granularity selects what is disabled at once: a whole rule or a
	// single constraint.
	Granularity string `json:"granularity" yaml:"granularity"`
	// Order lists rule ids from most to least important. Rules not listed
	// follow, by priority then declaration order.
	Order []string `json:"order" yaml:"order"`
	// Objective is optimised once in the final solve.
	Objective string `json:"objective" yaml:"objective"`
	// FixedConflicts decides what happens to constraints that the fixed
	// cells alone already violate: fatal pins them so the run fails,
	// relax leaves them to the search.
	FixedConflicts string `json:"fixed_conflicts" yaml:"fixed_conflicts"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.StepTimeoutMS <= 0 {
		c.StepTimeoutMS = 10000
	}
	if c.FinalTimeoutMS <= 0 {
		c.FinalTimeoutMS = 30000
	}
	if c.Granularity == "" {
		c.Granularity = GranularityRule
	}
	if c.Objective == "" {
		c.Objective = ObjectiveCoverage
	}
	if c.FixedConflicts == "" {
		c.FixedConflicts = FixedConflictsFatal
	}
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch c.Granularity {
	case GranularityRule, GranularityConstraint:
	default:
		return fmt.Errorf("relaxation: unknown granularity %q", c.Granularity)
	}
	switch c.Objective {
	case ObjectiveNone, ObjectiveCoverage:
	default:
		return fmt.Errorf("relaxation: unknown objective %q", c.Objective)
	}
	switch c.FixedConflicts {
	case FixedConflictsFatal, FixedConflictsRelax:
	default:
		return fmt.Errorf("relaxation: unknown fixed_conflicts %q", c.FixedConflicts)
	}
	seen := make(map[string]bool, len(c.Order))
	for _, id := range c.Order {
		if seen[id] {
			return fmt.Errorf("relaxation: rule %q listed twice in order", id)
		}
		seen[id] = true
	}
	return nil
}

func (c Config) StepTimeout() time.Duration {
	if c.StepTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.StepTimeoutMS) * time.Millisecond
}

func (c Config) FinalTimeout() time.Duration {
	if c.FinalTimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FinalTimeoutMS) * time.Millisecond
}
