package model

import (
	"fmt"
	"strings"
	"time"
)

// MalformedInputError reports a grid that cannot be loaded.
type MalformedInputError struct {
	Resident string
	Day      int
	Code     string
	Reason   string
}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	b.WriteString("malformed input")
	if e.Resident != "" {
		fmt.Fprintf(&b, ": resident %q", e.Resident)
	}
	if e.Day > 0 {
		fmt.Fprintf(&b, " day %d", e.Day)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " code %q", e.Code)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// InvalidRuleError reports a rule that cannot be compiled.
type InvalidRuleError struct {
	Rule   string
	Kind   string
	Reason string
	Err    error
}

func (e *InvalidRuleError) Error() string {
	msg := fmt.Sprintf("invalid rule %q", e.Rule)
	if e.Kind != "" && e.Kind != e.Rule {
		msg += fmt.Sprintf(" (%s)", e.Kind)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidRuleError) Unwrap() error { return e.Err }

// ModelUnsatisfiableError is returned when the fixed input contradicts
// itself even with every configurable rule disabled.
type ModelUnsatisfiableError struct {
	// Failed names the always-enabled constraints involved in the conflict.
	Failed []string
}

func (e *ModelUnsatisfiableError) Error() string {
	if len(e.Failed) == 0 {
		return "model unsatisfiable with every rule disabled"
	}
	return fmt.Sprintf("model unsatisfiable with every rule disabled: %s", strings.Join(e.Failed, ", "))
}

// SolverTimeoutError is returned when no feasible schedule could be
// confirmed before the solver deadline.
type SolverTimeoutError struct {
	Phase   string
	Timeout time.Duration
}

func (e *SolverTimeoutError) Error() string {
	return fmt.Sprintf("solver timed out after %s during %s without a feasible schedule", e.Timeout, e.Phase)
}

// InconsistentSolutionError reports a solver assignment that sets more than
// one shift for the same cell.
type InconsistentSolutionError struct {
	Resident string
	Day      int
	Shifts   []ShiftType
}

func (e *InconsistentSolutionError) Error() string {
	return fmt.Sprintf("inconsistent solution: resident %q day %d has shifts %v", e.Resident, e.Day, e.Shifts)
}
