package solver

import (
	"context"
	"time"
)

// Var identifies a boolean variable declared on a Backend. The zero value
// is not a valid variable.
type Var int32

// Literal fixes a variable to a value for a single solve call.
type Literal struct {
	Var   Var
	Value bool
}

// Assume returns the literal fixing v to on.
func Assume(v Var, on bool) Literal { return Literal{Var: v, Value: on} }

// Status is the outcome of a solve call.
type Status uint8

const (
	Feasible Status = iota + 1
	Infeasible
	Timeout
)

func (s Status) String() string {
	switch s {
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Assignment holds the value of every declared variable, indexed by Var.
type Assignment []bool

// Value returns the value of v, false for unknown variables.
func (a Assignment) Value(v Var) bool {
	if v <= 0 || int(v) >= len(a) {
		return false
	}
	return a[v]
}

// Count returns how many of vars are true.
func (a Assignment) Count(vars []Var) int {
	n := 0
	for _, v := range vars {
		if a.Value(v) {
			n++
		}
	}
	return n
}

// Result reports a solve call.
type Result struct {
	Status     Status
	Assignment Assignment
	// Failed lists the assumed variables responsible for an infeasible
	// result, when the backend can tell.
	Failed []Var
	// Objective is the value reached by Maximize.
	Objective int
	Elapsed   time.Duration
	// Err is set when the backend could not process the request at all.
	Err error
}

// Allocator declares fresh boolean variables.
type Allocator interface {
	NewVar() Var
}

// Backend is a boolean solver supporting one-directional reification and
// solving under assumptions. A Backend is scoped to one scheduling request.
type Backend interface {
	Allocator
	// Reify declares flag => e. Nothing is implied when flag is false.
	Reify(flag Var, e Expr) error
	// Solve searches for an assignment satisfying every reified
	// expression whose flag is assumed or forced true.
	Solve(ctx context.Context, assumptions []Literal) Result
	// Maximize behaves like Solve and maximises the number of true
	// objective variables, starting from a count known to be reachable.
	Maximize(ctx context.Context, assumptions []Literal, objective []Var, floor int) Result
	Close() error
}
