package solver

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Op is the tag of an expression.
type Op uint8

const (
	// OpBound holds Min <= sum(Vars) + Offset <= Max.
	OpBound Op = iota + 1
	// OpSameCount holds sum(Vars) + Offset == sum(Other) + OtherOffset.
	OpSameCount
)

// Unbounded is used as Max when a bound has no upper limit.
const Unbounded = math.MaxInt32

// Expr is a linear counting expression over boolean variables. Constants
// from fixed cells are folded into the offsets. When Guard is non-empty the
// expression only applies if every guard variable is true.
type Expr struct {
	Op          Op
	Vars        []Var
	Offset      int
	Min         int
	Max         int
	Other       []Var
	OtherOffset int
	Guard       []Var
}

// Between bounds sum(vars)+offset to [min, max].
func Between(vars []Var, offset, min, max int) Expr {
	return Expr{Op: OpBound, Vars: vars, Offset: offset, Min: min, Max: max}
}

// AtMost bounds sum(vars)+offset from above.
func AtMost(vars []Var, offset, max int) Expr { return Between(vars, offset, 0, max) }

// AtLeast bounds sum(vars)+offset from below.
func AtLeast(vars []Var, offset, min int) Expr { return Between(vars, offset, min, Unbounded) }

// Exactly requires sum(vars)+offset == n.
func Exactly(vars []Var, offset, n int) Expr { return Between(vars, offset, n, n) }

// SameCount requires both sides to count the same number of true variables.
func SameCount(a []Var, offsetA int, b []Var, offsetB int) Expr {
	return Expr{Op: OpSameCount, Vars: a, Offset: offsetA, Other: b, OtherOffset: offsetB}
}

// When returns a copy of e that only applies when every guard is true.
func (e Expr) When(guard ...Var) Expr {
	e.Guard = append(append([]Var(nil), e.Guard...), guard...)
	return e
}

// Trivial reports whether the body holds for every assignment.
func (e Expr) Trivial() bool {
	switch e.Op {
	case OpBound:
		return e.Min-e.Offset <= 0 && e.Max-e.Offset >= len(e.Vars)
	case OpSameCount:
		return len(e.Vars) == 0 && len(e.Other) == 0 && e.Offset == e.OtherOffset
	}
	return false
}

// Contradiction reports whether the expression fails for every assignment.
// Guarded expressions never contradict since the guard may be false.
func (e Expr) Contradiction() bool {
	if len(e.Guard) > 0 {
		return false
	}
	switch e.Op {
	case OpBound:
		return e.Min > e.Max || e.Min-e.Offset > len(e.Vars) || e.Max-e.Offset < 0
	case OpSameCount:
		return e.Offset+len(e.Vars) < e.OtherOffset || e.OtherOffset+len(e.Other) < e.Offset
	}
	return true
}

// Eval evaluates the expression under a.
func (e Expr) Eval(a Assignment) bool {
	for _, g := range e.Guard {
		if !a.Value(g) {
			return true
		}
	}
	switch e.Op {
	case OpBound:
		n := a.Count(e.Vars) + e.Offset
		return n >= e.Min && n <= e.Max
	case OpSameCount:
		return a.Count(e.Vars)+e.Offset == a.Count(e.Other)+e.OtherOffset
	}
	return false
}

// Validate checks the expression against the highest declared variable.
func (e Expr) Validate(maxVar Var) error {
	if e.Op != OpBound && e.Op != OpSameCount {
		return fmt.Errorf("unknown expression op %d", e.Op)
	}
	for _, group := range [][]Var{e.Vars, e.Other, e.Guard} {
		for _, v := range group {
			if v <= 0 || v > maxVar {
				return fmt.Errorf("undeclared variable %d", v)
			}
		}
	}
	return nil
}

// Shape renders the expression canonically. Two expressions with equal
// shapes constrain the same variables in the same way.
func (e Expr) Shape() string {
	var b strings.Builder
	switch e.Op {
	case OpBound:
		b.WriteString(strconv.Itoa(e.Min))
		b.WriteString("<=")
		writeSum(&b, e.Vars, e.Offset)
		b.WriteString("<=")
		if e.Max == Unbounded {
			b.WriteString("inf")
		} else {
			b.WriteString(strconv.Itoa(e.Max))
		}
	case OpSameCount:
		writeSum(&b, e.Vars, e.Offset)
		b.WriteString("==")
		writeSum(&b, e.Other, e.OtherOffset)
	default:
		b.WriteString("?")
	}
	if len(e.Guard) > 0 {
		b.WriteString(" if ")
		b.WriteString(joinVars(e.Guard, "&"))
	}
	return b.String()
}

func writeSum(b *strings.Builder, vars []Var, offset int) {
	b.WriteString("sum(")
	b.WriteString(joinVars(vars, ","))
	b.WriteString(")")
	if offset != 0 {
		fmt.Fprintf(b, "%+d", offset)
	}
}

func joinVars(vars []Var, sep string) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = "x" + strconv.Itoa(int(v))
	}
	return strings.Join(parts, sep)
}
