// Package rules compiles declarative rule specifications into reified
// counting constraints over a grid's decision variables.
//
// Each rule kind is registered under its tag in a factory registry. The
// factory decodes the rule parameters and returns a Compiler; Compile then
// allocates one fresh enable flag per emitted constraint.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/oncall/core/factory"
	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/solver"
)

// ExclusivityRule names the baseline constraint class.
const ExclusivityRule = "exclusivity"

// Constraint is one expression gated by its enable flag.
type Constraint struct {
	Rule     string
	Name     string
	Expr     solver.Expr
	Flag     solver.Var
	Baseline bool
}

// Draft is a constraint before flag allocation.
type Draft struct {
	Name string
	Expr solver.Expr
}

// Compiler emits the drafts of one configured rule. Implementations must
// only read the grid.
type Compiler interface {
	Compile(g *grid.Grid) ([]Draft, error)
}

// Compiled groups the constraints of one rule with its ordering data.
type Compiled struct {
	Spec        model.RuleSpec
	Order       int
	Constraints []Constraint
}

var registry = factory.NewRegistry[Compiler]()

// Register adds a rule kind.
func Register(kind string, f factory.Factory[Compiler]) error {
	return registry.Register(kind, f)
}

// Kinds lists the registered rule kinds.
func Kinds() []string { return registry.Names() }

// Compile translates spec into constraints over g. Expressions that hold
// for every assignment are dropped; every other draft receives a fresh flag.
func Compile(spec model.RuleSpec, g *grid.Grid, alloc solver.Allocator) ([]Constraint, error) {
	id := ruleID(spec)
	invalid := func(reason string, err error) error {
		return &model.InvalidRuleError{Rule: id, Kind: spec.Kind, Reason: reason, Err: err}
	}
	switch {
	case spec.Kind == "":
		return nil, invalid("missing kind", nil)
	case spec.Kind == ExclusivityRule:
		return nil, invalid("exclusivity is always enforced and cannot be configured", nil)
	case !registry.Has(spec.Kind):
		return nil, invalid("unknown kind", nil)
	}
	comp, err := registry.Create(factory.ModuleConfig{Type: spec.Kind, Conf: spec.Params})
	if err != nil {
		return nil, invalid("bad parameters", err)
	}
	drafts, err := comp.Compile(g)
	if err != nil {
		return nil, invalid("", err)
	}
	out := make([]Constraint, 0, len(drafts))
	for _, d := range drafts {
		if d.Expr.Trivial() {
			continue
		}
		out = append(out, Constraint{Rule: id, Name: d.Name, Expr: d.Expr, Flag: alloc.NewVar()})
	}
	return out, nil
}

// CompileAll compiles every active rule in declaration order. It fails on
// the first invalid rule, before anything is solved.
func CompileAll(specs []model.RuleSpec, g *grid.Grid, alloc solver.Allocator) ([]Compiled, error) {
	seen := make(map[string]bool, len(specs))
	var out []Compiled
	for i, spec := range specs {
		id := ruleID(spec)
		if id == "" {
			return nil, &model.InvalidRuleError{Rule: fmt.Sprintf("#%d", i+1), Reason: "missing id and kind"}
		}
		if seen[id] {
			return nil, &model.InvalidRuleError{Rule: id, Kind: spec.Kind, Reason: "duplicate rule id"}
		}
		seen[id] = true
		if !spec.Active() {
			continue
		}
		cs, err := Compile(spec, g, alloc)
		if err != nil {
			return nil, err
		}
		spec.ID = id
		out = append(out, Compiled{Spec: spec, Order: i, Constraints: cs})
	}
	return out, nil
}

// Baseline emits the always-enabled exclusivity constraints: at most one
// assignable shift per open cell.
func Baseline(g *grid.Grid, alloc solver.Allocator) []Constraint {
	var out []Constraint
	for r, res := range g.Residents() {
		for d, day := range g.Days() {
			vs := g.CellVars(r, d)
			if len(vs) < 2 {
				continue
			}
			out = append(out, Constraint{
				Rule:     ExclusivityRule,
				Name:     fmt.Sprintf("%s %s d%d", ExclusivityRule, res.Name, day.Number),
				Expr:     solver.AtMost(vs, 0, 1),
				Flag:     alloc.NewVar(),
				Baseline: true,
			})
		}
	}
	return out
}

func ruleID(spec model.RuleSpec) string {
	if id := strings.TrimSpace(spec.ID); id != "" {
		return id
	}
	return strings.TrimSpace(spec.Kind)
}

// IsInvalid reports whether err is an InvalidRuleError.
func IsInvalid(err error) bool {
	var ir *model.InvalidRuleError
	return errors.As(err, &ir)
}
