package relax

import (
	"fmt"
	"sort"

	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/rules"
	"github.com/kilianp07/oncall/core/solver"
)

// Unit is one relaxation candidate: the constraints disabled together.
type Unit struct {
	Name        string
	Rule        string
	Priority    int
	Constraints []rules.Constraint
}

// Problem is the input of a controller run. Units are ordered from most to
// least important.
type Problem struct {
	Pinned    []rules.Constraint
	Units     []Unit
	Objective []solver.Var
}

// NewProblem orders the compiled rules and splits them into units.
// Constraints contradicted by fixed cells are pinned when the policy is
// fatal, so that only the fixed input can be blamed for infeasibility.
func NewProblem(baseline []rules.Constraint, compiled []rules.Compiled, cfg Config) (*Problem, error) {
	ordered, err := Order(compiled, cfg.Order)
	if err != nil {
		return nil, err
	}
	p := &Problem{Pinned: append([]rules.Constraint(nil), baseline...)}
	names := make(map[string]bool)
	for _, rc := range ordered {
		var free []rules.Constraint
		for _, c := range rc.Constraints {
			if cfg.FixedConflicts != FixedConflictsRelax && c.Expr.Contradiction() {
				p.Pinned = append(p.Pinned, c)
				continue
			}
			free = append(free, c)
		}
		if len(free) == 0 {
			continue
		}
		prio := rc.Spec.EffectivePriority()
		if cfg.Granularity == GranularityConstraint {
			for _, c := range free {
				name := uniqueName(names, rc.Spec.ID, c.Name)
				p.Units = append(p.Units, Unit{Name: name, Rule: rc.Spec.ID, Priority: prio, Constraints: []rules.Constraint{c}})
			}
			continue
		}
		names[rc.Spec.ID] = true
		p.Units = append(p.Units, Unit{Name: rc.Spec.ID, Rule: rc.Spec.ID, Priority: prio, Constraints: free})
	}
	return p, nil
}

// uniqueName keeps unit names distinct so checkpoints can refer to them.
// A clash is qualified with the rule id, then numbered.
func uniqueName(seen map[string]bool, rule, name string) string {
	if seen[name] {
		name = rule + ": " + name
	}
	for base, n := name, 2; seen[name]; n++ {
		name = fmt.Sprintf("%s #%d", base, n)
	}
	seen[name] = true
	return name
}

// Order sorts rules from most to least important. Ids listed in explicit
// come first in that order; the rest follow by ascending priority, then
// declaration order. A larger priority number marks a more relaxable rule,
// so it lands at the tail and is disabled first.
func Order(compiled []rules.Compiled, explicit []string) ([]rules.Compiled, error) {
	rank := make(map[string]int, len(explicit))
	for i, id := range explicit {
		rank[id] = i
	}
	known := make(map[string]bool, len(compiled))
	for _, rc := range compiled {
		known[rc.Spec.ID] = true
	}
	for _, id := range explicit {
		if !known[id] {
			return nil, &model.InvalidRuleError{Rule: id, Reason: "listed in relaxation order but not configured"}
		}
	}
	out := append([]rules.Compiled(nil), compiled...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i].Spec.ID]
		rj, jok := rank[out[j].Spec.ID]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		pi, pj := out[i].Spec.EffectivePriority(), out[j].Spec.EffectivePriority()
		if pi != pj {
			return pi < pj
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (p *Problem) constraints() []rules.Constraint {
	out := append([]rules.Constraint(nil), p.Pinned...)
	for _, u := range p.Units {
		out = append(out, u.Constraints...)
	}
	return out
}

// Size returns the number of constraints in the problem.
func (p *Problem) Size() int {
	n := len(p.Pinned)
	for _, u := range p.Units {
		n += len(u.Constraints)
	}
	return n
}

func (p *Problem) unitNames(idx []int) []string {
	out := make([]string, len(idx))
	for i, u := range idx {
		out[i] = p.Units[u].Name
	}
	return out
}

func (p *Problem) pinnedNames(failed []solver.Var) []string {
	hit := make(map[solver.Var]bool, len(failed))
	for _, v := range failed {
		hit[v] = true
	}
	var out []string
	for _, c := range p.Pinned {
		if hit[c.Flag] {
			out = append(out, c.Name)
		}
	}
	return out
}

func (u Unit) String() string {
	return fmt.Sprintf("%s (%d constraints)", u.Name, len(u.Constraints))
}
