package relax

import (
	"context"

	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/solver"
)

// Diagnosis is the outcome of checking a rule set with every unit enabled.
type Diagnosis struct {
	Status solver.Status `json:"status"`
	// Core names a minimal set of units that cannot hold together: dropping
	// any one of them makes the rest feasible.
	Core []string `json:"core,omitempty"`
	// CoreRules lists the distinct rules behind Core.
	CoreRules []string `json:"core_rules,omitempty"`
	// Pinned names always enforced constraints among the failed assumptions.
	Pinned []string `json:"pinned,omitempty"`
	Solves int      `json:"solves"`
}

// Feasible reports whether the full rule set can be satisfied.
func (d *Diagnosis) Feasible() bool { return d.Status == solver.Feasible }

// Diagnose solves once with every unit enabled. When the model is
// infeasible, the units among the solver's failed assumptions are shrunk
// to a minimal core: each is dropped in turn and stays out when the
// remaining units are still infeasible. A timed out check keeps the unit.
func (c *Controller) Diagnose(ctx context.Context, p *Problem) (*Diagnosis, error) {
	c.last = nil
	if err := c.load(p); err != nil {
		return nil, err
	}
	d := &Diagnosis{}
	all := make([]int, len(p.Units))
	for i := range all {
		all[i] = i
	}
	res, err := c.check(ctx, p, all, d)
	if err != nil {
		return nil, err
	}
	d.Status = res.Status
	switch res.Status {
	case solver.Feasible:
		return d, nil
	case solver.Timeout:
		return nil, &model.SolverTimeoutError{Phase: string(PhaseAllEnabled), Timeout: c.cfg.StepTimeout()}
	}
	d.Pinned = p.pinnedNames(res.Failed)

	core := failedUnits(p, res.Failed)
	if len(res.Failed) == 0 {
		core = all
	}
	for _, u := range append([]int(nil), core...) {
		trial := without(core, u)
		res, err := c.check(ctx, p, trial, d)
		if err != nil {
			return nil, err
		}
		if res.Status == solver.Infeasible {
			core = trial
		}
	}
	c.log.Infof("rule set infeasible, minimal conflict of %d units after %d solves", len(core), d.Solves)

	seen := make(map[string]bool)
	for _, u := range core {
		unit := p.Units[u]
		d.Core = append(d.Core, unit.Name)
		if !seen[unit.Rule] {
			seen[unit.Rule] = true
			d.CoreRules = append(d.CoreRules, unit.Rule)
		}
	}
	return d, nil
}

// check solves with only the given units enabled.
func (c *Controller) check(ctx context.Context, p *Problem, enabled []int, d *Diagnosis) (solver.Result, error) {
	st := newState(p)
	for u := range st.disabled {
		st.disabled[u] = true
	}
	for _, u := range enabled {
		st.disabled[u] = false
	}
	sctx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout())
	defer cancel()
	d.Solves++
	res := c.backend.Solve(sctx, st.assumptions(p))
	if res.Err != nil {
		return res, res.Err
	}
	if res.Status == solver.Timeout && ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

// failedUnits maps failed assumption flags back to units, in unit order.
func failedUnits(p *Problem, failed []solver.Var) []int {
	hit := make(map[solver.Var]bool, len(failed))
	for _, v := range failed {
		hit[v] = true
	}
	var out []int
	for u, unit := range p.Units {
		for _, c := range unit.Constraints {
			if hit[c.Flag] {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

func without(list []int, x int) []int {
	out := make([]int, 0, len(list))
	for _, v := range list {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}
