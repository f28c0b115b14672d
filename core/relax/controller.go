// Package relax drives the solve, disable and re-enable search that finds
// a feasible schedule while keeping as many rules enabled as possible.
//
// The search runs through four phases. ALL_ENABLED solves with every rule
// on. DISABLING switches units off from least to most important until a
// solve succeeds. REENABLING then tries each disabled unit again, most
// important first, keeping it only when the model stays feasible. DONE
// freezes the state and optionally optimises the number of filled cells.
package relax

import (
	"context"
	"fmt"

	"github.com/kilianp07/oncall/core/logger"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/solver"
	"github.com/kilianp07/oncall/internal/eventbus"
)

// Controller runs the relaxation search against one backend.
type Controller struct {
	backend solver.Backend
	cfg     Config
	log     logger.Logger
	bus     *eventbus.TypedBus[StepEvent]
	runID   string
	// last is the checkpoint of the latest recorded step.
	last *Checkpoint
}

// NewController returns a controller. bus may be nil.
func NewController(b solver.Backend, cfg Config, log logger.Logger, bus *eventbus.TypedBus[StepEvent]) *Controller {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Controller{backend: b, cfg: cfg, log: log, bus: bus}
}

// SetRunID tags published events.
func (c *Controller) SetRunID(id string) { c.runID = id }

// LastCheckpoint returns the checkpoint of the latest step of the last run,
// including runs that ended in an error. Resuming from it replays that
// step.
func (c *Controller) LastCheckpoint() (Checkpoint, bool) {
	if c.last == nil {
		return Checkpoint{}, false
	}
	return *c.last, true
}

// Run searches from ALL_ENABLED.
func (c *Controller) Run(ctx context.Context, p *Problem) (*Outcome, error) {
	return c.Resume(ctx, p, Checkpoint{})
}

// Resume continues a search from cp. The backend must be fresh: every
// constraint of p is declared on it first.
func (c *Controller) Resume(ctx context.Context, p *Problem, cp Checkpoint) (*Outcome, error) {
	c.last = nil
	if err := c.load(p); err != nil {
		return nil, err
	}
	st, err := restore(p, cp)
	if err != nil {
		return nil, err
	}
	r := &run{c: c, p: p, st: st, out: &Outcome{}}
	return r.loop(ctx)
}

func (c *Controller) load(p *Problem) error {
	for _, con := range p.constraints() {
		if err := c.backend.Reify(con.Flag, con.Expr); err != nil {
			return fmt.Errorf("declare %s: %w", con.Name, err)
		}
	}
	c.log.Debugw("relaxation problem loaded", map[string]any{
		"pinned":      len(p.Pinned),
		"units":       len(p.Units),
		"constraints": p.Size(),
	})
	return nil
}

type run struct {
	c    *Controller
	p    *Problem
	st   *State
	out  *Outcome
	last *solver.Result
	// lastFailure is the latest infeasible or timed out result.
	lastFailure *solver.Result
}

func (r *run) loop(ctx context.Context) (*Outcome, error) {
	for r.st.phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch r.st.phase {
		case PhaseAllEnabled:
			err = r.allEnabled(ctx)
		case PhaseDisabling:
			err = r.disabling(ctx)
		case PhaseReenabling:
			err = r.reenabling(ctx)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := r.done(ctx); err != nil {
		return nil, err
	}
	return r.out, nil
}

func (r *run) allEnabled(ctx context.Context) error {
	res, err := r.solve(ctx, ActionSolve, -1)
	if err != nil {
		return err
	}
	if res.Status == solver.Feasible {
		r.last = &res
		r.st.phase = PhaseDone
		return nil
	}
	r.c.log.Infof("rule set infeasible (%s), relaxing %d units", res.Status, len(r.p.Units))
	r.lastFailure = &res
	r.st.phase = PhaseDisabling
	r.st.index = 0
	return nil
}

// disabling walks units from least to most important.
func (r *run) disabling(ctx context.Context) error {
	n := len(r.p.Units)
	if r.st.index >= n {
		return r.fail()
	}
	u := n - 1 - r.st.index
	r.st.disabled[u] = true
	res, err := r.solve(ctx, ActionDisable, u)
	if err != nil {
		return err
	}
	if res.Status == solver.Feasible {
		r.last = &res
		r.st.frontier = r.st.disabledUnits()
		r.out.Frontier = r.p.unitNames(r.st.frontier)
		r.c.log.Infof("feasible after disabling %d units", len(r.st.frontier))
		r.st.phase = PhaseReenabling
		r.st.index = 0
		return nil
	}
	r.st.index++
	r.lastFailure = &res
	if r.st.index >= n {
		return r.fail()
	}
	return nil
}

// reenabling retries each frontier unit once, most important first.
func (r *run) reenabling(ctx context.Context) error {
	if r.st.index >= len(r.st.frontier) {
		r.st.phase = PhaseDone
		return nil
	}
	u := r.st.frontier[r.st.index]
	r.st.disabled[u] = false
	res, err := r.solve(ctx, ActionReenable, u)
	if err != nil {
		return err
	}
	if res.Status == solver.Feasible {
		r.last = &res
	} else {
		// timeouts count as failures: never re-enable on an unconfirmed outcome
		r.st.disabled[u] = true
	}
	r.st.index++
	return nil
}

func (r *run) done(ctx context.Context) error {
	if r.last == nil {
		// resumed past the last feasible solve
		res, err := r.solve(ctx, ActionConfirm, -1)
		if err != nil {
			return err
		}
		if res.Status != solver.Feasible {
			r.lastFailure = &res
			return r.fail()
		}
		r.last = &res
	}
	r.optimize(ctx)
	r.out.Assignment = r.last.Assignment
	r.out.Objective = r.last.Assignment.Count(r.p.Objective)
	for _, u := range r.st.disabledUnits() {
		unit := r.p.Units[u]
		names := make([]string, len(unit.Constraints))
		for i, c := range unit.Constraints {
			names[i] = c.Name
		}
		r.out.Relaxed = append(r.out.Relaxed, Relaxation{Unit: unit.Name, Rule: unit.Rule, Priority: unit.Priority, Constraints: names})
	}
	r.out.Checkpoint = r.st.Checkpoint()
	if len(r.out.Relaxed) > 0 {
		r.c.log.Warnf("schedule found with %d relaxed units: %v", len(r.out.Relaxed), r.out.RelaxedRules())
	} else {
		r.c.log.Infof("schedule found with every rule enforced")
	}
	return nil
}

// optimize maximises filled cells under the frozen state. Failure keeps the
// last feasible assignment.
func (r *run) optimize(ctx context.Context) {
	if r.c.cfg.Objective != ObjectiveCoverage || len(r.p.Objective) == 0 {
		return
	}
	floor := r.last.Assignment.Count(r.p.Objective)
	sctx, cancel := context.WithTimeout(ctx, r.c.cfg.FinalTimeout())
	defer cancel()
	res := r.c.backend.Maximize(sctx, r.st.assumptions(r.p), r.p.Objective, floor)
	r.record(ActionOptimize, -1, res)
	if res.Err != nil || res.Status != solver.Feasible {
		r.c.log.Warnf("objective not improved (%s), keeping last feasible schedule", res.Status)
		return
	}
	r.out.Optimized = true
	r.last = &res
}

// solve runs one step under the per-step deadline. A timeout is returned as
// a result; only backend failures are errors.
func (r *run) solve(ctx context.Context, action string, unit int) (solver.Result, error) {
	sctx, cancel := context.WithTimeout(ctx, r.c.cfg.StepTimeout())
	defer cancel()
	res := r.c.backend.Solve(sctx, r.st.assumptions(r.p))
	if res.Err != nil {
		return res, fmt.Errorf("solve %s: %w", action, res.Err)
	}
	if res.Status == solver.Timeout && ctx.Err() != nil {
		return res, ctx.Err()
	}
	r.record(action, unit, res)
	return res, nil
}

func (r *run) record(action string, unit int, res solver.Result) {
	step := Step{
		Phase:    r.st.phase,
		Index:    r.st.index,
		Action:   action,
		Status:   res.Status.String(),
		Disabled: len(r.st.disabledUnits()),
		Elapsed:  res.Elapsed,
	}
	if unit >= 0 {
		step.Unit = r.p.Units[unit].Name
	}
	r.out.Steps = append(r.out.Steps, step)
	r.c.log.Debugw("relaxation step", map[string]any{
		"phase": step.Phase, "action": action, "unit": step.Unit, "status": step.Status, "disabled": step.Disabled,
	})
	cp := r.st.Checkpoint()
	r.c.last = &cp
	if r.c.bus != nil {
		r.c.bus.Publish(StepEvent{RunID: r.c.runID, Step: step, Checkpoint: cp})
	}
}

// fail reports a search that found no feasible state.
func (r *run) fail() error {
	res := r.lastFailure
	if res != nil && res.Status == solver.Timeout {
		return &model.SolverTimeoutError{Phase: string(r.st.phase), Timeout: r.c.cfg.StepTimeout()}
	}
	var failed []string
	if res != nil {
		failed = r.p.pinnedNames(res.Failed)
	}
	return &model.ModelUnsatisfiableError{Failed: failed}
}
