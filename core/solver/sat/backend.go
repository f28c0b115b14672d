// Package sat implements the solver contract on the gini SAT solver.
// Counting expressions are encoded with sorting networks built on a
// logic circuit which is added to the solver incrementally; enable flags
// are plain variables fixed through assumptions.
package sat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/kilianp07/oncall/core/factory"
	"github.com/kilianp07/oncall/core/solver"
)

const (
	satisfiable   = 1
	unsatisfiable = -1
)

// ErrClosed is returned by calls on a closed backend.
var ErrClosed = errors.New("sat: backend closed")

func init() {
	_ = solver.RegisterBackend("gini", func(conf map[string]any) (solver.Backend, error) {
		var c struct {
			PollIntervalMS int `json:"poll_interval_ms"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		b := New()
		if c.PollIntervalMS > 0 {
			b.poll = time.Duration(c.PollIntervalMS) * time.Millisecond
		}
		return b, nil
	})
}

// Backend is a solver.Backend on gini. It is not safe for concurrent use.
type Backend struct {
	g     *gini.Gini
	c     *logic.C
	marks []int8
	lits  []z.Lit
	vars  map[z.Var]solver.Var
	poll  time.Duration

	closed bool
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		g:    gini.New(),
		c:    logic.NewCCap(1024),
		lits: []z.Lit{z.LitNull},
		vars: make(map[z.Var]solver.Var),
		poll: 5 * time.Millisecond,
	}
}

// NewVar declares an input of the circuit.
func (b *Backend) NewVar() solver.Var {
	m := b.c.Lit()
	b.lits = append(b.lits, m)
	v := solver.Var(len(b.lits) - 1)
	b.vars[m.Var()] = v
	return v
}

func (b *Backend) maxVar() solver.Var { return solver.Var(len(b.lits) - 1) }

// Reify adds the clause (not flag or e) after encoding e in the circuit.
func (b *Backend) Reify(flag solver.Var, e solver.Expr) error {
	if b.closed {
		return ErrClosed
	}
	if flag <= 0 || flag > b.maxVar() {
		return fmt.Errorf("sat: undeclared flag %d", flag)
	}
	if err := e.Validate(b.maxVar()); err != nil {
		return fmt.Errorf("sat: %w", err)
	}
	body := b.encode(e)
	b.marks, _ = b.c.CnfSince(b.g, b.marks, body)
	b.g.Add(b.lits[flag].Not())
	b.g.Add(body)
	b.g.Add(z.LitNull)
	return nil
}

func (b *Backend) encode(e solver.Expr) z.Lit {
	var body z.Lit
	switch e.Op {
	case solver.OpBound:
		body = b.bound(b.toLits(e.Vars), e.Min-e.Offset, e.Max-e.Offset)
	case solver.OpSameCount:
		body = b.sameCount(b.toLits(e.Vars), e.Offset, b.toLits(e.Other), e.OtherOffset)
	}
	if len(e.Guard) > 0 {
		body = b.c.Implies(b.c.Ands(b.toLits(e.Guard)...), body)
	}
	return body
}

func (b *Backend) toLits(vs []solver.Var) []z.Lit {
	ms := make([]z.Lit, len(vs))
	for i, v := range vs {
		ms[i] = b.lits[v]
	}
	return ms
}

// bound returns a literal true iff lo <= count(ms) <= hi.
func (b *Backend) bound(ms []z.Lit, lo, hi int) z.Lit {
	n := len(ms)
	switch {
	case lo > hi || lo > n || hi < 0:
		return b.c.F
	case lo <= 0 && hi >= n:
		return b.c.T
	case hi == 0:
		neg := make([]z.Lit, n)
		for i, m := range ms {
			neg[i] = m.Not()
		}
		return b.c.Ands(neg...)
	case lo == n:
		return b.c.Ands(ms...)
	case lo == 1 && hi >= n:
		return b.c.Ors(ms...)
	}
	cs := b.c.CardSort(ms)
	return b.c.And(cs.Geq(lo), cs.Leq(hi))
}

// sameCount compares both counts threshold by threshold.
func (b *Backend) sameCount(as []z.Lit, oa int, bs []z.Lit, ob int) z.Lit {
	ca := b.c.CardSort(as)
	cb := b.c.CardSort(bs)
	top := max(len(as)+oa, len(bs)+ob)
	eq := b.c.T
	for k := min(oa, ob) + 1; k <= top; k++ {
		diff := b.c.Xor(ca.Geq(k-oa), cb.Geq(k-ob))
		eq = b.c.And(eq, diff.Not())
	}
	return eq
}

func (b *Backend) assume(as []solver.Literal) error {
	for _, a := range as {
		if a.Var <= 0 || a.Var > b.maxVar() {
			return fmt.Errorf("sat: undeclared assumption %d", a.Var)
		}
	}
	for _, a := range as {
		m := b.lits[a.Var]
		if !a.Value {
			m = m.Not()
		}
		b.g.Assume(m)
	}
	return nil
}

// Solve runs one search under the given assumptions. The context deadline
// bounds the search; an expired context yields solver.Timeout.
func (b *Backend) Solve(ctx context.Context, as []solver.Literal) solver.Result {
	start := time.Now()
	if b.closed {
		return solver.Result{Err: ErrClosed}
	}
	if ctx.Err() != nil {
		return solver.Result{Status: solver.Timeout}
	}
	if err := b.assume(as); err != nil {
		return solver.Result{Err: err}
	}
	res := b.run(ctx)
	out := solver.Result{Elapsed: time.Since(start)}
	switch res {
	case satisfiable:
		out.Status = solver.Feasible
		out.Assignment = b.snapshot()
	case unsatisfiable:
		out.Status = solver.Infeasible
		out.Failed = b.failed()
	default:
		out.Status = solver.Timeout
	}
	return out
}

func (b *Backend) run(ctx context.Context) int {
	if ctx.Done() == nil {
		return b.g.Solve()
	}
	return waitForSolution(ctx, b.g.GoSolve(), b.poll)
}

func waitForSolution(ctx context.Context, gs inter.Solve, poll time.Duration) int {
	t := time.NewTicker(poll)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return gs.Stop()
		case <-t.C:
			if result, ok := gs.Test(); ok {
				return result
			}
		}
	}
}

func (b *Backend) snapshot() solver.Assignment {
	a := make(solver.Assignment, len(b.lits))
	top := b.g.MaxVar()
	for v := 1; v < len(b.lits); v++ {
		m := b.lits[v]
		if m.Var() > top {
			continue
		}
		a[v] = b.g.Value(m)
	}
	return a
}

func (b *Backend) failed() []solver.Var {
	whys := b.g.Why(nil)
	out := make([]solver.Var, 0, len(whys))
	for _, m := range whys {
		if v, ok := b.vars[m.Var()]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Maximize finds an assignment with as many true objective variables as
// possible. floor must be reachable under the assumptions; the search
// narrows [floor, len(objective)] by bisection and returns the best
// assignment found before the context expires.
func (b *Backend) Maximize(ctx context.Context, as []solver.Literal, objective []solver.Var, floor int) solver.Result {
	start := time.Now()
	if b.closed {
		return solver.Result{Err: ErrClosed}
	}
	for _, v := range objective {
		if v <= 0 || v > b.maxVar() {
			return solver.Result{Err: fmt.Errorf("sat: undeclared objective variable %d", v)}
		}
	}
	cs := b.c.CardSort(b.toLits(objective))
	for w := 0; w <= cs.N(); w++ {
		b.marks, _ = b.c.CnfSince(b.g, b.marks, cs.Geq(w))
	}
	floor = max(0, min(floor, cs.N()))

	try := func(k int) solver.Result {
		if ctx.Err() != nil {
			return solver.Result{Status: solver.Timeout}
		}
		if err := b.assume(as); err != nil {
			return solver.Result{Err: err}
		}
		b.g.Assume(cs.Geq(k))
		switch b.run(ctx) {
		case satisfiable:
			a := b.snapshot()
			return solver.Result{Status: solver.Feasible, Assignment: a, Objective: a.Count(objective)}
		case unsatisfiable:
			return solver.Result{Status: solver.Infeasible, Failed: b.failed()}
		}
		return solver.Result{Status: solver.Timeout}
	}

	best := try(floor)
	if best.Status != solver.Feasible {
		best.Elapsed = time.Since(start)
		return best
	}
	lo, hi := best.Objective, cs.N()
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		r := try(mid)
		if r.Err != nil {
			break
		}
		switch r.Status {
		case solver.Feasible:
			best = r
			lo = r.Objective
		case solver.Infeasible:
			hi = mid - 1
		default:
			hi = lo
		}
	}
	best.Elapsed = time.Since(start)
	return best
}

// Close releases the backend; later calls fail with ErrClosed.
func (b *Backend) Close() error {
	b.closed = true
	b.lits = b.lits[:1]
	return nil
}
