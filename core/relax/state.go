package relax

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/oncall/core/solver"
)

// Phase of the relaxation search.
type Phase string

const (
	PhaseAllEnabled Phase = "ALL_ENABLED"
	PhaseDisabling  Phase = "DISABLING"
	PhaseReenabling Phase = "REENABLING"
	PhaseDone       Phase = "DONE"
)

// Checkpoint is the persisted position of a run: enough to resume the
// search in another process. Units are named, so a checkpoint taken
// against one rule file cannot silently disable other rules.
type Checkpoint struct {
	Phase Phase `json:"phase"`
	Index int   `json:"index"`
	// Disabled names the units currently disabled.
	Disabled []string `json:"disabled,omitempty"`
	// Frontier names the units disabled when feasibility was first
	// reached, most important first.
	Frontier []string `json:"frontier,omitempty"`
}

// State is the relaxation state: which units are disabled. Only the
// controller mutates it.
type State struct {
	phase    Phase
	index    int
	names    []string
	disabled []bool
	frontier []int
}

func newState(p *Problem) *State {
	names := make([]string, len(p.Units))
	for i, u := range p.Units {
		names[i] = u.Name
	}
	return &State{phase: PhaseAllEnabled, names: names, disabled: make([]bool, len(p.Units))}
}

func restore(p *Problem, cp Checkpoint) (*State, error) {
	st := newState(p)
	if cp.Phase == "" {
		return st, nil
	}
	switch cp.Phase {
	case PhaseAllEnabled, PhaseDisabling, PhaseReenabling, PhaseDone:
	default:
		return nil, fmt.Errorf("relax: unknown phase %q", cp.Phase)
	}
	if cp.Index < 0 {
		return nil, fmt.Errorf("relax: negative checkpoint index")
	}
	byName := make(map[string]int, len(st.names))
	for i, n := range st.names {
		byName[n] = i
	}
	lookup := func(names []string) ([]int, error) {
		out := make([]int, 0, len(names))
		for _, n := range names {
			u, ok := byName[n]
			if !ok {
				return nil, fmt.Errorf("relax: checkpoint unit %q is not part of the rule set", n)
			}
			out = append(out, u)
		}
		return out, nil
	}
	disabled, err := lookup(cp.Disabled)
	if err != nil {
		return nil, err
	}
	frontier, err := lookup(cp.Frontier)
	if err != nil {
		return nil, err
	}
	switch cp.Phase {
	case PhaseDisabling:
		if cp.Index > len(st.names) {
			return nil, fmt.Errorf("relax: checkpoint index %d past %d units", cp.Index, len(st.names))
		}
	case PhaseReenabling:
		if cp.Index > len(frontier) {
			return nil, fmt.Errorf("relax: checkpoint index %d past a frontier of %d", cp.Index, len(frontier))
		}
	}
	st.phase = cp.Phase
	st.index = cp.Index
	for _, u := range disabled {
		st.disabled[u] = true
	}
	st.frontier = frontier
	return st, nil
}

// Checkpoint snapshots the state.
func (s *State) Checkpoint() Checkpoint {
	return Checkpoint{
		Phase:    s.phase,
		Index:    s.index,
		Disabled: s.named(s.disabledUnits()),
		Frontier: s.named(s.frontier),
	}
}

func (s *State) named(idx []int) []string {
	if len(idx) == 0 {
		return nil
	}
	out := make([]string, len(idx))
	for i, u := range idx {
		out[i] = s.names[u]
	}
	return out
}

// disabledUnits lists disabled units, most important first.
func (s *State) disabledUnits() []int {
	var out []int
	for u, off := range s.disabled {
		if off {
			out = append(out, u)
		}
	}
	sort.Ints(out)
	return out
}

// assumptions fixes every flag: pinned flags true, unit flags according to
// the state.
func (s *State) assumptions(p *Problem) []solver.Literal {
	as := make([]solver.Literal, 0, p.Size())
	for _, c := range p.Pinned {
		as = append(as, solver.Assume(c.Flag, true))
	}
	for u, unit := range p.Units {
		for _, c := range unit.Constraints {
			as = append(as, solver.Assume(c.Flag, !s.disabled[u]))
		}
	}
	return as
}

// Step records one controller step.
type Step struct {
	Phase    Phase         `json:"phase"`
	Index    int           `json:"index"`
	Action   string        `json:"action"`
	Unit     string        `json:"unit,omitempty"`
	Status   string        `json:"status"`
	Disabled int           `json:"disabled"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Step actions.
const (
	ActionSolve    = "solve"
	ActionDisable  = "disable"
	ActionReenable = "reenable"
	ActionConfirm  = "confirm"
	ActionOptimize = "optimize"
)

// StepEvent is published on the event bus after every step.
type StepEvent struct {
	RunID      string     `json:"run_id"`
	Step       Step       `json:"step"`
	Checkpoint Checkpoint `json:"checkpoint"`
}

// Relaxation describes one unit left disabled at the end of a run.
type Relaxation struct {
	Unit        string   `json:"unit"`
	Rule        string   `json:"rule"`
	Priority    int      `json:"priority"`
	Constraints []string `json:"constraints"`
}

// Outcome is the result of a successful run.
type Outcome struct {
	Assignment solver.Assignment `json:"-"`
	Relaxed    []Relaxation      `json:"relaxed"`
	Frontier   []string          `json:"frontier"`
	Steps      []Step            `json:"steps"`
	Objective  int               `json:"objective"`
	Optimized  bool              `json:"optimized"`
	Checkpoint Checkpoint        `json:"checkpoint"`
}

// RelaxedRules lists the distinct rules with at least one disabled unit.
func (o *Outcome) RelaxedRules() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range o.Relaxed {
		if !seen[r.Rule] {
			seen[r.Rule] = true
			out = append(out, r.Rule)
		}
	}
	return out
}
