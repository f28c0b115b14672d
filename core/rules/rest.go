package rules

import (
	"fmt"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/solver"
)

// restPeriod forbids a shift on days d+1..d+Days after a shift on day d,
// expressed as at most one shift in every window of Days+1 days.
type restPeriod struct {
	Targets    `json:",squash"`
	Days       int      `json:"days"`
	ShiftTypes []string `json:"shift_types"`
	CountFixed *bool    `json:"count_fixed"`
}

func (p *restPeriod) Compile(g *grid.Grid) ([]Draft, error) {
	k := p.Days
	if k == 0 {
		k = 1
	}
	if k < 0 {
		return nil, fmt.Errorf("days must be positive, got %d", p.Days)
	}
	types, err := shiftTypes(g, p.ShiftTypes, true)
	if err != nil {
		return nil, err
	}
	targets, err := p.residents(g, false)
	if err != nil {
		return nil, err
	}
	countFixed := boolOr(p.CountFixed, true)
	n := len(g.Days())
	// windows that run past the month end are covered by earlier ones
	last := n - 1 - k
	if last < 0 {
		last = 0
	}
	var out []Draft
	for _, r := range targets {
		res := g.Residents()[r]
		for start := 0; start <= last; start++ {
			end := min(start+k, n-1)
			var s sum
			for d := start; d <= end; d++ {
				s.add(g, r, d, types, countFixed)
			}
			out = append(out, Draft{
				Name: fmt.Sprintf("rest %s d%d-%d", res.Name, g.Days()[start].Number, g.Days()[end].Number),
				Expr: solver.AtMost(s.vars, s.offset, 1),
			})
		}
	}
	return out, nil
}
