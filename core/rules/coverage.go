package rules

import (
	"fmt"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/solver"
)

// coverage bounds the number of residents on the given shift types per
// selected day.
type coverage struct {
	Targets     `json:",squash"`
	DaySelector `json:",squash"`
	ShiftTypes  []string `json:"shift_types"`
	Min         int      `json:"min"`
	Max         *int     `json:"max"`
	PerType     bool     `json:"per_type"`
	CountFixed  *bool    `json:"count_fixed"`
}

func (p *coverage) Compile(g *grid.Grid) ([]Draft, error) {
	types, err := shiftTypes(g, p.ShiftTypes, false)
	if err != nil {
		return nil, err
	}
	hi := solver.Unbounded
	if p.Max != nil {
		hi = *p.Max
	}
	if p.Min < 0 || hi < p.Min {
		return nil, fmt.Errorf("invalid bounds [%d, %d]", p.Min, hi)
	}
	days, err := p.resolve(g)
	if err != nil {
		return nil, err
	}
	targets, err := p.residents(g, false)
	if err != nil {
		return nil, err
	}
	countFixed := boolOr(p.CountFixed, true)
	var out []Draft
	for _, d := range days {
		for _, grp := range groups(types, p.PerType) {
			var s sum
			for _, r := range targets {
				s.add(g, r, d, grp, countFixed)
			}
			out = append(out, Draft{
				Name: fmt.Sprintf("coverage %s d%d", typeList(grp), g.Days()[d].Number),
				Expr: solver.Between(s.vars, s.offset, p.Min, hi),
			})
		}
	}
	return out, nil
}
