package rules

import (
	"fmt"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/solver"
)

// workload bounds the shifts of each targeted resident over the selected
// days, in total or per type. Residents on external rotation are skipped
// unless include_excused is set.
type workload struct {
	Targets     `json:",squash"`
	DaySelector `json:",squash"`
	ShiftTypes  []string `json:"shift_types"`
	Min         *int     `json:"min"`
	Max         *int     `json:"max"`
	PerType     bool     `json:"per_type"`
	CountFixed  *bool    `json:"count_fixed"`
}

func (p *workload) Compile(g *grid.Grid) ([]Draft, error) {
	if p.Min == nil && p.Max == nil {
		return nil, fmt.Errorf("min or max is required")
	}
	lo, hi := 0, solver.Unbounded
	if p.Min != nil {
		lo = *p.Min
	}
	if p.Max != nil {
		hi = *p.Max
	}
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("invalid bounds [%d, %d]", lo, hi)
	}
	types, err := shiftTypes(g, p.ShiftTypes, true)
	if err != nil {
		return nil, err
	}
	days, err := p.resolve(g)
	if err != nil {
		return nil, err
	}
	targets, err := p.residents(g, true)
	if err != nil {
		return nil, err
	}
	countFixed := boolOr(p.CountFixed, true)
	var out []Draft
	for _, r := range targets {
		for _, grp := range groups(types, p.PerType) {
			var s sum
			for _, d := range days {
				s.add(g, r, d, grp, countFixed)
			}
			out = append(out, Draft{
				Name: fmt.Sprintf("workload %s %s", g.Residents()[r].Name, typeList(grp)),
				Expr: solver.Between(s.vars, s.offset, lo, hi),
			})
		}
	}
	return out, nil
}
