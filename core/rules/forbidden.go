package rules

import (
	"fmt"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/solver"
)

// forbiddenDays keeps the given shift types off the selected days.
type forbiddenDays struct {
	Targets     `json:",squash"`
	DaySelector `json:",squash"`
	ShiftTypes  []string `json:"shift_types"`
	CountFixed  *bool    `json:"count_fixed"`
}

func (p *forbiddenDays) Compile(g *grid.Grid) ([]Draft, error) {
	if p.DaySelector.empty() {
		return nil, fmt.Errorf("days, weekdays or holidays is required")
	}
	types, err := shiftTypes(g, p.ShiftTypes, false)
	if err != nil {
		return nil, err
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
		var s sum
		for _, r := range targets {
			s.add(g, r, d, types, countFixed)
		}
		out = append(out, Draft{
			Name: fmt.Sprintf("no %s d%d", typeList(types), g.Days()[d].Number),
			Expr: solver.AtMost(s.vars, s.offset, 0),
		})
	}
	return out, nil
}
