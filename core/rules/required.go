package rules

import (
	"fmt"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/solver"
)

// requiredCells makes every must-work cell receive a shift.
type requiredCells struct {
	Targets     `json:",squash"`
	DaySelector `json:",squash"`
	ShiftTypes  []string `json:"shift_types"`
}

func (p *requiredCells) Compile(g *grid.Grid) ([]Draft, error) {
	types, err := shiftTypes(g, p.ShiftTypes, true)
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
	var out []Draft
	for _, r := range targets {
		for _, d := range days {
			if !g.Cell(r, d).MustWork {
				continue
			}
			var s sum
			s.add(g, r, d, types, true)
			out = append(out, Draft{
				Name: fmt.Sprintf("must work %s d%d", g.Residents()[r].Name, g.Days()[d].Number),
				Expr: solver.AtLeast(s.vars, s.offset, 1),
			})
		}
	}
	return out, nil
}
