// Package extract turns a solver assignment back into a resident by day
// schedule.
package extract

import (
	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/rules"
	"github.com/kilianp07/oncall/core/solver"
)

// Schedule reads the assignment of every open cell. Fixed and status cells
// keep their input code. An open cell with more than one true variable is
// reported as an InconsistentSolutionError.
func Schedule(g *grid.Grid, a solver.Assignment) (*model.Schedule, error) {
	days, residents := g.Days(), g.Residents()
	s := &model.Schedule{
		Days:      append([]model.Day(nil), days...),
		Residents: append([]model.Resident(nil), residents...),
		Entries:   make([][]model.Entry, len(residents)),
	}
	types := g.Types()
	for r := range residents {
		row := make([]model.Entry, len(days))
		for d := range days {
			c := g.Cell(r, d)
			switch c.Kind {
			case model.CellFixed:
				row[d] = model.Entry{Kind: model.EntryFixed, Shift: c.Shift, Code: c.Code}
				continue
			case model.CellStatus:
				row[d] = model.Entry{Kind: model.EntryStatus, Code: c.Code}
				continue
			}
			var set []model.ShiftType
			for i, v := range g.CellVars(r, d) {
				if a.Value(v) {
					set = append(set, types[i])
				}
			}
			switch len(set) {
			case 0:
				row[d] = model.Entry{Kind: model.EntryUnfilled, Code: c.Code}
			case 1:
				row[d] = model.Entry{Kind: model.EntryAssigned, Shift: set[0]}
			default:
				return nil, &model.InconsistentSolutionError{Resident: residents[r].Name, Day: days[d].Number, Shifts: set}
			}
		}
		s.Entries[r] = row
	}
	return s, nil
}

// Violated lists the constraints the assignment does not satisfy, in input
// order. It is used to report what a relaxed rule actually gave up.
func Violated(cs []rules.Constraint, a solver.Assignment) []string {
	var out []string
	for _, c := range cs {
		if !c.Expr.Eval(a) {
			out = append(out, c.Name)
		}
	}
	return out
}
