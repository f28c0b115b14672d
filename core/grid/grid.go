// Package grid holds the ground truth of a monthly schedule and owns its
// decision variables: one per open (resident, day) slot and assignable
// shift type.
package grid

import (
	"fmt"
	"strings"

	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/solver"
)

// Grid is read-only once built.
type Grid struct {
	days      []model.Day
	residents []model.Resident
	types     []model.ShiftType
	codes     model.CodeTable
	cells     [][]model.Cell
	// vars[r][d][t] is the variable of types[t], zero for closed cells.
	vars [][][]solver.Var
	all  []solver.Var
}

// Build classifies every input cell and allocates variables for open ones.
// When in.Days is empty the calendar is numbered from 1 with Monday as the
// first day.
func Build(in model.Input, codes model.CodeTable, alloc solver.Allocator) (*Grid, error) {
	if err := codes.Validate(); err != nil {
		return nil, &model.MalformedInputError{Reason: err.Error()}
	}
	if len(in.Rows) == 0 {
		return nil, &model.MalformedInputError{Reason: "no residents"}
	}
	for _, row := range in.Rows {
		if len(row.Codes) == 0 {
			return nil, &model.MalformedInputError{Resident: row.Resident.Name, Reason: "resident has zero days defined"}
		}
	}
	width := len(in.Rows[0].Codes)
	days := append([]model.Day(nil), in.Days...)
	if len(days) == 0 {
		days = defaultDays(width)
	}
	g := &Grid{
		days:  days,
		types: append([]model.ShiftType(nil), codes.Assignable...),
		codes: codes,
	}
	if err := g.checkDays(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(in.Rows))
	for r, row := range in.Rows {
		res := row.Resident
		res.Index = r
		res.Name = strings.TrimSpace(res.Name)
		if res.Name == "" {
			return nil, &model.MalformedInputError{Reason: fmt.Sprintf("row %d has no resident name", r+1)}
		}
		if seen[res.Name] {
			return nil, &model.MalformedInputError{Resident: res.Name, Reason: "duplicate resident"}
		}
		seen[res.Name] = true
		if len(row.Codes) != len(g.days) {
			return nil, &model.MalformedInputError{
				Resident: res.Name,
				Reason:   fmt.Sprintf("expected %d days got %d", len(g.days), len(row.Codes)),
			}
		}
		cells := make([]model.Cell, len(row.Codes))
		for d, raw := range row.Codes {
			c, err := codes.Classify(raw)
			if err != nil {
				return nil, &model.MalformedInputError{Resident: res.Name, Day: g.days[d].Number, Code: strings.TrimSpace(raw), Reason: "unrecognised code"}
			}
			cells[d] = c
		}
		g.residents = append(g.residents, res)
		g.cells = append(g.cells, cells)
	}
	g.allocate(alloc)
	return g, nil
}

func defaultDays(n int) []model.Day {
	days := make([]model.Day, n)
	for i := range days {
		days[i] = model.Day{Index: i, Number: i + 1, Weekday: model.WeekdayAt(i)}
	}
	return days
}

func (g *Grid) checkDays() error {
	if len(g.days) == 0 {
		return &model.MalformedInputError{Reason: "no days defined"}
	}
	seen := make(map[int]bool, len(g.days))
	for i := range g.days {
		g.days[i].Index = i
		n := g.days[i].Number
		if n <= 0 {
			return &model.MalformedInputError{Reason: fmt.Sprintf("day %d has invalid number %d", i+1, n)}
		}
		if seen[n] {
			return &model.MalformedInputError{Day: n, Reason: "duplicate day"}
		}
		seen[n] = true
	}
	return nil
}

// allocate walks residents, days and types in order so variable layout
// depends only on the input.
func (g *Grid) allocate(alloc solver.Allocator) {
	g.vars = make([][][]solver.Var, len(g.residents))
	for r := range g.residents {
		g.vars[r] = make([][]solver.Var, len(g.days))
		for d := range g.days {
			if !g.cells[r][d].Open() {
				continue
			}
			vs := make([]solver.Var, len(g.types))
			for t := range g.types {
				vs[t] = alloc.NewVar()
				g.all = append(g.all, vs[t])
			}
			g.vars[r][d] = vs
		}
	}
}

func (g *Grid) Days() []model.Day                 { return g.days }
func (g *Grid) Residents() []model.Resident       { return g.residents }
func (g *Grid) Types() []model.ShiftType          { return g.types }
func (g *Grid) Codes() model.CodeTable            { return g.codes }
func (g *Grid) Cell(resident, day int) model.Cell { return g.cells[resident][day] }

// Vars returns every decision variable in allocation order.
func (g *Grid) Vars() []solver.Var { return g.all }

func (g *Grid) typeIndex(t model.ShiftType) int {
	for i, s := range g.types {
		if s == t {
			return i
		}
	}
	return -1
}

// VariableFor returns the decision variable of (resident, day, t). It
// reports false for closed cells and unknown shift types.
func (g *Grid) VariableFor(resident, day int, t model.ShiftType) (solver.Var, bool) {
	if resident < 0 || resident >= len(g.residents) || day < 0 || day >= len(g.days) {
		return 0, false
	}
	vs := g.vars[resident][day]
	i := g.typeIndex(t)
	if vs == nil || i < 0 {
		return 0, false
	}
	return vs[i], true
}

// CellVars returns the variables of an open cell in shift type order.
func (g *Grid) CellVars(resident, day int) []solver.Var { return g.vars[resident][day] }

// Term returns the contribution of (resident, day) to a count over types:
// the matching variables when the cell is open, or a constant of 1 when the
// cell is pre-assigned one of types. Status cells contribute nothing.
func (g *Grid) Term(resident, day int, types []model.ShiftType) ([]solver.Var, int) {
	c := g.cells[resident][day]
	switch c.Kind {
	case model.CellOpen:
		var vs []solver.Var
		for _, t := range types {
			if v, ok := g.VariableFor(resident, day, t); ok {
				vs = append(vs, v)
			}
		}
		return vs, 0
	case model.CellFixed:
		for _, t := range types {
			if t == c.Shift {
				return nil, 1
			}
		}
	}
	return nil, 0
}

// HasType reports whether t is an assignable type of the grid.
func (g *Grid) HasType(t model.ShiftType) bool { return g.typeIndex(t) >= 0 }

// DayByNumber maps a calendar day number to its index.
func (g *Grid) DayByNumber(n int) (int, bool) {
	for _, d := range g.days {
		if d.Number == n {
			return d.Index, true
		}
	}
	return 0, false
}

// Excused reports whether the resident holds an excused code on any day.
func (g *Grid) Excused(resident int) bool {
	for _, c := range g.cells[resident] {
		if c.Kind == model.CellStatus && c.Status == model.StatusExcused {
			return true
		}
	}
	return false
}
