package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/rules"
	"github.com/kilianp07/oncall/core/solver"
)

type counter struct{ n solver.Var }

func (c *counter) NewVar() solver.Var {
	c.n++
	return c.n
}

func build(t *testing.T, rows ...[]string) (*grid.Grid, *counter) {
	t.Helper()
	in := model.Input{}
	for i, codes := range rows {
		in.Rows = append(in.Rows, model.Row{Resident: model.Resident{Name: string(rune('a' + i))}, Codes: codes})
	}
	alloc := &counter{}
	g, err := grid.Build(in, model.DefaultCodeTable(), alloc)
	require.NoError(t, err)
	return g, alloc
}

func set(g *grid.Grid, a solver.Assignment, r, d int, st model.ShiftType) {
	v, ok := g.VariableFor(r, d, st)
	if !ok {
		panic("closed cell")
	}
	a[v] = true
}

func TestScheduleKeepsFixedCodes(t *testing.T) {
	g, alloc := build(t,
		[]string{"", "G ", "V", "P"},
		[]string{"Mo", "", "", "E"},
	)
	a := make(solver.Assignment, alloc.n+1)
	set(g, a, 0, 0, model.OnCall)
	set(g, a, 1, 2, model.General)

	s, err := Schedule(g, a)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"T", "G", "V", "P"},
		{"Mo", "", "G", "E"},
	}, s.Matrix())
	assert.Equal(t, model.EntryFixed, s.At(0, 1).Kind)
	assert.Equal(t, model.General, s.At(0, 1).Shift)
	assert.Equal(t, model.EntryUnfilled, s.At(0, 3).Kind)
	assert.Equal(t, 2, s.Assigned())
	assert.Equal(t, 2, s.Unfilled())
	assert.Equal(t, []int{2, 1}, s.Workload())
}

func TestScheduleRejectsDoubleBooking(t *testing.T) {
	g, alloc := build(t, []string{"", ""})
	a := make(solver.Assignment, alloc.n+1)
	set(g, a, 0, 1, model.General)
	set(g, a, 0, 1, model.Reserve)

	_, err := Schedule(g, a)
	var ie *model.InconsistentSolutionError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "a", ie.Resident)
	assert.Equal(t, 2, ie.Day)
	assert.ElementsMatch(t, []model.ShiftType{model.General, model.Reserve}, ie.Shifts)
}

func TestScheduleRoundTrip(t *testing.T) {
	g, alloc := build(t, []string{"", "V", ""}, []string{"T", "", ""})
	a := make(solver.Assignment, alloc.n+1)
	set(g, a, 0, 0, model.Morning)
	set(g, a, 1, 2, model.OnCall)
	s, err := Schedule(g, a)
	require.NoError(t, err)

	// feeding the rendered schedule back in fixes every solved cell
	in := model.Input{Days: s.Days}
	for r, row := range s.Matrix() {
		in.Rows = append(in.Rows, model.Row{Resident: s.Residents[r], Codes: row})
	}
	g2, err := grid.Build(in, model.DefaultCodeTable(), &counter{})
	require.NoError(t, err)
	s2, err := Schedule(g2, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Matrix(), s2.Matrix())
	assert.Equal(t, model.EntryFixed, s2.At(0, 0).Kind)
}

func TestViolated(t *testing.T) {
	a := solver.Assignment{false, true, true}
	cs := []rules.Constraint{
		{Name: "ok", Expr: solver.AtMost([]solver.Var{1, 2}, 0, 2)},
		{Name: "too many", Expr: solver.AtMost([]solver.Var{1, 2}, 0, 1)},
	}
	assert.Equal(t, []string{"too many"}, Violated(cs, a))
}
