package grid

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/solver"
)

type counter struct{ n solver.Var }

func (c *counter) NewVar() solver.Var {
	c.n++
	return c.n
}

func input(rows ...[]string) model.Input {
	in := model.Input{}
	for i, codes := range rows {
		in.Rows = append(in.Rows, model.Row{
			Resident: model.Resident{Name: string(rune('a' + i)), Rank: "R1"},
			Codes:    codes,
		})
	}
	return in
}

func TestBuildAllocatesOpenCellsOnly(t *testing.T) {
	alloc := &counter{}
	g, err := Build(input([]string{"", "G", "V"}, []string{"P", " ", "UT"}), model.DefaultCodeTable(), alloc)
	require.NoError(t, err)

	types := len(model.DefaultCodeTable().Assignable)
	assert.Len(t, g.Vars(), 3*types)
	assert.Equal(t, solver.Var(3*types), alloc.n)

	_, ok := g.VariableFor(0, 1, model.General)
	assert.False(t, ok, "fixed cell must have no variable")
	_, ok = g.VariableFor(0, 2, model.General)
	assert.False(t, ok, "status cell must have no variable")
	v, ok := g.VariableFor(1, 0, model.OnCall)
	assert.True(t, ok)
	assert.NotZero(t, v)
	assert.True(t, g.Cell(1, 0).MustWork)
	_, ok = g.VariableFor(0, 0, "Z")
	assert.False(t, ok)
	_, ok = g.VariableFor(5, 0, model.General)
	assert.False(t, ok)
}

func TestBuildDefaultCalendar(t *testing.T) {
	g, err := Build(input([]string{"", "", ""}), model.DefaultCodeTable(), &counter{})
	require.NoError(t, err)
	days := g.Days()
	require.Len(t, days, 3)
	assert.Equal(t, 1, days[0].Number)
	assert.Equal(t, time.Monday, days[0].Weekday)
	assert.Equal(t, time.Wednesday, days[2].Weekday)
}

func TestTermFoldsFixedCells(t *testing.T) {
	g, err := Build(input([]string{"", "G", "V"}), model.DefaultCodeTable(), &counter{})
	require.NoError(t, err)

	vs, k := g.Term(0, 0, []model.ShiftType{model.General, model.OnCall})
	assert.Len(t, vs, 2)
	assert.Zero(t, k)

	vs, k = g.Term(0, 1, []model.ShiftType{model.General})
	assert.Empty(t, vs)
	assert.Equal(t, 1, k)

	vs, k = g.Term(0, 1, []model.ShiftType{model.OnCall})
	assert.Empty(t, vs)
	assert.Zero(t, k)

	vs, k = g.Term(0, 2, g.Types())
	assert.Empty(t, vs)
	assert.Zero(t, k)
}

func TestBuildRejectsMalformedInput(t *testing.T) {
	cases := map[string]model.Input{
		"unknown code":  input([]string{"", "Q"}),
		"zero days":     input([]string{}),
		"ragged rows":   input([]string{"", ""}, []string{""}),
		"no residents":  {},
		"duplicate":     {Rows: []model.Row{{Resident: model.Resident{Name: "x"}, Codes: []string{""}}, {Resident: model.Resident{Name: "x"}, Codes: []string{""}}}},
		"calendar size": {Days: model.NewDays(time.Now(), 2), Rows: input([]string{""}).Rows},
	}
	for name, in := range cases {
		_, err := Build(in, model.DefaultCodeTable(), &counter{})
		var mi *model.MalformedInputError
		if !errors.As(err, &mi) {
			t.Fatalf("%s: expected MalformedInputError got %v", name, err)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	in := input([]string{"", "G", ""}, []string{"", "", "V"})
	g1, err := Build(in, model.DefaultCodeTable(), &counter{})
	require.NoError(t, err)
	g2, err := Build(in, model.DefaultCodeTable(), &counter{})
	require.NoError(t, err)
	assert.Equal(t, g1.Vars(), g2.Vars())
}

func TestExcused(t *testing.T) {
	g, err := Build(input([]string{"E", ""}, []string{"", ""}), model.DefaultCodeTable(), &counter{})
	require.NoError(t, err)
	assert.True(t, g.Excused(0))
	assert.False(t, g.Excused(1))
	d, ok := g.DayByNumber(2)
	assert.True(t, ok)
	assert.Equal(t, 1, d)
}
