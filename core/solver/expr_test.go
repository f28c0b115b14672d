package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExprStaticChecks(t *testing.T) {
	xs := []Var{1, 2, 3}
	cases := []struct {
		e       Expr
		trivial bool
		contra  bool
	}{
		{AtMost(xs, 0, 3), true, false},
		{AtMost(xs, 0, 1), false, false},
		{AtMost(xs, 2, 1), false, true},
		{AtLeast(nil, 0, 1), false, true},
		{AtLeast(nil, 1, 1), true, false},
		{AtLeast(xs, 0, 4), false, true},
		{AtLeast(nil, 0, 1).When(4), false, false},
		{SameCount(nil, 1, nil, 1), true, false},
		{SameCount(xs[:1], 0, nil, 2), false, true},
		{SameCount(xs[:1], 0, xs[1:], 0), false, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.trivial, c.e.Trivial(), c.e.Shape())
		assert.Equal(t, c.contra, c.e.Contradiction(), c.e.Shape())
	}
}

func TestExprShapeAndEval(t *testing.T) {
	e := Between([]Var{1, 2}, 1, 1, 2).When(3)
	assert.Equal(t, "1<=sum(x1,x2)+1<=2 if x3", e.Shape())
	assert.Equal(t, "0<=sum(x4)<=inf", AtLeast([]Var{4}, 0, 0).Shape())
	assert.Equal(t, "sum(x1)==sum(x2,x3)-1", SameCount([]Var{1}, 0, []Var{2, 3}, -1).Shape())

	a := Assignment{false, true, true, false}
	assert.False(t, Between([]Var{1, 2}, 1, 1, 2).Eval(a))
	assert.True(t, e.Eval(a))
	assert.Equal(t, 2, a.Count([]Var{1, 2, 3, 9}))
	assert.False(t, a.Value(0))
}

func TestExprValidate(t *testing.T) {
	assert.NoError(t, AtMost([]Var{1, 2}, 0, 1).Validate(2))
	assert.Error(t, AtMost([]Var{1, 3}, 0, 1).Validate(2))
	assert.Error(t, Expr{}.Validate(2))
}
