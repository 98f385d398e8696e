package lp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarName(t *testing.T) {
	assert.Equal(t, "run1_stor_lev_pct_3", VarName("run1_", "stor", "lev_pct", 3))
	assert.Equal(t, "stor_long_clip_cnt", VarName("", "stor", "long_clip_cnt", -1))
}

func TestModelNewVar(t *testing.T) {
	m := NewModel("p_")

	x, err := m.NewVar("a", "iflow", 0, Continuous)
	require.NoError(t, err)
	assert.Equal(t, "p_a_iflow_0", x.Name)
	assert.Equal(t, 0.0, x.Lower)
	assert.True(t, math.IsInf(x.Upper, 1))

	b, err := m.NewVar("a", "long_semi_cont_trig", -1, Binary)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.Upper)
	assert.True(t, b.IsInteger())
	assert.Equal(t, 1, b.Index())

	_, err = m.NewVar("a", "iflow", 0, Continuous)
	assert.ErrorIs(t, err, ErrDuplicateVar)

	got, ok := m.Lookup("p_a_iflow_0")
	require.True(t, ok)
	assert.Same(t, x, got)
}

func TestExprSimplify(t *testing.T) {
	m := NewModel("")
	xs, err := m.NewSeries("e", "x", 3, Continuous)
	require.NoError(t, err)

	e := Sum(xs[0], xs[1])
	e.AddTerm(xs[0], 2)
	e.AddTerm(xs[1], -1)
	e.AddTerm(xs[2], 4)
	e.Constant = 5

	s := e.Simplify()
	require.Len(t, s.Terms, 2)
	assert.Same(t, xs[0], s.Terms[0].Var)
	assert.Equal(t, 3.0, s.Terms[0].Coef)
	assert.Same(t, xs[2], s.Terms[1].Var)
	assert.Equal(t, 5.0, s.Constant)

	vals := map[string]float64{xs[0].Name: 1, xs[1].Name: 10, xs[2].Name: 2}
	assert.InDelta(t, e.Eval(vals), s.Eval(vals), 1e-12)
}

func TestNewConstraintFoldsConstants(t *testing.T) {
	m := NewModel("")
	x, _ := m.NewVar("e", "x", -1, Continuous)
	y, _ := m.NewVar("e", "y", -1, Continuous)

	// x + 3 >= 2y - 1  =>  x - 2y >= -4
	lhs := VarExpr(x, 1).Plus(Constant(3))
	rhs := VarExpr(y, 2).Plus(Constant(-1))
	c := NewConstraint("c", lhs, GreaterEq, rhs)

	assert.Equal(t, GreaterEq, c.Sense)
	assert.Equal(t, -4.0, c.RHS)
	require.Len(t, c.Expr.Terms, 2)
	assert.Equal(t, -2.0, c.Expr.Terms[1].Coef)
	assert.Equal(t, "c: e_x - 2 e_y >= -4", c.String())

	assert.True(t, c.Satisfied(map[string]float64{x.Name: 0, y.Name: 2}, 1e-9))
	assert.False(t, c.Satisfied(map[string]float64{x.Name: 0, y.Name: 3}, 1e-9))
}

func TestProblemViolations(t *testing.T) {
	m := NewModel("")
	x, _ := m.NewVar("e", "x", -1, Binary)
	p := &Problem{
		Vars: m.Vars(),
		Constraints: []Constraint{
			NewConstraint("eq", VarExpr(x, 1), Equal, Constant(1)),
		},
	}
	assert.Empty(t, p.Violations(map[string]float64{x.Name: 1}, 1e-9))
	assert.ElementsMatch(t, []string{"bound:e_x", "eq"}, p.Violations(map[string]float64{x.Name: 2}, 1e-9))
	assert.Equal(t, 1, p.NumIntegers())
}
