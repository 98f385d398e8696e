package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gas-valuation/internal/lp"
)

func mustEntity(t *testing.T, name string) *Entity {
	t.Helper()
	e, err := NewEntity(name)
	require.NoError(t, err)
	return e
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Base().Name()
	}
	return out
}

func constraintIndex(cs []lp.Constraint) map[string]lp.Constraint {
	out := make(map[string]lp.Constraint, len(cs))
	for _, c := range cs {
		out[c.Name] = c
	}
	return out
}

func TestNewEntityRejectsEmptyName(t *testing.T) {
	_, err := NewEntity("")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = NewEntity("   ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLinkIsSymmetric(t *testing.T) {
	a := mustEntity(t, "a")
	b := mustEntity(t, "b")
	c := mustEntity(t, "c")

	require.NoError(t, a.AddSink(b))
	require.NoError(t, c.AddSource(b))

	assert.Equal(t, []string{"b"}, names(a.Sinks()))
	assert.Equal(t, []string{"a"}, names(b.Sources()))
	assert.Equal(t, []string{"c"}, names(b.Sinks()))
	assert.Equal(t, []string{"b"}, names(c.Sources()))
	assert.Empty(t, a.Sources())
	assert.Empty(t, c.Sinks())
}

func TestLinkIsIdempotent(t *testing.T) {
	a := mustEntity(t, "a")
	b := mustEntity(t, "b")

	require.NoError(t, b.AddSource(a))
	require.NoError(t, b.AddSource(a))
	require.NoError(t, a.AddSink(b))

	assert.Len(t, b.Sources(), 1)
	assert.Len(t, a.Sinks(), 1)
}

func TestLinkRejectsDuplicateNames(t *testing.T) {
	a := mustEntity(t, "a")
	b := mustEntity(t, "b")
	impostor := mustEntity(t, "b")

	require.NoError(t, a.AddSink(b))
	err := a.AddSink(impostor)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, []string{"b"}, names(a.Sinks()))
	assert.Empty(t, impostor.Sources())
}

func TestLinkRollsBackWhenMirrorFails(t *testing.T) {
	a := mustEntity(t, "a")
	otherA := mustEntity(t, "a")
	k := mustEntity(t, "k")

	require.NoError(t, k.AddSource(otherA))

	// k already has a source named "a", so the mirrored insert fails.
	err := a.AddSink(k)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Empty(t, a.Sinks())
	assert.Equal(t, []string{"a"}, names(k.Sources()))
	assert.Same(t, otherA, k.Sources()[0].Base())
}

func TestLinkRejectsSelfAndNil(t *testing.T) {
	a := mustEntity(t, "a")
	assert.ErrorIs(t, a.AddSink(a), ErrDuplicateName)
	assert.ErrorIs(t, a.AddSource(nil), ErrPreconditionViolated)
}

func TestPhaseOrdering(t *testing.T) {
	a := mustEntity(t, "a")
	m := lp.NewModel("")

	assert.ErrorIs(t, a.Materialise(m), ErrPreconditionViolated)
	assert.ErrorIs(t, a.Emit(), ErrPreconditionViolated)

	require.NoError(t, a.SetDispatchGrid(UniformGrid(2, 24)))
	require.NoError(t, a.Materialise(m))
	assert.ErrorIs(t, a.Materialise(m), ErrPreconditionViolated)
	assert.ErrorIs(t, a.SetDispatchGrid(UniformGrid(3, 24)), ErrPreconditionViolated)

	require.NoError(t, a.Emit())
	assert.ErrorIs(t, a.Emit(), ErrPreconditionViolated)

	b := mustEntity(t, "b")
	assert.ErrorIs(t, a.AddSink(b), ErrPreconditionViolated)
}

func TestEmitRequiresMaterialisedNeighbours(t *testing.T) {
	a := mustEntity(t, "a")
	b := mustEntity(t, "b")
	require.NoError(t, a.AddSink(b))
	require.NoError(t, a.SetDispatchGrid(UniformGrid(2, 24)))
	require.NoError(t, b.SetDispatchGrid(UniformGrid(2, 24)))
	require.NoError(t, a.Materialise(lp.NewModel("")))

	assert.ErrorIs(t, a.Emit(), ErrPreconditionViolated)
}

func TestIsolatedEntityHasZeroFlows(t *testing.T) {
	a := mustEntity(t, "a")
	require.NoError(t, a.SetDispatchGrid(UniformGrid(2, 24)))
	require.NoError(t, a.Materialise(lp.NewModel("x_")))
	require.NoError(t, a.Emit())

	cs := constraintIndex(a.Constraints())
	require.Len(t, cs, 4)
	assert.Equal(t, "x_a_no_src_0: x_a_iflow_0 = 0", cs["x_a_no_src_0"].String())
	assert.Equal(t, "x_a_no_snk_1: x_a_oflow_1 = 0", cs["x_a_no_snk_1"].String())
	assert.Empty(t, a.Objective().Terms)
}

func TestAdjacencyBalance(t *testing.T) {
	a := mustEntity(t, "a")
	b := mustEntity(t, "b")
	c := mustEntity(t, "c")
	require.NoError(t, a.AddSink(c))
	require.NoError(t, b.AddSink(c))

	m := lp.NewModel("")
	for _, e := range []*Entity{a, b, c} {
		require.NoError(t, e.SetDispatchGrid(UniformGrid(1, 24)))
		require.NoError(t, e.Materialise(m))
	}
	require.NoError(t, c.Emit())
	require.NoError(t, a.Emit())

	cs := constraintIndex(c.Constraints())
	assert.Equal(t, "c_src_bal_0: a_eflow_c_0 + b_eflow_c_0 - c_iflow_0 = 0", cs["c_src_bal_0"].String())
	assert.Contains(t, cs, "c_no_snk_0")

	cs = constraintIndex(a.Constraints())
	assert.Equal(t, "a_snk_bal_0: a_eflow_c_0 - a_oflow_0 = 0", cs["a_snk_bal_0"].String())
	assert.Same(t, a.EdgeFlow("c")[0], cs["a_snk_bal_0"].Expr.Terms[0].Var)
	assert.Nil(t, c.EdgeFlow("a"))
}

func TestEdgeFlowIsSharedByBothEnds(t *testing.T) {
	// a feeds c and d; each unit a sends can only be received once.
	a := mustEntity(t, "a")
	c := mustEntity(t, "c")
	d := mustEntity(t, "d")
	require.NoError(t, a.AddSink(c))
	require.NoError(t, a.AddSink(d))

	m := lp.NewModel("")
	for _, e := range []*Entity{a, c, d} {
		require.NoError(t, e.SetDispatchGrid(UniformGrid(1, 24)))
		require.NoError(t, e.Materialise(m))
	}
	require.NoError(t, c.Emit())
	require.NoError(t, a.Emit())
	require.NoError(t, d.Emit())

	toC, toD := a.EdgeFlow("c"), a.EdgeFlow("d")
	require.Len(t, toC, 1)
	require.Len(t, toD, 1)

	out := constraintIndex(a.Constraints())["a_snk_bal_0"]
	assert.Equal(t, "a_snk_bal_0: a_eflow_c_0 + a_eflow_d_0 - a_oflow_0 = 0", out.String())
	assert.Equal(t, "c_src_bal_0: a_eflow_c_0 - c_iflow_0 = 0", constraintIndex(c.Constraints())["c_src_bal_0"].String())
	assert.Equal(t, "d_src_bal_0: a_eflow_d_0 - d_iflow_0 = 0", constraintIndex(d.Constraints())["d_src_bal_0"].String())

	// Both sinks claiming all of a's outflow breaks a's balance.
	values := map[string]float64{
		a.OutFlow()[0].Name: 10,
		toC[0].Name:         10,
		toD[0].Name:         10,
		c.InFlow()[0].Name:  10,
		d.InFlow()[0].Name:  10,
	}
	assert.False(t, out.Satisfied(values, 1e-9))

	// Two flows per entity plus one series per link, whichever end emits first.
	assert.Len(t, m.Vars(), 3*2+2)
}

func TestEmitRejectsNeighbourFromAnotherModel(t *testing.T) {
	a := mustEntity(t, "a")
	b := mustEntity(t, "b")
	require.NoError(t, a.AddSink(b))
	for _, e := range []*Entity{a, b} {
		require.NoError(t, e.SetDispatchGrid(UniformGrid(1, 24)))
		require.NoError(t, e.Materialise(lp.NewModel("")))
	}
	assert.ErrorIs(t, a.Emit(), ErrPreconditionViolated)
}
