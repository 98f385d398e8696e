package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallNetwork(t *testing.T, prefix string) *Network {
	t.Helper()
	net := NewNetwork("small", prefix)

	s, err := NewStorage("stor", baseStorageParams())
	require.NoError(t, err)
	mk, err := NewMarket("hub", MarketParams{})
	require.NoError(t, err)
	sp, err := NewStandardProduct("day0", ProductParams{Delivery: Period{0, 0}, Clip: 10})
	require.NoError(t, err)
	tr, err := NewTradeTranche("day0_t1", TrancheParams{Price: []float64{24, 26}, Delivery: Period{0, 0}})
	require.NoError(t, err)

	require.NoError(t, net.Add(s, mk, sp, tr))
	require.NoError(t, net.Link("hub", "stor"))
	require.NoError(t, net.Link("stor", "hub"))
	require.NoError(t, net.Link("day0", "hub"))
	require.NoError(t, net.Link("day0_t1", "day0"))
	require.NoError(t, net.SetDispatchGrid(UniformGrid(2, 24)))
	return net
}

func TestNetworkBuild(t *testing.T) {
	net := smallNetwork(t, "run1_")
	prob, err := net.Build()
	require.NoError(t, err)

	assert.Equal(t, "small", prob.Name)
	assert.Len(t, prob.Vars, len(net.Model().Vars()))
	assert.NotEmpty(t, prob.Constraints)
	for _, v := range prob.Vars {
		assert.Regexp(t, `^run1_`, v.Name)
	}
	// 2 triggers + 2 clip counters on the product, 2 triggers on the tranche.
	assert.Equal(t, 6, prob.NumIntegers())
	assert.Len(t, net.SemiContinuous(), 2)

	_, err = net.Build()
	assert.ErrorIs(t, err, ErrPreconditionViolated)
	assert.ErrorIs(t, net.Link("hub", "day0"), ErrPreconditionViolated)
}

func TestNetworkIsDeterministic(t *testing.T) {
	a, err := smallNetwork(t, "").Build()
	require.NoError(t, err)
	b, err := smallNetwork(t, "").Build()
	require.NoError(t, err)

	require.Equal(t, len(a.Constraints), len(b.Constraints))
	for i := range a.Constraints {
		assert.Equal(t, a.Constraints[i].String(), b.Constraints[i].String())
	}
	assert.Equal(t, a.Objective.String(), b.Objective.String())
}

func TestNetworkValidation(t *testing.T) {
	net := NewNetwork("n", "")
	_, err := net.Build()
	assert.ErrorIs(t, err, ErrPreconditionViolated)

	a, _ := NewEntity("a")
	a2, _ := NewEntity("a")
	require.NoError(t, net.Add(a))
	assert.ErrorIs(t, net.Add(a2), ErrDuplicateName)
	assert.ErrorIs(t, net.Link("a", "missing"), ErrInvalidName)

	_, err = net.Build()
	assert.ErrorIs(t, err, ErrPreconditionViolated, "grid not set")
}

func TestAssembleSumsObjectives(t *testing.T) {
	net := smallNetwork(t, "")
	prob, err := net.Build()
	require.NoError(t, err)

	var want float64
	values := map[string]float64{}
	for _, v := range prob.Vars {
		values[v.Name] = 1
	}
	for _, n := range net.Nodes() {
		want += n.Base().Objective().Eval(values)
	}
	assert.InDelta(t, want, prob.Objective.Eval(values), 1e-9)
}
