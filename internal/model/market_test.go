package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gas-valuation/internal/lp"
)

func materialiseAll(t *testing.T, n int, nodes ...Node) {
	t.Helper()
	m := lp.NewModel("")
	for _, nd := range nodes {
		require.NoError(t, nd.SetDispatchGrid(UniformGrid(n, 24)))
		require.NoError(t, nd.Materialise(m))
	}
}

func TestMarketPricesStorageFlows(t *testing.T) {
	s, err := NewStorage("s", baseStorageParams())
	require.NoError(t, err)
	mk, err := NewMarket("m", MarketParams{Bid: Series(20, 21), Ask: Scalar(30), DF: Series(1, 0.5)})
	require.NoError(t, err)
	require.NoError(t, mk.AddSource(s))
	require.NoError(t, mk.AddSink(s))

	materialiseAll(t, 2, s, mk)
	require.NoError(t, mk.Emit())

	cs := constraintIndex(mk.Constraints())
	assert.NotContains(t, cs, "m_close_0")

	obj := mk.Objective()
	in1 := mk.InFlow()[1].Name
	out1 := mk.OutFlow()[1].Name
	assert.InDelta(t, 21*0.5, obj.Eval(map[string]float64{in1: 1}), 1e-12)
	assert.InDelta(t, -30*0.5, obj.Eval(map[string]float64{out1: 1}), 1e-12)
}

func TestMarketClosesBalanceAroundProducts(t *testing.T) {
	s, err := NewStorage("s", baseStorageParams())
	require.NoError(t, err)
	mk, err := NewMarket("m", MarketParams{})
	require.NoError(t, err)
	sp, err := NewStandardProduct("p", ProductParams{Delivery: Period{0, 1}})
	require.NoError(t, err)

	require.NoError(t, mk.AddSink(s))
	require.NoError(t, mk.AddSource(s))
	require.NoError(t, mk.AddSource(sp))
	require.NoError(t, mk.AddSink(sp))

	materialiseAll(t, 2, s, mk, sp)
	require.NoError(t, mk.Emit())

	cs := constraintIndex(mk.Constraints())
	assert.Equal(t, "m_close_1: m_iflow_1 - m_oflow_1 = 0", cs["m_close_1"].String())
	assert.Equal(t, "m_split_src_bal_0: p_eflow_m_0 - m_eflow_s_0 >= 0", cs["m_split_src_bal_0"].String())
	assert.Equal(t, "m_split_snk_bal_0: m_eflow_p_0 - s_eflow_m_0 >= 0", cs["m_split_snk_bal_0"].String())
	assert.Empty(t, mk.Objective().Terms)
}

func TestIsolatedMarketIsClosed(t *testing.T) {
	mk, err := NewMarket("m", MarketParams{})
	require.NoError(t, err)
	buildAlone(t, mk, 1)

	cs := constraintIndex(mk.Constraints())
	assert.Contains(t, cs, "m_close_0")
	assert.Empty(t, mk.Objective().Terms)
}

func TestMarketRejectsNonPositiveDF(t *testing.T) {
	mk, err := NewMarket("m", MarketParams{DF: Series(1, 0)})
	require.NoError(t, err)
	assert.ErrorIs(t, mk.SetDispatchGrid(UniformGrid(2, 24)), ErrInvalidParameter)
}
