package model

import (
	"fmt"

	"gas-valuation/internal/lp"
)

// MarketParams carries the forward curve a market prices storage flows at.
type MarketParams struct {
	DF  Coeff
	Bid Coeff
	Ask Coeff

	Defaults *Coefficients
}

// Market closes the flow balance of its neighbours. When it only touches
// storages it also prices those flows: gas in is sold at bid, gas out is
// bought at ask.
type Market struct {
	Entity
	Params MarketParams

	df, bid, ask []float64
}

func NewMarket(name string, p MarketParams) (*Market, error) {
	mk := &Market{Params: p}
	if err := mk.init(name, KindMarket, mk); err != nil {
		return nil, err
	}
	return mk, nil
}

func (mk *Market) SetDispatchGrid(g Grid) error {
	if err := mk.Entity.SetDispatchGrid(g); err != nil {
		return err
	}
	var err error
	if mk.df, mk.bid, mk.ask, err = coerceCurve(mk.name, g.N(), mk.Params.DF, mk.Params.Bid, mk.Params.Ask, defaultsOf(mk.Params.Defaults)); err != nil {
		return err
	}
	return nil
}

func (mk *Market) Emit() error {
	if err := mk.beginEmit(); err != nil {
		return err
	}
	mk.emitAdjacency()

	n := mk.grid.N()
	mk.emitSplitBalance(KindStandardProduct, periods(n))

	if mk.allNeighboursAre(KindStorage) {
		for t := 0; t < n; t++ {
			mk.objective.AddTerm(mk.inFlow[t], mk.bid[t]*mk.df[t])
			mk.objective.AddTerm(mk.outFlow[t], -mk.ask[t]*mk.df[t])
		}
	} else {
		for t := 0; t < n; t++ {
			mk.add("close", t, lp.VarExpr(mk.inFlow[t], 1), lp.Equal, lp.VarExpr(mk.outFlow[t], 1))
		}
	}

	mk.emitted = true
	return nil
}

// coerceCurve resolves df, bid and ask against the defaults and checks df > 0.
func coerceCurve(name string, n int, df, bid, ask Coeff, d Coefficients) (dfs, bids, asks []float64, err error) {
	if dfs, err = CoerceCoeffArray(df.Or(Scalar(d.DF)), n); err != nil {
		return nil, nil, nil, fmt.Errorf("%q: df: %w", name, err)
	}
	if bids, err = CoerceCoeffArray(bid.Or(Scalar(d.Bid)), n); err != nil {
		return nil, nil, nil, fmt.Errorf("%q: bid: %w", name, err)
	}
	if asks, err = CoerceCoeffArray(ask.Or(Scalar(d.Ask)), n); err != nil {
		return nil, nil, nil, fmt.Errorf("%q: ask: %w", name, err)
	}
	if err = checkDF(name, dfs); err != nil {
		return nil, nil, nil, err
	}
	return dfs, bids, asks, nil
}
