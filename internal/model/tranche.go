package model

import (
	"fmt"

	"gas-valuation/internal/lp"
)

// TrancheParams describes a capacity-limited slice of liquidity for one
// standard product.
// Units:
// - Price: currency/MWh, as (bid, ask)
// - CapacityLimits: MW, as (minCap, maxCap); either entry may be nil
type TrancheParams struct {
	Price          []float64
	Delivery       Period
	CapacityLimits []*float64
	// BigM replaces an absent maxCap. 0 means DefaultBigM.
	BigM float64
	DF   Coeff

	Defaults *Coefficients
}

// TradeTranche sells gas it receives at the bid price and buys gas it
// releases at the ask price.
type TradeTranche struct {
	Entity
	Params TrancheParams

	priceBid, priceAsk float64
	minCap, maxCap     *float64
	df                 []float64

	salesPos  []*lp.Var
	purchPos  []*lp.Var
	salesTrig *lp.Var
	purchTrig *lp.Var
}

func NewTradeTranche(name string, p TrancheParams) (*TradeTranche, error) {
	tr := &TradeTranche{Params: p}
	if err := tr.init(name, KindTradeTranche, tr); err != nil {
		return nil, err
	}
	var err error
	if tr.priceBid, tr.priceAsk, err = pairOf(p.Price); err != nil {
		return nil, fmt.Errorf("tranche %q: price: %w", name, err)
	}
	if tr.minCap, tr.maxCap, err = optionalPairOf(p.CapacityLimits); err != nil {
		return nil, fmt.Errorf("tranche %q: capacity limits: %w", name, err)
	}
	if tr.minCap != nil && tr.maxCap != nil && *tr.minCap > *tr.maxCap {
		return nil, fmt.Errorf("tranche %q: %w: min cap %g > max cap %g", name, ErrInvalidTuple, *tr.minCap, *tr.maxCap)
	}
	if (tr.minCap != nil && *tr.minCap < 0) || (tr.maxCap != nil && *tr.maxCap < 0) || p.BigM < 0 {
		return nil, fmt.Errorf("tranche %q: %w: capacities and big-M must be >= 0", name, ErrInvalidParameter)
	}
	return tr, nil
}

func pairOf(vs []float64) (a, b float64, err error) {
	if len(vs) != 2 {
		return 0, 0, fmt.Errorf("%w: want 2 values, got %d", ErrInvalidTuple, len(vs))
	}
	return vs[0], vs[1], nil
}

// optionalPairOf accepts nil (both absent) or exactly two entries.
func optionalPairOf(vs []*float64) (a, b *float64, err error) {
	switch len(vs) {
	case 0:
		return nil, nil, nil
	case 2:
		return vs[0], vs[1], nil
	default:
		return nil, nil, fmt.Errorf("%w: want 2 values, got %d", ErrInvalidTuple, len(vs))
	}
}

func (tr *TradeTranche) BigM() float64 {
	if tr.Params.BigM > 0 {
		return tr.Params.BigM
	}
	return defaultsOf(tr.Params.Defaults).BigM
}

// MaxCap is the configured maximum capacity or BigM when absent.
func (tr *TradeTranche) MaxCap() float64 {
	if tr.maxCap != nil {
		return *tr.maxCap
	}
	return tr.BigM()
}

func (tr *TradeTranche) SetDispatchGrid(g Grid) error {
	if err := tr.Entity.SetDispatchGrid(g); err != nil {
		return err
	}
	if err := tr.Params.Delivery.Validate(g.N()); err != nil {
		return fmt.Errorf("tranche %q: %w", tr.name, err)
	}
	df, err := CoerceCoeffArray(tr.Params.DF.Or(Scalar(defaultsOf(tr.Params.Defaults).DF)), g.N())
	if err != nil {
		return fmt.Errorf("tranche %q: df: %w", tr.name, err)
	}
	tr.df = df
	return checkDF(tr.name, df)
}

func (tr *TradeTranche) Materialise(m *lp.Model) error {
	if err := tr.Entity.Materialise(m); err != nil {
		return err
	}
	n := tr.grid.N()
	var err error
	if tr.salesPos, err = tr.series(m, RoleSalesPos, n, lp.Continuous); err != nil {
		return err
	}
	if tr.purchPos, err = tr.series(m, RolePurchPos, n, lp.Continuous); err != nil {
		return err
	}
	if tr.purchTrig, err = tr.scalar(m, RolePurchTrig, lp.Binary); err != nil {
		return err
	}
	if tr.salesTrig, err = tr.scalar(m, RoleSalesTrig, lp.Binary); err != nil {
		return err
	}
	return nil
}

func (tr *TradeTranche) Emit() error {
	if err := tr.beginEmit(); err != nil {
		return err
	}
	tr.emitAdjacency()

	p := tr.Params
	n := tr.grid.N()
	var window []int
	for t := 0; t < n; t++ {
		if p.Delivery.Contains(t) {
			window = append(window, t)
			continue
		}
		tr.add("iflow_off", t, lp.VarExpr(tr.inFlow[t], 1), lp.Equal, lp.Constant(0))
		tr.add("oflow_off", t, lp.VarExpr(tr.outFlow[t], 1), lp.Equal, lp.Constant(0))
		tr.add("sales_off", t, lp.VarExpr(tr.salesPos[t], 1), lp.Equal, lp.Constant(0))
		tr.add("purch_off", t, lp.VarExpr(tr.purchPos[t], 1), lp.Equal, lp.Constant(0))
	}

	for _, t := range window {
		dt := tr.grid.Durations[t]
		tr.add("sales_flow", t, lp.VarExpr(tr.salesPos[t], dt), lp.Equal, lp.VarExpr(tr.inFlow[t], 1))
		tr.add("purch_flow", t, lp.VarExpr(tr.purchPos[t], dt), lp.Equal, lp.VarExpr(tr.outFlow[t], 1))
	}
	for t := p.Delivery.Start; t < p.Delivery.End; t++ {
		tr.add("sales_unif", t, lp.VarExpr(tr.salesPos[t], 1), lp.Equal, lp.VarExpr(tr.salesPos[t+1], 1))
		tr.add("purch_unif", t, lp.VarExpr(tr.purchPos[t], 1), lp.Equal, lp.VarExpr(tr.purchPos[t+1], 1))
	}

	proxy := p.Delivery.Start
	tr.emitCapacity("sales", tr.salesPos[proxy], tr.salesTrig)
	tr.emitCapacity("purch", tr.purchPos[proxy], tr.purchTrig)

	if tr.allNeighboursAre(KindStandardProduct) {
		for _, t := range window {
			dt := tr.grid.Durations[t]
			tr.objective.AddTerm(tr.salesPos[t], dt*tr.priceBid*tr.df[t])
			tr.objective.AddTerm(tr.purchPos[t], -dt*tr.priceAsk*tr.df[t])
		}
	}

	tr.emitted = true
	return nil
}

func (tr *TradeTranche) emitCapacity(side string, pos, trig *lp.Var) {
	maxCap := tr.MaxCap()
	if tr.minCap != nil {
		tr.add(side+"_min_cap", -1, lp.VarExpr(trig, *tr.minCap), lp.LessEq, lp.VarExpr(pos, 1))
		tr.add(side+"_max_cap", -1, lp.VarExpr(pos, 1), lp.LessEq, lp.VarExpr(trig, maxCap))
		return
	}
	tr.add(side+"_max_cap", -1, lp.VarExpr(pos, 1), lp.LessEq, lp.Constant(maxCap))
}

func (tr *TradeTranche) SalesPos() []*lp.Var    { return tr.salesPos }
func (tr *TradeTranche) PurchasePos() []*lp.Var { return tr.purchPos }

func (tr *TradeTranche) Triggers() (sales, purch *lp.Var) { return tr.salesTrig, tr.purchTrig }

// Price returns the (bid, ask) pair.
func (tr *TradeTranche) Price() (bid, ask float64) { return tr.priceBid, tr.priceAsk }

func (tr *TradeTranche) ProxyPositions() []*lp.Var {
	if tr.salesPos == nil {
		return nil
	}
	t := tr.Params.Delivery.Start
	return []*lp.Var{tr.salesPos[t], tr.purchPos[t]}
}
