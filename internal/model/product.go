package model

import (
	"fmt"

	"gas-valuation/internal/lp"
)

// Period is an inclusive range of dispatch period indices [Start, End].
type Period struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// Validate checks 0 <= Start <= End < n.
func (p Period) Validate(n int) error {
	if p.Start < 0 || p.End >= n || p.End < p.Start {
		return fmt.Errorf("%w: delivery period [%d, %d] on a grid of %d", ErrIndexOutOfRange, p.Start, p.End, n)
	}
	return nil
}

// Contains reports whether t falls inside the delivery window.
func (p Period) Contains(t int) bool { return t >= p.Start && t <= p.End }

// ProductParams describes a standard product.
// Units:
// - P0, MinTrade, Clip: MW
// - Bid, Ask: currency/MWh
type ProductParams struct {
	Delivery Period
	P0       float64
	MinTrade float64
	// Clip is the lot size; 0 means no clip.
	Clip float64
	// BigM bounds the semi-continuous position. 0 means DefaultBigM.
	BigM float64
	// ExclusivityCut adds longTrig + shrtTrig <= 1.
	ExclusivityCut bool

	DF  Coeff
	Bid Coeff
	Ask Coeff

	Defaults *Coefficients
}

// StandardProduct delivers a uniform MW position over its delivery window.
// Long positions take gas in from the network and are sold at bid; short
// positions push gas out and are bought at ask.
type StandardProduct struct {
	Entity
	Params ProductParams

	df, bid, ask []float64

	longPos  []*lp.Var
	shrtPos  []*lp.Var
	longTrig *lp.Var
	shrtTrig *lp.Var
	longClip *lp.Var
	shrtClip *lp.Var
}

func NewStandardProduct(name string, p ProductParams) (*StandardProduct, error) {
	sp := &StandardProduct{Params: p}
	if err := sp.init(name, KindStandardProduct, sp); err != nil {
		return nil, err
	}
	if p.MinTrade < 0 || p.Clip < 0 || p.BigM < 0 {
		return nil, fmt.Errorf("product %q: %w: min trade, clip and big-M must be >= 0", name, ErrInvalidParameter)
	}
	return sp, nil
}

// BigM is the configured semi-continuous bound.
func (sp *StandardProduct) BigM() float64 {
	if sp.Params.BigM > 0 {
		return sp.Params.BigM
	}
	return defaultsOf(sp.Params.Defaults).BigM
}

func (sp *StandardProduct) SetDispatchGrid(g Grid) error {
	if err := sp.Entity.SetDispatchGrid(g); err != nil {
		return err
	}
	if err := sp.Params.Delivery.Validate(g.N()); err != nil {
		return fmt.Errorf("product %q: %w", sp.name, err)
	}
	var err error
	sp.df, sp.bid, sp.ask, err = coerceCurve(sp.name, g.N(), sp.Params.DF, sp.Params.Bid, sp.Params.Ask, defaultsOf(sp.Params.Defaults))
	return err
}

func (sp *StandardProduct) Materialise(m *lp.Model) error {
	if err := sp.Entity.Materialise(m); err != nil {
		return err
	}
	n := sp.grid.N()
	var err error
	if sp.longPos, err = sp.series(m, RoleLongPos, n, lp.Continuous); err != nil {
		return err
	}
	if sp.shrtPos, err = sp.series(m, RoleShortPos, n, lp.Continuous); err != nil {
		return err
	}
	if sp.longTrig, err = sp.scalar(m, RoleLongTrig, lp.Binary); err != nil {
		return err
	}
	if sp.shrtTrig, err = sp.scalar(m, RoleShortTrig, lp.Binary); err != nil {
		return err
	}
	if sp.longClip, err = sp.scalar(m, RoleLongClip, lp.Integer); err != nil {
		return err
	}
	if sp.shrtClip, err = sp.scalar(m, RoleShortClip, lp.Integer); err != nil {
		return err
	}
	return nil
}

func (sp *StandardProduct) Emit() error {
	if err := sp.beginEmit(); err != nil {
		return err
	}
	sp.emitAdjacency()

	p := sp.Params
	n := sp.grid.N()
	window := make([]int, 0, p.Delivery.End-p.Delivery.Start+1)

	for t := 0; t < n; t++ {
		if p.Delivery.Contains(t) {
			window = append(window, t)
			continue
		}
		sp.add("iflow_off", t, lp.VarExpr(sp.inFlow[t], 1), lp.Equal, lp.Constant(0))
		sp.add("oflow_off", t, lp.VarExpr(sp.outFlow[t], 1), lp.Equal, lp.Constant(0))
		sp.add("long_off", t, lp.VarExpr(sp.longPos[t], 1), lp.Equal, lp.Constant(0))
		sp.add("shrt_off", t, lp.VarExpr(sp.shrtPos[t], 1), lp.Equal, lp.Constant(0))
	}

	sp.emitSplitBalance(KindTradeTranche, window)

	for _, t := range window {
		dt := sp.grid.Durations[t]
		// (longPos - P0)·Δ = in_flow, (shrtPos + P0)·Δ = out_flow
		sp.add("long_flow", t, lp.VarExpr(sp.longPos[t], dt).Plus(lp.Constant(-p.P0*dt)), lp.Equal, lp.VarExpr(sp.inFlow[t], 1))
		sp.add("shrt_flow", t, lp.VarExpr(sp.shrtPos[t], dt).Plus(lp.Constant(p.P0*dt)), lp.Equal, lp.VarExpr(sp.outFlow[t], 1))
	}
	for t := p.Delivery.Start; t < p.Delivery.End; t++ {
		sp.add("long_unif", t, lp.VarExpr(sp.longPos[t], 1), lp.Equal, lp.VarExpr(sp.longPos[t+1], 1))
		sp.add("shrt_unif", t, lp.VarExpr(sp.shrtPos[t], 1), lp.Equal, lp.VarExpr(sp.shrtPos[t+1], 1))
	}

	proxy := p.Delivery.Start
	sp.emitLots("long", sp.longPos[proxy], sp.longTrig, sp.longClip)
	sp.emitLots("shrt", sp.shrtPos[proxy], sp.shrtTrig, sp.shrtClip)

	if p.ExclusivityCut {
		sp.add("excl", -1, lp.Sum(sp.longTrig, sp.shrtTrig), lp.LessEq, lp.Constant(1))
	}

	if sp.allNeighboursAre(KindMarket) {
		for _, t := range window {
			dt := sp.grid.Durations[t]
			sp.objective.AddTerm(sp.longPos[t], dt*sp.bid[t]*sp.df[t])
			sp.objective.AddTerm(sp.shrtPos[t], -dt*sp.ask[t]*sp.df[t])
		}
	} else {
		for _, t := range window {
			sp.add("close", t, lp.VarExpr(sp.inFlow[t], 1), lp.Equal, lp.VarExpr(sp.outFlow[t], 1))
		}
	}

	sp.emitted = true
	return nil
}

// emitLots adds the minimum trade size and clip rows for one side at the
// proxy period.
func (sp *StandardProduct) emitLots(side string, pos, trig, clip *lp.Var) {
	p := sp.Params
	if p.MinTrade > 0 {
		sp.add(side+"_min_trade", -1, lp.VarExpr(trig, p.MinTrade), lp.LessEq, lp.VarExpr(pos, 1))
		sp.add(side+"_big_m", -1, lp.VarExpr(pos, 1), lp.LessEq, lp.VarExpr(trig, sp.BigM()))
	}
	if p.Clip > 0 {
		lots := lp.VarExpr(clip, p.Clip)
		if p.MinTrade > 0 {
			lots.AddTerm(trig, p.MinTrade)
		}
		sp.add(side+"_clip", -1, lp.VarExpr(pos, 1), lp.Equal, lots)
	}
}

func (sp *StandardProduct) LongPos() []*lp.Var  { return sp.longPos }
func (sp *StandardProduct) ShortPos() []*lp.Var { return sp.shrtPos }

func (sp *StandardProduct) Triggers() (long, short *lp.Var) { return sp.longTrig, sp.shrtTrig }
func (sp *StandardProduct) Clips() (long, short *lp.Var)    { return sp.longClip, sp.shrtClip }

// ProxyPositions returns the long and short positions at the first delivery
// period.
func (sp *StandardProduct) ProxyPositions() []*lp.Var {
	if sp.longPos == nil {
		return nil
	}
	t := sp.Params.Delivery.Start
	return []*lp.Var{sp.longPos[t], sp.shrtPos[t]}
}
