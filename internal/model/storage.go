package model

import (
	"fmt"

	"gas-valuation/internal/lp"
)

// StorageParams defines the physical and economic parameters of a gas storage.
// Units:
// - WGV: MWh
// - CI, CR: MW
// - StartLevel, FinalLevel, MinLevel, MaxLevel: fraction of WGV
// - MaxInj, MaxRel: fractional availability of CI / CR
// - CostInj, CostRel: currency/MWh
//
// MinLevel and MaxLevel have N+1 entries (one per level point); every other
// series has N.
type StorageParams struct {
	WGV float64
	CI  float64
	CR  float64

	StartLevel float64
	FinalLevel *float64

	MinLevel Coeff
	MaxLevel Coeff
	MaxInj   Coeff
	MaxRel   Coeff
	CostInj  Coeff
	CostRel  Coeff

	DF  Coeff
	Bid Coeff
	Ask Coeff

	// Defaults fills unset coefficients. Nil means DefaultCoefficients().
	Defaults *Coefficients
}

// Storage tracks its level as a fraction of WGV and couples injections and
// releases to its in/out flows.
type Storage struct {
	Entity
	Params StorageParams

	minLev, maxLev   []float64
	maxInj, maxRel   []float64
	costInj, costRel []float64
	df, bid, ask     []float64

	lev  []*lp.Var
	qInj []*lp.Var
	qRel []*lp.Var
}

func NewStorage(name string, p StorageParams) (*Storage, error) {
	s := &Storage{Params: p}
	if err := s.init(name, KindStorage, s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("storage %q: %w", name, err)
	}
	return s, nil
}

func (s *Storage) validate() error {
	p := s.Params
	if p.WGV <= 0 {
		return fmt.Errorf("%w: WGV must be > 0", ErrInvalidParameter)
	}
	if p.CI < 0 || p.CR < 0 {
		return fmt.Errorf("%w: CI and CR must be >= 0", ErrInvalidParameter)
	}
	if p.StartLevel < 0 || p.StartLevel > 1 {
		return fmt.Errorf("%w: start level %g not in [0, 1]", ErrIndexOutOfRange, p.StartLevel)
	}
	if p.FinalLevel != nil && (*p.FinalLevel < 0 || *p.FinalLevel > 1) {
		return fmt.Errorf("%w: final level %g not in [0, 1]", ErrIndexOutOfRange, *p.FinalLevel)
	}
	return nil
}

// SetDispatchGrid installs the grid and coerces every coefficient.
func (s *Storage) SetDispatchGrid(g Grid) error {
	if err := s.Entity.SetDispatchGrid(g); err != nil {
		return err
	}
	d := defaultsOf(s.Params.Defaults)
	p := s.Params
	n := g.N()
	coerce := []struct {
		label string
		dst   *[]float64
		c     Coeff
		def   float64
		size  int
	}{
		{"min_level", &s.minLev, p.MinLevel, d.MinLevel, n + 1},
		{"max_level", &s.maxLev, p.MaxLevel, d.MaxLevel, n + 1},
		{"max_inj", &s.maxInj, p.MaxInj, d.MaxInj, n},
		{"max_rel", &s.maxRel, p.MaxRel, d.MaxRel, n},
		{"cost_inj", &s.costInj, p.CostInj, d.CostInj, n},
		{"cost_rel", &s.costRel, p.CostRel, d.CostRel, n},
		{"df", &s.df, p.DF, d.DF, n},
		{"bid", &s.bid, p.Bid, d.Bid, n},
		{"ask", &s.ask, p.Ask, d.Ask, n},
	}
	for _, c := range coerce {
		vs, err := CoerceCoeffArray(c.c.Or(Scalar(c.def)), c.size)
		if err != nil {
			return fmt.Errorf("storage %q: %s: %w", s.name, c.label, err)
		}
		*c.dst = vs
	}
	return checkDF(s.name, s.df)
}

// Materialise allocates lev[0..N], qInj[0..N-1] and qRel[0..N-1] on top of
// the flows.
func (s *Storage) Materialise(m *lp.Model) error {
	if err := s.Entity.Materialise(m); err != nil {
		return err
	}
	n := s.grid.N()
	var err error
	if s.lev, err = s.series(m, RoleLevel, n+1, lp.Continuous); err != nil {
		return err
	}
	if s.qInj, err = s.series(m, RoleInjection, n, lp.Continuous); err != nil {
		return err
	}
	if s.qRel, err = s.series(m, RoleRelease, n, lp.Continuous); err != nil {
		return err
	}
	return nil
}

func (s *Storage) Emit() error {
	if err := s.beginEmit(); err != nil {
		return err
	}
	s.emitAdjacency()

	p := s.Params
	n := s.grid.N()

	s.add("lev_start", -1, lp.VarExpr(s.lev[0], 1), lp.Equal, lp.Constant(p.StartLevel))
	for tau := 1; tau <= n; tau++ {
		rhs := lp.Sum(s.lev[tau-1], s.qInj[tau-1])
		rhs.AddTerm(s.qRel[tau-1], -1)
		s.add("lev_rec", tau, lp.VarExpr(s.lev[tau], 1), lp.Equal, rhs)
	}
	if p.FinalLevel != nil {
		s.add("lev_final", -1, lp.VarExpr(s.lev[n], 1), lp.Equal, lp.Constant(*p.FinalLevel))
	}

	for tau := 0; tau <= n; tau++ {
		s.add("lev_min", tau, lp.VarExpr(s.lev[tau], 1), lp.GreaterEq, lp.Constant(s.minLev[tau]))
		s.add("lev_max", tau, lp.VarExpr(s.lev[tau], 1), lp.LessEq, lp.Constant(s.maxLev[tau]))
	}

	standalone := !s.HasNeighbours()
	for t := 0; t < n; t++ {
		dt := s.grid.Durations[t]
		s.add("inj_cap", t, lp.VarExpr(s.qInj[t], p.WGV), lp.LessEq, lp.Constant(s.maxInj[t]*p.CI*dt))
		s.add("rel_cap", t, lp.VarExpr(s.qRel[t], p.WGV), lp.LessEq, lp.Constant(s.maxRel[t]*p.CR*dt))

		// An isolated storage has both flows pinned to zero by the base
		// guards, so its flows are priced directly instead of coupled.
		if !standalone {
			s.add("inj_flow", t, lp.VarExpr(s.qInj[t], p.WGV), lp.Equal, lp.VarExpr(s.inFlow[t], 1))
			s.add("rel_flow", t, lp.VarExpr(s.qRel[t], p.WGV), lp.Equal, lp.VarExpr(s.outFlow[t], 1))
		}

		s.objective.AddTerm(s.qInj[t], -p.WGV*s.costInj[t]*s.df[t])
		s.objective.AddTerm(s.qRel[t], -p.WGV*s.costRel[t]*s.df[t])
		if standalone {
			s.objective.AddTerm(s.qInj[t], -p.WGV*s.ask[t]*s.df[t])
			s.objective.AddTerm(s.qRel[t], p.WGV*s.bid[t]*s.df[t])
		}
	}

	s.emitted = true
	return nil
}

func (s *Storage) Level() []*lp.Var     { return s.lev }
func (s *Storage) Injection() []*lp.Var { return s.qInj }
func (s *Storage) Release() []*lp.Var   { return s.qRel }

func defaultsOf(c *Coefficients) Coefficients {
	if c == nil {
		return DefaultCoefficients()
	}
	return *c
}

func checkDF(name string, df []float64) error {
	for t, v := range df {
		if v <= 0 {
			return fmt.Errorf("%q: %w: df[%d] must be > 0 (got %g)", name, ErrInvalidParameter, t, v)
		}
	}
	return nil
}
