package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gas-valuation/internal/data"
	"gas-valuation/internal/model"
	"gas-valuation/internal/solver"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks a document that cannot describe a network.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the on-disk network description (YAML). The same shape is
// accepted as JSON by the HTTP API.
type Config struct {
	Name   string `yaml:"name" json:"name"`
	Prefix string `yaml:"prefix" json:"prefix,omitempty"`

	Grid GridConfig `yaml:"grid" json:"grid"`

	// Optional: load the forward curve from a JSON file (e.g. examples/curves/*.json).
	// If both CurveFile and Curve are provided, Curve wins.
	CurveFile string              `yaml:"curve_file" json:"curve_file,omitempty"`
	Curve     *model.ForwardCurve `yaml:"curve" json:"curve,omitempty"`

	Defaults DefaultsConfig `yaml:"defaults" json:"defaults"`
	Solver   SolverConfig   `yaml:"solver" json:"solver"`

	Storages []StorageConfig `yaml:"storages" json:"storages"`
	Markets  []MarketConfig  `yaml:"markets" json:"markets"`
	Products []ProductConfig `yaml:"products" json:"products"`
	Tranches []TrancheConfig `yaml:"tranches" json:"tranches"`
	Links    []LinkConfig    `yaml:"links" json:"links"`
}

// GridConfig gives either explicit period lengths or a uniform grid. When
// both are empty the forward curve defines the grid.
type GridConfig struct {
	Hours       []float64 `yaml:"hours" json:"hours,omitempty"`
	Periods     int       `yaml:"periods" json:"periods,omitempty"`
	PeriodHours float64   `yaml:"period_hours" json:"period_hours,omitempty"`
}

// DefaultsConfig overrides entries of model.DefaultCoefficients().
type DefaultsConfig struct {
	DF       *float64 `yaml:"df" json:"df,omitempty"`
	Bid      *float64 `yaml:"bid" json:"bid,omitempty"`
	Ask      *float64 `yaml:"ask" json:"ask,omitempty"`
	MinLevel *float64 `yaml:"min_level" json:"min_level,omitempty"`
	MaxLevel *float64 `yaml:"max_level" json:"max_level,omitempty"`
	MaxInj   *float64 `yaml:"max_inj" json:"max_inj,omitempty"`
	MaxRel   *float64 `yaml:"max_rel" json:"max_rel,omitempty"`
	CostInj  *float64 `yaml:"cost_inj" json:"cost_inj,omitempty"`
	CostRel  *float64 `yaml:"cost_rel" json:"cost_rel,omitempty"`
	BigM     *float64 `yaml:"big_m" json:"big_m,omitempty"`
}

type SolverConfig struct {
	Controls         string  `yaml:"controls" json:"controls,omitempty"`
	TimeLimitSeconds float64 `yaml:"time_limit_seconds" json:"time_limit_seconds,omitempty"`
	MIPGap           float64 `yaml:"mip_gap" json:"mip_gap,omitempty"`
	MaxNodes         int     `yaml:"max_nodes" json:"max_nodes,omitempty"`
}

type StorageConfig struct {
	Name string `yaml:"name" json:"name"`
	// Optional: load storage parameters from a separate YAML (e.g. examples/storages/*.yaml).
	// Fields set here override the file.
	StorageFile string `yaml:"storage_file" json:"storage_file,omitempty"`

	WGV        float64  `yaml:"wgv" json:"wgv"`
	CI         float64  `yaml:"ci" json:"ci"`
	CR         float64  `yaml:"cr" json:"cr"`
	StartLevel *float64 `yaml:"start_level" json:"start_level,omitempty"`
	FinalLevel *float64 `yaml:"final_level" json:"final_level,omitempty"`

	MinLevel model.Coeff `yaml:"min_level" json:"min_level"`
	MaxLevel model.Coeff `yaml:"max_level" json:"max_level"`
	MaxInj   model.Coeff `yaml:"max_inj" json:"max_inj"`
	MaxRel   model.Coeff `yaml:"max_rel" json:"max_rel"`
	CostInj  model.Coeff `yaml:"cost_inj" json:"cost_inj"`
	CostRel  model.Coeff `yaml:"cost_rel" json:"cost_rel"`

	DF  model.Coeff `yaml:"df" json:"df"`
	Bid model.Coeff `yaml:"bid" json:"bid"`
	Ask model.Coeff `yaml:"ask" json:"ask"`
}

type MarketConfig struct {
	Name string      `yaml:"name" json:"name"`
	DF   model.Coeff `yaml:"df" json:"df"`
	Bid  model.Coeff `yaml:"bid" json:"bid"`
	Ask  model.Coeff `yaml:"ask" json:"ask"`
}

type ProductConfig struct {
	Name           string       `yaml:"name" json:"name"`
	Delivery       model.Period `yaml:"delivery" json:"delivery"`
	P0             float64      `yaml:"p0" json:"p0,omitempty"`
	MinTrade       float64      `yaml:"min_trade" json:"min_trade,omitempty"`
	Clip           float64      `yaml:"clip" json:"clip,omitempty"`
	BigM           float64      `yaml:"big_m" json:"big_m,omitempty"`
	ExclusivityCut bool         `yaml:"exclusivity_cut" json:"exclusivity_cut,omitempty"`

	DF  model.Coeff `yaml:"df" json:"df"`
	Bid model.Coeff `yaml:"bid" json:"bid"`
	Ask model.Coeff `yaml:"ask" json:"ask"`
}

type TrancheConfig struct {
	Name     string       `yaml:"name" json:"name"`
	Delivery model.Period `yaml:"delivery" json:"delivery"`
	// Price is (bid, ask). When omitted the curve's prices at the first
	// delivery period are used.
	Price []float64 `yaml:"price" json:"price,omitempty"`
	// CapacityLimits is (minCap, maxCap); either entry may be null.
	CapacityLimits []*float64  `yaml:"capacity_limits" json:"capacity_limits,omitempty"`
	BigM           float64     `yaml:"big_m" json:"big_m,omitempty"`
	DF             model.Coeff `yaml:"df" json:"df"`
}

// LinkConfig is one directed edge From -> To.
type LinkConfig struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if c.CurveFile != "" && c.Curve == nil {
		curve, err := data.LoadForwardCurveJSON(resolve(dir, c.CurveFile))
		if err != nil {
			return nil, fmt.Errorf("curve_file: %w", err)
		}
		c.Curve = curve
	}
	// If storage_file is set, load it and merge in any explicit overrides.
	for i, s := range c.Storages {
		if s.StorageFile == "" {
			continue
		}
		loaded, err := loadStorageFile(resolve(dir, s.StorageFile))
		if err != nil {
			return nil, fmt.Errorf("storage %q: %w", s.Name, err)
		}
		c.Storages[i] = MergeStorage(loaded, s)
	}
	return &c, nil
}

// resolve prefers interpreting relative paths as relative to the config file
// directory, but falls back to the provided path (relative to cwd) if that
// doesn't exist.
func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// Validate checks the document by building its network.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if _, _, err := c.Build(); err != nil {
		return fmt.Errorf("network config invalid: %w", err)
	}
	return nil
}

// HasFileReferences reports whether the document points at files on disk.
func (c *Config) HasFileReferences() bool {
	if c.CurveFile != "" {
		return true
	}
	for _, s := range c.Storages {
		if s.StorageFile != "" {
			return true
		}
	}
	return false
}

// Coefficients merges Defaults onto model.DefaultCoefficients().
func (c *Config) Coefficients() model.Coefficients {
	out := model.DefaultCoefficients()
	d := c.Defaults
	for _, o := range []struct {
		dst *float64
		src *float64
	}{
		{&out.DF, d.DF},
		{&out.Bid, d.Bid},
		{&out.Ask, d.Ask},
		{&out.MinLevel, d.MinLevel},
		{&out.MaxLevel, d.MaxLevel},
		{&out.MaxInj, d.MaxInj},
		{&out.MaxRel, d.MaxRel},
		{&out.CostInj, d.CostInj},
		{&out.CostRel, d.CostRel},
		{&out.BigM, d.BigM},
	} {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	return out
}

func (c *Config) SolverParams() solver.Params {
	return solver.Params{
		Controls:  c.Solver.Controls,
		TimeLimit: time.Duration(c.Solver.TimeLimitSeconds * float64(time.Second)),
		MIPGap:    c.Solver.MIPGap,
		MaxNodes:  c.Solver.MaxNodes,
	}
}

// DispatchGrid resolves the grid from explicit hours, a uniform grid or the
// forward curve, in that order.
func (c *Config) DispatchGrid() (model.Grid, error) {
	g := c.Grid
	switch {
	case len(g.Hours) > 0:
		grid := model.Grid{Durations: append([]float64(nil), g.Hours...)}
		return grid, grid.Validate()
	case g.Periods > 0:
		h := g.PeriodHours
		if h == 0 {
			h = 24
		}
		grid := model.UniformGrid(g.Periods, h)
		return grid, grid.Validate()
	case c.Curve != nil:
		return c.Curve.Grid()
	default:
		return model.Grid{}, fmt.Errorf("%w: grid needs hours, periods or a curve", ErrInvalidConfig)
	}
}

// Build creates every entity, links them and returns the network with the
// dispatch grid it is meant to be solved on. The grid is not installed yet.
func (c *Config) Build() (*model.Network, model.Grid, error) {
	g, err := c.DispatchGrid()
	if err != nil {
		return nil, model.Grid{}, err
	}
	if c.Entities() == 0 {
		return nil, g, fmt.Errorf("%w: no entities", ErrInvalidConfig)
	}
	defaults := c.Coefficients()
	curveDF, curveBid, curveAsk := model.Coeff{}, model.Coeff{}, model.Coeff{}
	if c.Curve != nil {
		curveDF, curveBid, curveAsk = c.Curve.Coefficients()
	}

	name := c.Name
	if name == "" {
		name = "network"
	}
	net := model.NewNetwork(name, c.Prefix)

	for _, s := range c.Storages {
		st, err := model.NewStorage(s.Name, model.StorageParams{
			WGV:        s.WGV,
			CI:         s.CI,
			CR:         s.CR,
			StartLevel: valueOr(s.StartLevel, 0),
			FinalLevel: s.FinalLevel,
			MinLevel:   s.MinLevel,
			MaxLevel:   s.MaxLevel,
			MaxInj:     s.MaxInj,
			MaxRel:     s.MaxRel,
			CostInj:    s.CostInj,
			CostRel:    s.CostRel,
			DF:         s.DF.Or(curveDF),
			Bid:        s.Bid.Or(curveBid),
			Ask:        s.Ask.Or(curveAsk),
			Defaults:   &defaults,
		})
		if err != nil {
			return nil, g, err
		}
		if err := net.Add(st); err != nil {
			return nil, g, err
		}
	}
	for _, m := range c.Markets {
		mk, err := model.NewMarket(m.Name, model.MarketParams{
			DF:       m.DF.Or(curveDF),
			Bid:      m.Bid.Or(curveBid),
			Ask:      m.Ask.Or(curveAsk),
			Defaults: &defaults,
		})
		if err != nil {
			return nil, g, err
		}
		if err := net.Add(mk); err != nil {
			return nil, g, err
		}
	}
	for _, p := range c.Products {
		sp, err := model.NewStandardProduct(p.Name, model.ProductParams{
			Delivery:       p.Delivery,
			P0:             p.P0,
			MinTrade:       p.MinTrade,
			Clip:           p.Clip,
			BigM:           p.BigM,
			ExclusivityCut: p.ExclusivityCut,
			DF:             p.DF.Or(curveDF),
			Bid:            p.Bid.Or(curveBid),
			Ask:            p.Ask.Or(curveAsk),
			Defaults:       &defaults,
		})
		if err != nil {
			return nil, g, err
		}
		if err := net.Add(sp); err != nil {
			return nil, g, err
		}
	}
	for _, t := range c.Tranches {
		price := t.Price
		if len(price) == 0 && c.Curve != nil {
			if t.Delivery.Start < 0 || t.Delivery.Start >= len(c.Curve.Points) {
				return nil, g, fmt.Errorf("tranche %q: %w: delivery start %d outside the curve", t.Name, model.ErrIndexOutOfRange, t.Delivery.Start)
			}
			pt := c.Curve.Points[t.Delivery.Start]
			price = []float64{pt.Bid, pt.Ask}
		}
		tr, err := model.NewTradeTranche(t.Name, model.TrancheParams{
			Price:          price,
			Delivery:       t.Delivery,
			CapacityLimits: t.CapacityLimits,
			BigM:           t.BigM,
			DF:             t.DF.Or(curveDF),
			Defaults:       &defaults,
		})
		if err != nil {
			return nil, g, err
		}
		if err := net.Add(tr); err != nil {
			return nil, g, err
		}
	}
	for _, l := range c.Links {
		if err := net.Link(l.From, l.To); err != nil {
			return nil, g, fmt.Errorf("link %s -> %s: %w", l.From, l.To, err)
		}
	}
	// Catch shape and delivery errors here rather than at solve time.
	if err := net.SetDispatchGrid(g); err != nil {
		return nil, g, err
	}
	return net, g, nil
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

type storageFileWrapper struct {
	Storage StorageConfig `yaml:"storage"`
}

func loadStorageFile(path string) (StorageConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StorageConfig{}, err
	}
	var w storageFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return StorageConfig{}, err
	}
	return w.Storage, nil
}

// MergeStorage overlays set fields from override onto base.
// This is used when loading a storage file and then applying overrides from the network document.
func MergeStorage(base, override StorageConfig) StorageConfig {
	out := base
	out.StorageFile = override.StorageFile
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.WGV != 0 {
		out.WGV = override.WGV
	}
	if override.CI != 0 {
		out.CI = override.CI
	}
	if override.CR != 0 {
		out.CR = override.CR
	}
	if override.StartLevel != nil {
		out.StartLevel = override.StartLevel
	}
	if override.FinalLevel != nil {
		out.FinalLevel = override.FinalLevel
	}
	out.MinLevel = override.MinLevel.Or(base.MinLevel)
	out.MaxLevel = override.MaxLevel.Or(base.MaxLevel)
	out.MaxInj = override.MaxInj.Or(base.MaxInj)
	out.MaxRel = override.MaxRel.Or(base.MaxRel)
	out.CostInj = override.CostInj.Or(base.CostInj)
	out.CostRel = override.CostRel.Or(base.CostRel)
	out.DF = override.DF.Or(base.DF)
	out.Bid = override.Bid.Or(base.Bid)
	out.Ask = override.Ask.Or(base.Ask)
	return out
}
