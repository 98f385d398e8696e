package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Grid is the dispatch grid: Durations[t] is the length of period t in hours.
type Grid struct {
	Durations []float64
}

// UniformGrid returns n periods of hours each.
func UniformGrid(n int, hours float64) Grid {
	d := make([]float64, n)
	for i := range d {
		d[i] = hours
	}
	return Grid{Durations: d}
}

// N is the number of dispatch periods.
func (g Grid) N() int { return len(g.Durations) }

// Start returns the offset in hours of period t from the grid origin.
func (g Grid) Start(t int) float64 {
	s := 0.0
	for j := 0; j < t && j < len(g.Durations); j++ {
		s += g.Durations[j]
	}
	return s
}

func (g Grid) Validate() error {
	if len(g.Durations) == 0 {
		return fmt.Errorf("%w: dispatch grid is empty", ErrShapeMismatch)
	}
	for t, d := range g.Durations {
		if d <= 0 {
			return fmt.Errorf("%w: duration of period %d must be > 0 (got %g)", ErrInvalidParameter, t, d)
		}
	}
	return nil
}

// Coeff is a per-period coefficient given either as a scalar, broadcast over
// the grid, or as an explicit series. The zero value is "unset" and picks up
// the configured default.
type Coeff struct {
	values []float64
	scalar bool
	set    bool
}

// Scalar returns a coefficient broadcast to every period.
func Scalar(v float64) Coeff {
	return Coeff{values: []float64{v}, scalar: true, set: true}
}

// Series returns a coefficient with one value per period.
func Series(vs ...float64) Coeff {
	cp := make([]float64, len(vs))
	copy(cp, vs)
	return Coeff{values: cp, set: true}
}

func (c Coeff) IsSet() bool    { return c.set }
func (c Coeff) IsScalar() bool { return c.scalar }

// Or returns c when set and def otherwise.
func (c Coeff) Or(def Coeff) Coeff {
	if c.set {
		return c
	}
	return def
}

// Values returns a copy of the raw values (a single value for scalars).
func (c Coeff) Values() []float64 {
	cp := make([]float64, len(c.values))
	copy(cp, c.values)
	return cp
}

// CoerceCoeffArray broadcasts a scalar to length n, adopts a series of length
// n, and fails with ErrShapeMismatch otherwise.
func CoerceCoeffArray(c Coeff, n int) ([]float64, error) {
	if !c.set {
		return nil, fmt.Errorf("%w: coefficient not set", ErrShapeMismatch)
	}
	out := make([]float64, n)
	if c.scalar {
		for i := range out {
			out[i] = c.values[0]
		}
		return out, nil
	}
	if len(c.values) != n {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrShapeMismatch, n, len(c.values))
	}
	copy(out, c.values)
	return out, nil
}

func (c *Coeff) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		*c = Scalar(v)
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return err
		}
		*c = Series(vs...)
	default:
		return fmt.Errorf("%w: line %d: coefficient must be a number or a list", ErrShapeMismatch, node.Line)
	}
	return nil
}

func (c Coeff) MarshalYAML() (interface{}, error) {
	switch {
	case !c.set:
		return nil, nil
	case c.scalar:
		return c.values[0], nil
	default:
		return c.values, nil
	}
}

func (c *Coeff) UnmarshalJSON(raw []byte) error {
	if string(raw) == "null" {
		*c = Coeff{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		*c = Scalar(v)
		return nil
	}
	var vs []float64
	if err := json.Unmarshal(raw, &vs); err != nil {
		return fmt.Errorf("%w: coefficient must be a number or a list", ErrShapeMismatch)
	}
	*c = Series(vs...)
	return nil
}

func (c Coeff) MarshalJSON() ([]byte, error) {
	switch {
	case !c.set:
		return []byte("null"), nil
	case c.scalar:
		return json.Marshal(c.values[0])
	default:
		return json.Marshal(c.values)
	}
}

// Coefficients collects the defaults applied to every unset input so that a
// model is reproducible from its inputs alone.
type Coefficients struct {
	DF       float64
	Bid      float64
	Ask      float64
	MinLevel float64
	MaxLevel float64
	MaxInj   float64
	MaxRel   float64
	CostInj  float64
	CostRel  float64
	BigM     float64
}

// DefaultBigM is the semi-continuous upper bound used when an entity does not
// set its own.
const DefaultBigM = 1e9

// DefaultCoefficients: df 1, bid/ask placeholders 24/26, level band [0, 1],
// full availability, no operating cost.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		DF:       1.0,
		Bid:      24,
		Ask:      26,
		MinLevel: 0,
		MaxLevel: 1,
		MaxInj:   1,
		MaxRel:   1,
		CostInj:  0,
		CostRel:  0,
		BigM:     DefaultBigM,
	}
}
