package config

import "fmt"

// Limits bound the size of a network accepted from an untrusted caller. The
// local solver keeps a dense copy of the constraint matrix per search node,
// so memory grows with periods times entities.
type Limits struct {
	MaxPeriods  int
	MaxEntities int
	// MaxSize caps periods * (entities + links).
	MaxSize int
}

func DefaultLimits() Limits {
	return Limits{MaxPeriods: 366, MaxEntities: 64, MaxSize: 1000}
}

// orDefault fills zero fields from DefaultLimits.
func (l Limits) orDefault() Limits {
	d := DefaultLimits()
	if l.MaxPeriods <= 0 {
		l.MaxPeriods = d.MaxPeriods
	}
	if l.MaxEntities <= 0 {
		l.MaxEntities = d.MaxEntities
	}
	if l.MaxSize <= 0 {
		l.MaxSize = d.MaxSize
	}
	return l
}

// Periods is the number of dispatch periods the document asks for, counted
// without building the grid.
func (c *Config) Periods() int {
	switch {
	case len(c.Grid.Hours) > 0:
		return len(c.Grid.Hours)
	case c.Grid.Periods > 0:
		return c.Grid.Periods
	case c.Curve != nil:
		return len(c.Curve.Points)
	}
	return 0
}

func (c *Config) Entities() int {
	return len(c.Storages) + len(c.Markets) + len(c.Products) + len(c.Tranches)
}

// CheckLimits rejects a document larger than l allows. Zero fields of l take
// their DefaultLimits value.
func (c *Config) CheckLimits(l Limits) error {
	l = l.orDefault()
	periods, entities := c.Periods(), c.Entities()
	if periods > l.MaxPeriods {
		return fmt.Errorf("%w: %d periods exceed the limit of %d", ErrInvalidConfig, periods, l.MaxPeriods)
	}
	if entities > l.MaxEntities {
		return fmt.Errorf("%w: %d entities exceed the limit of %d", ErrInvalidConfig, entities, l.MaxEntities)
	}
	if size := periods * (entities + len(c.Links)); size > l.MaxSize {
		return fmt.Errorf("%w: problem size %d (periods x (entities + links)) exceeds the limit of %d",
			ErrInvalidConfig, size, l.MaxSize)
	}
	return nil
}
