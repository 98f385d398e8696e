package lp

import (
	"errors"
	"fmt"
	"math"
)

// ErrDuplicateVar is returned when two variables resolve to the same name.
var ErrDuplicateVar = errors.New("duplicate variable name")

// Sense is the relation of a constraint row.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "<="
	}
}

// Constraint is Expr (sense) RHS with all constants folded into RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// NewConstraint builds lhs (sense) rhs, moving every variable to the left and
// every constant to the right.
func NewConstraint(name string, lhs Expr, sense Sense, rhs Expr) Constraint {
	d := lhs.Minus(rhs).Simplify()
	c := Constraint{Name: name, Sense: sense, RHS: -d.Constant}
	if c.RHS == 0 {
		c.RHS = 0 // drop the sign of -0
	}
	d.Constant = 0
	c.Expr = d
	return c
}

// Slack returns how far the constraint is from being violated at values;
// a negative slack is a violation.
func (c Constraint) Slack(values map[string]float64) float64 {
	lhs := c.Expr.Eval(values)
	switch c.Sense {
	case GreaterEq:
		return lhs - c.RHS
	case Equal:
		return -math.Abs(lhs - c.RHS)
	default:
		return c.RHS - lhs
	}
}

// Satisfied reports whether the constraint holds at values within tol.
func (c Constraint) Satisfied(values map[string]float64, tol float64) bool {
	return c.Slack(values) >= -tol
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s: %s %s %s", c.Name, c.Expr.String(), c.Sense, formatCoef(c.RHS))
}

// VarName renders <prefix><entity>_<role>_<index>. A negative index marks a
// scalar variable and is omitted.
func VarName(prefix, entity, role string, index int) string {
	if index < 0 {
		return fmt.Sprintf("%s%s_%s", prefix, entity, role)
	}
	return fmt.Sprintf("%s%s_%s_%d", prefix, entity, role, index)
}

// Model owns every variable of one problem instance.
type Model struct {
	prefix string
	vars   []*Var
	byName map[string]*Var
}

func NewModel(prefix string) *Model {
	return &Model{prefix: prefix, byName: map[string]*Var{}}
}

func (m *Model) Prefix() string { return m.prefix }

// NewVar allocates the variable keyed by (entity, role, index).
func (m *Model) NewVar(entity, role string, index int, kind VarKind) (*Var, error) {
	name := VarName(m.prefix, entity, role, index)
	if _, ok := m.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVar, name)
	}
	v := &Var{Name: name, Kind: kind, Lower: 0, Upper: math.Inf(1), index: len(m.vars)}
	if kind == Binary {
		v.Upper = 1
	}
	m.vars = append(m.vars, v)
	m.byName[name] = v
	return v, nil
}

// NewSeries allocates n variables indexed 0..n-1.
func (m *Model) NewSeries(entity, role string, n int, kind VarKind) ([]*Var, error) {
	out := make([]*Var, n)
	for t := 0; t < n; t++ {
		v, err := m.NewVar(entity, role, t, kind)
		if err != nil {
			return nil, err
		}
		out[t] = v
	}
	return out, nil
}

// Vars returns the variables in creation order.
func (m *Model) Vars() []*Var { return m.vars }

func (m *Model) Lookup(name string) (*Var, bool) {
	v, ok := m.byName[name]
	return v, ok
}

// Problem is a maximisation MILP ready to hand to a solver.
type Problem struct {
	Name        string
	Vars        []*Var
	Objective   Expr
	Constraints []Constraint
}

// NumIntegers counts binary and integer variables.
func (p *Problem) NumIntegers() int {
	n := 0
	for _, v := range p.Vars {
		if v.IsInteger() {
			n++
		}
	}
	return n
}

// Violations lists the names of constraints and bounds broken at values.
func (p *Problem) Violations(values map[string]float64, tol float64) []string {
	var out []string
	for _, v := range p.Vars {
		x := values[v.Name]
		if x < v.Lower-tol || x > v.Upper+tol {
			out = append(out, "bound:"+v.Name)
		}
	}
	for _, c := range p.Constraints {
		if !c.Satisfied(values, tol) {
			out = append(out, c.Name)
		}
	}
	return out
}
