package lp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
	Integer
)

func (k VarKind) String() string {
	switch k {
	case Binary:
		return "binary"
	case Integer:
		return "integer"
	default:
		return "continuous"
	}
}

// Var is a decision variable. All variables in this model are non-negative;
// binaries are additionally bounded above by 1.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64

	index int
}

// Index is the position of the variable in its Model, in creation order.
func (v *Var) Index() int { return v.index }

// IsInteger reports whether the variable carries an integrality restriction.
func (v *Var) IsInteger() bool { return v.Kind == Binary || v.Kind == Integer }

// Term is coef * var.
type Term struct {
	Var  *Var
	Coef float64
}

// Expr is an affine expression Σ coef·var + Constant. Terms keep insertion
// order so that the emitted model is identical across runs.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Constant returns the expression c.
func Constant(c float64) Expr { return Expr{Constant: c} }

// VarExpr returns the expression coef*v.
func VarExpr(v *Var, coef float64) Expr {
	return Expr{Terms: []Term{{Var: v, Coef: coef}}}
}

// Sum returns Σ vars.
func Sum(vars ...*Var) Expr {
	e := Expr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	}
	return e
}

// AddTerm appends coef*v. Zero coefficients are dropped.
func (e *Expr) AddTerm(v *Var, coef float64) {
	if coef == 0 {
		return
	}
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
}

// AddExpr appends scale*o.
func (e *Expr) AddExpr(o Expr, scale float64) {
	for _, t := range o.Terms {
		e.AddTerm(t.Var, t.Coef*scale)
	}
	e.Constant += o.Constant * scale
}

// Plus returns e + o without modifying either operand.
func (e Expr) Plus(o Expr) Expr {
	out := Expr{Terms: make([]Term, 0, len(e.Terms)+len(o.Terms)), Constant: e.Constant}
	out.Terms = append(out.Terms, e.Terms...)
	out.AddExpr(o, 1)
	return out
}

// Minus returns e - o.
func (e Expr) Minus(o Expr) Expr {
	out := Expr{Terms: make([]Term, 0, len(e.Terms)+len(o.Terms)), Constant: e.Constant}
	out.Terms = append(out.Terms, e.Terms...)
	out.AddExpr(o, -1)
	return out
}

// Scale returns k*e.
func (e Expr) Scale(k float64) Expr {
	out := Expr{}
	out.AddExpr(e, k)
	return out
}

// Simplify merges repeated variables (keeping first-seen order) and drops
// terms whose coefficients cancel.
func (e Expr) Simplify() Expr {
	pos := make(map[*Var]int, len(e.Terms))
	merged := make([]Term, 0, len(e.Terms))
	for _, t := range e.Terms {
		if i, ok := pos[t.Var]; ok {
			merged[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(merged)
		merged = append(merged, t)
	}
	out := Expr{Terms: merged[:0], Constant: e.Constant}
	for _, t := range merged {
		if t.Coef != 0 {
			out.Terms = append(out.Terms, t)
		}
	}
	return out
}

// Eval evaluates the expression at values keyed by variable name. Missing
// variables evaluate to zero.
func (e Expr) Eval(values map[string]float64) float64 {
	s := e.Constant
	for _, t := range e.Terms {
		s += t.Coef * values[t.Var.Name]
	}
	return s
}

func (e Expr) String() string {
	if len(e.Terms) == 0 {
		return formatCoef(e.Constant)
	}
	var b strings.Builder
	for i, t := range e.Terms {
		c := t.Coef
		switch {
		case i == 0 && c < 0:
			b.WriteString("-")
			c = -c
		case i > 0 && c < 0:
			b.WriteString(" - ")
			c = -c
		case i > 0:
			b.WriteString(" + ")
		}
		if c != 1 {
			b.WriteString(formatCoef(c))
			b.WriteString(" ")
		}
		b.WriteString(t.Var.Name)
	}
	if e.Constant != 0 {
		if e.Constant < 0 {
			fmt.Fprintf(&b, " - %s", formatCoef(-e.Constant))
		} else {
			fmt.Fprintf(&b, " + %s", formatCoef(e.Constant))
		}
	}
	return b.String()
}

func formatCoef(x float64) string {
	if math.IsInf(x, 1) {
		return "inf"
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}
