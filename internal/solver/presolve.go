package solver

import (
	"fmt"
	"math"

	"gas-valuation/internal/lp"
)

// zeroTol is the magnitude below which a matrix entry produced by
// elimination is treated as zero.
const zeroTol = 1e-11

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

// substitution records x[j] = beta + alpha*x[k] for postsolve.
type substitution struct {
	j, k        int
	alpha, beta float64
}

// relaxation is the LP relaxation of a node: minimise cost·x + objConst over
// dense rows and column bounds. Presolve reduces it in place, so every node
// works on a clone.
type relaxation struct {
	n       int
	a       [][]float64
	sense   []lp.Sense
	rhs     []float64
	alive   []bool
	lo, up  []float64
	cost    []float64
	integer []bool

	removed  []bool
	value    []float64
	subst    []substitution
	objConst float64

	feasTol    float64
	intTol     float64
	infeasible bool
	fallback   bool
}

// newRelaxation translates a maximisation problem into minimisation form.
func newRelaxation(p *lp.Problem, feasTol, intTol float64) (*relaxation, error) {
	n := len(p.Vars)
	col := make(map[*lp.Var]int, n)
	r := &relaxation{
		n:       n,
		lo:      make([]float64, n),
		up:      make([]float64, n),
		cost:    make([]float64, n),
		integer: make([]bool, n),
		removed: make([]bool, n),
		value:   make([]float64, n),
		feasTol: feasTol,
		intTol:  intTol,
	}
	for j, v := range p.Vars {
		if _, dup := col[v]; dup {
			return nil, fmt.Errorf("%w: variable %s listed twice", ErrSolverFailure, v.Name)
		}
		col[v] = j
		r.lo[j], r.up[j] = v.Lower, v.Upper
		r.integer[j] = v.IsInteger()
		if r.integer[j] {
			r.lo[j] = math.Ceil(r.lo[j] - intTol)
			r.up[j] = math.Floor(r.up[j] + intTol)
		}
	}
	for _, t := range p.Objective.Terms {
		j, ok := col[t.Var]
		if !ok {
			return nil, fmt.Errorf("%w: objective uses unknown variable %s", ErrSolverFailure, t.Var.Name)
		}
		r.cost[j] -= t.Coef
	}
	r.objConst = -p.Objective.Constant

	for _, c := range p.Constraints {
		row := make([]float64, n)
		for _, t := range c.Expr.Terms {
			j, ok := col[t.Var]
			if !ok {
				return nil, fmt.Errorf("%w: constraint %s uses unknown variable %s", ErrSolverFailure, c.Name, t.Var.Name)
			}
			row[j] += t.Coef
		}
		r.a = append(r.a, row)
		r.sense = append(r.sense, c.Sense)
		r.rhs = append(r.rhs, c.RHS)
		r.alive = append(r.alive, true)
	}
	return r, nil
}

// clone copies the relaxation with the given column bounds.
func (r *relaxation) clone(lo, up []float64) *relaxation {
	c := &relaxation{
		n:        r.n,
		a:        make([][]float64, len(r.a)),
		sense:    r.sense,
		rhs:      append([]float64(nil), r.rhs...),
		alive:    append([]bool(nil), r.alive...),
		lo:       append([]float64(nil), lo...),
		up:       append([]float64(nil), up...),
		cost:     append([]float64(nil), r.cost...),
		integer:  r.integer,
		removed:  append([]bool(nil), r.removed...),
		value:    append([]float64(nil), r.value...),
		subst:    append([]substitution(nil), r.subst...),
		objConst: r.objConst,
		feasTol:  r.feasTol,
		intTol:   r.intTol,
	}
	for i, row := range r.a {
		c.a[i] = append([]float64(nil), row...)
	}
	return c
}

func (r *relaxation) tol(v float64) float64 {
	return r.feasTol * math.Max(1, math.Abs(v))
}

// presolve removes empty rows, turns row singletons into bounds, fixes
// variables whose bounds meet and eliminates equality doubletons, repeating
// until nothing changes.
func (r *relaxation) presolve() lpStatus {
	for changed := true; changed; {
		changed = false
		for i := range r.a {
			if !r.alive[i] {
				continue
			}
			nz, first, second := r.rowSupport(i)
			switch {
			case nz == 0:
				r.checkEmptyRow(i)
				r.alive[i] = false
				changed = true
			case nz == 1:
				r.applySingleton(i, first)
				r.alive[i] = false
				changed = true
			case nz == 2 && r.sense[i] == lp.Equal:
				if r.eliminateDoubleton(i, first, second) {
					changed = true
				}
			}
			if r.infeasible {
				return lpInfeasible
			}
		}
		for j := 0; j < r.n; j++ {
			if !r.removed[j] && r.up[j]-r.lo[j] <= r.tol(r.lo[j]) {
				r.fix(j, r.lo[j])
				changed = true
			}
		}
	}
	return lpOptimal
}

// rowSupport counts the non-zero entries of row i and returns the first two
// column indices.
func (r *relaxation) rowSupport(i int) (nz, first, second int) {
	first, second = -1, -1
	for j, v := range r.a[i] {
		if v == 0 {
			continue
		}
		switch nz {
		case 0:
			first = j
		case 1:
			second = j
		}
		nz++
	}
	return nz, first, second
}

func (r *relaxation) checkEmptyRow(i int) {
	rhs := r.rhs[i]
	tol := r.tol(rhs)
	switch r.sense[i] {
	case lp.LessEq:
		r.infeasible = rhs < -tol
	case lp.GreaterEq:
		r.infeasible = rhs > tol
	default:
		r.infeasible = math.Abs(rhs) > tol
	}
}

func (r *relaxation) applySingleton(i, j int) {
	a := r.a[i][j]
	v := r.rhs[i] / a
	switch {
	case r.sense[i] == lp.Equal:
		if v < r.lo[j]-r.tol(v) || v > r.up[j]+r.tol(v) {
			r.infeasible = true
			return
		}
		r.fix(j, math.Max(r.lo[j], math.Min(r.up[j], v)))
	case (r.sense[i] == lp.LessEq) == (a > 0):
		r.tightenUpper(j, v)
	default:
		r.tightenLower(j, v)
	}
}

func (r *relaxation) tightenUpper(j int, v float64) {
	if r.integer[j] {
		v = math.Floor(v + r.intTol)
	}
	if v < r.up[j] {
		r.up[j] = v
	}
	if r.up[j] < r.lo[j] {
		if r.up[j] < r.lo[j]-r.tol(r.lo[j]) {
			r.infeasible = true
		}
		r.up[j] = r.lo[j]
	}
}

func (r *relaxation) tightenLower(j int, v float64) {
	if r.integer[j] {
		v = math.Ceil(v - r.intTol)
	}
	if v > r.lo[j] {
		r.lo[j] = v
	}
	if r.lo[j] > r.up[j] {
		if r.lo[j] > r.up[j]+r.tol(r.up[j]) {
			r.infeasible = true
		}
		r.lo[j] = r.up[j]
	}
}

// fix substitutes x[j] = v everywhere and drops column j.
func (r *relaxation) fix(j int, v float64) {
	for i, row := range r.a {
		if !r.alive[i] || row[j] == 0 {
			continue
		}
		r.rhs[i] -= row[j] * v
		row[j] = 0
	}
	r.objConst += r.cost[j] * v
	r.cost[j] = 0
	r.lo[j], r.up[j] = v, v
	r.value[j] = v
	r.removed[j] = true
}

// eliminateDoubleton uses the equality a_p x_p + a_q x_q = b to express a
// continuous column in terms of the other one. Integer columns are never
// eliminated.
func (r *relaxation) eliminateDoubleton(i, p, q int) bool {
	row := r.a[i]
	j, k := p, q
	switch {
	case r.integer[p] && r.integer[q]:
		return false
	case r.integer[p]:
		j, k = q, p
	case !r.integer[q] && math.Abs(row[q]) > math.Abs(row[p]):
		j, k = q, p
	}
	alpha := -row[k] / row[j]
	beta := r.rhs[i] / row[j]

	// lo_j <= beta + alpha*x_k <= up_j
	lower := (r.lo[j] - beta) / alpha
	upper := (r.up[j] - beta) / alpha
	if alpha < 0 {
		lower, upper = upper, lower
	}
	if !math.IsInf(upper, 0) {
		r.tightenUpper(k, upper)
	}
	if !math.IsInf(lower, 0) {
		r.tightenLower(k, lower)
	}
	if r.infeasible {
		return true
	}

	r.alive[i] = false
	for h, other := range r.a {
		if !r.alive[h] || other[j] == 0 {
			continue
		}
		r.rhs[h] -= other[j] * beta
		delta := other[j] * alpha
		other[k] += delta
		if math.Abs(other[k]) < zeroTol*math.Max(1, math.Abs(delta)) {
			other[k] = 0
		}
		other[j] = 0
	}
	r.cost[k] += r.cost[j] * alpha
	r.objConst += r.cost[j] * beta
	r.cost[j] = 0
	r.removed[j] = true
	r.subst = append(r.subst, substitution{j: j, k: k, alpha: alpha, beta: beta})
	return true
}

// fixEmptyColumns settles columns that no longer appear in any live row at
// whichever bound minimises their cost.
func (r *relaxation) fixEmptyColumns() lpStatus {
	used := make([]bool, r.n)
	for i, row := range r.a {
		if !r.alive[i] {
			continue
		}
		for j, v := range row {
			if v != 0 {
				used[j] = true
			}
		}
	}
	for j := 0; j < r.n; j++ {
		if r.removed[j] || used[j] {
			continue
		}
		switch {
		case r.cost[j] >= 0:
			r.fix(j, r.lo[j])
		case !math.IsInf(r.up[j], 1):
			r.fix(j, r.up[j])
		default:
			return lpUnbounded
		}
	}
	return lpOptimal
}

// postsolve completes x with the values of removed columns.
func (r *relaxation) postsolve(x []float64) {
	for j := 0; j < r.n; j++ {
		if r.removed[j] {
			x[j] = r.value[j]
		}
	}
	for s := len(r.subst) - 1; s >= 0; s-- {
		sb := r.subst[s]
		x[sb.j] = sb.beta + sb.alpha*x[sb.k]
	}
}
