package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	glp "gonum.org/v1/gonum/optimize/convex/lp"

	"gas-valuation/internal/lp"
)

// rankTol is the relative pivot size below which an equality row is treated
// as a combination of the rows already kept.
const rankTol = 1e-9

// lpResult is the outcome of one relaxation: x in original columns and the
// minimisation objective.
type lpResult struct {
	status lpStatus
	x      []float64
	obj    float64
	// fallback is set when the tableau had to take over from gonum.
	fallback bool
}

// solve presolves the relaxation, converts what is left to the standard form
// min cᵀy, Ay = b, y >= 0 and hands it to gonum's simplex.
func (r *relaxation) solve(tol float64) (res lpResult, err error) {
	defer func() { res.fallback = r.fallback }()
	if st := r.presolve(); st != lpOptimal {
		return lpResult{status: st}, nil
	}
	if st := r.dropDependentRows(); st != lpOptimal {
		return lpResult{status: st}, nil
	}
	if st := r.fixEmptyColumns(); st != lpOptimal {
		return lpResult{status: st}, nil
	}

	var cols, rows []int
	for j := 0; j < r.n; j++ {
		if !r.removed[j] {
			cols = append(cols, j)
		}
	}
	for i := range r.a {
		if r.alive[i] {
			rows = append(rows, i)
		}
	}

	x := make([]float64, r.n)
	obj := r.objConst
	if len(cols) > 0 {
		y, yobj, st, err := r.simplex(rows, cols, tol)
		if err != nil || st != lpOptimal {
			return lpResult{status: st}, err
		}
		for k, j := range cols {
			x[j] = r.lo[j] + y[k]
			obj += r.cost[j] * r.lo[j]
		}
		obj += yobj
	}
	r.postsolve(x)
	return lpResult{status: lpOptimal, x: x, obj: obj}, nil
}

// dropDependentRows keeps a linearly independent subset of the live
// equality rows. A dependent row whose right-hand side does not follow from
// the kept rows makes the relaxation infeasible.
func (r *relaxation) dropDependentRows() lpStatus {
	type pivotRow struct {
		col int
		row []float64
		rhs float64
	}
	var basis []pivotRow
	for i := range r.a {
		if !r.alive[i] || r.sense[i] != lp.Equal {
			continue
		}
		row := append([]float64(nil), r.a[i]...)
		rhs := r.rhs[i]
		scale := maxAbs(row)
		for _, b := range basis {
			f := row[b.col] / b.row[b.col]
			if f == 0 {
				continue
			}
			for j, v := range b.row {
				if v != 0 {
					row[j] -= f * v
				}
			}
			rhs -= f * b.rhs
		}
		piv, size := -1, 0.0
		for j, v := range row {
			if math.Abs(v) > size {
				piv, size = j, math.Abs(v)
			}
		}
		if size <= rankTol*math.Max(1, scale) {
			if math.Abs(rhs) > r.tol(r.rhs[i]) {
				return lpInfeasible
			}
			r.alive[i] = false
			continue
		}
		basis = append(basis, pivotRow{col: piv, row: row, rhs: rhs})
	}
	return lpOptimal
}

// simplex builds the standard form over the given rows and columns. Column j
// is shifted by its lower bound; a finite upper bound becomes its own row.
// Inequalities get a slack column. Rows are scaled to unit max norm and
// flipped to a non-negative right-hand side.
func (r *relaxation) simplex(rows, cols []int, tol float64) (y []float64, obj float64, st lpStatus, err error) {
	var bounded []int
	for k, j := range cols {
		if !math.IsInf(r.up[j], 1) {
			bounded = append(bounded, k)
		}
	}
	slacks := len(bounded)
	for _, i := range rows {
		if r.sense[i] != lp.Equal {
			slacks++
		}
	}

	m := len(rows) + len(bounded)
	n := len(cols) + slacks
	A := mat.NewDense(m, n, nil)
	b := make([]float64, m)
	c := make([]float64, n)
	for k, j := range cols {
		c[k] = r.cost[j]
	}

	next := len(cols)
	for ri, i := range rows {
		rhs := r.rhs[i]
		for k, j := range cols {
			if v := r.a[i][j]; v != 0 {
				A.Set(ri, k, v)
				rhs -= v * r.lo[j]
			}
		}
		switch r.sense[i] {
		case lp.LessEq:
			A.Set(ri, next, 1)
			next++
		case lp.GreaterEq:
			A.Set(ri, next, -1)
			next++
		}
		b[ri] = rhs
	}
	for bi, k := range bounded {
		ri := len(rows) + bi
		j := cols[k]
		A.Set(ri, k, 1)
		A.Set(ri, next, 1)
		next++
		b[ri] = r.up[j] - r.lo[j]
	}

	for i := 0; i < m; i++ {
		row := A.RawRowView(i)
		s := maxAbs(row)
		if s == 0 {
			if math.Abs(b[i]) > r.feasTol {
				return nil, 0, lpInfeasible, nil
			}
			b[i] = 0
			continue
		}
		if b[i] < 0 {
			s = -s
		}
		for j := range row {
			row[j] /= s
		}
		b[i] /= s
	}

	if obj, y, err = gonumSimplex(c, A, b, tol); err == nil {
		return y[:len(cols)], obj, lpOptimal, nil
	}
	// gonum's revised simplex gives up on degenerate or near-singular bases,
	// and its infeasible and unbounded verdicts come out of the same
	// pivoting. The tableau settles every case it does not solve.
	r.fallback = true
	y, obj, st, err = tableauSimplex(c, A, b)
	if err != nil || st != lpOptimal {
		return nil, 0, st, err
	}
	return y[:len(cols)], obj, lpOptimal, nil
}

func gonumSimplex(c []float64, A *mat.Dense, b []float64, tol float64) (obj float64, y []float64, err error) {
	defer func() {
		// gonum panics on shapes it cannot factor.
		if p := recover(); p != nil {
			err = fmt.Errorf("simplex: %v", p)
		}
	}()
	return glp.Simplex(c, mat.DenseCopyOf(A), append([]float64(nil), b...), tol, nil)
}

func maxAbs(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
