package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// pivotTol is the smallest tableau entry accepted as a pivot.
	pivotTol = 1e-9
	// blandAfter is the run of degenerate pivots after which the entering
	// column is chosen by Bland's rule, which cannot cycle.
	blandAfter = 50
)

// tableau is a dense simplex tableau for min cᵀy, Ay = b, y >= 0, b >= 0.
// Columns [0, n) are structural, [n, n+m) artificial and the last one holds
// the right-hand side. Row m holds the reduced costs; its last entry is
// minus the current objective.
type tableau struct {
	t     *mat.Dense
	m, n  int
	basis []int
	live  []bool
	tol   float64

	iters, maxIters int
}

func newTableau(A mat.Matrix, b []float64) *tableau {
	m, n := A.Dims()
	tb := &tableau{
		t:        mat.NewDense(m+1, n+m+1, nil),
		m:        m,
		n:        n,
		basis:    make([]int, m),
		live:     make([]bool, m),
		tol:      pivotTol,
		maxIters: 50*(m+n) + 1000,
	}
	for i := 0; i < m; i++ {
		row := tb.row(i)
		for j := 0; j < n; j++ {
			row[j] = A.At(i, j)
		}
		row[n+i] = 1
		row[tb.rhs()] = b[i]
		tb.basis[i] = n + i
		tb.live[i] = true
	}
	return tb
}

func (tb *tableau) rhs() int             { return tb.n + tb.m }
func (tb *tableau) row(i int) []float64 { return tb.t.RawRowView(i) }

// tableauSimplex solves the standard form with the two-phase method. Phase 1
// starts from the artificial basis, so it needs no factorisation and
// tolerates rank-deficient A: a row whose artificial cannot be pivoted out
// is redundant and dropped.
func tableauSimplex(c []float64, A mat.Matrix, b []float64) (y []float64, obj float64, st lpStatus, err error) {
	tb := newTableau(A, b)
	m, n, rhs := tb.m, tb.n, tb.rhs()

	// Phase 1: minimise the sum of the artificials.
	z := tb.row(m)
	for i := 0; i < m; i++ {
		row := tb.row(i)
		floats.AddScaled(z[:n], -1, row[:n])
		z[rhs] -= row[rhs]
	}
	if _, err := tb.run(); err != nil {
		return nil, 0, lpOptimal, err
	}
	if -z[rhs] > 1e-7*math.Max(1, floats.Sum(b)) {
		return nil, 0, lpInfeasible, nil
	}

	for i := 0; i < m; i++ {
		if tb.basis[i] < n {
			continue
		}
		row := tb.row(i)
		q := floats.MaxIdx(absRow(row[:n]))
		if math.Abs(row[q]) <= pivotTol {
			for j := range row {
				row[j] = 0
			}
			tb.live[i] = false
			continue
		}
		tb.pivot(i, q)
	}

	// Phase 2 on the original costs.
	for j := range z {
		z[j] = 0
	}
	copy(z[:n], c)
	for i := 0; i < m; i++ {
		if !tb.live[i] {
			continue
		}
		if cb := c[tb.basis[i]]; cb != 0 {
			floats.AddScaled(z, -cb, tb.row(i))
		}
	}
	tb.tol = pivotTol * math.Max(1, floats.Norm(c, math.Inf(1)))
	st, err = tb.run()
	if err != nil || st != lpOptimal {
		return nil, 0, st, err
	}

	y = make([]float64, n)
	for i := 0; i < m; i++ {
		if tb.live[i] {
			y[tb.basis[i]] = math.Max(0, tb.row(i)[rhs])
		}
	}
	return y, floats.Dot(c, y), lpOptimal, nil
}

// run pivots until no structural column has a negative reduced cost.
func (tb *tableau) run() (lpStatus, error) {
	z := tb.row(tb.m)
	degenerate := 0
	for {
		q := tb.entering(z, degenerate >= blandAfter)
		if q < 0 {
			return lpOptimal, nil
		}
		p := tb.leaving(q, degenerate >= blandAfter)
		if p < 0 {
			return lpUnbounded, nil
		}
		if tb.row(p)[tb.rhs()] <= pivotTol {
			degenerate++
		} else {
			degenerate = 0
		}
		tb.pivot(p, q)
		if tb.iters++; tb.iters > tb.maxIters {
			return lpOptimal, fmt.Errorf("%w: simplex: no convergence after %d pivots", ErrSolverFailure, tb.maxIters)
		}
	}
}

// entering picks the most negative reduced cost, or the first negative one
// under Bland's rule.
func (tb *tableau) entering(z []float64, bland bool) int {
	q, best := -1, -tb.tol
	for j := 0; j < tb.n; j++ {
		if z[j] < best {
			if bland {
				return j
			}
			q, best = j, z[j]
		}
	}
	return q
}

// leaving runs the ratio test on column q. Ties go to the larger pivot, or
// to the smallest basic index under Bland's rule.
func (tb *tableau) leaving(q int, bland bool) int {
	p, best := -1, math.Inf(1)
	rhs := tb.rhs()
	for i := 0; i < tb.m; i++ {
		if !tb.live[i] {
			continue
		}
		row := tb.row(i)
		a := row[q]
		if a <= pivotTol {
			continue
		}
		ratio := math.Max(0, row[rhs]) / a
		switch {
		case p < 0 || ratio < best-1e-12:
			p, best = i, ratio
		case ratio <= best+1e-12:
			if (bland && tb.basis[i] < tb.basis[p]) || (!bland && a > tb.row(p)[q]) {
				p, best = i, ratio
			}
		}
	}
	return p
}

func (tb *tableau) pivot(p, q int) {
	prow := tb.row(p)
	floats.Scale(1/prow[q], prow)
	prow[q] = 1
	for i := 0; i <= tb.m; i++ {
		if i == p {
			continue
		}
		row := tb.row(i)
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, prow)
			row[q] = 0
		}
	}
	tb.basis[p] = q
}

func absRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = math.Abs(v)
	}
	return out
}
