package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTableauSolvesStandardForm(t *testing.T) {
	// max 3x + 2y, x + y <= 4, x + 3y <= 6, x <= 3 with slacks s1..s3.
	A := mat.NewDense(3, 5, []float64{
		1, 1, 1, 0, 0,
		1, 3, 0, 1, 0,
		1, 0, 0, 0, 1,
	})
	y, obj, st, err := tableauSimplex([]float64{-3, -2, 0, 0, 0}, A, []float64{4, 6, 3})
	require.NoError(t, err)
	require.Equal(t, lpOptimal, st)
	assert.InDelta(t, -11, obj, 1e-9)
	assert.InDelta(t, 3, y[0], 1e-9)
	assert.InDelta(t, 1, y[1], 1e-9)
}

func TestTableauDropsRedundantRows(t *testing.T) {
	// The second and third rows repeat the first, so A has rank one.
	A := mat.NewDense(3, 2, []float64{
		1, 1,
		1, 1,
		2, 2,
	})
	y, obj, st, err := tableauSimplex([]float64{1, 2}, A, []float64{2, 2, 4})
	require.NoError(t, err)
	require.Equal(t, lpOptimal, st)
	assert.InDelta(t, 2, obj, 1e-9)
	assert.InDelta(t, 2, y[0], 1e-9)
	assert.InDelta(t, 0, y[1], 1e-9)
}

func TestTableauDegenerateCycle(t *testing.T) {
	// Beale's example cycles under the largest-coefficient rule alone.
	A := mat.NewDense(3, 7, []float64{
		1, 0, 0, 0.25, -8, -1, 9,
		0, 1, 0, 0.5, -12, -0.5, 3,
		0, 0, 1, 0, 0, 1, 0,
	})
	c := []float64{0, 0, 0, -0.75, 20, -0.5, 6}
	y, obj, st, err := tableauSimplex(c, A, []float64{0, 0, 1})
	require.NoError(t, err)
	require.Equal(t, lpOptimal, st)
	assert.InDelta(t, -1.25, obj, 1e-9)
	assert.InDelta(t, 1, y[3], 1e-9)
	assert.InDelta(t, 1, y[5], 1e-9)
}

func TestTableauInfeasibleAndUnbounded(t *testing.T) {
	A := mat.NewDense(2, 2, []float64{
		1, 1,
		1, 1,
	})
	_, _, st, err := tableauSimplex([]float64{1, 1}, A, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, lpInfeasible, st)

	// min -x with x - y = 1 grows without limit along y.
	A = mat.NewDense(1, 2, []float64{1, -1})
	_, _, st, err = tableauSimplex([]float64{-1, 0}, A, []float64{1})
	require.NoError(t, err)
	assert.Equal(t, lpUnbounded, st)
}
