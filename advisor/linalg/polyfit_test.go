package linalg

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolvePolynomialFit_ExactCubic(t *testing.T) {
	// GIVEN points sampled from 2x^3 - x^2 + 3x + 5
	want := []float64{2, -1, 3, 5}
	xs := []float64{0, 1, 2, 3, 4, 5}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = Polyval(want, x)
	}

	// WHEN fitting a cubic
	got, err := SolvePolynomialFit(xs, ys, 3)

	// THEN the coefficients are recovered
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "coefficient %d", i)
	}
}

func TestSolvePolynomialFit_LineThroughNoisyPoints(t *testing.T) {
	// least-squares line is y = 0.8x + 0.5
	xs := []float64{1, 2, 3, 4}
	ys := []float64{1.5, 1.5, 3.5, 3.5}

	got, err := SolvePolynomialFit(xs, ys, 1)

	require.NoError(t, err)
	assert.InDelta(t, 0.8, got[0], 1e-9)
	assert.InDelta(t, 0.5, got[1], 1e-9)
}

func TestSolvePolynomialFit_InsufficientPoints(t *testing.T) {
	_, err := SolvePolynomialFit([]float64{1, 2, 3}, []float64{1, 2, 3}, 3)
	assert.True(t, errors.Is(err, ErrInsufficientPoints))
}

func TestSolvePolynomialFit_RepeatedXIsSingular(t *testing.T) {
	// GIVEN four samples at the same size
	xs := []float64{1, 1, 1, 1}
	ys := []float64{1, 2, 3, 4}

	_, err := SolvePolynomialFit(xs, ys, 3)

	assert.True(t, errors.Is(err, ErrSingular), "got %v", err)
}

func TestSolvePolynomialFit_LengthMismatch(t *testing.T) {
	_, err := SolvePolynomialFit([]float64{1, 2}, []float64{1}, 1)
	assert.Error(t, err)
}

func TestPolyval_Horner(t *testing.T) {
	assert.Equal(t, 0.0, Polyval(nil, 3))
	assert.Equal(t, 7.0, Polyval([]float64{7}, 100))
	assert.Equal(t, 1+2*3+3*9.0, Polyval([]float64{3, 2, 1}, 3))
	assert.False(t, math.IsNaN(Polyval([]float64{1, 0, 0, 0}, 1e6)))
}

func TestMatrix_TransposeAndMul(t *testing.T) {
	m := NewMatrix(2, 3)
	v := 1.0
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, v)
			v++
		}
	}

	mt := m.T()
	r, c := mt.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, m.At(1, 2), mt.At(2, 1))

	// [[1 2 3][4 5 6]] · its transpose = [[14 32][32 77]]
	p := m.Mul(mt)
	assert.Equal(t, 14.0, p.At(0, 0))
	assert.Equal(t, 32.0, p.At(0, 1))
	assert.Equal(t, 77.0, p.At(1, 1))
}

func TestMatrix_MulDimensionMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { NewMatrix(2, 3).Mul(NewMatrix(2, 3)) })
}

func TestNewMatrix_InvalidDimsPanics(t *testing.T) {
	assert.Panics(t, func() { NewMatrix(0, 1) })
}
