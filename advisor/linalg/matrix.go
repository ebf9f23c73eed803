// Package linalg provides the dense matrix operations and least-squares
// polynomial fitting used by the CPU regression model.
package linalg

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientPoints is returned when a fit has fewer points than coefficients.
	ErrInsufficientPoints = errors.New("insufficient points for polynomial fit")

	// ErrSingular is returned when elimination meets a zero pivot.
	ErrSingular = errors.New("singular normal equations")
)

// Matrix is a dense row-major matrix of float64.
type Matrix struct {
	d *mat.Dense
}

// NewMatrix returns a zeroed rows×cols matrix. Both dimensions must be positive.
func NewMatrix(rows, cols int) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("linalg: invalid matrix dimensions %dx%d", rows, cols))
	}
	return &Matrix{d: mat.NewDense(rows, cols, nil)}
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return m.d.Dims()
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.d.At(i, j)
}

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v float64) {
	m.d.Set(i, j, v)
}

// T returns a new matrix holding the transpose of m.
func (m *Matrix) T() *Matrix {
	r, c := m.d.Dims()
	out := mat.NewDense(c, r, nil)
	out.Copy(m.d.T())
	return &Matrix{d: out}
}

// Mul returns the product m·n. It panics if the inner dimensions differ.
func (m *Matrix) Mul(n *Matrix) *Matrix {
	_, mc := m.d.Dims()
	nr, _ := n.d.Dims()
	if mc != nr {
		panic(fmt.Sprintf("linalg: dimension mismatch %d != %d", mc, nr))
	}
	var out mat.Dense
	out.Mul(m.d, n.d)
	return &Matrix{d: &out}
}

