package linalg

import "fmt"

// SolvePolynomialFit returns the least-squares coefficients of a polynomial
// of the given degree through (xs[i], ys[i]), highest degree first.
//
// The design matrix is the Vandermonde matrix A[r][c] = xs[r]^(degree-c).
// The normal equations AᵀA·β = Aᵀy are solved by Gauss-Jordan elimination
// with the pivot fixed on the diagonal; a zero pivot yields ErrSingular.
func SolvePolynomialFit(xs, ys []float64, degree int) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("polynomial fit: %d xs but %d ys", len(xs), len(ys))
	}
	if degree < 0 {
		return nil, fmt.Errorf("polynomial fit: negative degree %d", degree)
	}
	n := degree + 1
	if len(xs) < n {
		return nil, fmt.Errorf("polynomial fit of degree %d with %d points: %w", degree, len(xs), ErrInsufficientPoints)
	}

	a := NewMatrix(len(xs), n)
	y := NewMatrix(len(ys), 1)
	for r, x := range xs {
		p := 1.0
		for c := n - 1; c >= 0; c-- {
			a.Set(r, c, p)
			p *= x
		}
		y.Set(r, 0, ys[r])
	}

	at := a.T()
	ata := at.Mul(a)
	aty := at.Mul(y)

	// augmented [AᵀA | Aᵀy]
	aug := NewMatrix(n, n+1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, ata.At(i, j))
		}
		aug.Set(i, n, aty.At(i, 0))
	}

	for p := 0; p < n; p++ {
		pivot := aug.At(p, p)
		if pivot == 0 {
			return nil, fmt.Errorf("polynomial fit: zero pivot at row %d: %w", p, ErrSingular)
		}
		for j := p; j <= n; j++ {
			aug.Set(p, j, aug.At(p, j)/pivot)
		}
		for i := 0; i < n; i++ {
			if i == p {
				continue
			}
			f := aug.At(i, p)
			if f == 0 {
				continue
			}
			for j := p; j <= n; j++ {
				aug.Set(i, j, aug.At(i, j)-f*aug.At(p, j))
			}
		}
	}

	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = aug.At(i, n)
	}
	return coeffs, nil
}

// Polyval evaluates the polynomial with coefficients highest degree first at x.
func Polyval(coeffs []float64, x float64) float64 {
	v := 0.0
	for _, c := range coeffs {
		v = v*x + c
	}
	return v
}
