// Package regression implements the per-class CPU execution time model:
// three size buckets, each fitted with a least-squares polynomial, whose
// boundaries are re-searched after every observation.
package regression

import (
	"fmt"
	"math"

	"github.com/biwstack/biw-advisor/advisor/linalg"
)

// Sample is one observed execution: input size in thousands of rows and elapsed milliseconds.
type Sample struct {
	Size   float64 `json:"size" yaml:"size"`
	TimeMs float64 `json:"time_ms" yaml:"time_ms"`
}

// Fit is a fitted polynomial plus its error against the samples it was fitted on.
type Fit struct {
	Coeffs       []float64 `json:"coeffs" yaml:"coeffs"` // highest degree first
	MeanAbsError float64   `json:"mean_abs_error" yaml:"mean_abs_error"`
	MeanRelError float64   `json:"mean_rel_error" yaml:"mean_rel_error"` // percent
}

// Predict evaluates the fitted polynomial at size.
func (f Fit) Predict(size float64) float64 {
	return linalg.Polyval(f.Coeffs, size)
}

// FitSamples fits a polynomial of the given degree to samples and measures
// its error. When includeFirst is false the first sample is left out of the
// error sums; the sums are still divided by len(samples).
func FitSamples(samples []Sample, degree int, includeFirst bool) (Fit, error) {
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Size
		ys[i] = s.TimeMs
	}
	coeffs, err := linalg.SolvePolynomialFit(xs, ys, degree)
	if err != nil {
		return Fit{}, fmt.Errorf("fit %d samples: %w", len(samples), err)
	}

	var absSum, relSum float64
	for j, s := range samples {
		if j == 0 && !includeFirst {
			continue
		}
		e := math.Abs(s.TimeMs - linalg.Polyval(coeffs, s.Size))
		absSum += e
		// a zero observation has no defined relative error
		if s.TimeMs != 0 {
			relSum += e / s.TimeMs * 100
		}
	}
	n := float64(len(samples))
	return Fit{Coeffs: coeffs, MeanAbsError: absSum / n, MeanRelError: relSum / n}, nil
}
