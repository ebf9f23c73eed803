package regression

import (
	"github.com/sirupsen/logrus"
)

// split is one candidate partition of an adjacent bucket pair.
type split struct {
	left, right       []Sample
	leftFit, rightFit Fit
}

func (s split) combinedError() float64 {
	return s.leftFit.MeanRelError + s.rightFit.MeanRelError
}

func (s split) boundary() float64 {
	return s.right[0].Size
}

// adjuster searches the boundary between two adjacent buckets.
type adjuster struct {
	degree           int
	minErrorRate     float64
	minBucketSamples int
	leftIncludeFirst bool
}

// fitSplit fits both sides of a candidate partition. The right bucket's
// first sample is shared with the left bucket and never counted twice.
func (a adjuster) fitSplit(left, right []Sample) (split, error) {
	lf, err := FitSamples(left, a.degree, a.leftIncludeFirst)
	if err != nil {
		return split{}, err
	}
	rf, err := FitSamples(right, a.degree, false)
	if err != nil {
		return split{}, err
	}
	return split{left: left, right: right, leftFit: lf, rightFit: rf}, nil
}

// adjust fits the pair as given and then explores moving the boundary in
// both directions, returning the better of the two outcomes. An error means
// the pair as given could not be fitted.
func (a adjuster) adjust(left, right []Sample) (split, error) {
	base, err := a.fitSplit(left, right)
	if err != nil {
		return split{}, err
	}

	viaLeft := a.search(base, shiftLeft, len(right))
	viaRight := a.search(base, shiftRight, len(left))

	best := viaRight
	if viaLeft.combinedError() < viaRight.combinedError() {
		best = viaLeft
	}
	if best.boundary() != base.boundary() {
		logrus.Debugf("[adjust] boundary %.3f -> %.3f, error %.3f%%+%.3f%% -> %.3f%%+%.3f%%",
			base.boundary(), best.boundary(),
			base.leftFit.MeanRelError, base.rightFit.MeanRelError,
			best.leftFit.MeanRelError, best.rightFit.MeanRelError)
	}
	return best, nil
}

// search repeatedly applies move, keeping each step that the acceptance
// rule allows, and stops at the first rejected step.
func (a adjuster) search(best split, move func(left, right []Sample) ([]Sample, []Sample, bool), maxSteps int) split {
	for step := 0; step < maxSteps; step++ {
		left, right, ok := move(best.left, best.right)
		if !ok {
			break
		}
		next, err := a.fitSplit(left, right)
		if err != nil {
			logrus.Debugf("[adjust] stop at step %d: %v", step, err)
			break
		}
		if !accepts(best, next) {
			break
		}
		if next.leftFit.MeanRelError < a.minErrorRate || next.rightFit.MeanRelError < a.minErrorRate {
			break
		}
		if len(next.left) < a.minBucketSamples || len(next.right) < a.minBucketSamples {
			break
		}
		best = next
	}
	return best
}

// accepts compares a candidate with the best split so far. Improving both
// sides accepts and worsening both rejects; otherwise the improvement on
// one side must exceed the regression on the other.
func accepts(best, next split) bool {
	bl, br := best.leftFit.MeanRelError, best.rightFit.MeanRelError
	nl, nr := next.leftFit.MeanRelError, next.rightFit.MeanRelError
	switch {
	case nl < bl && nr < br:
		return true
	case nl > bl && nr > br:
		return false
	case nl < bl && nr > br:
		return bl-nl > nr-br
	default:
		return br-nr > nl-bl
	}
}

// shiftLeft moves the boundary one sample to the right: the left bucket
// gains the right bucket's second sample, which becomes the new shared
// boundary, and the right bucket drops its first.
func shiftLeft(left, right []Sample) ([]Sample, []Sample, bool) {
	if len(right) < 2 {
		return nil, nil, false
	}
	l := make([]Sample, len(left), len(left)+1)
	copy(l, left)
	l = append(l, right[1])
	r := append([]Sample(nil), right[1:]...)
	return l, r, true
}

// shiftRight moves the boundary one sample to the left: the right bucket
// gains the left bucket's second-to-last sample and the left bucket drops
// its last.
func shiftRight(left, right []Sample) ([]Sample, []Sample, bool) {
	if len(left) < 2 {
		return nil, nil, false
	}
	r := make([]Sample, 0, len(right)+1)
	r = append(r, left[len(left)-2])
	r = append(r, right...)
	l := append([]Sample(nil), left[:len(left)-1]...)
	return l, r, true
}
