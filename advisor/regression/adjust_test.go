package regression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftLeft_KeepsSharedBoundary(t *testing.T) {
	left := []Sample{{1, 1}, {2, 2}, {3, 3}}
	right := []Sample{{3, 3}, {4, 4}, {5, 5}}

	l, r, ok := shiftLeft(left, right)

	require.True(t, ok)
	assert.Equal(t, []Sample{{1, 1}, {2, 2}, {3, 3}, {4, 4}}, l)
	assert.Equal(t, []Sample{{4, 4}, {5, 5}}, r)
	// inputs untouched
	assert.Len(t, left, 3)
	assert.Len(t, right, 3)
}

func TestShiftRight_KeepsSharedBoundary(t *testing.T) {
	left := []Sample{{1, 1}, {2, 2}, {3, 3}}
	right := []Sample{{3, 3}, {4, 4}}

	l, r, ok := shiftRight(left, right)

	require.True(t, ok)
	assert.Equal(t, []Sample{{1, 1}, {2, 2}}, l)
	assert.Equal(t, []Sample{{2, 2}, {3, 3}, {4, 4}}, r)
}

func TestShift_RefusesToEmptyABucket(t *testing.T) {
	_, _, ok := shiftLeft([]Sample{{1, 1}}, []Sample{{1, 1}})
	assert.False(t, ok)
	_, _, ok = shiftRight([]Sample{{1, 1}}, []Sample{{1, 1}})
	assert.False(t, ok)
}

func splitWithErrors(l, r float64) split {
	return split{leftFit: Fit{MeanRelError: l}, rightFit: Fit{MeanRelError: r}}
}

func TestAccepts(t *testing.T) {
	best := splitWithErrors(10, 20)
	tests := []struct {
		name string
		l, r float64
		want bool
	}{
		{"both improve", 9, 19, true},
		{"both worsen", 11, 21, false},
		{"left gain exceeds right loss", 5, 22, true},
		{"left gain below right loss", 9, 22, false},
		{"right gain exceeds left loss", 12, 15, true},
		{"right gain below left loss", 15, 18, false},
		{"no change", 10, 20, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, accepts(best, splitWithErrors(tc.l, tc.r)))
		})
	}
}

func TestAdjust_MovesBoundaryTowardRegimeChange(t *testing.T) {
	// GIVEN a slope change at x=10 with the boundary placed too far left
	f := func(x float64) float64 {
		if x <= 10 {
			return 5 + x
		}
		return 15 + 40*(x-10) + (x-10)*(x-10)*(x-10)
	}
	all := samplesOf(f, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18)
	left := append([]Sample(nil), all[:6]...)  // 1..6
	right := append([]Sample(nil), all[5:]...) // 6..18
	a := adjuster{degree: 3, minErrorRate: 0, minBucketSamples: 4, leftIncludeFirst: true}

	// WHEN adjusted
	best, err := a.adjust(left, right)

	// THEN the pair still shares its boundary and the combined error did not grow
	require.NoError(t, err)
	assert.Equal(t, best.left[len(best.left)-1], best.right[0])
	base, err := a.fitSplit(left, right)
	require.NoError(t, err)
	assert.LessOrEqual(t, best.combinedError(), base.combinedError())
	assert.GreaterOrEqual(t, len(best.left), 4)
	assert.GreaterOrEqual(t, len(best.right), 4)
	assert.Equal(t, len(all)+1, len(best.left)+len(best.right))
}

func TestAdjust_BaselineFailureIsReported(t *testing.T) {
	a := adjuster{degree: 3, minErrorRate: 5, minBucketSamples: 4}
	_, err := a.adjust([]Sample{{1, 1}, {2, 2}}, []Sample{{2, 2}, {3, 3}, {4, 4}, {5, 5}})
	assert.Error(t, err)
}

func TestSearch_NoChangeIsRejected(t *testing.T) {
	// GIVEN a move that leaves the split unchanged
	left := samplesOf(func(x float64) float64 { return x }, 1, 2, 3, 4)
	right := samplesOf(func(x float64) float64 { return x }, 4, 5, 6, 7)
	calls := 0
	move := func(l, r []Sample) ([]Sample, []Sample, bool) {
		calls++
		return l, r, true
	}
	a := adjuster{degree: 1, minErrorRate: -1, minBucketSamples: 0}
	base, err := a.fitSplit(left, right)
	require.NoError(t, err)

	a.search(base, move, 7)

	// THEN the search gives up after one step
	assert.Equal(t, 1, calls)
}

func TestSearch_BoundedByBucketLength(t *testing.T) {
	seed, err := BuiltinSeed()
	require.NoError(t, err)
	buckets, ok := seed.Buckets("mlp")
	require.True(t, ok)
	a := adjuster{degree: 3, minErrorRate: 0, minBucketSamples: 4, leftIncludeFirst: true}
	base, err := a.fitSplit(buckets[Small], buckets[Medium])
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		move func(l, r []Sample) ([]Sample, []Sample, bool)
		max  int
	}{
		"left":  {shiftLeft, len(buckets[Medium])},
		"right": {shiftRight, len(buckets[Small])},
	} {
		calls := 0
		counted := func(l, r []Sample) ([]Sample, []Sample, bool) {
			calls++
			return tc.move(l, r)
		}
		got := a.search(base, counted, tc.max)
		assert.LessOrEqual(t, calls, tc.max, name)
		assert.Equal(t, got.left[len(got.left)-1], got.right[0], name)
	}
}

// zigzag returns samples at xs alternating between lo and hi.
func zigzag(lo, hi float64, xs ...float64) []Sample {
	out := make([]Sample, len(xs))
	for i, x := range xs {
		out[i] = Sample{Size: x, TimeMs: lo}
		if i%2 == 1 {
			out[i].TimeMs = hi
		}
	}
	return out
}

// fixedMove returns a move that always proposes the given split and counts
// how often it was asked.
func fixedMove(left, right []Sample, calls *int) func(l, r []Sample) ([]Sample, []Sample, bool) {
	return func(_, _ []Sample) ([]Sample, []Sample, bool) {
		*calls++
		return left, right, true
	}
}

func TestSearch_StopsWhenASideFallsBelowMinErrorRate(t *testing.T) {
	// GIVEN a badly fitted pair and a candidate that improves both sides,
	// with the left side fitting exactly and the right side still above 5%
	base := adjuster{degree: 1, minErrorRate: 5, minBucketSamples: 4, leftIncludeFirst: true}
	start, err := base.fitSplit(zigzag(10, 1, 1, 2, 3, 4), zigzag(1, 10, 4, 5, 6, 7))
	require.NoError(t, err)
	candLeft := samplesOf(func(x float64) float64 { return x }, 1, 2, 3, 4)
	candRight := zigzag(4, 7, 4, 5, 6, 7)
	cand, err := base.fitSplit(candLeft, candRight)
	require.NoError(t, err)
	require.True(t, accepts(start, cand))
	require.Less(t, cand.leftFit.MeanRelError, 5.0)
	require.GreaterOrEqual(t, cand.rightFit.MeanRelError, 5.0)

	tests := []struct {
		name         string
		minErrorRate float64
		wantLeft     []Sample
	}{
		{"below threshold is not taken", 5, start.left},
		{"taken without a threshold", 0, candLeft},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := base
			a.minErrorRate = tc.minErrorRate
			calls := 0

			// WHEN the search runs
			got := a.search(start, fixedMove(candLeft, candRight, &calls), 5)

			// THEN the candidate is kept only when no side drops under the threshold
			assert.Equal(t, tc.wantLeft, got.left)
			if tc.minErrorRate > 0 {
				assert.Equal(t, 1, calls, "walk stops at the first rejected step")
			}
		})
	}
}

func TestSearch_StopsBeforeLeavingTooFewSamples(t *testing.T) {
	// GIVEN a badly fitted pair and an otherwise better candidate whose
	// right bucket is down to 3 samples
	base := adjuster{degree: 1, minErrorRate: 0, minBucketSamples: 4, leftIncludeFirst: true}
	start, err := base.fitSplit(zigzag(10, 1, 1, 2, 3, 4), zigzag(1, 10, 4, 5, 6, 7))
	require.NoError(t, err)
	linear := func(x float64) float64 { return x }
	candLeft := samplesOf(linear, 1, 2, 3, 4, 5)
	candRight := samplesOf(linear, 5, 6, 7)
	cand, err := base.fitSplit(candLeft, candRight)
	require.NoError(t, err)
	require.True(t, accepts(start, cand))

	tests := []struct {
		name             string
		minBucketSamples int
		wantRightLen     int
	}{
		{"three samples is too few", 4, 4},
		{"allowed at a lower minimum", 3, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := base
			a.minBucketSamples = tc.minBucketSamples
			calls := 0

			got := a.search(start, fixedMove(candLeft, candRight, &calls), 5)

			assert.Len(t, got.right, tc.wantRightLen)
			if tc.minBucketSamples == 4 {
				assert.Equal(t, 1, calls, "walk stops at the first rejected step")
				assert.Equal(t, start.left, got.left)
			}
		})
	}
}
