package regression

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/biwstack/biw-advisor/advisor"
)

// BucketID names one of the three size regimes of a Model.
type BucketID int

const (
	Small BucketID = iota
	Medium
	Large
	numBuckets
)

func (b BucketID) String() string {
	switch b {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	}
	return fmt.Sprintf("bucket(%d)", int(b))
}

// State is the lifecycle stage of a Model.
type State int

const (
	// Empty models have no buckets yet and collect a warm-up pool.
	Empty State = iota
	// Seeded models were built from historical or warm-up samples.
	Seeded
	// Stable models have absorbed at least one observation since seeding.
	Stable
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Seeded:
		return "seeded"
	case Stable:
		return "stable"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Model is the CPU execution time model of one query class.
//
// Adjacent buckets share their boundary sample: the last sample of Small
// is the first sample of Medium, and likewise for Medium and Large.
// Model is not safe for concurrent use; the engine serializes access.
type Model struct {
	params  advisor.AdaptiveConfig
	state   State
	buckets [numBuckets][]Sample
	fits    [numBuckets]Fit
	fitted  [numBuckets]bool
	warmup  []Sample
}

// NewModel returns an Empty model that partitions itself once it has
// collected params.WarmupSamples distinct sizes.
func NewModel(params advisor.AdaptiveConfig) *Model {
	return &Model{params: params}
}

// NewSeededModel builds a model from three buckets of historical samples.
// The buckets must be sorted by size and share their boundary samples.
func NewSeededModel(params advisor.AdaptiveConfig, buckets [3][]Sample) (*Model, error) {
	if err := validateBuckets(buckets); err != nil {
		return nil, err
	}
	m := &Model{params: params, state: Seeded}
	for b := range buckets {
		m.buckets[b] = append([]Sample(nil), buckets[b]...)
	}
	m.rebalance()
	return m, nil
}

func validateBuckets(buckets [3][]Sample) error {
	for b, bucket := range buckets {
		if len(bucket) == 0 {
			return fmt.Errorf("%s bucket is empty", BucketID(b))
		}
		for i := 1; i < len(bucket); i++ {
			if bucket[i].Size <= bucket[i-1].Size {
				return fmt.Errorf("%s bucket sizes not strictly ascending at index %d", BucketID(b), i)
			}
		}
	}
	for b := Small; b < Large; b++ {
		last := buckets[b][len(buckets[b])-1]
		first := buckets[b+1][0]
		if last.Size != first.Size {
			return fmt.Errorf("%s and %s buckets must share their boundary sample (%v != %v)", b, b+1, last.Size, first.Size)
		}
	}
	return nil
}

// State returns the lifecycle stage.
func (m *Model) State() State { return m.state }

// Buckets returns a copy of the three buckets.
func (m *Model) Buckets() [3][]Sample {
	var out [3][]Sample
	for b := range m.buckets {
		out[b] = append([]Sample(nil), m.buckets[b]...)
	}
	return out
}

// Fits returns the current fit of each bucket and whether it is valid.
func (m *Model) Fits() ([3]Fit, [3]bool) {
	var out [3]Fit
	for b, f := range m.fits {
		out[b] = Fit{
			Coeffs:       append([]float64(nil), f.Coeffs...),
			MeanAbsError: f.MeanAbsError,
			MeanRelError: f.MeanRelError,
		}
	}
	return out, m.fitted
}

// Boundaries returns the first size of the Medium and Large buckets.
// Both are zero while the model is Empty.
func (m *Model) Boundaries() (smallMedium, mediumLarge float64) {
	if m.state == Empty {
		return 0, 0
	}
	return m.buckets[Medium][0].Size, m.buckets[Large][0].Size
}

// WarmupSize returns the number of distinct sizes collected while Empty.
func (m *Model) WarmupSize() int { return len(m.warmup) }

// Estimate predicts the CPU time in milliseconds for an input of sizeK
// thousand rows. It needs MinPredictSamples samples in every bucket.
func (m *Model) Estimate(sizeK float64) (float64, error) {
	if m.state == Empty {
		return 0, fmt.Errorf("model still warming up (%d/%d samples): %w",
			len(m.warmup), m.params.WarmupSamples, advisor.ErrInsufficientData)
	}
	for b, bucket := range m.buckets {
		if len(bucket) < m.params.MinPredictSamples {
			return 0, fmt.Errorf("%s bucket has %d samples, need %d: %w",
				BucketID(b), len(bucket), m.params.MinPredictSamples, advisor.ErrInsufficientData)
		}
	}
	b := m.route(sizeK)
	if !m.fitted[b] {
		return 0, fmt.Errorf("%s bucket has no fit: %w", b, advisor.ErrInsufficientData)
	}
	return m.fits[b].Predict(sizeK), nil
}

// Bucket returns the bucket that owns sizeK.
func (m *Model) Bucket(sizeK float64) BucketID {
	return m.route(sizeK)
}

func (m *Model) route(size float64) BucketID {
	switch {
	case size <= m.buckets[Medium][0].Size:
		return Small
	case size <= m.buckets[Large][0].Size:
		return Medium
	}
	return Large
}

// AddObservation records an observed execution and re-searches both bucket
// boundaries. A size already present has its time averaged with the new one.
func (m *Model) AddObservation(sizeK, timeMs float64) error {
	if math.IsNaN(sizeK) || math.IsInf(sizeK, 0) || sizeK <= 0 {
		return fmt.Errorf("observation size must be a positive number, got %v", sizeK)
	}
	if math.IsNaN(timeMs) || math.IsInf(timeMs, 0) || timeMs < 0 {
		return fmt.Errorf("observation time must be a non-negative number, got %v", timeMs)
	}

	if m.state == Empty {
		m.warmup = insertSample(m.warmup, Sample{Size: sizeK, TimeMs: timeMs})
		if len(m.warmup) >= m.params.WarmupSamples {
			m.partitionWarmup()
		}
		return nil
	}

	b := m.route(sizeK)
	m.buckets[b] = insertSample(m.buckets[b], Sample{Size: sizeK, TimeMs: timeMs})
	// keep the shared copy in the next bucket in step
	if b < Large && sizeK == m.buckets[b+1][0].Size {
		m.buckets[b+1][0].TimeMs = (m.buckets[b+1][0].TimeMs + timeMs) / 2
	}
	logrus.Debugf("[regression] observation size=%.3f time=%.3fms -> %s bucket (%d samples)",
		sizeK, timeMs, b, len(m.buckets[b]))

	m.rebalance()
	m.state = Stable
	return nil
}

// insertSample keeps samples sorted by size, averaging into an existing
// sample of the same size.
func insertSample(samples []Sample, s Sample) []Sample {
	i := sort.Search(len(samples), func(i int) bool { return samples[i].Size >= s.Size })
	if i < len(samples) && samples[i].Size == s.Size {
		samples[i].TimeMs = (samples[i].TimeMs + s.TimeMs) / 2
		return samples
	}
	samples = append(samples, Sample{})
	copy(samples[i+1:], samples[i:])
	samples[i] = s
	return samples
}

// partitionWarmup splits the warm-up pool into three buckets of near-equal
// length sharing their boundary samples.
func (m *Model) partitionWarmup() {
	n := len(m.warmup)
	total := n + 2
	var lengths [3]int
	for b := range lengths {
		lengths[b] = total / 3
		if b < total%3 {
			lengths[b]++
		}
	}
	start := 0
	for b := range m.buckets {
		end := start + lengths[b]
		m.buckets[b] = append([]Sample(nil), m.warmup[start:end]...)
		start = end - 1
	}
	m.warmup = nil
	m.state = Seeded
	logrus.Infof("[regression] warm-up complete with %d samples, boundaries %.3f / %.3f",
		n, m.buckets[Medium][0].Size, m.buckets[Large][0].Size)
	m.rebalance()
}

// rebalance re-searches the Small/Medium boundary and then the
// Medium/Large boundary. A pair that cannot be fitted keeps its previous
// fits and is left unadjusted.
func (m *Model) rebalance() {
	m.adjustPair(Small, true)
	m.adjustPair(Medium, false)
}

func (m *Model) adjustPair(left BucketID, leftIncludeFirst bool) {
	right := left + 1
	a := adjuster{
		degree:           m.params.Degree,
		minErrorRate:     m.params.MinErrorRate,
		minBucketSamples: m.params.MinBucketSamples,
		leftIncludeFirst: leftIncludeFirst,
	}
	oldBoundary := m.buckets[right][0].Size
	best, err := a.adjust(m.buckets[left], m.buckets[right])
	if err != nil {
		logrus.Warnf("[regression] %s/%s fit failed, keeping previous fits: %v", left, right, err)
		return
	}
	m.buckets[left], m.buckets[right] = best.left, best.right
	m.fits[left], m.fits[right] = best.leftFit, best.rightFit
	m.fitted[left], m.fitted[right] = true, true
	if nb := best.boundary(); nb != oldBoundary {
		logrus.Infof("[regression] %s/%s boundary moved %.3f -> %.3f (error %.2f%% / %.2f%%)",
			left, right, oldBoundary, nb, best.leftFit.MeanRelError, best.rightFit.MeanRelError)
	}
}
