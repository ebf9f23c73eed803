package regression

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/biwstack/biw-advisor/advisor"
)

//go:embed seed.yaml
var builtinSeed []byte

// Seed is a historical dataset of CPU execution times: three shared-boundary
// size buckets and, per query class, the measured time at every size.
type Seed struct {
	Sizes [][]float64                        `yaml:"sizes"`
	Times map[advisor.QueryClass][][]float64 `yaml:"times"`
}

// BuiltinSeed returns the embedded historical dataset.
func BuiltinSeed() (*Seed, error) {
	s, err := ParseSeed(builtinSeed)
	if err != nil {
		return nil, fmt.Errorf("builtin seed: %w", err)
	}
	return s, nil
}

// LoadSeed reads a seed dataset from a YAML file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	s, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("seed file %q: %w", path, err)
	}
	return s, nil
}

// ParseSeed decodes and validates a seed dataset. Unknown fields are rejected.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing seed YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks bucket shape and that every class has one time per size.
func (s *Seed) Validate() error {
	if len(s.Sizes) != int(numBuckets) {
		return fmt.Errorf("seed must have %d size buckets, got %d", numBuckets, len(s.Sizes))
	}
	for class, times := range s.Times {
		if !advisor.IsValidQueryClass(string(class)) {
			return fmt.Errorf("seed has unknown query class %q", class)
		}
		if len(times) != len(s.Sizes) {
			return fmt.Errorf("seed class %q has %d time buckets, want %d", class, len(times), len(s.Sizes))
		}
		for b := range times {
			if len(times[b]) != len(s.Sizes[b]) {
				return fmt.Errorf("seed class %q %s bucket has %d times for %d sizes",
					class, BucketID(b), len(times[b]), len(s.Sizes[b]))
			}
		}
	}
	// shape checks on the sizes themselves
	if _, err := s.buckets(nil); err != nil {
		return err
	}
	return nil
}

// Classes returns the seeded query classes in canonical order.
func (s *Seed) Classes() []advisor.QueryClass {
	order := make(map[advisor.QueryClass]int, len(advisor.QueryClasses))
	for i, c := range advisor.QueryClasses {
		order[c] = i
	}
	out := make([]advisor.QueryClass, 0, len(s.Times))
	for c := range s.Times {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

// Buckets returns the three sample buckets of one class.
func (s *Seed) Buckets(class advisor.QueryClass) ([3][]Sample, bool) {
	times, ok := s.Times[class]
	if !ok {
		return [3][]Sample{}, false
	}
	b, err := s.buckets(times)
	if err != nil {
		return [3][]Sample{}, false
	}
	return b, true
}

// buckets pairs sizes with times; nil times yields zero times.
func (s *Seed) buckets(times [][]float64) ([3][]Sample, error) {
	var out [3][]Sample
	for b := range out {
		out[b] = make([]Sample, len(s.Sizes[b]))
		for i, size := range s.Sizes[b] {
			out[b][i].Size = size
			if times != nil {
				out[b][i].TimeMs = times[b][i]
			}
		}
	}
	if err := validateBuckets(out); err != nil {
		return [3][]Sample{}, fmt.Errorf("seed sizes: %w", err)
	}
	return out, nil
}
