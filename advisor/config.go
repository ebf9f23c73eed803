package advisor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the advisor configuration, loadable from a YAML file.
// All sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version      string           `yaml:"version"`
	Device       string           `yaml:"device"`        // accelerator profile name
	ProfilesPath string           `yaml:"profiles_path"` // empty = embedded profiles only
	Seed         string           `yaml:"seed"`          // "builtin", "none" or a seed file path
	PageSize     int              `yaml:"page_size"`
	Trace        string           `yaml:"trace"` // "none" or "decisions"
	Adaptive     AdaptiveConfig   `yaml:"adaptive"`
	Classifier   ClassifierConfig `yaml:"classifier"`
}

// AdaptiveConfig tunes the CPU regression model and its boundary search.
type AdaptiveConfig struct {
	Degree            int     `yaml:"degree"`
	MinErrorRate      float64 `yaml:"min_error_rate"`      // percent; a move below this relative error is undone
	MinBucketSamples  int     `yaml:"min_bucket_samples"`  // a move leaving fewer samples is undone
	MinPredictSamples int     `yaml:"min_predict_samples"` // every bucket needs this many before Estimate answers
	WarmupSamples     int     `yaml:"warmup_samples"`      // distinct sizes before an unseeded model partitions
}

// ClassifierConfig tunes the query shape classifier.
type ClassifierConfig struct {
	MaxTransitions int `yaml:"max_transitions"`
}

const (
	SeedBuiltin = "builtin"
	SeedNone    = "none"

	TraceNone      = "none"
	TraceDecisions = "decisions"

	DefaultDevice   = "smartssd"
	DefaultPageSize = 8192
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Version:  "1",
		Device:   DefaultDevice,
		Seed:     SeedBuiltin,
		PageSize: DefaultPageSize,
		Trace:    TraceNone,
		Adaptive: AdaptiveConfig{
			Degree:            3,
			MinErrorRate:      5,
			MinBucketSamples:  4,
			MinPredictSamples: 4,
			WarmupSamples:     12,
		},
		Classifier: ClassifierConfig{MaxTransitions: 20},
	}
}

// LoadConfig reads a YAML configuration file. Fields absent from the file
// keep their DefaultConfig values; unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading advisor config: %w", err)
	}
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing advisor config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Device == "" {
		problems = append(problems, "device must be set")
	}
	if c.Seed == "" {
		problems = append(problems, fmt.Sprintf("seed must be %q, %q or a file path", SeedBuiltin, SeedNone))
	}
	if c.PageSize <= 0 {
		problems = append(problems, fmt.Sprintf("page_size must be > 0, got %d", c.PageSize))
	}
	if c.Trace != TraceNone && c.Trace != TraceDecisions {
		problems = append(problems, fmt.Sprintf("trace must be %q or %q, got %q", TraceNone, TraceDecisions, c.Trace))
	}
	a := c.Adaptive
	if a.Degree < 1 {
		problems = append(problems, fmt.Sprintf("adaptive.degree must be >= 1, got %d", a.Degree))
	}
	if a.MinErrorRate < 0 {
		problems = append(problems, fmt.Sprintf("adaptive.min_error_rate must be >= 0, got %v", a.MinErrorRate))
	}
	if a.MinBucketSamples < a.Degree+1 {
		problems = append(problems, fmt.Sprintf("adaptive.min_bucket_samples must be >= degree+1 (%d), got %d", a.Degree+1, a.MinBucketSamples))
	}
	if a.MinPredictSamples < 1 {
		problems = append(problems, fmt.Sprintf("adaptive.min_predict_samples must be >= 1, got %d", a.MinPredictSamples))
	}
	// three buckets of degree+1 points with two shared boundaries
	if minWarmup := 3*(a.Degree+1) - 2; a.WarmupSamples < minWarmup {
		problems = append(problems, fmt.Sprintf("adaptive.warmup_samples must be >= %d, got %d", minWarmup, a.WarmupSamples))
	}
	if c.Classifier.MaxTransitions < 1 {
		problems = append(problems, fmt.Sprintf("classifier.max_transitions must be >= 1, got %d", c.Classifier.MaxTransitions))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid advisor config: %s", strings.Join(problems, "; "))
	}
	return nil
}
