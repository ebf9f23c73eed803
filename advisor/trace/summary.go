package trace

import (
	"math"

	"github.com/biwstack/biw-advisor/advisor"
)

// Summary aggregates statistics from a Trace.
type Summary struct {
	TotalDecisions    int                            `json:"total_decisions" yaml:"total_decisions"`
	CPUCount          int                            `json:"cpu" yaml:"cpu"`
	AcceleratorCount  int                            `json:"accelerator" yaml:"accelerator"`
	FallbackCount     int                            `json:"fallbacks" yaml:"fallbacks"`
	FallbackReasons   map[advisor.FallbackReason]int `json:"fallback_reasons" yaml:"fallback_reasons"`
	ClassDistribution map[advisor.QueryClass]int     `json:"class_distribution" yaml:"class_distribution"`
	TotalOutcomes     int                            `json:"total_outcomes" yaml:"total_outcomes"`
	EstimatedOutcomes int                            `json:"estimated_outcomes" yaml:"estimated_outcomes"`
	MeanAbsErrorMs    float64                        `json:"mean_abs_error_ms" yaml:"mean_abs_error_ms"`
	MaxAbsErrorMs     float64                        `json:"max_abs_error_ms" yaml:"max_abs_error_ms"`
	MeanRelErrorPct   float64                        `json:"mean_rel_error_pct" yaml:"mean_rel_error_pct"`
	ClassErrorPct     map[advisor.QueryClass]float64 `json:"class_error_pct" yaml:"class_error_pct"`
}

// Summarize computes aggregate statistics from a Trace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *Trace) *Summary {
	s := &Summary{
		FallbackReasons:   make(map[advisor.FallbackReason]int),
		ClassDistribution: make(map[advisor.QueryClass]int),
		ClassErrorPct:     make(map[advisor.QueryClass]float64),
	}
	if t == nil {
		return s
	}

	s.TotalDecisions = len(t.Decisions)
	for _, d := range t.Decisions {
		if !d.Predicted {
			s.FallbackCount++
			s.FallbackReasons[d.Reason]++
		}
		if d.Choice == advisor.ChoiceAccelerator {
			s.AcceleratorCount++
		} else {
			s.CPUCount++
		}
		if d.Class != "" {
			s.ClassDistribution[d.Class]++
		}
	}

	s.TotalOutcomes = len(t.Outcomes)
	var absSum, relSum float64
	var relCount int
	classSum := make(map[advisor.QueryClass]float64)
	classCount := make(map[advisor.QueryClass]int)
	for _, o := range t.Outcomes {
		if !o.HasEstimate {
			continue
		}
		s.EstimatedOutcomes++
		abs := math.Abs(o.EstimatedMs - o.ElapsedMs)
		absSum += abs
		s.MaxAbsErrorMs = math.Max(s.MaxAbsErrorMs, abs)
		// zero observed time has no relative error
		if o.ElapsedMs > 0 {
			rel := abs / o.ElapsedMs * 100
			relSum += rel
			relCount++
			classSum[o.Class] += rel
			classCount[o.Class]++
		}
	}
	if s.EstimatedOutcomes > 0 {
		s.MeanAbsErrorMs = absSum / float64(s.EstimatedOutcomes)
	}
	if relCount > 0 {
		s.MeanRelErrorPct = relSum / float64(relCount)
	}
	for c, sum := range classSum {
		s.ClassErrorPct[c] = sum / float64(classCount[c])
	}
	return s
}
