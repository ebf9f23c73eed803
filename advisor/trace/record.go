// Package trace records advisory decisions and observed outcomes for later
// analysis. It stores pure data; the engine decides what to record.
package trace

import (
	"time"

	"github.com/biwstack/biw-advisor/advisor"
)

// DecisionRecord captures one Decide call.
type DecisionRecord struct {
	ID             string                 `json:"id" yaml:"id"`
	Time           time.Time              `json:"time" yaml:"time"`
	Kind           advisor.Kind           `json:"kind" yaml:"kind"`
	Class          advisor.QueryClass     `json:"class,omitempty" yaml:"class,omitempty"`
	SizeK          float64                `json:"size_k" yaml:"size_k"`
	PredictedCPUms float64                `json:"predicted_cpu_ms" yaml:"predicted_cpu_ms"`
	PredictedHWms  float64                `json:"predicted_hw_ms" yaml:"predicted_hw_ms"`
	Choice         advisor.Choice         `json:"choice" yaml:"choice"`
	Predicted      bool                   `json:"predicted" yaml:"predicted"`
	Reason         advisor.FallbackReason `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// OutcomeRecord captures one observed CPU execution fed back to a model.
// EstimatedMs is the model's prediction just before the observation was
// absorbed; HasEstimate is false while the model could not predict.
type OutcomeRecord struct {
	Time        time.Time          `json:"time" yaml:"time"`
	Class       advisor.QueryClass `json:"class" yaml:"class"`
	SizeK       float64            `json:"size_k" yaml:"size_k"`
	ElapsedMs   float64            `json:"elapsed_ms" yaml:"elapsed_ms"`
	EstimatedMs float64            `json:"estimated_ms" yaml:"estimated_ms"`
	HasEstimate bool               `json:"has_estimate" yaml:"has_estimate"`
}
