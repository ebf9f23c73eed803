package advisor

import "context"

// Choice is the execution path recommended for a query.
type Choice string

const (
	ChoiceCPU         Choice = "cpu"
	ChoiceAccelerator Choice = "accelerator"
)

// Decision is the advisory outcome for one query.
// When Predicted is false the Choice is the CPU fallback and Reason says why.
type Decision struct {
	ID             string         `json:"id" yaml:"id"`
	Descriptor     Descriptor     `json:"descriptor" yaml:"descriptor"`
	Class          QueryClass     `json:"class,omitempty" yaml:"class,omitempty"`
	Features       FeatureClass   `json:"features,omitempty" yaml:"features,omitempty"`
	Rows           float64        `json:"rows" yaml:"rows"`
	Pages          float64        `json:"pages" yaml:"pages"`
	SizeK          float64        `json:"size_k" yaml:"size_k"` // rows / 1000, the CPU model's x axis
	PredictedCPUms float64        `json:"predicted_cpu_ms" yaml:"predicted_cpu_ms"`
	PredictedHWms  float64        `json:"predicted_hw_ms" yaml:"predicted_hw_ms"`
	Choice         Choice         `json:"choice" yaml:"choice"`
	Predicted      bool           `json:"predicted" yaml:"predicted"`
	Reason         FallbackReason `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// FallbackReason says why a Decision is the CPU default instead of a prediction.
type FallbackReason string

const (
	FallbackUnsupported      FallbackReason = "unsupported"
	FallbackNoQueryClass     FallbackReason = "no_query_class"
	FallbackTableNotFound    FallbackReason = "table_not_found"
	FallbackSizing           FallbackReason = "sizing_failed"
	FallbackInsufficientData FallbackReason = "insufficient_data"
)

// Choose compares the two predicted times. Ties favor the CPU.
func Choose(cpuMs, hwMs float64) Choice {
	if hwMs < cpuMs {
		return ChoiceAccelerator
	}
	return ChoiceCPU
}

// Storage is the collaborator that exposes physical table layout.
// Implementations wrap ErrTableNotFound for unknown tables.
type Storage interface {
	// TableSizeBytes returns the raw size of the table's main data fork.
	TableSizeBytes(ctx context.Context, table string) (uint64, error)

	// PageCount returns the number of pages of the table.
	PageCount(ctx context.Context, table string) (uint32, error)

	// PageRowCount returns the number of row slots (maximum line pointer offset) on one page.
	PageRowCount(ctx context.Context, table string, page uint32) (uint32, error)
}
