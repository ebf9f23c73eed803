// Package advisor provides the shared types for the BIW offload advisor.
//
// # Reading Guide
//
// Start with these files to understand the decision pipeline:
//   - descriptor.go: the Operation Descriptor produced by the classifier
//   - class.go: calibrated query classes and dataset feature classes
//   - decision.go: the CPU-vs-accelerator Decision returned to callers
//
// # Architecture
//
// The advisor package defines types and collaborator interfaces;
// implementations live in sub-packages:
//   - advisor/classify/: query shape classifier (tokenizer + clause scan)
//   - advisor/sizing/: workload sizer and storage collaborators
//   - advisor/linalg/: dense matrices and least-squares polynomial fitting
//   - advisor/regression/: per-class adaptive piecewise cubic CPU model
//   - advisor/accel/: closed-form accelerator cost model and device profiles
//   - advisor/engine/: the Decision Engine orchestrating all of the above
//   - advisor/trace/: decision and outcome recording
//   - advisor/metrics/: Prometheus collectors
//   - advisor/api/: HTTP surface for host query engines
//
// Decisions are advisory: nothing in this module moves execution to the
// accelerator. The host reports CPU execution times back through
// Engine.RecordOutcome and the CPU model re-calibrates online.
package advisor
