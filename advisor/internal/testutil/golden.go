// Package testutil provides shared test infrastructure for the advisor
// packages: the golden dataset of reference predictions and float
// assertion helpers.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	HW        []GoldenHWCase       `json:"hw"`
	Decisions []GoldenDecisionCase `json:"decisions"`
}

// GoldenHWCase is one reference accelerator prediction.
type GoldenHWCase struct {
	Class    string  `json:"class"`
	Features string  `json:"features"`
	Pages    float64 `json:"pages"`
	HWms     float64 `json:"hw_ms"`
}

// GoldenDecisionCase is one end-to-end decision over the builtin seed and
// the default device.
type GoldenDecisionCase struct {
	Name        string  `json:"name"`
	Query       string  `json:"query"`
	Table       string  `json:"table"`
	Rows        float64 `json:"rows"`
	RowsPerPage uint32  `json:"rows_per_page"`
	Class       string  `json:"class"`
	Features    string  `json:"features"`
	SizeK       float64 `json:"size_k"`
	CPUms       float64 `json:"cpu_ms"`
	HWms        float64 `json:"hw_ms"`
	Choice      string  `json:"choice"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: advisor/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
