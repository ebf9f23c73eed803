package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/biwstack/biw-advisor/advisor"
	"github.com/biwstack/biw-advisor/advisor/engine"
	"github.com/biwstack/biw-advisor/advisor/sizing"
)

const linregrQuery = "SELECT madlib.linregr_predict(ARRAY[m.c0, m.c1, m.c2], ARRAY[1, d.a, d.b]) FROM lin_model big"

// statsYAML declares "big": 500000 pages of 100 rows, 50M rows in total.
const statsYAML = `
page_size: 8192
tables:
  big:
    size_bytes: 4096000000
    rows_per_page: 100
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args after resetting flag state left
// over from previous runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, logLevel, traceLevel, statsPath, dsn, explain = "", "warn", "", "", "", false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestClassifyCommand_PrintsDescriptorAndClass(t *testing.T) {
	// GIVEN a linear regression query
	// WHEN classify is run
	out, err := execute(t, "classify", linregrQuery)

	// THEN the descriptor and its calibrated class are printed as YAML
	require.NoError(t, err)
	var got struct {
		Descriptor struct {
			Kind       string `yaml:"kind"`
			DataTable  string `yaml:"data_table"`
			ModelTable string `yaml:"model_table"`
		} `yaml:"descriptor"`
		Class    string `yaml:"class"`
		Features string `yaml:"features"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "linregr", got.Descriptor.Kind)
	assert.Equal(t, "big", got.Descriptor.DataTable)
	assert.Equal(t, "lin_model", got.Descriptor.ModelTable)
	assert.Equal(t, string(advisor.ClassLinregr), got.Class)
	assert.Equal(t, string(advisor.FeaturesNarrow), got.Features)
}

func TestClassifyCommand_Unsupported_HasNoClass(t *testing.T) {
	out, err := execute(t, "classify", "SELECT", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "kind: unsupported")
	assert.NotContains(t, out, "class:")
}

func TestDecideCommand_StatsFile(t *testing.T) {
	// GIVEN a statistics file declaring a 50M-row table
	stats := writeFile(t, "stats.yaml", statsYAML)

	// WHEN decide is run with --explain
	out, err := execute(t, "decide", "--stats", stats, "--explain", linregrQuery)

	// THEN the accelerator wins and the breakdown is included
	require.NoError(t, err)
	var got struct {
		Decision  advisor.Decision `yaml:"decision"`
		Breakdown map[string]any   `yaml:"accelerator_breakdown"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.True(t, got.Decision.Predicted)
	assert.Equal(t, advisor.ChoiceAccelerator, got.Decision.Choice)
	assert.Equal(t, 50000.0, got.Decision.SizeK)
	assert.InDelta(t, 28300.45, got.Decision.PredictedCPUms, 0.01)
	assert.Contains(t, got.Breakdown, "kernel_ms")
}

func TestDecideCommand_UnknownTable_FallsBackWithoutError(t *testing.T) {
	// GIVEN a statistics file without the queried table
	stats := writeFile(t, "stats.yaml", "tables: {}\n")

	// WHEN decide is run
	out, err := execute(t, "decide", "--stats", stats, linregrQuery)

	// THEN the command succeeds with a CPU fallback
	require.NoError(t, err)
	assert.Contains(t, out, "choice: cpu")
	assert.Contains(t, out, "reason: "+string(advisor.FallbackTableNotFound))
	assert.NotContains(t, out, "accelerator_breakdown")
}

func TestStorageFlags_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"neither", []string{"decide", linregrQuery}, "one of --stats or --dsn is required"},
		{"both", []string{"inspect", "--stats", "x.yaml", "--dsn", "postgres://localhost/db", "big"}, "mutually exclusive"},
		{"missing stats file", []string{"inspect", "--stats", "/nonexistent/stats.yaml", "big"}, "stats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecideCommand_StatsPageSizeMismatch_Rejected(t *testing.T) {
	// GIVEN a stats file in 16 KiB pages and the default 8 KiB configuration
	stats := writeFile(t, "stats.yaml", "page_size: 16384\ntables:\n  big:\n    size_bytes: 163840\n    rows_per_page: 50\n")

	// WHEN decide is run
	_, err := execute(t, "decide", "--stats", stats, linregrQuery)

	// THEN the file is refused up front rather than every query falling back
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size 16384")
}

func TestInspectCommand(t *testing.T) {
	stats := writeFile(t, "stats.yaml", statsYAML)

	out, err := execute(t, "inspect", "--stats", stats, "big")

	require.NoError(t, err)
	var report sizing.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, uint32(500000), report.StoragePages)
	assert.Equal(t, uint32(100), report.FirstPageRows)
	assert.Equal(t, 50_000_000.0, report.Workload.Rows)
}

func TestConfigFlag_InvalidConfig_Rejected(t *testing.T) {
	cfg := writeFile(t, "advisor.yaml", "page_size: 0\n")

	_, err := execute(t, "classify", "--config", cfg, "SELECT", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size")
}

func TestLoadConfig_TraceFlag(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    string
		wantErr bool
	}{
		{"unset keeps config", "", advisor.TraceNone, false},
		{"decisions", "decisions", advisor.TraceDecisions, false},
		{"none", "none", advisor.TraceNone, false},
		{"unknown", "verbose", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath, traceLevel = "", tt.level
			t.Cleanup(func() { traceLevel = "" })

			cfg, err := loadConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown trace level")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Trace)
		})
	}
}

func TestDecideCommand_UnknownTraceLevel_Rejected(t *testing.T) {
	stats := writeFile(t, "stats.yaml", statsYAML)

	_, err := execute(t, "decide", "--trace", "verbose", "--stats", stats, linregrQuery)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")
}

func TestSeedCommand_ListsEveryClass(t *testing.T) {
	out, err := execute(t, "seed")

	require.NoError(t, err)
	for _, class := range advisor.QueryClasses {
		assert.Contains(t, out, string(class))
	}
	assert.Contains(t, out, "seeded")
}

func TestLoadReplay(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
		wantLen int
	}{
		{
			name:    "valid",
			content: "entries:\n  - query: SELECT 1\n  - query: SELECT 2\n    elapsed_ms: 12.5\n",
			wantLen: 2,
		},
		{name: "empty", content: "entries: []\n", wantErr: "no entries"},
		{name: "unknown field", content: "entries:\n  - query: SELECT 1\n    elapsed: 3\n", wantErr: "elapsed"},
		{name: "missing query", content: "entries:\n  - elapsed_ms: 3\n", wantErr: "no query"},
		{name: "negative time", content: "entries:\n  - query: q\n    elapsed_ms: -1\n", wantErr: "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := loadReplay(writeFile(t, "replay.yaml", tt.content))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.wantLen)
		})
	}
}

func TestRunReplay_FeedsOutcomesBack(t *testing.T) {
	// GIVEN an engine with decision tracing and a 50M-row table
	s := sizing.NewMemoryStore(advisor.DefaultPageSize)
	s.Put("big", sizing.TableLayout{SizeBytes: 4096000000, RowsPerPage: 100})
	cfg := advisor.DefaultConfig()
	cfg.Trace = advisor.TraceDecisions
	eng, err := engine.New(cfg, s)
	require.NoError(t, err)

	elapsed := 30000.0
	entries := []ReplayEntry{
		{Query: linregrQuery, ElapsedMs: &elapsed},
		{Query: linregrQuery},
		{Query: "SELECT 1", ElapsedMs: &elapsed},
	}

	// WHEN the workload is replayed
	summary := runReplay(context.Background(), eng, entries)

	// THEN every entry is decided, but only the classified one with a time is fed back
	assert.Equal(t, 3, summary.TotalDecisions)
	assert.Equal(t, 1, summary.FallbackReasons[advisor.FallbackUnsupported])
	assert.Equal(t, 1, summary.TotalOutcomes)
	assert.Equal(t, 1, summary.EstimatedOutcomes)

	snap, err := eng.Model(advisor.ClassLinregr)
	require.NoError(t, err)
	assert.Equal(t, "stable", snap.State.String())
}

func TestReplayCommand_PrintsSummary(t *testing.T) {
	stats := writeFile(t, "stats.yaml", statsYAML)
	workload := writeFile(t, "replay.yaml", "entries:\n  - query: \""+linregrQuery+"\"\n    elapsed_ms: 30000\n")

	out, err := execute(t, "replay", "--stats", stats, workload)

	require.NoError(t, err)
	assert.Contains(t, out, "total_decisions: 1")
	assert.Contains(t, out, "total_outcomes: 1")
}
