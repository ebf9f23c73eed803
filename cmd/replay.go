package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/biwstack/biw-advisor/advisor"
	"github.com/biwstack/biw-advisor/advisor/engine"
	"github.com/biwstack/biw-advisor/advisor/trace"
)

// ReplayEntry is one query of a replay workload. ElapsedMs, when present,
// is the measured CPU time fed back to the model after the decision.
type ReplayEntry struct {
	Query     string   `yaml:"query"`
	ElapsedMs *float64 `yaml:"elapsed_ms,omitempty"`
}

type replayFile struct {
	Entries []ReplayEntry `yaml:"entries"`
}

// loadReplay reads a replay workload. Unknown fields are rejected.
func loadReplay(path string) ([]ReplayEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading replay file: %w", err)
	}
	var f replayFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing replay file %q: %w", path, err)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("replay file %q has no entries", path)
	}
	for i, e := range f.Entries {
		if e.Query == "" {
			return nil, fmt.Errorf("replay entry %d has no query", i)
		}
		if e.ElapsedMs != nil && *e.ElapsedMs < 0 {
			return nil, fmt.Errorf("replay entry %d has negative elapsed_ms %v", i, *e.ElapsedMs)
		}
	}
	return f.Entries, nil
}

// runReplay decides every entry in order and feeds measured times back,
// so later decisions see the model as updated by earlier ones.
func runReplay(ctx context.Context, eng *engine.Engine, entries []ReplayEntry) *trace.Summary {
	for i, e := range entries {
		d, err := eng.Decide(ctx, e.Query)
		if err != nil {
			logrus.Debugf("[replay] entry %d: %v", i, err)
		}
		if d.Class == "" || e.ElapsedMs == nil || d.Rows <= 0 {
			continue
		}
		if err := eng.RecordOutcome(d.Class, d.Rows, *e.ElapsedMs); err != nil {
			logrus.Warnf("[replay] entry %d outcome rejected: %v", i, err)
		}
	}
	return eng.Summary()
}

var replayCmd = &cobra.Command{
	Use:   "replay <workload.yaml>",
	Short: "Replay a query workload through the advisor and summarize its decisions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Trace = advisor.TraceDecisions

		entries, err := loadReplay(args[0])
		if err != nil {
			return err
		}
		storage, closeStorage, err := openStorage(cmd.Context(), cfg.PageSize)
		if err != nil {
			return err
		}
		defer closeStorage()

		eng, err := engine.New(cfg, storage)
		if err != nil {
			return err
		}
		logrus.Infof("Replaying %d entries", len(entries))
		return writeYAML(cmd.OutOrStdout(), runReplay(cmd.Context(), eng, entries))
	},
}

func init() {
	addStorageFlags(replayCmd)
}
