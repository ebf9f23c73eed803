package cmd

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/biwstack/biw-advisor/advisor"
	"github.com/biwstack/biw-advisor/advisor/accel"
	"github.com/biwstack/biw-advisor/advisor/engine"
)

var explain bool // print the accelerator cost breakdown

var decideCmd = &cobra.Command{
	Use:   "decide <query>",
	Short: "Predict CPU and accelerator time for a query and pick the faster path",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
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
		d, decideErr := eng.Decide(cmd.Context(), strings.Join(args, " "))
		if decideErr != nil {
			logrus.Warnf("No prediction: %v", decideErr)
		}

		out := struct {
			Decision  advisor.Decision `yaml:"decision"`
			Breakdown *accel.Breakdown `yaml:"accelerator_breakdown,omitempty"`
		}{Decision: d}
		// a breakdown needs a sized table
		if explain && (d.Predicted || d.Reason == advisor.FallbackInsufficientData) {
			b := eng.HWBreakdown(d.Class, d.Features, d.Pages)
			out.Breakdown = &b
		}
		return writeYAML(cmd.OutOrStdout(), out)
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <table>",
	Short: "Show the storage figures a table is sized from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
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
		report, err := eng.Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeYAML(cmd.OutOrStdout(), report)
	},
}

func init() {
	addStorageFlags(decideCmd)
	decideCmd.Flags().BoolVar(&explain, "explain", false, "Include the accelerator cost breakdown")
	addStorageFlags(inspectCmd)
}
