package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/biwstack/biw-advisor/advisor"
	"github.com/biwstack/biw-advisor/advisor/engine"
	"github.com/biwstack/biw-advisor/advisor/sizing"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Show the CPU models built from the configured seed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// no table is sized here
		eng, err := engine.New(cfg, sizing.NewMemoryStore(cfg.PageSize))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-16s %-8s %12s %12s  %-12s %s\n", "class", "state", "small|med", "med|large", "samples", "rel.err%")
		for _, class := range advisor.QueryClasses {
			s, err := eng.Model(class)
			if err != nil {
				return err
			}
			counts := make([]string, len(s.Buckets))
			errs := make([]string, len(s.Fits))
			for b := range s.Buckets {
				counts[b] = fmt.Sprint(len(s.Buckets[b]))
				errs[b] = "-"
				if s.Fits[b] != nil {
					errs[b] = fmt.Sprintf("%.2f", s.Fits[b].MeanRelError)
				}
			}
			fmt.Fprintf(w, "%-16s %-8s %12.3f %12.3f  %-12s %s\n", class, s.State,
				s.SmallMedium, s.MediumLarge, strings.Join(counts, "/"), strings.Join(errs, " "))
		}
		return nil
	},
}
