package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/biwstack/biw-advisor/advisor/classify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <query>",
	Short: "Print the operation descriptor of a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		desc := classify.New(cfg.Classifier).Classify(strings.Join(args, " "))
		out := struct {
			Descriptor any    `yaml:"descriptor"`
			Class      string `yaml:"class,omitempty"`
			Features   string `yaml:"features,omitempty"`
		}{Descriptor: desc}
		if class, ok := desc.Class(); ok {
			out.Class = string(class)
			out.Features = string(desc.Features())
		}
		return writeYAML(cmd.OutOrStdout(), out)
	},
}
