package cmd

import (
	"os"

	"github.com/melotrace/melotrace/compare"
	"github.com/melotrace/melotrace/transcribe"
	"github.com/spf13/cobra"
)

var compareOut string

func init() {
	compareCmd.Flags().StringVarP(&compareOut, "output", "o", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(compareCmd)
}

var compareCmd = &cobra.Command{
	Use:   "compare <original-analysis> <comparison-analysis>",
	Short: "Score one transcription against another",
	Long: `Compare scores a comparison analysis against an original one. Both
arguments are analysis artifacts produced by the analyze command. The
original must contain at least one note segment.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		original, err := transcribe.LoadAnalysis(args[0])
		if err != nil {
			return err
		}
		candidate, err := transcribe.LoadAnalysis(args[1])
		if err != nil {
			return err
		}

		comparator := compare.NewComparator(cfg.Compare)
		result, err := comparator.CompareSegments(original.Segments, candidate.Segments)
		if err != nil {
			return err
		}

		report := result.Report(args[0], args[1])
		if compareOut != "" {
			if err := os.WriteFile(compareOut, []byte(report), 0o644); err != nil {
				return err
			}
			cmd.Printf("Report written to %s\n", compareOut)
			return nil
		}

		cmd.Print(report)
		return nil
	},
}
