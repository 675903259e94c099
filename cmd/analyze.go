package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/melotrace/melotrace/estimate"
	"github.com/melotrace/melotrace/pitchtrack"
	"github.com/melotrace/melotrace/transcribe"
	"github.com/melotrace/melotrace/transcribe/config"
	"github.com/spf13/cobra"
)

var analyzeOut string

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "output", "o", "", "analysis output path (default: input with .analysis.json)")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <input>",
	Short: "Transcribe audio or a pitch track into notes",
	Long: `Analyze runs the transcription pipeline over the input and writes the
resulting analysis artifact. A .wav input is pitch-tracked first; a .json
input is read as a pitch track of parallel times/frequencies/confidences
arrays.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		input := args[0]
		track, err := loadInputTrack(input, cfg)
		if err != nil {
			return err
		}

		analysis, err := transcribe.New(cfg).Transcribe(track)
		if err != nil {
			return err
		}
		analysis.Source = input

		out := analyzeOut
		if out == "" {
			out = strings.TrimSuffix(input, filepath.Ext(input)) + ".analysis.json"
		}
		if err := analysis.Save(out); err != nil {
			return err
		}

		printSummary(cmd, analysis, out)
		return nil
	},
}

func loadInputTrack(input string, cfg *config.Config) (*pitchtrack.Track, error) {
	if strings.EqualFold(filepath.Ext(input), ".wav") {
		samples, sampleRate, err := estimate.ReadWAV(input)
		if err != nil {
			return nil, err
		}

		params := cfg.Estimator
		params.SampleRate = sampleRate
		estimator, err := estimate.NewEstimator(params)
		if err != nil {
			return nil, err
		}
		return estimator.Estimate(samples)
	}
	return transcribe.LoadTrack(input)
}

func printSummary(cmd *cobra.Command, analysis *transcribe.Analysis, out string) {
	stats := analysis.SegmentStats

	cmd.Printf("Analysis written to %s\n", out)
	cmd.Printf("Notes: %d total, %d unique\n", stats.TotalNotes, stats.UniqueNotes)
	if stats.OctaveRange != nil {
		cmd.Printf("Octaves: %d-%d\n", stats.OctaveRange.Min, stats.OctaveRange.Max)
	}
	if stats.AvgFrequency != nil {
		cmd.Printf("Average frequency: %.1f Hz\n", *stats.AvgFrequency)
	}
	for i, nc := range stats.MostCommon {
		if i == 5 {
			break
		}
		cmd.Printf("  %-4s x%d\n", nc.Label, nc.Count)
	}
	if stats.TotalNotes == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notes detected")
	}
}
