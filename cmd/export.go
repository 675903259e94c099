package cmd

import (
	"path/filepath"
	"strings"

	"github.com/melotrace/melotrace/midiexport"
	"github.com/melotrace/melotrace/transcribe"
	"github.com/spf13/cobra"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "MIDI output path (default: input with .mid)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <analysis>",
	Short: "Export an analysis as a MIDI file",
	Long: `Export writes the note segments of an analysis artifact as a
single-track standard MIDI file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		analysis, err := transcribe.LoadAnalysis(args[0])
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".mid"
		}

		exporter := midiexport.NewExporter(cfg.Export)
		if err := exporter.ExportFile(analysis.Segments, out); err != nil {
			return err
		}

		cmd.Printf("MIDI written to %s (%d segments)\n", out, len(analysis.Segments))
		return nil
	},
}
