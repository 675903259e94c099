package cmd

import (
	"github.com/melotrace/melotrace/logging"
	"github.com/melotrace/melotrace/transcribe/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "melotrace",
	Short: "Melody transcription and comparison",
	Long: `melotrace turns pitch tracks into musical note transcriptions and
scores how closely two transcriptions match.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logging.SetLevel(logging.DebugLevel)
		}
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "pipeline configuration file (JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig resolves the effective pipeline configuration: the defaults,
// overridden by --config when given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}
