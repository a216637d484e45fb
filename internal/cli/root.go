// Package cli wires the bankml command tree: training, quality
// assessment, single predictions and batch analysis.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/banktools/bankml/internal/config"
	"github.com/banktools/bankml/pkg/log"
)

var (
	cfgFile string
	verbose bool

	cfg *config.Global
)

var rootCmd = &cobra.Command{
	Use:   "bankml",
	Short: "bankml trains and serves churn and loan prediction models",
	Long: `bankml is the banking ML toolkit: it assesses data quality, cleans
customer and loan datasets, trains logistic-regression models and scores
individual customers or whole batches.`,
}

// Execute runs the command tree. Called by main.main.
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.bankml/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig() {
	c, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		c = &config.Global{ModelsDir: "models", PlotsDir: "plots", LogLevel: "info", Seed: 42, AggressiveCleaningScore: 80}
	}
	cfg = c

	level, lerr := zerolog.ParseLevel(cfg.LogLevel)
	if lerr != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	log.SetLevel(level)
}
