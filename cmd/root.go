package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/imgdiff/internal/compare"
	cfgpkg "github.com/KaramelBytes/imgdiff/internal/config"
	"github.com/KaramelBytes/imgdiff/internal/history"
	"github.com/KaramelBytes/imgdiff/internal/logging"
	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

var (
	// Global flags
	cfgFile       string
	flagLogLevel  string
	flagLogFormat string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "imgdiff",
	Short: "imgdiff: compare two image-pipeline CSV exports",
	Long: `imgdiff pairs the rows of two image-pipeline exports by filename, characterizes how
each selected field changed and buckets every image by the size of its change.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.imgdiff/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: auto|json|console (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{MatchColumn: "Image_name", SimilarityThreshold: 0.8, ConfidenceLevel: 0.95, LogLevel: "info", LogFormat: "auto"}
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
	logger = logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
}

// currentConfig returns the loaded config, loading it when a command runs
// without the root initializer (tests).
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func componentLogger(name string) zerolog.Logger {
	return logging.Component(logger, name)
}

func openThresholds() (*thresholds.Store, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	return thresholds.Open(c.ThresholdsPath, componentLogger("thresholds"))
}

// loaderEngine returns an engine for commands that read and match but never
// classify. It uses in-memory default thresholds so no thresholds file is touched.
func loaderEngine() (*compare.Engine, error) {
	store, err := thresholds.NewStore(thresholds.Default(), componentLogger("thresholds"))
	if err != nil {
		return nil, err
	}
	return compare.NewEngine(store, nil, componentLogger("compare")), nil
}

func openHistory(ctx context.Context) (*history.Store, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(ctx, c.HistoryPath, componentLogger("history"))
}
