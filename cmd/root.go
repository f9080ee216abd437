package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/fitcheck-cli/internal/config"
	"github.com/KaramelBytes/fitcheck-cli/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	debug    bool
	logLevel string
	color    bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// Process logger; a no-op until loadConfig runs
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "fitcheck",
	Short: "fitcheck: judge a regression model from its fitted values and residuals",
	Long: `fitcheck loads a table of observed values, fitted values and residuals exported
from a regression model, summarizes every column, measures fit quality, issues a
Good/Marginal/Poor verdict and recommends categorical re-encodings for
integer-coded predictors.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.fitcheck.yaml or ~/.fitcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&color, "color", false, "colorize log levels (overrides config log_color)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so analysis still runs
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	opt := loggerOptions(cfg)
	l, err := logging.New(opt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; using warn\n", err)
		opt.Level = ""
		l, _ = logging.New(opt)
	}
	logger = l
	logger.Debug("configuration loaded", zap.String("config", cfgFile), zap.String("log_level", opt.Level), zap.Bool("color", opt.Color))
}

// loggerOptions merges the root flags over the configured log settings.
func loggerOptions(c *cfgpkg.Global) logging.Options {
	opt := logging.Options{Level: c.LogLevel, Debug: debug, Color: c.LogColor}
	if rootCmd.PersistentFlags().Changed("log-level") {
		opt.Level = logLevel
	}
	if rootCmd.PersistentFlags().Changed("color") {
		opt.Color = color
	}
	return opt
}

// currentConfig returns the loaded configuration, loading it on first use.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}
