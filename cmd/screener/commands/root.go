package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"SurgeScreener/internal/config"
	"SurgeScreener/internal/logging"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "SurgeScreener - daily volume surge screener",
	Long: `SurgeScreener fetches recent daily bars for every symbol of a universe CSV,
applies a layered volume/value/volatility filter and writes the survivors.

Examples:
  screener run
  screener run --layer layer1 --workers -1
  screener serve
  screener chart TCS --compare INFY`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfig, "config file (env CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug|info|warn|error)")
}

// loadConfig reads and validates the configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
