package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smithisrealdev/aigo-engine/internal/config"
)

var (
	configFile string
	homeDir    string

	// cfg is populated by loadConfig before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "aigo-engine",
	Short: "aigo-engine - AI travel plan orchestration engine",
	Long: `aigo-engine generates multi-day travel itineraries with an LLM-driven
stage pipeline and keeps them current through disruption-aware replans.

Plans are versioned; every replan commits a new version with a change
summary. Run 'aigo-engine serve' to expose the engine over HTTP, or use
'plan' and 'replan' for one-shot runs.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// loadConfig resolves the config file and loads it before any command runs.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	home := homeDir
	if home == "" {
		home = os.Getenv("AIGO_HOME")
	}
	if home == "" {
		home = config.DefaultHomeDir()
	}

	path := configFile
	if path == "" {
		path = config.DefaultConfigPath(home)
	}

	loader := config.NewConfigLoader(config.NewValidator())
	loaded, err := loader.LoadWithDefaults(path)
	if err != nil {
		return err
	}

	cfg = loaded
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default $AIGO_HOME/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "aigo home directory (default ~/.aigo)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(replanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("aigo-engine v0.3.0")
	},
}
