package main

import (
	"fmt"
	"os"
	"time"

	"shellsense/internal/config"
	"shellsense/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shellsense",
	Short: "shellsense - shell tracker and advisor for Buckshot Roulette",
	Long: `shellsense tracks the shells loaded into the shotgun, what you know about
them and both sides' items, and tells you the odds that the next shell is live.

Advice is computed locally from the expected value of each shot, or phrased by
an OpenAI-compatible or Gemini model when an API key is configured.

Run without arguments to start the interactive console.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if timeout > 0 {
			cfg.LLM.Timeout = timeout.String()
		}
		if !isConfigCmd(cmd) {
			if err := cfg.Game.Validate(); err != nil {
				return fmt.Errorf("%s: %w", configPath, err)
			}
		}

		logger, err = logging.Init(cfg.Logging.Options(), verbose)
		if err != nil {
			return err
		}
		logging.Get(logging.CategoryBoot).Debugw("config loaded", "path", configPath, "provider", cfg.LLM.Provider)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Override llm.timeout for AI advice")

	rootCmd.AddCommand(
		oddsCmd,
		adviseCmd,
		execCmd,
		historyCmd,
		statsCmd,
		configCmd,
	)
}

// isConfigCmd reports whether cmd is under `config`, which must still run
// against an invalid file so it can be repaired.
func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}

// loadedConfig returns the config loaded by the root command, or the defaults
// when a command runs without it (tests call RunE directly).
func loadedConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
