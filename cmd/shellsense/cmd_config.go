package main

import (
	"fmt"
	"os"

	"shellsense/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configCmd groups config subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with the API key redacted",
	Args:  cobra.NoArgs,
	RunE:  configShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE:  configInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one value, e.g. llm.model gpt-4o",
	Long: `Sets a value by dotted key and saves the config file.

Keys:
  llm.provider llm.api_url llm.api_key llm.model llm.custom_prompt
  llm.timeout llm.max_tokens llm.temperature
  game.player_health game.player_max_health game.dealer_health game.dealer_max_health
  store.enabled store.path
  logging.level logging.format logging.file
  ui.theme`,
	Args: cobra.ExactArgs(2),
	RunE: configSet,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configShowCmd, configInitCmd, configSetCmd)
}

func configShow(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(loadedConfig().Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", configPath, data)
	return nil
}

func configInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}

// configSet edits the file on disk, not the loaded config, so environment
// overrides are never persisted.
func configSet(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if err := c.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := c.Game.Validate(); err != nil {
		return err
	}
	if err := c.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], configPath)
	return nil
}
