package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"flickrbackup/pkg/auth"
	"flickrbackup/pkg/config"
	"flickrbackup/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage flickrbackup configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (FLICKRBACKUP_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every option at its default",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "flickrbackup.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set download.root to where the backup should live")
	fmt.Println("2. Run 'flickrbackup auth login' to store your API key")
	fmt.Println("3. Run 'flickrbackup config validate', then 'flickrbackup full'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false, nil)
	if err != nil {
		return err
	}

	display := *cfg
	masked := auth.Sanitize(&auth.Credentials{APIKey: cfg.Flickr.APIKey, APISecret: cfg.Flickr.APISecret})
	display.Flickr.APIKey = masked.APIKey
	display.Flickr.APISecret = masked.APISecret

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false, nil)
	if err != nil {
		return err
	}

	if cfg.Flickr.APIKey == "" {
		ui.PrintWarning("No API key in configuration; stored credentials will be used")
	}
	if err := os.MkdirAll(cfg.Download.Root, 0755); err != nil {
		return fmt.Errorf("cannot create backup root: %w", err)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Backup root", cfg.Download.Root)
	ui.PrintInfo("Consumers", fmt.Sprintf("%d..%d per topic", cfg.Queue.MinConsumers, cfg.Queue.MaxConsumers))
	ui.PrintInfo("Rate limit", fmt.Sprintf("%d requests/hour", cfg.RateLimit.RequestsPerHour))
	ui.PrintInfo("Sync store", cfg.Sync.Store)
	ui.PrintInfo("Index", cfg.Index.Type)
	return nil
}
