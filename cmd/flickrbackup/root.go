package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"flickrbackup/pkg/auth"
	"flickrbackup/pkg/config"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile   string
	logLevel     string
	rootDir      string
	profile      string
	syncStore    string
	indexType    string
	minConsumers int
	maxConsumers int
	noColor      bool
	notify       bool
)

var rootCmd = &cobra.Command{
	Use:   "flickrbackup",
	Short: "Mirror a Flickr library to local folders",
	Long: `flickrbackup copies every photo of a Flickr account to disk, one folder
per photoset, using an in-process work queue.

Features:
  - Full, per-set, not-in-set and incremental (recently updated) backups
  - Idempotent downloads: existing files are never fetched twice
  - Token bucket rate limiting and retry with exponential backoff
  - Optional metadata index (HTTP document store or SQLite)
  - Year sets created remotely from a date range search
  - Secure API key storage using the system keychain`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColor()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (YAML)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&rootDir, "root", "r", "", "backup root directory")
	pf.StringVarP(&profile, "profile", "p", "", "stored credential profile to use")
	pf.StringVar(&syncStore, "sync-store", "", "sync cursor store (file, bolt)")
	pf.StringVar(&indexType, "index", "", "metadata index (none, http, sqlite)")
	pf.IntVar(&minConsumers, "min-consumers", 0, "minimum consumers per topic")
	pf.IntVar(&maxConsumers, "max-consumers", 0, "maximum consumers per topic")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&notify, "notify", false, "send a desktop notification when a run finishes")

	rootCmd.SetVersionTemplate(`flickrbackup {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// commandFlags collects the persistent flags that override configuration
func commandFlags() map[string]interface{} {
	return map[string]interface{}{
		"root":          rootDir,
		"log-level":     logLevel,
		"min-consumers": minConsumers,
		"max-consumers": maxConsumers,
		"sync-store":    syncStore,
		"index":         indexType,
	}
}

// loadConfig loads configuration, initializes logging and, when
// needCredentials is set, fills the API key from stored credentials
func loadConfig(needCredentials bool, extra map[string]interface{}) (*config.Config, error) {
	flags := commandFlags()
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if !needCredentials {
		return cfg, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		if cfg.Flickr.APIKey != "" {
			logger.GetLogger().WithError(err).Warn("Credential stores unavailable, using configured API key")
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Apply(&cfg.Flickr, profile); err != nil {
		return nil, fmt.Errorf("%w (run 'flickrbackup auth login' or set %s)", err, auth.EnvAPIKey)
	}
	return cfg, nil
}
