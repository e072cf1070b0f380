package syncstate

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"flickrbackup/pkg/config"
)

// KVStore is a tiny string key/value store
type KVStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Close() error
}

// OpenStore opens the store selected by cfg. An empty path puts the store
// in the per-user data directory.
func OpenStore(cfg config.SyncConfig) (KVStore, error) {
	path := cfg.Path
	kind := strings.ToLower(cfg.Store)

	if path == "" {
		dataDir, err := DataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		name := "sync.json"
		if kind == "bolt" {
			name = "sync.db"
		}
		path = filepath.Join(dataDir, name)
	}

	switch kind {
	case "", "file":
		return NewFileStore(path)
	case "bolt":
		return OpenBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown sync store %q", cfg.Store)
	}
}

// DataDirectory returns the per-user data directory for the current OS,
// creating it if needed
func DataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "flickrbackup")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "flickrbackup")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "flickrbackup")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "flickrbackup")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
