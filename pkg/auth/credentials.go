package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultProfile is the profile name used when none is given
const DefaultProfile = "default"

// Credentials holds a Flickr API key pair under a profile name
type Credentials struct {
	Name         string    `json:"name"`
	APIKey       string    `json:"api_key"`
	APISecret    string    `json:"api_secret,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials under their profile name
	Store(creds *Credentials) error

	// Retrieve gets credentials for a profile
	Retrieve(name string) (*Credentials, error)

	// List returns all stored profiles
	List() ([]*Credentials, error)

	// Delete removes credentials for a profile
	Delete(name string) error

	// Exists checks if credentials exist for a profile
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keychain,
// an encrypted file and the environment, in that order
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(creds *Credentials) error {
	if creds == nil || creds.APIKey == "" {
		return errors.New("API key is required")
	}
	if creds.Name == "" {
		creds.Name = DefaultProfile
	}

	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(creds)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(name string) (*Credentials, error) {
	if name == "" {
		name = DefaultProfile
	}
	for _, store := range m.stores {
		if creds, err := store.Retrieve(name); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// RetrieveDefault returns the default profile, falling back to the
// environment and then to any stored profile
func (m *Manager) RetrieveDefault() (*Credentials, error) {
	if creds, err := m.Retrieve(DefaultProfile); err == nil {
		return creds, nil
	}

	profiles, err := m.List()
	if err == nil && len(profiles) > 0 {
		return profiles[0], nil
	}

	return nil, ErrCredentialsNotFound
}

// List returns all profiles from all stores, keeping the most recently
// modified copy of each
func (m *Manager) List() ([]*Credentials, error) {
	byName := make(map[string]*Credentials)

	for _, store := range m.stores {
		profiles, err := store.List()
		if err != nil {
			continue
		}
		for _, creds := range profiles {
			if existing, ok := byName[creds.Name]; !ok || creds.LastModified.After(existing.LastModified) {
				byName[creds.Name] = creds
			}
		}
	}

	result := make([]*Credentials, 0, len(byName))
	for _, creds := range byName {
		result = append(result, creds)
	}
	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
	}
	return nil
}

// getConfigDir returns the per-user configuration directory
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "flickrbackup")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "flickrbackup")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "flickrbackup")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "flickrbackup")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy of the credentials with secrets masked
func Sanitize(creds *Credentials) *Credentials {
	if creds == nil {
		return nil
	}
	return &Credentials{
		Name:         creds.Name,
		APIKey:       maskString(creds.APIKey),
		APISecret:    maskString(creds.APISecret),
		UserID:       creds.UserID,
		LastModified: creds.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
