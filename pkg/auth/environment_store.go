package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvAPIKey    = "FLICKRBACKUP_API_KEY"
	EnvAPISecret = "FLICKRBACKUP_API_SECRET"
	EnvUserID    = "FLICKRBACKUP_USER_ID"
)

// EnvironmentStore is a read-only CredentialStore over environment variables
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment key pair under any requested name
func (e *EnvironmentStore) Retrieve(name string) (*Credentials, error) {
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = DefaultProfile
	}

	return &Credentials{
		Name:         name,
		APIKey:       apiKey,
		APISecret:    os.Getenv(EnvAPISecret),
		UserID:       os.Getenv(EnvUserID),
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvAPIKey) != ""
}
