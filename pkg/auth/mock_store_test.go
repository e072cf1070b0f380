package auth

import (
	"sync"
)

// MockStore is an in-memory CredentialStore with error injection
type MockStore struct {
	mu       sync.RWMutex
	profiles map[string]*Credentials

	StoreError error
	ListError  error
}

func NewMockStore() *MockStore {
	return &MockStore{profiles: make(map[string]*Credentials)}
}

func (m *MockStore) Store(creds *Credentials) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if creds == nil || creds.Name == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := *creds
	m.profiles[creds.Name] = &c
	return nil
}

func (m *MockStore) Retrieve(name string) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	creds, ok := m.profiles[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	c := *creds
	return &c, nil
}

func (m *MockStore) List() ([]*Credentials, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Credentials
	for _, creds := range m.profiles {
		c := *creds
		result = append(result, &c)
	}
	return result, nil
}

func (m *MockStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.profiles, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.profiles[name]
	return ok
}

func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles)
}

// NewMockManager creates a Manager over a single mock store
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
