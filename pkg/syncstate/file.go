package syncstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileContents struct {
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
	Version   int               `json:"version"`
}

// FileStore keeps all keys in one JSON file that is rewritten atomically
// on every Set
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file itself is created
// on the first Set.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create sync state directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := contents.Values[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		// an unreadable file is replaced rather than blocking progress
		contents = &fileContents{}
	}
	if contents.Values == nil {
		contents.Values = make(map[string]string)
	}
	contents.Values[key] = value
	contents.UpdatedAt = time.Now()
	contents.Version = 1
	return s.write(contents)
}

func (s *FileStore) Close() error { return nil }

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) read() (*fileContents, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileContents{}, nil
		}
		return nil, fmt.Errorf("failed to open sync state file: %w", err)
	}
	defer file.Close()

	var contents fileContents
	if err := json.NewDecoder(file).Decode(&contents); err != nil {
		return nil, fmt.Errorf("failed to decode sync state: %w", err)
	}
	return &contents, nil
}

func (s *FileStore) write(contents *fileContents) error {
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary sync state file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(contents); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode sync state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close sync state file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace sync state file: %w", err)
	}
	return nil
}
