package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"flickrbackup/pkg/flickr"
)

// Dump is a point-in-time copy of the library listing
type Dump struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Photos      []flickr.Photo `json:"photos"`
}

// WriteDump encodes a dump as indented JSON
func WriteDump(w io.Writer, dump Dump) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dump); err != nil {
		return fmt.Errorf("failed to encode dump: %w", err)
	}
	return nil
}

// ReadDump decodes a dump
func ReadDump(r io.Reader) (Dump, error) {
	var dump Dump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return Dump{}, fmt.Errorf("failed to decode dump: %w", err)
	}
	return dump, nil
}

// SaveDump writes a dump to path, replacing any previous file atomically
func SaveDump(path string, dump Dump) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary dump file: %w", err)
	}
	if err := WriteDump(file, dump); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close dump file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace dump file: %w", err)
	}
	return nil
}

// LoadDump reads the dump at path
func LoadDump(path string) (Dump, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dump{}, fmt.Errorf("failed to open dump: %w", err)
	}
	defer file.Close()
	return ReadDump(file)
}
