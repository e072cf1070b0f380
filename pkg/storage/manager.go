package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	errs "flickrbackup/pkg/errors"
)

// DefaultExtension is used when the source URL carries none
const DefaultExtension = "jpg"

var nameReplacer = strings.NewReplacer(
	"/", "_",
	`\`, "_",
	":", "_",
	`"`, "_",
	"*", "_",
	"?", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Manager owns the backup root
type Manager struct {
	root  string
	saved atomic.Int64
}

// NewManager creates a new storage manager, creating root if needed
func NewManager(root string) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{root: root}, nil
}

// SanitizeName replaces characters that are not allowed in folder or file
// names with underscores
func SanitizeName(name string) string {
	return nameReplacer.Replace(name)
}

// Extension returns the file extension of a source URL without the dot
func Extension(sourceURL string) string {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return DefaultExtension
	}
	return strings.ToLower(ext)
}

// PathFor returns the target path of a photo. The result is always a
// direct child of a folder under the root.
func (m *Manager) PathFor(setName, title, photoID, sourceURL string) string {
	name := fmt.Sprintf("%s-%s.%s", SanitizeName(title), photoID, Extension(sourceURL))
	return filepath.Join(m.root, folderName(setName), name)
}

// folderName sanitizes a set name and maps names that would resolve to the
// root or its parent onto "_"
func folderName(setName string) string {
	name := SanitizeName(setName)
	switch name {
	case "", ".", "..":
		return "_"
	}
	return name
}

// Exists reports whether a photo is already backed up at path
func (m *Manager) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save streams r into path. The data lands in a temporary file in the same
// directory first; on any error that file is removed and nothing is left at
// path.
func (m *Manager) Save(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, errs.Wrap(errs.ErrorTypeDownloadIO, "save", fmt.Errorf("failed to create set directory: %w", err))
	}

	out, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeDownloadIO, "save", fmt.Errorf("failed to create temporary file: %w", err))
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, errs.Wrap(errs.ErrorTypeDownloadIO, "save", fmt.Errorf("failed to save photo data: %w", err))
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, errs.Wrap(errs.ErrorTypeDownloadIO, "save", fmt.Errorf("failed to close file: %w", closeErr))
	}

	// concurrent writers of the same photo converge here
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return n, errs.Wrap(errs.ErrorTypeDownloadIO, "save", fmt.Errorf("failed to rename temporary file: %w", err))
	}

	m.saved.Add(1)
	return n, nil
}

// Root returns the backup root
func (m *Manager) Root() string {
	return m.root
}

// SavedCount returns the number of photos written by this manager
func (m *Manager) SavedCount() int64 {
	return m.saved.Load()
}
