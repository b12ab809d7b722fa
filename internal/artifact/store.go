// Package artifact manages the reports root: generated documents are
// written atomically and retrieved by filename only, with path escapes
// indistinguishable from missing files.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound covers both a genuinely missing artifact and a request
// that resolves outside the managed root. Callers must not be able to
// tell the two apart.
var ErrNotFound = errors.New("report not found")

type Store struct {
	root string
}

// NewStore creates the managed root if needed and anchors all later
// resolution to its absolute path.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve reports root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create reports root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute managed root directory.
func (s *Store) Root() string {
	return s.root
}

// Write stores an artifact under name. The bytes go to a temporary file
// first and are renamed into place, so a reader never observes a
// partially written artifact and overwrites are atomic.
func (s *Store) Write(name string, data []byte) error {
	if !validName(name) {
		return fmt.Errorf("invalid artifact name %q", name)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.root, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// Resolve canonicalizes a requested name against the root and returns
// the full path of an existing artifact. Names escaping the root,
// hidden or in-flight temp files, and missing files all come back as
// ErrNotFound.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrNotFound
	}

	p := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(name)))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	if strings.HasPrefix(filepath.Base(p), ".") {
		return "", ErrNotFound
	}

	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return p, nil
}

// validName accepts only flat, visible filenames: no separators, no
// traversal, nothing hidden.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return filepath.Base(name) == name
}
