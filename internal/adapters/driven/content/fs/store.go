// Package fs exposes the audit-facing surface of a directory-backed
// content-blob store: one file per document UID. Blob transport itself is
// owned by the ingestion side.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ContentStore = (*Store)(nil)

// Store is a filesystem implementation of driven.ContentStore.
type Store struct {
	dir string
}

// New creates the store over the given blob directory.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("content: blob directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("content: create blob directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Exists implements driven.ContentStore.
func (s *Store) Exists(_ context.Context, documentUID string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, documentUID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("content: stat blob %s: %w", documentUID, err)
	}
	return true, nil
}

// List implements driven.ContentStore.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("content: read blob directory: %w", err)
	}

	uids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			uids = append(uids, entry.Name())
		}
	}
	return uids, nil
}

// Delete implements driven.ContentStore.
func (s *Store) Delete(_ context.Context, documentUID string) error {
	err := os.Remove(filepath.Join(s.dir, documentUID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("content: delete blob %s: %w", documentUID, err)
	}
	return nil
}
