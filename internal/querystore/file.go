// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package querystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps the slot in a single JSON file.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a backend writing to path. The parent directory is
// created on first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

// Load reads the file. A missing file reports ErrSlotEmpty.
func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("reading %s: %w", b.Path, err)
	}
	return data, nil
}

// Store replaces the file contents atomically via a temp file and rename.
func (b *FileBackend) Store(_ context.Context, value []byte) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", b.Path, err)
	}
	return nil
}

// Remove deletes the file. Removing a missing file is not an error.
func (b *FileBackend) Remove(_ context.Context) error {
	if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", b.Path, err)
	}
	return nil
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }
