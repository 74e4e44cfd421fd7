// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package querystore

import (
	"fmt"
	"path/filepath"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

const (
	defaultFilePath   = "data/savedQueries.json"
	defaultSQLitePath = "data/slr-assistant.db"
)

// NewBackend builds the backend selected by cfg, filling in the default
// path for the chosen kind when none is configured.
func NewBackend(cfg types.StoreConfig) (Backend, error) {
	switch cfg.Backend {
	case types.StoreFile, "":
		path := cfg.Path
		if path == "" {
			path = defaultFilePath
		}
		return NewFileBackend(filepath.Clean(path)), nil
	case types.StoreSQLite:
		path := cfg.Path
		if path == "" {
			path = defaultSQLitePath
		}
		return NewSQLiteBackend(filepath.Clean(path))
	default:
		return nil, fmt.Errorf("unsupported store backend %q: use file or sqlite", cfg.Backend)
	}
}
