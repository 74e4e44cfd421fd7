// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slr-assistant/internal/querystore"
	"github.com/pdiddy/slr-assistant/internal/secrets"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()
	loadedSecrets = secrets.Secrets{secrets.AuthoringAPIKey: "from-file"}
	t.Cleanup(func() { loadedSecrets = nil })

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Authoring.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Authoring.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Authoring.CollectTick)
	assert.Equal(t, types.EstimatorService, cfg.Authoring.Estimator)
	assert.Equal(t, "from-file", cfg.Authoring.APIKey)
	assert.Equal(t, types.StoreFile, cfg.Store.Backend)
	assert.Equal(t, 3*time.Second, cfg.Screening.Delay)
	assert.InDelta(t, 0.10, cfg.Funnel.DuplicateRate, 1e-9)
	assert.InDelta(t, 0.18, cfg.Funnel.FullMatchRate, 1e-9)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestLoadConfigExplicitKeyWins(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()
	viper.Set("authoring.api_key", "from-config")
	loadedSecrets = secrets.Secrets{secrets.AuthoringAPIKey: "from-file"}
	t.Cleanup(func() { loadedSecrets = nil })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-config", cfg.Authoring.APIKey)
}

func TestFindQuery(t *testing.T) {
	ctx := context.Background()
	backend := querystore.NewFileBackend(filepath.Join(t.TempDir(), "queries.json"))
	store := querystore.Open(ctx, backend, nil)
	defer store.Close()

	require.NoError(t, store.Save(ctx, types.SavedQuery{ID: "a1", Name: "ocrelizumab"}))
	require.NoError(t, store.Save(ctx, types.SavedQuery{ID: "b2", Name: "twin"}))
	require.NoError(t, store.Save(ctx, types.SavedQuery{ID: "c3", Name: "twin"}))

	q, err := findQuery(store, "b2")
	require.NoError(t, err)
	assert.Equal(t, "twin", q.Name)

	q, err = findQuery(store, "ocrelizumab")
	require.NoError(t, err)
	assert.Equal(t, "a1", q.ID)

	_, err = findQuery(store, "twin")
	assert.ErrorContains(t, err, "use the id")

	_, err = findQuery(store, "missing")
	assert.ErrorContains(t, err, "no saved query")
}

func TestPrompter(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("  \nname\nY\nno\n"), &out)

	s, err := p.askRequired("Query name")
	require.NoError(t, err)
	assert.Equal(t, "name", s)
	assert.Contains(t, out.String(), "A value is required.")

	ok, err := p.confirm("Continue?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.confirm("Continue?")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.ask("More")
	assert.ErrorIs(t, err, io.EOF)
}
