// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package authoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

func withOpenAlexServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	orig := openAlexWorksBase
	openAlexWorksBase = srv.URL + "/works"
	t.Cleanup(func() { openAlexWorksBase = orig })
}

func TestOpenAlexEstimate(t *testing.T) {
	withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/works", r.URL.Path)
		assert.Equal(t, "ocrelizumab AND multiple sclerosis", q.Get("search"))
		assert.Equal(t, "1", q.Get("per_page"))
		assert.Equal(t, "me@example.org", q.Get("mailto"))
		assert.Equal(t, "slr-assistant-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"meta":{"count":4821,"per_page":1,"page":1},"results":[{"id":"W1"}]}`))
	})

	e := &OpenAlexEstimator{Client: http.DefaultClient, Email: "me@example.org", UserAgent: "slr-assistant-test"}
	n, err := e.EstimateCount(context.Background(), "ocrelizumab AND multiple sclerosis")
	require.NoError(t, err)
	assert.Equal(t, 4821, n)
}

func TestOpenAlexEstimateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusInternalServerError, "", "HTTP 500"},
		{"bad json", http.StatusOK, "{", "parsing OpenAlex response"},
		{"no count", http.StatusOK, `{"meta":{}}`, "no meta.count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := (&OpenAlexEstimator{}).EstimateCount(context.Background(), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenAlexEstimateLimiterCancelled(t *testing.T) {
	withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	// Burst 1 already spent, so the next Wait has to block and sees the
	// cancelled context.
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&OpenAlexEstimator{Limiter: limiter}).EstimateCount(ctx, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestOpenAlexEstimateEmptyExpression(t *testing.T) {
	_, err := (&OpenAlexEstimator{}).EstimateCount(context.Background(), "  ")
	assert.Error(t, err)
}

func TestNewEstimator(t *testing.T) {
	client := NewClient(types.AuthoringConfig{BaseURL: "http://localhost:8000"}, nil)

	e, err := NewEstimator(types.AuthoringConfig{}, client, nil)
	require.NoError(t, err)
	assert.Same(t, client, e)

	e, err = NewEstimator(types.AuthoringConfig{
		Estimator:     types.EstimatorOpenAlex,
		OpenAlexEmail: "me@example.org",
		HTTPConfig:    types.HTTPConfig{Timeout: time.Second},
	}, client, nil)
	require.NoError(t, err)
	oa, ok := e.(*OpenAlexEstimator)
	require.True(t, ok)
	assert.Equal(t, "me@example.org", oa.Email)
	require.NotNil(t, oa.Limiter)
	assert.InDelta(t, float64(openAlexRPS), float64(oa.Limiter.Limit()), 1e-9)

	_, err = NewEstimator(types.AuthoringConfig{Estimator: "crystal-ball"}, client, nil)
	assert.Error(t, err)
}
