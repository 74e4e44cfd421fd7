// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package authoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/slr-assistant/internal/httputil"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

// openAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

// openAlexRPS is the polite-pool request rate.
const openAlexRPS = 10

// Estimator predicts how many documents a search expression matches.
type Estimator interface {
	EstimateCount(ctx context.Context, expr string) (int, error)
}

// NewEstimator returns the estimator selected by cfg.Estimator. The
// authoring service is the default.
func NewEstimator(cfg types.AuthoringConfig, client *Client, logger *zap.Logger) (Estimator, error) {
	switch cfg.Estimator {
	case types.EstimatorService, "":
		return client, nil
	case types.EstimatorOpenAlex:
		return &OpenAlexEstimator{
			Client:     &http.Client{Timeout: cfg.Timeout},
			Email:      cfg.OpenAlexEmail,
			UserAgent:  cfg.UserAgent,
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
			Limiter:    rate.NewLimiter(rate.Limit(openAlexRPS), 1),
		}, nil
	default:
		return nil, fmt.Errorf("unknown estimator %q: use service or openalex", cfg.Estimator)
	}
}

// OpenAlexEstimator reads the match count OpenAlex reports for a search.
// Only one result is requested; the count comes from the response meta.
type OpenAlexEstimator struct {
	Client httputil.Doer
	// Email is sent as mailto parameter for polite pool access.
	Email      string
	UserAgent  string
	MaxRetries int
	Logger     *zap.Logger
	// Limiter paces requests when set.
	Limiter *rate.Limiter
}

// EstimateCount returns meta.count for expr.
func (e *OpenAlexEstimator) EstimateCount(ctx context.Context, expr string) (int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty OpenAlex query")
	}

	params := url.Values{
		"search":   {expr},
		"per_page": {"1"},
		"select":   {"id"},
	}
	if e.Email != "" {
		params.Set("mailto", e.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexWorksBase+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}

	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("waiting for OpenAlex rate limit: %w", err)
		}
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	retrier := &httputil.Retrier{Client: client, MaxRetries: e.MaxRetries, Logger: e.Logger}
	resp, err := retrier.Do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar struct {
		Meta struct {
			Count *int `json:"count"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return 0, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	if oar.Meta.Count == nil {
		return 0, fmt.Errorf("OpenAlex response has no meta.count")
	}
	return *oar.Meta.Count, nil
}
