// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package authoring talks to the external query-authoring service and
// drives the step-by-step authoring of a saved query.
//
// The service turns a free-text research question into clarifying
// questions, a boolean search expression, a result-count estimate and
// synonym suggestions, and renders funnel diagrams to PNG. Its replies are
// treated as opaque: this package only checks their shape.
package authoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-assistant/internal/httputil"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

// DiagramFileName is the file name an exported funnel diagram is saved as.
const DiagramFileName = "prisma_diagram.png"

const maxErrorBody = 512

const (
	breakerFailures    = 5
	breakerOpenTimeout = 30 * time.Second
)

// SynonymRequest is the context sent when asking for synonyms.
type SynonymRequest struct {
	Description string            `json:"description"`
	Questions   []string          `json:"questions"`
	Answers     map[string]string `json:"answers"`
	Query       string            `json:"query"`
}

// SynonymGroup is one concept of the search expression with alternative
// terms for it. Abstraction is the short label shown for the concept.
type SynonymGroup struct {
	Concept     string   `json:"concept"`
	Abstraction string   `json:"abstraction"`
	Synonyms    []string `json:"synonyms"`
}

// ServiceError reports a non-2xx reply, or a 2xx reply carrying an error
// field. Detail is the message the service gave, if any.
type ServiceError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: service returned HTTP %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: service returned HTTP %d: %s", e.Operation, e.StatusCode, e.Detail)
}

// Client calls the query-authoring service. Requests go through a Retrier,
// so only HTTP 429 is retried; every other failure is returned as is.
//
// When Breaker is set, consecutive transport failures and 5xx replies open
// it and later calls fail fast with gobreaker.ErrOpenState until it
// half-opens again.
type Client struct {
	BaseURL    string
	HTTPClient httputil.Doer
	APIKey     string
	UserAgent  string
	MaxRetries int
	Logger     *zap.Logger
	Breaker    *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient builds a client from cfg.
func NewClient(cfg types.AuthoringConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		APIKey:     cfg.APIKey,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
		Breaker:    newBreaker(logger),
	}
}

func newBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "authoring",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var serr *ServiceError
			return errors.As(err, &serr) && serr.StatusCode < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// IsCircuitOpen reports whether err came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// GenerateQuestions asks for clarifying questions about text, in the order
// the service returns them.
func (c *Client) GenerateQuestions(ctx context.Context, text string) ([]string, error) {
	const op = "generate questions"
	var out struct {
		Questions []string `json:"questions"`
	}
	if err := c.postJSON(ctx, op, "/generate_questions", map[string]string{"query": text}, &out); err != nil {
		return nil, err
	}
	if out.Questions == nil {
		return []string{}, nil
	}
	return out.Questions, nil
}

// GenerateSearchExpression asks for a boolean search expression for text
// refined by answers. Code fences are stripped and the result is trimmed.
func (c *Client) GenerateSearchExpression(ctx context.Context, text string, answers map[string]string) (string, error) {
	const op = "generate search expression"
	if answers == nil {
		answers = map[string]string{}
	}
	body := struct {
		Query   string            `json:"query"`
		Answers map[string]string `json:"answers"`
	}{text, answers}

	var out struct {
		Query string `json:"query"`
	}
	if err := c.postJSON(ctx, op, "/generate_pubmed_query", body, &out); err != nil {
		return "", err
	}
	return CleanExpression(out.Query), nil
}

// CleanExpression removes every ``` fence marker from expr and trims
// surrounding whitespace.
func CleanExpression(expr string) string {
	return strings.TrimSpace(strings.ReplaceAll(expr, "```", ""))
}

// EstimateCount asks the service how many documents expr would match.
func (c *Client) EstimateCount(ctx context.Context, expr string) (int, error) {
	const op = "estimate documents"
	var out struct {
		EstimatedDocuments *int `json:"estimatedDocuments"`
	}
	if err := c.postJSON(ctx, op, "/estimate_documents", map[string]string{"query": expr}, &out); err != nil {
		return 0, err
	}
	if out.EstimatedDocuments == nil {
		return 0, fmt.Errorf("%s: response has no estimatedDocuments", op)
	}
	return *out.EstimatedDocuments, nil
}

// GenerateSynonyms asks for synonym groups for the concepts of req.Query.
func (c *Client) GenerateSynonyms(ctx context.Context, req SynonymRequest) ([]SynonymGroup, error) {
	const op = "generate synonyms"
	if req.Questions == nil {
		req.Questions = []string{}
	}
	if req.Answers == nil {
		req.Answers = map[string]string{}
	}

	var out struct {
		SynonymGroups json.RawMessage `json:"synonym_groups"`
		Error         string          `json:"error"`
	}
	if err := c.postJSON(ctx, op, "/generate_synonyms", req, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &ServiceError{Operation: op, StatusCode: http.StatusOK, Detail: out.Error}
	}

	var groups []SynonymGroup
	if err := json.Unmarshal(out.SynonymGroups, &groups); err != nil {
		return nil, fmt.Errorf("%s: synonym_groups is not a list: %w", op, err)
	}
	if groups == nil {
		return nil, fmt.Errorf("%s: response has no synonym_groups", op)
	}
	return groups, nil
}

// ExportDiagram asks the service to render the funnel for m and returns
// the PNG bytes.
func (c *Client) ExportDiagram(ctx context.Context, m types.FunnelMetrics) ([]byte, error) {
	const op = "export diagram"
	resp, err := c.post(ctx, op, "/export_prisma", m)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading image: %w", op, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty image", op)
	}
	return data, nil
}

// postJSON posts body and decodes a 2xx JSON reply into out.
func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	resp, err := c.post(ctx, op, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: parsing response: %w", op, err)
	}
	return nil
}

// post sends body as JSON and returns a 2xx response. The caller closes
// the body. Non-2xx replies become a *ServiceError.
func (c *Client) post(ctx context.Context, op, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	logger := c.logger()
	logger.Debug("calling authoring service", zap.String("operation", op), zap.String("path", path))

	call := func() (*http.Response, error) {
		retrier := &httputil.Retrier{Client: c.httpClient(), MaxRetries: c.MaxRetries, Logger: logger}
		resp, err := retrier.Do(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			defer resp.Body.Close()
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			logger.Warn("authoring service call failed", zap.String("operation", op), zap.Int("status", resp.StatusCode))
			return nil, &ServiceError{Operation: op, StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
		}
		return resp, nil
	}

	if c.Breaker == nil {
		return call()
	}
	resp, err := c.Breaker.Execute(call)
	if IsCircuitOpen(err) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, err
}

func (c *Client) httpClient() httputil.Doer {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// errorDetail pulls a message out of an error body: the FastAPI "detail"
// field, then an "error" field, then the raw text.
func errorDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if len(body.Detail) > 0 {
			var s string
			if json.Unmarshal(body.Detail, &s) == nil {
				return s
			}
			return string(body.Detail)
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
