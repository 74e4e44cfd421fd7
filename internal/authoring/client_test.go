// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package authoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slr-assistant/internal/httputil"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

// --- test helpers ---

// newServiceServer serves path with handler and fails the test on any other path.
func newServiceServer(t *testing.T, path string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("unexpected path %s, want %s", r.URL.Path, path)
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(types.AuthoringConfig{
		BaseURL:    srv.URL + "/",
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "slr-assistant-test"},
	}, nil)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// --- tests ---

func TestGenerateQuestions(t *testing.T) {
	c := newServiceServer(t, "/generate_questions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "slr-assistant-test", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "ocrelizumab combination therapy", decodeBody(t, r)["query"])
		writeJSON(w, http.StatusOK, map[string]any{"questions": []string{"Which population?", "Which outcome?"}})
	})

	qs, err := c.GenerateQuestions(context.Background(), "ocrelizumab combination therapy")
	require.NoError(t, err)
	assert.Equal(t, []string{"Which population?", "Which outcome?"}, qs)
}

func TestGenerateQuestionsBearerToken(t *testing.T) {
	c := newServiceServer(t, "/generate_questions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"questions": nil})
	})
	c.APIKey = "secret-token"

	qs, err := c.GenerateQuestions(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, qs)
	assert.NotNil(t, qs)
}

func TestGenerateSearchExpressionStripsFences(t *testing.T) {
	c := newServiceServer(t, "/generate_pubmed_query", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "ocrelizumab", body["query"])
		assert.Equal(t, map[string]any{"Which population?": "adults"}, body["answers"])
		writeJSON(w, http.StatusOK, map[string]string{"query": "```\n(ocrelizumab) AND (multiple sclerosis)\n```"})
	})

	expr, err := c.GenerateSearchExpression(context.Background(), "ocrelizumab", map[string]string{"Which population?": "adults"})
	require.NoError(t, err)
	assert.Equal(t, "(ocrelizumab) AND (multiple sclerosis)", expr)
}

func TestCleanExpression(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"  ```a``` ", "a"},
		{"```sql\nx AND y\n```", "sql\nx AND y"},
		{"a ``` b", "a  b"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanExpression(tt.in), "CleanExpression(%q)", tt.in)
	}
}

func TestEstimateCount(t *testing.T) {
	c := newServiceServer(t, "/estimate_documents", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "x AND y", decodeBody(t, r)["query"])
		writeJSON(w, http.StatusOK, map[string]int{"estimatedDocuments": 1234})
	})

	n, err := c.EstimateCount(context.Background(), "x AND y")
	require.NoError(t, err)
	assert.Equal(t, 1234, n)
}

func TestEstimateCountMissingField(t *testing.T) {
	c := newServiceServer(t, "/estimate_documents", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{})
	})

	_, err := c.EstimateCount(context.Background(), "x")
	assert.Error(t, err)
}

func TestGenerateSynonyms(t *testing.T) {
	c := newServiceServer(t, "/generate_synonyms", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "desc", body["description"])
		assert.Equal(t, []any{"q1"}, body["questions"])
		assert.Equal(t, "expr", body["query"])
		writeJSON(w, http.StatusOK, map[string]any{
			"synonym_groups": []map[string]any{
				{"concept": "ocrelizumab", "abstraction": "Drug", "synonyms": []string{"Ocrevus", "RG1594"}},
			},
		})
	})

	groups, err := c.GenerateSynonyms(context.Background(), SynonymRequest{
		Description: "desc",
		Questions:   []string{"q1"},
		Answers:     map[string]string{"q1": "a1"},
		Query:       "expr",
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, SynonymGroup{Concept: "ocrelizumab", Abstraction: "Drug", Synonyms: []string{"Ocrevus", "RG1594"}}, groups[0])
}

func TestGenerateSynonymsErrorField(t *testing.T) {
	c := newServiceServer(t, "/generate_synonyms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"synonym_groups": []any{}, "error": "model overloaded"})
	})

	_, err := c.GenerateSynonyms(context.Background(), SynonymRequest{})
	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "model overloaded", serr.Detail)
}

func TestGenerateSynonymsWrongShape(t *testing.T) {
	c := newServiceServer(t, "/generate_synonyms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"synonym_groups": "nope"})
	})

	_, err := c.GenerateSynonyms(context.Background(), SynonymRequest{})
	assert.Error(t, err)
}

func TestExportDiagram(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	c := newServiceServer(t, "/export_prisma", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.EqualValues(t, 1000, body["totalVolume"])
		assert.EqualValues(t, 600, body["pubmedVolume"])
		assert.EqualValues(t, 400, body["semanticScholarVolume"])
		assert.EqualValues(t, 100, body["duplicates"])
		assert.EqualValues(t, 900, body["postDeduplication"])
		assert.EqualValues(t, 162, body["hundredPercentMatch"])
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	data, err := c.ExportDiagram(context.Background(), types.FunnelMetrics{
		TotalVolume: 1000, PrimaryVolume: 600, SecondaryVolume: 400,
		DuplicateCount: 100, PostDeduplicationCount: 900, FullMatchCount: 162,
	})
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"fastapi detail", http.StatusInternalServerError, `{"detail":"OpenAI quota exceeded"}`, "OpenAI quota exceeded"},
		{"validation detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
		{"error field", http.StatusBadRequest, `{"error":"bad query"}`, "bad query"},
		{"plain text", http.StatusBadGateway, "upstream down\n", "upstream down"},
		{"empty", http.StatusServiceUnavailable, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServiceServer(t, "/generate_questions", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.GenerateQuestions(context.Background(), "x")
			var serr *ServiceError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.status, serr.StatusCode)
			assert.Equal(t, tt.wantDetail, serr.Detail)
			assert.Equal(t, "generate questions", serr.Operation)
			assert.Contains(t, err.Error(), "generate questions")
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	c := newServiceServer(t, "/generate_questions", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>")
	})

	_, err := c.GenerateQuestions(context.Background(), "x")
	require.Error(t, err)
	var serr *ServiceError
	assert.False(t, errors.As(err, &serr))
	assert.Contains(t, err.Error(), "parsing response")
}

func TestRetriesOnlyOn429(t *testing.T) {
	orig := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { httputil.RetryBaseDelay = orig })

	var calls atomic.Int32
	c := newServiceServer(t, "/generate_questions", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, "x", decodeBody(t, r)["query"], "body is re-sent on retry")
		writeJSON(w, http.StatusOK, map[string]any{"questions": []string{"q"}})
	})

	qs, err := c.GenerateQuestions(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, qs)
	assert.EqualValues(t, 2, calls.Load())
}

func TestNoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newServiceServer(t, "/generate_questions", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GenerateQuestions(context.Background(), "x")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(types.AuthoringConfig{BaseURL: url, HTTPConfig: types.HTTPConfig{Timeout: time.Second}}, nil)
	_, err := c.GenerateQuestions(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate questions")
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newServiceServer(t, "/generate_questions", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for range breakerFailures {
		_, err := c.GenerateQuestions(context.Background(), "x")
		var serr *ServiceError
		require.ErrorAs(t, err, &serr)
	}

	_, err := c.GenerateQuestions(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
	assert.Contains(t, err.Error(), "generate questions")
	assert.EqualValues(t, breakerFailures, calls.Load(), "open breaker does not reach the service")
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newServiceServer(t, "/generate_questions", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	for range breakerFailures + 2 {
		_, err := c.GenerateQuestions(context.Background(), "x")
		assert.False(t, IsCircuitOpen(err))
	}
	assert.EqualValues(t, breakerFailures+2, calls.Load())
}
