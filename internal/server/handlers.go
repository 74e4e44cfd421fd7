// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-assistant/internal/authoring"
	"github.com/pdiddy/slr-assistant/internal/duplicates"
	"github.com/pdiddy/slr-assistant/internal/fixtures"
	"github.com/pdiddy/slr-assistant/internal/funnel"
	"github.com/pdiddy/slr-assistant/internal/screening"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

type metricsResponse struct {
	types.FunnelMetrics
	ReductionPercentage int `json:"reductionPercentage"`
}

type diagramResponse struct {
	Metrics             types.FunnelMetrics `json:"metrics"`
	Stages              []funnel.Stage      `json:"stages"`
	ReductionPercentage int                 `json:"reductionPercentage"`
}

type duplicatesResponse struct {
	DuplicateCount int                   `json:"duplicateCount"`
	Pairs          []types.DuplicatePair `json:"pairs"`
	Displayed      int                   `json:"displayed"`
}

type screenRequest struct {
	Criteria    []string `json:"criteria"`
	DocumentIDs []int    `json:"documentIds"`
	Seed        uint64   `json:"seed"`
}

type screenResponse struct {
	Documents      []types.Document         `json:"documents"`
	Criteria       []types.Criterion        `json:"criteria"`
	Results        types.AnalysisResult     `json:"results"`
	Justifications screening.Justifications `json:"justifications"`
	FullMatch      []int                    `json:"fullMatch"`
	Summary        screening.Summary        `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleSaveQuery(w http.ResponseWriter, r *http.Request) {
	var q types.SavedQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CollectedDocuments.Primary < 0 || q.CollectedDocuments.Secondary < 0 {
		s.respondError(w, http.StatusBadRequest, "collected document counts must be non-negative")
		return
	}
	if err := s.store.Save(r.Context(), q); err != nil {
		s.logger.Error("saving query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.RecordSave(len(s.store.List()))
	s.respondJSON(w, http.StatusCreated, q)
}

func (s *Server) handleClearQueries(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.logger.Error("clearing queries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.SetStored(0)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// query resolves the {id} path parameter, answering 404 when it is unknown.
func (s *Server) query(w http.ResponseWriter, r *http.Request) (types.SavedQuery, bool) {
	id := chi.URLParam(r, "id")
	q, ok := s.store.Find(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("query %q not found", id))
	}
	return q, ok
}

func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleQueryMetrics(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w, r)
	if !ok {
		return
	}
	m := s.calc.Calculate(q)
	s.respondJSON(w, http.StatusOK, metricsResponse{FunnelMetrics: m, ReductionPercentage: funnel.ReductionPercentage(m)})
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w, r)
	if !ok {
		return
	}
	m := s.calc.Calculate(q)
	s.respondJSON(w, http.StatusOK, diagramResponse{
		Metrics:             m,
		Stages:              funnel.Stages(m),
		ReductionPercentage: funnel.ReductionPercentage(m),
	})
}

func (s *Server) handleDiagramExport(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w, r)
	if !ok {
		return
	}
	if s.exporter == nil {
		s.respondError(w, http.StatusServiceUnavailable, "diagram export is not configured")
		return
	}

	png, err := s.exporter.ExportDiagram(r.Context(), s.calc.Calculate(q))
	s.metrics.RecordDiagramExport(err == nil)
	if err != nil {
		s.logger.Warn("diagram export failed", zap.String("query", q.ID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", authoring.DiagramFileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w, r)
	if !ok {
		return
	}
	pool, err := fixtures.DuplicatePairs()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	review := duplicates.NewReview(s.calc)
	review.Start(q, pool)
	s.respondJSON(w, http.StatusOK, duplicatesResponse{
		DuplicateCount: review.Metrics().DuplicateCount,
		Pairs:          review.Pairs(),
		Displayed:      len(review.Displayed()),
	})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	q, ok := s.query(w, r)
	if !ok {
		return
	}
	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.screening
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	session := screening.NewSession(cfg, s.calc, s.logger)
	if err := session.SelectQuery(q); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, c := range req.Criteria {
		session.AddCriterion(c)
	}
	if len(req.DocumentIDs) == 0 {
		session.SelectAll()
	}
	for _, id := range req.DocumentIDs {
		if !session.ToggleDocument(id) {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown document %d", id))
			return
		}
	}

	if err := session.Analyze(r.Context()); err != nil {
		if errors.Is(err, screening.ErrCannotAnalyze) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	analysis := session.Analysis()
	verdicts := map[string]int{}
	for _, row := range analysis.Results {
		for _, v := range row {
			verdicts[string(v)]++
		}
	}
	s.metrics.RecordScreening(verdicts)

	fullMatch := []int{}
	for _, id := range session.Analyzed() {
		if session.IsFullMatch(id) {
			fullMatch = append(fullMatch, id)
		}
	}
	summary, _ := session.Summary()
	s.respondJSON(w, http.StatusOK, screenResponse{
		Documents:      session.Documents(),
		Criteria:       session.Criteria(),
		Results:        analysis.Results,
		Justifications: analysis.Justifications,
		FullMatch:      fullMatch,
		Summary:        summary,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
