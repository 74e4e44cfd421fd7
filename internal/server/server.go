// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the assistant over a JSON HTTP API so a browser
// front end can list and save queries, read funnel metrics, review
// duplicates, screen documents and export the funnel diagram.
//
// Screening and duplicate review are computed per request; the only shared
// state is the query store.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/slr-assistant/internal/funnel"
	"github.com/pdiddy/slr-assistant/internal/querystore"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

const (
	defaultAddr           = "127.0.0.1:8080"
	defaultRequestTimeout = 60 * time.Second
)

// DiagramExporter renders funnel metrics to an image.
type DiagramExporter interface {
	ExportDiagram(ctx context.Context, m types.FunnelMetrics) ([]byte, error)
}

// Server is the HTTP server for the assistant API.
type Server struct {
	store     *querystore.Store
	calc      funnel.Calculator
	exporter  DiagramExporter
	screening types.ScreeningConfig
	config    types.ServerConfig
	metrics   *Metrics
	logger    *zap.Logger

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a server with the given dependencies. exporter may be
// nil, in which case diagram export answers 503.
func NewServer(
	store *querystore.Store,
	calc funnel.Calculator,
	exporter DiagramExporter,
	screening types.ScreeningConfig,
	cfg types.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{
		store:     store,
		calc:      calc,
		exporter:  exporter,
		screening: screening,
		config:    cfg,
		metrics:   NewMetrics(),
		logger:    logger,
	}
	s.metrics.SetStored(len(store.List()))
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Timeout(s.config.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1/queries", func(r chi.Router) {
		r.Get("/", s.handleListQueries)
		r.Post("/", s.handleSaveQuery)
		r.Delete("/", s.handleClearQueries)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetQuery)
			r.Get("/metrics", s.handleQueryMetrics)
			r.Get("/diagram", s.handleDiagram)
			r.Post("/diagram/export", s.handleDiagramExport)
			r.Get("/duplicates", s.handleDuplicates)
			r.Post("/screen", s.handleScreen)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops. A clean shutdown
// through Stop returns nil.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("starting server", zap.String("addr", s.config.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs one line per request with zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
