package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/entityops/einfiler/api/schemas"
	"github.com/entityops/einfiler/internal/config"
)

// RunExecutor runs the wizard for one record; satisfied by *Runner.
type RunExecutor interface {
	Execute(ctx context.Context, record schemas.CaseRecord) schemas.RunResult
}

// Decisions receives proceed/abort callbacks; satisfied by *confirm.Store.
type Decisions interface {
	Put(recordID string, proceed bool)
}

// CaseFetcher pulls a case record from the CRM; nil when Salesforce is
// not configured.
type CaseFetcher interface {
	FetchCase(ctx context.Context, recordID string) (schemas.CaseRecord, error)
}

// Artifacts writes and locates the CSV debug exports; nil when the
// export feature is disabled.
type Artifacts interface {
	Artifact
	LastPath() string
}

// RunHistory reads back past attempts for a record; nil when the run
// store is disabled.
type RunHistory interface {
	RunsForRecord(ctx context.Context, recordID string) ([]schemas.RunResult, error)
}

// Server is the HTTP face of the filer.
type Server struct {
	cfg       config.ServerConfig
	logger    *zap.Logger
	runner    RunExecutor
	decisions Decisions
	fetcher   CaseFetcher
	artifacts Artifacts
	history   RunHistory
	http      *http.Server
}

// NewServer assembles the router. fetcher, artifacts, and history may be
// nil; the matching endpoints then report the feature as unavailable.
func NewServer(cfg config.ServerConfig, logger *zap.Logger, runner RunExecutor,
	decisions Decisions, fetcher CaseFetcher, artifacts Artifacts, history RunHistory) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		runner:    runner,
		decisions: decisions,
		fetcher:   fetcher,
		artifacts: artifacts,
		history:   history,
	}
	s.http = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.routes(),
		ReadTimeout: cfg.ReadTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Post("/runs", s.handleRun)
		r.Get("/runs/{recordID}", s.handleRunHistory)
		r.Post("/runs/{recordID}/confirmation", s.handleConfirmation)
		r.Get("/export", s.handleExport)
		r.Post("/salesforce/fetch", s.handleSalesforceFetch)
	})

	return r
}

// requireBearer enforces the static API token with a constant-time
// comparison.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if s.cfg.APIToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.APIToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Serve runs the listener until the context is cancelled, then drains
// in-flight requests within the shutdown grace period.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening.", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
