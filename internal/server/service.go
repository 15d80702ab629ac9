// Package server provides the HTTP API for mentor. Handlers are thin
// request/response marshaling over the engine and the session store.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/mentor/internal/catalog"
	"github.com/thebtf/mentor/internal/store"
	"github.com/thebtf/mentor/pkg/models"
)

// Engine is the query-processing surface the HTTP layer fronts.
type Engine interface {
	Process(ctx context.Context, query, department, sessionID string) (string, error)
	GenerateRoadmap(ctx context.Context, department, level string) *models.Roadmap
}

// Service is the HTTP API service.
type Service struct {
	version   string
	engine    Engine
	store     *store.SessionStore
	catalog   *catalog.Catalog
	router    chi.Router
	startTime time.Time
}

// New creates the service and mounts its routes.
func New(version string, engine Engine, sessionStore *store.SessionStore, cat *catalog.Catalog) *Service {
	svc := &Service{
		version:   version,
		engine:    engine,
		store:     sessionStore,
		catalog:   cat,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	svc.setupRoutes()
	return svc
}

// Handler returns the mounted router.
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/history/{sessionID}", s.handleHistory)
		r.Delete("/session/{sessionID}", s.handleDeleteSession)

		r.Get("/tasks/{sessionID}", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Put("/tasks/{sessionID}/{taskID}", s.handleUpdateTask)
		r.Delete("/tasks/{sessionID}/{taskID}", s.handleDeleteTask)

		r.Post("/timer/log", s.handleLogStudy)
		r.Get("/analytics/{sessionID}", s.handleAnalytics)

		r.Post("/roadmap/generate", s.handleRoadmap)
		r.Get("/resources", s.handleResources)
	})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Service) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Str("version", s.version).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs each request with method, path, and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
