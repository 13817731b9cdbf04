// Package server exposes the retrieval pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/answercache"
	"github.com/hyperjump/mitate/internal/catalog"
	"github.com/hyperjump/mitate/internal/config"
	"github.com/hyperjump/mitate/internal/orchestrator"
	"github.com/hyperjump/mitate/internal/personalization"
	"github.com/hyperjump/mitate/internal/preferences"
	"github.com/hyperjump/mitate/internal/session"
	"github.com/hyperjump/mitate/internal/vector"
)

// Server wires the orchestrator and its supporting stores to HTTP routes.
type Server struct {
	cfg         *config.Config
	orch        *orchestrator.Orchestrator
	recommender *personalization.Recommender
	catalog     *catalog.Catalog
	prefs       preferences.Store
	cache       *answercache.Cache
	sessions    *session.Store
	textIndex   vector.Index
	imageIndex  vector.Index // nil when image search is disabled
	logger      *zap.Logger
	httpServer  *http.Server
}

type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Recommender  *personalization.Recommender
	Catalog      *catalog.Catalog
	Prefs        preferences.Store
	Cache        *answercache.Cache
	Sessions     *session.Store
	TextIndex    vector.Index
	ImageIndex   vector.Index
}

func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	return &Server{
		cfg:         cfg,
		orch:        deps.Orchestrator,
		recommender: deps.Recommender,
		catalog:     deps.Catalog,
		prefs:       deps.Prefs,
		cache:       deps.Cache,
		sessions:    deps.Sessions,
		textIndex:   deps.TextIndex,
		imageIndex:  deps.ImageIndex,
		logger:      logger,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(newRateLimiter(s.cfg.RateLimit).middleware)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/search/image", s.handleImageSearch)
		r.Post("/chat", s.handleChat)
		r.Get("/recommendations/{userID}", s.handleRecommendations)
		r.Get("/products/{id}", s.handleGetProduct)
		r.Get("/stats", s.handleStats)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Put("/preferences", s.handleSetPreferences)
			r.Get("/preferences", s.handleGetPreferences)
			r.Post("/favorites/{productID}", s.handleAddFavorite)
			r.Delete("/favorites/{productID}", s.handleRemoveFavorite)
		})
	})
	return r
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down http server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
