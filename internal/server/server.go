// Package server exposes context retrieval over HTTP: token issuance,
// authenticated context queries and health endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vibecoding/mcp-server/internal/auth"
	"github.com/vibecoding/mcp-server/internal/retrieval"
)

// Config holds server configuration.
type Config struct {
	Host     string
	Port     int
	AllowAll bool   // allow all CORS origins (dev mode)
	Version  string // reported by /api/version
}

// Server wires the retrieval orchestrator and auth service into an HTTP
// surface.
type Server struct {
	cfg        Config
	auth       *auth.Service
	retriever  *retrieval.Orchestrator
	aggregator retrieval.ContextProvider // raw endpoint, bypasses the index
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies.
func New(cfg Config, authSvc *auth.Service, retriever *retrieval.Orchestrator, aggregator retrieval.ContextProvider) *Server {
	s := &Server{
		cfg:        cfg,
		auth:       authSvc,
		retriever:  retriever,
		aggregator: aggregator,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/version", s.handleVersion)
	r.Post("/token", s.handleToken)

	// Context retrieval requires a valid bearer token.
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Post("/context", s.handleContext)
		r.Post("/raw-context", s.handleRawContext)
	})

	return r
}

// Router returns the chi router, exposed for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("server: listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
