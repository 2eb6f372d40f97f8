// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/tsundoku/internal/collection"
	"github.com/taibuivan/tsundoku/internal/covers"
	"github.com/taibuivan/tsundoku/internal/platform/config"
	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/internal/platform/middleware"
	"github.com/taibuivan/tsundoku/internal/search"
	"github.com/taibuivan/tsundoku/internal/users/account"
	"github.com/taibuivan/tsundoku/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. It returns 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It returns 200 when the library file and Redis are usable.
	Readiness http.HandlerFunc

	// Auth handles login, logout, session and password routes.
	Auth *auth.Handler

	// Account manages the external catalog API keys.
	Account *account.Handler

	// Collection handles books, wishlist and reading folders.
	Collection *collection.Handler

	// Covers serves and maintains the local cover cache.
	Covers *covers.Handler

	// Search queries external catalogs and scrapes album pages.
	Search *search.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.SessionVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	limiter := middleware.NewRateLimiter(context, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(limiter.Handler)
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg, cfg.AllowedOrigins))
	r.Use(middleware.Authenticate(verifier))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// Cached covers are referenced by <img> tags, so they stay public.
	r.Get(constants.CoversPublicPrefix+"{name}", h.Covers.ServeCover)

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireSession)

			// Cover migration may exceed the ordinary request deadline.
			protected.Mount("/covers", h.Covers.Routes())

			protected.Group(func(bounded chi.Router) {
				bounded.Use(chimw.Timeout(constants.GlobalRequestTimeout))
				bounded.Mount("/account", h.Account.Routes())
				bounded.Mount("/search", h.Search.Routes())
				bounded.Get("/scrape", h.Search.Scrape)
				bounded.Mount("/", h.Collection.Routes())
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the root router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
