// Package http exposes the dashboard API: summaries, the ledger, bulk-delete
// confirmations and imports, all as JSON under /api.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"finboard/internal/cache"
	"finboard/internal/log"
	"finboard/internal/middleware/auth"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
)

const requestTimeout = 30 * time.Second

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries the HTTP-facing settings.
type Config struct {
	Addr               string
	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string
	HSTSEnabled        bool
	RateLimitRPS       int
	RateLimitBurst     int
}

// Deps are the services the handlers call.
type Deps struct {
	Summary *services.SummaryService
	Ledger  *services.LedgerService
	Imports *services.ImportService
	DB      Pinger
	Cache   *cache.Manager
	Logger  *log.Logger
}

// Server is the HTTP API. Build it with NewServer.
type Server struct {
	http.Server

	summary *services.SummaryService
	ledger  *services.LedgerService
	imports *services.ImportService
	db      Pinger
	cache   *cache.Manager

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	started         time.Time
	shutdownOnce    sync.Once
}

// NewServer wires middleware and routes, returning a ready-to-run server.
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	ipResolver := security.NewClientIPResolver()

	s := &Server{
		summary: deps.Summary,
		ledger:  deps.Ledger,
		imports: deps.Imports,
		db:      deps.DB,
		cache:   deps.Cache,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: float64(cfg.RateLimitRPS),
			Burst:             cfg.RateLimitBurst,
		}),
		traceMiddleware: trace.NewMiddleware(ipResolver.ClientIP),
		started:         time.Now(),
	}

	headersCfg := security.DefaultHeadersConfig()
	headersCfg.HSTSEnabled = cfg.HSTSEnabled
	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(logger.WithComponent(log.ComponentHTTP)))
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(security.NewHeadersMiddleware(headersCfg).Middleware)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{trace.RequestIDHeader, "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(ipResolver.ClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeErrorStatus(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
		}))
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(authenticator.Middleware)

		r.With(log.ComponentMiddleware(log.ComponentSummary)).Get("/summary", s.handleSummary)

		r.Group(func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentLedger))

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", s.handleListAccounts)
				r.Post("/", s.handleCreateAccount)
				r.Post("/bulk-delete", s.handleBulkDeleteAccounts)
				r.Get("/{id}", s.handleGetAccount)
				r.Patch("/{id}", s.handleRenameAccount)
				r.Delete("/{id}", s.handleDeleteAccount)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", s.handleListCategories)
				r.Post("/", s.handleCreateCategory)
				r.Post("/bulk-delete", s.handleBulkDeleteCategories)
				r.Get("/{id}", s.handleGetCategory)
				r.Patch("/{id}", s.handleRenameCategory)
				r.Delete("/{id}", s.handleDeleteCategory)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.handleListTransactions)
				r.Post("/", s.handleCreateTransaction)
				r.Post("/bulk-create", s.handleBulkCreateTransactions)
				r.Post("/bulk-delete", s.handleBulkDeleteTransactions)
				r.Get("/{id}", s.handleGetTransaction)
				r.Patch("/{id}", s.handleUpdateTransaction)
				r.Delete("/{id}", s.handleDeleteTransaction)
			})
		})

		r.With(log.ComponentMiddleware(log.ComponentConfirm)).Post("/confirmations/{id}", s.handleConfirm)

		r.Route("/imports", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentImport))
			r.Post("/", s.handleCreateImport)
			r.Get("/{id}", s.handleGetImport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorStatus(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
