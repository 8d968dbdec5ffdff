// Package server binds the analytics engines to HTTP. Thin handlers:
// validate, call the engine, encode. All domain policy lives below.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/mavuno/sokoscope/internal/market"
	"github.com/mavuno/sokoscope/internal/pricing"
	"github.com/mavuno/sokoscope/internal/reputation"
	"github.com/mavuno/sokoscope/internal/success"
	"github.com/mavuno/sokoscope/internal/trend"
)

// Config holds server configuration.
type Config struct {
	Addr       string
	Log        zerolog.Logger
	Trends     *trend.Calculator
	Pricing    *pricing.Predictor
	Success    *success.Estimator
	Reputation *reputation.Engine
	Market     *market.Summarizer
}

// Server represents the HTTP server.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	handler *Handler
	log     zerolog.Logger
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		handler: NewHandler(HandlerDeps{
			Trends:     cfg.Trends,
			Pricing:    cfg.Pricing,
			Success:    cfg.Success,
			Reputation: cfg.Reputation,
			Market:     cfg.Market,
		}, cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handler.Health)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/predictions", func(r chi.Router) {
			r.Post("/price", s.handler.PredictPrice)
			r.Post("/success", s.handler.EstimateSuccess)
		})
		r.Get("/trends/{commodity}", s.handler.GetTrend)
		r.Get("/market/summary", s.handler.MarketSummary)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/trust-score", s.handler.TrustScore)
			r.Get("/trust-summary", s.handler.TrustSummary)
		})
	})
}

// Router exposes the configured mux, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start starts the HTTP server. Blocks until shutdown or failure.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
