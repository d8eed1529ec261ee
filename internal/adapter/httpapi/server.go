package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/coinfolio/rebalancer/internal/domain"
	"github.com/coinfolio/rebalancer/internal/usecase/rebalance"
)

// Rebalancer computes and executes rebalance plans.
type Rebalancer interface {
	BuildPlan(ctx context.Context) (*rebalance.Plan, error)
	Execute(ctx context.Context, trades []domain.Trade) ([]domain.Trade, error)
	LoadLedger(ctx context.Context) (*domain.Assets, []domain.Asset, error)
}

// Valuations records and reads portfolio valuation snapshots.
type Valuations interface {
	Record(ctx context.Context, assets *domain.Assets) (*domain.ValuationSnapshot, error)
	Latest(ctx context.Context) (*domain.ValuationSnapshot, error)
	History(ctx context.Context, limit int) ([]*domain.ValuationSnapshot, error)
}

// Config holds server configuration
type Config struct {
	Port     int
	APIToken string
	Log      zerolog.Logger

	Rebalancer   Rebalancer
	Valuations   Valuations
	SettingsRepo domain.SettingsRepository
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger

	rebalancer   Rebalancer
	valuations   Valuations
	settingsRepo domain.SettingsRepository
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "server").Logger(),
		rebalancer:   cfg.Rebalancer,
		valuations:   cfg.Valuations,
		settingsRepo: cfg.SettingsRepo,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.APIToken)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(apiToken string) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(AuthToken(apiToken))

		r.Get("/portfolio", s.handlePortfolio)

		r.Route("/rebalance", func(r chi.Router) {
			r.Post("/trades", s.handleRebalanceTrades)
			r.Post("/execute", s.handleRebalanceExecute)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handlePutSettings)
		})

		r.Route("/valuation", func(r chi.Router) {
			r.Get("/latest", s.handleValuationLatest)
			r.Get("/history", s.handleValuationHistory)
			r.Post("/record", s.handleValuationRecord)
		})
	})
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
