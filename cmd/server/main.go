package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinfolio/rebalancer/internal/adapter/coincap"
	"github.com/coinfolio/rebalancer/internal/adapter/exchange"
	"github.com/coinfolio/rebalancer/internal/adapter/httpapi"
	"github.com/coinfolio/rebalancer/internal/adapter/repository/postgres"
	"github.com/coinfolio/rebalancer/internal/config"
	"github.com/coinfolio/rebalancer/internal/scheduler"
	"github.com/coinfolio/rebalancer/internal/usecase/portfolio"
	"github.com/coinfolio/rebalancer/internal/usecase/rebalance"
	"github.com/coinfolio/rebalancer/internal/usecase/seeder"
	"github.com/coinfolio/rebalancer/internal/usecase/valuation"
	"github.com/coinfolio/rebalancer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("starting rebalancer")

	// Database and repositories
	db, err := postgres.NewDB(cfg.DatabaseConnStr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	settingsRepo := postgres.NewSettingsRepository(db)
	valuationRepo := postgres.NewValuationRepository(db)

	ctx := context.Background()
	if err := seeder.NewSettingsSeeder(settingsRepo).Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed settings")
	}

	// Market data and exchange adapters
	provider := coincap.NewClient(cfg.CoincapBaseURL, log)
	binanceClient := exchange.NewClient(cfg.BinanceAPIKey, cfg.BinanceAPISecret, cfg.BinanceTestOrders, log)

	// Services
	portfolioService := portfolio.NewService(provider)
	rebalanceService := rebalance.NewService(
		provider,
		provider,
		binanceClient,
		settingsRepo,
		portfolioService,
		binanceClient,
		log,
	)
	valuationService := valuation.NewService(provider, valuationRepo, log)

	// Background valuation snapshots
	sched := scheduler.New(log)
	if cfg.ValuationSchedule != "" {
		job := &snapshotJob{rebalance: rebalanceService, valuation: valuationService}
		if err := sched.AddJob(cfg.ValuationSchedule, job); err != nil {
			log.Fatal().Err(err).Msg("failed to register valuation job")
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := httpapi.New(httpapi.Config{
		Port:         cfg.Port,
		APIToken:     cfg.APIToken,
		Log:          log,
		Rebalancer:   rebalanceService,
		Valuations:   valuationService,
		SettingsRepo: settingsRepo,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("server started")

	waitForShutdown(srv, log)
}

// snapshotJob values the full ledger and appends a valuation snapshot.
type snapshotJob struct {
	rebalance *rebalance.Service
	valuation *valuation.Service
}

func (j *snapshotJob) Name() string { return "valuation-snapshot" }

func (j *snapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ledger, _, err := j.rebalance.LoadLedger(ctx)
	if err != nil {
		return err
	}
	_, err = j.valuation.Record(ctx, ledger)
	return err
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(srv *httpapi.Server, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
