package rebalance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coinfolio/rebalancer/internal/domain"
	"github.com/coinfolio/rebalancer/internal/usecase/allocator"
	"github.com/coinfolio/rebalancer/internal/usecase/portfolio"
)

// Plan is the result of a full rebalance computation: the portfolio as it
// stands, the target it should converge to and the trades that close the gap.
type Plan struct {
	Snapshot  *portfolio.Snapshot
	Target    *domain.AllocationSet
	Trades    []domain.Trade
	HotAssets []domain.Asset
}

// Service orchestrates a rebalance run end to end.
//
// Logic:
// 1. Load the user settings (falling back to defaults before first save)
// 2. Merge exchange balances with off-exchange holdings into one ledger
// 3. Compute the target allocations from the configured index
// 4. Build the trades that move the portfolio toward the target
type Service struct {
	Provider     domain.CoinProvider
	Markets      domain.TopCoinProvider
	HotWallet    domain.AssetSource
	SettingsRepo domain.SettingsRepository
	Portfolio    *portfolio.Service
	Executor     domain.TradeExecutor

	log zerolog.Logger
}

func NewService(
	provider domain.CoinProvider,
	markets domain.TopCoinProvider,
	hotWallet domain.AssetSource,
	settingsRepo domain.SettingsRepository,
	portfolioService *portfolio.Service,
	executor domain.TradeExecutor,
	log zerolog.Logger,
) *Service {
	return &Service{
		Provider:     provider,
		Markets:      markets,
		HotWallet:    hotWallet,
		SettingsRepo: settingsRepo,
		Portfolio:    portfolioService,
		Executor:     executor,
		log:          log.With().Str("component", "rebalance").Logger(),
	}
}

// LoadLedger merges the exchange balances with the configured off-exchange
// holdings into a single asset ledger. The hot wallet assets are returned
// separately because only those can back real orders.
func (s *Service) LoadLedger(ctx context.Context) (*domain.Assets, []domain.Asset, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, nil, err
	}

	hotAssets, err := s.HotWallet.LoadAssets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load hot wallet assets: %w", err)
	}

	return domain.NewAssets(hotAssets, settings.ColdAssets()), hotAssets, nil
}

// BuildPlan computes the full rebalance plan without placing any orders.
func (s *Service) BuildPlan(ctx context.Context) (*Plan, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	hotAssets, err := s.HotWallet.LoadAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hot wallet assets: %w", err)
	}
	ledger := domain.NewAssets(hotAssets, settings.ColdAssets())

	totalValueUsd, err := ledger.GetTotalValueUsd(ctx, s.Provider)
	if err != nil {
		return nil, fmt.Errorf("value portfolio: %w", err)
	}

	btc, err := s.Provider.GetCoin(ctx, domain.BtcSymbol)
	if err != nil {
		return nil, fmt.Errorf("fetch bitcoin price: %w", err)
	}

	strategy, err := s.strategyFrom(ctx, settings)
	if err != nil {
		return nil, err
	}

	target, err := allocator.ComputeTarget(strategy, btc, totalValueUsd)
	if err != nil {
		return nil, fmt.Errorf("compute target allocations: %w", err)
	}

	snapshot, err := s.Portfolio.Build(ctx, ledger, target)
	if err != nil {
		return nil, fmt.Errorf("build portfolio snapshot: %w", err)
	}

	builder, err := NewTradeBuilder(s.Provider, snapshot.Allocations, target, hotAssets, s.log)
	if err != nil {
		return nil, err
	}

	trades, err := builder.BuildTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("build trades: %w", err)
	}

	s.log.Info().
		Int("trades", len(trades)).
		Str("total_value_usd", totalValueUsd.StringFixed(2)).
		Msg("rebalance plan built")

	return &Plan{
		Snapshot:  snapshot,
		Target:    target,
		Trades:    trades,
		HotAssets: hotAssets,
	}, nil
}

// Execute places the orders for the given trades, skipping trades whose
// hot-wallet coverage is incomplete. It returns the trades actually sent
// to the exchange.
func (s *Service) Execute(ctx context.Context, trades []domain.Trade) ([]domain.Trade, error) {
	executed := make([]domain.Trade, 0, len(trades))
	for _, trade := range trades {
		if trade.IsPhony() {
			s.log.Warn().
				Str("symbol", trade.Symbol).
				Str("missing_units", trade.MissingUnits.String()).
				Msg("skipping trade not covered by the hot wallet")
			continue
		}
		if err := s.Executor.Execute(ctx, trade); err != nil {
			return executed, fmt.Errorf("execute %s trade: %w", trade.Symbol, err)
		}
		executed = append(executed, trade)
	}
	return executed, nil
}

func (s *Service) loadSettings(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.SettingsRepo.Load(ctx)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

func (s *Service) strategyFrom(ctx context.Context, settings *domain.Settings) (allocator.Strategy, error) {
	switch settings.TargetIndexType {
	case domain.IndexTypeMarketCap:
		topCoins, err := s.Markets.TopCoins(ctx, settings.TargetIndexMarketCapNumberCoins)
		if err != nil {
			return allocator.Strategy{}, fmt.Errorf("fetch top coins: %w", err)
		}
		return allocator.MarketCap(topCoins, settings.TargetIndexMarketCapSquared), nil
	case domain.IndexTypeCustom:
		return allocator.Custom(settings.TargetIndexCustomCoins), nil
	default:
		return allocator.Strategy{}, fmt.Errorf("%w: %q", domain.ErrUnknownIndexType, settings.TargetIndexType)
	}
}
