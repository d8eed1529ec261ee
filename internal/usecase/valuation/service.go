package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// Service records and reads portfolio valuation snapshots.
type Service struct {
	Provider domain.CoinProvider
	Repo     domain.ValuationRepository

	log zerolog.Logger
	now func() time.Time
}

func NewService(provider domain.CoinProvider, repo domain.ValuationRepository, log zerolog.Logger) *Service {
	return &Service{
		Provider: provider,
		Repo:     repo,
		log:      log.With().Str("component", "valuation").Logger(),
		now:      time.Now,
	}
}

// Record values the given ledger at current prices and appends a snapshot
// to the history.
func (s *Service) Record(ctx context.Context, assets *domain.Assets) (*domain.ValuationSnapshot, error) {
	totalValueUsd, err := assets.GetTotalValueUsd(ctx, s.Provider)
	if err != nil {
		return nil, fmt.Errorf("value portfolio: %w", err)
	}

	btc, err := s.Provider.GetCoin(ctx, domain.BtcSymbol)
	if err != nil {
		return nil, fmt.Errorf("fetch bitcoin price: %w", err)
	}
	if !btc.PriceUsd.IsPositive() {
		return nil, domain.ErrNonPositivePrice
	}

	snapshot := &domain.ValuationSnapshot{
		ID:            uuid.New(),
		Date:          s.now().UTC(),
		TotalValueUsd: totalValueUsd,
		TotalValueBtc: totalValueUsd.Div(btc.PriceUsd),
	}

	if err := s.Repo.Add(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("store valuation snapshot: %w", err)
	}

	s.log.Info().
		Str("total_value_usd", snapshot.TotalValueUsd.StringFixed(2)).
		Str("total_value_btc", snapshot.TotalValueBtc.StringFixed(8)).
		Msg("valuation snapshot recorded")

	return snapshot, nil
}

// Latest returns the most recent snapshot in the history.
func (s *Service) Latest(ctx context.Context) (*domain.ValuationSnapshot, error) {
	snapshot, err := s.Repo.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest valuation: %w", err)
	}
	return snapshot, nil
}

// History returns the most recent snapshots, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.ValuationSnapshot, error) {
	snapshots, err := s.Repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load valuation history: %w", err)
	}
	return snapshots, nil
}

// Change reports the USD and BTC value deltas between the two most recent
// snapshots. With fewer than two snapshots both deltas are zero.
func (s *Service) Change(ctx context.Context) (usd, btc decimal.Decimal, err error) {
	snapshots, err := s.Repo.List(ctx, 2)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("load valuation history: %w", err)
	}
	if len(snapshots) < 2 {
		return decimal.Zero, decimal.Zero, nil
	}
	usd = snapshots[0].TotalValueUsd.Sub(snapshots[1].TotalValueUsd)
	btc = snapshots[0].TotalValueBtc.Sub(snapshots[1].TotalValueBtc)
	return usd, btc, nil
}
