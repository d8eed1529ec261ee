package portfolio

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// Entry is one row of the current-vs-target report. Amount, ValueUsd and
// Pct are zero when the symbol is not held; TargetValueUsd and TargetPct
// are zero when the symbol is not in the target allocation.
type Entry struct {
	Symbol         string
	Amount         decimal.Decimal
	ValueUsd       decimal.Decimal
	TargetValueUsd decimal.Decimal
	Pct            decimal.Decimal
	TargetPct      decimal.Decimal
}

// Snapshot is the result of a single portfolio build: the current
// allocation set, the ordered report entries and the total portfolio
// value. A failed build publishes nothing; callers keep whatever snapshot
// they had before.
type Snapshot struct {
	Allocations   *domain.AllocationSet
	Entries       []Entry
	TotalValueUsd decimal.Decimal
}

// Service derives current allocations and report entries from held assets
// and live prices.
type Service struct {
	Provider domain.CoinProvider
}

// NewService creates a new portfolio Service instance.
func NewService(provider domain.CoinProvider) *Service {
	return &Service{Provider: provider}
}

// Build computes a snapshot of the portfolio against a target allocation.
// Logic:
//  1. Gather one price snapshot covering BTC and every ledger symbol, all
//     lookups concurrent. The total value and every allocation derive from
//     this single snapshot so the entries are internally consistent.
//  2. Current allocations: for every asset in ledger order,
//     valueUsd = quantity × price, pct = valueUsd / total,
//     valueBtc = valueUsd / BTC price.
//  3. Entries: target symbols first, in the target's key order, with zero
//     fallbacks for symbols not held; then assets held without a target,
//     in ledger order, with zero targets.
func (s *Service) Build(ctx context.Context, assets *domain.Assets, target *domain.AllocationSet) (*Snapshot, error) {
	if target == nil {
		target = domain.NewAllocationSet()
	}

	symbols := append(assets.Symbols(), domain.BtcSymbol)
	coins, err := domain.FetchCoins(ctx, s.Provider, symbols)
	if err != nil {
		return nil, err
	}

	totalValueUsd := decimal.Zero
	for _, asset := range assets.List() {
		totalValueUsd = totalValueUsd.Add(asset.ComputeUsdValue(coins[asset.Symbol].PriceUsd))
	}

	current, err := currentAllocations(assets, coins, totalValueUsd)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, target.Len()+assets.Len())

	// Target allocations first, in target order
	for _, symbol := range target.Symbols() {
		targetAlloc, _ := target.Get(symbol)
		entry := Entry{
			Symbol:         symbol,
			TargetValueUsd: targetAlloc.ValueUsd,
			TargetPct:      targetAlloc.Pct,
		}
		if asset, ok := assets.Get(symbol); ok {
			entry.Amount = asset.Total
		}
		if currentAlloc, ok := current.Get(symbol); ok {
			entry.ValueUsd = currentAlloc.ValueUsd
			entry.Pct = currentAlloc.Pct
		}
		entries = append(entries, entry)
	}

	// Then any extra asset held without a target allocation
	for _, asset := range assets.List() {
		if target.Contains(asset.Symbol) {
			continue
		}
		currentAlloc, _ := current.Get(asset.Symbol)
		entries = append(entries, Entry{
			Symbol:   asset.Symbol,
			Amount:   asset.Total,
			ValueUsd: currentAlloc.ValueUsd,
			Pct:      currentAlloc.Pct,
		})
	}

	return &Snapshot{
		Allocations:   current,
		Entries:       entries,
		TotalValueUsd: totalValueUsd,
	}, nil
}

func currentAllocations(assets *domain.Assets, coins map[string]domain.Coin, totalValueUsd decimal.Decimal) (*domain.AllocationSet, error) {
	current := domain.NewAllocationSet()
	if assets.Len() == 0 {
		return current, nil
	}
	if !totalValueUsd.IsPositive() {
		return nil, domain.ErrZeroPortfolioValue
	}

	btc := coins[domain.BtcSymbol]
	if !btc.PriceUsd.IsPositive() {
		return nil, domain.ErrNonPositivePrice
	}

	for _, asset := range assets.List() {
		valueUsd := asset.ComputeUsdValue(coins[asset.Symbol].PriceUsd)
		current.Set(domain.Allocation{
			Symbol:   asset.Symbol,
			Pct:      valueUsd.Div(totalValueUsd),
			ValueUsd: valueUsd,
			ValueBtc: valueUsd.Div(btc.PriceUsd),
		})
	}
	return current, nil
}
