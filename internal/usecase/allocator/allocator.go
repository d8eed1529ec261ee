package allocator

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// Strategy is a tagged description of how a target allocation is computed.
// Exactly one payload is read depending on Type: market-cap strategies use
// TopCoins and Squared, custom strategies use Weights.
type Strategy struct {
	Type domain.IndexType

	// Market-cap payload. TopCoins are the coins to index, largest first.
	// With Squared set, each weight is the square root of the market cap,
	// which compresses the spread toward more even weighting while keeping
	// rank order. Raw market-cap weighting concentrates almost entirely
	// into the largest coin.
	TopCoins []domain.Coin
	Squared  bool

	// Custom payload. Weights are arbitrary relative weights chosen by the
	// user, not real holdings.
	Weights []domain.StoredCoin
}

// MarketCap builds a market-cap-weighted strategy over the given coins.
func MarketCap(topCoins []domain.Coin, squared bool) Strategy {
	return Strategy{Type: domain.IndexTypeMarketCap, TopCoins: topCoins, Squared: squared}
}

// Custom builds a strategy weighted by user-specified relative weights.
func Custom(weights []domain.StoredCoin) Strategy {
	return Strategy{Type: domain.IndexTypeCustom, Weights: weights}
}

// ComputeTarget computes the target allocation set for a strategy.
// Logic:
//  1. Weight every entry: market cap (optionally square-rooted) or the raw
//     user weight.
//  2. pct = weight / Σ weights
//  3. valueUsd = pct × portfolio value, valueBtc = valueUsd / BTC price
//
// The set is finalized here, from this one snapshot of coin data; it does
// not refresh. A zero weight sum, an unknown strategy type and a
// non-positive BTC price are configuration errors.
func ComputeTarget(strategy Strategy, btc domain.Coin, portfolioValueUsd decimal.Decimal) (*domain.AllocationSet, error) {
	if !btc.PriceUsd.IsPositive() {
		return nil, domain.ErrNonPositivePrice
	}

	weighted, err := weigh(strategy)
	if err != nil {
		return nil, err
	}

	totalWeight := decimal.Zero
	for _, entry := range weighted {
		totalWeight = totalWeight.Add(entry.weight)
	}
	if !totalWeight.IsPositive() {
		return nil, domain.ErrZeroWeightSum
	}

	allocations := domain.NewAllocationSet()
	for _, entry := range weighted {
		pct := entry.weight.Div(totalWeight)
		valueUsd := portfolioValueUsd.Mul(pct)
		allocations.Set(domain.Allocation{
			Symbol:   entry.symbol,
			Pct:      pct,
			ValueUsd: valueUsd,
			ValueBtc: valueUsd.Div(btc.PriceUsd),
		})
	}
	return allocations, nil
}

type weightedSymbol struct {
	symbol string
	weight decimal.Decimal
}

func weigh(strategy Strategy) ([]weightedSymbol, error) {
	switch strategy.Type {
	case domain.IndexTypeMarketCap:
		weighted := make([]weightedSymbol, 0, len(strategy.TopCoins))
		for _, coin := range strategy.TopCoins {
			weighted = append(weighted, weightedSymbol{
				symbol: coin.Symbol,
				weight: marketCapWeight(coin, strategy.Squared),
			})
		}
		return weighted, nil
	case domain.IndexTypeCustom:
		weighted := make([]weightedSymbol, 0, len(strategy.Weights))
		for _, coin := range strategy.Weights {
			weighted = append(weighted, weightedSymbol{symbol: coin.Symbol, weight: coin.Total})
		}
		return weighted, nil
	default:
		return nil, domain.ErrUnknownIndexType
	}
}

func marketCapWeight(coin domain.Coin, squared bool) decimal.Decimal {
	if !squared {
		return coin.MarketCapUsd
	}
	if coin.MarketCapUsd.IsNegative() {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Sqrt(coin.MarketCapUsd.InexactFloat64()))
}
