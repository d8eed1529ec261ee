package domain

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// BtcSymbol is the portfolio's unit of account. Allocation deltas are
// denominated in BTC, and BTC itself is never the subject of an executable
// trade, only of a transfer notification.
const BtcSymbol = "BTC"

// Coin is a read-only market snapshot for a single symbol, fetched on demand
// from a price source. The core imposes no caching guarantees on it.
type Coin struct {
	Symbol       string
	MarketCapUsd decimal.Decimal
	PriceUsd     decimal.Decimal
}

// CoinProvider supplies current market data for a symbol.
// Implementations must return an error for unknown symbols rather than a
// zero-valued Coin.
type CoinProvider interface {
	GetCoin(ctx context.Context, symbol string) (Coin, error)
}

// TopCoinProvider lists the top coins by market capitalization, largest
// first.
type TopCoinProvider interface {
	TopCoins(ctx context.Context, n int) ([]Coin, error)
}

// FetchCoins gathers market data for all given symbols concurrently and
// returns the snapshots keyed by symbol. Duplicate symbols are fetched once.
// Any single lookup failure fails the whole gather.
func FetchCoins(ctx context.Context, provider CoinProvider, symbols []string) (map[string]Coin, error) {
	seen := make(map[string]bool, len(symbols))
	unique := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if !seen[symbol] {
			seen[symbol] = true
			unique = append(unique, symbol)
		}
	}

	coins := make([]Coin, len(unique))
	errs := make([]error, len(unique))

	var wg sync.WaitGroup
	for i, symbol := range unique {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			coins[i], errs[i] = provider.GetCoin(ctx, symbol)
		}(i, symbol)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := make(map[string]Coin, len(unique))
	for i, symbol := range unique {
		result[symbol] = coins[i]
	}
	return result, nil
}
