package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Assets merges one or more ordered asset lists (e.g., hot wallet and cold
// storage) into a single position view. Assets sharing a symbol are summed.
// Ordering is the first time each symbol was seen across the inputs,
// concatenated in call order, and every derived view preserves it.
type Assets struct {
	bySymbol map[string]Asset
	order    []string
}

// NewAssets builds the merged position view from the given asset lists.
func NewAssets(lists ...[]Asset) *Assets {
	assets := &Assets{bySymbol: make(map[string]Asset)}
	for _, list := range lists {
		for _, asset := range list {
			existing, ok := assets.bySymbol[asset.Symbol]
			if ok {
				assets.bySymbol[asset.Symbol] = NewAsset(asset.Symbol, existing.Total.Add(asset.Total))
				continue
			}
			assets.bySymbol[asset.Symbol] = asset
			assets.order = append(assets.order, asset.Symbol)
		}
	}
	return assets
}

// Get returns the merged asset for a symbol.
func (a *Assets) Get(symbol string) (Asset, bool) {
	asset, ok := a.bySymbol[symbol]
	return asset, ok
}

// List returns the merged assets in first-seen order.
func (a *Assets) List() []Asset {
	list := make([]Asset, 0, len(a.order))
	for _, symbol := range a.order {
		list = append(list, a.bySymbol[symbol])
	}
	return list
}

// Symbols returns the merged symbols in first-seen order.
func (a *Assets) Symbols() []string {
	symbols := make([]string, len(a.order))
	copy(symbols, a.order)
	return symbols
}

// Len returns the number of distinct symbols held.
func (a *Assets) Len() int {
	return len(a.order)
}

// GetTotalValueUsd sums quantity × current price across all merged assets.
// Price lookups are gathered concurrently; any single lookup failure fails
// the whole computation. The fold runs in first-seen order so the result is
// deterministic regardless of lookup completion order.
func (a *Assets) GetTotalValueUsd(ctx context.Context, provider CoinProvider) (decimal.Decimal, error) {
	coins, err := FetchCoins(ctx, provider, a.order)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, symbol := range a.order {
		total = total.Add(a.bySymbol[symbol].ComputeUsdValue(coins[symbol].PriceUsd))
	}
	return total, nil
}
