package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Trade is a single rebalancing instruction. Units are signed: negative
// means buy, positive means sell. MissingUnits is the part of a sell the
// hot wallet cannot cover and that must be transferred in (e.g., from cold
// storage) before the order can fully execute; it is zero when the venue
// balance covers the whole trade.
type Trade struct {
	Symbol       string
	Units        decimal.Decimal
	MissingUnits decimal.Decimal
}

// NewTrade creates a trade instruction.
func NewTrade(symbol string, units, missingUnits decimal.Decimal) Trade {
	return Trade{Symbol: symbol, Units: units, MissingUnits: missingUnits}
}

// IsPhony reports whether the trade is at least partly informational: some
// of the units to sell are not available on the liquid venue.
func (t Trade) IsPhony() bool {
	return t.MissingUnits.IsPositive()
}

// TradeExecutor places a trade on a live venue, applying venue-specific
// quantization (e.g., lot-size truncation) the core deliberately does not
// perform. Implementations must refuse trades with missing units.
type TradeExecutor interface {
	Execute(ctx context.Context, trade Trade) error
}

// AssetSource lists the assets held on the liquid venue ("hot" assets).
type AssetSource interface {
	LoadAssets(ctx context.Context) ([]Asset, error)
}
