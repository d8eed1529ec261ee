package domain

import "github.com/shopspring/decimal"

// Asset is an immutable holding record: a symbol and the quantity held.
// Quantities may be fractional and are non-negative by convention.
type Asset struct {
	Symbol string
	Total  decimal.Decimal
}

// NewAsset creates an asset holding for the given symbol and quantity.
func NewAsset(symbol string, total decimal.Decimal) Asset {
	return Asset{Symbol: symbol, Total: total}
}

// ComputeUsdValue returns the USD value of the holding at the given unit
// price.
func (a Asset) ComputeUsdValue(unitPriceUsd decimal.Decimal) decimal.Decimal {
	return a.Total.Mul(unitPriceUsd)
}
