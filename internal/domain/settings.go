package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// IndexType selects the target-allocation strategy.
type IndexType string

const (
	IndexTypeMarketCap IndexType = "marketCap"
	IndexTypeCustom    IndexType = "custom"
)

// DefaultMarketCapNumberCoins is the number of top coins tracked by a
// market-cap index when the user has not chosen one.
const DefaultMarketCapNumberCoins = 5

// StoredCoin is a user-entered symbol/quantity pair. It is used both for
// off-exchange holdings (real quantities) and for custom index weights
// (arbitrary relative weights chosen by the user).
type StoredCoin struct {
	Symbol string          `json:"symbol"`
	Total  decimal.Decimal `json:"total"`
}

// Settings holds the user configuration: exchange credentials, off-exchange
// holdings and the target index definition.
type Settings struct {
	BinanceAPIKey                   string
	BinanceAPISecret                string
	CoinsInColdStorage              []StoredCoin
	InitialCoins                    []StoredCoin
	TargetIndexType                 IndexType
	TargetIndexMarketCapNumberCoins int
	TargetIndexMarketCapSquared     bool
	TargetIndexCustomCoins          []StoredCoin
}

// DefaultSettings returns the settings used before the user has configured
// anything: a market-cap index over the top 5 coins with square-root
// weighting enabled.
func DefaultSettings() *Settings {
	return &Settings{
		TargetIndexType:                 IndexTypeMarketCap,
		TargetIndexMarketCapNumberCoins: DefaultMarketCapNumberCoins,
		TargetIndexMarketCapSquared:     true,
	}
}

// Validate ensures the settings describe a usable target index.
// Returns an error if validation fails.
func (s *Settings) Validate() error {
	switch s.TargetIndexType {
	case IndexTypeMarketCap:
		if s.TargetIndexMarketCapNumberCoins <= 0 {
			return errors.New("market cap index must track at least one coin")
		}
	case IndexTypeCustom:
		if len(s.TargetIndexCustomCoins) == 0 {
			return errors.New("custom index must have at least one coin")
		}
		for _, coin := range s.TargetIndexCustomCoins {
			if coin.Total.IsNegative() {
				return errors.New("custom index weights cannot be negative")
			}
		}
	default:
		return ErrUnknownIndexType
	}
	return nil
}

// ColdAssets returns every off-exchange holding (cold storage plus initial
// coins) as assets, in stored order.
func (s *Settings) ColdAssets() []Asset {
	assets := make([]Asset, 0, len(s.CoinsInColdStorage)+len(s.InitialCoins))
	for _, coin := range s.CoinsInColdStorage {
		assets = append(assets, NewAsset(coin.Symbol, coin.Total))
	}
	for _, coin := range s.InitialCoins {
		assets = append(assets, NewAsset(coin.Symbol, coin.Total))
	}
	return assets
}
