package rebalance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// minTradableBtc is the assumed minimum order notional, 0.001 BTC.
// On Binance the real value comes from the MIN_NOTIONAL filter; a fixed
// floor is good enough here and also absorbs floating-point noise around
// zero deltas.
var minTradableBtc = decimal.New(1, -3)

// delta is the BTC-denominated difference between current and target value
// for one symbol. Positive means excess to sell, negative means deficiency
// to buy.
type delta struct {
	symbol   string
	valueBtc decimal.Decimal
}

// TradeBuilder diffs current allocations against target allocations and,
// cross-referencing the assets actually held on the liquid venue, produces
// trade instructions. Deltas are fixed at construction time; BuildTrades is
// a pure function of them plus live price lookups.
type TradeBuilder struct {
	provider  domain.CoinProvider
	deltas    []delta
	hotAssets []domain.Asset
	log       zerolog.Logger
}

// NewTradeBuilder creates a TradeBuilder from the current and target
// allocation sets and the raw list of hot-wallet assets. The hot assets are
// passed independently of the ledger because current allocations may
// include cold storage, while only venue balances can actually be sold.
//
// An empty target is rejected: it would be ambiguous, and "sell everything"
// must be expressed as an explicit 100%-BTC target.
//
// Delta computation, in BTC terms:
//   - symbol in current and target: current − target
//   - symbol only in current: its full BTC value (fully extra)
//   - symbol only in target: minus its full BTC value (fully missing)
//
// Deltas keep the current set's order first, with target-only symbols
// appended; trades are emitted in that order.
func NewTradeBuilder(
	provider domain.CoinProvider,
	current *domain.AllocationSet,
	target *domain.AllocationSet,
	hotAssets []domain.Asset,
	log zerolog.Logger,
) (*TradeBuilder, error) {
	if target == nil || target.Len() == 0 {
		return nil, domain.ErrEmptyTargetAllocations
	}

	deltas := make([]delta, 0, current.Len()+target.Len())
	for _, symbol := range current.Symbols() {
		currentAlloc, _ := current.Get(symbol)
		targetAlloc, ok := target.Get(symbol)
		if !ok {
			// Not wanted in the target: 100% extra
			deltas = append(deltas, delta{symbol: symbol, valueBtc: currentAlloc.ValueBtc})
			continue
		}
		deltas = append(deltas, delta{symbol: symbol, valueBtc: currentAlloc.ValueBtc.Sub(targetAlloc.ValueBtc)})
	}
	for _, symbol := range target.Symbols() {
		if current.Contains(symbol) {
			continue
		}
		// Not held yet: 100% missing
		targetAlloc, _ := target.Get(symbol)
		deltas = append(deltas, delta{symbol: symbol, valueBtc: targetAlloc.ValueBtc.Neg()})
	}

	return &TradeBuilder{
		provider:  provider,
		deltas:    deltas,
		hotAssets: hotAssets,
		log:       log.With().Str("component", "trade_builder").Logger(),
	}, nil
}

// BuildTrades converts the deltas into trade instructions using live
// prices.
// Logic, per delta in order:
//   - Skip when |delta| truncated to 3 decimals is at or below the minimum
//     tradable notional of 0.001 BTC.
//   - units = delta × BTC price / coin price (signed like the delta).
//   - Selling without any venue balance emits a fully phony trade
//     (missing units == units). Selling with insufficient venue balance
//     emits the full order with the shortfall flagged as missing units.
//   - A fully covered BTC surplus needs no order: BTC is the settlement
//     unit. Everything else becomes a real sell or buy.
func (b *TradeBuilder) BuildTrades(ctx context.Context) ([]domain.Trade, error) {
	active := make([]delta, 0, len(b.deltas))
	symbols := []string{domain.BtcSymbol}
	for _, d := range b.deltas {
		if isBelowMinNotional(d.valueBtc) {
			b.log.Debug().Str("symbol", d.symbol).Str("delta_btc", d.valueBtc.String()).Msg("Skipping delta below minimum notional")
			continue
		}
		active = append(active, d)
		symbols = append(symbols, d.symbol)
	}

	coins, err := domain.FetchCoins(ctx, b.provider, symbols)
	if err != nil {
		return nil, err
	}

	btc := coins[domain.BtcSymbol]
	if !btc.PriceUsd.IsPositive() {
		return nil, domain.ErrNonPositivePrice
	}

	hot := make(map[string]domain.Asset, len(b.hotAssets))
	for _, asset := range b.hotAssets {
		hot[asset.Symbol] = asset
	}

	trades := make([]domain.Trade, 0, len(active))
	for _, d := range active {
		coin := coins[d.symbol]
		if !coin.PriceUsd.IsPositive() {
			return nil, fmt.Errorf("%s: %w", d.symbol, domain.ErrNonPositivePrice)
		}

		units := btcToUnits(d.valueBtc, coin, btc)

		if d.valueBtc.IsPositive() {
			// We need to SELL
			hotAsset, held := hot[d.symbol]
			if !held {
				// Nothing on the venue: the whole amount must be
				// transferred in before anything can be sold
				trades = append(trades, domain.NewTrade(d.symbol, units, units))
				continue
			}

			hotValueBtc := hotAsset.ComputeUsdValue(coin.PriceUsd).Div(btc.PriceUsd)
			if hotValueBtc.LessThan(d.valueBtc) {
				missing := btcToUnits(d.valueBtc.Sub(hotValueBtc), coin, btc)
				trades = append(trades, domain.NewTrade(d.symbol, units, missing))
				continue
			}

			if d.symbol != domain.BtcSymbol {
				trades = append(trades, domain.NewTrade(d.symbol, units, decimal.Zero))
			}
			continue
		}

		// We need to BUY. A BTC deficiency resolves itself through the
		// other symbols' trades.
		if d.symbol != domain.BtcSymbol {
			trades = append(trades, domain.NewTrade(d.symbol, units, decimal.Zero))
		}
	}
	return trades, nil
}

// isBelowMinNotional truncates |delta| to 3 decimals before comparing, so
// 0.0019 counts as 0.001 and is skipped.
func isBelowMinNotional(valueBtc decimal.Decimal) bool {
	truncated := valueBtc.Abs().Truncate(3)
	return truncated.LessThanOrEqual(minTradableBtc)
}

func btcToUnits(valueBtc decimal.Decimal, coin, btc domain.Coin) decimal.Decimal {
	return valueBtc.Mul(btc.PriceUsd).Div(coin.PriceUsd)
}
