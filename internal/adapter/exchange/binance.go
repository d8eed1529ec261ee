package exchange

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// Client talks to the Binance spot API. It exposes the account balances as
// the hot wallet and places market orders on the <symbol>BTC pairs.
//
// With test enabled, orders go through Binance's validate-only endpoint and
// never reach the order book.
type Client struct {
	api  *binance.Client
	test bool
	log  zerolog.Logger
}

func NewClient(apiKey, apiSecret string, test bool, log zerolog.Logger) *Client {
	return &Client{
		api:  binance.NewClient(apiKey, apiSecret),
		test: test,
		log:  log.With().Str("component", "binance").Logger(),
	}
}

// LoadAssets returns every non-zero free balance on the account.
func (c *Client) LoadAssets(ctx context.Context) ([]domain.Asset, error) {
	account, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	var assets []domain.Asset
	for _, balance := range account.Balances {
		free, err := decimal.NewFromString(balance.Free)
		if err != nil {
			return nil, fmt.Errorf("parse %s balance: %w", balance.Asset, err)
		}
		if !free.IsPositive() {
			continue
		}
		assets = append(assets, domain.NewAsset(balance.Asset, free))
	}
	return assets, nil
}

// Execute places a market order for the trade on its BTC pair. Trades with
// missing units are refused: they exist to surface cold-storage shortfalls,
// not to be sent to an exchange.
func (c *Client) Execute(ctx context.Context, trade domain.Trade) error {
	if trade.IsPhony() {
		return fmt.Errorf("%s trade short %s units: %w",
			trade.Symbol, trade.MissingUnits.String(), domain.ErrMissingUnits)
	}
	if trade.Symbol == domain.BtcSymbol {
		return fmt.Errorf("bitcoin has no %sBTC pair to trade on", domain.BtcSymbol)
	}

	pair := trade.Symbol + domain.BtcSymbol

	stepSize, err := c.lotStepSize(ctx, pair)
	if err != nil {
		return err
	}

	quantity := truncateToStep(trade.Units.Abs(), stepSize)
	if quantity.IsZero() {
		return fmt.Errorf("%s order of %s units is below the %s lot step",
			pair, trade.Units.Abs().String(), stepSize.String())
	}

	side := binance.SideTypeBuy
	if trade.Units.IsPositive() {
		side = binance.SideTypeSell
	}

	order := c.api.NewCreateOrderService().
		Symbol(pair).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(quantity.String())

	if c.test {
		if err := order.Test(ctx); err != nil {
			return fmt.Errorf("test %s order on %s: %w", side, pair, err)
		}
		c.log.Info().
			Str("pair", pair).
			Str("side", string(side)).
			Str("quantity", quantity.String()).
			Msg("test order accepted")
		return nil
	}

	resp, err := order.Do(ctx)
	if err != nil {
		return fmt.Errorf("place %s order on %s: %w", side, pair, err)
	}

	c.log.Info().
		Str("pair", pair).
		Str("side", string(side)).
		Str("quantity", quantity.String()).
		Int64("order_id", resp.OrderID).
		Msg("market order placed")

	return nil
}

// lotStepSize returns the LOT_SIZE step for the pair.
func (c *Client) lotStepSize(ctx context.Context, pair string) (decimal.Decimal, error) {
	info, err := c.api.NewExchangeInfoService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch exchange info for %s: %w", pair, err)
	}

	for _, symbol := range info.Symbols {
		if symbol.Symbol != pair {
			continue
		}
		lot := symbol.LotSizeFilter()
		if lot == nil {
			return decimal.Zero, nil
		}
		stepSize, err := decimal.NewFromString(lot.StepSize)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse lot step size for %s: %w", pair, err)
		}
		return stepSize, nil
	}

	return decimal.Zero, fmt.Errorf("pair %s not found in exchange info", pair)
}

// truncateToStep rounds the quantity down to a multiple of the lot step.
// Rounding up could exceed the funds backing the order.
func truncateToStep(quantity, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return quantity
	}
	return quantity.Div(step).Floor().Mul(step)
}
