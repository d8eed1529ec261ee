package coincap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// DefaultBaseURL is the public CoinCap REST API.
const DefaultBaseURL = "https://api.coincap.io/v2"

// batchSize is the page size used when walking the ranked asset listing.
const batchSize = 100

// Stablecoins are never part of a target index.
var ignoredSymbols = map[string]struct{}{
	"USDT": {},
	"USDC": {},
	"TUSD": {},
}

// Client fetches coin prices and market caps from CoinCap. Assets are
// loaded lazily in rank order and cached for the lifetime of the client,
// so every price used in one rebalance run comes from the same window.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	mu        sync.Mutex
	bySymbol  map[string]domain.Coin
	ranked    []string
	offset    int
	exhausted bool
}

func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log.With().Str("component", "coincap").Logger(),
		bySymbol: make(map[string]domain.Coin),
	}
}

// GetCoin returns the coin with the given symbol, walking further down the
// ranked listing until the symbol shows up or the listing runs out.
func (c *Client) GetCoin(ctx context.Context, symbol string) (domain.Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if coin, ok := c.bySymbol[symbol]; ok {
			return coin, nil
		}
		if c.exhausted {
			return domain.Coin{}, fmt.Errorf("could not find %s", symbol)
		}
		if err := c.loadBatch(ctx); err != nil {
			return domain.Coin{}, err
		}
	}
}

// TopCoins returns the n highest-ranked coins by market cap, skipping
// stablecoins.
func (c *Client) TopCoins(ctx context.Context, n int) ([]domain.Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.ranked) < n && !c.exhausted {
		if err := c.loadBatch(ctx); err != nil {
			return nil, err
		}
	}

	if len(c.ranked) < n {
		n = len(c.ranked)
	}
	coins := make([]domain.Coin, 0, n)
	for _, symbol := range c.ranked[:n] {
		coins = append(coins, c.bySymbol[symbol])
	}
	return coins, nil
}

type assetPayload struct {
	Symbol       string `json:"symbol"`
	PriceUsd     string `json:"priceUsd"`
	MarketCapUsd string `json:"marketCapUsd"`
}

type assetsResponse struct {
	Data []assetPayload `json:"data"`
}

// loadBatch fetches the next page of the ranked asset listing into the
// cache. Callers must hold the mutex.
func (c *Client) loadBatch(ctx context.Context) error {
	url := fmt.Sprintf("%s/assets?limit=%d&offset=%d", c.baseURL, batchSize, c.offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build assets request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch assets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch assets: unexpected status %d", resp.StatusCode)
	}

	var payload assetsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode assets response: %w", err)
	}

	for _, asset := range payload.Data {
		// Symbols can repeat further down the listing; the first
		// occurrence is the highest-ranked one and wins
		if _, ok := c.bySymbol[asset.Symbol]; ok {
			continue
		}

		priceUsd, err := parseDecimal(asset.PriceUsd)
		if err != nil {
			return fmt.Errorf("parse priceUsd for %s: %w", asset.Symbol, err)
		}
		marketCapUsd, err := parseDecimal(asset.MarketCapUsd)
		if err != nil {
			return fmt.Errorf("parse marketCapUsd for %s: %w", asset.Symbol, err)
		}

		c.bySymbol[asset.Symbol] = domain.Coin{
			Symbol:       asset.Symbol,
			PriceUsd:     priceUsd,
			MarketCapUsd: marketCapUsd,
		}
		if _, ignored := ignoredSymbols[asset.Symbol]; !ignored {
			c.ranked = append(c.ranked, asset.Symbol)
		}
	}

	c.offset += batchSize
	if len(payload.Data) < batchSize {
		c.exhausted = true
	}

	c.log.Debug().
		Int("cached", len(c.bySymbol)).
		Bool("exhausted", c.exhausted).
		Msg("asset batch loaded")

	return nil
}

// parseDecimal treats the empty strings CoinCap returns for unlisted
// markets as zero.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
