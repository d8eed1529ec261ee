package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// settingsRepository implements domain.SettingsRepository.
// Settings are stored as a single row with a fixed id.
type settingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) domain.SettingsRepository {
	return &settingsRepository{db: db}
}

// Load retrieves the stored settings record
func (r *settingsRepository) Load(ctx context.Context) (*domain.Settings, error) {
	query := `
		SELECT binance_api_key, binance_api_secret,
		       coins_in_cold_storage, initial_coins,
		       target_index_type, target_index_market_cap_number_coins,
		       target_index_market_cap_squared, target_index_custom_coins
		FROM settings
		WHERE id = 1
	`

	var settings domain.Settings
	var coldStorageJSON, initialCoinsJSON, customCoinsJSON []byte

	err := r.db.QueryRowContext(ctx, query).Scan(
		&settings.BinanceAPIKey,
		&settings.BinanceAPISecret,
		&coldStorageJSON,
		&initialCoinsJSON,
		&settings.TargetIndexType,
		&settings.TargetIndexMarketCapNumberCoins,
		&settings.TargetIndexMarketCapSquared,
		&customCoinsJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Parse the stored coin lists (JSONB)
	if err := json.Unmarshal(coldStorageJSON, &settings.CoinsInColdStorage); err != nil {
		return nil, fmt.Errorf("failed to parse coins_in_cold_storage: %w", err)
	}
	if err := json.Unmarshal(initialCoinsJSON, &settings.InitialCoins); err != nil {
		return nil, fmt.Errorf("failed to parse initial_coins: %w", err)
	}
	if err := json.Unmarshal(customCoinsJSON, &settings.TargetIndexCustomCoins); err != nil {
		return nil, fmt.Errorf("failed to parse target_index_custom_coins: %w", err)
	}

	return &settings, nil
}

// Save stores the settings record, replacing any previous one
func (r *settingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	coldStorageJSON, err := marshalCoins(settings.CoinsInColdStorage)
	if err != nil {
		return fmt.Errorf("failed to encode coins_in_cold_storage: %w", err)
	}
	initialCoinsJSON, err := marshalCoins(settings.InitialCoins)
	if err != nil {
		return fmt.Errorf("failed to encode initial_coins: %w", err)
	}
	customCoinsJSON, err := marshalCoins(settings.TargetIndexCustomCoins)
	if err != nil {
		return fmt.Errorf("failed to encode target_index_custom_coins: %w", err)
	}

	query := `
		INSERT INTO settings (id, binance_api_key, binance_api_secret,
		                      coins_in_cold_storage, initial_coins,
		                      target_index_type, target_index_market_cap_number_coins,
		                      target_index_market_cap_squared, target_index_custom_coins)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			binance_api_key = EXCLUDED.binance_api_key,
			binance_api_secret = EXCLUDED.binance_api_secret,
			coins_in_cold_storage = EXCLUDED.coins_in_cold_storage,
			initial_coins = EXCLUDED.initial_coins,
			target_index_type = EXCLUDED.target_index_type,
			target_index_market_cap_number_coins = EXCLUDED.target_index_market_cap_number_coins,
			target_index_market_cap_squared = EXCLUDED.target_index_market_cap_squared,
			target_index_custom_coins = EXCLUDED.target_index_custom_coins
	`

	_, err = r.db.ExecContext(ctx, query,
		settings.BinanceAPIKey,
		settings.BinanceAPISecret,
		coldStorageJSON,
		initialCoinsJSON,
		settings.TargetIndexType,
		settings.TargetIndexMarketCapNumberCoins,
		settings.TargetIndexMarketCapSquared,
		customCoinsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// marshalCoins encodes a coin list as JSON, normalising nil to an empty array
func marshalCoins(coins []domain.StoredCoin) ([]byte, error) {
	if coins == nil {
		coins = []domain.StoredCoin{}
	}
	return json.Marshal(coins)
}
