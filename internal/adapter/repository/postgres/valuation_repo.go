package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// valuationRepository implements domain.ValuationRepository
type valuationRepository struct {
	db *DB
}

// NewValuationRepository creates a new valuation repository
func NewValuationRepository(db *DB) domain.ValuationRepository {
	return &valuationRepository{db: db}
}

// Add creates a new valuation history entry
func (r *valuationRepository) Add(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	query := `
		INSERT INTO valuation_history (id, date, total_value_usd, total_value_btc)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.Date,
		snapshot.TotalValueUsd.String(),
		snapshot.TotalValueBtc.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert valuation history entry: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent valuation snapshot
func (r *valuationRepository) GetLatest(ctx context.Context) (*domain.ValuationSnapshot, error) {
	query := `
		SELECT id, date, total_value_usd, total_value_btc
		FROM valuation_history
		ORDER BY date DESC
		LIMIT 1
	`

	snapshot, err := scanSnapshot(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no valuation history found: %w", err)
		}
		return nil, fmt.Errorf("failed to get latest valuation: %w", err)
	}

	return snapshot, nil
}

// List retrieves the most recent valuation snapshots, newest first
func (r *valuationRepository) List(ctx context.Context, limit int) ([]*domain.ValuationSnapshot, error) {
	query := `
		SELECT id, date, total_value_usd, total_value_btc
		FROM valuation_history
		ORDER BY date DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list valuation history: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.ValuationSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan valuation history row: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate valuation history rows: %w", err)
	}

	return snapshots, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*domain.ValuationSnapshot, error) {
	var snapshot domain.ValuationSnapshot
	var totalUsdStr, totalBtcStr string

	err := row.Scan(
		&snapshot.ID,
		&snapshot.Date,
		&totalUsdStr,
		&totalBtcStr,
	)
	if err != nil {
		return nil, err
	}

	// Parse total_value_usd (DECIMAL)
	totalUsd, err := decimal.NewFromString(totalUsdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_value_usd: %w", err)
	}
	snapshot.TotalValueUsd = totalUsd

	// Parse total_value_btc (DECIMAL)
	totalBtc, err := decimal.NewFromString(totalBtcStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_value_btc: %w", err)
	}
	snapshot.TotalValueBtc = totalBtc

	return &snapshot, nil
}
