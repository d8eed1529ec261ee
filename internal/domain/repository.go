package domain

import "context"

// SettingsRepository persists the single application settings record.
type SettingsRepository interface {
	// Load retrieves the stored settings. Returns ErrSettingsNotFound when
	// no record has been saved yet.
	Load(ctx context.Context) (*Settings, error)

	// Save stores the settings, replacing any previous record.
	Save(ctx context.Context, settings *Settings) error
}

// ValuationRepository persists portfolio valuation snapshots.
type ValuationRepository interface {
	// Add appends a new valuation snapshot to the history.
	Add(ctx context.Context, snapshot *ValuationSnapshot) error

	// GetLatest retrieves the most recent valuation snapshot.
	GetLatest(ctx context.Context) (*ValuationSnapshot, error)

	// List retrieves the most recent snapshots, newest first.
	List(ctx context.Context, limit int) ([]*ValuationSnapshot, error)
}
