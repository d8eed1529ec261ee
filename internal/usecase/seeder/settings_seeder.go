package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// SettingsSeeder ensures a settings record exists before the first request
type SettingsSeeder struct {
	repo domain.SettingsRepository
}

// NewSettingsSeeder creates a new SettingsSeeder instance
func NewSettingsSeeder(repo domain.SettingsRepository) *SettingsSeeder {
	return &SettingsSeeder{
		repo: repo,
	}
}

// Seed stores the default settings if no settings record exists yet.
// An existing record is never touched.
func (s *SettingsSeeder) Seed(ctx context.Context) error {
	_, err := s.repo.Load(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrSettingsNotFound) {
		return fmt.Errorf("load settings: %w", err)
	}

	settings := domain.DefaultSettings()
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		return fmt.Errorf("seed default settings: %w", err)
	}
	return nil
}
