package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/coinfolio/rebalancer/internal/domain"
)

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Load(ctx context.Context) (*domain.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func TestSettingsSeeder_Seed_NoRecord(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSettingsRepository)
	settingsSeeder := NewSettingsSeeder(mockRepo)

	mockRepo.On("Load", ctx).Return(nil, domain.ErrSettingsNotFound)
	mockRepo.On("Save", ctx, mock.MatchedBy(func(settings *domain.Settings) bool {
		return settings.TargetIndexType == domain.IndexTypeMarketCap &&
			settings.TargetIndexMarketCapNumberCoins == domain.DefaultMarketCapNumberCoins &&
			settings.TargetIndexMarketCapSquared
	})).Return(nil)

	err := settingsSeeder.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Save", 1)
}

func TestSettingsSeeder_Seed_RecordExists(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSettingsRepository)
	settingsSeeder := NewSettingsSeeder(mockRepo)

	mockRepo.On("Load", ctx).Return(&domain.Settings{
		TargetIndexType:                 domain.IndexTypeMarketCap,
		TargetIndexMarketCapNumberCoins: 10,
	}, nil)

	err := settingsSeeder.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Save")
}

func TestSettingsSeeder_Seed_LoadFailure(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSettingsRepository)
	settingsSeeder := NewSettingsSeeder(mockRepo)

	mockRepo.On("Load", ctx).Return(nil, errors.New("connection refused"))

	err := settingsSeeder.Seed(ctx)

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "Save")
}
