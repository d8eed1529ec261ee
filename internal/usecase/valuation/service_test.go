package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coinfolio/rebalancer/internal/domain"
)

type valuationRepoMock struct {
	mock.Mock
}

func (m *valuationRepoMock) Add(ctx context.Context, snapshot *domain.ValuationSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *valuationRepoMock) GetLatest(ctx context.Context) (*domain.ValuationSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ValuationSnapshot), args.Error(1)
}

func (m *valuationRepoMock) List(ctx context.Context, limit int) ([]*domain.ValuationSnapshot, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ValuationSnapshot), args.Error(1)
}

type fakeProvider struct {
	coins map[string]domain.Coin
}

func (p *fakeProvider) GetCoin(_ context.Context, symbol string) (domain.Coin, error) {
	coin, ok := p.coins[symbol]
	if !ok {
		return domain.Coin{}, errors.New("could not find " + symbol)
	}
	return coin, nil
}

func newCoin(symbol string, priceUsd float64) domain.Coin {
	return domain.Coin{Symbol: symbol, PriceUsd: decimal.NewFromFloat(priceUsd)}
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{coins: map[string]domain.Coin{
		"BTC": newCoin("BTC", 3000),
		"ETH": newCoin("ETH", 120),
	}}

	repo := new(valuationRepoMock)
	repo.On("Add", ctx, mock.AnythingOfType("*domain.ValuationSnapshot")).Return(nil)

	service := NewService(provider, repo, zerolog.Nop())
	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return frozen }

	assets := domain.NewAssets([]domain.Asset{
		domain.NewAsset("BTC", decimal.NewFromInt(1)),
		domain.NewAsset("ETH", decimal.NewFromInt(10)),
	})

	snapshot, err := service.Record(ctx, assets)
	require.NoError(t, err)
	repo.AssertExpectations(t)

	assert.NotEqual(t, uuid.Nil, snapshot.ID)
	assert.Equal(t, frozen, snapshot.Date)
	// 3000 + 1200 = 4200 USD, 1.4 BTC
	assert.True(t, snapshot.TotalValueUsd.Equal(decimal.NewFromInt(4200)))
	assert.True(t, snapshot.TotalValueBtc.Equal(decimal.NewFromFloat(1.4)))
}

func TestRecord_PriceLookupFailure(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{coins: map[string]domain.Coin{
		"BTC": newCoin("BTC", 3000),
	}}

	repo := new(valuationRepoMock)
	service := NewService(provider, repo, zerolog.Nop())

	assets := domain.NewAssets([]domain.Asset{
		domain.NewAsset("DOGE", decimal.NewFromInt(1000)),
	})

	_, err := service.Record(ctx, assets)
	require.Error(t, err)
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestRecord_ZeroBitcoinPrice(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{coins: map[string]domain.Coin{
		"BTC": newCoin("BTC", 0),
	}}

	service := NewService(provider, new(valuationRepoMock), zerolog.Nop())

	assets := domain.NewAssets([]domain.Asset{
		domain.NewAsset("BTC", decimal.NewFromInt(1)),
	})

	_, err := service.Record(ctx, assets)
	assert.ErrorIs(t, err, domain.ErrNonPositivePrice)
}

func TestChange(t *testing.T) {
	ctx := context.Background()
	repo := new(valuationRepoMock)
	repo.On("List", ctx, 2).Return([]*domain.ValuationSnapshot{
		{TotalValueUsd: decimal.NewFromInt(4500), TotalValueBtc: decimal.NewFromFloat(1.5)},
		{TotalValueUsd: decimal.NewFromInt(4200), TotalValueBtc: decimal.NewFromFloat(1.4)},
	}, nil)

	service := NewService(&fakeProvider{}, repo, zerolog.Nop())

	usd, btc, err := service.Change(ctx)
	require.NoError(t, err)
	assert.True(t, usd.Equal(decimal.NewFromInt(300)))
	assert.True(t, btc.Equal(decimal.NewFromFloat(0.1)))
}

func TestChange_SingleSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := new(valuationRepoMock)
	repo.On("List", ctx, 2).Return([]*domain.ValuationSnapshot{
		{TotalValueUsd: decimal.NewFromInt(4200), TotalValueBtc: decimal.NewFromFloat(1.4)},
	}, nil)

	service := NewService(&fakeProvider{}, repo, zerolog.Nop())

	usd, btc, err := service.Change(ctx)
	require.NoError(t, err)
	assert.True(t, usd.IsZero())
	assert.True(t, btc.IsZero())
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	repo := new(valuationRepoMock)
	stored := &domain.ValuationSnapshot{TotalValueUsd: decimal.NewFromInt(4200)}
	repo.On("GetLatest", ctx).Return(stored, nil)

	service := NewService(&fakeProvider{}, repo, zerolog.Nop())

	snapshot, err := service.Latest(ctx)
	require.NoError(t, err)
	assert.Same(t, stored, snapshot)
}
