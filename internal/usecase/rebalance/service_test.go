package rebalance

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coinfolio/rebalancer/internal/domain"
	"github.com/coinfolio/rebalancer/internal/usecase/portfolio"
)

type settingsRepoMock struct {
	mock.Mock
}

func (m *settingsRepoMock) Load(ctx context.Context) (*domain.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settings), args.Error(1)
}

func (m *settingsRepoMock) Save(ctx context.Context, settings *domain.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type fakeMarkets struct {
	coins  []domain.Coin
	lastN  int
	topErr error
}

func (f *fakeMarkets) TopCoins(_ context.Context, n int) ([]domain.Coin, error) {
	f.lastN = n
	if f.topErr != nil {
		return nil, f.topErr
	}
	if n < len(f.coins) {
		return f.coins[:n], nil
	}
	return f.coins, nil
}

type fakeHotWallet struct {
	assets []domain.Asset
	err    error
}

func (f *fakeHotWallet) LoadAssets(_ context.Context) ([]domain.Asset, error) {
	return f.assets, f.err
}

type fakeExecutor struct {
	executed []domain.Trade
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, trade domain.Trade) error {
	if f.err != nil {
		return f.err
	}
	f.executed = append(f.executed, trade)
	return nil
}

func newRebalanceService(provider domain.CoinProvider, markets *fakeMarkets, hot *fakeHotWallet, repo *settingsRepoMock, executor *fakeExecutor) *Service {
	return NewService(provider, markets, hot, repo, portfolio.NewService(provider), executor, zerolog.Nop())
}

func TestBuildPlan_MarketCapIndex(t *testing.T) {
	ctx := context.Background()
	coins := testCoins()
	provider := &fakeProvider{coins: coins}
	markets := &fakeMarkets{coins: []domain.Coin{coins["BTC"], coins["ETH"]}}
	hot := &fakeHotWallet{assets: []domain.Asset{
		domain.NewAsset("BTC", decimal.NewFromInt(1)),
	}}
	executor := &fakeExecutor{}

	repo := new(settingsRepoMock)
	repo.On("Load", ctx).Return(&domain.Settings{
		TargetIndexType:                 domain.IndexTypeMarketCap,
		TargetIndexMarketCapNumberCoins: 2,
		CoinsInColdStorage: []domain.StoredCoin{
			{Symbol: "ETH", Total: decimal.NewFromInt(10)},
		},
	}, nil)

	service := newRebalanceService(provider, markets, hot, repo, executor)

	plan, err := service.BuildPlan(ctx)
	require.NoError(t, err)
	repo.AssertExpectations(t)

	assert.Equal(t, 2, markets.lastN)

	// 1 BTC × 3000 + 10 ETH × 120 = 4200
	assert.InDelta(t, 4200, plan.Snapshot.TotalValueUsd.InexactFloat64(), 1e-9)
	assert.Equal(t, []string{"BTC", "ETH"}, plan.Target.Symbols())

	btcTarget, _ := plan.Target.Get("BTC")
	assert.InDelta(t, 0.85, btcTarget.Pct.InexactFloat64(), 1e-9)

	// The only actionable delta is the ETH excess, and since all the ETH
	// sits in cold storage the trade is flagged as uncovered
	require.Len(t, plan.Trades, 1)
	assert.Equal(t, "ETH", plan.Trades[0].Symbol)
	assert.InDelta(t, 4.75, plan.Trades[0].Units.InexactFloat64(), 1e-9)
	assert.True(t, plan.Trades[0].IsPhony())
}

func TestBuildPlan_CustomIndex(t *testing.T) {
	ctx := context.Background()
	coins := testCoins()
	provider := &fakeProvider{coins: coins}
	markets := &fakeMarkets{}
	hot := &fakeHotWallet{assets: []domain.Asset{
		domain.NewAsset("BTC", decimal.NewFromInt(1)),
		domain.NewAsset("ETH", decimal.NewFromInt(10)),
	}}
	executor := &fakeExecutor{}

	repo := new(settingsRepoMock)
	repo.On("Load", ctx).Return(&domain.Settings{
		TargetIndexType: domain.IndexTypeCustom,
		TargetIndexCustomCoins: []domain.StoredCoin{
			{Symbol: "BTC", Total: decimal.NewFromInt(1)},
			{Symbol: "ETH", Total: decimal.NewFromInt(1)},
		},
	}, nil)

	service := newRebalanceService(provider, markets, hot, repo, executor)

	plan, err := service.BuildPlan(ctx)
	require.NoError(t, err)

	// Custom indexes never hit the market listing
	assert.Zero(t, markets.lastN)

	btcTarget, _ := plan.Target.Get("BTC")
	ethTarget, _ := plan.Target.Get("ETH")
	assert.InDelta(t, 0.5, btcTarget.Pct.InexactFloat64(), 1e-9)
	assert.InDelta(t, 0.5, ethTarget.Pct.InexactFloat64(), 1e-9)

	// Total 4200, ETH holds 1200 against a 2100 target: buy ETH
	require.Len(t, plan.Trades, 1)
	assert.Equal(t, "ETH", plan.Trades[0].Symbol)
	assert.InDelta(t, -7.5, plan.Trades[0].Units.InexactFloat64(), 1e-9)
}

func TestBuildPlan_DefaultsBeforeFirstSave(t *testing.T) {
	ctx := context.Background()
	coins := testCoins()
	provider := &fakeProvider{coins: coins}
	markets := &fakeMarkets{coins: []domain.Coin{coins["BTC"]}}
	hot := &fakeHotWallet{assets: []domain.Asset{
		domain.NewAsset("BTC", decimal.NewFromInt(1)),
	}}
	executor := &fakeExecutor{}

	repo := new(settingsRepoMock)
	repo.On("Load", ctx).Return(nil, domain.ErrSettingsNotFound)

	service := newRebalanceService(provider, markets, hot, repo, executor)

	plan, err := service.BuildPlan(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultMarketCapNumberCoins, markets.lastN)
	// A portfolio of only BTC against a BTC-only target needs no trades
	assert.Empty(t, plan.Trades)
}

func TestBuildPlan_UnknownIndexType(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{coins: testCoins()}
	hot := &fakeHotWallet{assets: []domain.Asset{
		domain.NewAsset("BTC", decimal.NewFromInt(1)),
	}}

	repo := new(settingsRepoMock)
	repo.On("Load", ctx).Return(&domain.Settings{TargetIndexType: "fibonacci"}, nil)

	service := newRebalanceService(provider, &fakeMarkets{}, hot, repo, &fakeExecutor{})

	_, err := service.BuildPlan(ctx)
	assert.ErrorIs(t, err, domain.ErrUnknownIndexType)
}

func TestBuildPlan_HotWalletFailure(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{coins: testCoins()}
	hot := &fakeHotWallet{err: errors.New("exchange unreachable")}

	repo := new(settingsRepoMock)
	repo.On("Load", ctx).Return(domain.DefaultSettings(), nil)

	service := newRebalanceService(provider, &fakeMarkets{}, hot, repo, &fakeExecutor{})

	_, err := service.BuildPlan(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hot wallet")
}

func TestExecute_SkipsUncoveredTrades(t *testing.T) {
	ctx := context.Background()
	executor := &fakeExecutor{}
	service := newRebalanceService(&fakeProvider{coins: testCoins()}, &fakeMarkets{}, &fakeHotWallet{}, new(settingsRepoMock), executor)

	trades := []domain.Trade{
		domain.NewTrade("BTC", decimal.NewFromInt(1), decimal.NewFromFloat(0.5)),
		domain.NewTrade("ETH", decimal.NewFromInt(-25), decimal.Zero),
	}

	executed, err := service.Execute(ctx, trades)
	require.NoError(t, err)

	require.Len(t, executed, 1)
	assert.Equal(t, "ETH", executed[0].Symbol)
	require.Len(t, executor.executed, 1)
	assert.Equal(t, "ETH", executor.executed[0].Symbol)
}

func TestExecute_StopsOnExecutorFailure(t *testing.T) {
	ctx := context.Background()
	executor := &fakeExecutor{err: errors.New("order rejected")}
	service := newRebalanceService(&fakeProvider{coins: testCoins()}, &fakeMarkets{}, &fakeHotWallet{}, new(settingsRepoMock), executor)

	trades := []domain.Trade{
		domain.NewTrade("ETH", decimal.NewFromInt(-25), decimal.Zero),
	}

	executed, err := service.Execute(ctx, trades)
	require.Error(t, err)
	assert.Empty(t, executed)
}

func TestLoadLedger_MergesHotAndColdHoldings(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{coins: testCoins()}
	hot := &fakeHotWallet{assets: []domain.Asset{
		domain.NewAsset("BTC", decimal.NewFromInt(1)),
		domain.NewAsset("ETH", decimal.NewFromInt(5)),
	}}

	repo := new(settingsRepoMock)
	repo.On("Load", ctx).Return(&domain.Settings{
		TargetIndexType:                 domain.IndexTypeMarketCap,
		TargetIndexMarketCapNumberCoins: 5,
		CoinsInColdStorage: []domain.StoredCoin{
			{Symbol: "BTC", Total: decimal.NewFromInt(2)},
		},
		InitialCoins: []domain.StoredCoin{
			{Symbol: "XRP", Total: decimal.NewFromInt(100)},
		},
	}, nil)

	service := newRebalanceService(provider, &fakeMarkets{}, hot, repo, &fakeExecutor{})

	ledger, hotAssets, err := service.LoadLedger(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH", "XRP"}, ledger.Symbols())
	btc, _ := ledger.Get("BTC")
	assert.True(t, btc.Total.Equal(decimal.NewFromInt(3)))

	require.Len(t, hotAssets, 2)
	assert.Equal(t, "BTC", hotAssets[0].Symbol)
}
