package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationSet_PreservesInsertionOrder(t *testing.T) {
	set := NewAllocationSet()
	set.Set(Allocation{Symbol: "BTC", Pct: decimal.NewFromFloat(0.5)})
	set.Set(Allocation{Symbol: "ETH", Pct: decimal.NewFromFloat(0.3)})
	set.Set(Allocation{Symbol: "XRP", Pct: decimal.NewFromFloat(0.2)})

	assert.Equal(t, []string{"BTC", "ETH", "XRP"}, set.Symbols())
	assert.Equal(t, 3, set.Len())
}

func TestAllocationSet_ReplaceKeepsPosition(t *testing.T) {
	set := NewAllocationSet()
	set.Set(Allocation{Symbol: "BTC", Pct: decimal.NewFromFloat(0.5)})
	set.Set(Allocation{Symbol: "ETH", Pct: decimal.NewFromFloat(0.5)})
	set.Set(Allocation{Symbol: "BTC", Pct: decimal.NewFromFloat(0.7)})

	assert.Equal(t, []string{"BTC", "ETH"}, set.Symbols())

	btc, ok := set.Get("BTC")
	require.True(t, ok)
	assert.True(t, btc.Pct.Equal(decimal.NewFromFloat(0.7)))
}

func TestAllocationSet_Contains(t *testing.T) {
	set := NewAllocationSet()
	set.Set(Allocation{Symbol: "BTC"})

	assert.True(t, set.Contains("BTC"))
	assert.False(t, set.Contains("ETH"))

	_, ok := set.Get("ETH")
	assert.False(t, ok)
}
