package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holding(symbol string, value, qty int64) Holding {
	return Holding{Symbol: symbol, Value: decimal.NewFromInt(value), Quantity: decimal.NewFromInt(qty)}
}

func TestWallet_KeepsInsertionOrder(t *testing.T) {
	w := NewWallet("eur")
	w.Set(holding("eth", 2, 1))
	w.Set(holding("BTC", 5, 1))
	w.Set(holding("ada", 1, 10))
	w.Set(holding("ETH", 3, 2))

	assert.Equal(t, "EUR", w.Currency)
	assert.Equal(t, []string{"ETH", "BTC", "ADA"}, w.Symbols())
	eth, ok := w.Get("eth")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(3).Equal(eth.Value))

	w.Delete("btc")
	assert.Equal(t, []string{"ETH", "ADA"}, w.Symbols())
	assert.Equal(t, 2, w.Len())
}

func TestWallet_Pct(t *testing.T) {
	w := NewWallet("EUR")
	w.Set(holding("BTC", 250, 1))
	assert.True(t, w.Pct("BTC").IsZero(), "zero total")

	w.Total = decimal.NewFromInt(1000)
	assert.True(t, decimal.NewFromInt(25).Equal(w.Pct("BTC")))
	assert.True(t, w.Pct("ETH").IsZero())
}

func TestWallet_Clone(t *testing.T) {
	w := NewWallet("EUR")
	w.Set(holding("BTC", 100, 1))
	w.Exchange["btc"] = decimal.NewFromInt(1)

	c := w.Clone()
	c.Set(holding("ETH", 50, 2))
	c.Exchange["btc"] = decimal.Zero

	assert.Equal(t, []string{"BTC"}, w.Symbols())
	assert.True(t, decimal.NewFromInt(1).Equal(w.ExchangeQty("BTC")))
}

func TestWallet_FoldLiquidStake(t *testing.T) {
	w := NewWallet("EUR")
	w.Set(holding("ETH", 1000, 1))
	w.Set(holding("STETH", 500, 1))
	w.Set(holding("BNSOL", 300, 2))
	w.Set(holding("BTC", 200, 1))

	w.FoldLiquidStake(map[string]string{"stETH": "eth", "BNSOL": "SOL"})

	assert.Equal(t, []string{"ETH", "BTC", "SOL"}, w.Symbols())
	eth, _ := w.Get("ETH")
	assert.True(t, decimal.NewFromInt(1500).Equal(eth.Value))
	assert.True(t, decimal.NewFromInt(2).Equal(eth.Quantity))
	sol, ok := w.Get("SOL")
	require.True(t, ok, "missing base asset is created")
	assert.True(t, decimal.NewFromInt(300).Equal(sol.Value))
}
