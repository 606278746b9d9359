package pricer

import (
	"context"
	"errors"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/folio/pkg/retrier"
)

type staticTickers struct {
	prices []*binance.SymbolPrice
	err    error
	calls  int
}

func (s *staticTickers) ListPrices(context.Context) ([]*binance.SymbolPrice, error) {
	s.calls++
	return s.prices, s.err
}

func TestBinancePricer_Prices(t *testing.T) {
	tickers := &staticTickers{prices: []*binance.SymbolPrice{
		{Symbol: "BTCEUR", Price: "50000"},
		{Symbol: "ETHUSDT", Price: "3000"},
		{Symbol: "EURUSDT", Price: "1.5"},
		{Symbol: "USDCUSDT", Price: "1"},
		{Symbol: "BROKEN", Price: "x"},
	}}
	p := newBinancePricer(tickers, retrier.New(retrier.WithMaxRetries(0)), nil)

	table, err := p.Prices(context.Background(), []string{"btc", "ETH", "EUR", "USDT", "DOGE"}, "eur")
	require.NoError(t, err)
	assert.Equal(t, 1, tickers.calls)

	btc, ok := table.Lookup("BTC")
	require.True(t, ok)
	assert.True(t, btc.Equal(decimal.NewFromInt(50000)))

	// ETH -> USDT -> EUR through the inverse EURUSDT market
	eth, ok := table.Lookup("ETH")
	require.True(t, ok)
	assert.Equal(t, "2000", eth.Round(8).String())

	eur, ok := table.Lookup("EUR")
	require.True(t, ok)
	assert.True(t, eur.Equal(decimal.NewFromInt(1)))

	usdt, ok := table.Lookup("USDT")
	require.True(t, ok)
	assert.Equal(t, "0.66666667", usdt.Round(8).String())

	_, ok = table.Lookup("DOGE")
	assert.False(t, ok)
	assert.Equal(t, []string{"DOGE"}, table.Missing())
}

func TestBinancePricer_Error(t *testing.T) {
	tickers := &staticTickers{err: errors.New("down")}
	p := newBinancePricer(tickers, retrier.New(retrier.WithMaxRetries(0)), nil)

	_, err := p.Prices(context.Background(), []string{"BTC"}, "EUR")
	assert.Error(t, err)
}

type mapSource map[string]decimal.Decimal

func (m mapSource) Name() string { return "static" }

func (m mapSource) Prices(context.Context, []string, string) (map[string]decimal.Decimal, error) {
	return m, nil
}

func TestSourcePricer_CurrencyIsOne(t *testing.T) {
	p := NewSourcePricer(mapSource{"BTC": decimal.NewFromInt(10)})
	table, err := p.Prices(context.Background(), []string{"BTC", "EUR", "XYZ"}, "eur")
	require.NoError(t, err)

	eur, ok := table.Lookup("EUR")
	require.True(t, ok)
	assert.True(t, eur.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, []string{"XYZ"}, table.Missing())
	assert.Equal(t, "static", p.Name())
}
