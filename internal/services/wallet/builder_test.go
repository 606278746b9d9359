package wallet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/folio/internal/domain"
)

type staticPricer map[string]decimal.Decimal

func (p staticPricer) Prices(_ context.Context, symbols []string, currency string) (domain.PriceTable, error) {
	return domain.NewPriceTable(currency, symbols, p), nil
}

type staticBalances struct {
	balances map[string]decimal.Decimal
	err      error
}

func (s staticBalances) Balances(context.Context) (map[string]decimal.Decimal, error) {
	return s.balances, s.err
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func options(path string) Options {
	return Options{
		Currency:      "eur",
		HoldingsFile:  path,
		ExchangeLabel: "binance",
		Stablecoins:   []string{"USDT"},
		Fiat:          []string{"USD"},
		LiquidStake:   map[string]string{"STETH": "ETH"},
		Provider:      "static",
	}
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "holdings.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadHoldings(t *testing.T) {
	rows, rowErrs, err := ReadHoldings(strings.NewReader(
		"symbol,qta,label,liquid_stake\n" +
			"btc,0.5,binance,\n" +
			"steth, 2 ,ledger, yes\n" +
			"eth,abc,binance,\n" +
			",,,\n" +
			"total_invested,1000,,\n"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Len(t, rowErrs, 1)

	assert.Equal(t, "BTC", rows[0].Symbol)
	assert.Equal(t, "binance", rows[0].Label)
	assert.True(t, rows[1].LiquidStake)
	assert.True(t, rows[1].Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, TotalInvestedSymbol, rows[2].Symbol)
}

func TestReadHoldings_NoHeader(t *testing.T) {
	rows, _, err := ReadHoldings(strings.NewReader("sol,10,binance\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SOL", rows[0].Symbol)
	assert.False(t, rows[0].LiquidStake)
}

func TestBuilder_Build(t *testing.T) {
	path := writeCSV(t, "symbol,qta,label,liquid_stake\n"+
		"BTC,0.1,binance,\n"+
		"BTC,0.1,ledger,\n"+
		"STETH,1,ledger,yes\n"+
		"USDT,100,binance,\n"+
		"EUR,500,bank,\n"+
		"DOGE,1000,binance,\n"+
		"total_invested,5000,,\n")

	prices := staticPricer{"BTC": d("50000"), "STETH": d("2000"), "USDT": d("0.9")}
	b := NewBuilder(options(path), prices, staticBalances{balances: map[string]decimal.Decimal{"ETH": d("1"), "USDT": d("10")}}, nil)
	b.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	w, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "EUR", w.Currency)
	assert.Equal(t, []string{"BTC", "STETH", "USDT", "EUR", "DOGE", "ETH"}, w.Symbols())

	btc, ok := w.Get("BTC")
	require.True(t, ok)
	assert.True(t, btc.Quantity.Equal(d("0.2")))
	assert.True(t, btc.Value.Equal(d("10000")))

	usdt, _ := w.Get("USDT")
	assert.Equal(t, domain.AssetClassStable, usdt.Class)
	assert.True(t, usdt.Quantity.Equal(d("110")))
	assert.True(t, usdt.Value.Equal(d("99")))

	eur, _ := w.Get("EUR")
	assert.Equal(t, domain.AssetClassFiat, eur.Class)
	assert.True(t, eur.Value.Equal(d("500")))

	doge, _ := w.Get("DOGE")
	assert.True(t, doge.Value.IsZero())

	// BTC 10000 + STETH 2000 + USDT 99, ETH and DOGE unpriced
	assert.True(t, w.Total.Equal(d("12099")), w.Total.String())
	assert.True(t, w.TotalValue.Equal(d("12599")), w.TotalValue.String())
	assert.True(t, w.TotalInvested.Equal(d("5000")))

	assert.True(t, w.ExchangeQty("btc").Equal(d("0.1")))
	assert.True(t, w.ExchangeQty("USDT").Equal(d("110")))
	assert.True(t, w.ExchangeQty("eth").Equal(d("1")))
	assert.True(t, w.ExchangeQty("eur").IsZero())
	assert.Equal(t, map[string]string{"STETH": "ETH"}, w.LiquidStaked)
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("empty holdings", func(t *testing.T) {
		b := NewBuilder(options(writeCSV(t, "symbol,qta,label\n")), staticPricer{}, nil, nil)
		_, err := b.Build(context.Background())
		assert.ErrorIs(t, err, domain.ErrEmptyWallet)
	})

	t.Run("missing file without exchange", func(t *testing.T) {
		b := NewBuilder(options(filepath.Join(t.TempDir(), "absent.csv")), staticPricer{}, nil, nil)
		_, err := b.Build(context.Background())
		assert.Error(t, err)
	})

	t.Run("missing file falls back to exchange", func(t *testing.T) {
		b := NewBuilder(options(filepath.Join(t.TempDir(), "absent.csv")), staticPricer{"BTC": d("10")},
			staticBalances{balances: map[string]decimal.Decimal{"BTC": d("1")}}, nil)
		w, err := b.Build(context.Background())
		require.NoError(t, err)
		assert.True(t, w.Total.Equal(d("10")))
	})

	t.Run("exchange failure", func(t *testing.T) {
		b := NewBuilder(options(writeCSV(t, "BTC,1,ledger\n")), staticPricer{}, staticBalances{err: errors.New("down")}, nil)
		_, err := b.Build(context.Background())
		assert.Error(t, err)
	})
}
