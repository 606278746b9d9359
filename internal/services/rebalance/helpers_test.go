package rebalance

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/vadiminshakov/folio/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func crypto(symbol, value, qty string) domain.Holding {
	return domain.Holding{Symbol: symbol, Value: d(value), Quantity: d(qty), Class: domain.AssetClassCrypto}
}

// testWallet builds an EUR wallet; every non-fiat holding counts toward Total.
func testWallet(holdings ...domain.Holding) domain.Wallet {
	w := domain.NewWallet("EUR")
	for _, h := range holdings {
		w.Set(h)
		if h.Class != domain.AssetClassFiat {
			w.Total = w.Total.Add(h.Value)
		}
		w.TotalValue = w.TotalValue.Add(h.Value)
	}
	return w
}

func targets(minPct string, kv ...string) domain.Targets {
	t := domain.Targets{Allocations: map[string]decimal.Decimal{}, MinRebalancePct: d(minPct)}
	for i := 0; i+1 < len(kv); i += 2 {
		t.Allocations[kv[i]] = d(kv[i+1])
	}
	return t
}

type staticPricer map[string]string

func (p staticPricer) Prices(_ context.Context, symbols []string, currency string) (domain.PriceTable, error) {
	prices := make(map[string]decimal.Decimal, len(p)+1)
	for k, v := range p {
		prices[k] = d(v)
	}
	prices[domain.NormalizeSymbol(currency)] = decimal.NewFromInt(1)
	return domain.NewPriceTable(currency, symbols, prices), nil
}

// recordingPricer remembers every symbol it was asked to price.
type recordingPricer struct {
	staticPricer
	requested []string
}

func (p *recordingPricer) Prices(ctx context.Context, symbols []string, currency string) (domain.PriceTable, error) {
	p.requested = append(p.requested, symbols...)
	return p.staticPricer.Prices(ctx, symbols, currency)
}

type staticCatalog []domain.SymbolInfo

func (c staticCatalog) ForBase(_ context.Context, base string) ([]domain.SymbolInfo, error) {
	var out []domain.SymbolInfo
	for _, info := range c {
		if info.Base == domain.NormalizeSymbol(base) {
			out = append(out, info)
		}
	}
	return out, nil
}

func (c staticCatalog) Lookup(_ context.Context, pair domain.Pair) (domain.SymbolInfo, bool, error) {
	for _, info := range c {
		if info.Base == pair.Base() && info.Quote == pair.Quote() {
			return info, true, nil
		}
	}
	return domain.SymbolInfo{}, false, nil
}

func listing(base, quote string) domain.SymbolInfo {
	return domain.SymbolInfo{
		Base:           base,
		Quote:          quote,
		TradingEnabled: true,
		BaseIncrement:  d("0.0001"),
		QuoteIncrement: d("0.01"),
		BaseMinSize:    d("0.0001"),
		QuoteMinSize:   d("1"),
	}
}

type MockPlacer struct {
	mock.Mock
}

func (m *MockPlacer) PlaceMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, size decimal.Decimal, clientOrderID string) (string, error) {
	args := m.Called(pair.String(), side, size.String())
	return args.String(0), args.Error(1)
}

type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, o Order) (bool, error) {
	args := m.Called(o.Pair, o.Side)
	return args.Bool(0), args.Error(1)
}
