package pricer

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/pkg/retrier"
	"go.uber.org/zap"
)

// bridges assets used to price symbols with no direct fiat market, in order.
var bridges = []string{"USDT", "USDC", "BTC"}

type tickerSource interface {
	ListPrices(ctx context.Context) ([]*binance.SymbolPrice, error)
}

type binanceTickers struct {
	client *binance.Client
}

func (s binanceTickers) ListPrices(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.client.NewListPricesService().Do(ctx)
}

// BinancePricer prices assets from Binance spot tickers.
type BinancePricer struct {
	tickers tickerSource
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// NewBinancePricer creates a pricer using client tickers. client may be unauthenticated.
func NewBinancePricer(client *binance.Client, r *retrier.Retrier, logger *zap.Logger) *BinancePricer {
	return newBinancePricer(binanceTickers{client: client}, r, logger)
}

func newBinancePricer(tickers tickerSource, r *retrier.Retrier, logger *zap.Logger) *BinancePricer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = retrier.New()
	}
	return &BinancePricer{tickers: tickers, retrier: r, logger: logger}
}

// Prices implements Pricer. All tickers are fetched once per call.
func (p *BinancePricer) Prices(ctx context.Context, symbols []string, currency string) (domain.PriceTable, error) {
	list, err := retrier.DoWithData(p.retrier, ctx, p.tickers.ListPrices)
	if err != nil {
		return domain.PriceTable{}, errors.Wrap(err, "list binance prices")
	}

	book := make(map[string]decimal.Decimal, len(list))
	for _, t := range list {
		if t == nil {
			continue
		}
		price, err := decimal.NewFromString(t.Price)
		if err != nil || !price.IsPositive() {
			continue
		}
		book[t.Symbol] = price
	}

	cur := domain.NormalizeSymbol(currency)
	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		s = domain.NormalizeSymbol(s)
		price, ok := fiatPrice(book, s, cur)
		if !ok {
			p.logger.Debug("no binance price", zap.String("symbol", s), zap.String("currency", cur))
			continue
		}
		prices[s] = price
	}

	return domain.NewPriceTable(cur, symbols, prices), nil
}

func fiatPrice(book map[string]decimal.Decimal, symbol, currency string) (decimal.Decimal, bool) {
	if symbol == currency {
		return decimal.NewFromInt(1), true
	}
	if price, ok := rate(book, symbol, currency); ok {
		return price, true
	}
	for _, bridge := range bridges {
		if bridge == symbol || bridge == currency {
			continue
		}
		toBridge, ok := rate(book, symbol, bridge)
		if !ok {
			continue
		}
		bridgeToFiat, ok := rate(book, bridge, currency)
		if !ok {
			continue
		}
		return toBridge.Mul(bridgeToFiat), true
	}
	return decimal.Zero, false
}

// rate price of one base in quote, using the inverse market when needed.
func rate(book map[string]decimal.Decimal, base, quote string) (decimal.Decimal, bool) {
	if price, ok := book[base+quote]; ok {
		return price, true
	}
	if price, ok := book[quote+base]; ok {
		return decimal.NewFromInt(1).DivRound(price, 16), true
	}
	return decimal.Zero, false
}
