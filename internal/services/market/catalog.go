// Package market provides the exchange symbol catalog.
package market

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/pkg/retrier"
	"go.uber.org/zap"
)

const (
	statusTrading     = "TRADING"
	filterLotSize     = "LOT_SIZE"
	filterNotional    = "NOTIONAL"
	filterMinNotional = "MIN_NOTIONAL"
)

type exchangeInfoSource interface {
	ExchangeInfo(ctx context.Context) (*binance.ExchangeInfo, error)
}

type binanceExchangeInfo struct {
	client *binance.Client
}

func (s binanceExchangeInfo) ExchangeInfo(ctx context.Context) (*binance.ExchangeInfo, error) {
	return s.client.NewExchangeInfoService().Do(ctx)
}

// Catalog lists tradable pairs. The exchange is queried once and cached until Reset.
type Catalog struct {
	source  exchangeInfoSource
	retrier *retrier.Retrier
	logger  *zap.Logger

	mu     sync.Mutex
	loaded bool
	byBase map[string][]domain.SymbolInfo
}

// NewBinanceCatalog creates a catalog backed by Binance exchange info.
func NewBinanceCatalog(client *binance.Client, r *retrier.Retrier, logger *zap.Logger) *Catalog {
	return newCatalog(binanceExchangeInfo{client: client}, r, logger)
}

func newCatalog(source exchangeInfoSource, r *retrier.Retrier, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = retrier.New()
	}
	return &Catalog{source: source, retrier: r, logger: logger}
}

// ForBase returns every pair with the given base asset, sorted by quote.
func (c *Catalog) ForBase(ctx context.Context, base string) ([]domain.SymbolInfo, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	infos := c.byBase[domain.NormalizeSymbol(base)]
	out := make([]domain.SymbolInfo, len(infos))
	copy(out, infos)
	return out, nil
}

// Lookup returns the catalog entry of pair.
func (c *Catalog) Lookup(ctx context.Context, pair domain.Pair) (domain.SymbolInfo, bool, error) {
	infos, err := c.ForBase(ctx, pair.Base())
	if err != nil {
		return domain.SymbolInfo{}, false, err
	}
	for _, info := range infos {
		if info.Quote == pair.Quote() {
			return info, true, nil
		}
	}
	return domain.SymbolInfo{}, false, nil
}

// Reset drops the cached catalog.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.byBase = nil
}

func (c *Catalog) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	info, err := retrier.DoWithData(c.retrier, ctx, c.source.ExchangeInfo)
	if err != nil {
		return errors.Wrap(err, "fetch exchange info")
	}
	if info == nil {
		return errors.New("empty exchange info")
	}

	byBase := make(map[string][]domain.SymbolInfo)
	for _, s := range info.Symbols {
		entry, err := symbolInfo(s)
		if err != nil {
			c.logger.Debug("skip catalog symbol", zap.String("symbol", s.Symbol), zap.Error(err))
			continue
		}
		byBase[entry.Base] = append(byBase[entry.Base], entry)
	}
	for base := range byBase {
		sort.Slice(byBase[base], func(i, j int) bool { return byBase[base][i].Quote < byBase[base][j].Quote })
	}

	c.byBase = byBase
	c.loaded = true
	c.logger.Debug("catalog loaded", zap.Int("bases", len(byBase)))
	return nil
}

func symbolInfo(s binance.Symbol) (domain.SymbolInfo, error) {
	info := domain.SymbolInfo{
		Base:           domain.NormalizeSymbol(s.BaseAsset),
		Quote:          domain.NormalizeSymbol(s.QuoteAsset),
		TradingEnabled: s.Status == statusTrading && s.IsSpotTradingAllowed,
		QuoteIncrement: decimal.New(1, -int32(s.QuoteAssetPrecision)),
	}
	if info.Base == "" || info.Quote == "" {
		return domain.SymbolInfo{}, fmt.Errorf("missing base or quote")
	}

	for _, f := range s.Filters {
		switch f["filterType"] {
		case filterLotSize:
			step, err := filterDecimal(f, "stepSize")
			if err != nil {
				return domain.SymbolInfo{}, err
			}
			minQty, err := filterDecimal(f, "minQty")
			if err != nil {
				return domain.SymbolInfo{}, err
			}
			info.BaseIncrement = step
			info.BaseMinSize = minQty
		case filterNotional, filterMinNotional:
			minNotional, err := filterDecimal(f, "minNotional")
			if err != nil {
				return domain.SymbolInfo{}, err
			}
			info.QuoteMinSize = minNotional
		}
	}
	if info.BaseIncrement.IsZero() {
		info.BaseIncrement = decimal.New(1, -int32(s.BaseAssetPrecision))
	}
	return info, nil
}

func filterDecimal(f map[string]interface{}, key string) (decimal.Decimal, error) {
	raw, ok := f[key].(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("filter %v has no %s", f["filterType"], key)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse %s", key)
	}
	return v, nil
}
