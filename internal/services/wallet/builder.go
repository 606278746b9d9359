// Package wallet builds wallet snapshots from the holdings file and exchange balances.
package wallet

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/pricer"
	"go.uber.org/zap"
)

// BalanceSource returns quantities held on the exchange keyed by symbol.
type BalanceSource interface {
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Options wallet classification and valuation settings.
type Options struct {
	Currency      string
	HoldingsFile  string
	ExchangeLabel string
	Stablecoins   []string
	Fiat          []string
	// LiquidStake maps liquid-staked symbol to base asset. Only rows flagged in the holdings file are folded.
	LiquidStake map[string]string
	Provider    string
}

// Builder assembles a priced Wallet.
type Builder struct {
	opts     Options
	pricer   pricer.Pricer
	balances BalanceSource
	logger   *zap.Logger
	now      func() time.Time
}

// NewBuilder creates a Builder. balances may be nil when exchange holdings only come from the file.
func NewBuilder(opts Options, p pricer.Pricer, balances BalanceSource, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Currency = domain.NormalizeSymbol(opts.Currency)
	opts.Stablecoins = lo.Map(opts.Stablecoins, func(s string, _ int) string { return domain.NormalizeSymbol(s) })
	opts.Fiat = lo.Map(opts.Fiat, func(s string, _ int) string { return domain.NormalizeSymbol(s) })
	if !lo.Contains(opts.Fiat, opts.Currency) {
		opts.Fiat = append(opts.Fiat, opts.Currency)
	}
	return &Builder{opts: opts, pricer: p, balances: balances, logger: logger, now: time.Now}
}

// Build reads holdings, merges exchange balances and prices everything in the wallet currency.
func (b *Builder) Build(ctx context.Context) (domain.Wallet, error) {
	rows, err := b.readRows()
	if err != nil {
		return domain.Wallet{}, err
	}

	if b.balances != nil {
		live, err := b.balances.Balances(ctx)
		if err != nil {
			return domain.Wallet{}, errors.Wrap(err, "fetch exchange balances")
		}
		symbols := lo.Keys(live)
		sort.Strings(symbols)
		for _, symbol := range symbols {
			rows = append(rows, Row{Symbol: domain.NormalizeSymbol(symbol), Quantity: live[symbol], Label: b.opts.ExchangeLabel})
		}
	}

	return b.FromRows(ctx, rows)
}

// FromRows builds a wallet from already parsed rows.
func (b *Builder) FromRows(ctx context.Context, rows []Row) (domain.Wallet, error) {
	w := domain.NewWallet(b.opts.Currency)
	w.Timestamp = b.now().UTC()
	w.PriceProvider = b.opts.Provider
	w.LiquidStaked = make(map[string]string)

	quantities := make(map[string]decimal.Decimal)
	var order []string
	for _, row := range rows {
		if row.Symbol == TotalInvestedSymbol {
			w.TotalInvested = row.Quantity
			continue
		}
		if row.Label != "" && row.Label == b.opts.ExchangeLabel {
			key := domain.ExchangeKey(row.Symbol)
			w.Exchange[key] = w.Exchange[key].Add(row.Quantity)
		}
		if row.LiquidStake {
			if base, ok := b.opts.LiquidStake[row.Symbol]; ok {
				w.LiquidStaked[row.Symbol] = domain.NormalizeSymbol(base)
			} else {
				b.logger.Warn("liquid staked asset has no base mapping", zap.String("symbol", row.Symbol))
			}
		}
		if _, ok := quantities[row.Symbol]; !ok {
			order = append(order, row.Symbol)
		}
		quantities[row.Symbol] = quantities[row.Symbol].Add(row.Quantity)
	}
	if len(order) == 0 {
		return domain.Wallet{}, errors.Wrap(domain.ErrEmptyWallet, "no holdings")
	}

	toPrice := lo.Filter(order, func(s string, _ int) bool { return s != b.opts.Currency })
	table, err := b.pricer.Prices(ctx, toPrice, b.opts.Currency)
	if err != nil {
		return domain.Wallet{}, errors.Wrap(err, "price holdings")
	}
	for _, s := range table.Missing() {
		b.logger.Warn("cannot price asset", zap.String("symbol", s), zap.String("currency", b.opts.Currency))
	}

	for _, symbol := range order {
		qty := quantities[symbol]
		h := domain.Holding{Symbol: symbol, Quantity: qty, Class: b.classify(symbol)}
		if symbol == b.opts.Currency {
			h.Value = qty
		} else if price, ok := table.Lookup(symbol); ok {
			h.Value = qty.Mul(price).Round(2)
		}
		w.Set(h)

		w.TotalValue = w.TotalValue.Add(h.Value)
		if h.Class != domain.AssetClassFiat {
			w.Total = w.Total.Add(h.Value)
		}
	}

	b.logger.Info("wallet built",
		zap.Int("assets", w.Len()),
		zap.String("total_value", w.TotalValue.String()),
		zap.String("total_crypto_stable", w.Total.String()),
		zap.String("currency", w.Currency))
	return w, nil
}

func (b *Builder) readRows() ([]Row, error) {
	if b.opts.HoldingsFile == "" {
		return nil, nil
	}
	f, err := os.Open(b.opts.HoldingsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && b.balances != nil {
			b.logger.Warn("holdings file not found, using exchange balances only", zap.String("path", b.opts.HoldingsFile))
			return nil, nil
		}
		return nil, errors.Wrapf(err, "open holdings %s", b.opts.HoldingsFile)
	}
	defer f.Close()

	rows, rowErrs, err := ReadHoldings(f)
	if err != nil {
		return nil, err
	}
	for _, e := range rowErrs {
		b.logger.Warn("skip holdings row", zap.Error(e))
	}
	return rows, nil
}

func (b *Builder) classify(symbol string) domain.AssetClass {
	switch {
	case lo.Contains(b.opts.Fiat, symbol):
		return domain.AssetClassFiat
	case lo.Contains(b.opts.Stablecoins, symbol):
		return domain.AssetClassStable
	default:
		return domain.AssetClassCrypto
	}
}
