// Package pricer looks up fiat prices of assets.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
)

// Pricer returns prices of symbols in currency. Unpriceable symbols are reported
// through PriceTable.Missing, not as an error.
type Pricer interface {
	Prices(ctx context.Context, symbols []string, currency string) (domain.PriceTable, error)
}

// Source raw provider of symbol -> price maps.
type Source interface {
	Name() string
	Prices(ctx context.Context, symbols []string, currency string) (map[string]decimal.Decimal, error)
}

// SourcePricer adapts a Source to Pricer.
type SourcePricer struct {
	source Source
}

// NewSourcePricer creates a pricer backed by source.
func NewSourcePricer(source Source) *SourcePricer {
	return &SourcePricer{source: source}
}

// Name of the underlying provider.
func (p *SourcePricer) Name() string { return p.source.Name() }

// Prices implements Pricer.
func (p *SourcePricer) Prices(ctx context.Context, symbols []string, currency string) (domain.PriceTable, error) {
	raw, err := p.source.Prices(ctx, symbols, currency)
	if err != nil {
		return domain.PriceTable{}, err
	}
	return domain.NewPriceTable(currency, symbols, withCurrency(raw, currency, symbols)), nil
}

// withCurrency prices the currency itself at 1.
func withCurrency(raw map[string]decimal.Decimal, currency string, symbols []string) map[string]decimal.Decimal {
	cur := domain.NormalizeSymbol(currency)
	for _, s := range symbols {
		if domain.NormalizeSymbol(s) == cur {
			out := make(map[string]decimal.Decimal, len(raw)+1)
			for k, v := range raw {
				out[k] = v
			}
			out[cur] = decimal.NewFromInt(1)
			return out
		}
	}
	return raw
}
