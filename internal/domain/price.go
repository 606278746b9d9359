package domain

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrNoPrice no price is known for a symbol.
var ErrNoPrice = errors.New("no price")

// PriceTable result of a price lookup in a single quote currency.
type PriceTable struct {
	Currency string
	prices   map[string]decimal.Decimal
	missing  []string
}

// NewPriceTable builds a table for requested symbols. Requested symbols absent from prices are reported missing.
func NewPriceTable(currency string, requested []string, prices map[string]decimal.Decimal) PriceTable {
	t := PriceTable{Currency: NormalizeSymbol(currency), prices: make(map[string]decimal.Decimal, len(prices))}
	for k, v := range prices {
		if v.IsPositive() {
			t.prices[NormalizeSymbol(k)] = v
		}
	}
	seen := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		s = NormalizeSymbol(s)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := t.prices[s]; !ok {
			t.missing = append(t.missing, s)
		}
	}
	sort.Strings(t.missing)
	return t
}

// Lookup returns price of symbol and whether it was found.
func (t PriceTable) Lookup(symbol string) (decimal.Decimal, bool) {
	p, ok := t.prices[NormalizeSymbol(symbol)]
	return p, ok
}

// MustLookup is Lookup returning ErrNoPrice for unknown symbols.
func (t PriceTable) MustLookup(symbol string) (decimal.Decimal, error) {
	p, ok := t.Lookup(symbol)
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrNoPrice, "%s in %s", NormalizeSymbol(symbol), t.Currency)
	}
	return p, nil
}

// Missing symbols that were requested but not priceable.
func (t PriceTable) Missing() []string {
	out := make([]string, len(t.missing))
	copy(out, t.missing)
	return out
}

// Len number of priced symbols.
func (t PriceTable) Len() int { return len(t.prices) }
