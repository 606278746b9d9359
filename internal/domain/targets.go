package domain

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// MinRebalanceKey is the reserved key of the target allocation file holding the threshold.
const MinRebalanceKey = "min_rebalance"

// Targets is the desired allocation of the portfolio.
// Percentages need not sum to 100; anything not listed is reduced to zero.
type Targets struct {
	Allocations map[string]decimal.Decimal
	// MinRebalancePct deviations smaller than this (in percent of Total) are ignored.
	MinRebalancePct decimal.Decimal
}

// NewTargetsFromFile converts the flat file representation (symbol -> pct plus min_rebalance).
func NewTargetsFromFile(raw map[string]decimal.Decimal) (Targets, error) {
	t := Targets{Allocations: make(map[string]decimal.Decimal, len(raw))}
	minPct, ok := raw[MinRebalanceKey]
	if !ok {
		return Targets{}, errors.Errorf("target allocation is missing %q", MinRebalanceKey)
	}
	t.MinRebalancePct = minPct.Abs()
	for symbol, pct := range raw {
		if symbol == MinRebalanceKey {
			continue
		}
		t.Allocations[NormalizeSymbol(symbol)] = pct
	}
	return t, t.Validate()
}

// Validate checks every percentage is within 0..100.
func (t Targets) Validate() error {
	for symbol, pct := range t.Allocations {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return errors.Errorf("target for %s must be between 0 and 100, got %s", symbol, pct.String())
		}
	}
	if t.MinRebalancePct.GreaterThan(hundred) {
		return errors.Errorf("min_rebalance must be between 0 and 100, got %s", t.MinRebalancePct.String())
	}
	return nil
}

// Pct returns the target for symbol, zero when absent.
func (t Targets) Pct(symbol string) decimal.Decimal {
	return t.Allocations[NormalizeSymbol(symbol)]
}

// Symbols returns target symbols sorted.
func (t Targets) Symbols() []string {
	out := make([]string, 0, len(t.Allocations))
	for s := range t.Allocations {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
