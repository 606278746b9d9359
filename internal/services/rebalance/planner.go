// Package rebalance brings an exchange account back to its target allocation.
package rebalance

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PlanOptions symbols the planner never trades.
type PlanOptions struct {
	Stablecoins []string
	Blacklist   []string
}

// PlanOrders computes the fiat amount to buy or sell per symbol to reach targets.
// Symbols are visited in wallet order, then targets missing from the wallet in lexical order,
// so the result only depends on its inputs.
func PlanOrders(w domain.Wallet, t domain.Targets, opts PlanOptions) domain.Orders {
	orders := domain.NewOrders(w.Currency)
	if !w.Total.IsPositive() {
		return orders
	}

	skip := lo.SliceToMap(append(normalize(opts.Stablecoins), normalize(opts.Blacklist)...), func(s string) (string, struct{}) {
		return s, struct{}{}
	})
	skip[w.Currency] = struct{}{}

	minPct := t.MinRebalancePct.Abs()
	for _, symbol := range plannedSymbols(w, t) {
		if _, ok := skip[symbol]; ok {
			continue
		}

		actual := decimal.Zero
		if h, ok := w.Get(symbol); ok {
			if h.Class != domain.AssetClassCrypto {
				continue
			}
			actual = h.Value
		}
		expected := t.Pct(symbol).Div(hundred).Mul(w.Total)

		delta := expected.Sub(actual)
		if delta.IsZero() {
			continue
		}
		deltaPct := delta.Abs().Div(w.Total).Mul(hundred)
		if deltaPct.LessThan(minPct) {
			continue
		}

		if delta.IsNegative() {
			orders.Sell[symbol] = delta.Abs()
		} else {
			orders.Buy[symbol] = delta
		}
		orders.TotBuySize = orders.TotBuySize.Add(delta)
	}

	return orders
}

func plannedSymbols(w domain.Wallet, t domain.Targets) []string {
	held := w.Symbols()
	missing := lo.Without(t.Symbols(), held...)
	sort.Strings(missing)
	return lo.Uniq(append(held, missing...))
}

func normalize(symbols []string) []string {
	return lo.Map(symbols, func(s string, _ int) string { return domain.NormalizeSymbol(s) })
}
