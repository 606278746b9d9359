package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Orders planned fiat amounts per symbol, always positive.
type Orders struct {
	Currency string
	Buy      map[string]decimal.Decimal
	Sell     map[string]decimal.Decimal
	// TotBuySize net signed sum, sells negative. Diagnostics only.
	TotBuySize decimal.Decimal
}

// NewOrders creates empty orders denominated in currency.
func NewOrders(currency string) Orders {
	return Orders{
		Currency: currency,
		Buy:      make(map[string]decimal.Decimal),
		Sell:     make(map[string]decimal.Decimal),
	}
}

// Side returns the order map for side.
func (o Orders) Side(side Side) map[string]decimal.Decimal {
	if side == SideBuy {
		return o.Buy
	}
	return o.Sell
}

// Empty reports whether there is nothing to trade.
func (o Orders) Empty() bool {
	return len(o.Buy) == 0 && len(o.Sell) == 0
}

// SortedSymbols returns symbols of side in lexical order.
func (o Orders) SortedSymbols(side Side) []string {
	return sortedKeys(o.Side(side))
}

// Clone returns a deep copy.
func (o Orders) Clone() Orders {
	c := o
	c.Buy = CloneAmounts(o.Buy)
	c.Sell = CloneAmounts(o.Sell)
	return c
}

// BuyPower fiat liquidity available on the exchange per quote asset.
type BuyPower struct {
	// Normal value of quote assets held directly, keyed by uppercase symbol.
	Normal map[string]decimal.Decimal
	// SellOrders value unlocked by planned sells, keyed by uppercase symbol.
	SellOrders map[string]decimal.Decimal
	Total      decimal.Decimal
}

// NewBuyPower creates empty buy power.
func NewBuyPower() BuyPower {
	return BuyPower{
		Normal:     make(map[string]decimal.Decimal),
		SellOrders: make(map[string]decimal.Decimal),
	}
}

// Clone returns a deep copy.
func (b BuyPower) Clone() BuyPower {
	c := b
	c.Normal = CloneAmounts(b.Normal)
	c.SellOrders = CloneAmounts(b.SellOrders)
	return c
}

// Quotes returns quote assets with positive directly held value, sorted.
func (b BuyPower) Quotes() []string {
	out := make([]string, 0, len(b.Normal))
	for _, s := range sortedKeys(b.Normal) {
		if b.Normal[s].IsPositive() {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
