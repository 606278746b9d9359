package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyWallet the wallet has no value to rebalance.
var ErrEmptyWallet = errors.New("empty wallet")

var hundred = decimal.NewFromInt(100)

// Wallet is the snapshot the rebalancer works on.
// Holdings keep insertion order so planning is deterministic.
type Wallet struct {
	Currency  string
	Timestamp time.Time
	// Total is the crypto+stable value, the denominator of every allocation percentage.
	Total decimal.Decimal
	// TotalValue also includes fiat holdings.
	TotalValue    decimal.Decimal
	TotalInvested decimal.Decimal
	PriceProvider string
	// Exchange holds quantities available on the exchange keyed by lowercase symbol.
	Exchange map[string]decimal.Decimal
	// LiquidStaked maps held liquid-staked symbols to their base asset.
	LiquidStaked map[string]string

	order    []string
	holdings map[string]Holding
}

// NewWallet creates an empty wallet denominated in currency.
func NewWallet(currency string) Wallet {
	return Wallet{
		Currency: NormalizeSymbol(currency),
		Exchange: make(map[string]decimal.Decimal),
		holdings: make(map[string]Holding),
	}
}

// Set inserts or replaces a holding.
func (w *Wallet) Set(h Holding) {
	if w.holdings == nil {
		w.holdings = make(map[string]Holding)
	}
	h.Symbol = NormalizeSymbol(h.Symbol)
	if _, ok := w.holdings[h.Symbol]; !ok {
		w.order = append(w.order, h.Symbol)
	}
	w.holdings[h.Symbol] = h
}

// Get returns the holding for symbol.
func (w Wallet) Get(symbol string) (Holding, bool) {
	h, ok := w.holdings[NormalizeSymbol(symbol)]
	return h, ok
}

// Delete removes a holding, keeping the order of the others.
func (w *Wallet) Delete(symbol string) {
	symbol = NormalizeSymbol(symbol)
	if _, ok := w.holdings[symbol]; !ok {
		return
	}
	delete(w.holdings, symbol)
	for i, s := range w.order {
		if s == symbol {
			w.order = append(w.order[:i:i], w.order[i+1:]...)
			break
		}
	}
}

// Symbols returns held symbols in insertion order.
func (w Wallet) Symbols() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Holdings returns holdings in insertion order.
func (w Wallet) Holdings() []Holding {
	out := make([]Holding, 0, len(w.order))
	for _, s := range w.order {
		out = append(out, w.holdings[s])
	}
	return out
}

// Len number of holdings.
func (w Wallet) Len() int { return len(w.order) }

// Pct returns the share of symbol in Total, in percent.
func (w Wallet) Pct(symbol string) decimal.Decimal {
	h, ok := w.Get(symbol)
	if !ok || w.Total.IsZero() {
		return decimal.Zero
	}
	return h.Value.Div(w.Total).Mul(hundred)
}

// ExchangeQty returns the exchange balance for symbol.
func (w Wallet) ExchangeQty(symbol string) decimal.Decimal {
	return w.Exchange[ExchangeKey(symbol)]
}

// Clone returns a deep copy.
func (w Wallet) Clone() Wallet {
	c := w
	c.order = append([]string(nil), w.order...)
	c.holdings = make(map[string]Holding, len(w.holdings))
	for k, v := range w.holdings {
		c.holdings[k] = v
	}
	c.Exchange = CloneAmounts(w.Exchange)
	if w.LiquidStaked != nil {
		c.LiquidStaked = make(map[string]string, len(w.LiquidStaked))
		for k, v := range w.LiquidStaked {
			c.LiquidStaked[k] = v
		}
	}
	return c
}

// FoldLiquidStake adds the value and quantity of every liquid-staked asset to its base asset
// and removes the liquid-staked holding. lsToBase maps LSA symbol to base symbol.
func (w *Wallet) FoldLiquidStake(lsToBase map[string]string) {
	for _, ls := range w.Symbols() {
		base, ok := lookupFold(lsToBase, ls)
		if !ok || base == ls {
			continue
		}
		lsHolding, _ := w.Get(ls)
		target, ok := w.Get(base)
		if !ok {
			target = Holding{Symbol: base, Class: lsHolding.Class}
		}
		target.Value = target.Value.Add(lsHolding.Value)
		target.Quantity = target.Quantity.Add(lsHolding.Quantity)
		w.Delete(ls)
		w.Set(target)
	}
}

func lookupFold(m map[string]string, symbol string) (string, bool) {
	for ls, base := range m {
		if NormalizeSymbol(ls) == symbol {
			return NormalizeSymbol(base), true
		}
	}
	return "", false
}

// CloneAmounts copies a symbol to amount map.
func CloneAmounts(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
