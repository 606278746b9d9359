package rebalance

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
)

// Route trading pair chosen for a symbol.
type Route struct {
	Pair      domain.Pair
	Precision int32
	Info      domain.SymbolInfo
}

// State everything a run knows after a stage. Stages return a new State and never
// modify the one they received.
type State struct {
	Stage    domain.Stage
	Wallet   domain.Wallet
	Orders   domain.Orders
	BuyPower domain.BuyPower
	Ledger   domain.ErrorLedger
	// Prices fiat prices collected during the run.
	Prices     map[string]decimal.Decimal
	SellRoutes map[string]Route
	BuyRoutes  map[string]Route
	Executed   []domain.ExecutedOrder
	Skipped    []domain.SkippedOrder
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.Wallet = s.Wallet.Clone()
	c.Orders = s.Orders.Clone()
	c.BuyPower = s.BuyPower.Clone()
	c.Prices = domain.CloneAmounts(s.Prices)
	c.SellRoutes = cloneRoutes(s.SellRoutes)
	c.BuyRoutes = cloneRoutes(s.BuyRoutes)
	c.Executed = append([]domain.ExecutedOrder(nil), s.Executed...)
	c.Skipped = append([]domain.SkippedOrder(nil), s.Skipped...)
	return c
}

func (s *State) price(symbol string) (decimal.Decimal, bool) {
	p, ok := s.Prices[domain.NormalizeSymbol(symbol)]
	return p, ok
}

func (s *State) fail(f domain.Failure) {
	f.Symbol = domain.NormalizeSymbol(f.Symbol)
	if f.Currency == "" {
		f.Currency = s.Wallet.Currency
	}
	s.Ledger = s.Ledger.Add(f)
}

func (s *State) skip(o Order, reason string) {
	s.Skipped = append(s.Skipped, domain.SkippedOrder{
		Symbol: o.Symbol,
		Pair:   o.Pair,
		Side:   o.Side,
		Size:   o.Size,
		Reason: reason,
	})
}

func cloneRoutes(m map[string]Route) map[string]Route {
	if m == nil {
		return nil
	}
	out := make(map[string]Route, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
