package domain

import "github.com/shopspring/decimal"

var ten = decimal.NewFromInt(10)

// SymbolInfo catalog entry of a tradable pair.
type SymbolInfo struct {
	Base           string
	Quote          string
	TradingEnabled bool
	BaseIncrement  decimal.Decimal
	QuoteIncrement decimal.Decimal
	BaseMinSize    decimal.Decimal
	QuoteMinSize   decimal.Decimal
}

// Pair returns the pair of the entry.
func (s SymbolInfo) Pair() (Pair, error) {
	return NewPair(s.Base, s.Quote)
}

// PrecisionFor returns decimal places allowed for order sizes of side:
// base increment for sells, quote increment for buys.
func (s SymbolInfo) PrecisionFor(side Side) int32 {
	if side == SideSell {
		return PrecisionFromIncrement(s.BaseIncrement)
	}
	return PrecisionFromIncrement(s.QuoteIncrement)
}

// IncrementFor returns the order size step of side: base increment for sells, quote increment for buys.
func (s SymbolInfo) IncrementFor(side Side) decimal.Decimal {
	if side == SideSell {
		return s.BaseIncrement
	}
	return s.QuoteIncrement
}

// FloorSize rounds size down to a multiple of the step of side.
// Without a known step it falls back to whole units.
func (s SymbolInfo) FloorSize(side Side, size decimal.Decimal) decimal.Decimal {
	step := s.IncrementFor(side)
	if !step.IsPositive() {
		return size.RoundFloor(0)
	}
	return size.Div(step).Floor().Mul(step)
}

// CeilSize rounds size up to a multiple of the step of side.
func (s SymbolInfo) CeilSize(side Side, size decimal.Decimal) decimal.Decimal {
	step := s.IncrementFor(side)
	if !step.IsPositive() {
		return size.RoundCeil(0)
	}
	return size.Div(step).Ceil().Mul(step)
}

// MinSizeFor returns minimum order size of side in the unit the order is sized in.
func (s SymbolInfo) MinSizeFor(side Side) decimal.Decimal {
	if side == SideSell {
		return s.BaseMinSize
	}
	return s.QuoteMinSize
}

// PrecisionFromIncrement counts decimal places of a step like 0.0001 (4) or 1 (0).
func PrecisionFromIncrement(increment decimal.Decimal) int32 {
	if !increment.IsPositive() {
		return 0
	}
	var places int32
	for v := increment; v.LessThan(decimal.NewFromInt(1)) && places < 18; places++ {
		v = v.Mul(ten)
	}
	return places
}
