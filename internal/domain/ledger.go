package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FailureKind why an asset could not be traded.
type FailureKind int

const (
	FailureBlacklisted FailureKind = iota
	FailureInsufficientLiquidity
	FailureNoTradingPair
	FailureNoSwapLiquidity
	FailurePlacement
)

func (k FailureKind) String() string {
	switch k {
	case FailureBlacklisted:
		return "blacklisted"
	case FailureInsufficientLiquidity:
		return "insufficient liquidity"
	case FailureNoTradingPair:
		return "no trading pair"
	case FailureNoSwapLiquidity:
		return "no swap liquidity"
	case FailurePlacement:
		return "placement failed"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FailureKind) UnmarshalText(text []byte) error {
	for _, candidate := range []FailureKind{
		FailureBlacklisted, FailureInsufficientLiquidity, FailureNoTradingPair, FailureNoSwapLiquidity, FailurePlacement,
	} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown failure kind %q", string(text))
}

// Failure a single untraded amount.
type Failure struct {
	Symbol   string          `json:"symbol"`
	Pair     string          `json:"pair,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Side     Side            `json:"side"`
	Kind     FailureKind     `json:"kind"`
	Reason   string          `json:"reason,omitempty"`
}

// ErrorLedger append-only list of failures collected during a run.
type ErrorLedger struct {
	entries []Failure
}

// Add appends a failure and returns the extended ledger. The receiver is left untouched.
func (l ErrorLedger) Add(f Failure) ErrorLedger {
	entries := make([]Failure, len(l.entries), len(l.entries)+1)
	copy(entries, l.entries)
	return ErrorLedger{entries: append(entries, f)}
}

// Entries returns a copy of all failures in insertion order.
func (l ErrorLedger) Entries() []Failure {
	out := make([]Failure, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len number of failures.
func (l ErrorLedger) Len() int { return len(l.entries) }

// ForSymbol returns failures recorded for symbol.
func (l ErrorLedger) ForSymbol(symbol string) []Failure {
	symbol = NormalizeSymbol(symbol)
	var out []Failure
	for _, f := range l.entries {
		if f.Symbol == symbol {
			out = append(out, f)
		}
	}
	return out
}

// Symbols returns distinct symbols in first-failure order.
func (l ErrorLedger) Symbols() []string {
	seen := make(map[string]struct{}, len(l.entries))
	var out []string
	for _, f := range l.entries {
		if _, ok := seen[f.Symbol]; ok {
			continue
		}
		seen[f.Symbol] = struct{}{}
		out = append(out, f.Symbol)
	}
	return out
}
