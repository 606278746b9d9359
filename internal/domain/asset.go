package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AssetClass groups holdings for allocation math.
type AssetClass int

const (
	AssetClassCrypto AssetClass = iota
	AssetClassStable
	AssetClassFiat
)

// String returns the string representation.
func (c AssetClass) String() string {
	switch c {
	case AssetClassCrypto:
		return "crypto"
	case AssetClassStable:
		return "stable"
	case AssetClassFiat:
		return "fiat"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c AssetClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *AssetClass) UnmarshalText(b []byte) error {
	switch string(b) {
	case "crypto":
		*c = AssetClassCrypto
	case "stable":
		*c = AssetClassStable
	case "fiat":
		*c = AssetClassFiat
	default:
		return fmt.Errorf("unknown asset class %q", string(b))
	}
	return nil
}

// Holding is a single asset position valued in the wallet currency.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"qty"`
	Value    decimal.Decimal `json:"value"`
	Class    AssetClass      `json:"class"`
}

// NormalizeSymbol returns the canonical (uppercase) form of a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ExchangeKey returns the key used for exchange balances (lowercase).
func ExchangeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
