// Package domain defines core data structures used by the wallet tracker and the rebalancer.
package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidPair is returned when a pair string is not in BASE-QUOTE form.
var ErrInvalidPair = errors.New("invalid trading pair")

var pairRe = regexp.MustCompile(`^([A-Z0-9]{1,8})-([A-Z0-9]{1,8})$`)

// Pair cryptocurrency trading pair.
// The zero value is not a valid pair, use ParsePair or NewPair.
type Pair struct {
	base  string
	quote string
}

// ParsePair validates s and returns the pair it describes, e.g. "sol-usdc".
func ParsePair(s string) (Pair, error) {
	m := pairRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return Pair{}, errors.Wrapf(ErrInvalidPair, "%q", s)
	}
	return Pair{base: m[1], quote: m[2]}, nil
}

// NewPair builds a pair from its base and quote symbols.
func NewPair(base, quote string) (Pair, error) {
	return ParsePair(base + "-" + quote)
}

// Base base currency symbol.
func (p Pair) Base() string { return p.base }

// Quote quote currency symbol.
func (p Pair) Quote() string { return p.quote }

// IsZero reports whether p was never parsed.
func (p Pair) IsZero() bool { return p.base == "" && p.quote == "" }

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s-%s", p.base, p.quote)
}

// Symbol returns the concatenated symbol representation used by the exchange API.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.base, p.quote)
}
