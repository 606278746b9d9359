// Package trader places market orders and reads exchange balances.
package trader

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
)

const clientOrderPrefix = "folio-"

// NewClientOrderID returns a unique client order id.
func NewClientOrderID() string {
	return clientOrderPrefix + uuid.NewString()[:18]
}

func validateOrder(pair domain.Pair, side domain.Side, size decimal.Decimal) error {
	if pair.IsZero() {
		return domain.ErrInvalidPair
	}
	if side != domain.SideBuy && side != domain.SideSell {
		return fmt.Errorf("unknown side %d", int(side))
	}
	if !size.IsPositive() {
		return fmt.Errorf("%s size must be positive, got %s", side, size.String())
	}
	return nil
}
