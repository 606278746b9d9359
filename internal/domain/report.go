package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage of a rebalance run.
type Stage int

const (
	StagePlanned Stage = iota
	StageSellPrepared
	StageSellsExecuted
	StageBuysPrepared
	StageBuysExecuted
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StagePlanned:
		return "planned"
	case StageSellPrepared:
		return "sell-prepared"
	case StageSellsExecuted:
		return "sells-executed"
	case StageBuysPrepared:
		return "buys-prepared"
	case StageBuysExecuted:
		return "buys-executed"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	for c := StagePlanned; c <= StageDone; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	*s = StagePlanned
	return nil
}

// ExecutedOrder an order accepted by the exchange (or the simulator).
type ExecutedOrder struct {
	Symbol  string          `json:"symbol"`
	Pair    string          `json:"pair"`
	Side    Side            `json:"side"`
	Size    decimal.Decimal `json:"size"`
	Amount  decimal.Decimal `json:"amount"`
	OrderID string          `json:"order_id"`
	Swap    bool            `json:"swap,omitempty"`
}

// SkippedOrder an order that was not placed and is not a failure.
type SkippedOrder struct {
	Symbol string          `json:"symbol"`
	Pair   string          `json:"pair,omitempty"`
	Side   Side            `json:"side"`
	Size   decimal.Decimal `json:"size"`
	Reason string          `json:"reason"`
}

// RunReport outcome of a rebalance run.
type RunReport struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Mode      ExecutionMode   `json:"mode"`
	Stage     Stage           `json:"stage"`
	Currency  string          `json:"currency"`
	Total     decimal.Decimal `json:"total"`
	Planned   PlannedOrders   `json:"planned"`
	BuyPower  decimal.Decimal `json:"buy_power"`
	Executed  []ExecutedOrder `json:"executed,omitempty"`
	Skipped   []SkippedOrder  `json:"skipped,omitempty"`
	Failures  []Failure       `json:"failures,omitempty"`
}

// PlannedOrders serializable copy of Orders.
type PlannedOrders struct {
	Buy        map[string]decimal.Decimal `json:"buy"`
	Sell       map[string]decimal.Decimal `json:"sell"`
	TotBuySize decimal.Decimal            `json:"tot_buy_size"`
}

// NewPlannedOrders copies o.
func NewPlannedOrders(o Orders) PlannedOrders {
	return PlannedOrders{Buy: CloneAmounts(o.Buy), Sell: CloneAmounts(o.Sell), TotBuySize: o.TotBuySize}
}

// RunRecord bundles a report with its WAL index.
type RunRecord struct {
	Index  uint64
	Report RunReport
}
