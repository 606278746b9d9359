package rebalance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

// OrderPlacer places market orders: buys sized in quote, sells in base. An empty id means failure.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, size decimal.Decimal, clientOrderID string) (string, error)
}

// Order a single order handed to the Executor.
type Order struct {
	Symbol string
	// Pair in BASE-QUOTE form, validated before anything else.
	Pair string
	Side domain.Side
	Size decimal.Decimal
	// Amount fiat value of the order, used for reporting.
	Amount decimal.Decimal
	Swap   bool
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %s", o.Side, o.Size.String(), o.Pair)
}

// ResultKind outcome of an order.
type ResultKind int

const (
	ResultExecuted ResultKind = iota
	ResultSkipped
	ResultFailed
)

func (k ResultKind) String() string {
	switch k {
	case ResultExecuted:
		return "executed"
	case ResultSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result of Execute.
type Result struct {
	Kind    ResultKind
	OrderID string
	Reason  string
	Err     error
}

// Executor routes orders according to the execution mode.
type Executor struct {
	mode      domain.ExecutionMode
	live      OrderPlacer
	simulator OrderPlacer
	confirmer Confirmer
	logger    *zap.Logger
}

// NewExecutor creates an executor. live is required for interactive and auto modes,
// confirmer for interactive mode. simulator may be nil: simulated orders are then only logged.
func NewExecutor(mode domain.ExecutionMode, live, simulator OrderPlacer, confirmer Confirmer, logger *zap.Logger) (*Executor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case domain.ModeSimulation:
	case domain.ModeInteractive:
		if confirmer == nil {
			return nil, errors.New("interactive mode requires a confirmer")
		}
		fallthrough
	case domain.ModeAuto:
		if live == nil {
			return nil, errors.Errorf("%s mode requires an exchange trader", mode)
		}
	default:
		return nil, errors.Wrapf(domain.ErrInvalidMode, "%d", int(mode))
	}
	return &Executor{mode: mode, live: live, simulator: simulator, confirmer: confirmer, logger: logger}, nil
}

// Mode execution mode of the executor.
func (x *Executor) Mode() domain.ExecutionMode { return x.mode }

// Execute places o. It never panics on bad input: a malformed pair fails before any exchange call.
func (x *Executor) Execute(ctx context.Context, o Order) Result {
	pair, err := domain.ParsePair(o.Pair)
	if err != nil {
		x.logger.Error("order rejected", zap.String("pair", o.Pair), zap.Error(err))
		return Result{Kind: ResultFailed, Err: err, Reason: "invalid pair"}
	}
	if !o.Size.IsPositive() {
		return Result{Kind: ResultFailed, Err: errors.Errorf("non-positive size %s", o.Size.String()), Reason: "invalid size"}
	}

	placer := x.live
	switch x.mode {
	case domain.ModeSimulation:
		if x.simulator == nil {
			id := "sim-" + uuid.NewString()
			x.logger.Info("simulated order", zap.String("order", o.String()), zap.String("id", id))
			return Result{Kind: ResultExecuted, OrderID: id}
		}
		placer = x.simulator
	case domain.ModeInteractive:
		ok, err := x.confirmer.Confirm(ctx, o)
		if err != nil {
			x.logger.Warn("confirmation failed, skipping order", zap.String("order", o.String()), zap.Error(err))
			return Result{Kind: ResultSkipped, Reason: "confirmation failed"}
		}
		if !ok {
			x.logger.Info("order declined", zap.String("order", o.String()))
			return Result{Kind: ResultSkipped, Reason: "declined"}
		}
	}

	id, err := placer.PlaceMarketOrder(ctx, pair, o.Side, o.Size, newClientOrderID())
	if err != nil {
		x.logger.Error("order placement failed", zap.String("order", o.String()), zap.Error(err))
		return Result{Kind: ResultFailed, Err: err, Reason: "placement failed"}
	}
	if id == "" {
		x.logger.Error("order placement returned no id", zap.String("order", o.String()))
		return Result{Kind: ResultFailed, Err: errors.New("empty order id"), Reason: "placement failed"}
	}

	x.logger.Info("order executed",
		zap.String("pair", pair.String()),
		zap.String("side", o.Side.String()),
		zap.String("size", o.Size.String()),
		zap.String("id", id))
	return Result{Kind: ResultExecuted, OrderID: id}
}

func newClientOrderID() string {
	return "folio-" + uuid.NewString()[:18]
}
