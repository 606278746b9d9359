package trader

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

const simulatedOrderPrefix = "sim-"

// Pricer prices assets for simulated fills.
type Pricer interface {
	Prices(ctx context.Context, symbols []string, currency string) (domain.PriceTable, error)
}

// StateStore persists paper balances between runs.
type StateStore interface {
	Load(path string, v any) error
	Save(path string, v any) error
}

type simState struct {
	Balances map[string]decimal.Decimal `json:"balances"`
}

// SimulateTrader fills every market order on paper at the current price.
type SimulateTrader struct {
	mu       sync.Mutex
	logger   *zap.Logger
	pricer   Pricer
	currency string
	wallet   map[string]decimal.Decimal
	orders   []domain.ExecutedOrder

	store     StateStore
	statePath string
}

// SimulateOption configures SimulateTrader.
type SimulateOption func(*SimulateTrader)

// WithStateFile restores paper balances from path and saves them after every fill.
func WithStateFile(store StateStore, path string) SimulateOption {
	return func(t *SimulateTrader) {
		t.store = store
		t.statePath = path
	}
}

// NewSimulateTrader creates a paper trader seeded with balances. pricer may be nil,
// in which case orders are accepted without touching balances.
func NewSimulateTrader(balances map[string]decimal.Decimal, pricer Pricer, currency string, logger *zap.Logger, opts ...SimulateOption) (*SimulateTrader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &SimulateTrader{
		logger:   logger,
		pricer:   pricer,
		currency: domain.NormalizeSymbol(currency),
		wallet:   make(map[string]decimal.Decimal, len(balances)),
	}
	for k, v := range balances {
		t.wallet[domain.NormalizeSymbol(k)] = v
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.store != nil {
		var state simState
		if err := t.store.Load(t.statePath, &state); err != nil {
			return nil, errors.Wrap(err, "restore simulate state")
		}
		if len(state.Balances) > 0 {
			t.wallet = state.Balances
		}
	}

	logger.Info("simulate init", zap.Int("assets", len(t.wallet)), zap.String("currency", t.currency))
	return t, nil
}

// PlaceMarketOrder implements the order placement contract. Simulated orders always succeed.
func (t *SimulateTrader) PlaceMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, size decimal.Decimal, _ string) (string, error) {
	if err := validateOrder(pair, side, size); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := simulatedOrderPrefix + uuid.NewString()
	t.fill(ctx, pair, side, size)
	t.orders = append(t.orders, domain.ExecutedOrder{
		Symbol:  pair.Base(),
		Pair:    pair.String(),
		Side:    side,
		Size:    size,
		OrderID: id,
	})

	t.logger.Info("Simulated order executed",
		zap.String("id", id),
		zap.String("pair", pair.String()),
		zap.String("side", side.String()),
		zap.String("size", size.String()))

	if t.store != nil {
		if err := t.store.Save(t.statePath, simState{Balances: t.wallet}); err != nil {
			t.logger.Warn("failed to persist simulate state", zap.Error(err))
		}
	}
	return id, nil
}

// fill moves paper balances at the current base/quote rate.
func (t *SimulateTrader) fill(ctx context.Context, pair domain.Pair, side domain.Side, size decimal.Decimal) {
	if t.pricer == nil {
		return
	}
	table, err := t.pricer.Prices(ctx, []string{pair.Base(), pair.Quote()}, t.currency)
	if err != nil {
		t.logger.Warn("simulate: price lookup failed, balances unchanged", zap.Error(err))
		return
	}
	basePrice, okBase := table.Lookup(pair.Base())
	quotePrice, okQuote := table.Lookup(pair.Quote())
	if !okBase || !okQuote {
		t.logger.Warn("simulate: missing price, balances unchanged", zap.String("pair", pair.String()))
		return
	}
	rate := basePrice.Div(quotePrice)

	base, quote := pair.Base(), pair.Quote()
	if side == domain.SideBuy {
		t.wallet[quote] = t.wallet[quote].Sub(size)
		t.wallet[base] = t.wallet[base].Add(size.Div(rate))
	} else {
		t.wallet[base] = t.wallet[base].Sub(size)
		t.wallet[quote] = t.wallet[quote].Add(size.Mul(rate))
	}
	for _, s := range []string{base, quote} {
		if t.wallet[s].IsNegative() {
			t.logger.Warn("simulate: paper balance below zero", zap.String("symbol", s), zap.String("balance", t.wallet[s].String()))
		}
	}
}

// Balances returns paper balances with positive quantity.
func (t *SimulateTrader) Balances(context.Context) (map[string]decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(t.wallet))
	for k, v := range t.wallet {
		if v.IsPositive() {
			out[k] = v
		}
	}
	return out, nil
}

// Orders returns the orders filled so far.
func (t *SimulateTrader) Orders() []domain.ExecutedOrder {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.ExecutedOrder, len(t.orders))
	copy(out, t.orders)
	return out
}
