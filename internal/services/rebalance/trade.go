package rebalance

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

// executeSells sizes and places the resolved sells. Sizes are in base units, floored to the pair step.
func (e *Engine) executeSells(ctx context.Context, in State) (State, error) {
	st := in.Clone()
	for _, sym := range st.Orders.SortedSymbols(domain.SideSell) {
		route, ok := st.SellRoutes[sym]
		if !ok {
			continue
		}
		amount := st.Orders.Sell[sym]
		price, ok := st.price(sym)
		if !ok {
			st.fail(domain.Failure{Symbol: sym, Pair: route.Pair.String(), Amount: amount, Side: domain.SideSell, Kind: domain.FailurePlacement, Reason: "no price"})
			continue
		}

		e.trade(ctx, &st, route, Order{Symbol: sym, Pair: route.Pair.String(), Side: domain.SideSell, Amount: amount}, sym, price)
	}
	st.Stage = domain.StageSellsExecuted
	return st, nil
}

// executeBuys sizes and places the funded buys. Sizes are in quote units, floored to the pair step.
func (e *Engine) executeBuys(ctx context.Context, in State) (State, error) {
	st := in.Clone()
	for _, sym := range st.Orders.SortedSymbols(domain.SideBuy) {
		route, ok := st.BuyRoutes[sym]
		if !ok {
			continue
		}
		amount := st.Orders.Buy[sym]
		quote := route.Pair.Quote()
		quotePrice, ok := st.price(quote)
		if !ok {
			st.fail(domain.Failure{Symbol: sym, Pair: route.Pair.String(), Amount: amount, Side: domain.SideBuy, Kind: domain.FailurePlacement, Reason: "no price for quote " + quote})
			continue
		}

		e.trade(ctx, &st, route, Order{Symbol: sym, Pair: route.Pair.String(), Side: domain.SideBuy, Amount: amount}, quote, quotePrice)
	}
	st.Stage = domain.StageBuysExecuted
	return st, nil
}

// trade sizes o in units of asset (base for sells, quote for buys) and places it.
// When the exchange holds less than planned, the order is clipped to the balance and the
// missing value is booked as insufficient liquidity.
func (e *Engine) trade(ctx context.Context, st *State, route Route, o Order, asset string, price decimal.Decimal) {
	planned := o.Amount
	o.Size = route.Info.FloorSize(o.Side, planned.Div(price))

	clipped := false
	if held := st.held(asset); o.Size.GreaterThan(held) {
		o.Size = route.Info.FloorSize(o.Side, held)
		o.Amount = o.Size.Mul(price)
		clipped = true
	}

	if !o.Size.IsPositive() || o.Size.LessThan(route.Info.MinSizeFor(o.Side)) {
		if clipped {
			e.logger.Warn("not enough on the exchange for order", zap.String("order", o.String()), zap.String("asset", asset))
			st.fail(domain.Failure{Symbol: o.Symbol, Pair: o.Pair, Amount: planned, Side: o.Side, Kind: domain.FailureInsufficientLiquidity, Reason: "not enough " + asset + " on the exchange"})
			return
		}
		e.logger.Warn(o.Side.String()+" below minimum order size, skipping", zap.String("order", o.String()))
		st.skip(o, "below minimum order size")
		return
	}

	if clipped {
		e.logger.Warn("order clipped to exchange balance",
			zap.String("order", o.String()),
			zap.String("planned", planned.StringFixed(2)),
			zap.String("amount", o.Amount.StringFixed(2)))
		st.fail(domain.Failure{
			Symbol: o.Symbol,
			Pair:   o.Pair,
			Amount: planned.Sub(o.Amount),
			Side:   o.Side,
			Kind:   domain.FailureInsufficientLiquidity,
			Reason: "order clipped to the " + asset + " balance",
		})
	}
	e.place(ctx, st, o)
}

// place hands o to the executor and books the outcome into st.
func (e *Engine) place(ctx context.Context, st *State, o Order) {
	res := e.executor.Execute(ctx, o)
	switch res.Kind {
	case ResultExecuted:
		e.fill(st, o)
		st.Executed = append(st.Executed, domain.ExecutedOrder{
			Symbol:  o.Symbol,
			Pair:    o.Pair,
			Side:    o.Side,
			Size:    o.Size,
			Amount:  o.Amount,
			OrderID: res.OrderID,
			Swap:    o.Swap,
		})
	case ResultSkipped:
		st.skip(o, res.Reason)
	default:
		reason := res.Reason
		if res.Err != nil {
			reason = res.Err.Error()
		}
		st.fail(domain.Failure{
			Symbol: o.Symbol,
			Pair:   o.Pair,
			Amount: o.Amount,
			Side:   o.Side,
			Kind:   domain.FailurePlacement,
			Reason: reason,
		})
	}
}

// fill books estimated balances of an executed order: sells credit the quote, buys debit it.
func (e *Engine) fill(st *State, o Order) {
	pair, err := domain.ParsePair(o.Pair)
	if err != nil {
		return
	}
	basePrice, baseOK := st.price(pair.Base())
	quotePrice, quoteOK := st.price(pair.Quote())

	if o.Side == domain.SideSell {
		e.adjust(st, pair.Base(), o.Size.Neg())
		if baseOK && quoteOK {
			e.adjust(st, pair.Quote(), o.Size.Mul(basePrice).Div(quotePrice))
		}
		return
	}

	e.adjust(st, pair.Quote(), o.Size.Neg())
	if baseOK && quoteOK {
		e.adjust(st, pair.Base(), o.Size.Mul(quotePrice).Div(basePrice))
	}
}
