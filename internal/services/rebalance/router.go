package rebalance

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

// prepareBuyLiquidity makes sure every routed buy has enough of its quote asset,
// swapping another held whitelist asset into it when not. Buys sharing a quote reserve it
// in symbol order. Swaps are executed here, before any buy.
func (e *Engine) prepareBuyLiquidity(ctx context.Context, in State) (State, error) {
	st := in.Clone()
	reserved := make(map[string]decimal.Decimal)
	for _, sym := range st.Orders.SortedSymbols(domain.SideBuy) {
		route, ok := st.BuyRoutes[sym]
		if !ok {
			continue
		}
		amount := st.Orders.Buy[sym]
		quote := route.Pair.Quote()
		quotePrice, ok := st.price(quote)
		if !ok {
			st.fail(domain.Failure{Symbol: sym, Pair: route.Pair.String(), Amount: amount, Side: domain.SideBuy, Kind: domain.FailureNoSwapLiquidity, Reason: "no price for quote " + quote})
			st.drop(sym)
			continue
		}

		needed := amount.Div(quotePrice)
		free := st.held(quote).Sub(reserved[quote])
		if free.GreaterThanOrEqual(needed) {
			reserved[quote] = reserved[quote].Add(needed)
			continue
		}

		shortfall := needed.Sub(free).Mul(quotePrice)
		source, info, found, err := e.swapSource(ctx, &st, quote, shortfall, reserved)
		if err != nil {
			return in, err
		}
		if !found {
			e.logger.Warn("no liquidity to fund buy",
				zap.String("symbol", sym),
				zap.String("quote", quote),
				zap.String("shortfall", shortfall.StringFixed(2)))
			st.fail(domain.Failure{Symbol: sym, Pair: route.Pair.String(), Amount: amount, Side: domain.SideBuy, Kind: domain.FailureNoSwapLiquidity, Reason: "no asset covers the " + quote + " shortfall"})
			st.drop(sym)
			continue
		}
		reserved[quote] = reserved[quote].Add(needed)

		sourcePrice, _ := st.price(source)
		swapQuote := route.Info.CeilSize(domain.SideBuy, needed).Sub(free)
		size := swapQuote.Mul(quotePrice).Div(sourcePrice)
		if available := st.held(source).Sub(reserved[source]); size.GreaterThan(available) {
			e.logger.Warn("swap clipped to available balance",
				zap.String("source", source),
				zap.String("wanted", size.String()),
				zap.String("available", available.String()))
			size = available
		}
		size = info.FloorSize(domain.SideSell, size)

		pair, err := info.Pair()
		if err != nil {
			return in, errors.Wrap(err, "swap pair")
		}
		swap := Order{
			Symbol: source,
			Pair:   pair.String(),
			Side:   domain.SideSell,
			Size:   size,
			Amount: size.Mul(sourcePrice),
			Swap:   true,
		}
		if !size.IsPositive() || size.LessThan(info.MinSizeFor(domain.SideSell)) {
			e.logger.Warn("swap below minimum order size, skipping", zap.String("order", swap.String()), zap.String("min", info.BaseMinSize.String()))
			st.skip(swap, "swap below minimum order size")
			continue
		}

		e.place(ctx, &st, swap)
	}
	return st, nil
}

// swapSource finds the first whitelist asset, other than quote, whose unreserved exchange balance
// covers shortfall (fiat) and that trades directly into quote.
func (e *Engine) swapSource(ctx context.Context, st *State, quote string, shortfall decimal.Decimal, reserved map[string]decimal.Decimal) (string, domain.SymbolInfo, bool, error) {
	for _, q := range e.whitelist {
		if q == quote {
			continue
		}
		price, ok := st.price(q)
		if !ok {
			continue
		}
		if st.held(q).Sub(reserved[q]).Mul(price).LessThan(shortfall) {
			continue
		}
		pair, err := domain.NewPair(q, quote)
		if err != nil {
			continue
		}
		info, ok, err := e.catalog.Lookup(ctx, pair)
		if err != nil {
			return "", domain.SymbolInfo{}, false, errors.Wrapf(err, "catalog lookup for %s", pair)
		}
		if ok && info.TradingEnabled {
			return q, info, true, nil
		}
	}
	return "", domain.SymbolInfo{}, false, nil
}

func (s *State) drop(symbol string) {
	delete(s.Orders.Buy, symbol)
	delete(s.BuyRoutes, symbol)
}
