package rebalance

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

// resolvePairs picks a trading pair per symbol among pairs quoted in quotes.
// quotes order breaks ties. Symbols without an enabled pair are returned as missing.
func (e *Engine) resolvePairs(ctx context.Context, st *State, side domain.Side, symbols, quotes []string) (map[string]Route, []string, error) {
	quotes = lo.Uniq(normalize(quotes))
	rank := make(map[string]int, len(quotes))
	for i, q := range quotes {
		rank[q] = i
	}

	routes := make(map[string]Route, len(symbols))
	var missing []string
	for _, sym := range symbols {
		sym = domain.NormalizeSymbol(sym)
		infos, err := e.catalog.ForBase(ctx, sym)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "catalog lookup for %s", sym)
		}

		candidates := lo.Filter(infos, func(info domain.SymbolInfo, _ int) bool {
			q := domain.NormalizeSymbol(info.Quote)
			_, allowed := rank[q]
			return info.TradingEnabled && allowed && q != sym
		})
		if len(candidates) == 0 {
			missing = append(missing, sym)
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return rank[domain.NormalizeSymbol(candidates[i].Quote)] < rank[domain.NormalizeSymbol(candidates[j].Quote)]
		})

		chosen := candidates[0]
		if len(candidates) > 1 {
			chosen = e.bestRate(ctx, st, side, sym, candidates)
		}
		pair, err := chosen.Pair()
		if err != nil {
			e.logger.Warn("catalog returned an invalid pair", zap.String("base", chosen.Base), zap.String("quote", chosen.Quote), zap.Error(err))
			missing = append(missing, sym)
			continue
		}
		routes[sym] = Route{Pair: pair, Precision: chosen.PrecisionFor(side), Info: chosen}
	}

	e.fetchPrices(ctx, st, lo.MapToSlice(routes, func(_ string, r Route) string { return r.Pair.Quote() }))
	return routes, missing, nil
}

// bestRate chooses the cheapest pair to buy with or the most rewarding pair to sell into.
// candidates are in preference order; the first wins ties and candidates without prices are ignored.
func (e *Engine) bestRate(ctx context.Context, st *State, side domain.Side, base string, candidates []domain.SymbolInfo) domain.SymbolInfo {
	e.fetchPrices(ctx, st, append([]string{base}, lo.Map(candidates, func(c domain.SymbolInfo, _ int) string { return c.Quote })...))

	basePrice, ok := st.price(base)
	if !ok {
		return candidates[0]
	}

	best := -1
	var bestRate decimal.Decimal
	for i, c := range candidates {
		quotePrice, ok := st.price(c.Quote)
		if !ok {
			continue
		}
		rate := basePrice.Div(quotePrice)
		better := best < 0 ||
			(side == domain.SideBuy && rate.LessThan(bestRate)) ||
			(side == domain.SideSell && rate.GreaterThan(bestRate))
		if better {
			best, bestRate = i, rate
		}
	}
	if best < 0 {
		return candidates[0]
	}
	return candidates[best]
}

// prepareSells resolves pairs for the remaining sells against the whole counterpart whitelist,
// not only quotes that already hold buy power, so a sell can open a new quote balance.
func (e *Engine) prepareSells(ctx context.Context, in State) (State, error) {
	st := in.Clone()
	routes, missing, err := e.resolvePairs(ctx, &st, domain.SideSell, st.Orders.SortedSymbols(domain.SideSell), e.whitelist)
	if err != nil {
		return in, err
	}
	for _, sym := range missing {
		st.fail(domain.Failure{
			Symbol: sym,
			Amount: st.Orders.Sell[sym],
			Side:   domain.SideSell,
			Kind:   domain.FailureNoTradingPair,
			Reason: "no enabled pair against allowed quotes",
		})
		delete(st.Orders.Sell, sym)
		delete(st.BuyPower.SellOrders, sym)
	}
	st.SellRoutes = routes
	st.Stage = domain.StageSellPrepared
	return st, nil
}

// prepareBuys resolves pairs for buys against quotes with buy power, then funds them.
func (e *Engine) prepareBuys(ctx context.Context, in State) (State, error) {
	st := in.Clone()
	routes, missing, err := e.resolvePairs(ctx, &st, domain.SideBuy, st.Orders.SortedSymbols(domain.SideBuy), st.BuyPower.Quotes())
	if err != nil {
		return in, err
	}
	for _, sym := range missing {
		st.fail(domain.Failure{
			Symbol: sym,
			Amount: st.Orders.Buy[sym],
			Side:   domain.SideBuy,
			Kind:   domain.FailureNoTradingPair,
			Reason: "no enabled pair against held quotes",
		})
		delete(st.Orders.Buy, sym)
	}
	st.BuyRoutes = routes

	st, err = e.prepareBuyLiquidity(ctx, st)
	if err != nil {
		return in, err
	}
	st.Stage = domain.StageBuysPrepared
	return st, nil
}
