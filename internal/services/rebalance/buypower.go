package rebalance

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

// calcBuyPower works out liquidity available on the exchange and trims sells that
// the exchange balance cannot cover.
func (e *Engine) calcBuyPower(ctx context.Context, in State) (State, error) {
	st := in.Clone()
	bp := domain.NewBuyPower()
	cur := st.Wallet.Currency

	if e.isWhitelisted(cur) {
		if qty := st.Wallet.ExchangeQty(cur); qty.IsPositive() {
			bp.Normal[cur] = qty
			delete(st.Wallet.Exchange, domain.ExchangeKey(cur))
		}
	}
	var sells []string
	for _, sym := range st.Orders.SortedSymbols(domain.SideSell) {
		if e.isBlacklisted(sym) {
			st.fail(domain.Failure{Symbol: sym, Amount: st.Orders.Sell[sym], Side: domain.SideSell, Kind: domain.FailureBlacklisted, Reason: "symbol is blacklisted"})
			delete(st.Orders.Sell, sym)
			continue
		}
		sells = append(sells, sym)
	}
	e.fetchPrices(ctx, &st, sells)

	for _, sym := range sells {
		amount := st.Orders.Sell[sym]
		available := decimal.Zero
		if price, ok := st.price(sym); ok {
			available = st.Wallet.ExchangeQty(sym).Mul(price)
		} else {
			e.logger.Warn("sell asset has no price, treating as unavailable", zap.String("symbol", sym))
		}

		switch {
		case available.GreaterThanOrEqual(amount):
			bp.SellOrders[sym] = amount
		case available.GreaterThanOrEqual(e.cfg.PartialSellMin) && available.IsPositive():
			bp.SellOrders[sym] = available
			st.Orders.Sell[sym] = available
			st.fail(domain.Failure{
				Symbol: sym,
				Amount: amount.Sub(available),
				Side:   domain.SideSell,
				Kind:   domain.FailureInsufficientLiquidity,
				Reason: "exchange balance covers only part of the sell",
			})
			e.logger.Warn("partial sell",
				zap.String("symbol", sym),
				zap.String("planned", amount.StringFixed(2)),
				zap.String("available", available.StringFixed(2)))
		default:
			delete(st.Orders.Sell, sym)
			st.fail(domain.Failure{
				Symbol: sym,
				Amount: amount,
				Side:   domain.SideSell,
				Kind:   domain.FailureInsufficientLiquidity,
				Reason: "not enough on the exchange",
			})
		}
	}

	var quotes []string
	for _, q := range e.whitelist {
		if _, claimed := bp.Normal[q]; claimed {
			continue
		}
		if st.Wallet.ExchangeQty(q).IsPositive() {
			quotes = append(quotes, q)
		}
	}
	e.fetchPrices(ctx, &st, quotes)
	for _, q := range quotes {
		price, ok := st.price(q)
		if !ok {
			e.logger.Warn("quote asset has no price, ignoring its buy power", zap.String("symbol", q))
			continue
		}
		bp.Normal[q] = st.Wallet.ExchangeQty(q).Mul(price)
	}

	total := decimal.Zero
	for _, v := range bp.Normal {
		total = total.Add(v)
	}
	for sym, v := range bp.SellOrders {
		if _, ok := bp.Normal[sym]; !ok {
			total = total.Add(v)
		}
	}
	bp.Total = total
	st.BuyPower = bp

	e.logger.Info("buy power",
		zap.String("total", total.StringFixed(2)),
		zap.Strings("quotes", bp.Quotes()),
		zap.Int("sells", len(st.Orders.Sell)))
	return st, nil
}
