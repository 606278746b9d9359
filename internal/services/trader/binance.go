package trader

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/pkg/retrier"
	"go.uber.org/zap"
)

// BinanceTrader places spot market orders on Binance.
type BinanceTrader struct {
	client  *binance.Client
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// NewBinanceTrader creates a live trader. Only balance reads are retried.
func NewBinanceTrader(client *binance.Client, r *retrier.Retrier, logger *zap.Logger) *BinanceTrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = retrier.New()
	}
	return &BinanceTrader{client: client, retrier: r, logger: logger}
}

// PlaceMarketOrder submits a market order. Buys are sized in the quote asset, sells in the base asset.
func (t *BinanceTrader) PlaceMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, size decimal.Decimal, clientOrderID string) (string, error) {
	if err := validateOrder(pair, side, size); err != nil {
		return "", err
	}
	if clientOrderID == "" {
		clientOrderID = NewClientOrderID()
	}

	svc := t.client.NewCreateOrderService().Symbol(pair.Symbol()).
		Type(binance.OrderTypeMarket).
		NewClientOrderID(clientOrderID)
	if side == domain.SideBuy {
		svc = svc.Side(binance.SideTypeBuy).QuoteOrderQty(size.String())
	} else {
		svc = svc.Side(binance.SideTypeSell).Quantity(size.String())
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "place binance %s order for %s", side, pair.String())
	}
	if resp == nil || resp.OrderID == 0 {
		return "", nil
	}

	t.logger.Debug("binance order accepted",
		zap.String("pair", pair.String()),
		zap.String("side", side.String()),
		zap.String("size", size.String()),
		zap.Int64("order_id", resp.OrderID),
		zap.String("status", string(resp.Status)))

	return strconv.FormatInt(resp.OrderID, 10), nil
}

// Balances returns free spot balances keyed by uppercase asset, zero balances omitted.
func (t *BinanceTrader) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	account, err := retrier.DoWithData(t.retrier, ctx, func(ctx context.Context) (*binance.Account, error) {
		return t.client.NewGetAccountService().Do(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get binance account balance")
	}

	out := make(map[string]decimal.Decimal, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s balance", b.Asset)
		}
		if free.IsPositive() {
			out[domain.NormalizeSymbol(b.Asset)] = free
		}
	}
	return out, nil
}
