package rebalance

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

func testConfig(whitelist ...string) Config {
	return Config{Whitelist: whitelist, PartialSellMin: decimal.NewFromInt(1)}
}

func newTestEngine(t *testing.T, w domain.Wallet, tg domain.Targets, cfg Config, p Pricer, c Catalog, x *Executor) *Engine {
	t.Helper()
	e, err := NewEngine(w, tg, cfg, Deps{Pricer: p, Catalog: c, Executor: x}, zap.NewNop())
	require.NoError(t, err)
	return e
}

func simExecutor(t *testing.T) *Executor {
	t.Helper()
	x, err := NewExecutor(domain.ModeSimulation, nil, nil, nil, zap.NewNop())
	require.NoError(t, err)
	return x
}

func autoExecutor(t *testing.T, placer OrderPlacer) *Executor {
	t.Helper()
	x, err := NewExecutor(domain.ModeAuto, placer, nil, nil, zap.NewNop())
	require.NoError(t, err)
	return x
}

var defaultPrices = staticPricer{"BTC": "50000", "ETH": "2000", "USDT": "1", "USDC": "1", "SOL": "100"}

func TestNewEngine_FoldsLiquidStake(t *testing.T) {
	w := testWallet(crypto("ETH", "1000", "0.5"), crypto("STETH", "500", "0.25"), crypto("BTC", "2000", "0.04"))
	w.LiquidStaked = map[string]string{"STETH": "ETH"}

	e := newTestEngine(t, w, targets("1", "ETH", "50", "BTC", "50"), testConfig("USDT"), defaultPrices, staticCatalog{}, simExecutor(t))

	folded := e.Wallet()
	_, hasStaked := folded.Get("STETH")
	assert.False(t, hasStaked)
	eth, ok := folded.Get("ETH")
	require.True(t, ok)
	assert.True(t, d("1500").Equal(eth.Value))
	assert.True(t, d("0.75").Equal(eth.Quantity))
	assert.True(t, d("3500").Equal(folded.Total))

	_, stillStaked := w.Get("STETH")
	assert.True(t, stillStaked, "caller wallet must not change")
}

func TestNewEngine_Validation(t *testing.T) {
	w := testWallet(crypto("BTC", "1000", "0.02"))

	_, err := NewEngine(w, targets("1", "BTC", "150"), testConfig(), Deps{Pricer: defaultPrices, Catalog: staticCatalog{}, Executor: simExecutor(t)}, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.PartialSellMin = d("-1")
	_, err = NewEngine(w, targets("1", "BTC", "100"), cfg, Deps{Pricer: defaultPrices, Catalog: staticCatalog{}, Executor: simExecutor(t)}, nil)
	assert.Error(t, err)

	_, err = NewEngine(w, targets("1", "BTC", "100"), testConfig(), Deps{}, nil)
	assert.Error(t, err)
}

func TestRun_EmptyWallet(t *testing.T) {
	e := newTestEngine(t, domain.NewWallet("EUR"), targets("1", "BTC", "100"), testConfig("USDT"), defaultPrices, staticCatalog{}, simExecutor(t))

	report, err := e.Run(context.Background())

	assert.ErrorIs(t, err, domain.ErrEmptyWallet)
	assert.Equal(t, domain.StagePlanned, report.Stage)
}

func TestCalcBuyPower_PartialSell(t *testing.T) {
	w := testWallet(crypto("BTC", "5500", "0.11"), crypto("ETH", "4500", "2.25"))
	w.Exchange["btc"] = d("0.006")
	e := newTestEngine(t, w, targets("1", "BTC", "50", "ETH", "50"), testConfig("USDT"), defaultPrices, staticCatalog{}, simExecutor(t))

	in := e.newState()
	require.True(t, d("500").Equal(in.Orders.Sell["BTC"]))

	st, err := e.calcBuyPower(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, d("300").Equal(st.Orders.Sell["BTC"]))
	assert.True(t, d("300").Equal(st.BuyPower.SellOrders["BTC"]))
	assert.True(t, d("300").Equal(st.BuyPower.Total))

	failures := st.Ledger.ForSymbol("BTC")
	require.Len(t, failures, 1)
	assert.True(t, d("200").Equal(failures[0].Amount))
	assert.Equal(t, domain.SideSell, failures[0].Side)
	assert.Equal(t, domain.FailureInsufficientLiquidity, failures[0].Kind)
	assert.Equal(t, "EUR", failures[0].Currency)

	assert.True(t, d("500").Equal(in.Orders.Sell["BTC"]), "input state must not change")
	assert.Zero(t, in.Ledger.Len())
}

func TestCalcBuyPower_DropsUndeliverableAndBlacklisted(t *testing.T) {
	w := testWallet(crypto("BTC", "5500", "0.11"), crypto("ETH", "4500", "2.25"))
	w.Exchange["btc"] = d("0.00001")
	cfg := testConfig("USDT")
	cfg.Blacklist = []string{"XRP"}
	pricer := &recordingPricer{staticPricer: defaultPrices}
	e := newTestEngine(t, w, targets("1", "BTC", "50", "ETH", "50"), cfg, pricer, staticCatalog{}, simExecutor(t))

	in := e.newState()
	in.Orders.Sell["XRP"] = d("100")

	st, err := e.calcBuyPower(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, st.Orders.Sell)
	assert.Empty(t, st.BuyPower.SellOrders)

	btc := st.Ledger.ForSymbol("BTC")
	require.Len(t, btc, 1)
	assert.True(t, d("500").Equal(btc[0].Amount))

	xrp := st.Ledger.ForSymbol("XRP")
	require.Len(t, xrp, 1)
	assert.Equal(t, domain.FailureBlacklisted, xrp[0].Kind)
	assert.NotContains(t, pricer.requested, "XRP", "blacklisted symbols are dropped before pricing")
	assert.Contains(t, pricer.requested, "BTC")
}

func TestCalcBuyPower_QuoteAssets(t *testing.T) {
	w := testWallet(crypto("BTC", "10000", "0.2"))
	w.Exchange["eur"] = d("1000")
	w.Exchange["usdt"] = d("500")
	w.Exchange["usdc"] = d("0")
	w.Exchange["sol"] = d("3")
	prices := staticPricer{"BTC": "50000", "USDT": "0.9", "USDC": "0.9", "SOL": "100"}
	e := newTestEngine(t, w, targets("1", "BTC", "100"), testConfig("USDT", "USDC", "EUR"), prices, staticCatalog{}, simExecutor(t))

	st, err := e.calcBuyPower(context.Background(), e.newState())
	require.NoError(t, err)

	assert.True(t, d("1000").Equal(st.BuyPower.Normal["EUR"]))
	assert.True(t, d("450").Equal(st.BuyPower.Normal["USDT"]))
	assert.NotContains(t, st.BuyPower.Normal, "USDC")
	assert.NotContains(t, st.BuyPower.Normal, "SOL")
	assert.NotContains(t, st.Wallet.Exchange, "eur")
	assert.True(t, d("1450").Equal(st.BuyPower.Total))
	assert.Equal(t, []string{"EUR", "USDT"}, st.BuyPower.Quotes())
	assert.True(t, d("1000").Equal(st.held("EUR")))
}

func TestResolvePairs_BestRate(t *testing.T) {
	catalog := staticCatalog{listing("BTC", "USDT"), listing("BTC", "USDC"), listing("BTC", "EUR")}
	prices := staticPricer{"BTC": "50000", "USDT": "0.9", "USDC": "0.95"}
	w := testWallet(crypto("BTC", "1000", "0.02"))
	e := newTestEngine(t, w, targets("1", "BTC", "100"), testConfig("USDT", "USDC", "EUR"), prices, catalog, simExecutor(t))

	tests := []struct {
		side  domain.Side
		quote string
	}{
		{domain.SideBuy, "EUR"},
		{domain.SideSell, "USDT"},
	}
	for _, tt := range tests {
		t.Run(tt.side.String(), func(t *testing.T) {
			st := e.newState()
			routes, missing, err := e.resolvePairs(context.Background(), &st, tt.side, []string{"BTC"}, []string{"USDT", "USDC", "EUR"})
			require.NoError(t, err)
			assert.Empty(t, missing)
			require.Contains(t, routes, "BTC")
			assert.Equal(t, tt.quote, routes["BTC"].Pair.Quote())
		})
	}
}

func TestResolvePairs_TiesAndFilters(t *testing.T) {
	disabled := listing("ADA", "USDT")
	disabled.TradingEnabled = false
	catalog := staticCatalog{
		listing("BTC", "USDC"), listing("BTC", "USDT"),
		disabled,
		listing("USDT", "USDT"),
		listing("SOL", "BNB"),
	}
	prices := staticPricer{"BTC": "50000", "USDT": "1", "USDC": "1", "ADA": "0.5", "SOL": "100"}
	w := testWallet(crypto("BTC", "1000", "0.02"))
	e := newTestEngine(t, w, targets("1", "BTC", "100"), testConfig("USDT", "USDC"), prices, catalog, simExecutor(t))

	st := e.newState()
	routes, missing, err := e.resolvePairs(context.Background(), &st, domain.SideBuy, []string{"BTC", "ADA", "USDT", "SOL"}, []string{"USDT", "USDC"})
	require.NoError(t, err)

	assert.Equal(t, "BTC-USDT", routes["BTC"].Pair.String(), "first quote in preference order wins a tie")
	assert.Equal(t, int32(2), routes["BTC"].Precision)
	assert.Equal(t, []string{"ADA", "USDT", "SOL"}, missing)
	_, priced := st.price("USDT")
	assert.True(t, priced)
}

func TestResolvePairs_SellPrecisionFromBaseIncrement(t *testing.T) {
	info := listing("ETH", "USDT")
	info.BaseIncrement = d("0.001")
	e := newTestEngine(t, testWallet(crypto("ETH", "1000", "0.5")), targets("1", "ETH", "100"), testConfig("USDT"), defaultPrices, staticCatalog{info}, simExecutor(t))

	st := e.newState()
	routes, _, err := e.resolvePairs(context.Background(), &st, domain.SideSell, []string{"ETH"}, []string{"USDT"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), routes["ETH"].Precision)
}

func TestPrepareSells_CanOpenNewQuote(t *testing.T) {
	catalog := staticCatalog{listing("BTC", "USDC"), listing("ETH", "USDC")}
	e := newTestEngine(t, driftWallet(), targets("1", "BTC", "50", "ETH", "50"), testConfig("USDT", "USDC"), defaultPrices, catalog, simExecutor(t))

	st, err := e.calcBuyPower(context.Background(), e.newState())
	require.NoError(t, err)
	require.Empty(t, st.BuyPower.Quotes(), "exchange holds no quote assets")

	st, err = e.prepareSells(context.Background(), st)
	require.NoError(t, err)

	require.Contains(t, st.SellRoutes, "BTC")
	assert.Equal(t, "BTC-USDC", st.SellRoutes["BTC"].Pair.String())
	assert.Zero(t, st.Ledger.Len())
}

type failingCatalog struct{ staticCatalog }

func (failingCatalog) ForBase(context.Context, string) ([]domain.SymbolInfo, error) {
	return nil, errors.New("exchange unavailable")
}

func TestRun_CatalogErrorStopsRun(t *testing.T) {
	w := testWallet(crypto("BTC", "8000", "0.16"), crypto("ETH", "2000", "1"))
	w.Exchange["btc"] = d("0.16")
	e := newTestEngine(t, w, targets("1", "BTC", "50", "ETH", "50"), testConfig("USDT"), defaultPrices, failingCatalog{}, simExecutor(t))

	report, err := e.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sell preparation")
	assert.Equal(t, domain.StagePlanned, report.Stage)
	assert.Empty(t, report.Executed)
}

func driftWallet() domain.Wallet {
	w := testWallet(crypto("BTC", "8000", "0.16"), crypto("ETH", "2000", "1"))
	w.Exchange["btc"] = d("0.16")
	w.Exchange["eth"] = d("1")
	return w
}

func TestRun_SellsBeforeBuys(t *testing.T) {
	placer := new(MockPlacer)
	mock.InOrder(
		placer.On("PlaceMarketOrder", "BTC-USDT", domain.SideSell, "0.06").Return("1001", nil).Once(),
		placer.On("PlaceMarketOrder", "ETH-USDT", domain.SideBuy, "3000").Return("1002", nil).Once(),
	)
	catalog := staticCatalog{listing("BTC", "USDT"), listing("ETH", "USDT")}
	e := newTestEngine(t, driftWallet(), targets("1", "BTC", "50", "ETH", "50"), testConfig("USDT"), defaultPrices, catalog, autoExecutor(t, placer))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	placer.AssertExpectations(t)
	assert.Equal(t, domain.StageDone, report.Stage)
	assert.Equal(t, domain.ModeAuto, report.Mode)
	require.Len(t, report.Executed, 2)
	assert.Equal(t, "1001", report.Executed[0].OrderID)
	assert.Equal(t, domain.SideSell, report.Executed[0].Side)
	assert.Equal(t, "1002", report.Executed[1].OrderID)
	assert.Empty(t, report.Failures)
	assert.True(t, d("3000").Equal(report.Planned.Sell["BTC"]))
}

func TestRun_FailedSellDoesNotAbort(t *testing.T) {
	w := testWallet(crypto("BTC", "7000", "0.14"), crypto("SOL", "1000", "10"), crypto("ETH", "2000", "1"))
	w.Exchange["btc"] = d("0.14")
	w.Exchange["sol"] = d("10")
	w.Exchange["usdt"] = d("100")

	placer := new(MockPlacer)
	placer.On("PlaceMarketOrder", "BTC-USDT", domain.SideSell, "0.04").Return("", nil).Once()
	placer.On("PlaceMarketOrder", "SOL-USDT", domain.SideSell, "10").Return("2001", nil).Once()
	catalog := staticCatalog{listing("BTC", "USDT"), listing("SOL", "USDT"), listing("ETH", "USDT")}
	e := newTestEngine(t, w, targets("1", "BTC", "50", "ETH", "50"), testConfig("USDT"), defaultPrices, catalog, autoExecutor(t, placer))

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	placer.AssertExpectations(t)
	assert.Equal(t, domain.StageDone, report.Stage)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "BTC", report.Failures[0].Symbol)
	assert.Equal(t, domain.FailurePlacement, report.Failures[0].Kind)
	assert.True(t, d("2000").Equal(report.Failures[0].Amount))
	assert.Equal(t, "ETH", report.Failures[1].Symbol)
	assert.Equal(t, domain.FailureNoSwapLiquidity, report.Failures[1].Kind)
}

func TestRun_SimulationNeverCallsExchange(t *testing.T) {
	placer := new(MockPlacer)
	x, err := NewExecutor(domain.ModeSimulation, placer, nil, nil, zap.NewNop())
	require.NoError(t, err)
	catalog := staticCatalog{listing("BTC", "USDT"), listing("ETH", "USDT")}
	e := newTestEngine(t, driftWallet(), targets("1", "BTC", "50", "ETH", "50"), testConfig("USDT"), defaultPrices, catalog, x)

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	placer.AssertNotCalled(t, "PlaceMarketOrder", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, report.Executed, 2)
	for _, o := range report.Executed {
		assert.Contains(t, o.OrderID, "sim-")
	}
}

func TestRun_InteractiveDecline(t *testing.T) {
	placer := new(MockPlacer)
	confirmer := new(MockConfirmer)
	confirmer.On("Confirm", "BTC-USDT", domain.SideSell).Return(false, nil).Once()
	x, err := NewExecutor(domain.ModeInteractive, placer, nil, confirmer, zap.NewNop())
	require.NoError(t, err)
	catalog := staticCatalog{listing("BTC", "USDT"), listing("ETH", "USDT")}
	e := newTestEngine(t, driftWallet(), targets("1", "BTC", "50", "ETH", "50"), testConfig("USDT"), defaultPrices, catalog, x)

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	confirmer.AssertExpectations(t)
	placer.AssertNotCalled(t, "PlaceMarketOrder", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "declined", report.Skipped[0].Reason)
	assert.Equal(t, domain.StageDone, report.Stage)
	// nothing was sold, so ETH has no quote to buy with
	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.FailureNoTradingPair, report.Failures[0].Kind)
}

func TestRun_SizesAreFlooredToPrecision(t *testing.T) {
	catalog := staticCatalog{listing("BTC", "USDT"), listing("ETH", "USDT")}
	prices := staticPricer{"BTC": "43217.77", "ETH": "2311.13", "USDT": "0.93"}

	for _, btcValue := range []string{"7001.31", "8123.99", "9999.97", "6543.21"} {
		t.Run(btcValue, func(t *testing.T) {
			btc := d(btcValue)
			qty := btc.Div(d("43217.77"))
			w := testWallet(
				domain.Holding{Symbol: "BTC", Value: btc, Quantity: qty},
				domain.Holding{Symbol: "ETH", Value: d("10000").Sub(btc), Quantity: d("1")},
			)
			w.Exchange["btc"] = qty
			w.Exchange["usdt"] = d("50")
			e := newTestEngine(t, w, targets("1", "BTC", "50", "ETH", "50"), testConfig("USDT"), prices, catalog, simExecutor(t))

			report, err := e.Run(context.Background())
			require.NoError(t, err)
			require.NotEmpty(t, report.Executed)

			for _, o := range report.Executed {
				if o.Side == domain.SideSell {
					assert.LessOrEqual(t, -o.Size.Exponent(), int32(4))
					assert.True(t, o.Size.Mul(d("43217.77")).LessThanOrEqual(o.Amount))
					assert.True(t, o.Size.LessThanOrEqual(qty))
				} else {
					assert.LessOrEqual(t, -o.Size.Exponent(), int32(2))
					assert.True(t, o.Size.Mul(d("0.93")).LessThanOrEqual(o.Amount))
				}
			}
		})
	}
}
