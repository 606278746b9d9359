package rebalance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/folio/internal/domain"
)

func TestExecuteBuys_ClippedOrderBooksShortfall(t *testing.T) {
	w := testWallet(crypto("BTC", "1000", "0.02"))
	w.Exchange["usdt"] = d("60")

	placer := new(MockPlacer)
	placer.On("PlaceMarketOrder", "ETH-USDT", domain.SideBuy, "60").Return("5001", nil).Once()
	e := newTestEngine(t, w, targets("1", "BTC", "100"), testConfig("USDT"), defaultPrices, staticCatalog{}, autoExecutor(t, placer))

	st, err := e.executeBuys(context.Background(), routedBuy(t, e, "100", listing("ETH", "USDT")))
	require.NoError(t, err)

	placer.AssertExpectations(t)
	require.Len(t, st.Executed, 1)
	assert.True(t, d("60").Equal(st.Executed[0].Amount))
	failures := st.Ledger.ForSymbol("ETH")
	require.Len(t, failures, 1)
	assert.Equal(t, domain.FailureInsufficientLiquidity, failures[0].Kind)
	assert.Equal(t, domain.SideBuy, failures[0].Side)
	assert.True(t, d("40").Equal(failures[0].Amount))
	assert.True(t, st.held("USDT").IsZero())
}

func TestExecuteBuys_ClippedBelowMinimumIsAFailure(t *testing.T) {
	w := testWallet(crypto("BTC", "1000", "0.02"))
	w.Exchange["usdt"] = d("0.5")

	placer := new(MockPlacer)
	e := newTestEngine(t, w, targets("1", "BTC", "100"), testConfig("USDT"), defaultPrices, staticCatalog{}, autoExecutor(t, placer))

	st, err := e.executeBuys(context.Background(), routedBuy(t, e, "100", listing("ETH", "USDT")))
	require.NoError(t, err)

	placer.AssertNotCalled(t, "PlaceMarketOrder", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, st.Executed)
	assert.Empty(t, st.Skipped)
	failures := st.Ledger.ForSymbol("ETH")
	require.Len(t, failures, 1)
	assert.Equal(t, domain.FailureInsufficientLiquidity, failures[0].Kind)
	assert.True(t, d("100").Equal(failures[0].Amount))
}

func TestExecuteSells_SizeFollowsLotStep(t *testing.T) {
	w := testWallet(crypto("ETH", "1000", "0.5"))
	w.Exchange["eth"] = d("0.5")

	ethUSDT := listing("ETH", "USDT")
	ethUSDT.BaseIncrement = d("0.00025")
	pair, err := ethUSDT.Pair()
	require.NoError(t, err)

	placer := new(MockPlacer)
	// 2.7 EUR at 2000 is 0.00135 ETH, floored to the 0.00025 step
	placer.On("PlaceMarketOrder", "ETH-USDT", domain.SideSell, "0.00125").Return("5101", nil).Once()
	e := newTestEngine(t, w, targets("1", "ETH", "100"), testConfig("USDT"), defaultPrices, staticCatalog{ethUSDT}, autoExecutor(t, placer))

	st := e.newState()
	st.Orders = domain.NewOrders("EUR")
	st.Orders.Sell["ETH"] = d("2.7")
	st.Prices["ETH"] = d("2000")
	st.Prices["USDT"] = d("1")
	st.SellRoutes = map[string]Route{"ETH": {Pair: pair, Precision: ethUSDT.PrecisionFor(domain.SideSell), Info: ethUSDT}}

	st, err = e.executeSells(context.Background(), st)
	require.NoError(t, err)

	placer.AssertExpectations(t)
	require.Len(t, st.Executed, 1)
	assert.Zero(t, st.Ledger.Len())
}
