package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorLedger_AddDoesNotMutate(t *testing.T) {
	var empty ErrorLedger
	one := empty.Add(Failure{Symbol: "BTC", Amount: decimal.NewFromInt(200), Side: SideSell, Kind: FailureInsufficientLiquidity})
	two := one.Add(Failure{Symbol: "ETH", Side: SideBuy, Kind: FailureNoTradingPair})
	three := two.Add(Failure{Symbol: "BTC", Side: SideSell, Kind: FailurePlacement})

	assert.Zero(t, empty.Len())
	assert.Equal(t, 1, one.Len())
	assert.Equal(t, 3, three.Len())
	assert.Equal(t, []string{"BTC", "ETH"}, three.Symbols())
	require.Len(t, three.ForSymbol("btc"), 2)
	assert.Equal(t, FailurePlacement, three.ForSymbol("BTC")[1].Kind)
}

func TestFailureKind_Text(t *testing.T) {
	for _, k := range []FailureKind{FailureBlacklisted, FailureInsufficientLiquidity, FailureNoTradingPair, FailureNoSwapLiquidity, FailurePlacement} {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var back FailureKind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}

	var k FailureKind
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
}
