package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEntryLogic_Satisfied(t *testing.T) {
	tt := []struct {
		name      string
		logic     EntryLogic
		triggered int
		enabled   int
		want      bool
	}{
		{"any with one trigger", EntryLogicAny, 1, 4, true},
		{"any with no trigger", EntryLogicAny, 0, 4, false},
		{"two of three met", EntryLogicTwoOfThree, 2, 3, true},
		{"two of three short", EntryLogicTwoOfThree, 1, 3, false},
		{"two of three with only two enabled", EntryLogicTwoOfThree, 1, 2, false},
		{"two of three with only two enabled both firing", EntryLogicTwoOfThree, 2, 2, true},
		{"three of four met", EntryLogicThreeOfFour, 3, 4, true},
		{"three of four short", EntryLogicThreeOfFour, 2, 4, false},
		{"all firing", EntryLogicAll, 3, 3, true},
		{"all with one missing", EntryLogicAll, 2, 3, false},
		{"all with none enabled", EntryLogicAll, 0, 0, false},
		{"unknown logic", EntryLogic("SOMETIMES"), 6, 6, false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.logic.Satisfied(tc.triggered, tc.enabled))
		})
	}
}

func TestEntryIndicators_EnabledCount(t *testing.T) {
	indicators := EntryIndicators{}
	require.Zero(t, indicators.EnabledCount())

	indicators.RSI.Enabled = true
	indicators.MACD.Enabled = true
	indicators.Stochastic.Enabled = true
	require.Equal(t, 3, indicators.EnabledCount())
}

func TestStrategy_Pair(t *testing.T) {
	strategy := Strategy{Quote: "usdt"}
	require.Equal(t, "BTCUSDT", strategy.Pair("btc"))
	require.Equal(t, "ETHUSDT", strategy.Pair("ETH"))
}

func TestStrategy_HoldDuration(t *testing.T) {
	strategy := Strategy{}
	duration, err := strategy.HoldDuration()
	require.NoError(t, err)
	require.Zero(t, duration)

	strategy.MaxHoldDuration = "2d12h"
	duration, err = strategy.HoldDuration()
	require.NoError(t, err)
	require.Equal(t, 60*time.Hour, duration)

	strategy.MaxHoldDuration = "soon"
	_, err = strategy.HoldDuration()
	require.Error(t, err)
}
