package signal

import (
	"testing"
	"time"

	zl "github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/logger/zerolog"
)

func testLogger() core.Logger {
	log := zl.Nop()
	return zerolog.NewAdapter(&log)
}

// risingCandles builds a series with strictly rising closes and flat volume
func risingCandles(n int) []core.Candle {
	candles := make([]core.Candle, n)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		close := 100.0 + float64(i)
		candles[i] = core.Candle{
			Pair:     "BTCUSDT",
			Time:     start.Add(time.Duration(i) * time.Hour),
			Open:     close - 0.5,
			Close:    close,
			High:     close + 1,
			Low:      close - 1,
			Volume:   100,
			Complete: true,
		}
	}
	return candles
}

func TestEvaluator_MinimumCandles(t *testing.T) {
	require.Equal(t, 50, MinimumCandles)
}

func TestEvaluator_NoIndicatorsEnabled(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	strategy := &core.Strategy{EntryLogic: core.EntryLogicAny}

	result := evaluator.Evaluate(risingCandles(100), strategy)
	require.False(t, result.ShouldEnter)
	require.Zero(t, result.TotalEnabled)
}

func TestEvaluator_InsufficientCandles(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	strategy := &core.Strategy{
		EntryLogic: core.EntryLogicAny,
		EntryIndicators: core.EntryIndicators{
			RSI: core.RSIIndicator{Enabled: true, Oversold: 100},
		},
	}

	result := evaluator.Evaluate(risingCandles(30), strategy)
	require.False(t, result.ShouldEnter)
	require.Zero(t, result.TriggeredCount)
	require.Equal(t, 1, result.TotalEnabled)
	require.Empty(t, result.IndicatorValues)
}

func TestEvaluator_AllLogic(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	strategy := &core.Strategy{
		EntryLogic: core.EntryLogicAll,
		EntryIndicators: core.EntryIndicators{
			// thresholds chosen so both indicators always fire
			RSI:    core.RSIIndicator{Enabled: true, Oversold: 100},
			Volume: core.VolumeIndicator{Enabled: true, Multiplier: 0.0001},
		},
	}

	result := evaluator.Evaluate(risingCandles(100), strategy)
	require.True(t, result.ShouldEnter)
	require.Equal(t, 2, result.TriggeredCount)
	require.Equal(t, 2, result.TotalEnabled)
	require.ElementsMatch(t, []string{core.IndicatorRSI, core.IndicatorVolume}, result.TriggeredNames())
	require.InDelta(t, 1.0, result.Strength(), 1e-9)
}

func TestEvaluator_TwoOfThreeLogic(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	strategy := &core.Strategy{
		EntryLogic: core.EntryLogicTwoOfThree,
		EntryIndicators: core.EntryIndicators{
			RSI:        core.RSIIndicator{Enabled: true, Oversold: 100},
			Volume:     core.VolumeIndicator{Enabled: true, Multiplier: 1000},
			Stochastic: core.StochasticIndicator{Enabled: true, Oversold: 100},
		},
	}

	result := evaluator.Evaluate(risingCandles(100), strategy)
	require.True(t, result.ShouldEnter)
	require.Equal(t, 2, result.TriggeredCount)
	require.Equal(t, 3, result.TotalEnabled)

	// same triggers fail the stricter threshold
	strategy.EntryLogic = core.EntryLogicThreeOfFour
	result = evaluator.Evaluate(risingCandles(100), strategy)
	require.False(t, result.ShouldEnter)
}

func TestEvaluator_RisingMarketNotOversold(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	strategy := &core.Strategy{
		EntryLogic: core.EntryLogicAny,
		EntryIndicators: core.EntryIndicators{
			RSI: core.RSIIndicator{Enabled: true},
		},
	}

	// default oversold level is never reached in a strictly rising series
	result := evaluator.Evaluate(risingCandles(100), strategy)
	require.False(t, result.ShouldEnter)
	require.Zero(t, result.TriggeredCount)
	require.Contains(t, result.IndicatorValues, core.IndicatorRSI)
}

func TestEvaluator_RecordsIndicatorValues(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	strategy := &core.Strategy{
		EntryLogic: core.EntryLogicAny,
		EntryIndicators: core.EntryIndicators{
			Volume: core.VolumeIndicator{Enabled: true, Multiplier: 0.5},
		},
	}

	result := evaluator.Evaluate(risingCandles(60), strategy)
	require.True(t, result.ShouldEnter)
	// flat volume makes the ratio exactly one
	require.InDelta(t, 1.0, result.IndicatorValues[core.IndicatorVolume], 1e-9)
}
