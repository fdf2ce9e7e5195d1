// Package signal implements the entry-signal decision service: it
// combines the enabled indicators' trigger states for one asset's
// candle series into a single SignalResult per the strategy's entry
// logic.
package signal

import (
	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/indicator"
)

// MinimumCandles is the minimum candle count required before any
// indicator is computed. Series shorter than this yield no signal and
// the asset is silently skipped for the cycle.
const MinimumCandles = 50

// Default indicator parameters, applied when a strategy leaves them zero
const (
	defaultRSIPeriod       = 14
	defaultRSIOversold     = 30.0
	defaultVolumePeriod    = 20
	defaultVolumeRatio     = 1.5
	defaultMACDFast        = 12
	defaultMACDSlow        = 26
	defaultMACDSignal      = 9
	defaultEMAFast         = 9
	defaultEMASlow         = 21
	defaultBollingerPeriod = 20
	defaultBollingerStdDev = 2.0
	defaultBollingerLevel  = 0.2
	defaultStochKPeriod    = 14
	defaultStochDPeriod    = 3
	defaultStochOversold   = 20.0
)

// Evaluator computes entry signals from candle series
type Evaluator struct {
	log core.Logger
}

// NewEvaluator creates a new signal evaluator
func NewEvaluator(log core.Logger) *Evaluator {
	return &Evaluator{log: log}
}

// Evaluate computes every enabled indicator for the candle series and
// applies the strategy's entry logic. Insufficient candle data yields
// ShouldEnter=false without computing any indicator.
func (e *Evaluator) Evaluate(candles []core.Candle, strategy *core.Strategy) core.SignalResult {
	cfg := strategy.EntryIndicators

	result := core.SignalResult{
		TotalEnabled:    cfg.EnabledCount(),
		IndicatorValues: make(map[string]float64),
	}

	if result.TotalEnabled == 0 {
		return result
	}

	if len(candles) < MinimumCandles {
		e.log.WithFields(map[string]any{
			"strategy": strategy.ID,
			"candles":  len(candles),
			"required": MinimumCandles,
		}).Debug("insufficient candle data, skipping asset")
		return result
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, candle := range candles {
		closes[i] = candle.Close
		highs[i] = candle.High
		lows[i] = candle.Low
		volumes[i] = candle.Volume
	}

	if cfg.RSI.Enabled {
		value, triggered := evaluateRSI(closes, cfg.RSI)
		record(&result, core.IndicatorRSI, value, triggered)
	}

	if cfg.Volume.Enabled {
		value, triggered := evaluateVolume(volumes, cfg.Volume)
		record(&result, core.IndicatorVolume, value, triggered)
	}

	if cfg.MACD.Enabled {
		value, triggered := evaluateMACD(closes, cfg.MACD)
		record(&result, core.IndicatorMACD, value, triggered)
	}

	if cfg.EMA.Enabled {
		value, triggered := evaluateEMA(closes, cfg.EMA)
		record(&result, core.IndicatorEMA, value, triggered)
	}

	if cfg.Bollinger.Enabled {
		value, triggered := evaluateBollinger(closes, cfg.Bollinger)
		record(&result, core.IndicatorBollinger, value, triggered)
	}

	if cfg.Stochastic.Enabled {
		value, triggered := evaluateStochastic(highs, lows, closes, cfg.Stochastic)
		record(&result, core.IndicatorStochastic, value, triggered)
	}

	result.ShouldEnter = strategy.EntryLogic.Satisfied(result.TriggeredCount, result.TotalEnabled)
	return result
}

// record stores the raw indicator value and, when triggered, adds the
// indicator to the triggered list
func record(result *core.SignalResult, name string, value float64, triggered bool) {
	result.IndicatorValues[name] = value
	if triggered {
		result.TriggeredCount++
		result.TriggeredIndicators = append(result.TriggeredIndicators, core.TriggeredIndicator{
			Name:  name,
			Value: value,
		})
	}
}

// evaluateRSI triggers when the RSI is at or below the oversold level
func evaluateRSI(closes []float64, cfg core.RSIIndicator) (float64, bool) {
	period := intOrDefault(cfg.Period, defaultRSIPeriod)
	oversold := floatOrDefault(cfg.Oversold, defaultRSIOversold)

	values := indicator.RSI(closes, period)
	last := values[len(values)-1]
	return last, last <= oversold
}

// evaluateVolume triggers when the last candle's volume exceeds the
// configured multiple of its recent average. The recorded value is the
// ratio itself.
func evaluateVolume(volumes []float64, cfg core.VolumeIndicator) (float64, bool) {
	period := intOrDefault(cfg.Period, defaultVolumePeriod)
	multiplier := floatOrDefault(cfg.Multiplier, defaultVolumeRatio)

	average := indicator.SMA(volumes, period)
	lastAverage := average[len(average)-1]
	if lastAverage == 0 {
		return 0, false
	}

	ratio := volumes[len(volumes)-1] / lastAverage
	return ratio, ratio >= multiplier
}

// evaluateMACD triggers on a bullish crossover: the MACD line closed
// above the signal line after being at or below it on the previous
// candle. The recorded value is the last histogram reading.
func evaluateMACD(closes []float64, cfg core.MACDIndicator) (float64, bool) {
	fast := intOrDefault(cfg.FastPeriod, defaultMACDFast)
	slow := intOrDefault(cfg.SlowPeriod, defaultMACDSlow)
	signalPeriod := intOrDefault(cfg.SignalPeriod, defaultMACDSignal)

	macd, signalLine, histogram := indicator.MACD(closes, fast, slow, signalPeriod)
	last := len(macd) - 1
	if last < 1 {
		return 0, false
	}

	crossed := macd[last] > signalLine[last] && macd[last-1] <= signalLine[last-1]
	return histogram[last], crossed
}

// evaluateEMA triggers while the fast EMA sits above the slow EMA.
// The recorded value is the spread in percent of the slow EMA.
func evaluateEMA(closes []float64, cfg core.EMAIndicator) (float64, bool) {
	fast := intOrDefault(cfg.FastPeriod, defaultEMAFast)
	slow := intOrDefault(cfg.SlowPeriod, defaultEMASlow)

	fastValues := indicator.EMA(closes, fast)
	slowValues := indicator.EMA(closes, slow)

	lastFast := fastValues[len(fastValues)-1]
	lastSlow := slowValues[len(slowValues)-1]
	if lastSlow == 0 {
		return 0, false
	}

	spread := (lastFast - lastSlow) / lastSlow * 100
	return spread, lastFast > lastSlow
}

// evaluateBollinger triggers when %B is at or below the configured
// threshold, i.e. the close sits near or below the lower band
func evaluateBollinger(closes []float64, cfg core.BollingerIndicator) (float64, bool) {
	period := intOrDefault(cfg.Period, defaultBollingerPeriod)
	deviation := floatOrDefault(cfg.StdDev, defaultBollingerStdDev)
	threshold := floatOrDefault(cfg.Threshold, defaultBollingerLevel)

	upper, _, lower := indicator.BB(closes, period, deviation, indicator.TypeSMA)
	last := len(closes) - 1

	width := upper[last] - lower[last]
	if width == 0 {
		return 0, false
	}

	percentB := (closes[last] - lower[last]) / width
	return percentB, percentB <= threshold
}

// evaluateStochastic triggers when the slow %K is at or below the
// oversold level
func evaluateStochastic(highs, lows, closes []float64, cfg core.StochasticIndicator) (float64, bool) {
	kPeriod := intOrDefault(cfg.KPeriod, defaultStochKPeriod)
	dPeriod := intOrDefault(cfg.DPeriod, defaultStochDPeriod)
	oversold := floatOrDefault(cfg.Oversold, defaultStochOversold)

	slowK, _ := indicator.Stoch(highs, lows, closes, kPeriod, dPeriod, indicator.TypeSMA, dPeriod, indicator.TypeSMA)
	last := slowK[len(slowK)-1]
	return last, last <= oversold
}

func intOrDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func floatOrDefault(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
}
