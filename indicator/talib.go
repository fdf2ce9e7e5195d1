// Package indicator exposes the technical indicators used for entry
// signal evaluation as thin wrappers over go-talib.
package indicator

import "github.com/markcheno/go-talib"

// MaType represents moving average type
type MaType = talib.MaType

// Moving average type constants
const (
	TypeSMA = talib.SMA // Simple Moving Average
	TypeEMA = talib.EMA // Exponential Moving Average
)

// RSI calculates the Relative Strength Index
func RSI(input []float64, period int) []float64 {
	return talib.Rsi(input, period)
}

// EMA calculates Exponential Moving Average
func EMA(input []float64, period int) []float64 {
	return talib.Ema(input, period)
}

// SMA calculates Simple Moving Average
func SMA(input []float64, period int) []float64 {
	return talib.Sma(input, period)
}

// MACD calculates Moving Average Convergence/Divergence
// Returns MACD line, signal line, and histogram
func MACD(input []float64, fastPeriod, slowPeriod, signalPeriod int) ([]float64, []float64, []float64) {
	return talib.Macd(input, fastPeriod, slowPeriod, signalPeriod)
}

// BB calculates Bollinger Bands
// Returns upper, middle, and lower bands
func BB(input []float64, period int, deviation float64, maType MaType) ([]float64, []float64, []float64) {
	return talib.BBands(input, period, deviation, deviation, maType)
}

// Stoch calculates the Stochastic oscillator
// Returns slow %K and slow %D
func Stoch(high, low, close []float64, fastKPeriod, slowKPeriod int, slowKMaType MaType,
	slowDPeriod int, slowDMaType MaType) ([]float64, []float64) {
	return talib.Stoch(high, low, close, fastKPeriod, slowKPeriod, slowKMaType, slowDPeriod, slowDMaType)
}
