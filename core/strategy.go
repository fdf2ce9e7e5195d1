package core

import (
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// EntryLogic is the threshold rule converting per-indicator triggers
// into a single enter/no-enter decision
type EntryLogic string

// Entry logic constants. The thresholds are fixed counts over the
// enabled indicator set, independent of how many are actually enabled;
// TWO_OF_THREE with only two enabled indicators still requires both.
const (
	EntryLogicAny         EntryLogic = "ANY_1"
	EntryLogicTwoOfThree  EntryLogic = "TWO_OF_THREE"
	EntryLogicThreeOfFour EntryLogic = "THREE_OF_FOUR"
	EntryLogicAll         EntryLogic = "ALL"
)

// Satisfied reports whether the triggered indicator count meets the rule
func (l EntryLogic) Satisfied(triggered, enabled int) bool {
	switch l {
	case EntryLogicAny:
		return triggered >= 1
	case EntryLogicTwoOfThree:
		return triggered >= 2
	case EntryLogicThreeOfFour:
		return triggered >= 3
	case EntryLogicAll:
		return enabled > 0 && triggered == enabled
	}
	return false
}

// Indicator names used in signal results and entry snapshots
const (
	IndicatorRSI        = "rsi"
	IndicatorVolume     = "volume"
	IndicatorMACD       = "macd"
	IndicatorEMA        = "ema"
	IndicatorBollinger  = "bollinger"
	IndicatorStochastic = "stochastic"
)

// RSIIndicator configures the relative strength index entry trigger
type RSIIndicator struct {
	Enabled  bool    `json:"enabled"`
	Period   int     `json:"period"`
	Oversold float64 `json:"oversold"`
}

// VolumeIndicator configures the volume-ratio entry trigger
type VolumeIndicator struct {
	Enabled    bool    `json:"enabled"`
	Period     int     `json:"period"`
	Multiplier float64 `json:"multiplier"`
}

// MACDIndicator configures the MACD crossover entry trigger
type MACDIndicator struct {
	Enabled      bool `json:"enabled"`
	FastPeriod   int  `json:"fast_period"`
	SlowPeriod   int  `json:"slow_period"`
	SignalPeriod int  `json:"signal_period"`
}

// EMAIndicator configures the EMA pair alignment entry trigger
type EMAIndicator struct {
	Enabled    bool `json:"enabled"`
	FastPeriod int  `json:"fast_period"`
	SlowPeriod int  `json:"slow_period"`
}

// BollingerIndicator configures the Bollinger %B entry trigger
type BollingerIndicator struct {
	Enabled   bool    `json:"enabled"`
	Period    int     `json:"period"`
	StdDev    float64 `json:"std_dev"`
	Threshold float64 `json:"threshold"`
}

// StochasticIndicator configures the Stochastic %K entry trigger
type StochasticIndicator struct {
	Enabled  bool    `json:"enabled"`
	KPeriod  int     `json:"k_period"`
	DPeriod  int     `json:"d_period"`
	Oversold float64 `json:"oversold"`
}

// EntryIndicators holds the per-indicator configuration of a strategy.
// Each indicator carries its own enabled flag; the enabled set is
// computed once per evaluation.
type EntryIndicators struct {
	RSI        RSIIndicator        `json:"rsi"`
	Volume     VolumeIndicator     `json:"volume"`
	MACD       MACDIndicator       `json:"macd"`
	EMA        EMAIndicator        `json:"ema"`
	Bollinger  BollingerIndicator  `json:"bollinger"`
	Stochastic StochasticIndicator `json:"stochastic"`
}

// EnabledCount returns the number of enabled indicators
func (e EntryIndicators) EnabledCount() int {
	count := 0
	for _, enabled := range []bool{
		e.RSI.Enabled,
		e.Volume.Enabled,
		e.MACD.Enabled,
		e.EMA.Enabled,
		e.Bollinger.Enabled,
		e.Stochastic.Enabled,
	} {
		if enabled {
			count++
		}
	}
	return count
}

// Strategy is a user-configured momentum rule set bound to one exchange
// and one asset universe. Strategies are read-only to the automation
// core; creation and editing belong to the strategy CRUD surface.
type Strategy struct {
	ID       int64  `db:"id" json:"id" gorm:"primaryKey,autoIncrement"`
	UserID   int64  `db:"user_id" json:"user_id"`
	Exchange string `db:"exchange" json:"exchange"`
	Name     string `db:"name" json:"name"`

	Assets    []string `db:"assets" json:"assets" gorm:"serializer:json"`
	Quote     string   `db:"quote" json:"quote"`
	Timeframe string   `db:"timeframe" json:"timeframe"`

	EntryIndicators EntryIndicators `db:"entry_indicators" json:"entry_indicators" gorm:"serializer:json"`
	EntryLogic      EntryLogic      `db:"entry_logic" json:"entry_logic"`

	MaxTradeAmountQuote float64 `db:"max_trade_amount_quote" json:"max_trade_amount_quote"`
	MaxOpenPositions    int     `db:"max_open_positions" json:"max_open_positions"`

	StopLossPercent   float64 `db:"stop_loss_percent" json:"stop_loss_percent"`
	TakeProfitPercent float64 `db:"take_profit_percent" json:"take_profit_percent"`
	MaxHoldDuration   string  `db:"max_hold_duration" json:"max_hold_duration"`

	IsActive bool `db:"is_active" json:"is_active"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Pair returns the trading pair symbol for one of the strategy's assets
func (s *Strategy) Pair(asset string) string {
	return strings.ToUpper(asset + s.Quote)
}

// HoldDuration parses the configured maximum holding time.
// An empty value means the max-hold exit rule is disabled.
func (s *Strategy) HoldDuration() (time.Duration, error) {
	if s.MaxHoldDuration == "" {
		return 0, nil
	}
	return str2duration.ParseDuration(s.MaxHoldDuration)
}
