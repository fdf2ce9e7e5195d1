package core

import (
	"fmt"
	"time"
)

// PositionStatus represents the lifecycle state of a position
type PositionStatus string

// Position lifecycle states. The transition is one-way: a position is
// created OPEN and mutated exactly once to CLOSED.
const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// ExitReason is the risk rule that closed a position
type ExitReason string

// Exit reason constants
const (
	ExitReasonStopLoss    ExitReason = "STOP_LOSS"
	ExitReasonTakeProfit  ExitReason = "TAKE_PROFIT"
	ExitReasonMaxHoldTime ExitReason = "MAX_HOLD_TIME"
	ExitReasonManual      ExitReason = "MANUAL"
)

// Position is one open-to-close trade lifecycle instance created by a
// strategy. Exit fields are nil until the position is closed. Positions
// are never deleted; the closed record is the audit trail.
type Position struct {
	ID         int64  `db:"id" json:"id" gorm:"primaryKey,autoIncrement"`
	StrategyID int64  `db:"strategy_id" json:"strategy_id"`
	UserID     int64  `db:"user_id" json:"user_id"`
	Exchange   string `db:"exchange" json:"exchange"`
	Asset      string `db:"asset" json:"asset"`
	Pair       string `db:"pair" json:"pair"`

	Status PositionStatus `db:"status" json:"status"`

	EntryPrice      float64   `db:"entry_price" json:"entry_price"`
	EntryQuantity   float64   `db:"entry_quantity" json:"entry_quantity"`
	EntryValueQuote float64   `db:"entry_value_quote" json:"entry_value_quote"`
	EntryFee        float64   `db:"entry_fee" json:"entry_fee"`
	EntrySignals    []string  `db:"entry_signals" json:"entry_signals" gorm:"serializer:json"`
	EntryOrderID    string    `db:"entry_order_id" json:"entry_order_id"`
	EntryTime       time.Time `db:"entry_time" json:"entry_time"`

	ExitPrice      *float64   `db:"exit_price" json:"exit_price"`
	ExitQuantity   *float64   `db:"exit_quantity" json:"exit_quantity"`
	ExitFee        *float64   `db:"exit_fee" json:"exit_fee"`
	ExitReason     ExitReason `db:"exit_reason" json:"exit_reason"`
	ExitPnLQuote   *float64   `db:"exit_pnl_quote" json:"exit_pnl_quote"`
	ExitPnLPercent *float64   `db:"exit_pnl_percent" json:"exit_pnl_percent"`
	ExitOrderID    string     `db:"exit_order_id" json:"exit_order_id"`
	ExitTime       *time.Time `db:"exit_time" json:"exit_time"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsOpen returns true while the position has not been closed
func (p Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// ProfitPercent returns the unrealized profit at the given price,
// relative to the entry price, in percent
func (p Position) ProfitPercent(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (currentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// HoldingTime returns how long the position has been open at the given time
func (p Position) HoldingTime(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

// String returns a human-readable representation of the position
func (p Position) String() string {
	if p.Status == PositionStatusClosed && p.ExitPnLQuote != nil {
		return fmt.Sprintf("[%s] %s | ID: %d, entry: %f x $%f, exit: %s, pnl: %.4f",
			p.Status, p.Pair, p.ID, p.EntryQuantity, p.EntryPrice, p.ExitReason, *p.ExitPnLQuote)
	}
	return fmt.Sprintf("[%s] %s | ID: %d, entry: %f x $%f (~$%.2f)",
		p.Status, p.Pair, p.ID, p.EntryQuantity, p.EntryPrice, p.EntryValueQuote)
}
