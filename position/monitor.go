// Package position monitors open positions against their strategies'
// risk-exit rules and closes the ones that hit an exit condition.
package position

import (
	"context"
	"fmt"
	"time"

	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/exchange"
	"github.com/helixtrade/momentum/order"
)

// Monitor evaluates exit conditions for open positions and executes
// the close. Exit rules are checked in fixed priority order: stop-loss
// first, then take-profit, then max-hold-time; only the first match
// closes the position.
type Monitor struct {
	strategies core.StrategyStore
	positions  core.PositionStore
	exchanges  *exchange.Registry
	orders     *order.Controller
	log        core.Logger
	notifier   core.Notifier

	now func() time.Time
}

// NewMonitor creates a new position monitor
func NewMonitor(
	strategies core.StrategyStore,
	positions core.PositionStore,
	exchanges *exchange.Registry,
	orders *order.Controller,
	log core.Logger,
) *Monitor {
	return &Monitor{
		strategies: strategies,
		positions:  positions,
		exchanges:  exchanges,
		orders:     orders,
		log:        log,
		now:        time.Now,
	}
}

// SetNotifier configures a notifier for closed positions
func (m *Monitor) SetNotifier(notifier core.Notifier) {
	m.notifier = notifier
}

// SetClock overrides the time source, for tests
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// MonitorPositions evaluates every OPEN position under the given user
// and exchange and closes the ones whose exit condition matched.
// Per-position failures (price fetch, sell) are logged and skipped;
// a failed sell leaves the position OPEN for the next cycle.
func (m *Monitor) MonitorPositions(ctx context.Context, userID int64, exchangeName string,
	credentials core.Credentials) ([]*core.Position, error) {

	adapter, err := m.exchanges.Exchange(exchangeName)
	if err != nil {
		return nil, err
	}

	open, err := m.positions.Positions(ctx,
		core.WithStatus(core.PositionStatusOpen),
		core.WithUser(userID),
		core.WithExchange(exchangeName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open positions: %w", err)
	}

	closed := make([]*core.Position, 0)
	for _, position := range open {
		log := m.log.WithFields(map[string]any{
			"position": position.ID,
			"pair":     position.Pair,
			"exchange": exchangeName,
		})

		strategy, err := m.strategies.Strategy(ctx, position.StrategyID)
		if err != nil {
			log.WithError(err).Error("failed to load strategy for open position")
			continue
		}

		price, err := adapter.LastQuote(ctx, position.Pair, credentials)
		if err != nil {
			log.WithError(err).Error("failed to fetch current price")
			continue
		}

		reason, matched := m.evaluateExit(position, strategy, price)
		if !matched {
			continue
		}

		if err := m.Close(ctx, position, reason, credentials); err != nil {
			log.WithError(err).Error("failed to close position, will retry next cycle")
			continue
		}

		closed = append(closed, position)
	}

	return closed, nil
}

// evaluateExit checks the exit rules in priority order and returns the
// first reason that matches
func (m *Monitor) evaluateExit(position *core.Position, strategy *core.Strategy,
	currentPrice float64) (core.ExitReason, bool) {

	profit := position.ProfitPercent(currentPrice)

	if strategy.StopLossPercent > 0 && profit <= -strategy.StopLossPercent {
		return core.ExitReasonStopLoss, true
	}

	if strategy.TakeProfitPercent > 0 && profit >= strategy.TakeProfitPercent {
		return core.ExitReasonTakeProfit, true
	}

	holdLimit, err := strategy.HoldDuration()
	if err != nil {
		m.log.WithField("strategy", strategy.ID).WithError(err).
			Error("invalid max hold duration, skipping max-hold exit")
		return "", false
	}

	if holdLimit > 0 && position.HoldingTime(m.now()) >= holdLimit {
		return core.ExitReasonMaxHoldTime, true
	}

	return "", false
}

// Close sells the position's full entry quantity and persists it as
// CLOSED with the fee-aware PnL snapshot. A sell failure leaves the
// position untouched.
func (m *Monitor) Close(ctx context.Context, position *core.Position, reason core.ExitReason,
	credentials core.Credentials) error {

	if !position.IsOpen() {
		return core.ErrPositionAlreadyComplete
	}

	fill, err := m.orders.Sell(ctx, position.Exchange, position.Pair, position.EntryQuantity, credentials)
	if err != nil {
		return err
	}

	exitValue := fill.Price * fill.Quantity
	exitFee := fill.FeeOrZero()
	netPnL := (exitValue - exitFee) - (position.EntryValueQuote + position.EntryFee)

	netPnLPercent := 0.0
	if position.EntryValueQuote > 0 {
		netPnLPercent = netPnL / position.EntryValueQuote * 100
	}

	exitTime := m.now()

	position.Status = core.PositionStatusClosed
	position.ExitPrice = &fill.Price
	position.ExitQuantity = &fill.Quantity
	position.ExitFee = &exitFee
	position.ExitReason = reason
	position.ExitPnLQuote = &netPnL
	position.ExitPnLPercent = &netPnLPercent
	position.ExitOrderID = fill.OrderID
	position.ExitTime = &exitTime

	if err := m.positions.UpdatePosition(ctx, position); err != nil {
		return fmt.Errorf("position sold but close not persisted: %w", err)
	}

	m.log.Infof("[POSITION CLOSED] %s", position)
	if m.notifier != nil {
		m.notifier.OnPositionClosed(position)
	}

	return nil
}
