package position

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	zl "github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/exchange"
	"github.com/helixtrade/momentum/logger/zerolog"
	"github.com/helixtrade/momentum/order"
)

func testLogger() core.Logger {
	log := zl.Nop()
	return zerolog.NewAdapter(&log)
}

type fakeStrategies struct {
	byID map[int64]*core.Strategy
}

func (f *fakeStrategies) ListActive(context.Context) ([]*core.Strategy, error) {
	strategies := make([]*core.Strategy, 0, len(f.byID))
	for _, strategy := range f.byID {
		strategies = append(strategies, strategy)
	}
	return strategies, nil
}

func (f *fakeStrategies) Strategy(_ context.Context, id int64) (*core.Strategy, error) {
	strategy, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrStrategyNotFound, id)
	}
	return strategy, nil
}

type fakePositions struct {
	items     []*core.Position
	updateErr error
}

func (f *fakePositions) CreatePosition(_ context.Context, position *core.Position) error {
	position.ID = int64(len(f.items) + 1)
	f.items = append(f.items, position)
	return nil
}

func (f *fakePositions) UpdatePosition(_ context.Context, position *core.Position) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, existing := range f.items {
		if existing.ID == position.ID {
			f.items[i] = position
			return nil
		}
	}
	return core.ErrPositionNotFound
}

func (f *fakePositions) Positions(_ context.Context, filters ...core.PositionFilter) ([]*core.Position, error) {
	result := make([]*core.Position, 0)
	for _, position := range f.items {
		match := true
		for _, filter := range filters {
			if !filter(*position) {
				match = false
				break
			}
		}
		if match {
			result = append(result, position)
		}
	}
	return result, nil
}

func (f *fakePositions) CountOpen(ctx context.Context, strategyID int64) (int, error) {
	open, err := f.Positions(ctx,
		core.WithStatus(core.PositionStatusOpen),
		core.WithStrategy(strategyID),
	)
	if err != nil {
		return 0, err
	}
	return len(open), nil
}

type monitorFixture struct {
	monitor    *Monitor
	paper      *exchange.Paper
	positions  *fakePositions
	strategies *fakeStrategies
}

func newMonitorFixture(strategy *core.Strategy, feeRate float64) *monitorFixture {
	paper := exchange.NewPaper(exchange.WithPaperFeeRate(feeRate))
	registry := exchange.NewRegistry()
	registry.Register("paper", paper)

	strategies := &fakeStrategies{byID: map[int64]*core.Strategy{strategy.ID: strategy}}
	positions := &fakePositions{}
	orders := order.NewController(registry, testLogger())
	monitor := NewMonitor(strategies, positions, registry, orders, testLogger())

	return &monitorFixture{
		monitor:    monitor,
		paper:      paper,
		positions:  positions,
		strategies: strategies,
	}
}

func openPosition(f *monitorFixture, strategy *core.Strategy, entryTime time.Time) *core.Position {
	position := &core.Position{
		StrategyID:      strategy.ID,
		UserID:          strategy.UserID,
		Exchange:        "paper",
		Asset:           "BTC",
		Pair:            "BTCUSDT",
		Status:          core.PositionStatusOpen,
		EntryPrice:      100,
		EntryQuantity:   10,
		EntryValueQuote: 1000,
		EntryFee:        1,
		EntryTime:       entryTime,
	}
	_ = f.positions.CreatePosition(context.Background(), position)
	return position
}

func testStrategy() *core.Strategy {
	return &core.Strategy{
		ID:                1,
		UserID:            42,
		Exchange:          "paper",
		Quote:             "USDT",
		StopLossPercent:   5,
		TakeProfitPercent: 5,
		MaxHoldDuration:   "24h",
	}
}

func TestMonitor_TakeProfit(t *testing.T) {
	strategy := testStrategy()
	fixture := newMonitorFixture(strategy, 0.001)
	position := openPosition(fixture, strategy, time.Now())
	fixture.paper.SetPrice("BTCUSDT", 105)

	closed, err := fixture.monitor.MonitorPositions(context.Background(), 42, "paper", core.Credentials{})
	require.NoError(t, err)
	require.Len(t, closed, 1)

	require.Equal(t, core.PositionStatusClosed, position.Status)
	require.Equal(t, core.ExitReasonTakeProfit, position.ExitReason)
	require.NotNil(t, position.ExitPrice)
	require.Equal(t, 105.0, *position.ExitPrice)

	// (1050 - 1.05) - (1000 + 1) = 47.95
	require.NotNil(t, position.ExitPnLQuote)
	require.InDelta(t, 47.95, *position.ExitPnLQuote, 1e-9)
	require.NotNil(t, position.ExitPnLPercent)
	require.InDelta(t, 4.795, *position.ExitPnLPercent, 1e-9)
}

func TestMonitor_StopLoss(t *testing.T) {
	strategy := testStrategy()
	fixture := newMonitorFixture(strategy, 0.001)
	position := openPosition(fixture, strategy, time.Now())
	fixture.paper.SetPrice("BTCUSDT", 94)

	closed, err := fixture.monitor.MonitorPositions(context.Background(), 42, "paper", core.Credentials{})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, core.ExitReasonStopLoss, position.ExitReason)
	require.NotNil(t, position.ExitPnLQuote)
	require.Less(t, *position.ExitPnLQuote, 0.0)
}

func TestMonitor_MaxHoldTime(t *testing.T) {
	strategy := testStrategy()
	fixture := newMonitorFixture(strategy, 0.001)
	entry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	position := openPosition(fixture, strategy, entry)
	fixture.paper.SetPrice("BTCUSDT", 101)
	fixture.monitor.SetClock(func() time.Time { return entry.Add(48 * time.Hour) })

	closed, err := fixture.monitor.MonitorPositions(context.Background(), 42, "paper", core.Credentials{})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, core.ExitReasonMaxHoldTime, position.ExitReason)
}

func TestMonitor_TakeProfitBeatsMaxHold(t *testing.T) {
	strategy := testStrategy()
	fixture := newMonitorFixture(strategy, 0.001)
	entry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	position := openPosition(fixture, strategy, entry)
	fixture.paper.SetPrice("BTCUSDT", 110)
	fixture.monitor.SetClock(func() time.Time { return entry.Add(48 * time.Hour) })

	closed, err := fixture.monitor.MonitorPositions(context.Background(), 42, "paper", core.Credentials{})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, core.ExitReasonTakeProfit, position.ExitReason)
}

func TestMonitor_NoExit(t *testing.T) {
	strategy := testStrategy()
	fixture := newMonitorFixture(strategy, 0.001)
	position := openPosition(fixture, strategy, time.Now())
	fixture.paper.SetPrice("BTCUSDT", 101)

	closed, err := fixture.monitor.MonitorPositions(context.Background(), 42, "paper", core.Credentials{})
	require.NoError(t, err)
	require.Empty(t, closed)
	require.True(t, position.IsOpen())
}

func TestMonitor_SellFailureLeavesOpen(t *testing.T) {
	strategy := testStrategy()
	fixture := newMonitorFixture(strategy, 0.001)
	position := openPosition(fixture, strategy, time.Now())
	fixture.paper.SetPrice("BTCUSDT", 110)
	fixture.paper.SetOrderError(errors.New("exchange rejected order"))

	closed, err := fixture.monitor.MonitorPositions(context.Background(), 42, "paper", core.Credentials{})
	require.NoError(t, err)
	require.Empty(t, closed)
	require.True(t, position.IsOpen())
	require.Nil(t, position.ExitPrice)

	// the next cycle retries and succeeds
	fixture.paper.SetOrderError(nil)
	closed, err = fixture.monitor.MonitorPositions(context.Background(), 42, "paper", core.Credentials{})
	require.NoError(t, err)
	require.Len(t, closed, 1)
}

func TestMonitor_ManualClose(t *testing.T) {
	strategy := testStrategy()
	fixture := newMonitorFixture(strategy, 0.001)
	position := openPosition(fixture, strategy, time.Now())
	fixture.paper.SetPrice("BTCUSDT", 100)

	err := fixture.monitor.Close(context.Background(), position, core.ExitReasonManual, core.Credentials{})
	require.NoError(t, err)
	require.Equal(t, core.ExitReasonManual, position.ExitReason)

	err = fixture.monitor.Close(context.Background(), position, core.ExitReasonManual, core.Credentials{})
	require.ErrorIs(t, err, core.ErrPositionAlreadyComplete)
}

func TestMonitor_MissingStrategySkipsPosition(t *testing.T) {
	strategy := testStrategy()
	fixture := newMonitorFixture(strategy, 0.001)
	position := openPosition(fixture, strategy, time.Now())
	position.StrategyID = 99
	fixture.paper.SetPrice("BTCUSDT", 110)

	closed, err := fixture.monitor.MonitorPositions(context.Background(), 42, "paper", core.Credentials{})
	require.NoError(t, err)
	require.Empty(t, closed)
	require.True(t, position.IsOpen())
}
