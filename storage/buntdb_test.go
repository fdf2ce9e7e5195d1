package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helixtrade/momentum/core"
)

func newPosition(strategyID int64, pair string, status core.PositionStatus) *core.Position {
	return &core.Position{
		StrategyID:      strategyID,
		UserID:          42,
		Exchange:        "binance",
		Asset:           pair[:3],
		Pair:            pair,
		Status:          status,
		EntryPrice:      100,
		EntryQuantity:   1,
		EntryValueQuote: 100,
		EntryTime:       time.Now(),
	}
}

func TestBuntPositionStore_CreateAssignsID(t *testing.T) {
	store, err := NewFromMemory()
	require.NoError(t, err)
	defer store.Close()

	position := newPosition(1, "BTCUSDT", core.PositionStatusOpen)
	require.NoError(t, store.CreatePosition(context.Background(), position))
	require.NotZero(t, position.ID)

	second := newPosition(1, "ETHUSDT", core.PositionStatusOpen)
	require.NoError(t, store.CreatePosition(context.Background(), second))
	require.NotEqual(t, position.ID, second.ID)
}

func TestBuntPositionStore_Update(t *testing.T) {
	store, err := NewFromMemory()
	require.NoError(t, err)
	defer store.Close()

	position := newPosition(1, "BTCUSDT", core.PositionStatusOpen)
	require.NoError(t, store.CreatePosition(context.Background(), position))

	exitPrice := 105.0
	position.Status = core.PositionStatusClosed
	position.ExitPrice = &exitPrice
	position.ExitReason = core.ExitReasonTakeProfit
	require.NoError(t, store.UpdatePosition(context.Background(), position))

	stored, err := store.Positions(context.Background(), core.WithPair("BTCUSDT"))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, core.PositionStatusClosed, stored[0].Status)
	require.NotNil(t, stored[0].ExitPrice)
	require.Equal(t, 105.0, *stored[0].ExitPrice)
	require.Equal(t, core.ExitReasonTakeProfit, stored[0].ExitReason)
}

func TestBuntPositionStore_UpdateMissing(t *testing.T) {
	store, err := NewFromMemory()
	require.NoError(t, err)
	defer store.Close()

	position := newPosition(1, "BTCUSDT", core.PositionStatusOpen)
	position.ID = 999
	err = store.UpdatePosition(context.Background(), position)
	require.ErrorIs(t, err, core.ErrPositionNotFound)
}

func TestBuntPositionStore_Filters(t *testing.T) {
	store, err := NewFromMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.CreatePosition(ctx, newPosition(1, "BTCUSDT", core.PositionStatusOpen)))
	require.NoError(t, store.CreatePosition(ctx, newPosition(1, "ETHUSDT", core.PositionStatusClosed)))
	require.NoError(t, store.CreatePosition(ctx, newPosition(2, "SOLUSDT", core.PositionStatusOpen)))

	all, err := store.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	open, err := store.Positions(ctx, core.WithStatus(core.PositionStatusOpen))
	require.NoError(t, err)
	require.Len(t, open, 2)

	strategyOne, err := store.Positions(ctx,
		core.WithStatus(core.PositionStatusOpen),
		core.WithStrategy(1),
	)
	require.NoError(t, err)
	require.Len(t, strategyOne, 1)
	require.Equal(t, "BTCUSDT", strategyOne[0].Pair)
}

func TestBuntPositionStore_CountOpen(t *testing.T) {
	store, err := NewFromMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.CreatePosition(ctx, newPosition(1, "BTCUSDT", core.PositionStatusOpen)))
	require.NoError(t, store.CreatePosition(ctx, newPosition(1, "ETHUSDT", core.PositionStatusClosed)))

	count, err := store.CountOpen(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = store.CountOpen(ctx, 2)
	require.NoError(t, err)
	require.Zero(t, count)
}
