package order

import (
	"context"
	"testing"

	zl "github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/exchange"
	"github.com/helixtrade/momentum/logger/zerolog"
)

func testLogger() core.Logger {
	log := zl.Nop()
	return zerolog.NewAdapter(&log)
}

func newTestController(paper *exchange.Paper) *Controller {
	registry := exchange.NewRegistry()
	registry.Register("paper", paper)
	return NewController(registry, testLogger())
}

func TestController_BuyEstimatesFee(t *testing.T) {
	paper := exchange.NewPaper(exchange.WithPaperPrice("BTCUSDT", 100))
	controller := newTestController(paper)

	fill, err := controller.Buy(context.Background(), "paper", "BTCUSDT", 1000, core.Credentials{})
	require.NoError(t, err)
	require.Equal(t, 100.0, fill.Price)
	require.InDelta(t, 10.0, fill.Quantity, 1e-9)
	require.NotNil(t, fill.Fee)
	require.InDelta(t, 1.0, *fill.Fee, 1e-9) // 0.1% of 1000
}

func TestController_BuyKeepsReportedFee(t *testing.T) {
	paper := exchange.NewPaper(
		exchange.WithPaperPrice("BTCUSDT", 100),
		exchange.WithPaperFeeRate(0.002),
	)
	controller := newTestController(paper)

	fill, err := controller.Buy(context.Background(), "paper", "BTCUSDT", 1000, core.Credentials{})
	require.NoError(t, err)
	require.NotNil(t, fill.Fee)
	require.InDelta(t, 2.0, *fill.Fee, 1e-9)
}

func TestController_SellEstimatesFee(t *testing.T) {
	paper := exchange.NewPaper(exchange.WithPaperPrice("ETHUSDT", 200))
	controller := newTestController(paper)

	fill, err := controller.Sell(context.Background(), "paper", "ETHUSDT", 5, core.Credentials{})
	require.NoError(t, err)
	require.InDelta(t, 1000.0, fill.Value, 1e-9)
	require.NotNil(t, fill.Fee)
	require.InDelta(t, 1.0, *fill.Fee, 1e-9)
}

func TestController_InvalidAmounts(t *testing.T) {
	controller := newTestController(exchange.NewPaper())

	_, err := controller.Buy(context.Background(), "paper", "BTCUSDT", 0, core.Credentials{})
	require.ErrorIs(t, err, core.ErrInvalidQuoteAmount)

	_, err = controller.Sell(context.Background(), "paper", "BTCUSDT", -1, core.Credentials{})
	require.ErrorIs(t, err, core.ErrInvalidQuantity)
}

func TestController_UnsupportedExchange(t *testing.T) {
	controller := newTestController(exchange.NewPaper())

	_, err := controller.Buy(context.Background(), "kraken", "BTCUSDT", 100, core.Credentials{})
	require.ErrorIs(t, err, core.ErrUnsupportedExchange)
}

func TestController_BuyErrorNotifies(t *testing.T) {
	paper := exchange.NewPaper(exchange.WithPaperPrice("BTCUSDT", 100))
	controller := newTestController(paper)

	notifier := &fakeNotifier{}
	controller.SetNotifier(notifier)

	paper.SetOrderError(context.DeadlineExceeded)
	_, err := controller.Buy(context.Background(), "paper", "BTCUSDT", 100, core.Credentials{})
	require.Error(t, err)
	require.Len(t, notifier.errors, 1)
}

type fakeNotifier struct {
	errors []error
}

func (f *fakeNotifier) Notify(string) {}

func (f *fakeNotifier) OnPositionOpened(*core.Position) {}

func (f *fakeNotifier) OnPositionClosed(*core.Position) {}

func (f *fakeNotifier) OnError(err error) {
	f.errors = append(f.errors, err)
}
