package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helixtrade/momentum/core"
)

func TestSplitAssetQuote(t *testing.T) {
	tt := []struct {
		pair  string
		asset string
		quote string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHBTC", "ETH", "BTC"},
		{"SOLBUSD", "SOL", "BUSD"},
		{"DOGEEUR", "DOGE", "EUR"},
		{"ABCXYZ", "ABC", "XYZ"}, // unknown quote falls back to a half split
	}

	for _, tc := range tt {
		t.Run(tc.pair, func(t *testing.T) {
			asset, quote := SplitAssetQuote(tc.pair)
			require.Equal(t, tc.asset, asset)
			require.Equal(t, tc.quote, quote)
		})
	}
}

func TestFormatPair(t *testing.T) {
	require.Equal(t, "BTCUSDT", FormatPair("btc", "usdt"))
}

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry()
	paper := NewPaper()
	registry.Register("Paper", paper)

	adapter, err := registry.Exchange("paper")
	require.NoError(t, err)
	require.Equal(t, paper, adapter)

	adapter, err = registry.Exchange("PAPER")
	require.NoError(t, err)
	require.Equal(t, paper, adapter)

	_, err = registry.Exchange("kraken")
	require.ErrorIs(t, err, core.ErrUnsupportedExchange)
	require.Contains(t, err.Error(), "kraken")
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	registry.Register("binance", NewPaper())
	registry.Register("paper", NewPaper())

	require.Equal(t, []string{"binance", "paper"}, registry.Names())
}

func TestPaper_BuySell(t *testing.T) {
	paper := NewPaper(WithPaperPrice("BTCUSDT", 200))
	ctx := context.Background()

	buy, err := paper.Buy(ctx, "BTCUSDT", 1000, core.Credentials{})
	require.NoError(t, err)
	require.Equal(t, 200.0, buy.Price)
	require.InDelta(t, 5.0, buy.Quantity, 1e-9)
	require.Nil(t, buy.Fee)

	sell, err := paper.Sell(ctx, "BTCUSDT", 5, core.Credentials{})
	require.NoError(t, err)
	require.InDelta(t, 1000.0, sell.Value, 1e-9)

	orders := paper.Orders()
	require.Len(t, orders, 2)
	require.Equal(t, "BUY", orders[0].Side)
	require.Equal(t, "SELL", orders[1].Side)
	require.NotEqual(t, orders[0].OrderID, orders[1].OrderID)
}

func TestPaper_CandlesByLimit(t *testing.T) {
	candles := make([]core.Candle, 80)
	for i := range candles {
		candles[i] = core.Candle{Close: float64(i)}
	}
	paper := NewPaper(WithPaperCandles("BTCUSDT", candles))

	got, err := paper.CandlesByLimit(context.Background(), "BTCUSDT", "1h", 50, core.Credentials{})
	require.NoError(t, err)
	require.Len(t, got, 50)
	require.Equal(t, 79.0, got[len(got)-1].Close)
	require.Equal(t, 1, paper.CandleRequests())

	_, err = paper.CandlesByLimit(context.Background(), "ETHUSDT", "1h", 50, core.Credentials{})
	require.Error(t, err)
}
