// Package binance implements the exchange adapter contract for the
// Binance spot market.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"

	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/exchange"
)

const fetchAttempts = 3

// Exchange is the Binance spot adapter. Clients are built per call
// from the credentials supplied by the caller, so one adapter serves
// every user trading on Binance.
type Exchange struct {
	log        core.Logger
	useTestnet bool

	mu         sync.RWMutex
	precisions map[string]int
}

// Option configures a Binance adapter
type Option func(*Exchange)

// WithTestnet points the adapter at the Binance spot testnet
func WithTestnet() Option {
	return func(e *Exchange) {
		e.useTestnet = true
	}
}

// New creates a Binance spot adapter
func New(log core.Logger, options ...Option) *Exchange {
	adapter := &Exchange{
		log:        log,
		precisions: make(map[string]int),
	}

	for _, option := range options {
		option(adapter)
	}

	if adapter.useTestnet {
		binance.UseTestnet = true
	}

	return adapter
}

func (e *Exchange) client(credentials core.Credentials) *binance.Client {
	return binance.NewClient(credentials.APIKey, credentials.APISecret)
}

// CandlesByLimit implements core.Feeder. The incomplete trailing candle
// is dropped, so callers always see closed candles only.
func (e *Exchange) CandlesByLimit(ctx context.Context, pair, timeframe string, limit int,
	credentials core.Credentials) ([]core.Candle, error) {

	var klines []*binance.Kline
	err := e.withRetry(ctx, func() error {
		var fetchErr error
		klines, fetchErr = e.client(credentials).NewKlinesService().
			Symbol(pair).
			Interval(timeframe).
			Limit(limit + 1).
			Do(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", pair, err)
	}

	candles := make([]core.Candle, 0, len(klines))
	for i, kline := range klines {
		// The last kline is still forming
		if i == len(klines)-1 {
			break
		}
		candles = append(candles, convertKline(pair, kline))
	}

	return candles, nil
}

// LastQuote implements core.Feeder
func (e *Exchange) LastQuote(ctx context.Context, pair string, credentials core.Credentials) (float64, error) {
	var prices []*binance.SymbolPrice
	err := e.withRetry(ctx, func() error {
		var fetchErr error
		prices, fetchErr = e.client(credentials).NewListPricesService().
			Symbol(pair).
			Do(ctx)
		return fetchErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price for %s: %w", pair, err)
	}

	if len(prices) == 0 {
		return 0, fmt.Errorf("no price returned for %s", pair)
	}

	return strconv.ParseFloat(prices[0].Price, 64)
}

// Buy implements core.Broker with a quote-sized market order
func (e *Exchange) Buy(ctx context.Context, pair string, quoteAmount float64,
	credentials core.Credentials) (core.Fill, error) {

	if quoteAmount <= 0 {
		return core.Fill{}, core.ErrInvalidQuoteAmount
	}

	response, err := e.client(credentials).NewCreateOrderService().
		Symbol(pair).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(strconv.FormatFloat(quoteAmount, 'f', 8, 64)).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return core.Fill{}, fmt.Errorf("buy order failed for %s: %w", pair, err)
	}

	return convertResponse(pair, response)
}

// Sell implements core.Broker with a quantity-sized market order
func (e *Exchange) Sell(ctx context.Context, pair string, quantity float64,
	credentials core.Credentials) (core.Fill, error) {

	if quantity <= 0 {
		return core.Fill{}, core.ErrInvalidQuantity
	}

	precision, err := e.quantityPrecision(ctx, pair, credentials)
	if err != nil {
		return core.Fill{}, err
	}

	response, err := e.client(credentials).NewCreateOrderService().
		Symbol(pair).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', precision, 64)).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return core.Fill{}, fmt.Errorf("sell order failed for %s: %w", pair, err)
	}

	return convertResponse(pair, response)
}

// quantityPrecision returns the lot step precision for a pair, loading
// exchange info on first use
func (e *Exchange) quantityPrecision(ctx context.Context, pair string, credentials core.Credentials) (int, error) {
	e.mu.RLock()
	precision, ok := e.precisions[pair]
	e.mu.RUnlock()
	if ok {
		return precision, nil
	}

	info, err := e.client(credentials).NewExchangeInfoService().Symbol(pair).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch exchange info for %s: %w", pair, err)
	}

	precision = 8
	for _, symbol := range info.Symbols {
		if symbol.Symbol != pair {
			continue
		}
		if filter := symbol.LotSizeFilter(); filter != nil {
			precision = stepPrecision(filter.StepSize)
		}
	}

	e.mu.Lock()
	e.precisions[pair] = precision
	e.mu.Unlock()

	return precision, nil
}

// withRetry runs fn up to fetchAttempts times with increasing backoff
func (e *Exchange) withRetry(ctx context.Context, fn func() error) error {
	retry := &backoff.Backoff{
		Min: 100 * time.Millisecond,
		Max: time.Second,
	}

	var err error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.Duration()):
		}
	}

	return err
}

// stepPrecision converts a step size string like "0.00100000" to the
// number of meaningful decimal places
func stepPrecision(step string) int {
	value, err := strconv.ParseFloat(step, 64)
	if err != nil || value <= 0 || value >= 1 {
		return 0
	}

	precision := 0
	for value < 1 {
		value *= 10
		precision++
	}
	return precision
}

// convertKline converts a Binance kline to a core.Candle
func convertKline(pair string, k *binance.Kline) core.Candle {
	candle := core.Candle{
		Pair:     pair,
		Time:     time.Unix(0, k.OpenTime*int64(time.Millisecond)),
		Complete: true,
	}

	candle.Open, _ = strconv.ParseFloat(k.Open, 64)
	candle.Close, _ = strconv.ParseFloat(k.Close, 64)
	candle.High, _ = strconv.ParseFloat(k.High, 64)
	candle.Low, _ = strconv.ParseFloat(k.Low, 64)
	candle.Volume, _ = strconv.ParseFloat(k.Volume, 64)

	return candle
}

// convertResponse normalizes an order response into a core.Fill.
// Commissions paid in the quote or base currency are folded into the
// fee; commissions in any other asset (e.g. BNB) cannot be expressed
// in quote terms, so the fee is left unreported for the caller to
// estimate.
func convertResponse(pair string, response *binance.CreateOrderResponse) (core.Fill, error) {
	quantity, err := strconv.ParseFloat(response.ExecutedQuantity, 64)
	if err != nil {
		return core.Fill{}, fmt.Errorf("failed to parse executed quantity: %w", err)
	}

	value, err := strconv.ParseFloat(response.CummulativeQuoteQuantity, 64)
	if err != nil {
		return core.Fill{}, fmt.Errorf("failed to parse executed value: %w", err)
	}

	if quantity <= 0 {
		return core.Fill{}, fmt.Errorf("order %d for %s executed nothing", response.OrderID, pair)
	}

	fill := core.Fill{
		OrderID:  strconv.FormatInt(response.OrderID, 10),
		Price:    value / quantity,
		Quantity: quantity,
		Value:    value,
	}

	asset, quote := exchange.SplitAssetQuote(pair)

	feeKnown := true
	totalFee := 0.0
	for _, f := range response.Fills {
		commission, err := strconv.ParseFloat(f.Commission, 64)
		if err != nil || commission == 0 {
			continue
		}

		switch f.CommissionAsset {
		case quote:
			totalFee += commission
		case asset:
			totalFee += commission * fill.Price
		default:
			feeKnown = false
		}
	}

	if feeKnown {
		fill.Fee = &totalFee
	}

	return fill, nil
}
