package core

import (
	"context"
)

// Exchange combines market data access and order execution for one venue
type Exchange interface {
	Feeder
	Broker
}

// Feeder provides market data for a single exchange
type Feeder interface {
	// CandlesByLimit returns the most recent complete candles for a pair
	CandlesByLimit(ctx context.Context, pair, timeframe string, limit int, credentials Credentials) ([]Candle, error)

	// LastQuote returns the current price for a pair
	LastQuote(ctx context.Context, pair string, credentials Credentials) (float64, error)
}

// Broker executes orders on a single exchange and returns normalized fills
type Broker interface {
	// Buy submits a market buy order sized in quote currency
	Buy(ctx context.Context, pair string, quoteAmount float64, credentials Credentials) (Fill, error)

	// Sell submits a market sell order for a base asset quantity
	Sell(ctx context.Context, pair string, quantity float64, credentials Credentials) (Fill, error)
}

// Fill is the normalized result of an executed order.
// Fee is nil when the exchange did not report one; callers are expected
// to estimate it before computing PnL.
type Fill struct {
	OrderID  string
	Price    float64
	Quantity float64
	Value    float64
	Fee      *float64
}

// FeeOrZero returns the reported fee, or zero when none was reported
func (f Fill) FeeOrZero() float64 {
	if f.Fee == nil {
		return 0
	}
	return *f.Fee
}

// Notifier receives trading events for delivery to an external channel
type Notifier interface {
	Notify(message string)
	OnPositionOpened(position *Position)
	OnPositionClosed(position *Position)
	OnError(err error)
}

// NotifierWithStart is a notifier that needs its own delivery loop
type NotifierWithStart interface {
	Notifier
	Start()
}
