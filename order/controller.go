// Package order submits buy and sell orders through registered
// exchange adapters and normalizes the resulting fills.
package order

import (
	"context"
	"sync"

	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/exchange"
)

// DefaultFeeRate is the assumed fee share of trade value applied when
// an exchange does not report the fee on a fill
const DefaultFeeRate = 0.001

// Controller executes orders against named exchanges. Callers are
// responsible for verifying position capacity before submitting buys;
// the controller only validates amounts and normalizes fills.
type Controller struct {
	mu        sync.Mutex
	exchanges *exchange.Registry
	log       core.Logger
	notifier  core.Notifier
}

// NewController creates a new order controller
func NewController(exchanges *exchange.Registry, log core.Logger) *Controller {
	return &Controller{
		exchanges: exchanges,
		log:       log,
	}
}

// SetNotifier configures a notifier for order errors
func (c *Controller) SetNotifier(notifier core.Notifier) {
	c.notifier = notifier
}

// Buy submits a market buy sized in quote currency and returns the
// normalized fill. The returned fill always carries a fee: estimated
// at DefaultFeeRate when the exchange did not report one.
func (c *Controller) Buy(ctx context.Context, exchangeName, pair string, quoteAmount float64,
	credentials core.Credentials) (core.Fill, error) {

	if quoteAmount <= 0 {
		return core.Fill{}, core.ErrInvalidQuoteAmount
	}

	adapter, err := c.exchanges.Exchange(exchangeName)
	if err != nil {
		return core.Fill{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Infof("Creating MARKET BUY order for %s on %s", pair, exchangeName)
	fill, err := adapter.Buy(ctx, pair, quoteAmount, credentials)
	if err != nil {
		c.notifyError(err)
		return core.Fill{}, err
	}

	c.normalizeFee(&fill)
	c.log.Infof("[ORDER FILLED] BUY %s | %f x $%f (~$%.2f)", pair, fill.Quantity, fill.Price, fill.Value)
	return fill, nil
}

// Sell submits a market sell for a base asset quantity and returns the
// normalized fill, with the same fee guarantee as Buy
func (c *Controller) Sell(ctx context.Context, exchangeName, pair string, quantity float64,
	credentials core.Credentials) (core.Fill, error) {

	if quantity <= 0 {
		return core.Fill{}, core.ErrInvalidQuantity
	}

	adapter, err := c.exchanges.Exchange(exchangeName)
	if err != nil {
		return core.Fill{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Infof("Creating MARKET SELL order for %s on %s", pair, exchangeName)
	fill, err := adapter.Sell(ctx, pair, quantity, credentials)
	if err != nil {
		c.notifyError(err)
		return core.Fill{}, err
	}

	c.normalizeFee(&fill)
	c.log.Infof("[ORDER FILLED] SELL %s | %f x $%f (~$%.2f)", pair, fill.Quantity, fill.Price, fill.Value)
	return fill, nil
}

// normalizeFee fills in an estimated fee when the adapter reported none
func (c *Controller) normalizeFee(fill *core.Fill) {
	if fill.Fee != nil {
		return
	}

	estimated := fill.Value * DefaultFeeRate
	fill.Fee = &estimated
	c.log.Debugf("fee not reported, estimating %.8f from trade value", estimated)
}

// notifyError sends an error through the notifier when one is set
func (c *Controller) notifyError(err error) {
	c.log.Error(err)
	if c.notifier != nil {
		c.notifier.OnError(err)
	}
}
