package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/helixtrade/momentum/core"
)

// PaperOrder records one fill executed by the paper exchange
type PaperOrder struct {
	OrderID  string
	Pair     string
	Side     string
	Price    float64
	Quantity float64
	Value    float64
}

// Paper is an in-memory exchange with scripted prices and candles.
// Fills are deterministic: buys and sells execute in full at the
// current price. It backs simulation runs and tests.
type Paper struct {
	mu sync.Mutex

	prices  map[string]float64
	candles map[string][]core.Candle

	feeRate    float64
	lastID     int64
	orders     []PaperOrder
	orderErr   error
	candleReqs int
}

// PaperOption configures a paper exchange
type PaperOption func(*Paper)

// WithPaperPrice scripts the current price for a pair
func WithPaperPrice(pair string, price float64) PaperOption {
	return func(p *Paper) {
		p.prices[pair] = price
	}
}

// WithPaperCandles scripts the candle series for a pair
func WithPaperCandles(pair string, candles []core.Candle) PaperOption {
	return func(p *Paper) {
		p.candles[pair] = candles
	}
}

// WithPaperFeeRate makes fills report a fee proportional to trade
// value. Without it fills carry no fee, exercising the caller's fee
// estimation path.
func WithPaperFeeRate(rate float64) PaperOption {
	return func(p *Paper) {
		p.feeRate = rate
	}
}

// NewPaper creates a new paper exchange
func NewPaper(options ...PaperOption) *Paper {
	paper := &Paper{
		prices:  make(map[string]float64),
		candles: make(map[string][]core.Candle),
	}

	for _, option := range options {
		option(paper)
	}

	return paper
}

// SetPrice updates the scripted price for a pair
func (p *Paper) SetPrice(pair string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[pair] = price
}

// SetCandles replaces the scripted candle series for a pair
func (p *Paper) SetCandles(pair string, candles []core.Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles[pair] = candles
}

// SetOrderError makes every subsequent order fail with err.
// Pass nil to restore normal fills.
func (p *Paper) SetOrderError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderErr = err
}

// Orders returns the fills executed so far, in execution order
func (p *Paper) Orders() []PaperOrder {
	p.mu.Lock()
	defer p.mu.Unlock()

	orders := make([]PaperOrder, len(p.orders))
	copy(orders, p.orders)
	return orders
}

// CandleRequests returns how many candle fetches were served
func (p *Paper) CandleRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.candleReqs
}

// CandlesByLimit implements core.Feeder
func (p *Paper) CandlesByLimit(_ context.Context, pair, _ string, limit int, _ core.Credentials) ([]core.Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.candleReqs++

	candles, ok := p.candles[pair]
	if !ok {
		return nil, fmt.Errorf("no candle data for pair %s", pair)
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	result := make([]core.Candle, len(candles))
	copy(result, candles)
	return result, nil
}

// LastQuote implements core.Feeder
func (p *Paper) LastQuote(_ context.Context, pair string, _ core.Credentials) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.prices[pair]
	if !ok {
		return 0, fmt.Errorf("no price for pair %s", pair)
	}
	return price, nil
}

// Buy implements core.Broker: fills the full quote amount at the
// scripted price
func (p *Paper) Buy(_ context.Context, pair string, quoteAmount float64, _ core.Credentials) (core.Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.orderErr != nil {
		return core.Fill{}, p.orderErr
	}

	price, ok := p.prices[pair]
	if !ok || price <= 0 {
		return core.Fill{}, fmt.Errorf("no price for pair %s", pair)
	}

	fill := core.Fill{
		OrderID:  p.nextID(),
		Price:    price,
		Quantity: quoteAmount / price,
		Value:    quoteAmount,
	}
	p.applyFee(&fill)
	p.record(pair, "BUY", fill)

	return fill, nil
}

// Sell implements core.Broker: fills the full quantity at the scripted
// price
func (p *Paper) Sell(_ context.Context, pair string, quantity float64, _ core.Credentials) (core.Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.orderErr != nil {
		return core.Fill{}, p.orderErr
	}

	price, ok := p.prices[pair]
	if !ok || price <= 0 {
		return core.Fill{}, fmt.Errorf("no price for pair %s", pair)
	}

	fill := core.Fill{
		OrderID:  p.nextID(),
		Price:    price,
		Quantity: quantity,
		Value:    quantity * price,
	}
	p.applyFee(&fill)
	p.record(pair, "SELL", fill)

	return fill, nil
}

func (p *Paper) nextID() string {
	p.lastID++
	return fmt.Sprintf("paper-%d", p.lastID)
}

func (p *Paper) applyFee(fill *core.Fill) {
	if p.feeRate > 0 {
		fee := fill.Value * p.feeRate
		fill.Fee = &fee
	}
}

func (p *Paper) record(pair, side string, fill core.Fill) {
	p.orders = append(p.orders, PaperOrder{
		OrderID:  fill.OrderID,
		Pair:     pair,
		Side:     side,
		Price:    fill.Price,
		Quantity: fill.Quantity,
		Value:    fill.Value,
	})
}
