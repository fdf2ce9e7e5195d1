// Package momentum wires the trading automation together: storage,
// exchange adapters, the order controller, the position monitor and the
// cycle worker.
package momentum

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/exchange"
	"github.com/helixtrade/momentum/order"
	"github.com/helixtrade/momentum/position"
	"github.com/helixtrade/momentum/rotation"
	"github.com/helixtrade/momentum/signal"
	"github.com/helixtrade/momentum/worker"
)

// DefaultLog is the default logger instance
var DefaultLog core.Logger

// Settings holds the engine's cycle parameters
type Settings struct {
	Interval          time.Duration
	StrategyBatchSize int
	AssetBatchSize    int
	Rotation          rotation.Config
}

// Engine is the assembled trading automation
type Engine struct {
	settings    Settings
	strategies  core.StrategyStore
	positions   core.PositionStore
	credentials core.CredentialStore
	exchanges   *exchange.Registry
	notifier    core.Notifier
	telegram    core.NotifierWithStart
	log         core.Logger

	orders    *order.Controller
	monitor   *position.Monitor
	evaluator *signal.Evaluator
	selector  *rotation.Selector
	worker    *worker.Worker

	mu      sync.Mutex
	history []core.CycleStats
}

// Option is a function that configures an Engine
type Option func(*Engine)

// WithLogger overrides the default logger
func WithLogger(log core.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithLogLevel sets the log level of the engine's logger
func WithLogLevel(level core.Level) Option {
	return func(e *Engine) {
		e.log.SetLevel(level)
	}
}

// WithNotifier registers a notifier for trading events
func WithNotifier(notifier core.Notifier) Option {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithTelegram registers a telegram notifier; its delivery loop is
// started together with the engine
func WithTelegram(telegram core.NotifierWithStart) Option {
	return func(e *Engine) {
		e.telegram = telegram
		e.notifier = telegram
	}
}

// NewEngine creates a fully wired engine from the given stores and
// exchange registry
func NewEngine(
	settings Settings,
	strategies core.StrategyStore,
	positions core.PositionStore,
	credentials core.CredentialStore,
	exchanges *exchange.Registry,
	options ...Option,
) (*Engine, error) {
	engine := &Engine{
		settings:    settings,
		strategies:  strategies,
		positions:   positions,
		credentials: credentials,
		exchanges:   exchanges,
		log:         DefaultLog,
	}

	for _, option := range options {
		option(engine)
	}

	if err := engine.validate(); err != nil {
		return nil, err
	}

	engine.orders = order.NewController(exchanges, engine.log)
	engine.monitor = position.NewMonitor(strategies, positions, exchanges, engine.orders, engine.log)
	engine.evaluator = signal.NewEvaluator(engine.log)
	engine.selector = rotation.NewSelector(settings.Rotation)

	engine.worker = worker.NewWorker(
		worker.Config{
			Interval:          settings.Interval,
			StrategyBatchSize: settings.StrategyBatchSize,
			AssetBatchSize:    settings.AssetBatchSize,
		},
		strategies,
		positions,
		credentials,
		exchanges,
		engine.orders,
		engine.monitor,
		engine.evaluator,
		engine.selector,
		engine.log,
	)
	engine.worker.OnCycle(engine.recordCycle)

	if engine.notifier != nil {
		engine.orders.SetNotifier(engine.notifier)
		engine.monitor.SetNotifier(engine.notifier)
		engine.worker.SetNotifier(engine.notifier)
	}

	return engine, nil
}

// validate checks that the engine has everything it needs to trade
func (e *Engine) validate() error {
	if e.strategies == nil || e.positions == nil || e.credentials == nil {
		return errors.New("engine requires strategy, position and credential stores")
	}
	if e.exchanges == nil || len(e.exchanges.Names()) == 0 {
		return errors.New("engine requires at least one registered exchange adapter")
	}
	if e.log == nil {
		return errors.New("engine requires a logger")
	}
	return nil
}

// Orders exposes the order controller, for hosts that place manual orders
func (e *Engine) Orders() *order.Controller {
	return e.orders
}

// Monitor exposes the position monitor, for hosts that close positions manually
func (e *Engine) Monitor() *position.Monitor {
	return e.monitor
}

// Start launches the cycle worker and the telegram delivery loop
func (e *Engine) Start(ctx context.Context) {
	if e.telegram != nil {
		e.telegram.Start()
	}
	e.worker.Start(ctx)
}

// Stop halts the cycle worker
func (e *Engine) Stop() {
	e.worker.Stop()
}

// Status returns the worker's scheduling state
func (e *Engine) Status() worker.Status {
	return e.worker.Status()
}

// Run starts the engine and blocks until the context is cancelled
func (e *Engine) Run(ctx context.Context) error {
	e.Start(ctx)
	<-ctx.Done()
	e.Stop()
	return ctx.Err()
}

// recordCycle keeps the stats of every finished cycle for the summary
func (e *Engine) recordCycle(stats core.CycleStats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, stats)
}

// History returns the stats of every cycle finished so far
func (e *Engine) History() []core.CycleStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	history := make([]core.CycleStats, len(e.history))
	copy(history, e.history)
	return history
}
