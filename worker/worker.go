// Package worker drives the trading cycle: on a fixed interval it loads
// the active strategies, monitors their open positions, evaluates entry
// signals over the rotated asset batch and opens new positions while
// capacity allows.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/helixtrade/momentum/core"
	"github.com/helixtrade/momentum/exchange"
	"github.com/helixtrade/momentum/order"
	"github.com/helixtrade/momentum/position"
	"github.com/helixtrade/momentum/rotation"
	"github.com/helixtrade/momentum/signal"
)

// Default cycle parameters
const (
	DefaultInterval          = time.Minute
	DefaultStrategyBatchSize = 10
	DefaultAssetBatchSize    = 5
)

// Config holds the cycle scheduling parameters. Zero values fall back
// to the defaults.
type Config struct {
	Interval          time.Duration
	StrategyBatchSize int
	AssetBatchSize    int
}

// Status is a snapshot of the worker's scheduling state
type Status struct {
	IsRunning bool
	Interval  time.Duration
}

// Worker runs the periodic trading cycle. Cycles are fired on a fixed
// interval with no overlap guard: a slow cycle does not delay the next
// tick.
type Worker struct {
	interval          time.Duration
	strategyBatchSize int
	assetBatchSize    int

	strategies  core.StrategyStore
	positions   core.PositionStore
	credentials core.CredentialStore
	exchanges   *exchange.Registry
	orders      *order.Controller
	monitor     *position.Monitor
	evaluator   *signal.Evaluator
	selector    *rotation.Selector
	log         core.Logger
	notifier    core.Notifier

	onCycle func(stats core.CycleStats)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates a cycle worker wired to the given stores and services
func NewWorker(
	cfg Config,
	strategies core.StrategyStore,
	positions core.PositionStore,
	credentials core.CredentialStore,
	exchanges *exchange.Registry,
	orders *order.Controller,
	monitor *position.Monitor,
	evaluator *signal.Evaluator,
	selector *rotation.Selector,
	log core.Logger,
) *Worker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	strategyBatch := cfg.StrategyBatchSize
	if strategyBatch <= 0 {
		strategyBatch = DefaultStrategyBatchSize
	}

	assetBatch := cfg.AssetBatchSize
	if assetBatch <= 0 {
		assetBatch = DefaultAssetBatchSize
	}

	return &Worker{
		interval:          interval,
		strategyBatchSize: strategyBatch,
		assetBatchSize:    assetBatch,
		strategies:        strategies,
		positions:         positions,
		credentials:       credentials,
		exchanges:         exchanges,
		orders:            orders,
		monitor:           monitor,
		evaluator:         evaluator,
		selector:          selector,
		log:               log,
	}
}

// SetNotifier configures a notifier for cycle-level errors
func (w *Worker) SetNotifier(notifier core.Notifier) {
	w.notifier = notifier
}

// OnCycle registers a hook called with the stats of every finished cycle
func (w *Worker) OnCycle(hook func(stats core.CycleStats)) {
	w.onCycle = hook
}

// Start launches the cycle scheduler. The first cycle runs immediately,
// then one fires every interval. Calling Start on a running worker is a
// no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.log.Warn("worker already running, ignoring start")
		return
	}

	schedCtx, cancel := context.WithCancel(context.Background())
	w.running = true
	w.cancel = cancel
	w.done = make(chan struct{})

	w.log.WithField("interval", w.interval.String()).Info("Starting trading cycle worker")

	go w.loop(ctx, schedCtx)
}

// loop fires cycles until the scheduling context is cancelled. Each
// cycle runs in its own goroutine under the outer context so an
// in-flight cycle is not aborted by Stop.
func (w *Worker) loop(ctx context.Context, schedCtx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	go w.runScheduled(ctx)

	for {
		select {
		case <-schedCtx.Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			go w.runScheduled(ctx)
		}
	}
}

func (w *Worker) runScheduled(ctx context.Context) {
	stats, err := w.RunCycle(ctx)
	if err != nil {
		w.log.WithError(err).Error("trading cycle failed")
		if w.notifier != nil {
			w.notifier.OnError(err)
		}
		return
	}

	if w.onCycle != nil {
		w.onCycle(stats)
	}
}

// Stop halts the scheduling of new cycles. A cycle already in flight
// finishes on its own. Calling Stop on a stopped worker is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		w.log.Warn("worker not running, ignoring stop")
		return
	}

	w.log.Info("Stopping trading cycle worker")
	w.cancel()
	<-w.done
	w.running = false
}

// Status returns the current scheduling state
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{IsRunning: w.running, Interval: w.interval}
}

// RunCycle executes one full trading cycle over all active strategies
// and returns the aggregated stats. Strategies run in parallel batches;
// a failing strategy is contained and contributes nothing beyond its
// checked count.
func (w *Worker) RunCycle(ctx context.Context) (core.CycleStats, error) {
	started := time.Now()

	active, err := w.strategies.ListActive(ctx)
	if err != nil {
		return core.CycleStats{}, fmt.Errorf("failed to list active strategies: %w", err)
	}

	if len(active) == 0 {
		w.log.Debug("no active strategies, skipping cycle")
		return core.CycleStats{}, nil
	}

	total := core.CycleStats{}
	for _, batch := range lo.Chunk(active, w.strategyBatchSize) {
		results := make([]core.CycleStats, len(batch))

		wg := sync.WaitGroup{}
		for i, strategy := range batch {
			wg.Add(1)
			go func(slot int, strategy *core.Strategy) {
				defer wg.Done()
				results[slot] = w.processStrategy(ctx, strategy)
			}(i, strategy)
		}
		wg.Wait()

		for _, stats := range results {
			total.Add(stats)
		}
	}

	w.log.WithFields(map[string]any{
		"strategies": total.StrategiesChecked,
		"signals":    total.SignalsDetected,
		"opened":     total.PositionsOpened,
		"closed":     total.PositionsClosed,
		"elapsed":    time.Since(started).String(),
	}).Info("Trading cycle finished")

	return total, nil
}

// processStrategy runs one strategy through the full cycle: position
// monitoring, capacity gate, signal evaluation over the rotated asset
// batch and sequential position opening. All failures are contained to
// the strategy.
func (w *Worker) processStrategy(ctx context.Context, strategy *core.Strategy) core.CycleStats {
	stats := core.CycleStats{StrategiesChecked: 1}

	log := w.log.WithFields(map[string]any{
		"strategy": strategy.ID,
		"user":     strategy.UserID,
		"exchange": strategy.Exchange,
	})

	credentials, err := w.credentials.Credentials(ctx, strategy.UserID, strategy.Exchange)
	if err != nil {
		log.WithError(err).Error("failed to load credentials")
		return stats
	}
	if credentials == nil {
		log.Debug("no credentials for exchange, skipping strategy")
		return stats
	}

	adapter, err := w.exchanges.Exchange(strategy.Exchange)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedExchange) {
			log.WithError(err).Error("strategy targets an exchange with no registered adapter")
			if w.notifier != nil {
				w.notifier.OnError(err)
			}
		} else {
			log.WithError(err).Error("failed to resolve exchange adapter")
		}
		return stats
	}

	closed, err := w.monitor.MonitorPositions(ctx, strategy.UserID, strategy.Exchange, *credentials)
	if err != nil {
		log.WithError(err).Error("position monitoring failed")
	}
	stats.PositionsClosed = len(closed)

	openCount, err := w.positions.CountOpen(ctx, strategy.ID)
	if err != nil {
		log.WithError(err).Error("failed to count open positions")
		return stats
	}
	if openCount >= strategy.MaxOpenPositions {
		log.WithFields(map[string]any{
			"open": openCount,
			"max":  strategy.MaxOpenPositions,
		}).Debug("strategy at max open positions, skipping signal evaluation")
		return stats
	}

	candidates := w.evaluateAssets(ctx, adapter, strategy, *credentials)
	stats.SignalsDetected = len(candidates)
	if len(candidates) == 0 {
		return stats
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].result.Strength(), candidates[j].result.Strength()
		if si != sj {
			return si > sj
		}
		return candidates[i].asset < candidates[j].asset
	})

	for _, candidate := range candidates {
		openCount, err := w.positions.CountOpen(ctx, strategy.ID)
		if err != nil {
			log.WithError(err).Error("failed to count open positions")
			break
		}
		if openCount >= strategy.MaxOpenPositions {
			break
		}

		if err := w.openPosition(ctx, strategy, candidate, *credentials); err != nil {
			log.WithField("pair", candidate.pair).WithError(err).Error("failed to open position")
			continue
		}
		stats.PositionsOpened++
	}

	return stats
}

// candidate is an asset whose entry signal fired in this cycle
type candidate struct {
	asset  string
	pair   string
	result core.SignalResult
}

// evaluateAssets fetches candles and evaluates the entry signal for the
// strategy's rotated asset batch, a few assets at a time. Assets whose
// fetch or evaluation fails are skipped.
func (w *Worker) evaluateAssets(ctx context.Context, adapter core.Exchange,
	strategy *core.Strategy, credentials core.Credentials) []candidate {

	assets := w.selector.SelectBatch(strategy)
	candidates := make([]candidate, 0)

	for _, batch := range lo.Chunk(assets, w.assetBatchSize) {
		results := make([]*candidate, len(batch))

		wg := sync.WaitGroup{}
		for i, asset := range batch {
			wg.Add(1)
			go func(slot int, asset string) {
				defer wg.Done()

				pair := strategy.Pair(asset)
				candles, err := adapter.CandlesByLimit(ctx, pair, strategy.Timeframe,
					signal.MinimumCandles, credentials)
				if err != nil {
					w.log.WithFields(map[string]any{
						"strategy": strategy.ID,
						"pair":     pair,
					}).WithError(err).Error("failed to fetch candles")
					return
				}

				result := w.evaluator.Evaluate(candles, strategy)
				if !result.ShouldEnter {
					return
				}

				results[slot] = &candidate{asset: asset, pair: pair, result: result}
			}(i, asset)
		}
		wg.Wait()

		for _, result := range results {
			if result != nil {
				candidates = append(candidates, *result)
			}
		}
	}

	return candidates
}

// openPosition buys the strategy's trade amount and persists the new
// OPEN position with its entry snapshot
func (w *Worker) openPosition(ctx context.Context, strategy *core.Strategy,
	candidate candidate, credentials core.Credentials) error {

	fill, err := w.orders.Buy(ctx, strategy.Exchange, candidate.pair,
		strategy.MaxTradeAmountQuote, credentials)
	if err != nil {
		return err
	}

	entryValue := fill.Value
	if entryValue == 0 {
		entryValue = fill.Price * fill.Quantity
	}

	now := time.Now()
	pos := &core.Position{
		StrategyID:      strategy.ID,
		UserID:          strategy.UserID,
		Exchange:        strategy.Exchange,
		Asset:           candidate.asset,
		Pair:            candidate.pair,
		Status:          core.PositionStatusOpen,
		EntryPrice:      fill.Price,
		EntryQuantity:   fill.Quantity,
		EntryValueQuote: entryValue,
		EntryFee:        fill.FeeOrZero(),
		EntrySignals:    candidate.result.TriggeredNames(),
		EntryOrderID:    fill.OrderID,
		EntryTime:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := w.positions.CreatePosition(ctx, pos); err != nil {
		return fmt.Errorf("position bought but not persisted: %w", err)
	}

	w.log.Infof("[POSITION OPENED] %s", pos)
	if w.notifier != nil {
		w.notifier.OnPositionOpened(pos)
	}

	return nil
}
