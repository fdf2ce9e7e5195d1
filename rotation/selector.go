// Package rotation bounds per-cycle market data volume for strategies
// tracking many assets by rotating through the asset list in fixed-size
// batches.
package rotation

import (
	"sync"

	"github.com/helixtrade/momentum/core"
)

// Default rotation parameters
const (
	DefaultThreshold = 30
	DefaultBatchSize = 25
)

// Config holds the asset rotation settings
type Config struct {
	Enabled   bool
	Threshold int
	BatchSize int
}

// Selector chooses which assets a strategy checks in a given cycle.
// Cursors are in-process state keyed by strategy id; a restart loses
// them and costs at most one partial rotation pass.
type Selector struct {
	enabled   bool
	threshold int
	batchSize int

	mu      sync.Mutex
	cursors map[int64]int
}

// NewSelector creates a selector from the given configuration,
// substituting defaults for zero values
func NewSelector(cfg Config) *Selector {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Selector{
		enabled:   cfg.Enabled,
		threshold: threshold,
		batchSize: batchSize,
		cursors:   make(map[int64]int),
	}
}

// SelectBatch returns the assets the strategy checks this cycle.
// Small asset lists are returned whole every cycle; large ones advance
// a per-strategy cursor that wraps to zero after covering the list.
func (s *Selector) SelectBatch(strategy *core.Strategy) []string {
	assets := strategy.Assets
	if !s.enabled || len(assets) <= s.threshold {
		return assets
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cursor := s.cursors[strategy.ID]
	if cursor >= len(assets) {
		cursor = 0
	}

	end := cursor + s.batchSize
	if end > len(assets) {
		end = len(assets)
	}

	batch := assets[cursor:end]

	if end >= len(assets) {
		s.cursors[strategy.ID] = 0
	} else {
		s.cursors[strategy.ID] = end
	}

	return batch
}

// Cursor returns the current cursor position for a strategy
func (s *Selector) Cursor(strategyID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[strategyID]
}

// Reset clears the cursor for a strategy
func (s *Selector) Reset(strategyID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, strategyID)
}
