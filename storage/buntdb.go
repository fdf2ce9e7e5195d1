package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/helixtrade/momentum/core"
)

const (
	// DefaultIndexName is the default index used for position retrieval
	DefaultIndexName = "update_index"
)

// BuntPositionStore implements core.PositionStore on BuntDB, storing
// each position as a JSON document keyed by its id
type BuntPositionStore struct {
	lastID int64
	db     *buntdb.DB
}

// BuntConfig holds configuration options for BuntDB
type BuntConfig struct {
	// Additional indexes to create beyond the default update_index
	AdditionalIndexes map[string]string
	// SyncPolicy determines how often data is synchronized to disk
	SyncPolicy buntdb.SyncPolicy
}

// DefaultBuntConfig returns the default configuration for BuntDB
func DefaultBuntConfig() BuntConfig {
	return BuntConfig{
		AdditionalIndexes: make(map[string]string),
		SyncPolicy:        buntdb.Never,
	}
}

// NewFromMemory creates an in-memory position store with default configuration
func NewFromMemory() (*BuntPositionStore, error) {
	return NewBuntPositionStore(":memory:", DefaultBuntConfig())
}

// NewFromFile creates a file-based position store with default configuration
func NewFromFile(file string) (*BuntPositionStore, error) {
	return NewBuntPositionStore(file, DefaultBuntConfig())
}

// NewBuntPositionStore creates a BuntDB position store with the specified configuration
func NewBuntPositionStore(sourceFile string, config BuntConfig) (*BuntPositionStore, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	if err := db.SetConfig(buntdb.Config{
		SyncPolicy: config.SyncPolicy,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure buntdb: %w", err)
	}

	// Default index for ordering by update timestamp
	if err := db.CreateIndex(DefaultIndexName, "*", buntdb.IndexJSON("updated_at")); err != nil {
		return nil, fmt.Errorf("failed to create default index: %w", err)
	}

	for name, pattern := range config.AdditionalIndexes {
		if err := db.CreateIndex(name, "*", buntdb.IndexJSON(pattern)); err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", name, err)
		}
	}

	return &BuntPositionStore{
		db: db,
	}, nil
}

// getID generates a unique ID for positions
func (b *BuntPositionStore) getID() int64 {
	return atomic.AddInt64(&b.lastID, 1)
}

// CreatePosition stores a new position in the database
func (b *BuntPositionStore) CreatePosition(_ context.Context, position *core.Position) error {
	// Use a context-aware version if BuntDB adds context support in future
	return b.db.Update(func(tx *buntdb.Tx) error {
		if position.ID == 0 {
			position.ID = b.getID()
		}
		if position.CreatedAt.IsZero() {
			position.CreatedAt = time.Now()
		}
		position.UpdatedAt = time.Now()

		content, err := json.Marshal(position)
		if err != nil {
			return fmt.Errorf("failed to marshal position: %w", err)
		}

		key := strconv.FormatInt(position.ID, 10)
		_, _, err = tx.Set(key, string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store position: %w", err)
		}

		return nil
	})
}

// UpdatePosition updates an existing position in the database
func (b *BuntPositionStore) UpdatePosition(_ context.Context, position *core.Position) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		id := strconv.FormatInt(position.ID, 10)

		if _, err := tx.Get(id); err != nil {
			return fmt.Errorf("%w: %s", core.ErrPositionNotFound, id)
		}

		position.UpdatedAt = time.Now()

		content, err := json.Marshal(position)
		if err != nil {
			return fmt.Errorf("failed to marshal position: %w", err)
		}

		_, _, err = tx.Set(id, string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}

		return nil
	})
}

// Positions retrieves positions from the database based on provided filters
func (b *BuntPositionStore) Positions(_ context.Context, filters ...core.PositionFilter) ([]*core.Position, error) {
	positions := make([]*core.Position, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		err := tx.Ascend(DefaultIndexName, func(key, value string) bool {
			var position core.Position
			if err := json.Unmarshal([]byte(value), &position); err != nil {
				log.Printf("Failed to unmarshal position %s: %v", key, err)
				return true // Continue iteration
			}

			for _, filter := range filters {
				if !filter(position) {
					return true
				}
			}

			positions = append(positions, &position)
			return true
		})

		if err != nil {
			return fmt.Errorf("failed to iterate over positions: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}

	return positions, nil
}

// CountOpen returns the number of OPEN positions held by a strategy
func (b *BuntPositionStore) CountOpen(ctx context.Context, strategyID int64) (int, error) {
	open, err := b.Positions(ctx,
		core.WithStatus(core.PositionStatusOpen),
		core.WithStrategy(strategyID),
	)
	if err != nil {
		return 0, err
	}
	return len(open), nil
}

// Close closes the database connection
func (b *BuntPositionStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
