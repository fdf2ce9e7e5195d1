package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/helixtrade/momentum/core"
)

// SQLStorage implements the strategy, position and credential stores on
// a SQL database via GORM
type SQLStorage struct {
	db *gorm.DB
}

// Config holds the configuration for SQL database connections
type Config struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a default configuration for SQL connections
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:    5,
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
	}
}

// NewFromSQLite creates a new SQLite storage instance
func NewFromSQLite(dbPath string, config Config, opts ...gorm.Option) (*SQLStorage, error) {
	dialect := sqlite.Open(dbPath)
	return newFromSQL(dialect, config, opts...)
}

// newFromSQL creates a new SQL storage instance with the specified configuration
func newFromSQL(dialect gorm.Dialector, config Config, opts ...gorm.Option) (*SQLStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err = db.AutoMigrate(&core.Strategy{}, &core.Position{}, &core.Credentials{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

// ListActive returns every active strategy across all users and exchanges
func (s *SQLStorage) ListActive(ctx context.Context) ([]*core.Strategy, error) {
	tx := s.db.WithContext(ctx)

	var strategies []*core.Strategy
	result := tx.Where("is_active = ?", true).Find(&strategies)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch active strategies: %w", result.Error)
	}

	return strategies, nil
}

// Strategy returns a single strategy by id
func (s *SQLStorage) Strategy(ctx context.Context, id int64) (*core.Strategy, error) {
	tx := s.db.WithContext(ctx)

	var strategy core.Strategy
	if result := tx.First(&strategy, id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", core.ErrStrategyNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch strategy: %w", result.Error)
	}

	return &strategy, nil
}

// SaveStrategy creates or updates a strategy
func (s *SQLStorage) SaveStrategy(ctx context.Context, strategy *core.Strategy) error {
	tx := s.db.WithContext(ctx)
	if result := tx.Save(strategy); result.Error != nil {
		return fmt.Errorf("failed to save strategy: %w", result.Error)
	}
	return nil
}

// CreatePosition creates a new position in the SQL database
func (s *SQLStorage) CreatePosition(ctx context.Context, position *core.Position) error {
	tx := s.db.WithContext(ctx)
	if result := tx.Create(position); result.Error != nil {
		return fmt.Errorf("failed to create position: %w", result.Error)
	}
	return nil
}

// UpdatePosition updates an existing position in the SQL database
func (s *SQLStorage) UpdatePosition(ctx context.Context, position *core.Position) error {
	tx := s.db.WithContext(ctx)

	var existing core.Position
	if result := tx.First(&existing, position.ID); result.Error != nil {
		return fmt.Errorf("%w: %d", core.ErrPositionNotFound, position.ID)
	}

	if result := tx.Save(position); result.Error != nil {
		return fmt.Errorf("failed to update position: %w", result.Error)
	}

	return nil
}

// Positions retrieves positions from the SQL database based on provided filters
func (s *SQLStorage) Positions(ctx context.Context, filters ...core.PositionFilter) ([]*core.Position, error) {
	tx := s.db.WithContext(ctx)

	var positions []*core.Position
	if result := tx.Find(&positions); result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch positions: %w", result.Error)
	}

	// Filters are applied in memory; the tables stay small enough
	if len(filters) > 0 {
		positions = lo.Filter(positions, func(position *core.Position, _ int) bool {
			for _, filter := range filters {
				if !filter(*position) {
					return false
				}
			}
			return true
		})
	}

	return positions, nil
}

// CountOpen returns the number of OPEN positions held by a strategy
func (s *SQLStorage) CountOpen(ctx context.Context, strategyID int64) (int, error) {
	tx := s.db.WithContext(ctx)

	var count int64
	result := tx.Model(&core.Position{}).
		Where("strategy_id = ? AND status = ?", strategyID, core.PositionStatusOpen).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count open positions: %w", result.Error)
	}

	return int(count), nil
}

// Credentials returns the exchange credentials for a user, or (nil, nil)
// when none are stored
func (s *SQLStorage) Credentials(ctx context.Context, userID int64, exchange string) (*core.Credentials, error) {
	tx := s.db.WithContext(ctx)

	var credentials core.Credentials
	result := tx.Where("user_id = ? AND exchange = ?", userID, exchange).First(&credentials)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch credentials: %w", result.Error)
	}

	return &credentials, nil
}

// SaveCredentials creates or updates a user's exchange credentials
func (s *SQLStorage) SaveCredentials(ctx context.Context, credentials *core.Credentials) error {
	tx := s.db.WithContext(ctx)
	if result := tx.Save(credentials); result.Error != nil {
		return fmt.Errorf("failed to save credentials: %w", result.Error)
	}
	return nil
}

// WithTransaction executes the given function within a database transaction
func (s *SQLStorage) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
