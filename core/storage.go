package core

import "context"

// PositionFilter defines a function type for filtering positions
type PositionFilter func(position Position) bool

// StrategyStore provides read access to user strategies
type StrategyStore interface {
	// ListActive returns every strategy with IsActive=true across all
	// users and exchanges
	ListActive(ctx context.Context) ([]*Strategy, error)

	// Strategy returns a single strategy by id
	Strategy(ctx context.Context, id int64) (*Strategy, error)
}

// PositionStore defines the interface for position persistence
type PositionStore interface {
	// CreatePosition stores a new position
	CreatePosition(ctx context.Context, position *Position) error

	// UpdatePosition updates an existing position
	UpdatePosition(ctx context.Context, position *Position) error

	// Positions retrieves positions based on provided filters
	Positions(ctx context.Context, filters ...PositionFilter) ([]*Position, error)

	// CountOpen returns the number of OPEN positions for a strategy
	CountOpen(ctx context.Context, strategyID int64) (int, error)
}

// CredentialStore provides per-user exchange credentials.
// A (nil, nil) return means no credentials exist for the pair; the
// caller skips the strategy rather than treating it as an error.
type CredentialStore interface {
	Credentials(ctx context.Context, userID int64, exchange string) (*Credentials, error)
}

func WithStatus(status PositionStatus) PositionFilter {
	return func(position Position) bool {
		return position.Status == status
	}
}

func WithUser(userID int64) PositionFilter {
	return func(position Position) bool {
		return position.UserID == userID
	}
}

func WithExchange(exchange string) PositionFilter {
	return func(position Position) bool {
		return position.Exchange == exchange
	}
}

func WithStrategy(strategyID int64) PositionFilter {
	return func(position Position) bool {
		return position.StrategyID == strategyID
	}
}

func WithPair(pair string) PositionFilter {
	return func(position Position) bool {
		return position.Pair == pair
	}
}
