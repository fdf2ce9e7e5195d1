// Package exchange provides the adapter registry used to resolve a
// strategy's exchange name to a concrete market data and order
// execution implementation, along with trading pair helpers.
package exchange

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/helixtrade/momentum/core"
)

// Registry maps exchange names to registered adapters. A strategy
// referencing an unregistered exchange is a configuration error, not a
// transient failure, and resolution fails loudly.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]core.Exchange
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]core.Exchange),
	}
}

// Register adds an adapter under the given exchange name.
// Names are case-insensitive; registering twice replaces the adapter.
func (r *Registry) Register(name string, adapter core.Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(name)] = adapter
}

// Exchange resolves an adapter by exchange name
func (r *Registry) Exchange(name string) (core.Exchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedExchange, name)
	}

	return adapter, nil
}

// Names returns the registered exchange names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
