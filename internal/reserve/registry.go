package reserve

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Registry owns the mapping from currency pair to reserve account. Accounts
// live for the registry's lifetime; they are created once and only ever read
// or mutated through their own operations.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{accounts: make(map[string]*Account)}
}

// Create builds a new account for the pair and registers it.
func (r *Registry) Create(pair string, supplyFactor, startPrice, reserveBalance decimal.Decimal, opts ...Option) (*Account, error) {
	acc, err := New(pair, supplyFactor, startPrice, reserveBalance, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[pair]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, pair)
	}
	r.accounts[pair] = acc
	return acc, nil
}

// Get returns the account for the pair.
func (r *Registry) Get(pair string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pair)
	}
	return acc, nil
}

// List returns all accounts ordered by currency pair.
func (r *Registry) List() []*Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair() < out[j].Pair() })
	return out
}

// Pairs returns the registered currency pairs in sorted order.
func (r *Registry) Pairs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.accounts))
	for pair := range r.accounts {
		out = append(out, pair)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered accounts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
