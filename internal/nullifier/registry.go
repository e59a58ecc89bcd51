// Package nullifier implements the spent-nullifier registry (C3): an
// append-only, unbounded set with expected-O(1) membership, guarding every
// pool operation against double-spends.
//
// Adapted from internal/zkp/nullifier.go in the teacher repo, which splits
// an in-memory cache from a durable Store behind the same two-method
// contract. The teacher bounds its cache with a "remove the first key found"
// eviction policy sized for a full node's recent-activity window; the spec
// frames the registry as monotonic and logically unbounded (I4), so that
// eviction policy is dropped here in favour of an unbounded cache — the
// durable Store remains the source of truth for anything evicted from
// process memory across restarts.
package nullifier

import (
	"context"
	"errors"
	"sync"

	"github.com/veilpool/shieldpool/pkg/types"
)

// ErrDoubleSpend is returned when a nullifier is inserted twice.
var ErrDoubleSpend = errors.New("nullifier already spent")

// Store persists nullifier membership durably.
type Store interface {
	Has(ctx context.Context, n types.Hash) (bool, error)
	Add(ctx context.Context, n types.Hash) error
}

// Registry is the per-pool set of spent nullifiers.
type Registry struct {
	mu    sync.RWMutex
	cache map[types.Hash]struct{}
	store Store
}

// New creates a Registry backed by store.
func New(store Store) *Registry {
	return &Registry{
		cache: make(map[types.Hash]struct{}),
		store: store,
	}
}

// Contains reports whether n has already been spent.
func (r *Registry) Contains(ctx context.Context, n types.Hash) (bool, error) {
	r.mu.RLock()
	_, inCache := r.cache[n]
	r.mu.RUnlock()
	if inCache {
		return true, nil
	}
	return r.store.Has(ctx, n)
}

// Insert records n as spent. It is idempotent-fail: inserting an
// already-present nullifier returns ErrDoubleSpend and leaves the registry
// unchanged (I4 — once present, never removed, and never re-added).
func (r *Registry) Insert(ctx context.Context, n types.Hash) error {
	spent, err := r.Contains(ctx, n)
	if err != nil {
		return err
	}
	if spent {
		return ErrDoubleSpend
	}

	if err := r.store.Add(ctx, n); err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[n] = struct{}{}
	r.mu.Unlock()

	return nil
}

// InMemoryStore is a map-backed Store for tests and standalone use.
type InMemoryStore struct {
	mu sync.RWMutex
	ns map[types.Hash]struct{}
}

// NewInMemoryStore creates an empty in-memory nullifier store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{ns: make(map[types.Hash]struct{})}
}

func (s *InMemoryStore) Has(ctx context.Context, n types.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ns[n]
	return ok, nil
}

func (s *InMemoryStore) Add(ctx context.Context, n types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ns[n]; ok {
		return ErrDoubleSpend
	}
	s.ns[n] = struct{}{}
	return nil
}

// Size returns the number of nullifiers recorded.
func (s *InMemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ns)
}
