// Package merkletree implements the fixed-depth, append-only commitment
// tree (C2): incremental inserts, O(depth) root recomputation, and a
// bounded historical-root ring that tolerates a prover racing a concurrent
// writer.
//
// Structurally this generalizes internal/zkp/merkle.go from the teacher
// repo (same TreeStore persistence seam, same right-frontier update loop)
// to the spec's fixed depth-16 tree and Poseidon P2 node hash, and adds the
// historical root ring spec.md §4.2 requires.
package merkletree

import (
	"context"
	"errors"
	"sync"

	"github.com/veilpool/shieldpool/pkg/field"
	"github.com/veilpool/shieldpool/pkg/poseidon"
	"github.com/veilpool/shieldpool/pkg/types"
)

// Depth is the fixed tree depth (capacity 2^Depth leaves), per spec.md §3.
const Depth = poseidon.Depth

// HistoricalRootWindow is the size of the FIFO ring of past roots a proof
// may still be validated against (spec.md §4.2, the "H" constant).
const HistoricalRootWindow = 100

// Errors returned by Tree operations.
var (
	ErrTreeFull        = errors.New("merkle tree is full")
	ErrLeafNotFound    = errors.New("leaf not found in tree")
	ErrInvalidPosition = errors.New("invalid position")
)

// Store persists tree node state so a Tree can survive process restarts.
// Mirrors the teacher's TreeStore interface exactly.
type Store interface {
	GetNode(ctx context.Context, level, index uint64) (types.Hash, error)
	SetNode(ctx context.Context, level, index uint64, hash types.Hash) error
	GetRoot(ctx context.Context) (types.Hash, error)
	SetRoot(ctx context.Context, root types.Hash) error
	GetSize(ctx context.Context) (uint64, error)
	SetSize(ctx context.Context, size uint64) error
}

// Tree is the incremental commitment Merkle tree for a single pool.
type Tree struct {
	mu sync.RWMutex

	size uint64
	root types.Hash

	store Store

	// historicalRoots is a FIFO ring of the last HistoricalRootWindow
	// distinct roots this tree has held, oldest first.
	historicalRoots []types.Hash
}

// New creates a Tree backed by store. The tree starts empty; call
// Initialize to load any state the store already holds.
func New(store Store) *Tree {
	t := &Tree{store: store}
	t.root = poseidon.ZeroLadder[Depth].Hash()
	return t
}

// Initialize loads persisted root/size state from the store, falling back
// to the empty tree if the store has nothing yet.
func (t *Tree) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	root, err := t.store.GetRoot(ctx)
	if err != nil {
		t.root = poseidon.ZeroLadder[Depth].Hash()
		t.size = 0
		return nil
	}
	t.root = root

	size, err := t.store.GetSize(ctx)
	if err != nil {
		t.size = 0
	} else {
		t.size = size
	}
	if t.size == 0 {
		t.root = poseidon.ZeroLadder[Depth].Hash()
	}
	return nil
}

// Insert appends leaf at the next free position, updates the root, and
// pushes the new root onto the historical ring. Returns the leaf's position.
func (t *Tree) Insert(ctx context.Context, leaf types.Hash) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	maxLeaves := uint64(1) << Depth
	if t.size >= maxLeaves {
		return 0, ErrTreeFull
	}

	position := t.size
	t.size++

	if err := t.store.SetNode(ctx, 0, position, leaf); err != nil {
		t.size--
		return 0, err
	}

	currentHash := field.FromHash(leaf)
	currentIndex := position

	for level := 0; level < Depth; level++ {
		siblingIndex := currentIndex ^ 1
		siblingHash, err := t.store.GetNode(ctx, uint64(level), siblingIndex)
		if err != nil {
			siblingHash = poseidon.ZeroLadder[level].Hash()
		}
		sibling := field.FromHash(siblingHash)

		var parent field.Element
		if currentIndex%2 == 0 {
			parent = poseidon.P2(currentHash, sibling)
		} else {
			parent = poseidon.P2(sibling, currentHash)
		}

		currentIndex /= 2
		currentHash = parent

		if err := t.store.SetNode(ctx, uint64(level+1), currentIndex, parent.Hash()); err != nil {
			return 0, err
		}
	}

	t.root = currentHash.Hash()
	if err := t.store.SetRoot(ctx, t.root); err != nil {
		return 0, err
	}
	if err := t.store.SetSize(ctx, t.size); err != nil {
		return 0, err
	}

	t.pushHistoricalRoot(t.root)

	return position, nil
}

// pushHistoricalRoot appends root to the FIFO ring, evicting the oldest
// entry once the ring exceeds HistoricalRootWindow. Caller must hold t.mu.
func (t *Tree) pushHistoricalRoot(root types.Hash) {
	t.historicalRoots = append(t.historicalRoots, root)
	if len(t.historicalRoots) > HistoricalRootWindow {
		t.historicalRoots = t.historicalRoots[len(t.historicalRoots)-HistoricalRootWindow:]
	}
}

// Root returns the current tree root.
func (t *Tree) Root() types.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Size returns the number of leaves inserted so far.
func (t *Tree) Size() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// IsValidRoot reports whether candidate is the current root or still
// present in the historical ring — the predicate spec.md §4.2 and §8
// require every proof's anchor to satisfy.
func (t *Tree) IsValidRoot(candidate types.Hash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if candidate == t.root {
		return true
	}
	for _, r := range t.historicalRoots {
		if r == candidate {
			return true
		}
	}
	return false
}

// Path is a Merkle authentication path from a leaf to the root.
type Path struct {
	Siblings     []types.Hash
	PathBits     []bool // true = current node is the right child at this level
	LeafPosition uint64
}

// GetPath returns the authentication path for the leaf at position.
func (t *Tree) GetPath(ctx context.Context, position uint64) (*Path, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if position >= t.size {
		return nil, ErrInvalidPosition
	}

	siblings := make([]types.Hash, Depth)
	pathBits := make([]bool, Depth)

	currentIndex := position
	for level := 0; level < Depth; level++ {
		siblingIndex := currentIndex ^ 1
		siblingHash, err := t.store.GetNode(ctx, uint64(level), siblingIndex)
		if err != nil {
			siblingHash = poseidon.ZeroLadder[level].Hash()
		}
		siblings[level] = siblingHash
		pathBits[level] = currentIndex%2 == 1
		currentIndex /= 2
	}

	return &Path{Siblings: siblings, PathBits: pathBits, LeafPosition: position}, nil
}

// VerifyPath recomputes the root from leaf and path and reports whether it
// equals expectedRoot — the reference recomputation spec.md §8 checks every
// insert against.
func VerifyPath(leaf types.Hash, path *Path, expectedRoot types.Hash) bool {
	if len(path.Siblings) != Depth || len(path.PathBits) != Depth {
		return false
	}

	current := field.FromHash(leaf)
	for i := 0; i < Depth; i++ {
		sibling := field.FromHash(path.Siblings[i])
		if path.PathBits[i] {
			current = poseidon.P2(sibling, current)
		} else {
			current = poseidon.P2(current, sibling)
		}
	}
	return current.Hash() == expectedRoot
}

// InMemoryStore is a map-backed Store, kept for tests and for embedding in
// processes that don't need cross-restart durability — the same role
// the teacher's InMemoryTreeStore plays.
type InMemoryStore struct {
	mu    sync.RWMutex
	nodes map[uint64]map[uint64]types.Hash
	root  types.Hash
	size  uint64
}

// NewInMemoryStore creates an empty in-memory tree store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nodes: make(map[uint64]map[uint64]types.Hash)}
}

func (s *InMemoryStore) GetNode(ctx context.Context, level, index uint64) (types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	levelMap, ok := s.nodes[level]
	if !ok {
		return types.EmptyHash, ErrLeafNotFound
	}
	hash, ok := levelMap[index]
	if !ok {
		return types.EmptyHash, ErrLeafNotFound
	}
	return hash, nil
}

func (s *InMemoryStore) SetNode(ctx context.Context, level, index uint64, hash types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodes[level] == nil {
		s.nodes[level] = make(map[uint64]types.Hash)
	}
	s.nodes[level][index] = hash
	return nil
}

func (s *InMemoryStore) GetRoot(ctx context.Context) (types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root, nil
}

func (s *InMemoryStore) SetRoot(ctx context.Context, root types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
	return nil
}

func (s *InMemoryStore) GetSize(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size, nil
}

func (s *InMemoryStore) SetSize(ctx context.Context, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = size
	return nil
}
