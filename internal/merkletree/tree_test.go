package merkletree

import (
	"context"
	"testing"

	"github.com/veilpool/shieldpool/pkg/poseidon"
	"github.com/veilpool/shieldpool/pkg/types"
)

func leafHash(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestEmptyTreeRootIsZeroLadder(t *testing.T) {
	tree := New(NewInMemoryStore())
	if tree.Root() != poseidon.ZeroLadder[Depth].Hash() {
		t.Error("empty tree root should equal ZeroLadder[Depth]")
	}
	if tree.Size() != 0 {
		t.Error("empty tree should have size 0")
	}
}

func TestInsertAndPath(t *testing.T) {
	ctx := context.Background()
	tree := New(NewInMemoryStore())

	leaves := []types.Hash{leafHash(1), leafHash(2), leafHash(3), leafHash(4)}
	for i, leaf := range leaves {
		pos, err := tree.Insert(ctx, leaf)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if pos != uint64(i) {
			t.Errorf("expected position %d, got %d", i, pos)
		}
	}

	root := tree.Root()
	if root == (types.Hash{}) {
		t.Fatal("root should not be empty after inserts")
	}

	path, err := tree.GetPath(ctx, 0)
	if err != nil {
		t.Fatalf("get path: %v", err)
	}
	if !VerifyPath(leaves[0], path, root) {
		t.Error("expected path for leaf 0 to verify against current root")
	}

	path3, err := tree.GetPath(ctx, 3)
	if err != nil {
		t.Fatalf("get path: %v", err)
	}
	if !VerifyPath(leaves[3], path3, root) {
		t.Error("expected path for leaf 3 to verify against current root")
	}

	if VerifyPath(leaves[0], path3, root) {
		t.Error("leaf 0 should not verify against leaf 3's path")
	}
}

func TestHistoricalRootWindow(t *testing.T) {
	ctx := context.Background()
	tree := New(NewInMemoryStore())

	var roots []types.Hash
	for i := 0; i < 101; i++ {
		_, err := tree.Insert(ctx, leafHash(byte(i)))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		roots = append(roots, tree.Root())
	}

	// Root observed after the 50th insert (index 49) is still within the
	// last-100 window.
	if !tree.IsValidRoot(roots[49]) {
		t.Error("root within the historical window should be valid")
	}

	// Root observed after the very first insert (index 0) has been evicted
	// by the 101st insert.
	if tree.IsValidRoot(roots[0]) {
		t.Error("root evicted past the 100-entry window should be invalid")
	}

	if !tree.IsValidRoot(tree.Root()) {
		t.Error("current root must always be valid")
	}
}

func TestTreeFull(t *testing.T) {
	// Exercising the real depth-16 capacity (65536 leaves) is too slow for
	// a unit test; this test documents and exercises the boundary check via
	// a size pre-set to full capacity through direct store manipulation.
	ctx := context.Background()
	store := NewInMemoryStore()
	store.SetSize(ctx, uint64(1)<<Depth)
	tree := New(store)
	if err := tree.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	_, err := tree.Insert(ctx, leafHash(1))
	if err != ErrTreeFull {
		t.Errorf("expected ErrTreeFull, got %v", err)
	}
}
