package nullifier

import (
	"context"
	"testing"

	"github.com/veilpool/shieldpool/pkg/types"
)

func TestInsertAndDoubleSpend(t *testing.T) {
	ctx := context.Background()
	reg := New(NewInMemoryStore())

	n := types.Hash{1, 2, 3}

	spent, err := reg.Contains(ctx, n)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if spent {
		t.Error("fresh nullifier should not be spent")
	}

	if err := reg.Insert(ctx, n); err != nil {
		t.Fatalf("first insert should succeed: %v", err)
	}

	spent, err = reg.Contains(ctx, n)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !spent {
		t.Error("nullifier should be spent after insert")
	}

	if err := reg.Insert(ctx, n); err != ErrDoubleSpend {
		t.Errorf("expected ErrDoubleSpend on re-insert, got %v", err)
	}
}

func TestDistinctNullifiersIndependent(t *testing.T) {
	ctx := context.Background()
	reg := New(NewInMemoryStore())

	a := types.Hash{1}
	b := types.Hash{2}

	if err := reg.Insert(ctx, a); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := reg.Insert(ctx, b); err != nil {
		t.Fatalf("insert b should succeed independently of a: %v", err)
	}
}
