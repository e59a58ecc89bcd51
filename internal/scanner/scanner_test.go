package scanner

import (
	"context"
	"sync"
	"testing"

	"github.com/veilpool/shieldpool/internal/note"
	"github.com/veilpool/shieldpool/internal/nullifier"
	"github.com/veilpool/shieldpool/pkg/field"
	"github.com/veilpool/shieldpool/pkg/types"
)

// fakeEventSource serves a fixed, pre-built event log, exactly the shape a
// real host's paginated event index would present.
type fakeEventSource struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeEventSource) FetchPage(ctx context.Context, after types.Cursor, limit int) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, e := range f.events {
		if !after.Less(e.Cursor) {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memCursorStore struct {
	mu      sync.Mutex
	cursors map[string]types.Cursor
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{cursors: make(map[string]types.Cursor)}
}

func (m *memCursorStore) GetCursor(ctx context.Context, scanID string) (types.Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[scanID], nil
}

func (m *memCursorStore) SetCursor(ctx context.Context, scanID string, cursor types.Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[scanID] = cursor
	return nil
}

func buildNote(t *testing.T, mpk field.Element, random, token field.Element, value uint64) note.Note {
	t.Helper()
	nsk := note.DeriveNSK(mpk, random)
	return note.Note{NSK: nsk, Token: token, Value: value, Random: random}
}

// TestScannerReconstructsOwnedNotes mirrors spec.md §8 scenario 6: given
// the event log from a shield of two notes followed by an unshield of one,
// a cold-start scanner recovers exactly the remaining spendable note.
func TestScannerReconstructsOwnedNotes(t *testing.T) {
	ctx := context.Background()

	kp := note.Keypair{SpendingKey: field.FromUint64(42)}
	vk, err := note.DeriveViewingKeypair(kp.SpendingKey)
	if err != nil {
		t.Fatalf("derive viewing keypair: %v", err)
	}
	mpk := kp.MasterPublicKey()
	token := field.FromUint64(1)

	n1 := buildNote(t, mpk, field.FromUint64(100), token, 500)
	n2 := buildNote(t, mpk, field.FromUint64(200), token, 300)

	blob1, err := note.EncryptNote(n1, vk.Public)
	if err != nil {
		t.Fatalf("encrypt n1: %v", err)
	}
	blob2, err := note.EncryptNote(n2, vk.Public)
	if err != nil {
		t.Fatalf("encrypt n2: %v", err)
	}

	poolID := types.PoolID{1}
	events := []Event{
		{
			Cursor: types.Cursor{Block: 0, Index: 1},
			Kind:   KindShield,
			Shield: &types.ShieldEvent{PoolID: poolID, Position: 0, Commitment: n1.CommitmentHash(), EncryptedNote: blob1},
		},
		{
			Cursor: types.Cursor{Block: 0, Index: 2},
			Kind:   KindShield,
			Shield: &types.ShieldEvent{PoolID: poolID, Position: 1, Commitment: n2.CommitmentHash(), EncryptedNote: blob2},
		},
		{
			Cursor:   types.Cursor{Block: 0, Index: 3},
			Kind:     KindUnshield,
			Unshield: &types.UnshieldEvent{PoolID: poolID, Nullifier: note.NullifierHash(kp.NullifyingKey(), 0), Amount: 500},
		},
	}

	source := &fakeEventSource{events: events}
	cursors := newMemCursorStore()
	onChain := nullifier.New(nullifier.NewInMemoryStore())

	s := New("pool1/owner1", kp, vk, source, cursors, onChain)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Scan(ctx, 10); err != nil {
		t.Fatalf("scan: %v", err)
	}

	spendable, err := s.SpendableNotes(ctx)
	if err != nil {
		t.Fatalf("spendable notes: %v", err)
	}
	if len(spendable) != 1 {
		t.Fatalf("expected 1 spendable note, got %d", len(spendable))
	}
	if spendable[0].Position != 1 || spendable[0].Note.Value != 300 {
		t.Errorf("unexpected spendable note: %+v", spendable[0])
	}

	// A full rescan from genesis must reproduce the identical owned-note
	// set (spec.md §4.7 — idempotent rescans).
	s.Reset()
	if err := s.Scan(ctx, 10); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	rescanned, err := s.SpendableNotes(ctx)
	if err != nil {
		t.Fatalf("spendable notes after rescan: %v", err)
	}
	if len(rescanned) != 1 || rescanned[0].Position != 1 || rescanned[0].Note.Value != 300 {
		t.Errorf("rescan produced a different owned-note set: %+v", rescanned)
	}
}

func TestScannerGapDetection(t *testing.T) {
	ctx := context.Background()

	kp := note.Keypair{SpendingKey: field.FromUint64(7)}
	vk, err := note.DeriveViewingKeypair(kp.SpendingKey)
	if err != nil {
		t.Fatalf("derive viewing keypair: %v", err)
	}

	poolID := types.PoolID{1}
	events := []Event{
		{
			Cursor: types.Cursor{Block: 0, Index: 1},
			Kind:   KindShield,
			// position 1, but nothing has been inserted at position 0 yet.
			Shield: &types.ShieldEvent{PoolID: poolID, Position: 1, Commitment: types.Hash{1}, EncryptedNote: nil},
		},
	}

	source := &fakeEventSource{events: events}
	cursors := newMemCursorStore()
	onChain := nullifier.New(nullifier.NewInMemoryStore())

	s := New("pool1/owner2", kp, vk, source, cursors, onChain)
	if err := s.Scan(ctx, 10); err != ErrGapDetected {
		t.Fatalf("expected ErrGapDetected, got %v", err)
	}

	if _, err := s.SpendableNotes(ctx); err != ErrGapDetected {
		t.Errorf("expected SpendableNotes to refuse after a gap, got %v", err)
	}
}
