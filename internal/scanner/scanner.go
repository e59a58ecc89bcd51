// Package scanner implements the client-side note scanner (C8): it
// consumes a paginated, cursor-addressed stream of pool events, mirrors
// the commitment tree locally, trial-decrypts every note blob against one
// owner's viewing key, and cross-references nullifiers against both its
// own spent-set and the pool's on-chain registry to compute the set of
// currently spendable notes.
//
// This has no direct teacher analogue (m1zr-ccoin ships no client wallet),
// so it is grounded on the consumer-loop shape of internal/p2p/node.go's
// subscription dispatch (cursor-driven pagination instead of pubsub
// delivery) and on internal/nullifier.Registry's Contains/Insert split,
// reused here as the "on-chain registry" half of the spendable-note
// cross-reference.
package scanner

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/veilpool/shieldpool/internal/merkletree"
	"github.com/veilpool/shieldpool/internal/note"
	"github.com/veilpool/shieldpool/internal/poollog"
	"github.com/veilpool/shieldpool/pkg/types"
)

// ErrGapDetected is returned once a missing commitment position is
// observed. The scanner stops advancing its tree mirror and refuses to
// compute proofs until a rescan fills the gap (spec.md §4.7).
var ErrGapDetected = errors.New("gap detected in commitment stream")

// EventKind discriminates the three event shapes FetchPage may return.
type EventKind int

const (
	KindShield EventKind = iota
	KindTransfer
	KindUnshield
)

// Event is one entry in the host's canonical, cursor-ordered event stream.
type Event struct {
	Cursor   types.Cursor
	Kind     EventKind
	Shield   *types.ShieldEvent
	Transfer *types.TransferEvent
	Unshield *types.UnshieldEvent
}

// EventSource is the host's event index, named only by interface per
// spec.md §1 ("external collaborator"). FetchPage returns up to limit
// events strictly after the given cursor, in canonical (block, index)
// order.
type EventSource interface {
	FetchPage(ctx context.Context, after types.Cursor, limit int) ([]Event, error)
}

// CursorStore persists the last-processed cursor so a restarted scanner
// resumes instead of rescanning from genesis.
type CursorStore interface {
	GetCursor(ctx context.Context, scanID string) (types.Cursor, error)
	SetCursor(ctx context.Context, scanID string, cursor types.Cursor) error
}

// NullifierChecker queries the pool's on-chain registry. internal/nullifier.
// Registry satisfies this directly.
type NullifierChecker interface {
	Contains(ctx context.Context, n types.Hash) (bool, error)
}

// OwnedNote is a note this scanner's owner can spend, pending the
// spendability cross-reference in SpendableNotes.
type OwnedNote struct {
	Position   uint64
	Note       note.Note
	Commitment types.Hash
	Nullifier  types.Hash
}

// Scanner reconstructs one pool's owned-note set for a single owner. It is
// documented single-threaded per owner (spec.md §5); multiple owners scan
// independently, each with its own Scanner.
type Scanner struct {
	mu sync.Mutex

	scanID  string
	keypair note.Keypair
	viewing note.ViewingKeypair

	source  EventSource
	cursors CursorStore
	onChain NullifierChecker

	tree *merkletree.Tree

	owned          map[uint64]*OwnedNote
	nullifierIndex map[types.Hash]uint64
	localSpent     map[types.Hash]struct{}

	cursor types.Cursor
	gap    bool
}

// New creates a Scanner for one owner's keypair, identified by scanID for
// cursor persistence (e.g. "<pool_id>/<mpk>").
func New(scanID string, kp note.Keypair, vk note.ViewingKeypair, source EventSource, cursors CursorStore, onChain NullifierChecker) *Scanner {
	return &Scanner{
		scanID:         scanID,
		keypair:        kp,
		viewing:        vk,
		source:         source,
		cursors:        cursors,
		onChain:        onChain,
		tree:           merkletree.New(merkletree.NewInMemoryStore()),
		owned:          make(map[uint64]*OwnedNote),
		nullifierIndex: make(map[types.Hash]uint64),
		localSpent:     make(map[types.Hash]struct{}),
	}
}

// Load restores the last-persisted cursor, allowing an incremental scan
// instead of a full rescan from genesis.
func (s *Scanner) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor, err := s.cursors.GetCursor(ctx, s.scanID)
	if err != nil {
		return err
	}
	s.cursor = cursor
	return nil
}

// Reset clears all local scan state, forcing the next Scan call to perform
// a full rescan from genesis. A full rescan must reproduce the identical
// owned-note set (spec.md §4.7 — idempotent rescans).
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = merkletree.New(merkletree.NewInMemoryStore())
	s.owned = make(map[uint64]*OwnedNote)
	s.nullifierIndex = make(map[types.Hash]uint64)
	s.localSpent = make(map[types.Hash]struct{})
	s.cursor = types.Cursor{}
	s.gap = false
}

// Scan fetches and processes pages of events until the source reports
// nothing new, persisting the cursor after each page. It stops immediately
// and returns ErrGapDetected the first time a commitment arrives out of
// order.
func (s *Scanner) Scan(ctx context.Context, pageSize int) error {
	for {
		s.mu.Lock()
		after := s.cursor
		s.mu.Unlock()

		events, err := s.source.FetchPage(ctx, after, pageSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		s.mu.Lock()
		for _, ev := range events {
			if err := s.processEvent(ctx, ev); err != nil {
				s.mu.Unlock()
				return err
			}
			s.cursor = ev.Cursor
		}
		cursor := s.cursor
		s.mu.Unlock()

		if err := s.cursors.SetCursor(ctx, s.scanID, cursor); err != nil {
			return err
		}
		if len(events) < pageSize {
			return nil
		}
	}
}

// processEvent must be called with s.mu held.
func (s *Scanner) processEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case KindShield:
		return s.ingestCommitment(ctx, ev.Shield.Position, ev.Shield.Commitment, ev.Shield.EncryptedNote)
	case KindTransfer:
		for _, n := range ev.Transfer.InputNullifiers {
			s.markSpent(n)
		}
		for i, pos := range ev.Transfer.OutputPositions {
			if err := s.ingestCommitment(ctx, pos, ev.Transfer.OutputCommitments[i], ev.Transfer.EncryptedNotes[i]); err != nil {
				return err
			}
		}
		return nil
	case KindUnshield:
		s.markSpent(ev.Unshield.Nullifier)
		return nil
	default:
		return nil
	}
}

// ingestCommitment inserts a new leaf into the local tree mirror in strict
// emission order and attempts to trial-decrypt its note blob. Must be
// called with s.mu held.
func (s *Scanner) ingestCommitment(ctx context.Context, position uint64, commitment types.Hash, blob []byte) error {
	if s.gap {
		return ErrGapDetected
	}
	if position != s.tree.Size() {
		s.gap = true
		poollog.WithFields(map[string]interface{}{
			"scan_id": s.scanID, "expected": s.tree.Size(), "got": position,
		}).Warn("gap detected in commitment stream")
		return ErrGapDetected
	}

	if _, err := s.tree.Insert(ctx, commitment); err != nil {
		return err
	}

	n, err := note.DecryptNote(blob, s.viewing.Private)
	if errors.Is(err, note.ErrNotMine) {
		return nil
	}
	if err != nil {
		return err
	}
	if n.CommitmentHash() != commitment {
		poollog.WithFields(map[string]interface{}{
			"scan_id": s.scanID, "position": position,
		}).Warn("decrypted note commitment does not match chain commitment, skipping")
		return nil
	}

	nullifyingKey := s.keypair.NullifyingKey()
	nullifierHash := note.NullifierHash(nullifyingKey, position)

	s.owned[position] = &OwnedNote{
		Position:   position,
		Note:       n,
		Commitment: commitment,
		Nullifier:  nullifierHash,
	}
	s.nullifierIndex[nullifierHash] = position
	return nil
}

// markSpent records n as locally spent if it belongs to one of this
// owner's notes; nullifiers that are not ours are silently ignored (the
// scanner only tracks its own owner's notes, spec.md §4.7 point 5).
func (s *Scanner) markSpent(n types.Hash) {
	if _, ok := s.nullifierIndex[n]; ok {
		s.localSpent[n] = struct{}{}
	}
}

// SpendableNotes returns the notes this owner can currently spend: owned,
// not locally marked spent, and absent from the on-chain nullifier
// registry. Returns ErrGapDetected if a gap has not yet been resolved by a
// rescan.
func (s *Scanner) SpendableNotes(ctx context.Context) ([]OwnedNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gap {
		return nil, ErrGapDetected
	}

	var out []OwnedNote
	for _, n := range s.owned {
		if _, spent := s.localSpent[n.Nullifier]; spent {
			continue
		}
		onChainSpent, err := s.onChain.Contains(ctx, n.Nullifier)
		if err != nil {
			return nil, err
		}
		if onChainSpent {
			continue
		}
		out = append(out, *n)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// Root returns the scanner's local tree mirror root, expected to equal the
// on-chain root after every processed event (spec.md §4.7 point 5).
func (s *Scanner) Root() types.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Root()
}

// Proof returns a Merkle authentication path for the note at position.
// Returns ErrGapDetected if a gap has not yet been resolved.
func (s *Scanner) Proof(ctx context.Context, position uint64) (*merkletree.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gap {
		return nil, ErrGapDetected
	}
	return s.tree.GetPath(ctx, position)
}
