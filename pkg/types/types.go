// Package types defines the wire-level data shapes shared across the
// shielded pool: field-element hashes, pool identifiers, and the events
// emitted by successful operations.
package types

import "encoding/hex"

// HashSize is the size in bytes of a BN254 scalar field element encoded
// little-endian, reduced modulo r.
const HashSize = 32

// Hash is a 32-byte little-endian encoding of a BN254 scalar field element.
// It is used for commitments, nullifiers, roots and any other field-valued
// quantity that crosses a wire boundary.
type Hash [HashSize]byte

// EmptyHash is the zero field element.
var EmptyHash = Hash{}

// IsEmpty reports whether h is the zero hash.
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// String returns the hex encoding of h, most-significant byte first (i.e.
// the reverse of the little-endian wire order) for human readability.
func (h Hash) String() string {
	rev := make([]byte, HashSize)
	for i := 0; i < HashSize; i++ {
		rev[i] = h[HashSize-1-i]
	}
	return hex.EncodeToString(rev)
}

// HashFromBytes copies up to HashSize bytes of b into the start of a Hash,
// leaving the trailing bytes zero if b is shorter.
func HashFromBytes(b []byte) Hash {
	var h Hash
	if len(b) >= HashSize {
		copy(h[:], b[:HashSize])
	} else {
		copy(h[:], b)
	}
	return h
}

// AddressSize is the size in bytes of a public (transparent) recipient
// address, as provided by the host chain's object model.
const AddressSize = 32

// Address identifies a transparent recipient for unshield payouts.
type Address [AddressSize]byte

// PoolID identifies a pool object on the host chain.
type PoolID Hash

// String returns the hex encoding of the pool id, matching Hash.String.
func (p PoolID) String() string {
	return Hash(p).String()
}

// TokenType names the fungible token type a pool is parameterised over.
// The host's object model owns the real type tag; this is the string form
// operations and events carry.
type TokenType string

// ShieldEvent is emitted when value enters the pool.
type ShieldEvent struct {
	PoolID        PoolID
	Position      uint64
	Commitment    Hash
	EncryptedNote []byte
}

// TransferEvent is emitted by a successful shielded-to-shielded transfer.
type TransferEvent struct {
	PoolID            PoolID
	InputNullifiers   [2]Hash
	OutputPositions   [2]uint64
	OutputCommitments [2]Hash
	EncryptedNotes    [2][]byte
}

// UnshieldEvent is emitted when value exits the pool to a transparent
// address.
type UnshieldEvent struct {
	PoolID    PoolID
	Nullifier Hash
	Amount    uint64
	Recipient Address
}

// SwapEvent is emitted by a successful cross-pool swap.
type SwapEvent struct {
	PoolInID          PoolID
	PoolOutID         PoolID
	InputNullifiers   [2]Hash
	ChangePosition    uint64
	OutputPosition    uint64
	ChangeCommitment  Hash
	OutputCommitment  Hash
	EncryptedNotes    [2][]byte
	AmountIn          uint64
	AmountOut         uint64
}

// Cursor identifies a position in an ordered event stream: a (block,
// intra-block index) pair, matching the host's canonical event order.
type Cursor struct {
	Block uint64
	Index uint64
}

// Less reports whether c sorts strictly before other in canonical order.
func (c Cursor) Less(other Cursor) bool {
	if c.Block != other.Block {
		return c.Block < other.Block
	}
	return c.Index < other.Index
}
