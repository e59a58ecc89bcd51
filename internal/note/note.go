// Package note implements the off-chain secret record (C7): keypairs,
// notes, and the Poseidon commitment/nullifier formulas that bind them to
// the on-chain state machine.
//
// Grounded on wire/shielded.go's Note/commitment/nullifier shapes from
// Alex110709-obsidian-core, generalized from sha256 over raw bytes to the
// Poseidon permutations spec.md §4.6 requires.
package note

import (
	"github.com/veilpool/shieldpool/pkg/field"
	"github.com/veilpool/shieldpool/pkg/poseidon"
	"github.com/veilpool/shieldpool/pkg/types"
)

// Keypair is a spending keypair: a root secret and its two Poseidon-derived
// public components.
type Keypair struct {
	SpendingKey field.Element
}

// NullifyingKey returns nullifying_key = P2(spending_key, 1).
func (k Keypair) NullifyingKey() field.Element {
	return poseidon.P2(k.SpendingKey, field.One())
}

// MasterPublicKey returns MPK = P2(spending_key, nullifying_key).
func (k Keypair) MasterPublicKey() field.Element {
	return poseidon.P2(k.SpendingKey, k.NullifyingKey())
}

// Note is a shielded off-chain secret record. Its commitment is the only
// form of it that ever appears on-chain.
type Note struct {
	NSK    field.Element // note secret key, derived from the owner's MPK
	Token  field.Element // field-encoded token identifier
	Value  uint64
	Random field.Element // blinding factor
}

// DeriveNSK computes nsk = P2(MPK, random) for a note addressed to the
// owner whose master public key is mpk.
func DeriveNSK(mpk, random field.Element) field.Element {
	return poseidon.P2(mpk, random)
}

// Commitment computes c = P3(nsk, token, value).
func (n Note) Commitment() field.Element {
	return poseidon.P3(n.NSK, n.Token, field.FromUint64(n.Value))
}

// CommitmentHash returns the commitment encoded as a types.Hash, the form
// that crosses the on-chain boundary.
func (n Note) CommitmentHash() types.Hash {
	return n.Commitment().Hash()
}

// Nullifier computes n = P2(nullifying_key, leaf_index). Binding to the
// leaf's position rather than its commitment means a commitment re-inserted
// at a different position yields a different nullifier (spec.md §4.6).
func Nullifier(nullifyingKey field.Element, leafIndex uint64) field.Element {
	return poseidon.P2(nullifyingKey, field.FromUint64(leafIndex))
}

// NullifierHash is Nullifier encoded as a types.Hash.
func NullifierHash(nullifyingKey field.Element, leafIndex uint64) types.Hash {
	return Nullifier(nullifyingKey, leafIndex).Hash()
}

// TokenFromType reduces a token type string into a field element by
// hashing its 64-bit fnv digest through Poseidon with a fixed second
// argument, giving every token type a stable field encoding.
func TokenFromType(t types.TokenType) field.Element {
	h := fnv64a(string(t))
	return poseidon.P2(field.FromUint64(h), field.Zero())
}

// fnv64a is a small non-cryptographic string digest used only to spread a
// token type string into the field before Poseidon is applied. Two strings
// with the same 64-bit digest get the same token encoding.
func fnv64a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
