// Package poseidon provides the fixed-arity Poseidon permutations the
// protocol hashes with: P2 for tree nodes and key derivation, P3 for note
// commitments, P5 for the swap intent digest. All three are built on
// gnark-crypto's bn254/fr Poseidon sponge, the same package the
// zkmerkle-proof-of-solvency verifier in the example pack uses
// (poseidon.NewPoseidon / poseidon.PoseidonBytes), so the round constants
// and MDS matrix are shared byte-for-byte with anything else in the
// ecosystem built on gnark-crypto — the single-source-of-truth requirement
// spec.md §4.1 calls out ("any divergence breaks root agreement").
package poseidon

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon"

	"github.com/veilpool/shieldpool/pkg/field"
)

func hashElements(elems ...field.Element) field.Element {
	bufs := make([][]byte, len(elems))
	for i, e := range elems {
		b := e.Bytes()
		// poseidon.PoseidonBytes treats its inputs as big-endian field
		// element encodings; our wire/Element convention is little-endian,
		// so reverse before handing off.
		be := make([]byte, 32)
		for j := 0; j < 32; j++ {
			be[j] = b[31-j]
		}
		bufs[i] = be
	}
	out := poseidon.PoseidonBytes(bufs[0], bufs[1:]...)
	return field.Reduce(reverse(out))
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// P2 is the 2-input permutation used for tree node hashing, MPK derivation,
// nsk derivation and nullifier derivation.
func P2(a, b field.Element) field.Element {
	return hashElements(a, b)
}

// P3 is the 3-input permutation used for note commitments:
// c = P3(nsk, token, value).
func P3(a, b, c field.Element) field.Element {
	return hashElements(a, b, c)
}

// P5 is the 5-input permutation used for the swap intent digest:
// swap_data_hash = P5(T_in, T_out, amount_in, min_amount_out, dex_pool_id).
func P5(a, b, c, d, e field.Element) field.Element {
	return hashElements(a, b, c, d, e)
}

// Depth is the fixed depth of the commitment tree (spec.md §3, §4.2).
const Depth = 16

// ZeroLadder is the precomputed table of empty-subtree roots:
// ZeroLadder[0] = 0, ZeroLadder[i] = P2(ZeroLadder[i-1], ZeroLadder[i-1]).
// The root of an empty tree of depth Depth equals ZeroLadder[Depth].
var ZeroLadder = buildZeroLadder()

func buildZeroLadder() [Depth + 1]field.Element {
	var table [Depth + 1]field.Element
	table[0] = field.Zero()
	for i := 1; i <= Depth; i++ {
		table[i] = P2(table[i-1], table[i-1])
	}
	return table
}
