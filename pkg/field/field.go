// Package field wraps the BN254 scalar field arithmetic used throughout the
// pool: every commitment, nullifier, and tree node is an element of F_r.
//
// This is a thin adapter over gnark-crypto's fr.Element (the same type
// internal/zkp/pedersen.go in the teacher repo samples for Pedersen
// blinders), giving the rest of the module a stable, pool-specific surface
// with the 32-byte little-endian wire convention spec.md §3 requires.
package field

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/veilpool/shieldpool/pkg/types"
)

// Element is a BN254 scalar field element.
type Element struct {
	inner fr.Element
}

// Zero returns the additive identity.
func Zero() Element {
	return Element{}
}

// One returns the multiplicative identity.
func One() Element {
	var e Element
	e.inner.SetOne()
	return e
}

// FromUint64 builds an Element from a 64-bit unsigned integer.
func FromUint64(v uint64) Element {
	var e Element
	e.inner.SetUint64(v)
	return e
}

// Reduce interprets b as a 32-byte little-endian integer and reduces it
// modulo r, per the "all byte encodings ... reduced modulo r on input" rule
// in spec.md §3. Inputs longer than 32 bytes are truncated to the first 32.
func Reduce(b []byte) Element {
	var buf [32]byte
	n := copy(buf[:], b)
	_ = n
	// fr.Element.SetBytes expects big-endian; our wire convention is
	// little-endian, so reverse before delegating.
	var be [32]byte
	for i := 0; i < 32; i++ {
		be[i] = buf[31-i]
	}
	var e Element
	e.inner.SetBytes(be[:])
	return e
}

// FromHash reduces a types.Hash (32-byte little-endian) into an Element.
func FromHash(h types.Hash) Element {
	return Reduce(h[:])
}

// Bytes returns the 32-byte little-endian encoding of e.
func (e Element) Bytes() [32]byte {
	be := e.inner.Bytes() // big-endian, canonical
	var le [32]byte
	for i := 0; i < 32; i++ {
		le[i] = be[31-i]
	}
	return le
}

// Hash returns e encoded as a types.Hash.
func (e Element) Hash() types.Hash {
	return types.Hash(e.Bytes())
}

// Add returns a + b mod r.
func Add(a, b Element) Element {
	var out Element
	out.inner.Add(&a.inner, &b.inner)
	return out
}

// Sub returns a - b mod r.
func Sub(a, b Element) Element {
	var out Element
	out.inner.Sub(&a.inner, &b.inner)
	return out
}

// Mul returns a * b mod r.
func Mul(a, b Element) Element {
	var out Element
	out.inner.Mul(&a.inner, &b.inner)
	return out
}

// Inverse returns a^-1 mod r. The zero element has no inverse; Inverse
// returns the zero element in that case, matching fr.Element's convention.
func Inverse(a Element) Element {
	var out Element
	out.inner.Inverse(&a.inner)
	return out
}

// Equal reports whether a and b represent the same field element.
func Equal(a, b Element) bool {
	return a.inner.Equal(&b.inner)
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return e.inner.IsZero()
}

// Inner exposes the underlying fr.Element for packages (poseidon, the
// verifier adapter) that must hand it directly to gnark-crypto or gnark
// APIs.
func (e Element) Inner() fr.Element {
	return e.inner
}

// FromInner wraps an fr.Element produced by gnark-crypto or gnark.
func FromInner(fe fr.Element) Element {
	return Element{inner: fe}
}
