// Encrypted note delivery (C7): an ephemeral X25519 ECDH handshake feeding
// ChaCha20-Poly1305, and the shielded address format notes are addressed
// to.
//
// Generalizes wire/shielded.go's EncryptNote/DecryptNote/DeriveSharedSecret
// (Alex110709-obsidian-core) from AES-256-GCM over a sha256-mixed "shared
// secret" to real X25519 + ChaCha20-Poly1305, keeping the same
// ephemeral-prefix serialization shape and the same "auth failure means
// not mine" classification the scanner relies on.
package note

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"

	"github.com/btcsuite/btcutil/base58"

	"github.com/veilpool/shieldpool/pkg/field"
)

// Errors returned by the encryption/decryption and address routines.
var (
	ErrNotMine           = errors.New("encrypted note does not belong to this viewing key")
	ErrBlobTooShort      = errors.New("encrypted note blob too short")
	ErrInvalidAddress    = errors.New("invalid shielded address")
	ErrPlaintextTooShort = errors.New("decrypted note plaintext too short")
)

// ViewingKeypair is the X25519 keypair granting decryption-only access to a
// recipient's incoming notes.
type ViewingKeypair struct {
	Private [32]byte
	Public  [32]byte
}

// DeriveViewingKeypair deterministically derives the viewing keypair from a
// spending key via a 256-bit hash (spec.md §4 — "Keypair"), using blake2b
// rather than sha256 so encryption key material and the field-arithmetic
// layer never share a hash function.
func DeriveViewingKeypair(spendingKey field.Element) (ViewingKeypair, error) {
	seed := spendingKey.Bytes()
	digest := blake2b.Sum256(append([]byte("shieldpool/viewing-key"), seed[:]...))

	var priv [32]byte
	copy(priv[:], digest[:])
	// Clamp per RFC 7748 so the scalar is a valid X25519 private key.
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	var pub [32]byte
	pubSlice, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return ViewingKeypair{}, err
	}
	copy(pub[:], pubSlice)

	return ViewingKeypair{Private: priv, Public: pub}, nil
}

// EncryptNote encrypts note for a recipient identified by their viewing
// public key. The wire format is
// ephemeral_pk(32) || nonce(12) || ciphertext||tag, matching the shape of
// wire/shielded.go's EncryptNote in the teacher repo.
func EncryptNote(n Note, recipientViewingPub [32]byte) ([]byte, error) {
	var ephPriv [32]byte
	if _, err := io.ReadFull(rand.Reader, ephPriv[:]); err != nil {
		return nil, err
	}
	ephPriv[0] &= 248
	ephPriv[31] &= 127
	ephPriv[31] |= 64

	ephPubSlice, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	var ephPub [32]byte
	copy(ephPub[:], ephPubSlice)

	shared, err := curve25519.X25519(ephPriv[:], recipientViewingPub[:])
	if err != nil {
		return nil, err
	}

	aead, nonce, err := buildAEAD(shared, ephPub)
	if err != nil {
		return nil, err
	}

	plaintext := serializeNote(n)
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, 32+len(nonce)+len(ciphertext))
	blob = append(blob, ephPub[:]...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// DecryptNote attempts to decrypt blob using the recipient's viewing
// private key. An authentication failure is not an error condition in the
// scanning pipeline: it means the blob was not addressed to this key, and
// callers should treat ErrNotMine as "skip, keep scanning" rather than
// surfacing it (spec.md §4.6, §7).
func DecryptNote(blob []byte, viewingPriv [32]byte) (Note, error) {
	if len(blob) < 32+chacha20poly1305.NonceSize {
		return Note{}, ErrBlobTooShort
	}

	var ephPub [32]byte
	copy(ephPub[:], blob[:32])
	nonce := blob[32 : 32+chacha20poly1305.NonceSize]
	ciphertext := blob[32+chacha20poly1305.NonceSize:]

	shared, err := curve25519.X25519(viewingPriv[:], ephPub[:])
	if err != nil {
		return Note{}, ErrNotMine
	}

	aead, _, err := buildAEAD(shared, ephPub)
	if err != nil {
		return Note{}, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Note{}, ErrNotMine
	}

	return deserializeNote(plaintext)
}

// buildAEAD derives the ChaCha20-Poly1305 AEAD and the nonce from the ECDH
// shared secret and the ephemeral public key, per spec.md §4.6 ("nonce
// derived from the ephemeral public key").
func buildAEAD(shared []byte, ephPub [32]byte) (cipher.AEAD, []byte, error) {
	keyDigest := sha256.Sum256(append([]byte("shieldpool/note-key"), shared...))
	aead, err := chacha20poly1305.New(keyDigest[:])
	if err != nil {
		return nil, nil, err
	}

	nonceDigest := sha256.Sum256(append([]byte("shieldpool/note-nonce"), ephPub[:]...))
	nonce := nonceDigest[:chacha20poly1305.NonceSize]

	return aead, nonce, nil
}

// serializeNote packs a Note's secret fields for encryption:
// value(8) || token(32) || random(32) || nsk(32).
func serializeNote(n Note) []byte {
	buf := make([]byte, 0, 8+32+32+32)
	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], n.Value)
	buf = append(buf, valueBytes[:]...)

	tokenBytes := n.Token.Bytes()
	buf = append(buf, tokenBytes[:]...)

	randomBytes := n.Random.Bytes()
	buf = append(buf, randomBytes[:]...)

	nskBytes := n.NSK.Bytes()
	buf = append(buf, nskBytes[:]...)

	return buf
}

func deserializeNote(plaintext []byte) (Note, error) {
	if len(plaintext) < 8+32+32+32 {
		return Note{}, ErrPlaintextTooShort
	}

	value := binary.LittleEndian.Uint64(plaintext[0:8])
	token := field.Reduce(plaintext[8:40])
	random := field.Reduce(plaintext[40:72])
	nsk := field.Reduce(plaintext[72:104])

	return Note{NSK: nsk, Token: token, Value: value, Random: random}, nil
}

// ShieldedAddressPrefix tags a shielded address's base58 encoding, carried
// over from Alex110709-obsidian-core's "zobs" z-address prefix.
const ShieldedAddressPrefix = "zshd"

// Address is a shielded (z-address) user-facing identifier: a master
// public key plus a viewing public key, base58-encoded with a checksum.
// Re-targets Alex110709-obsidian-core's ShieldedAddress (which carried a
// raw random public key) onto the Poseidon-derived MPK this protocol
// actually uses to address notes.
type Address struct {
	MPK        field.Element
	ViewingPub [32]byte
}

// String returns the base58-encoded address.
func (a Address) String() string {
	mpkBytes := a.MPK.Bytes()

	data := make([]byte, 0, len(ShieldedAddressPrefix)+32+32+4)
	data = append(data, []byte(ShieldedAddressPrefix)...)
	data = append(data, mpkBytes[:]...)
	data = append(data, a.ViewingPub[:]...)

	checksum := sha256.Sum256(data)
	data = append(data, checksum[:4]...)

	return base58.Encode(data)
}

// ParseAddress parses a base58-encoded shielded address.
func ParseAddress(address string) (Address, error) {
	decoded := base58.Decode(address)
	prefixLen := len(ShieldedAddressPrefix)
	minLen := prefixLen + 32 + 32 + 4
	if len(decoded) < minLen {
		return Address{}, ErrInvalidAddress
	}

	body := decoded[:len(decoded)-4]
	wantChecksum := decoded[len(decoded)-4:]
	gotChecksum := sha256.Sum256(body)
	for i := 0; i < 4; i++ {
		if wantChecksum[i] != gotChecksum[i] {
			return Address{}, ErrInvalidAddress
		}
	}

	if string(decoded[:prefixLen]) != ShieldedAddressPrefix {
		return Address{}, ErrInvalidAddress
	}

	mpk := field.Reduce(decoded[prefixLen : prefixLen+32])
	var viewingPub [32]byte
	copy(viewingPub[:], decoded[prefixLen+32:prefixLen+64])

	return Address{MPK: mpk, ViewingPub: viewingPub}, nil
}
