package note

import (
	"testing"

	"github.com/veilpool/shieldpool/pkg/field"
	"github.com/veilpool/shieldpool/pkg/types"
)

func TestCommitmentDeterministic(t *testing.T) {
	n := Note{
		NSK:    field.FromUint64(1),
		Token:  field.FromUint64(2),
		Value:  1_000_000,
		Random: field.FromUint64(3),
	}

	c1 := n.Commitment()
	c2 := n.Commitment()
	if !field.Equal(c1, c2) {
		t.Error("commitment should be deterministic")
	}

	n2 := n
	n2.Value = n.Value + 1
	if field.Equal(n2.Commitment(), c1) {
		t.Error("changing value should change the commitment")
	}
}

func TestNullifierBindsToPosition(t *testing.T) {
	kp := Keypair{SpendingKey: field.FromUint64(42)}
	nk := kp.NullifyingKey()

	n1 := Nullifier(nk, 5)
	n2 := Nullifier(nk, 5)
	if !field.Equal(n1, n2) {
		t.Error("nullifier derivation should be deterministic")
	}

	n3 := Nullifier(nk, 6)
	if field.Equal(n1, n3) {
		t.Error("different leaf_index should give a different nullifier")
	}
}

func TestNSKDerivationAndCommitmentRoundtrip(t *testing.T) {
	kp := Keypair{SpendingKey: field.FromUint64(7)}
	mpk := kp.MasterPublicKey()
	random := field.FromUint64(99)

	nsk := DeriveNSK(mpk, random)

	n := Note{NSK: nsk, Token: field.FromUint64(1), Value: 500, Random: random}
	c := n.CommitmentHash()
	if c == (types.Hash{}) {
		t.Error("commitment hash should not be zero for a nonzero note")
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	kp := Keypair{SpendingKey: field.FromUint64(11)}
	vk, err := DeriveViewingKeypair(kp.SpendingKey)
	if err != nil {
		t.Fatalf("derive viewing keypair: %v", err)
	}

	mpk := kp.MasterPublicKey()
	random := field.FromUint64(123)
	nsk := DeriveNSK(mpk, random)
	n := Note{NSK: nsk, Token: field.FromUint64(1), Value: 2_500_000, Random: random}

	blob, err := EncryptNote(n, vk.Public)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	decrypted, err := DecryptNote(blob, vk.Private)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	if decrypted.Value != n.Value {
		t.Errorf("expected value %d, got %d", n.Value, decrypted.Value)
	}
	if !field.Equal(decrypted.Commitment(), n.Commitment()) {
		t.Error("decrypted note should reproduce the original commitment")
	}
}

func TestDecryptWithWrongKeyIsNotMine(t *testing.T) {
	kpOwner := Keypair{SpendingKey: field.FromUint64(1)}
	vkOwner, _ := DeriveViewingKeypair(kpOwner.SpendingKey)

	kpOther := Keypair{SpendingKey: field.FromUint64(2)}
	vkOther, _ := DeriveViewingKeypair(kpOther.SpendingKey)

	n := Note{NSK: field.FromUint64(5), Token: field.FromUint64(1), Value: 1, Random: field.FromUint64(6)}
	blob, err := EncryptNote(n, vkOwner.Public)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := DecryptNote(blob, vkOther.Private); err != ErrNotMine {
		t.Errorf("expected ErrNotMine, got %v", err)
	}
}

func TestShieldedAddressRoundtrip(t *testing.T) {
	kp := Keypair{SpendingKey: field.FromUint64(55)}
	vk, err := DeriveViewingKeypair(kp.SpendingKey)
	if err != nil {
		t.Fatalf("derive viewing keypair: %v", err)
	}

	addr := Address{MPK: kp.MasterPublicKey(), ViewingPub: vk.Public}
	s := addr.String()

	parsed, err := ParseAddress(s)
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}

	if !field.Equal(parsed.MPK, addr.MPK) {
		t.Error("parsed MPK should match original")
	}
	if parsed.ViewingPub != addr.ViewingPub {
		t.Error("parsed viewing public key should match original")
	}
}
