// Package verifier wraps the host's Groth16-over-BN254 verifier (C5),
// encoding and decoding the public-input byte layout spec.md §4.4/§6
// defines and rejecting malformed sizes before ever invoking gnark.
//
// Adapted from internal/zkp/circuits.go's CircuitManager.VerifyProof in the
// teacher repo (groth16.NewProof and groth16.NewVerifyingKey, both
// deserialized with ReadFrom), generalized from the teacher's
// single hand-rolled TransactionCircuit to one minimal gnark:",public"
// witness struct per operation, and grounded additionally on the
// LoadVerifyingKey helper shown in the zkmerkle-proof-of-solvency verifier
// (other_examples) for reading a serialized verifying key.
package verifier

import (
	"bytes"
	"errors"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/veilpool/shieldpool/pkg/field"
)

// Wire sizes, per spec.md §4.4/§6.
const (
	ProofSize            = 128
	UnshieldPublicSize    = 96  // 3 * 32
	TransferPublicSize    = 160 // 5 * 32
	SwapPublicSize        = 192 // 6 * 32
	fieldElementByteWidth = 32
)

// ErrInvalidPublicInputs is returned when a public-input byte slice's
// length does not match the operation's documented size, before the
// verifier is ever invoked (spec.md §4.4).
var ErrInvalidPublicInputs = errors.New("invalid public inputs")

// ErrInvalidProofSize is returned when the proof byte slice is not exactly
// ProofSize bytes.
var ErrInvalidProofSize = errors.New("invalid proof size")

// ErrInvalidProof is returned when the proof fails cryptographic
// verification.
var ErrInvalidProof = errors.New("invalid proof")

// Verifier holds a parsed Groth16 verifying key for one operation circuit
// and checks proofs against it.
type Verifier struct {
	vk groth16.VerifyingKey
}

// LoadVerifyingKey parses a serialized Groth16 verifying key, mirroring the
// LoadVerifyingKey helper of the zkmerkle-proof-of-solvency verifier.
func LoadVerifyingKey(vkBytes []byte) (*Verifier, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, err
	}
	return &Verifier{vk: vk}, nil
}

// splitFieldElements splits a public-input byte slice into its constituent
// 32-byte little-endian field elements, after checking wantLen matches.
func splitFieldElements(publicInputs []byte, wantLen int) ([]field.Element, error) {
	if len(publicInputs) != wantLen {
		return nil, ErrInvalidPublicInputs
	}
	n := wantLen / fieldElementByteWidth
	elems := make([]field.Element, n)
	for i := 0; i < n; i++ {
		elems[i] = field.Reduce(publicInputs[i*fieldElementByteWidth : (i+1)*fieldElementByteWidth])
	}
	return elems, nil
}

// unshieldWitness is the minimal public-input schema for the unshield
// circuit: root, nullifier, commitment_spent, in that order (spec.md §6).
type unshieldWitness struct {
	Root            frontend.Variable `gnark:",public"`
	Nullifier       frontend.Variable `gnark:",public"`
	CommitmentSpent frontend.Variable `gnark:",public"`
}

func (c *unshieldWitness) Define(api frontend.API) error { return nil }

// transferWitness is the minimal public-input schema for the transfer
// circuit: root, nullifier_1, nullifier_2, commitment_out_1,
// commitment_out_2 (spec.md §6).
type transferWitness struct {
	Root           frontend.Variable `gnark:",public"`
	Nullifier1     frontend.Variable `gnark:",public"`
	Nullifier2     frontend.Variable `gnark:",public"`
	CommitmentOut1 frontend.Variable `gnark:",public"`
	CommitmentOut2 frontend.Variable `gnark:",public"`
}

func (c *transferWitness) Define(api frontend.API) error { return nil }

// swapWitness is the minimal public-input schema for the swap circuit:
// root, nullifier_1, nullifier_2, commitment_out, commitment_change,
// swap_data_hash (spec.md §6).
type swapWitness struct {
	Root             frontend.Variable `gnark:",public"`
	Nullifier1       frontend.Variable `gnark:",public"`
	Nullifier2       frontend.Variable `gnark:",public"`
	CommitmentOut    frontend.Variable `gnark:",public"`
	CommitmentChange frontend.Variable `gnark:",public"`
	SwapDataHash     frontend.Variable `gnark:",public"`
}

func (c *swapWitness) Define(api frontend.API) error { return nil }

func verify(vk groth16.VerifyingKey, proofBytes []byte, assignment frontend.Circuit) error {
	if len(proofBytes) != ProofSize {
		return ErrInvalidProofSize
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return ErrInvalidProof
	}

	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}

	if err := groth16.Verify(proof, vk, w); err != nil {
		return ErrInvalidProof
	}
	return nil
}

// VerifyUnshield checks a Groth16 proof against the unshield public
// inputs, after validating their byte layout.
func (v *Verifier) VerifyUnshield(proofBytes, publicInputs []byte) error {
	elems, err := splitFieldElements(publicInputs, UnshieldPublicSize)
	if err != nil {
		return err
	}
	assignment := &unshieldWitness{
		Root:            elems[0].Inner(),
		Nullifier:       elems[1].Inner(),
		CommitmentSpent: elems[2].Inner(),
	}
	return verify(v.vk, proofBytes, assignment)
}

// VerifyTransfer checks a Groth16 proof against the transfer public
// inputs, after validating their byte layout.
func (v *Verifier) VerifyTransfer(proofBytes, publicInputs []byte) error {
	elems, err := splitFieldElements(publicInputs, TransferPublicSize)
	if err != nil {
		return err
	}
	assignment := &transferWitness{
		Root:           elems[0].Inner(),
		Nullifier1:     elems[1].Inner(),
		Nullifier2:     elems[2].Inner(),
		CommitmentOut1: elems[3].Inner(),
		CommitmentOut2: elems[4].Inner(),
	}
	return verify(v.vk, proofBytes, assignment)
}

// VerifySwap checks a Groth16 proof against the swap public inputs, after
// validating their byte layout.
func (v *Verifier) VerifySwap(proofBytes, publicInputs []byte) error {
	elems, err := splitFieldElements(publicInputs, SwapPublicSize)
	if err != nil {
		return err
	}
	assignment := &swapWitness{
		Root:             elems[0].Inner(),
		Nullifier1:       elems[1].Inner(),
		Nullifier2:       elems[2].Inner(),
		CommitmentOut:    elems[3].Inner(),
		CommitmentChange: elems[4].Inner(),
		SwapDataHash:     elems[5].Inner(),
	}
	return verify(v.vk, proofBytes, assignment)
}

// DecodeUnshieldPublicInputs validates and decodes the unshield public
// inputs into (root, nullifier, commitment_spent), for callers (internal/ops)
// that need the parsed values for root/nullifier bookkeeping regardless of
// whether the proof itself verifies.
func DecodeUnshieldPublicInputs(publicInputs []byte) (root, nullifier, commitment field.Element, err error) {
	elems, err := splitFieldElements(publicInputs, UnshieldPublicSize)
	if err != nil {
		return field.Element{}, field.Element{}, field.Element{}, err
	}
	return elems[0], elems[1], elems[2], nil
}

// DecodeTransferPublicInputs validates and decodes the transfer public
// inputs into (root, nullifier1, nullifier2, commitmentOut1, commitmentOut2).
func DecodeTransferPublicInputs(publicInputs []byte) (root, n1, n2, c1, c2 field.Element, err error) {
	elems, err := splitFieldElements(publicInputs, TransferPublicSize)
	if err != nil {
		return field.Element{}, field.Element{}, field.Element{}, field.Element{}, field.Element{}, err
	}
	return elems[0], elems[1], elems[2], elems[3], elems[4], nil
}

// DecodeSwapPublicInputs validates and decodes the swap public inputs into
// (root, nullifier1, nullifier2, commitmentOut, commitmentChange, swapDataHash).
func DecodeSwapPublicInputs(publicInputs []byte) (root, n1, n2, cOut, cChange, swapHash field.Element, err error) {
	elems, err := splitFieldElements(publicInputs, SwapPublicSize)
	if err != nil {
		var z field.Element
		return z, z, z, z, z, z, err
	}
	return elems[0], elems[1], elems[2], elems[3], elems[4], elems[5], nil
}
