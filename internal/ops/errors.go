// Package ops implements the four value-moving pool operations (C6):
// shield, unshield, transfer, and swap, each following the shared
// six-step preamble spec.md §4.5 lays out, plus admin VK rotation.
//
// Generalizes internal/zkp/transaction.go's ShieldedPool.ProcessTransaction
// (anchor check → nullifier check → proof check → mutate) in the teacher
// repo and Alex110709-obsidian-core/blockchain/shielded_pool.go's
// ProcessShieldedTransaction (nullifiers-then-commitments-then-balance
// ordering, ValidateShieldedTransaction pre-check shape).
package ops

import (
	"errors"

	"github.com/veilpool/shieldpool/internal/merkletree"
	"github.com/veilpool/shieldpool/internal/pool"
)

// The full failure taxonomy from spec.md §7, each a bare package-level
// sentinel so a host can switch on errors.Is and map it to its own abort
// code, the same convention internal/zkp/*.go and
// internal/storage/postgres.go use throughout the teacher.
var (
	// Structural.
	ErrInvalidPublicInputs = errors.New("invalid public inputs")
	ErrInvalidProofSize    = errors.New("invalid proof size")
	ErrWrongTokenType      = errors.New("wrong token type")

	// Consistency.
	ErrInvalidRoot = errors.New("invalid merkle root")
	ErrDoubleSpend = errors.New("double spend")

	// Cryptographic.
	ErrInvalidProof = errors.New("invalid proof")

	// Economic. ErrInsufficientBalance is the sentinel pool.Debit returns.
	ErrInsufficientBalance = pool.ErrInsufficientBalance
	ErrSlippageExceeded    = errors.New("slippage exceeded")

	// Capacity. ErrTreeFull is the sentinel merkletree.Tree.Insert returns.
	ErrTreeFull = merkletree.ErrTreeFull

	// Authorisation.
	ErrNotAuthorised = errors.New("not authorised")

	// ErrZeroValue rejects a shield of non-positive value (spec.md §4.5.1,
	// "a token coin of value v>0").
	ErrZeroValue = errors.New("shield value must be positive")
)

// ProofSize is the fixed Groth16 proof byte length (spec.md §4.4, §6).
const ProofSize = 128
