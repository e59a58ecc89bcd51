package ops

import (
	"context"

	"github.com/veilpool/shieldpool/internal/pool"
	"github.com/veilpool/shieldpool/internal/verifier"
	"github.com/veilpool/shieldpool/pkg/types"
)

// Unshield burns a spent commitment and pays amount out to a transparent
// recipient. Public inputs are (root, nullifier, commitment_spent); amount
// is not itself a circuit input (spec.md §4.5.2, §9 "Unshield amount
// binding") — the circuit named as an external collaborator is responsible
// for constraining commitment_spent's preimage value to equal amount; this
// function only enforces the public-input byte layout and the state
// predicates it can actually check.
func Unshield(ctx context.Context, p *pool.Pool, proof, publicInputs []byte, amount uint64, recipient types.Address) (*types.UnshieldEvent, error) {
	if len(proof) != ProofSize {
		return nil, ErrInvalidProofSize
	}
	if len(publicInputs) != verifier.UnshieldPublicSize {
		return nil, ErrInvalidPublicInputs
	}

	root, nullifierElem, _, err := verifier.DecodeUnshieldPublicInputs(publicInputs)
	if err != nil {
		return nil, ErrInvalidPublicInputs
	}
	rootHash := root.Hash()
	nullifierHash := nullifierElem.Hash()

	if !p.Tree.IsValidRoot(rootHash) {
		return nil, ErrInvalidRoot
	}

	spent, err := p.Nullifiers.Contains(ctx, nullifierHash)
	if err != nil {
		return nil, err
	}
	if spent {
		return nil, ErrDoubleSpend
	}

	v, err := verifier.LoadVerifyingKey(p.VK(pool.UnshieldVK))
	if err != nil {
		return nil, err
	}
	if err := v.VerifyUnshield(proof, publicInputs); err != nil {
		return nil, ErrInvalidProof
	}

	if err := p.Nullifiers.Insert(ctx, nullifierHash); err != nil {
		return nil, err
	}

	if err := p.Debit(amount); err != nil {
		return nil, err
	}

	return &types.UnshieldEvent{
		PoolID:    p.ID,
		Nullifier: nullifierHash,
		Amount:    amount,
		Recipient: recipient,
	}, nil
}
