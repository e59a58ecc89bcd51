package ops

import (
	"context"

	"github.com/veilpool/shieldpool/internal/pool"
	"github.com/veilpool/shieldpool/internal/verifier"
	"github.com/veilpool/shieldpool/pkg/types"
)

// Transfer spends two input notes (or one input and a zero-valued dummy)
// and produces two output commitments, preserving value under a contract
// the circuit enforces but this function never re-checks (spec.md §4.5.3).
// Both nullifiers are validated absent before either is inserted, so a
// double-spend on either aborts with no partial mutation.
func Transfer(ctx context.Context, p *pool.Pool, proof, publicInputs []byte, blob1, blob2 []byte) (*types.TransferEvent, error) {
	if len(proof) != ProofSize {
		return nil, ErrInvalidProofSize
	}
	if len(publicInputs) != verifier.TransferPublicSize {
		return nil, ErrInvalidPublicInputs
	}

	root, n1, n2, c1, c2, err := verifier.DecodeTransferPublicInputs(publicInputs)
	if err != nil {
		return nil, ErrInvalidPublicInputs
	}
	rootHash := root.Hash()
	n1Hash, n2Hash := n1.Hash(), n2.Hash()
	c1Hash, c2Hash := c1.Hash(), c2.Hash()

	if !p.Tree.IsValidRoot(rootHash) {
		return nil, ErrInvalidRoot
	}

	for _, n := range [2]types.Hash{n1Hash, n2Hash} {
		spent, err := p.Nullifiers.Contains(ctx, n)
		if err != nil {
			return nil, err
		}
		if spent {
			return nil, ErrDoubleSpend
		}
	}

	v, err := verifier.LoadVerifyingKey(p.VK(pool.TransferVK))
	if err != nil {
		return nil, err
	}
	if err := v.VerifyTransfer(proof, publicInputs); err != nil {
		return nil, ErrInvalidProof
	}

	if err := p.Nullifiers.Insert(ctx, n1Hash); err != nil {
		return nil, err
	}
	if err := p.Nullifiers.Insert(ctx, n2Hash); err != nil {
		return nil, err
	}

	pos1, err := p.Tree.Insert(ctx, c1Hash)
	if err != nil {
		return nil, err
	}
	pos2, err := p.Tree.Insert(ctx, c2Hash)
	if err != nil {
		return nil, err
	}

	return &types.TransferEvent{
		PoolID:            p.ID,
		InputNullifiers:   [2]types.Hash{n1Hash, n2Hash},
		OutputPositions:   [2]uint64{pos1, pos2},
		OutputCommitments: [2]types.Hash{c1Hash, c2Hash},
		EncryptedNotes:    [2][]byte{blob1, blob2},
	}, nil
}
