package ops

import (
	"context"

	"github.com/veilpool/shieldpool/internal/pool"
	"github.com/veilpool/shieldpool/internal/verifier"
	"github.com/veilpool/shieldpool/pkg/types"
)

// DexVenue is the external collaborator a swap routes its cross-pool
// exchange through, named only by interface (spec.md §1, §4.5.4) — this
// module never implements a real DEX, only the contract a swap calls.
type DexVenue interface {
	Exchange(ctx context.Context, tokenIn, tokenOut types.TokenType, amountIn, minAmountOut uint64) (amountOut uint64, err error)
}

// FixedRateDex is a deterministic DexVenue fake for tests, the same role
// the teacher's InMemoryNullifierStore/InMemoryTreeStore play for the
// tree/registry: a reference implementation of an external collaborator
// the production system never provides itself.
type FixedRateDex struct {
	// RateNumerator / RateDenominator define amountOut =
	// amountIn * RateNumerator / RateDenominator, regardless of tokenIn/tokenOut.
	RateNumerator   uint64
	RateDenominator uint64
}

// Exchange implements DexVenue.
func (d *FixedRateDex) Exchange(ctx context.Context, tokenIn, tokenOut types.TokenType, amountIn, minAmountOut uint64) (uint64, error) {
	amountOut := amountIn * d.RateNumerator / d.RateDenominator
	if amountOut < minAmountOut {
		return 0, ErrSlippageExceeded
	}
	return amountOut, nil
}

// Swap spends amount_in of poolIn's token, routes it through dex for
// poolOut's token, and deposits the change and output commitments into
// poolIn's and poolOut's trees respectively (spec.md §4.5.4). The public
// merkle_root is validated exclusively against poolIn's historical ring
// (spec.md §9 "Swap pool-root pairing") — poolOut is never asked for a
// root.
func Swap(ctx context.Context, poolIn, poolOut *pool.Pool, dex DexVenue, proof, publicInputs []byte, amountIn, minAmountOut uint64, blobChange, blobOut []byte) (*types.SwapEvent, error) {
	if len(proof) != ProofSize {
		return nil, ErrInvalidProofSize
	}
	if len(publicInputs) != verifier.SwapPublicSize {
		return nil, ErrInvalidPublicInputs
	}

	root, n1, n2, cOut, cChange, _, err := verifier.DecodeSwapPublicInputs(publicInputs)
	if err != nil {
		return nil, ErrInvalidPublicInputs
	}
	rootHash := root.Hash()
	n1Hash, n2Hash := n1.Hash(), n2.Hash()
	cOutHash, cChangeHash := cOut.Hash(), cChange.Hash()

	if !poolIn.Tree.IsValidRoot(rootHash) {
		return nil, ErrInvalidRoot
	}

	for _, n := range [2]types.Hash{n1Hash, n2Hash} {
		spent, err := poolIn.Nullifiers.Contains(ctx, n)
		if err != nil {
			return nil, err
		}
		if spent {
			return nil, ErrDoubleSpend
		}
	}

	v, err := verifier.LoadVerifyingKey(poolIn.VK(pool.SwapVK))
	if err != nil {
		return nil, err
	}
	if err := v.VerifySwap(proof, publicInputs); err != nil {
		return nil, ErrInvalidProof
	}

	if err := poolIn.Debit(amountIn); err != nil {
		return nil, err
	}

	amountOut, err := dex.Exchange(ctx, poolIn.Token, poolOut.Token, amountIn, minAmountOut)
	if err != nil {
		poolIn.Credit(amountIn) // undo the debit: the DEX call failed, nothing else mutated yet
		return nil, err
	}

	poolOut.Credit(amountOut)

	if err := poolIn.Nullifiers.Insert(ctx, n1Hash); err != nil {
		return nil, err
	}
	if err := poolIn.Nullifiers.Insert(ctx, n2Hash); err != nil {
		return nil, err
	}

	changePosition, err := poolIn.Tree.Insert(ctx, cChangeHash)
	if err != nil {
		return nil, err
	}
	outputPosition, err := poolOut.Tree.Insert(ctx, cOutHash)
	if err != nil {
		return nil, err
	}

	return &types.SwapEvent{
		PoolInID:         poolIn.ID,
		PoolOutID:        poolOut.ID,
		InputNullifiers:  [2]types.Hash{n1Hash, n2Hash},
		ChangePosition:   changePosition,
		OutputPosition:   outputPosition,
		ChangeCommitment: cChangeHash,
		OutputCommitment: cOutHash,
		EncryptedNotes:   [2][]byte{blobChange, blobOut},
		AmountIn:         amountIn,
		AmountOut:        amountOut,
	}, nil
}
