package ops

import (
	"context"

	"github.com/veilpool/shieldpool/internal/pool"
	"github.com/veilpool/shieldpool/pkg/types"
)

// Shield deposits value v of p's token type into the pool, inserting
// commitment c at the next tree position and emitting a ShieldEvent. No
// proof is required: the depositor is public, and privacy comes only from
// the commitment being indistinguishable from every other leaf in the tree
// (spec.md §4.5.1).
func Shield(ctx context.Context, p *pool.Pool, token types.TokenType, v uint64, commitment types.Hash, blob []byte) (*types.ShieldEvent, error) {
	if token != p.Token {
		return nil, ErrWrongTokenType
	}
	if v == 0 {
		return nil, ErrZeroValue
	}

	position, err := p.Tree.Insert(ctx, commitment)
	if err != nil {
		return nil, err
	}

	p.Credit(v)

	return &types.ShieldEvent{
		PoolID:        p.ID,
		Position:      position,
		Commitment:    commitment,
		EncryptedNote: blob,
	}, nil
}
