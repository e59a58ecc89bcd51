package ops

import (
	"errors"

	"github.com/veilpool/shieldpool/internal/pool"
	"github.com/veilpool/shieldpool/pkg/types"
)

// RotateVK replaces one of a pool's three verifying keys, authorised by
// presenting the admin capability bound to that pool id (spec.md §4.5.5).
// No other state is touched, and the rotation is not retroactive.
func RotateVK(p *pool.Pool, presentedCapID types.Hash, slot pool.VKSlot, newVK []byte) error {
	if err := p.RotateVK(presentedCapID, slot, newVK); err != nil {
		if errors.Is(err, pool.ErrNotAuthorised) {
			return ErrNotAuthorised
		}
		return err
	}
	return nil
}
