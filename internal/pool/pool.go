// Package pool implements the per-token pool state container (C4): token
// balance, commitment tree, nullifier registry, the three operation VKs,
// and the admin capability authorising VK rotation.
//
// Grounded on internal/zkp/transaction.go's ShieldedPool struct in the
// teacher repo (same balance/tree/nullifiers/vk grouping, same sync.Mutex
// belt-and-braces locking) and on Alex110709-obsidian-core's
// blockchain/shielded_pool.go ShieldedPool for the admin-capability shape.
package pool

import (
	"errors"
	"sync"

	"github.com/veilpool/shieldpool/internal/merkletree"
	"github.com/veilpool/shieldpool/internal/nullifier"
	"github.com/veilpool/shieldpool/pkg/types"
)

// ErrNotAuthorised is returned when a caller presents the wrong admin
// capability for VK rotation.
var ErrNotAuthorised = errors.New("not authorised")

// ErrInsufficientBalance is returned when an operation would draw more
// value out of the pool than it holds.
var ErrInsufficientBalance = errors.New("insufficient balance")

// VKSlot names one of the three operation verifying keys a pool holds.
type VKSlot int

const (
	UnshieldVK VKSlot = iota
	TransferVK
	SwapVK
)

// Pool is the long-lived mutable aggregate for one token type: balance,
// tree, nullifier registry, and the three VKs. The host chain's
// transaction-execution model already gives one transaction exclusive
// access to the pool object (spec.md §5); the mutex here is a defensive
// belt for embeddings that don't provide that guarantee on their own, not
// a substitute for it.
type Pool struct {
	mu sync.Mutex

	ID      types.PoolID
	Token   types.TokenType
	Balance uint64

	Tree       *merkletree.Tree
	Nullifiers *nullifier.Registry

	unshieldVK []byte
	transferVK []byte
	swapVK     []byte

	AdminCapID types.Hash
}

// New constructs a pool for token type token, with fresh tree/registry
// stores and the three VKs supplied at creation (spec.md §6
// create_pool<T>).
func New(id types.PoolID, token types.TokenType, adminCapID types.Hash, unshieldVK, transferVK, swapVK []byte, treeStore merkletree.Store, nullifierStore nullifier.Store) *Pool {
	return &Pool{
		ID:         id,
		Token:      token,
		Tree:       merkletree.New(treeStore),
		Nullifiers: nullifier.New(nullifierStore),
		unshieldVK: unshieldVK,
		transferVK: transferVK,
		swapVK:     swapVK,
		AdminCapID: adminCapID,
	}
}

// VK returns the current verifying key bytes for the given slot.
func (p *Pool) VK(slot VKSlot) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vkLocked(slot)
}

func (p *Pool) vkLocked(slot VKSlot) []byte {
	switch slot {
	case UnshieldVK:
		return p.unshieldVK
	case TransferVK:
		return p.transferVK
	case SwapVK:
		return p.swapVK
	default:
		return nil
	}
}

// RotateVK authorises and performs a VK rotation. There is no grace
// window: as soon as this returns, proofs generated against the previous
// VK will fail to verify. The rotation is not retroactive — scanners
// replaying historical events are unaffected, since past operations were
// already verified and committed under the VK in force at the time
// (spec.md §4.5.5, §9 "VK rotation safety").
func (p *Pool) RotateVK(presentedCapID types.Hash, slot VKSlot, newVK []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if presentedCapID != p.AdminCapID {
		return ErrNotAuthorised
	}

	switch slot {
	case UnshieldVK:
		p.unshieldVK = newVK
	case TransferVK:
		p.transferVK = newVK
	case SwapVK:
		p.swapVK = newVK
	}
	return nil
}

// Credit adds v to the pool's balance (shield, or a swap's output side).
func (p *Pool) Credit(v uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Balance += v
}

// Debit subtracts v from the pool's balance (unshield, or a swap's input
// side), failing with ErrInsufficientBalance if v exceeds the current
// balance.
func (p *Pool) Debit(v uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v > p.Balance {
		return ErrInsufficientBalance
	}
	p.Balance -= v
	return nil
}

// Stats reports a snapshot of pool state for diagnostics, mirroring the
// teacher's map[string]interface{} Stats() idiom
// (blockchain/shielded_pool.go Stats()).
func (p *Pool) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{
		"pool_id":    p.ID,
		"token":      p.Token,
		"balance":    p.Balance,
		"tree_size":  p.Tree.Size(),
		"tree_root":  p.Tree.Root(),
	}
}
