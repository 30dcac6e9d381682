package state

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
)

// journalEntry is one reversible state mutation. Entries carry the
// affected address (or slot) and the prior value needed to reconstruct
// it; they never own the authoritative account data, which lives in the
// cache.
type journalEntry interface {
	revert(s *Journal)
}

// Checkpoint marks a position in the journal and the log buffer, captured
// at frame entry. Reverting to a checkpoint undoes every mutation and log
// recorded after it.
type Checkpoint struct {
	journalLen int
	logLen     int
}

// accountLoaded records the first materialization of an account in the
// cache. Revert evicts the cache entry so a later access reloads from the
// database.
type accountLoaded struct {
	addr types.Address
}

func (e accountLoaded) revert(s *Journal) {
	delete(s.accounts, e.addr)
}

// accountWarmed records an address entering the warm set (EIP-2929).
type accountWarmed struct {
	addr types.Address
}

func (e accountWarmed) revert(s *Journal) {
	delete(s.warmAddresses, e.addr)
}

// storageWarmed records a slot entering the warm set (EIP-2929).
type storageWarmed struct {
	addr types.Address
	key  types.Hash
}

func (e storageWarmed) revert(s *Journal) {
	delete(s.warmSlots, slotKey{e.addr, e.key})
}

// accountTouched records the first touch of an account (EIP-161).
type accountTouched struct {
	addr types.Address
}

func (e accountTouched) revert(s *Journal) {
	if acc := s.accounts[e.addr]; acc != nil {
		acc.touched = false
	}
}

// accountCreated records that an account was created in this transaction
// (relevant for EIP-6780 selfdestruct semantics).
type accountCreated struct {
	addr       types.Address
	prevExists bool
}

func (e accountCreated) revert(s *Journal) {
	if acc := s.accounts[e.addr]; acc != nil {
		acc.newlyCreated = false
		acc.exists = e.prevExists
	}
}

// accountDestroyed records a SELFDESTRUCT, including whether the account
// was already scheduled for destruction so repeated destructs revert
// cleanly.
type accountDestroyed struct {
	addr           types.Address
	target         types.Address
	wasDestroyed   bool
	prevBalance    *uint256.Int
}

func (e accountDestroyed) revert(s *Journal) {
	if acc := s.accounts[e.addr]; acc != nil {
		acc.selfdestructed = e.wasDestroyed
		acc.info.Balance = new(uint256.Int).Set(e.prevBalance)
	}
}

// balanceChanged records a balance mutation with the old value.
type balanceChanged struct {
	addr types.Address
	prev *uint256.Int
}

func (e balanceChanged) revert(s *Journal) {
	if acc := s.accounts[e.addr]; acc != nil {
		acc.info.Balance = new(uint256.Int).Set(e.prev)
	}
}

// nonceChanged records a nonce mutation with the old value.
type nonceChanged struct {
	addr types.Address
	prev uint64
}

func (e nonceChanged) revert(s *Journal) {
	if acc := s.accounts[e.addr]; acc != nil {
		acc.info.Nonce = e.prev
	}
}

// codeChanged records a code installation with the old code hash.
type codeChanged struct {
	addr     types.Address
	prevHash types.Hash
	prevCode []byte
}

func (e codeChanged) revert(s *Journal) {
	if acc := s.accounts[e.addr]; acc != nil {
		acc.info.CodeHash = e.prevHash
		acc.code = e.prevCode
	}
}

// storageChanged records a storage write with the prior present value.
// The slot's original value is never revised (set once on first access).
type storageChanged struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (e storageChanged) revert(s *Journal) {
	if acc := s.accounts[e.addr]; acc != nil {
		if slot := acc.storage[e.key]; slot != nil {
			slot.present = e.prev
		}
	}
}

// transientChanged records a transient storage write (EIP-1153) so it
// reverts with the frame.
type transientChanged struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (e transientChanged) revert(s *Journal) {
	k := slotKey{e.addr, e.key}
	if e.prev.IsZero() {
		delete(s.transient, k)
	} else {
		s.transient[k] = e.prev
	}
}
