package state

import (
	"sort"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/params"
)

// AccountDiff is the final state of one account after a transaction.
type AccountDiff struct {
	Address types.Address
	Info    types.Account
	Code    []byte
	Storage map[types.Hash]types.Hash // changed slots only (present != original)
	Deleted bool                      // selfdestructed, or swept as empty (EIP-161)
	Created bool
}

// StateDiff is the committed outcome of a transaction: the set of touched
// accounts with their final values, ready to be applied to the backing
// store by the host.
type StateDiff struct {
	Accounts []AccountDiff
}

// Finalize converts the journaled state into a StateDiff and resets the
// journal for the next transaction. Touched empty accounts are removed
// per EIP-161 (post Spurious Dragon); transient storage, logs, warm sets,
// and the journal itself are wiped.
func (j *Journal) Finalize() *StateDiff {
	diff := &StateDiff{}
	addrs := make([]types.Address, 0, len(j.accounts))
	for addr := range j.accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, k int) bool {
		a, b := addrs[i], addrs[k]
		for n := 0; n < types.AddressLength; n++ {
			if a[n] != b[n] {
				return a[n] < b[n]
			}
		}
		return false
	})

	for _, addr := range addrs {
		acc := j.accounts[addr]
		entry := AccountDiff{
			Address: addr,
			Info:    acc.info.Copy(),
			Code:    acc.code,
			Created: acc.newlyCreated,
		}
		switch {
		case acc.selfdestructed:
			entry.Deleted = true
		case j.spec.Enabled(params.SpuriousDragon) && acc.touched && acc.empty():
			entry.Deleted = true
		case !acc.exists && !acc.touched:
			// Loaded but never materialized; nothing to report.
			continue
		}
		if !entry.Deleted {
			for key, slot := range acc.storage {
				if slot.present != slot.original {
					if entry.Storage == nil {
						entry.Storage = make(map[types.Hash]types.Hash)
					}
					entry.Storage[key] = slot.present
				}
			}
		}
		diff.Accounts = append(diff.Accounts, entry)
	}

	j.accounts = make(map[types.Address]*cachedAccount)
	j.transient = make(map[slotKey]types.Hash)
	j.logs = nil
	j.entries = nil
	j.warmAddresses = make(map[types.Address]struct{})
	j.warmSlots = make(map[slotKey]struct{})
	for addr := range j.precompiles {
		j.warmAddresses[addr] = struct{}{}
	}
	return diff
}
