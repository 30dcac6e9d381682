// Package state implements the journaled world state the interpreter
// executes against: an account and storage cache over a read-only
// database, with an ordered journal of reversible mutations providing
// call-frame checkpoint, commit, and revert.
package state

import (
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/crypto"
)

// Database is the read-only lookup capability supplied by the host. Every
// method may fail with a host-defined error; such errors abort the
// transaction without consuming it.
type Database interface {
	// Basic returns the account info for addr, or nil if the account
	// does not exist.
	Basic(addr types.Address) (*types.Account, error)

	// CodeByHash returns the code for the given code hash.
	CodeByHash(hash types.Hash) ([]byte, error)

	// Storage returns the committed value of the given storage slot.
	Storage(addr types.Address, key types.Hash) (types.Hash, error)

	// BlockHash returns the hash of the block with the given number.
	BlockHash(number uint64) (types.Hash, error)
}

// MemoryDB is a map-backed Database used as the reference implementation
// in tests and by embedders as a fixture store.
type MemoryDB struct {
	accounts map[types.Address]types.Account
	codes    map[types.Hash][]byte
	storage  map[types.Address]map[types.Hash]types.Hash
	blocks   map[uint64]types.Hash
}

// NewMemoryDB creates an empty in-memory database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		accounts: make(map[types.Address]types.Account),
		codes:    make(map[types.Hash][]byte),
		storage:  make(map[types.Address]map[types.Hash]types.Hash),
		blocks:   make(map[uint64]types.Hash),
	}
}

// InsertAccount sets the account info for addr.
func (db *MemoryDB) InsertAccount(addr types.Address, acc types.Account) {
	db.accounts[addr] = acc
}

// InsertCode stores code under its keccak hash and returns the hash.
func (db *MemoryDB) InsertCode(code []byte) types.Hash {
	hash := crypto.Keccak256Hash(code)
	db.codes[hash] = append([]byte(nil), code...)
	return hash
}

// InsertContract installs an account with the given code.
func (db *MemoryDB) InsertContract(addr types.Address, acc types.Account, code []byte) {
	acc.CodeHash = db.InsertCode(code)
	db.accounts[addr] = acc
}

// InsertStorage sets a committed storage slot.
func (db *MemoryDB) InsertStorage(addr types.Address, key, value types.Hash) {
	slots := db.storage[addr]
	if slots == nil {
		slots = make(map[types.Hash]types.Hash)
		db.storage[addr] = slots
	}
	slots[key] = value
}

// InsertBlockHash sets the hash for a block number.
func (db *MemoryDB) InsertBlockHash(number uint64, hash types.Hash) {
	db.blocks[number] = hash
}

// Basic implements Database.
func (db *MemoryDB) Basic(addr types.Address) (*types.Account, error) {
	if acc, ok := db.accounts[addr]; ok {
		c := acc.Copy()
		return &c, nil
	}
	return nil, nil
}

// CodeByHash implements Database.
func (db *MemoryDB) CodeByHash(hash types.Hash) ([]byte, error) {
	if hash == types.KeccakEmpty || hash.IsZero() {
		return nil, nil
	}
	return db.codes[hash], nil
}

// Storage implements Database.
func (db *MemoryDB) Storage(addr types.Address, key types.Hash) (types.Hash, error) {
	return db.storage[addr][key], nil
}

// BlockHash implements Database.
func (db *MemoryDB) BlockHash(number uint64) (types.Hash, error) {
	return db.blocks[number], nil
}
