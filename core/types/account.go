package types

import "github.com/holiman/uint256"

// KeccakEmpty is the keccak-256 hash of the empty byte string, the code
// hash of every account without code.
var KeccakEmpty = HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

// Account holds the consensus-relevant fields of an Ethereum account.
type Account struct {
	Balance  *uint256.Int
	Nonce    uint64
	CodeHash Hash
}

// NewAccount returns a fresh account with zero balance, zero nonce, and
// the empty code hash.
func NewAccount() Account {
	return Account{Balance: new(uint256.Int), CodeHash: KeccakEmpty}
}

// Empty reports whether the account is empty per EIP-161: zero balance,
// zero nonce, no code.
func (a *Account) Empty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) &&
		(a.CodeHash == KeccakEmpty || a.CodeHash.IsZero())
}

// HasCode reports whether the account has deployed code.
func (a *Account) HasCode() bool {
	return a.CodeHash != KeccakEmpty && !a.CodeHash.IsZero()
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() Account {
	c := *a
	if a.Balance != nil {
		c.Balance = new(uint256.Int).Set(a.Balance)
	}
	return c
}
