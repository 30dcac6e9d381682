package types

import "github.com/holiman/uint256"

// Authorization is one EIP-7702 authorization tuple: a signed statement by
// an EOA that its code slot should delegate to Address. The signing payload
// is keccak256(0x05 || rlp([chain_id, address, nonce])).
type Authorization struct {
	ChainID *uint256.Int
	Address Address
	Nonce   uint64
	YParity uint8
	R, S    *uint256.Int
}

// SetCodeAuthorizationMagic prefixes the EIP-7702 authorization signing
// payload.
const SetCodeAuthorizationMagic = 0x05
