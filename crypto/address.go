package crypto

import (
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/rlp"
)

// CreateAddress computes the address of a contract created with CREATE:
// keccak256(rlp([sender, nonce]))[12:].
func CreateAddress(sender types.Address, nonce uint64) types.Address {
	var payload []byte
	payload = rlp.AppendBytes(payload, sender.Bytes())
	payload = rlp.AppendUint(payload, nonce)
	return types.BytesToAddress(Keccak256(rlp.WrapList(payload))[12:])
}

// CreateAddress2 computes the address of a contract created with CREATE2:
// keccak256(0xff ++ sender ++ salt ++ keccak256(initcode))[12:].
func CreateAddress2(sender types.Address, salt types.Hash, initCodeHash []byte) types.Address {
	return types.BytesToAddress(Keccak256([]byte{0xff}, sender.Bytes(), salt.Bytes(), initCodeHash)[12:])
}
