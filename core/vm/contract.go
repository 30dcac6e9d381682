package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
)

// Contract is the code and identity a frame executes with.
type Contract struct {
	// CallerAddress is msg.sender inside the frame.
	CallerAddress types.Address
	// Address is the account whose storage context the code runs in.
	Address types.Address
	// Value is the apparent call value (CALLVALUE).
	Value *uint256.Int

	Bytecode *Bytecode
	Input    []byte
}

// NewContract assembles a frame contract.
func NewContract(caller, addr types.Address, value *uint256.Int, code *Bytecode, input []byte) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Contract{
		CallerAddress: caller,
		Address:       addr,
		Value:         value,
		Bytecode:      code,
		Input:         input,
	}
}

// GetOp returns the opcode at position n. The analysis sentinel
// guarantees an in-bounds STOP at the first position past the code.
func (c *Contract) GetOp(n uint64) OpCode {
	if n < uint64(len(c.Bytecode.Code)) {
		return OpCode(c.Bytecode.Code[n])
	}
	return STOP
}

// Code returns the executable bytes without the sentinel.
func (c *Contract) Code() []byte {
	return c.Bytecode.Code[:c.Bytecode.OrigLen]
}
