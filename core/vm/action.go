package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
)

// ActionKind discriminates how an interpreter run ended.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionReturn
	ActionRevert
	ActionHalt
	ActionCall
	ActionCreate
)

// Action is the interpreter's exit value. The frame scheduler consumes it:
// Return/Revert/Halt complete the frame, Call/Create suspend it and push
// a child frame.
type Action struct {
	Kind   ActionKind
	Output []byte
	Reason HaltReason

	Call   *CallInputs
	Create *CreateInputs
}

// CallScheme identifies which call-family opcode produced a request.
type CallScheme uint8

const (
	SchemeCall CallScheme = iota
	SchemeCallCode
	SchemeDelegateCall
	SchemeStaticCall
)

// CallInputs describes a pending inner call.
type CallInputs struct {
	// Target is the account whose storage context executes.
	Target types.Address
	// CodeAddress is the account supplying the code (differs from Target
	// for CALLCODE and DELEGATECALL).
	CodeAddress types.Address
	Caller      types.Address
	// Value is the apparent call value; it is only transferred when
	// Transfer is set (DELEGATECALL propagates value without moving it).
	Value    *uint256.Int
	Transfer bool
	Input    []byte
	Gas      uint64
	IsStatic bool
	Scheme   CallScheme

	// Parent memory window receiving the callee output.
	RetOffset uint64
	RetSize   uint64
}

// CreateScheme identifies CREATE vs CREATE2.
type CreateScheme uint8

const (
	SchemeCreate CreateScheme = iota
	SchemeCreate2
)

// CreateInputs describes a pending contract creation.
type CreateInputs struct {
	Caller   types.Address
	Scheme   CreateScheme
	Value    *uint256.Int
	InitCode []byte
	Gas      uint64
	Salt     uint256.Int // CREATE2 only
}
