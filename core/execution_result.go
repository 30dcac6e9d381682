package core

import (
	"github.com/corevm/corevm/core/state"
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/core/vm"
)

// ResultKind classifies the user-visible outcome of a transaction.
type ResultKind uint8

const (
	ResultSuccess ResultKind = iota
	ResultRevert
	ResultHalt
)

// ExecutionResult is the outcome of one applied transaction: the result
// classification, gas accounting, logs, output, and the committed state
// diff. Validation failures never produce one.
type ExecutionResult struct {
	Kind        ResultKind
	HaltReason  vm.HaltReason
	GasUsed     uint64
	GasRefunded uint64
	Output      []byte
	Logs        []*types.Log
	CreatedAddress *types.Address
	StateDiff   *state.StateDiff
}

// Succeeded reports whether the transaction executed without revert or
// halt.
func (r *ExecutionResult) Succeeded() bool { return r.Kind == ResultSuccess }
