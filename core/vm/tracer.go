package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
)

// Tracer observes execution without altering consensus-visible state.
// Implementations must not mutate the interpreter or journal.
type Tracer interface {
	// OnStep fires before an opcode executes.
	OnStep(in *Interpreter, op OpCode)
	// OnStepEnd fires after an opcode executes.
	OnStepEnd(in *Interpreter, op OpCode)
	// OnLog fires for each emitted log entry.
	OnLog(entry *types.Log)
	// OnCallBegin fires before a call frame runs. A non-nil outcome
	// short-circuits the call (inspector overrides for simulation).
	OnCallBegin(inputs *CallInputs) *FrameResult
	// OnCallEnd fires after a call frame completes.
	OnCallEnd(result *FrameResult)
	// OnCreateBegin fires before a create frame runs.
	OnCreateBegin(inputs *CreateInputs) *FrameResult
	// OnCreateEnd fires after a create frame completes.
	OnCreateEnd(result *FrameResult)
	// OnSelfDestruct fires when an account schedules destruction.
	OnSelfDestruct(from, to types.Address, amount *uint256.Int)
}
