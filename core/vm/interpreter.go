package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/state"
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/params"
)

// BlockContext provides the EVM with block-level information.
type BlockContext struct {
	Number      uint64
	Time        uint64
	Coinbase    types.Address
	GasLimit    uint64
	Difficulty  *uint256.Int
	PrevRandao  types.Hash
	BaseFee     *uint256.Int
	BlobBaseFee *uint256.Int
}

// TxContext provides the EVM with transaction-level information.
type TxContext struct {
	Origin     types.Address
	GasPrice   *uint256.Int
	BlobHashes []types.Hash
}

// EVM is the execution environment shared by every frame of one
// transaction: configuration, block and transaction context, the
// journaled state, and the active dispatch table. It also owns the frame
// stack; see evm.go for the scheduler.
type EVM struct {
	Config    *params.Config
	Block     BlockContext
	Tx        TxContext
	Journal   *state.Journal
	Tracer    Tracer

	spec        params.SpecID
	jumpTable   *JumpTable
	precompiles map[types.Address]PrecompiledContract
	frames      []*Frame
	callGasTemp uint64 // forwarded gas computed by call dynamic gas, read by the handler
}

// NewEVM creates an EVM for one transaction.
func NewEVM(cfg *params.Config, block BlockContext, txctx TxContext, journal *state.Journal) *EVM {
	spec := cfg.Spec
	evm := &EVM{
		Config:      cfg,
		Block:       block,
		Tx:          txctx,
		Journal:     journal,
		spec:        spec,
		jumpTable:   SelectJumpTable(spec),
		precompiles: ActivePrecompiles(spec),
	}
	return evm
}

// Spec returns the active hardfork.
func (evm *EVM) Spec() params.SpecID { return evm.spec }

// Interpreter executes one frame's bytecode: stack, memory, program
// counter, gas meter, and the return-data buffer. It never recurses;
// call-family opcodes set an Action and yield to the frame scheduler.
type Interpreter struct {
	contract *Contract
	stack    *Stack
	mem      *Memory
	gas      Gas
	pc       uint64

	returnData []byte
	readOnly   bool

	action Action
}

// NewInterpreter prepares an interpreter for one frame.
func NewInterpreter(contract *Contract, gasLimit uint64, readOnly bool) *Interpreter {
	return &Interpreter{
		contract: contract,
		stack:    NewStack(),
		mem:      NewMemory(),
		gas:      NewGas(gasLimit),
		readOnly: readOnly,
	}
}

// Gas exposes the frame gas meter.
func (in *Interpreter) Gas() *Gas { return &in.gas }

// Contract returns the executing contract.
func (in *Interpreter) Contract() *Contract { return in.contract }

// Stack returns the operand stack. Tracers only.
func (in *Interpreter) Stack() *Stack { return in.stack }

// Memory returns the frame memory. Tracers only.
func (in *Interpreter) Memory() *Memory { return in.mem }

// PC returns the current program counter. Tracers only.
func (in *Interpreter) PC() uint64 { return in.pc }

// ReturnData returns the current return-data buffer.
func (in *Interpreter) ReturnData() []byte { return in.returnData }

// setAction records a terminal or suspending action and stops the loop.
func (in *Interpreter) setAction(a Action) error {
	in.action = a
	return errStopToken
}

// Run executes the frame until a terminal or suspending action emerges.
// Gas charging order follows the jump table: constant gas, then dynamic
// gas including memory expansion, then memory resize, then the handler.
func (in *Interpreter) Run(evm *EVM) *Action {
	in.action = Action{}
	memoryLimit := evm.Config.FrameMemoryLimit()

	for {
		op := in.contract.GetOp(in.pc)
		operation := evm.jumpTable[op]
		if operation == nil {
			return haltAction(in, HaltInvalidOpCode)
		}
		if evm.Tracer != nil {
			evm.Tracer.OnStep(in, op)
		}

		sLen := in.stack.Len()
		if sLen < operation.minStack {
			return haltAction(in, HaltStackUnderflow)
		}
		if sLen > operation.maxStack {
			return haltAction(in, HaltStackOverflow)
		}

		if operation.constantGas > 0 {
			if !in.gas.RecordCost(operation.constantGas) {
				return haltAction(in, HaltOutOfGas)
			}
		}

		var memorySize uint64
		if operation.memorySize != nil {
			memSize, overflow := operation.memorySize(in.stack)
			if overflow {
				return haltAction(in, HaltOutOfGas)
			}
			if memSize > 0 {
				memorySize = toWordSize(memSize) * 32
				if memorySize > memoryLimit {
					return haltAction(in, HaltMemoryLimit)
				}
			}
		}

		if memorySize > 0 {
			memCost, ok := memoryGasCost(memorySize)
			if !ok {
				return haltAction(in, HaltOutOfGas)
			}
			if !in.gas.RecordMemory(memCost) {
				return haltAction(in, HaltOutOfGas)
			}
		}

		if operation.dynamicGas != nil {
			cost, err := operation.dynamicGas(in, evm, memorySize)
			if err != nil {
				return errorAction(in, err)
			}
			if !in.gas.RecordCost(cost) {
				return haltAction(in, HaltOutOfGas)
			}
		}

		if memorySize > 0 {
			in.mem.Resize(memorySize)
		}

		err := operation.execute(&in.pc, in, evm)
		if evm.Tracer != nil {
			evm.Tracer.OnStepEnd(in, op)
		}
		if err != nil {
			if errors.Is(err, errStopToken) {
				// Suspending actions resume at the next instruction.
				if in.action.Kind == ActionCall || in.action.Kind == ActionCreate {
					in.pc++
				}
				return &in.action
			}
			return errorAction(in, err)
		}
		if operation.jumps {
			continue
		}
		in.pc++
	}
}

// haltAction consumes all remaining gas and produces a Halt action.
func haltAction(in *Interpreter, reason HaltReason) *Action {
	in.gas.ConsumeAll()
	in.action = Action{Kind: ActionHalt, Reason: reason}
	return &in.action
}

// errorAction classifies an execution error: revert preserves gas,
// everything else halts and consumes it.
func errorAction(in *Interpreter, err error) *Action {
	if errors.Is(err, ErrExecutionReverted) {
		in.action.Kind = ActionRevert
		return &in.action
	}
	return haltAction(in, haltReasonFor(err))
}
