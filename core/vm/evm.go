package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/state"
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/crypto"
	"github.com/corevm/corevm/params"
)

// Frame is one call or create activation on the explicit frame stack.
type Frame struct {
	in         *Interpreter
	checkpoint state.Checkpoint

	isCreate  bool
	created   types.Address
	retOffset uint64
	retSize   uint64
}

// FrameResult is the outcome of a completed frame.
type FrameResult struct {
	Kind        ActionKind // ActionReturn, ActionRevert, or ActionHalt
	Reason      HaltReason
	Output      []byte
	GasLeft     uint64
	GasRefunded int64

	// CreatedAddress is set for successful creation frames.
	CreatedAddress *types.Address
}

// Succeeded reports whether the frame completed normally.
func (r *FrameResult) Succeeded() bool { return r.Kind == ActionReturn }

// Call runs a top-level message call to completion and returns its
// result. Errors are fatal database failures; execution failures are
// reported inside the result.
func (evm *EVM) Call(caller, to types.Address, input []byte, gas uint64, value *uint256.Int) (*FrameResult, error) {
	if value == nil {
		value = new(uint256.Int)
	}
	inputs := &CallInputs{
		Target:      to,
		CodeAddress: to,
		Caller:      caller,
		Value:       value,
		Transfer:    true,
		Input:       input,
		Gas:         gas,
		Scheme:      SchemeCall,
	}
	res, err := evm.beginCall(inputs)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return evm.run()
}

// Create runs a top-level contract creation to completion.
func (evm *EVM) Create(caller types.Address, initCode []byte, gas uint64, value *uint256.Int) (*FrameResult, error) {
	if value == nil {
		value = new(uint256.Int)
	}
	inputs := &CreateInputs{
		Caller:   caller,
		Scheme:   SchemeCreate,
		Value:    value,
		InitCode: initCode,
		Gas:      gas,
	}
	res, err := evm.beginCreate(inputs)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return evm.run()
}

// run drives the frame stack until it empties. Only the top frame
// executes; call and create actions push a child, everything else pops.
func (evm *EVM) run() (*FrameResult, error) {
	for {
		top := evm.frames[len(evm.frames)-1]
		action := top.in.Run(evm)

		switch action.Kind {
		case ActionCall:
			res, err := evm.beginCall(action.Call)
			if err != nil {
				return nil, err
			}
			if res != nil {
				evm.resumeAfterCall(top, action.Call, res)
			}
		case ActionCreate:
			res, err := evm.beginCreate(action.Create)
			if err != nil {
				return nil, err
			}
			if res != nil {
				evm.resumeAfterCreate(top, res)
			}
		default:
			result, err := evm.completeFrame(top, action)
			if err != nil {
				return nil, err
			}
			evm.frames = evm.frames[:len(evm.frames)-1]
			if top.isCreate && evm.Tracer != nil {
				evm.Tracer.OnCreateEnd(result)
			} else if !top.isCreate && evm.Tracer != nil {
				evm.Tracer.OnCallEnd(result)
			}
			if len(evm.frames) == 0 {
				return result, nil
			}
			parent := evm.frames[len(evm.frames)-1]
			if top.isCreate {
				evm.resumeAfterCreate(parent, result)
			} else {
				evm.resumeAfterCall(parent, &CallInputs{RetOffset: top.retOffset, RetSize: top.retSize}, result)
			}
		}
	}
}

// beginCall resolves a call request: it either pushes a child frame and
// returns nil, or returns a synthesized result (depth limit, precompile,
// empty code, transfer failure). A non-nil error is a fatal database
// failure.
func (evm *EVM) beginCall(inputs *CallInputs) (*FrameResult, error) {
	if evm.Tracer != nil {
		if res := evm.Tracer.OnCallBegin(inputs); res != nil {
			return res, nil
		}
	}
	if len(evm.frames) >= params.CallStackLimit {
		return &FrameResult{Kind: ActionHalt, Reason: HaltCallTooDeep, GasLeft: inputs.Gas}, nil
	}

	checkpoint := evm.Journal.Checkpoint()

	// Resolve the code to execute, following EIP-7702 delegation.
	load, err := evm.Journal.LoadAccountDelegated(inputs.CodeAddress)
	if err != nil {
		return nil, err
	}
	code := load.Code
	if load.IsDelegated {
		code, err = evm.Journal.Code(load.DelegateTo)
		if err != nil {
			return nil, err
		}
	}

	// Move or verify value before any code runs.
	if !inputs.Value.IsZero() {
		if inputs.Transfer {
			if err := evm.Journal.Transfer(inputs.Caller, inputs.Target, inputs.Value); err != nil {
				if errors.Is(err, state.ErrOutOfFunds) || errors.Is(err, state.ErrOverflowPayment) {
					evm.Journal.Revert(checkpoint)
					return &FrameResult{Kind: ActionHalt, Reason: HaltOutOfFunds, GasLeft: inputs.Gas}, nil
				}
				return nil, err
			}
		} else if inputs.Scheme == SchemeCallCode {
			balance, err := evm.Journal.Balance(inputs.Caller)
			if err != nil {
				return nil, err
			}
			if balance.Cmp(inputs.Value) < 0 {
				evm.Journal.Revert(checkpoint)
				return &FrameResult{Kind: ActionHalt, Reason: HaltOutOfFunds, GasLeft: inputs.Gas}, nil
			}
		}
	} else if inputs.Transfer {
		// Zero-value calls still touch the target for EIP-161.
		if err := evm.Journal.Transfer(inputs.Caller, inputs.Target, inputs.Value); err != nil {
			return nil, err
		}
	}

	// Precompiles short-circuit without a frame. A delegated account
	// pointing at a precompile executes as empty code instead.
	if p, ok := evm.precompiles[inputs.CodeAddress]; ok && !load.IsDelegated {
		output, gasLeft, err := RunPrecompile(p, inputs.Input, inputs.Gas)
		if err != nil {
			evm.Journal.Revert(checkpoint)
			return &FrameResult{Kind: ActionHalt, Reason: HaltPrecompileError}, nil
		}
		evm.Journal.Commit(checkpoint)
		return &FrameResult{Kind: ActionReturn, Output: output, GasLeft: gasLeft}, nil
	}

	if len(code) == 0 {
		evm.Journal.Commit(checkpoint)
		return &FrameResult{Kind: ActionReturn, GasLeft: inputs.Gas}, nil
	}

	contract := NewContract(inputs.Caller, inputs.Target, inputs.Value, Analyze(code), inputs.Input)
	frame := &Frame{
		in:         NewInterpreter(contract, inputs.Gas, inputs.IsStatic),
		checkpoint: checkpoint,
		retOffset:  inputs.RetOffset,
		retSize:    inputs.RetSize,
	}
	evm.frames = append(evm.frames, frame)
	return nil, nil
}

// beginCreate resolves a create request: push a child frame executing the
// initcode, or synthesize a failure.
func (evm *EVM) beginCreate(inputs *CreateInputs) (*FrameResult, error) {
	if evm.Tracer != nil {
		if res := evm.Tracer.OnCreateBegin(inputs); res != nil {
			return res, nil
		}
	}
	if len(evm.frames) >= params.CallStackLimit {
		return &FrameResult{Kind: ActionHalt, Reason: HaltCallTooDeep, GasLeft: inputs.Gas}, nil
	}

	balance, err := evm.Journal.Balance(inputs.Caller)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(inputs.Value) < 0 {
		return &FrameResult{Kind: ActionHalt, Reason: HaltOutOfFunds, GasLeft: inputs.Gas}, nil
	}

	nonce, err := evm.Journal.IncNonce(inputs.Caller)
	if err != nil {
		if errors.Is(err, state.ErrNonceOverflow) {
			return &FrameResult{Kind: ActionHalt, Reason: HaltNonceOverflow, GasLeft: inputs.Gas}, nil
		}
		return nil, err
	}

	var created types.Address
	switch inputs.Scheme {
	case SchemeCreate2:
		salt := inputs.Salt.Bytes32()
		created = crypto.CreateAddress2(inputs.Caller, types.Hash(salt), crypto.Keccak256(inputs.InitCode))
	default:
		created = crypto.CreateAddress(inputs.Caller, nonce-1)
	}

	checkpoint, err := evm.Journal.CreateAccountCheckpoint(inputs.Caller, created, inputs.Value)
	if err != nil {
		if errors.Is(err, state.ErrCreateCollision) {
			// The collision consumes the gas given to the child.
			return &FrameResult{Kind: ActionHalt, Reason: HaltCreateCollision}, nil
		}
		if errors.Is(err, state.ErrOutOfFunds) {
			return &FrameResult{Kind: ActionHalt, Reason: HaltOutOfFunds, GasLeft: inputs.Gas}, nil
		}
		return nil, err
	}

	contract := NewContract(inputs.Caller, created, inputs.Value, Analyze(inputs.InitCode), nil)
	frame := &Frame{
		in:         NewInterpreter(contract, inputs.Gas, false),
		checkpoint: checkpoint,
		isCreate:   true,
		created:    created,
	}
	evm.frames = append(evm.frames, frame)
	return nil, nil
}

// completeFrame turns a frame's terminal action into a result, applying
// the checkpoint and, for creation frames, the code deposit rules.
func (evm *EVM) completeFrame(frame *Frame, action *Action) (*FrameResult, error) {
	result := &FrameResult{
		Kind:        action.Kind,
		Reason:      action.Reason,
		Output:      action.Output,
		GasLeft:     frame.in.gas.Remaining(),
		GasRefunded: frame.in.gas.Refunded(),
	}

	switch action.Kind {
	case ActionReturn:
		if frame.isCreate {
			return evm.depositCode(frame, result)
		}
		evm.Journal.Commit(frame.checkpoint)
	case ActionRevert:
		evm.Journal.Revert(frame.checkpoint)
	default: // halt
		result.GasLeft = 0
		result.GasRefunded = 0
		evm.Journal.Revert(frame.checkpoint)
	}
	return result, nil
}

// depositCode validates and stores the runtime code returned by an
// initcode frame.
func (evm *EVM) depositCode(frame *Frame, result *FrameResult) (*FrameResult, error) {
	code := result.Output
	spec := evm.spec

	// EIP-3541: runtime code may not start with 0xEF (reserved for EOF).
	if spec.Enabled(params.London) && len(code) > 0 && code[0] == 0xEF {
		return evm.failCreate(frame, result, HaltCreateContractStartingWithEF), nil
	}
	if spec.Enabled(params.SpuriousDragon) && len(code) > int(evm.Config.MaxCodeSize()) {
		return evm.failCreate(frame, result, HaltCreateContractSizeLimit), nil
	}
	depositCost := params.CreateDataGas * uint64(len(code))
	if !frame.in.gas.RecordCost(depositCost) {
		// Homestead made deposit exhaustion fatal; Frontier silently
		// dropped the code and kept the account.
		if spec.Enabled(params.Homestead) {
			return evm.failCreate(frame, result, HaltOutOfGas), nil
		}
		code = nil
	}
	if err := evm.Journal.SetCode(frame.created, code); err != nil {
		return nil, err
	}
	evm.Journal.Commit(frame.checkpoint)
	created := frame.created
	result.CreatedAddress = &created
	result.Output = nil
	result.GasLeft = frame.in.gas.Remaining()
	result.GasRefunded = frame.in.gas.Refunded()
	return result, nil
}

func (evm *EVM) failCreate(frame *Frame, result *FrameResult, reason HaltReason) *FrameResult {
	evm.Journal.Revert(frame.checkpoint)
	result.Kind = ActionHalt
	result.Reason = reason
	result.Output = nil
	result.GasLeft = 0
	result.GasRefunded = 0
	return result
}

// resumeAfterCall applies a completed (or synthesized) call result to the
// parent frame: success bit, return-data buffer, output window, and gas.
func (evm *EVM) resumeAfterCall(parent *Frame, inputs *CallInputs, result *FrameResult) {
	in := parent.in
	if result.Kind == ActionHalt {
		in.returnData = nil
	} else {
		in.returnData = result.Output
	}
	if result.Succeeded() {
		in.stack.Push(uint256.NewInt(1))
		in.gas.RecordRefund(result.GasRefunded)
	} else {
		in.stack.Push(new(uint256.Int))
	}
	if n := uint64(len(result.Output)); n > 0 && inputs.RetSize > 0 {
		if n > inputs.RetSize {
			n = inputs.RetSize
		}
		in.mem.Set(inputs.RetOffset, n, result.Output[:n])
	}
	in.gas.ReturnGas(result.GasLeft)
}

// resumeAfterCreate applies a completed creation to the parent frame: the
// created address (or zero), the revert payload, and gas.
func (evm *EVM) resumeAfterCreate(parent *Frame, result *FrameResult) {
	in := parent.in
	if result.Kind == ActionRevert {
		in.returnData = result.Output
	} else {
		in.returnData = nil
	}
	if result.Succeeded() && result.CreatedAddress != nil {
		in.stack.Push(result.CreatedAddress.U256())
		in.gas.RecordRefund(result.GasRefunded)
	} else {
		in.stack.Push(new(uint256.Int))
	}
	in.gas.ReturnGas(result.GasLeft)
}
