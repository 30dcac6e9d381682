package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/params"
)

func opReturn(pc *uint64, in *Interpreter, evm *EVM) error {
	offset := in.stack.Pop()
	size := in.stack.Pop()
	return in.setAction(Action{
		Kind:   ActionReturn,
		Output: in.mem.Get(offset.Uint64(), size.Uint64()),
	})
}

func opRevert(pc *uint64, in *Interpreter, evm *EVM) error {
	offset := in.stack.Pop()
	size := in.stack.Pop()
	return in.setAction(Action{
		Kind:   ActionRevert,
		Output: in.mem.Get(offset.Uint64(), size.Uint64()),
	})
}

func opCall(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Pop() // requested gas; the forwarded amount is callGasTemp
	addr := in.stack.Pop()
	value := in.stack.Pop()
	inOff, inLen := in.stack.Pop(), in.stack.Pop()
	retOff, retLen := in.stack.Pop(), in.stack.Pop()

	gas := evm.callGasTemp
	if !value.IsZero() {
		gas += GasCallStipend
	}
	target := types.BytesToAddress(addr.Bytes())
	return in.setAction(Action{Kind: ActionCall, Call: &CallInputs{
		Target:      target,
		CodeAddress: target,
		Caller:      in.contract.Address,
		Value:       &value,
		Transfer:    true,
		Input:       in.mem.Get(inOff.Uint64(), inLen.Uint64()),
		Gas:         gas,
		IsStatic:    in.readOnly,
		Scheme:      SchemeCall,
		RetOffset:   retOff.Uint64(),
		RetSize:     retLen.Uint64(),
	}})
}

func opCallCode(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Pop()
	addr := in.stack.Pop()
	value := in.stack.Pop()
	inOff, inLen := in.stack.Pop(), in.stack.Pop()
	retOff, retLen := in.stack.Pop(), in.stack.Pop()

	gas := evm.callGasTemp
	if !value.IsZero() {
		gas += GasCallStipend
	}
	// Runs the callee's code in the caller's storage context; value is
	// checked against the caller but not moved.
	return in.setAction(Action{Kind: ActionCall, Call: &CallInputs{
		Target:      in.contract.Address,
		CodeAddress: types.BytesToAddress(addr.Bytes()),
		Caller:      in.contract.Address,
		Value:       &value,
		Transfer:    false,
		Input:       in.mem.Get(inOff.Uint64(), inLen.Uint64()),
		Gas:         gas,
		IsStatic:    in.readOnly,
		Scheme:      SchemeCallCode,
		RetOffset:   retOff.Uint64(),
		RetSize:     retLen.Uint64(),
	}})
}

func opDelegateCall(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Pop()
	addr := in.stack.Pop()
	inOff, inLen := in.stack.Pop(), in.stack.Pop()
	retOff, retLen := in.stack.Pop(), in.stack.Pop()

	// Caller and value propagate unchanged from the current frame.
	return in.setAction(Action{Kind: ActionCall, Call: &CallInputs{
		Target:      in.contract.Address,
		CodeAddress: types.BytesToAddress(addr.Bytes()),
		Caller:      in.contract.CallerAddress,
		Value:       new(uint256.Int).Set(in.contract.Value),
		Transfer:    false,
		Input:       in.mem.Get(inOff.Uint64(), inLen.Uint64()),
		Gas:         evm.callGasTemp,
		IsStatic:    in.readOnly,
		Scheme:      SchemeDelegateCall,
		RetOffset:   retOff.Uint64(),
		RetSize:     retLen.Uint64(),
	}})
}

func opStaticCall(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Pop()
	addr := in.stack.Pop()
	inOff, inLen := in.stack.Pop(), in.stack.Pop()
	retOff, retLen := in.stack.Pop(), in.stack.Pop()

	target := types.BytesToAddress(addr.Bytes())
	return in.setAction(Action{Kind: ActionCall, Call: &CallInputs{
		Target:      target,
		CodeAddress: target,
		Caller:      in.contract.Address,
		Value:       new(uint256.Int),
		Transfer:    false,
		Input:       in.mem.Get(inOff.Uint64(), inLen.Uint64()),
		Gas:         evm.callGasTemp,
		IsStatic:    true,
		Scheme:      SchemeStaticCall,
		RetOffset:   retOff.Uint64(),
		RetSize:     retLen.Uint64(),
	}})
}

func opCreate(pc *uint64, in *Interpreter, evm *EVM) error {
	value := in.stack.Pop()
	offset, size := in.stack.Pop(), in.stack.Pop()

	if evm.spec.Enabled(params.Shanghai) && size.Uint64() > uint64(evm.Config.MaxInitcodeSize()) {
		return ErrMaxInitCodeSizeExceeded
	}
	initCode := in.mem.Get(offset.Uint64(), size.Uint64())

	gas := in.gas.Remaining()
	if evm.spec.Enabled(params.TangerineWhistle) {
		gas = allButOne64th(gas)
	}
	if !in.gas.RecordCost(gas) {
		return ErrOutOfGas
	}
	return in.setAction(Action{Kind: ActionCreate, Create: &CreateInputs{
		Caller:   in.contract.Address,
		Scheme:   SchemeCreate,
		Value:    &value,
		InitCode: initCode,
		Gas:      gas,
	}})
}

func opCreate2(pc *uint64, in *Interpreter, evm *EVM) error {
	value := in.stack.Pop()
	offset, size := in.stack.Pop(), in.stack.Pop()
	salt := in.stack.Pop()

	if evm.spec.Enabled(params.Shanghai) && size.Uint64() > uint64(evm.Config.MaxInitcodeSize()) {
		return ErrMaxInitCodeSizeExceeded
	}
	initCode := in.mem.Get(offset.Uint64(), size.Uint64())

	gas := allButOne64th(in.gas.Remaining())
	if !in.gas.RecordCost(gas) {
		return ErrOutOfGas
	}
	return in.setAction(Action{Kind: ActionCreate, Create: &CreateInputs{
		Caller:   in.contract.Address,
		Scheme:   SchemeCreate2,
		Value:    &value,
		InitCode: initCode,
		Gas:      gas,
		Salt:     salt,
	}})
}

func opSelfdestruct(pc *uint64, in *Interpreter, evm *EVM) error {
	target := in.stack.Pop()
	targetAddr := types.BytesToAddress(target.Bytes())

	balance, err := evm.Journal.Balance(in.contract.Address)
	if err != nil {
		return err
	}
	res, err := evm.Journal.SelfDestruct(in.contract.Address, targetAddr)
	if err != nil {
		return err
	}
	// The refund was removed by EIP-3529.
	if !evm.spec.Enabled(params.London) && !res.PreviouslyDestroyed {
		in.gas.RecordRefund(int64(params.SelfdestructRefund))
	}
	if evm.Tracer != nil {
		evm.Tracer.OnSelfDestruct(in.contract.Address, targetAddr, balance)
	}
	return in.setAction(Action{Kind: ActionReturn})
}
