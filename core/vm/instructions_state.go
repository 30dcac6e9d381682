package vm

import (
	"github.com/corevm/corevm/core/types"
)

func opSload(pc *uint64, in *Interpreter, evm *EVM) error {
	slot := in.stack.Peek()
	key := types.U256ToHash(slot)
	value, _, err := evm.Journal.SLoad(in.contract.Address, key)
	if err != nil {
		return err
	}
	slot.SetBytes(value.Bytes())
	return nil
}

// opSstore performs the write; pricing and the static check already ran
// in the dynamic gas function.
func opSstore(pc *uint64, in *Interpreter, evm *EVM) error {
	key := in.stack.Pop()
	value := in.stack.Pop()
	_, _, err := evm.Journal.SStore(in.contract.Address,
		types.U256ToHash(&key), types.U256ToHash(&value))
	return err
}

func opTload(pc *uint64, in *Interpreter, evm *EVM) error {
	slot := in.stack.Peek()
	value := evm.Journal.TLoad(in.contract.Address, types.U256ToHash(slot))
	slot.SetBytes(value.Bytes())
	return nil
}

func opTstore(pc *uint64, in *Interpreter, evm *EVM) error {
	if in.readOnly {
		return ErrWriteProtection
	}
	key := in.stack.Pop()
	value := in.stack.Pop()
	evm.Journal.TStore(in.contract.Address, types.U256ToHash(&key), types.U256ToHash(&value))
	return nil
}

func makeLogExecute(topics int) executionFunc {
	return func(pc *uint64, in *Interpreter, evm *EVM) error {
		offset := in.stack.Pop()
		size := in.stack.Pop()
		entry := &types.Log{Address: in.contract.Address}
		for i := 0; i < topics; i++ {
			topic := in.stack.Pop()
			entry.Topics = append(entry.Topics, types.U256ToHash(&topic))
		}
		entry.Data = in.mem.Get(offset.Uint64(), size.Uint64())
		evm.Journal.AddLog(entry)
		if evm.Tracer != nil {
			evm.Tracer.OnLog(entry)
		}
		return nil
	}
}
