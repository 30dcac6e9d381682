package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/params"
)

// memSize computes offset+length for a memory access, treating
// zero-length accesses as touching nothing (no expansion, no charge).
// The second return is the overflow flag.
func memSize(offset, length *uint256.Int) (uint64, bool) {
	if length.IsZero() {
		return 0, false
	}
	if !offset.IsUint64() || !length.IsUint64() {
		return 0, true
	}
	end := offset.Uint64() + length.Uint64()
	if end < offset.Uint64() {
		return 0, true
	}
	return end, false
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// Memory size functions: the byte extent each operation touches.

func memoryKeccak256(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(0), stack.Back(1))
}

func memoryCopy(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(0), stack.Back(2))
}

func memoryExtCodeCopy(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(1), stack.Back(3))
}

func memoryMload(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(0), uint256.NewInt(32))
}

func memoryMstore(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(0), uint256.NewInt(32))
}

func memoryMstore8(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(0), uint256.NewInt(1))
}

func memoryReturn(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(0), stack.Back(1))
}

func memoryCreate(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(1), stack.Back(2))
}

func memoryCreate2(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(1), stack.Back(2))
}

func memoryLog(stack *Stack) (uint64, bool) {
	return memSize(stack.Back(0), stack.Back(1))
}

// CALL/CALLCODE stack: gas, addr, value, argsOff, argsLen, retOff, retLen.
func memoryCall(stack *Stack) (uint64, bool) {
	args, overflow := memSize(stack.Back(3), stack.Back(4))
	if overflow {
		return 0, true
	}
	ret, overflow := memSize(stack.Back(5), stack.Back(6))
	if overflow {
		return 0, true
	}
	return maxU64(args, ret), false
}

// DELEGATECALL/STATICCALL stack: gas, addr, argsOff, argsLen, retOff, retLen.
func memoryDelegateCall(stack *Stack) (uint64, bool) {
	args, overflow := memSize(stack.Back(2), stack.Back(3))
	if overflow {
		return 0, true
	}
	ret, overflow := memSize(stack.Back(4), stack.Back(5))
	if overflow {
		return 0, true
	}
	return maxU64(args, ret), false
}

// MCOPY stack: dst, src, length.
func memoryMcopy(stack *Stack) (uint64, bool) {
	dst, overflow := memSize(stack.Back(0), stack.Back(2))
	if overflow {
		return 0, true
	}
	src, overflow := memSize(stack.Back(1), stack.Back(2))
	if overflow {
		return 0, true
	}
	return maxU64(dst, src), false
}

// Dynamic gas functions. Memory expansion is charged by the dispatch
// loop before these run; they cover only the operation-specific costs.

func gasExp(perByte uint64) dynamicGasFunc {
	return func(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
		expByteLen := uint64((in.stack.Back(1).BitLen() + 7) / 8)
		return perByte * expByteLen, nil
	}
}

var (
	gasExpFrontier = gasExp(10)
	gasExpEIP160   = gasExp(GasExpByte)
)

func gasKeccak256(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	return GasKeccak256Word * toWordSize(in.stack.Back(1).Uint64()), nil
}

// gasCopy prices CALLDATACOPY, CODECOPY, RETURNDATACOPY, and MCOPY:
// 3 gas per copied word.
func gasCopy(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	return GasCopyWord * toWordSize(in.stack.Back(2).Uint64()), nil
}

func gasExtCodeCopy(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	return GasCopyWord * toWordSize(in.stack.Back(3).Uint64()), nil
}

// gasAccountAccess prices BALANCE, EXTCODESIZE, and EXTCODEHASH under
// EIP-2929: the address is loaded (and warmed) here; the instruction
// reads it warm.
func gasAccountAccess(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	addr := types.BytesToAddress(in.stack.Back(0).Bytes())
	_, cold, err := evm.Journal.LoadAccount(addr)
	if err != nil {
		return 0, err
	}
	if cold {
		return params.ColdAccountAccessCost, nil
	}
	return params.WarmStorageReadCost, nil
}

func gasExtCodeCopyEIP2929(in *Interpreter, evm *EVM, memorySize uint64) (uint64, error) {
	access, err := gasAccountAccess(in, evm, memorySize)
	if err != nil {
		return 0, err
	}
	return access + GasCopyWord*toWordSize(in.stack.Back(3).Uint64()), nil
}

func gasSloadEIP2929(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	key := types.U256ToHash(in.stack.Back(0))
	_, cold, err := evm.Journal.SLoad(in.contract.Address, key)
	if err != nil {
		return 0, err
	}
	if cold {
		return params.ColdSloadCost, nil
	}
	return params.WarmStorageReadCost, nil
}

// gasSstore implements the SSTORE pricing ladder across eras: the legacy
// set/reset rule, EIP-2200 netting (Istanbul), and EIP-2929/EIP-3529
// warm/cold pricing with reduced refunds (Berlin/London). Refund deltas
// are recorded here so the final counter reflects the net effect of
// multiple writes.
func gasSstore(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	if in.readOnly {
		return 0, ErrWriteProtection
	}
	spec := evm.spec

	// EIP-2200 reentrancy sentry.
	if spec.Enabled(params.Istanbul) && in.gas.Remaining() <= params.SstoreSentryGas {
		return 0, ErrSstoreSentry
	}

	key := types.U256ToHash(in.stack.Back(0))
	value := types.U256ToHash(in.stack.Back(1))
	original, present, cold, err := evm.Journal.SlotTriple(in.contract.Address, key)
	if err != nil {
		return 0, err
	}

	// Legacy rule: Frontier through Petersburg.
	if !spec.Enabled(params.Istanbul) {
		switch {
		case present.IsZero() && !value.IsZero():
			return params.SstoreSetGas, nil
		case !present.IsZero() && value.IsZero():
			in.gas.RecordRefund(int64(params.SstoreClearsRefundOld))
			return params.SstoreResetGas, nil
		default:
			return params.SstoreResetGas, nil
		}
	}

	var (
		warmRead    = params.WarmStorageReadCost // EIP-2200 noop cost is the sload cost
		coldCharge  uint64
		resetGas    = params.SstoreResetGas
		clearRefund = params.SstoreClearsRefund
	)
	if spec.Enabled(params.Berlin) {
		if cold {
			coldCharge = params.ColdSloadCost
		}
		resetGas = params.SstoreResetGas - params.ColdSloadCost
	} else {
		warmRead = GasSloadIstanbul
	}
	if !spec.Enabled(params.London) {
		clearRefund = params.SstoreClearsRefundOld
	}

	if value == present {
		return coldCharge + warmRead, nil
	}
	if present == original {
		if original.IsZero() {
			return coldCharge + params.SstoreSetGas, nil
		}
		if value.IsZero() {
			in.gas.RecordRefund(int64(clearRefund))
		}
		return coldCharge + resetGas, nil
	}
	// Dirty slot: corrections so the net refund matches a single write.
	if !original.IsZero() {
		if present.IsZero() {
			in.gas.RecordRefund(-int64(clearRefund))
		} else if value.IsZero() {
			in.gas.RecordRefund(int64(clearRefund))
		}
	}
	if value == original {
		if original.IsZero() {
			in.gas.RecordRefund(int64(params.SstoreSetGas - warmRead))
		} else {
			in.gas.RecordRefund(int64(resetGas - warmRead))
		}
	}
	return coldCharge + warmRead, nil
}

// makeLog builds the LOG0..LOG4 operations.
func makeLog(topics int) *operation {
	return &operation{
		execute:     makeLogExecute(topics),
		dynamicGas:  makeLogGas(topics),
		minStack:    minStack(2+topics, 0),
		maxStack:    maxStack(2+topics, 0),
		memorySize:  memoryLog,
	}
}

func makeLogGas(topics int) dynamicGasFunc {
	return func(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
		if in.readOnly {
			return 0, ErrWriteProtection
		}
		size := in.stack.Back(1)
		if !size.IsUint64() {
			return 0, ErrOutOfGas
		}
		return GasLog + GasLogTopic*uint64(topics) + GasLogByte*size.Uint64(), nil
	}
}

// allButOne64th applies the EIP-150 gas retention rule.
func allButOne64th(gas uint64) uint64 {
	return gas - gas/params.CallGasDivisor
}

// callGasFor computes the gas to forward to a child frame: pre-EIP-150
// exactly what was requested; after, capped at 63/64 of what remains.
func callGasFor(spec params.SpecID, available uint64, requested *uint256.Int) (uint64, error) {
	if spec.Enabled(params.TangerineWhistle) {
		capped := allButOne64th(available)
		if !requested.IsUint64() || requested.Uint64() > capped {
			return capped, nil
		}
		return requested.Uint64(), nil
	}
	if !requested.IsUint64() || requested.Uint64() > available {
		return 0, ErrOutOfGas
	}
	return requested.Uint64(), nil
}

// gasCallCommon charges account access and value costs, then computes and
// charges the forwarded gas, leaving it in evm.callGasTemp.
func gasCallCommon(in *Interpreter, evm *EVM, addrIdx int, value *uint256.Int, countNewAccount bool) (uint64, error) {
	addr := types.BytesToAddress(in.stack.Back(addrIdx).Bytes())
	var overhead uint64

	if evm.spec.Enabled(params.Berlin) {
		load, err := evm.Journal.LoadAccountDelegated(addr)
		if err != nil {
			return 0, err
		}
		if load.Cold {
			overhead += params.ColdAccountAccessCost
		} else {
			overhead += params.WarmStorageReadCost
		}
		if load.IsDelegated {
			if load.DelegateCold {
				overhead += params.ColdAccountAccessCost
			} else {
				overhead += params.WarmStorageReadCost
			}
		}
	}

	transfersValue := value != nil && !value.IsZero()
	if transfersValue {
		overhead += GasCallValue
	}
	if countNewAccount {
		exists, err := evm.Journal.Exists(addr)
		if err != nil {
			return 0, err
		}
		if evm.spec.Enabled(params.SpuriousDragon) {
			// EIP-161: the surcharge applies only when value creates
			// the account.
			if !exists && transfersValue {
				overhead += GasNewAccount
			}
		} else if !exists {
			overhead += GasNewAccount
		}
	}

	if in.gas.Remaining() < overhead {
		return 0, ErrOutOfGas
	}
	available := in.gas.Remaining() - overhead
	forward, err := callGasFor(evm.spec, available, in.stack.Back(0))
	if err != nil {
		return 0, err
	}
	evm.callGasTemp = forward
	return overhead + forward, nil
}

func gasCall(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	value := in.stack.Back(2)
	if in.readOnly && !value.IsZero() {
		return 0, ErrWriteProtection
	}
	return gasCallCommon(in, evm, 1, value, true)
}

func gasCallCode(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	return gasCallCommon(in, evm, 1, in.stack.Back(2), false)
}

func gasDelegateCall(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	return gasCallCommon(in, evm, 1, nil, false)
}

func gasStaticCall(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	return gasCallCommon(in, evm, 1, nil, false)
}

func gasCreate(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	if in.readOnly {
		return 0, ErrWriteProtection
	}
	var cost uint64
	if evm.spec.Enabled(params.Shanghai) {
		// EIP-3860: charge per initcode word; the size cap is enforced
		// by the instruction.
		cost += params.InitcodeWordGas * toWordSize(in.stack.Back(2).Uint64())
	}
	return cost, nil
}

func gasCreate2(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	if in.readOnly {
		return 0, ErrWriteProtection
	}
	words := toWordSize(in.stack.Back(2).Uint64())
	cost := GasKeccak256Word * words
	if evm.spec.Enabled(params.Shanghai) {
		cost += params.InitcodeWordGas * words
	}
	return cost, nil
}

func gasSelfdestruct(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	if in.readOnly {
		return 0, ErrWriteProtection
	}
	return 0, nil
}

func gasSelfdestructEIP150(in *Interpreter, evm *EVM, _ uint64) (uint64, error) {
	if in.readOnly {
		return 0, ErrWriteProtection
	}
	cost := GasSelfdestruct
	target := types.BytesToAddress(in.stack.Back(0).Bytes())
	exists, err := evm.Journal.Exists(target)
	if err != nil {
		return 0, err
	}
	if !exists {
		if evm.spec.Enabled(params.SpuriousDragon) {
			balance, err := evm.Journal.Balance(in.contract.Address)
			if err != nil {
				return 0, err
			}
			if !balance.IsZero() {
				cost += GasNewAccount
			}
		} else {
			cost += GasNewAccount
		}
	}
	return cost, nil
}

func gasSelfdestructEIP2929(in *Interpreter, evm *EVM, memorySize uint64) (uint64, error) {
	cost, err := gasSelfdestructEIP150(in, evm, memorySize)
	if err != nil {
		return 0, err
	}
	target := types.BytesToAddress(in.stack.Back(0).Bytes())
	if _, cold, err := evm.Journal.LoadAccount(target); err != nil {
		return 0, err
	} else if cold {
		cost += params.ColdAccountAccessCost
	}
	return cost, nil
}
