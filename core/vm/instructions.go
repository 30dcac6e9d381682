package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/crypto"
	"github.com/corevm/corevm/params"
)

func opStop(pc *uint64, in *Interpreter, evm *EVM) error {
	return in.setAction(Action{Kind: ActionReturn})
}

func opAdd(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.Add(&x, y)
	return nil
}

func opSub(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.Sub(&x, y)
	return nil
}

func opMul(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.Mul(&x, y)
	return nil
}

func opDiv(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.Div(&x, y)
	return nil
}

func opSdiv(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.SDiv(&x, y)
	return nil
}

func opMod(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.Mod(&x, y)
	return nil
}

func opSmod(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.SMod(&x, y)
	return nil
}

func opAddmod(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Pop()
	z := in.stack.Peek()
	z.AddMod(&x, &y, z)
	return nil
}

func opMulmod(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Pop()
	z := in.stack.Peek()
	z.MulMod(&x, &y, z)
	return nil
}

func opExp(pc *uint64, in *Interpreter, evm *EVM) error {
	base := in.stack.Pop()
	exponent := in.stack.Peek()
	exponent.Exp(&base, exponent)
	return nil
}

func opSignExtend(pc *uint64, in *Interpreter, evm *EVM) error {
	back := in.stack.Pop()
	num := in.stack.Peek()
	num.ExtendSign(num, &back)
	return nil
}

func opLt(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opGt(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opSlt(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opSgt(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opEq(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opIszero(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil
}

func opAnd(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.And(&x, y)
	return nil
}

func opOr(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.Or(&x, y)
	return nil
}

func opXor(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Pop()
	y := in.stack.Peek()
	y.Xor(&x, y)
	return nil
}

func opNot(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Peek()
	x.Not(x)
	return nil
}

func opByte(pc *uint64, in *Interpreter, evm *EVM) error {
	i := in.stack.Pop()
	val := in.stack.Peek()
	val.Byte(&i)
	return nil
}

func opShl(pc *uint64, in *Interpreter, evm *EVM) error {
	shift := in.stack.Pop()
	value := in.stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opShr(pc *uint64, in *Interpreter, evm *EVM) error {
	shift := in.stack.Pop()
	value := in.stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opSar(pc *uint64, in *Interpreter, evm *EVM) error {
	shift := in.stack.Pop()
	value := in.stack.Peek()
	if shift.GtUint64(256) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil
}

func opKeccak256(pc *uint64, in *Interpreter, evm *EVM) error {
	offset := in.stack.Pop()
	size := in.stack.Peek()
	data := in.mem.GetPtr(offset.Uint64(), size.Uint64())
	hash := crypto.Keccak256(data)
	size.SetBytes(hash)
	return nil
}

func opAddress(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(in.contract.Address.U256())
	return nil
}

func opBalance(pc *uint64, in *Interpreter, evm *EVM) error {
	slot := in.stack.Peek()
	addr := types.BytesToAddress(slot.Bytes())
	balance, err := evm.Journal.Balance(addr)
	if err != nil {
		return err
	}
	slot.Set(balance)
	return nil
}

func opOrigin(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(evm.Tx.Origin.U256())
	return nil
}

func opCaller(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(in.contract.CallerAddress.U256())
	return nil
}

func opCallValue(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(new(uint256.Int).Set(in.contract.Value))
	return nil
}

func opCallDataLoad(pc *uint64, in *Interpreter, evm *EVM) error {
	x := in.stack.Peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		data := getData(in.contract.Input, offset, 32)
		x.SetBytes(data)
	} else {
		x.Clear()
	}
	return nil
}

func opCallDataSize(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(uint64(len(in.contract.Input))))
	return nil
}

func opCallDataCopy(pc *uint64, in *Interpreter, evm *EVM) error {
	memOffset := in.stack.Pop()
	dataOffset := in.stack.Pop()
	length := in.stack.Pop()
	dataOff := dataOffset.Uint64()
	if !dataOffset.IsUint64() {
		dataOff = ^uint64(0)
	}
	in.mem.Set(memOffset.Uint64(), length.Uint64(),
		getData(in.contract.Input, dataOff, length.Uint64()))
	return nil
}

func opCodeSize(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(uint64(in.contract.Bytecode.Len())))
	return nil
}

func opCodeCopy(pc *uint64, in *Interpreter, evm *EVM) error {
	memOffset := in.stack.Pop()
	codeOffset := in.stack.Pop()
	length := in.stack.Pop()
	codeOff := codeOffset.Uint64()
	if !codeOffset.IsUint64() {
		codeOff = ^uint64(0)
	}
	in.mem.Set(memOffset.Uint64(), length.Uint64(),
		getData(in.contract.Code(), codeOff, length.Uint64()))
	return nil
}

func opGasPrice(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(new(uint256.Int).Set(evm.Tx.GasPrice))
	return nil
}

func opExtCodeSize(pc *uint64, in *Interpreter, evm *EVM) error {
	slot := in.stack.Peek()
	addr := types.BytesToAddress(slot.Bytes())
	code, _, err := evm.Journal.LoadAccountCode(addr)
	if err != nil {
		return err
	}
	slot.SetUint64(uint64(len(code)))
	return nil
}

func opExtCodeCopy(pc *uint64, in *Interpreter, evm *EVM) error {
	a := in.stack.Pop()
	memOffset := in.stack.Pop()
	codeOffset := in.stack.Pop()
	length := in.stack.Pop()
	addr := types.BytesToAddress(a.Bytes())
	code, _, err := evm.Journal.LoadAccountCode(addr)
	if err != nil {
		return err
	}
	codeOff := codeOffset.Uint64()
	if !codeOffset.IsUint64() {
		codeOff = ^uint64(0)
	}
	in.mem.Set(memOffset.Uint64(), length.Uint64(), getData(code, codeOff, length.Uint64()))
	return nil
}

func opExtCodeHash(pc *uint64, in *Interpreter, evm *EVM) error {
	slot := in.stack.Peek()
	addr := types.BytesToAddress(slot.Bytes())
	hash, err := evm.Journal.CodeHash(addr)
	if err != nil {
		return err
	}
	slot.SetBytes(hash.Bytes())
	return nil
}

func opReturnDataSize(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(uint64(len(in.returnData))))
	return nil
}

func opReturnDataCopy(pc *uint64, in *Interpreter, evm *EVM) error {
	memOffset := in.stack.Pop()
	dataOffset := in.stack.Pop()
	length := in.stack.Pop()
	offset, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return ErrReturnDataOutOfBounds
	}
	end := offset + length.Uint64()
	if end < offset || end > uint64(len(in.returnData)) {
		return ErrReturnDataOutOfBounds
	}
	in.mem.Set(memOffset.Uint64(), length.Uint64(), in.returnData[offset:end])
	return nil
}

func opBlockhash(pc *uint64, in *Interpreter, evm *EVM) error {
	num := in.stack.Peek()
	if !num.IsUint64() {
		num.Clear()
		return nil
	}
	requested := num.Uint64()
	current := evm.Block.Number
	if requested >= current || requested+256 < current {
		num.Clear()
		return nil
	}
	hash, err := evm.Journal.BlockHash(requested)
	if err != nil {
		return err
	}
	num.SetBytes(hash.Bytes())
	return nil
}

func opCoinbase(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(evm.Block.Coinbase.U256())
	return nil
}

func opTimestamp(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(evm.Block.Time))
	return nil
}

func opNumber(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(evm.Block.Number))
	return nil
}

// opDifficulty returns the PoW difficulty pre-merge and the prevrandao
// beacon value after (EIP-4399).
func opDifficulty(pc *uint64, in *Interpreter, evm *EVM) error {
	if evm.spec.Enabled(params.Merge) {
		in.stack.PushBytes(evm.Block.PrevRandao.Bytes())
		return nil
	}
	if evm.Block.Difficulty != nil {
		in.stack.Push(new(uint256.Int).Set(evm.Block.Difficulty))
	} else {
		in.stack.Push(new(uint256.Int))
	}
	return nil
}

func opGasLimit(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(evm.Block.GasLimit))
	return nil
}

func opChainID(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(evm.Config.ChainID))
	return nil
}

func opSelfBalance(pc *uint64, in *Interpreter, evm *EVM) error {
	balance, err := evm.Journal.Balance(in.contract.Address)
	if err != nil {
		return err
	}
	in.stack.Push(balance)
	return nil
}

func opBaseFee(pc *uint64, in *Interpreter, evm *EVM) error {
	if evm.Block.BaseFee != nil {
		in.stack.Push(new(uint256.Int).Set(evm.Block.BaseFee))
	} else {
		in.stack.Push(new(uint256.Int))
	}
	return nil
}

func opBlobHash(pc *uint64, in *Interpreter, evm *EVM) error {
	index := in.stack.Peek()
	if index.LtUint64(uint64(len(evm.Tx.BlobHashes))) {
		index.SetBytes(evm.Tx.BlobHashes[index.Uint64()].Bytes())
	} else {
		index.Clear()
	}
	return nil
}

func opBlobBaseFee(pc *uint64, in *Interpreter, evm *EVM) error {
	if evm.Block.BlobBaseFee != nil {
		in.stack.Push(new(uint256.Int).Set(evm.Block.BlobBaseFee))
	} else {
		in.stack.Push(new(uint256.Int))
	}
	return nil
}

func opPop(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Pop()
	return nil
}

func opMload(pc *uint64, in *Interpreter, evm *EVM) error {
	v := in.stack.Peek()
	offset := v.Uint64()
	v.SetBytes(in.mem.GetPtr(offset, 32))
	return nil
}

func opMstore(pc *uint64, in *Interpreter, evm *EVM) error {
	offset := in.stack.Pop()
	value := in.stack.Pop()
	in.mem.Set32(offset.Uint64(), &value)
	return nil
}

func opMstore8(pc *uint64, in *Interpreter, evm *EVM) error {
	offset := in.stack.Pop()
	value := in.stack.Pop()
	in.mem.SetByte(offset.Uint64(), byte(value.Uint64()))
	return nil
}

func opJump(pc *uint64, in *Interpreter, evm *EVM) error {
	dest := in.stack.Pop()
	if !dest.IsUint64() || !in.contract.Bytecode.ValidJumpdest(dest.Uint64()) {
		return ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil
}

func opJumpi(pc *uint64, in *Interpreter, evm *EVM) error {
	dest := in.stack.Pop()
	cond := in.stack.Pop()
	if cond.IsZero() {
		*pc++
		return nil
	}
	if !dest.IsUint64() || !in.contract.Bytecode.ValidJumpdest(dest.Uint64()) {
		return ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil
}

func opPc(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(*pc))
	return nil
}

func opMsize(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(uint64(in.mem.Len())))
	return nil
}

func opGas(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(uint256.NewInt(in.gas.Remaining()))
	return nil
}

func opJumpdest(pc *uint64, in *Interpreter, evm *EVM) error {
	return nil
}

func opMcopy(pc *uint64, in *Interpreter, evm *EVM) error {
	dst := in.stack.Pop()
	src := in.stack.Pop()
	length := in.stack.Pop()
	in.mem.Copy(dst.Uint64(), src.Uint64(), length.Uint64())
	return nil
}

func opPush0(pc *uint64, in *Interpreter, evm *EVM) error {
	in.stack.Push(new(uint256.Int))
	return nil
}

// makePush builds PUSH1..PUSH32: read n immediate bytes (zero-padded past
// the end of code) and advance pc over them.
func makePush(n uint64) executionFunc {
	return func(pc *uint64, in *Interpreter, evm *EVM) error {
		code := in.contract.Code()
		start := *pc + 1
		end := start + n
		if start > uint64(len(code)) {
			start = uint64(len(code))
		}
		if end > uint64(len(code)) {
			end = uint64(len(code))
		}
		// Truncated immediates pad on the low side (right-padding).
		var padded [32]byte
		copy(padded[:n], code[start:end])
		in.stack.PushBytes(padded[:n])
		*pc += n
		return nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, in *Interpreter, evm *EVM) error {
		in.stack.Dup(n)
		return nil
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, in *Interpreter, evm *EVM) error {
		in.stack.Swap(n)
		return nil
	}
}

// getData returns a zero-padded slice of data at [start, start+size).
func getData(data []byte, start, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	out := make([]byte, size)
	copy(out, data[start:end])
	return out
}
