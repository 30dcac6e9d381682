package vm

import (
	"github.com/corevm/corevm/core/state"
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/params"
)

// BytecodeKind discriminates the bytecode variants.
type BytecodeKind uint8

const (
	BytecodeLegacy BytecodeKind = iota
	BytecodeEOF
	BytecodeDelegation
)

// Bytecode is executable code in analyzed form. Legacy code carries a
// JUMPDEST bitmap and a trailing STOP sentinel so dispatch never reads
// past the array; EOF code carries its decoded container; a delegation
// designator carries the 20-byte target.
type Bytecode struct {
	Kind BytecodeKind

	// Legacy analyzed fields. Code is the raw bytes plus one STOP byte;
	// OrigLen is the length without the sentinel.
	Code      []byte
	OrigLen   int
	jumpdests bitvec

	// EOF container (Kind == BytecodeEOF).
	Container *EOF

	// Delegation target (Kind == BytecodeDelegation).
	Delegate types.Address
}

// bitvec is a packed bit set marking code offsets that are valid
// JUMPDEST targets.
type bitvec []uint64

func (bv bitvec) set(pos uint64)      { bv[pos/64] |= 1 << (pos % 64) }
func (bv bitvec) isSet(pos uint64) bool { return bv[pos/64]&(1<<(pos%64)) != 0 }

// Analyze converts raw legacy code to analyzed form: one linear pass
// marking JUMPDEST offsets (skipping PUSH immediates) and appending the
// STOP sentinel.
func Analyze(raw []byte) *Bytecode {
	bv := make(bitvec, (len(raw)+63)/64+1)
	for i := 0; i < len(raw); {
		op := OpCode(raw[i])
		switch {
		case op == JUMPDEST:
			bv.set(uint64(i))
			i++
		case op.IsPush():
			i += int(op-PUSH1) + 2
		default:
			i++
		}
	}
	code := make([]byte, len(raw)+1)
	copy(code, raw)
	code[len(raw)] = byte(STOP)
	return &Bytecode{
		Kind:      BytecodeLegacy,
		Code:      code,
		OrigLen:   len(raw),
		jumpdests: bv,
	}
}

// NewBytecode classifies raw code by its leading bytes: an EOF container,
// an EIP-7702 delegation designator, or legacy code to analyze. EOF is
// only decoded on specs that enable it; otherwise 0xEF-prefixed code is
// treated as legacy (it can exist pre-EOF only as delegation markers or
// pre-deposit-check artifacts).
func NewBytecode(raw []byte, spec params.SpecID) (*Bytecode, error) {
	if target, ok := state.ParseDelegation(raw); ok {
		return &Bytecode{Kind: BytecodeDelegation, Delegate: target}, nil
	}
	if spec.Enabled(params.Osaka) && len(raw) >= 2 && raw[0] == eofMagic0 && raw[1] == eofMagic1 {
		container, err := DecodeEOF(raw)
		if err != nil {
			return nil, err
		}
		return &Bytecode{Kind: BytecodeEOF, Container: container, Code: raw}, nil
	}
	return Analyze(raw), nil
}

// ValidJumpdest reports whether dest is a valid jump target.
func (b *Bytecode) ValidJumpdest(dest uint64) bool {
	if dest >= uint64(b.OrigLen) {
		return false
	}
	return b.jumpdests.isSet(dest)
}

// Len returns the code length without the sentinel.
func (b *Bytecode) Len() int {
	return b.OrigLen
}
