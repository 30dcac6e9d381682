package vm

// Gas cost tiers per Yellow Paper Appendix G, plus the opcode costs that
// are not spec-gated. Fork-dependent costs live in the dynamic gas
// functions.
const (
	GasZero    uint64 = 0
	GasBase    uint64 = 2
	GasVerylow uint64 = 3
	GasLow     uint64 = 5
	GasMid     uint64 = 8
	GasHigh    uint64 = 10
	GasExt     uint64 = 20

	GasKeccak256     uint64 = 30
	GasKeccak256Word uint64 = 6
	GasCopyWord      uint64 = 3
	GasMemoryWord    uint64 = 3

	GasLog      uint64 = 375
	GasLogTopic uint64 = 375
	GasLogByte  uint64 = 8

	GasCreate       uint64 = 32000
	GasCallValue    uint64 = 9000
	GasCallStipend  uint64 = 2300
	GasNewAccount   uint64 = 25000
	GasSelfdestruct uint64 = 5000

	GasJumpdest uint64 = 1
	GasExpByte  uint64 = 50 // EIP-160 (10 pre-SpuriousDragon)

	GasTload       uint64 = 100
	GasTstore      uint64 = 100
	GasBlobHash    uint64 = 3
	GasBlobBaseFee uint64 = 2

	// Pre-Berlin static account access costs.
	GasBalanceFrontier     uint64 = 20
	GasBalanceIstanbul     uint64 = 700
	GasExtcodeFrontier     uint64 = 20
	GasExtcodeTangerine    uint64 = 700
	GasExtcodeHashIstanbul uint64 = 700
	GasSloadFrontier       uint64 = 50
	GasSloadTangerine      uint64 = 200
	GasSloadIstanbul       uint64 = 800
	GasCallFrontier        uint64 = 40
	GasCallTangerine       uint64 = 700
)

// Gas is the per-frame gas meter. The memory counter tracks the
// cumulative expansion charge separately so the M1 expansion law holds:
// expanding to n then m charges exactly what expanding to m directly
// would.
type Gas struct {
	limit    uint64
	used     uint64
	memory   uint64
	refunded int64
}

// NewGas returns a meter with the given limit.
func NewGas(limit uint64) Gas {
	return Gas{limit: limit}
}

// Limit returns the frame gas limit.
func (g *Gas) Limit() uint64 { return g.limit }

// AllUsed returns execution plus memory gas consumed so far.
func (g *Gas) AllUsed() uint64 { return g.used + g.memory }

// Remaining returns the gas left in the frame.
func (g *Gas) Remaining() uint64 { return g.limit - g.AllUsed() }

// Refunded returns the accumulated refund counter.
func (g *Gas) Refunded() int64 { return g.refunded }

// RecordCost consumes cost execution gas, reporting false on exhaustion.
func (g *Gas) RecordCost(cost uint64) bool {
	if g.Remaining() < cost {
		return false
	}
	g.used += cost
	return true
}

// RecordRefund adjusts the refund counter; negative deltas occur when a
// storage slot is restored to its original value (EIP-3529 corrections).
func (g *Gas) RecordRefund(delta int64) {
	g.refunded += delta
}

// SetRefund overwrites the refund counter (child-frame absorption).
func (g *Gas) SetRefund(refund int64) {
	g.refunded = refund
}

// RecordMemory raises the cumulative memory charge to total, consuming
// the difference. Reports false on exhaustion.
func (g *Gas) RecordMemory(total uint64) bool {
	if total <= g.memory {
		return true
	}
	delta := total - g.memory
	if g.Remaining() < delta {
		return false
	}
	g.memory = total
	return true
}

// ReturnGas credits unused gas handed back by a completed child frame.
func (g *Gas) ReturnGas(amount uint64) {
	if amount > g.used {
		// Memory gas is never returned; only execution gas moves
		// between frames.
		g.used = 0
		return
	}
	g.used -= amount
}

// ConsumeAll burns the frame's remaining gas (halting faults).
func (g *Gas) ConsumeAll() {
	g.used = g.limit - g.memory
}

// memoryGasCost returns the total memory charge for a size of the given
// number of bytes: 3·W + W²/512 for W 32-byte words.
func memoryGasCost(size uint64) (uint64, bool) {
	if size == 0 {
		return 0, true
	}
	// Cap well below overflow territory; the per-frame byte limit is
	// enforced separately.
	if size > 0x1FFFFFFFE0 {
		return 0, false
	}
	words := (size + 31) / 32
	return GasMemoryWord*words + words*words/512, true
}

// toWordSize rounds a byte size up to 32-byte words.
func toWordSize(size uint64) uint64 {
	if size > 1<<62 {
		return size/32 + 1
	}
	return (size + 31) / 32
}
