package vm

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/crypto"
	"github.com/corevm/corevm/params"
)

// PrecompiledContract is the dispatch interface for native contracts:
// a gas schedule over the input and the execution itself. A returned
// error consumes all gas passed to the precompile.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

var errPrecompileInput = errors.New("invalid precompile input")

func precompileAddr(n byte) types.Address {
	var a types.Address
	a[types.AddressLength-1] = n
	return a
}

var (
	// Frontier through Spurious Dragon.
	precompilesHomestead = map[types.Address]PrecompiledContract{
		precompileAddr(0x01): &ecrecoverPrecompile{},
		precompileAddr(0x02): &sha256Precompile{},
		precompileAddr(0x03): &ripemd160Precompile{},
		precompileAddr(0x04): &identityPrecompile{},
	}
	precompilesByzantium = mergePrecompiles(precompilesHomestead, map[types.Address]PrecompiledContract{
		precompileAddr(0x05): &modexpPrecompile{},
		precompileAddr(0x06): &bn256AddPrecompile{istanbul: false},
		precompileAddr(0x07): &bn256MulPrecompile{istanbul: false},
		precompileAddr(0x08): &bn256PairingPrecompile{istanbul: false},
	})
	precompilesIstanbul = mergePrecompiles(precompilesByzantium, map[types.Address]PrecompiledContract{
		precompileAddr(0x06): &bn256AddPrecompile{istanbul: true},
		precompileAddr(0x07): &bn256MulPrecompile{istanbul: true},
		precompileAddr(0x08): &bn256PairingPrecompile{istanbul: true},
		precompileAddr(0x09): &blake2FPrecompile{},
	})
	precompilesBerlin = mergePrecompiles(precompilesIstanbul, map[types.Address]PrecompiledContract{
		precompileAddr(0x05): &modexpPrecompile{eip2565: true},
	})
	precompilesCancun = mergePrecompiles(precompilesBerlin, map[types.Address]PrecompiledContract{
		precompileAddr(0x0a): &kzgPointEvaluationPrecompile{},
	})
	precompilesPrague = mergePrecompiles(precompilesCancun, map[types.Address]PrecompiledContract{
		precompileAddr(0x0b): &blsG1AddPrecompile{},
		precompileAddr(0x0c): &blsG1MSMPrecompile{},
		precompileAddr(0x0d): &blsG2AddPrecompile{},
		precompileAddr(0x0e): &blsG2MSMPrecompile{},
		precompileAddr(0x0f): &blsPairingPrecompile{},
		precompileAddr(0x10): &blsMapFpToG1Precompile{},
		precompileAddr(0x11): &blsMapFp2ToG2Precompile{},
	})
	precompilesOsaka = mergePrecompiles(precompilesPrague, map[types.Address]PrecompiledContract{
		precompileAddr(0x05): &modexpPrecompile{eip2565: true, eip7883: true},
	})
)

func mergePrecompiles(base, overlay map[types.Address]PrecompiledContract) map[types.Address]PrecompiledContract {
	out := make(map[types.Address]PrecompiledContract, len(base)+len(overlay))
	for addr, p := range base {
		out[addr] = p
	}
	for addr, p := range overlay {
		out[addr] = p
	}
	return out
}

// ActivePrecompiles returns the precompile set for a hardfork.
func ActivePrecompiles(spec params.SpecID) map[types.Address]PrecompiledContract {
	switch {
	case spec.Enabled(params.Osaka):
		return precompilesOsaka
	case spec.Enabled(params.Prague):
		return precompilesPrague
	case spec.Enabled(params.Cancun):
		return precompilesCancun
	case spec.Enabled(params.Berlin):
		return precompilesBerlin
	case spec.Enabled(params.Istanbul):
		return precompilesIstanbul
	case spec.Enabled(params.Byzantium):
		return precompilesByzantium
	default:
		return precompilesHomestead
	}
}

// PrecompileAddresses returns the active addresses, for warm-set seeding.
func PrecompileAddresses(spec params.SpecID) []types.Address {
	set := ActivePrecompiles(spec)
	addrs := make([]types.Address, 0, len(set))
	for addr := range set {
		addrs = append(addrs, addr)
	}
	return addrs
}

// RunPrecompile executes p with the given gas, returning output and the
// gas left. Errors consume everything.
func RunPrecompile(p PrecompiledContract, input []byte, gas uint64) ([]byte, uint64, error) {
	cost := p.RequiredGas(input)
	if gas < cost {
		return nil, 0, ErrOutOfGas
	}
	output, err := p.Run(input)
	if err != nil {
		return nil, 0, ErrPrecompileFailure
	}
	return output, gas - cost, nil
}

// ecrecoverPrecompile (0x01) recovers the signer of a 32-byte hash from a
// 65-byte signature laid out as hash ‖ v(32) ‖ r(32) ‖ s(32).
type ecrecoverPrecompile struct{}

func (*ecrecoverPrecompile) RequiredGas([]byte) uint64 { return 3000 }

func (*ecrecoverPrecompile) Run(input []byte) ([]byte, error) {
	const inputLen = 128
	in := make([]byte, inputLen)
	copy(in, input)

	// v is a 32-byte big-endian quantity that must be 27 or 28.
	for _, b := range in[32:63] {
		if b != 0 {
			return nil, nil
		}
	}
	v := in[63]
	if v != 27 && v != 28 {
		return nil, nil
	}
	sig := make([]byte, 65)
	copy(sig[:64], in[64:128])
	sig[64] = v - 27

	addr, err := crypto.RecoverAddress(in[:32], sig)
	if err != nil {
		// Invalid signatures return empty output, not an error.
		return nil, nil
	}
	return addr.Hash().Bytes(), nil
}

// sha256Precompile (0x02).
type sha256Precompile struct{}

func (*sha256Precompile) RequiredGas(input []byte) uint64 {
	return 60 + 12*toWordSize(uint64(len(input)))
}

func (*sha256Precompile) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// ripemd160Precompile (0x03).
type ripemd160Precompile struct{}

func (*ripemd160Precompile) RequiredGas(input []byte) uint64 {
	return 600 + 120*toWordSize(uint64(len(input)))
}

func (*ripemd160Precompile) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	return types.BytesToHash(h.Sum(nil)).Bytes(), nil
}

// identityPrecompile (0x04).
type identityPrecompile struct{}

func (*identityPrecompile) RequiredGas(input []byte) uint64 {
	return 15 + 3*toWordSize(uint64(len(input)))
}

func (*identityPrecompile) Run(input []byte) ([]byte, error) {
	return append([]byte(nil), input...), nil
}

// modexpPrecompile (0x05) computes base^exp mod m over arbitrary-size
// operands. The gas formula changed at Berlin (EIP-2565) and Osaka
// (EIP-7883).
type modexpPrecompile struct {
	eip2565 bool
	eip7883 bool
}

func (p *modexpPrecompile) RequiredGas(input []byte) uint64 {
	baseLen := readBigIntHead(input, 0)
	expLen := readBigIntHead(input, 32)
	modLen := readBigIntHead(input, 64)

	// Leading exponent word for the adjusted exponent length.
	expHead := new(big.Int)
	if baseLen.IsUint64() && baseLen.Uint64() < uint64(len(input)) {
		off := 96 + baseLen.Uint64()
		n := uint64(32)
		if expLen.Uint64() < 32 {
			n = expLen.Uint64()
		}
		expHead.SetBytes(getData(input, off, n))
	}
	adjExpLen := new(big.Int)
	if expLen.Cmp(big.NewInt(32)) > 0 {
		adjExpLen.Sub(expLen, big.NewInt(32))
		adjExpLen.Mul(adjExpLen, big.NewInt(8))
	}
	if bitlen := expHead.BitLen(); bitlen > 0 {
		adjExpLen.Add(adjExpLen, big.NewInt(int64(bitlen-1)))
	}
	if adjExpLen.Sign() == 0 {
		adjExpLen.SetInt64(1)
	}

	maxLen := new(big.Int).Set(baseLen)
	if modLen.Cmp(maxLen) > 0 {
		maxLen.Set(modLen)
	}
	gas := new(big.Int)
	switch {
	case p.eip2565:
		// words^2, then /3 after multiplying by the iteration count.
		words := new(big.Int).Add(maxLen, big.NewInt(7))
		words.Rsh(words, 3)
		gas.Mul(words, words)
		if p.eip7883 {
			gas.Mul(gas, big.NewInt(2))
		}
		gas.Mul(gas, adjExpLen)
		gas.Div(gas, big.NewInt(3))
	default:
		// EIP-198 multiplication complexity.
		gas.Set(multComplexityEIP198(maxLen))
		gas.Mul(gas, adjExpLen)
		gas.Div(gas, big.NewInt(20))
	}
	floor := uint64(0)
	if p.eip2565 {
		floor = 200
	}
	if p.eip7883 {
		floor = 500
	}
	if !gas.IsUint64() {
		return ^uint64(0)
	}
	if gas.Uint64() < floor {
		return floor
	}
	return gas.Uint64()
}

func multComplexityEIP198(x *big.Int) *big.Int {
	switch {
	case x.Cmp(big.NewInt(64)) <= 0:
		return new(big.Int).Mul(x, x)
	case x.Cmp(big.NewInt(1024)) <= 0:
		out := new(big.Int).Mul(x, x)
		out.Div(out, big.NewInt(4))
		out.Add(out, new(big.Int).Mul(big.NewInt(96), x))
		return out.Sub(out, big.NewInt(3072))
	default:
		out := new(big.Int).Mul(x, x)
		out.Div(out, big.NewInt(16))
		out.Add(out, new(big.Int).Mul(big.NewInt(480), x))
		return out.Sub(out, big.NewInt(199680))
	}
}

func (p *modexpPrecompile) Run(input []byte) ([]byte, error) {
	baseLen := readBigIntHead(input, 0)
	expLen := readBigIntHead(input, 32)
	modLen := readBigIntHead(input, 64)
	if !baseLen.IsUint64() || !expLen.IsUint64() || !modLen.IsUint64() {
		return nil, errPrecompileInput
	}
	bl, el, ml := baseLen.Uint64(), expLen.Uint64(), modLen.Uint64()
	if bl == 0 && ml == 0 {
		return nil, nil
	}
	base := new(big.Int).SetBytes(getData(input, 96, bl))
	exp := new(big.Int).SetBytes(getData(input, 96+bl, el))
	mod := new(big.Int).SetBytes(getData(input, 96+bl+el, ml))

	out := make([]byte, ml)
	if mod.Sign() == 0 {
		return out, nil
	}
	result := new(big.Int).Exp(base, exp, mod).Bytes()
	copy(out[ml-uint64(len(result)):], result)
	return out, nil
}

func readBigIntHead(input []byte, offset uint64) *big.Int {
	return new(big.Int).SetBytes(getData(input, offset, 32))
}

// blake2FPrecompile (0x09) is the BLAKE2b compression function (EIP-152).
type blake2FPrecompile struct{}

func (*blake2FPrecompile) RequiredGas(input []byte) uint64 {
	if len(input) != 213 {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(input[0:4]))
}

func (*blake2FPrecompile) Run(input []byte) ([]byte, error) {
	if len(input) != 213 {
		return nil, errPrecompileInput
	}
	if input[212] != 0 && input[212] != 1 {
		return nil, errPrecompileInput
	}
	rounds := binary.BigEndian.Uint32(input[0:4])
	final := input[212] == 1

	var (
		h [8]uint64
		m [16]uint64
		t [2]uint64
	)
	for i := 0; i < 8; i++ {
		h[i] = binary.LittleEndian.Uint64(input[4+i*8:])
	}
	for i := 0; i < 16; i++ {
		m[i] = binary.LittleEndian.Uint64(input[68+i*8:])
	}
	t[0] = binary.LittleEndian.Uint64(input[196:204])
	t[1] = binary.LittleEndian.Uint64(input[204:212])

	blake2b.F(&h, m, t, final, rounds)

	out := make([]byte, 64)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], h[i])
	}
	return out, nil
}
