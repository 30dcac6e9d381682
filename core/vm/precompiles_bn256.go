package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto/bn256"
)

// BN254 (alt_bn128) precompiles at 0x06..0x08. Istanbul (EIP-1108)
// lowered their prices.

type bn256AddPrecompile struct {
	istanbul bool
}

func (p *bn256AddPrecompile) RequiredGas([]byte) uint64 {
	if p.istanbul {
		return 150
	}
	return 500
}

func (p *bn256AddPrecompile) Run(input []byte) ([]byte, error) {
	x, err := decodeBN256G1(getData(input, 0, 64))
	if err != nil {
		return nil, err
	}
	y, err := decodeBN256G1(getData(input, 64, 64))
	if err != nil {
		return nil, err
	}
	res := new(bn256.G1)
	res.Add(x, y)
	return res.Marshal(), nil
}

type bn256MulPrecompile struct {
	istanbul bool
}

func (p *bn256MulPrecompile) RequiredGas([]byte) uint64 {
	if p.istanbul {
		return 6000
	}
	return 40000
}

func (p *bn256MulPrecompile) Run(input []byte) ([]byte, error) {
	x, err := decodeBN256G1(getData(input, 0, 64))
	if err != nil {
		return nil, err
	}
	scalar := bigFromBytes(getData(input, 64, 32))
	res := new(bn256.G1)
	res.ScalarMult(x, scalar)
	return res.Marshal(), nil
}

type bn256PairingPrecompile struct {
	istanbul bool
}

func (p *bn256PairingPrecompile) RequiredGas(input []byte) uint64 {
	pairs := uint64(len(input) / 192)
	if p.istanbul {
		return 45000 + 34000*pairs
	}
	return 100000 + 80000*pairs
}

func (p *bn256PairingPrecompile) Run(input []byte) ([]byte, error) {
	if len(input)%192 != 0 {
		return nil, errPrecompileInput
	}
	var (
		g1s []*bn256.G1
		g2s []*bn256.G2
	)
	for i := 0; i < len(input); i += 192 {
		g1, err := decodeBN256G1(input[i : i+64])
		if err != nil {
			return nil, err
		}
		g2 := new(bn256.G2)
		if _, err := g2.Unmarshal(input[i+64 : i+192]); err != nil {
			return nil, errPrecompileInput
		}
		g1s = append(g1s, g1)
		g2s = append(g2s, g2)
	}
	out := make([]byte, 32)
	if bn256.PairingCheck(g1s, g2s) {
		out[31] = 1
	}
	return out, nil
}

func bigFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func decodeBN256G1(b []byte) (*bn256.G1, error) {
	g := new(bn256.G1)
	if _, err := g.Unmarshal(b); err != nil {
		return nil, errPrecompileInput
	}
	return g, nil
}
