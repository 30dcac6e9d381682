package vm

import (
	blst "github.com/supranational/blst/bindings/go"
)

// BLS12-381 precompiles at 0x0b..0x11 (EIP-2537, Prague). Point
// arithmetic and pairings are supplied by the blst library; this file
// handles the ABI framing: field elements are 64-byte words whose top 16
// bytes must be zero, G1 points are 128 bytes, G2 points are 256 bytes.

const (
	blsG1AddGas     = 375
	blsG2AddGas     = 600
	blsG1MulGas     = 12000
	blsG2MulGas     = 22500
	blsPairBaseGas  = 37700
	blsPairPerPair  = 32600
	blsMapG1Gas     = 5500
	blsMapG2Gas     = 23800
)

// blsMSMDiscount is the EIP-2537 multi-scalar multiplication discount
// table in parts-per-thousand, indexed by pair count (capped at 128).
var blsMSMDiscount = [128]uint64{
	1200, 888, 764, 641, 594, 547, 500, 453, 438, 423, 408, 394, 379, 364,
	349, 334, 330, 326, 322, 318, 314, 310, 306, 302, 298, 294, 289, 285,
	281, 277, 273, 269, 268, 266, 265, 263, 262, 260, 259, 257, 256, 254,
	253, 251, 250, 248, 247, 245, 244, 242, 241, 239, 238, 236, 235, 233,
	232, 231, 229, 228, 226, 225, 223, 222, 221, 220, 219, 219, 218, 217,
	216, 216, 215, 214, 213, 213, 212, 211, 211, 210, 209, 208, 208, 207,
	206, 205, 205, 204, 203, 202, 202, 201, 200, 199, 199, 198, 197, 196,
	196, 195, 194, 193, 193, 192, 191, 191, 190, 189, 188, 188, 187, 186,
	185, 185, 184, 183, 182, 182, 181, 180, 179, 179, 178, 177, 176, 176,
	175, 174,
}

func msmGas(pairs int, perMul uint64) uint64 {
	if pairs == 0 {
		return 0
	}
	idx := pairs - 1
	if idx > 127 {
		idx = 127
	}
	return uint64(pairs) * perMul * blsMSMDiscount[idx] / 1000
}

// decodeBLSFieldElement strips the 16-byte padding of one 64-byte
// field-element word.
func decodeBLSFieldElement(b []byte) ([]byte, error) {
	if len(b) != 64 {
		return nil, errPrecompileInput
	}
	for _, pad := range b[:16] {
		if pad != 0 {
			return nil, errPrecompileInput
		}
	}
	return b[16:], nil
}

// decodeBLSG1 parses a 128-byte EIP-2537 G1 point and checks subgroup
// membership.
func decodeBLSG1(b []byte) (*blst.P1Affine, error) {
	if len(b) != 128 {
		return nil, errPrecompileInput
	}
	x, err := decodeBLSFieldElement(b[:64])
	if err != nil {
		return nil, err
	}
	y, err := decodeBLSFieldElement(b[64:])
	if err != nil {
		return nil, err
	}
	raw := append(append([]byte(nil), x...), y...)
	point := new(blst.P1Affine).Deserialize(raw)
	if point == nil || !point.InG1() {
		return nil, errPrecompileInput
	}
	return point, nil
}

// decodeBLSG2 parses a 256-byte EIP-2537 G2 point.
func decodeBLSG2(b []byte) (*blst.P2Affine, error) {
	if len(b) != 256 {
		return nil, errPrecompileInput
	}
	raw := make([]byte, 0, 192)
	for i := 0; i < 4; i++ {
		fe, err := decodeBLSFieldElement(b[i*64 : (i+1)*64])
		if err != nil {
			return nil, err
		}
		raw = append(raw, fe...)
	}
	point := new(blst.P2Affine).Deserialize(raw)
	if point == nil || !point.InG2() {
		return nil, errPrecompileInput
	}
	return point, nil
}

func encodeBLSG1(point *blst.P1Affine) []byte {
	raw := point.Serialize()
	out := make([]byte, 128)
	copy(out[16:64], raw[:48])
	copy(out[80:128], raw[48:])
	return out
}

func encodeBLSG2(point *blst.P2Affine) []byte {
	raw := point.Serialize()
	out := make([]byte, 256)
	for i := 0; i < 4; i++ {
		copy(out[i*64+16:(i+1)*64], raw[i*48:(i+1)*48])
	}
	return out
}

type blsG1AddPrecompile struct{}

func (*blsG1AddPrecompile) RequiredGas([]byte) uint64 { return blsG1AddGas }

func (*blsG1AddPrecompile) Run(input []byte) ([]byte, error) {
	if len(input) != 256 {
		return nil, errPrecompileInput
	}
	a, err := decodeBLSG1(input[:128])
	if err != nil {
		return nil, err
	}
	b, err := decodeBLSG1(input[128:])
	if err != nil {
		return nil, err
	}
	sum := blst.P1AffinesAdd([]*blst.P1Affine{a, b})
	return encodeBLSG1(sum.ToAffine()), nil
}

type blsG1MSMPrecompile struct{}

func (*blsG1MSMPrecompile) RequiredGas(input []byte) uint64 {
	return msmGas(len(input)/160, blsG1MulGas)
}

func (*blsG1MSMPrecompile) Run(input []byte) ([]byte, error) {
	if len(input) == 0 || len(input)%160 != 0 {
		return nil, errPrecompileInput
	}
	pairs := len(input) / 160
	points := make([]*blst.P1Affine, pairs)
	scalars := make([]byte, 0, pairs*32)
	for i := 0; i < pairs; i++ {
		point, err := decodeBLSG1(input[i*160 : i*160+128])
		if err != nil {
			return nil, err
		}
		points[i] = point
		// blst consumes scalars little-endian.
		scalar := input[i*160+128 : i*160+160]
		for k := 31; k >= 0; k-- {
			scalars = append(scalars, scalar[k])
		}
	}
	res := blst.P1AffinesMult(points, scalars, 256)
	return encodeBLSG1(res.ToAffine()), nil
}

type blsG2AddPrecompile struct{}

func (*blsG2AddPrecompile) RequiredGas([]byte) uint64 { return blsG2AddGas }

func (*blsG2AddPrecompile) Run(input []byte) ([]byte, error) {
	if len(input) != 512 {
		return nil, errPrecompileInput
	}
	a, err := decodeBLSG2(input[:256])
	if err != nil {
		return nil, err
	}
	b, err := decodeBLSG2(input[256:])
	if err != nil {
		return nil, err
	}
	sum := blst.P2AffinesAdd([]*blst.P2Affine{a, b})
	return encodeBLSG2(sum.ToAffine()), nil
}

type blsG2MSMPrecompile struct{}

func (*blsG2MSMPrecompile) RequiredGas(input []byte) uint64 {
	return msmGas(len(input)/288, blsG2MulGas)
}

func (*blsG2MSMPrecompile) Run(input []byte) ([]byte, error) {
	if len(input) == 0 || len(input)%288 != 0 {
		return nil, errPrecompileInput
	}
	pairs := len(input) / 288
	points := make([]*blst.P2Affine, pairs)
	scalars := make([]byte, 0, pairs*32)
	for i := 0; i < pairs; i++ {
		point, err := decodeBLSG2(input[i*288 : i*288+256])
		if err != nil {
			return nil, err
		}
		points[i] = point
		scalar := input[i*288+256 : i*288+288]
		for k := 31; k >= 0; k-- {
			scalars = append(scalars, scalar[k])
		}
	}
	res := blst.P2AffinesMult(points, scalars, 256)
	return encodeBLSG2(res.ToAffine()), nil
}

type blsPairingPrecompile struct{}

func (*blsPairingPrecompile) RequiredGas(input []byte) uint64 {
	return blsPairBaseGas + blsPairPerPair*uint64(len(input)/384)
}

func (*blsPairingPrecompile) Run(input []byte) ([]byte, error) {
	if len(input) == 0 || len(input)%384 != 0 {
		return nil, errPrecompileInput
	}
	one := blst.Fp12One()
	acc := blst.Fp12One()
	for i := 0; i < len(input); i += 384 {
		g1, err := decodeBLSG1(input[i : i+128])
		if err != nil {
			return nil, err
		}
		g2, err := decodeBLSG2(input[i+128 : i+384])
		if err != nil {
			return nil, err
		}
		acc.MulAssign(blst.Fp12MillerLoop(g2, g1))
	}
	out := make([]byte, 32)
	if blst.Fp12FinalVerify(&acc, &one) {
		out[31] = 1
	}
	return out, nil
}

type blsMapFpToG1Precompile struct{}

func (*blsMapFpToG1Precompile) RequiredGas([]byte) uint64 { return blsMapG1Gas }

func (*blsMapFpToG1Precompile) Run(input []byte) ([]byte, error) {
	fe, err := decodeBLSFieldElement(input)
	if err != nil {
		return nil, err
	}
	var fp blst.Fp
	if fp.FromBEndian(fe) == nil {
		return nil, errPrecompileInput
	}
	point := blst.MapToG1(&fp)
	return encodeBLSG1(point.ToAffine()), nil
}

type blsMapFp2ToG2Precompile struct{}

func (*blsMapFp2ToG2Precompile) RequiredGas([]byte) uint64 { return blsMapG2Gas }

func (*blsMapFp2ToG2Precompile) Run(input []byte) ([]byte, error) {
	if len(input) != 128 {
		return nil, errPrecompileInput
	}
	c0, err := decodeBLSFieldElement(input[:64])
	if err != nil {
		return nil, err
	}
	c1, err := decodeBLSFieldElement(input[64:])
	if err != nil {
		return nil, err
	}
	var fp2 blst.Fp2
	if fp2.Deserialize(append(append([]byte(nil), c0...), c1...)) == nil {
		return nil, errPrecompileInput
	}
	point := blst.MapToG2(&fp2)
	return encodeBLSG2(point.ToAffine()), nil
}
