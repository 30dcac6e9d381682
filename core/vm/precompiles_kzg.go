package vm

import (
	"crypto/sha256"

	goethkzg "github.com/crate-crypto/go-eth-kzg"

	"github.com/corevm/corevm/params"
)

// kzgPointEvaluationPrecompile (0x0a) verifies a KZG proof that a blob
// polynomial evaluates to a claimed value at a point (EIP-4844). The
// verification itself is supplied by go-eth-kzg with the embedded
// ceremony trusted setup.
type kzgPointEvaluationPrecompile struct{}

const kzgPointEvalGas = 50000

// blobVerifyResult is the constant success output: the field element
// count and the BLS modulus, each as a 32-byte word.
var blobVerifyResult = func() []byte {
	out := make([]byte, 64)
	// FIELD_ELEMENTS_PER_BLOB = 4096
	out[30] = 0x10
	// BLS_MODULUS
	modulus := []byte{
		0x73, 0xed, 0xa7, 0x53, 0x29, 0x9d, 0x7d, 0x48, 0x33, 0x39, 0xd8, 0x08,
		0x09, 0xa1, 0xd8, 0x05, 0x53, 0xbd, 0xa4, 0x02, 0xff, 0xfe, 0x5b, 0xfe,
		0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x01,
	}
	copy(out[32:], modulus)
	return out
}()

var kzgContext = func() *goethkzg.Context {
	ctx, err := goethkzg.NewContext4096Secure()
	if err != nil {
		panic("kzg: failed to initialize trusted setup: " + err.Error())
	}
	return ctx
}()

func (*kzgPointEvaluationPrecompile) RequiredGas([]byte) uint64 {
	return kzgPointEvalGas
}

// Run input layout: versioned_hash(32) ‖ z(32) ‖ y(32) ‖ commitment(48) ‖
// proof(48).
func (*kzgPointEvaluationPrecompile) Run(input []byte) ([]byte, error) {
	if len(input) != 192 {
		return nil, errPrecompileInput
	}
	var versionedHash [32]byte
	copy(versionedHash[:], input[:32])

	var (
		z     goethkzg.Scalar
		y     goethkzg.Scalar
		comm  goethkzg.KZGCommitment
		proof goethkzg.KZGProof
	)
	copy(z[:], input[32:64])
	copy(y[:], input[64:96])
	copy(comm[:], input[96:144])
	copy(proof[:], input[144:192])

	if kzgToVersionedHash(comm) != versionedHash {
		return nil, errPrecompileInput
	}
	if err := kzgContext.VerifyKZGProof(comm, z, y, proof); err != nil {
		return nil, errPrecompileInput
	}
	return append([]byte(nil), blobVerifyResult...), nil
}

// kzgToVersionedHash computes the EIP-4844 versioned hash of a
// commitment: sha256 with the first byte replaced by the version.
func kzgToVersionedHash(commitment goethkzg.KZGCommitment) [32]byte {
	h := sha256.Sum256(commitment[:])
	h[0] = params.BlobCommitmentVersionKZG
	return h
}
