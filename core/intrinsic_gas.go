package core

import (
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/params"
)

// IntrinsicGas computes the gas charged before any opcode executes: the
// flat fee, calldata bytes, creation surcharge and initcode words, access
// list warming, and authorization setup.
func IntrinsicGas(tx *types.Transaction, spec params.SpecID) uint64 {
	gas := params.TxGas
	if tx.To() == nil {
		gas += params.CreateGas
		if spec.Enabled(params.Shanghai) {
			gas += params.InitcodeWordGas * toWordSize(uint64(len(tx.Data())))
		}
	}

	nonZeroGas := params.TxDataNonZeroGas
	if !spec.Enabled(params.Istanbul) {
		nonZeroGas = params.TxDataNonZeroGasOld
	}
	zeros, nonZeros := countCalldataBytes(tx.Data())
	gas += zeros*params.TxDataZeroGas + nonZeros*nonZeroGas

	if al := tx.AccessList(); al != nil {
		gas += uint64(len(al)) * params.TxAccessListAddress
		gas += uint64(al.StorageKeys()) * params.TxAccessListStorage
	}
	// EIP-7702: the full empty-account cost is charged up front; reusing
	// an existing authority refunds the difference during pre-execution.
	gas += uint64(len(tx.AuthList())) * params.PerEmptyAccountCost
	return gas
}

// FloorDataGas computes the EIP-7623 calldata floor: a minimum total gas
// derived from calldata tokens that the transaction must pay even when
// execution is cheaper.
func FloorDataGas(data []byte) uint64 {
	zeros, nonZeros := countCalldataBytes(data)
	tokens := zeros + nonZeros*params.TxStandardTokenCost
	return params.TxGas + tokens*params.TxTotalCostFloorPerToken
}

func countCalldataBytes(data []byte) (zeros, nonZeros uint64) {
	for _, b := range data {
		if b == 0 {
			zeros++
		} else {
			nonZeros++
		}
	}
	return zeros, nonZeros
}

func toWordSize(size uint64) uint64 {
	return (size + 31) / 32
}
