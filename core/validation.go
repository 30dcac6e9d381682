package core

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/state"
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/core/vm"
	"github.com/corevm/corevm/params"
)

// ValidateTransaction runs every enabled validation check against the
// transaction before any state change. It reads caller state through the
// journal so the access stays warm for execution.
func ValidateTransaction(cfg *params.Config, block *vm.BlockContext, journal *state.Journal, tx *types.Transaction, sender types.Address) error {
	spec := cfg.Spec

	if cfg.CheckEnabled(params.CheckChainID) {
		if chainID := tx.ChainID(); chainID != nil {
			if !chainID.IsUint64() || chainID.Uint64() != cfg.ChainID {
				return fmt.Errorf("%w: got %s", ErrInvalidChainID, chainID)
			}
		}
	}

	// EIP-7825 (Osaka): absolute per-transaction gas cap.
	if cfg.CheckEnabled(params.CheckTxGasLimitCap) && spec.Enabled(params.Osaka) {
		if tx.Gas() > params.TxGasLimitCap {
			return fmt.Errorf("%w: %d > %d", ErrTxGasLimitTooHigh, tx.Gas(), params.TxGasLimitCap)
		}
	}

	if cfg.CheckEnabled(params.CheckHeader) {
		if spec.Enabled(params.London) && block.BaseFee == nil {
			return ErrMissingBaseFee
		}
		if spec.Enabled(params.Merge) && block.PrevRandao.IsZero() && block.Difficulty != nil && !block.Difficulty.IsZero() {
			return ErrMissingPrevRandao
		}
		if spec.Enabled(params.Cancun) && block.BlobBaseFee == nil {
			return ErrMissingBlobBaseFee
		}
	}

	if cfg.CheckEnabled(params.CheckBaseFee) && spec.Enabled(params.London) && block.BaseFee != nil {
		if tx.GasFeeCap().Cmp(block.BaseFee) < 0 {
			return fmt.Errorf("%w: fee cap %s, base fee %s", ErrFeeCapTooLow, tx.GasFeeCap(), block.BaseFee)
		}
	}

	if cfg.CheckEnabled(params.CheckPriorityFee) && tx.Type() >= types.DynamicFeeTxType {
		if tx.GasTipCap().Cmp(tx.GasFeeCap()) > 0 {
			return fmt.Errorf("%w: tip %s, cap %s", ErrTipAboveFeeCap, tx.GasTipCap(), tx.GasFeeCap())
		}
	}

	if cfg.CheckEnabled(params.CheckBlobFee) && tx.Type() == types.BlobTxType {
		if block.BlobBaseFee != nil && tx.BlobGasFeeCap().Cmp(block.BlobBaseFee) < 0 {
			return fmt.Errorf("%w: %s < %s", ErrBlobFeeCapTooLow, tx.BlobGasFeeCap(), block.BlobBaseFee)
		}
		hashes := tx.BlobHashes()
		if len(hashes) == 0 {
			return ErrNoBlobs
		}
		if len(hashes) > cfg.MaxBlobs() {
			return fmt.Errorf("%w: %d > %d", ErrTooManyBlobs, len(hashes), cfg.MaxBlobs())
		}
		for _, h := range hashes {
			if h[0] != params.BlobCommitmentVersionKZG {
				return fmt.Errorf("%w: 0x%02x", ErrInvalidBlobHash, h[0])
			}
		}
	}

	if cfg.CheckEnabled(params.CheckAuthList) && tx.Type() == types.SetCodeTxType {
		if len(tx.AuthList()) == 0 {
			return ErrEmptyAuthList
		}
	}

	if cfg.CheckEnabled(params.CheckBlockGasLimit) && tx.Gas() > block.GasLimit {
		return fmt.Errorf("%w: %d > %d", ErrGasLimitAboveBlock, tx.Gas(), block.GasLimit)
	}

	if cfg.CheckEnabled(params.CheckMaxInitcode) && spec.Enabled(params.Shanghai) && tx.To() == nil {
		if len(tx.Data()) > cfg.MaxInitcodeSize() {
			return fmt.Errorf("%w: %d bytes", ErrInitcodeTooLarge, len(tx.Data()))
		}
	}

	account, _, err := journal.LoadAccount(sender)
	if err != nil {
		return err
	}

	if cfg.CheckEnabled(params.CheckNonce) {
		switch {
		case tx.Nonce() < account.Nonce:
			return fmt.Errorf("%w: tx %d, account %d", ErrNonceTooLow, tx.Nonce(), account.Nonce)
		case tx.Nonce() > account.Nonce:
			return fmt.Errorf("%w: tx %d, account %d", ErrNonceTooHigh, tx.Nonce(), account.Nonce)
		}
	}

	// EIP-3607: reject transactions from accounts with deployed code,
	// unless the code is an EIP-7702 delegation.
	if cfg.CheckEnabled(params.CheckDeployedCode) && account.HasCode() {
		code, err := journal.Code(sender)
		if err != nil {
			return err
		}
		if _, delegated := state.ParseDelegation(code); !delegated {
			return ErrSenderNoEOA
		}
	}

	if cfg.CheckEnabled(params.CheckBalance) {
		required := txCost(tx)
		if account.Balance.Cmp(required) < 0 {
			return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, account.Balance, required)
		}
	}

	// EIP-7623: the calldata floor must itself fit the gas limit.
	if cfg.CheckEnabled(params.CheckCalldataFloor) && spec.Enabled(params.Prague) {
		if floor := FloorDataGas(tx.Data()); floor > tx.Gas() {
			return fmt.Errorf("%w: floor %d, limit %d", ErrFloorGasAboveLimit, floor, tx.Gas())
		}
	}
	return nil
}

// txCost is the maximum wei the transaction can cost its sender:
// gas_limit·fee_cap + value + blob_gas·blob_fee_cap.
func txCost(tx *types.Transaction) *uint256.Int {
	cost := new(uint256.Int).Mul(uint256.NewInt(tx.Gas()), tx.GasFeeCap())
	if tx.Value() != nil {
		cost.Add(cost, tx.Value())
	}
	if tx.Type() == types.BlobTxType {
		blobGas := uint256.NewInt(params.BlobGasPerBlob * uint64(len(tx.BlobHashes())))
		cost.Add(cost, blobGas.Mul(blobGas, tx.BlobGasFeeCap()))
	}
	return cost
}
