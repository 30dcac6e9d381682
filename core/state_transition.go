package core

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/state"
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/core/vm"
	"github.com/corevm/corevm/crypto"
	"github.com/corevm/corevm/log"
	"github.com/corevm/corevm/params"
)

var logger = log.Default().Module("txlifecycle")

// StateTransition applies transactions against a journaled state:
// validate, deduct the caller, run the frame loop, then settle refunds
// and the beneficiary reward.
type StateTransition struct {
	cfg     *params.Config
	block   vm.BlockContext
	journal *state.Journal
}

// NewStateTransition creates a transition processor for one block's
// environment.
func NewStateTransition(cfg *params.Config, block vm.BlockContext, db state.Database) *StateTransition {
	return &StateTransition{
		cfg:     cfg,
		block:   block,
		journal: state.New(db, cfg.Spec),
	}
}

// Journal exposes the underlying journaled state (testing and embedding).
func (st *StateTransition) Journal() *state.Journal { return st.journal }

// ApplyTransaction validates and executes one transaction, returning its
// result and committed state diff. A returned error means the transaction
// was rejected (or a database failure occurred) and consumed nothing.
func (st *StateTransition) ApplyTransaction(tx *types.Transaction) (*ExecutionResult, error) {
	sender, err := resolveSender(tx)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransaction(st.cfg, &st.block, st.journal, tx, sender); err != nil {
		logger.Debug("transaction rejected", "err", err)
		return nil, err
	}

	intrinsic := IntrinsicGas(tx, st.cfg.Spec)
	if tx.Gas() < intrinsic {
		return nil, fmt.Errorf("%w: intrinsic %d, limit %d", ErrIntrinsicGas, intrinsic, tx.Gas())
	}

	txctx := vm.TxContext{
		Origin:     sender,
		GasPrice:   tx.EffectiveGasPrice(st.block.BaseFee),
		BlobHashes: tx.BlobHashes(),
	}
	evm := vm.NewEVM(st.cfg, st.block, txctx, st.journal)

	authRefund, err := st.preExecution(evm, tx, sender)
	if err != nil {
		return nil, err
	}

	frameGas := tx.Gas() - intrinsic
	var res *vm.FrameResult
	if to := tx.To(); to != nil {
		res, err = evm.Call(sender, *to, tx.Data(), frameGas, tx.Value())
	} else {
		res, err = evm.Create(sender, tx.Data(), frameGas, tx.Value())
	}
	if err != nil {
		// Database failure: the transaction is returned to the host
		// unconsumed.
		return nil, err
	}

	return st.postExecution(tx, sender, txctx.GasPrice, res, authRefund)
}

// preExecution warms the pre-declared state, applies EIP-7702
// authorizations, deducts the up-front gas cost, and bumps the caller
// nonce for call-type transactions.
func (st *StateTransition) preExecution(evm *vm.EVM, tx *types.Transaction, sender types.Address) (refund uint64, err error) {
	spec := st.cfg.Spec
	st.journal.WarmPrecompiles(vm.PrecompileAddresses(spec))

	// EIP-3651: the fee recipient is warm from the start.
	if spec.Enabled(params.Shanghai) {
		st.journal.WarmAddress(st.block.Coinbase)
	}
	// EIP-2935: the block hash history contract is warm.
	if spec.Enabled(params.Prague) {
		st.journal.WarmAddress(types.Address(params.HistoryStorageAddress))
	}
	for _, tuple := range tx.AccessList() {
		st.journal.WarmAccountAndStorage(tuple.Address, tuple.StorageKeys)
	}

	if tx.Type() == types.SetCodeTxType {
		refund, err = st.applyAuthorizations(tx.AuthList())
		if err != nil {
			return 0, err
		}
	}

	// Deduct the maximum execution fee plus the blob fee.
	fee := new(uint256.Int).Mul(uint256.NewInt(tx.Gas()), tx.EffectiveGasPrice(st.block.BaseFee))
	if tx.Type() == types.BlobTxType && st.block.BlobBaseFee != nil {
		blobGas := uint256.NewInt(params.BlobGasPerBlob * uint64(len(tx.BlobHashes())))
		fee.Add(fee, blobGas.Mul(blobGas, st.block.BlobBaseFee))
	}
	if !st.cfg.DisableBalanceCheck {
		if err := st.journal.SubBalance(sender, fee); err != nil {
			return 0, err
		}
	}

	// Creation bumps the nonce when the frame initializes.
	if tx.To() != nil {
		if _, err := st.journal.IncNonce(sender); err != nil {
			return 0, err
		}
	}
	return refund, nil
}

// applyAuthorizations installs EIP-7702 delegations. Invalid tuples are
// skipped, not fatal. The returned refund credits reuse of existing
// authority slots.
func (st *StateTransition) applyAuthorizations(auths []types.Authorization) (uint64, error) {
	var refund uint64
	for i := range auths {
		auth := &auths[i]
		if auth.ChainID != nil && !auth.ChainID.IsZero() {
			if !auth.ChainID.IsUint64() || auth.ChainID.Uint64() != st.cfg.ChainID {
				continue
			}
		}
		if auth.Nonce == ^uint64(0) {
			continue
		}
		authority, err := crypto.RecoverAuthority(auth)
		if err != nil {
			continue
		}
		account, _, err := st.journal.LoadAccount(authority)
		if err != nil {
			return 0, err
		}
		if account.HasCode() {
			code, err := st.journal.Code(authority)
			if err != nil {
				return 0, err
			}
			if _, delegated := state.ParseDelegation(code); !delegated {
				continue
			}
		}
		if account.Nonce != auth.Nonce {
			continue
		}
		if !account.Empty() {
			refund += params.PerEmptyAccountCost - params.PerAuthBaseCost
		}
		var code []byte
		if !auth.Address.IsZero() {
			code = append(append([]byte(nil), state.DelegationPrefix...), auth.Address.Bytes()...)
		}
		if err := st.journal.SetCode(authority, code); err != nil {
			return 0, err
		}
		if _, err := st.journal.IncNonce(authority); err != nil {
			return 0, err
		}
	}
	return refund, nil
}

// postExecution settles gas: the capped refund, the caller reimbursement,
// and the beneficiary reward, then finalizes the state diff.
func (st *StateTransition) postExecution(tx *types.Transaction, sender types.Address, gasPrice *uint256.Int, res *vm.FrameResult, authRefund uint64) (*ExecutionResult, error) {
	spec := st.cfg.Spec
	gasLeft := res.GasLeft
	gasUsed := tx.Gas() - gasLeft

	// EIP-7623: execution pays at least the calldata floor.
	if spec.Enabled(params.Prague) {
		if floor := FloorDataGas(tx.Data()); gasUsed < floor {
			gasUsed = floor
			gasLeft = tx.Gas() - gasUsed
		}
	}

	var refund uint64
	if !st.cfg.DisableGasRefund && res.Succeeded() {
		counter := uint64(0)
		if res.GasRefunded > 0 {
			counter = uint64(res.GasRefunded)
		}
		counter += authRefund
		if limit := gasUsed / st.cfg.RefundQuotientFor(); counter > limit {
			counter = limit
		}
		refund = counter
		gasUsed -= refund
		gasLeft += refund
	}

	// Reimburse the caller for unspent and refunded gas.
	if !st.cfg.DisableBalanceCheck {
		back := new(uint256.Int).Mul(uint256.NewInt(gasLeft), gasPrice)
		if err := st.journal.AddBalance(sender, back); err != nil {
			return nil, err
		}
	}

	// Reward the beneficiary. After London only the priority portion is
	// paid; the base fee is burned. The EIP-4844 blob fee is burned
	// entirely.
	tip := new(uint256.Int).Set(gasPrice)
	if spec.Enabled(params.London) && st.block.BaseFee != nil {
		tip.Sub(tip, st.block.BaseFee)
	}
	reward := tip.Mul(tip, uint256.NewInt(gasUsed))
	if err := st.journal.AddBalance(st.block.Coinbase, reward); err != nil {
		return nil, err
	}

	logs := append([]*types.Log(nil), st.journal.Logs()...)
	result := &ExecutionResult{
		GasUsed:        gasUsed,
		GasRefunded:    refund,
		Output:         res.Output,
		Logs:           logs,
		CreatedAddress: res.CreatedAddress,
	}
	switch res.Kind {
	case vm.ActionReturn:
		result.Kind = ResultSuccess
	case vm.ActionRevert:
		result.Kind = ResultRevert
		result.Logs = nil
	default:
		result.Kind = ResultHalt
		result.HaltReason = res.Reason
		result.Logs = nil
	}
	result.StateDiff = st.journal.Finalize()

	logger.Debug("transaction applied",
		"sender", sender, "gasUsed", result.GasUsed, "kind", result.Kind)
	return result, nil
}

func resolveSender(tx *types.Transaction) (types.Address, error) {
	if cached := tx.Sender(); cached != nil {
		return *cached, nil
	}
	return crypto.SenderOf(tx)
}
