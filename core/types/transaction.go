package types

import (
	"errors"

	"github.com/holiman/uint256"
)

// Transaction type identifiers per their envelope prefix byte.
const (
	LegacyTxType     = 0x00
	AccessListTxType = 0x01 // EIP-2930
	DynamicFeeTxType = 0x02 // EIP-1559
	BlobTxType       = 0x03 // EIP-4844
	SetCodeTxType    = 0x04 // EIP-7702
)

var ErrTxTypeNotSupported = errors.New("transaction type not supported")

// Transaction wraps one of the typed transaction payloads together with
// the recovered (or externally supplied) sender.
type Transaction struct {
	inner  TxData
	sender *Address
}

// NewTransaction wraps a typed payload.
func NewTransaction(inner TxData) *Transaction {
	return &Transaction{inner: inner}
}

// TxData is the payload carried by each transaction envelope variant.
type TxData interface {
	txType() byte
	chainID() *uint256.Int
	nonce() uint64
	gas() uint64
	gasPrice() *uint256.Int
	gasTipCap() *uint256.Int
	gasFeeCap() *uint256.Int
	to() *Address
	value() *uint256.Int
	data() []byte
	accessList() AccessList
	copy() TxData
}

// SetSender caches the sender address, bypassing signature recovery.
func (tx *Transaction) SetSender(addr Address) { tx.sender = &addr }

// Sender returns the cached sender, or nil if none has been set.
func (tx *Transaction) Sender() *Address { return tx.sender }

// Type returns the envelope type byte.
func (tx *Transaction) Type() byte { return tx.inner.txType() }

// ChainID returns the chain id the transaction is bound to, or nil for
// pre-EIP-155 legacy transactions.
func (tx *Transaction) ChainID() *uint256.Int { return tx.inner.chainID() }

// Nonce returns the sender nonce.
func (tx *Transaction) Nonce() uint64 { return tx.inner.nonce() }

// Gas returns the gas limit.
func (tx *Transaction) Gas() uint64 { return tx.inner.gas() }

// GasPrice returns the legacy gas price, or the fee cap for dynamic-fee
// transactions.
func (tx *Transaction) GasPrice() *uint256.Int { return tx.inner.gasPrice() }

// GasTipCap returns the max priority fee per gas.
func (tx *Transaction) GasTipCap() *uint256.Int { return tx.inner.gasTipCap() }

// GasFeeCap returns the max fee per gas.
func (tx *Transaction) GasFeeCap() *uint256.Int { return tx.inner.gasFeeCap() }

// To returns the destination address, or nil for contract creation.
func (tx *Transaction) To() *Address { return tx.inner.to() }

// Value returns the wei amount transferred with the transaction.
func (tx *Transaction) Value() *uint256.Int { return tx.inner.value() }

// Data returns the calldata (or initcode for creation).
func (tx *Transaction) Data() []byte { return tx.inner.data() }

// AccessList returns the EIP-2930 access list, or nil.
func (tx *Transaction) AccessList() AccessList { return tx.inner.accessList() }

// BlobHashes returns the versioned blob hashes of a blob transaction.
func (tx *Transaction) BlobHashes() []Hash {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobHashes
	}
	return nil
}

// BlobGasFeeCap returns the max fee per blob gas of a blob transaction.
func (tx *Transaction) BlobGasFeeCap() *uint256.Int {
	if blob, ok := tx.inner.(*BlobTx); ok {
		return blob.BlobFeeCap
	}
	return nil
}

// AuthList returns the EIP-7702 authorization list of a set-code
// transaction.
func (tx *Transaction) AuthList() []Authorization {
	if sc, ok := tx.inner.(*SetCodeTx); ok {
		return sc.AuthList
	}
	return nil
}

// EffectiveGasPrice computes min(feeCap, baseFee+tipCap). For legacy and
// access-list transactions the gas price is returned unchanged.
func (tx *Transaction) EffectiveGasPrice(baseFee *uint256.Int) *uint256.Int {
	if tx.Type() < DynamicFeeTxType || baseFee == nil {
		return new(uint256.Int).Set(tx.inner.gasPrice())
	}
	price := new(uint256.Int).Add(baseFee, tx.inner.gasTipCap())
	if price.Cmp(tx.inner.gasFeeCap()) > 0 {
		price.Set(tx.inner.gasFeeCap())
	}
	return price
}

// LegacyTx is the original (type 0x00) transaction format. The chain id,
// if any, is folded into V per EIP-155.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *Address
	Value    *uint256.Int
	Data     []byte
	V, R, S  *uint256.Int
}

func (tx *LegacyTx) txType() byte            { return LegacyTxType }
func (tx *LegacyTx) chainID() *uint256.Int   { return deriveChainID(tx.V) }
func (tx *LegacyTx) nonce() uint64           { return tx.Nonce }
func (tx *LegacyTx) gas() uint64             { return tx.Gas }
func (tx *LegacyTx) gasPrice() *uint256.Int  { return tx.GasPrice }
func (tx *LegacyTx) gasTipCap() *uint256.Int { return tx.GasPrice }
func (tx *LegacyTx) gasFeeCap() *uint256.Int { return tx.GasPrice }
func (tx *LegacyTx) to() *Address            { return tx.To }
func (tx *LegacyTx) value() *uint256.Int     { return tx.Value }
func (tx *LegacyTx) data() []byte            { return tx.Data }
func (tx *LegacyTx) accessList() AccessList  { return nil }

func (tx *LegacyTx) copy() TxData {
	c := &LegacyTx{
		Nonce: tx.Nonce, Gas: tx.Gas,
		GasPrice: cloneU256(tx.GasPrice),
		Value:    cloneU256(tx.Value),
		Data:     append([]byte(nil), tx.Data...),
		V:        cloneU256(tx.V), R: cloneU256(tx.R), S: cloneU256(tx.S),
	}
	if tx.To != nil {
		to := *tx.To
		c.To = &to
	}
	return c
}

// AccessListTx is the EIP-2930 (type 0x01) transaction format.
type AccessListTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasPrice   *uint256.Int
	Gas        uint64
	To         *Address
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *uint256.Int
}

func (tx *AccessListTx) txType() byte            { return AccessListTxType }
func (tx *AccessListTx) chainID() *uint256.Int   { return tx.ChainID }
func (tx *AccessListTx) nonce() uint64           { return tx.Nonce }
func (tx *AccessListTx) gas() uint64             { return tx.Gas }
func (tx *AccessListTx) gasPrice() *uint256.Int  { return tx.GasPrice }
func (tx *AccessListTx) gasTipCap() *uint256.Int { return tx.GasPrice }
func (tx *AccessListTx) gasFeeCap() *uint256.Int { return tx.GasPrice }
func (tx *AccessListTx) to() *Address            { return tx.To }
func (tx *AccessListTx) value() *uint256.Int     { return tx.Value }
func (tx *AccessListTx) data() []byte            { return tx.Data }
func (tx *AccessListTx) accessList() AccessList  { return tx.AccessList }

func (tx *AccessListTx) copy() TxData {
	c := &AccessListTx{
		ChainID: cloneU256(tx.ChainID), Nonce: tx.Nonce, Gas: tx.Gas,
		GasPrice:   cloneU256(tx.GasPrice),
		Value:      cloneU256(tx.Value),
		Data:       append([]byte(nil), tx.Data...),
		AccessList: copyAccessList(tx.AccessList),
		V:          cloneU256(tx.V), R: cloneU256(tx.R), S: cloneU256(tx.S),
	}
	if tx.To != nil {
		to := *tx.To
		c.To = &to
	}
	return c
}

// DynamicFeeTx is the EIP-1559 (type 0x02) transaction format.
type DynamicFeeTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         *Address
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *uint256.Int
}

func (tx *DynamicFeeTx) txType() byte            { return DynamicFeeTxType }
func (tx *DynamicFeeTx) chainID() *uint256.Int   { return tx.ChainID }
func (tx *DynamicFeeTx) nonce() uint64           { return tx.Nonce }
func (tx *DynamicFeeTx) gas() uint64             { return tx.Gas }
func (tx *DynamicFeeTx) gasPrice() *uint256.Int  { return tx.GasFeeCap }
func (tx *DynamicFeeTx) gasTipCap() *uint256.Int { return tx.GasTipCap }
func (tx *DynamicFeeTx) gasFeeCap() *uint256.Int { return tx.GasFeeCap }
func (tx *DynamicFeeTx) to() *Address            { return tx.To }
func (tx *DynamicFeeTx) value() *uint256.Int     { return tx.Value }
func (tx *DynamicFeeTx) data() []byte            { return tx.Data }
func (tx *DynamicFeeTx) accessList() AccessList  { return tx.AccessList }

func (tx *DynamicFeeTx) copy() TxData {
	c := &DynamicFeeTx{
		ChainID: cloneU256(tx.ChainID), Nonce: tx.Nonce, Gas: tx.Gas,
		GasTipCap:  cloneU256(tx.GasTipCap),
		GasFeeCap:  cloneU256(tx.GasFeeCap),
		Value:      cloneU256(tx.Value),
		Data:       append([]byte(nil), tx.Data...),
		AccessList: copyAccessList(tx.AccessList),
		V:          cloneU256(tx.V), R: cloneU256(tx.R), S: cloneU256(tx.S),
	}
	if tx.To != nil {
		to := *tx.To
		c.To = &to
	}
	return c
}

// BlobTx is the EIP-4844 (type 0x03) transaction format. Blob payloads
// travel in the sidecar; only the versioned hashes are part of execution.
type BlobTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         Address // blob txs cannot create contracts
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	BlobFeeCap *uint256.Int
	BlobHashes []Hash
	V, R, S    *uint256.Int
}

func (tx *BlobTx) txType() byte            { return BlobTxType }
func (tx *BlobTx) chainID() *uint256.Int   { return tx.ChainID }
func (tx *BlobTx) nonce() uint64           { return tx.Nonce }
func (tx *BlobTx) gas() uint64             { return tx.Gas }
func (tx *BlobTx) gasPrice() *uint256.Int  { return tx.GasFeeCap }
func (tx *BlobTx) gasTipCap() *uint256.Int { return tx.GasTipCap }
func (tx *BlobTx) gasFeeCap() *uint256.Int { return tx.GasFeeCap }
func (tx *BlobTx) to() *Address            { to := tx.To; return &to }
func (tx *BlobTx) value() *uint256.Int     { return tx.Value }
func (tx *BlobTx) data() []byte            { return tx.Data }
func (tx *BlobTx) accessList() AccessList  { return tx.AccessList }

func (tx *BlobTx) copy() TxData {
	return &BlobTx{
		ChainID: cloneU256(tx.ChainID), Nonce: tx.Nonce, Gas: tx.Gas,
		GasTipCap:  cloneU256(tx.GasTipCap),
		GasFeeCap:  cloneU256(tx.GasFeeCap),
		To:         tx.To,
		Value:      cloneU256(tx.Value),
		Data:       append([]byte(nil), tx.Data...),
		AccessList: copyAccessList(tx.AccessList),
		BlobFeeCap: cloneU256(tx.BlobFeeCap),
		BlobHashes: append([]Hash(nil), tx.BlobHashes...),
		V:          cloneU256(tx.V), R: cloneU256(tx.R), S: cloneU256(tx.S),
	}
}

// SetCodeTx is the EIP-7702 (type 0x04) transaction format carrying an
// authorization list that installs delegation code on EOAs.
type SetCodeTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasTipCap  *uint256.Int
	GasFeeCap  *uint256.Int
	Gas        uint64
	To         Address // set-code txs cannot create contracts
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	AuthList   []Authorization
	V, R, S    *uint256.Int
}

func (tx *SetCodeTx) txType() byte            { return SetCodeTxType }
func (tx *SetCodeTx) chainID() *uint256.Int   { return tx.ChainID }
func (tx *SetCodeTx) nonce() uint64           { return tx.Nonce }
func (tx *SetCodeTx) gas() uint64             { return tx.Gas }
func (tx *SetCodeTx) gasPrice() *uint256.Int  { return tx.GasFeeCap }
func (tx *SetCodeTx) gasTipCap() *uint256.Int { return tx.GasTipCap }
func (tx *SetCodeTx) gasFeeCap() *uint256.Int { return tx.GasFeeCap }
func (tx *SetCodeTx) to() *Address            { to := tx.To; return &to }
func (tx *SetCodeTx) value() *uint256.Int     { return tx.Value }
func (tx *SetCodeTx) data() []byte            { return tx.Data }
func (tx *SetCodeTx) accessList() AccessList  { return tx.AccessList }

func (tx *SetCodeTx) copy() TxData {
	return &SetCodeTx{
		ChainID: cloneU256(tx.ChainID), Nonce: tx.Nonce, Gas: tx.Gas,
		GasTipCap:  cloneU256(tx.GasTipCap),
		GasFeeCap:  cloneU256(tx.GasFeeCap),
		To:         tx.To,
		Value:      cloneU256(tx.Value),
		Data:       append([]byte(nil), tx.Data...),
		AccessList: copyAccessList(tx.AccessList),
		AuthList:   append([]Authorization(nil), tx.AuthList...),
		V:          cloneU256(tx.V), R: cloneU256(tx.R), S: cloneU256(tx.S),
	}
}

// deriveChainID extracts the chain id folded into a legacy V value per
// EIP-155. Returns nil for pre-155 signatures (V in {27, 28}).
func deriveChainID(v *uint256.Int) *uint256.Int {
	if v == nil || !v.IsUint64() {
		return nil
	}
	raw := v.Uint64()
	if raw == 27 || raw == 28 {
		return nil
	}
	if raw < 35 {
		return nil
	}
	return uint256.NewInt((raw - 35) / 2)
}

func cloneU256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return new(uint256.Int).Set(v)
}

func copyAccessList(al AccessList) AccessList {
	if al == nil {
		return nil
	}
	c := make(AccessList, len(al))
	for i, tuple := range al {
		c[i] = AccessTuple{
			Address:     tuple.Address,
			StorageKeys: append([]Hash(nil), tuple.StorageKeys...),
		}
	}
	return c
}
