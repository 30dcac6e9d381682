package types

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/rlp"
)

// SigningPayload returns the byte string that is keccak-hashed and signed
// for this transaction. Typed envelopes prefix the payload with their type
// byte (EIP-2718); legacy transactions fold the chain id in per EIP-155
// when one is present.
func (tx *Transaction) SigningPayload() []byte {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		var buf []byte
		buf = rlp.AppendUint(buf, inner.Nonce)
		buf = rlp.AppendU256(buf, inner.GasPrice)
		buf = rlp.AppendUint(buf, inner.Gas)
		buf = appendAddressPtr(buf, inner.To)
		buf = rlp.AppendU256(buf, inner.Value)
		buf = rlp.AppendBytes(buf, inner.Data)
		if chainID := deriveChainID(inner.V); chainID != nil {
			buf = rlp.AppendU256(buf, chainID)
			buf = rlp.AppendUint(buf, 0)
			buf = rlp.AppendUint(buf, 0)
		}
		return rlp.WrapList(buf)
	case *AccessListTx:
		var buf []byte
		buf = rlp.AppendU256(buf, inner.ChainID)
		buf = rlp.AppendUint(buf, inner.Nonce)
		buf = rlp.AppendU256(buf, inner.GasPrice)
		buf = rlp.AppendUint(buf, inner.Gas)
		buf = appendAddressPtr(buf, inner.To)
		buf = rlp.AppendU256(buf, inner.Value)
		buf = rlp.AppendBytes(buf, inner.Data)
		buf = appendAccessList(buf, inner.AccessList)
		return append([]byte{AccessListTxType}, rlp.WrapList(buf)...)
	case *DynamicFeeTx:
		var buf []byte
		buf = rlp.AppendU256(buf, inner.ChainID)
		buf = rlp.AppendUint(buf, inner.Nonce)
		buf = rlp.AppendU256(buf, inner.GasTipCap)
		buf = rlp.AppendU256(buf, inner.GasFeeCap)
		buf = rlp.AppendUint(buf, inner.Gas)
		buf = appendAddressPtr(buf, inner.To)
		buf = rlp.AppendU256(buf, inner.Value)
		buf = rlp.AppendBytes(buf, inner.Data)
		buf = appendAccessList(buf, inner.AccessList)
		return append([]byte{DynamicFeeTxType}, rlp.WrapList(buf)...)
	case *BlobTx:
		var buf []byte
		buf = rlp.AppendU256(buf, inner.ChainID)
		buf = rlp.AppendUint(buf, inner.Nonce)
		buf = rlp.AppendU256(buf, inner.GasTipCap)
		buf = rlp.AppendU256(buf, inner.GasFeeCap)
		buf = rlp.AppendUint(buf, inner.Gas)
		buf = rlp.AppendBytes(buf, inner.To.Bytes())
		buf = rlp.AppendU256(buf, inner.Value)
		buf = rlp.AppendBytes(buf, inner.Data)
		buf = appendAccessList(buf, inner.AccessList)
		buf = rlp.AppendU256(buf, inner.BlobFeeCap)
		buf = appendHashList(buf, inner.BlobHashes)
		return append([]byte{BlobTxType}, rlp.WrapList(buf)...)
	case *SetCodeTx:
		var buf []byte
		buf = rlp.AppendU256(buf, inner.ChainID)
		buf = rlp.AppendUint(buf, inner.Nonce)
		buf = rlp.AppendU256(buf, inner.GasTipCap)
		buf = rlp.AppendU256(buf, inner.GasFeeCap)
		buf = rlp.AppendUint(buf, inner.Gas)
		buf = rlp.AppendBytes(buf, inner.To.Bytes())
		buf = rlp.AppendU256(buf, inner.Value)
		buf = rlp.AppendBytes(buf, inner.Data)
		buf = appendAccessList(buf, inner.AccessList)
		buf = appendAuthList(buf, inner.AuthList)
		return append([]byte{SetCodeTxType}, rlp.WrapList(buf)...)
	}
	return nil
}

// RawSignatureValues returns the signature fields of the envelope. For
// typed transactions V is the y-parity (0 or 1); for legacy transactions
// it is the raw V with any EIP-155 chain id folded in.
func (tx *Transaction) RawSignatureValues() (v, r, s *uint256.Int) {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		return inner.V, inner.R, inner.S
	case *AccessListTx:
		return inner.V, inner.R, inner.S
	case *DynamicFeeTx:
		return inner.V, inner.R, inner.S
	case *BlobTx:
		return inner.V, inner.R, inner.S
	case *SetCodeTx:
		return inner.V, inner.R, inner.S
	}
	return nil, nil, nil
}

// RecoveryID normalizes V to the 0/1 recovery id. For legacy signatures it
// undoes the 27/28 offset and the EIP-155 folding.
func (tx *Transaction) RecoveryID() byte {
	v, _, _ := tx.RawSignatureValues()
	if v == nil {
		return 0
	}
	if tx.Type() != LegacyTxType {
		return byte(v.Uint64())
	}
	raw := v.Uint64()
	if raw == 27 || raw == 28 {
		return byte(raw - 27)
	}
	// EIP-155: v = recovery_id + chain_id*2 + 35.
	return byte((raw - 35) % 2)
}
