package types

import (
	"fmt"

	"github.com/corevm/corevm/rlp"
)

// EncodeRLP returns the canonical wire encoding of the transaction: the
// raw RLP list for legacy transactions, or the type byte followed by the
// payload list for typed envelopes (EIP-2718).
func (tx *Transaction) EncodeRLP() []byte {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		return rlp.WrapList(inner.appendFields(nil))
	case *AccessListTx:
		return append([]byte{AccessListTxType}, rlp.WrapList(inner.appendFields(nil))...)
	case *DynamicFeeTx:
		return append([]byte{DynamicFeeTxType}, rlp.WrapList(inner.appendFields(nil))...)
	case *BlobTx:
		return append([]byte{BlobTxType}, rlp.WrapList(inner.appendFields(nil))...)
	case *SetCodeTx:
		return append([]byte{SetCodeTxType}, rlp.WrapList(inner.appendFields(nil))...)
	}
	return nil
}

// DecodeTransaction parses a wire-encoded transaction, dispatching on the
// leading byte: >= 0xC0 is a legacy RLP list, otherwise the first byte is
// the envelope type.
func DecodeTransaction(data []byte) (*Transaction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrTxTypeNotSupported)
	}
	if data[0] >= 0xC0 {
		inner, err := decodeLegacyTx(data)
		if err != nil {
			return nil, err
		}
		return NewTransaction(inner), nil
	}
	var (
		inner TxData
		err   error
	)
	switch data[0] {
	case AccessListTxType:
		inner, err = decodeAccessListTx(data[1:])
	case DynamicFeeTxType:
		inner, err = decodeDynamicFeeTx(data[1:])
	case BlobTxType:
		inner, err = decodeBlobTx(data[1:])
	case SetCodeTxType:
		inner, err = decodeSetCodeTx(data[1:])
	default:
		return nil, fmt.Errorf("%w: type 0x%02x", ErrTxTypeNotSupported, data[0])
	}
	if err != nil {
		return nil, err
	}
	return NewTransaction(inner), nil
}

func (tx *LegacyTx) appendFields(buf []byte) []byte {
	buf = rlp.AppendUint(buf, tx.Nonce)
	buf = rlp.AppendU256(buf, tx.GasPrice)
	buf = rlp.AppendUint(buf, tx.Gas)
	buf = appendAddressPtr(buf, tx.To)
	buf = rlp.AppendU256(buf, tx.Value)
	buf = rlp.AppendBytes(buf, tx.Data)
	buf = rlp.AppendU256(buf, tx.V)
	buf = rlp.AppendU256(buf, tx.R)
	buf = rlp.AppendU256(buf, tx.S)
	return buf
}

func (tx *AccessListTx) appendFields(buf []byte) []byte {
	buf = rlp.AppendU256(buf, tx.ChainID)
	buf = rlp.AppendUint(buf, tx.Nonce)
	buf = rlp.AppendU256(buf, tx.GasPrice)
	buf = rlp.AppendUint(buf, tx.Gas)
	buf = appendAddressPtr(buf, tx.To)
	buf = rlp.AppendU256(buf, tx.Value)
	buf = rlp.AppendBytes(buf, tx.Data)
	buf = appendAccessList(buf, tx.AccessList)
	buf = rlp.AppendU256(buf, tx.V)
	buf = rlp.AppendU256(buf, tx.R)
	buf = rlp.AppendU256(buf, tx.S)
	return buf
}

func (tx *DynamicFeeTx) appendFields(buf []byte) []byte {
	buf = rlp.AppendU256(buf, tx.ChainID)
	buf = rlp.AppendUint(buf, tx.Nonce)
	buf = rlp.AppendU256(buf, tx.GasTipCap)
	buf = rlp.AppendU256(buf, tx.GasFeeCap)
	buf = rlp.AppendUint(buf, tx.Gas)
	buf = appendAddressPtr(buf, tx.To)
	buf = rlp.AppendU256(buf, tx.Value)
	buf = rlp.AppendBytes(buf, tx.Data)
	buf = appendAccessList(buf, tx.AccessList)
	buf = rlp.AppendU256(buf, tx.V)
	buf = rlp.AppendU256(buf, tx.R)
	buf = rlp.AppendU256(buf, tx.S)
	return buf
}

func (tx *BlobTx) appendFields(buf []byte) []byte {
	buf = rlp.AppendU256(buf, tx.ChainID)
	buf = rlp.AppendUint(buf, tx.Nonce)
	buf = rlp.AppendU256(buf, tx.GasTipCap)
	buf = rlp.AppendU256(buf, tx.GasFeeCap)
	buf = rlp.AppendUint(buf, tx.Gas)
	buf = rlp.AppendBytes(buf, tx.To.Bytes())
	buf = rlp.AppendU256(buf, tx.Value)
	buf = rlp.AppendBytes(buf, tx.Data)
	buf = appendAccessList(buf, tx.AccessList)
	buf = rlp.AppendU256(buf, tx.BlobFeeCap)
	buf = appendHashList(buf, tx.BlobHashes)
	buf = rlp.AppendU256(buf, tx.V)
	buf = rlp.AppendU256(buf, tx.R)
	buf = rlp.AppendU256(buf, tx.S)
	return buf
}

func (tx *SetCodeTx) appendFields(buf []byte) []byte {
	buf = rlp.AppendU256(buf, tx.ChainID)
	buf = rlp.AppendUint(buf, tx.Nonce)
	buf = rlp.AppendU256(buf, tx.GasTipCap)
	buf = rlp.AppendU256(buf, tx.GasFeeCap)
	buf = rlp.AppendUint(buf, tx.Gas)
	buf = rlp.AppendBytes(buf, tx.To.Bytes())
	buf = rlp.AppendU256(buf, tx.Value)
	buf = rlp.AppendBytes(buf, tx.Data)
	buf = appendAccessList(buf, tx.AccessList)
	buf = appendAuthList(buf, tx.AuthList)
	buf = rlp.AppendU256(buf, tx.V)
	buf = rlp.AppendU256(buf, tx.R)
	buf = rlp.AppendU256(buf, tx.S)
	return buf
}

// AppendAuthorizationFields appends the unsigned authorization tuple
// fields (chain_id, address, nonce). Used for both wire encoding and the
// EIP-7702 signing payload.
func AppendAuthorizationFields(buf []byte, auth *Authorization) []byte {
	buf = rlp.AppendU256(buf, auth.ChainID)
	buf = rlp.AppendBytes(buf, auth.Address.Bytes())
	buf = rlp.AppendUint(buf, auth.Nonce)
	return buf
}

func appendAddressPtr(buf []byte, to *Address) []byte {
	if to == nil {
		return rlp.AppendBytes(buf, nil)
	}
	return rlp.AppendBytes(buf, to.Bytes())
}

func appendAccessList(buf []byte, al AccessList) []byte {
	var payload []byte
	for _, tuple := range al {
		var item []byte
		item = rlp.AppendBytes(item, tuple.Address.Bytes())
		var keys []byte
		for _, k := range tuple.StorageKeys {
			keys = rlp.AppendBytes(keys, k.Bytes())
		}
		item = append(item, rlp.WrapList(keys)...)
		payload = append(payload, rlp.WrapList(item)...)
	}
	return append(buf, rlp.WrapList(payload)...)
}

func appendHashList(buf []byte, hashes []Hash) []byte {
	var payload []byte
	for _, h := range hashes {
		payload = rlp.AppendBytes(payload, h.Bytes())
	}
	return append(buf, rlp.WrapList(payload)...)
}

func appendAuthList(buf []byte, auths []Authorization) []byte {
	var payload []byte
	for i := range auths {
		var item []byte
		item = AppendAuthorizationFields(item, &auths[i])
		item = rlp.AppendUint(item, uint64(auths[i].YParity))
		item = rlp.AppendU256(item, auths[i].R)
		item = rlp.AppendU256(item, auths[i].S)
		payload = append(payload, rlp.WrapList(item)...)
	}
	return append(buf, rlp.WrapList(payload)...)
}

func decodeLegacyTx(data []byte) (*LegacyTx, error) {
	s, err := rlp.NewStream(data).List()
	if err != nil {
		return nil, err
	}
	tx := new(LegacyTx)
	if tx.Nonce, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.GasPrice, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.To, err = decodeAddressPtr(s); err != nil {
		return nil, err
	}
	if tx.Value, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return nil, err
	}
	if tx.V, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.R, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.S, err = s.U256(); err != nil {
		return nil, err
	}
	return tx, nil
}

func decodeAccessListTx(data []byte) (*AccessListTx, error) {
	s, err := rlp.NewStream(data).List()
	if err != nil {
		return nil, err
	}
	tx := new(AccessListTx)
	if tx.ChainID, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Nonce, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.GasPrice, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.To, err = decodeAddressPtr(s); err != nil {
		return nil, err
	}
	if tx.Value, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return nil, err
	}
	if tx.AccessList, err = decodeAccessList(s); err != nil {
		return nil, err
	}
	if tx.V, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.R, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.S, err = s.U256(); err != nil {
		return nil, err
	}
	return tx, nil
}

func decodeDynamicFeeTx(data []byte) (*DynamicFeeTx, error) {
	s, err := rlp.NewStream(data).List()
	if err != nil {
		return nil, err
	}
	tx := new(DynamicFeeTx)
	if tx.ChainID, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Nonce, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.GasTipCap, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.GasFeeCap, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.To, err = decodeAddressPtr(s); err != nil {
		return nil, err
	}
	if tx.Value, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return nil, err
	}
	if tx.AccessList, err = decodeAccessList(s); err != nil {
		return nil, err
	}
	if tx.V, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.R, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.S, err = s.U256(); err != nil {
		return nil, err
	}
	return tx, nil
}

func decodeBlobTx(data []byte) (*BlobTx, error) {
	s, err := rlp.NewStream(data).List()
	if err != nil {
		return nil, err
	}
	tx := new(BlobTx)
	if tx.ChainID, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Nonce, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.GasTipCap, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.GasFeeCap, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.To, err = decodeAddress(s); err != nil {
		return nil, err
	}
	if tx.Value, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return nil, err
	}
	if tx.AccessList, err = decodeAccessList(s); err != nil {
		return nil, err
	}
	if tx.BlobFeeCap, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.BlobHashes, err = decodeHashList(s); err != nil {
		return nil, err
	}
	if tx.V, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.R, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.S, err = s.U256(); err != nil {
		return nil, err
	}
	return tx, nil
}

func decodeSetCodeTx(data []byte) (*SetCodeTx, error) {
	s, err := rlp.NewStream(data).List()
	if err != nil {
		return nil, err
	}
	tx := new(SetCodeTx)
	if tx.ChainID, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Nonce, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.GasTipCap, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.GasFeeCap, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return nil, err
	}
	if tx.To, err = decodeAddress(s); err != nil {
		return nil, err
	}
	if tx.Value, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return nil, err
	}
	if tx.AccessList, err = decodeAccessList(s); err != nil {
		return nil, err
	}
	if tx.AuthList, err = decodeAuthList(s); err != nil {
		return nil, err
	}
	if tx.V, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.R, err = s.U256(); err != nil {
		return nil, err
	}
	if tx.S, err = s.U256(); err != nil {
		return nil, err
	}
	return tx, nil
}

func decodeAddress(s *rlp.Stream) (Address, error) {
	b, err := s.Bytes()
	if err != nil {
		return Address{}, err
	}
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("rlp: invalid address length %d", len(b))
	}
	return BytesToAddress(b), nil
}

func decodeAddressPtr(s *rlp.Stream) (*Address, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) != AddressLength {
		return nil, fmt.Errorf("rlp: invalid address length %d", len(b))
	}
	addr := BytesToAddress(b)
	return &addr, nil
}

func decodeAccessList(s *rlp.Stream) (AccessList, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	var al AccessList
	for list.More() {
		item, err := list.List()
		if err != nil {
			return nil, err
		}
		addr, err := decodeAddress(item)
		if err != nil {
			return nil, err
		}
		keyList, err := item.List()
		if err != nil {
			return nil, err
		}
		var keys []Hash
		for keyList.More() {
			b, err := keyList.Bytes()
			if err != nil {
				return nil, err
			}
			if len(b) != HashLength {
				return nil, fmt.Errorf("rlp: invalid storage key length %d", len(b))
			}
			keys = append(keys, BytesToHash(b))
		}
		al = append(al, AccessTuple{Address: addr, StorageKeys: keys})
	}
	return al, nil
}

func decodeHashList(s *rlp.Stream) ([]Hash, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	var hashes []Hash
	for list.More() {
		b, err := list.Bytes()
		if err != nil {
			return nil, err
		}
		if len(b) != HashLength {
			return nil, fmt.Errorf("rlp: invalid hash length %d", len(b))
		}
		hashes = append(hashes, BytesToHash(b))
	}
	return hashes, nil
}

func decodeAuthList(s *rlp.Stream) ([]Authorization, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	var auths []Authorization
	for list.More() {
		item, err := list.List()
		if err != nil {
			return nil, err
		}
		var auth Authorization
		if auth.ChainID, err = item.U256(); err != nil {
			return nil, err
		}
		if auth.Address, err = decodeAddress(item); err != nil {
			return nil, err
		}
		if auth.Nonce, err = item.Uint64(); err != nil {
			return nil, err
		}
		parity, err := item.Uint64()
		if err != nil {
			return nil, err
		}
		auth.YParity = uint8(parity)
		if auth.R, err = item.U256(); err != nil {
			return nil, err
		}
		if auth.S, err = item.U256(); err != nil {
			return nil, err
		}
		auths = append(auths, auth)
	}
	return auths, nil
}
