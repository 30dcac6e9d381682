package types

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

func sampleAccessList() AccessList {
	return AccessList{{
		Address:     HexToAddress("0x1111111111111111111111111111111111111111"),
		StorageKeys: []Hash{HexToHash("0x01"), HexToHash("0x02")},
	}}
}

func roundTrip(t *testing.T, tx *Transaction) *Transaction {
	t.Helper()
	enc := tx.EncodeRLP()
	decoded, err := DecodeTransaction(enc)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	if !bytes.Equal(decoded.EncodeRLP(), enc) {
		t.Fatal("re-encoding differs from original")
	}
	return decoded
}

func TestLegacyTxRoundTrip(t *testing.T) {
	to := HexToAddress("0x2222222222222222222222222222222222222222")
	tx := NewTransaction(&LegacyTx{
		Nonce:    7,
		GasPrice: uint256.NewInt(1_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    uint256.NewInt(12345),
		Data:     []byte{0xAA, 0xBB},
		V:        uint256.NewInt(37), R: uint256.NewInt(9), S: uint256.NewInt(8),
	})
	decoded := roundTrip(t, tx)
	if decoded.Type() != LegacyTxType {
		t.Errorf("Type = %d, want legacy", decoded.Type())
	}
	if decoded.Nonce() != 7 || decoded.Gas() != 21000 {
		t.Errorf("fields lost: nonce %d, gas %d", decoded.Nonce(), decoded.Gas())
	}
	// EIP-155: v=37 folds chain id 1.
	if chainID := decoded.ChainID(); chainID == nil || chainID.Uint64() != 1 {
		t.Errorf("ChainID = %v, want 1", chainID)
	}
}

func TestLegacyCreateRoundTrip(t *testing.T) {
	tx := NewTransaction(&LegacyTx{
		Nonce:    0,
		GasPrice: uint256.NewInt(1),
		Gas:      100000,
		To:       nil, // creation
		Value:    new(uint256.Int),
		Data:     []byte{0x60, 0x00},
		V:        uint256.NewInt(27), R: uint256.NewInt(1), S: uint256.NewInt(1),
	})
	decoded := roundTrip(t, tx)
	if decoded.To() != nil {
		t.Error("creation To should decode as nil")
	}
	if decoded.ChainID() != nil {
		t.Error("pre-155 signature has no chain id")
	}
}

func TestAccessListTxRoundTrip(t *testing.T) {
	to := HexToAddress("0x3333333333333333333333333333333333333333")
	tx := NewTransaction(&AccessListTx{
		ChainID:    uint256.NewInt(1),
		Nonce:      1,
		GasPrice:   uint256.NewInt(2),
		Gas:        50000,
		To:         &to,
		Value:      new(uint256.Int),
		AccessList: sampleAccessList(),
		V:          uint256.NewInt(1), R: uint256.NewInt(2), S: uint256.NewInt(3),
	})
	decoded := roundTrip(t, tx)
	if decoded.Type() != AccessListTxType {
		t.Errorf("Type = %d, want 0x01", decoded.Type())
	}
	al := decoded.AccessList()
	if len(al) != 1 || len(al[0].StorageKeys) != 2 {
		t.Errorf("access list lost: %+v", al)
	}
}

func TestDynamicFeeTxRoundTrip(t *testing.T) {
	to := HexToAddress("0x4444444444444444444444444444444444444444")
	tx := NewTransaction(&DynamicFeeTx{
		ChainID:   uint256.NewInt(1),
		Nonce:     2,
		GasTipCap: uint256.NewInt(1_000_000_000),
		GasFeeCap: uint256.NewInt(20_000_000_000),
		Gas:       60000,
		To:        &to,
		Value:     uint256.NewInt(1),
		V:         uint256.NewInt(0), R: uint256.NewInt(5), S: uint256.NewInt(6),
	})
	decoded := roundTrip(t, tx)
	if decoded.GasTipCap().Uint64() != 1_000_000_000 {
		t.Errorf("tip = %d", decoded.GasTipCap().Uint64())
	}
	if decoded.GasFeeCap().Uint64() != 20_000_000_000 {
		t.Errorf("fee cap = %d", decoded.GasFeeCap().Uint64())
	}
}

func TestBlobTxRoundTrip(t *testing.T) {
	tx := NewTransaction(&BlobTx{
		ChainID:    uint256.NewInt(1),
		Nonce:      3,
		GasTipCap:  uint256.NewInt(1),
		GasFeeCap:  uint256.NewInt(10),
		Gas:        30000,
		To:         HexToAddress("0x5555555555555555555555555555555555555555"),
		Value:      new(uint256.Int),
		BlobFeeCap: uint256.NewInt(100),
		BlobHashes: []Hash{HexToHash("0x0100000000000000000000000000000000000000000000000000000000000001")},
		V:          uint256.NewInt(1), R: uint256.NewInt(7), S: uint256.NewInt(8),
	})
	decoded := roundTrip(t, tx)
	if len(decoded.BlobHashes()) != 1 {
		t.Fatalf("blob hashes = %d, want 1", len(decoded.BlobHashes()))
	}
	if decoded.BlobGasFeeCap().Uint64() != 100 {
		t.Errorf("blob fee cap = %d", decoded.BlobGasFeeCap().Uint64())
	}
}

func TestSetCodeTxRoundTrip(t *testing.T) {
	tx := NewTransaction(&SetCodeTx{
		ChainID:   uint256.NewInt(1),
		Nonce:     4,
		GasTipCap: uint256.NewInt(1),
		GasFeeCap: uint256.NewInt(10),
		Gas:       80000,
		To:        HexToAddress("0x6666666666666666666666666666666666666666"),
		Value:     new(uint256.Int),
		AuthList: []Authorization{{
			ChainID: uint256.NewInt(1),
			Address: HexToAddress("0x7777777777777777777777777777777777777777"),
			Nonce:   9,
			YParity: 1,
			R:       uint256.NewInt(11), S: uint256.NewInt(12),
		}},
		V: uint256.NewInt(0), R: uint256.NewInt(13), S: uint256.NewInt(14),
	})
	decoded := roundTrip(t, tx)
	auths := decoded.AuthList()
	if len(auths) != 1 {
		t.Fatalf("auth list = %d, want 1", len(auths))
	}
	if auths[0].Nonce != 9 || auths[0].YParity != 1 {
		t.Errorf("authorization fields lost: %+v", auths[0])
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := DecodeTransaction([]byte{0x7F, 0x00}); err == nil {
		t.Error("unknown envelope type must fail")
	}
	if _, err := DecodeTransaction(nil); err == nil {
		t.Error("empty input must fail")
	}
}

func TestEffectiveGasPrice(t *testing.T) {
	tx := NewTransaction(&DynamicFeeTx{
		ChainID:   uint256.NewInt(1),
		GasTipCap: uint256.NewInt(2),
		GasFeeCap: uint256.NewInt(10),
	})
	// base 5: min(10, 5+2) = 7.
	if got := tx.EffectiveGasPrice(uint256.NewInt(5)); got.Uint64() != 7 {
		t.Errorf("effective price = %d, want 7", got.Uint64())
	}
	// base 9: capped at fee cap 10.
	if got := tx.EffectiveGasPrice(uint256.NewInt(9)); got.Uint64() != 10 {
		t.Errorf("effective price = %d, want 10", got.Uint64())
	}
}

func TestAccountEmpty(t *testing.T) {
	acc := NewAccount()
	if !acc.Empty() {
		t.Error("fresh account should be empty")
	}
	acc.Nonce = 1
	if acc.Empty() {
		t.Error("account with nonce is not empty")
	}
	acc = NewAccount()
	acc.Balance = uint256.NewInt(1)
	if acc.Empty() {
		t.Error("account with balance is not empty")
	}
}
