package crypto

import (
	"testing"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/rlp"
)

func TestSenderRecoveryRoundTrip(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	want := types.BytesToAddress(gethcrypto.PubkeyToAddress(key.PublicKey).Bytes())

	to := types.HexToAddress("0x1234000000000000000000000000000000000000")
	inner := &types.DynamicFeeTx{
		ChainID:   uint256.NewInt(1),
		Nonce:     3,
		GasTipCap: uint256.NewInt(2),
		GasFeeCap: uint256.NewInt(100),
		Gas:       21000,
		To:        &to,
		Value:     uint256.NewInt(5),
	}
	tx := types.NewTransaction(inner)
	hash := Keccak256(tx.SigningPayload())
	sig, err := gethcrypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	inner.V = uint256.NewInt(uint64(sig[64]))
	inner.R = new(uint256.Int).SetBytes(sig[:32])
	inner.S = new(uint256.Int).SetBytes(sig[32:64])

	got, err := SenderOf(types.NewTransaction(inner))
	if err != nil {
		t.Fatalf("SenderOf: %v", err)
	}
	if got != want {
		t.Errorf("SenderOf = %s, want %s", got, want)
	}
}

func TestRecoverAuthorityRoundTrip(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	want := types.BytesToAddress(gethcrypto.PubkeyToAddress(key.PublicKey).Bytes())

	auth := &types.Authorization{
		ChainID: uint256.NewInt(1),
		Address: types.HexToAddress("0xabcd000000000000000000000000000000000000"),
		Nonce:   7,
	}
	payload := types.AppendAuthorizationFields(nil, auth)
	hash := Keccak256([]byte{types.SetCodeAuthorizationMagic}, rlp.WrapList(payload))
	sig, err := gethcrypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	auth.YParity = sig[64]
	auth.R = new(uint256.Int).SetBytes(sig[:32])
	auth.S = new(uint256.Int).SetBytes(sig[32:64])

	got, err := RecoverAuthority(auth)
	if err != nil {
		t.Fatalf("RecoverAuthority: %v", err)
	}
	if got != want {
		t.Errorf("RecoverAuthority = %s, want %s", got, want)
	}
}

func TestRecoverAuthorityRejectsBadParity(t *testing.T) {
	auth := &types.Authorization{
		ChainID: uint256.NewInt(1),
		YParity: 5,
		R:       uint256.NewInt(1),
		S:       uint256.NewInt(1),
	}
	if _, err := RecoverAuthority(auth); err == nil {
		t.Error("parity > 1 must be rejected")
	}
}
