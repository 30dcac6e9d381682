package core

import (
	"testing"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/state"
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/crypto"
	"github.com/corevm/corevm/params"
	"github.com/corevm/corevm/rlp"
)

// signAuthorization signs an EIP-7702 tuple with a freshly generated key
// and returns the authorization plus the authority address.
func signAuthorization(t *testing.T, chainID uint64, target types.Address, nonce uint64) (types.Authorization, types.Address) {
	t.Helper()
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	auth := types.Authorization{
		ChainID: uint256.NewInt(chainID),
		Address: target,
		Nonce:   nonce,
	}
	payload := types.AppendAuthorizationFields(nil, &auth)
	hash := crypto.Keccak256([]byte{types.SetCodeAuthorizationMagic}, rlp.WrapList(payload))
	sig, err := gethcrypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	auth.YParity = sig[64]
	auth.R = new(uint256.Int).SetBytes(sig[:32])
	auth.S = new(uint256.Int).SetBytes(sig[32:64])

	authority := types.BytesToAddress(gethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	return auth, authority
}

// Scenario: a type-4 transaction installs delegation code on the
// authority; a call to the authority in the same transaction runs the
// implementation's code against the authority's storage.
func TestSetCodeTransaction(t *testing.T) {
	db := state.NewMemoryDB()
	db.InsertAccount(senderAddr, types.Account{
		Balance: uint256.NewInt(oneEther), CodeHash: types.KeccakEmpty,
	})
	impl := types.HexToAddress("0x9999000000000000000000000000000000000009")
	// Implementation: SSTORE(0, 0x2A), STOP.
	db.InsertContract(impl, types.Account{Balance: new(uint256.Int)},
		[]byte{0x60, 0x2A, 0x60, 0x00, 0x55, 0x00})

	st := NewStateTransition(params.DefaultConfig(params.Prague), testBlock(), db)

	auth, authority := signAuthorization(t, 1, impl, 0)
	db.InsertAccount(authority, types.Account{
		Balance: new(uint256.Int), CodeHash: types.KeccakEmpty,
	})

	tx := types.NewTransaction(&types.SetCodeTx{
		ChainID:   uint256.NewInt(1),
		Nonce:     0,
		GasTipCap: uint256.NewInt(1),
		GasFeeCap: uint256.NewInt(1),
		Gas:       200000,
		To:        authority,
		Value:     new(uint256.Int),
		AuthList:  []types.Authorization{auth},
		V:         uint256.NewInt(0), R: uint256.NewInt(1), S: uint256.NewInt(1),
	})
	tx.SetSender(senderAddr)

	res, err := st.ApplyTransaction(tx)
	if err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("result = %v (%s), want success", res.Kind, res.HaltReason)
	}

	var authorityDiff *state.AccountDiff
	for i := range res.StateDiff.Accounts {
		if res.StateDiff.Accounts[i].Address == authority {
			authorityDiff = &res.StateDiff.Accounts[i]
		}
	}
	if authorityDiff == nil {
		t.Fatal("authority missing from state diff")
	}
	wantCode := append(append([]byte{}, state.DelegationPrefix...), impl.Bytes()...)
	if string(authorityDiff.Code) != string(wantCode) {
		t.Errorf("authority code = %x, want delegation designator %x", authorityDiff.Code, wantCode)
	}
	if authorityDiff.Info.Nonce != 1 {
		t.Errorf("authority nonce = %d, want 1", authorityDiff.Info.Nonce)
	}
	// The call to the authority ran the implementation against the
	// authority's storage.
	if got := authorityDiff.Storage[types.Hash{}]; got.U256().Uint64() != 0x2A {
		t.Errorf("authority slot 0 = %s, want 0x2a", got)
	}
}

func TestSetCodeSkipsWrongChainAuthorization(t *testing.T) {
	db := state.NewMemoryDB()
	db.InsertAccount(senderAddr, types.Account{
		Balance: uint256.NewInt(oneEther), CodeHash: types.KeccakEmpty,
	})
	impl := types.HexToAddress("0x9999000000000000000000000000000000000009")
	st := NewStateTransition(params.DefaultConfig(params.Prague), testBlock(), db)

	auth, authority := signAuthorization(t, 999, impl, 0) // wrong chain id
	tx := types.NewTransaction(&types.SetCodeTx{
		ChainID:   uint256.NewInt(1),
		Nonce:     0,
		GasTipCap: uint256.NewInt(1),
		GasFeeCap: uint256.NewInt(1),
		Gas:       100000,
		To:        recvAddr,
		Value:     new(uint256.Int),
		AuthList:  []types.Authorization{auth},
		V:         uint256.NewInt(0), R: uint256.NewInt(1), S: uint256.NewInt(1),
	})
	tx.SetSender(senderAddr)

	res, err := st.ApplyTransaction(tx)
	if err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}
	for _, acc := range res.StateDiff.Accounts {
		if acc.Address == authority && len(acc.Code) != 0 {
			t.Error("authorization with wrong chain id must be skipped")
		}
	}
}

func TestEmptyAuthListRejected(t *testing.T) {
	db := state.NewMemoryDB()
	db.InsertAccount(senderAddr, types.Account{
		Balance: uint256.NewInt(oneEther), CodeHash: types.KeccakEmpty,
	})
	st := NewStateTransition(params.DefaultConfig(params.Prague), testBlock(), db)
	tx := types.NewTransaction(&types.SetCodeTx{
		ChainID:   uint256.NewInt(1),
		GasTipCap: uint256.NewInt(1),
		GasFeeCap: uint256.NewInt(1),
		Gas:       100000,
		To:        recvAddr,
		Value:     new(uint256.Int),
		V:         uint256.NewInt(0), R: uint256.NewInt(1), S: uint256.NewInt(1),
	})
	tx.SetSender(senderAddr)
	if _, err := st.ApplyTransaction(tx); err == nil {
		t.Error("empty authorization list must be rejected")
	}
}
