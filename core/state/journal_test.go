package state

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/params"
)

var (
	addrA = types.HexToAddress("0xa000000000000000000000000000000000000001")
	addrB = types.HexToAddress("0xb000000000000000000000000000000000000002")
	key1  = types.HexToHash("0x01")
	val1  = types.HexToHash("0x07")
	val2  = types.HexToHash("0x09")
)

func newTestJournal(t *testing.T) (*Journal, *MemoryDB) {
	t.Helper()
	db := NewMemoryDB()
	db.InsertAccount(addrA, types.Account{Balance: uint256.NewInt(1000), Nonce: 1, CodeHash: types.KeccakEmpty})
	return New(db, params.Cancun), db
}

func TestCheckpointRevertRestoresState(t *testing.T) {
	j, _ := newTestJournal(t)

	if _, _, err := j.LoadAccount(addrA); err != nil {
		t.Fatalf("LoadAccount: %v", err)
	}
	cp := j.Checkpoint()

	if err := j.Transfer(addrA, addrB, uint256.NewInt(300)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := j.IncNonce(addrA); err != nil {
		t.Fatalf("IncNonce: %v", err)
	}
	if _, _, err := j.SStore(addrA, key1, val1); err != nil {
		t.Fatalf("SStore: %v", err)
	}
	j.AddLog(&types.Log{Address: addrA})

	j.Revert(cp)

	balance, err := j.Balance(addrA)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.Uint64() != 1000 {
		t.Errorf("balance after revert = %d, want 1000", balance.Uint64())
	}
	nonce, _ := j.Nonce(addrA)
	if nonce != 1 {
		t.Errorf("nonce after revert = %d, want 1", nonce)
	}
	value, _, err := j.SLoad(addrA, key1)
	if err != nil {
		t.Fatalf("SLoad: %v", err)
	}
	if !value.IsZero() {
		t.Errorf("slot after revert = %s, want zero", value)
	}
	if len(j.Logs()) != 0 {
		t.Errorf("logs after revert = %d, want 0", len(j.Logs()))
	}
}

func TestOriginalValueSetOnceAcrossReverts(t *testing.T) {
	j, db := newTestJournal(t)
	db.InsertStorage(addrA, key1, val1)

	// First access pins the original value.
	change, _, err := j.SStore(addrA, key1, val2)
	if err != nil {
		t.Fatalf("SStore: %v", err)
	}
	if change.Original != val1 {
		t.Fatalf("original = %s, want %s", change.Original, val1)
	}

	cp := j.Checkpoint()
	if _, _, err := j.SStore(addrA, key1, types.HexToHash("0x42")); err != nil {
		t.Fatalf("SStore: %v", err)
	}
	j.Revert(cp)

	change, _, err = j.SStore(addrA, key1, val1)
	if err != nil {
		t.Fatalf("SStore: %v", err)
	}
	if change.Original != val1 {
		t.Errorf("original revised to %s across revert, want %s", change.Original, val1)
	}
	if change.Present != val2 {
		t.Errorf("present = %s, want %s (pre-checkpoint write preserved)", change.Present, val2)
	}
}

func TestTransferAtomicity(t *testing.T) {
	j, _ := newTestJournal(t)

	err := j.Transfer(addrA, addrB, uint256.NewInt(5000))
	if err != ErrOutOfFunds {
		t.Fatalf("Transfer err = %v, want ErrOutOfFunds", err)
	}
	balanceA, _ := j.Balance(addrA)
	balanceB, _ := j.Balance(addrB)
	if balanceA.Uint64() != 1000 || !balanceB.IsZero() {
		t.Errorf("balances after failed transfer = %d/%d, want 1000/0",
			balanceA.Uint64(), balanceB.Uint64())
	}
}

func TestWarmTrackingRevertsWithFrame(t *testing.T) {
	j, _ := newTestJournal(t)

	cp := j.Checkpoint()
	if _, cold, _ := j.LoadAccount(addrB); !cold {
		t.Fatal("first load should be cold")
	}
	if _, cold, _ := j.LoadAccount(addrB); cold {
		t.Fatal("second load should be warm")
	}
	j.Revert(cp)
	if _, cold, _ := j.LoadAccount(addrB); !cold {
		t.Error("load after revert should be cold again")
	}
}

func TestTransientStorageRevert(t *testing.T) {
	j, _ := newTestJournal(t)

	j.TStore(addrA, key1, val1)
	cp := j.Checkpoint()
	j.TStore(addrA, key1, val2)
	j.Revert(cp)

	if got := j.TLoad(addrA, key1); got != val1 {
		t.Errorf("TLoad after revert = %s, want %s", got, val1)
	}
}

func TestSelfDestructSameTxCreation(t *testing.T) {
	j, _ := newTestJournal(t)

	created := types.HexToAddress("0xc000000000000000000000000000000000000003")
	if _, err := j.CreateAccountCheckpoint(addrA, created, uint256.NewInt(100)); err != nil {
		t.Fatalf("CreateAccountCheckpoint: %v", err)
	}
	if _, err := j.SelfDestruct(created, addrB); err != nil {
		t.Fatalf("SelfDestruct: %v", err)
	}

	diff := j.Finalize()
	var createdDiff, beneficiary *AccountDiff
	for i := range diff.Accounts {
		switch diff.Accounts[i].Address {
		case created:
			createdDiff = &diff.Accounts[i]
		case addrB:
			beneficiary = &diff.Accounts[i]
		}
	}
	if createdDiff == nil || !createdDiff.Deleted {
		t.Error("account created and destructed in the same tx should be deleted (EIP-6780)")
	}
	if beneficiary == nil || beneficiary.Info.Balance.Uint64() != 100 {
		t.Error("selfdestruct target should receive the full balance")
	}
}

func TestSelfDestructExistingAccountCancun(t *testing.T) {
	j, db := newTestJournal(t)
	db.InsertAccount(addrB, types.Account{Balance: uint256.NewInt(500), Nonce: 1, CodeHash: types.KeccakEmpty})

	target := types.HexToAddress("0xd000000000000000000000000000000000000004")
	if _, err := j.SelfDestruct(addrB, target); err != nil {
		t.Fatalf("SelfDestruct: %v", err)
	}
	diff := j.Finalize()
	for _, acc := range diff.Accounts {
		if acc.Address == addrB {
			if acc.Deleted {
				t.Error("pre-existing account must be retained after Cancun (EIP-6780)")
			}
			if !acc.Info.Balance.IsZero() {
				t.Error("destructed account balance should be zero")
			}
		}
		if acc.Address == target && acc.Info.Balance.Uint64() != 500 {
			t.Errorf("target balance = %d, want 500", acc.Info.Balance.Uint64())
		}
	}
}

func TestCreateCollision(t *testing.T) {
	j, db := newTestJournal(t)
	taken := types.HexToAddress("0xe000000000000000000000000000000000000005")
	db.InsertAccount(taken, types.Account{Balance: new(uint256.Int), Nonce: 3, CodeHash: types.KeccakEmpty})

	_, err := j.CreateAccountCheckpoint(addrA, taken, new(uint256.Int))
	if err != ErrCreateCollision {
		t.Fatalf("err = %v, want ErrCreateCollision", err)
	}
	balance, _ := j.Balance(addrA)
	if balance.Uint64() != 1000 {
		t.Errorf("caller balance mutated on failed create: %d", balance.Uint64())
	}
}

func TestParseDelegation(t *testing.T) {
	code := append(append([]byte{}, DelegationPrefix...), addrB.Bytes()...)
	target, ok := ParseDelegation(code)
	if !ok || target != addrB {
		t.Errorf("ParseDelegation = %s, %v; want %s, true", target, ok, addrB)
	}
	if _, ok := ParseDelegation([]byte{0xEF, 0x01, 0x00}); ok {
		t.Error("truncated delegation should not parse")
	}
	if _, ok := ParseDelegation(nil); ok {
		t.Error("empty code should not parse as delegation")
	}
}

func TestEmptyAccountSweep(t *testing.T) {
	j, _ := newTestJournal(t)

	// Zero-value transfer touches both sides; addrB stays empty.
	if err := j.Transfer(addrA, addrB, new(uint256.Int)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	diff := j.Finalize()
	for _, acc := range diff.Accounts {
		if acc.Address == addrB && !acc.Deleted {
			t.Error("touched empty account should be swept (EIP-161)")
		}
	}
}
