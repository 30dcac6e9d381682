package core

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/state"
	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/core/vm"
	"github.com/corevm/corevm/params"
)

var (
	senderAddr = types.HexToAddress("0xaaaa000000000000000000000000000000000001")
	recvAddr   = types.HexToAddress("0xbbbb000000000000000000000000000000000002")
	coinbase   = types.HexToAddress("0xcccc000000000000000000000000000000000003")
)

const oneEther = 1_000_000_000_000_000_000

func testBlock() vm.BlockContext {
	return vm.BlockContext{
		Number:      1000,
		Time:        1700000000,
		Coinbase:    coinbase,
		GasLimit:    30_000_000,
		BaseFee:     new(uint256.Int), // zero base fee keeps arithmetic legible
		BlobBaseFee: uint256.NewInt(1),
	}
}

func newTransition(t *testing.T, spec params.SpecID) (*StateTransition, *state.MemoryDB) {
	t.Helper()
	db := state.NewMemoryDB()
	db.InsertAccount(senderAddr, types.Account{
		Balance: uint256.NewInt(oneEther), CodeHash: types.KeccakEmpty,
	})
	return NewStateTransition(params.DefaultConfig(spec), testBlock(), db), db
}

// commitDiff writes a transaction's state diff into the fixture database,
// as a host does between transactions: ApplyTransaction only returns the
// diff and resets its journal.
func commitDiff(db *state.MemoryDB, diff *state.StateDiff) {
	for _, acc := range diff.Accounts {
		if acc.Deleted {
			db.InsertAccount(acc.Address, types.NewAccount())
			continue
		}
		if len(acc.Code) > 0 {
			db.InsertContract(acc.Address, acc.Info, acc.Code)
		} else {
			db.InsertAccount(acc.Address, acc.Info)
		}
		for key, value := range acc.Storage {
			db.InsertStorage(acc.Address, key, value)
		}
	}
}

func signedLegacy(nonce uint64, to *types.Address, value, gasPrice uint64, gas uint64, data []byte) *types.Transaction {
	tx := types.NewTransaction(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: uint256.NewInt(gasPrice),
		Gas:      gas,
		To:       to,
		Value:    uint256.NewInt(value),
		Data:     data,
		V:        uint256.NewInt(27), R: uint256.NewInt(1), S: uint256.NewInt(1),
	})
	tx.SetSender(senderAddr)
	return tx
}

// Scenario: simple value transfer. A sends 1000 wei to B at gas price 1;
// the whole 21000 intrinsic is consumed, balances and nonce move exactly.
func TestSimpleValueTransfer(t *testing.T) {
	st, _ := newTransition(t, params.Cancun)
	tx := signedLegacy(0, &recvAddr, 1000, 1, 21000, nil)

	res, err := st.ApplyTransaction(tx)
	if err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("result = %v, want success", res.Kind)
	}
	if res.GasUsed != 21000 {
		t.Errorf("GasUsed = %d, want 21000", res.GasUsed)
	}
	if len(res.Logs) != 0 {
		t.Errorf("logs = %d, want 0", len(res.Logs))
	}

	var senderDiff, recvDiff, coinbaseDiff *state.AccountDiff
	for i := range res.StateDiff.Accounts {
		acc := &res.StateDiff.Accounts[i]
		switch acc.Address {
		case senderAddr:
			senderDiff = acc
		case recvAddr:
			recvDiff = acc
		case coinbase:
			coinbaseDiff = acc
		}
	}
	if senderDiff == nil || recvDiff == nil {
		t.Fatal("state diff missing sender or receiver")
	}
	wantSender := uint64(oneEther - 1000 - 21000)
	if senderDiff.Info.Balance.Uint64() != wantSender {
		t.Errorf("sender balance = %d, want %d", senderDiff.Info.Balance.Uint64(), wantSender)
	}
	if senderDiff.Info.Nonce != 1 {
		t.Errorf("sender nonce = %d, want 1", senderDiff.Info.Nonce)
	}
	if recvDiff.Info.Balance.Uint64() != 1000 {
		t.Errorf("receiver balance = %d, want 1000", recvDiff.Info.Balance.Uint64())
	}
	// Zero base fee: the coinbase collects the full effective price.
	if coinbaseDiff == nil || coinbaseDiff.Info.Balance.Uint64() != 21000 {
		t.Error("coinbase should collect 21000 wei at price 1")
	}
}

// Scenario: deploy a counter (slot0 += 1 per call), then call it. After
// the second transaction the created account's slot 0 is 1.
func TestDeployAndCallCounter(t *testing.T) {
	st, db := newTransition(t, params.Berlin)

	counter := []byte{
		byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SLOAD), byte(vm.ADD),
		byte(vm.PUSH1), 0, byte(vm.SSTORE), byte(vm.STOP),
	}
	// Initcode: copy the runtime to memory and return it.
	initcode := []byte{
		byte(vm.PUSH1), byte(len(counter)), // length
		byte(vm.PUSH1), 12, // runtime offset in this initcode
		byte(vm.PUSH1), 0,
		byte(vm.CODECOPY),
		byte(vm.PUSH1), byte(len(counter)),
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}
	initcode = append(initcode, counter...)

	deploy := signedLegacy(0, nil, 0, 1, 500000, initcode)
	res, err := st.ApplyTransaction(deploy)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if !res.Succeeded() || res.CreatedAddress == nil {
		t.Fatalf("deploy result = %v (%s)", res.Kind, res.HaltReason)
	}
	created := *res.CreatedAddress
	commitDiff(db, res.StateDiff)

	call := signedLegacy(1, &created, 0, 1, 500000, nil)
	res, err = st.ApplyTransaction(call)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("call result = %v (%s)", res.Kind, res.HaltReason)
	}

	var found bool
	for _, acc := range res.StateDiff.Accounts {
		if acc.Address == created {
			if got := acc.Storage[types.Hash{}]; got.U256().Uint64() != 1 {
				t.Errorf("slot 0 = %s, want 1", got)
			}
			found = true
		}
	}
	if !found {
		t.Error("created account missing from second tx diff")
	}
}

func TestNonceValidation(t *testing.T) {
	st, _ := newTransition(t, params.Cancun)
	tx := signedLegacy(5, &recvAddr, 0, 1, 21000, nil)
	_, err := st.ApplyTransaction(tx)
	if !errors.Is(err, ErrNonceTooHigh) {
		t.Errorf("err = %v, want ErrNonceTooHigh", err)
	}
}

func TestBalanceValidation(t *testing.T) {
	st, _ := newTransition(t, params.Cancun)
	tx := signedLegacy(0, &recvAddr, 2*oneEther, 1, 21000, nil)
	_, err := st.ApplyTransaction(tx)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestDisabledNonceCheck(t *testing.T) {
	db := state.NewMemoryDB()
	db.InsertAccount(senderAddr, types.Account{
		Balance: uint256.NewInt(oneEther), CodeHash: types.KeccakEmpty,
	})
	cfg := params.DefaultConfig(params.Cancun)
	cfg.DisableNonceCheck = true
	st := NewStateTransition(cfg, testBlock(), db)

	tx := signedLegacy(99, &recvAddr, 0, 1, 21000, nil)
	if _, err := st.ApplyTransaction(tx); err != nil {
		t.Errorf("nonce check should be disabled: %v", err)
	}
}

func TestBaseFeeValidation(t *testing.T) {
	db := state.NewMemoryDB()
	db.InsertAccount(senderAddr, types.Account{
		Balance: uint256.NewInt(oneEther), CodeHash: types.KeccakEmpty,
	})
	block := testBlock()
	block.BaseFee = uint256.NewInt(100)
	st := NewStateTransition(params.DefaultConfig(params.London), block, db)

	tx := signedLegacy(0, &recvAddr, 0, 1, 21000, nil) // price 1 < base 100
	_, err := st.ApplyTransaction(tx)
	if !errors.Is(err, ErrFeeCapTooLow) {
		t.Errorf("err = %v, want ErrFeeCapTooLow", err)
	}
}

func TestBlockGasLimitValidation(t *testing.T) {
	st, _ := newTransition(t, params.Cancun)
	tx := signedLegacy(0, &recvAddr, 0, 1, 40_000_000, nil)
	_, err := st.ApplyTransaction(tx)
	if !errors.Is(err, ErrGasLimitAboveBlock) {
		t.Errorf("err = %v, want ErrGasLimitAboveBlock", err)
	}
}

func TestBlobTxValidation(t *testing.T) {
	st, _ := newTransition(t, params.Cancun)
	inner := &types.BlobTx{
		ChainID:    uint256.NewInt(1),
		Nonce:      0,
		GasTipCap:  uint256.NewInt(1),
		GasFeeCap:  uint256.NewInt(1),
		Gas:        21000,
		To:         recvAddr,
		Value:      new(uint256.Int),
		BlobFeeCap: uint256.NewInt(10),
		V:          uint256.NewInt(0), R: uint256.NewInt(1), S: uint256.NewInt(1),
	}
	tx := types.NewTransaction(inner)
	tx.SetSender(senderAddr)
	if _, err := st.ApplyTransaction(tx); !errors.Is(err, ErrNoBlobs) {
		t.Errorf("err = %v, want ErrNoBlobs", err)
	}

	inner.BlobHashes = []types.Hash{types.HexToHash("0x02ff")}
	tx = types.NewTransaction(inner)
	tx.SetSender(senderAddr)
	if _, err := st.ApplyTransaction(tx); !errors.Is(err, ErrInvalidBlobHash) {
		t.Errorf("err = %v, want ErrInvalidBlobHash", err)
	}
}

func TestIntrinsicGasCalldata(t *testing.T) {
	to := recvAddr
	tx := types.NewTransaction(&types.LegacyTx{
		GasPrice: uint256.NewInt(1), Gas: 100000, To: &to,
		Value: new(uint256.Int),
		Data:  []byte{0x00, 0x00, 0x01, 0xFF},
	})
	// 21000 + 2 zero bytes * 4 + 2 nonzero * 16 = 21040 (Istanbul+).
	if gas := IntrinsicGas(tx, params.Cancun); gas != 21040 {
		t.Errorf("IntrinsicGas = %d, want 21040", gas)
	}
	// Pre-Istanbul nonzero bytes cost 68: 21000 + 8 + 136.
	if gas := IntrinsicGas(tx, params.Byzantium); gas != 21144 {
		t.Errorf("IntrinsicGas = %d, want 21144", gas)
	}
}

func TestIntrinsicGasAccessList(t *testing.T) {
	to := recvAddr
	tx := types.NewTransaction(&types.AccessListTx{
		ChainID: uint256.NewInt(1), GasPrice: uint256.NewInt(1), Gas: 100000,
		To: &to, Value: new(uint256.Int),
		AccessList: types.AccessList{{
			Address:     recvAddr,
			StorageKeys: []types.Hash{{}, {}},
		}},
	})
	want := params.TxGas + params.TxAccessListAddress + 2*params.TxAccessListStorage
	if gas := IntrinsicGas(tx, params.Berlin); gas != want {
		t.Errorf("IntrinsicGas = %d, want %d", gas, want)
	}
}

func TestFloorDataGas(t *testing.T) {
	// 4 nonzero bytes: tokens = 16, floor = 21000 + 160.
	if got := FloorDataGas([]byte{1, 2, 3, 4}); got != 21160 {
		t.Errorf("FloorDataGas = %d, want 21160", got)
	}
	if got := FloorDataGas(nil); got != params.TxGas {
		t.Errorf("FloorDataGas(nil) = %d, want %d", got, params.TxGas)
	}
}

// Balance conservation: with a zero base fee (nothing burned), the sum of
// all balance deltas in the diff is zero.
func TestBalanceConservation(t *testing.T) {
	st, db := newTransition(t, params.Berlin)
	db.InsertAccount(recvAddr, types.Account{Balance: uint256.NewInt(5), CodeHash: types.KeccakEmpty})

	tx := signedLegacy(0, &recvAddr, 777, 3, 21000, nil)
	res, err := st.ApplyTransaction(tx)
	if err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}

	before := map[types.Address]*uint256.Int{
		senderAddr: uint256.NewInt(oneEther),
		recvAddr:   uint256.NewInt(5),
		coinbase:   new(uint256.Int),
	}
	total := new(uint256.Int)
	for _, acc := range res.StateDiff.Accounts {
		prev := before[acc.Address]
		if prev == nil {
			prev = new(uint256.Int)
		}
		if acc.Info.Balance.Cmp(prev) >= 0 {
			total.Add(total, new(uint256.Int).Sub(acc.Info.Balance, prev))
		} else {
			total.Sub(total, new(uint256.Int).Sub(prev, acc.Info.Balance))
		}
	}
	if !total.IsZero() {
		t.Errorf("balance deltas sum to %s, want 0", total)
	}
}

func TestRefundCapped(t *testing.T) {
	// Set a slot in tx1, clear it in tx2: the clear refund (4800) is
	// capped at gasUsed/5 but must be nonzero and reduce gas used.
	st, db := newTransition(t, params.London)
	code := []byte{
		byte(vm.PUSH1), 0, byte(vm.CALLDATALOAD),
		byte(vm.PUSH1), 0, byte(vm.SSTORE), byte(vm.STOP),
	}
	db.InsertContract(recvAddr, types.Account{Balance: new(uint256.Int)}, code)

	one := make([]byte, 32)
	one[31] = 1
	res, err := st.ApplyTransaction(signedLegacy(0, &recvAddr, 0, 1, 200000, one))
	if err != nil || !res.Succeeded() {
		t.Fatalf("set: %v %v", err, res)
	}
	commitDiff(db, res.StateDiff)

	zero := make([]byte, 32)
	res, err = st.ApplyTransaction(signedLegacy(1, &recvAddr, 0, 1, 200000, zero))
	if err != nil || !res.Succeeded() {
		t.Fatalf("clear: %v %v", err, res)
	}
	if res.GasRefunded == 0 {
		t.Error("clearing a slot should produce a refund")
	}
	if res.GasRefunded > (res.GasUsed+res.GasRefunded)/params.RefundQuotientLondon {
		t.Errorf("refund %d exceeds the London cap", res.GasRefunded)
	}
}
