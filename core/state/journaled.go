package state

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/crypto"
	"github.com/corevm/corevm/params"
)

var (
	ErrOutOfFunds      = errors.New("state: transfer exceeds sender balance")
	ErrOverflowPayment = errors.New("state: transfer overflows recipient balance")
	ErrNonceOverflow   = errors.New("state: nonce overflow")
	ErrCreateCollision = errors.New("state: created account collision")
)

// DelegationPrefix is the 3-byte EIP-7702 designator preceding the
// delegate address in an EOA's code slot.
var DelegationPrefix = []byte{0xEF, 0x01, 0x00}

type slotKey struct {
	addr types.Address
	key  types.Hash
}

// storageSlot tracks one slot as the triple required by the EIP-2200 gas
// rules: the value at transaction start (original) and the current value
// (present). The new value of a write completes the triple.
type storageSlot struct {
	original types.Hash
	present  types.Hash
}

// cachedAccount is the journal's authoritative holder of one account's
// in-transaction state.
type cachedAccount struct {
	info       types.Account
	code       []byte
	codeLoaded bool
	storage    map[types.Hash]*storageSlot

	exists         bool // present in the database or created this tx
	touched        bool
	newlyCreated   bool // created in this transaction (EIP-6780)
	selfdestructed bool
}

func (a *cachedAccount) empty() bool {
	return !a.exists || a.info.Empty()
}

// Journal is the journaled state: an account/storage cache over a
// read-only Database, a transient store, a log buffer, and an ordered
// journal of reversible mutations with frame checkpoints.
type Journal struct {
	db   Database
	spec params.SpecID

	accounts      map[types.Address]*cachedAccount
	transient     map[slotKey]types.Hash
	logs          []*types.Log
	entries       []journalEntry
	warmAddresses map[types.Address]struct{}
	warmSlots     map[slotKey]struct{}
	precompiles   map[types.Address]struct{}
}

// New creates a journaled state over db with the given hardfork rules.
func New(db Database, spec params.SpecID) *Journal {
	return &Journal{
		db:            db,
		spec:          spec,
		accounts:      make(map[types.Address]*cachedAccount),
		transient:     make(map[slotKey]types.Hash),
		warmAddresses: make(map[types.Address]struct{}),
		warmSlots:     make(map[slotKey]struct{}),
		precompiles:   make(map[types.Address]struct{}),
	}
}

// Spec returns the active hardfork.
func (j *Journal) Spec() params.SpecID { return j.spec }

// Database returns the backing database.
func (j *Journal) Database() Database { return j.db }

// loadAccount materializes addr in the cache, fetching from the database
// on first access.
func (j *Journal) loadAccount(addr types.Address) (*cachedAccount, error) {
	if acc := j.accounts[addr]; acc != nil {
		return acc, nil
	}
	info, err := j.db.Basic(addr)
	if err != nil {
		return nil, err
	}
	acc := &cachedAccount{info: types.NewAccount()}
	if info != nil {
		acc.info = info.Copy()
		acc.exists = true
	}
	j.accounts[addr] = acc
	j.entries = append(j.entries, accountLoaded{addr: addr})
	return acc, nil
}

// warmAccount adds addr to the warm set, returning true if it was cold.
// Precompile addresses are seeded warm and never report cold.
func (j *Journal) warmAccount(addr types.Address) bool {
	if _, ok := j.warmAddresses[addr]; ok {
		return false
	}
	j.warmAddresses[addr] = struct{}{}
	j.entries = append(j.entries, accountWarmed{addr: addr})
	return true
}

// LoadAccount returns the account info for addr together with a cold
// flag per EIP-2929. The account is warmed as a side effect.
func (j *Journal) LoadAccount(addr types.Address) (types.Account, bool, error) {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return types.Account{}, false, err
	}
	cold := j.warmAccount(addr)
	return acc.info.Copy(), cold, nil
}

// LoadAccountCode is LoadAccount plus code materialization.
func (j *Journal) LoadAccountCode(addr types.Address) ([]byte, bool, error) {
	_, cold, err := j.LoadAccount(addr)
	if err != nil {
		return nil, false, err
	}
	code, err := j.codeOf(addr)
	return code, cold, err
}

func (j *Journal) codeOf(addr types.Address) ([]byte, error) {
	acc := j.accounts[addr]
	if acc == nil {
		return nil, nil
	}
	if !acc.codeLoaded {
		if acc.info.HasCode() {
			code, err := j.db.CodeByHash(acc.info.CodeHash)
			if err != nil {
				return nil, err
			}
			acc.code = code
		}
		acc.codeLoaded = true
	}
	return acc.code, nil
}

// AccountLoad is the result of a delegation-aware account load.
type AccountLoad struct {
	Info         types.Account
	Code         []byte
	Cold         bool
	IsDelegated  bool
	DelegateTo   types.Address
	DelegateCold bool
}

// LoadAccountDelegated resolves EIP-7702 delegation: when the account's
// code is a delegation designator, the delegate target is loaded and
// warmed as well and the compound cold flags are reported.
func (j *Journal) LoadAccountDelegated(addr types.Address) (*AccountLoad, error) {
	info, cold, err := j.LoadAccount(addr)
	if err != nil {
		return nil, err
	}
	code, err := j.codeOf(addr)
	if err != nil {
		return nil, err
	}
	load := &AccountLoad{Info: info, Code: code, Cold: cold}
	if j.spec.Enabled(params.Prague) {
		if target, ok := ParseDelegation(code); ok {
			load.IsDelegated = true
			load.DelegateTo = target
			if _, err := j.loadAccount(target); err != nil {
				return nil, err
			}
			load.DelegateCold = j.warmAccount(target)
		}
	}
	return load, nil
}

// ParseDelegation extracts the target of an EIP-7702 delegation
// designator, reporting whether code is one.
func ParseDelegation(code []byte) (types.Address, bool) {
	if len(code) != len(DelegationPrefix)+types.AddressLength {
		return types.Address{}, false
	}
	for i, b := range DelegationPrefix {
		if code[i] != b {
			return types.Address{}, false
		}
	}
	return types.BytesToAddress(code[len(DelegationPrefix):]), true
}

// Exists reports whether the account exists (and is non-empty after
// Spurious Dragon), as observed by CALL-time account creation rules.
func (j *Journal) Exists(addr types.Address) (bool, error) {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return false, err
	}
	if j.spec.Enabled(params.SpuriousDragon) {
		return !acc.empty(), nil
	}
	return acc.exists, nil
}

// Balance returns the balance of addr without warming it.
func (j *Journal) Balance(addr types.Address) (*uint256.Int, error) {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(acc.info.Balance), nil
}

// Nonce returns the nonce of addr.
func (j *Journal) Nonce(addr types.Address) (uint64, error) {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.info.Nonce, nil
}

// CodeHash returns the code hash observed by EXTCODEHASH: the zero hash
// for nonexistent or empty accounts.
func (j *Journal) CodeHash(addr types.Address) (types.Hash, error) {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return types.Hash{}, err
	}
	if acc.empty() {
		return types.Hash{}, nil
	}
	return acc.info.CodeHash, nil
}

// SLoad returns the value of a storage slot together with its EIP-2929
// cold flag. Cold accesses are journaled as slot warming.
func (j *Journal) SLoad(addr types.Address, key types.Hash) (types.Hash, bool, error) {
	slot, err := j.loadSlot(addr, key)
	if err != nil {
		return types.Hash{}, false, err
	}
	cold := j.warmSlot(addr, key)
	return slot.present, cold, nil
}

func (j *Journal) loadSlot(addr types.Address, key types.Hash) (*storageSlot, error) {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc.storage == nil {
		acc.storage = make(map[types.Hash]*storageSlot)
	}
	slot := acc.storage[key]
	if slot == nil {
		var value types.Hash
		// Accounts created in this transaction observe fresh storage;
		// everything else reads through to the database.
		if !acc.newlyCreated {
			value, err = j.db.Storage(addr, key)
			if err != nil {
				return nil, err
			}
		}
		slot = &storageSlot{original: value, present: value}
		acc.storage[key] = slot
	}
	return slot, nil
}

func (j *Journal) warmSlot(addr types.Address, key types.Hash) bool {
	k := slotKey{addr, key}
	if _, ok := j.warmSlots[k]; ok {
		return false
	}
	j.warmSlots[k] = struct{}{}
	j.entries = append(j.entries, storageWarmed{addr: addr, key: key})
	return true
}

// SlotTriple loads a slot and returns its original and present values
// plus the cold flag, without writing. SSTORE gas computation reads the
// triple here before the instruction performs the write.
func (j *Journal) SlotTriple(addr types.Address, key types.Hash) (original, present types.Hash, cold bool, err error) {
	slot, err := j.loadSlot(addr, key)
	if err != nil {
		return types.Hash{}, types.Hash{}, false, err
	}
	cold = j.warmSlot(addr, key)
	return slot.original, slot.present, cold, nil
}

// SlotChange is the value triple returned by SStore, as required by the
// EIP-2200 / EIP-3529 gas and refund rules.
type SlotChange struct {
	Original types.Hash
	Present  types.Hash
	New      types.Hash
}

// SStore writes a storage slot, journaling the prior present value, and
// returns the triple (original, present-before-write, new) plus the
// EIP-2929 cold flag.
func (j *Journal) SStore(addr types.Address, key, value types.Hash) (SlotChange, bool, error) {
	slot, err := j.loadSlot(addr, key)
	if err != nil {
		return SlotChange{}, false, err
	}
	cold := j.warmSlot(addr, key)
	change := SlotChange{Original: slot.original, Present: slot.present, New: value}
	if slot.present != value {
		j.entries = append(j.entries, storageChanged{addr: addr, key: key, prev: slot.present})
		slot.present = value
	}
	return change, cold, nil
}

// TLoad reads transient storage (EIP-1153).
func (j *Journal) TLoad(addr types.Address, key types.Hash) types.Hash {
	return j.transient[slotKey{addr, key}]
}

// TStore writes transient storage (EIP-1153). Writes are journaled so
// they revert with the frame; all transient state is wiped at Finalize.
func (j *Journal) TStore(addr types.Address, key, value types.Hash) {
	k := slotKey{addr, key}
	prev := j.transient[k]
	if prev == value {
		return
	}
	j.entries = append(j.entries, transientChanged{addr: addr, key: key, prev: prev})
	if value.IsZero() {
		delete(j.transient, k)
	} else {
		j.transient[k] = value
	}
}

// AddLog appends a log entry. Logs are truncated by checkpoint revert.
func (j *Journal) AddLog(entry *types.Log) {
	j.logs = append(j.logs, entry)
}

// Logs returns the accumulated log entries.
func (j *Journal) Logs() []*types.Log {
	return j.logs
}

// Touch marks addr as touched for the EIP-161 empty-account sweep.
func (j *Journal) Touch(addr types.Address) {
	acc := j.accounts[addr]
	if acc == nil || acc.touched {
		return
	}
	acc.touched = true
	j.entries = append(j.entries, accountTouched{addr: addr})
}

// Transfer moves amount from one account to another atomically. On
// failure neither account is mutated.
func (j *Journal) Transfer(from, to types.Address, amount *uint256.Int) error {
	fromAcc, err := j.loadAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := j.loadAccount(to)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		j.Touch(from)
		j.Touch(to)
		return nil
	}
	if fromAcc.info.Balance.Cmp(amount) < 0 {
		return ErrOutOfFunds
	}
	newTo := new(uint256.Int)
	if _, overflow := newTo.AddOverflow(toAcc.info.Balance, amount); overflow {
		return ErrOverflowPayment
	}
	j.Touch(from)
	j.Touch(to)
	j.entries = append(j.entries,
		balanceChanged{addr: from, prev: new(uint256.Int).Set(fromAcc.info.Balance)},
		balanceChanged{addr: to, prev: new(uint256.Int).Set(toAcc.info.Balance)},
	)
	fromAcc.info.Balance = new(uint256.Int).Sub(fromAcc.info.Balance, amount)
	toAcc.info.Balance = newTo
	toAcc.exists = true
	return nil
}

// AddBalance credits addr unconditionally (block rewards, refunds).
func (j *Journal) AddBalance(addr types.Address, amount *uint256.Int) error {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return err
	}
	j.Touch(addr)
	if amount.IsZero() {
		return nil
	}
	j.entries = append(j.entries, balanceChanged{addr: addr, prev: new(uint256.Int).Set(acc.info.Balance)})
	acc.info.Balance = new(uint256.Int).Add(acc.info.Balance, amount)
	acc.exists = true
	return nil
}

// SubBalance debits addr, failing with ErrOutOfFunds if the balance is
// insufficient.
func (j *Journal) SubBalance(addr types.Address, amount *uint256.Int) error {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return err
	}
	if acc.info.Balance.Cmp(amount) < 0 {
		return ErrOutOfFunds
	}
	j.Touch(addr)
	if amount.IsZero() {
		return nil
	}
	j.entries = append(j.entries, balanceChanged{addr: addr, prev: new(uint256.Int).Set(acc.info.Balance)})
	acc.info.Balance = new(uint256.Int).Sub(acc.info.Balance, amount)
	return nil
}

// IncNonce bumps the account nonce, journaling the old value, and returns
// the new nonce. Fails on 64-bit overflow.
func (j *Journal) IncNonce(addr types.Address) (uint64, error) {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return 0, err
	}
	if acc.info.Nonce+1 < acc.info.Nonce {
		return 0, ErrNonceOverflow
	}
	j.entries = append(j.entries, nonceChanged{addr: addr, prev: acc.info.Nonce})
	acc.info.Nonce++
	acc.exists = true
	return acc.info.Nonce, nil
}

// SetNonce installs an absolute nonce value (transaction validation
// helpers only; execution uses IncNonce).
func (j *Journal) SetNonce(addr types.Address, nonce uint64) error {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return err
	}
	j.entries = append(j.entries, nonceChanged{addr: addr, prev: acc.info.Nonce})
	acc.info.Nonce = nonce
	acc.exists = true
	return nil
}

// SetCode installs code on addr, journaling the prior code and hash.
func (j *Journal) SetCode(addr types.Address, code []byte) error {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return err
	}
	j.Touch(addr)
	j.entries = append(j.entries, codeChanged{addr: addr, prevHash: acc.info.CodeHash, prevCode: acc.code})
	if len(code) == 0 {
		acc.info.CodeHash = types.KeccakEmpty
		acc.code = nil
	} else {
		acc.info.CodeHash = crypto.Keccak256Hash(code)
		acc.code = append([]byte(nil), code...)
	}
	acc.codeLoaded = true
	acc.exists = true
	return nil
}

// Code returns the account's code, resolving it from the database if
// needed, without warming.
func (j *Journal) Code(addr types.Address) ([]byte, error) {
	if _, err := j.loadAccount(addr); err != nil {
		return nil, err
	}
	return j.codeOf(addr)
}

// SelfDestructResult reports what a SELFDESTRUCT did, for gas accounting.
type SelfDestructResult struct {
	HadValue            bool
	TargetExists        bool
	TargetCold          bool
	PreviouslyDestroyed bool
}

// SelfDestruct transfers the full balance of addr to target and, when
// permitted, schedules the account for deletion. After Cancun (EIP-6780)
// only accounts created in the same transaction are deleted; others just
// transfer their balance.
func (j *Journal) SelfDestruct(addr, target types.Address) (*SelfDestructResult, error) {
	acc, err := j.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	targetAcc, err := j.loadAccount(target)
	if err != nil {
		return nil, err
	}
	targetCold := j.warmAccount(target)

	res := &SelfDestructResult{
		HadValue:            !acc.info.Balance.IsZero(),
		TargetExists:        !targetAcc.empty(),
		TargetCold:          targetCold,
		PreviouslyDestroyed: acc.selfdestructed,
	}

	balance := new(uint256.Int).Set(acc.info.Balance)
	destroy := !j.spec.Enabled(params.Cancun) || acc.newlyCreated

	j.entries = append(j.entries, accountDestroyed{
		addr:         addr,
		target:       target,
		wasDestroyed: acc.selfdestructed,
		prevBalance:  balance,
	})
	if addr != target {
		j.entries = append(j.entries, balanceChanged{addr: target, prev: new(uint256.Int).Set(targetAcc.info.Balance)})
		targetAcc.info.Balance = new(uint256.Int).Add(targetAcc.info.Balance, balance)
		targetAcc.exists = targetAcc.exists || !balance.IsZero()
	}
	acc.info.Balance = new(uint256.Int)
	if destroy {
		acc.selfdestructed = true
	}
	j.Touch(addr)
	j.Touch(target)
	return res, nil
}

// CreateAccountCheckpoint atomically prepares a CREATE target: it takes a
// checkpoint, verifies no collision, moves value from the caller, and
// bumps the new account's nonce to 1 post-Spurious-Dragon. On failure no
// state is mutated. The caller nonce bump happens before this call, per
// the CREATE semantics.
func (j *Journal) CreateAccountCheckpoint(caller, newAddr types.Address, value *uint256.Int) (Checkpoint, error) {
	// Load and warm the target before taking the checkpoint: the created
	// address stays warm even if creation reverts (Berlin access rules).
	acc, err := j.loadAccount(newAddr)
	if err != nil {
		return j.Checkpoint(), err
	}
	j.warmAccount(newAddr)
	cp := j.Checkpoint()

	// Collision: existing code or nonce means the address is taken.
	if acc.info.HasCode() || acc.info.Nonce != 0 {
		return cp, ErrCreateCollision
	}

	callerAcc, err := j.loadAccount(caller)
	if err != nil {
		return cp, err
	}
	if callerAcc.info.Balance.Cmp(value) < 0 {
		return cp, ErrOutOfFunds
	}

	j.entries = append(j.entries, accountCreated{addr: newAddr, prevExists: acc.exists})
	acc.newlyCreated = true
	acc.exists = true
	j.Touch(newAddr)

	if j.spec.Enabled(params.SpuriousDragon) {
		j.entries = append(j.entries, nonceChanged{addr: newAddr, prev: acc.info.Nonce})
		acc.info.Nonce = 1
	}
	if err := j.Transfer(caller, newAddr, value); err != nil {
		j.Revert(cp)
		return cp, err
	}
	return cp, nil
}

// WarmPrecompiles seeds the warm set with the active precompile
// addresses. Precompiles never report cold access.
func (j *Journal) WarmPrecompiles(addrs []types.Address) {
	for _, addr := range addrs {
		j.precompiles[addr] = struct{}{}
		j.warmAddresses[addr] = struct{}{}
	}
}

// IsPrecompile reports whether addr was seeded as a precompile.
func (j *Journal) IsPrecompile(addr types.Address) bool {
	_, ok := j.precompiles[addr]
	return ok
}

// WarmAccountAndStorage applies one access-list tuple: the address and
// each listed storage key become warm. Used for EIP-2930 lists, EIP-3651
// coinbase warming, and EIP-2935 history-storage warming.
func (j *Journal) WarmAccountAndStorage(addr types.Address, keys []types.Hash) {
	j.warmAddresses[addr] = struct{}{}
	for _, key := range keys {
		j.warmSlots[slotKey{addr, key}] = struct{}{}
	}
}

// WarmAddress warms a single address without journaling (pre-execution
// only).
func (j *Journal) WarmAddress(addr types.Address) {
	j.warmAddresses[addr] = struct{}{}
}

// BlockHash resolves a block hash through the database.
func (j *Journal) BlockHash(number uint64) (types.Hash, error) {
	return j.db.BlockHash(number)
}

// Checkpoint captures the current journal and log lengths.
func (j *Journal) Checkpoint() Checkpoint {
	return Checkpoint{journalLen: len(j.entries), logLen: len(j.logs)}
}

// Commit accepts everything recorded since cp. No entries are discarded;
// committing simply means the entries will not be reverted.
func (j *Journal) Commit(cp Checkpoint) {
	_ = cp
}

// Revert undoes every journal entry recorded after cp, in reverse order,
// and truncates the log buffer to its checkpointed length.
func (j *Journal) Revert(cp Checkpoint) {
	for i := len(j.entries) - 1; i >= cp.journalLen; i-- {
		j.entries[i].revert(j)
	}
	j.entries = j.entries[:cp.journalLen]
	j.logs = j.logs[:cp.logLen]
}

// Depth returns the journal length (tests and diagnostics).
func (j *Journal) Depth() int {
	return len(j.entries)
}
