package params

// Transaction-level gas constants.
const (
	TxGas                 uint64 = 21000 // flat fee per transaction
	TxGasContractCreation uint64 = 53000 // flat fee for creation (21000 + 32000)
	TxDataZeroGas         uint64 = 4     // per zero calldata byte
	TxDataNonZeroGas      uint64 = 16    // per nonzero calldata byte (EIP-2028)
	TxDataNonZeroGasOld   uint64 = 68    // pre-Istanbul nonzero byte cost
	TxAccessListAddress   uint64 = 2400  // per access-list address (EIP-2930)
	TxAccessListStorage   uint64 = 1900  // per access-list storage key (EIP-2930)

	CreateGas       uint64 = 32000 // CREATE/CREATE2 base cost
	CreateDataGas   uint64 = 200   // per byte of deployed code
	InitcodeWordGas uint64 = 2     // per 32-byte word of initcode (EIP-3860)

	// EIP-7623 calldata floor pricing (Prague).
	TxTotalCostFloorPerToken uint64 = 10
	TxStandardTokenCost      uint64 = 4 // zero byte = 1 token, nonzero = 4 tokens

	// EIP-7702 authorization costs.
	PerAuthBaseCost         uint64 = 12500
	PerEmptyAccountCost     uint64 = 25000

	// Refund quotients (EIP-3529 lowered the cap at London).
	RefundQuotient       uint64 = 2
	RefundQuotientLondon uint64 = 5

	// EIP-7825 (Osaka): per-transaction gas limit cap.
	TxGasLimitCap uint64 = 30_000_000
)

// Code and initcode limits.
const (
	MaxCodeSize     = 24576             // EIP-170
	MaxInitcodeSize = 2 * MaxCodeSize   // EIP-3860
)

// Call and stack limits.
const (
	CallStackLimit    = 1024 // max call/create frame depth
	StackLimit        = 1024 // max interpreter operand stack depth
	CallStipend       uint64 = 2300 // free gas granted with value-bearing calls
	CallGasDivisor    uint64 = 64   // EIP-150: caller retains remaining/64
	SstoreSentryGas   uint64 = 2300 // EIP-2200 reentrancy sentry
)

// EIP-2929 access costs.
const (
	ColdAccountAccessCost uint64 = 2600
	ColdSloadCost         uint64 = 2100
	WarmStorageReadCost   uint64 = 100
)

// SSTORE gas (EIP-2200 / EIP-3529).
const (
	SstoreSetGas          uint64 = 20000
	SstoreResetGas        uint64 = 5000 // pre-Berlin; Berlin charges 5000-2100
	SstoreClearsRefund    uint64 = 4800 // EIP-3529 clear refund
	SstoreClearsRefundOld uint64 = 15000
	SelfdestructRefund    uint64 = 24000 // removed by EIP-3529
)

// EIP-4844 blob parameters.
const (
	BlobGasPerBlob        uint64 = 131072
	BlobTxMinBlobGasprice uint64 = 1
	MaxBlobsPerTxCancun          = 6
	MaxBlobsPerTxPrague          = 9
	BlobCommitmentVersionKZG     = 0x01
)

// EIP-2935 block hash history storage address.
var HistoryStorageAddress = [20]byte{
	0x00, 0x00, 0xF9, 0x08, 0x27, 0xF1, 0xC5, 0x3a, 0x10, 0xcb,
	0x7A, 0x02, 0x33, 0x5B, 0x17, 0x53, 0x20, 0x00, 0x29, 0x35,
}
