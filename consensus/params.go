package consensus

// Amount is a signed count of the smallest currency unit.
type Amount int64

const (
	// Coin is the number of smallest units in one whole coin.
	Coin Amount = 100_000_000

	// MaxMoney is the maximum representable amount, ever.
	MaxMoney Amount = 21_000_000 * Coin

	// BaseReward is the coinbase subsidy of the first halving epoch.
	BaseReward Amount = 50 * Coin

	// HalfReward is BaseReward/2, the starting point for subsequent halvings.
	HalfReward Amount = BaseReward / 2

	// MaxTxSize is the maximum serialized size of a single transaction.
	MaxTxSize = 1_000_000

	// MaxForkBlockSize is the maximum serialized size of a block.
	MaxForkBlockSize = 32_000_000

	// MaxScriptSize is the maximum serialized size of a single script.
	MaxScriptSize = 10_000

	// MaxScriptPush is the maximum size of a single pushed stack element.
	MaxScriptPush = 520

	// MaxScriptStack is the maximum combined depth of the stack and altstack.
	MaxScriptStack = 1_000

	// MaxScriptOps is the maximum number of executed non-push opcodes.
	MaxScriptOps = 201

	// MaxMultisigPubkeys is the maximum n in an m-of-n CHECKMULTISIG.
	MaxMultisigPubkeys = 20

	// CoinbaseMaturity is the number of confirmations before a
	// coinbase output becomes spendable.
	CoinbaseMaturity = 100

	// MaxBlockSigopsPerMB is the sigop budget per started megabyte of
	// block size.
	MaxBlockSigopsPerMB = 20_000

	// MinCoinbaseScriptSize and MaxCoinbaseScriptSize bound the
	// coinbase input's scriptSig length.
	MinCoinbaseScriptSize = 2
	MaxCoinbaseScriptSize = 100

	// SubsidyHalvingInterval is the number of blocks between coinbase
	// subsidy halvings, passed to GetReward.
	SubsidyHalvingInterval = 210_000
)

// NullIndex is the index field of a coinbase's (sole) null outpoint.
const NullIndex uint32 = 0xFFFFFFFF
