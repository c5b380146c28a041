package chain

import (
	"math/big"

	"github.com/rubin-dev/cashcore/consensus"
)

// Network timing and difficulty-adjustment constants (spec.md §4.E,
// §4.G), matching mainnet Bitcoin-Cash-style parameters.
const (
	TargetSpacingSeconds  = 600
	RetargetInterval      = 2016 // legacy: blocks per retarget window
	TargetTimespanSeconds = RetargetInterval * TargetSpacingSeconds

	CashDAAWindow = 144 // blocks in the cash DAA sliding window

	MaxFutureBlockTimeSeconds = 2 * 60 * 60
)

// PowLimitCompact is the mainnet minimum-difficulty compact target.
const PowLimitCompact uint32 = 0x1d00ffff

// PowLimit returns the big.Int form of the minimum-difficulty target.
func PowLimit() *big.Int {
	return consensus.CompactToTarget(PowLimitCompact)
}
