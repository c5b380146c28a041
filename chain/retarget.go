package chain

import (
	"math/big"

	"github.com/rubin-dev/cashcore/consensus"
)

// LegacyRetarget implements the pre-cash-DAA retarget rule (spec.md
// §4.E): at every RetargetInterval boundary, clamp the observed
// timespan to a quarter/quadruple of the target timespan, scale the
// parent's target by that ratio, and cap at the network's pow limit.
// Grounded on the teacher's consensus/pow.go clamp-and-cap shape,
// adapted from the teacher's linear interpolation to Bitcoin's
// multiplicative retarget.
func LegacyRetarget(parentBits uint32, firstTime, lastTime uint32) uint32 {
	oldTarget := consensus.CompactToTarget(parentBits)

	actual := int64(lastTime) - int64(firstTime)
	minSpan := int64(TargetTimespanSeconds / 4)
	maxSpan := int64(TargetTimespanSeconds * 4)
	if actual < minSpan {
		actual = minSpan
	}
	if actual > maxSpan {
		actual = maxSpan
	}

	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actual))
	newTarget.Div(newTarget, big.NewInt(TargetTimespanSeconds))

	powLimit := PowLimit()
	if newTarget.Cmp(powLimit) > 0 {
		newTarget = powLimit
	}
	return consensus.TargetToCompact(newTarget)
}

// RetargetBlock reports whether height begins a new legacy retarget
// window.
func RetargetBlock(height uint64) bool {
	return height%RetargetInterval == 0
}

// DAAEntry is the minimal per-block data the cash DAA needs: height,
// time, bits, and chainwork.
type DAAEntry struct {
	Height    uint64
	Time      uint32
	Bits      uint32
	ChainWork *big.Int
}

// suffixMedian picks the median-by-time of three entries, matching
// spec.md §4.E's timestamp-manipulation defence.
func suffixMedian(a, b, c DAAEntry) DAAEntry {
	if a.Time > b.Time {
		a, b = b, a
	}
	if b.Time > c.Time {
		b, c = c, b
	}
	if a.Time > b.Time {
		a, b = b, a
	}
	return b
}

// suffixMedianAt resolves the suffix-median anchor ending at entry:
// the median-by-time of entry and its two immediate predecessors.
// spec.md's "h∓1 and h" phrasing is unsatisfiable at the chain tip —
// there is no "tip+1" entry yet at validation time — so, matching
// Bitcoin ABC's GetSuffixMedianTimePast, both the tip and the window
// start sample three *consecutive* blocks ending at (not straddling)
// the anchor: anchor, anchor-1, anchor-2. Falls back to the anchor
// itself near genesis, where fewer than two predecessors exist.
func suffixMedianAt(entry DAAEntry, lookup func(uint64) (DAAEntry, bool)) DAAEntry {
	prev1 := entry
	if entry.Height > 0 {
		if e, ok := lookup(entry.Height - 1); ok {
			prev1 = e
		}
	}
	prev2 := prev1
	if prev1.Height > 0 {
		if e, ok := lookup(prev1.Height - 1); ok {
			prev2 = e
		}
	}
	return suffixMedian(entry, prev1, prev2)
}

// CashDAARetarget implements the 144-block sliding-window difficulty
// algorithm (spec.md §4.E): work-per-second over a damped window,
// scaled back up to the target block spacing.
//
// lookup must resolve an entry at the given height (and its
// immediate neighbours) on the branch ending at tip.
func CashDAARetarget(tip DAAEntry, lookup func(height uint64) (DAAEntry, bool)) uint32 {
	firstHeight := tip.Height - CashDAAWindow
	tipAnchor := suffixMedianAt(tip, lookup)

	first, firstOK := lookup(firstHeight)
	if !firstOK {
		return tip.Bits
	}
	firstAnchor := suffixMedianAt(first, lookup)

	actualTimespan := int64(tipAnchor.Time) - int64(firstAnchor.Time)
	minSpan := int64(72 * TargetSpacingSeconds)
	maxSpan := int64(288 * TargetSpacingSeconds)
	if actualTimespan < minSpan {
		actualTimespan = minSpan
	}
	if actualTimespan > maxSpan {
		actualTimespan = maxSpan
	}

	work := new(big.Int).Sub(tipAnchor.ChainWork, firstAnchor.ChainWork)
	if work.Sign() <= 0 {
		return tip.Bits
	}
	work.Mul(work, big.NewInt(TargetSpacingSeconds))
	projectedWork := new(big.Int).Div(work, big.NewInt(actualTimespan))

	// target = 2^256 / projectedWork, the inverse of WorkFromTarget.
	two256 := new(big.Int).Lsh(big.NewInt(1), 256)
	if projectedWork.Sign() <= 0 {
		return consensus.TargetToCompact(PowLimit())
	}
	newTarget := new(big.Int).Div(two256, projectedWork)

	powLimit := PowLimit()
	if newTarget.Cmp(powLimit) > 0 {
		newTarget = powLimit
	}
	return consensus.TargetToCompact(newTarget)
}
