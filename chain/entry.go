package chain

import (
	"math/big"

	"github.com/rubin-dev/cashcore/consensus"
)

// Status is the validation state of a chain entry.
type Status byte

const (
	StatusUnknown Status = iota
	StatusValid
	StatusInvalid
)

// Entry is one node in the height-indexed skiplist (spec.md §4.E):
// a header plus everything needed to compare chains and retarget
// without re-walking the whole history.
type Entry struct {
	Header     consensus.Header
	Hash       consensus.Hash
	Height     uint64
	Work       *big.Int // this block's own proof-of-work work, not cumulative
	ChainWork  *big.Int // cumulative work from genesis through this entry
	MedianTime uint64
	Status     Status
}

// WorkFromTarget computes floor(2^256 / target), the per-block work
// contribution (spec.md §4.G), grounded on the teacher's
// consensus/fork_choice.go WorkFromTarget.
func WorkFromTarget(target *big.Int) *big.Int {
	if target == nil || target.Sign() <= 0 {
		return big.NewInt(0)
	}
	two256 := new(big.Int).Lsh(big.NewInt(1), 256)
	return new(big.Int).Div(two256, target)
}

// medianTimeOf computes MTP over up to the last 11 entries ending at
// (and including) e, walking parent pointers via lookup.
func medianTimeOf(e *Entry, lookup func(consensus.Hash) (*Entry, bool)) uint64 {
	var times []uint64
	cur := e
	for i := 0; i < 11 && cur != nil; i++ {
		times = append(times, uint64(cur.Header.Time))
		if cur.Height == 0 {
			break
		}
		parent, ok := lookup(cur.Header.PrevBlock)
		if !ok {
			break
		}
		cur = parent
	}
	sortUint64(times)
	return times[(len(times)-1)/2]
}

func sortUint64(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
