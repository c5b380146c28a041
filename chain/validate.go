package chain

import (
	"bytes"
	"math/big"

	"github.com/rubin-dev/cashcore/consensus"
	"github.com/rubin-dev/cashcore/script"
)

// HeaderContext is everything ValidateHeader needs about the parent
// chain, beyond the header itself (spec.md §4.E step 1).
type HeaderContext struct {
	Parent        *Entry
	ParentMTP     uint64
	ExpectedBits  uint32
	LocalNow      uint64
	MedianNetwork uint64
}

// ValidateHeader checks proof-of-work, the retarget-derived bits, and
// the timestamp bounds (spec.md §4.E step 1).
func ValidateHeader(h consensus.Header, ctx HeaderContext) *consensus.VerifyError {
	if h.Bits != ctx.ExpectedBits {
		return consensus.NewVerifyError(consensus.ReasonBadDiffBits, 100, "bits does not match expected target")
	}
	if !consensus.CheckProofOfWork(h.Hash(), h.Bits, PowLimit()) {
		return consensus.NewVerifyError(consensus.ReasonBadPow, 50, "hash does not meet target")
	}
	if uint64(h.Time) <= ctx.ParentMTP {
		return consensus.NewVerifyError(consensus.ReasonTimeTooOld, 100, "timestamp not greater than parent MTP")
	}
	maxTime := ctx.LocalNow
	if ctx.MedianNetwork > maxTime {
		maxTime = ctx.MedianNetwork
	}
	if uint64(h.Time) > maxTime+MaxFutureBlockTimeSeconds {
		return consensus.NewVerifyError(consensus.ReasonTimeTooNew, 20, "timestamp too far in the future")
	}
	if ctx.Parent != nil && h.PrevBlock != ctx.Parent.Hash {
		return consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 100, "prev block mismatch")
	}
	return nil
}

// ValidateBody implements spec.md §4.E step 2/3: per-tx sanity, the
// merkle root (with malleation defence), the single leading coinbase
// rule, size/tx-count caps, and — when magneticAnomalyActive — the
// canonical transaction ordering rule. The block sigop cap is checked
// contextually in Chain.connect, not here: spec.md §4.D's "legacy
// count + P2SH accurate count when VERIFY_P2SH is set" requires
// resolving each input's prevout script, which only a CoinView (not
// available until a block is being connected) can do.
func ValidateBody(b *consensus.Block, magneticAnomalyActive bool) *consensus.VerifyError {
	if err := b.CheckBasicShape(); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := consensus.CheckTxSanity(tx); err != nil {
			return err
		}
	}

	if magneticAnomalyActive {
		for i := 2; i < len(b.Transactions); i++ {
			a, c := b.Transactions[i-1].Hash(), b.Transactions[i].Hash()
			if bytes.Compare(reversed(a[:]), reversed(c[:])) > 0 {
				return consensus.NewVerifyError(consensus.ReasonCanonicalOrder, 100, "transactions not in canonical order")
			}
		}
	}
	return nil
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// LegacySigOps returns the tx's contribution to the legacy (non-P2SH-
// accurate) half of spec.md §4.D's block sigop count: every input and
// output script, scanned with script.CountSigOps.
func LegacySigOps(tx *consensus.Tx) int {
	sigops := 0
	for _, in := range tx.Inputs {
		sigops += script.CountSigOps(in.Script)
	}
	for _, out := range tx.Outputs {
		sigops += script.CountSigOps(out.Script)
	}
	return sigops
}

// CheckSigOpsBudget enforces spec.md §4.D's per-block sigop cap given
// the block's total sigop count — LegacySigOps summed over every tx,
// plus script.CountSigOpsAccurate's P2SH redeem-script addition for
// each input spending a P2SH output — and its serialized size.
// Chain.connect accumulates sigops incrementally alongside its
// CoinView walk, since a P2SH-accurate count needs the CoinView to
// resolve each input's prevout scriptPubKey and intra-block spends
// only become visible as the block's own earlier transactions apply.
func CheckSigOpsBudget(sigops, serializedSize int) *consensus.VerifyError {
	sizeMB := (serializedSize + 999999) / 1000000
	if sizeMB < 1 {
		sizeMB = 1
	}
	if sigops > sizeMB*consensus.MaxBlockSigopsPerMB {
		return consensus.NewVerifyError(consensus.ReasonBlockSigops, 100, "block exceeds sigop budget")
	}
	return nil
}

// ExpectedBits computes the next block's required bits given the
// parent chain, dispatching between the legacy and cash DAA
// algorithms per spec.md §4.E.
func ExpectedBits(parent *Entry, height uint64, cashDAAActive bool, lookupByHeight func(uint64) (*Entry, bool)) uint32 {
	if parent == nil {
		return PowLimitCompact
	}
	if cashDAAActive && height > CashDAAWindow {
		tipEntry := toDAAEntry(parent)
		return CashDAARetarget(tipEntry, func(h uint64) (DAAEntry, bool) {
			e, ok := lookupByHeight(h)
			if !ok {
				return DAAEntry{}, false
			}
			return toDAAEntry(e), true
		})
	}
	if !RetargetBlock(height) {
		return parent.Header.Bits
	}
	firstHeight := height - RetargetInterval
	first, ok := lookupByHeight(firstHeight)
	if !ok {
		return parent.Header.Bits
	}
	return LegacyRetarget(parent.Header.Bits, uint32(first.Header.Time), uint32(parent.Header.Time))
}

func toDAAEntry(e *Entry) DAAEntry {
	work := e.ChainWork
	if work == nil {
		work = new(big.Int)
	}
	return DAAEntry{Height: e.Height, Time: e.Header.Time, Bits: e.Header.Bits, ChainWork: work}
}
