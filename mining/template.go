package mining

import "github.com/rubin-dev/cashcore/consensus"

// Template is a block under construction (spec.md §3 BlockTemplate):
// everything a miner needs to hash, plus the bookkeeping the
// assembler used to build it.
type Template struct {
	Height       uint64
	PrevBlock    consensus.Hash
	Bits         uint32
	Time         uint32
	Version      int32
	MedianTime   uint64

	Coinbase     *consensus.Tx
	Transactions []*consensus.Tx // non-coinbase, in final (possibly canonical) order

	TotalFees consensus.Amount
	SizeBytes int
	SigOps    int

	// MagneticAnomalyActive records whether the canonical-sort rule
	// was applied, for callers inspecting the template after the fact.
	MagneticAnomalyActive bool
}

// AllTransactions returns the coinbase followed by every selected
// transaction, the order a block's tx list must have on the wire.
func (t *Template) AllTransactions() []*consensus.Tx {
	out := make([]*consensus.Tx, 0, len(t.Transactions)+1)
	out = append(out, t.Coinbase)
	out = append(out, t.Transactions...)
	return out
}

// MerkleRoot recomputes the template's Merkle root over its current
// transaction set. Callers must call this (directly or via Block)
// whenever Coinbase or Transactions change, e.g. after bumping the
// coinbase's extra-nonce.
func (t *Template) MerkleRoot() consensus.Hash {
	ids := make([]consensus.Hash, 0, len(t.Transactions)+1)
	for _, tx := range t.AllTransactions() {
		ids = append(ids, tx.Hash())
	}
	return consensus.MerkleRoot(ids)
}

// Block materializes the template as a full block, with a freshly
// computed Merkle root, ready for a miner to search nonces over or
// for Preverify to exercise the chain's body pipeline.
func (t *Template) Block() *consensus.Block {
	return &consensus.Block{
		Header: consensus.Header{
			Version:    t.Version,
			PrevBlock:  t.PrevBlock,
			MerkleRoot: t.MerkleRoot(),
			Time:       t.Time,
			Bits:       t.Bits,
		},
		Transactions: t.AllTransactions(),
	}
}
