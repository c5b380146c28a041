package mining

import (
	"github.com/rubin-dev/cashcore/consensus"
	"github.com/rubin-dev/cashcore/script"
)

// Entry is one mempool-resident transaction as the assembler sees it:
// the tx itself plus everything a dependency-ordered, budget-aware
// selection needs to know without re-deriving it from a UTXO view.
type Entry struct {
	Tx     *consensus.Tx
	Fee    consensus.Amount
	Size   int
	SigOps int

	// Priority is the coin-age-weighted value/size figure used by the
	// optional priority phase (spec.md §4.F): sum(input_value *
	// input_age_in_blocks) / size. Computed by the mempool when the
	// entry is accepted (out of scope here, per spec.md §1); supplied
	// as input data to Assemble.
	Priority float64

	// Parents is the set of in-mempool transactions this entry
	// directly spends from. Entries whose inputs are all confirmed
	// (no in-mempool parent) have an empty Parents set and are the
	// dependency graph's roots.
	Parents map[consensus.Hash]struct{}
}

// Rate is the entry's own fee rate: fee per byte.
func (e *Entry) Rate() float64 {
	if e.Size <= 0 {
		return 0
	}
	return float64(e.Fee) / float64(e.Size)
}

// NewEntry builds an Entry from a transaction, computing Size and
// SigOps (via script.CountSigOps — the legacy, non-P2SH-accurate
// count spec.md §4.D names as the mempool-acceptance-time figure)
// from the transaction alone. Fee, Priority, and Parents are supplied
// by the caller since they depend on mempool/UTXO state this package
// does not hold.
func NewEntry(tx *consensus.Tx, fee consensus.Amount, priority float64, parents map[consensus.Hash]struct{}) *Entry {
	sigops := 0
	for _, in := range tx.Inputs {
		sigops += script.CountSigOps(in.Script)
	}
	for _, out := range tx.Outputs {
		sigops += script.CountSigOps(out.Script)
	}
	if parents == nil {
		parents = make(map[consensus.Hash]struct{})
	}
	return &Entry{
		Tx:       tx,
		Fee:      fee,
		Size:     tx.SerializedSize(),
		SigOps:   sigops,
		Priority: priority,
		Parents:  parents,
	}
}

// Mempool is a pinned snapshot of candidate transactions (spec.md
// §4.F: "the mempool snapshot pinned to the current tip"). It is a
// plain map, not a live, mutating structure — acceptance, eviction,
// and replacement policy are out of scope for the consensus core.
type Mempool struct {
	entries map[consensus.Hash]*Entry
}

// NewMempool returns an empty snapshot.
func NewMempool() *Mempool {
	return &Mempool{entries: make(map[consensus.Hash]*Entry)}
}

// Add inserts or replaces entry, keyed by its transaction's hash.
func (m *Mempool) Add(e *Entry) {
	m.entries[e.Tx.Hash()] = e
}

// Get looks up an entry by txid.
func (m *Mempool) Get(txid consensus.Hash) (*Entry, bool) {
	e, ok := m.entries[txid]
	return e, ok
}

// Len reports the number of entries in the snapshot.
func (m *Mempool) Len() int { return len(m.entries) }

// Entries returns every entry, in no particular order.
func (m *Mempool) Entries() []*Entry {
	out := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}
