package chain

import "github.com/rubin-dev/cashcore/consensus"

// CoinView overlays in-block-in-progress UTXO changes on top of the
// committed Store so a block's later transactions can see the
// outputs its earlier transactions created, and so a single failed
// validation never touches committed state (spec.md §4.E Types).
type CoinView struct {
	store   Store
	added   map[consensus.OutPoint]UTXOEntry
	removed map[consensus.OutPoint]struct{}
}

// NewCoinView returns a CoinView backed by store with no overlay.
func NewCoinView(store Store) *CoinView {
	return &CoinView{
		store:   store,
		added:   make(map[consensus.OutPoint]UTXOEntry),
		removed: make(map[consensus.OutPoint]struct{}),
	}
}

// Get resolves an outpoint, checking the overlay before the store.
func (v *CoinView) Get(op consensus.OutPoint) (UTXOEntry, bool, error) {
	if _, gone := v.removed[op]; gone {
		return UTXOEntry{}, false, nil
	}
	if e, ok := v.added[op]; ok {
		return e, true, nil
	}
	return v.store.GetUTXO(op)
}

// Add records a newly created output, visible to subsequent Get calls
// on this view without touching the store.
func (v *CoinView) Add(op consensus.OutPoint, e UTXOEntry) {
	delete(v.removed, op)
	v.added[op] = e
}

// Spend marks an outpoint consumed within this view.
func (v *CoinView) Spend(op consensus.OutPoint) {
	delete(v.added, op)
	v.removed[op] = struct{}{}
}

// Added returns the overlay's newly created outputs, for committing
// to the store once a block fully validates.
func (v *CoinView) Added() map[consensus.OutPoint]UTXOEntry {
	return v.added
}

// Removed returns the overlay's spent outpoints.
func (v *CoinView) Removed() map[consensus.OutPoint]struct{} {
	return v.removed
}
