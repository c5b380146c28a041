package chain

import (
	"github.com/rubin-dev/cashcore/consensus"
)

// InitGenesis seeds an empty store with genesis as height 0, skipping
// all header/body validation (genesis is definitionally valid). It is
// a no-op if the store already has a tip.
func InitGenesis(store Store, genesis *consensus.Block) (*Entry, error) {
	if _, ok, err := store.Tip(); err != nil {
		return nil, err
	} else if ok {
		entry, _, err := store.GetEntry(genesis.Hash())
		return entry, err
	}

	work := WorkFromTarget(consensus.CompactToTarget(genesis.Header.Bits))
	entry := &Entry{
		Header:    genesis.Header,
		Hash:      genesis.Hash(),
		Height:    0,
		Work:      work,
		ChainWork: work,
		Status:    StatusValid,
	}

	if err := store.Batch(func(batch Batch) error {
		if err := batch.PutEntry(entry); err != nil {
			return err
		}
		if err := batch.PutBlock(entry.Hash, genesis.Bytes()); err != nil {
			return err
		}
		return batch.SetTip(entry.Hash)
	}); err != nil {
		return nil, err
	}
	return entry, nil
}
