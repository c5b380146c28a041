package chain

import "github.com/rubin-dev/cashcore/consensus"

// Store is the persistence boundary the chain state machine depends
// on (spec.md §6): a sorted key/value map with atomic batch writes.
// Key namespaces are documented on each method; concrete binary
// layout lives in store/bolt.
type Store interface {
	// SchemaVersion / O (chain options) / R (tip hash).
	SchemaVersion() (uint32, error)
	Tip() (consensus.Hash, bool, error)
	SetTip(h consensus.Hash) error

	// e[hash] -> entry, h[hash] -> height, H[height] -> hash.
	PutEntry(e *Entry) error
	GetEntry(h consensus.Hash) (*Entry, bool, error)
	GetEntryByHeight(height uint64) (consensus.Hash, bool, error)

	// n[hash] -> next hash (main-chain pointer), p[hash] -> branch-tip flag.
	SetNext(h, next consensus.Hash) error
	GetNext(h consensus.Hash) (consensus.Hash, bool, error)
	SetBranchTip(h consensus.Hash, isTip bool) error

	// b[hash] -> block bytes.
	PutBlock(h consensus.Hash, raw []byte) error
	GetBlock(h consensus.Hash) ([]byte, bool, error)

	// c[hash,index] -> utxo entry.
	PutUTXO(op consensus.OutPoint, e UTXOEntry) error
	GetUTXO(op consensus.OutPoint) (UTXOEntry, bool, error)
	DeleteUTXO(op consensus.OutPoint) error

	// u[hash] -> undo data for block.
	PutUndo(blockHash consensus.Hash, u UndoRecord) error
	GetUndo(blockHash consensus.Hash) (UndoRecord, bool, error)

	// v[bit,hash] -> versionbits state cache.
	PutDeploymentState(bit uint8, h consensus.Hash, state DeploymentState) error
	GetDeploymentState(bit uint8, h consensus.Hash) (DeploymentState, bool, error)

	// Batch groups a set of writes for atomic commit.
	Batch(fn func(Batch) error) error
}

// Batch is the write-side of one atomic Store transaction.
type Batch interface {
	PutEntry(e *Entry) error
	SetNext(h, next consensus.Hash) error
	SetBranchTip(h consensus.Hash, isTip bool) error
	PutBlock(h consensus.Hash, raw []byte) error
	PutUTXO(op consensus.OutPoint, e UTXOEntry) error
	DeleteUTXO(op consensus.OutPoint) error
	PutUndo(blockHash consensus.Hash, u UndoRecord) error
	SetTip(h consensus.Hash) error
}

// UTXOEntry is a single unspent output plus the provenance needed for
// coinbase maturity checks (spec.md §4.D).
type UTXOEntry struct {
	Output     consensus.TxOut
	Height     uint64
	IsCoinBase bool
}

// UndoRecord holds the UTXOs one block spent, so a disconnect can
// restore them (spec.md §4.E's reorg invariant). The outputs the block
// created are not recorded here; disconnectTip re-derives them from
// the stored block body and deletes them.
type UndoRecord struct {
	Spent []SpentOutput
}

// SpentOutput is one UTXO consumed by a block, recorded so a
// disconnect can restore it verbatim.
type SpentOutput struct {
	OutPoint consensus.OutPoint
	Entry    UTXOEntry
}
