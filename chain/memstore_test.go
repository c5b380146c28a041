package chain

import (
	"github.com/rubin-dev/cashcore/consensus"
)

// memStore is a minimal in-memory Store used only by this package's
// own tests; store/bolt provides the real bbolt-backed implementation.
type memStore struct {
	tip      consensus.Hash
	hasTip   bool
	entries  map[consensus.Hash]*Entry
	heights  map[uint64]consensus.Hash
	next     map[consensus.Hash]consensus.Hash
	branch   map[consensus.Hash]bool
	blocks   map[consensus.Hash][]byte
	utxos    map[consensus.OutPoint]UTXOEntry
	undo     map[consensus.Hash]UndoRecord
	deploy   map[string]DeploymentState
}

func newMemStore() *memStore {
	return &memStore{
		entries: make(map[consensus.Hash]*Entry),
		heights: make(map[uint64]consensus.Hash),
		next:    make(map[consensus.Hash]consensus.Hash),
		branch:  make(map[consensus.Hash]bool),
		blocks:  make(map[consensus.Hash][]byte),
		utxos:   make(map[consensus.OutPoint]UTXOEntry),
		undo:    make(map[consensus.Hash]UndoRecord),
		deploy:  make(map[string]DeploymentState),
	}
}

func (m *memStore) SchemaVersion() (uint32, error) { return 1, nil }

func (m *memStore) Tip() (consensus.Hash, bool, error) { return m.tip, m.hasTip, nil }

func (m *memStore) SetTip(h consensus.Hash) error {
	m.tip, m.hasTip = h, true
	return nil
}

func (m *memStore) PutEntry(e *Entry) error {
	cp := *e
	m.entries[e.Hash] = &cp
	m.heights[e.Height] = e.Hash
	return nil
}

func (m *memStore) GetEntry(h consensus.Hash) (*Entry, bool, error) {
	e, ok := m.entries[h]
	if !ok {
		return nil, false, nil
	}
	cp := *e
	return &cp, true, nil
}

func (m *memStore) GetEntryByHeight(height uint64) (consensus.Hash, bool, error) {
	h, ok := m.heights[height]
	return h, ok, nil
}

func (m *memStore) SetNext(h, next consensus.Hash) error {
	m.next[h] = next
	return nil
}

func (m *memStore) GetNext(h consensus.Hash) (consensus.Hash, bool, error) {
	n, ok := m.next[h]
	return n, ok, nil
}

func (m *memStore) SetBranchTip(h consensus.Hash, isTip bool) error {
	m.branch[h] = isTip
	return nil
}

func (m *memStore) PutBlock(h consensus.Hash, raw []byte) error {
	m.blocks[h] = append([]byte(nil), raw...)
	return nil
}

func (m *memStore) GetBlock(h consensus.Hash) ([]byte, bool, error) {
	b, ok := m.blocks[h]
	return b, ok, nil
}

func (m *memStore) PutUTXO(op consensus.OutPoint, e UTXOEntry) error {
	m.utxos[op] = e
	return nil
}

func (m *memStore) GetUTXO(op consensus.OutPoint) (UTXOEntry, bool, error) {
	e, ok := m.utxos[op]
	return e, ok, nil
}

func (m *memStore) DeleteUTXO(op consensus.OutPoint) error {
	delete(m.utxos, op)
	return nil
}

func (m *memStore) PutUndo(blockHash consensus.Hash, u UndoRecord) error {
	m.undo[blockHash] = u
	return nil
}

func (m *memStore) GetUndo(blockHash consensus.Hash) (UndoRecord, bool, error) {
	u, ok := m.undo[blockHash]
	return u, ok, nil
}

func deployKey(bit uint8, h consensus.Hash) string {
	return string(append([]byte{bit}, h[:]...))
}

func (m *memStore) PutDeploymentState(bit uint8, h consensus.Hash, state DeploymentState) error {
	m.deploy[deployKey(bit, h)] = state
	return nil
}

func (m *memStore) GetDeploymentState(bit uint8, h consensus.Hash) (DeploymentState, bool, error) {
	s, ok := m.deploy[deployKey(bit, h)]
	return s, ok, nil
}

func (m *memStore) Batch(fn func(Batch) error) error {
	return fn((*memBatch)(m))
}

// memBatch applies writes directly to the backing memStore; the real
// store/bolt implementation makes these atomic via a bbolt transaction.
type memBatch memStore

func (b *memBatch) PutEntry(e *Entry) error                  { return (*memStore)(b).PutEntry(e) }
func (b *memBatch) SetNext(h, next consensus.Hash) error     { return (*memStore)(b).SetNext(h, next) }
func (b *memBatch) SetBranchTip(h consensus.Hash, t bool) error {
	return (*memStore)(b).SetBranchTip(h, t)
}
func (b *memBatch) PutBlock(h consensus.Hash, raw []byte) error { return (*memStore)(b).PutBlock(h, raw) }
func (b *memBatch) PutUTXO(op consensus.OutPoint, e UTXOEntry) error {
	return (*memStore)(b).PutUTXO(op, e)
}
func (b *memBatch) DeleteUTXO(op consensus.OutPoint) error { return (*memStore)(b).DeleteUTXO(op) }
func (b *memBatch) PutUndo(h consensus.Hash, u UndoRecord) error {
	return (*memStore)(b).PutUndo(h, u)
}
func (b *memBatch) SetTip(h consensus.Hash) error { return (*memStore)(b).SetTip(h) }
