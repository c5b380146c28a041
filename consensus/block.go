package consensus

import "fmt"

// Block is a full block: a header plus its transactions.
type Block struct {
	Header       Header
	Transactions []*Tx
}

// Hash returns the block's header hash.
func (b *Block) Hash() Hash {
	return b.Header.Hash()
}

// Bytes returns the canonical serialization: header || varint(txcount) || txs.
func (b *Block) Bytes() []byte {
	out := append([]byte(nil), b.Header.Bytes()...)
	out = WriteVarInt(out, uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		out = append(out, tx.Bytes()...)
	}
	return out
}

// ParseBlock decodes a block from b.
func ParseBlock(b []byte) (*Block, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("consensus: block: truncated header")
	}
	header, err := ParseHeader(b[:HeaderSize])
	if err != nil {
		return nil, err
	}
	off := HeaderSize
	n, err := ReadVarInt(b, &off)
	if err != nil {
		return nil, fmt.Errorf("consensus: block: tx count: %w", err)
	}
	txs := make([]*Tx, 0, n)
	for i := uint64(0); i < n; i++ {
		tx, consumed, err := ParseTx(b[off:])
		if err != nil {
			return nil, fmt.Errorf("consensus: block: tx %d: %w", i, err)
		}
		off += consumed
		txs = append(txs, tx)
	}
	if off != len(b) {
		return nil, fmt.Errorf("consensus: block: trailing bytes")
	}
	return &Block{Header: header, Transactions: txs}, nil
}

// Txids returns the transaction ids of every transaction in the block,
// in block order.
func (b *Block) Txids() []Hash {
	ids := make([]Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		ids[i] = tx.Hash()
	}
	return ids
}

// CheckMerkleRoot reports whether the block's computed Merkle root
// matches the header and whether the tree was malleated (spec.md §3:
// a block with a malleated tree is invalid regardless of root match).
func (b *Block) CheckMerkleRoot() (matches bool, malleated bool) {
	root, malleated := MerkleRootChecked(b.Txids())
	return root == b.Header.MerkleRoot, malleated
}

// SerializedSize returns the canonical-encoding size in bytes.
func (b *Block) SerializedSize() int {
	return len(b.Bytes())
}

// CheckBasicShape validates the invariants of spec.md §3 that depend
// only on the block's own contents (not on chain context): a single
// leading coinbase, size and tx-count caps, and a matching,
// non-malleated Merkle root.
func (b *Block) CheckBasicShape() *VerifyError {
	if len(b.Transactions) == 0 {
		return NewVerifyError(ReasonCoinbaseMissing, 100, "empty transaction list")
	}
	if !b.Transactions[0].IsCoinBase() {
		return NewVerifyError(ReasonCoinbaseMissing, 100, "first transaction is not a coinbase")
	}
	for i, tx := range b.Transactions[1:] {
		if tx.IsCoinBase() {
			return NewVerifyError(ReasonCoinbaseMultiple, 100, fmt.Sprintf("unexpected coinbase at index %d", i+1))
		}
	}
	size := b.SerializedSize()
	if size > MaxForkBlockSize {
		return NewVerifyError(ReasonBlockSize, 100, fmt.Sprintf("size %d exceeds max %d", size, MaxForkBlockSize))
	}
	if len(b.Transactions) > size/10 {
		return NewVerifyError(ReasonBlockTxCount, 100, fmt.Sprintf("tx count %d exceeds size/10 bound", len(b.Transactions)))
	}
	matches, malleated := b.CheckMerkleRoot()
	if malleated {
		return NewVerifyError(ReasonBlockMerkleDuplicate, 100, "malleated merkle tree")
	}
	if !matches {
		return NewVerifyError(ReasonBlockMerkleRoot, 100, "merkle root mismatch")
	}
	return nil
}
