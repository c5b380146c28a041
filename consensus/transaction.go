package consensus

import (
	"encoding/binary"
	"fmt"
)

// TxIn is a transaction input.
type TxIn struct {
	PrevOut  OutPoint
	Script   []byte
	Sequence uint32
}

// TxOut is a transaction output.
type TxOut struct {
	Value  Amount
	Script []byte
}

// Tx is a transaction. The zero value is not usable; construct with
// ParseTx or by filling Version/Inputs/Outputs/LockTime directly.
//
// Hash caching (spec.md §4.A): once Freeze is called the transaction
// is considered immutable and Hash/Bytes memoize their result. Callers
// that mutate a Tx after freezing it must build a new value instead.
type Tx struct {
	Version  uint32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32

	immutable  bool
	cachedHash *Hash
	cachedSer  []byte
}

// Freeze marks tx immutable, enabling hash/serialization caching.
// Callers that construct a Tx and never mutate it afterward (the
// common case once parsed from the wire or finalized by the
// assembler) should call this once.
func (tx *Tx) Freeze() {
	tx.immutable = true
}

// Bytes returns the canonical wire serialization of tx.
func (tx *Tx) Bytes() []byte {
	if tx.immutable && tx.cachedSer != nil {
		return tx.cachedSer
	}
	out := make([]byte, 0, 256)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], tx.Version)
	out = append(out, tmp4[:]...)

	out = WriteVarInt(out, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		out = writeOutPoint(out, in.PrevOut)
		out = WriteVarInt(out, uint64(len(in.Script)))
		out = append(out, in.Script...)
		binary.LittleEndian.PutUint32(tmp4[:], in.Sequence)
		out = append(out, tmp4[:]...)
	}

	out = WriteVarInt(out, uint64(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		var v [8]byte
		binary.LittleEndian.PutUint64(v[:], uint64(o.Value))
		out = append(out, v[:]...)
		out = WriteVarInt(out, uint64(len(o.Script)))
		out = append(out, o.Script...)
	}

	binary.LittleEndian.PutUint32(tmp4[:], tx.LockTime)
	out = append(out, tmp4[:]...)

	if tx.immutable {
		tx.cachedSer = out
	}
	return out
}

// Hash returns the double-SHA-256 of the canonical serialization.
func (tx *Tx) Hash() Hash {
	if tx.immutable && tx.cachedHash != nil {
		return *tx.cachedHash
	}
	h := DoubleSHA256(tx.Bytes())
	if tx.immutable {
		tx.cachedHash = &h
	}
	return h
}

// SerializedSize returns len(tx.Bytes()) without necessarily hitting
// the cache (cheap either way; provided for readability at call sites).
func (tx *Tx) SerializedSize() int {
	return len(tx.Bytes())
}

// IsCoinBase reports whether tx is a coinbase transaction: exactly one
// input with the null outpoint.
func (tx *Tx) IsCoinBase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PrevOut.IsNull()
}

// ParseTx decodes a transaction from b, returning the transaction and
// the number of bytes consumed. The returned Tx is frozen (immutable).
func ParseTx(b []byte) (*Tx, int, error) {
	off := 0
	if len(b) < 4 {
		return nil, 0, fmt.Errorf("consensus: tx: truncated version")
	}
	tx := &Tx{Version: binary.LittleEndian.Uint32(b[0:4])}
	off = 4

	nIn, err := ReadVarInt(b, &off)
	if err != nil {
		return nil, 0, fmt.Errorf("consensus: tx: input count: %w", err)
	}
	tx.Inputs = make([]TxIn, nIn)
	for i := range tx.Inputs {
		op, err := readOutPoint(b, &off)
		if err != nil {
			return nil, 0, fmt.Errorf("consensus: tx: outpoint: %w", err)
		}
		scriptLen, err := ReadVarInt(b, &off)
		if err != nil {
			return nil, 0, fmt.Errorf("consensus: tx: script_len: %w", err)
		}
		if off+int(scriptLen) > len(b) || scriptLen > MaxTxSize {
			return nil, 0, fmt.Errorf("consensus: tx: script truncated")
		}
		script := append([]byte(nil), b[off:off+int(scriptLen)]...)
		off += int(scriptLen)
		if off+4 > len(b) {
			return nil, 0, fmt.Errorf("consensus: tx: sequence truncated")
		}
		seq := binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		tx.Inputs[i] = TxIn{PrevOut: op, Script: script, Sequence: seq}
	}

	nOut, err := ReadVarInt(b, &off)
	if err != nil {
		return nil, 0, fmt.Errorf("consensus: tx: output count: %w", err)
	}
	tx.Outputs = make([]TxOut, nOut)
	for i := range tx.Outputs {
		if off+8 > len(b) {
			return nil, 0, fmt.Errorf("consensus: tx: value truncated")
		}
		val := int64(binary.LittleEndian.Uint64(b[off : off+8]))
		off += 8
		scriptLen, err := ReadVarInt(b, &off)
		if err != nil {
			return nil, 0, fmt.Errorf("consensus: tx: output script_len: %w", err)
		}
		if off+int(scriptLen) > len(b) || scriptLen > MaxTxSize {
			return nil, 0, fmt.Errorf("consensus: tx: output script truncated")
		}
		script := append([]byte(nil), b[off:off+int(scriptLen)]...)
		off += int(scriptLen)
		tx.Outputs[i] = TxOut{Value: Amount(val), Script: script}
	}

	if off+4 > len(b) {
		return nil, 0, fmt.Errorf("consensus: tx: locktime truncated")
	}
	tx.LockTime = binary.LittleEndian.Uint32(b[off : off+4])
	off += 4

	tx.Freeze()
	return tx, off, nil
}

// IsFinal reports whether tx may be included in a block at the given
// height/time per its LockTime and per-input sequence numbers.
func (tx *Tx) IsFinal(height uint64, blockTime uint64) bool {
	if tx.LockTime == 0 {
		return true
	}
	const lockTimeThreshold = 500_000_000
	if uint64(tx.LockTime) < lockTimeThreshold {
		if uint64(tx.LockTime) < height {
			return true
		}
	} else if uint64(tx.LockTime) < blockTime {
		return true
	}
	for _, in := range tx.Inputs {
		if in.Sequence != 0xffffffff {
			return false
		}
	}
	return true
}
