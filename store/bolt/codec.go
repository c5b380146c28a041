package bolt

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/rubin-dev/cashcore/chain"
	"github.com/rubin-dev/cashcore/consensus"
)

// encodeEntry serializes a chain.Entry for the "e" namespace: the
// 80-byte header fields, height, median time, status, and the two
// big.Int work fields length-prefixed since they grow past 32 bits
// well before genesis+a few weeks.
func encodeEntry(e *chain.Entry) []byte {
	out := make([]byte, 0, 128)
	var tmp4 [4]byte
	var tmp8 [8]byte

	binary.BigEndian.PutUint32(tmp4[:], uint32(e.Header.Version))
	out = append(out, tmp4[:]...)
	out = append(out, e.Header.PrevBlock[:]...)
	out = append(out, e.Header.MerkleRoot[:]...)
	binary.BigEndian.PutUint32(tmp4[:], e.Header.Time)
	out = append(out, tmp4[:]...)
	binary.BigEndian.PutUint32(tmp4[:], e.Header.Bits)
	out = append(out, tmp4[:]...)
	binary.BigEndian.PutUint32(tmp4[:], e.Header.Nonce)
	out = append(out, tmp4[:]...)

	binary.BigEndian.PutUint64(tmp8[:], e.Height)
	out = append(out, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], e.MedianTime)
	out = append(out, tmp8[:]...)
	out = append(out, byte(e.Status))

	out = appendBigInt(out, e.Work)
	out = appendBigInt(out, e.ChainWork)
	return out
}

func appendBigInt(dst []byte, v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	b := v.Bytes()
	var n2 [2]byte
	binary.BigEndian.PutUint16(n2[:], uint16(len(b)))
	dst = append(dst, n2[:]...)
	return append(dst, b...)
}

func readBigInt(b []byte, off *int) (*big.Int, error) {
	if *off+2 > len(b) {
		return nil, fmt.Errorf("store/bolt: truncated bigint length")
	}
	n := int(binary.BigEndian.Uint16(b[*off : *off+2]))
	*off += 2
	if *off+n > len(b) {
		return nil, fmt.Errorf("store/bolt: truncated bigint")
	}
	v := new(big.Int).SetBytes(b[*off : *off+n])
	*off += n
	return v, nil
}

func decodeEntry(b []byte) (*chain.Entry, error) {
	const fixed = 4 + 32 + 32 + 4 + 4 + 4 + 8 + 8 + 1
	if len(b) < fixed {
		return nil, fmt.Errorf("store/bolt: entry: truncated")
	}
	off := 0
	e := &chain.Entry{}
	e.Header.Version = int32(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	copy(e.Header.PrevBlock[:], b[off:off+32])
	off += 32
	copy(e.Header.MerkleRoot[:], b[off:off+32])
	off += 32
	e.Header.Time = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	e.Header.Bits = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	e.Header.Nonce = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	e.Height = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	e.MedianTime = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	e.Status = chain.Status(b[off])
	off++

	work, err := readBigInt(b, &off)
	if err != nil {
		return nil, err
	}
	chainWork, err := readBigInt(b, &off)
	if err != nil {
		return nil, err
	}
	e.Work, e.ChainWork = work, chainWork
	e.Hash = e.Header.Hash()
	return e, nil
}

// encodeUTXOEntry serializes a chain.UTXOEntry for the "c" namespace:
// value, height, coinbase flag, then the locking script.
func encodeUTXOEntry(e chain.UTXOEntry) []byte {
	out := make([]byte, 0, 16+len(e.Output.Script))
	var tmp8 [8]byte
	binary.BigEndian.PutUint64(tmp8[:], uint64(e.Output.Value))
	out = append(out, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], e.Height)
	out = append(out, tmp8[:]...)
	var flag byte
	if e.IsCoinBase {
		flag = 1
	}
	out = append(out, flag)
	out = consensus.WriteVarInt(out, uint64(len(e.Output.Script)))
	out = append(out, e.Output.Script...)
	return out
}

func decodeUTXOEntry(b []byte) (chain.UTXOEntry, error) {
	if len(b) < 17 {
		return chain.UTXOEntry{}, fmt.Errorf("store/bolt: utxo: truncated")
	}
	value := int64(binary.BigEndian.Uint64(b[0:8]))
	height := binary.BigEndian.Uint64(b[8:16])
	isCoinBase := b[16] == 1
	off := 17
	scriptLen, err := consensus.ReadVarInt(b, &off)
	if err != nil {
		return chain.UTXOEntry{}, fmt.Errorf("store/bolt: utxo: script_len: %w", err)
	}
	if off+int(scriptLen) != len(b) {
		return chain.UTXOEntry{}, fmt.Errorf("store/bolt: utxo: script truncated")
	}
	script := append([]byte(nil), b[off:off+int(scriptLen)]...)
	return chain.UTXOEntry{
		Output:     consensus.TxOut{Value: consensus.Amount(value), Script: script},
		Height:     height,
		IsCoinBase: isCoinBase,
	}, nil
}

// encodeUndo serializes a chain.UndoRecord for the "u" namespace: a
// count followed by each spent outpoint and the UTXOEntry it restores.
func encodeUndo(u chain.UndoRecord) []byte {
	out := make([]byte, 0, 64)
	out = consensus.WriteVarInt(out, uint64(len(u.Spent)))
	for _, s := range u.Spent {
		out = append(out, s.OutPoint.PrevHash[:]...)
		var idx [4]byte
		binary.BigEndian.PutUint32(idx[:], s.OutPoint.Index)
		out = append(out, idx[:]...)
		entryBytes := encodeUTXOEntry(s.Entry)
		out = consensus.WriteVarInt(out, uint64(len(entryBytes)))
		out = append(out, entryBytes...)
	}
	return out
}

func decodeUndo(b []byte) (chain.UndoRecord, error) {
	off := 0
	n, err := consensus.ReadVarInt(b, &off)
	if err != nil {
		return chain.UndoRecord{}, fmt.Errorf("store/bolt: undo: count: %w", err)
	}
	u := chain.UndoRecord{Spent: make([]chain.SpentOutput, 0, n)}
	for i := uint64(0); i < n; i++ {
		if off+36 > len(b) {
			return chain.UndoRecord{}, fmt.Errorf("store/bolt: undo: truncated outpoint")
		}
		var op consensus.OutPoint
		copy(op.PrevHash[:], b[off:off+32])
		op.Index = binary.BigEndian.Uint32(b[off+32 : off+36])
		off += 36
		entryLen, err := consensus.ReadVarInt(b, &off)
		if err != nil {
			return chain.UndoRecord{}, fmt.Errorf("store/bolt: undo: entry_len: %w", err)
		}
		if off+int(entryLen) > len(b) {
			return chain.UndoRecord{}, fmt.Errorf("store/bolt: undo: entry truncated")
		}
		entry, err := decodeUTXOEntry(b[off : off+int(entryLen)])
		if err != nil {
			return chain.UndoRecord{}, err
		}
		off += int(entryLen)
		u.Spent = append(u.Spent, chain.SpentOutput{OutPoint: op, Entry: entry})
	}
	return u, nil
}
