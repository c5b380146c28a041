package consensus

import "encoding/binary"

// OutPoint identifies a previous transaction output being spent.
type OutPoint struct {
	PrevHash Hash
	Index    uint32
}

// IsNull reports whether op is the coinbase's null outpoint.
func (op OutPoint) IsNull() bool {
	return op.PrevHash.IsZero() && op.Index == NullIndex
}

// NullOutPoint is the sentinel outpoint identifying a coinbase input.
var NullOutPoint = OutPoint{Index: NullIndex}

const outPointSize = 36

func writeOutPoint(dst []byte, op OutPoint) []byte {
	dst = append(dst, op.PrevHash[:]...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], op.Index)
	return append(dst, idx[:]...)
}

func readOutPoint(b []byte, off *int) (OutPoint, error) {
	if *off+outPointSize > len(b) {
		return OutPoint{}, ErrVarIntTruncated
	}
	var op OutPoint
	copy(op.PrevHash[:], b[*off:*off+32])
	op.Index = binary.LittleEndian.Uint32(b[*off+32 : *off+36])
	*off += outPointSize
	return op, nil
}
