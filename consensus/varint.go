package consensus

import (
	"encoding/binary"
	"errors"
)

// ErrVarIntTruncated is returned when a compact-size varint cannot be
// read because the buffer ends early.
var ErrVarIntTruncated = errors.New("consensus: varint: truncated")

// ErrVarIntNonMinimal is returned when a compact-size varint uses a
// wider prefix than the value requires.
var ErrVarIntNonMinimal = errors.New("consensus: varint: non-minimal encoding")

// WriteVarInt appends the compact-size encoding of v to dst and
// returns the result.
func WriteVarInt(dst []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(dst, byte(v))
	case v <= 0xffff:
		var b [3]byte
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(v))
		return append(dst, b[:]...)
	case v <= 0xffffffff:
		var b [5]byte
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(v))
		return append(dst, b[:]...)
	default:
		var b [9]byte
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:], v)
		return append(dst, b[:]...)
	}
}

// VarIntSize returns the number of bytes WriteVarInt would emit for v.
func VarIntSize(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarInt reads a compact-size varint from b starting at offset
// *off, advancing *off past it. It rejects non-minimal encodings.
func ReadVarInt(b []byte, off *int) (uint64, error) {
	if *off >= len(b) {
		return 0, ErrVarIntTruncated
	}
	prefix := b[*off]
	switch {
	case prefix < 0xfd:
		*off++
		return uint64(prefix), nil
	case prefix == 0xfd:
		if *off+3 > len(b) {
			return 0, ErrVarIntTruncated
		}
		v := uint64(binary.LittleEndian.Uint16(b[*off+1 : *off+3]))
		*off += 3
		if v < 0xfd {
			return 0, ErrVarIntNonMinimal
		}
		return v, nil
	case prefix == 0xfe:
		if *off+5 > len(b) {
			return 0, ErrVarIntTruncated
		}
		v := uint64(binary.LittleEndian.Uint32(b[*off+1 : *off+5]))
		*off += 5
		if v <= 0xffff {
			return 0, ErrVarIntNonMinimal
		}
		return v, nil
	default:
		if *off+9 > len(b) {
			return 0, ErrVarIntTruncated
		}
		v := binary.LittleEndian.Uint64(b[*off+1 : *off+9])
		*off += 9
		if v <= 0xffffffff {
			return 0, ErrVarIntNonMinimal
		}
		return v, nil
	}
}
