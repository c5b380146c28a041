package consensus

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed serialized size of a block header.
const HeaderSize = 80

// Header is a block header.
type Header struct {
	Version    int32
	PrevBlock  Hash
	MerkleRoot Hash
	Time       uint32
	Bits       uint32
	Nonce      uint32
}

// Bytes returns the 80-byte canonical serialization of h.
func (h Header) Bytes() []byte {
	out := make([]byte, 0, HeaderSize)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], uint32(h.Version))
	out = append(out, tmp4[:]...)
	out = append(out, h.PrevBlock[:]...)
	out = append(out, h.MerkleRoot[:]...)
	binary.LittleEndian.PutUint32(tmp4[:], h.Time)
	out = append(out, tmp4[:]...)
	binary.LittleEndian.PutUint32(tmp4[:], h.Bits)
	out = append(out, tmp4[:]...)
	binary.LittleEndian.PutUint32(tmp4[:], h.Nonce)
	out = append(out, tmp4[:]...)
	return out
}

// Hash returns the double-SHA-256 of the 80-byte header encoding.
func (h Header) Hash() Hash {
	return DoubleSHA256(h.Bytes())
}

// ParseHeader decodes an 80-byte header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, fmt.Errorf("consensus: header must be %d bytes, got %d", HeaderSize, len(b))
	}
	var h Header
	h.Version = int32(binary.LittleEndian.Uint32(b[0:4]))
	copy(h.PrevBlock[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	h.Time = binary.LittleEndian.Uint32(b[68:72])
	h.Bits = binary.LittleEndian.Uint32(b[72:76])
	h.Nonce = binary.LittleEndian.Uint32(b[76:80])
	return h, nil
}
