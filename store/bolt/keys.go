package bolt

import (
	"encoding/binary"

	"github.com/rubin-dev/cashcore/consensus"
)

// Key prefixes exactly as spec.md §6 names them. Every key lives in
// one bucket; the prefix byte is the namespace discriminator since
// bbolt buckets give us nothing a byte tag doesn't (and one bucket
// keeps iteration/ordering simple for the height index).
const (
	prefixSchemaVersion byte = 'V'
	prefixOptions       byte = 'O'
	prefixTip           byte = 'R'
	prefixEntry         byte = 'e'
	prefixHeight        byte = 'h'
	prefixHashByHeight  byte = 'H'
	prefixNext          byte = 'n'
	prefixBranchTip     byte = 'p'
	prefixBlock         byte = 'b'
	prefixUTXO          byte = 'c'
	prefixUndo          byte = 'u'
	prefixDeployment    byte = 'v'
)

var rootBucket = []byte("chain")

func keySchemaVersion() []byte { return []byte{prefixSchemaVersion} }
func keyTip() []byte           { return []byte{prefixTip} }

func keyEntry(h consensus.Hash) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixEntry
	copy(k[1:], h[:])
	return k
}

func keyHeight(h consensus.Hash) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixHeight
	copy(k[1:], h[:])
	return k
}

func keyHashByHeight(height uint64) []byte {
	k := make([]byte, 1+8)
	k[0] = prefixHashByHeight
	binary.BigEndian.PutUint64(k[1:], height)
	return k
}

func keyNext(h consensus.Hash) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixNext
	copy(k[1:], h[:])
	return k
}

func keyBranchTip(h consensus.Hash) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixBranchTip
	copy(k[1:], h[:])
	return k
}

func keyBlock(h consensus.Hash) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixBlock
	copy(k[1:], h[:])
	return k
}

func keyUTXO(op consensus.OutPoint) []byte {
	k := make([]byte, 1+32+4)
	k[0] = prefixUTXO
	copy(k[1:33], op.PrevHash[:])
	binary.BigEndian.PutUint32(k[33:37], op.Index)
	return k
}

func keyUndo(h consensus.Hash) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixUndo
	copy(k[1:], h[:])
	return k
}

func keyDeployment(bit uint8, h consensus.Hash) []byte {
	k := make([]byte, 1+1+32)
	k[0] = prefixDeployment
	k[1] = bit
	copy(k[2:], h[:])
	return k
}
