package bolt

import (
	"encoding/binary"
	"fmt"

	"github.com/rubin-dev/cashcore/chain"
	"github.com/rubin-dev/cashcore/consensus"
	bolt "go.etcd.io/bbolt"
)

// ChainSchemaVersion is the schema version spec.md §6 names for the
// chain store ("5").
const ChainSchemaVersion uint32 = 5

// DB is a bbolt-backed chain.Store. All namespaces share one bucket;
// see keys.go for the prefix layout.
type DB struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bbolt database at path and
// ensures the root bucket and schema version exist.
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store/bolt: open: %w", err)
	}
	d := &DB{db: bdb}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(rootBucket)
		if err != nil {
			return err
		}
		if b.Get(keySchemaVersion()) == nil {
			var v [4]byte
			binary.BigEndian.PutUint32(v[:], ChainSchemaVersion)
			if err := b.Put(keySchemaVersion(), v[:]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

func (d *DB) SchemaVersion() (uint32, error) {
	var v uint32
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootBucket).Get(keySchemaVersion())
		if raw == nil {
			return fmt.Errorf("store/bolt: schema version not set")
		}
		v = binary.BigEndian.Uint32(raw)
		return nil
	})
	return v, err
}

func (d *DB) Tip() (consensus.Hash, bool, error) {
	var h consensus.Hash
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootBucket).Get(keyTip())
		if raw == nil {
			return nil
		}
		copy(h[:], raw)
		ok = true
		return nil
	})
	return h, ok, err
}

func (d *DB) SetTip(h consensus.Hash) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(keyTip(), h[:])
	})
}

func (d *DB) PutEntry(e *chain.Entry) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket)
		if err := b.Put(keyEntry(e.Hash), encodeEntry(e)); err != nil {
			return err
		}
		if err := b.Put(keyHeight(e.Hash), heightBytes(e.Height)); err != nil {
			return err
		}
		return b.Put(keyHashByHeight(e.Height), e.Hash[:])
	})
}

func heightBytes(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

func (d *DB) GetEntry(h consensus.Hash) (*chain.Entry, bool, error) {
	var e *chain.Entry
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootBucket).Get(keyEntry(h))
		if raw == nil {
			return nil
		}
		decoded, err := decodeEntry(raw)
		if err != nil {
			return err
		}
		e = decoded
		return nil
	})
	if err != nil || e == nil {
		return nil, false, err
	}
	return e, true, nil
}

func (d *DB) GetEntryByHeight(height uint64) (consensus.Hash, bool, error) {
	var h consensus.Hash
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootBucket).Get(keyHashByHeight(height))
		if raw == nil {
			return nil
		}
		copy(h[:], raw)
		ok = true
		return nil
	})
	return h, ok, err
}

func (d *DB) SetNext(h, next consensus.Hash) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(keyNext(h), next[:])
	})
}

func (d *DB) GetNext(h consensus.Hash) (consensus.Hash, bool, error) {
	var next consensus.Hash
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootBucket).Get(keyNext(h))
		if raw == nil {
			return nil
		}
		copy(next[:], raw)
		ok = true
		return nil
	})
	return next, ok, err
}

func (d *DB) SetBranchTip(h consensus.Hash, isTip bool) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		var v byte
		if isTip {
			v = 1
		}
		return tx.Bucket(rootBucket).Put(keyBranchTip(h), []byte{v})
	})
}

func (d *DB) PutBlock(h consensus.Hash, raw []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(keyBlock(h), raw)
	})
}

func (d *DB) GetBlock(h consensus.Hash) ([]byte, bool, error) {
	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(rootBucket).Get(keyBlock(h))
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, out != nil, err
}

func (d *DB) PutUTXO(op consensus.OutPoint, e chain.UTXOEntry) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(keyUTXO(op), encodeUTXOEntry(e))
	})
}

func (d *DB) GetUTXO(op consensus.OutPoint) (chain.UTXOEntry, bool, error) {
	var e chain.UTXOEntry
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootBucket).Get(keyUTXO(op))
		if raw == nil {
			return nil
		}
		decoded, err := decodeUTXOEntry(raw)
		if err != nil {
			return err
		}
		e, found = decoded, true
		return nil
	})
	return e, found, err
}

func (d *DB) DeleteUTXO(op consensus.OutPoint) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Delete(keyUTXO(op))
	})
}

func (d *DB) PutUndo(blockHash consensus.Hash, u chain.UndoRecord) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(keyUndo(blockHash), encodeUndo(u))
	})
}

func (d *DB) GetUndo(blockHash consensus.Hash) (chain.UndoRecord, bool, error) {
	var u chain.UndoRecord
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootBucket).Get(keyUndo(blockHash))
		if raw == nil {
			return nil
		}
		decoded, err := decodeUndo(raw)
		if err != nil {
			return err
		}
		u, found = decoded, true
		return nil
	})
	return u, found, err
}

func (d *DB) PutDeploymentState(bit uint8, h consensus.Hash, state chain.DeploymentState) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(keyDeployment(bit, h), []byte{byte(state)})
	})
}

func (d *DB) GetDeploymentState(bit uint8, h consensus.Hash) (chain.DeploymentState, bool, error) {
	var state chain.DeploymentState
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootBucket).Get(keyDeployment(bit, h))
		if raw == nil {
			return nil
		}
		state, found = chain.DeploymentState(raw[0]), true
		return nil
	})
	return state, found, err
}

// Batch groups a set of writes into one bbolt transaction, giving the
// chain's connect/disconnect paths the atomic-commit guarantee
// spec.md §6 requires of Store.
func (d *DB) Batch(fn func(chain.Batch) error) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return fn(&txBatch{bucket: tx.Bucket(rootBucket)})
	})
}

type txBatch struct {
	bucket *bolt.Bucket
}

func (b *txBatch) PutEntry(e *chain.Entry) error {
	if err := b.bucket.Put(keyEntry(e.Hash), encodeEntry(e)); err != nil {
		return err
	}
	if err := b.bucket.Put(keyHeight(e.Hash), heightBytes(e.Height)); err != nil {
		return err
	}
	return b.bucket.Put(keyHashByHeight(e.Height), e.Hash[:])
}

func (b *txBatch) SetNext(h, next consensus.Hash) error {
	return b.bucket.Put(keyNext(h), next[:])
}

func (b *txBatch) SetBranchTip(h consensus.Hash, isTip bool) error {
	var v byte
	if isTip {
		v = 1
	}
	return b.bucket.Put(keyBranchTip(h), []byte{v})
}

func (b *txBatch) PutBlock(h consensus.Hash, raw []byte) error {
	return b.bucket.Put(keyBlock(h), raw)
}

func (b *txBatch) PutUTXO(op consensus.OutPoint, e chain.UTXOEntry) error {
	return b.bucket.Put(keyUTXO(op), encodeUTXOEntry(e))
}

func (b *txBatch) DeleteUTXO(op consensus.OutPoint) error {
	return b.bucket.Delete(keyUTXO(op))
}

func (b *txBatch) PutUndo(blockHash consensus.Hash, u chain.UndoRecord) error {
	return b.bucket.Put(keyUndo(blockHash), encodeUndo(u))
}

func (b *txBatch) SetTip(h consensus.Hash) error {
	return b.bucket.Put(keyTip(), h[:])
}

var _ chain.Store = (*DB)(nil)
var _ chain.Batch = (*txBatch)(nil)
