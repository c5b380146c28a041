package bolt

import (
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/rubin-dev/cashcore/chain"
	"github.com/rubin-dev/cashcore/consensus"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSchemaVersionAndTip(t *testing.T) {
	d := openTestDB(t)

	v, err := d.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != ChainSchemaVersion {
		t.Fatalf("schema version = %d, want %d", v, ChainSchemaVersion)
	}

	if _, ok, err := d.Tip(); err != nil || ok {
		t.Fatalf("Tip on empty store: ok=%v err=%v", ok, err)
	}

	var h consensus.Hash
	h[0] = 0xAB
	if err := d.SetTip(h); err != nil {
		t.Fatalf("SetTip: %v", err)
	}
	got, ok, err := d.Tip()
	if err != nil || !ok || got != h {
		t.Fatalf("Tip() = %x, %v, %v; want %x, true, nil", got, ok, err, h)
	}
}

func TestEntryRoundTrip(t *testing.T) {
	d := openTestDB(t)

	e := &chain.Entry{
		Header: consensus.Header{
			Version:    1,
			Time:       1231006505,
			Bits:       0x1d00ffff,
			Nonce:      2083236893,
		},
		Height:     42,
		Work:       big.NewInt(1 << 20),
		ChainWork:  new(big.Int).Lsh(big.NewInt(1), 80),
		MedianTime: 1231006505,
		Status:     chain.StatusValid,
	}
	e.Hash = e.Header.Hash()

	if err := d.PutEntry(e); err != nil {
		t.Fatalf("PutEntry: %v", err)
	}
	got, ok, err := d.GetEntry(e.Hash)
	if err != nil || !ok {
		t.Fatalf("GetEntry: ok=%v err=%v", ok, err)
	}
	if got.Height != e.Height || got.MedianTime != e.MedianTime || got.Status != e.Status {
		t.Fatalf("GetEntry mismatch: %+v", got)
	}
	if got.Header != e.Header {
		t.Fatalf("header mismatch: got %+v want %+v", got.Header, e.Header)
	}
	if got.ChainWork.Cmp(e.ChainWork) != 0 {
		t.Fatalf("chainwork mismatch: got %s want %s", got.ChainWork, e.ChainWork)
	}

	byHeight, ok, err := d.GetEntryByHeight(42)
	if err != nil || !ok || byHeight != e.Hash {
		t.Fatalf("GetEntryByHeight: %x, %v, %v", byHeight, ok, err)
	}
}

func TestUTXOAndUndoRoundTrip(t *testing.T) {
	d := openTestDB(t)

	op := consensus.OutPoint{Index: 1}
	op.PrevHash[3] = 0x77
	entry := chain.UTXOEntry{
		Output:     consensus.TxOut{Value: 5000, Script: []byte{0x76, 0xa9, 0x14}},
		Height:     10,
		IsCoinBase: true,
	}

	if err := d.PutUTXO(op, entry); err != nil {
		t.Fatalf("PutUTXO: %v", err)
	}
	got, ok, err := d.GetUTXO(op)
	if err != nil || !ok {
		t.Fatalf("GetUTXO: ok=%v err=%v", ok, err)
	}
	if got.Output.Value != entry.Output.Value || !got.IsCoinBase || got.Height != entry.Height {
		t.Fatalf("GetUTXO mismatch: %+v", got)
	}

	if err := d.DeleteUTXO(op); err != nil {
		t.Fatalf("DeleteUTXO: %v", err)
	}
	if _, ok, err := d.GetUTXO(op); err != nil || ok {
		t.Fatalf("GetUTXO after delete: ok=%v err=%v", ok, err)
	}

	var blockHash consensus.Hash
	blockHash[0] = 1
	undo := chain.UndoRecord{Spent: []chain.SpentOutput{{OutPoint: op, Entry: entry}}}
	if err := d.PutUndo(blockHash, undo); err != nil {
		t.Fatalf("PutUndo: %v", err)
	}
	gotUndo, ok, err := d.GetUndo(blockHash)
	if err != nil || !ok || len(gotUndo.Spent) != 1 {
		t.Fatalf("GetUndo: %+v, %v, %v", gotUndo, ok, err)
	}
	if gotUndo.Spent[0].OutPoint != op || gotUndo.Spent[0].Entry.Output.Value != entry.Output.Value {
		t.Fatalf("GetUndo content mismatch: %+v", gotUndo.Spent[0])
	}
}

func TestBatchIsAtomic(t *testing.T) {
	d := openTestDB(t)

	var tipHash consensus.Hash
	tipHash[0] = 9
	op := consensus.OutPoint{Index: 0}

	err := d.Batch(func(b chain.Batch) error {
		if err := b.PutUTXO(op, chain.UTXOEntry{Output: consensus.TxOut{Value: 1}}); err != nil {
			return err
		}
		return b.SetTip(tipHash)
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if got, ok, _ := d.Tip(); !ok || got != tipHash {
		t.Fatalf("tip after batch = %x, %v", got, ok)
	}
	if _, ok, _ := d.GetUTXO(op); !ok {
		t.Fatalf("utxo missing after batch commit")
	}

	op2 := consensus.OutPoint{Index: 1}
	errAbort := errors.New("abort")
	err = d.Batch(func(b chain.Batch) error {
		if err := b.PutUTXO(op2, chain.UTXOEntry{Output: consensus.TxOut{Value: 2}}); err != nil {
			return err
		}
		return errAbort
	})
	if err != errAbort {
		t.Fatalf("Batch error = %v, want %v", err, errAbort)
	}
	if _, ok, _ := d.GetUTXO(op2); ok {
		t.Fatalf("utxo written by a failed batch was kept")
	}
}

func TestDeploymentStateRoundTrip(t *testing.T) {
	d := openTestDB(t)

	var h consensus.Hash
	h[0] = 3
	if err := d.PutDeploymentState(5, h, chain.StateLockedIn); err != nil {
		t.Fatalf("PutDeploymentState: %v", err)
	}
	got, ok, err := d.GetDeploymentState(5, h)
	if err != nil || !ok || got != chain.StateLockedIn {
		t.Fatalf("GetDeploymentState: %v, %v, %v", got, ok, err)
	}
	if _, ok, _ := d.GetDeploymentState(6, h); ok {
		t.Fatalf("GetDeploymentState: unexpected hit for different bit")
	}
}
