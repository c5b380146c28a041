package chain

import (
	"context"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/rubin-dev/cashcore/consensus"
	"github.com/rubin-dev/cashcore/script"
	"golang.org/x/crypto/ripemd160"
)

func hash160(b []byte) []byte {
	s := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(s[:])
	return h.Sum(nil)
}

func coinbaseTx(height uint64, reward consensus.Amount, extraNonce byte) *consensus.Tx {
	return &consensus.Tx{
		Version: 1,
		Inputs: []consensus.TxIn{{
			PrevOut:  consensus.NullOutPoint,
			Script:   []byte{0x02, byte(height), extraNonce},
			Sequence: 0xffffffff,
		}},
		Outputs: []consensus.TxOut{{Value: reward, Script: []byte{0x76, 0xa9, 0x14}}},
		LockTime: 0,
	}
}

func buildBlock(prev consensus.Hash, bits uint32, t uint32, txs []*consensus.Tx) *consensus.Block {
	ids := make([]consensus.Hash, len(txs))
	for i, tx := range txs {
		ids[i] = tx.Hash()
	}
	root := consensus.MerkleRoot(ids)
	return &consensus.Block{
		Header: consensus.Header{
			Version:    1,
			PrevBlock:  prev,
			MerkleRoot: root,
			Time:       t,
			Bits:       bits,
		},
		Transactions: txs,
	}
}

func newTestChain(t *testing.T) (*Chain, *memStore, *Entry) {
	t.Helper()
	store := newMemStore()
	genesis := buildBlock(consensus.Hash{}, PowLimitCompact, 1231006505, []*consensus.Tx{coinbaseTx(0, 0, 0)})
	genEntry, err := InitGenesis(store, genesis)
	if err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}
	c, err := New(store, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, store, genEntry
}

func TestConnectAppliesCoinbaseUTXO(t *testing.T) {
	c, _, gen := newTestChain(t)

	reward := consensus.GetReward(1, consensus.SubsidyHalvingInterval)
	cb := coinbaseTx(1, reward, 1)
	blk := buildBlock(gen.Hash, PowLimitCompact, gen.Header.Time+600, []*consensus.Tx{cb})
	entry := &Entry{Header: blk.Header, Hash: blk.Hash(), Height: 1, Work: WorkFromTarget(PowLimit())}
	entry.ChainWork = entry.Work

	if verr := c.connect(context.Background(), entry, blk); verr != nil {
		t.Fatalf("connect: %v", verr)
	}
	if c.Tip().Hash != entry.Hash {
		t.Fatalf("tip not updated after connect")
	}
	op := consensus.OutPoint{PrevHash: cb.Hash(), Index: 0}
	view := NewCoinView(c.store)
	got, ok, err := view.Get(op)
	if err != nil || !ok {
		t.Fatalf("expected coinbase output in UTXO set, ok=%v err=%v", ok, err)
	}
	if got.Output.Value != reward {
		t.Fatalf("utxo value = %d, want %d", got.Output.Value, reward)
	}
	if !got.IsCoinBase {
		t.Fatalf("utxo should be flagged coinbase")
	}
}

// TestReorgRestoresUTXOSet exercises the reorg law: connecting branch B
// (higher chainwork) after branch A must leave the UTXO set containing
// exactly branch B's outputs, with branch A's coinbase spendable-never
// (it was disconnected, not just shadowed).
func TestReorgRestoresUTXOSet(t *testing.T) {
	c, store, gen := newTestChain(t)

	rewardA := consensus.GetReward(1, consensus.SubsidyHalvingInterval)
	cbA := coinbaseTx(1, rewardA, 0xA1)
	blkA := buildBlock(gen.Hash, PowLimitCompact, gen.Header.Time+600, []*consensus.Tx{cbA})
	entryA := &Entry{Header: blkA.Header, Hash: blkA.Hash(), Height: 1, Work: WorkFromTarget(PowLimit())}
	entryA.ChainWork = new(big.Int).Add(gen.ChainWork, entryA.Work)

	if verr := c.connect(context.Background(), entryA, blkA); verr != nil {
		t.Fatalf("connect A: %v", verr)
	}

	rewardB1 := consensus.GetReward(1, consensus.SubsidyHalvingInterval)
	cbB1 := coinbaseTx(1, rewardB1, 0xB1)
	blkB1 := buildBlock(gen.Hash, PowLimitCompact, gen.Header.Time+600, []*consensus.Tx{cbB1})
	entryB1 := &Entry{Header: blkB1.Header, Hash: blkB1.Hash(), Height: 1, Work: WorkFromTarget(PowLimit())}
	entryB1.ChainWork = new(big.Int).Add(gen.ChainWork, entryB1.Work)
	if err := store.PutEntry(entryB1); err != nil {
		t.Fatalf("put entryB1: %v", err)
	}
	if err := store.PutBlock(entryB1.Hash, blkB1.Bytes()); err != nil {
		t.Fatalf("put block B1: %v", err)
	}

	rewardB2 := consensus.GetReward(2, consensus.SubsidyHalvingInterval)
	cbB2 := coinbaseTx(2, rewardB2, 0xB2)
	blkB2 := buildBlock(entryB1.Hash, PowLimitCompact, blkB1.Header.Time+600, []*consensus.Tx{cbB2})
	entryB2 := &Entry{Header: blkB2.Header, Hash: blkB2.Hash(), Height: 2, Work: WorkFromTarget(PowLimit())}
	entryB2.ChainWork = new(big.Int).Add(entryB1.ChainWork, entryB2.Work)

	_, verr := c.reorgTo(context.Background(), entryB2, blkB2)
	if verr != nil {
		t.Fatalf("reorgTo: %v", verr)
	}

	view := NewCoinView(c.store)
	if _, ok, _ := view.Get(consensus.OutPoint{PrevHash: cbA.Hash(), Index: 0}); ok {
		t.Fatalf("branch A coinbase output should have been disconnected")
	}
	if _, ok, _ := view.Get(consensus.OutPoint{PrevHash: cbB1.Hash(), Index: 0}); !ok {
		t.Fatalf("branch B height-1 coinbase output should be present")
	}
	if _, ok, _ := view.Get(consensus.OutPoint{PrevHash: cbB2.Hash(), Index: 0}); !ok {
		t.Fatalf("branch B height-2 coinbase output should be present")
	}
	if c.Tip().Hash != entryB2.Hash {
		t.Fatalf("tip should be branch B's height-2 entry after reorg")
	}
}

// TestDeploymentStateAdvancesThroughSignallingPeriods exercises
// NextDeploymentState against real connected blocks rather than as an
// isolated pure function: a deployment signalled by every block in a
// short period must progress Defined -> Started -> LockedIn -> Active
// across successive period boundaries, with each period's state read
// back from the store under the v[bit,hash] key the next period's
// lookup consults.
func TestDeploymentStateAdvancesThroughSignallingPeriods(t *testing.T) {
	c, store, gen := newTestChain(t)

	dep := Deployment{
		Name:        "test",
		Bit:         1,
		StartTime:   0,
		TimeoutTime: ^uint64(0),
		Threshold:   3,
		Period:      4,
	}
	c.SetDeployments([]Deployment{dep})

	prev := gen
	wantStates := map[uint64]DeploymentState{
		4:  StateStarted,
		8:  StateLockedIn,
		12: StateActive,
	}
	for height := uint64(1); height <= 12; height++ {
		reward := consensus.GetReward(height, consensus.SubsidyHalvingInterval)
		cb := coinbaseTx(height, reward, byte(height))
		blk := buildBlock(prev.Hash, PowLimitCompact, prev.Header.Time+600, []*consensus.Tx{cb})
		blk.Header.Version = 1 | (int32(1) << dep.Bit)

		entry := &Entry{Header: blk.Header, Hash: blk.Hash(), Height: height, Work: WorkFromTarget(PowLimit())}
		entry.ChainWork = new(big.Int).Add(prev.ChainWork, entry.Work)

		if verr := c.connect(context.Background(), entry, blk); verr != nil {
			t.Fatalf("connect height %d: %v", height, verr)
		}

		if want, ok := wantStates[height]; ok {
			got, found, err := store.GetDeploymentState(dep.Bit, entry.Hash)
			if err != nil || !found {
				t.Fatalf("height %d: GetDeploymentState found=%v err=%v", height, found, err)
			}
			if got != want {
				t.Fatalf("height %d: deployment state = %v, want %v", height, got, want)
			}
		}
		prev = entry
	}
}

// TestConnectRejectsBlockExceedingP2SHAccurateSigOpBudget exercises
// spec.md §4.D's "legacy count + P2SH accurate count when VERIFY_P2SH
// is set" block sigop cap: a spend whose redeem script alone holds
// far more CHECKMULTISIG sigops than the per-block budget must be
// rejected, even though the legacy (non-P2SH-accurate) count over the
// bare scriptSig/scriptPubKey bytes would never see them.
func TestConnectRejectsBlockExceedingP2SHAccurateSigOpBudget(t *testing.T) {
	c, store, gen := newTestChain(t)

	redeem := make([]byte, 1001)
	for i := range redeem {
		redeem[i] = byte(script.OP_CHECKMULTISIG)
	}
	redeemHash := hash160(redeem)
	p2shScript := append([]byte{byte(script.OP_HASH160), 0x14}, redeemHash...)
	p2shScript = append(p2shScript, byte(script.OP_EQUAL))

	fundingHash := consensus.Hash{0xAA}
	fundingOp := consensus.OutPoint{PrevHash: fundingHash, Index: 0}
	if err := store.PutUTXO(fundingOp, UTXOEntry{
		Output:     consensus.TxOut{Value: 1000, Script: p2shScript},
		Height:     0,
		IsCoinBase: false,
	}); err != nil {
		t.Fatalf("seed funding utxo: %v", err)
	}

	sigScript := append([]byte{byte(script.OP_PUSHDATA2), byte(len(redeem)), byte(len(redeem) >> 8)}, redeem...)
	spend := &consensus.Tx{
		Version:  1,
		Inputs:   []consensus.TxIn{{PrevOut: fundingOp, Script: sigScript, Sequence: 0xffffffff}},
		Outputs:  []consensus.TxOut{{Value: 500, Script: []byte{byte(script.OP_RETURN)}}},
		LockTime: 0,
	}

	reward := consensus.GetReward(1, consensus.SubsidyHalvingInterval)
	cb := coinbaseTx(1, reward, 1)
	blk := buildBlock(gen.Hash, PowLimitCompact, gen.Header.Time+600, []*consensus.Tx{cb, spend})
	entry := &Entry{Header: blk.Header, Hash: blk.Hash(), Height: 1, Work: WorkFromTarget(PowLimit())}
	entry.ChainWork = entry.Work

	verr := c.connect(context.Background(), entry, blk)
	if verr == nil {
		t.Fatal("expected sigop budget rejection, got success")
	}
	if verr.Reason != consensus.ReasonBlockSigops {
		t.Fatalf("verr.Reason = %q, want %q", verr.Reason, consensus.ReasonBlockSigops)
	}
}
