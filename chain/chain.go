package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/rubin-dev/cashcore/consensus"
	"github.com/rubin-dev/cashcore/script"
)

var errMissingIndex = errors.New("chain: missing block index entry")

// DefaultVerifyInputs verifies every non-coinbase input sequentially,
// in-process. Callers wanting the parallel pure-map verification
// spec.md §5 describes should supply their own VerifyInputsFunc built
// on script.CountSigOps/script.Execute over a worker pool.
func DefaultVerifyInputs(ctx context.Context, b *consensus.Block, view *CoinView, flags script.VerifyFlags) *consensus.VerifyError {
	for _, tx := range b.Transactions {
		if tx.IsCoinBase() {
			continue
		}
		for i, in := range tx.Inputs {
			select {
			case <-ctx.Done():
				return consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, "verification cancelled")
			default:
			}
			prior, ok, err := view.Get(in.PrevOut)
			if err != nil || !ok {
				return consensus.NewVerifyError(consensus.ReasonTxMissingInputs, 0, "input refers to unknown or spent output")
			}
			checker := &script.TxSigChecker{
				Tx:          tx,
				InputIndex:  i,
				InputAmount: prior.Output.Value,
				Flags:       flags,
			}
			if verr := script.Execute(in.Script, prior.Output.Script, flags, checker); verr != nil {
				return consensus.NewVerifyError(consensus.ReasonScriptVerifyFailed, 0, verr.Error())
			}
		}
	}
	return nil
}

// VerifyInputsFunc verifies every input of every non-coinbase
// transaction in a block against view. Implementations may run this
// as a pure parallel map over inputs (spec.md §5): no input depends
// on another's outcome, and the first failure cancels the rest via
// ctx.
type VerifyInputsFunc func(ctx context.Context, b *consensus.Block, view *CoinView, flags script.VerifyFlags) *consensus.VerifyError

// Chain is the chain state machine (spec.md §4.E, §5): a single
// exclusive "chain lock" guards every mutation, while read-only
// snapshot operations may proceed concurrently with each other.
type Chain struct {
	mu    sync.RWMutex
	store Store

	tip         *Entry
	verify      VerifyInputsFunc
	now         func() uint64
	listeners   []Listener
	deployments []Deployment
}

// New constructs a Chain over store. verifyInputs may be nil, in
// which case DefaultVerifyInputs (sequential, in-process) is used.
func New(store Store, verifyInputs VerifyInputsFunc) (*Chain, error) {
	if verifyInputs == nil {
		verifyInputs = DefaultVerifyInputs
	}
	c := &Chain{
		store:       store,
		verify:      verifyInputs,
		now:         func() uint64 { return uint64(time.Now().Unix()) },
		deployments: Deployments,
	}
	tipHash, ok, err := store.Tip()
	if err != nil {
		return nil, err
	}
	if ok {
		entry, ok, err := store.GetEntry(tipHash)
		if err != nil {
			return nil, err
		}
		if ok {
			c.tip = entry
		}
	}
	return c, nil
}

// SetClock overrides the wall-clock source ValidateHeader compares
// timestamps against. Intended for tests; production callers should
// leave the default (time.Now) in place.
func (c *Chain) SetClock(now func() uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetDeployments overrides the set of version-bits deployments
// advanceDeployments tracks at each retarget period boundary.
// Intended for tests exercising the state machine over a short
// period; production callers should leave the default (Deployments)
// in place.
func (c *Chain) SetDeployments(deployments []Deployment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deployments = deployments
}

// Subscribe registers a listener for chain events (spec.md §6).
// Listeners run synchronously on the goroutine that triggered the
// transition and must not call back into the chain lock.
func (c *Chain) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Chain) emit(ev Event) {
	for _, l := range c.listeners {
		l(ev)
	}
}

// Tip returns a snapshot of the current best entry. Safe to call
// concurrently with other readers.
func (c *Chain) Tip() *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip
}

// ProcessBlock validates and, if it extends or beats the current
// tip, connects b (performing a reorg first if necessary). It always
// acquires the chain lock exclusively; see spec.md §4.E "Block
// connection pipeline" and "Reorganisation".
func (c *Chain) ProcessBlock(ctx context.Context, b *consensus.Block) (*Entry, *consensus.VerifyError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parentHash := b.Header.PrevBlock
	parent, ok, err := c.store.GetEntry(parentHash)
	if err != nil {
		return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
	}
	if !ok {
		return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 100, "unknown previous block")
	}

	parentMTP := medianTimeOf(parent, func(h consensus.Hash) (*Entry, bool) {
		e, ok, err := c.store.GetEntry(h)
		if err != nil || !ok {
			return nil, false
		}
		return e, true
	})
	cashDAAActive := parent.Height+1 > CashDAAWindow
	expectedBits := ExpectedBits(parent, parent.Height+1, cashDAAActive, func(height uint64) (*Entry, bool) {
		h, ok, err := c.store.GetEntryByHeight(height)
		if err != nil || !ok {
			return nil, false
		}
		e, ok, err := c.store.GetEntry(h)
		if err != nil || !ok {
			return nil, false
		}
		return e, true
	})
	headerCtx := HeaderContext{
		Parent:       parent,
		ParentMTP:    parentMTP,
		ExpectedBits: expectedBits,
		LocalNow:     c.now(),
	}
	if verr := ValidateHeader(b.Header, headerCtx); verr != nil {
		return nil, verr
	}

	newWork := WorkFromTarget(consensus.CompactToTarget(b.Header.Bits))
	chainWork := new(big.Int).Add(parent.ChainWork, newWork)

	entry := &Entry{
		Header:    b.Header,
		Hash:      b.Hash(),
		Height:    parent.Height + 1,
		Work:      newWork,
		ChainWork: chainWork,
	}

	if c.tip == nil || chainWork.Cmp(c.tip.ChainWork) <= 0 {
		// Not best work: store the header/entry as a known alternative
		// branch tip, but do not connect it.
		if err := c.store.PutEntry(entry); err != nil {
			return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
		}
		if err := c.store.PutBlock(entry.Hash, b.Bytes()); err != nil {
			return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
		}
		if err := c.store.SetBranchTip(entry.Hash, true); err != nil {
			return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
		}
		return entry, nil
	}

	if parentHash == c.tip.Hash {
		if verr := c.connect(ctx, entry, b); verr != nil {
			return nil, verr
		}
		return entry, nil
	}
	return c.reorgTo(ctx, entry, b)
}

func (c *Chain) connect(ctx context.Context, entry *Entry, b *consensus.Block) *consensus.VerifyError {
	view := NewCoinView(c.store)
	lookupEntry := func(h consensus.Hash) (*Entry, bool) {
		e, ok, err := c.store.GetEntry(h)
		if err != nil || !ok {
			return nil, false
		}
		return e, true
	}
	var parentMTP uint64
	if parent, ok := lookupEntry(entry.Header.PrevBlock); ok {
		parentMTP = medianTimeOf(parent, lookupEntry)
	}
	active := MagneticAnomalyActive(parentMTP)

	if verr := ValidateBody(b, active); verr != nil {
		return verr
	}

	flags := script.MandatoryVerifyFlags
	if active {
		flags |= script.VerifyCheckDataSig
	}

	undo := UndoRecord{}
	var totalFee consensus.Amount
	sigops := LegacySigOps(b.Transactions[0])
	for _, tx := range b.Transactions {
		if tx.IsCoinBase() {
			continue
		}
		fee, verr := CheckTxContextual(tx, view, entry.Height)
		if verr != nil {
			return verr
		}
		totalFee += fee
		sigops += LegacySigOps(tx)
		for _, in := range tx.Inputs {
			prior, _, _ := view.Get(in.PrevOut)
			undo.Spent = append(undo.Spent, SpentOutput{OutPoint: in.PrevOut, Entry: prior})
			if flags.Has(script.VerifyP2SH) {
				sigops += script.CountSigOpsAccurate(in.Script, prior.Output.Script)
			}
		}
		ApplyTx(tx, view, entry.Height)
	}
	ApplyTx(b.Transactions[0], view, entry.Height)

	if verr := CheckSigOpsBudget(sigops, b.SerializedSize()); verr != nil {
		return verr
	}

	var coinbaseOut consensus.Amount
	for _, out := range b.Transactions[0].Outputs {
		coinbaseOut += out.Value
	}
	if limit := consensus.GetReward(entry.Height, consensus.SubsidyHalvingInterval) + totalFee; coinbaseOut > limit {
		return consensus.NewVerifyError(consensus.ReasonCoinbaseAmount, 100, "coinbase pays more than subsidy plus fees")
	}

	if verr := c.verify(ctx, b, view, flags); verr != nil {
		return verr
	}

	if err := c.store.Batch(func(batch Batch) error {
		if err := batch.PutEntry(entry); err != nil {
			return err
		}
		if err := batch.PutBlock(entry.Hash, b.Bytes()); err != nil {
			return err
		}
		for op, e := range view.Added() {
			if err := batch.PutUTXO(op, e); err != nil {
				return err
			}
		}
		for op := range view.Removed() {
			if err := batch.DeleteUTXO(op); err != nil {
				return err
			}
		}
		if err := batch.PutUndo(entry.Hash, undo); err != nil {
			return err
		}
		if c.tip != nil {
			if err := batch.SetNext(c.tip.Hash, entry.Hash); err != nil {
				return err
			}
		}
		return batch.SetTip(entry.Hash)
	}); err != nil {
		return consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
	}

	c.tip = entry
	if err := c.advanceDeployments(entry); err != nil {
		return consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
	}
	c.emit(Event{Kind: EventConnect, Entry: entry, Block: b, View: view})
	c.emit(Event{Kind: EventTip, Entry: entry})
	return nil
}

// advanceDeployments recomputes and persists each tracked
// deployment's state whenever entry closes out a retarget period,
// driving spec.md §4.E's version-bits deployment machine
// (NextDeploymentState) from real connected blocks rather than
// leaving it an uncalled pure function: signal count is tallied over
// the period's blocks by inspecting header.Version's deployment bit,
// and the resulting state is kept under the same v[bit,hash] store
// key the previous period's lookup reads back.
func (c *Chain) advanceDeployments(entry *Entry) error {
	for _, d := range c.deployments {
		if d.Period == 0 || entry.Height == 0 || entry.Height%uint64(d.Period) != 0 {
			continue
		}

		prevState := StateDefined
		if prevBoundary := entry.Height - uint64(d.Period); prevBoundary > 0 {
			prevHash, ok, err := c.store.GetEntryByHeight(prevBoundary)
			if err != nil {
				return err
			}
			if ok {
				if s, found, err := c.store.GetDeploymentState(d.Bit, prevHash); err != nil {
					return err
				} else if found {
					prevState = s
				}
			}
		}

		var signalCount uint32
		cur := entry
		for i := uint32(0); i < d.Period; i++ {
			if cur.Header.Version&(int32(1)<<d.Bit) != 0 {
				signalCount++
			}
			if cur.Height == 0 {
				break
			}
			parent, ok, err := c.store.GetEntry(cur.Header.PrevBlock)
			if err != nil || !ok {
				break
			}
			cur = parent
		}

		boundaryMTP := medianTimeOf(entry, func(h consensus.Hash) (*Entry, bool) {
			e, ok, err := c.store.GetEntry(h)
			if err != nil || !ok {
				return nil, false
			}
			return e, true
		})

		next := NextDeploymentState(prevState, boundaryMTP, signalCount, d)
		if err := c.store.PutDeploymentState(d.Bit, entry.Hash, next); err != nil {
			return err
		}
	}
	return nil
}

// reorgTo disconnects back to the fork point with the current tip and
// connects forward to entry's branch (spec.md §4.E "Reorganisation"),
// grounded on the teacher's node/store/reorg.go ReorgToTip walk.
func (c *Chain) reorgTo(ctx context.Context, entry *Entry, b *consensus.Block) (*Entry, *consensus.VerifyError) {
	originalTip := c.tip

	// entry and b may not be stored yet (ProcessBlock passes a freshly
	// built entry); the fork walk and the forward connect below read
	// both back from the store.
	if err := c.store.PutEntry(entry); err != nil {
		return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
	}
	if err := c.store.PutBlock(entry.Hash, b.Bytes()); err != nil {
		return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
	}

	fork, err := c.findForkPoint(c.tip.Hash, entry.Hash)
	if err != nil {
		return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
	}

	cur := c.tip
	for cur.Hash != fork {
		if verr := c.disconnectTip(cur); verr != nil {
			c.tip = originalTip
			return nil, verr
		}
		parent, ok, err := c.store.GetEntry(cur.Header.PrevBlock)
		if err != nil || !ok {
			c.tip = originalTip
			return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, "missing parent during disconnect")
		}
		c.tip = parent
		cur = parent
	}

	path, err := c.pathFromAncestor(fork, entry.Hash)
	if err != nil {
		return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
	}
	for _, h := range path {
		raw, ok, err := c.store.GetBlock(h)
		if err != nil || !ok {
			return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, "missing block body during reorg connect")
		}
		blk, perr := consensus.ParseBlock(raw)
		if perr != nil {
			return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, perr.Error())
		}
		e, ok2, err := c.store.GetEntry(h)
		if err != nil || !ok2 {
			return nil, consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, "missing entry during reorg connect")
		}
		if verr := c.connect(ctx, e, blk); verr != nil {
			if e2, ok3, _ := c.store.GetEntry(h); ok3 {
				e2.Status = StatusInvalid
				_ = c.store.PutEntry(e2)
			}
			return nil, verr
		}
	}
	return entry, nil
}

func (c *Chain) disconnectTip(e *Entry) *consensus.VerifyError {
	raw, ok, err := c.store.GetBlock(e.Hash)
	if err != nil || !ok {
		return consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, "missing block body during disconnect")
	}
	blk, perr := consensus.ParseBlock(raw)
	if perr != nil {
		return consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, perr.Error())
	}
	undo, ok, err := c.store.GetUndo(e.Hash)
	if err != nil || !ok {
		return consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, "missing undo record during disconnect")
	}
	view := NewCoinView(c.store)
	for _, tx := range blk.Transactions {
		h := tx.Hash()
		for i := range tx.Outputs {
			view.Spend(consensus.OutPoint{PrevHash: h, Index: uint32(i)})
		}
	}
	for _, s := range undo.Spent {
		view.Add(s.OutPoint, s.Entry)
	}
	if err := c.store.Batch(func(batch Batch) error {
		for op := range view.Removed() {
			if err := batch.DeleteUTXO(op); err != nil {
				return err
			}
		}
		for op, ent := range view.Added() {
			if err := batch.PutUTXO(op, ent); err != nil {
				return err
			}
		}
		return batch.SetTip(e.Header.PrevBlock)
	}); err != nil {
		return consensus.NewVerifyError(consensus.ReasonBadPrevBlock, 0, err.Error())
	}
	c.emit(Event{Kind: EventDisconnect, Entry: e, Block: blk, View: view})
	return nil
}

func (c *Chain) findForkPoint(a, b consensus.Hash) (consensus.Hash, error) {
	ea, _, err := c.store.GetEntry(a)
	if err != nil {
		return consensus.Hash{}, err
	}
	eb, _, err := c.store.GetEntry(b)
	if err != nil {
		return consensus.Hash{}, err
	}
	for ea.Height > eb.Height {
		ea, _, err = c.store.GetEntry(ea.Header.PrevBlock)
		if err != nil {
			return consensus.Hash{}, err
		}
	}
	for eb.Height > ea.Height {
		eb, _, err = c.store.GetEntry(eb.Header.PrevBlock)
		if err != nil {
			return consensus.Hash{}, err
		}
	}
	for ea.Hash != eb.Hash {
		ea, _, err = c.store.GetEntry(ea.Header.PrevBlock)
		if err != nil {
			return consensus.Hash{}, err
		}
		eb, _, err = c.store.GetEntry(eb.Header.PrevBlock)
		if err != nil {
			return consensus.Hash{}, err
		}
	}
	return ea.Hash, nil
}

func (c *Chain) pathFromAncestor(ancestor, tip consensus.Hash) ([]consensus.Hash, error) {
	if ancestor == tip {
		return nil, nil
	}
	var out []consensus.Hash
	cur := tip
	for cur != ancestor {
		out = append(out, cur)
		e, ok, err := c.store.GetEntry(cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errMissingIndex
		}
		cur = e.Header.PrevBlock
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
