package mining

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/rubin-dev/cashcore/consensus"
)

// Params configures one call to Assemble (spec.md §4.F).
type Params struct {
	Height     uint64
	PrevBlock  consensus.Hash
	Bits       uint32
	Time       uint32 // must be > MedianTime; caller picks max(MedianTime+1, now)
	MedianTime uint64
	Version    int32

	MagneticAnomalyActive bool

	MaxSize   int
	MaxSigOps int

	// PrioritySize > 0 enables the priority phase; entries are
	// admitted by coin-age priority until cumulative size reaches
	// PrioritySize or the next candidate's priority drops below
	// PriorityThreshold (spec.md §4.F).
	PrioritySize      int
	PriorityThreshold float64

	Mempool *Mempool

	RewardAddressScript []byte // coinbase output locking script
	CoinbaseFlags       []byte // appended after the BIP-34 height push; <= 20 bytes
	HalvingInterval     uint64
}

var (
	errCoinbaseFlagsTooLong = errors.New("mining: coinbase flags exceed 20 bytes")
	errMaxSizeTooSmall      = errors.New("mining: MaxSize too small for a coinbase-only block")
)

// Assemble builds a Template from a pinned mempool snapshot: a
// dependency graph of in-mempool parents/children, an optional
// priority phase, then a fee-rate phase, followed by the
// magnetic-anomaly canonical sort (spec.md §4.F).
func Assemble(p Params) (*Template, error) {
	if len(p.CoinbaseFlags) > 20 {
		return nil, errCoinbaseFlagsTooLong
	}

	graph := buildGraph(p.Mempool)

	selected := make([]*Entry, 0, p.Mempool.Len())
	committed := make(map[consensus.Hash]bool, p.Mempool.Len())
	var sizeBytes int
	var sigOps int
	var totalFee consensus.Amount

	// Reserve room for the coinbase itself; its exact size depends on
	// the flags/height push, which is fixed for this call.
	coinbaseSizeEstimate := 64 + len(p.CoinbaseFlags)
	budgetSize := p.MaxSize - coinbaseSizeEstimate
	if budgetSize <= 0 {
		return nil, errMaxSizeTooSmall
	}

	admit := func(c *candidate) bool {
		e := c.entry
		if sizeBytes+e.Size > budgetSize {
			return false
		}
		if sigOps+e.SigOps > p.MaxSigOps {
			return false
		}
		if !e.Tx.IsFinal(p.Height, uint64(p.Time)) {
			return false
		}
		return true
	}

	commit := func(c *candidate, frontier *priorityQueue) {
		e := c.entry
		selected = append(selected, e)
		committed[e.Tx.Hash()] = true
		sizeBytes += e.Size
		sigOps += e.SigOps
		totalFee += e.Fee
		for _, childID := range graph.children[e.Tx.Hash()] {
			graph.remaining[childID]--
			if graph.remaining[childID] == 0 && !committed[childID] {
				child := graph.byID[childID]
				frontier.push(&candidate{entry: child, descRate: graph.descRate[childID]})
			}
		}
	}

	reseed := newPriorityQueue(byRateDesc)

	if p.PrioritySize > 0 {
		pq := newPriorityQueue(byPriorityDesc)
		for _, id := range graph.roots {
			e := graph.byID[id]
			pq.push(&candidate{entry: e, descRate: graph.descRate[id]})
		}
		for !pq.empty() {
			top := pq.peek()
			if sizeBytes+top.entry.Size > p.PrioritySize || top.entry.Priority < p.PriorityThreshold {
				break
			}
			pq.pop()
			if !admit(top) {
				continue
			}
			commit(top, pq)
		}
		for !pq.empty() {
			reseed.push(pq.pop())
		}
	} else {
		for _, id := range graph.roots {
			e := graph.byID[id]
			reseed.push(&candidate{entry: e, descRate: graph.descRate[id]})
		}
	}

	for !reseed.empty() {
		top := reseed.pop()
		if committed[top.entry.Tx.Hash()] {
			continue
		}
		if !admit(top) {
			continue
		}
		commit(top, reseed)
	}

	txs := make([]*consensus.Tx, len(selected))
	for i, e := range selected {
		txs[i] = e.Tx
	}
	if p.MagneticAnomalyActive {
		sortCanonical(txs)
	}

	coinbase := buildCoinbase(p.Height, totalFee, p.RewardAddressScript, p.CoinbaseFlags, p.HalvingInterval)

	tmpl := &Template{
		Height:                p.Height,
		PrevBlock:             p.PrevBlock,
		Bits:                  p.Bits,
		Time:                  p.Time,
		Version:               p.Version,
		MedianTime:            p.MedianTime,
		Coinbase:              coinbase,
		Transactions:          txs,
		TotalFees:             totalFee,
		SizeBytes:             sizeBytes + coinbase.SerializedSize(),
		SigOps:                sigOps,
		MagneticAnomalyActive: p.MagneticAnomalyActive,
	}
	return tmpl, nil
}

// buildCoinbase constructs the block's sole coinbase transaction: a
// single null-prevout input whose script is the BIP-34 height push
// followed by coinbaseFlags, and a single output paying
// GetReward(height, halvingInterval)+fees to rewardScript.
func buildCoinbase(height uint64, fees consensus.Amount, rewardScript, flags []byte, halvingInterval uint64) *consensus.Tx {
	sigScript := append(heightPush(height), flags...)
	reward := consensus.GetReward(height, halvingInterval) + fees
	tx := &consensus.Tx{
		Version: 1,
		Inputs: []consensus.TxIn{{
			PrevOut:  consensus.NullOutPoint,
			Script:   sigScript,
			Sequence: 0xffffffff,
		}},
		Outputs: []consensus.TxOut{{Value: reward, Script: rewardScript}},
	}
	tx.Freeze()
	return tx
}

// heightPush encodes height as a minimally-sized script push (BIP-34):
// a length-prefixed little-endian byte string, matching the ScriptNum
// minimal encoding rule for non-negative integers.
func heightPush(height uint64) []byte {
	var b []byte
	n := height
	for n > 0 {
		b = append(b, byte(n&0xff))
		n >>= 8
	}
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		b = append(b, 0x00)
	}
	if len(b) == 0 {
		return []byte{0x00} // OP_0
	}
	return append([]byte{byte(len(b))}, b...)
}

type dependencyGraph struct {
	byID      map[consensus.Hash]*Entry
	children  map[consensus.Hash][]consensus.Hash
	remaining map[consensus.Hash]int
	descRate  map[consensus.Hash]float64
	roots     []consensus.Hash
}

func buildGraph(mp *Mempool) *dependencyGraph {
	g := &dependencyGraph{
		byID:      make(map[consensus.Hash]*Entry),
		children:  make(map[consensus.Hash][]consensus.Hash),
		remaining: make(map[consensus.Hash]int),
		descRate:  make(map[consensus.Hash]float64),
	}
	for _, e := range mp.Entries() {
		id := e.Tx.Hash()
		g.byID[id] = e
		g.remaining[id] = len(e.Parents)
		for parent := range e.Parents {
			g.children[parent] = append(g.children[parent], id)
		}
	}
	for id, n := range g.remaining {
		if n == 0 {
			g.roots = append(g.roots, id)
		}
	}
	for id := range g.byID {
		computeDescRate(id, g, make(map[consensus.Hash]bool))
	}
	return g
}

func computeDescRate(id consensus.Hash, g *dependencyGraph, visiting map[consensus.Hash]bool) float64 {
	if r, ok := g.descRate[id]; ok {
		return r
	}
	if visiting[id] {
		// Cyclic mempool graphs are not constructible from valid
		// transactions; treat as a self-rate floor rather than loop.
		return g.byID[id].Rate()
	}
	visiting[id] = true
	rate := g.byID[id].Rate()
	for _, child := range g.children[id] {
		if cr := computeDescRate(child, g, visiting); cr > rate {
			rate = cr
		}
	}
	g.descRate[id] = rate
	return rate
}

// sortCanonical sorts txs ascending by txid in big-endian byte order
// (spec.md §4.F, §8 "Canonical order"): the reversed internal hash.
func sortCanonical(txs []*consensus.Tx) {
	key := func(tx *consensus.Tx) []byte {
		h := tx.Hash()
		out := make([]byte, 32)
		for i := 0; i < 32; i++ {
			out[i] = h[31-i]
		}
		return out
	}
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0 && bytes.Compare(key(txs[j-1]), key(txs[j])) > 0; j-- {
			txs[j-1], txs[j] = txs[j], txs[j-1]
		}
	}
}

// Preverify runs the template's assembled block through the chain
// body-validation pipeline (spec.md §4.F "preverify"): assembler bugs
// must abort here rather than produce an invalid block. verifyBody is
// supplied by the caller (typically a wrapper around
// chain.ValidateBody) so that mining does not import chain.
func Preverify(t *Template, verifyBody func(*consensus.Block) error) error {
	if err := verifyBody(t.Block()); err != nil {
		return fmt.Errorf("mining: preverify: %w", err)
	}
	return nil
}
