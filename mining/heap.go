package mining

import "container/heap"

// candidate pairs a mempool Entry with its cached descendant rate
// (spec.md §4.F fee-rate phase: "heap ordered by max(entry.rate,
// entry.descRate)").
type candidate struct {
	entry    *Entry
	descRate float64
}

// priorityQueue is a max-heap over candidates, ordered by less. Both
// assembly phases use the same container/heap plumbing with a
// different ordering (spec.md §4.F: priority phase orders by
// coin-age priority, fee-rate phase by max(rate, descRate) with
// priority as the tiebreak).
type priorityQueue struct {
	items []*candidate
	less  func(a, b *candidate) bool
}

func newPriorityQueue(less func(a, b *candidate) bool) *priorityQueue {
	return &priorityQueue{less: less}
}

func (q *priorityQueue) Len() int            { return len(q.items) }
func (q *priorityQueue) Less(i, j int) bool  { return q.less(q.items[i], q.items[j]) }
func (q *priorityQueue) Swap(i, j int)       { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *priorityQueue) Push(x any)          { q.items = append(q.items, x.(*candidate)) }
func (q *priorityQueue) Pop() any {
	n := len(q.items)
	it := q.items[n-1]
	q.items = q.items[:n-1]
	return it
}

func (q *priorityQueue) push(c *candidate) { heap.Push(q, c) }
func (q *priorityQueue) pop() *candidate   { return heap.Pop(q).(*candidate) }
func (q *priorityQueue) peek() *candidate  { return q.items[0] }
func (q *priorityQueue) empty() bool       { return len(q.items) == 0 }

func byPriorityDesc(a, b *candidate) bool {
	return a.entry.Priority > b.entry.Priority
}

func byRateDesc(a, b *candidate) bool {
	ar, br := rateKey(a), rateKey(b)
	if ar != br {
		return ar > br
	}
	return a.entry.Priority > b.entry.Priority
}

func rateKey(c *candidate) float64 {
	r := c.entry.Rate()
	if c.descRate > r {
		return c.descRate
	}
	return r
}
