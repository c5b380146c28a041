// Package mining implements block assembly (spec.md §4.F): turning a
// pinned mempool snapshot into a BlockTemplate whose transactions are
// dependency-ordered, fit the size/sigop budget, and are ready for a
// miner to solve.
//
// No library in the retrieved pack implements a priority/fee-rate
// mempool scheduler (the teacher's miner.go takes a preformed tx
// list), so the dependency heap here is stdlib container/heap — the
// same mechanism btcd-descended full nodes use for this exact
// problem; see DESIGN.md.
package mining
