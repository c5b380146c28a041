// Package chain implements the header/block state machine: the
// height-indexed entry skiplist, header validation, difficulty
// retargeting (legacy and cash DAA), magnetic-anomaly activation,
// reorg, and the UTXO view (spec.md §4.E).
//
// Grounded on the teacher repo's (2tbmz9y2xt-lang-rubin-protocol)
// consensus/pow.go (clamp arithmetic, MTP), consensus/fork_choice.go
// (work-from-target), consensus/featurebits.go (deployment state
// machine shape), and node/store/reorg.go (fork-point walk).
package chain
