// Package consensus implements the primitives, wire encoding, and
// context-free validation rules shared by every other consensus-core
// package: hashes, amounts, transactions, headers, blocks, the compact
// target encoding, and the block reward schedule.
package consensus
