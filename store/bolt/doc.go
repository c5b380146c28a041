// Package bolt is the reference implementation of chain.Store
// (spec.md §6): a single go.etcd.io/bbolt database holding every
// namespace the chain needs behind the binary key layout spec.md
// names (V, O, R, e, h, H, n, p, b, c, u, v).
//
// Grounded on the teacher's node/store/db.go bbolt bucket set,
// collapsed from five buckets keyed by the teacher's covenant-model
// types into one bucket keyed by the spec's prefix-tagged byte keys,
// since the prefixes themselves are what spec.md §6 specifies as the
// namespace boundary.
package bolt
