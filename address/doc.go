// Package address implements the two output-address encodings used
// by the chain: Base58Check (legacy) and cashaddr (spec.md §4.B).
package address
