package address

import "errors"

var (
	errUnsupportedHashSize  = errors.New("address: unsupported hash size")
	errUnknownCashAddrType  = errors.New("address: unknown cashaddr type bits")
	errUnknownBase58Version = errors.New("address: unknown base58 version byte")
)

// Kind is the semantic address type, independent of its string
// encoding (spec.md §4.B).
type Kind int

const (
	KindPubKeyHash Kind = iota
	KindScriptHash
)

// Address is a decoded on-chain address: a 20-byte Hash160 plus the
// kind of script it pays to.
type Address struct {
	Kind Kind
	Hash [20]byte
}

// DefaultHRP is the mainnet cashaddr human-readable prefix.
const DefaultHRP = "bitcoincash"

// Parse decodes an untyped address string. Per spec.md §4.B: treat it
// as Base58 iff mixed case; otherwise try cashaddr, falling back to
// Base58Check if that fails.
func Parse(s string, hrp string) (Address, error) {
	if hasMixedCase(s) {
		return decodeBase58Address(s)
	}
	if a, err := decodeCashAddrAddress(s, hrp); err == nil {
		return a, nil
	}
	return decodeBase58Address(s)
}

func decodeCashAddrAddress(s, hrp string) (Address, error) {
	kind, hash, err := DecodeCashAddr(s, hrp)
	if err != nil {
		return Address{}, err
	}
	if len(hash) != 20 {
		return Address{}, errUnsupportedHashSize
	}
	a := Address{}
	copy(a.Hash[:], hash)
	switch kind {
	case TypeP2KH:
		a.Kind = KindPubKeyHash
	case TypeP2SH:
		a.Kind = KindScriptHash
	default:
		return Address{}, errUnknownCashAddrType
	}
	return a, nil
}

func decodeBase58Address(s string) (Address, error) {
	version, payload, err := DecodeBase58Check(s)
	if err != nil {
		return Address{}, err
	}
	if len(payload) != 20 {
		return Address{}, errUnsupportedHashSize
	}
	a := Address{}
	copy(a.Hash[:], payload)
	switch version {
	case VersionPubKeyHash:
		a.Kind = KindPubKeyHash
	case VersionScriptHash:
		a.Kind = KindScriptHash
	default:
		return Address{}, errUnknownBase58Version
	}
	return a, nil
}

// LockingScript returns the standard output script paying a, the
// form the mining assembler and tests use to fund and spend
// addresses: OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG for
// KindPubKeyHash, OP_HASH160 <hash> OP_EQUAL for KindScriptHash.
func (a Address) LockingScript() []byte {
	switch a.Kind {
	case KindScriptHash:
		out := make([]byte, 0, 23)
		out = append(out, 0xa9, 0x14)
		out = append(out, a.Hash[:]...)
		return append(out, 0x87)
	default:
		out := make([]byte, 0, 25)
		out = append(out, 0x76, 0xa9, 0x14)
		out = append(out, a.Hash[:]...)
		return append(out, 0x88, 0xac)
	}
}

func hasMixedCase(s string) bool {
	hasUpper, hasLower := false, false
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
		}
		if c >= 'a' && c <= 'z' {
			hasLower = true
		}
	}
	return hasUpper && hasLower
}

// Encode renders an address back to its string form: cashaddr when
// hrp is non-empty, Base58Check otherwise.
func (a Address) Encode(hrp string) (string, error) {
	if hrp != "" {
		var kind AddrType
		if a.Kind == KindScriptHash {
			kind = TypeP2SH
		}
		return EncodeCashAddr(hrp, kind, a.Hash[:])
	}
	version := VersionPubKeyHash
	if a.Kind == KindScriptHash {
		version = VersionScriptHash
	}
	return EncodeBase58Check(version, a.Hash[:]), nil
}
