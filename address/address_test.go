package address

import "testing"

func hexHash(s string) []byte {
	b := make([]byte, 20)
	for i := 0; i < 20; i++ {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		b[i] = hi<<4 | lo
	}
	return b
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

func TestP2PKHRoundTrip(t *testing.T) {
	hash := hexHash("e34cce70c86373273efcc54ce7d2a491bb4a0e84")
	got58 := EncodeBase58Check(VersionPubKeyHash, hash)
	if got58 != "1MirQ9bwyQcGVJPwKUgapu5ouK2E2Ey4gX" {
		t.Fatalf("base58: got %s", got58)
	}
	gotCash, err := EncodeCashAddr(DefaultHRP, TypeP2KH, hash)
	if err != nil {
		t.Fatalf("encode cashaddr: %v", err)
	}
	if gotCash != "bitcoincash:qr35ennsep3hxfe7lnz5ee7j5jgmkjswssk2puzvgv" {
		t.Fatalf("cashaddr: got %s", gotCash)
	}
}

func TestP2SHRoundTrip(t *testing.T) {
	hash := hexHash("f815b036d9bbbce5e9f2a00abd1bf3dc91e95510")
	got58 := EncodeBase58Check(VersionScriptHash, hash)
	if got58 != "3QJmV3qfvL9SuYo34YihAf3sRCW3qSinyC" {
		t.Fatalf("base58: got %s", got58)
	}
	gotCash, err := EncodeCashAddr(DefaultHRP, TypeP2SH, hash)
	if err != nil {
		t.Fatalf("encode cashaddr: %v", err)
	}
	if gotCash != "bitcoincash:pruptvpkmxamee0f72sq40gm70wfr624zq0yyxtycm" {
		t.Fatalf("cashaddr: got %s", gotCash)
	}
}

func TestCashAddrMixedCaseRejected(t *testing.T) {
	s := "bitcoincash:qR35ennsep3hxfe7lnz5ee7j5jgmkjswssk2puzvgv"
	if _, _, err := DecodeCashAddr(s, DefaultHRP); err != ErrCashAddrCasing {
		t.Fatalf("expected casing rejection, got %v", err)
	}
}

func TestCashAddrNonZeroPaddingRejected(t *testing.T) {
	s := "pruptvpkmxamee0f72sq40gm70wfr624zpu8adj8t6"
	if _, _, err := DecodeCashAddr(s, DefaultHRP); err == nil {
		t.Fatalf("expected padding rejection")
	}
}

func TestParseMixedCaseGoesToBase58(t *testing.T) {
	// A valid Base58 address happens to contain both cases; Parse must
	// not attempt cashaddr decoding on it.
	a, err := Parse("1MirQ9bwyQcGVJPwKUgapu5ouK2E2Ey4gX", DefaultHRP)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Kind != KindPubKeyHash {
		t.Fatalf("expected pubkey hash kind")
	}
}
