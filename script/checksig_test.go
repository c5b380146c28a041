package script

import (
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

func TestOpCheckDataSigVector(t *testing.T) {
	// spec.md §8 scenario 6: private key 0000...0001, empty message.
	key := make([]byte, 32)
	key[31] = 1
	priv := secp256k1.PrivKeyFromBytes(key)
	msg := []byte{}
	digest := sha256.Sum256(msg)
	sig := ecdsa.Sign(priv, digest[:])
	der := sig.Serialize()
	pub := priv.PubKey().SerializeCompressed()

	e := newEngine(VerifyStrictEnc|VerifyDERSig|VerifyLowS, nullChecker{})
	checker := checkDataSigOK{sig: der, msg: msg, pub: pub}
	e2 := newEngine(VerifyStrictEnc|VerifyDERSig|VerifyLowS, checker)
	_ = e
	e2.st.push(der)
	e2.st.push(msg)
	e2.st.push(pub)
	if err := e2.opCheckDataSig(false); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	top, _ := e2.st.peekTop()
	if !asBool(top) {
		t.Fatalf("expected successful verification")
	}
}

type checkDataSigOK struct {
	sig, msg, pub []byte
}

func (c checkDataSigOK) CheckSig(sig, pubKey, script []byte, flags VerifyFlags) (bool, *Error) {
	return false, nil
}

func (c checkDataSigOK) CheckDataSig(sig, msg, pubKey []byte, flags VerifyFlags) (bool, *Error) {
	pk, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false, nil
	}
	der, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, nil
	}
	digest := sha256.Sum256(msg)
	return der.Verify(digest[:], pk), nil
}

func (c checkDataSigOK) CheckLockTime(n ScriptNum) bool { return true }
func (c checkDataSigOK) CheckSequence(n ScriptNum) bool { return true }

func TestCheckSigEncodingRejectsHybridKey(t *testing.T) {
	e := newEngine(VerifyStrictEnc, nullChecker{})
	hybrid := make([]byte, 65)
	hybrid[0] = 0x06
	if err := e.checkPubKeyEncoding(hybrid); err == nil || err.Code != ErrPubKeyType {
		t.Fatalf("expected pubkey type rejection, got %v", err)
	}
}

// splitDERSignature extracts the raw R and S integers out of a DER
// signature with no trailing hashtype byte.
func splitDERSignature(der []byte) (r, s *big.Int) {
	lenR := int(der[3])
	lenS := int(der[5+lenR])
	r = new(big.Int).SetBytes(der[4 : 4+lenR])
	s = new(big.Int).SetBytes(der[6+lenR : 6+lenR+lenS])
	return r, s
}

func encodeDERInt(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 {
		b = []byte{0}
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return b
}

func encodeDERSignature(r, s *big.Int) []byte {
	rb, sb := encodeDERInt(r), encodeDERInt(s)
	body := append([]byte{0x02, byte(len(rb))}, rb...)
	body = append(body, 0x02, byte(len(sb)))
	body = append(body, sb...)
	return append([]byte{0x30, byte(len(body))}, body...)
}

func TestCheckSigEncodingRejectsHighS(t *testing.T) {
	key := make([]byte, 32)
	key[31] = 1
	priv := secp256k1.PrivKeyFromBytes(key)
	digest := sha256.Sum256([]byte("test"))
	sig := ecdsa.Sign(priv, digest[:])
	der := sig.Serialize()

	e := newEngine(VerifyLowS|VerifyDERSig, nullChecker{})
	full := append(append([]byte{}, der...), sigHashAll)
	if err := e.checkSigEncoding(full); err != nil {
		t.Fatalf("unexpected rejection of canonical low-S signature: %v", err)
	}

	// Re-encode with s' = N - s: same curve point, still a valid DER
	// signature, but on the high side of the curve order.
	r, s := splitDERSignature(der)
	n := secp256k1.S256().N
	highS := new(big.Int).Sub(n, s)
	highDER := encodeDERSignature(r, highS)
	highFull := append(append([]byte{}, highDER...), sigHashAll)
	err := e.checkSigEncoding(highFull)
	if err == nil || err.Code != ErrSigHighS {
		t.Fatalf("expected ErrSigHighS, got %v", err)
	}
}
