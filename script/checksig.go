package script

// checksig.go implements OP_CHECKSIG family dispatch against the
// SignatureChecker abstraction; the actual sighash/ECDSA math lives in
// sighash.go so the interpreter stays independent of transaction
// shape, mirroring the teacher's split between consensus/sighash.go
// and its pure validation helpers.

func isCompressedOrUncompressedPubKey(pk []byte) bool {
	switch len(pk) {
	case 33:
		return pk[0] == 0x02 || pk[0] == 0x03
	case 65:
		return pk[0] == 0x04
	default:
		return false
	}
}

func isCompressedPubKey(pk []byte) bool {
	return len(pk) == 33 && (pk[0] == 0x02 || pk[0] == 0x03)
}

func (e *engine) checkPubKeyEncoding(pk []byte) *Error {
	if e.flags.Has(VerifyStrictEnc) && !isCompressedOrUncompressedPubKey(pk) {
		return newErr(ErrPubKeyType, "invalid public key encoding")
	}
	if e.flags.Has(VerifyCompressedPubKeyType) && !isCompressedPubKey(pk) {
		return newErr(ErrPubKeyType, "public key must be compressed")
	}
	return nil
}

// checkSigEncoding enforces DER-strictness and the FORKID hashtype bit
// when the corresponding flags are set; an empty signature is always
// permitted (it represents an intentionally failed multisig slot).
func (e *engine) checkSigEncoding(sig []byte) *Error {
	if len(sig) == 0 {
		return nil
	}
	if e.flags.Has(VerifyDERSig) || e.flags.Has(VerifyLowS) || e.flags.Has(VerifyStrictEnc) {
		if err := checkDEREncoding(sig[:len(sig)-1]); err != nil {
			return err
		}
	}
	if e.flags.Has(VerifyLowS) {
		if !isLowS(sig[:len(sig)-1]) {
			return newErr(ErrSigHighS, "signature S value is high")
		}
	}
	hashType := sig[len(sig)-1]
	if e.flags.Has(VerifySigHashForkID) {
		if hashType&sigHashForkID == 0 {
			return newErr(ErrSigDER, "signature missing SIGHASH_FORKID")
		}
	} else if e.flags.Has(VerifyStrictEnc) {
		if hashType&sigHashForkID != 0 {
			return newErr(ErrSigDER, "unexpected SIGHASH_FORKID bit")
		}
	}
	if e.flags.Has(VerifyStrictEnc) {
		base := hashType &^ (sigHashAnyoneCanPay | sigHashForkID)
		if base != sigHashAll && base != sigHashNone && base != sigHashSingle {
			return newErr(ErrSigDER, "invalid hash type")
		}
	}
	return nil
}

func (e *engine) nullFail(ok bool, rawSig []byte) *Error {
	if !ok && e.flags.Has(VerifyNullFail) && len(rawSig) != 0 {
		return newErr(ErrNullFail, "signature failed verification but was not null")
	}
	return nil
}

func (e *engine) opCheckSig(verify bool) *Error {
	pk, err := e.st.pop()
	if err != nil {
		return err
	}
	sig, err := e.st.pop()
	if err != nil {
		return err
	}
	if err := e.checkSigEncoding(sig); err != nil {
		return err
	}
	if err := e.checkPubKeyEncoding(pk); err != nil {
		return err
	}
	var ok bool
	if len(sig) > 0 {
		var serr *Error
		ok, serr = e.checker.CheckSig(sig, pk, nil, e.flags)
		if serr != nil {
			return serr
		}
	}
	if err := e.nullFail(ok, sig); err != nil {
		return err
	}
	if verify {
		if !ok {
			return newErr(ErrCheckSigVerify, "OP_CHECKSIGVERIFY failed")
		}
		return nil
	}
	e.st.push(fromBool(ok))
	return nil
}

func (e *engine) opCheckDataSig(verify bool) *Error {
	pk, err := e.st.pop()
	if err != nil {
		return err
	}
	msg, err := e.st.pop()
	if err != nil {
		return err
	}
	sig, err := e.st.pop()
	if err != nil {
		return err
	}
	if len(sig) > 0 {
		if e.flags.Has(VerifyDERSig) || e.flags.Has(VerifyLowS) || e.flags.Has(VerifyStrictEnc) {
			if err := checkDEREncoding(sig); err != nil {
				return err
			}
		}
		if e.flags.Has(VerifyLowS) && !isLowS(sig) {
			return newErr(ErrSigHighS, "signature S value is high")
		}
	}
	if err := e.checkPubKeyEncoding(pk); err != nil {
		return err
	}
	var ok bool
	if len(sig) > 0 {
		var derr *Error
		ok, derr = e.checker.CheckDataSig(sig, msg, pk, e.flags)
		if derr != nil {
			return derr
		}
	}
	if err := e.nullFail(ok, sig); err != nil {
		return err
	}
	if verify {
		if !ok {
			return newErr(ErrCheckDataSigVerify, "OP_CHECKDATASIGVERIFY failed")
		}
		return nil
	}
	e.st.push(fromBool(ok))
	return nil
}

func (e *engine) opCheckMultiSig(verify bool) *Error {
	nKeys, err := e.popNum(4)
	if err != nil {
		return err
	}
	if nKeys < 0 || nKeys > MaxMultisigPubkeys {
		return newErr(ErrPubKeyCount, "pubkey count out of range")
	}
	keys := make([][]byte, nKeys)
	for i := int(nKeys) - 1; i >= 0; i-- {
		keys[i], err = e.st.pop()
		if err != nil {
			return err
		}
	}
	nSigs, err := e.popNum(4)
	if err != nil {
		return err
	}
	if nSigs < 0 || nSigs > nKeys {
		return newErr(ErrSigCount, "signature count out of range")
	}
	sigs := make([][]byte, nSigs)
	for i := int(nSigs) - 1; i >= 0; i-- {
		sigs[i], err = e.st.pop()
		if err != nil {
			return err
		}
	}
	// Legacy off-by-one: CHECKMULTISIG consumes one extra stack item.
	dummy, err := e.st.pop()
	if err != nil {
		return err
	}
	if e.flags.Has(VerifyNullFail) && len(dummy) != 0 {
		return newErr(ErrNullFail, "CHECKMULTISIG dummy element must be empty")
	}

	ok := true
	ki := 0
	for si := 0; si < len(sigs) && ok; si++ {
		sig := sigs[si]
		if err := e.checkSigEncoding(sig); err != nil {
			return err
		}
		matched := false
		for ; ki < len(keys); ki++ {
			if err := e.checkPubKeyEncoding(keys[ki]); err != nil {
				return err
			}
			if len(sig) == 0 {
				continue
			}
			res, serr := e.checker.CheckSig(sig, keys[ki], nil, e.flags)
			if serr != nil {
				return serr
			}
			if res {
				matched = true
				ki++
				break
			}
		}
		if !matched {
			ok = false
		}
	}
	if !ok {
		for _, sig := range sigs {
			if len(sig) != 0 && e.flags.Has(VerifyNullFail) {
				return newErr(ErrNullFail, "CHECKMULTISIG failed with non-null signature")
			}
		}
	}
	if verify {
		if !ok {
			return newErr(ErrCheckSigVerify, "OP_CHECKMULTISIGVERIFY failed")
		}
		return nil
	}
	e.st.push(fromBool(ok))
	return nil
}
