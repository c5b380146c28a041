package script

import (
	"crypto/sha256"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/rubin-dev/cashcore/consensus"
)

// Signature hash type bits (spec.md §4.C, Glossary "sighash").
const (
	sigHashAll          byte = 0x01
	sigHashNone         byte = 0x02
	sigHashSingle       byte = 0x03
	sigHashAnyoneCanPay byte = 0x80
	sigHashForkID       byte = 0x40
)

// ForkID is the 24-bit value mixed into the FORKID hash type per
// spec.md §4.C's v1 sighash definition.
const ForkID uint32 = 0x000000

func doubleSHA256(b []byte) consensus.Hash {
	return consensus.DoubleSHA256(b)
}

// removeOpcode strips every occurrence of target from a legacy
// subscript; the v0 sighash calls it with OP_CODESEPARATOR (spec.md
// §4.C). Pushes of the signature bytes are left in place.
func removeOpcode(script []byte, target Opcode) []byte {
	ops, err := parseScript(script)
	if err != nil {
		return script
	}
	var out []byte
	for _, po := range ops {
		if po.op == target {
			continue
		}
		out = append(out, encodeOp(po)...)
	}
	return out
}

func encodeOp(po parsedOp) []byte {
	if po.data == nil && (po.op < 1 || po.op > OP_PUSHDATA4) {
		return []byte{byte(po.op)}
	}
	var out []byte
	switch {
	case po.op <= 0x4b:
		out = append(out, byte(len(po.data)))
	case po.op == OP_PUSHDATA1:
		out = append(out, byte(po.op), byte(len(po.data)))
	case po.op == OP_PUSHDATA2:
		n := len(po.data)
		out = append(out, byte(po.op), byte(n), byte(n>>8))
	case po.op == OP_PUSHDATA4:
		n := len(po.data)
		out = append(out, byte(po.op), byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	out = append(out, po.data...)
	return out
}

// SigHashInputs is the transaction context a sighash computation needs:
// the full input set (for hashPrevouts/hashSequence caching), the
// output set, the index and subscript of the input being signed, and
// that input's previous output value (required by the v1 FORKID
// preimage; spec.md §4.C).
type SigHashInputs struct {
	Tx          *consensus.Tx
	InputIndex  int
	Subscript   []byte
	InputAmount consensus.Amount
}

// ComputeSigHash dispatches between the legacy v0 quadratic algorithm
// and the v1 FORKID linear algorithm based on the SIGHASH_FORKID bit
// (spec.md §4.C).
func ComputeSigHash(in SigHashInputs, hashType byte, flags VerifyFlags) consensus.Hash {
	if flags.Has(VerifySigHashForkID) && hashType&sigHashForkID != 0 {
		return computeSigHashV1(in, hashType, flags)
	}
	return computeSigHashV0(in, hashType)
}

func computeSigHashV0(in SigHashInputs, hashType byte) consensus.Hash {
	tx := in.Tx
	base := hashType &^ (sigHashAnyoneCanPay)
	subscript := removeOpcode(in.Subscript, OP_CODESEPARATOR)

	var inputs []consensus.TxIn
	if hashType&sigHashAnyoneCanPay != 0 {
		inputs = []consensus.TxIn{{
			PrevOut:  tx.Inputs[in.InputIndex].PrevOut,
			Script:   subscript,
			Sequence: tx.Inputs[in.InputIndex].Sequence,
		}}
	} else {
		inputs = make([]consensus.TxIn, len(tx.Inputs))
		for i, txin := range tx.Inputs {
			script := []byte{}
			if i == in.InputIndex {
				script = subscript
			}
			seq := txin.Sequence
			if (base == sigHashSingle || base == sigHashNone) && i != in.InputIndex {
				seq = 0
			}
			inputs[i] = consensus.TxIn{PrevOut: txin.PrevOut, Script: script, Sequence: seq}
		}
	}

	var outputs []consensus.TxOut
	switch base {
	case sigHashNone:
		outputs = nil
	case sigHashSingle:
		if in.InputIndex >= len(tx.Outputs) {
			// Matches the historical "SignatureHash bug": return the
			// value 1 encoded as a hash when the output index is missing.
			var h consensus.Hash
			h[0] = 1
			return h
		}
		outputs = make([]consensus.TxOut, in.InputIndex+1)
		for i := range outputs {
			if i == in.InputIndex {
				outputs[i] = tx.Outputs[i]
			} else {
				outputs[i] = consensus.TxOut{Value: -1}
			}
		}
	default:
		outputs = tx.Outputs
	}

	shallow := &consensus.Tx{
		Version:  tx.Version,
		Inputs:   inputs,
		Outputs:  outputs,
		LockTime: tx.LockTime,
	}
	preimage := append(shallow.Bytes(), byte(hashType), 0, 0, 0)
	return doubleSHA256(preimage)
}

// computeSigHashV1 implements the BIP-143-style linear preimage used
// once SIGHASH_FORKID is mandatory (spec.md §4.C): hashPrevouts,
// hashSequence and hashOutputs are each a single double-SHA-256 over
// the concatenation of the relevant fields, with the signed input's
// previous-output value folded directly into the preimage so no
// external UTXO lookup is needed to verify the signature later.
func computeSigHashV1(in SigHashInputs, hashType byte, flags VerifyFlags) consensus.Hash {
	tx := in.Tx
	base := hashType &^ (sigHashAnyoneCanPay | sigHashForkID)

	var hashPrevouts, hashSequence, hashOutputs consensus.Hash
	if hashType&sigHashAnyoneCanPay == 0 {
		var buf []byte
		for _, txin := range tx.Inputs {
			buf = append(buf, txin.PrevOut.PrevHash[:]...)
			buf = append(buf, le32(txin.PrevOut.Index)...)
		}
		hashPrevouts = doubleSHA256(buf)
	}
	if hashType&sigHashAnyoneCanPay == 0 && base != sigHashSingle && base != sigHashNone {
		var buf []byte
		for _, txin := range tx.Inputs {
			buf = append(buf, le32(txin.Sequence)...)
		}
		hashSequence = doubleSHA256(buf)
	}
	if base != sigHashSingle && base != sigHashNone {
		var buf []byte
		for _, out := range tx.Outputs {
			buf = append(buf, le64(uint64(out.Value))...)
			buf = append(buf, consensus.WriteVarInt(nil, uint64(len(out.Script)))...)
			buf = append(buf, out.Script...)
		}
		hashOutputs = doubleSHA256(buf)
	} else if base == sigHashSingle && in.InputIndex < len(tx.Outputs) {
		out := tx.Outputs[in.InputIndex]
		var buf []byte
		buf = append(buf, le64(uint64(out.Value))...)
		buf = append(buf, consensus.WriteVarInt(nil, uint64(len(out.Script)))...)
		buf = append(buf, out.Script...)
		hashOutputs = doubleSHA256(buf)
	}

	txin := tx.Inputs[in.InputIndex]
	var preimage []byte
	preimage = append(preimage, le32(uint32(tx.Version))...)
	preimage = append(preimage, hashPrevouts[:]...)
	preimage = append(preimage, hashSequence[:]...)
	preimage = append(preimage, txin.PrevOut.PrevHash[:]...)
	preimage = append(preimage, le32(txin.PrevOut.Index)...)
	preimage = append(preimage, consensus.WriteVarInt(nil, uint64(len(in.Subscript)))...)
	preimage = append(preimage, in.Subscript...)
	preimage = append(preimage, le64(uint64(in.InputAmount))...)
	preimage = append(preimage, le32(txin.Sequence)...)
	preimage = append(preimage, hashOutputs[:]...)
	preimage = append(preimage, le32(tx.LockTime)...)
	preimage = append(preimage, le32(sigHashType(hashType, flags))...)

	return doubleSHA256(preimage)
}

// sigHashType packs the hashtype byte and the 24-bit fork value into
// the single 4-byte little-endian field the v1 preimage signs over
// (spec.md §4.C: "Append the 4-byte hashtype"). Under replay
// protection the fork value is XORed with 0xDEAD and OR'd with
// 0xFF0000 *before* it is folded in here, so the manipulated fork
// value participates in the hash itself rather than the digest
// produced from it — this isolates signatures from a pre-fork chain.
func sigHashType(hashType byte, flags VerifyFlags) uint32 {
	forkValue := ForkID
	if flags.Has(VerifyReplayProtection) {
		forkValue = (ForkID ^ 0x0000dead) | 0x00ff0000
	}
	return uint32(hashType) | forkValue<<8
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

// checkDEREncoding enforces strict DER structure on a signature with
// the trailing hash-type byte already removed.
func checkDEREncoding(sig []byte) *Error {
	if len(sig) < 9 || len(sig) > 72 {
		return newErr(ErrSigDER, "signature length out of DER range")
	}
	if sig[0] != 0x30 || int(sig[1]) != len(sig)-2 {
		return newErr(ErrSigDER, "malformed DER sequence")
	}
	if sig[2] != 0x02 {
		return newErr(ErrSigDER, "malformed DER integer marker (R)")
	}
	lenR := int(sig[3])
	if 4+lenR >= len(sig) {
		return newErr(ErrSigDER, "malformed DER R length")
	}
	if sig[4+lenR] != 0x02 {
		return newErr(ErrSigDER, "malformed DER integer marker (S)")
	}
	lenS := int(sig[5+lenR])
	if 6+lenR+lenS != len(sig) {
		return newErr(ErrSigDER, "malformed DER S length")
	}
	return nil
}

// isLowS reports whether the DER signature's S value is at most
// half the secp256k1 curve order, as BIP-146/cash LOW_S requires. sig
// must already be DER-well-formed (checkDEREncoding is always called
// first by callers).
func isLowS(sig []byte) bool {
	if len(sig) < 9 {
		return false
	}
	lenR := int(sig[3])
	if 5+lenR >= len(sig) {
		return false
	}
	lenS := int(sig[5+lenR])
	start := 6 + lenR
	if start+lenS > len(sig) {
		return false
	}
	s := new(big.Int).SetBytes(sig[start : start+lenS])
	return s.Cmp(halfOrder) <= 0
}

var halfOrder = func() *big.Int {
	n := secp256k1.S256().N
	return new(big.Int).Rsh(n, 1)
}()

// TxSigChecker implements SignatureChecker against a concrete
// transaction input (spec.md §4.C), the transaction-aware
// counterpart to the pure engine in engine.go.
type TxSigChecker struct {
	Tx          *consensus.Tx
	InputIndex  int
	InputAmount consensus.Amount
	Flags       VerifyFlags
	Height      uint64
	BlockTime   uint64
}

func (c *TxSigChecker) CheckSig(sig, pubKey, subscript []byte, flags VerifyFlags) (bool, *Error) {
	if len(sig) < 1 {
		return false, nil
	}
	hashType := sig[len(sig)-1]
	rawSig := sig[:len(sig)-1]

	pk, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false, nil
	}
	der, err := ecdsa.ParseDERSignature(rawSig)
	if err != nil {
		return false, nil
	}
	script := subscript
	if script == nil {
		script = c.Tx.Inputs[c.InputIndex].Script
	}
	h := ComputeSigHash(SigHashInputs{
		Tx:          c.Tx,
		InputIndex:  c.InputIndex,
		Subscript:   script,
		InputAmount: c.InputAmount,
	}, hashType, flags)
	return der.Verify(h[:], pk), nil
}

func (c *TxSigChecker) CheckDataSig(sig, msg, pubKey []byte, flags VerifyFlags) (bool, *Error) {
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

func (c *TxSigChecker) CheckLockTime(n ScriptNum) bool {
	if n < 0 {
		return false
	}
	in := c.Tx.Inputs[c.InputIndex]
	if in.Sequence == 0xffffffff {
		return false
	}
	const lockTimeThreshold = 500000000
	if (uint64(c.Tx.LockTime) < lockTimeThreshold) != (int64(n) < lockTimeThreshold) {
		return false
	}
	return int64(n) <= int64(c.Tx.LockTime)
}

func (c *TxSigChecker) CheckSequence(n ScriptNum) bool {
	in := c.Tx.Inputs[c.InputIndex]
	if c.Tx.Version < 2 {
		return false
	}
	if in.Sequence&(1<<31) != 0 {
		return false
	}
	const sequenceLockTimeMask = 0x0000ffff
	const sequenceLockTimeTypeFlag = 1 << 22
	want := uint32(n) & (sequenceLockTimeMask | sequenceLockTimeTypeFlag)
	have := in.Sequence & (sequenceLockTimeMask | sequenceLockTimeTypeFlag)
	if (want & sequenceLockTimeTypeFlag) != (have & sequenceLockTimeTypeFlag) {
		return false
	}
	return (want &^ sequenceLockTimeTypeFlag) <= (have &^ sequenceLockTimeTypeFlag)
}
