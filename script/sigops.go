package script

import "github.com/rubin-dev/cashcore/consensus"

// CountSigOps implements the legacy (non-accurate) sigop count: every
// CHECKSIG/CHECKSIGVERIFY counts as one, every CHECKMULTISIG(VERIFY)
// counts as MaxMultisigPubkeys unless immediately preceded by a
// small-int push, in which case that pushed value is used (spec.md
// §4.D, block sigop budget).
func CountSigOps(raw []byte) int {
	ops, err := parseScript(raw)
	if err != nil {
		return 0
	}
	count := 0
	var lastOp Opcode = OP_INVALIDOPCODE
	for _, po := range ops {
		switch po.op {
		case OP_CHECKSIG, OP_CHECKSIGVERIFY:
			count++
		case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
			if lastOp != OP_INVALIDOPCODE && isSmallInt(lastOp) {
				count += int(smallIntValue(lastOp))
			} else {
				count += consensus.MaxMultisigPubkeys
			}
		}
		lastOp = po.op
	}
	return count
}

// CountSigOpsAccurate reports the P2SH-accurate sigop contribution of
// one input: zero unless the output it spends (scriptPubKey) is
// itself a P2SH script, in which case the scriptSig's final push (the
// serialized redeem script) is scanned with CountSigOps in place of
// P2SH's flat legacy estimate of zero. Additive: callers also run the
// ordinary legacy CountSigOps pass over every scriptSig/scriptPubKey
// in the block and add this on top for P2SH-spent inputs, matching
// GetP2SHSigOpCount's role alongside GetLegacySigOpCount.
func CountSigOpsAccurate(scriptSig, scriptPubKey []byte) int {
	if !isPayToScriptHash(scriptPubKey) {
		return 0
	}
	ops, err := parseScript(scriptSig)
	if err != nil || len(ops) == 0 {
		return 0
	}
	last := ops[len(ops)-1]
	if last.data == nil {
		return 0
	}
	return CountSigOps(last.data)
}
