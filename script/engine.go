package script

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// SignatureChecker abstracts transaction-context signature and
// locktime checks away from the interpreter core, the way the
// teacher's consensus package separates pure script evaluation from
// transaction-aware verification (consensus/sighash.go).
type SignatureChecker interface {
	CheckSig(sig, pubKey, script []byte, flags VerifyFlags) (bool, *Error)
	CheckDataSig(sig, msg, pubKey []byte, flags VerifyFlags) (bool, *Error)
	CheckLockTime(n ScriptNum) bool
	CheckSequence(n ScriptNum) bool
}

type parsedOp struct {
	op   Opcode
	data []byte
}

// parseScript splits a raw script into opcodes, decoding push-data
// lengths. It never enforces policy limits; Execute does.
func parseScript(s []byte) ([]parsedOp, *Error) {
	var out []parsedOp
	i := 0
	for i < len(s) {
		op := Opcode(s[i])
		i++
		switch {
		case op >= 1 && op <= 0x4b:
			n := int(op)
			if i+n > len(s) {
				return nil, newErr(ErrPushSize, "truncated push data")
			}
			out = append(out, parsedOp{op: op, data: s[i : i+n]})
			i += n
		case op == OP_PUSHDATA1:
			if i+1 > len(s) {
				return nil, newErr(ErrPushSize, "truncated PUSHDATA1 length")
			}
			n := int(s[i])
			i++
			if i+n > len(s) {
				return nil, newErr(ErrPushSize, "truncated PUSHDATA1 data")
			}
			out = append(out, parsedOp{op: op, data: s[i : i+n]})
			i += n
		case op == OP_PUSHDATA2:
			if i+2 > len(s) {
				return nil, newErr(ErrPushSize, "truncated PUSHDATA2 length")
			}
			n := int(s[i]) | int(s[i+1])<<8
			i += 2
			if i+n > len(s) {
				return nil, newErr(ErrPushSize, "truncated PUSHDATA2 data")
			}
			out = append(out, parsedOp{op: op, data: s[i : i+n]})
			i += n
		case op == OP_PUSHDATA4:
			if i+4 > len(s) {
				return nil, newErr(ErrPushSize, "truncated PUSHDATA4 length")
			}
			n := int(s[i]) | int(s[i+1])<<8 | int(s[i+2])<<16 | int(s[i+3])<<24
			i += 4
			if i+n > len(s) {
				return nil, newErr(ErrPushSize, "truncated PUSHDATA4 data")
			}
			out = append(out, parsedOp{op: op, data: s[i : i+n]})
			i += n
		default:
			out = append(out, parsedOp{op: op})
		}
	}
	return out, nil
}

// condFrame tracks one level of IF/NOTIF/ELSE/ENDIF nesting.
type condFrame struct {
	executing bool // branch currently taken, including ancestor state
	taken     bool // true once an executing branch has been seen (for ELSE)
}

// engine is one script evaluation. Execute runs scriptSig and then
// scriptPubKey on a single engine, so both share one operand stack
// and one opcode count; for P2SH a second engine, seeded with a copy
// of the stack scriptSig left behind, runs the redeem script.
type engine struct {
	flags   VerifyFlags
	checker SignatureChecker
	st      stack
	alt     stack
	cond    []condFrame
	opCount int
}

func newEngine(flags VerifyFlags, checker SignatureChecker) *engine {
	return &engine{flags: flags, checker: checker}
}

func (e *engine) executing() bool {
	for _, f := range e.cond {
		if !f.executing {
			return false
		}
	}
	return true
}

// Execute runs scriptSig then scriptPubKey (and, for P2SH, the
// embedded redeem script) against a shared stack, per spec.md §4.C.
func Execute(scriptSig, scriptPubKey []byte, flags VerifyFlags, checker SignatureChecker) *Error {
	if len(scriptSig) > MaxScriptSize || len(scriptPubKey) > MaxScriptSize {
		return newErr(ErrScriptSize, "script exceeds MAX_SCRIPT_SIZE")
	}
	sigOps, err := parseScript(scriptSig)
	if err != nil {
		return err
	}
	if flags.Has(VerifyStrictEnc) {
		for _, po := range sigOps {
			if po.op > OP_16 {
				return newErr(ErrSigPushOnly, "scriptSig is not push-only")
			}
		}
	}

	e := newEngine(flags, checker)
	if err := e.run(sigOps); err != nil {
		return err
	}

	var p2shStack [][]byte
	isP2SH := flags.Has(VerifyP2SH) && isPayToScriptHash(scriptPubKey)
	if isP2SH {
		p2shStack = append(p2shStack, e.st.items...)
	}

	pubKeyOps, err := parseScript(scriptPubKey)
	if err != nil {
		return err
	}
	if err := e.run(pubKeyOps); err != nil {
		return err
	}
	if e.st.depth() == 0 {
		return newErr(ErrEvalFalse, "empty stack after execution")
	}
	top, err := e.st.peekTop()
	if err != nil {
		return err
	}
	if !asBool(top) {
		return newErr(ErrEvalFalse, "top of stack is false")
	}

	if isP2SH {
		if len(p2shStack) == 0 {
			return newErr(ErrInvalidStackOperation, "P2SH with empty scriptSig stack")
		}
		redeem := p2shStack[len(p2shStack)-1]
		redeemOps, err := parseScript(redeem)
		if err != nil {
			return err
		}
		e2 := newEngine(flags, checker)
		e2.st.items = append([][]byte(nil), p2shStack[:len(p2shStack)-1]...)
		if err := e2.run(redeemOps); err != nil {
			return err
		}
		if e2.st.depth() == 0 {
			return newErr(ErrEvalFalse, "empty stack after P2SH execution")
		}
		top2, err := e2.st.peekTop()
		if err != nil {
			return err
		}
		if !asBool(top2) {
			return newErr(ErrEvalFalse, "top of P2SH stack is false")
		}
		e = e2
	}

	if flags.Has(VerifyCleanStack) {
		if !isP2SH && !flags.Has(VerifyP2SH) {
			// CLEANSTACK without P2SH is not meaningful per BIP16/62 ordering;
			// still enforce on the executed engine for simplicity.
		}
		if e.st.depth() != 1 {
			return newErr(ErrCleanStack, "stack not clean after execution")
		}
	}
	return nil
}

func isPayToScriptHash(s []byte) bool {
	return len(s) == 23 && s[0] == byte(OP_HASH160) && s[1] == 0x14 && s[22] == byte(OP_EQUAL)
}

func (e *engine) run(ops []parsedOp) *Error {
	for _, po := range ops {
		if po.op > OP_16 {
			e.opCount++
			if e.opCount > MaxScriptOps {
				return newErr(ErrOpCount, "exceeded MAX_OPS_PER_SCRIPT")
			}
		}
		if disabledOpcodes[po.op] {
			return newErr(ErrDisabledOpcode, "disabled opcode")
		}

		if !e.executing() {
			switch po.op {
			case OP_IF, OP_NOTIF:
				e.cond = append(e.cond, condFrame{executing: false, taken: false})
				continue
			case OP_ELSE:
				if len(e.cond) == 0 {
					return newErr(ErrUnbalancedConditional, "ELSE without IF")
				}
				top := &e.cond[len(e.cond)-1]
				parentExec := true
				if len(e.cond) > 1 {
					parentExec = e.allButTopExecuting()
				}
				top.executing = parentExec && !top.taken
				if parentExec {
					top.taken = true
				}
				continue
			case OP_ENDIF:
				if len(e.cond) == 0 {
					return newErr(ErrUnbalancedConditional, "ENDIF without IF")
				}
				e.cond = e.cond[:len(e.cond)-1]
				continue
			default:
				continue
			}
		}

		if len(po.data) > 0 || (po.op >= 1 && po.op <= OP_PUSHDATA4) {
			if len(po.data) > MaxScriptPush {
				return newErr(ErrPushSize, "push exceeds MAX_SCRIPT_ELEMENT_SIZE")
			}
			e.st.push(po.data)
			if e.st.depth()+e.alt.depth() > MaxScriptStack {
				return newErr(ErrStackSize, "stack exceeds MAX_STACK_SIZE")
			}
			continue
		}

		if err := e.step(po.op); err != nil {
			return err
		}
		if e.st.depth()+e.alt.depth() > MaxScriptStack {
			return newErr(ErrStackSize, "stack exceeds MAX_STACK_SIZE")
		}
	}
	if len(e.cond) != 0 {
		return newErr(ErrUnbalancedConditional, "unterminated conditional")
	}
	return nil
}

func (e *engine) allButTopExecuting() bool {
	for _, f := range e.cond[:len(e.cond)-1] {
		if !f.executing {
			return false
		}
	}
	return true
}

func (e *engine) num(v []byte, maxSize int) (ScriptNum, *Error) {
	return MakeScriptNum(v, e.flags.Has(VerifyMinimalData), maxSize)
}

func (e *engine) step(op Opcode) *Error {
	switch {
	case op == OP_0:
		e.st.push(nil)
		return nil
	case op == OP_1NEGATE:
		e.st.push(ScriptNum(-1).Bytes())
		return nil
	case isSmallInt(op):
		e.st.push(smallIntValue(op).Bytes())
		return nil
	}

	switch op {
	case OP_NOP, OP_RESERVED, OP_VER,
		OP_NOP1, OP_NOP4, OP_NOP5, OP_NOP6, OP_NOP7, OP_NOP8, OP_NOP9, OP_NOP10:
		return nil

	case OP_CHECKLOCKTIMEVERIFY:
		v, err := e.st.peekTop()
		if err != nil {
			return err
		}
		n, nerr := e.num(v, 5)
		if nerr != nil {
			return nerr
		}
		if n < 0 {
			return newErr(ErrNegativeLockTime, "negative locktime")
		}
		if !e.checker.CheckLockTime(n) {
			return newErr(ErrUnsatisfiedLockTime, "unsatisfied CHECKLOCKTIMEVERIFY")
		}
		return nil

	case OP_CHECKSEQUENCEVERIFY:
		v, err := e.st.peekTop()
		if err != nil {
			return err
		}
		n, nerr := e.num(v, 5)
		if nerr != nil {
			return nerr
		}
		if n < 0 {
			return newErr(ErrNegativeLockTime, "negative sequence")
		}
		if int64(n)&(1<<31) == 0 && !e.checker.CheckSequence(n) {
			return newErr(ErrUnsatisfiedLockTime, "unsatisfied CHECKSEQUENCEVERIFY")
		}
		return nil

	case OP_IF, OP_NOTIF:
		v, err := e.st.pop()
		if err != nil {
			return err
		}
		if e.flags.Has(VerifyMinimalData) && len(v) > 1 {
			return newErr(ErrMinimalData, "non-minimal boolean on IF")
		}
		b := asBool(v)
		if op == OP_NOTIF {
			b = !b
		}
		e.cond = append(e.cond, condFrame{executing: b, taken: b})
		return nil
	case OP_ELSE:
		if len(e.cond) == 0 {
			return newErr(ErrUnbalancedConditional, "ELSE without IF")
		}
		top := &e.cond[len(e.cond)-1]
		top.executing = !top.taken
		top.taken = true
		return nil
	case OP_ENDIF:
		if len(e.cond) == 0 {
			return newErr(ErrUnbalancedConditional, "ENDIF without IF")
		}
		e.cond = e.cond[:len(e.cond)-1]
		return nil
	case OP_VERIFY:
		v, err := e.st.pop()
		if err != nil {
			return err
		}
		if !asBool(v) {
			return newErr(ErrVerify, "OP_VERIFY failed")
		}
		return nil
	case OP_RETURN:
		return newErr(ErrOpReturn, "OP_RETURN")

	case OP_TOALTSTACK:
		v, err := e.st.pop()
		if err != nil {
			return err
		}
		e.alt.push(v)
		return nil
	case OP_FROMALTSTACK:
		v, err := e.alt.pop()
		if err != nil {
			return err
		}
		e.st.push(v)
		return nil
	case OP_2DROP:
		if _, err := e.st.pop(); err != nil {
			return err
		}
		if _, err := e.st.pop(); err != nil {
			return err
		}
		return nil
	case OP_2DUP:
		a, err := e.st.peek(1)
		if err != nil {
			return err
		}
		b, err := e.st.peek(0)
		if err != nil {
			return err
		}
		e.st.push(a)
		e.st.push(b)
		return nil
	case OP_3DUP:
		a, err := e.st.peek(2)
		if err != nil {
			return err
		}
		b, err := e.st.peek(1)
		if err != nil {
			return err
		}
		c, err := e.st.peek(0)
		if err != nil {
			return err
		}
		e.st.push(a)
		e.st.push(b)
		e.st.push(c)
		return nil
	case OP_2OVER:
		a, err := e.st.peek(3)
		if err != nil {
			return err
		}
		b, err := e.st.peek(2)
		if err != nil {
			return err
		}
		e.st.push(a)
		e.st.push(b)
		return nil
	case OP_2ROT:
		a, err := e.st.remove(5)
		if err != nil {
			return err
		}
		b, err := e.st.remove(4)
		if err != nil {
			return err
		}
		e.st.push(a)
		e.st.push(b)
		return nil
	case OP_2SWAP:
		if err := e.st.swap(3, 1); err != nil {
			return err
		}
		if err := e.st.swap(2, 0); err != nil {
			return err
		}
		return nil
	case OP_IFDUP:
		v, err := e.st.peekTop()
		if err != nil {
			return err
		}
		if asBool(v) {
			e.st.push(v)
		}
		return nil
	case OP_DEPTH:
		e.st.push(ScriptNum(e.st.depth()).Bytes())
		return nil
	case OP_DROP:
		_, err := e.st.pop()
		return err
	case OP_DUP:
		v, err := e.st.peekTop()
		if err != nil {
			return err
		}
		e.st.push(v)
		return nil
	case OP_NIP:
		v, err := e.st.pop()
		if err != nil {
			return err
		}
		if _, err := e.st.pop(); err != nil {
			return err
		}
		e.st.push(v)
		return nil
	case OP_OVER:
		v, err := e.st.peek(1)
		if err != nil {
			return err
		}
		e.st.push(v)
		return nil
	case OP_PICK, OP_ROLL:
		n, err := e.popNum(4)
		if err != nil {
			return err
		}
		idx := int(n)
		if idx < 0 || idx >= e.st.depth() {
			return newErr(ErrInvalidStackOperation, "PICK/ROLL index out of range")
		}
		if op == OP_PICK {
			v, err := e.st.peek(idx)
			if err != nil {
				return err
			}
			e.st.push(v)
		} else {
			v, err := e.st.remove(idx)
			if err != nil {
				return err
			}
			e.st.push(v)
		}
		return nil
	case OP_ROT:
		return e.st.swap(2, 1)
	case OP_SWAP:
		return e.st.swap(1, 0)
	case OP_TUCK:
		top, err := e.st.pop()
		if err != nil {
			return err
		}
		under, err := e.st.pop()
		if err != nil {
			return err
		}
		e.st.push(top)
		e.st.push(under)
		e.st.push(top)
		return nil

	case OP_SIZE:
		v, err := e.st.peekTop()
		if err != nil {
			return err
		}
		e.st.push(ScriptNum(len(v)).Bytes())
		return nil

	case OP_EQUAL, OP_EQUALVERIFY:
		b, err := e.st.pop()
		if err != nil {
			return err
		}
		a, err := e.st.pop()
		if err != nil {
			return err
		}
		eq := bytes.Equal(a, b)
		if op == OP_EQUALVERIFY {
			if !eq {
				return newErr(ErrEqualVerify, "OP_EQUALVERIFY failed")
			}
			return nil
		}
		e.st.push(fromBool(eq))
		return nil

	case OP_1ADD, OP_1SUB, OP_NEGATE, OP_ABS, OP_NOT, OP_0NOTEQUAL:
		return e.unaryNumOp(op)

	case OP_ADD, OP_SUB, OP_MUL,
		OP_BOOLAND, OP_BOOLOR, OP_NUMEQUAL, OP_NUMEQUALVERIFY, OP_NUMNOTEQUAL,
		OP_LESSTHAN, OP_GREATERTHAN, OP_LESSTHANOREQUAL, OP_GREATERTHANOREQUAL,
		OP_MIN, OP_MAX:
		return e.binaryNumOp(op)

	case OP_DIV, OP_MOD:
		if !e.flags.Has(VerifyCheckDataSig) {
			return newErr(ErrDisabledOpcode, "disabled opcode")
		}
		return e.binaryNumOp(op)

	case OP_WITHIN:
		return e.opWithin()

	case OP_RIPEMD160:
		return e.hashOp(func(b []byte) []byte {
			h := ripemd160.New()
			h.Write(b)
			return h.Sum(nil)
		})
	case OP_SHA1:
		return e.hashOp(func(b []byte) []byte {
			h := sha1.Sum(b)
			return h[:]
		})
	case OP_SHA256:
		return e.hashOp(func(b []byte) []byte {
			h := sha256.Sum256(b)
			return h[:]
		})
	case OP_HASH160:
		return e.hashOp(func(b []byte) []byte {
			s := sha256.Sum256(b)
			h := ripemd160.New()
			h.Write(s[:])
			return h.Sum(nil)
		})
	case OP_HASH256:
		return e.hashOp(func(b []byte) []byte {
			s1 := sha256.Sum256(b)
			s2 := sha256.Sum256(s1[:])
			return s2[:]
		})

	case OP_CODESEPARATOR:
		return nil

	case OP_CHECKSIG, OP_CHECKSIGVERIFY:
		return e.opCheckSig(op == OP_CHECKSIGVERIFY)
	case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
		return e.opCheckMultiSig(op == OP_CHECKMULTISIGVERIFY)
	case OP_CHECKDATASIG, OP_CHECKDATASIGVERIFY:
		if !e.flags.Has(VerifyCheckDataSig) {
			return newErr(ErrDisabledOpcode, "disabled opcode")
		}
		return e.opCheckDataSig(op == OP_CHECKDATASIGVERIFY)

	case OP_CAT, OP_SPLIT, OP_NUM2BIN, OP_BIN2NUM, OP_AND, OP_OR, OP_XOR:
		if !e.flags.Has(VerifyCheckDataSig) {
			return newErr(ErrDisabledOpcode, "disabled opcode")
		}
		switch op {
		case OP_CAT:
			return e.opCat()
		case OP_SPLIT:
			return e.opSplit()
		case OP_NUM2BIN:
			return e.opNum2Bin()
		case OP_BIN2NUM:
			return e.opBin2Num()
		default:
			return e.opBitwise(op)
		}

	default:
		return newErr(ErrBadOpcode, "unsupported or disabled opcode")
	}
}

func (e *engine) popNum(maxSize int) (ScriptNum, *Error) {
	v, err := e.st.pop()
	if err != nil {
		return 0, err
	}
	return e.num(v, maxSize)
}

func (e *engine) hashOp(f func([]byte) []byte) *Error {
	v, err := e.st.pop()
	if err != nil {
		return err
	}
	e.st.push(f(v))
	return nil
}

func (e *engine) opWithin() *Error {
	max, err := e.popNum(4)
	if err != nil {
		return err
	}
	min, err := e.popNum(4)
	if err != nil {
		return err
	}
	x, err := e.popNum(4)
	if err != nil {
		return err
	}
	e.st.push(fromBool(x >= min && x < max))
	return nil
}
