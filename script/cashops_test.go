package script

import "testing"

func TestOpCatSplit(t *testing.T) {
	e := newEngine(0, nullChecker{})
	e.st.push([]byte("foo"))
	e.st.push([]byte("bar"))
	if err := e.opCat(); err != nil {
		t.Fatalf("cat: %v", err)
	}
	top, _ := e.st.peekTop()
	if string(top) != "foobar" {
		t.Fatalf("want foobar got %q", top)
	}

	e2 := newEngine(0, nullChecker{})
	e2.st.push([]byte("foobar"))
	e2.st.push(ScriptNum(3).Bytes())
	if err := e2.opSplit(); err != nil {
		t.Fatalf("split: %v", err)
	}
	right, _ := e2.st.pop()
	left, _ := e2.st.pop()
	if string(left) != "foo" || string(right) != "bar" {
		t.Fatalf("split mismatch: %q %q", left, right)
	}
}

func TestOpSplitOutOfRange(t *testing.T) {
	e := newEngine(0, nullChecker{})
	e.st.push([]byte("foo"))
	e.st.push(ScriptNum(10).Bytes())
	if err := e.opSplit(); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestOpBitwise(t *testing.T) {
	e := newEngine(0, nullChecker{})
	e.st.push([]byte{0x0f, 0xf0})
	e.st.push([]byte{0xff, 0xff})
	if err := e.opBitwise(OP_AND); err != nil {
		t.Fatalf("and: %v", err)
	}
	top, _ := e.st.peekTop()
	if top[0] != 0x0f || top[1] != 0xf0 {
		t.Fatalf("unexpected AND result: %x", top)
	}
}

func TestOpNum2BinBin2Num(t *testing.T) {
	e := newEngine(0, nullChecker{})
	e.st.push(ScriptNum(1).Bytes())
	e.st.push(ScriptNum(4).Bytes())
	if err := e.opNum2Bin(); err != nil {
		t.Fatalf("num2bin: %v", err)
	}
	top, _ := e.st.peekTop()
	if len(top) != 4 {
		t.Fatalf("want length 4 got %d", len(top))
	}

	e2 := newEngine(0, nullChecker{})
	e2.st.push(top)
	if err := e2.opBin2Num(); err != nil {
		t.Fatalf("bin2num: %v", err)
	}
	back, _ := e2.st.peekTop()
	n, _ := e2.num(back, 4)
	if n != 1 {
		t.Fatalf("want 1 got %d", n)
	}
}

func TestOpDivModByZero(t *testing.T) {
	e := newEngine(0, nullChecker{})
	e.st.push(ScriptNum(10).Bytes())
	e.st.push(ScriptNum(0).Bytes())
	if err := e.binaryNumOp(OP_DIV); err == nil || err.Code != ErrDivByZero {
		t.Fatalf("expected div by zero, got %v", err)
	}

	e2 := newEngine(0, nullChecker{})
	e2.st.push(ScriptNum(10).Bytes())
	e2.st.push(ScriptNum(0).Bytes())
	if err := e2.binaryNumOp(OP_MOD); err == nil || err.Code != ErrModByZero {
		t.Fatalf("expected mod by zero, got %v", err)
	}
}

// TestCashOpcodesGatedOnActivation covers spec.md §4.E step 3: the
// cash-specific opcodes (and OP_CHECKDATASIG) are only enabled once
// magnetic-anomaly activation sets VerifyCheckDataSig; a pre-activation
// script using them must fail with ErrDisabledOpcode rather than run.
func TestCashOpcodesGatedOnActivation(t *testing.T) {
	cases := []struct {
		name string
		pk   []byte
	}{
		{"CAT", []byte{byte(OP_1), byte(OP_1), byte(OP_CAT)}},
		{"SPLIT", []byte{byte(OP_1), byte(OP_0), byte(OP_SPLIT)}},
		{"AND", []byte{byte(OP_1), byte(OP_1), byte(OP_AND)}},
		{"OR", []byte{byte(OP_1), byte(OP_1), byte(OP_OR)}},
		{"XOR", []byte{byte(OP_1), byte(OP_1), byte(OP_XOR)}},
		{"DIV", []byte{byte(OP_1), byte(OP_1), byte(OP_DIV)}},
		{"MOD", []byte{byte(OP_1), byte(OP_1), byte(OP_MOD)}},
		{"NUM2BIN", []byte{byte(OP_1), byte(OP_1) + 3, byte(OP_NUM2BIN)}},
		{"BIN2NUM", []byte{byte(OP_1), byte(OP_BIN2NUM)}},
		{"CHECKDATASIG", []byte{byte(OP_1), byte(OP_1), byte(OP_1), byte(OP_CHECKDATASIG)}},
		{"CHECKDATASIGVERIFY", []byte{byte(OP_1), byte(OP_1), byte(OP_1), byte(OP_CHECKDATASIGVERIFY)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sig := []byte{byte(OP_1)}
			err := Execute(sig, c.pk, 0, nullChecker{})
			if err == nil || err.Code != ErrDisabledOpcode {
				t.Fatalf("%s: expected ErrDisabledOpcode pre-activation, got %v", c.name, err)
			}
			if err2 := Execute(sig, c.pk, VerifyCheckDataSig, nullChecker{}); err2 != nil && err2.Code == ErrDisabledOpcode {
				t.Fatalf("%s: unexpectedly disabled post-activation: %v", c.name, err2)
			}
		})
	}
}
