package eval

/*
 * rv32sim - Expression evaluator tests.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import "testing"

type fakeRegs map[string]uint32

func (f fakeRegs) Reg(name string) (uint32, bool) {
	v, ok := f[name]
	return v, ok
}

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want int32
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"0x10+16", 32},
		{"10-2-3", 5},
		{"8/2/2", 2},
		{"-5+10", 5},
	}
	for _, c := range cases {
		got, err := Eval(c.expr, nil)
		if err != nil {
			t.Errorf("Eval(%q) error: %v", c.expr, err)
			continue
		}
		if got != c.want {
			t.Errorf("Eval(%q) = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestEvalComparison(t *testing.T) {
	cases := []struct {
		expr string
		want int32
	}{
		{"1+2*3==7", 0},
		{"1+2*3==8", -1},
		{"5!=5", -1},
		{"5!=6", 0},
	}
	for _, c := range cases {
		got, err := Eval(c.expr, nil)
		if err != nil {
			t.Fatalf("Eval(%q) error: %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("Eval(%q) = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestEvalRegisters(t *testing.T) {
	regs := fakeRegs{"a0": 5, "a1": 0}
	got, err := Eval("$a0 == 5", regs)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("$a0 == 5 = %d, want 0 (true)", got)
	}

	got, err = Eval("${a1} == 0", regs)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("${a1} == 0 = %d, want 0 (true)", got)
	}

	if _, err := Eval("$bogus == 0", regs); err == nil {
		t.Error("expected error for unknown register")
	}
}

func TestEvalShortCircuitAnd(t *testing.T) {
	regs := fakeRegs{"a0": 5, "a1": 0}
	got, err := Eval("$a0 == 5 && $a1 == 0", regs)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("conjunction = %d, want 0 (true)", got)
	}

	got, err = Eval("$a0 == 9 && $a1 == 0", regs)
	if err != nil {
		t.Fatal(err)
	}
	if got != -1 {
		t.Errorf("conjunction = %d, want -1 (false)", got)
	}
}

func TestEvalErrors(t *testing.T) {
	cases := []string{"1+", "(1+2", "1+2)", "1 2", "", "0x", "1/0"}
	for _, expr := range cases {
		if _, err := Eval(expr, nil); err == nil {
			t.Errorf("Eval(%q) expected error, got none", expr)
		}
	}
}
