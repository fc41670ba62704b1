package watch

/*
 * rv32sim - Watchpoint pool tests.
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

type mutableRegs struct{ m map[string]uint32 }

func (r *mutableRegs) Reg(name string) (uint32, bool) {
	v, ok := r.m[name]
	return v, ok
}

func TestAddAndTrip(t *testing.T) {
	regs := &mutableRegs{m: map[string]uint32{"a0": 0}}
	p := New(regs)

	id, err := p.Add("$a0 == 5")
	if err != nil {
		t.Fatal(err)
	}

	if tripped, _ := p.Check(); tripped {
		t.Fatalf("should not trip while a0 stays 0")
	}

	regs.m["a0"] = 5
	tripped, reason := p.Check()
	if !tripped {
		t.Fatalf("expected trip when a0 becomes 5")
	}
	if reason != "$a0 == 5" {
		t.Errorf("reason = %q", reason)
	}

	if err := p.Remove(id); err != nil {
		t.Fatal(err)
	}
}

func TestCapacityExhaustion(t *testing.T) {
	regs := &mutableRegs{m: map[string]uint32{"a0": 0}}
	p := New(regs)
	for i := 0; i < Capacity; i++ {
		if _, err := p.Add("$a0 == 1"); err != nil {
			t.Fatalf("unexpected error on watchpoint %d: %v", i, err)
		}
	}
	if _, err := p.Add("$a0 == 1"); err == nil {
		t.Fatal("expected ErrFull on 33rd watchpoint")
	}
}

func TestRemoveFreesSlotForReuse(t *testing.T) {
	regs := &mutableRegs{m: map[string]uint32{"a0": 0}}
	p := New(regs)
	id, _ := p.Add("$a0 == 1")
	if err := p.Remove(id); err != nil {
		t.Fatal(err)
	}
	id2, err := p.Add("$a0 == 2")
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Errorf("expected reused id %d, got %d", id, id2)
	}
}

func TestRemoveUnknown(t *testing.T) {
	regs := &mutableRegs{m: map[string]uint32{"a0": 0}}
	p := New(regs)
	if err := p.Remove(5); err == nil {
		t.Error("expected error removing unset watchpoint")
	}
}

func TestListOrdersAscending(t *testing.T) {
	regs := &mutableRegs{m: map[string]uint32{"a0": 0}}
	p := New(regs)
	a, _ := p.Add("$a0 == 1")
	b, _ := p.Add("$a0 == 2")
	ids := p.List()
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Errorf("List() = %v, want [%d %d]", ids, a, b)
	}
}
