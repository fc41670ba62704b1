/*
 * rv32sim - Watchpoint pool: fixed-capacity conditional breakpoints.
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

// Package watch implements a fixed-capacity pool of conditional
// watchpoints. Each watchpoint holds an expression string; after every
// retired instruction the driver re-evaluates every live watchpoint's
// predicate and halts the simulator the instant one transitions from
// false to true ("0" in the evaluator's comparison convention). IDs are
// stable array indices, matching the free-list/live-list discipline the
// teacher's device table uses for stable device numbers.
package watch

import "github.com/rcornwell/rv32sim/eval"

// Capacity is the maximum number of simultaneously live watchpoints.
const Capacity = 32

// entry is one slot in the pool: either free (linked via next into the
// free list) or live (holding an expression and its last-seen truth
// value).
type entry struct {
	inUse   bool
	expr    string
	lastHit bool // last-evaluated predicate state (true = tripped condition held)
	next    int  // free-list link; -1 terminates
}

// Pool is a fixed-capacity array of watchpoints with a free-list
// allocator over the backing array. Zero value is not usable; use New.
type Pool struct {
	slots   [Capacity]entry
	freeTop int
	regs    eval.Registers
}

// New returns an empty pool backed by the given register resolver, which
// is used to evaluate each watchpoint's expression against current CPU
// state.
func New(regs eval.Registers) *Pool {
	p := &Pool{regs: regs}
	for i := range p.slots {
		p.slots[i].next = i + 1
	}
	p.slots[Capacity-1].next = -1
	p.freeTop = 0
	return p
}

// ErrFull is returned by Add when the pool has no free slots.
type ErrFull struct{}

func (ErrFull) Error() string { return "watch: pool exhausted (32 watchpoints already set)" }

// Add installs a new watchpoint for expr and returns its stable ID.
// The predicate's initial value is evaluated immediately so the first
// Check call after Add only reports a trip on a subsequent transition,
// not on the initial state.
func (p *Pool) Add(expr string) (int, error) {
	if p.freeTop == -1 {
		return 0, ErrFull{}
	}
	id := p.freeTop
	p.freeTop = p.slots[id].next

	v, err := eval.Eval(expr, p.regs)
	if err != nil {
		// re-link the slot back onto the free list before reporting.
		p.slots[id].next = p.freeTop
		p.freeTop = id
		return 0, err
	}

	p.slots[id] = entry{inUse: true, expr: expr, lastHit: v == 0}
	return id, nil
}

// ErrNotFound is returned by Remove/Expr for an ID that is not currently
// in use.
type ErrNotFound struct{ ID int }

func (e ErrNotFound) Error() string {
	return "watch: no watchpoint with that id"
}

// Remove frees the watchpoint at id, returning it to the free list.
func (p *Pool) Remove(id int) error {
	if id < 0 || id >= Capacity || !p.slots[id].inUse {
		return ErrNotFound{ID: id}
	}
	p.slots[id] = entry{next: p.freeTop}
	p.freeTop = id
	return nil
}

// Expr returns the expression text for a live watchpoint.
func (p *Pool) Expr(id int) (string, error) {
	if id < 0 || id >= Capacity || !p.slots[id].inUse {
		return "", ErrNotFound{ID: id}
	}
	return p.slots[id].expr, nil
}

// List returns the IDs of all currently live watchpoints, ascending.
func (p *Pool) List() []int {
	var out []int
	for i := range p.slots {
		if p.slots[i].inUse {
			out = append(out, i)
		}
	}
	return out
}

// Check re-evaluates every live watchpoint and reports whether any one
// just transitioned from not-holding to holding. It is called by the
// driver after every instruction retires. On a trip, the returned reason
// names the watchpoint's expression.
func (p *Pool) Check() (bool, string) {
	tripped := false
	reason := ""
	for i := range p.slots {
		if !p.slots[i].inUse {
			continue
		}
		v, err := eval.Eval(p.slots[i].expr, p.regs)
		if err != nil {
			continue // a watchpoint referencing a stale register just stays dormant
		}
		holds := v == 0
		if holds && !p.slots[i].lastHit {
			if !tripped {
				reason = p.slots[i].expr
			}
			tripped = true
		}
		p.slots[i].lastHit = holds
	}
	return tripped, reason
}
