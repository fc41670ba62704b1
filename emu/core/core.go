/*
 * rv32sim - Simulator driver: the synchronous run loop over the CPU.
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

// Package core drives the simulator: it owns the CPU and memory, steps
// instructions, keeps the bounded instruction trace ring, and tracks the
// run state machine a monitor command transitions through. Unlike the
// reference S370 core, which dispatches cycles from a goroutine fed by a
// channel of telnet/timer packets, this driver is a single synchronous
// call: there are no peripheral devices or interrupts to arbitrate, so
// there is nothing left to run concurrently.
package core

import (
	"log/slog"
	"time"

	"github.com/rcornwell/rv32sim/emu/cpu"
	"github.com/rcornwell/rv32sim/emu/memory"
)

// State is the simulator run state, transitioned by Run and inspected by
// the monitor after each call returns.
type State int

const (
	// Running means the simulator is (or was, before Run returned)
	// actively retiring instructions.
	Running State = iota
	// Stopped means a stepping budget was exhausted normally or a
	// watchpoint tripped.
	Stopped
	// Ended means the guest reached ebreak, good trap (gpr[a0] == 0) or
	// bad trap (gpr[a0] != 0) alike; HaltRet distinguishes the two.
	Ended
	// Aborted means a fatal decode or memory fault occurred (the "inv"
	// catch-all row, or an out-of-bound access with no MMIO handler).
	Aborted
	// Quit means the operator asked the monitor to exit.
	Quit
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOP"
	case Ended:
		return "END"
	case Aborted:
		return "ABORT"
	case Quit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}

// traceDepth is the number of retired-instruction disassembly lines kept
// for post-mortem reporting, matching the access trace ring's depth.
const traceDepth = 11

// Forever requests Run to continue until a trap, fault, or watchpoint
// halts it rather than a fixed instruction budget.
const Forever uint64 = ^uint64(0)

// Stats reports wall-clock and instruction-count statistics for the most
// recent Run call, mirroring the teacher's habit of reporting elapsed
// time alongside cycle counts.
type Stats struct {
	Instructions uint64
	Elapsed      time.Duration
}

// WatchChecker is consulted after every retired instruction; returning
// true halts the run with State Stopped. The monitor's watchpoint pool
// implements this.
type WatchChecker interface {
	Check() (tripped bool, reason string)
}

// Driver owns a CPU and memory and runs instructions against them.
type Driver struct {
	CPU   *cpu.CPU
	Mem   *memory.Memory
	Watch WatchChecker

	state   State
	trace   [traceDepth]string
	cursor  int
	retired uint64
	reason  string
	haltPC  uint32
	haltRet uint32
}

// New builds a Driver over an existing CPU and memory pair.
func New(c *cpu.CPU, m *memory.Memory) *Driver {
	return &Driver{CPU: c, Mem: m, state: Stopped}
}

// State returns the state left by the most recent Run call.
func (d *Driver) State() State { return d.state }

// Reason returns a human-readable explanation of the last halt, set for
// Ended (trap classification), Aborted (fault text), and
// Stopped-by-watchpoint transitions.
func (d *Driver) Reason() string { return d.reason }

// HaltPC returns the address of the instruction that produced the most
// recent Ended or Aborted state.
func (d *Driver) HaltPC() uint32 { return d.haltPC }

// HaltRet returns gpr[a0] at the most recent ebreak: zero for a good
// trap, nonzero for a bad trap. It is meaningless outside State Ended.
func (d *Driver) HaltRet() uint32 { return d.haltRet }

// Retired returns the total number of instructions retired over the
// Driver's lifetime (nr_guest_inst in the reference design).
func (d *Driver) Retired() uint64 { return d.retired }

// Run retires up to n instructions (or forever, if n is core.Forever),
// halting early on ebreak, a fatal fault, or a tripped watchpoint. It
// always returns with d.state reflecting the final condition and logs
// the transition via slog, mirroring the teacher's per-dispatch logging
// convention in command/parser.
func (d *Driver) Run(n uint64) Stats {
	start := time.Now()
	var count uint64
	d.state = Running
	d.reason = ""

	for count < n {
		res, err := d.CPU.Step(d.Mem)
		if err != nil {
			d.retired++
			count++
			d.pushTrace(errTraceLine(err))
			d.state = Aborted
			d.reason = err.Error()
			d.haltPC = res.PC
			slog.Error("simulator aborted", "reason", err.Error(), "pc", d.CPU.PC)
			break
		}

		d.retired++
		count++
		d.pushTrace(res.Disasm)

		if res.Ebreak {
			d.state = Ended
			d.haltPC = res.PC
			d.haltRet = d.CPU.Reg(10)
			if res.BadTrap {
				d.reason = "HIT BAD TRAP"
				slog.Warn("hit bad trap", "pc", res.PC, "a0", d.haltRet)
			} else {
				d.reason = "HIT GOOD TRAP"
				slog.Info("hit good trap", "pc", res.PC)
			}
			break
		}

		if d.Watch != nil {
			if tripped, reason := d.Watch.Check(); tripped {
				d.state = Stopped
				d.reason = reason
				slog.Info("watchpoint tripped", "reason", reason, "pc", d.CPU.PC)
				break
			}
		}
	}

	if d.state == Running {
		d.state = Stopped
	}

	return Stats{Instructions: count, Elapsed: time.Since(start)}
}

// errTraceLine renders a fault for the trace ring as "fault: " followed
// by the error text, which already names the faulting address.
func errTraceLine(err error) string {
	return "fault: " + err.Error()
}

// pushTrace overwrites the slot at the cursor and advances it, the same
// ring discipline emu/memory uses for its access trace.
func (d *Driver) pushTrace(line string) {
	d.trace[d.cursor] = line
	d.cursor = (d.cursor + 1) % traceDepth
}

// DumpTrace renders the instruction trace ring oldest-first, marking the
// newest-pushed entry, for display on ABORT.
func (d *Driver) DumpTrace() []string {
	out := make([]string, 0, traceDepth)
	newest := (d.cursor - 1 + traceDepth) % traceDepth
	for i := range traceDepth {
		idx := (d.cursor + i) % traceDepth
		line := d.trace[idx]
		if line == "" {
			line = "(empty)"
		}
		if idx == newest {
			line = " ---> " + line
		}
		out = append(out, line)
	}
	return out
}
