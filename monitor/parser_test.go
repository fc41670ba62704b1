package monitor

/*
 * rv32sim - Monitor command parser tests.
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

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/rcornwell/rv32sim/emu/core"
	"github.com/rcornwell/rv32sim/emu/cpu"
	"github.com/rcornwell/rv32sim/emu/memory"
)

const testBase = 0x80000000

func putInst(m *memory.Memory, addr uint32, inst uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], inst)
	_ = m.Write(addr, 4, binary.LittleEndian.Uint32(b[:]))
}

func encodeI(funct3, rdN, rs1N uint32, imm int32) uint32 {
	return (uint32(imm) << 20) | (rs1N << 15) | (funct3 << 12) | (rdN << 7) | 0x13
}

func newMonitor() (*Monitor, *memory.Memory) {
	m := memory.New(testBase, 4096, false)
	c := cpu.New()
	c.PC = testBase
	d := core.New(c, m)
	var out []string
	mon := New(d, c, m, func(s string) { out = append(out, s) })
	return mon, m
}

func TestStepAndInfo(t *testing.T) {
	mon, mem := newMonitor()
	putInst(mem, testBase, encodeI(0, 10, 0, 7)) // addi a0, x0, 7

	quit, err := mon.ProcessCommand("si 1")
	if err != nil || quit {
		t.Fatalf("si 1: quit=%v err=%v", quit, err)
	}
	if mon.CPU.Reg(10) != 7 {
		t.Errorf("a0 = %d, want 7", mon.CPU.Reg(10))
	}

	if _, err := mon.ProcessCommand("info"); err != nil {
		t.Fatalf("info: %v", err)
	}
}

func TestWatchAndDelete(t *testing.T) {
	mon, _ := newMonitor()
	if _, err := mon.ProcessCommand("w $a0 == 5"); err != nil {
		t.Fatal(err)
	}
	if len(mon.Watch.List()) != 1 {
		t.Fatalf("expected 1 live watchpoint")
	}
	if _, err := mon.ProcessCommand("d 0"); err != nil {
		t.Fatal(err)
	}
	if len(mon.Watch.List()) != 0 {
		t.Fatalf("expected 0 live watchpoints after delete")
	}
}

func TestInfoWListsWatchpoints(t *testing.T) {
	mon, _ := newMonitor()
	var lines []string
	mon.Out = func(s string) { lines = append(lines, s) }

	if _, err := mon.ProcessCommand("info w"); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "no watchpoints") {
		t.Fatalf("info w with none set = %v", lines)
	}

	if _, err := mon.ProcessCommand("w $a0 == 5"); err != nil {
		t.Fatal(err)
	}
	lines = nil
	if _, err := mon.ProcessCommand("info w"); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "$a0 == 5") {
		t.Fatalf("info w with one set = %v", lines)
	}
}

func TestExamineWordCount(t *testing.T) {
	mon, _ := newMonitor()
	var lines []string
	mon.Out = func(s string) { lines = append(lines, s) }

	// spec scenario 5: "x 8 0x80000000" prints 3 lines of 4-byte words.
	if _, err := mon.ProcessCommand("x 8 0x80000000"); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("x 8: got %d lines, want 3: %v", len(lines), lines)
	}
}

func TestExamineAddressIsExpression(t *testing.T) {
	mon, mem := newMonitor()
	putInst(mem, testBase, encodeI(0, 10, 0, 7)) // addi a0, x0, 7
	if quit, err := mon.ProcessCommand("si 1"); err != nil || quit {
		t.Fatalf("si 1: quit=%v err=%v", quit, err)
	}

	var lines []string
	mon.Out = func(s string) { lines = append(lines, s) }
	if _, err := mon.ProcessCommand("x 1 $pc"); err != nil {
		t.Fatal(err)
	}
	if len(lines) == 0 {
		t.Fatal("x 1 $pc: no output")
	}
}

func TestPrintExpression(t *testing.T) {
	mon, _ := newMonitor()
	if _, err := mon.ProcessCommand("p 1+2*3"); err != nil {
		t.Fatal(err)
	}
}

func TestQuit(t *testing.T) {
	mon, _ := newMonitor()
	quit, err := mon.ProcessCommand("q")
	if err != nil || !quit {
		t.Fatalf("q: quit=%v err=%v", quit, err)
	}
}

func TestUnknownCommand(t *testing.T) {
	mon, _ := newMonitor()
	if _, err := mon.ProcessCommand("bogus"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestHelpListsCommands(t *testing.T) {
	mon, _ := newMonitor()
	var lines []string
	mon.Out = func(s string) { lines = append(lines, s) }
	if _, err := mon.ProcessCommand("help"); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"continue", "step", "watch", "quit"} {
		if !strings.Contains(joined, want) {
			t.Errorf("help output missing mention of %q", want)
		}
	}
}
