/*
 * rv32sim - CPU: register file and fetch/decode/execute loop.
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

// Package cpu implements RV32IM architectural state and the fetch,
// decode, execute loop: 32 general-purpose registers, a program counter,
// a bit-accurate instruction table, and per-instruction disassembly
// rendering for the trace ring the driver maintains.
package cpu

import (
	"fmt"

	"github.com/rcornwell/rv32sim/emu/memory"
)

// NumRegisters is the number of general-purpose registers, x0..x31.
const NumRegisters = 32

// RegNames maps register index to its symbolic (ABI) name, used by both
// the register dump and the expression evaluator's $name lookups. Index
// 0's name is "0", matching the $0 form used for the always-zero register.
var RegNames = [NumRegisters]string{
	"0", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegIndex returns the register index for a symbolic name (with no
// leading $ or braces), or -1 if name does not match any register.
func RegIndex(name string) int {
	for i, n := range RegNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Memory is the seam the CPU uses to fetch instructions and perform
// loads/stores; emu/memory.Memory implements it.
type Memory interface {
	Read(addr uint32, size int, kind memory.AccessType) (uint32, error)
	Write(addr uint32, size int, data uint32) error
}

// decodeCtx is per-instruction scratch state, discarded after the
// instruction retires.
type decodeCtx struct {
	pc   uint32 // address being executed
	snpc uint32 // static next PC (pc + instruction length)
	dnpc uint32 // dynamic next PC, defaults to snpc, overridden by control flow
	inst uint32 // raw instruction word
	def  *instrDef
}

// CPU holds the 32 GPRs and PC. It is not goroutine safe; the sole
// simulation thread owns it.
type CPU struct {
	GPR [NumRegisters]uint32
	PC  uint32
}

// New returns a CPU with all registers and PC zeroed.
func New() *CPU {
	return &CPU{}
}

// Reg reads a register, observing the x0-is-always-zero invariant.
func (c *CPU) Reg(i uint32) uint32 {
	if i == 0 {
		return 0
	}
	return c.GPR[i]
}

// SetReg writes a register; writes to x0 are silently discarded.
func (c *CPU) SetReg(i uint32, v uint32) {
	if i != 0 {
		c.GPR[i] = v
	}
}

// InvalidInstructionError is fatal: it aborts the simulator.
type InvalidInstructionError struct {
	PC   uint32
	Inst uint32
}

func (e *InvalidInstructionError) Error() string {
	return fmt.Sprintf("invalid instruction 0x%08x at pc 0x%08x", e.Inst, e.PC)
}

// StepResult reports what happened during one retirement.
type StepResult struct {
	PC      uint32 // address of the retired instruction
	Disasm  string // rendered disassembly line, for the trace ring
	Ebreak  bool   // instruction was ebreak
	BadTrap bool   // ebreak with gpr[a0] != 0
}

// memFault unwinds a load/store fault out of an instruction body without
// threading an error return through every exec* function.
type memFault struct{ err error }

// Step fetches, decodes, and executes exactly one instruction, following
// the numbered steps of the fetch/decode/execute design:
//  1. snpc starts at pc.
//  2. fetch 4 bytes at pc as an instruction fetch, advance snpc by 4.
//  3. dnpc defaults to snpc (fall-through).
//  4. decode against the ordered RV32IM table; first match wins.
//  5. the instruction body computes operands per its format and may
//     update a destination register and/or dnpc.
//  6. pc := dnpc; x0 is re-zeroed defensively.
//
// An invalid instruction or an out-of-bound memory access is fatal; the
// caller transitions the simulator to ABORT and dumps the trace rings.
func (c *CPU) Step(mem Memory) (StepResult, error) {
	ctx := decodeCtx{pc: c.PC, snpc: c.PC}

	inst, err := mem.Read(ctx.pc, 4, memory.AccessFetch)
	if err != nil {
		return StepResult{PC: ctx.pc}, err
	}
	ctx.inst = inst
	ctx.snpc += 4
	ctx.dnpc = ctx.snpc

	def := decode(inst)
	ctx.def = def

	if def.name == "inv" {
		return StepResult{PC: ctx.pc}, &InvalidInstructionError{PC: ctx.pc, Inst: inst}
	}

	s := &stepCPU{c: c, mem: mem}
	if err := s.run(def, &ctx); err != nil {
		return StepResult{PC: ctx.pc}, err
	}

	c.PC = ctx.dnpc
	c.GPR[0] = 0

	disasm := def.name
	if operands := disasmOperands(inst, def); operands != "" {
		disasm = def.name + " " + operands
	}

	result := StepResult{
		PC:     ctx.pc,
		Disasm: fmt.Sprintf("0x%08x: %s", ctx.pc, disasm),
	}
	if def.name == "ebreak" {
		result.Ebreak = true
		result.BadTrap = c.Reg(10) != 0 // a0 == x10
	}
	return result, nil
}

// stepCPU bundles the register file, memory, and decode context so
// exec* functions read like a small calculator over operands. run
// recovers a memFault raised by load/store so Step can return it as a
// normal error.
type stepCPU struct {
	c   *CPU
	mem Memory
}

func (s *stepCPU) run(def *instrDef, ctx *decodeCtx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(memFault); ok {
				err = f.err
				return
			}
			panic(r)
		}
	}()
	def.exec(s, ctx)
	return nil
}

func (s *stepCPU) load(addr uint32, size int) uint32 {
	v, err := s.mem.Read(addr, size, memory.AccessData)
	if err != nil {
		panic(memFault{err})
	}
	return v
}

func (s *stepCPU) store(addr uint32, size int, data uint32) {
	if err := s.mem.Write(addr, size, data); err != nil {
		panic(memFault{err})
	}
}

// --- instruction bodies -----------------------------------------------

func execLUI(s *stepCPU, ctx *decodeCtx) {
	s.c.SetReg(rd(ctx.inst), uint32(immU(ctx.inst)))
}

func execAUIPC(s *stepCPU, ctx *decodeCtx) {
	s.c.SetReg(rd(ctx.inst), ctx.pc+uint32(immU(ctx.inst)))
}

func execJAL(s *stepCPU, ctx *decodeCtx) {
	s.c.SetReg(rd(ctx.inst), ctx.snpc)
	ctx.dnpc = ctx.pc + uint32(immJ(ctx.inst))
}

func execJALR(s *stepCPU, ctx *decodeCtx) {
	link := ctx.snpc
	target := uint32(int32(s.c.Reg(rs1(ctx.inst))) + immI(ctx.inst))
	target &^= 1
	s.c.SetReg(rd(ctx.inst), link)
	ctx.dnpc = target
}

func execBranch(s *stepCPU, ctx *decodeCtx) {
	a := s.c.Reg(rs1(ctx.inst))
	b := s.c.Reg(rs2(ctx.inst))
	var taken bool
	switch ctx.def.name {
	case "beq":
		taken = a == b
	case "bne":
		taken = a != b
	case "blt":
		taken = int32(a) < int32(b)
	case "bge":
		taken = int32(a) >= int32(b)
	case "bltu":
		taken = a < b
	case "bgeu":
		taken = a >= b
	}
	if taken {
		ctx.dnpc = ctx.pc + uint32(immB(ctx.inst))
	}
}

func execLoad(s *stepCPU, ctx *decodeCtx) {
	addr := uint32(int32(s.c.Reg(rs1(ctx.inst))) + immI(ctx.inst))
	var v uint32
	switch ctx.def.name {
	case "lb":
		v = uint32(signExtend(s.load(addr, 1), 8))
	case "lh":
		v = uint32(signExtend(s.load(addr, 2), 16))
	case "lw":
		v = s.load(addr, 4)
	case "lbu":
		v = s.load(addr, 1)
	case "lhu":
		v = s.load(addr, 2)
	}
	s.c.SetReg(rd(ctx.inst), v)
}

func execStore(s *stepCPU, ctx *decodeCtx) {
	addr := uint32(int32(s.c.Reg(rs1(ctx.inst))) + immS(ctx.inst))
	data := s.c.Reg(rs2(ctx.inst))
	switch ctx.def.name {
	case "sb":
		s.store(addr, 1, data)
	case "sh":
		s.store(addr, 2, data)
	case "sw":
		s.store(addr, 4, data)
	}
}

func execImm(s *stepCPU, ctx *decodeCtx) {
	a := int32(s.c.Reg(rs1(ctx.inst)))
	imm := immI(ctx.inst)
	var v uint32
	switch ctx.def.name {
	case "addi":
		v = uint32(a + imm)
	case "slti":
		v = boolToWord(a < imm)
	case "sltiu":
		v = boolToWord(uint32(a) < uint32(imm))
	case "xori":
		v = uint32(a) ^ uint32(imm)
	case "ori":
		v = uint32(a) | uint32(imm)
	case "andi":
		v = uint32(a) & uint32(imm)
	}
	s.c.SetReg(rd(ctx.inst), v)
}

// execShiftImm handles slli/srli/srai. A shift amount of 32 or more
// (imm[5]=1 in the encoding) is illegal, not a silent no-op: such words
// fail the funct7 match of the slli/srli/srai table rows and decode as
// "inv" before reaching this body.
func execShiftImm(s *stepCPU, ctx *decodeCtx) {
	sh := shamt(ctx.inst)
	if sh >= 32 {
		panic(memFault{&InvalidInstructionError{PC: ctx.pc, Inst: ctx.inst}})
	}
	a := s.c.Reg(rs1(ctx.inst))
	var v uint32
	switch ctx.def.name {
	case "slli":
		v = a << sh
	case "srli":
		v = a >> sh
	case "srai":
		v = uint32(int32(a) >> sh)
	}
	s.c.SetReg(rd(ctx.inst), v)
}

func execReg(s *stepCPU, ctx *decodeCtx) {
	a := s.c.Reg(rs1(ctx.inst))
	b := s.c.Reg(rs2(ctx.inst))
	var v uint32
	switch ctx.def.name {
	case "add":
		v = a + b
	case "sub":
		v = a - b
	case "sll":
		v = a << (b & 0x1f)
	case "slt":
		v = boolToWord(int32(a) < int32(b))
	case "sltu":
		v = boolToWord(a < b)
	case "xor":
		v = a ^ b
	case "srl":
		v = a >> (b & 0x1f)
	case "sra":
		v = uint32(int32(a) >> (b & 0x1f))
	case "or":
		v = a | b
	case "and":
		v = a & b
	}
	s.c.SetReg(rd(ctx.inst), v)
}

func execMulDiv(s *stepCPU, ctx *decodeCtx) {
	a := s.c.Reg(rs1(ctx.inst))
	b := s.c.Reg(rs2(ctx.inst))
	var v uint32
	switch ctx.def.name {
	case "mul":
		v = a * b
	case "mulh":
		v = uint32((int64(int32(a)) * int64(int32(b))) >> 32)
	case "mulhsu":
		v = uint32((int64(int32(a)) * int64(uint64(b))) >> 32)
	case "mulhu":
		v = uint32((uint64(a) * uint64(b)) >> 32)
	case "div":
		v = divSigned(a, b)
	case "divu":
		if b == 0 {
			v = 0xffffffff
		} else {
			v = a / b
		}
	case "rem":
		v = remSigned(a, b)
	case "remu":
		if b == 0 {
			v = a
		} else {
			v = a % b
		}
	}
	s.c.SetReg(rd(ctx.inst), v)
}

func divSigned(a, b uint32) uint32 {
	sa, sb := int32(a), int32(b)
	if sb == 0 {
		return 0xffffffff
	}
	if sa == -2147483648 && sb == -1 {
		return a // overflow: result is the dividend per RISC-V spec
	}
	return uint32(sa / sb)
}

func remSigned(a, b uint32) uint32 {
	sa, sb := int32(a), int32(b)
	if sb == 0 {
		return a
	}
	if sa == -2147483648 && sb == -1 {
		return 0
	}
	return uint32(sa % sb)
}

func execFence(s *stepCPU, ctx *decodeCtx) {
	// single-hart, single-threaded simulator: fence is a no-op.
}

func execEcall(s *stepCPU, ctx *decodeCtx) {
	panic(memFault{&InvalidInstructionError{PC: ctx.pc, Inst: ctx.inst}})
}

func execEbreak(s *stepCPU, ctx *decodeCtx) {
	// Recognized by Step via ctx.def.name; no register/memory effect.
}

func execInvalid(s *stepCPU, ctx *decodeCtx) {
	panic(memFault{&InvalidInstructionError{PC: ctx.pc, Inst: ctx.inst}})
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
