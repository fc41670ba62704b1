/*
 * rv32sim - RV32IM instruction table.
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

package cpu

import "fmt"

// instrDef is one row of the ordered (mask, match, handler) dispatch
// table: (inst & mask) == match picks a handler. The first match in
// table order wins, mirroring the reference simulator's bit-pattern
// matcher with "?" don't-care bits collapsed into mask/match pairs.
type instrDef struct {
	mask  uint32
	match uint32
	name  string
	exec  func(s *stepCPU, ctx *decodeCtx)
}

// Opcode field values (bits [6:0]).
const (
	opLoad   = 0x03
	opImm    = 0x13
	opAUIPC  = 0x17
	opStore  = 0x23
	opReg    = 0x33
	opLUI    = 0x37
	opBranch = 0x63
	opJALR   = 0x67
	opJAL    = 0x6f
	opSystem = 0x73
	opFence  = 0x0f
)

func rd(inst uint32) uint32     { return (inst >> 7) & 0x1f }
func funct3(inst uint32) uint32 { return (inst >> 12) & 0x7 }
func rs1(inst uint32) uint32    { return (inst >> 15) & 0x1f }
func rs2(inst uint32) uint32    { return (inst >> 20) & 0x1f }
func funct7(inst uint32) uint32 { return (inst >> 25) & 0x7f }
func shamt(inst uint32) uint32  { return (inst >> 20) & 0x1f }

func immI(inst uint32) int32 { return int32(inst) >> 20 }

func immS(inst uint32) int32 {
	hi := (inst >> 25) & 0x7f
	lo := (inst >> 7) & 0x1f
	v := (hi << 5) | lo
	return signExtend(v, 12)
}

func immB(inst uint32) int32 {
	b12 := (inst >> 31) & 0x1
	b11 := (inst >> 7) & 0x1
	b10_5 := (inst >> 25) & 0x3f
	b4_1 := (inst >> 8) & 0xf
	v := (b12 << 12) | (b11 << 11) | (b10_5 << 5) | (b4_1 << 1)
	return signExtend(v, 13)
}

func immU(inst uint32) int32 {
	return int32(inst & 0xfffff000)
}

func immJ(inst uint32) int32 {
	b20 := (inst >> 31) & 0x1
	b19_12 := (inst >> 12) & 0xff
	b11 := (inst >> 20) & 0x1
	b10_1 := (inst >> 21) & 0x3ff
	v := (b20 << 20) | (b19_12 << 12) | (b11 << 11) | (b10_1 << 1)
	return signExtend(v, 21)
}

// signExtend sign-extends the low `bits` bits of v.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// isaTable is the ordered RV32IM dispatch table. The catch-all "inv" row
// must stay last: it matches every instruction word via a zero mask.
var isaTable = []instrDef{
	{0x0000007f, opLUI, "lui", execLUI},
	{0x0000007f, opAUIPC, "auipc", execAUIPC},
	{0x0000007f, opJAL, "jal", execJAL},
	{0x0000707f, opJALR, "jalr", execJALR},

	{0x0000707f, opBranch | (0x0 << 12), "beq", execBranch},
	{0x0000707f, opBranch | (0x1 << 12), "bne", execBranch},
	{0x0000707f, opBranch | (0x4 << 12), "blt", execBranch},
	{0x0000707f, opBranch | (0x5 << 12), "bge", execBranch},
	{0x0000707f, opBranch | (0x6 << 12), "bltu", execBranch},
	{0x0000707f, opBranch | (0x7 << 12), "bgeu", execBranch},

	{0x0000707f, opLoad | (0x0 << 12), "lb", execLoad},
	{0x0000707f, opLoad | (0x1 << 12), "lh", execLoad},
	{0x0000707f, opLoad | (0x2 << 12), "lw", execLoad},
	{0x0000707f, opLoad | (0x4 << 12), "lbu", execLoad},
	{0x0000707f, opLoad | (0x5 << 12), "lhu", execLoad},

	{0x0000707f, opStore | (0x0 << 12), "sb", execStore},
	{0x0000707f, opStore | (0x1 << 12), "sh", execStore},
	{0x0000707f, opStore | (0x2 << 12), "sw", execStore},

	{0x0000707f, opImm | (0x0 << 12), "addi", execImm},
	{0x0000707f, opImm | (0x2 << 12), "slti", execImm},
	{0x0000707f, opImm | (0x3 << 12), "sltiu", execImm},
	{0x0000707f, opImm | (0x4 << 12), "xori", execImm},
	{0x0000707f, opImm | (0x6 << 12), "ori", execImm},
	{0x0000707f, opImm | (0x7 << 12), "andi", execImm},
	{0xfe00707f, opImm | (0x1 << 12) | (0x00 << 25), "slli", execShiftImm},
	{0xfe00707f, opImm | (0x5 << 12) | (0x00 << 25), "srli", execShiftImm},
	{0xfe00707f, opImm | (0x5 << 12) | (0x20 << 25), "srai", execShiftImm},

	{0xfe00707f, opReg | (0x0 << 12) | (0x00 << 25), "add", execReg},
	{0xfe00707f, opReg | (0x0 << 12) | (0x20 << 25), "sub", execReg},
	{0xfe00707f, opReg | (0x1 << 12) | (0x00 << 25), "sll", execReg},
	{0xfe00707f, opReg | (0x2 << 12) | (0x00 << 25), "slt", execReg},
	{0xfe00707f, opReg | (0x3 << 12) | (0x00 << 25), "sltu", execReg},
	{0xfe00707f, opReg | (0x4 << 12) | (0x00 << 25), "xor", execReg},
	{0xfe00707f, opReg | (0x5 << 12) | (0x00 << 25), "srl", execReg},
	{0xfe00707f, opReg | (0x5 << 12) | (0x20 << 25), "sra", execReg},
	{0xfe00707f, opReg | (0x6 << 12) | (0x00 << 25), "or", execReg},
	{0xfe00707f, opReg | (0x7 << 12) | (0x00 << 25), "and", execReg},

	{0xfe00707f, opReg | (0x0 << 12) | (0x01 << 25), "mul", execMulDiv},
	{0xfe00707f, opReg | (0x1 << 12) | (0x01 << 25), "mulh", execMulDiv},
	{0xfe00707f, opReg | (0x2 << 12) | (0x01 << 25), "mulhsu", execMulDiv},
	{0xfe00707f, opReg | (0x3 << 12) | (0x01 << 25), "mulhu", execMulDiv},
	{0xfe00707f, opReg | (0x4 << 12) | (0x01 << 25), "div", execMulDiv},
	{0xfe00707f, opReg | (0x5 << 12) | (0x01 << 25), "divu", execMulDiv},
	{0xfe00707f, opReg | (0x6 << 12) | (0x01 << 25), "rem", execMulDiv},
	{0xfe00707f, opReg | (0x7 << 12) | (0x01 << 25), "remu", execMulDiv},

	{0x0000707f, opFence, "fence", execFence},
	{0xffffffff, opSystem, "ecall", execEcall},
	{0xffffffff, opSystem | (1 << 20), "ebreak", execEbreak},

	// Catch-all: no bit of the instruction word needs to match, so this
	// row always hits if nothing above it did.
	{0x00000000, 0x00000000, "inv", execInvalid},
}

// decode scans isaTable in order and returns the first matching row.
func decode(inst uint32) *instrDef {
	for i := range isaTable {
		def := &isaTable[i]
		if inst&def.mask == def.match {
			return def
		}
	}
	// unreachable: the catch-all row always matches.
	return &isaTable[len(isaTable)-1]
}

func disasmOperands(inst uint32, def *instrDef) string {
	switch def.name {
	case "lui", "auipc":
		return fmt.Sprintf("x%d, 0x%x", rd(inst), uint32(immU(inst))>>12)
	case "jal":
		return fmt.Sprintf("x%d, %d", rd(inst), immJ(inst))
	case "jalr":
		return fmt.Sprintf("x%d, %d(x%d)", rd(inst), immI(inst), rs1(inst))
	case "beq", "bne", "blt", "bge", "bltu", "bgeu":
		return fmt.Sprintf("x%d, x%d, %d", rs1(inst), rs2(inst), immB(inst))
	case "lb", "lh", "lw", "lbu", "lhu":
		return fmt.Sprintf("x%d, %d(x%d)", rd(inst), immI(inst), rs1(inst))
	case "sb", "sh", "sw":
		return fmt.Sprintf("x%d, %d(x%d)", rs2(inst), immS(inst), rs1(inst))
	case "slli", "srli", "srai":
		return fmt.Sprintf("x%d, x%d, %d", rd(inst), rs1(inst), shamt(inst))
	case "addi", "slti", "sltiu", "xori", "ori", "andi":
		return fmt.Sprintf("x%d, x%d, %d", rd(inst), rs1(inst), immI(inst))
	case "add", "sub", "sll", "slt", "sltu", "xor", "srl", "sra", "or", "and",
		"mul", "mulh", "mulhsu", "mulhu", "div", "divu", "rem", "remu":
		return fmt.Sprintf("x%d, x%d, x%d", rd(inst), rs1(inst), rs2(inst))
	case "ecall", "ebreak", "fence":
		return ""
	default:
		return fmt.Sprintf("0x%08x", inst)
	}
}
