/*
 * rv32sim - Convert words and bytes to hex text for the monitor.
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

// Package hexfmt renders register and memory values as fixed-width hex
// text for the monitor's "info" and "x" commands, the same lookup-table
// rendering style the teacher's util/hex package uses for its IBM word
// and displacement fields.
package hexfmt

import "strings"

var hexMap = "0123456789ABCDEF"

// Word appends the hex text of a 32-bit value, zero padded to 8 digits,
// to str.
func Word(str *strings.Builder, v uint32) {
	shift := 28
	for range 8 {
		str.WriteByte(hexMap[(v>>shift)&0xf])
		shift -= 4
	}
}

// Byte appends the hex text of a single byte, zero padded to 2 digits.
func Byte(str *strings.Builder, b byte) {
	str.WriteByte(hexMap[(b>>4)&0xf])
	str.WriteByte(hexMap[b&0xf])
}

// DumpWords renders count words read from addr (via read), one word per
// line as "[0xADDRESS] 0xWORD", address incrementing by 4 each line —
// the "x" command's format, grounded on the reference debugger's cmd_x.
func DumpWords(addr uint32, count int, read func(uint32) uint32) []string {
	lines := make([]string, 0, count)
	for i := 0; i < count; i++ {
		lineAddr := addr + uint32(i*4)
		var b strings.Builder
		b.WriteString("[0x")
		Word(&b, lineAddr)
		b.WriteString("] 0x")
		Word(&b, read(lineAddr))
		lines = append(lines, b.String())
	}
	return lines
}

// FormatRegister renders "name = 0xVVVVVVVV".
func FormatRegister(name string, v uint32) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" = 0x")
	Word(&b, v)
	return b.String()
}
