/*
 * rv32sim - Expression evaluator for watchpoints and the `p` command.
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

// Package eval implements the recursive-descent expression evaluator
// used by the monitor's `p` command and by watchpoint predicates:
// decimal and hex integer literals, $name/${name} register references,
// parenthesized sub-expressions, and the operators && (lowest), ==/!=,
// +/-, */ (highest), matching the command/parser tokenizer idiom the
// monitor's own command line parser uses.
package eval

import (
	"fmt"
	"strconv"
	"strings"
)

// Registers resolves a register name (without the leading $ or braces)
// to its current value. The monitor wires this to the CPU's register
// file; tests supply a map-backed stub.
type Registers interface {
	Reg(name string) (uint32, bool)
}

// Error reports an evaluation failure with the offending expression.
type Error struct {
	Expr string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("eval: %s: %s", e.Msg, e.Expr)
}

// Eval parses and evaluates expr against regs. Comparison operators
// (==, !=) return 0 for true and -1 (0xffffffff as a signed int32, i.e.
// all-ones) for false, matching the watchpoint convention that a
// zero-valued predicate means "tripped."
func Eval(expr string, regs Registers) (int32, error) {
	p := &parser{src: strings.TrimSpace(expr), regs: regs}
	v, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, &Error{Expr: expr, Msg: "trailing characters after expression"}
	}
	return v, nil
}

type parser struct {
	src  string
	pos  int
	regs Registers
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peekOp(ops ...string) string {
	p.skipSpace()
	for _, op := range ops {
		if strings.HasPrefix(p.src[p.pos:], op) {
			return op
		}
	}
	return ""
}

// parseAnd handles &&, the lowest-precedence operator. The result is 0
// (true) only when both operands are 0 in the comparison sense (see
// boolVal). The right operand is always parsed and evaluated, even when
// the left one is already false, so an evaluation error on the right (an
// unknown register, a division by zero) is reported in that case too.
func (p *parser) parseAnd() (int32, error) {
	left, err := p.parseCompare()
	if err != nil {
		return 0, err
	}
	for p.peekOp("&&") == "&&" {
		p.skipSpace()
		p.pos += 2
		right, err := p.parseCompare()
		if err != nil {
			return 0, err
		}
		left = boolResult(boolVal(left) && boolVal(right))
	}
	return left, nil
}

func (p *parser) parseCompare() (int32, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peekOp("==", "!=")
		if op == "" {
			return left, nil
		}
		p.skipSpace()
		p.pos += len(op)
		right, err := p.parseAddSub()
		if err != nil {
			return 0, err
		}
		switch op {
		case "==":
			left = boolResult(left == right)
		case "!=":
			left = boolResult(left != right)
		}
	}
}

func (p *parser) parseAddSub() (int32, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peekOp("+", "-")
		if op == "" {
			return left, nil
		}
		p.skipSpace()
		p.pos++
		right, err := p.parseMulDiv()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseMulDiv() (int32, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peekOp("*", "/")
		if op == "" {
			return left, nil
		}
		p.skipSpace()
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == "*" {
			left *= right
		} else {
			if right == 0 {
				return 0, &Error{Expr: p.src, Msg: "division by zero"}
			}
			left /= right
		}
	}
}

func (p *parser) parseUnary() (int32, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (int32, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, &Error{Expr: p.src, Msg: "unexpected end of expression"}
	}

	// A leading '(' here is always the outer pair of a parenthesized
	// sub-expression: recursing immediately and consuming its matching
	// ')' strips redundant outer parens as part of normal descent,
	// rather than needing a separate pre-pass to detect them.
	if p.src[p.pos] == '(' {
		p.pos++
		v, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return 0, &Error{Expr: p.src, Msg: "missing closing parenthesis"}
		}
		p.pos++
		return v, nil
	}

	if p.src[p.pos] == '$' {
		return p.parseRegister()
	}

	return p.parseNumber()
}

func (p *parser) parseRegister() (int32, error) {
	p.pos++ // consume '$'
	braced := false
	if p.pos < len(p.src) && p.src[p.pos] == '{' {
		braced = true
		p.pos++
	}
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if braced {
		if p.pos >= len(p.src) || p.src[p.pos] != '}' {
			return 0, &Error{Expr: p.src, Msg: "missing closing brace in ${...}"}
		}
		p.pos++
	}
	if name == "" {
		return 0, &Error{Expr: p.src, Msg: "empty register name"}
	}
	if p.regs == nil {
		return 0, &Error{Expr: p.src, Msg: "no register context"}
	}
	v, ok := p.regs.Reg(name)
	if !ok {
		return 0, &Error{Expr: p.src, Msg: "unknown register $" + name}
	}
	return int32(v), nil
}

func isNameChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (p *parser) parseNumber() (int32, error) {
	start := p.pos
	if strings.HasPrefix(p.src[p.pos:], "0x") || strings.HasPrefix(p.src[p.pos:], "0X") {
		p.pos += 2
		digStart := p.pos
		for p.pos < len(p.src) && isHexDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == digStart {
			return 0, &Error{Expr: p.src, Msg: "malformed hex literal"}
		}
		v, err := strconv.ParseUint(p.src[digStart:p.pos], 16, 32)
		if err != nil {
			return 0, &Error{Expr: p.src, Msg: "malformed hex literal"}
		}
		return int32(uint32(v)), nil
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, &Error{Expr: p.src[start:], Msg: "expected a number, register, or '('"}
	}
	v, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		return 0, &Error{Expr: p.src, Msg: "malformed decimal literal"}
	}
	return int32(v), nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// boolVal reports the comparison-sense truthiness of v: 0 is true,
// anything else is false, consistent with boolResult below.
func boolVal(v int32) bool { return v == 0 }

// boolResult encodes a boolean as the comparison-family convention: 0
// for true, -1 (all ones) for false.
func boolResult(b bool) int32 {
	if b {
		return 0
	}
	return -1
}
