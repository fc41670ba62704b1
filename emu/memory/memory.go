/*
 * rv32sim - Physical memory subsystem.
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

// Package memory implements the guest-physical memory region: a flat byte
// array with bounds-checked little-endian 1/2/4 byte accesses, an MMIO
// dispatch seam for addresses outside the backing store, and a bounded
// ring trace of recent accesses for post-mortem reporting.
package memory

import (
	"fmt"
	"math/rand"
)

// AccessType distinguishes an instruction fetch from a data access; the
// two are tagged differently in the access trace (see Read).
type AccessType int

const (
	// AccessData marks an ordinary load/store.
	AccessData AccessType = iota
	// AccessFetch marks an instruction fetch.
	AccessFetch
)

// traceDepth is the number of slots in the access trace ring.
const traceDepth = 11

// MMIO is the external seam for addresses outside the backing store.
// Implementations are supplied by the embedder; this package never
// implements one itself.
type MMIO interface {
	Read(addr uint32, size int) (uint32, error)
	Write(addr uint32, size int, data uint32) error
}

// OutOfBoundError is returned (and fatal to the simulator) when an access
// falls outside the backing store and no MMIO handler claims it.
type OutOfBoundError struct {
	Addr uint32
	Size int
}

func (e *OutOfBoundError) Error() string {
	return fmt.Sprintf("memory: out of bound access at 0x%08x (size %d)", e.Addr, e.Size)
}

// Memory is a contiguous guest-physical byte array with a fixed base
// address. It is not goroutine safe; the sole simulation thread owns it.
type Memory struct {
	base  uint32
	bytes []byte
	mmio  MMIO

	trace  [traceDepth]string
	cursor int
}

// New allocates a Memory region of size bytes starting at base. When
// randomize is set the backing store is seeded with pseudo-random words,
// matching uninitialized-memory behavior on real hardware.
func New(base, size uint32, randomize bool) *Memory {
	m := &Memory{
		base:  base,
		bytes: make([]byte, size),
	}
	if randomize {
		for i := 0; i+4 <= len(m.bytes); i += 4 {
			word := rand.Uint32() //nolint:gosec // deterministic PRNG is fine for scratch memory fill
			m.bytes[i] = byte(word)
			m.bytes[i+1] = byte(word >> 8)
			m.bytes[i+2] = byte(word >> 16)
			m.bytes[i+3] = byte(word >> 24)
		}
	}
	return m
}

// SetMMIO installs the dispatch seam for addresses outside the backing
// store. Passing nil disables MMIO delegation.
func (m *Memory) SetMMIO(h MMIO) {
	m.mmio = h
}

// Base returns MBASE.
func (m *Memory) Base() uint32 {
	return m.base
}

// Size returns MSIZE.
func (m *Memory) Size() uint32 {
	return uint32(len(m.bytes))
}

// InBounds reports whether addr is within [MBASE, MBASE+MSIZE).
func (m *Memory) InBounds(addr uint32) bool {
	return addr >= m.base && addr < m.base+uint32(len(m.bytes))
}

// rangeInBounds reports whether the whole size-byte access starting at
// addr falls within [MBASE, MBASE+MSIZE), not just its first byte — a
// load or store can start inside the region and still run off the end.
func (m *Memory) rangeInBounds(addr uint32, size int) bool {
	if !m.InBounds(addr) {
		return false
	}
	end := addr + uint32(size)
	return end >= addr && end <= m.base+uint32(len(m.bytes))
}

// GuestToHost converts a guest-physical address to a byte offset into the
// backing store. The caller must have already checked InBounds.
func (m *Memory) GuestToHost(addr uint32) int {
	return int(addr - m.base)
}

// HostToGuest converts a byte offset back into a guest-physical address.
func (m *Memory) HostToGuest(off int) uint32 {
	return m.base + uint32(off)
}

// Read performs a little-endian read of size (1, 2 or 4) bytes at addr.
// Every read, fetch or data, is pushed to the trace ring before the
// access is performed; out-of-bound accesses with no MMIO handler return
// *OutOfBoundError.
func (m *Memory) Read(addr uint32, size int, kind AccessType) (uint32, error) {
	if kind == AccessFetch {
		m.pushTrace(fmt.Sprintf("fetch  0x%08x (%d bytes)", addr, size))
	} else {
		m.pushTrace(fmt.Sprintf("read   0x%08x (%d bytes)", addr, size))
	}

	if !m.rangeInBounds(addr, size) {
		if m.mmio != nil {
			return m.mmio.Read(addr, size)
		}
		return 0, &OutOfBoundError{Addr: addr, Size: size}
	}

	off := m.GuestToHost(addr)
	var value uint32
	for i := 0; i < size; i++ {
		value |= uint32(m.bytes[off+i]) << (8 * i)
	}
	return value, nil
}

// Write performs a little-endian write of the low 8*size bits of data to
// addr. Every write is logged to the trace ring.
func (m *Memory) Write(addr uint32, size int, data uint32) error {
	m.pushTrace(fmt.Sprintf("write  0x%08x (%d bytes) <- 0x%08x", addr, size, data))

	if !m.rangeInBounds(addr, size) {
		if m.mmio != nil {
			return m.mmio.Write(addr, size, data)
		}
		return &OutOfBoundError{Addr: addr, Size: size}
	}

	off := m.GuestToHost(addr)
	for i := 0; i < size; i++ {
		m.bytes[off+i] = byte(data >> (8 * i))
	}
	return nil
}

// LoadImage copies image into the backing store starting at MBASE.
func (m *Memory) LoadImage(image []byte) error {
	if len(image) > len(m.bytes) {
		return fmt.Errorf("memory: image of %d bytes does not fit in %d byte region", len(image), len(m.bytes))
	}
	copy(m.bytes, image)
	return nil
}

// pushTrace overwrites the slot at the cursor and advances it.
func (m *Memory) pushTrace(line string) {
	m.trace[m.cursor] = line
	m.cursor = (m.cursor + 1) % traceDepth
}

// DumpTrace renders the access ring oldest-first, marking the
// newest-pushed entry. Empty slots render as a sentinel line.
func (m *Memory) DumpTrace() []string {
	out := make([]string, 0, traceDepth)
	newest := (m.cursor - 1 + traceDepth) % traceDepth
	for i := range traceDepth {
		idx := (m.cursor + i) % traceDepth
		line := m.trace[idx]
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
