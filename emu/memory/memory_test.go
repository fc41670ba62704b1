package memory

/*
 * rv32sim - Physical memory subsystem tests.
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
	"errors"
	"testing"
)

const testBase = 0x80000000

func TestInBounds(t *testing.T) {
	m := New(testBase, 4096, false)
	cases := []struct {
		addr uint32
		want bool
	}{
		{testBase, true},
		{testBase + 4095, true},
		{testBase + 4096, false},
		{testBase - 1, false},
	}
	for _, c := range cases {
		if got := m.InBounds(c.addr); got != c.want {
			t.Errorf("InBounds(0x%x) = %v, want %v", c.addr, got, c.want)
		}
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	m := New(testBase, 4096, false)
	sizes := []int{1, 2, 4}
	for _, size := range sizes {
		var want uint32 = 0xdeadbeef
		if size < 4 {
			want &= (1 << (8 * size)) - 1
		}
		if err := m.Write(testBase+0x10, size, 0xdeadbeef); err != nil {
			t.Fatalf("Write size %d: %v", size, err)
		}
		got, err := m.Read(testBase+0x10, size, AccessData)
		if err != nil {
			t.Fatalf("Read size %d: %v", size, err)
		}
		if got != want {
			t.Errorf("size %d: got 0x%x, want 0x%x", size, got, want)
		}
	}
}

func TestUnalignedAccess(t *testing.T) {
	m := New(testBase, 4096, false)
	if err := m.Write(testBase, 4, 0x11223344); err != nil {
		t.Fatal(err)
	}
	got, err := m.Read(testBase+1, 2, AccessData)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint32(0x2233); got != want {
		t.Errorf("unaligned read got 0x%x, want 0x%x", got, want)
	}
}

func TestOutOfBoundWithoutMMIO(t *testing.T) {
	m := New(testBase, 4096, false)
	_, err := m.Read(testBase+8192, 4, AccessData)
	var oob *OutOfBoundError
	if !errors.As(err, &oob) {
		t.Fatalf("expected *OutOfBoundError, got %v", err)
	}
}

type fakeMMIO struct {
	readVal uint32
	wrote   uint32
}

func (f *fakeMMIO) Read(addr uint32, size int) (uint32, error) {
	return f.readVal, nil
}

func (f *fakeMMIO) Write(addr uint32, size int, data uint32) error {
	f.wrote = data
	return nil
}

func TestReadStraddlingEndOfRegion(t *testing.T) {
	m := New(testBase, 4, false)
	_, err := m.Read(testBase+2, 4, AccessData)
	var oob *OutOfBoundError
	if !errors.As(err, &oob) {
		t.Fatalf("expected *OutOfBoundError for a read straddling the end of the region, got %v", err)
	}
}

func TestWriteStraddlingEndOfRegion(t *testing.T) {
	m := New(testBase, 4, false)
	err := m.Write(testBase+2, 4, 0xdeadbeef)
	var oob *OutOfBoundError
	if !errors.As(err, &oob) {
		t.Fatalf("expected *OutOfBoundError for a write straddling the end of the region, got %v", err)
	}
}

func TestMMIODelegation(t *testing.T) {
	m := New(testBase, 4096, false)
	mmio := &fakeMMIO{readVal: 0x42}
	m.SetMMIO(mmio)

	got, err := m.Read(testBase+0x10000, 4, AccessData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x42 {
		t.Errorf("got 0x%x, want 0x42", got)
	}

	if err := m.Write(testBase+0x10000, 4, 0x99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mmio.wrote != 0x99 {
		t.Errorf("mmio wrote 0x%x, want 0x99", mmio.wrote)
	}
}

func TestDumpTraceOrderAndMarker(t *testing.T) {
	m := New(testBase, 4096, false)
	for i := range 3 {
		_, _ = m.Read(testBase+uint32(i), 1, AccessData)
	}
	lines := m.DumpTrace()
	if len(lines) != traceDepth {
		t.Fatalf("got %d trace lines, want %d", len(lines), traceDepth)
	}
	marked := 0
	for _, l := range lines {
		if len(l) >= 6 && l[:6] == " ---> " {
			marked++
		}
	}
	if marked != 1 {
		t.Errorf("expected exactly one marked newest entry, got %d", marked)
	}
}

func TestLoadImage(t *testing.T) {
	m := New(testBase, 16, false)
	if err := m.LoadImage([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	got, err := m.Read(testBase, 4, AccessData)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint32(0x04030201); got != want {
		t.Errorf("got 0x%x, want 0x%x", got, want)
	}

	if err := m.LoadImage(make([]byte, 17)); err == nil {
		t.Error("expected error loading oversized image")
	}
}
