/*
 * rv32sim - Command-line configuration surface.
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

// Package config holds the minimal set of start-up knobs the monitor
// needs: where to find the guest image, how big memory is, and where to
// log. There is no configuration file format of our own — flags parsed
// by cmd/rv32mon/main.go via getopt are the entire surface, unlike the
// teacher's config/configparser package which loads an INI-style device
// configuration file (out of scope here: there are no peripheral
// devices to configure).
package config

// Values holds the resolved configuration for one simulator run.
type Values struct {
	ImagePath string
	MemBase   uint32
	MemSize   uint32
	Randomize bool
	LogFile   string
	Batch     bool
	DebugMask uint32
}

// Default returns the baseline configuration before flags are applied:
// a 1 MiB region based at 0x80000000, matching common RISC-V bring-up
// images.
func Default() Values {
	return Values{
		MemBase: 0x80000000,
		MemSize: 1 << 20,
	}
}
