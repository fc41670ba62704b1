/*
 * rv32sim - Main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/rv32sim/config"
	"github.com/rcornwell/rv32sim/emu/core"
	"github.com/rcornwell/rv32sim/emu/cpu"
	"github.com/rcornwell/rv32sim/emu/memory"
	"github.com/rcornwell/rv32sim/monitor"
	"github.com/rcornwell/rv32sim/util/logger"
)

func main() {
	cfg := config.Default()

	optImage := getopt.StringLong("image", 'i', "", "Guest program image to load")
	optLog := getopt.StringLong("log", 'l', "", "Log file")
	optMemBase := getopt.Uint32Long("membase", 'b', cfg.MemBase, "Base address of guest memory")
	optMemSize := getopt.Uint32Long("memsize", 's', cfg.MemSize, "Size in bytes of guest memory")
	optRandomize := getopt.BoolLong("randomize", 'r', "Fill memory with pseudo-random words before loading")
	optBatch := getopt.BoolLong("batch", 0, "Run to completion noninteractively instead of opening the monitor")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	cfg.ImagePath = *optImage
	cfg.LogFile = *optLog
	cfg.MemBase = *optMemBase
	cfg.MemSize = *optMemSize
	cfg.Randomize = *optRandomize
	cfg.Batch = *optBatch

	var logFile *os.File
	if cfg.LogFile != "" {
		var err error
		logFile, err = os.Create(cfg.LogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rv32mon: cannot create log file:", err)
			os.Exit(1)
		}
	}

	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	handler := logger.New(logFile, &slog.HandlerOptions{Level: programLevel}, false)
	log := slog.New(handler)
	slog.SetDefault(log)

	log.Info("rv32sim started", "membase", cfg.MemBase, "memsize", cfg.MemSize)

	mem := memory.New(cfg.MemBase, cfg.MemSize, cfg.Randomize)
	if cfg.ImagePath != "" {
		image, err := os.ReadFile(cfg.ImagePath)
		if err != nil {
			log.Error("cannot read guest image", "path", cfg.ImagePath, "error", err.Error())
			os.Exit(1)
		}
		if err := mem.LoadImage(image); err != nil {
			log.Error("cannot load guest image", "error", err.Error())
			os.Exit(1)
		}
	}

	c := cpu.New()
	c.PC = cfg.MemBase
	driver := core.New(c, mem)

	mon := monitor.New(driver, c, mem, func(s string) { fmt.Println(s) })

	if cfg.Batch {
		stats := driver.Run(core.Forever)
		fmt.Printf("%s after %d instruction(s) in %s\n", driver.State(), stats.Instructions, stats.Elapsed)
		if driver.State() == core.Aborted {
			for _, l := range driver.DumpTrace() {
				fmt.Println("  " + l)
			}
			os.Exit(1)
		}
		return
	}

	monitor.ConsoleReader(mon)
	log.Info("rv32sim exiting")
}
