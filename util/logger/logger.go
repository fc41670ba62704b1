/*
 * rv32sim - Wrapper for slog
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

// Package logger wraps log/slog with a handler that fans records out to
// an optional log file and, for warnings/errors (or when debug mode is
// on), to stderr as well. The monitor and simulator driver log command
// dispatch and fatal transitions through this handler in addition to the
// plain-text console protocol they print directly.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is a slog.Handler that serializes records as single lines of
// "<timestamp> <LEVEL>: <message> <attrs...>" and fans them out to a log
// file (if one is configured) and, selectively, to stderr.
type Handler struct {
	file  io.Writer
	text  slog.Handler
	mu    sync.Mutex
	debug bool
}

// New builds a Handler. file may be nil to disable file logging
// entirely (stderr fan-out for warnings/errors still happens). When
// debug is true every record — not just warnings and errors — is also
// echoed to stderr.
func New(file io.Writer, opts *slog.HandlerOptions, debug bool) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	target := file
	if target == nil {
		target = io.Discard
	}
	return &Handler{
		file: file,
		text: slog.NewTextHandler(target, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: opts.AddSource,
		}),
		debug: debug,
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.text.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{file: h.file, text: h.text.WithAttrs(attrs), debug: h.debug}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{file: h.file, text: h.text.WithGroup(name), debug: h.debug}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	parts := []string{r.Time.Format("2006/01/02 15:04:05"), r.Level.String() + ":", r.Message}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.Key+"="+a.Value.String())
		return true
	})
	line := []byte(strings.Join(parts, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.file != nil {
		_, err = h.file.Write(line)
	}
	if h.debug || r.Level >= slog.LevelWarn {
		if _, werr := os.Stderr.Write(line); err == nil {
			err = werr
		}
	}
	return err
}

// SetDebug toggles whether every record (not just warnings/errors) is
// echoed to stderr.
func (h *Handler) SetDebug(debug bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.debug = debug
}
