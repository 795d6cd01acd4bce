/*
 * rvsim - Debug/trace options configuration.
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

// Package debugconfig registers the trace-file switch against
// hartconfig's post-load hook list, the same self-registering shape the
// teacher used to wire "DEBUGFILE" and "DEBUG" directives into its own
// config parser from an unrelated package's init().
package debugconfig

import (
	"fmt"
	"os"

	"github.com/rcornwell/rvsim/config/hartconfig"
	"github.com/rcornwell/rvsim/util/debug"
)

func init() {
	hartconfig.RegisterHook(openTrace)
}

// openTrace opens cfg.Trace, if set, and attaches a Tracer sized for
// this configuration's address width. A config with no trace file set
// leaves cfg.Tracer nil; callers must check before using it.
func openTrace(cfg *hartconfig.Config) error {
	if cfg.Trace == "" {
		return nil
	}
	f, err := os.Create(cfg.Trace)
	if err != nil {
		return fmt.Errorf("debugconfig: opening trace file %s: %w", cfg.Trace, err)
	}
	cfg.Tracer = debug.New(f, cfg.TraceDigits())
	return nil
}
