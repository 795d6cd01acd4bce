/*
 * rvsim - instruction-trace regression diffing.
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

// Package tracecompare diffs two instruction-trace logs produced by
// util/debug.Tracer, reporting the first retired instruction at which
// they diverge. It exists to regression-test a run against a reference
// trace captured from a known-good build or a second implementation.
package tracecompare

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Divergence describes the first point at which two traces disagree.
type Divergence struct {
	Line     int    // 1-based line number in both logs
	Expected string // line from the reference log, "" if it ran out first
	Actual   string // line from the candidate log, "" if it ran out first
}

func (d Divergence) String() string {
	return fmt.Sprintf("line %d: expected %q, got %q", d.Line, d.Expected, d.Actual)
}

// Compare reads reference and candidate line by line and returns the
// first Divergence found, or nil if every line matches and both logs
// end at the same point. A continuation line ("  +") is compared like
// any other line, and a mismatch on one is reported by its line number
// the same way.
func Compare(reference, candidate io.Reader) (*Divergence, error) {
	ref := bufio.NewScanner(reference)
	cand := bufio.NewScanner(candidate)

	line := 0
	for {
		line++
		refOK := ref.Scan()
		candOK := cand.Scan()
		if !refOK && !candOK {
			if err := ref.Err(); err != nil {
				return nil, err
			}
			if err := cand.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		refLine := ref.Text()
		candLine := cand.Text()
		if !refOK {
			refLine = ""
		}
		if !candOK {
			candLine = ""
		}
		if refLine != candLine {
			return &Divergence{Line: line, Expected: refLine, Actual: candLine}, nil
		}
		if !refOK || !candOK {
			return nil, nil
		}
	}
}

// IsContinuation reports whether line is a trace continuation line
// ("  +") rather than the start of a new retired instruction's record.
func IsContinuation(line string) bool {
	return strings.TrimRight(line, "\r\n") == "  +"
}
