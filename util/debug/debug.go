/*
 * rvsim - Retired-instruction trace log.
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

// Package debug formats and writes the retired-instruction trace log:
// one line per resource a retired instruction changed, serialized on a
// shared mutex so interleaved harts still produce line-atomic output.
package debug

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rcornwell/rvsim/util/hex"
)

// Kind identifies which resource a trace line reports a change to.
type Kind byte

const (
	KindReg    Kind = 'r' // integer register
	KindFPReg  Kind = 'f' // floating-point register
	KindCSR    Kind = 'c' // control/status register
	KindMemory Kind = 'm' // memory
	KindNone   Kind = 'x' // no resource changed
)

// Record is one line of the trace: a single resource change produced by
// retiring the instruction at PC.
type Record struct {
	Tag    uint64
	Hart   int
	PC     uint64
	Opcode uint32
	Kind   Kind
	Addr   uint64 // register/CSR index for Kind r/f/c; byte address for Kind m
	Value  uint64
	Asm    string
}

// Tracer writes trace records to an underlying file, serialized across
// every hart sharing it. digits is the pc/memory-address hex width: 8
// on RV32, 16 on RV64.
type Tracer struct {
	mu     sync.Mutex
	w      io.Writer
	digits int
}

// New creates a Tracer writing to w with the given address hex width.
func New(w io.Writer, digits int) *Tracer {
	return &Tracer{w: w, digits: digits}
}

// Emit writes one retired instruction's records as a group: every
// record after the first is preceded by a "  +" continuation line, the
// whole group written while holding the tracer's mutex so records from
// other harts never interleave inside it.
func (t *Tracer) Emit(recs ...Record) {
	if len(recs) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, r := range recs {
		if i > 0 {
			fmt.Fprintln(t.w, "  +")
		}
		fmt.Fprintln(t.w, t.format(r))
	}
}

// format renders one record as "#<tag> <hart> <pc> <opcode> <res> <addr>
// <val>  <asm>". addr is printed at register-index width (2 hex digits)
// for r/f records, CSR-index width (3 hex digits) for c records, and
// full address width for m and x records.
func (t *Tracer) format(r Record) string {
	var b strings.Builder
	b.WriteByte('#')
	b.WriteString(strconv.FormatUint(r.Tag, 10))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.Hart))
	b.WriteByte(' ')
	hex.FormatHex(&b, r.PC, t.digits)
	b.WriteByte(' ')
	hex.FormatHex(&b, uint64(r.Opcode), 8)
	b.WriteByte(' ')
	b.WriteByte(byte(r.Kind))
	b.WriteByte(' ')
	hex.FormatHex(&b, r.Addr, addrDigits(r.Kind, t.digits))
	b.WriteByte(' ')
	hex.FormatHex(&b, r.Value, t.digits)
	b.WriteString("  ")
	b.WriteString(r.Asm)
	return b.String()
}

func addrDigits(k Kind, digits int) int {
	switch k {
	case KindReg, KindFPReg:
		return 2
	case KindCSR:
		return 3
	default:
		return digits
	}
}
