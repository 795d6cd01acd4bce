/*
   Debug session state shared by the interactive command set and the
   remote debug listener.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package session plays the role a shared Command interface once played
// for a channel-attached unit-record device: the one shared handle every
// command implementation is given, here wrapping a hart and its run
// loop instead of an I/O device.
package session

import (
	"io"
	"os"

	"github.com/rcornwell/rvsim/emu/core"
	"github.com/rcornwell/rvsim/emu/cpu"
	"github.com/rcornwell/rvsim/emu/ctlmsg"
	"github.com/rcornwell/rvsim/emu/decode"
	"github.com/rcornwell/rvsim/util/debug"
)

// Session is the debugger's view of one running hart.
type Session struct {
	Hart       *cpu.Hart
	Runner     *core.Runner
	Ctl        chan ctlmsg.Packet
	ToHostAddr uint64
	Tracer     *debug.Tracer
	Digits     int

	// Out is where command output is written: os.Stdout for the local
	// console reader, a net.Conn for a remote debug-server client.
	Out io.Writer
}

// New builds a Session around an already-started Runner, writing
// command output to stdout.
func New(h *cpu.Hart, r *core.Runner, ctl chan ctlmsg.Packet, toHostAddr uint64, tracer *debug.Tracer, digits int) *Session {
	return &Session{Hart: h, Runner: r, Ctl: ctl, ToHostAddr: toHostAddr, Tracer: tracer, Digits: digits, Out: os.Stdout}
}

// WithOutput returns a shallow copy of sess writing command output to w,
// for a remote debug-server connection sharing the same hart.
func (s *Session) WithOutput(w io.Writer) *Session {
	cp := *s
	cp.Out = w
	return &cp
}

// Step executes exactly one instruction; the caller must have the
// Runner stopped first, since Step drives the hart directly rather
// than through the run-loop goroutine.
func (s *Session) Step() core.Result {
	return core.Step(s.Hart, s.ToHostAddr)
}

// Continue resumes the run-loop goroutine.
func (s *Session) Continue() { s.Ctl <- ctlmsg.Packet{Msg: ctlmsg.Start} }

// StopRun pauses the run-loop goroutine without tearing it down.
func (s *Session) StopRun() { s.Ctl <- ctlmsg.Packet{Msg: ctlmsg.Stop} }

// Disassemble fetches and decodes the instruction at pc without
// advancing any state, for the command set's "unassemble" style
// command and for trace-free single-instruction inspection.
func (s *Session) Disassemble(pc uint64) (decode.Decoded, error) {
	return s.Hart.DecodeAt(pc)
}
