/*
   Core hart run loop.

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

// Package core drives a hart's fetch/decode/execute loop: the one
// OS-thread-per-hart goroutine that pumps cpu.Hart.Step and reacts to
// out-of-band control traffic (start/stop, alarm ticks, external
// interrupts, a remote debugger attaching), plus the free-standing run
// algorithms -- step, runUntilAddress, simpleRun, snapshotRun and
// whatIfStep -- that a REPL or a batch front end calls directly.
package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcornwell/rvsim/emu/cpu"
	"github.com/rcornwell/rvsim/emu/ctlmsg"
	"github.com/rcornwell/rvsim/emu/event"
)

// Reason identifies why a run algorithm returned control to its caller.
type Reason int

const (
	Stopped Reason = iota
	InstLimitReached
	AddressReached
	ToHostExit
	StuckIllegal
	DebugHalt
	Interrupted
)

func (r Reason) String() string {
	switch r {
	case Stopped:
		return "stopped"
	case InstLimitReached:
		return "instruction limit reached"
	case AddressReached:
		return "target address reached"
	case ToHostExit:
		return "tohost write"
	case StuckIllegal:
		return "stuck in illegal instruction"
	case DebugHalt:
		return "entered debug mode"
	case Interrupted:
		return "keyboard interrupt"
	default:
		return "unknown"
	}
}

// Result reports how a run ended.
type Result struct {
	Reason    Reason
	ExitCode  uint64 // valid when Reason == ToHostExit
	Executed  uint64 // instructions retired during this call
}

// stuckIllegalLimit mirrors the "64 consecutive ILLEGAL_INST with no
// progress" termination signal: a program that traps on the same PC
// this many times in a row is never going to make progress on its own.
const stuckIllegalLimit = 64

// toHostWatch tracks the bytes most recently observed at the tohost
// address, so a run loop only fires once per new nonzero value instead
// of on every poll of an address that stays nonzero.
type toHostWatch struct {
	addr    uint64
	enabled bool
	last    uint64
}

func (w *toHostWatch) check(h *cpu.Hart) (uint64, bool) {
	if !w.enabled {
		return 0, false
	}
	v, err := h.PeekMemory(w.addr, 8)
	if err != nil || v == 0 || v == w.last {
		return 0, false
	}
	w.last = v
	return v, true
}

// stuckTracker watches retirement for repeated ILLEGAL_INST traps at an
// unchanging PC.
type stuckTracker struct {
	lastPC    uint64
	haveLast  bool
	run       int
}

func (s *stuckTracker) observe(h *cpu.Hart) bool {
	cause, taken := h.LastTrap()
	const excIllegalInst = 2
	if !taken || cause != excIllegalInst {
		s.run = 0
		s.haveLast = false
		return false
	}
	if s.haveLast && h.PC == s.lastPC {
		s.run++
	} else {
		s.run = 1
	}
	s.lastPC = h.PC
	s.haveLast = true
	return s.run >= stuckIllegalLimit
}

// step runs exactly one instruction and classifies the outcome against
// the shared termination signals, ahead of whichever caller -- the
// goroutine-driven Runner below, or a batch run algorithm -- invoked it.
// trace, when set, is called with the architectural state captured
// immediately before the instruction retired, alongside the hart's
// post-retirement state, so it can diff the two to report exactly
// which registers/CSRs/memory changed.
func step(h *cpu.Hart, w *toHostWatch, st *stuckTracker, trace func(before cpu.Snapshot, h *cpu.Hart)) Result {
	var before cpu.Snapshot
	if trace != nil {
		before = h.Snapshot()
	}
	halted := h.Step()
	if trace != nil {
		trace(before, h)
	}
	if code, hit := w.check(h); hit {
		return Result{Reason: ToHostExit, ExitCode: code, Executed: 1}
	}
	if st.observe(h) {
		return Result{Reason: StuckIllegal, Executed: 1}
	}
	if halted {
		return Result{Reason: DebugHalt, Executed: 1}
	}
	return Result{Reason: Stopped, Executed: 1}
}

// Step runs exactly one instruction, per spec's "step" run algorithm:
// interrupt check, fetch, decode, execute and trigger/icount checks all
// happen inside cpu.Hart.Step; this wraps it with the tohost and
// stuck-in-illegal termination checks every run loop shares.
func Step(h *cpu.Hart, toHostAddr uint64) Result {
	w := &toHostWatch{addr: toHostAddr, enabled: toHostAddr != 0}
	return step(h, w, &stuckTracker{}, nil)
}

// RunUntilAddress loops Step bodies inlined (no function-call overhead
// beyond what Hart.Step already pays) until pc reaches target, instCap
// instructions have retired, interrupt is flipped true by a SIGINT
// handler, the hart enters debug mode, gets stuck in illegal
// instruction, or writes a nonzero value to the tohost address.
// instCap of zero means unlimited. trace, if non-nil, is called once
// per retired instruction for trace-record emission.
func RunUntilAddress(h *cpu.Hart, target uint64, instCap uint64, toHostAddr uint64, interrupt *int32, trace func(before cpu.Snapshot, h *cpu.Hart)) Result {
	w := &toHostWatch{addr: toHostAddr, enabled: toHostAddr != 0}
	st := &stuckTracker{}
	var executed uint64
	for {
		if h.PC == target {
			return Result{Reason: AddressReached, Executed: executed}
		}
		if instCap != 0 && executed >= instCap {
			return Result{Reason: InstLimitReached, Executed: executed}
		}
		if interrupt != nil && atomic.LoadInt32(interrupt) != 0 {
			return Result{Reason: Interrupted, Executed: executed}
		}
		r := step(h, w, st, trace)
		executed++
		if r.Reason != Stopped {
			r.Executed = executed
			return r
		}
	}
}

// SimpleRun is the streamlined inner loop: no tracing, no per-step
// accounting beyond the instruction-count cap itself, for maximum
// throughput when none of the debug machinery is in use. It still
// honours interrupt and instCap since those are checked at the same
// loop boundary the architecture defines, not part of the per-step
// debug overhead being skipped.
func SimpleRun(h *cpu.Hart, instCap uint64, interrupt *int32) Result {
	var executed uint64
	for {
		if instCap != 0 && executed >= instCap {
			return Result{Reason: InstLimitReached, Executed: executed}
		}
		if interrupt != nil && atomic.LoadInt32(interrupt) != 0 {
			return Result{Reason: Interrupted, Executed: executed}
		}
		if halted := h.Step(); halted {
			return Result{Reason: DebugHalt, Executed: executed + 1}
		}
		executed++
	}
}

// SnapshotRun caps each internal run at period instructions, then
// serializes the hart's full state to dir before resuming, until
// totalCap instructions have retired (0 = unlimited) or interrupt
// fires. Snapshots are named snapshot-<n>.json in dir.
func SnapshotRun(h *cpu.Hart, period uint64, totalCap uint64, dir string, interrupt *int32) (Result, error) {
	if period == 0 {
		return Result{}, fmt.Errorf("snapshot period must be positive")
	}
	var executed uint64
	var n int
	for {
		batch := period
		if totalCap != 0 && totalCap-executed < batch {
			batch = totalCap - executed
		}
		r := SimpleRun(h, batch, interrupt)
		executed += r.Executed
		if err := saveSnapshot(h, dir, n); err != nil {
			return Result{Reason: r.Reason, Executed: executed}, err
		}
		n++
		if r.Reason != InstLimitReached || (totalCap != 0 && executed >= totalCap) {
			return Result{Reason: r.Reason, Executed: executed}, nil
		}
	}
}

func saveSnapshot(h *cpu.Hart, dir string, n int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(h.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("snapshot-%04d.json", n))
	return os.WriteFile(path, b, 0o644)
}

// LoadSnapshot restores a hart's state from a snapshot file written by
// SnapshotRun.
func LoadSnapshot(h *cpu.Hart, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var s cpu.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	h.Restore(s)
	return nil
}

// ChangeRecord captures everything whatIfStep changed, so the caller
// can inspect it before the hart's state is rewound.
type ChangeRecord struct {
	Before cpu.Snapshot
	After  cpu.Snapshot
	Trap   Result
}

// WhatIfStep executes one instruction, captures the full before/after
// architectural state, then restores Before so the instruction never
// actually committed. This only reverts register and CSR state; any
// memory store the instruction performed stands (the architecture
// gives no cheaper way to snapshot an entire address space per step,
// so this is for register-only "what would this do" probing).
func WhatIfStep(h *cpu.Hart) ChangeRecord {
	before := h.Snapshot()
	halted := h.Step()
	after := h.Snapshot()
	reason := Stopped
	if halted {
		reason = DebugHalt
	}
	h.Restore(before)
	return ChangeRecord{Before: before, After: after, Trap: Result{Reason: reason, Executed: 1}}
}

// Runner is the goroutine-driven front end to a hart: one OS thread of
// control reacting to ctlmsg.Packet traffic (start/stop, alarm ticks,
// external interrupts, debug-server connect/disconnect), the same shape
// a single dedicated CPU goroutine keeps.
type Runner struct {
	wg      sync.WaitGroup
	done    chan struct{}
	running bool

	hart *cpu.Hart
	ctl  chan ctlmsg.Packet

	// events fires instruction-count-deferred callbacks, advanced one
	// tick per retired instruction: the internal (retirement-counted)
	// timer interrupts hang off it. Touched only from the run-loop
	// goroutine; callers arm timers by posting ArmIntTimer packets.
	events *event.Scheduler

	ToHostAddr uint64
	Trace      func(before cpu.Snapshot, h *cpu.Hart)

	interrupt int32
}

// New builds a Runner around hart, fed control packets on ctl.
func New(hart *cpu.Hart, ctl chan ctlmsg.Packet) *Runner {
	return &Runner{
		hart:   hart,
		ctl:    ctl,
		done:   make(chan struct{}),
		events: event.New(),
	}
}

// Start launches the run-loop goroutine. The hart idles (consuming
// control packets but not stepping) until a Start packet arrives.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.loop()
}

func (r *Runner) loop() {
	defer r.wg.Done()
	w := &toHostWatch{addr: r.ToHostAddr, enabled: r.ToHostAddr != 0}
	st := &stuckTracker{}
	for {
		if r.running && atomic.CompareAndSwapInt32(&r.interrupt, 1, 0) {
			slog.Info("hart run interrupted", "hart", r.hart.ID)
			r.running = false
		}
		if r.running {
			res := step(r.hart, w, st, r.Trace)
			r.events.Advance(1)
			if res.Reason != Stopped {
				slog.Info("hart run stopped", "hart", r.hart.ID, "reason", res.Reason.String())
				r.running = false
			}
		}
		select {
		case <-r.done:
			slog.Info("hart shut down", "hart", r.hart.ID)
			return
		case packet := <-r.ctl:
			r.process(packet)
		default:
		}
	}
}

func (r *Runner) process(p ctlmsg.Packet) {
	switch p.Msg {
	case ctlmsg.Start:
		r.running = true
	case ctlmsg.Stop:
		r.running = false
	case ctlmsg.ExternalIRQ:
		r.hart.SetExternalInterrupt(p.IRQ != 0)
	case ctlmsg.AlarmTick:
		r.hart.SetTimerInterrupt(true)
	case ctlmsg.ArmIntTimer0:
		r.armIntTimer(0, p.Period)
	case ctlmsg.ArmIntTimer1:
		r.armIntTimer(1, p.Period)
	}
}

const (
	eventIntTimer0 = iota
	eventIntTimer1
)

// armIntTimer schedules an internal timer interrupt after period
// retired instructions; a period of zero cancels a pending one. The
// timer re-arms itself on fire, so one packet establishes a periodic
// interrupt source.
func (r *Runner) armIntTimer(which, period int) {
	id := eventIntTimer0 + which
	r.events.Cancel(id)
	if period <= 0 {
		return
	}
	var fire event.Callback
	fire = func(int) {
		if which == 0 {
			r.hart.SetIntTimer0Interrupt(true)
		} else {
			r.hart.SetIntTimer1Interrupt(true)
		}
		r.events.Add(id, fire, period)
	}
	r.events.Add(id, fire, period)
}

// Stop tears down the run-loop goroutine, waiting up to a second.
func (r *Runner) Stop() {
	close(r.done)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("timed out waiting for hart run loop to finish", "hart", r.hart.ID)
	}
}

// Interrupt requests the run loop stop at the next step boundary, the
// cooperative SIGINT handoff the architecture's concurrency model calls
// for instead of a hard cancellation.
func (r *Runner) Interrupt() { atomic.StoreInt32(&r.interrupt, 1) }
