/*
   Hart fetch/decode/execute core.

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

// Package cpu implements a single RISC-V hart: its architectural state,
// its fetch/decode/execute loop, and the trap and debug-trigger
// pipelines layered on top of it.
package cpu

import (
	"io"
	"log/slog"
	"os"

	"github.com/rcornwell/rvsim/emu/csr"
	"github.com/rcornwell/rvsim/emu/decode"
	"github.com/rcornwell/rvsim/emu/lsq"
	"github.com/rcornwell/rvsim/emu/memory"
	op "github.com/rcornwell/rvsim/emu/opcode"
	"github.com/rcornwell/rvsim/emu/trigger"
)

// Config describes how to build a Hart.
type Config struct {
	ID          int
	XLEN        XLEN
	ResetPC     uint64
	Memory      *memory.Memory
	DecodeCache int
	LSQDepth    int
	Triggers    int
	EnableF     bool
	EnableD     bool
	CSRs        map[uint16]csr.Entry

	NmiPC uint64 // fixed NMI handler address

	// ConsoleIO, when non-zero, is the magic address whose byte loads
	// read from ConsoleIn and whose byte stores echo to ConsoleOut
	// (defaulting to stdin/stdout).
	ConsoleIO  uint64
	ConsoleIn  io.Reader
	ConsoleOut io.Writer

	LRRequireDCCM  bool // LR outside DCCM raises a load access fault
	DCCMCrossCheck bool // base/effective region DCCM mismatch on a load raises a fault

	StackCheck bool // if true, loads through sp are bounds-checked against [StackMin, StackMax]
	StackMin   uint64
	StackMax   uint64
}

// New builds a Hart from cfg.
func New(cfg Config) *Hart {
	if cfg.XLEN == 0 {
		cfg.XLEN = XLEN64
	}
	if cfg.DecodeCache == 0 {
		cfg.DecodeCache = 256
	}
	if cfg.LSQDepth == 0 {
		cfg.LSQDepth = 8
	}
	if cfg.Triggers == 0 {
		cfg.Triggers = 4
	}
	h := &Hart{
		ID:          cfg.ID,
		xlen:        cfg.XLEN,
		mem:         cfg.Memory,
		decodeCache: decode.NewCache(cfg.DecodeCache),
		triggers:    trigger.NewUnit(cfg.Triggers),
		loadQ:       lsq.New(cfg.LSQDepth),
		storeQ:      lsq.New(cfg.LSQDepth),
		haltOnReset: cfg.ResetPC,
		fEnabled:    cfg.EnableF,
		dEnabled:    cfg.EnableD,

		nmiPc:  cfg.NmiPC,
		conIo:  cfg.ConsoleIO,
		conIn:  cfg.ConsoleIn,
		conOut: cfg.ConsoleOut,

		lrRequireDccm:  cfg.LRRequireDCCM,
		dccmCrossCheck: cfg.DCCMCrossCheck,

		stackCheckEnabled: cfg.StackCheck,
		stackMin:          cfg.StackMin,
		stackMax:          cfg.StackMax,
	}
	if h.conIn == nil {
		h.conIn = os.Stdin
	}
	if h.conOut == nil {
		h.conOut = os.Stdout
	}
	if h.xlen == XLEN32 {
		h.mask = 0xffffffff
	} else {
		h.mask = 0xffffffffffffffff
	}
	entries := cfg.CSRs
	if entries == nil {
		entries = DefaultCSRs(cfg.XLEN)
	}
	h.csr = csr.NewFile(entries)
	if h.mem != nil {
		h.mem.OnWrite(func(addr uint64, size int) {
			h.decodeCache.Invalidate(addr, size)
		})
	}
	h.buildTable()
	h.Reset()
	return h
}

// Reset restores architectural state to its power-on values.
func (h *Hart) Reset() {
	h.PC = h.haltOnReset
	h.regs = [32]uint64{}
	h.fpregs = [32]uint64{}
	h.priv = csr.Machine
	h.csr.Reset()
	h.mcycle = 0
	h.minstret = 0
	h.halted = false
	h.waitingWFI = false
	h.singleStep = false
	h.forceFetchFault = false
	h.nmi = nmiState{}
	h.loadQ.Reset()
	h.storeQ.Reset()
	h.decodeCache.InvalidateAll()
}

func (h *Hart) mask64(v uint64) uint64 { return v & h.mask }

// reg reads an integer register, with x0 hardwired to zero.
func (h *Hart) reg(n uint8) uint64 {
	if n == 0 {
		return 0
	}
	return h.regs[n] & h.mask
}

// setReg writes an integer register; writes to x0 are discarded. Any
// load-queue entry still speculating on n's old value is invalidated:
// once the register has been written again, there is nothing left for
// an imprecise bus error to roll back to.
func (h *Hart) setReg(n uint8, v uint64) {
	if n == 0 {
		return
	}
	h.regs[n] = v & h.mask
	h.loadQ.ForEach(func(e *lsq.Entry) {
		if !e.IsStore && e.RegIx == n {
			e.Valid = false
		}
	})
}

func signExtend64(v uint64, bits uint) uint64 {
	shift := 64 - bits
	return uint64(int64(v<<shift) >> shift)
}

// fetchDecode fetches and decodes the instruction at pc, consulting and
// filling the decode cache.
func (h *Hart) fetchDecode(pc uint64) (decode.Decoded, uint16) {
	if h.forceFetchFault {
		h.forceFetchFault = false
		h.pendingTval = pc + h.forceFetchOffset
		return decode.Decoded{}, trapTaken(excInstAccessFault)
	}
	if dec, ok := h.decodeCache.Lookup(pc); ok {
		return dec, h.ok2okTrap(dec)
	}
	low, err := h.mem.FetchHalf(pc)
	if err != nil {
		if err == memory.ErrMisaligned {
			h.pendingTval = pc
			return decode.Decoded{}, trapTaken(excInstAddrMisaligned)
		}
		h.pendingTval = pc
		return decode.Decoded{}, trapTaken(excInstAccessFault)
	}
	var dec decode.Decoded
	if decode.IsCompressed(low) {
		dec = decode.Decode16(low)
	} else {
		if attr, ok := h.mem.RegionAttr(pc); ok {
			if hiAttr, hiOk := h.mem.RegionAttr(pc + 2); !hiOk || (attr&memory.ICCM) != (hiAttr&memory.ICCM) {
				// The instruction's two halfwords cross an ICCM boundary
				// into non-ICCM memory (or vice versa): neither half is
				// individually a bus error, but the pair can never be
				// fetched as one atomic instruction.
				h.pendingTval = pc + 2
				return decode.Decoded{}, trapTaken(excInstAccessFault)
			}
		}
		hi, err := h.mem.FetchHalf(pc + 2)
		if err != nil {
			h.pendingTval = pc + 2
			return decode.Decoded{}, trapTaken(excInstAccessFault)
		}
		word := uint32(low) | uint32(hi)<<16
		dec = decode.Decode32(word)
	}
	h.decodeCache.Insert(pc, dec)
	return dec, h.ok2okTrap(dec)
}

func (h *Hart) ok2okTrap(dec decode.Decoded) uint16 {
	if dec.Op == op.OpIllegal {
		h.pendingTval = uint64(dec.Raw)
		return trapTaken(excIllegalInst)
	}
	return ok
}

// Step fetches, decodes and executes exactly one instruction, handling
// any trap or debug-trigger hit it raises. It returns true if the hart
// is now halted in debug mode.
func (h *Hart) Step() bool {
	if h.halted {
		return true
	}
	if h.checkPendingInterrupt() {
		return h.halted
	}
	if h.waitingWFI {
		return h.halted
	}

	if h.triggers.CheckFetch(h.PC, uint8(h.priv)) {
		if h.triggers.FiredBreak() {
			h.pendingTval = h.PC
			h.lastTrapTaken = true
			h.lastTrapCause = excBreakpoint
			h.takeException(excBreakpoint, h.PC)
			return h.halted
		}
		h.enterDebug(dbgCauseTrigger, h.PC)
		return true
	}

	h.triggerHit = false
	h.lastTrapTaken = false
	h.lastBranchTaken = false

	pc := h.PC
	dec, trap := h.fetchDecode(pc)
	step := &stepInfo{dec: dec, pc: pc, next: pc + uint64(dec.Length)}
	if dec.Length == 0 {
		step.next = pc + 4
	}

	if trap == ok {
		fn := h.table[dec.Op]
		if fn == nil {
			trap = trapTaken(excIllegalInst)
		} else {
			trap = fn(h, step)
		}
	}

	if trap != ok {
		h.lastTrapTaken = true
		h.lastTrapCause = trapCauseFromReturn(trap)
		// ecall and ebreak still count as retired even though they trap;
		// every other cause inhibits the retirement counters.
		switch h.lastTrapCause {
		case excECallU, excECallS, excECallM, excBreakpoint:
			h.mcycle++
			h.minstret++
		}
		h.takeException(h.lastTrapCause, h.PC)
		return h.halted
	}

	h.PC = step.next
	h.mcycle++
	h.minstret++
	h.perfTick(dec)
	if h.triggerHit || h.triggers.TickICount() {
		if h.triggers.FiredBreak() {
			h.pendingTval = pc
			h.lastTrapTaken = true
			h.lastTrapCause = excBreakpoint
			h.takeException(excBreakpoint, pc)
			return h.halted
		}
		h.enterDebug(dbgCauseTrigger, h.PC)
		return true
	}
	if h.singleStep {
		h.singleStep = false
		h.enterDebug(dbgCauseStep, h.PC)
		return true
	}
	return h.halted
}

// perfTick bumps every event-count CSR whose selected event matched the
// instruction that just committed. Counters with a zero event selector
// never tick; a trapped instruction never reaches here, so counting is
// naturally disabled during exception delivery.
func (h *Hart) perfTick(dec decode.Decoded) {
	for i := 0; i < 4; i++ {
		ev := h.csr.RawGet(uint16(csr.Mhpmevent3 + i))
		if ev == 0 || !perfEventMatch(ev, dec, h.lastBranchTaken) {
			continue
		}
		ctr := uint16(csr.Mhpmcounter3 + i)
		h.csr.RawSet(ctr, h.csr.RawGet(ctr)+1)
	}
}

// Performance-counter event selectors.
const (
	PerfEventRetired     uint64 = 1
	PerfEventBranchTaken uint64 = 2
	PerfEventLoad        uint64 = 3
	PerfEventStore       uint64 = 4
)

func perfEventMatch(ev uint64, dec decode.Decoded, branchTaken bool) bool {
	switch ev {
	case PerfEventRetired:
		return true
	case PerfEventBranchTaken:
		return branchTaken
	case PerfEventLoad:
		return dec.Op >= op.OpLB && dec.Op <= op.OpLWU
	case PerfEventStore:
		return dec.Op >= op.OpSB && dec.Op <= op.OpSD
	}
	return false
}

// enterDebug parks the hart in debug mode: dpc gets the resume address,
// dcsr's cause field records why, and debug-only CSRs become visible.
func (h *Hart) enterDebug(cause uint64, pc uint64) {
	h.halted = true
	h.csr.SetDebugMode(true)
	h.csr.RawSet(csr.Dpc, pc)
	dcsr := h.csr.RawGet(csr.Dcsr)
	dcsr = (dcsr &^ dcsrCauseMask) | (cause << dcsrCauseShift)
	h.csr.RawSet(csr.Dcsr, dcsr)
	slog.Debug("hart entered debug mode", "hart", h.ID, "pc", pc, "cause", cause)
}

// Resume leaves debug mode, restoring PC from dpc. If dcsr.step is set
// the hart will execute exactly one instruction and re-enter debug mode.
func (h *Hart) Resume() {
	h.halted = false
	h.csr.SetDebugMode(false)
	h.PC = h.csr.RawGet(csr.Dpc)
	h.singleStep = h.csr.RawGet(csr.Dcsr)&dcsrStep != 0
}

func (h *Hart) buildTable() {
	registerIntTable(h)
	registerMulDivTable(h)
	registerMemTable(h)
	registerSystemTable(h)
	registerFloatTable(h)
	if h.xlen == XLEN32 {
		for _, id := range rv64OnlyOps {
			h.table[id] = execRV64Only
		}
	}
}

// rv64OnlyOps are the instructions that only exist on a 64-bit hart;
// a 32-bit hart decodes them fine but must raise an illegal-instruction
// trap instead of executing.
var rv64OnlyOps = []op.ID{
	op.OpADDIW, op.OpSLLIW, op.OpSRLIW, op.OpSRAIW,
	op.OpADDW, op.OpSUBW, op.OpSLLW, op.OpSRLW, op.OpSRAW,
	op.OpLWU, op.OpLD, op.OpSD,
	op.OpMULW, op.OpDIVW, op.OpDIVUW, op.OpREMW, op.OpREMUW,
	op.OpLRD, op.OpSCD, op.OpAMOSWAPD, op.OpAMOADDD, op.OpAMOXORD,
	op.OpAMOANDD, op.OpAMOORD, op.OpAMOMIND, op.OpAMOMAXD,
	op.OpAMOMINUD, op.OpAMOMAXUD,
	op.OpFMVXD, op.OpFMVDX,
}

func execRV64Only(h *Hart, s *stepInfo) uint16 {
	h.pendingTval = uint64(s.dec.Raw)
	return trapTaken(excIllegalInst)
}
