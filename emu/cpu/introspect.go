/*
   Hart introspection: register/memory peek-poke and state snapshot,
   the hooks a debugger, a trace emitter or a run loop need without
   becoming part of the instruction-execution path itself.

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

package cpu

import (
	"github.com/rcornwell/rvsim/emu/csr"
	"github.com/rcornwell/rvsim/emu/decode"
	"github.com/rcornwell/rvsim/emu/lsq"
	"github.com/rcornwell/rvsim/emu/memory"
	"github.com/rcornwell/rvsim/emu/trigger"
)

// DecodeAt fetches and decodes the instruction at pc without consulting
// or filling the decode cache and without any of Step's side effects,
// for a disassembler or trace emitter that wants to know what an
// already-retired (or not-yet-executed) instruction was.
func (h *Hart) DecodeAt(pc uint64) (decode.Decoded, error) {
	low, err := h.mem.ReadHalf(pc)
	if err != nil {
		return decode.Decoded{}, err
	}
	if decode.IsCompressed(low) {
		return decode.Decode16(low), nil
	}
	hi, err := h.mem.ReadHalf(pc + 2)
	if err != nil {
		return decode.Decoded{}, err
	}
	word := uint32(low) | uint32(hi)<<16
	return decode.Decode32(word), nil
}

// Memory returns the address space this hart executes against.
func (h *Hart) Memory() *memory.Memory { return h.mem }

// StoreQueueEntries and LoadQueueEntries expose the speculative
// load/store queues for a trace emitter to detect which store or load
// the most recently retired instruction admitted, by comparing the
// newest entry's Seq against the last one it already reported.
func (h *Hart) StoreQueueEntries() []lsq.Entry { return h.storeQ.Entries() }
func (h *Hart) LoadQueueEntries() []lsq.Entry  { return h.loadQ.Entries() }

// Triggers returns the hart's debug trigger module, so a command set
// or remote debugger can arm address/data/icount breakpoints directly
// without cpu exposing tdata1/tdata2 CSR encodings for the purpose.
func (h *Hart) Triggers() *trigger.Unit { return h.triggers }

// Priv returns the hart's current privilege mode.
func (h *Hart) Priv() int { return int(h.priv) }

// Counters returns the free-running cycle and retired-instruction counts.
func (h *Hart) Counters() (mcycle, minstret uint64) { return h.mcycle, h.minstret }

// LastBranchTaken reports whether the most recently retired Step was a
// branch/jump that redirected control flow.
func (h *Hart) LastBranchTaken() bool { return h.lastBranchTaken }

// LastTrap reports the cause taken by the most recently retired Step,
// if any. Consecutive ILLEGAL_INST traps at an unchanging PC are the
// "stuck" condition a run loop watches for.
func (h *Hart) LastTrap() (cause uint64, taken bool) { return h.lastTrapCause, h.lastTrapTaken }

// Halted reports whether the hart is parked in debug mode.
func (h *Hart) Halted() bool { return h.halted }

// PeekIntReg reads an integer register without the x0-is-always-zero
// masking a real access would also apply on write; x0 still reads zero.
func (h *Hart) PeekIntReg(ix uint8) uint64 { return h.reg(ix) }

// PokeIntReg writes an integer register; a poke to x0 is a no-op, same
// as an instruction-driven write.
func (h *Hart) PokeIntReg(ix uint8, v uint64) { h.setReg(ix, v) }

// PeekFPReg reads the raw 64-bit (NaN-boxed) contents of an FP register.
func (h *Hart) PeekFPReg(ix uint8) uint64 { return h.fpregs[ix&31] }

// PokeFPReg writes the raw 64-bit contents of an FP register.
func (h *Hart) PokeFPReg(ix uint8, v uint64) { h.fpregs[ix&31] = v }

// PeekCSR returns a CSR's current value alongside its static reset and
// mask attributes, for a debugger's "examine" command.
func (h *Hart) PeekCSR(num uint16) (value, reset, writeMask, pokeMask uint64, err error) {
	h.syncCounters()
	value, err = h.csr.Read(num)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	reset, writeMask, pokeMask = h.csr.Attrs(num)
	return value, reset, writeMask, pokeMask, nil
}

// meihapClaimMask is the only part of the fast-interrupt handler
// pointer a poke may change: the claim-id field in bits 9:2. The base
// address above it belongs to firmware and stays poke-immutable.
const meihapClaimMask uint64 = 0x3fc

// PokeCSR deposits a value through PokeMask rather than WriteMask, so a
// debugger can reach bits an ordinary CSRRW cannot. MEIHAP is special:
// a poke there may only update the claim-id field.
func (h *Hart) PokeCSR(num uint16, v uint64) error {
	if num == csr.MeiHap {
		cur := h.csr.RawGet(csr.MeiHap)
		h.csr.RawSet(csr.MeiHap, (cur&^meihapClaimMask)|(v&meihapClaimMask))
		return nil
	}
	err := h.csr.Poke(num, v)
	h.pullCounters()
	return err
}

// PeekMemory and PokeMemory expose byte/half/word/double-sized accesses
// for a debugger's examine/deposit commands. Poke goes through the same
// Memory write path a store instruction uses, so it clears any
// reservation covering the range and invalidates the decode cache.
func (h *Hart) PeekMemory(addr uint64, size int) (uint64, error) {
	switch size {
	case 1:
		v, err := h.mem.ReadByte(addr)
		return uint64(v), err
	case 2:
		v, err := h.mem.ReadHalf(addr)
		return uint64(v), err
	case 4:
		v, err := h.mem.ReadWord(addr)
		return uint64(v), err
	default:
		return h.mem.ReadDouble(addr)
	}
}

func (h *Hart) PokeMemory(addr uint64, size int, v uint64) error {
	switch size {
	case 1:
		return h.mem.WriteByte(addr, uint8(v))
	case 2:
		return h.mem.WriteHalf(addr, uint16(v))
	case 4:
		return h.mem.WriteWord(addr, uint32(v))
	default:
		return h.mem.WriteDouble(addr, v)
	}
}

// ResetHart is the external reset contract: architectural state always
// resets, and memory-mapped-register pages are zeroed only when
// resetMemoryMappedRegs is true, so values an ELF image preloaded into
// them can survive an ordinary reset.
func (h *Hart) ResetHart(resetMemoryMappedRegs bool) {
	h.Reset()
	if resetMemoryMappedRegs && h.mem != nil {
		h.mem.ResetMemoryMappedRegs()
	}
}

// SetPendingNMI and ClearPendingNMI are the debugger-facing contract
// for raising or clearing an NMI from outside the step loop; they
// forward to the trap pipeline's own RaiseNMI/ClearNMI.
func (h *Hart) SetPendingNMI(cause uint64) { h.RaiseNMI(cause) }
func (h *Hart) ClearPendingNMI()           { h.ClearNMI() }

// EnterDebugMode and ExitDebugMode are the debugger-facing contract
// for forcing debug-mode transitions from outside the step loop (a
// remote debugger's "halt" and "continue" commands).
func (h *Hart) EnterDebugMode() { h.enterDebug(dbgCauseHaltReq, h.PC) }
func (h *Hart) ExitDebugMode()  { h.Resume() }

// SetForceFetchFault arms a one-shot instruction-access fault: the next
// fetch raises INST_ACC_FAULT reporting pc+offset, regardless of what
// memory holds there. An external bus model uses this to inject a fetch
// error at a precise point.
func (h *Hart) SetForceFetchFault(offset uint64) {
	h.forceFetchFault = true
	h.forceFetchOffset = offset
}

// ApplyStoreException, ApplyLoadException and ApplyLoadFinished are the
// external contract an asynchronous bus model uses to report that a
// speculative store or load resolved after the instruction that issued
// it already retired. Each returns how many in-flight queue entries
// covered addr; callers should treat anything other than 1 (0 or 2+) as
// a hard diagnostic error rather than retry it, since the queues are
// only ever supposed to hold one entry per live address range.
func (h *Hart) ApplyStoreException(addr uint64) int { return h.applyStoreException(addr) }
func (h *Hart) ApplyLoadException(addr uint64) int  { return h.applyLoadException(addr) }
func (h *Hart) ApplyLoadFinished(addr uint64, matchOldest bool) int {
	return h.applyLoadFinished(addr, matchOldest)
}

// Snapshot captures everything Reset doesn't discard across a save,
// for periodic snapshotRun serialization and for whatIfStep's
// capture-then-undo.
type Snapshot struct {
	PC       uint64
	Regs     [32]uint64
	FPRegs   [32]uint64
	FFlags   uint8
	FRM      uint8
	Priv     uint8
	MCycle   uint64
	MInstret uint64
	CSRs     map[uint16]uint64
}

// Snapshot returns a copy of the hart's full architectural state.
func (h *Hart) Snapshot() Snapshot {
	return Snapshot{
		PC:       h.PC,
		Regs:     h.regs,
		FPRegs:   h.fpregs,
		FFlags:   h.fflags,
		FRM:      h.frm,
		Priv:     uint8(h.priv),
		MCycle:   h.mcycle,
		MInstret: h.minstret,
		CSRs:     h.csr.Dump(),
	}
}

// Restore installs a previously captured Snapshot, undoing every
// architectural change made since it was taken.
func (h *Hart) Restore(s Snapshot) {
	h.PC = s.PC
	h.regs = s.Regs
	h.fpregs = s.FPRegs
	h.fflags = s.FFlags
	h.frm = s.FRM
	h.priv = csr.Privilege(s.Priv)
	h.mcycle = s.MCycle
	h.minstret = s.MInstret
	h.csr.Load(s.CSRs)
	h.decodeCache.InvalidateAll()
}
