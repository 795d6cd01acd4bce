/*
   CSR and privileged/system instruction handlers.

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
	op "github.com/rcornwell/rvsim/emu/opcode"
)

func registerSystemTable(h *Hart) {
	t := &h.table

	t[op.OpCSRRW] = execCSRRW
	t[op.OpCSRRS] = csrSetClear(true)
	t[op.OpCSRRC] = csrSetClear(false)
	t[op.OpCSRRWI] = execCSRRWI
	t[op.OpCSRRSI] = csrSetClearImm(true)
	t[op.OpCSRRCI] = csrSetClearImm(false)

	t[op.OpECALL] = func(h *Hart, s *stepInfo) uint16 {
		switch h.priv {
		case csr.Machine:
			return trapTaken(excECallM)
		case csr.Supervisor:
			return trapTaken(excECallS)
		default:
			return trapTaken(excECallU)
		}
	}
	t[op.OpEBREAK] = func(h *Hart, s *stepInfo) uint16 {
		if h.priv == csr.Machine && h.csr.RawGet(csr.Dcsr)&dcsrEbreakM != 0 {
			s.next = s.pc
			h.enterDebug(dbgCauseEbreak, s.pc)
			return ok
		}
		h.pendingTval = s.pc
		return trapTaken(excBreakpoint)
	}
	t[op.OpMRET] = func(h *Hart, s *stepInfo) uint16 {
		h.execMRET()
		s.next = h.PC
		return ok
	}
	t[op.OpSRET] = func(h *Hart, s *stepInfo) uint16 {
		h.execSRET()
		s.next = h.PC
		return ok
	}
	t[op.OpWFI] = func(h *Hart, s *stepInfo) uint16 {
		h.waitingWFI = true
		return ok
	}
	t[op.OpFENCE] = func(h *Hart, s *stepInfo) uint16 {
		// A fence drains the speculative load/store queues (nothing
		// older than it may remain in flight) and cancels any LR/SC
		// sequence in progress.
		h.loadQ.Reset()
		h.storeQ.Reset()
		h.mem.ClearReservation(h.ID)
		return ok
	}
	t[op.OpFENCEI] = func(h *Hart, s *stepInfo) uint16 {
		h.decodeCache.InvalidateAll()
		return ok
	}
	t[op.OpSFENCEVMA] = func(h *Hart, s *stepInfo) uint16 { return ok }
}

// syncCounters copies the free-running cycle/instruction-retired
// counters Step increments directly into their CSR file entries, and
// pullCounters does the reverse. mcycle/minstret live as plain Hart
// fields rather than CSR-file values because Step increments them on
// every single instruction and routing that through the CSR file's
// mask-and-map machinery would be pure overhead; the CSR file only
// needs an accurate value at the moment a CSRRW-family instruction
// reads or writes mcycle/minstret/cycle/instret.
func (h *Hart) syncCounters() {
	h.csr.RawSet(csr.Mcycle, h.mcycle)
	h.csr.RawSet(csr.Minstret, h.minstret)
}

func (h *Hart) pullCounters() {
	h.mcycle = h.csr.RawGet(csr.Mcycle)
	h.minstret = h.csr.RawGet(csr.Minstret)
}

// compensateCounterWrite inhibits mcycle/minstret's auto-increment on the
// instruction that itself wrote one of them: Step unconditionally bumps
// both counters after every retired instruction, so a CSR write that just
// set one of them to a new value needs a compensating decrement here or
// the value the program reads back next would be one higher than what it
// wrote.
func (h *Hart) compensateCounterWrite(addr uint16) {
	switch addr {
	case csr.Mcycle:
		h.mcycle--
	case csr.Minstret:
		h.minstret--
	}
}

// execCSRRW swaps rs1 into the CSR, skipping the read entirely when
// rd is x0 to avoid triggering read side effects on CSRs that have any.
func execCSRRW(h *Hart, s *stepInfo) uint16 {
	h.syncCounters()
	if s.dec.Rd != 0 {
		old, err := h.csr.Read(s.dec.CSR)
		if err != nil {
			return trapTaken(excIllegalInst)
		}
		h.setReg(s.dec.Rd, old)
	}
	if err := h.csr.Write(s.dec.CSR, h.reg(s.dec.Rs1)); err != nil {
		return trapTaken(excIllegalInst)
	}
	h.pullCounters()
	h.compensateCounterWrite(s.dec.CSR)
	return ok
}

func execCSRRWI(h *Hart, s *stepInfo) uint16 {
	h.syncCounters()
	if s.dec.Rd != 0 {
		old, err := h.csr.Read(s.dec.CSR)
		if err != nil {
			return trapTaken(excIllegalInst)
		}
		h.setReg(s.dec.Rd, old)
	}
	if err := h.csr.Write(s.dec.CSR, uint64(s.dec.Imm)); err != nil {
		return trapTaken(excIllegalInst)
	}
	h.pullCounters()
	h.compensateCounterWrite(s.dec.CSR)
	return ok
}

// csrSetClear builds CSRRS (set=true) and CSRRC (set=false): always
// read, and skip the write entirely when rs1 is x0 so a pure read
// never triggers a CSR's write side effects.
func csrSetClear(set bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		h.syncCounters()
		old, err := h.csr.Read(s.dec.CSR)
		if err != nil {
			return trapTaken(excIllegalInst)
		}
		h.setReg(s.dec.Rd, old)
		if s.dec.Rs1 == 0 {
			return ok
		}
		mask := h.reg(s.dec.Rs1)
		n := old | mask
		if !set {
			n = old &^ mask
		}
		if err := h.csr.Write(s.dec.CSR, n); err != nil {
			return trapTaken(excIllegalInst)
		}
		h.pullCounters()
		h.compensateCounterWrite(s.dec.CSR)
		return ok
	}
}

func csrSetClearImm(set bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		h.syncCounters()
		old, err := h.csr.Read(s.dec.CSR)
		if err != nil {
			return trapTaken(excIllegalInst)
		}
		h.setReg(s.dec.Rd, old)
		mask := uint64(s.dec.Imm)
		if mask == 0 {
			return ok
		}
		n := old | mask
		if !set {
			n = old &^ mask
		}
		if err := h.csr.Write(s.dec.CSR, n); err != nil {
			return trapTaken(excIllegalInst)
		}
		h.pullCounters()
		h.compensateCounterWrite(s.dec.CSR)
		return ok
	}
}
