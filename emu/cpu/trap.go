/*
   Trap and interrupt pipeline.

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
	"log/slog"

	"github.com/rcornwell/rvsim/emu/csr"
	"github.com/rcornwell/rvsim/emu/memory"
)

// NMI is sticky: once raised it stays pending (and its cause fixed)
// until explicitly cleared, since the architecture gives software no
// other way to observe it had more than one source.
type nmiState struct {
	pending bool
	cause   uint64
}

// RaiseNMI marks a non-maskable interrupt pending with the given cause,
// as a sticky condition that survives until explicitly cleared. The
// pending state is mirrored into dcsr.nmip so an attached debugger can
// observe it while the hart is halted.
func (h *Hart) RaiseNMI(cause uint64) {
	if !h.nmi.pending {
		h.nmi.pending = true
		h.nmi.cause = cause
	}
	h.csr.RawSet(csr.Dcsr, h.csr.RawGet(csr.Dcsr)|dcsrNmip)
}

// ClearNMI drops the sticky NMI condition.
func (h *Hart) ClearNMI() {
	h.nmi = nmiState{}
	h.csr.RawSet(csr.Dcsr, h.csr.RawGet(csr.Dcsr)&^dcsrNmip)
}

// SetExternalInterrupt sets or clears the machine/supervisor external
// interrupt pending bits in mip.
func (h *Hart) SetExternalInterrupt(pending bool) {
	mip := h.csr.RawGet(csr.Mip)
	if pending {
		mip |= csr.MIPMeip
	} else {
		mip &^= csr.MIPMeip
	}
	h.csr.RawSet(csr.Mip, mip)
}

// SetTimerInterrupt sets or clears the machine timer interrupt pending
// bit, driven by the alarm-interval wall-clock timer.
func (h *Hart) SetTimerInterrupt(pending bool) {
	mip := h.csr.RawGet(csr.Mip)
	if pending {
		mip |= csr.MIPMtip
	} else {
		mip &^= csr.MIPMtip
	}
	h.csr.RawSet(csr.Mip, mip)
}

// SetLocalInterrupt sets or clears the vendor-extension M_LOCAL pending
// bit (SweRV's correctable-error/local-device interrupt line).
func (h *Hart) SetLocalInterrupt(pending bool) {
	h.setMipBit(csr.MIPMLocal, pending)
}

// SetIntTimer0Interrupt sets or clears the vendor-extension
// M_INT_TIMER0 pending bit (SweRV's first internal timer).
func (h *Hart) SetIntTimer0Interrupt(pending bool) {
	h.setMipBit(csr.MIPMIntTimer0, pending)
}

// SetIntTimer1Interrupt sets or clears the vendor-extension
// M_INT_TIMER1 pending bit (SweRV's second internal timer).
func (h *Hart) SetIntTimer1Interrupt(pending bool) {
	h.setMipBit(csr.MIPMIntTimer1, pending)
}

func (h *Hart) setMipBit(bit uint64, pending bool) {
	mip := h.csr.RawGet(csr.Mip)
	if pending {
		mip |= bit
	} else {
		mip &^= bit
	}
	h.csr.RawSet(csr.Mip, mip)
}

// checkPendingInterrupt evaluates NMI, then the fast external-interrupt
// shortcut, then the standard fixed-priority interrupt order, taking
// whichever fires first. It returns true if a trap was taken.
func (h *Hart) checkPendingInterrupt() bool {
	if h.nmi.pending {
		h.deliverNMI()
		return true
	}

	mip := h.csr.RawGet(csr.Mip)
	mie := h.csr.RawGet(csr.Mie)
	mstatus := h.csr.RawGet(csr.Mstatus)

	// Fast external-interrupt shortcut: when MEIHAP holds a non-zero
	// handler-table pointer, a pending+enabled external interrupt loads
	// its target PC through that pointer instead of going through the
	// normal mtvec/mcause dispatch, modeling a hart that hands
	// first-level dispatch to a hardware PLIC stub rather than software.
	// The pointer must land in DCCM and the table load must succeed; a
	// failure promotes to NMI with a cause naming what went wrong.
	if mip&mie&csr.MIPMeip != 0 && h.globallyEnabled(mstatus) {
		if ptr, err := h.csr.Read(csr.MeiHap); err == nil && ptr != 0 {
			attr, found := h.mem.RegionAttr(ptr)
			if !found || attr&memory.DCCM == 0 {
				h.RaiseNMI(NmiCauseNonDccmAccessError)
				h.deliverNMI()
				return true
			}
			target, err := h.mem.ReadWord(ptr)
			if err != nil {
				h.RaiseNMI(NmiCauseDccmAccessError)
				h.deliverNMI()
				return true
			}
			h.waitingWFI = false
			h.pushTrapFrame(interruptBit|irqMExt, h.PC)
			h.PC = uint64(target) &^ 1
			return true
		}
	}

	if !h.globallyEnabled(mstatus) {
		return false
	}

	pending := mip & mie
	// Fixed priority, highest first, matching SweRV's isInterruptPossible
	// ordering: M_EXTERNAL > M_LOCAL > M_SOFTWARE > M_TIMER > M_INT_TIMER0
	// > M_INT_TIMER1. S-mode causes are omitted: traps are never delegated
	// to S/U (pushTrapFrame always switches to Machine), so the S-mode
	// mip/mie bits never compete in this priority order.
	order := []uint64{csr.MIPMeip, csr.MIPMLocal, csr.MIPMsip, csr.MIPMtip, csr.MIPMIntTimer0, csr.MIPMIntTimer1}
	cause := []uint64{irqMExt, irqMLocal, irqMSoft, irqMTimer, irqMIntTimer0, irqMIntTimer1}
	for i, bit := range order {
		if pending&bit != 0 {
			h.takeTrap(interruptBit|cause[i], h.PC, true)
			return true
		}
	}
	return false
}

func (h *Hart) globallyEnabled(mstatus uint64) bool {
	if h.priv == csr.Machine {
		return mstatus&csr.StatusMIE != 0
	}
	return true
}

// deliverNMI delivers the pending non-maskable interrupt: the same
// save-state sequence an ordinary trap runs, but vectoring to the fixed
// NMI handler address rather than through mtvec.
func (h *Hart) deliverNMI() {
	cause := h.nmi.cause
	if cause == 0 {
		cause = irqNMI
	}
	h.nmi.pending = false
	h.csr.RawSet(csr.Dcsr, h.csr.RawGet(csr.Dcsr)&^dcsrNmip)
	h.waitingWFI = false
	h.loadQ.Reset()
	h.storeQ.Reset()
	h.mem.ClearReservation(h.ID)
	h.pushTrapFrame(interruptBit|cause, h.PC)
	h.PC = h.nmiPc &^ 1
	slog.Debug("nmi taken", "hart", h.ID, "cause", cause, "pc", h.PC)
}

// takeException delivers a synchronous exception for the instruction at
// faultPC.
func (h *Hart) takeException(cause uint64, faultPC uint64) {
	h.takeTrap(cause, faultPC, false)
}

// takeTrap is the shared trap-entry sequence for both exceptions and
// interrupts: save the faulting PC and status, compute the new
// privilege mode, and vector to the handler.
func (h *Hart) takeTrap(cause uint64, faultPC uint64, isInterrupt bool) {
	h.waitingWFI = false
	h.loadQ.Reset()
	h.storeQ.Reset()
	h.mem.ClearReservation(h.ID)

	h.pushTrapFrame(cause, faultPC)

	tvec, _ := h.csr.Read(csr.Mtvec)
	base := tvec &^ 0x3
	mode := tvec & 0x3
	if isInterrupt && mode == 1 {
		code := cause &^ interruptBit
		h.PC = base + 4*code
	} else {
		h.PC = base
	}
	slog.Debug("trap taken", "hart", h.ID, "cause", cause, "pc", faultPC, "interrupt", isInterrupt)
}

func (h *Hart) pushTrapFrame(cause uint64, faultPC uint64) {
	mstatus := h.csr.RawGet(csr.Mstatus)
	mie := mstatus & csr.StatusMIE
	mstatus &^= csr.StatusMPIE
	if mie != 0 {
		mstatus |= csr.StatusMPIE
	}
	mstatus &^= csr.StatusMIE
	mstatus &^= csr.StatusMPPMask
	mstatus |= uint64(h.priv) << csr.StatusMPPShift

	h.csr.RawSet(csr.Mstatus, mstatus)
	h.csr.RawSet(csr.Mepc, faultPC&^uint64(1))
	h.csr.RawSet(csr.Mcause, cause)
	h.csr.RawSet(csr.Mtval, h.pendingTval)
	h.pendingTval = 0
	h.priv = csr.Machine
}

// execMRET returns from a machine-mode trap handler.
func (h *Hart) execMRET() {
	mstatus := h.csr.RawGet(csr.Mstatus)
	mpie := mstatus & csr.StatusMPIE
	mstatus &^= csr.StatusMIE
	if mpie != 0 {
		mstatus |= csr.StatusMIE
	}
	mpp := (mstatus & csr.StatusMPPMask) >> csr.StatusMPPShift
	mstatus |= csr.StatusMPIE
	mstatus &^= csr.StatusMPPMask // reset MPP to U (0), the least-privilege default
	h.csr.RawSet(csr.Mstatus, mstatus)
	h.priv = csr.Privilege(mpp)
	h.mem.ClearReservation(h.ID)
	h.PC = h.csr.RawGet(csr.Mepc) &^ uint64(1)
}

// execSRET returns from a supervisor-mode trap handler.
func (h *Hart) execSRET() {
	sstatus := h.csr.RawGet(csr.Mstatus)
	spie := sstatus & csr.StatusSPIE
	sstatus &^= csr.StatusSIE
	if spie != 0 {
		sstatus |= csr.StatusSIE
	}
	spp := (sstatus & csr.StatusSPP) >> csr.StatusSPPShift
	sstatus |= csr.StatusSPIE
	sstatus &^= csr.StatusSPP
	h.csr.RawSet(csr.Mstatus, sstatus)
	h.priv = csr.Privilege(spp)
	h.mem.ClearReservation(h.ID)
	h.PC = h.csr.RawGet(csr.Sepc) &^ uint64(1)
}
