/*
   Load/store path: alignment, attribute checks, data triggers and LSQ.

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

import "github.com/rcornwell/rvsim/emu/memory"

// loadResult is what a load helper hands back to an opcode handler: a
// value plus a trap cause (ok on success).
type loadResult struct {
	value uint64
	trap  uint16
}

func (h *Hart) checkLoadTrigger(addr uint64) {
	if h.triggers.CheckLoad(addr, uint8(h.priv)) {
		h.triggerHit = true
	}
}

func (h *Hart) checkStoreTrigger(addr uint64) {
	if h.triggers.CheckStore(addr, uint8(h.priv)) {
		h.triggerHit = true
	}
}

// memErrToTrap classifies a memory-access error into the matching trap
// cause and latches addr into pendingTval, the "info" xTVAL is written
// from when the trap is actually delivered.
func (h *Hart) memErrToTrap(addr uint64, err error, store bool) uint16 {
	h.pendingTval = addr
	switch err {
	case memory.ErrMisaligned:
		if store {
			return trapTaken(excStoreAddrMisaligned)
		}
		return trapTaken(excLoadAddrMisaligned)
	default:
		if store {
			return trapTaken(excStoreAccessFault)
		}
		return trapTaken(excLoadAccessFault)
	}
}

func (h *Hart) loadByte(addr uint64, signed bool) loadResult {
	h.checkLoadTrigger(addr)
	if h.conIo != 0 && addr == h.conIo {
		// The console-IO byte reads straight from the input stream; a
		// drained stream reads as zero.
		buf := []byte{0}
		h.conIn.Read(buf)
		return loadResult{value: uint64(buf[0])}
	}
	v, err := h.mem.ReadByte(addr)
	if err != nil {
		return loadResult{trap: h.memErrToTrap(addr, err, false)}
	}
	if signed {
		return loadResult{value: signExtend64(uint64(v), 8)}
	}
	return loadResult{value: uint64(v)}
}

func (h *Hart) loadHalf(addr uint64, signed bool) loadResult {
	h.checkLoadTrigger(addr)
	v, err := h.mem.ReadHalf(addr)
	if err != nil {
		return loadResult{trap: h.memErrToTrap(addr, err, false)}
	}
	if signed {
		return loadResult{value: signExtend64(uint64(v), 16)}
	}
	return loadResult{value: uint64(v)}
}

func (h *Hart) loadWord(addr uint64, signed bool) loadResult {
	h.checkLoadTrigger(addr)
	v, err := h.mem.ReadWord(addr)
	if err != nil {
		return loadResult{trap: h.memErrToTrap(addr, err, false)}
	}
	if signed {
		return loadResult{value: signExtend64(uint64(v), 32)}
	}
	return loadResult{value: uint64(v)}
}

func (h *Hart) loadDouble(addr uint64) loadResult {
	h.checkLoadTrigger(addr)
	v, err := h.mem.ReadDouble(addr)
	if err != nil {
		return loadResult{trap: h.memErrToTrap(addr, err, false)}
	}
	return loadResult{value: v}
}

func (h *Hart) storeByte(addr uint64, v uint8) uint16 {
	h.checkStoreTrigger(addr)
	if h.conIo != 0 && addr == h.conIo {
		h.conOut.Write([]byte{v})
		return ok
	}
	if err := h.mem.WriteByte(addr, v); err != nil {
		return h.memErrToTrap(addr, err, true)
	}
	return ok
}

func (h *Hart) storeHalf(addr uint64, v uint16) uint16 {
	h.checkStoreTrigger(addr)
	if err := h.mem.WriteHalf(addr, v); err != nil {
		return h.memErrToTrap(addr, err, true)
	}
	return ok
}

func (h *Hart) storeWord(addr uint64, v uint32) uint16 {
	h.checkStoreTrigger(addr)
	if err := h.mem.WriteWord(addr, v); err != nil {
		return h.memErrToTrap(addr, err, true)
	}
	return ok
}

func (h *Hart) storeDouble(addr uint64, v uint64) uint16 {
	h.checkStoreTrigger(addr)
	if err := h.mem.WriteDouble(addr, v); err != nil {
		return h.memErrToTrap(addr, err, true)
	}
	return ok
}

// effectiveAddr computes base+imm for the rs1-relative addressing every
// load/store/AMO instruction uses.
func (h *Hart) effectiveAddr(step *stepInfo) uint64 {
	return h.mask64(h.reg(step.dec.Rs1) + uint64(step.dec.Imm))
}

// spReg is the stack-pointer register index (x2), the register the
// stack-bounds check keys off of.
const spReg uint8 = 2

// checkDccmCross raises a load access fault when the base register's
// region and the effective address's region disagree on the DCCM
// attribute: the pipeline's DCCM port and the bus port cannot both
// service one access, so an address computation that hops the boundary
// is treated as an error when the configuration asks for the check.
func (h *Hart) checkDccmCross(base, addr uint64) uint16 {
	if !h.dccmCrossCheck {
		return ok
	}
	baseAttr, baseOk := h.mem.RegionAttr(base)
	effAttr, effOk := h.mem.RegionAttr(addr)
	if baseOk && effOk && (baseAttr&memory.DCCM) != (effAttr&memory.DCCM) {
		h.pendingTval = addr
		return trapTaken(excLoadAccessFault)
	}
	return ok
}

// checkStackBounds bounds-checks a load's effective address against
// [stackMin, stackMax] when stack-checking is enabled and the load
// addressed memory through sp, raising a load access fault on violation.
func (h *Hart) checkStackBounds(addr uint64, rs1 uint8) uint16 {
	if !h.stackCheckEnabled || rs1 != spReg {
		return ok
	}
	if addr < h.stackMin || addr > h.stackMax {
		h.pendingTval = addr
		return trapTaken(excLoadAccessFault)
	}
	return ok
}
