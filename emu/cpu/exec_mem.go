/*
   Load, store and atomic-memory-operation instruction handlers.

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
	"github.com/rcornwell/rvsim/emu/lsq"
	"github.com/rcornwell/rvsim/emu/memory"
	op "github.com/rcornwell/rvsim/emu/opcode"
)

func registerMemTable(h *Hart) {
	t := &h.table

	t[op.OpLB] = loadHandler(1, true)
	t[op.OpLBU] = loadHandler(1, false)
	t[op.OpLH] = loadHandler(2, true)
	t[op.OpLHU] = loadHandler(2, false)
	t[op.OpLW] = loadHandler(4, true)
	t[op.OpLWU] = loadHandler(4, false)
	t[op.OpLD] = loadDoubleHandler()

	t[op.OpSB] = storeHandler(1)
	t[op.OpSH] = storeHandler(2)
	t[op.OpSW] = storeHandler(4)
	t[op.OpSD] = storeDoubleHandler()

	t[op.OpLRW] = execLRW
	t[op.OpLRD] = execLRD
	t[op.OpSCW] = execSCW
	t[op.OpSCD] = execSCD

	t[op.OpAMOSWAPW] = amoW(func(a, b uint32) uint32 { return b })
	t[op.OpAMOADDW] = amoW(func(a, b uint32) uint32 { return a + b })
	t[op.OpAMOXORW] = amoW(func(a, b uint32) uint32 { return a ^ b })
	t[op.OpAMOANDW] = amoW(func(a, b uint32) uint32 { return a & b })
	t[op.OpAMOORW] = amoW(func(a, b uint32) uint32 { return a | b })
	t[op.OpAMOMINW] = amoW(func(a, b uint32) uint32 {
		if int32(a) < int32(b) {
			return a
		}
		return b
	})
	t[op.OpAMOMAXW] = amoW(func(a, b uint32) uint32 {
		if int32(a) > int32(b) {
			return a
		}
		return b
	})
	t[op.OpAMOMINUW] = amoW(func(a, b uint32) uint32 {
		if a < b {
			return a
		}
		return b
	})
	t[op.OpAMOMAXUW] = amoW(func(a, b uint32) uint32 {
		if a > b {
			return a
		}
		return b
	})

	t[op.OpAMOSWAPD] = amoD(func(a, b uint64) uint64 { return b })
	t[op.OpAMOADDD] = amoD(func(a, b uint64) uint64 { return a + b })
	t[op.OpAMOXORD] = amoD(func(a, b uint64) uint64 { return a ^ b })
	t[op.OpAMOANDD] = amoD(func(a, b uint64) uint64 { return a & b })
	t[op.OpAMOORD] = amoD(func(a, b uint64) uint64 { return a | b })
	t[op.OpAMOMIND] = amoD(func(a, b uint64) uint64 {
		if int64(a) < int64(b) {
			return a
		}
		return b
	})
	t[op.OpAMOMAXD] = amoD(func(a, b uint64) uint64 {
		if int64(a) > int64(b) {
			return a
		}
		return b
	})
	t[op.OpAMOMINUD] = amoD(func(a, b uint64) uint64 {
		if a < b {
			return a
		}
		return b
	})
	t[op.OpAMOMAXUD] = amoD(func(a, b uint64) uint64 {
		if a > b {
			return a
		}
		return b
	})
}

// loadHandler builds a handler for the byte/half/word loads, which share
// the same shape: a new load first retires any pending load-queue entry
// whose target is rs1 (this instruction depends on that value, so it
// can no longer be rolled back out from under it), then performs the
// access, then, unless the address falls in DCCM, admits a fresh
// load-queue entry recording the register's pre-load value so a later
// imprecise bus error can unwind it.
func loadHandler(size uint8, signExtend bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		addr := h.effectiveAddr(s)
		if trap := h.checkStackBounds(addr, s.dec.Rs1); trap != ok {
			return trap
		}
		if trap := h.checkDccmCross(h.reg(s.dec.Rs1), addr); trap != ok {
			return trap
		}
		h.loadQ.RemoveTarget(s.dec.Rs1)
		var res loadResult
		switch size {
		case 1:
			res = h.loadByte(addr, signExtend)
		case 2:
			res = h.loadHalf(addr, signExtend)
		case 4:
			res = h.loadWord(addr, signExtend)
		}
		if res.trap != ok {
			return res.trap
		}
		prev := h.reg(s.dec.Rd)
		h.setReg(s.dec.Rd, res.value)
		h.admitLoadQueueEntry(addr, size, s.dec.Rd, prev, s.pc)
		return ok
	}
}

func loadDoubleHandler() handler {
	return func(h *Hart, s *stepInfo) uint16 {
		addr := h.effectiveAddr(s)
		if trap := h.checkStackBounds(addr, s.dec.Rs1); trap != ok {
			return trap
		}
		if trap := h.checkDccmCross(h.reg(s.dec.Rs1), addr); trap != ok {
			return trap
		}
		h.loadQ.RemoveTarget(s.dec.Rs1)
		res := h.loadDouble(addr)
		if res.trap != ok {
			return res.trap
		}
		prev := h.reg(s.dec.Rd)
		h.setReg(s.dec.Rd, res.value)
		h.admitLoadQueueEntry(addr, 8, s.dec.Rd, prev, s.pc)
		return ok
	}
}

// admitLoadQueueEntry pushes a load-queue entry for a completed, non-x0,
// non-DCCM load. DCCM loads never enqueue: that memory is tightly
// coupled and never the target of an imprecise bus error, so there is
// nothing for a later applyLoadException/applyLoadFinished to resolve.
func (h *Hart) admitLoadQueueEntry(addr uint64, size uint8, rd uint8, prev uint64, pc uint64) {
	if rd == 0 {
		return
	}
	if attr, found := h.mem.RegionAttr(addr); found && attr&memory.DCCM != 0 {
		return
	}
	h.loadQ.Push(lsq.Entry{Addr: addr, Size: size, RegIx: rd, PrevData: prev, Valid: true, PC: pc})
}

func storeHandler(size uint8) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		addr := h.effectiveAddr(s)
		h.loadQ.RemoveTarget(s.dec.Rs1)
		v := h.reg(s.dec.Rs2)
		prev := h.priorMemValue(addr, size)
		var trap uint16
		switch size {
		case 1:
			trap = h.storeByte(addr, uint8(v))
		case 2:
			trap = h.storeHalf(addr, uint16(v))
		case 4:
			trap = h.storeWord(addr, uint32(v))
		}
		if trap != ok {
			return trap
		}
		h.storeQ.Push(lsq.Entry{Addr: addr, Size: size, IsStore: true, Data: v, PrevData: prev, PC: s.pc})
		return ok
	}
}

func storeDoubleHandler() handler {
	return func(h *Hart, s *stepInfo) uint16 {
		addr := h.effectiveAddr(s)
		h.loadQ.RemoveTarget(s.dec.Rs1)
		v := h.reg(s.dec.Rs2)
		prev := h.priorMemValue(addr, 8)
		trap := h.storeDouble(addr, v)
		if trap != ok {
			return trap
		}
		h.storeQ.Push(lsq.Entry{Addr: addr, Size: 8, IsStore: true, Data: v, PrevData: prev, PC: s.pc})
		return ok
	}
}

// priorMemValue reads the bytes a store is about to overwrite, purely
// for the store queue's rollback bookkeeping; a read failure here just
// means the store itself is about to fault the same way, so the error
// is discarded and the rollback value left zero.
func (h *Hart) priorMemValue(addr uint64, size uint8) uint64 {
	switch size {
	case 1:
		v, _ := h.mem.ReadByte(addr)
		return uint64(v)
	case 2:
		v, _ := h.mem.ReadHalf(addr)
		return uint64(v)
	case 4:
		v, _ := h.mem.ReadWord(addr)
		return uint64(v)
	default:
		v, _ := h.mem.ReadDouble(addr)
		return v
	}
}

// checkLRRegion enforces the configuration that restricts LR to DCCM:
// a reservation on bus-attached memory cannot be tracked by the
// closely-coupled port, so such an LR faults instead of silently
// establishing a reservation the hardware could never honor.
func (h *Hart) checkLRRegion(addr uint64) uint16 {
	if !h.lrRequireDccm {
		return ok
	}
	attr, found := h.mem.RegionAttr(addr)
	if !found || attr&memory.DCCM == 0 {
		h.pendingTval = addr
		return trapTaken(excLoadAccessFault)
	}
	return ok
}

func execLRW(h *Hart, s *stepInfo) uint16 {
	addr := h.reg(s.dec.Rs1)
	if trap := h.checkLRRegion(addr); trap != ok {
		return trap
	}
	res := h.loadWord(addr, true)
	if res.trap != ok {
		return res.trap
	}
	h.mem.SetReservation(h.ID, addr, 4)
	h.setReg(s.dec.Rd, res.value)
	return ok
}

func execLRD(h *Hart, s *stepInfo) uint16 {
	addr := h.reg(s.dec.Rs1)
	if trap := h.checkLRRegion(addr); trap != ok {
		return trap
	}
	res := h.loadDouble(addr)
	if res.trap != ok {
		return res.trap
	}
	h.mem.SetReservation(h.ID, addr, 8)
	h.setReg(s.dec.Rd, res.value)
	return ok
}

func execSCW(h *Hart, s *stepInfo) uint16 {
	addr := h.reg(s.dec.Rs1)
	if !h.mem.CheckAndClearReservation(h.ID, addr) {
		h.setReg(s.dec.Rd, 1)
		return ok
	}
	if trap := h.storeWord(addr, uint32(h.reg(s.dec.Rs2))); trap != ok {
		return trap
	}
	h.setReg(s.dec.Rd, 0)
	return ok
}

func execSCD(h *Hart, s *stepInfo) uint16 {
	addr := h.reg(s.dec.Rs1)
	if !h.mem.CheckAndClearReservation(h.ID, addr) {
		h.setReg(s.dec.Rd, 1)
		return ok
	}
	if trap := h.storeDouble(addr, h.reg(s.dec.Rs2)); trap != ok {
		return trap
	}
	h.setReg(s.dec.Rd, 0)
	return ok
}

// amoW and amoD build AMO handlers: the read-modify-write sequence runs
// under the shared Memory's lock, the coarse substitute for bus-level
// atomicity across harts.
func amoW(op func(a, b uint32) uint32) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		addr := h.reg(s.dec.Rs1)
		h.mem.Lock()
		defer h.mem.Unlock()
		old, err := h.mem.ReadWordLocked(addr)
		if err != nil {
			return h.memErrToTrap(addr, err, false)
		}
		n := op(old, uint32(h.reg(s.dec.Rs2)))
		if err := h.mem.WriteWordLocked(addr, n); err != nil {
			return h.memErrToTrap(addr, err, true)
		}
		h.setReg(s.dec.Rd, signExtend64(uint64(old), 32))
		return ok
	}
}

func amoD(op func(a, b uint64) uint64) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		addr := h.reg(s.dec.Rs1)
		h.mem.Lock()
		defer h.mem.Unlock()
		old, err := h.mem.ReadDoubleLocked(addr)
		if err != nil {
			return h.memErrToTrap(addr, err, false)
		}
		n := op(old, h.reg(s.dec.Rs2))
		if err := h.mem.WriteDoubleLocked(addr, n); err != nil {
			return h.memErrToTrap(addr, err, true)
		}
		h.setReg(s.dec.Rd, old)
		return ok
	}
}
