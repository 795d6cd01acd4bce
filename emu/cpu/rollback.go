/*
   Imprecise bus-error rollback: unwind the speculative load/store
   queues when an outside caller reports that a store or load actually
   failed after the instruction that issued it has already retired.

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
	"github.com/rcornwell/rvsim/emu/lsq"
)

// lsqCovers reports whether addr falls within the byte range an in-flight
// queue entry touched.
func lsqCovers(addr, entryAddr uint64, size uint8) bool {
	return addr >= entryAddr && addr < entryAddr+uint64(size)
}

// reportBusError latches the faulting address into MDSEAC, which is
// write-protected against ordinary CSR writes so only a poke (the
// debugger, or the handler that services the NMI) can clear it, and
// raises the sticky NMI that drives the hart into its bus-error
// handler.
func (h *Hart) reportBusError(addr uint64) {
	h.csr.RawSet(csr.Mdseac, addr)
	h.RaiseNMI(nmiCauseBusError)
}

// applyStoreException reports that the store covering addr actually
// failed on the bus after it had already retired and left the store
// queue. Exactly one queue entry must cover addr; zero or more than one
// is a hard diagnostic error and the queue is left untouched. The
// matching entry's previous bytes are restored up to the next
// double-word boundary (the bus can only roll back a whole
// double-word-aligned transaction), the entry is trimmed rather than
// removed if it straddled that boundary, and any later queued store
// that had written into the just-restored range is replayed on top of
// it so its legitimate write isn't lost to the coarser rollback.
func (h *Hart) applyStoreException(addr uint64) int {
	entries := h.storeQ.Entries()
	count := 0
	for _, e := range entries {
		if e.IsStore && lsqCovers(addr, e.Addr, e.Size) {
			count++
		}
	}
	if count != 1 {
		return count
	}

	hit := false
	undoBegin, undoEnd := addr, uint64(0)
	removeIx := len(entries)
	for ix := range entries {
		e := &entries[ix]
		entryEnd := e.Addr + uint64(e.Size)
		if hit {
			data := e.Data
			for ba := e.Addr; ba < entryEnd; ba++ {
				if ba >= undoBegin && ba < undoEnd {
					h.mem.WriteByte(ba, uint8(data))
				}
				data >>= 8
			}
			continue
		}
		if addr < e.Addr || addr >= entryEnd {
			continue
		}
		prevData, newData := e.PrevData, e.Data
		hit = true
		removeIx = ix
		offset := addr - e.Addr
		prevData >>= offset * 8
		newData >>= offset * 8
		a := addr
		for i := offset; i < uint64(e.Size); i++ {
			h.mem.WriteByte(a, uint8(prevData))
			a++
			prevData >>= 8
			newData >>= 8
			undoEnd = a
			if a&7 != 0 {
				continue
			}
			if i+1 < uint64(e.Size) {
				entries[ix] = lsq.Entry{
					Seq: e.Seq, Addr: a, Size: uint8(uint64(e.Size) - i - 1),
					IsStore: true, Data: newData, PrevData: prevData, PC: e.PC,
				}
				removeIx = len(entries) // squash the removal below
				break
			}
		}
	}

	if removeIx < len(entries) {
		entries = append(entries[:removeIx], entries[removeIx+1:]...)
	}
	h.storeQ.ReplaceAll(entries)
	h.reportBusError(addr)
	return count
}

// applyLoadException reports that the load covering addr actually
// failed on the bus after the destination register was already
// written with the speculative result. Zero or more than one covering
// entry is a hard diagnostic error. If a later queue entry already
// targets the same register, that later load superseded this one and
// the register is left alone; otherwise it's restored to the oldest
// prevData among this entry and any earlier invalidated entries
// sharing its target (all of which are marked invalid), and the first
// later entry sharing the target has its prevData patched to that same
// value so a subsequent rollback of it stays chain-consistent.
func (h *Hart) applyLoadException(addr uint64) int {
	entries := h.loadQ.Entries()

	hasYounger := false
	var targetReg uint8
	gotMatch := false
	matches, iMatches := 0, 0
	for _, e := range entries {
		if gotMatch && e.Valid && e.RegIx == targetReg {
			hasYounger = true
		}
		if !e.IsStore && lsqCovers(addr, e.Addr, e.Size) {
			if e.Valid {
				targetReg = e.RegIx
				matches++
				gotMatch = true
			} else {
				iMatches++
			}
		}
	}
	matches += iMatches
	if matches != 1 {
		return matches
	}

	removeIx := len(entries)
	for ix := range entries {
		e := &entries[ix]
		entryEnd := e.Addr + uint64(e.Size)
		if addr < e.Addr || addr >= entryEnd {
			continue
		}
		removeIx = ix
		if !e.Valid {
			continue
		}

		prev := e.PrevData
		for ix2 := removeIx; ix2 > 0; ix2-- {
			e2 := &entries[ix2-1]
			if e2.Valid && e2.RegIx == e.RegIx {
				prev = e2.PrevData
				e2.Valid = false
			}
		}

		if !hasYounger {
			h.setReg(e.RegIx, prev)
		}

		for ix2 := removeIx + 1; ix2 < len(entries); ix2++ {
			e2 := &entries[ix2]
			if e2.Valid && e2.RegIx == e.RegIx {
				e2.PrevData = prev
				break
			}
		}
		break
	}

	if removeIx < len(entries) {
		entries = append(entries[:removeIx], entries[removeIx+1:]...)
	}
	h.loadQ.ReplaceAll(entries)
	h.reportBusError(addr)
	return matches
}

// applyLoadFinished reports that the load covering addr resolved
// successfully after the fact, so its queue entry can simply be
// retired without touching register state. When matchOldest is set and
// more than one entry shares addr exactly (a tight loop can reissue the
// same address before either completes), the oldest is picked; earlier
// invalidated entries sharing its target register are walked the same
// way applyLoadException does, to keep any still-pending entry's
// prevData chain-consistent after this one retires.
func (h *Hart) applyLoadFinished(addr uint64, matchOldest bool) int {
	entries := h.loadQ.Entries()

	matches := 0
	matchIx := 0
	for i, e := range entries {
		if e.IsStore || e.Addr != addr {
			continue
		}
		if !matchOldest || matches == 0 {
			matchIx = i
		}
		matches++
	}
	if matches == 0 {
		return 0
	}

	entry := entries[matchIx]
	targetReg := entry.RegIx
	prevIx := matchIx
	prev := entry.PrevData
	for j := 0; j < matchIx; j++ {
		e2 := &entries[j]
		if !e2.Valid || e2.RegIx != targetReg {
			continue
		}
		e2.Valid = false
		if j < prevIx {
			prevIx = j
			prev = e2.PrevData
		}
	}

	if entry.Valid {
		for j := matchIx + 1; j < len(entries); j++ {
			e2 := &entries[j]
			if e2.Valid && e2.RegIx == targetReg {
				e2.PrevData = prev
				break
			}
		}
	}

	entries = append(entries[:matchIx], entries[matchIx+1:]...)
	h.loadQ.ReplaceAll(entries)
	return matches
}
