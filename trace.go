/*
 * rvsim - Retired-instruction trace wiring.
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

package main

import (
	"github.com/rcornwell/rvsim/emu/cpu"
	"github.com/rcornwell/rvsim/emu/disassemble"
	"github.com/rcornwell/rvsim/util/debug"
)

// traceFunc builds the core.Runner.Trace / run-algorithm callback: given
// the architectural snapshot captured just before an instruction
// retired, it diffs that snapshot against the hart's state immediately
// after and hands tr one debug.Record per resource the instruction
// changed -- integer and FP registers, CSRs, and (by watching the store
// queue's newest entry) memory -- matching the "multiple lines per
// instruction" trace convention. A run that changes nothing still emits
// one record, per the no-op convention.
func traceFunc(tr *debug.Tracer, hartID int) func(before cpu.Snapshot, h *cpu.Hart) {
	var tag uint64
	lastStoreSeq := int64(-1)

	return func(before cpu.Snapshot, h *cpu.Hart) {
		tag++

		var asm string
		var opcode uint32
		if dec, err := h.DecodeAt(before.PC); err == nil {
			asm = disassemble.Instruction(before.PC, dec)
			opcode = dec.Raw
		}

		var recs []debug.Record
		emit := func(kind debug.Kind, addr, val uint64) {
			recs = append(recs, debug.Record{
				Tag:    tag,
				Hart:   hartID,
				PC:     before.PC,
				Opcode: opcode,
				Kind:   kind,
				Addr:   addr,
				Value:  val,
				Asm:    asm,
			})
		}

		for i := uint8(1); i < 32; i++ {
			if v := h.PeekIntReg(i); before.Regs[i] != v {
				emit(debug.KindReg, uint64(i), v)
			}
		}
		for i := uint8(0); i < 32; i++ {
			if v := h.PeekFPReg(i); before.FPRegs[i] != v {
				emit(debug.KindFPReg, uint64(i), v)
			}
		}

		after := h.Snapshot()
		for num, v := range after.CSRs {
			if before.CSRs[num] != v {
				emit(debug.KindCSR, uint64(num), v)
			}
		}

		if entries := h.StoreQueueEntries(); len(entries) > 0 {
			e := entries[len(entries)-1]
			if int64(e.Seq) > lastStoreSeq {
				lastStoreSeq = int64(e.Seq)
				emit(debug.KindMemory, e.Addr, e.Data)
			}
		}

		if len(recs) == 0 {
			emit(debug.KindReg, 0, 0)
		}
		tr.Emit(recs...)
	}
}
