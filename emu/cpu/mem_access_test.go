/*
   Stack-bounds-check and load/store rollback tests.

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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rvsim/emu/decode"
	"github.com/rcornwell/rvsim/emu/lsq"
	"github.com/rcornwell/rvsim/emu/memory"
	op "github.com/rcornwell/rvsim/emu/opcode"
)

func newStackCheckHart(t *testing.T) *Hart {
	t.Helper()
	mem := memory.New(64 * 1024)
	require.NoError(t, mem.AddRegion(memory.Region{
		Name: "ram", Base: 0, Size: 0x4000,
		Attr: memory.Read | memory.Write | memory.Exec,
	}))
	return New(Config{
		XLEN: XLEN64, ResetPC: 0x1000, Memory: mem,
		StackCheck: true, StackMin: 0x2000, StackMax: 0x2fff,
	})
}

func TestStackCheckRejectsLoadThroughSPOutOfRange(t *testing.T) {
	h := newStackCheckHart(t)
	h.setReg(2, 0x1000) // sp outside the configured stack window

	step := &stepInfo{dec: decode.Decoded{Op: op.OpLW, Rd: 3, Rs1: 2}}
	trap := h.table[op.OpLW](h, step)
	require.Equal(t, trapTaken(excLoadAccessFault), trap)
}

func TestStackCheckIgnoresNonSPLoad(t *testing.T) {
	h := newStackCheckHart(t)
	h.setReg(4, 0x1000) // not sp: out of the stack window but unchecked

	step := &stepInfo{dec: decode.Decoded{Op: op.OpLW, Rd: 3, Rs1: 4}}
	trap := h.table[op.OpLW](h, step)
	require.Equal(t, ok, trap)
}

func TestApplyStoreExceptionRestoresBytesAndLatchesMDSEAC(t *testing.T) {
	h := newTestHart(t, XLEN64)
	require.NoError(t, h.mem.WriteWord(0x100, 0xaaaaaaaa))

	h.storeQ.Push(lsq.Entry{
		Addr: 0x100, Size: 4, IsStore: true,
		Data: 0x11111111, PrevData: 0xaaaaaaaa,
	})
	matches := h.applyStoreException(0x100)
	require.Equal(t, 1, matches)

	v, err := h.mem.ReadWord(0x100)
	require.NoError(t, err)
	require.Equal(t, uint32(0xaaaaaaaa), v)
	require.True(t, h.nmi.pending)
}

func TestApplyStoreExceptionZeroMatchesIsDiagnosticOnly(t *testing.T) {
	h := newTestHart(t, XLEN64)
	matches := h.applyStoreException(0x100)
	require.Equal(t, 0, matches)
	require.False(t, h.nmi.pending)
}

func TestApplyLoadExceptionRestoresRegisterWhenNoYoungerEntry(t *testing.T) {
	h := newTestHart(t, XLEN64)
	h.setReg(5, 0x12345678) // speculative load result already committed
	h.loadQ.Push(lsq.Entry{Addr: 0x200, Size: 4, RegIx: 5, PrevData: 0xdeadbeef, Valid: true})

	matches := h.applyLoadException(0x200)
	require.Equal(t, 1, matches)
	require.Equal(t, uint64(0xdeadbeef), h.reg(5))
	require.True(t, h.nmi.pending)
}

func TestApplyLoadExceptionLeavesRegisterWhenYoungerEntrySupersedes(t *testing.T) {
	h := newTestHart(t, XLEN64)
	h.setReg(5, 0x11111111)
	h.loadQ.Push(lsq.Entry{Addr: 0x200, Size: 4, RegIx: 5, PrevData: 0xaaaaaaaa, Valid: true})
	h.setReg(5, 0x22222222) // a second, younger load into the same register
	h.loadQ.Push(lsq.Entry{Addr: 0x300, Size: 4, RegIx: 5, PrevData: 0x11111111, Valid: true})

	matches := h.applyLoadException(0x200)
	require.Equal(t, 1, matches)
	require.Equal(t, uint64(0x22222222), h.reg(5)) // younger load's result survives
}
