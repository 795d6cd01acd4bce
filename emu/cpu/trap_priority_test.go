/*
   Interrupt priority and ICCM-boundary fetch tests.

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

	"github.com/rcornwell/rvsim/emu/csr"
	"github.com/rcornwell/rvsim/emu/memory"
)

func enableGlobalInterrupts(h *Hart) {
	h.csr.RawSet(csr.Mstatus, h.csr.RawGet(csr.Mstatus)|csr.StatusMIE)
}

func TestInterruptPriorityLocalBeatsSoftware(t *testing.T) {
	h := newTestHart(t, XLEN64)
	enableGlobalInterrupts(h)
	h.csr.RawSet(csr.Mie, csr.MIPMLocal|csr.MIPMsip)
	h.SetLocalInterrupt(true)
	h.csr.RawSet(csr.Mip, h.csr.RawGet(csr.Mip)|csr.MIPMsip)

	require.True(t, h.checkPendingInterrupt())
	cause := h.csr.RawGet(csr.Mcause)
	require.Equal(t, interruptBit|irqMLocal, cause)
}

func TestInterruptPrioritySoftwareBeatsIntTimer0(t *testing.T) {
	h := newTestHart(t, XLEN64)
	enableGlobalInterrupts(h)
	h.csr.RawSet(csr.Mie, csr.MIPMsip|csr.MIPMIntTimer0)
	h.csr.RawSet(csr.Mip, csr.MIPMsip)
	h.SetIntTimer0Interrupt(true)

	require.True(t, h.checkPendingInterrupt())
	cause := h.csr.RawGet(csr.Mcause)
	require.Equal(t, interruptBit|irqMSoft, cause)
}

func TestFetchAcrossICCMBoundaryFaults(t *testing.T) {
	mem := memory.New(64 * 1024)
	require.NoError(t, mem.AddRegion(memory.Region{
		Name: "iccm", Base: 0, Size: 0x1000,
		Attr: memory.Read | memory.Write | memory.Exec | memory.ICCM,
	}))
	require.NoError(t, mem.AddRegion(memory.Region{
		Name: "ram", Base: 0x1000, Size: 0x1000,
		Attr: memory.Read | memory.Write | memory.Exec,
	}))
	h := New(Config{XLEN: XLEN64, ResetPC: 0x0ffe, Memory: mem})

	// A 32-bit instruction whose low halfword sits at the last two bytes
	// of ICCM and whose high halfword crosses into plain RAM.
	require.NoError(t, mem.WriteHalf(0x0ffe, 0x0013)) // low half of a NOP-shaped addi
	require.NoError(t, mem.WriteHalf(0x1000, 0x0000))

	h.Step()
	require.True(t, h.lastTrapTaken)
	require.Equal(t, excInstAccessFault, h.lastTrapCause)
}
