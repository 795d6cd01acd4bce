/*
   Debug-mode, NMI, fast-interrupt and console-IO tests.

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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rvsim/emu/csr"
	"github.com/rcornwell/rvsim/emu/lsq"
	"github.com/rcornwell/rvsim/emu/memory"
	"github.com/rcornwell/rvsim/emu/trigger"
)

// ebreak
const instEBREAK = 0x00100073

// addi x5, x5, 1
const instADDIx5Inc = 0x00128293

func TestEBreakRaisesBreakpointWithoutEbreakM(t *testing.T) {
	h := newTestHart(t, XLEN32)
	require.NoError(t, h.mem.WriteWord(0x1000, instEBREAK))
	h.csr.RawSet(csr.Mtvec, 0x200)

	halted := h.Step()
	require.False(t, halted)
	require.Equal(t, uint64(0x200), h.PC)
	require.Equal(t, excBreakpoint, h.csr.RawGet(csr.Mcause))
	require.Equal(t, uint64(0x1000), h.csr.RawGet(csr.Mtval))
	_, minstret := h.Counters()
	require.Equal(t, uint64(1), minstret, "ebreak still counts as retired")
}

func TestEBreakEntersDebugModeWithEbreakM(t *testing.T) {
	h := newTestHart(t, XLEN32)
	require.NoError(t, h.mem.WriteWord(0x1000, instEBREAK))
	h.csr.RawSet(csr.Dcsr, h.csr.RawGet(csr.Dcsr)|dcsrEbreakM)

	halted := h.Step()
	require.True(t, halted)
	require.True(t, h.Halted())
	require.Equal(t, uint64(0x1000), h.csr.RawGet(csr.Dpc))
	cause := (h.csr.RawGet(csr.Dcsr) & dcsrCauseMask) >> dcsrCauseShift
	require.Equal(t, dbgCauseEbreak, cause)
}

func TestSingleStepReentersDebugMode(t *testing.T) {
	h := newTestHart(t, XLEN32)
	require.NoError(t, h.mem.WriteWord(0x1000, instADDIx5Inc))
	require.NoError(t, h.mem.WriteWord(0x1004, instADDIx5Inc))

	h.EnterDebugMode()
	h.csr.RawSet(csr.Dcsr, h.csr.RawGet(csr.Dcsr)|dcsrStep)
	h.Resume()

	halted := h.Step()
	require.True(t, halted, "exactly one instruction, then back to debug mode")
	require.Equal(t, uint64(1), h.reg(5))
	require.Equal(t, uint64(0x1004), h.csr.RawGet(csr.Dpc))
	cause := (h.csr.RawGet(csr.Dcsr) & dcsrCauseMask) >> dcsrCauseShift
	require.Equal(t, dbgCauseStep, cause)
}

func TestTrapClearsReservation(t *testing.T) {
	h := newTestHart(t, XLEN32)
	h.setReg(2, 0x2000)
	h.setReg(1, 0x42)
	h.csr.RawSet(csr.Mtvec, 0x200)

	const instLRW = 0x1001252f // lr.w x10, (x2)
	const instSCW = 0x1811222f // sc.w x4, x1, (x2)
	require.NoError(t, h.mem.WriteWord(0x1000, instLRW))
	require.NoError(t, h.mem.WriteWord(0x1004, instECALL))
	require.NoError(t, h.mem.WriteWord(0x200, instSCW))

	h.Step() // lr.w
	h.Step() // ecall, traps to 0x200
	h.Step() // sc.w, reservation must be gone

	require.Equal(t, uint64(1), h.reg(4), "sc.w after a trap must fail")
}

func TestFenceClearsQueuesAndReservation(t *testing.T) {
	h := newTestHart(t, XLEN32)
	h.setReg(2, 0x2000)
	h.setReg(1, 0x42)

	const instLRW = 0x1001252f  // lr.w x10, (x2)
	const instFENCE = 0x0ff0000f // fence iorw, iorw
	const instSCW = 0x1811222f  // sc.w x4, x1, (x2)
	require.NoError(t, h.mem.WriteWord(0x1000, instLRW))
	require.NoError(t, h.mem.WriteWord(0x1004, instFENCE))
	require.NoError(t, h.mem.WriteWord(0x1008, instSCW))

	// Park something in the store queue to observe the drain.
	h.storeQ.Push(lsq.Entry{Addr: 0x100, Size: 4, IsStore: true, Data: 7})

	h.Step() // lr.w
	h.Step() // fence
	require.Empty(t, h.StoreQueueEntries())
	h.Step() // sc.w
	require.Equal(t, uint64(1), h.reg(4), "sc.w after fence must fail")
}

func TestConsoleIOEchoAndRead(t *testing.T) {
	mem := memory.New(64 * 1024)
	require.NoError(t, mem.AddRegion(memory.Region{
		Name: "ram", Base: 0, Size: 0x4000,
		Attr: memory.Read | memory.Write | memory.Exec,
	}))
	var out bytes.Buffer
	h := New(Config{
		XLEN: XLEN32, ResetPC: 0x1000, Memory: mem,
		ConsoleIO:  0x3f00,
		ConsoleIn:  strings.NewReader("A"),
		ConsoleOut: &out,
	})

	trap := h.storeByte(0x3f00, 'Z')
	require.Equal(t, ok, trap)
	require.Equal(t, "Z", out.String())

	res := h.loadByte(0x3f00, false)
	require.Equal(t, ok, res.trap)
	require.Equal(t, uint64('A'), res.value)
}

func TestForcedFetchFault(t *testing.T) {
	h := newTestHart(t, XLEN32)
	require.NoError(t, h.mem.WriteWord(0x1000, instADDIx5Inc))
	h.csr.RawSet(csr.Mtvec, 0x200)

	h.SetForceFetchFault(2)
	h.Step()
	require.Equal(t, excInstAccessFault, h.csr.RawGet(csr.Mcause))
	require.Equal(t, uint64(0x1002), h.csr.RawGet(csr.Mtval))
	require.Equal(t, uint64(0x200), h.PC)

	// One-shot: the next fetch of the same address succeeds.
	h.PC = 0x1000
	h.Step()
	require.Equal(t, uint64(1), h.reg(5))
}

func TestNMIVectorsToFixedPC(t *testing.T) {
	mem := memory.New(64 * 1024)
	require.NoError(t, mem.AddRegion(memory.Region{
		Name: "ram", Base: 0, Size: 0x4000,
		Attr: memory.Read | memory.Write | memory.Exec,
	}))
	h := New(Config{XLEN: XLEN32, ResetPC: 0x1000, Memory: mem, NmiPC: 0x800})

	h.SetPendingNMI(0x42)
	require.NotEqual(t, uint64(0), h.csr.RawGet(csr.Dcsr)&dcsrNmip)

	h.Step()
	require.Equal(t, uint64(0x800), h.PC)
	require.Equal(t, interruptBit|uint64(0x42), h.csr.RawGet(csr.Mcause))
	require.Equal(t, uint64(0), h.csr.RawGet(csr.Dcsr)&dcsrNmip)
}

func TestMEIHAPFastInterruptLoadsTargetFromDCCM(t *testing.T) {
	h := newTestHart(t, XLEN32)
	h.csr.RawSet(csr.Mstatus, h.csr.RawGet(csr.Mstatus)|csr.StatusMIE)
	h.csr.RawSet(csr.Mie, csr.MIPMeip)
	h.SetExternalInterrupt(true)

	// Handler table entry lives in DCCM and names the real target.
	require.NoError(t, h.mem.WriteWord(0x2000, 0x1234))
	require.NoError(t, h.csr.Write(csr.MeiHap, 0x2000))

	require.True(t, h.checkPendingInterrupt())
	require.Equal(t, uint64(0x1234), h.PC)
	require.Equal(t, interruptBit|irqMExt, h.csr.RawGet(csr.Mcause))
}

func TestMEIHAPOutsideDCCMPromotesToNMI(t *testing.T) {
	h := newTestHart(t, XLEN32)
	h.csr.RawSet(csr.Mstatus, h.csr.RawGet(csr.Mstatus)|csr.StatusMIE)
	h.csr.RawSet(csr.Mie, csr.MIPMeip)
	h.SetExternalInterrupt(true)

	// 0x100 is plain RAM, not DCCM: the shortcut cannot dispatch.
	require.NoError(t, h.csr.Write(csr.MeiHap, 0x100))

	require.True(t, h.checkPendingInterrupt())
	require.Equal(t, interruptBit|NmiCauseNonDccmAccessError, h.csr.RawGet(csr.Mcause))
}

func TestRV64OnlyOpsIllegalOnRV32(t *testing.T) {
	h := newTestHart(t, XLEN32)
	h.csr.RawSet(csr.Mtvec, 0x200)
	const instADDIW = 0x0012829b // addiw x5, x5, 1
	require.NoError(t, h.mem.WriteWord(0x1000, instADDIW))

	h.Step()
	cause, taken := h.LastTrap()
	require.True(t, taken)
	require.Equal(t, excIllegalInst, cause)
}

func TestPerfCounterCountsRetiredAndStores(t *testing.T) {
	h := newTestHart(t, XLEN32)
	h.csr.RawSet(csr.Mhpmevent3, PerfEventRetired)
	h.csr.RawSet(csr.Mhpmevent4, PerfEventStore)

	h.setReg(1, 0xdeadbeef)
	h.setReg(2, 0x2000)
	require.NoError(t, h.mem.WriteWord(0x1000, instADDIx5Inc))
	require.NoError(t, h.mem.WriteWord(0x1004, instSW))
	h.Step()
	h.Step()

	require.Equal(t, uint64(2), h.csr.RawGet(csr.Mhpmcounter3))
	require.Equal(t, uint64(1), h.csr.RawGet(csr.Mhpmcounter4))
}

func TestTriggerBreakActionRaisesBreakpoint(t *testing.T) {
	h := newTestHart(t, XLEN32)
	h.csr.RawSet(csr.Mtvec, 0x200)
	require.NoError(t, h.mem.WriteWord(0x1000, instADDIx5Inc))

	h.triggers.Set(0, trigger.Trigger{
		Kind: trigger.Address, Match: trigger.Eq, Value: 0x1000,
		Execute: true, M: true, Break: true,
	})

	halted := h.Step()
	require.False(t, halted, "break action traps instead of halting")
	require.Equal(t, uint64(0x200), h.PC)
	require.Equal(t, excBreakpoint, h.csr.RawGet(csr.Mcause))
	require.Equal(t, uint64(0x1000), h.csr.RawGet(csr.Mtval))
}

func TestMEIHAPPokeOnlyTouchesClaimField(t *testing.T) {
	h := newTestHart(t, XLEN32)
	require.NoError(t, h.csr.Write(csr.MeiHap, 0x2000))
	require.NoError(t, h.PokeCSR(csr.MeiHap, 0xffffffff))
	v, _, _, _, err := h.PeekCSR(csr.MeiHap)
	require.NoError(t, err)
	require.Equal(t, uint64(0x2000|0x3fc), v, "poke reaches only the claim-id bits")
}
