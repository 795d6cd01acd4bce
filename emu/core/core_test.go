/*
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

package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rvsim/emu/cpu"
	"github.com/rcornwell/rvsim/emu/csr"
	"github.com/rcornwell/rvsim/emu/ctlmsg"
	"github.com/rcornwell/rvsim/emu/memory"
)

// lui x2, 0x2       -- x2 = 0x2000
const instLUIx2 = 0x00002137

// addi x5, x5, 1
const instADDIx5One = 0x00128293

// sw x5, 0(x2)
const instSWx5x2 = 0x00512023

func newTestHart(t *testing.T) *cpu.Hart {
	t.Helper()
	mem := memory.New(64 * 1024)
	require.NoError(t, mem.AddRegion(memory.Region{
		Name: "ram", Base: 0, Size: 0x2000,
		Attr: memory.Read | memory.Write | memory.Exec,
	}))
	require.NoError(t, mem.AddRegion(memory.Region{
		Name: "dccm", Base: 0x2000, Size: 0x1000,
		Attr: memory.Read | memory.Write | memory.DCCM,
	}))
	return cpu.New(cpu.Config{XLEN: cpu.XLEN64, ResetPC: 0x1000, Memory: mem})
}

func TestReasonStringCoversEveryValue(t *testing.T) {
	for r := Stopped; r <= Interrupted; r++ {
		require.NotEqual(t, "unknown", r.String())
	}
	require.Equal(t, "unknown", Reason(999).String())
}

func TestStepRunsOneInstructionAndAdvancesPC(t *testing.T) {
	h := newTestHart(t)
	require.NoError(t, h.Memory().WriteWord(0x1000, instADDIx5One))

	res := Step(h, 0)
	require.Equal(t, Stopped, res.Reason)
	require.Equal(t, uint64(1), res.Executed)
	require.Equal(t, uint64(0x1004), h.PC)
	require.Equal(t, uint64(1), h.PeekIntReg(5))
}

func TestRunUntilAddressStopsAtTarget(t *testing.T) {
	h := newTestHart(t)
	require.NoError(t, h.Memory().WriteWord(0x1000, instADDIx5One))
	require.NoError(t, h.Memory().WriteWord(0x1004, instADDIx5One))

	res := RunUntilAddress(h, 0x1008, 0, 0, nil, nil)
	require.Equal(t, AddressReached, res.Reason)
	require.Equal(t, uint64(2), res.Executed)
	require.Equal(t, uint64(2), h.PeekIntReg(5))
}

func TestRunUntilAddressHonoursInstCap(t *testing.T) {
	h := newTestHart(t)
	require.NoError(t, h.Memory().WriteWord(0x1000, instADDIx5One))
	require.NoError(t, h.Memory().WriteWord(0x1004, instADDIx5One))

	res := RunUntilAddress(h, 0xffffffff, 1, 0, nil, nil)
	require.Equal(t, InstLimitReached, res.Reason)
	require.Equal(t, uint64(1), res.Executed)
}

func TestRunUntilAddressDetectsToHostWrite(t *testing.T) {
	h := newTestHart(t)
	require.NoError(t, h.Memory().WriteWord(0x1000, instLUIx2))
	require.NoError(t, h.Memory().WriteWord(0x1004, instADDIx5One))
	require.NoError(t, h.Memory().WriteWord(0x1008, instSWx5x2))

	res := RunUntilAddress(h, 0xffffffff, 0, 0x2000, nil, nil)
	require.Equal(t, ToHostExit, res.Reason)
	require.Equal(t, uint64(1), res.ExitCode)
	require.Equal(t, uint64(3), res.Executed)
}

func TestRunUntilAddressDetectsStuckIllegal(t *testing.T) {
	h := newTestHart(t)
	// Memory at the reset PC and at mtvec (0, the reset default) is left
	// zeroed, an illegal instruction; the trap handler keeps redirecting
	// to the same mtvec address every step, so the PC never advances.
	res := RunUntilAddress(h, 0xffffffff, 0, 0, nil, nil)
	require.Equal(t, StuckIllegal, res.Reason)
}

func TestSimpleRunHonoursInstCap(t *testing.T) {
	h := newTestHart(t)
	require.NoError(t, h.Memory().WriteWord(0x1000, instADDIx5One))
	require.NoError(t, h.Memory().WriteWord(0x1004, instADDIx5One))
	require.NoError(t, h.Memory().WriteWord(0x1008, instADDIx5One))

	res := SimpleRun(h, 2, nil)
	require.Equal(t, InstLimitReached, res.Reason)
	require.Equal(t, uint64(2), res.Executed)
	require.Equal(t, uint64(2), h.PeekIntReg(5))
}

func TestWhatIfStepRestoresRegisterStateButExecutesOnce(t *testing.T) {
	h := newTestHart(t)
	require.NoError(t, h.Memory().WriteWord(0x1000, instADDIx5One))

	rec := WhatIfStep(h)
	require.Equal(t, uint64(0), rec.Before.Regs[5])
	require.Equal(t, uint64(1), rec.After.Regs[5])
	require.Equal(t, uint64(0), h.PeekIntReg(5), "register state must be rewound after the probe")
	require.Equal(t, uint64(0x1000), h.PC, "PC must be rewound after the probe")
}

func TestSnapshotRunWritesOneFilePerPeriodAndLoadSnapshotRestores(t *testing.T) {
	h := newTestHart(t)
	require.NoError(t, h.Memory().WriteWord(0x1000, instADDIx5One))
	require.NoError(t, h.Memory().WriteWord(0x1004, instADDIx5One))
	require.NoError(t, h.Memory().WriteWord(0x1008, instADDIx5One))
	require.NoError(t, h.Memory().WriteWord(0x100c, instADDIx5One))

	dir := t.TempDir()
	res, err := SnapshotRun(h, 2, 4, dir, nil)
	require.NoError(t, err)
	require.Equal(t, InstLimitReached, res.Reason)
	require.Equal(t, uint64(4), res.Executed)
	require.Equal(t, uint64(4), h.PeekIntReg(5))

	h2 := newTestHart(t)
	require.NoError(t, LoadSnapshot(h2, filepath.Join(dir, "snapshot-0001.json")))
	require.Equal(t, uint64(4), h2.PeekIntReg(5))
	require.Equal(t, h.PC, h2.PC)
}

func TestSnapshotRunRejectsZeroPeriod(t *testing.T) {
	h := newTestHart(t)
	_, err := SnapshotRun(h, 0, 0, t.TempDir(), nil)
	require.Error(t, err)
}

func TestArmIntTimerFiresAfterPeriodAndRearms(t *testing.T) {
	h := newTestHart(t)
	r := New(h, nil)

	r.process(ctlmsg.Packet{Msg: ctlmsg.ArmIntTimer0, Period: 2})
	r.events.Advance(1)
	mip, _, _, _, err := h.PeekCSR(csr.Mip)
	require.NoError(t, err)
	require.Equal(t, uint64(0), mip&csr.MIPMIntTimer0)

	r.events.Advance(1)
	mip, _, _, _, err = h.PeekCSR(csr.Mip)
	require.NoError(t, err)
	require.NotEqual(t, uint64(0), mip&csr.MIPMIntTimer0)

	// The timer re-armed itself: another full period fires it again.
	h.SetIntTimer0Interrupt(false)
	r.events.Advance(2)
	mip, _, _, _, err = h.PeekCSR(csr.Mip)
	require.NoError(t, err)
	require.NotEqual(t, uint64(0), mip&csr.MIPMIntTimer0)

	// A zero period cancels the pending event.
	h.SetIntTimer0Interrupt(false)
	r.process(ctlmsg.Packet{Msg: ctlmsg.ArmIntTimer0, Period: 0})
	r.events.Advance(4)
	mip, _, _, _, err = h.PeekCSR(csr.Mip)
	require.NoError(t, err)
	require.Equal(t, uint64(0), mip&csr.MIPMIntTimer0)
}
