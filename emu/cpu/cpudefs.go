/*
   Hart state definitions.

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
	"io"

	"github.com/rcornwell/rvsim/emu/csr"
	"github.com/rcornwell/rvsim/emu/decode"
	"github.com/rcornwell/rvsim/emu/lsq"
	"github.com/rcornwell/rvsim/emu/memory"
	"github.com/rcornwell/rvsim/emu/trigger"
)

// stepInfo is the per-instruction decode-and-execute scratch record
// passed to every opcode handler.
type stepInfo struct {
	dec  decode.Decoded
	pc   uint64 // address this instruction was fetched from
	next uint64 // address of the following instruction, updated by control transfers
}

// handler is one dispatch-table entry: it executes the decoded
// instruction and returns a trap cause, or ok if none was raised.
type handler func(h *Hart, step *stepInfo) uint16

// XLEN identifies the hart's integer register width.
type XLEN uint8

const (
	XLEN32 XLEN = 32
	XLEN64 XLEN = 64
)

// Hart is the architectural state of one RISC-V hart.
type Hart struct {
	ID int

	xlen XLEN
	mask uint64 // xlen-wide mask applied to every integer result

	PC   uint64
	regs [32]uint64

	fpregs    [32]uint64 // NaN-boxed; low 32 bits hold single-precision values
	fflags    uint8
	frm       uint8
	fEnabled  bool
	dEnabled  bool

	priv csr.Privilege
	csr  *csr.File

	mem *memory.Memory

	decodeCache *decode.Cache
	triggers    *trigger.Unit
	loadQ       *lsq.Queue
	storeQ      *lsq.Queue

	mcycle   uint64
	minstret uint64

	nmi   nmiState
	nmiPc uint64 // fixed NMI handler address; NMI delivery bypasses mtvec

	reservationHart int

	conIo  uint64    // console-IO magic address; byte accesses to it use conIn/conOut
	conIn  io.Reader // stdin stand-in for conIo byte loads
	conOut io.Writer // console sink for conIo byte stores

	forceFetchFault  bool   // one-shot: next fetch faults regardless of memory state
	forceFetchOffset uint64 // added to pc for the forced fault's reported address

	lrRequireDccm  bool // LR outside DCCM raises a load access fault
	dccmCrossCheck bool // base/effective region DCCM mismatch raises a load access fault

	halted     bool // true while parked in debug mode
	waitingWFI bool
	singleStep bool // one more instruction, then re-enter debug mode (dcsr.step)
	triggerHit bool // set by a load/store data trigger match during the current instruction

	lastTrapTaken bool   // whether the most recently retired Step took a trap
	lastTrapCause uint64 // valid only when lastTrapTaken

	pendingTval uint64 // info a handler stashes here before returning a trap, written to xTVAL on delivery

	lastBranchTaken bool // set by every branch/jump handler, for the "did this branch fire" introspection contract

	haltOnReset uint64 // reset vector

	stackCheckEnabled bool
	stackMin          uint64
	stackMax          uint64

	table [512]handler // indexed by opcode.ID
}

// Trap cause codes, the RISC-V standard mcause encoding (bit 63/31 set
// for interrupts, clear for exceptions).
const (
	excInstAddrMisaligned uint64 = 0
	excInstAccessFault    uint64 = 1
	excIllegalInst        uint64 = 2
	excBreakpoint         uint64 = 3
	excLoadAddrMisaligned uint64 = 4
	excLoadAccessFault    uint64 = 5
	excStoreAddrMisaligned uint64 = 6
	excStoreAccessFault   uint64 = 7
	excECallU             uint64 = 8
	excECallS             uint64 = 9
	excECallM             uint64 = 11

	interruptBit uint64 = 1 << 63

	irqSSoft    uint64 = 1
	irqMSoft    uint64 = 3
	irqSTimer   uint64 = 5
	irqMTimer   uint64 = 7
	irqSExt     uint64 = 9
	irqMExt     uint64 = 11

	// Vendor-extension causes, named after SweRV's M_LOCAL/M_INT_TIMER0/
	// M_INT_TIMER1 (Core.cpp's isInterruptPossible), which rank alongside
	// the standard causes in the fixed interrupt priority order.
	irqMLocal     uint64 = 16
	irqMIntTimer0 uint64 = 28
	irqMIntTimer1 uint64 = 29

	irqNMI uint64 = 0xffff // sticky NMI cause, non-standard slot used internally

	// nmiCauseBusError distinguishes an imprecise store/load bus error
	// (reported through applyStoreException/applyLoadException) from any
	// other source raising the same sticky NMI line.
	nmiCauseBusError uint64 = 0x1

	// NMI causes the fast external-interrupt shortcut raises when it
	// cannot dispatch: the handler pointer landed outside DCCM, the
	// handler-table load itself failed, or the loaded word was corrupt.
	NmiCauseDoubleBitEcc       uint64 = 0xf0001000
	NmiCauseDccmAccessError    uint64 = 0xf0001001
	NmiCauseNonDccmAccessError uint64 = 0xf0001002
)

// dcsr bit layout used by the debug-mode machinery.
const (
	dcsrEbreakM    uint64 = 1 << 15
	dcsrCauseShift        = 6
	dcsrCauseMask  uint64 = 0x7 << dcsrCauseShift
	dcsrNmip       uint64 = 1 << 3
	dcsrStep       uint64 = 1 << 2
)

// Debug-mode entry causes, the dcsr cause-field encoding.
const (
	dbgCauseEbreak  uint64 = 1
	dbgCauseTrigger uint64 = 2
	dbgCauseHaltReq uint64 = 3
	dbgCauseStep    uint64 = 4
)

// ok is the handler return value meaning "no trap".
const ok uint16 = 0

// trapTaken packs an exception code (not yet interrupt-tagged) into the
// uint16 a handler returns, matching the IRC-return convention the trap
// pipeline historically used: zero means success, non-zero identifies
// the fault.
func trapTaken(cause uint64) uint16 { return uint16(cause) + 1 }

func trapCauseFromReturn(v uint16) uint64 { return uint64(v) - 1 }
