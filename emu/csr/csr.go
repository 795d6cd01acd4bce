/*
   Control and status register file.

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

// Package csr implements the hart's control and status register file:
// each register carries a reset value, a write mask (for CSRRW-family
// instructions), a separate poke mask (for debugger deposits, which may
// reach bits normal writes cannot), an implemented flag, a debug-only
// visibility flag, and an optional tied-alias target.
package csr

import "fmt"

// Well-known CSR addresses, named the way the privileged spec names them.
const (
	Fflags   = 0x001
	Frm      = 0x002
	Fcsr     = 0x003
	Cycle    = 0xc00
	Time     = 0xc01
	Instret  = 0xc02
	Cycleh   = 0xc80
	Timeh    = 0xc81
	Instreth = 0xc82

	Sstatus    = 0x100
	Sie        = 0x104
	Stvec      = 0x105
	Sscratch   = 0x140
	Sepc       = 0x141
	Scause     = 0x142
	Stval      = 0x143
	Sip        = 0x144
	Satp       = 0x180

	Mstatus    = 0x300
	Misa       = 0x301
	Medeleg    = 0x302
	Mideleg    = 0x303
	Mie        = 0x304
	Mtvec      = 0x305
	Mcounteren = 0x306
	Mscratch   = 0x340
	Mepc       = 0x341
	Mcause     = 0x342
	Mtval      = 0x343
	Mip        = 0x344

	Mcycle   = 0xb00
	Minstret = 0xb02

	// Event-count performance counters and their event selectors; only
	// the first four of the architecture's 29 are populated by default.
	Mhpmcounter3 = 0xb03
	Mhpmcounter4 = 0xb04
	Mhpmcounter5 = 0xb05
	Mhpmcounter6 = 0xb06
	Mhpmevent3   = 0x323
	Mhpmevent4   = 0x324
	Mhpmevent5   = 0x325
	Mhpmevent6   = 0x326
	Mcycleh  = 0xb80
	Minstreth = 0xb82

	Mvendorid = 0xf11
	Marchid   = 0xf12
	Mimpid    = 0xf13
	Mhartid   = 0xf14

	// Debug module CSRs.
	Dcsr      = 0x7b0
	Dpc       = 0x7b1
	Dscratch0 = 0x7b2
	Dscratch1 = 0x7b3

	// Trigger module CSRs.
	Tselect = 0x7a0
	Tdata1  = 0x7a1
	Tdata2  = 0x7a2
	Tdata3  = 0x7a3
	Tinfo   = 0x7a4

	MeiHap = 0x7f0 // fast external-interrupt handler-address shortcut, a non-standard but common custom CSR
	Mdseac = 0x7f1 // machine-mode store/load-error-address, sticky until explicitly cleared
)

// mstatus / mip / mie bit positions used by the trap pipeline.
const (
	StatusMIE  = 1 << 3
	StatusMPIE = 1 << 7
	StatusMPPShift = 11
	StatusMPPMask  = 0x3 << StatusMPPShift
	StatusSIE  = 1 << 1
	StatusSPIE = 1 << 5
	StatusSPPShift = 8
	StatusSPP  = 1 << StatusSPPShift
	StatusFSShift = 13
	StatusFSMask  = 0x3 << StatusFSShift

	MIPMeip = 1 << 11
	MIPSeip = 1 << 9
	MIPMtip = 1 << 7
	MIPStip = 1 << 5
	MIPMsip = 1 << 3
	MIPSsip = 1 << 1

	// Vendor-extension local-interrupt pending bits, named and
	// bit-positioned after SweRV's non-standard M_LOCAL/M_INT_TIMER0/
	// M_INT_TIMER1 causes (Core.cpp's isInterruptPossible), which the
	// standard mip/mie layout has no room for below bit 11. Bit position
	// follows the same "bit index equals cause number" convention the
	// standard causes use.
	MIPMLocal     = 1 << 16
	MIPMIntTimer0 = 1 << 28
	MIPMIntTimer1 = 1 << 29
)

// Privilege encodes the hart's current privilege mode.
type Privilege uint8

const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

// Entry describes one CSR's static attributes.
type Entry struct {
	Name        string
	Reset       uint64
	WriteMask   uint64
	PokeMask    uint64
	Implemented bool
	DebugOnly   bool
	TiedTo      uint16 // if non-zero, reads/writes alias this other CSR's low bits
	TiedMask    uint64
}

// File is a hart's CSR register file.
type File struct {
	entries map[uint16]*Entry
	values  map[uint16]uint64
	debug   bool // true while the hart is halted in debug mode
}

// NewFile builds a CSR file from a set of entries, keyed by address.
func NewFile(entries map[uint16]Entry) *File {
	f := &File{
		entries: make(map[uint16]*Entry, len(entries)),
		values:  make(map[uint16]uint64, len(entries)),
	}
	for addr, e := range entries {
		e := e
		f.entries[addr] = &e
		f.values[addr] = e.Reset
	}
	return f
}

// SetDebugMode toggles whether debug-only CSRs are currently visible.
func (f *File) SetDebugMode(on bool) { f.debug = on }

// ErrNotImplemented and ErrIllegal mirror the two CSR-access failure
// modes: an address that doesn't exist at all, versus one that exists
// but is off limits right now (debug-only outside debug mode).
var (
	ErrNotImplemented = fmt.Errorf("csr not implemented")
	ErrIllegal        = fmt.Errorf("illegal csr access")
)

func (f *File) lookup(addr uint16) (*Entry, error) {
	e, ok := f.entries[addr]
	if !ok || !e.Implemented {
		return nil, ErrNotImplemented
	}
	if e.DebugOnly && !f.debug {
		return nil, ErrIllegal
	}
	return e, nil
}

// Read returns a CSR's current value, following a tied alias if set.
func (f *File) Read(addr uint16) (uint64, error) {
	e, err := f.lookup(addr)
	if err != nil {
		return 0, err
	}
	if e.TiedTo != 0 {
		v, err := f.Read(e.TiedTo)
		if err != nil {
			return 0, err
		}
		return v & e.TiedMask, nil
	}
	return f.values[addr], nil
}

// Write applies a normal (instruction-driven) write, honoring WriteMask.
func (f *File) Write(addr uint16, v uint64) error {
	e, err := f.lookup(addr)
	if err != nil {
		return err
	}
	if e.TiedTo != 0 {
		cur, _ := f.Read(e.TiedTo)
		nv := (cur &^ e.TiedMask) | (v & e.TiedMask)
		return f.Write(e.TiedTo, nv)
	}
	cur := f.values[addr]
	f.values[addr] = (cur &^ e.WriteMask) | (v & e.WriteMask)
	return nil
}

// Poke applies a debugger deposit, which uses PokeMask instead of
// WriteMask and so can reach bits ordinary CSR writes cannot.
func (f *File) Poke(addr uint16, v uint64) error {
	e, err := f.lookup(addr)
	if err != nil {
		return err
	}
	cur := f.values[addr]
	f.values[addr] = (cur &^ e.PokeMask) | (v & e.PokeMask)
	return nil
}

// RawSet bypasses masks entirely; used by the trap pipeline and reset
// logic to install values the architecture computes directly (mepc,
// mcause, and so on) rather than ones software wrote through CSRRW.
func (f *File) RawSet(addr uint16, v uint64) {
	if _, ok := f.entries[addr]; !ok {
		return
	}
	f.values[addr] = v
}

// RawGet is the non-failing counterpart of RawSet, used internally by
// the trap pipeline which already knows the CSR exists.
func (f *File) RawGet(addr uint16) uint64 {
	return f.values[addr]
}

// Reset restores every CSR to its reset value.
func (f *File) Reset() {
	for addr, e := range f.entries {
		f.values[addr] = e.Reset
	}
}

// Implemented reports whether addr names a register in this file.
func (f *File) Implemented(addr uint16) bool {
	e, ok := f.entries[addr]
	return ok && e.Implemented
}

// Attrs returns a CSR's static reset value, write mask and poke mask,
// for a debugger's "examine" command.
func (f *File) Attrs(addr uint16) (reset, writeMask, pokeMask uint64) {
	e, ok := f.entries[addr]
	if !ok {
		return 0, 0, 0
	}
	return e.Reset, e.WriteMask, e.PokeMask
}

// Dump returns a copy of every CSR's raw value, keyed by address, for
// state snapshotting.
func (f *File) Dump() map[uint16]uint64 {
	out := make(map[uint16]uint64, len(f.values))
	for addr, v := range f.values {
		out[addr] = v
	}
	return out
}

// Load restores raw CSR values previously captured by Dump.
func (f *File) Load(values map[uint16]uint64) {
	for addr, v := range values {
		if _, ok := f.entries[addr]; ok {
			f.values[addr] = v
		}
	}
}
