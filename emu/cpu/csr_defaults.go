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

package cpu

import "github.com/rcornwell/rvsim/emu/csr"

// DefaultCSRs builds the standard minimal CSR set for a hart of the
// given width: the machine-mode trap CSRs, the counters, the debug and
// trigger module CSRs (debug-only where the architecture requires it),
// and the fast-external-interrupt shortcut CSR.
func DefaultCSRs(xlen XLEN) map[uint16]csr.Entry {
	all := uint64(0xffffffffffffffff)
	if xlen == XLEN32 {
		all = 0xffffffff
	}
	m := map[uint16]csr.Entry{
		csr.Misa:       {Name: "misa", Implemented: true, WriteMask: 0, PokeMask: all, Reset: misaReset(xlen)},
		csr.Mvendorid:  {Name: "mvendorid", Implemented: true},
		csr.Marchid:    {Name: "marchid", Implemented: true},
		csr.Mimpid:     {Name: "mimpid", Implemented: true},
		csr.Mhartid:    {Name: "mhartid", Implemented: true},
		csr.Mstatus:    {Name: "mstatus", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Medeleg:    {Name: "medeleg", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mideleg:    {Name: "mideleg", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mie:        {Name: "mie", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mip:        {Name: "mip", Implemented: true, WriteMask: 0x222, PokeMask: all},
		csr.Mtvec:      {Name: "mtvec", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mcounteren: {Name: "mcounteren", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mscratch:   {Name: "mscratch", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mepc:       {Name: "mepc", Implemented: true, WriteMask: all &^ 1, PokeMask: all},
		csr.Mcause:     {Name: "mcause", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mtval:      {Name: "mtval", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mcycle:     {Name: "mcycle", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Minstret:   {Name: "minstret", Implemented: true, WriteMask: all, PokeMask: all},

		csr.Mhpmcounter3: {Name: "mhpmcounter3", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mhpmcounter4: {Name: "mhpmcounter4", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mhpmcounter5: {Name: "mhpmcounter5", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mhpmcounter6: {Name: "mhpmcounter6", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mhpmevent3:   {Name: "mhpmevent3", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mhpmevent4:   {Name: "mhpmevent4", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mhpmevent5:   {Name: "mhpmevent5", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Mhpmevent6:   {Name: "mhpmevent6", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Cycle:      {Name: "cycle", Implemented: true, TiedTo: csr.Mcycle, TiedMask: all},
		csr.Instret:    {Name: "instret", Implemented: true, TiedTo: csr.Minstret, TiedMask: all},

		csr.Sstatus:  {Name: "sstatus", Implemented: true, TiedTo: csr.Mstatus, TiedMask: 0x000de133},
		csr.Sie:      {Name: "sie", Implemented: true, TiedTo: csr.Mie, TiedMask: 0x222},
		csr.Stvec:    {Name: "stvec", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Sscratch: {Name: "sscratch", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Sepc:     {Name: "sepc", Implemented: true, WriteMask: all &^ 1, PokeMask: all},
		csr.Scause:   {Name: "scause", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Stval:    {Name: "stval", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Sip:      {Name: "sip", Implemented: true, TiedTo: csr.Mip, TiedMask: 0x222},

		csr.Fflags: {Name: "fflags", Implemented: true, WriteMask: 0x1f, PokeMask: 0x1f},
		csr.Frm:    {Name: "frm", Implemented: true, WriteMask: 0x7, PokeMask: 0x7},
		csr.Fcsr:   {Name: "fcsr", Implemented: true, WriteMask: 0xff, PokeMask: 0xff},

		// Fast external-interrupt shortcut: a handler address, poke-only
		// from the debugger and ordinarily programmed by firmware via CSRRW.
		csr.MeiHap: {Name: "meihap", Implemented: true, WriteMask: all, PokeMask: all},

		// Sticky store/load-error address: software can only clear it by
		// poking, since an ordinary CSRRW must not be able to hide a
		// pending imprecise bus error from the handler that services it.
		csr.Mdseac: {Name: "mdseac", Implemented: true, WriteMask: 0, PokeMask: all},

		// Debug module: visible to ordinary CSR instructions only while
		// the hart is halted in debug mode.
		csr.Dcsr:      {Name: "dcsr", Implemented: true, DebugOnly: true, WriteMask: all, PokeMask: all, Reset: 0x40000003},
		csr.Dpc:       {Name: "dpc", Implemented: true, DebugOnly: true, WriteMask: all, PokeMask: all},
		csr.Dscratch0: {Name: "dscratch0", Implemented: true, DebugOnly: true, WriteMask: all, PokeMask: all},
		csr.Dscratch1: {Name: "dscratch1", Implemented: true, DebugOnly: true, WriteMask: all, PokeMask: all},

		// Trigger module.
		csr.Tselect: {Name: "tselect", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Tdata1:  {Name: "tdata1", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Tdata2:  {Name: "tdata2", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Tdata3:  {Name: "tdata3", Implemented: true, WriteMask: all, PokeMask: all},
		csr.Tinfo:   {Name: "tinfo", Implemented: true},
	}
	return m
}

func misaReset(xlen XLEN) uint64 {
	mxl := uint64(1)
	if xlen == XLEN64 {
		mxl = 2
	}
	// IMAFDSU extensions bit-set (bit for each letter A-Z, 'I'=8, etc).
	extbits := uint64(0)
	for _, c := range "IMAFDSU" {
		extbits |= 1 << uint(c-'A')
	}
	shift := uint(30)
	if xlen == XLEN64 {
		shift = 62
	}
	return mxl<<shift | extbits
}
