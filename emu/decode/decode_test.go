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

package decode

import (
	"testing"

	"github.com/stretchr/testify/require"

	op "github.com/rcornwell/rvsim/emu/opcode"
)

func TestDecode32ADDI(t *testing.T) {
	// addi x5, x0, -1
	d := Decode32(0xfff00293)
	require.Equal(t, op.OpADDI, d.Op)
	require.Equal(t, uint8(5), d.Rd)
	require.Equal(t, uint8(0), d.Rs1)
	require.Equal(t, int64(-1), d.Imm)
	require.Equal(t, uint8(4), d.Length)
}

func TestDecode32Illegal(t *testing.T) {
	// opcode bits all zero is not a valid major opcode.
	d := Decode32(0x00000000)
	require.Equal(t, op.OpIllegal, d.Op)
}

func TestIsCompressedDetection(t *testing.T) {
	require.True(t, IsCompressed(0x0505))
	require.False(t, IsCompressed(0x0013)) // low two bits 11 -> 32-bit instruction
}

func TestDecode16MatchesExpandedADDI(t *testing.T) {
	// c.addi x10, x10, 1 -- same opcode id as the 32-bit ADDI it expands to.
	d := Decode16(0x0505)
	require.Equal(t, op.OpADDI, d.Op)
	require.Equal(t, uint8(10), d.Rd)
	require.Equal(t, uint8(10), d.Rs1)
	require.Equal(t, int64(1), d.Imm)
	require.Equal(t, uint8(2), d.Length)
}

func TestDecode16NopIsDistinctFromADDI(t *testing.T) {
	// c.nop is rd=0, imm=0; the handler dispatch still needs a distinct id
	// from a real addi since x0 is never a legal destination.
	d := Decode16(0x0001)
	require.Equal(t, op.OpCNOP, d.Op)
}

func TestCacheHitAfterInsert(t *testing.T) {
	c := NewCache(16)
	_, ok := c.Lookup(0x1000)
	require.False(t, ok)

	want := Decode32(0xfff00293)
	c.Insert(0x1000, want)

	got, ok := c.Lookup(0x1000)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestCacheInvalidateOnOverlappingWrite(t *testing.T) {
	c := NewCache(16)
	c.Insert(0x2000, Decode32(0x00000013))
	c.Invalidate(0x1fff, 4) // a 4-byte instruction spans two half-words
	_, ok := c.Lookup(0x2000)
	require.False(t, ok)
}

func TestDecode32WordShiftReservedFunct7(t *testing.T) {
	// slliw x5, x5, 1 with bit 25 set: the word shifts take a 5-bit
	// shamt, so a set funct7 low bit is reserved, not a 6-bit amount.
	require.Equal(t, op.OpIllegal, Decode32(0x0212929b).Op)

	// srliw/sraiw accept only funct7 0x00/0x20; anything else is reserved.
	require.Equal(t, op.OpSRLIW, Decode32(0x0012d29b).Op)
	require.Equal(t, op.OpSRAIW, Decode32(0x4012d29b).Op)
	require.Equal(t, op.OpIllegal, Decode32(0x0412d29b).Op)
}

func TestDecode32FMA(t *testing.T) {
	// fmadd.s f1, f2, f3, f4
	d := Decode32(0x203100c3)
	require.Equal(t, op.OpFMADDS, d.Op)
	require.Equal(t, uint8(1), d.Rd)
	require.Equal(t, uint8(2), d.Rs1)
	require.Equal(t, uint8(3), d.Rs2)
	require.Equal(t, uint8(4), d.Rs3)

	// Same encoding with fmt=01 is the double-precision form.
	d = Decode32(0x223100c3)
	require.Equal(t, op.OpFMADDD, d.Op)
}

func TestCacheInvalidateReachesInstructionBelowWrite(t *testing.T) {
	c := NewCache(16)
	// A 32-bit instruction at 0x1ffe spans bytes 0x1ffe..0x2001; a write
	// at 0x2000 lands inside it even though 0x2000 > 0x1ffe.
	c.Insert(0x1ffe, Decode32(0x00000013))
	c.Invalidate(0x2000, 1)
	_, ok := c.Lookup(0x1ffe)
	require.False(t, ok)
}

func TestCacheAddressMustMatchOnAlias(t *testing.T) {
	c := NewCache(4) // small so 0x0 and 0x8 alias the same slot
	c.Insert(0x0, Decode32(0x00000013))
	c.Insert(0x8, Decode32(0xfff00293))
	_, ok := c.Lookup(0x0)
	require.False(t, ok, "slot now tagged for 0x8, stale entry for 0x0 must miss")
	got, ok := c.Lookup(0x8)
	require.True(t, ok)
	require.Equal(t, op.OpADDI, got.Op)
}
