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

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m := New(64 * 1024)
	require.NoError(t, m.AddRegion(Region{Name: "ram", Base: 0, Size: 0x8000, Attr: Read | Write | Exec}))
	require.NoError(t, m.AddRegion(Region{Name: "mmio", Base: 0x8000, Size: 0x1000, Attr: Read | Write | MemMappedRegister, WriteMask: 0x000000ff}))
	return m
}

func TestWordRoundTrip(t *testing.T) {
	m := newTestMemory(t)
	require.NoError(t, m.WriteWord(0x100, 0xdeadbeef))
	v, err := m.ReadWord(0x100)
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), v)
}

func TestMisalignedAccess(t *testing.T) {
	m := newTestMemory(t)
	_, err := m.ReadWord(0x101)
	require.ErrorIs(t, err, ErrMisaligned)
}

func TestBusError(t *testing.T) {
	m := newTestMemory(t)
	_, err := m.ReadByte(0xffff)
	require.ErrorIs(t, err, ErrBusError)
}

func TestWriteMaskOnMMIO(t *testing.T) {
	m := newTestMemory(t)
	require.NoError(t, m.WriteWord(0x8000, 0x12345678))
	v, err := m.ReadWord(0x8000)
	require.NoError(t, err)
	require.Equal(t, uint32(0x00000078), v)
}

func TestReservationClearedByIntervening(t *testing.T) {
	m := newTestMemory(t)
	m.SetReservation(0, 0x200, 4)
	require.NoError(t, m.WriteWord(0x200, 1))
	require.False(t, m.CheckAndClearReservation(0, 0x200))

	m.SetReservation(0, 0x200, 4)
	require.True(t, m.CheckAndClearReservation(0, 0x200))
	require.False(t, m.CheckAndClearReservation(0, 0x200))
}

func TestReservationClearedByOverlappingByte(t *testing.T) {
	m := newTestMemory(t)
	m.SetReservation(0, 0x200, 4)
	// A byte poke anywhere inside the reserved word cancels it.
	require.NoError(t, m.WriteByte(0x203, 1))
	require.False(t, m.CheckAndClearReservation(0, 0x200))
}

func TestReservationClearedExplicitly(t *testing.T) {
	m := newTestMemory(t)
	m.SetReservation(3, 0x200, 4)
	m.ClearReservation(0) // a different hart's clear leaves it alone
	require.True(t, m.CheckAndClearReservation(3, 0x200))

	m.SetReservation(3, 0x200, 4)
	m.ClearReservation(3)
	require.False(t, m.CheckAndClearReservation(3, 0x200))
}

func TestResetMemoryMappedRegsZeroesOnlyMMIO(t *testing.T) {
	m := newTestMemory(t)
	require.NoError(t, m.WriteByte(0x100, 0x11))
	require.NoError(t, m.WriteByte(0x8000, 0x22))

	m.ResetMemoryMappedRegs()

	v, err := m.ReadByte(0x100)
	require.NoError(t, err)
	require.Equal(t, uint8(0x11), v, "plain RAM survives")
	v, err = m.ReadByte(0x8000)
	require.NoError(t, err)
	require.Equal(t, uint8(0), v, "mmio page is zeroed")
}

func TestWriteNotifyFires(t *testing.T) {
	m := newTestMemory(t)
	var seen uint64
	m.OnWrite(func(addr uint64, size int) { seen = addr })
	require.NoError(t, m.WriteByte(0x10, 1))
	require.Equal(t, uint64(0x10), seen)
}
