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

package csr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testCSR     = 0x7ff
	testTied    = 0x7fe
	testDebug   = 0x7fd
	testNoExist = 0x7aa
)

func newTestFile() *File {
	return NewFile(map[uint16]Entry{
		testCSR:   {Name: "test", Reset: 0x10, WriteMask: 0x0f, PokeMask: 0xff, Implemented: true},
		testTied:  {Name: "tied-target", Reset: 0, WriteMask: 0xffffffffffffffff, PokeMask: 0xffffffffffffffff, Implemented: true},
		testDebug: {Name: "debug-only", Reset: 0, WriteMask: 0xff, PokeMask: 0xff, Implemented: true, DebugOnly: true},
	})
}

func TestReadResetValue(t *testing.T) {
	f := newTestFile()
	v, err := f.Read(testCSR)
	require.NoError(t, err)
	require.Equal(t, uint64(0x10), v)
}

func TestWriteHonorsWriteMask(t *testing.T) {
	f := newTestFile()
	require.NoError(t, f.Write(testCSR, 0xff))
	v, _ := f.Read(testCSR)
	require.Equal(t, uint64(0x1f), v, "only the low 4 bits are writable; bit 4 keeps its reset value")
}

func TestPokeReachesBitsWriteCannot(t *testing.T) {
	f := newTestFile()
	require.NoError(t, f.Poke(testCSR, 0xff))
	v, _ := f.Read(testCSR)
	require.Equal(t, uint64(0xff), v)
}

func TestPokeThenPeekIsValueAndPokeMask(t *testing.T) {
	f := newTestFile()
	require.NoError(t, f.Poke(testCSR, 0xffff))
	v, _ := f.Read(testCSR)
	require.Equal(t, uint64(0xffff)&0xff, v)
}

func TestNotImplementedCSRErrors(t *testing.T) {
	f := newTestFile()
	_, err := f.Read(testNoExist)
	require.ErrorIs(t, err, ErrNotImplemented)
	require.ErrorIs(t, f.Write(testNoExist, 1), ErrNotImplemented)
}

func TestDebugOnlyCSRHiddenOutsideDebugMode(t *testing.T) {
	f := newTestFile()
	_, err := f.Read(testDebug)
	require.ErrorIs(t, err, ErrIllegal)

	f.SetDebugMode(true)
	_, err = f.Read(testDebug)
	require.NoError(t, err)
}

func TestResetRestoresAllValues(t *testing.T) {
	f := newTestFile()
	require.NoError(t, f.Poke(testCSR, 0xff))
	f.Reset()
	v, _ := f.Read(testCSR)
	require.Equal(t, uint64(0x10), v)
}

func TestDumpLoadRoundTrip(t *testing.T) {
	f := newTestFile()
	require.NoError(t, f.Poke(testCSR, 0x55))
	snap := f.Dump()

	f.Reset()
	f.Load(snap)

	v, _ := f.Read(testCSR)
	require.Equal(t, uint64(0x55), v)
}
