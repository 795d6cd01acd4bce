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

package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rvsim/emu/memory"
)

func newTestMemory(t *testing.T) *memory.Memory {
	t.Helper()
	m := memory.New(4096)
	require.NoError(t, m.AddRegion(memory.Region{
		Name: "ram", Base: 0, Size: 4096,
		Attr: memory.Read | memory.Write | memory.Exec,
	}))
	return m
}

func TestLoadHexSequentialBytes(t *testing.T) {
	m := newTestMemory(t)
	src := "@100\nDE AD BE EF\n"
	require.NoError(t, LoadHex(m, strings.NewReader(src)))

	b, err := m.ReadByte(0x100)
	require.NoError(t, err)
	require.Equal(t, uint8(0xDE), b)

	b, err = m.ReadByte(0x103)
	require.NoError(t, err)
	require.Equal(t, uint8(0xEF), b)
}

func TestLoadHexMultipleAddressDirectives(t *testing.T) {
	m := newTestMemory(t)
	src := "@0\n01\n@10\n02\n"
	require.NoError(t, LoadHex(m, strings.NewReader(src)))

	b0, _ := m.ReadByte(0x0)
	require.Equal(t, uint8(0x01), b0)
	b1, _ := m.ReadByte(0x10)
	require.Equal(t, uint8(0x02), b1)
}

func TestLoadHexSkipsBlankLines(t *testing.T) {
	m := newTestMemory(t)
	src := "@0\n\nAA\n\nBB\n"
	require.NoError(t, LoadHex(m, strings.NewReader(src)))

	b0, _ := m.ReadByte(0x0)
	require.Equal(t, uint8(0xAA), b0)
	b1, _ := m.ReadByte(0x1)
	require.Equal(t, uint8(0xBB), b1)
}

func TestLoadHexBadAddressErrors(t *testing.T) {
	m := newTestMemory(t)
	err := LoadHex(m, strings.NewReader("@zzz\n"))
	require.Error(t, err)
}

func TestLoadHexBadByteErrors(t *testing.T) {
	m := newTestMemory(t)
	err := LoadHex(m, strings.NewReader("@0\nGG\n"))
	require.Error(t, err)
}

func TestLoadHexDefaultsToAddressZero(t *testing.T) {
	m := newTestMemory(t)
	require.NoError(t, LoadHex(m, strings.NewReader("7F\n")))

	b, err := m.ReadByte(0x0)
	require.NoError(t, err)
	require.Equal(t, uint8(0x7F), b)
}
