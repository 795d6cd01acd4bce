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

package lsq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOOrder(t *testing.T) {
	q := New(4)
	q.Push(Entry{Addr: 0x100})
	q.Push(Entry{Addr: 0x104})
	e, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(0x100), e.Addr)
	require.Equal(t, 1, q.Len())
}

func TestPushEvictsOldestWhenFull(t *testing.T) {
	q := New(2)
	q.Push(Entry{Addr: 0x1})
	q.Push(Entry{Addr: 0x2})
	_, ok := q.Push(Entry{Addr: 0x3})
	require.False(t, ok, "push into a full queue reports an eviction")
	require.Equal(t, 2, q.Len())

	entries := q.Entries()
	require.Equal(t, uint64(0x2), entries[0].Addr)
	require.Equal(t, uint64(0x3), entries[1].Addr)
}

func TestRemoveTargetDropsFirstMatchingLoad(t *testing.T) {
	q := New(4)
	q.Push(Entry{Addr: 0x10, RegIx: 5, IsStore: false})
	q.Push(Entry{Addr: 0x14, RegIx: 6, IsStore: false})
	q.RemoveTarget(5)
	entries := q.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, uint8(6), entries[0].RegIx)
}

func TestForEachInvalidatesByRegister(t *testing.T) {
	q := New(4)
	q.Push(Entry{RegIx: 5, Valid: true})
	q.Push(Entry{RegIx: 6, Valid: true})
	q.ForEach(func(e *Entry) {
		if e.RegIx == 5 {
			e.Valid = false
		}
	})
	entries := q.Entries()
	require.False(t, entries[0].Valid)
	require.True(t, entries[1].Valid)
}

func TestResetEmptiesQueue(t *testing.T) {
	q := New(4)
	q.Push(Entry{Addr: 1})
	q.Push(Entry{Addr: 2})
	q.Reset()
	require.Equal(t, 0, q.Len())
	_, ok := q.Peek()
	require.False(t, ok)
}

func TestRemoveAtMiddle(t *testing.T) {
	q := New(4)
	q.Push(Entry{Addr: 1})
	q.Push(Entry{Addr: 2})
	q.Push(Entry{Addr: 3})
	q.RemoveAt(1)
	entries := q.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, uint64(1), entries[0].Addr)
	require.Equal(t, uint64(3), entries[1].Addr)
}
