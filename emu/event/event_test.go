/*
   Copyright 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a copy
   of this software and associated documentation files (the "Software"), to deal
   in the Software without restriction, including without limitation the rights
   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
   copies of the Software, and to permit persons to whom the Software is
   furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
   SOFTWARE.
*/

package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdvanceFiresInOrder(t *testing.T) {
	s := New()
	var order []int
	s.Add(1, func(id int) { order = append(order, id) }, 10)
	s.Add(2, func(id int) { order = append(order, id) }, 5)
	s.Add(3, func(id int) { order = append(order, id) }, 15)

	s.Advance(5)
	require.Equal(t, []int{2}, order)
	s.Advance(5)
	require.Equal(t, []int{2, 1}, order)
	s.Advance(5)
	require.Equal(t, []int{2, 1, 3}, order)
	require.False(t, s.Pending())
}

func TestCancel(t *testing.T) {
	s := New()
	fired := false
	s.Add(1, func(int) { fired = true }, 10)
	s.Cancel(1)
	s.Advance(20)
	require.False(t, fired)
}

func TestZeroDelayRunsImmediately(t *testing.T) {
	s := New()
	fired := false
	s.Add(1, func(int) { fired = true }, 0)
	require.True(t, fired)
	require.False(t, s.Pending())
}
