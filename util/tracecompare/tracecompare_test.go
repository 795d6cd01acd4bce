/*
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package tracecompare

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareIdentical(t *testing.T) {
	log := "#1 0 00001000 00000013 r 05 00000000  addi x5, x0, 0\n#2 0 00001004 00000013 x 00 00000000  addi x0, x0, 0\n"
	d, err := Compare(strings.NewReader(log), strings.NewReader(log))
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestCompareDivergesAtFirstMismatch(t *testing.T) {
	ref := "#1 0 00001000 00000013 r 05 00000000  addi x5, x0, 0\n#2 0 00001004 00000013 r 05 00000001  addi x5, x5, 1\n"
	cand := "#1 0 00001000 00000013 r 05 00000000  addi x5, x0, 0\n#2 0 00001004 00000013 r 05 00000002  addi x5, x5, 1\n"
	d, err := Compare(strings.NewReader(ref), strings.NewReader(cand))
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, 2, d.Line)
}

func TestCompareDivergesOnLengthMismatch(t *testing.T) {
	ref := "#1 0 00001000 00000013 r 05 00000000  addi x5, x0, 0\n#2 0 00001004 00000013 x 00 00000000  nop\n"
	cand := "#1 0 00001000 00000013 r 05 00000000  addi x5, x0, 0\n"
	d, err := Compare(strings.NewReader(ref), strings.NewReader(cand))
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, 2, d.Line)
	require.Empty(t, d.Actual)
}

func TestIsContinuation(t *testing.T) {
	require.True(t, IsContinuation("  +\n"))
	require.False(t, IsContinuation("#1 0 00001000 00000013 r 05 00000000  addi x5, x0, 0"))
}
