/*
 * rvsim - Convert values to hex strings.
 *
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

package hex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatHexZeroPads(t *testing.T) {
	var b strings.Builder
	FormatHex(&b, 0x1234, 8)
	require.Equal(t, "00001234", b.String())
}

func TestFormatHexTruncatesToWidth(t *testing.T) {
	var b strings.Builder
	FormatHex(&b, 0x123456789, 8)
	require.Equal(t, "23456789", b.String())
}

func TestFormatBytesWithAndWithoutSpacing(t *testing.T) {
	var b strings.Builder
	FormatBytes(&b, false, []uint8{0xde, 0xad})
	require.Equal(t, "DEAD", b.String())

	b.Reset()
	FormatBytes(&b, true, []uint8{0xde, 0xad})
	require.Equal(t, "DE AD ", b.String())
}

func TestFormatByte(t *testing.T) {
	var b strings.Builder
	FormatByte(&b, 0x5a)
	require.Equal(t, "5A", b.String())
}

func TestFormatDigit(t *testing.T) {
	var b strings.Builder
	FormatDigit(&b, 0xAF)
	require.Equal(t, "F", b.String())
}

func TestFormatDecimalAllRanges(t *testing.T) {
	cases := []struct {
		in   byte
		want string
	}{
		{0, "0"},
		{9, "9"},
		{42, "42"},
		{255, "255"},
	}
	for _, c := range cases {
		var b strings.Builder
		FormatDecimal(&b, c.in)
		require.Equal(t, c.want, b.String())
	}
}
