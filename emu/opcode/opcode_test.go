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

package opcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEveryIDHasAMnemonic guards against a new opcode.ID being added to
// the const block without a matching Mnemonic entry, which would print
// an empty string in every trace record and disassembly line for it.
func TestEveryIDHasAMnemonic(t *testing.T) {
	for id := OpIllegal; id <= OpCNOP; id++ {
		_, ok := Mnemonic[id]
		require.True(t, ok, "opcode.ID %d has no Mnemonic entry", id)
	}
}

func TestDistinctIDsHaveDistinctValues(t *testing.T) {
	require.NotEqual(t, OpADDI, OpADD)
	require.NotEqual(t, OpLRW, OpSCW)
	require.Equal(t, ID(0), OpIllegal, "OpIllegal must stay the zero value so a zeroed decode result is illegal")
}

func TestKnownMnemonics(t *testing.T) {
	require.Equal(t, "addi", Mnemonic[OpADDI])
	require.Equal(t, "lr.w", Mnemonic[OpLRW])
	require.Equal(t, "fcvt.d.wu", Mnemonic[OpFCVTDWU])
	require.Equal(t, "illegal", Mnemonic[OpIllegal])
}
