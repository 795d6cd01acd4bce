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

package disassemble

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rvsim/emu/decode"
	op "github.com/rcornwell/rvsim/emu/opcode"
)

func TestInstructionIllegalPrintsRawWord(t *testing.T) {
	d := decode.Decoded{Raw: 0xdeadbeef, Illegal: true}
	require.Equal(t, ".word 0xdeadbeef", Instruction(0, d))
}

func TestInstructionADDIUsesRegisterNames(t *testing.T) {
	d := decode.Decoded{Op: op.OpADDI, Rd: 5, Rs1: 0, Imm: -1}
	require.Equal(t, "addi t0, zero, -1", Instruction(0x1000, d))
}

func TestInstructionNoOperandSystemInstruction(t *testing.T) {
	d := decode.Decoded{Op: op.OpECALL}
	require.Equal(t, "ecall", Instruction(0, d))
}

func TestInstructionBranchResolvesTargetFromPC(t *testing.T) {
	d := decode.Decoded{Op: op.OpBEQ, Rs1: 10, Rs2: 11, Imm: 0x20}
	require.Equal(t, "beq a0, a1, 0x1020", Instruction(0x1000, d))
}

func TestInstructionJALResolvesTargetFromPC(t *testing.T) {
	d := decode.Decoded{Op: op.OpJAL, Rd: 1, Imm: 0x100}
	require.Equal(t, "jal ra, 0x1100", Instruction(0x1000, d))
}

func TestInstructionLoadUsesOffsetParenBaseForm(t *testing.T) {
	d := decode.Decoded{Op: op.OpLW, Rd: 10, Rs1: 2, Imm: 4}
	require.Equal(t, "lw a0, 4(sp)", Instruction(0, d))
}

func TestInstructionLRIncludesAqRlSuffix(t *testing.T) {
	d := decode.Decoded{Op: op.OpLRW, Rd: 10, Rs1: 2, Aq: true, Rl: true}
	require.Equal(t, "lr.w a0, (sp).aq.rl", Instruction(0, d))
}

func TestInstructionUnknownOpFallsBackToUnknownMnemonic(t *testing.T) {
	d := decode.Decoded{Op: op.ID(9999)}
	require.Contains(t, Instruction(0, d), "unknown")
}

func TestInstructionFloatRegistersUseFPrefix(t *testing.T) {
	d := decode.Decoded{Op: op.OpFADDS, Rd: 1, Rs1: 2, Rs2: 3}
	require.Equal(t, "fadd.s f1, f2, f3", Instruction(0, d))
}

func TestInstructionCSRROperand(t *testing.T) {
	d := decode.Decoded{Op: op.OpCSRRW, Rd: 1, Rs1: 2, CSR: 0x300}
	require.Equal(t, "csrrw ra, 0x300, sp", Instruction(0, d))
}
