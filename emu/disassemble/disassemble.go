/*
   RISC-V disassembler.

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

// Package disassemble renders a decoded instruction as assembly text,
// built entirely on top of emu/opcode's mnemonic table and emu/decode's
// operand fields rather than re-deriving either from raw instruction
// bits.
package disassemble

import (
	"fmt"
	"strconv"

	"github.com/rcornwell/rvsim/emu/decode"
	op "github.com/rcornwell/rvsim/emu/opcode"
)

// intRegNames are the RISC-V calling-convention register names, used in
// place of raw x-numbers the way every RISC-V toolchain disassembler
// prints them.
var intRegNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func ireg(n uint8) string { return intRegNames[n&31] }
func freg(n uint8) string { return "f" + strconv.Itoa(int(n&31)) }

// Instruction renders one decoded instruction at pc as assembly text.
func Instruction(pc uint64, d decode.Decoded) string {
	if d.Illegal {
		return fmt.Sprintf(".word 0x%08x", d.Raw)
	}
	mnemonic, ok := op.Mnemonic[d.Op]
	if !ok {
		mnemonic = "unknown"
	}
	operands := formatOperands(pc, d)
	if operands == "" {
		return mnemonic
	}
	return mnemonic + " " + operands
}

func formatOperands(pc uint64, d decode.Decoded) string {
	switch d.Op {
	// No-operand system instructions.
	case op.OpECALL, op.OpEBREAK, op.OpMRET, op.OpSRET, op.OpWFI,
		op.OpFENCEI, op.OpCNOP:
		return ""

	case op.OpFENCE:
		return fmt.Sprintf("%#x, %#x", d.Pred, d.Succ)

	case op.OpSFENCEVMA:
		return fmt.Sprintf("%s, %s", ireg(d.Rs1), ireg(d.Rs2))

	// U-type.
	case op.OpLUI, op.OpAUIPC:
		return fmt.Sprintf("%s, %#x", ireg(d.Rd), d.Imm>>12&0xfffff)

	// J-type.
	case op.OpJAL:
		return fmt.Sprintf("%s, %#x", ireg(d.Rd), pc+uint64(d.Imm))

	// I-type jump-and-link-register.
	case op.OpJALR:
		return fmt.Sprintf("%s, %d(%s)", ireg(d.Rd), d.Imm, ireg(d.Rs1))

	// Branches.
	case op.OpBEQ, op.OpBNE, op.OpBLT, op.OpBGE, op.OpBLTU, op.OpBGEU:
		return fmt.Sprintf("%s, %s, %#x", ireg(d.Rs1), ireg(d.Rs2), pc+uint64(d.Imm))

	// Integer loads.
	case op.OpLB, op.OpLH, op.OpLW, op.OpLD, op.OpLBU, op.OpLHU, op.OpLWU:
		return fmt.Sprintf("%s, %d(%s)", ireg(d.Rd), d.Imm, ireg(d.Rs1))

	// Integer stores.
	case op.OpSB, op.OpSH, op.OpSW, op.OpSD:
		return fmt.Sprintf("%s, %d(%s)", ireg(d.Rs2), d.Imm, ireg(d.Rs1))

	// Shift-immediate: operand is shamt, not the full sign-extended Imm.
	case op.OpSLLI, op.OpSRLI, op.OpSRAI, op.OpSLLIW, op.OpSRLIW, op.OpSRAIW:
		return fmt.Sprintf("%s, %s, %d", ireg(d.Rd), ireg(d.Rs1), d.Shamt)

	// Other reg-imm.
	case op.OpADDI, op.OpSLTI, op.OpSLTIU, op.OpXORI, op.OpORI, op.OpANDI, op.OpADDIW:
		return fmt.Sprintf("%s, %s, %d", ireg(d.Rd), ireg(d.Rs1), d.Imm)

	// Reg-reg ALU and M-extension.
	case op.OpADD, op.OpSUB, op.OpSLL, op.OpSLT, op.OpSLTU, op.OpXOR, op.OpSRL,
		op.OpSRA, op.OpOR, op.OpAND, op.OpADDW, op.OpSUBW, op.OpSLLW, op.OpSRLW,
		op.OpSRAW, op.OpMUL, op.OpMULH, op.OpMULHSU, op.OpMULHU, op.OpDIV,
		op.OpDIVU, op.OpREM, op.OpREMU, op.OpMULW, op.OpDIVW, op.OpDIVUW,
		op.OpREMW, op.OpREMUW:
		return fmt.Sprintf("%s, %s, %s", ireg(d.Rd), ireg(d.Rs1), ireg(d.Rs2))

	// LR: one source address register, no rs2.
	case op.OpLRW, op.OpLRD:
		aq, rl := aqrlSuffix(d)
		return fmt.Sprintf("%s, (%s)%s", ireg(d.Rd), ireg(d.Rs1), aq+rl)

	// SC and AMO: rd, rs2, (rs1).
	case op.OpSCW, op.OpSCD, op.OpAMOSWAPW, op.OpAMOADDW, op.OpAMOXORW,
		op.OpAMOANDW, op.OpAMOORW, op.OpAMOMINW, op.OpAMOMAXW, op.OpAMOMINUW,
		op.OpAMOMAXUW, op.OpAMOSWAPD, op.OpAMOADDD, op.OpAMOXORD, op.OpAMOANDD,
		op.OpAMOORD, op.OpAMOMIND, op.OpAMOMAXD, op.OpAMOMINUD, op.OpAMOMAXUD:
		aq, rl := aqrlSuffix(d)
		return fmt.Sprintf("%s, %s, (%s)%s", ireg(d.Rd), ireg(d.Rs2), ireg(d.Rs1), aq+rl)

	// Floating-point loads/stores.
	case op.OpFLW, op.OpFLD:
		return fmt.Sprintf("%s, %d(%s)", freg(d.Rd), d.Imm, ireg(d.Rs1))
	case op.OpFSW, op.OpFSD:
		return fmt.Sprintf("%s, %d(%s)", freg(d.Rs2), d.Imm, ireg(d.Rs1))

	// Fused multiply-add: four FP operands.
	case op.OpFMADDS, op.OpFMSUBS, op.OpFNMSUBS, op.OpFNMADDS,
		op.OpFMADDD, op.OpFMSUBD, op.OpFNMSUBD, op.OpFNMADDD:
		return fmt.Sprintf("%s, %s, %s, %s", freg(d.Rd), freg(d.Rs1), freg(d.Rs2), freg(d.Rs3))

	// Three-operand FP arithmetic.
	case op.OpFADDS, op.OpFSUBS, op.OpFMULS, op.OpFDIVS, op.OpFMINS, op.OpFMAXS,
		op.OpFADDD, op.OpFSUBD, op.OpFMULD, op.OpFDIVD, op.OpFMIND, op.OpFMAXD,
		op.OpFSGNJS, op.OpFSGNJNS, op.OpFSGNJXS, op.OpFSGNJD, op.OpFSGNJND, op.OpFSGNJXD:
		return fmt.Sprintf("%s, %s, %s", freg(d.Rd), freg(d.Rs1), freg(d.Rs2))

	// FP compare: integer destination.
	case op.OpFEQS, op.OpFLTS, op.OpFLES, op.OpFEQD, op.OpFLTD, op.OpFLED:
		return fmt.Sprintf("%s, %s, %s", ireg(d.Rd), freg(d.Rs1), freg(d.Rs2))

	// FP unary.
	case op.OpFSQRTS, op.OpFSQRTD:
		return fmt.Sprintf("%s, %s", freg(d.Rd), freg(d.Rs1))
	case op.OpFCLASSS, op.OpFMVXW, op.OpFCVTWS, op.OpFCVTWUS,
		op.OpFCLASSD, op.OpFMVXD, op.OpFCVTWD, op.OpFCVTWUD:
		return fmt.Sprintf("%s, %s", ireg(d.Rd), freg(d.Rs1))
	case op.OpFCVTSD, op.OpFCVTDS:
		return fmt.Sprintf("%s, %s", freg(d.Rd), freg(d.Rs1))
	case op.OpFMVWX, op.OpFCVTSW, op.OpFCVTSWU, op.OpFCVTDW, op.OpFCVTDWU:
		return fmt.Sprintf("%s, %s", freg(d.Rd), ireg(d.Rs1))

	// Zicsr.
	case op.OpCSRRW, op.OpCSRRS, op.OpCSRRC:
		return fmt.Sprintf("%s, %#x, %s", ireg(d.Rd), d.CSR, ireg(d.Rs1))
	case op.OpCSRRWI, op.OpCSRRSI, op.OpCSRRCI:
		return fmt.Sprintf("%s, %#x, %d", ireg(d.Rd), d.CSR, d.Imm)

	default:
		return fmt.Sprintf("rd=%s rs1=%s rs2=%s imm=%d", ireg(d.Rd), ireg(d.Rs1), ireg(d.Rs2), d.Imm)
	}
}

func aqrlSuffix(d decode.Decoded) (aq, rl string) {
	if d.Aq {
		aq = ".aq"
	}
	if d.Rl {
		rl = ".rl"
	}
	return aq, rl
}
