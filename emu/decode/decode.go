/*
   Instruction decode and decode cache.

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

// Package decode turns a raw instruction word into a Decoded record and
// provides a direct-mapped decode cache keyed on fetch address, so a
// hot loop re-fetching the same address skips the decode step.
package decode

import op "github.com/rcornwell/rvsim/emu/opcode"

// Decoded is the per-instruction scratch record, one decode producing
// everything execute needs: which fields are meaningful depends on Op.
type Decoded struct {
	Raw      uint32
	Op       op.ID
	Rd       uint8
	Rs1      uint8
	Rs2      uint8
	Rs3      uint8
	Imm      int64
	Shamt    uint8
	CSR      uint16
	RM       uint8 // fp rounding mode
	Pred     uint8 // fence predecessor set
	Succ     uint8 // fence successor set
	Aq       bool
	Rl       bool
	Length   uint8 // 2 (compressed) or 4
	Illegal  bool
}

func signExtend(v uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

func rs(word uint32, hi, lo uint) uint32 {
	return (word >> lo) & ((1 << (hi - lo + 1)) - 1)
}

// Decode32 decodes a 32-bit instruction word.
func Decode32(word uint32) Decoded {
	d := Decoded{Raw: word, Length: 4}
	opc := word & 0x7f
	d.Rd = uint8(rs(word, 11, 7))
	d.Rs1 = uint8(rs(word, 19, 15))
	d.Rs2 = uint8(rs(word, 24, 20))
	d.Rs3 = uint8(rs(word, 31, 27))
	funct3 := rs(word, 14, 12)
	funct7 := rs(word, 31, 25)
	d.RM = uint8(funct3)

	switch opc {
	case 0x37: // LUI
		d.Op = op.OpLUI
		d.Imm = int64(int32(word & 0xfffff000))
	case 0x17: // AUIPC
		d.Op = op.OpAUIPC
		d.Imm = int64(int32(word & 0xfffff000))
	case 0x6f: // JAL
		d.Op = op.OpJAL
		imm := (rs(word, 31, 31) << 20) | (rs(word, 19, 12) << 12) |
			(rs(word, 20, 20) << 11) | (rs(word, 30, 21) << 1)
		d.Imm = signExtend(imm, 21)
	case 0x67: // JALR
		d.Op = op.OpJALR
		d.Imm = signExtend(rs(word, 31, 20), 12)
	case 0x63: // branches
		imm := (rs(word, 31, 31) << 12) | (rs(word, 7, 7) << 11) |
			(rs(word, 30, 25) << 5) | (rs(word, 11, 8) << 1)
		d.Imm = signExtend(imm, 13)
		switch funct3 {
		case 0:
			d.Op = op.OpBEQ
		case 1:
			d.Op = op.OpBNE
		case 4:
			d.Op = op.OpBLT
		case 5:
			d.Op = op.OpBGE
		case 6:
			d.Op = op.OpBLTU
		case 7:
			d.Op = op.OpBGEU
		default:
			d.Illegal = true
		}
	case 0x03: // loads
		d.Imm = signExtend(rs(word, 31, 20), 12)
		switch funct3 {
		case 0:
			d.Op = op.OpLB
		case 1:
			d.Op = op.OpLH
		case 2:
			d.Op = op.OpLW
		case 3:
			d.Op = op.OpLD
		case 4:
			d.Op = op.OpLBU
		case 5:
			d.Op = op.OpLHU
		case 6:
			d.Op = op.OpLWU
		default:
			d.Illegal = true
		}
	case 0x23: // stores
		imm := (rs(word, 31, 25) << 5) | rs(word, 11, 7)
		d.Imm = signExtend(imm, 12)
		switch funct3 {
		case 0:
			d.Op = op.OpSB
		case 1:
			d.Op = op.OpSH
		case 2:
			d.Op = op.OpSW
		case 3:
			d.Op = op.OpSD
		default:
			d.Illegal = true
		}
	case 0x13: // register-immediate
		d.Imm = signExtend(rs(word, 31, 20), 12)
		d.Shamt = uint8(rs(word, 25, 20))
		switch funct3 {
		case 0:
			d.Op = op.OpADDI
		case 2:
			d.Op = op.OpSLTI
		case 3:
			d.Op = op.OpSLTIU
		case 4:
			d.Op = op.OpXORI
		case 6:
			d.Op = op.OpORI
		case 7:
			d.Op = op.OpANDI
		case 1:
			d.Op = op.OpSLLI
		case 5:
			if funct7>>1 == 0x10 {
				d.Op = op.OpSRAI
			} else {
				d.Op = op.OpSRLI
			}
		default:
			d.Illegal = true
		}
	case 0x1b: // RV64 register-immediate word ops
		d.Imm = signExtend(rs(word, 31, 20), 12)
		d.Shamt = uint8(rs(word, 24, 20))
		switch funct3 {
		case 0:
			d.Op = op.OpADDIW
		case 1:
			// Word shifts take a 5-bit shamt; a set bit 25 (funct7 low
			// bit) is a reserved encoding, not a 6-bit shift amount.
			if funct7 != 0 {
				d.Illegal = true
				break
			}
			d.Op = op.OpSLLIW
		case 5:
			switch funct7 {
			case 0x00:
				d.Op = op.OpSRLIW
			case 0x20:
				d.Op = op.OpSRAIW
			default:
				d.Illegal = true
			}
		default:
			d.Illegal = true
		}
	case 0x33: // register-register
		switch {
		case funct7 == 0x01:
			d.Op = mExtOp(funct3, false)
		case funct7 == 0x20 && funct3 == 0:
			d.Op = op.OpSUB
		case funct7 == 0x20 && funct3 == 5:
			d.Op = op.OpSRA
		case funct7 == 0x00:
			switch funct3 {
			case 0:
				d.Op = op.OpADD
			case 1:
				d.Op = op.OpSLL
			case 2:
				d.Op = op.OpSLT
			case 3:
				d.Op = op.OpSLTU
			case 4:
				d.Op = op.OpXOR
			case 5:
				d.Op = op.OpSRL
			case 6:
				d.Op = op.OpOR
			case 7:
				d.Op = op.OpAND
			default:
				d.Illegal = true
			}
		default:
			d.Illegal = true
		}
	case 0x3b: // RV64 register-register word ops
		switch {
		case funct7 == 0x01:
			d.Op = mExtOp(funct3, true)
		case funct7 == 0x20 && funct3 == 0:
			d.Op = op.OpSUBW
		case funct7 == 0x20 && funct3 == 5:
			d.Op = op.OpSRAW
		case funct7 == 0x00:
			switch funct3 {
			case 0:
				d.Op = op.OpADDW
			case 1:
				d.Op = op.OpSLLW
			case 5:
				d.Op = op.OpSRLW
			default:
				d.Illegal = true
			}
		default:
			d.Illegal = true
		}
	case 0x0f:
		switch funct3 {
		case 0:
			d.Op = op.OpFENCE
			d.Pred = uint8(rs(word, 27, 24))
			d.Succ = uint8(rs(word, 23, 20))
		case 1:
			d.Op = op.OpFENCEI
		default:
			d.Illegal = true
		}
	case 0x73: // system / CSR
		decodeSystem(word, funct3, &d)
	case 0x2f: // atomics
		decodeAtomic(word, funct3, funct7, &d)
	case 0x07: // FP loads
		d.Imm = signExtend(rs(word, 31, 20), 12)
		if funct3 == 2 {
			d.Op = op.OpFLW
		} else if funct3 == 3 {
			d.Op = op.OpFLD
		} else {
			d.Illegal = true
		}
	case 0x27: // FP stores
		imm := (rs(word, 31, 25) << 5) | rs(word, 11, 7)
		d.Imm = signExtend(imm, 12)
		if funct3 == 2 {
			d.Op = op.OpFSW
		} else if funct3 == 3 {
			d.Op = op.OpFSD
		} else {
			d.Illegal = true
		}
	case 0x53: // FP compute
		decodeFPCompute(word, funct7, &d)
	case 0x43: // FMADD
		decodeFMA(word, &d, op.OpFMADDS, op.OpFMADDD)
	case 0x47: // FMSUB
		decodeFMA(word, &d, op.OpFMSUBS, op.OpFMSUBD)
	case 0x4b: // FNMSUB
		decodeFMA(word, &d, op.OpFNMSUBS, op.OpFNMSUBD)
	case 0x4f: // FNMADD
		decodeFMA(word, &d, op.OpFNMADDS, op.OpFNMADDD)
	default:
		d.Illegal = true
	}
	if d.Illegal {
		d.Op = op.OpIllegal
	}
	return d
}

// decodeFMA picks the single or double form of a fused multiply-add by
// the two-bit fmt field; the other two fmt encodings (half, quad) are
// not implemented and decode illegal.
func decodeFMA(word uint32, d *Decoded, single, double op.ID) {
	switch rs(word, 26, 25) {
	case 0:
		d.Op = single
	case 1:
		d.Op = double
	default:
		d.Illegal = true
	}
}

func mExtOp(funct3 uint32, word bool) op.ID {
	if word {
		switch funct3 {
		case 0:
			return op.OpMULW
		case 4:
			return op.OpDIVW
		case 5:
			return op.OpDIVUW
		case 6:
			return op.OpREMW
		case 7:
			return op.OpREMUW
		}
		return op.OpIllegal
	}
	switch funct3 {
	case 0:
		return op.OpMUL
	case 1:
		return op.OpMULH
	case 2:
		return op.OpMULHSU
	case 3:
		return op.OpMULHU
	case 4:
		return op.OpDIV
	case 5:
		return op.OpDIVU
	case 6:
		return op.OpREM
	case 7:
		return op.OpREMU
	}
	return op.OpIllegal
}

func decodeSystem(word uint32, funct3 uint32, d *Decoded) {
	switch funct3 {
	case 0:
		imm := rs(word, 31, 20)
		switch imm {
		case 0x000:
			d.Op = op.OpECALL
		case 0x001:
			d.Op = op.OpEBREAK
		case 0x302:
			d.Op = op.OpMRET
		case 0x102:
			d.Op = op.OpSRET
		case 0x105:
			d.Op = op.OpWFI
		default:
			if rs(word, 31, 25) == 0x09 {
				d.Op = op.OpSFENCEVMA
			} else {
				d.Illegal = true
			}
		}
	case 1:
		d.Op = op.OpCSRRW
		d.CSR = uint16(rs(word, 31, 20))
	case 2:
		d.Op = op.OpCSRRS
		d.CSR = uint16(rs(word, 31, 20))
	case 3:
		d.Op = op.OpCSRRC
		d.CSR = uint16(rs(word, 31, 20))
	case 5:
		d.Op = op.OpCSRRWI
		d.CSR = uint16(rs(word, 31, 20))
		d.Imm = int64(d.Rs1)
	case 6:
		d.Op = op.OpCSRRSI
		d.CSR = uint16(rs(word, 31, 20))
		d.Imm = int64(d.Rs1)
	case 7:
		d.Op = op.OpCSRRCI
		d.CSR = uint16(rs(word, 31, 20))
		d.Imm = int64(d.Rs1)
	default:
		d.Illegal = true
	}
}

func decodeAtomic(word uint32, funct3, funct7 uint32, d *Decoded) {
	d.Aq = rs(word, 26, 26) != 0
	d.Rl = rs(word, 25, 25) != 0
	funct5 := funct7 >> 2
	word64 := funct3 == 3
	pick32 := [...]op.ID{op.OpIllegal, op.OpAMOSWAPW, op.OpLRW, op.OpSCW, op.OpAMOXORW, op.OpIllegal, op.OpIllegal, op.OpIllegal,
		op.OpAMOORW, op.OpIllegal, op.OpIllegal, op.OpIllegal, op.OpAMOANDW, op.OpIllegal, op.OpIllegal, op.OpIllegal,
		op.OpAMOMINW, op.OpIllegal, op.OpIllegal, op.OpIllegal, op.OpAMOMAXW, op.OpIllegal, op.OpIllegal, op.OpIllegal,
		op.OpAMOMINUW, op.OpIllegal, op.OpIllegal, op.OpIllegal, op.OpAMOMAXUW}
	pick64 := [...]op.ID{op.OpIllegal, op.OpAMOSWAPD, op.OpLRD, op.OpSCD, op.OpAMOXORD, op.OpIllegal, op.OpIllegal, op.OpIllegal,
		op.OpAMOORD, op.OpIllegal, op.OpIllegal, op.OpIllegal, op.OpAMOANDD, op.OpIllegal, op.OpIllegal, op.OpIllegal,
		op.OpAMOMIND, op.OpIllegal, op.OpIllegal, op.OpIllegal, op.OpAMOMAXD, op.OpIllegal, op.OpIllegal, op.OpIllegal,
		op.OpAMOMINUD, op.OpIllegal, op.OpIllegal, op.OpIllegal, op.OpAMOMAXUD}
	// funct5 values: 00001 swap, 00010 lr, 00011 sc, 00000 amoadd (handled below), 00100 xor, 01000 or, 01100 and, 10000 min, 10100 max, 11000 minu, 11100 maxu
	if funct5 == 0 {
		if word64 {
			d.Op = op.OpAMOADDD
		} else {
			d.Op = op.OpAMOADDW
		}
		return
	}
	idx := funct5
	if word64 {
		if int(idx) < len(pick64) {
			d.Op = pick64[idx]
		} else {
			d.Illegal = true
		}
	} else {
		if int(idx) < len(pick32) {
			d.Op = pick32[idx]
		} else {
			d.Illegal = true
		}
	}
	if d.Op == op.OpIllegal {
		d.Illegal = true
	}
}

func decodeFPCompute(word uint32, funct7 uint32, d *Decoded) {
	switch funct7 {
	case 0x00:
		d.Op = op.OpFADDS
	case 0x01:
		d.Op = op.OpFADDD
	case 0x04:
		d.Op = op.OpFSUBS
	case 0x05:
		d.Op = op.OpFSUBD
	case 0x08:
		d.Op = op.OpFMULS
	case 0x09:
		d.Op = op.OpFMULD
	case 0x0c:
		d.Op = op.OpFDIVS
	case 0x0d:
		d.Op = op.OpFDIVD
	case 0x2c:
		d.Op = op.OpFSQRTS
	case 0x2d:
		d.Op = op.OpFSQRTD
	case 0x10:
		switch d.RM {
		case 0:
			d.Op = op.OpFSGNJS
		case 1:
			d.Op = op.OpFSGNJNS
		case 2:
			d.Op = op.OpFSGNJXS
		default:
			d.Illegal = true
		}
	case 0x11:
		switch d.RM {
		case 0:
			d.Op = op.OpFSGNJD
		case 1:
			d.Op = op.OpFSGNJND
		case 2:
			d.Op = op.OpFSGNJXD
		default:
			d.Illegal = true
		}
	case 0x14:
		if d.RM == 0 {
			d.Op = op.OpFMINS
		} else {
			d.Op = op.OpFMAXS
		}
	case 0x15:
		if d.RM == 0 {
			d.Op = op.OpFMIND
		} else {
			d.Op = op.OpFMAXD
		}
	case 0x60:
		if d.Rs2 == 0 {
			d.Op = op.OpFCVTWS
		} else {
			d.Op = op.OpFCVTWUS
		}
	case 0x61:
		if d.Rs2 == 0 {
			d.Op = op.OpFCVTWD
		} else {
			d.Op = op.OpFCVTWUD
		}
	case 0x68:
		if d.Rs2 == 0 {
			d.Op = op.OpFCVTSW
		} else {
			d.Op = op.OpFCVTSWU
		}
	case 0x69:
		if d.Rs2 == 0 {
			d.Op = op.OpFCVTDW
		} else {
			d.Op = op.OpFCVTDWU
		}
	case 0x20:
		d.Op = op.OpFCVTSD
	case 0x21:
		d.Op = op.OpFCVTDS
	case 0x70:
		if d.RM == 0 {
			d.Op = op.OpFMVXW
		} else {
			d.Op = op.OpFCLASSS
		}
	case 0x71:
		if d.RM == 0 {
			d.Op = op.OpFMVXD
		} else {
			d.Op = op.OpFCLASSD
		}
	case 0x78:
		d.Op = op.OpFMVWX
	case 0x79:
		d.Op = op.OpFMVDX
	case 0x50:
		switch d.RM {
		case 0:
			d.Op = op.OpFLES
		case 1:
			d.Op = op.OpFLTS
		case 2:
			d.Op = op.OpFEQS
		default:
			d.Illegal = true
		}
	case 0x51:
		switch d.RM {
		case 0:
			d.Op = op.OpFLED
		case 1:
			d.Op = op.OpFLTD
		case 2:
			d.Op = op.OpFEQD
		default:
			d.Illegal = true
		}
	default:
		d.Illegal = true
	}
}
