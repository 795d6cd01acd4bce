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

package decode

import op "github.com/rcornwell/rvsim/emu/opcode"

func crs(half uint16, hi, lo uint) uint32 {
	return (uint32(half) >> lo) & ((1 << (hi - lo + 1)) - 1)
}

// compressedReg maps a 3-bit compressed register field to x8-x15.
func compressedReg(v uint32) uint8 { return uint8(v) + 8 }

// Decode16 expands a 16-bit compressed instruction to the same Decoded
// shape a 32-bit decode would produce, so the execute dispatch never
// needs to know whether an instruction arrived compressed. Only the
// common RV32/64C subset is implemented; anything else decodes illegal.
func Decode16(half uint16) Decoded {
	d := Decoded{Raw: uint32(half), Length: 2}
	quadrant := half & 0x3
	funct3 := crs(half, 15, 13)

	switch quadrant {
	case 0:
		switch funct3 {
		case 0: // C.ADDI4SPN
			imm := (crs(half, 10, 7) << 6) | (crs(half, 12, 11) << 4) |
				(crs(half, 5, 5) << 3) | (crs(half, 6, 6) << 2)
			if imm == 0 {
				d.Illegal = true
				break
			}
			d.Op = op.OpADDI
			d.Rd = compressedReg(crs(half, 4, 2))
			d.Rs1 = 2
			d.Imm = int64(imm)
		case 2: // C.LW
			imm := (crs(half, 5, 5) << 6) | (crs(half, 12, 10) << 3) | (crs(half, 6, 6) << 2)
			d.Op = op.OpLW
			d.Rd = compressedReg(crs(half, 4, 2))
			d.Rs1 = compressedReg(crs(half, 9, 7))
			d.Imm = int64(imm)
		case 3: // C.LD
			imm := (crs(half, 6, 5) << 6) | (crs(half, 12, 10) << 3)
			d.Op = op.OpLD
			d.Rd = compressedReg(crs(half, 4, 2))
			d.Rs1 = compressedReg(crs(half, 9, 7))
			d.Imm = int64(imm)
		case 6: // C.SW
			imm := (crs(half, 5, 5) << 6) | (crs(half, 12, 10) << 3) | (crs(half, 6, 6) << 2)
			d.Op = op.OpSW
			d.Rs1 = compressedReg(crs(half, 9, 7))
			d.Rs2 = compressedReg(crs(half, 4, 2))
			d.Imm = int64(imm)
		case 7: // C.SD
			imm := (crs(half, 6, 5) << 6) | (crs(half, 12, 10) << 3)
			d.Op = op.OpSD
			d.Rs1 = compressedReg(crs(half, 9, 7))
			d.Rs2 = compressedReg(crs(half, 4, 2))
			d.Imm = int64(imm)
		default:
			d.Illegal = true
		}
	case 1:
		switch funct3 {
		case 0: // C.ADDI / C.NOP
			imm := signExtend((crs(half, 12, 12)<<5)|crs(half, 6, 2), 6)
			rd := uint8(crs(half, 11, 7))
			d.Op = op.OpADDI
			d.Rd, d.Rs1 = rd, rd
			d.Imm = imm
			if rd == 0 && imm == 0 {
				d.Op = op.OpCNOP
			}
		case 1: // C.ADDIW (RV64) - reuse ADDIW
			imm := signExtend((crs(half, 12, 12)<<5)|crs(half, 6, 2), 6)
			rd := uint8(crs(half, 11, 7))
			d.Op = op.OpADDIW
			d.Rd, d.Rs1 = rd, rd
			d.Imm = imm
		case 2: // C.LI
			imm := signExtend((crs(half, 12, 12)<<5)|crs(half, 6, 2), 6)
			d.Op = op.OpADDI
			d.Rd = uint8(crs(half, 11, 7))
			d.Rs1 = 0
			d.Imm = imm
		case 3:
			rd := uint8(crs(half, 11, 7))
			if rd == 2 { // C.ADDI16SP
				imm := signExtend((crs(half, 12, 12)<<9)|(crs(half, 4, 3)<<7)|
					(crs(half, 5, 5)<<6)|(crs(half, 2, 2)<<5)|(crs(half, 6, 6)<<4), 10)
				d.Op = op.OpADDI
				d.Rd, d.Rs1 = 2, 2
				d.Imm = imm
			} else { // C.LUI
				imm := signExtend((crs(half, 12, 12)<<17)|(crs(half, 6, 2)<<12), 18)
				d.Op = op.OpLUI
				d.Rd = rd
				d.Imm = imm
				if rd == 0 {
					d.Illegal = true
				}
			}
		case 4:
			funct2 := crs(half, 11, 10)
			rd := compressedReg(crs(half, 9, 7))
			switch funct2 {
			case 0: // C.SRLI
				d.Op = op.OpSRLI
				d.Rd, d.Rs1 = rd, rd
				d.Shamt = uint8((crs(half, 12, 12) << 5) | crs(half, 6, 2))
			case 1: // C.SRAI
				d.Op = op.OpSRAI
				d.Rd, d.Rs1 = rd, rd
				d.Shamt = uint8((crs(half, 12, 12) << 5) | crs(half, 6, 2))
			case 2: // C.ANDI
				d.Op = op.OpANDI
				d.Rd, d.Rs1 = rd, rd
				d.Imm = signExtend((crs(half, 12, 12)<<5)|crs(half, 6, 2), 6)
			case 3:
				rs2 := compressedReg(crs(half, 4, 2))
				sel := (crs(half, 12, 12) << 2) | crs(half, 6, 5)
				d.Rd, d.Rs1, d.Rs2 = rd, rd, rs2
				switch sel {
				case 0:
					d.Op = op.OpSUB
				case 1:
					d.Op = op.OpXOR
				case 2:
					d.Op = op.OpOR
				case 3:
					d.Op = op.OpAND
				case 4:
					d.Op = op.OpSUBW
				case 5:
					d.Op = op.OpADDW
				default:
					d.Illegal = true
				}
			}
		case 5: // C.J
			imm := decodeCJImm(half)
			d.Op = op.OpJAL
			d.Rd = 0
			d.Imm = imm
		case 6: // C.BEQZ
			imm := decodeCBImm(half)
			d.Op = op.OpBEQ
			d.Rs1 = compressedReg(crs(half, 9, 7))
			d.Rs2 = 0
			d.Imm = imm
		case 7: // C.BNEZ
			imm := decodeCBImm(half)
			d.Op = op.OpBNE
			d.Rs1 = compressedReg(crs(half, 9, 7))
			d.Rs2 = 0
			d.Imm = imm
		}
	case 2:
		rd := uint8(crs(half, 11, 7))
		switch funct3 {
		case 0: // C.SLLI
			d.Op = op.OpSLLI
			d.Rd, d.Rs1 = rd, rd
			d.Shamt = uint8((crs(half, 12, 12) << 5) | crs(half, 6, 2))
		case 2: // C.LWSP
			imm := (crs(half, 3, 2) << 6) | (crs(half, 12, 12) << 5) | (crs(half, 6, 4) << 2)
			d.Op = op.OpLW
			d.Rd = rd
			d.Rs1 = 2
			d.Imm = int64(imm)
			if rd == 0 {
				d.Illegal = true
			}
		case 3: // C.LDSP
			imm := (crs(half, 4, 2) << 6) | (crs(half, 12, 12) << 5) | (crs(half, 6, 5) << 3)
			d.Op = op.OpLD
			d.Rd = rd
			d.Rs1 = 2
			d.Imm = int64(imm)
			if rd == 0 {
				d.Illegal = true
			}
		case 4:
			bit12 := crs(half, 12, 12)
			rs2 := uint8(crs(half, 6, 2))
			if bit12 == 0 && rs2 == 0 { // C.JR
				d.Op = op.OpJALR
				d.Rd = 0
				d.Rs1 = rd
				d.Imm = 0
				if rd == 0 {
					d.Illegal = true
				}
			} else if bit12 == 0 { // C.MV
				d.Op = op.OpADD
				d.Rd = rd
				d.Rs1 = 0
				d.Rs2 = rs2
			} else if bit12 == 1 && rd == 0 && rs2 == 0 { // C.EBREAK
				d.Op = op.OpEBREAK
			} else if bit12 == 1 && rs2 == 0 { // C.JALR
				d.Op = op.OpJALR
				d.Rd = 1
				d.Rs1 = rd
				d.Imm = 0
			} else { // C.ADD
				d.Op = op.OpADD
				d.Rd, d.Rs1, d.Rs2 = rd, rd, rs2
			}
		case 6: // C.SWSP
			imm := (crs(half, 8, 7) << 6) | (crs(half, 12, 9) << 2)
			d.Op = op.OpSW
			d.Rs1 = 2
			d.Rs2 = uint8(crs(half, 6, 2))
			d.Imm = int64(imm)
		case 7: // C.SDSP
			imm := (crs(half, 9, 7) << 6) | (crs(half, 12, 10) << 3)
			d.Op = op.OpSD
			d.Rs1 = 2
			d.Rs2 = uint8(crs(half, 6, 2))
			d.Imm = int64(imm)
		default:
			d.Illegal = true
		}
	default:
		d.Illegal = true
	}
	if d.Illegal {
		d.Op = op.OpIllegal
	}
	return d
}

func decodeCJImm(half uint16) int64 {
	imm := (crs(half, 12, 12) << 11) | (crs(half, 8, 8) << 10) |
		(crs(half, 10, 9) << 8) | (crs(half, 6, 6) << 7) |
		(crs(half, 7, 7) << 6) | (crs(half, 2, 2) << 5) |
		(crs(half, 11, 11) << 4) | (crs(half, 5, 3) << 1)
	return signExtend(imm, 12)
}

func decodeCBImm(half uint16) int64 {
	imm := (crs(half, 12, 12) << 8) | (crs(half, 6, 5) << 6) |
		(crs(half, 2, 2) << 5) | (crs(half, 11, 10) << 3) | (crs(half, 4, 3) << 1)
	return signExtend(imm, 9)
}

// IsCompressed reports whether the low two bits mark a 16-bit instruction.
func IsCompressed(low16 uint16) bool {
	return low16&0x3 != 0x3
}
