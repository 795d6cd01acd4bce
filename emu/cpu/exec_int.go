/*
   Integer arithmetic, immediate and control-transfer instructions.

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

package cpu

import op "github.com/rcornwell/rvsim/emu/opcode"

func sext32(v uint32) uint64 { return uint64(int64(int32(v))) }

func registerIntTable(h *Hart) {
	t := &h.table

	t[op.OpADDI] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)+uint64(s.dec.Imm))
		return ok
	}
	t[op.OpSLTI] = func(h *Hart, s *stepInfo) uint16 {
		v := uint64(0)
		if int64(h.reg(s.dec.Rs1)) < s.dec.Imm {
			v = 1
		}
		h.setReg(s.dec.Rd, v)
		return ok
	}
	t[op.OpSLTIU] = func(h *Hart, s *stepInfo) uint16 {
		v := uint64(0)
		if h.reg(s.dec.Rs1) < uint64(s.dec.Imm) {
			v = 1
		}
		h.setReg(s.dec.Rd, v)
		return ok
	}
	t[op.OpXORI] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)^uint64(s.dec.Imm))
		return ok
	}
	t[op.OpORI] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)|uint64(s.dec.Imm))
		return ok
	}
	t[op.OpANDI] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)&uint64(s.dec.Imm))
		return ok
	}
	t[op.OpSLLI] = func(h *Hart, s *stepInfo) uint16 {
		if trap, bad := h.checkShamt(s.dec.Shamt); bad {
			return trap
		}
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)<<uint(s.dec.Shamt))
		return ok
	}
	t[op.OpSRLI] = func(h *Hart, s *stepInfo) uint16 {
		if trap, bad := h.checkShamt(s.dec.Shamt); bad {
			return trap
		}
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)>>uint(s.dec.Shamt))
		return ok
	}
	t[op.OpSRAI] = func(h *Hart, s *stepInfo) uint16 {
		if trap, bad := h.checkShamt(s.dec.Shamt); bad {
			return trap
		}
		bits := uint(64)
		if h.xlen == XLEN32 {
			bits = 32
		}
		v := signExtend64(h.reg(s.dec.Rs1), bits)
		h.setReg(s.dec.Rd, uint64(int64(v)>>uint(s.dec.Shamt)))
		return ok
	}
	t[op.OpADDIW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(h.reg(s.dec.Rs1))+uint32(s.dec.Imm)))
		return ok
	}
	t[op.OpSLLIW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(h.reg(s.dec.Rs1))<<uint(s.dec.Shamt)))
		return ok
	}
	t[op.OpSRLIW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(h.reg(s.dec.Rs1))>>uint(s.dec.Shamt)))
		return ok
	}
	t[op.OpSRAIW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(int32(uint32(h.reg(s.dec.Rs1)))>>uint(s.dec.Shamt))))
		return ok
	}

	t[op.OpADD] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)+h.reg(s.dec.Rs2))
		return ok
	}
	t[op.OpSUB] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)-h.reg(s.dec.Rs2))
		return ok
	}
	t[op.OpSLL] = func(h *Hart, s *stepInfo) uint16 {
		shift := h.reg(s.dec.Rs2) & shiftMask(h.xlen)
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)<<shift)
		return ok
	}
	t[op.OpSLT] = func(h *Hart, s *stepInfo) uint16 {
		v := uint64(0)
		if int64(h.reg(s.dec.Rs1)) < int64(h.reg(s.dec.Rs2)) {
			v = 1
		}
		h.setReg(s.dec.Rd, v)
		return ok
	}
	t[op.OpSLTU] = func(h *Hart, s *stepInfo) uint16 {
		v := uint64(0)
		if h.reg(s.dec.Rs1) < h.reg(s.dec.Rs2) {
			v = 1
		}
		h.setReg(s.dec.Rd, v)
		return ok
	}
	t[op.OpXOR] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)^h.reg(s.dec.Rs2))
		return ok
	}
	t[op.OpSRL] = func(h *Hart, s *stepInfo) uint16 {
		shift := h.reg(s.dec.Rs2) & shiftMask(h.xlen)
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)>>shift)
		return ok
	}
	t[op.OpSRA] = func(h *Hart, s *stepInfo) uint16 {
		bits := uint(64)
		if h.xlen == XLEN32 {
			bits = 32
		}
		shift := h.reg(s.dec.Rs2) & shiftMask(h.xlen)
		v := signExtend64(h.reg(s.dec.Rs1), bits)
		h.setReg(s.dec.Rd, uint64(int64(v)>>shift))
		return ok
	}
	t[op.OpOR] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)|h.reg(s.dec.Rs2))
		return ok
	}
	t[op.OpAND] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)&h.reg(s.dec.Rs2))
		return ok
	}
	t[op.OpADDW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(h.reg(s.dec.Rs1))+uint32(h.reg(s.dec.Rs2))))
		return ok
	}
	t[op.OpSUBW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(h.reg(s.dec.Rs1))-uint32(h.reg(s.dec.Rs2))))
		return ok
	}
	t[op.OpSLLW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(h.reg(s.dec.Rs1))<<(h.reg(s.dec.Rs2)&0x1f)))
		return ok
	}
	t[op.OpSRLW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(h.reg(s.dec.Rs1))>>(h.reg(s.dec.Rs2)&0x1f)))
		return ok
	}
	t[op.OpSRAW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(int32(uint32(h.reg(s.dec.Rs1)))>>(h.reg(s.dec.Rs2)&0x1f))))
		return ok
	}

	t[op.OpLUI] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, uint64(s.dec.Imm))
		return ok
	}
	t[op.OpAUIPC] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.mask64(s.pc+uint64(s.dec.Imm)))
		return ok
	}

	t[op.OpJAL] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, s.next)
		s.next = h.mask64(s.pc + uint64(s.dec.Imm))
		h.lastBranchTaken = true
		return ok
	}
	t[op.OpJALR] = func(h *Hart, s *stepInfo) uint16 {
		target := h.mask64((h.reg(s.dec.Rs1) + uint64(s.dec.Imm)) &^ 1)
		h.setReg(s.dec.Rd, s.next)
		s.next = target
		h.lastBranchTaken = true
		return ok
	}
	t[op.OpBEQ] = branchIf(func(a, b uint64) bool { return a == b })
	t[op.OpBNE] = branchIf(func(a, b uint64) bool { return a != b })
	t[op.OpBLT] = branchIf(func(a, b uint64) bool { return int64(a) < int64(b) })
	t[op.OpBGE] = branchIf(func(a, b uint64) bool { return int64(a) >= int64(b) })
	t[op.OpBLTU] = branchIf(func(a, b uint64) bool { return a < b })
	t[op.OpBGEU] = branchIf(func(a, b uint64) bool { return a >= b })

	t[op.OpCNOP] = func(h *Hart, s *stepInfo) uint16 { return ok }
}

func shiftMask(xlen XLEN) uint64 {
	if xlen == XLEN32 {
		return 0x1f
	}
	return 0x3f
}

// checkShamt rejects an RV32 SLLI/SRLI/SRAI whose 6-bit shift-amount
// field has bit 5 set: on XLEN32 that bit doesn't exist in the shift
// amount and marks an encoding reserved for RV64.
func (h *Hart) checkShamt(shamt uint8) (uint16, bool) {
	if h.xlen == XLEN32 && shamt&0x20 != 0 {
		return trapTaken(excIllegalInst), true
	}
	return ok, false
}

func branchIf(cond func(a, b uint64) bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		if cond(h.reg(s.dec.Rs1), h.reg(s.dec.Rs2)) {
			s.next = h.mask64(s.pc + uint64(s.dec.Imm))
			h.lastBranchTaken = true
		}
		return ok
	}
}

func registerMulDivTable(h *Hart) {
	t := &h.table
	t[op.OpMUL] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, h.reg(s.dec.Rs1)*h.reg(s.dec.Rs2))
		return ok
	}
	t[op.OpMULH] = func(h *Hart, s *stepInfo) uint16 {
		if h.xlen == XLEN32 {
			// A 32-bit hart wants bits [63:32] of the 32x32 product; the
			// register file holds zero-extended values, so re-sign the
			// operands from their low 32 bits before multiplying.
			p := int64(int32(h.reg(s.dec.Rs1))) * int64(int32(h.reg(s.dec.Rs2)))
			h.setReg(s.dec.Rd, sext32(uint32(uint64(p)>>32)))
			return ok
		}
		hi, _ := mulh(int64(h.reg(s.dec.Rs1)), int64(h.reg(s.dec.Rs2)))
		h.setReg(s.dec.Rd, uint64(hi))
		return ok
	}
	t[op.OpMULHU] = func(h *Hart, s *stepInfo) uint16 {
		if h.xlen == XLEN32 {
			p := uint64(uint32(h.reg(s.dec.Rs1))) * uint64(uint32(h.reg(s.dec.Rs2)))
			h.setReg(s.dec.Rd, sext32(uint32(p>>32)))
			return ok
		}
		hi, _ := mulhu(h.reg(s.dec.Rs1), h.reg(s.dec.Rs2))
		h.setReg(s.dec.Rd, hi)
		return ok
	}
	t[op.OpMULHSU] = func(h *Hart, s *stepInfo) uint16 {
		if h.xlen == XLEN32 {
			p := int64(int32(h.reg(s.dec.Rs1))) * int64(uint32(h.reg(s.dec.Rs2)))
			h.setReg(s.dec.Rd, sext32(uint32(uint64(p)>>32)))
			return ok
		}
		hi, _ := mulhsu(int64(h.reg(s.dec.Rs1)), h.reg(s.dec.Rs2))
		h.setReg(s.dec.Rd, uint64(hi))
		return ok
	}
	t[op.OpDIV] = func(h *Hart, s *stepInfo) uint16 {
		a, b := int64(h.reg(s.dec.Rs1)), int64(h.reg(s.dec.Rs2))
		h.setReg(s.dec.Rd, uint64(divSigned(a, b)))
		return ok
	}
	t[op.OpDIVU] = func(h *Hart, s *stepInfo) uint16 {
		a, b := h.reg(s.dec.Rs1), h.reg(s.dec.Rs2)
		h.setReg(s.dec.Rd, divUnsigned(a, b))
		return ok
	}
	t[op.OpREM] = func(h *Hart, s *stepInfo) uint16 {
		a, b := int64(h.reg(s.dec.Rs1)), int64(h.reg(s.dec.Rs2))
		h.setReg(s.dec.Rd, uint64(remSigned(a, b)))
		return ok
	}
	t[op.OpREMU] = func(h *Hart, s *stepInfo) uint16 {
		a, b := h.reg(s.dec.Rs1), h.reg(s.dec.Rs2)
		h.setReg(s.dec.Rd, remUnsigned(a, b))
		return ok
	}
	t[op.OpMULW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(uint32(h.reg(s.dec.Rs1))*uint32(h.reg(s.dec.Rs2))))
		return ok
	}
	t[op.OpDIVW] = func(h *Hart, s *stepInfo) uint16 {
		a, b := int32(h.reg(s.dec.Rs1)), int32(h.reg(s.dec.Rs2))
		h.setReg(s.dec.Rd, sext32(uint32(divSigned(int64(a), int64(b)))))
		return ok
	}
	t[op.OpDIVUW] = func(h *Hart, s *stepInfo) uint16 {
		a, b := uint32(h.reg(s.dec.Rs1)), uint32(h.reg(s.dec.Rs2))
		h.setReg(s.dec.Rd, sext32(uint32(divUnsigned(uint64(a), uint64(b)))))
		return ok
	}
	t[op.OpREMW] = func(h *Hart, s *stepInfo) uint16 {
		a, b := int32(h.reg(s.dec.Rs1)), int32(h.reg(s.dec.Rs2))
		h.setReg(s.dec.Rd, sext32(uint32(remSigned(int64(a), int64(b)))))
		return ok
	}
	t[op.OpREMUW] = func(h *Hart, s *stepInfo) uint16 {
		a, b := uint32(h.reg(s.dec.Rs1)), uint32(h.reg(s.dec.Rs2))
		h.setReg(s.dec.Rd, sext32(uint32(remUnsigned(uint64(a), uint64(b)))))
		return ok
	}
}

// divSigned implements RISC-V's signed division semantics: division by
// zero yields -1, and MININT/-1 overflows back to the dividend.
func divSigned(a, b int64) int64 {
	if b == 0 {
		return -1
	}
	if a == minInt64 && b == -1 {
		return a
	}
	return a / b
}

func remSigned(a, b int64) int64 {
	if b == 0 {
		return a
	}
	if a == minInt64 && b == -1 {
		return 0
	}
	return a % b
}

func divUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return 0xffffffffffffffff
	}
	return a / b
}

func remUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}

const minInt64 = -9223372036854775808

func mulh(a, b int64) (hi, lo int64) {
	prod := bigMulSigned(a, b)
	return int64(prod.hi), int64(prod.lo)
}

func mulhu(a, b uint64) (hi, lo uint64) {
	prod := bigMulUnsigned(a, b)
	return prod.hi, prod.lo
}

func mulhsu(a int64, b uint64) (hi, lo int64) {
	neg := a < 0
	ua := uint64(a)
	if neg {
		ua = uint64(-a)
	}
	prod := bigMulUnsigned(ua, b)
	if neg {
		// Negate the 128-bit product.
		lo := ^prod.lo + 1
		hi := ^prod.hi
		if lo == 0 {
			hi++
		}
		return int64(hi), int64(lo)
	}
	return int64(prod.hi), int64(prod.lo)
}

type wide128 struct{ hi, lo uint64 }

func bigMulUnsigned(a, b uint64) wide128 {
	aLo, aHi := a&0xffffffff, a>>32
	bLo, bHi := b&0xffffffff, b>>32

	lolo := aLo * bLo
	lohi := aLo * bHi
	hilo := aHi * bLo
	hihi := aHi * bHi

	mid := lohi + hilo
	carry := uint64(0)
	if mid < lohi {
		carry = 1 << 32
	}

	lo := lolo + (mid << 32)
	carryLo := uint64(0)
	if lo < lolo {
		carryLo = 1
	}
	hi := hihi + (mid >> 32) + carry + carryLo
	return wide128{hi: hi, lo: lo}
}

func bigMulSigned(a, b int64) wide128 {
	negA, negB := a < 0, b < 0
	ua, ub := uint64(a), uint64(b)
	if negA {
		ua = uint64(-a)
	}
	if negB {
		ub = uint64(-b)
	}
	prod := bigMulUnsigned(ua, ub)
	if negA != negB {
		lo := ^prod.lo + 1
		hi := ^prod.hi
		if lo == 0 {
			hi++
		}
		return wide128{hi: hi, lo: lo}
	}
	return prod
}
