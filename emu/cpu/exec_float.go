/*
   Single- and double-precision floating-point instruction handlers.

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

import (
	"math"
	"math/big"

	"github.com/rcornwell/rvsim/emu/csr"
	op "github.com/rcornwell/rvsim/emu/opcode"
)

// Rounding-mode encodings FCVT's funct3 field (decoded into s.dec.RM)
// carries; rmDyn pulls the live mode from FCSR.frm instead, and the two
// unlisted 3-bit encodings are reserved.
const (
	rmRNE uint8 = 0
	rmRTZ uint8 = 1
	rmRDN uint8 = 2
	rmRUP uint8 = 3
	rmRMM uint8 = 4
	rmDyn uint8 = 7
)

// Accrued exception flags, fflags' bit layout (and fcsr's low 5 bits).
const (
	fflagNX uint64 = 1 << 0
	fflagUF uint64 = 1 << 1
	fflagOF uint64 = 1 << 2
	fflagDZ uint64 = 1 << 3
	fflagNV uint64 = 1 << 4
)

// resolveRM turns a decoded rounding-mode field into one of the five
// defined modes, substituting FCSR.frm for the dynamic encoding and
// rejecting both reserved direct encodings and a dynamic mode that
// itself resolves to a reserved value.
func (h *Hart) resolveRM(rm uint8) (uint8, uint16) {
	if rm == rmDyn {
		rm = uint8(h.csr.RawGet(csr.Frm))
	}
	if rm > rmRMM {
		return 0, trapTaken(excIllegalInst)
	}
	return rm, ok
}

// roundMode maps a resolved RISC-V rounding mode to the equivalent
// math/big rounding mode: the standard library's only facility for
// actually computing a conversion under an explicit IEEE rounding mode
// rather than whatever Go's implicit numeric conversion happens to do.
func roundMode(rm uint8) big.RoundingMode {
	switch rm {
	case rmRTZ:
		return big.ToZero
	case rmRDN:
		return big.ToNegativeInf
	case rmRUP:
		return big.ToPositiveInf
	case rmRMM:
		return big.ToNearestAway
	default:
		return big.ToNearestEven
	}
}

// roundToInt rounds f to the nearest representable integer under
// rounding mode rm, the step FCVT's float-to-integer conversions apply
// before truncating into their destination width.
func roundToInt(f float64, rm uint8) float64 {
	switch rm {
	case rmRTZ:
		return math.Trunc(f)
	case rmRDN:
		return math.Floor(f)
	case rmRUP:
		return math.Ceil(f)
	case rmRMM:
		return math.Round(f)
	default:
		return math.RoundToEven(f)
	}
}

// accrueFFlags ORs newly-raised accrued exception flags into fflags (and
// the mirrored low 5 bits of fcsr), the sticky record a program inspects
// after the fact rather than a per-instruction trap.
func (h *Hart) accrueFFlags(flags uint64) {
	if flags == 0 {
		return
	}
	cur := h.csr.RawGet(csr.Fflags) | flags
	h.csr.RawSet(csr.Fflags, cur)
	fcsr := h.csr.RawGet(csr.Fcsr)
	h.csr.RawSet(csr.Fcsr, (fcsr&^0x1f)|cur)
}

// floatToI32 converts f to a 32-bit integer under rounding mode rm,
// saturating out-of-range values and NaN to the destination's boundary
// (NaN saturates to the widest representable magnitude, per the
// architecture's canonical-NaN conversion rule) and reporting NV on any
// saturation and NX on any rounding that wasn't already exact.
func floatToI32(f float64, rm uint8, unsigned bool) (uint32, uint64) {
	if math.IsNaN(f) {
		if unsigned {
			return 0xffffffff, fflagNV
		}
		return 0x7fffffff, fflagNV
	}
	r := roundToInt(f, rm)
	var flags uint64
	if r != f {
		flags |= fflagNX
	}
	if unsigned {
		switch {
		case r < 0:
			return 0, flags | fflagNV
		case r > 4294967295:
			return 0xffffffff, flags | fflagNV
		default:
			return uint32(r), flags
		}
	}
	switch {
	case r < -2147483648:
		return 0x80000000, flags | fflagNV
	case r > 2147483647:
		return 0x7fffffff, flags | fflagNV
	default:
		return uint32(int32(r)), flags
	}
}

// intToF32 converts an integer to float32 under rounding mode rm,
// via math/big so values wider than float32's 24-bit mantissa actually
// round the way the mode specifies rather than however Go's int-to-
// float32 conversion happens to round.
func intToF32(v int64, unsigned bool, rm uint8) (float32, uint64) {
	bf := new(big.Float)
	bf.SetMode(roundMode(rm))
	bf.SetPrec(24)
	if unsigned {
		bf.SetUint64(uint64(v))
	} else {
		bf.SetInt64(v)
	}
	f32, _ := bf.Float32()
	var flags uint64
	if bf.Acc() != big.Exact {
		flags |= fflagNX
	}
	return f32, flags
}

// f64ToF32 narrows f to float32 under rounding mode rm, reporting NX on
// an inexact result and OF when the rounded magnitude overflows to
// infinity for a finite input.
func f64ToF32(f float64, rm uint8) (float32, uint64) {
	if math.IsNaN(f) {
		return float32(math.NaN()), 0
	}
	bf := new(big.Float)
	bf.SetMode(roundMode(rm))
	bf.SetPrec(24)
	bf.SetFloat64(f)
	f32, _ := bf.Float32()
	var flags uint64
	if bf.Acc() != big.Exact {
		flags |= fflagNX
	}
	if math.IsInf(float64(f32), 0) && !math.IsInf(f, 0) {
		flags |= fflagOF
	}
	return f32, flags
}

// nanBoxUpper occupies the high 32 bits of a single-precision value
// stored in a 64-bit register, per the NaN-boxing convention F extension
// registers use so D-extension hardware can hold either width.
const nanBoxUpper = 0xffffffff00000000

func (h *Hart) getF32(n uint8) float32 {
	v := h.fpregs[n]
	if v&nanBoxUpper != nanBoxUpper {
		return float32(math.NaN())
	}
	return math.Float32frombits(uint32(v))
}

func (h *Hart) setF32(n uint8, f float32) {
	h.fpregs[n] = nanBoxUpper | uint64(math.Float32bits(f))
}

func (h *Hart) getF64(n uint8) float64 {
	return math.Float64frombits(h.fpregs[n])
}

func (h *Hart) setF64(n uint8, f float64) {
	h.fpregs[n] = math.Float64bits(f)
}

func registerFloatTable(h *Hart) {
	t := &h.table

	t[op.OpFLW] = func(h *Hart, s *stepInfo) uint16 {
		addr := h.effectiveAddr(s)
		res := h.loadWord(addr, false)
		if res.trap != ok {
			return res.trap
		}
		h.setF32(s.dec.Rd, math.Float32frombits(uint32(res.value)))
		return ok
	}
	t[op.OpFSW] = func(h *Hart, s *stepInfo) uint16 {
		addr := h.effectiveAddr(s)
		return h.storeWord(addr, math.Float32bits(h.getF32(s.dec.Rs2)))
	}
	t[op.OpFLD] = func(h *Hart, s *stepInfo) uint16 {
		addr := h.effectiveAddr(s)
		res := h.loadDouble(addr)
		if res.trap != ok {
			return res.trap
		}
		h.setF64(s.dec.Rd, math.Float64frombits(res.value))
		return ok
	}
	t[op.OpFSD] = func(h *Hart, s *stepInfo) uint16 {
		addr := h.effectiveAddr(s)
		return h.storeDouble(addr, math.Float64bits(h.getF64(s.dec.Rs2)))
	}

	t[op.OpFADDS] = f32BinOp(func(a, b float32) float32 { return a + b })
	t[op.OpFSUBS] = f32BinOp(func(a, b float32) float32 { return a - b })
	t[op.OpFMULS] = f32BinOp(func(a, b float32) float32 { return a * b })
	t[op.OpFDIVS] = f32BinOp(func(a, b float32) float32 { return a / b })
	t[op.OpFSQRTS] = func(h *Hart, s *stepInfo) uint16 {
		h.setF32(s.dec.Rd, float32(math.Sqrt(float64(h.getF32(s.dec.Rs1)))))
		return ok
	}
	t[op.OpFSGNJS] = f32BinOp(func(a, b float32) float32 { return signCopy32(a, b, false, false) })
	t[op.OpFSGNJNS] = f32BinOp(func(a, b float32) float32 { return signCopy32(a, b, true, false) })
	t[op.OpFSGNJXS] = f32BinOp(func(a, b float32) float32 { return signCopy32(a, b, false, true) })
	t[op.OpFMINS] = f32BinOp(func(a, b float32) float32 {
		if a != a {
			return b
		}
		if b != b {
			return a
		}
		if a < b {
			return a
		}
		return b
	})
	t[op.OpFMAXS] = f32BinOp(func(a, b float32) float32 {
		if a != a {
			return b
		}
		if b != b {
			return a
		}
		if a > b {
			return a
		}
		return b
	})

	t[op.OpFADDD] = f64BinOp(func(a, b float64) float64 { return a + b })
	t[op.OpFSUBD] = f64BinOp(func(a, b float64) float64 { return a - b })
	t[op.OpFMULD] = f64BinOp(func(a, b float64) float64 { return a * b })
	t[op.OpFDIVD] = f64BinOp(func(a, b float64) float64 { return a / b })
	t[op.OpFSQRTD] = func(h *Hart, s *stepInfo) uint16 {
		h.setF64(s.dec.Rd, math.Sqrt(h.getF64(s.dec.Rs1)))
		return ok
	}
	t[op.OpFSGNJD] = f64BinOp(func(a, b float64) float64 { return signCopy64(a, b, false, false) })
	t[op.OpFSGNJND] = f64BinOp(func(a, b float64) float64 { return signCopy64(a, b, true, false) })
	t[op.OpFSGNJXD] = f64BinOp(func(a, b float64) float64 { return signCopy64(a, b, false, true) })
	t[op.OpFMIND] = f64BinOp(func(a, b float64) float64 {
		if a != a {
			return b
		}
		if b != b {
			return a
		}
		if a < b {
			return a
		}
		return b
	})
	t[op.OpFMAXD] = f64BinOp(func(a, b float64) float64 {
		if a != a {
			return b
		}
		if b != b {
			return a
		}
		if a > b {
			return a
		}
		return b
	})

	t[op.OpFCVTWS] = floatToIntHandler(func(h *Hart, rs1 uint8) float64 { return float64(h.getF32(rs1)) }, false)
	t[op.OpFCVTWUS] = floatToIntHandler(func(h *Hart, rs1 uint8) float64 { return float64(h.getF32(rs1)) }, true)
	t[op.OpFCVTWD] = floatToIntHandler(func(h *Hart, rs1 uint8) float64 { return h.getF64(rs1) }, false)
	t[op.OpFCVTWUD] = floatToIntHandler(func(h *Hart, rs1 uint8) float64 { return h.getF64(rs1) }, true)

	t[op.OpFCVTSW] = func(h *Hart, s *stepInfo) uint16 {
		rm, trap := h.resolveRM(s.dec.RM)
		if trap != ok {
			return trap
		}
		f, flags := intToF32(int64(int32(h.reg(s.dec.Rs1))), false, rm)
		h.accrueFFlags(flags)
		h.setF32(s.dec.Rd, f)
		return ok
	}
	t[op.OpFCVTSWU] = func(h *Hart, s *stepInfo) uint16 {
		rm, trap := h.resolveRM(s.dec.RM)
		if trap != ok {
			return trap
		}
		f, flags := intToF32(int64(uint32(h.reg(s.dec.Rs1))), true, rm)
		h.accrueFFlags(flags)
		h.setF32(s.dec.Rd, f)
		return ok
	}
	t[op.OpFCVTDW] = func(h *Hart, s *stepInfo) uint16 {
		h.setF64(s.dec.Rd, float64(int32(h.reg(s.dec.Rs1))))
		return ok
	}
	t[op.OpFCVTDWU] = func(h *Hart, s *stepInfo) uint16 {
		h.setF64(s.dec.Rd, float64(uint32(h.reg(s.dec.Rs1))))
		return ok
	}
	t[op.OpFCVTSD] = func(h *Hart, s *stepInfo) uint16 {
		rm, trap := h.resolveRM(s.dec.RM)
		if trap != ok {
			return trap
		}
		f, flags := f64ToF32(h.getF64(s.dec.Rs1), rm)
		h.accrueFFlags(flags)
		h.setF32(s.dec.Rd, f)
		return ok
	}
	t[op.OpFCVTDS] = func(h *Hart, s *stepInfo) uint16 {
		h.setF64(s.dec.Rd, float64(h.getF32(s.dec.Rs1)))
		return ok
	}

	t[op.OpFMVXW] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, sext32(math.Float32bits(h.getF32(s.dec.Rs1))))
		return ok
	}
	t[op.OpFMVWX] = func(h *Hart, s *stepInfo) uint16 {
		h.setF32(s.dec.Rd, math.Float32frombits(uint32(h.reg(s.dec.Rs1))))
		return ok
	}
	t[op.OpFMVXD] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, math.Float64bits(h.getF64(s.dec.Rs1)))
		return ok
	}
	t[op.OpFMVDX] = func(h *Hart, s *stepInfo) uint16 {
		h.setF64(s.dec.Rd, math.Float64frombits(h.reg(s.dec.Rs1)))
		return ok
	}

	t[op.OpFEQS] = f32Compare(func(a, b float32) bool { return a == b })
	t[op.OpFLTS] = f32Compare(func(a, b float32) bool { return a < b })
	t[op.OpFLES] = f32Compare(func(a, b float32) bool { return a <= b })
	t[op.OpFEQD] = f64Compare(func(a, b float64) bool { return a == b })
	t[op.OpFLTD] = f64Compare(func(a, b float64) bool { return a < b })
	t[op.OpFLED] = f64Compare(func(a, b float64) bool { return a <= b })

	t[op.OpFMADDS] = f32FMA(false, false)
	t[op.OpFMSUBS] = f32FMA(false, true)
	t[op.OpFNMSUBS] = f32FMA(true, true)
	t[op.OpFNMADDS] = f32FMA(true, false)
	t[op.OpFMADDD] = f64FMA(false, false)
	t[op.OpFMSUBD] = f64FMA(false, true)
	t[op.OpFNMSUBD] = f64FMA(true, true)
	t[op.OpFNMADDD] = f64FMA(true, false)

	t[op.OpFCLASSS] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, classify32(h.getF32(s.dec.Rs1)))
		return ok
	}
	t[op.OpFCLASSD] = func(h *Hart, s *stepInfo) uint16 {
		h.setReg(s.dec.Rd, classify64(h.getF64(s.dec.Rs1)))
		return ok
	}
}

// floatToIntHandler builds a rounding-mode-aware FCVT.W{,U}.{S,D}
// handler: get reads the source register as a float64 (widening a
// single-precision operand costs nothing and keeps floatToI32 common to
// both precisions), resolveRM reads s.dec.RM and substitutes FCSR.frm
// on the dynamic encoding, and the conversion's accrued flags are
// folded into fflags/fcsr before the integer result lands in rd.
func floatToIntHandler(get func(h *Hart, rs1 uint8) float64, unsigned bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		rm, trap := h.resolveRM(s.dec.RM)
		if trap != ok {
			return trap
		}
		v, flags := floatToI32(get(h, s.dec.Rs1), rm, unsigned)
		h.accrueFFlags(flags)
		h.setReg(s.dec.Rd, sext32(v))
		return ok
	}
}

// f32FMA and f64FMA build the fused multiply-add family. negProduct
// flips the product's sign (FNMADD/FNMSUB), negAddend subtracts rather
// than adds rs3 (FMSUB/FNMSUB). The single-precision form computes in
// float64, wide enough to hold any float32 product exactly before the
// final rounding back to float32.
func f32FMA(negProduct, negAddend bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		a := float64(h.getF32(s.dec.Rs1))
		b := float64(h.getF32(s.dec.Rs2))
		c := float64(h.getF32(s.dec.Rs3))
		if negAddend {
			c = -c
		}
		r := math.FMA(a, b, c)
		if negProduct {
			r = -r
		}
		h.setF32(s.dec.Rd, float32(r))
		return ok
	}
}

func f64FMA(negProduct, negAddend bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		a := h.getF64(s.dec.Rs1)
		b := h.getF64(s.dec.Rs2)
		c := h.getF64(s.dec.Rs3)
		if negAddend {
			c = -c
		}
		r := math.FMA(a, b, c)
		if negProduct {
			r = -r
		}
		h.setF64(s.dec.Rd, r)
		return ok
	}
}

func f32BinOp(fn func(a, b float32) float32) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		h.setF32(s.dec.Rd, fn(h.getF32(s.dec.Rs1), h.getF32(s.dec.Rs2)))
		return ok
	}
}

func f64BinOp(fn func(a, b float64) float64) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		h.setF64(s.dec.Rd, fn(h.getF64(s.dec.Rs1), h.getF64(s.dec.Rs2)))
		return ok
	}
}

func f32Compare(fn func(a, b float32) bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		v := uint64(0)
		if fn(h.getF32(s.dec.Rs1), h.getF32(s.dec.Rs2)) {
			v = 1
		}
		h.setReg(s.dec.Rd, v)
		return ok
	}
}

func f64Compare(fn func(a, b float64) bool) handler {
	return func(h *Hart, s *stepInfo) uint16 {
		v := uint64(0)
		if fn(h.getF64(s.dec.Rs1), h.getF64(s.dec.Rs2)) {
			v = 1
		}
		h.setReg(s.dec.Rd, v)
		return ok
	}
}

// signCopy32 implements the FSGNJ family: the magnitude of a with a sign
// bit derived from a and b per negate/xor.
func signCopy32(a, b float32, negate, xor bool) float32 {
	abits := math.Float32bits(a)
	bbits := math.Float32bits(b)
	sign := bbits & 0x80000000
	if negate {
		sign ^= 0x80000000
	}
	if xor {
		sign = (abits ^ bbits) & 0x80000000
	}
	return math.Float32frombits((abits &^ 0x80000000) | sign)
}

func signCopy64(a, b float64, negate, xor bool) float64 {
	abits := math.Float64bits(a)
	bbits := math.Float64bits(b)
	sign := bbits & (1 << 63)
	if negate {
		sign ^= 1 << 63
	}
	if xor {
		sign = (abits ^ bbits) & (1 << 63)
	}
	return math.Float64frombits((abits &^ (1 << 63)) | sign)
}

// classify32/64 implement FCLASS: a one-hot bitmask naming which of the
// ten standard categories the value falls into.
func classify32(f float32) uint64 {
	bits := math.Float32bits(f)
	neg := bits&0x80000000 != 0
	exp := (bits >> 23) & 0xff
	frac := bits & 0x7fffff
	switch {
	case exp == 0xff && frac != 0:
		if bits&(1<<22) != 0 {
			return 1 << 9 // quiet NaN
		}
		return 1 << 8 // signaling NaN
	case exp == 0xff:
		if neg {
			return 1 << 0
		}
		return 1 << 7
	case exp == 0 && frac == 0:
		if neg {
			return 1 << 3
		}
		return 1 << 4
	case exp == 0:
		if neg {
			return 1 << 2
		}
		return 1 << 5
	default:
		if neg {
			return 1 << 1
		}
		return 1 << 6
	}
}

func classify64(f float64) uint64 {
	bits := math.Float64bits(f)
	neg := bits&(1<<63) != 0
	exp := (bits >> 52) & 0x7ff
	frac := bits & 0xfffffffffffff
	switch {
	case exp == 0x7ff && frac != 0:
		if bits&(1<<51) != 0 {
			return 1 << 9
		}
		return 1 << 8
	case exp == 0x7ff:
		if neg {
			return 1 << 0
		}
		return 1 << 7
	case exp == 0 && frac == 0:
		if neg {
			return 1 << 3
		}
		return 1 << 4
	case exp == 0:
		if neg {
			return 1 << 2
		}
		return 1 << 5
	default:
		if neg {
			return 1 << 1
		}
		return 1 << 6
	}
}
