package riscv

import (
	"math"
)

const (
	quietBit32 = 0x00400000
)

func isSignaling32(v uint32) bool {
	return v&0x7f800000 == 0x7f800000 && v&0x007fffff != 0 && v&quietBit32 == 0
}

func isNaN32(v uint32) bool {
	return v&0x7f800000 == 0x7f800000 && v&0x007fffff != 0
}

// roundingMode resolves the dynamic mode from frm. Reserved modes are illegal.
func (h *Hart) roundingMode(s *Statement) (uint8, error) {
	rm := s.Rm
	if rm == RM_DYN {
		frm, _ := h.CSR.Get(CSR_FRM)
		rm = uint8(frm)
	}
	if rm > RM_RMM {
		return 0, &Trap{Cause: CauseIllegal, Value: uint64(s.Raw), Msg: "reserved rounding mode"}
	}
	return rm, nil
}

func (h *Hart) raiseFlags(flags uint64) error {
	if flags == 0 {
		return nil
	}
	return h.CSR.SetBits(CSR_FFLAGS, flags)
}

// setf writes a single precision result, canonicalizing NaNs.
func (h *Hart) setf(rd uint8, v float32) error {
	bits := math.Float32bits(v)
	if isNaN32(bits) {
		bits = canonicalNaN
	}
	return h.F.SetBits32(rd, bits)
}

func roundTo(v float64, rm uint8) float64 {
	switch rm {
	case RM_RTZ:
		return math.Trunc(v)
	case RM_RDN:
		return math.Floor(v)
	case RM_RUP:
		return math.Ceil(v)
	case RM_RMM:
		return math.Round(v)
	}
	return math.RoundToEven(v)
}

// round32 narrows v to single precision in rounding mode rm. Overflow in a
// mode that rounds toward zero gives the largest finite value.
func round32(v float64, rm uint8) float32 {
	r := float32(v)
	if rm == RM_RNE || math.IsNaN(v) || float64(r) == v {
		return r
	}
	toward := func(dir float64) float32 {
		return math.Nextafter32(r, float32(dir))
	}
	switch rm {
	case RM_RTZ:
		if math.Abs(float64(r)) > math.Abs(v) {
			r = toward(0)
		}
	case RM_RDN:
		if float64(r) > v {
			r = toward(math.Inf(-1))
		}
	case RM_RUP:
		if float64(r) < v {
			r = toward(math.Inf(1))
		}
	case RM_RMM:
		// differs from RNE only on an exact tie rounded toward zero
		if math.Abs(float64(r)) < math.Abs(v) {
			other := toward(math.Copysign(math.Inf(1), v))
			if math.Abs(float64(other)-v) == math.Abs(v-float64(r)) {
				r = other
			}
		}
	}
	return r
}

// fpArith covers the two-operand arithmetic instructions. Operands are
// widened to double precision, which is exact for add, sub and mul unless the
// exponents are far apart, then narrowed once in the requested mode.
func fpArith(op func(a, b float64) float64) execFn {
	return func(h *Hart, s *Statement) error {
		rm, err := h.roundingMode(s)
		if err != nil {
			return err
		}
		ab, bb := h.F.Bits32(s.Rs1), h.F.Bits32(s.Rs2)
		a, b := float64(math.Float32frombits(ab)), float64(math.Float32frombits(bb))
		wide := op(a, b)
		r := round32(wide, rm)
		var flags uint64
		switch {
		case isSignaling32(ab) || isSignaling32(bb):
			flags |= FLAG_NV
		case math.IsNaN(wide):
			if !math.IsNaN(a) && !math.IsNaN(b) {
				flags |= FLAG_NV
			}
		case math.IsInf(wide, 0):
			if !math.IsInf(a, 0) && !math.IsInf(b, 0) {
				flags |= FLAG_DZ
			}
		case math.IsInf(float64(float32(wide)), 0):
			flags |= FLAG_OF | FLAG_NX
		case float64(r) != wide:
			flags |= FLAG_NX
		}
		if err := h.setf(s.Rd, r); err != nil {
			return err
		}
		return h.raiseFlags(flags)
	}
}

func fpFused(negProduct, negAddend bool) execFn {
	return func(h *Hart, s *Statement) error {
		rm, err := h.roundingMode(s)
		if err != nil {
			return err
		}
		a, b, c := h.F.Float32(s.Rs1), h.F.Float32(s.Rs2), h.F.Float32(s.Rs3)
		p, q := float64(a), float64(c)
		if negProduct {
			p = -p
		}
		if negAddend {
			q = -q
		}
		r := round32(math.FMA(p, float64(b), q), rm)
		var flags uint64
		if isSignaling32(h.F.Bits32(s.Rs1)) || isSignaling32(h.F.Bits32(s.Rs2)) || isSignaling32(h.F.Bits32(s.Rs3)) {
			flags |= FLAG_NV
		}
		if math.IsNaN(float64(r)) && !math.IsNaN(float64(a)) && !math.IsNaN(float64(b)) && !math.IsNaN(float64(c)) {
			flags |= FLAG_NV
		}
		if err := h.setf(s.Rd, r); err != nil {
			return err
		}
		return h.raiseFlags(flags)
	}
}

func fpMinMax(max bool) execFn {
	return func(h *Hart, s *Statement) error {
		ab, bb := h.F.Bits32(s.Rs1), h.F.Bits32(s.Rs2)
		a, b := math.Float32frombits(ab), math.Float32frombits(bb)
		var flags uint64
		if isSignaling32(ab) || isSignaling32(bb) {
			flags |= FLAG_NV
		}
		var r uint32
		switch {
		case isNaN32(ab) && isNaN32(bb):
			r = canonicalNaN
		case isNaN32(ab):
			r = bb
		case isNaN32(bb):
			r = ab
		case a == b:
			// -0.0 is less than +0.0
			if max {
				r = ab & bb
			} else {
				r = ab | bb
			}
		case (a < b) != max:
			r = ab
		default:
			r = bb
		}
		if err := h.F.SetBits32(s.Rd, r); err != nil {
			return err
		}
		return h.raiseFlags(flags)
	}
}

func fpSignInject(f func(a, b uint32) uint32) execFn {
	return func(h *Hart, s *Statement) error {
		return h.F.SetBits32(s.Rd, f(h.F.Bits32(s.Rs1), h.F.Bits32(s.Rs2)))
	}
}

func fpCompare(signaling bool, f func(a, b float32) bool) execFn {
	return func(h *Hart, s *Statement) error {
		ab, bb := h.F.Bits32(s.Rs1), h.F.Bits32(s.Rs2)
		var flags uint64
		if isSignaling32(ab) || isSignaling32(bb) || (signaling && (isNaN32(ab) || isNaN32(bb))) {
			flags |= FLAG_NV
		}
		r := f(math.Float32frombits(ab), math.Float32frombits(bb))
		if err := h.setx(s.Rd, rbool(r)); err != nil {
			return err
		}
		return h.raiseFlags(flags)
	}
}

// fpToInt converts to a signed or unsigned integer of width bits, saturating
// out of range values.
func fpToInt(width uint, unsigned bool) execFn {
	return func(h *Hart, s *Statement) error {
		rm, err := h.roundingMode(s)
		if err != nil {
			return err
		}
		v := float64(h.F.Float32(s.Rs1))
		var lo, hi float64
		var loBits, hiBits uint64
		if unsigned {
			lo, hi = 0, math.Ldexp(1, int(width))
			loBits, hiBits = 0, ^uint64(0)>>(64-width)
		} else {
			lo, hi = -math.Ldexp(1, int(width-1)), math.Ldexp(1, int(width-1))
			loBits, hiBits = uint64(1)<<(width-1), uint64(1)<<(width-1)-1
		}
		var flags uint64
		var out uint64
		r := roundTo(v, rm)
		switch {
		case math.IsNaN(v) || r >= hi:
			out, flags = hiBits, FLAG_NV
		case r < lo:
			out, flags = loBits, FLAG_NV
		default:
			if unsigned {
				out = uint64(r)
			} else {
				out = uint64(int64(r))
			}
			if r != v {
				flags = FLAG_NX
			}
		}
		if width == 32 {
			out = sext32(out)
		}
		if err := h.setx(s.Rd, out); err != nil {
			return err
		}
		return h.raiseFlags(flags)
	}
}

func intToFp(width uint, unsigned bool) execFn {
	return func(h *Hart, s *Statement) error {
		if _, err := h.roundingMode(s); err != nil {
			return err
		}
		x := h.x(s.Rs1)
		var v float64
		var exact bool
		switch {
		case width == 32 && unsigned:
			v = float64(uint32(x))
		case width == 32:
			v = float64(int32(x))
		case unsigned:
			v = float64(x)
		default:
			v = float64(int64(x))
		}
		r := float32(v)
		exact = float64(r) == v
		if err := h.setf(s.Rd, r); err != nil {
			return err
		}
		if !exact {
			return h.raiseFlags(FLAG_NX)
		}
		return nil
	}
}

func fclass(v uint32) uint64 {
	neg := v>>31 != 0
	exp := v & 0x7f800000
	frac := v & 0x007fffff
	var bit uint
	switch {
	case exp == 0x7f800000 && frac != 0:
		if frac&quietBit32 != 0 {
			bit = 9
		} else {
			bit = 8
		}
	case exp == 0x7f800000:
		bit = 7
	case exp == 0 && frac == 0:
		bit = 4
	case exp == 0:
		bit = 5
	default:
		bit = 6
	}
	if neg && bit <= 7 {
		bit = 7 - bit
	}
	return 1 << bit
}

// F extension: single precision floating point.
func floatDefs() []*Definition {
	defs := []*Definition{
		{Name: "flw", Usage: "flw f1,-100(t1)", Desc: "Load float", Format: FormatLoad, FP: 1,
			Template: "iiiiiiiiiiii sssss 010 fffff 0000111",
			Exec: func(h *Hart, s *Statement) error {
				v, err := h.load(h.effAddr(s), 4)
				if err != nil {
					return err
				}
				return h.F.SetBits32(s.Rd, uint32(v))
			}},
		{Name: "fsw", Usage: "fsw f1,-100(t1)", Desc: "Store float", Format: FormatS, FP: 1,
			Template: "iiiiiii ttttt sssss 010 iiiii 0100111",
			Exec: func(h *Hart, s *Statement) error {
				return h.store(h.effAddr(s), 4, uint64(uint32(h.F.Get(int(s.Rs2)))))
			}},

		{Name: "fadd.s", Usage: "fadd.s f1,f2,f3", Desc: "Floating add", Format: FormatFR, FP: 7,
			Template: "0000000 ttttt sssss mmm fffff 1010011",
			Exec:     fpArith(func(a, b float64) float64 { return a + b })},
		{Name: "fsub.s", Usage: "fsub.s f1,f2,f3", Desc: "Floating subtract", Format: FormatFR, FP: 7,
			Template: "0000100 ttttt sssss mmm fffff 1010011",
			Exec:     fpArith(func(a, b float64) float64 { return a - b })},
		{Name: "fmul.s", Usage: "fmul.s f1,f2,f3", Desc: "Floating multiply", Format: FormatFR, FP: 7,
			Template: "0001000 ttttt sssss mmm fffff 1010011",
			Exec:     fpArith(func(a, b float64) float64 { return a * b })},
		{Name: "fdiv.s", Usage: "fdiv.s f1,f2,f3", Desc: "Floating divide", Format: FormatFR, FP: 7,
			Template: "0001100 ttttt sssss mmm fffff 1010011",
			Exec:     fpArith(func(a, b float64) float64 { return a / b })},
		{Name: "fsqrt.s", Usage: "fsqrt.s f1,f2", Desc: "Floating square root", Format: FormatFR1, FP: 3,
			Template: "0101100 00000 sssss mmm fffff 1010011",
			Exec: func(h *Hart, s *Statement) error {
				rm, err := h.roundingMode(s)
				if err != nil {
					return err
				}
				a := h.F.Float32(s.Rs1)
				var flags uint64
				if a < 0 || isSignaling32(h.F.Bits32(s.Rs1)) {
					flags |= FLAG_NV
				}
				if err := h.setf(s.Rd, round32(math.Sqrt(float64(a)), rm)); err != nil {
					return err
				}
				return h.raiseFlags(flags)
			}},
		{Name: "fmin.s", Usage: "fmin.s f1,f2,f3", Desc: "Floating minimum", Format: FormatFR, FP: 7,
			Template: "0010100 ttttt sssss 000 fffff 1010011", Exec: fpMinMax(false)},
		{Name: "fmax.s", Usage: "fmax.s f1,f2,f3", Desc: "Floating maximum", Format: FormatFR, FP: 7,
			Template: "0010100 ttttt sssss 001 fffff 1010011", Exec: fpMinMax(true)},

		{Name: "fsgnj.s", Usage: "fsgnj.s f1,f2,f3", Desc: "Sign injection", Format: FormatFR, FP: 7,
			Template: "0010000 ttttt sssss 000 fffff 1010011",
			Exec:     fpSignInject(func(a, b uint32) uint32 { return a&0x7fffffff | b&0x80000000 })},
		{Name: "fsgnjn.s", Usage: "fsgnjn.s f1,f2,f3", Desc: "Negated sign injection", Format: FormatFR, FP: 7,
			Template: "0010000 ttttt sssss 001 fffff 1010011",
			Exec:     fpSignInject(func(a, b uint32) uint32 { return a&0x7fffffff | ^b&0x80000000 })},
		{Name: "fsgnjx.s", Usage: "fsgnjx.s f1,f2,f3", Desc: "XOR sign injection", Format: FormatFR, FP: 7,
			Template: "0010000 ttttt sssss 010 fffff 1010011",
			Exec:     fpSignInject(func(a, b uint32) uint32 { return a ^ b&0x80000000 })},

		{Name: "feq.s", Usage: "feq.s t1,f1,f2", Desc: "Floating equal", Format: FormatFR, FP: 6,
			Template: "1010000 ttttt sssss 010 fffff 1010011",
			Exec:     fpCompare(false, func(a, b float32) bool { return a == b })},
		{Name: "flt.s", Usage: "flt.s t1,f1,f2", Desc: "Floating less than", Format: FormatFR, FP: 6,
			Template: "1010000 ttttt sssss 001 fffff 1010011",
			Exec:     fpCompare(true, func(a, b float32) bool { return a < b })},
		{Name: "fle.s", Usage: "fle.s t1,f1,f2", Desc: "Floating less than or equal", Format: FormatFR, FP: 6,
			Template: "1010000 ttttt sssss 000 fffff 1010011",
			Exec:     fpCompare(true, func(a, b float32) bool { return a <= b })},

		{Name: "fcvt.w.s", Usage: "fcvt.w.s t1,f1", Desc: "Convert float to integer", Format: FormatFR1, FP: 2,
			Template: "1100000 00000 sssss mmm fffff 1010011", Exec: fpToInt(32, false)},
		{Name: "fcvt.wu.s", Usage: "fcvt.wu.s t1,f1", Desc: "Convert float to unsigned integer", Format: FormatFR1, FP: 2,
			Template: "1100000 00001 sssss mmm fffff 1010011", Exec: fpToInt(32, true)},
		{Name: "fcvt.s.w", Usage: "fcvt.s.w f1,t1", Desc: "Convert integer to float", Format: FormatFR1, FP: 1,
			Template: "1101000 00000 sssss mmm fffff 1010011", Exec: intToFp(32, false)},
		{Name: "fcvt.s.wu", Usage: "fcvt.s.wu f1,t1", Desc: "Convert unsigned integer to float", Format: FormatFR1, FP: 1,
			Template: "1101000 00001 sssss mmm fffff 1010011", Exec: intToFp(32, true)},
		{Name: "fcvt.l.s", Usage: "fcvt.l.s t1,f1", Desc: "Convert float to long", Format: FormatFR1, FP: 2, XLEN: 64,
			Template: "1100000 00010 sssss mmm fffff 1010011", Exec: fpToInt(64, false)},
		{Name: "fcvt.lu.s", Usage: "fcvt.lu.s t1,f1", Desc: "Convert float to unsigned long", Format: FormatFR1, FP: 2, XLEN: 64,
			Template: "1100000 00011 sssss mmm fffff 1010011", Exec: fpToInt(64, true)},
		{Name: "fcvt.s.l", Usage: "fcvt.s.l f1,t1", Desc: "Convert long to float", Format: FormatFR1, FP: 1, XLEN: 64,
			Template: "1101000 00010 sssss mmm fffff 1010011", Exec: intToFp(64, false)},
		{Name: "fcvt.s.lu", Usage: "fcvt.s.lu f1,t1", Desc: "Convert unsigned long to float", Format: FormatFR1, FP: 1, XLEN: 64,
			Template: "1101000 00011 sssss mmm fffff 1010011", Exec: intToFp(64, true)},

		{Name: "fmv.x.w", Usage: "fmv.x.w t1,f1", Desc: "Move float bits to integer register", Format: FormatFR1, FP: 2,
			Template: "1110000 00000 sssss 000 fffff 1010011",
			Exec: func(h *Hart, s *Statement) error {
				return h.setx(s.Rd, sext32(h.F.Get(int(s.Rs1))))
			}},
		{Name: "fmv.w.x", Usage: "fmv.w.x f1,t1", Desc: "Move integer bits to float register", Format: FormatFR1, FP: 1,
			Template: "1111000 00000 sssss 000 fffff 1010011",
			Exec: func(h *Hart, s *Statement) error {
				return h.F.SetBits32(s.Rd, uint32(h.x(s.Rs1)))
			}},
		{Name: "fclass.s", Usage: "fclass.s t1,f1", Desc: "Classify float", Format: FormatFR1, FP: 2,
			Template: "1110000 00000 sssss 001 fffff 1010011",
			Exec: func(h *Hart, s *Statement) error {
				return h.setx(s.Rd, fclass(h.F.Bits32(s.Rs1)))
			}},
	}
	fused := []struct {
		name, opcode, desc string
		negProduct, negAdd bool
	}{
		{"fmadd.s", "1000011", "Fused multiply add", false, false},
		{"fmsub.s", "1000111", "Fused multiply subtract", false, true},
		{"fnmsub.s", "1001011", "Fused negated multiply subtract", true, false},
		{"fnmadd.s", "1001111", "Fused negated multiply add", true, true},
	}
	for _, f := range fused {
		defs = append(defs, &Definition{
			Name: f.name, Usage: f.name + " f1,f2,f3,f4", Desc: f.desc, Format: FormatR4, FP: 7,
			Template: "ggggg 00 ttttt sssss mmm fffff " + f.opcode,
			Exec:     fpFused(f.negProduct, f.negAdd),
		})
	}
	return defs
}
