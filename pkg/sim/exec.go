package sim

import (
	"fmt"
	"math"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
)

func (m *Machine) reg(r asm.XReg) uint64 {
	if r == asm.SP {
		return m.SP
	}
	return m.X[r]
}

func (m *Machine) setReg(r asm.XReg, v uint64) {
	if r == asm.SP {
		m.SP = v
		return
	}
	m.X[r] = v
}

// base reads an address register. SP must be 16-byte aligned whenever it is
// used as a base.
func (m *Machine) base(r asm.XReg) (uint64, error) {
	if r == asm.SP && m.SP%16 != 0 {
		return 0, fmt.Errorf("%w: misaligned SP %#x", ErrFault, m.SP)
	}
	return m.reg(r), nil
}

func (m *Machine) target(l asm.Label) (uint64, error) {
	a, ok := m.labels[l]
	if !ok {
		return 0, fmt.Errorf("%w: undefined label %s", ErrFault, l)
	}
	return a, nil
}

func f32(u uint32) float32 { return math.Float32frombits(u) }
func u32(f float32) uint32 { return math.Float32bits(f) }

func isNaN(f float32) bool { return f != f }

// minNum and maxNum are the IEEE 754-2008 operations behind FMINNM/FMAXNM:
// a quiet NaN operand yields the other operand.
func minNum(a, b float32) float32 {
	switch {
	case isNaN(a):
		return b
	case isNaN(b):
		return a
	case a == 0 && b == 0:
		if math.Signbit(float64(a)) {
			return a
		}
		return b
	case a < b:
		return a
	}
	return b
}

func maxNum(a, b float32) float32 {
	switch {
	case isNaN(a):
		return b
	case isNaN(b):
		return a
	case a == 0 && b == 0:
		if math.Signbit(float64(a)) {
			return b
		}
		return a
	case a > b:
		return a
	}
	return b
}

func fma(a, b, c float32) float32 {
	return float32(math.FMA(float64(a), float64(b), float64(c)))
}

// cvtzs converts toward zero with saturation; NaN converts to 0.
func cvtzs(f float32) uint32 {
	switch {
	case isNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return 1 << 31
	}
	return uint32(int32(f))
}

func fcmp(c asm.FCmp, a, b float32) (bool, error) {
	switch c {
	case asm.FCmpEQ:
		return a == b, nil
	case asm.FCmpNE:
		return a != b, nil
	case asm.FCmpGT:
		return a > b, nil
	case asm.FCmpGE:
		return a >= b, nil
	case asm.FCmpLT:
		return a < b, nil
	case asm.FCmpLE:
		return a <= b, nil
	}
	return false, fmt.Errorf("%w: compare %d", ErrUnsupported, int(c))
}

// binF applies op lane-wise: zd = op(zn, zm).
func (m *Machine) binF(zd, zn, zm asm.ZReg, op func(a, b float32) float32) {
	for i := range m.Z[zd] {
		m.Z[zd][i] = u32(op(f32(m.Z[zn][i]), f32(m.Z[zm][i])))
	}
}

// binI is binF for integer lanes.
func (m *Machine) binI(zd, zn, zm asm.ZReg, op func(a, b uint32) uint32) {
	for i := range m.Z[zd] {
		m.Z[zd][i] = op(m.Z[zn][i], m.Z[zm][i])
	}
}

// mergeF updates the active lanes of zd with op(zn lane); inactive lanes
// keep their value.
func (m *Machine) mergeF(zd asm.ZReg, pg asm.PReg, zn asm.ZReg, op func(a float32) float32) {
	for i := range m.Z[zd] {
		if m.P[pg][i] {
			m.Z[zd][i] = u32(op(f32(m.Z[zn][i])))
		}
	}
}

func (m *Machine) mergeBits(zd asm.ZReg, pg asm.PReg, zn asm.ZReg, op func(a uint32) uint32) {
	for i := range m.Z[zd] {
		if m.P[pg][i] {
			m.Z[zd][i] = op(m.Z[zn][i])
		}
	}
}

// step executes one instruction and returns the next pc. done is set when
// the program returns to the sentinel link.
func (m *Machine) step(pc uint64, inst asm.Instruction) (next uint64, done bool, err error) {
	next = pc + 4
	switch in := inst.(type) {
	// general purpose
	case asm.ADD:
		m.setReg(in.Rd, m.reg(in.Rn)+m.reg(in.Rm))
	case asm.SUB:
		m.setReg(in.Rd, m.reg(in.Rn)-m.reg(in.Rm))
	case asm.ADDi:
		m.setReg(in.Rd, m.reg(in.Rn)+uint64(in.Imm))
	case asm.SUBi:
		m.setReg(in.Rd, m.reg(in.Rn)-uint64(in.Imm))
	case asm.MOVi:
		m.setReg(in.Rd, uint64(in.Imm))
	case asm.MOVZ:
		m.setReg(in.Rd, uint64(in.Imm)<<in.Shift)
	case asm.MOVK:
		mask := uint64(0xffff) << in.Shift
		m.setReg(in.Rd, m.reg(in.Rd)&^mask|uint64(in.Imm)<<in.Shift)
	case asm.ADR:
		a, err := m.target(in.Target)
		if err != nil {
			return 0, false, err
		}
		m.setReg(in.Rd, a)

	// scalar memory
	case asm.STPpre:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		a := b + uint64(in.Ofs)
		if err := m.Mem.Write64(a, m.reg(in.Rt1)); err != nil {
			return 0, false, err
		}
		if err := m.Mem.Write64(a+8, m.reg(in.Rt2)); err != nil {
			return 0, false, err
		}
		m.setReg(in.Rn, a)
	case asm.LDPpost:
		a, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		v1, err := m.Mem.Read64(a)
		if err != nil {
			return 0, false, err
		}
		v2, err := m.Mem.Read64(a + 8)
		if err != nil {
			return 0, false, err
		}
		m.setReg(in.Rt1, v1)
		m.setReg(in.Rt2, v2)
		m.setReg(in.Rn, a+uint64(in.Ofs))
	case asm.STRpre:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		a := b + uint64(in.Ofs)
		if err := m.Mem.Write64(a, m.reg(in.Rt)); err != nil {
			return 0, false, err
		}
		m.setReg(in.Rn, a)
	case asm.LDRpost:
		a, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		v, err := m.Mem.Read64(a)
		if err != nil {
			return 0, false, err
		}
		m.setReg(in.Rt, v)
		m.setReg(in.Rn, a+uint64(in.Ofs))
	case asm.FLDRs:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		v, err := m.Mem.Read32(b + uint64(in.Ofs))
		if err != nil {
			return 0, false, err
		}
		clear(m.Z[in.Ft])
		m.Z[in.Ft][0] = v
	case asm.FSTRs:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		if err := m.Mem.Write32(b+uint64(in.Ofs), m.Z[in.Ft][0]); err != nil {
			return 0, false, err
		}

	// branches
	case asm.BL:
		if in.IsSymbol {
			return next, false, m.callHost(in.Target, next)
		}
		a, err := m.target(in.Target)
		if err != nil {
			return 0, false, err
		}
		m.X[30] = next
		return a, false, nil
	case asm.RET:
		if m.X[30] == returnSentinel {
			return 0, true, nil
		}
		return m.X[30], false, nil
	case asm.Bcond:
		var taken bool
		switch in.Cond {
		case asm.CondEQ:
			taken = m.Zf
		case asm.CondNE:
			taken = !m.Zf
		case asm.CondMI:
			taken = m.N
		case asm.CondPL:
			taken = !m.N
		default:
			return 0, false, fmt.Errorf("%w: condition %s", ErrUnsupported, in.Cond)
		}
		if taken {
			a, err := m.target(in.Target)
			return a, false, err
		}

	// predicates
	case asm.PTRUE:
		for i := range m.P[in.Pd] {
			m.P[in.Pd][i] = true
		}
	case asm.PORRS:
		res := make([]bool, m.lanes)
		first, last, some := false, false, false
		seen := false
		for i := range res {
			if !m.P[in.Pg][i] {
				continue
			}
			res[i] = m.P[in.Pn][i] || m.P[in.Pm][i]
			if !seen {
				first, seen = res[i], true
			}
			last = res[i]
			some = some || res[i]
		}
		copy(m.P[in.Pd], res)
		m.N, m.Zf, m.C, m.V = first, !some, !last, false

	// moves
	case asm.ZMOV:
		copy(m.Z[in.Zd], m.Z[in.Zn])
	case asm.ZSEL:
		res := make([]uint32, m.lanes)
		for i := range res {
			if m.P[in.Pg][i] {
				res[i] = m.Z[in.Zn][i]
			} else {
				res[i] = m.Z[in.Zm][i]
			}
		}
		copy(m.Z[in.Zd], res)
	case asm.ZMOVm:
		m.mergeBits(in.Zd, in.Pg, in.Zn, func(a uint32) uint32 { return a })
	case asm.ZFMOVm:
		m.mergeBits(in.Zd, in.Pg, in.Zd, func(uint32) uint32 { return u32(in.Imm) })
	case asm.ZCPYm:
		m.mergeBits(in.Zd, in.Pg, in.Zd, func(uint32) uint32 { return uint32(in.Imm) })
	case asm.ZFDUP:
		for i := range m.Z[in.Zd] {
			m.Z[in.Zd][i] = u32(in.Imm)
		}

	// float arithmetic
	case asm.ZFADD:
		m.binF(in.Zd, in.Zn, in.Zm, func(a, b float32) float32 { return a + b })
	case asm.ZFSUB:
		m.binF(in.Zd, in.Zn, in.Zm, func(a, b float32) float32 { return a - b })
	case asm.ZFMUL:
		m.binF(in.Zd, in.Zn, in.Zm, func(a, b float32) float32 { return a * b })
	case asm.ZFADDi:
		m.mergeF(in.Zdn, in.Pg, in.Zdn, func(a float32) float32 { return a + in.Imm })
	case asm.ZFSUBi:
		m.mergeF(in.Zdn, in.Pg, in.Zdn, func(a float32) float32 { return a - in.Imm })
	case asm.ZFMULi:
		m.mergeF(in.Zdn, in.Pg, in.Zdn, func(a float32) float32 { return a * in.Imm })
	case asm.ZFMAXNMi:
		m.mergeF(in.Zdn, in.Pg, in.Zdn, func(a float32) float32 { return maxNum(a, in.Imm) })
	case asm.ZFMINNMi:
		m.mergeF(in.Zdn, in.Pg, in.Zdn, func(a float32) float32 { return minNum(a, in.Imm) })
	case asm.ZFMAXNM:
		m.predBinF(in.Zdn, in.Pg, in.Zm, maxNum)
	case asm.ZFMINNM:
		m.predBinF(in.Zdn, in.Pg, in.Zm, minNum)
	case asm.ZFDIV:
		m.predBinF(in.Zdn, in.Pg, in.Zm, func(a, b float32) float32 { return a / b })
	case asm.ZFMAD:
		for i := range m.Z[in.Zdn] {
			if m.P[in.Pg][i] {
				d := f32(m.Z[in.Zdn][i])
				m.Z[in.Zdn][i] = u32(fma(d, f32(m.Z[in.Zm][i]), f32(m.Z[in.Za][i])))
			}
		}
	case asm.ZFMLA:
		m.mla(in.Zda, in.Pg, in.Zn, in.Zm, false)
	case asm.ZFMLS:
		m.mla(in.Zda, in.Pg, in.Zn, in.Zm, true)
	case asm.ZFABS:
		m.mergeBits(in.Zd, in.Pg, in.Zn, func(a uint32) uint32 { return a &^ (1 << 31) })
	case asm.ZFNEG:
		m.mergeBits(in.Zd, in.Pg, in.Zn, func(a uint32) uint32 { return a ^ 1<<31 })
	case asm.ZFSQRT:
		m.mergeF(in.Zd, in.Pg, in.Zn, func(a float32) float32 { return float32(math.Sqrt(float64(a))) })
	case asm.ZFRINTM:
		m.mergeF(in.Zd, in.Pg, in.Zn, func(a float32) float32 { return float32(math.Floor(float64(a))) })
	case asm.ZFRINTI, asm.ZFRINTN:
		zd, pg, zn := unaryOperands(in)
		m.mergeF(zd, pg, zn, func(a float32) float32 { return float32(math.RoundToEven(float64(a))) })
	case asm.ZFCVTZS:
		m.mergeBits(in.Zd, in.Pg, in.Zn, func(a uint32) uint32 { return cvtzs(f32(a)) })
	case asm.ZSCVTF:
		m.mergeBits(in.Zd, in.Pg, in.Zn, func(a uint32) uint32 { return u32(float32(int32(a))) })

	// integer and bitwise
	case asm.ZADD:
		m.binI(in.Zd, in.Zn, in.Zm, func(a, b uint32) uint32 { return a + b })
	case asm.ZSUB:
		m.binI(in.Zd, in.Zn, in.Zm, func(a, b uint32) uint32 { return a - b })
	case asm.ZAND:
		m.binI(in.Zd, in.Zn, in.Zm, func(a, b uint32) uint32 { return a & b })
	case asm.ZORR:
		m.binI(in.Zd, in.Zn, in.Zm, func(a, b uint32) uint32 { return a | b })
	case asm.ZEOR:
		m.binI(in.Zd, in.Zn, in.Zm, func(a, b uint32) uint32 { return a ^ b })
	case asm.ZANDi:
		for i := range m.Z[in.Zdn] {
			m.Z[in.Zdn][i] &= in.Imm
		}
	case asm.ZLSLi:
		m.binI(in.Zd, in.Zn, in.Zn, func(a, _ uint32) uint32 { return a << in.Shift })
	case asm.ZLSRi:
		m.binI(in.Zd, in.Zn, in.Zn, func(a, _ uint32) uint32 { return a >> in.Shift })

	// compares
	case asm.ZFCM:
		return next, false, m.compare(in.Cond, in.Pd, in.Pg, in.Zn, func(i int) float32 { return f32(m.Z[in.Zm][i]) })
	case asm.ZFCMz:
		return next, false, m.compare(in.Cond, in.Pd, in.Pg, in.Zn, func(int) float32 { return 0 })
	case asm.ZCMPi:
		if in.Cond != asm.FCmpEQ && in.Cond != asm.FCmpNE {
			return 0, false, fmt.Errorf("%w: integer compare %s", ErrUnsupported, in.Cond)
		}
		res := make([]bool, m.lanes)
		for i := range res {
			eq := int32(m.Z[in.Zn][i]) == in.Imm
			res[i] = m.P[in.Pg][i] && eq == (in.Cond == asm.FCmpEQ)
		}
		copy(m.P[in.Pd], res)

	// vector memory
	case asm.ZLD1W:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		return next, false, m.gather(in.Zt, in.Pg, func(i int) uint64 { return b + uint64(i)*4 })
	case asm.ZLD1Wg:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		idx := append([]uint32(nil), m.Z[in.Zm]...)
		return next, false, m.gather(in.Zt, in.Pg, func(i int) uint64 { return b + uint64(idx[i])*4 })
	case asm.ZST1W:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		for i, v := range m.Z[in.Zt] {
			if !m.P[in.Pg][i] {
				continue
			}
			if err := m.Mem.Write32(b+uint64(i)*4, v); err != nil {
				return 0, false, err
			}
		}
	case asm.ZLDR:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		for i := range m.Z[in.Zt] {
			v, err := m.Mem.Read32(b + uint64(i)*4)
			if err != nil {
				return 0, false, err
			}
			m.Z[in.Zt][i] = v
		}
	case asm.ZSTR:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		for i, v := range m.Z[in.Zt] {
			if err := m.Mem.Write32(b+uint64(i)*4, v); err != nil {
				return 0, false, err
			}
		}
	case asm.PSTR:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		buf, err := m.Mem.slice(b, m.vlen/8)
		if err != nil {
			return 0, false, err
		}
		clear(buf)
		for i, on := range m.P[in.Pt] {
			if on {
				buf[i/2] |= 1 << (4 * (i % 2))
			}
		}
	case asm.PLDR:
		b, err := m.base(in.Rn)
		if err != nil {
			return 0, false, err
		}
		buf, err := m.Mem.slice(b, m.vlen/8)
		if err != nil {
			return 0, false, err
		}
		for i := range m.P[in.Pt] {
			m.P[in.Pt][i] = buf[i/2]&(1<<(4*(i%2))) != 0
		}

	case asm.LabelDef, asm.Align:
		// not placed in the code map
	case asm.Word:
		return 0, false, fmt.Errorf("%w: executing data", ErrFault)
	default:
		return 0, false, fmt.Errorf("%w: instruction %T", ErrUnsupported, inst)
	}
	return next, false, nil
}

func unaryOperands(inst asm.Instruction) (asm.ZReg, asm.PReg, asm.ZReg) {
	switch in := inst.(type) {
	case asm.ZFRINTI:
		return in.Zd, in.Pg, in.Zn
	case asm.ZFRINTN:
		return in.Zd, in.Pg, in.Zn
	}
	panic(fmt.Sprintf("sim: %T is not a rounding instruction", inst))
}

// predBinF is the destructive predicated form: zdn = op(zdn, zm) on active
// lanes.
func (m *Machine) predBinF(zdn asm.ZReg, pg asm.PReg, zm asm.ZReg, op func(a, b float32) float32) {
	for i := range m.Z[zdn] {
		if m.P[pg][i] {
			m.Z[zdn][i] = u32(op(f32(m.Z[zdn][i]), f32(m.Z[zm][i])))
		}
	}
}

func (m *Machine) mla(zda asm.ZReg, pg asm.PReg, zn, zm asm.ZReg, sub bool) {
	for i := range m.Z[zda] {
		if !m.P[pg][i] {
			continue
		}
		n := f32(m.Z[zn][i])
		if sub {
			n = -n
		}
		m.Z[zda][i] = u32(fma(n, f32(m.Z[zm][i]), f32(m.Z[zda][i])))
	}
}

// compare writes pd = pg && (zn <c> rhs). Inactive lanes are zeroed.
func (m *Machine) compare(c asm.FCmp, pd, pg asm.PReg, zn asm.ZReg, rhs func(i int) float32) error {
	res := make([]bool, m.lanes)
	for i := range res {
		if !m.P[pg][i] {
			continue
		}
		r, err := fcmp(c, f32(m.Z[zn][i]), rhs(i))
		if err != nil {
			return err
		}
		res[i] = r
	}
	copy(m.P[pd], res)
	return nil
}

// gather loads active lanes of zt from addr(i) and zeroes inactive ones.
func (m *Machine) gather(zt asm.ZReg, pg asm.PReg, addr func(i int) uint64) error {
	res := make([]uint32, m.lanes)
	for i := range res {
		if !m.P[pg][i] {
			continue
		}
		v, err := m.Mem.Read32(addr(i))
		if err != nil {
			return err
		}
		res[i] = v
	}
	copy(m.Z[zt], res)
	return nil
}
