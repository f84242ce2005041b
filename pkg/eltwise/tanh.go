package eltwise

import (
	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

// tanhFwd evaluates tanh on |x| with a degree-6 polynomial picked per
// half-binade and restores the sign at the end. Below the linear bound the
// result is x itself; above the saturation bound it is +-1.
//
// Roles: aux1 holds the interval start, then coefficients, then the result.
// aux2 accumulates the polynomial, aux3 holds interval indices, aux4 the
// original input and later its sign, aux0 the bounds.
func (g *Injector) tanhFwd(src asm.ZReg) {
	p := g.host.PAll
	zt := g.zTmp()
	dst, pol, idx, sign := g.aux(1), g.aux(2), g.aux(3), g.aux(4)
	base := g.auxGPR(0)

	g.mov(sign, src)
	g.e.Append(asm.ZAND{Zd: src, Zn: src, Zm: g.tableVal(table.PositiveMask, zt)})

	// interval index: exponent and top mantissa bit relative to the bias
	g.mov(idx, src)
	g.e.Append(asm.ZSUB{Zd: idx, Zn: idx, Zm: g.tableVal(table.TanhIdxBias, zt)})
	g.e.Append(asm.ZAND{Zd: idx, Zn: idx, Zm: g.tableVal(table.TanhIdxMask, zt)})
	g.e.Append(asm.ZLSRi{Zd: idx, Zn: idx, Shift: mantissaBits - 1})
	g.e.Append(asm.ZANDi{Zdn: idx, Imm: table.TanhIntervals - 1})

	// evaluate at the offset into the interval
	g.mov(dst, src)
	g.e.Append(asm.ZAND{Zd: dst, Zn: dst, Zm: g.tableVal(table.TanhIdxMask, zt)})
	g.e.Append(asm.ZFSUB{Zd: src, Zn: src, Zm: dst})

	gather := func(z asm.ZReg, deg int) {
		g.tableAddr(base, table.TanhPolTable, deg*table.TanhIntervals)
		g.e.Append(asm.ZLD1Wg{Zt: z, Pg: p, Rn: base, Zm: idx})
	}
	gather(pol, table.TanhDegree)
	for deg := table.TanhDegree - 1; deg >= 0; deg-- {
		gather(dst, deg)
		g.fmad(pol, src, dst)
	}

	g.mov(src, sign)
	g.e.Append(asm.ZAND{Zd: sign, Zn: sign, Zm: g.tableVal(table.SignMask, zt)})
	g.e.Append(asm.ZAND{Zd: src, Zn: src, Zm: g.tableVal(table.PositiveMask, zt)})

	bound := g.aux(0)
	g.tableVal(table.One, dst)
	g.tableVal(table.TanhSaturationLbound, bound)
	g.cmpMask(bound, src, cmpGtOS)
	g.blend(dst, pol)
	g.tableVal(table.TanhLinearUbound, bound)
	g.cmpMask(bound, src, cmpGtOS)
	g.blend(dst, src)

	g.e.Append(asm.ZEOR{Zd: src, Zn: dst, Zm: sign})
}

// tanhBwd: 1 - tanh(x)^2.
func (g *Injector) tanhBwd(src asm.ZReg, useDst bool) {
	if !useDst {
		g.tanhFwd(src)
	}
	a0 := g.tableVal(table.One, g.aux(0))
	g.e.Append(asm.ZFMLS{Zda: a0, Pg: g.host.PAll, Zn: src, Zm: src})
	g.mov(src, a0)
}

// geluTanhFwd: 0.5*x*(1 + tanh(sqrt(2/pi)*x*(1 + c*x^2))).
func (g *Injector) geluTanhFwd(src asm.ZReg) {
	p := g.host.PAll
	zt, a0, a1 := g.zTmp(), g.aux(0), g.aux(1)

	g.mov(a0, src)
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: src})
	g.tableVal(table.GeluTanhFittingConst, a1)
	g.fmad(src, a1, g.tableVal(table.One, zt))
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: a0})
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.GeluTanhSqrtTwoOverPi, zt)})

	// tanh needs aux0
	g.pushVec(a0)
	g.tanhFwd(src)
	g.peekVec(a0)
	g.popVec()

	g.e.Append(asm.ZFADDi{Zdn: src, Pg: p, Imm: 1})
	g.e.Append(asm.ZFMULi{Zdn: src, Pg: p, Imm: 0.5})
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: a0})
}

// geluTanhBwd computes 0.5*(1 + T)*(1 + G*(1 - T)) where
// G = sqrt(2/pi)*x*(1 + 3c*x^2) and T = tanh(sqrt(2/pi)*x*(1 + c*x^2)).
func (g *Injector) geluTanhBwd(src asm.ZReg) {
	p := g.host.PAll
	zt, a0 := g.zTmp(), g.aux(0)

	g.mov(a0, src)
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: src})

	a2 := g.aux(2)
	g.tableVal(table.GeluTanhFittingConstTimesThree, a2)
	g.fmad(a2, src, g.tableVal(table.One, zt))

	a1 := g.aux(1)
	g.tableVal(table.GeluTanhFittingConst, a1)
	g.fmad(src, a1, g.tableVal(table.One, zt))

	g.e.Append(asm.ZFMUL{Zd: a0, Zn: a0, Zm: g.tableVal(table.GeluTanhSqrtTwoOverPi, zt)})
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: a0})
	g.e.Append(asm.ZFMUL{Zd: a2, Zn: a2, Zm: a0})

	g.pushVec(a2)
	g.tanhFwd(src)
	g.peekVec(a2)
	g.popVec()

	// G - G*T, then T + 1 + (T + 1)*(G - G*T)
	g.e.Append(asm.ZFMLS{Zda: a2, Pg: p, Zn: a2, Zm: src})
	g.e.Append(asm.ZFADD{Zd: src, Zn: src, Zm: g.tableVal(table.One, zt)})
	g.e.Append(asm.ZFMLA{Zda: src, Pg: p, Zn: src, Zm: a2})
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Half, zt)})
}
