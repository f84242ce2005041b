package eltwise

import (
	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

const mantissaBits = 23

// expFwd computes e^x as 2 * 2^(n-1) * p(r) with x = n*ln2 + r. The split
// keeps 2^(n-1) representable for n up to 128. Inputs below ln(FLT_MIN)
// produce exactly zero.
//
// Uses z_tmp, aux1 and aux2. aux0, aux3 and aux4 survive, which elu,
// logistic and gelu_erf rely on.
func (g *Injector) expFwd(src asm.ZReg) {
	p := g.host.PAll
	zt, a1, a2 := g.zTmp(), g.aux(1), g.aux(2)

	g.cmpMask(src, g.tableVal(table.ExpLnFltMin, zt), cmpLtOS)

	g.tableVal(table.ExpLnFltMax, zt)
	g.e.Append(asm.ZFMINNM{Zdn: zt, Pg: p, Zm: src})
	g.mov(src, zt)
	g.tableVal(table.ExpLnFltMin, zt)
	g.e.Append(asm.ZFMAXNM{Zdn: zt, Pg: p, Zm: src})
	g.mov(src, zt)

	g.mov(a1, src)

	// n = floor(x*log2(e) + 0.5)
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.ExpLog2ef, zt)})
	g.e.Append(asm.ZFADDi{Zdn: src, Pg: p, Imm: 0.5})
	g.e.Append(asm.ZFRINTM{Zd: a2, Pg: p, Zn: src})
	g.mov(src, a2)

	// r = x - n*ln2
	g.e.Append(asm.ZFMLS{Zda: a1, Pg: p, Zn: a2, Zm: g.tableVal(table.Ln2f, zt)})

	// 2^(n-1) through the exponent field
	g.e.Append(asm.ZFSUBi{Zdn: src, Pg: p, Imm: 1})
	g.e.Append(asm.ZFRINTI{Zd: a2, Pg: p, Zn: src})
	g.e.Append(asm.ZFCVTZS{Zd: a2, Pg: p, Zn: a2})
	g.e.Append(asm.ZADD{Zd: a2, Zn: a2, Zm: g.tableVal(table.ExponentBias, zt)})
	g.e.Append(asm.ZLSLi{Zd: a2, Zn: a2, Shift: mantissaBits})

	g.e.Append(asm.ZEOR{Zd: src, Zn: src, Zm: src})
	g.blend(a2, src)

	g.tableValAt(table.ExpPol, 4, src)
	for i := 3; i >= 0; i-- {
		g.fmad(src, a1, g.tableValAt(table.ExpPol, i, zt))
	}
	g.fmad(src, a1, g.tableVal(table.One, zt))

	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: a2})
	g.e.Append(asm.ZFMULi{Zdn: src, Pg: p, Imm: 2})
}

// eluFwd: x for x > 0, alpha*(e^x - 1) otherwise. alpha is in aux4.
func (g *Injector) eluFwd(src asm.ZReg) {
	a3 := g.aux(3)
	g.mov(a3, src)
	g.expFwd(src)
	g.e.Append(asm.ZFSUBi{Zdn: src, Pg: g.host.PAll, Imm: 1})
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.aux(4)})
	g.e.Append(asm.ZFCMz{Cond: asm.FCmpGT, Pd: g.host.PMask, Pg: g.host.PAll, Zn: a3})
	g.e.Append(asm.ZMOVm{Zd: src, Pg: g.host.PMask, Zn: a3})
}

func (g *Injector) eluBwd(src asm.ZReg, useDst bool) {
	zt := g.zTmp()
	if useDst {
		// alpha*e^x = d + alpha
		g.cmpMask(src, g.tableVal(table.Zero, zt), cmpGtOS)
		g.e.Append(asm.ZFADD{Zd: src, Zn: src, Zm: g.tableVal(table.Alpha, zt)})
	} else {
		g.expFwd(src)
		// e^x > 1 exactly when x > 0
		g.cmpMask(src, g.tableVal(table.One, zt), cmpGtOS)
		g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Alpha, zt)})
	}
	g.blend(src, g.tableVal(table.One, zt))
}

// logisticFwd evaluates e^-|x| / (1 + e^-|x|) and mirrors it for positive
// inputs, so exp never overflows.
func (g *Injector) logisticFwd(src asm.ZReg) {
	p := g.host.PAll
	zt, a3 := g.zTmp(), g.aux(3)

	g.mov(a3, src)
	g.e.Append(asm.ZAND{Zd: a3, Zn: a3, Zm: g.tableVal(table.SignMask, zt)})
	g.e.Append(asm.ZORR{Zd: src, Zn: src, Zm: g.tableVal(table.SignMask, zt)})

	g.expFwd(src)

	a1 := g.aux(1)
	g.mov(a1, src)
	g.e.Append(asm.ZFADD{Zd: a1, Zn: a1, Zm: g.tableVal(table.One, zt)})
	g.e.Append(asm.ZFDIV{Zdn: src, Pg: p, Zm: a1})

	a2 := g.tableVal(table.One, g.aux(2))
	g.e.Append(asm.ZFSUB{Zd: a2, Zn: a2, Zm: src})

	// negative inputs keep the direct value
	g.e.Append(asm.ZCMPi{Cond: asm.FCmpNE, Pd: g.host.PMask, Pg: p, Zn: a3, Imm: 0})
	g.blend(a2, src)
	g.mov(src, a2)
}

func (g *Injector) logisticBwd(src asm.ZReg, useDst bool) {
	if !useDst {
		g.logisticFwd(src)
	}
	a0 := g.tableVal(table.One, g.aux(0))
	g.e.Append(asm.ZFSUB{Zd: a0, Zn: a0, Zm: src})
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: a0})
}

// softReluFwd computes ln(1 + e^x) = n*ln2 + ln(2^-n + e^r), taking the log
// of the second term apart frexp-style. Inputs above ln(FLT_MAX) pass
// through unchanged.
func (g *Injector) softReluFwd(src asm.ZReg) {
	p := g.host.PAll
	zt, a0, a1, a2, a3 := g.zTmp(), g.aux(0), g.aux(1), g.aux(2), g.aux(3)

	g.mov(a2, src)

	g.tableVal(table.ExpLnFltMax, zt)
	g.e.Append(asm.ZFMINNM{Zdn: zt, Pg: p, Zm: src})
	g.mov(src, zt)
	g.tableVal(table.ExpLnFltMin, zt)
	g.e.Append(asm.ZFMAXNM{Zdn: zt, Pg: p, Zm: src})
	g.mov(src, zt)
	g.mov(a1, src)

	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.ExpLog2ef, zt)})
	g.e.Append(asm.ZFADDi{Zdn: src, Pg: p, Imm: 0.5})
	g.e.Append(asm.ZFRINTM{Zd: a0, Pg: p, Zn: src})
	g.mov(src, a0)

	g.e.Append(asm.ZFMUL{Zd: a0, Zn: a0, Zm: g.tableVal(table.Ln2f, zt)})
	g.e.Append(asm.ZFSUB{Zd: a1, Zn: a1, Zm: a0})

	// e^r
	g.tableValAt(table.ExpPol, 4, a3)
	for i := 3; i >= 0; i-- {
		g.fmad(a3, a1, g.tableValAt(table.ExpPol, i, zt))
	}
	g.fmad(a3, a1, g.tableVal(table.One, zt))

	// 2^-(n-1), with src back at n afterwards
	g.e.Append(asm.ZFSUBi{Zdn: src, Pg: p, Imm: 1})
	g.e.Append(asm.ZFNEG{Zd: a1, Pg: p, Zn: src})
	g.e.Append(asm.ZFRINTI{Zd: a1, Pg: p, Zn: a1})
	g.e.Append(asm.ZFCVTZS{Zd: a1, Pg: p, Zn: a1})
	g.e.Append(asm.ZFADDi{Zdn: src, Pg: p, Imm: 1})
	g.e.Append(asm.ZADD{Zd: a1, Zn: a1, Zm: g.tableVal(table.ExponentBias, zt)})
	g.e.Append(asm.ZLSLi{Zd: a1, Zn: a1, Shift: mantissaBits})

	// y = (2^-(n-1) + 2*e^r) / 2
	g.e.Append(asm.ZFMULi{Zdn: a3, Pg: p, Imm: 2})
	g.e.Append(asm.ZFADD{Zd: a3, Zn: a3, Zm: a1})
	g.e.Append(asm.ZFDIV{Zdn: a3, Pg: p, Zm: g.tableVal(table.Two, zt)})

	// y = 2^e * m with m in [0.5, 1)
	g.e.Append(asm.ZLSRi{Zd: src, Zn: a3, Shift: mantissaBits})
	g.e.Append(asm.ZSCVTF{Zd: src, Pg: p, Zn: src})
	g.e.Append(asm.ZFSUB{Zd: src, Zn: src, Zm: g.tableVal(table.SoftReluOneTwentySix, zt)})
	g.e.Append(asm.ZAND{Zd: a3, Zn: a3, Zm: g.tableVal(table.SoftReluMantissaSignMask, zt)})
	g.e.Append(asm.ZORR{Zd: a3, Zn: a3, Zm: g.tableVal(table.Half, zt)})
	g.e.Append(asm.ZFSUBi{Zdn: a3, Pg: p, Imm: 1})

	// ln(1 + (m - 1))
	g.tableValAt(table.SoftReluPol, 8, a1)
	for i := 7; i >= 0; i-- {
		g.fmad(a1, a3, g.tableValAt(table.SoftReluPol, i, zt))
	}

	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Ln2f, zt)})
	g.e.Append(asm.ZFADD{Zd: src, Zn: src, Zm: a1})
	g.e.Append(asm.ZFADD{Zd: src, Zn: src, Zm: a0})

	g.cmpMask(a2, g.tableVal(table.ExpLnFltMax, zt), cmpGtOS)
	g.blend(src, a2)
}

// swishFwd: x * logistic(alpha*x).
func (g *Injector) swishFwd(src asm.ZReg) {
	g.pushVec(src)
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Alpha, g.zTmp())})
	g.logisticFwd(src)
	a0 := g.aux(0)
	g.peekVec(a0)
	g.popVec()
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: a0})
}

// swishBwd: Q*(1 + R*(1 - Q)) with R = alpha*x and Q = logistic(R).
func (g *Injector) swishBwd(src asm.ZReg) {
	p := g.host.PAll
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Alpha, g.zTmp())})
	g.pushVec(src)
	g.logisticFwd(src)
	a0 := g.aux(0)
	g.peekVec(a0)
	g.popVec()
	g.e.Append(asm.ZFMLS{Zda: a0, Pg: p, Zn: a0, Zm: src})
	g.e.Append(asm.ZFMLA{Zda: src, Pg: p, Zn: src, Zm: a0})
}
