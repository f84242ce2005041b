package eltwise

import (
	"math/bits"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

// logFwd splits x = 2^E * m, scales m by a tabulated reciprocal r_i of its
// top five mantissa bits so that z = m*r_i - 1 is small, and returns
// p(z) + (E*ln2 - ln(r_i)). The bias of E is folded into the table. Zero
// maps to -inf and negative inputs to NaN.
//
// Roles: aux1 holds the bucket index, aux2 r_i and later the log term,
// aux3 the exponent.
func (g *Injector) logFwd(src asm.ZReg) {
	p := g.host.PAll
	zt, a1, a2, a3 := g.zTmp(), g.aux(1), g.aux(2), g.aux(3)
	base := g.auxGPR(0)

	g.pushVec(src)

	// bucket i = top five mantissa bits, kept as 2i for the pair layout
	g.e.Append(asm.ZLSRi{Zd: a1, Zn: src, Shift: mantissaBits - 5})
	g.e.Append(asm.ZAND{Zd: a1, Zn: a1, Zm: g.tableVal(table.LogFiveBitOffset, zt)})
	g.e.Append(asm.ZLSLi{Zd: a1, Zn: a1, Shift: 1})

	// upper buckets use m in [0.5, 1) and bump the exponent
	g.e.Append(asm.ZLSRi{Zd: a2, Zn: a1, Shift: 5})
	g.e.Append(asm.ZLSRi{Zd: a3, Zn: src, Shift: mantissaBits})
	g.e.Append(asm.ZADD{Zd: a3, Zn: a3, Zm: a2})
	g.e.Append(asm.ZSCVTF{Zd: a3, Pg: p, Zn: a3})

	g.e.Append(asm.ZEOR{Zd: a2, Zn: a2, Zm: g.tableVal(table.ExponentBias, zt)})
	g.e.Append(asm.ZLSLi{Zd: a2, Zn: a2, Shift: mantissaBits})
	g.e.Append(asm.ZAND{Zd: src, Zn: src, Zm: g.tableVal(table.LogMantissaMask, zt)})
	g.e.Append(asm.ZORR{Zd: src, Zn: src, Zm: a2})

	// each pair entry is one broadcast vector; scale 2i to a word index
	lanes := g.target.Lanes()
	g.e.Append(asm.ZLSLi{Zd: a1, Zn: a1, Shift: bits.TrailingZeros(uint(lanes))})

	g.tableAddr(base, table.LogPredefinedVals, 0)
	g.e.Append(asm.ZLD1Wg{Zt: a2, Pg: p, Rn: base, Zm: a1})
	g.e.Append(asm.ZFMUL{Zd: a2, Zn: a2, Zm: src})
	g.e.Append(asm.ZFSUBi{Zdn: a2, Pg: p, Imm: 1})

	// ln(1 + z) ~ z*(1 + z*p(z))
	g.tableValAt(table.LogPol, 3, src)
	for i := 2; i >= 0; i-- {
		g.fmad(src, a2, g.tableValAt(table.LogPol, i, zt))
	}
	g.fmad(src, a2, g.tableVal(table.One, zt))
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: a2})

	g.tableAddr(base, table.LogPredefinedVals, 1)
	g.e.Append(asm.ZLD1Wg{Zt: a2, Pg: p, Rn: base, Zm: a1})
	g.e.Append(asm.ZFMLA{Zda: a2, Pg: p, Zn: a3, Zm: g.tableVal(table.Ln2f, zt)})

	// two-sum of the polynomial and the log term
	g.mov(a1, src)
	g.e.Append(asm.ZFADD{Zd: a1, Zn: a1, Zm: a2})
	g.mov(a3, a1)
	g.e.Append(asm.ZFSUB{Zd: a3, Zn: a3, Zm: a2})
	g.e.Append(asm.ZFSUB{Zd: a3, Zn: a3, Zm: src})
	g.mov(src, a1)
	g.e.Append(asm.ZFADD{Zd: src, Zn: src, Zm: a3})

	g.peekVec(a1)
	g.popVec()

	// special values only when some lane is <= 0
	end := g.e.NewLabel("log_end")
	g.cmpMask(a1, g.tableVal(table.Zero, zt), cmpLeOS)
	g.e.Append(asm.PORRS{Pd: g.host.PTmp, Pg: p, Pn: g.host.PMask, Pm: g.host.PMask})
	g.e.Append(asm.Bcond{Cond: asm.CondEQ, Target: end})

	g.cmpMask(a1, g.tableVal(table.Zero, zt), cmpEqOQ)
	g.blend(src, g.tableVal(table.LogMinusInf, zt))
	g.cmpMask(a1, g.tableVal(table.Zero, zt), cmpLtOS)
	g.blend(src, g.tableVal(table.LogQNaN, zt))

	g.e.AppendLabel(end)
}

// logBwd: 1/x.
func (g *Injector) logBwd(src asm.ZReg) {
	zt := g.zTmp()
	g.e.Append(asm.ZFDUP{Zd: zt, Imm: 1})
	g.e.Append(asm.ZFDIV{Zdn: zt, Pg: g.host.PAll, Zm: src})
	g.mov(src, zt)
}
