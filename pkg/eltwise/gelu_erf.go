package eltwise

import (
	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

// erf uses the Abramowitz-Stegun form
//
//	erf(s) = 1 - t*p(t)*e^(-s^2),  t = 1 / (1 + a*|s|)
//
// with the sign of s restored afterwards.

// erfTail turns -e^(-s^2) in src into erf(s), given t in aux4 and the sign
// of s in sign.
func (g *Injector) erfTail(src, sign asm.ZReg) {
	zt, a1, a4 := g.zTmp(), g.aux(1), g.aux(4)

	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: a4})
	g.tableValAt(table.GeluErfPol, 4, a1)
	for i := 3; i >= 0; i-- {
		g.fmad(a1, a4, g.tableValAt(table.GeluErfPol, i, zt))
	}
	// 1 - t*p(t)*e^(-s^2)
	g.fmad(src, a1, g.tableVal(table.One, zt))
	g.e.Append(asm.ZEOR{Zd: src, Zn: src, Zm: sign})
}

// geluErfFwd: 0.5*x*(1 + erf(x/sqrt(2))).
func (g *Injector) geluErfFwd(src asm.ZReg) {
	p := g.host.PAll
	zt := g.zTmp()

	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.GeluErfOneOverSqrtTwo, zt)})
	a3 := g.aux(3)
	g.mov(a3, src)

	// -e^(-s^2)
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: src})
	g.e.Append(asm.ZEOR{Zd: src, Zn: src, Zm: g.tableVal(table.SignMask, zt)})
	g.expFwd(src)
	g.e.Append(asm.ZEOR{Zd: src, Zn: src, Zm: g.tableVal(table.SignMask, zt)})

	a0 := g.aux(0)
	g.mov(a0, a3)
	g.e.Append(asm.ZAND{Zd: a0, Zn: a0, Zm: g.tableVal(table.SignMask, zt)})

	a1 := g.aux(1)
	g.mov(a1, a3)
	g.absFwd(a1)

	a2 := g.aux(2)
	g.tableVal(table.GeluErfApproxConst, a2)
	g.fmad(a2, a1, g.tableVal(table.One, zt))
	a4 := g.tableVal(table.One, g.aux(4))
	g.e.Append(asm.ZFDIV{Zdn: a4, Pg: p, Zm: a2})

	g.erfTail(src, a0)

	// s/sqrt(2) = 0.5*x, so 0.5*x*(1 + erf) = 0.5*x + 0.5*x*erf
	g.e.Append(asm.ZFMUL{Zd: a3, Zn: a3, Zm: g.tableVal(table.GeluErfOneOverSqrtTwo, zt)})
	g.fmad(src, a3, a3)
}

// geluErfBwd: 0.5*(1 + erf(s)) + s*e^(-s^2)/sqrt(pi) with s = x/sqrt(2).
func (g *Injector) geluErfBwd(src asm.ZReg) {
	p := g.host.PAll
	zt := g.zTmp()

	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.GeluErfOneOverSqrtTwo, zt)})
	g.pushVec(src)

	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: src})
	g.e.Append(asm.ZEOR{Zd: src, Zn: src, Zm: g.tableVal(table.SignMask, zt)})
	g.expFwd(src)

	// s*e^(-s^2)/sqrt(pi)
	a2 := g.aux(2)
	g.peekVec(a2)
	g.e.Append(asm.ZFMUL{Zd: a2, Zn: a2, Zm: g.tableVal(table.GeluErfOneOverSqrtPi, zt)})
	g.e.Append(asm.ZFMUL{Zd: a2, Zn: a2, Zm: src})

	g.e.Append(asm.ZEOR{Zd: src, Zn: src, Zm: g.tableVal(table.SignMask, zt)})

	a0 := g.aux(0)
	g.peekVec(a0)
	g.e.Append(asm.ZAND{Zd: a0, Zn: a0, Zm: g.tableVal(table.SignMask, zt)})

	a1 := g.aux(1)
	g.peekVec(a1)
	g.popVec()
	g.absFwd(a1)

	a3, a4 := g.aux(3), g.aux(4)
	g.tableVal(table.GeluErfApproxConst, a3)
	g.tableVal(table.One, a4)
	g.fmad(a3, a1, a4)
	g.e.Append(asm.ZFDIV{Zdn: a4, Pg: p, Zm: a3})

	g.erfTail(src, a0)

	g.e.Append(asm.ZFADD{Zd: a2, Zn: a2, Zm: g.tableVal(table.Half, zt)})
	g.e.Append(asm.ZFMLA{Zda: a2, Pg: p, Zn: src, Zm: g.tableVal(table.Half, zt)})
	g.mov(src, a2)
}
