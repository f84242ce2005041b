package eltwise

import (
	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

// Closed-form algorithms. Coefficients preloaded by loadCoefs: relu alpha
// in z_tmp; linear and clip forward alpha in z_tmp, beta in aux0;
// bounded_relu alpha in z_tmp; clip backward beta in z_tmp, alpha in aux0.

func (g *Injector) reluFwd(src asm.ZReg) {
	p := g.host.PAll
	a0 := g.aux(0)
	g.mov(a0, src)
	g.e.Append(asm.ZFMINNMi{Zdn: src, Pg: p, Imm: 0})
	g.e.Append(asm.ZFMAXNMi{Zdn: a0, Pg: p, Imm: 0})
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.zTmp()})
	g.e.Append(asm.ZFADD{Zd: src, Zn: src, Zm: a0})
}

func (g *Injector) reluZeroNSFwd(src asm.ZReg) {
	g.e.Append(asm.ZFMAXNMi{Zdn: src, Pg: g.host.PAll, Imm: 0})
}

func (g *Injector) reluBwd(src asm.ZReg) {
	g.e.Append(asm.ZFCMz{Cond: asm.FCmpGT, Pd: g.host.PMask, Pg: g.host.PAll, Zn: src})
	g.mov(src, g.zTmp())
	g.e.Append(asm.ZFMOVm{Zd: src, Pg: g.host.PMask, Imm: 1})
}

func (g *Injector) squareFwd(src asm.ZReg) {
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: src})
}

func (g *Injector) squareBwd(src asm.ZReg) {
	g.e.Append(asm.ZFMULi{Zdn: src, Pg: g.host.PAll, Imm: 2})
}

func (g *Injector) absFwd(src asm.ZReg) {
	g.e.Append(asm.ZFABS{Zd: src, Pg: g.host.PAll, Zn: src})
}

func (g *Injector) absBwd(src asm.ZReg) {
	zt := g.zTmp()
	g.cmpMask(src, g.tableVal(table.Zero, zt), cmpGtOS)
	g.blend(src, g.tableVal(table.One, zt))
	g.cmpMask(src, g.tableVal(table.Zero, zt), cmpLtOS)
	g.blend(src, g.tableVal(table.MinusOne, zt))
}

func (g *Injector) sqrtFwd(src asm.ZReg) {
	g.e.Append(asm.ZFSQRT{Zd: src, Pg: g.host.PAll, Zn: src})
}

// sqrtBwd computes 0.5 / sqrt(x).
func (g *Injector) sqrtBwd(src asm.ZReg, useDst bool) {
	if !useDst {
		g.sqrtFwd(src)
	}
	a0 := g.tableVal(table.Half, g.aux(0))
	g.e.Append(asm.ZFDIV{Zdn: a0, Pg: g.host.PAll, Zm: src})
	g.mov(src, a0)
}

func (g *Injector) linearFwd(src asm.ZReg) {
	g.fmad(src, g.zTmp(), g.aux(0))
}

func (g *Injector) linearBwd(src asm.ZReg) {
	g.tableVal(table.Alpha, src)
}

func (g *Injector) boundedReluFwd(src asm.ZReg) {
	g.e.Append(asm.ZFMAXNMi{Zdn: src, Pg: g.host.PAll, Imm: 0})
	g.e.Append(asm.ZFMINNM{Zdn: src, Pg: g.host.PAll, Zm: g.zTmp()})
}

// boundedReluBwd yields 1 on (0, alpha] and 0 elsewhere.
func (g *Injector) boundedReluBwd(src asm.ZReg) {
	zt := g.zTmp()
	g.cmpMask(src, g.tableVal(table.Alpha, zt), cmpGtOS)
	g.blend(src, g.tableVal(table.Zero, zt))
	g.e.Append(asm.ZFDUP{Zd: zt, Imm: 0})
	g.e.Append(asm.ZFMAXNM{Zdn: src, Pg: g.host.PAll, Zm: zt})
	g.cmpMask(src, g.tableVal(table.Zero, zt), cmpGtOS)
	g.blend(src, g.tableVal(table.One, zt))
}

func (g *Injector) clipFwd(src asm.ZReg) {
	g.e.Append(asm.ZFMAXNM{Zdn: src, Pg: g.host.PAll, Zm: g.zTmp()})
	g.e.Append(asm.ZFMINNM{Zdn: src, Pg: g.host.PAll, Zm: g.aux(0)})
}

// clipBwd yields 1 on (alpha, beta] and 0 elsewhere.
func (g *Injector) clipBwd(src asm.ZReg) {
	a1 := g.aux(1)
	g.e.Append(asm.ZFDUP{Zd: a1, Imm: 1})
	g.e.Append(asm.ZFCM{Cond: asm.FCmpGT, Pd: g.host.PMask, Pg: g.host.PAll, Zn: src, Zm: g.zTmp()})
	g.e.Append(asm.ZCPYm{Zd: a1, Pg: g.host.PMask, Imm: 0})
	g.e.Append(asm.ZFCM{Cond: asm.FCmpLE, Pd: g.host.PTmp, Pg: g.host.PAll, Zn: src, Zm: g.aux(0)})
	g.e.Append(asm.ZCPYm{Zd: a1, Pg: g.host.PTmp, Imm: 0})
	g.mov(src, a1)
}

func (g *Injector) roundFwd(src asm.ZReg) {
	g.e.Append(asm.ZFRINTN{Zd: src, Pg: g.host.PAll, Zn: src})
}
