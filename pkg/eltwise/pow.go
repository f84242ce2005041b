package eltwise

import (
	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/stacking"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

// PowSymbol is the host function the general pow path calls once per lane,
// with the AAPCS64 float signature powf(s0, s1) -> s0.
const PowSymbol asm.Label = "powf"

// powFwd: alpha * x^beta.
func (g *Injector) powFwd(src asm.ZReg, beta float32) {
	switch beta {
	case -1:
		a0 := g.tableVal(table.Alpha, g.aux(0))
		zt := g.zTmp()
		g.mov(zt, src)
		g.mov(src, a0)
		g.e.Append(asm.ZFDIV{Zdn: src, Pg: g.host.PAll, Zm: zt})
		return
	case 0:
		g.tableVal(table.Alpha, src)
		return
	case 0.5:
		g.sqrtFwd(src)
	case 1:
	case 2:
		g.squareFwd(src)
	default:
		g.powCall(src)
	}
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Alpha, g.zTmp())})
}

// powCall replaces every lane of src with powf(lane, beta). The call may
// clobber anything the AAPCS64 lets it, so every caller-saved GPR, every
// predicate and every vector is preserved around it. The lanes are read
// from and written back to src's own save slot, so Release leaves the
// results in src. The broadcast beta sits in the scratch vector at SP.
func (g *Injector) powCall(src asm.ZReg) {
	p := g.host.PAll
	vlen := g.target.VLen
	guard := stacking.Preserve(g.e, stacking.Spec{
		GPRs:    stacking.CallerSaveRegs,
		Preds:   stacking.AllPreds,
		Vecs:    stacking.AllVecs,
		Scratch: int64(vlen),
		PAll:    p,
		VLen:    vlen,
		Addr:    g.host.addressing(),
	})
	g.callFrame = max(g.callFrame, guard.StackSpaceOccupied())

	g.tableVal(table.Beta, src)
	g.e.Append(asm.ZST1W{Zt: src, Pg: p, Rn: asm.SP})

	slot := guard.VecSlot(src)
	for i := 0; i < g.target.Lanes(); i++ {
		lane := slot + int64(i)*4
		g.e.Append(asm.FLDRs{Ft: 0, Rn: asm.SP, Ofs: lane})
		g.e.Append(asm.FLDRs{Ft: 1, Rn: asm.SP, Ofs: 0})
		g.e.Append(asm.BL{Target: PowSymbol, IsSymbol: true})
		g.e.Append(asm.FSTRs{Ft: 0, Rn: asm.SP, Ofs: lane})
	}
	guard.Release()
}

// powBwd: alpha * beta * x^(beta-1), computed as beta*pow(x)/x. For
// beta >= 1 the derivative at zero is forced to 0 instead of 0/0.
func (g *Injector) powBwd(src asm.ZReg, beta float32) {
	switch beta {
	case 0:
		g.tableVal(table.Zero, src)
		return
	case 0.5:
		g.sqrtBwd(src, false)
		g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Alpha, g.zTmp())})
		return
	case 1:
		g.tableVal(table.Alpha, src)
		return
	}

	g.pushVec(src)
	g.powFwd(src, beta)
	a1 := g.aux(1)
	g.peekVec(a1)
	g.popVec()

	zt := g.zTmp()
	if beta >= 1 {
		g.cmpMask(a1, g.tableVal(table.Zero, zt), cmpEqOQ)
	}
	g.e.Append(asm.ZFDIV{Zdn: src, Pg: g.host.PAll, Zm: a1})
	g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Beta, zt)})
	if beta >= 1 {
		g.blend(src, g.tableVal(table.Zero, zt))
	}
}
