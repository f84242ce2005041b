package eltwise

import (
	"fmt"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/stacking"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

// role returns the register holding role i for the current call. Emitters
// never name physical registers; they go through zTmp and aux.
func (g *Injector) role(i int) asm.ZReg {
	if i >= len(g.vecs) {
		panic(fmt.Sprintf("eltwise: %s %s uses scratch role %d, only %d allocated",
			g.cfg.Alg, g.cfg.Dir, i, len(g.vecs)))
	}
	g.rolePeak = max(g.rolePeak, i)
	return g.vecs[i]
}

func (g *Injector) zTmp() asm.ZReg { return g.role(0) }

func (g *Injector) aux(i int) asm.ZReg { return g.role(i + 1) }

func (g *Injector) auxGPR(i int) asm.XReg {
	if i >= len(g.gprs) {
		panic(fmt.Sprintf("eltwise: %s %s uses scratch gpr %d, only %d allocated",
			g.cfg.Alg, g.cfg.Dir, i, len(g.gprs)))
	}
	g.gprPeak = max(g.gprPeak, i)
	return g.gprs[i]
}

// tableVal loads the broadcast entry key into dst and returns dst.
func (g *Injector) tableVal(key table.Key, dst asm.ZReg) asm.ZReg {
	return g.tableValAt(key, 0, dst)
}

// tableValAt loads the idx-th entry under key.
func (g *Injector) tableValAt(key table.Key, idx int, dst asm.ZReg) asm.ZReg {
	asm.AddImm(g.e, g.host.Addr, g.host.Table, int64(g.tbl.Off(key, idx)), g.host.Tmp[0])
	g.e.Append(asm.ZLD1W{Zt: dst, Pg: g.host.PAll, Rn: g.host.Addr})
	return dst
}

// tableAddr computes the address of an entry into r, for gathers.
func (g *Injector) tableAddr(r asm.XReg, key table.Key, idx int) {
	asm.AddImm(g.e, r, g.host.Table, int64(g.tbl.Off(key, idx)), g.host.Tmp[0])
}

// cmpMode is a compare predicate in the classic 32-entry encoding used by
// packed float compares. Only the ordered/unordered variants of the six
// relations are supported; each maps to one SVE compare, so NaN lanes come
// out false for every relation except not-equal.
type cmpMode int

const (
	cmpEqOQ cmpMode = iota
	cmpLtOS
	cmpLeOS
	cmpUnordQ
	cmpNeqUQ
	cmpNltUS
	cmpNleUS
	cmpOrdQ
	cmpEqUQ
	cmpNgeUS
	cmpNgtUS
	cmpFalseOQ
	cmpNeqOQ
	cmpGeOS
	cmpGtOS
	cmpTrueUQ
	cmpEqOS
	cmpLtOQ
	cmpLeOQ
	cmpUnordS
	cmpNeqUS
	cmpNltUQ
	cmpNleUQ
	cmpOrdS
	cmpEqUS
	cmpNgeUQ
	cmpNgtUQ
	cmpFalseOS
	cmpNeqOS
	cmpGeOQ
	cmpGtOQ
	cmpTrueUS
)

func (m cmpMode) fcmp() asm.FCmp {
	switch m {
	case cmpEqOQ, cmpEqUQ, cmpEqOS, cmpEqUS:
		return asm.FCmpEQ
	case cmpLtOS, cmpLtOQ, cmpNgeUS, cmpNgeUQ:
		return asm.FCmpLT
	case cmpLeOS, cmpLeOQ, cmpNgtUS, cmpNgtUQ:
		return asm.FCmpLE
	case cmpNeqUQ, cmpNeqOQ, cmpNeqUS, cmpNeqOS:
		return asm.FCmpNE
	case cmpNltUS, cmpNltUQ, cmpGeOS, cmpGeOQ:
		return asm.FCmpGE
	case cmpNleUS, cmpNleUQ, cmpGtOS, cmpGtOQ:
		return asm.FCmpGT
	}
	panic(fmt.Sprintf("eltwise: unsupported compare mode %d", int(m)))
}

// cmpMask sets PMask where a <mode> b.
func (g *Injector) cmpMask(a, b asm.ZReg, mode cmpMode) {
	g.e.Append(asm.ZFCM{Cond: mode.fcmp(), Pd: g.host.PMask, Pg: g.host.PAll, Zn: a, Zm: b})
}

// blend copies src into dst where PMask is set.
func (g *Injector) blend(dst, src asm.ZReg) {
	g.e.Append(asm.ZSEL{Zd: dst, Pg: g.host.PMask, Zn: src, Zm: dst})
}

func (g *Injector) mov(dst, src asm.ZReg) {
	g.e.Append(asm.ZMOV{Zd: dst, Zn: src})
}

// fmad emits dst = dst*m + a.
func (g *Injector) fmad(dst, m, a asm.ZReg) {
	g.e.Append(asm.ZFMAD{Zdn: dst, Pg: g.host.PAll, Zm: m, Za: a})
}

// pushVec spills z into a fresh vector slot below SP.
func (g *Injector) pushVec(z asm.ZReg) {
	stacking.Reserve(g.e, int64(g.target.VLen), g.host.Tmp[0])
	g.e.Append(asm.ZSTR{Zt: z, Rn: asm.SP})
}

// peekVec reloads the slot pushVec filled last.
func (g *Injector) peekVec(z asm.ZReg) {
	g.e.Append(asm.ZLDR{Zt: z, Rn: asm.SP})
}

func (g *Injector) popVec() {
	stacking.Free(g.e, int64(g.target.VLen), g.host.Tmp[0])
}
