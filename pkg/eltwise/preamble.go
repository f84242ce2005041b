package eltwise

import (
	"fmt"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/stacking"
	"github.com/samber/lo"
)

// Stack frame of one ComputeVectorRange call with SaveState (view from SP
// while a body runs):
//
//	+---------------------------+
//	| table reg, aux GPR pairs  |
//	+---------------------------+
//	| slot n-1                  |  tail slots: borrowed window registers
//	| ...                       |
//	| slot 0                    |  SP
//	+---------------------------+
//
// Without SaveState only the tail slots are reserved, and only when the
// window forced a tail.

func toZ(i int, _ int) asm.ZReg { return asm.ZReg(i) }

// preamble chooses the scratch registers for this call, saves them when
// SaveState is set, and loads the per-variant coefficients.
func (g *Injector) preamble(set IndexSet, w []int) {
	n := g.AuxVecsCount()
	vecs := make([]asm.ZReg, 0, n)

	if g.target.MaskInZ0 && n > 0 {
		if set.Has(0) {
			panic(fmt.Sprintf("eltwise: z0 is reserved on %s and cannot be transformed", g.target))
		}
		vecs = append(vecs, 0)
	}
	for idx := len(vecs); idx < asm.NumVecs && len(vecs) < n; idx++ {
		if set.Has(idx) {
			continue
		}
		vecs = append(vecs, asm.ZReg(idx))
	}

	// Not enough room outside the window: borrow its first registers. They
	// are processed last, after preambleTail hands their roles on.
	g.tail = n - len(vecs)
	if 2*g.tail > len(w) {
		panic(fmt.Sprintf("eltwise: window %v too small to lend %d registers", w, g.tail))
	}
	vecs = append(vecs, lo.Map(w[:g.tail], toZ)...)
	g.vecs = vecs

	g.gprs = g.scratchGPRs()

	g.e.Append(asm.PTRUE{Pd: g.host.PAll})

	vlen := g.target.VLen
	switch {
	case g.cfg.SaveState:
		g.pushed = append([]asm.XReg{g.host.Table}, g.gprs...)
		stacking.PushPairs(g.e, g.pushed)
		g.areaSize = stacking.VecAreaSize(n, vlen)
		stacking.Reserve(g.e, g.areaSize, g.host.Addr)
		stacking.StoreVecs(g.e, g.host.PAll, g.vecs, vlen, 0, g.host.addressing())
		g.LoadTableAddr()
	case g.tail > 0:
		// the borrowed inputs are still needed even when the caller gave
		// up everything else
		g.pushed = nil
		g.areaSize = stacking.VecAreaSize(g.tail, vlen)
		stacking.Reserve(g.e, g.areaSize, g.host.Addr)
		stacking.StoreVecs(g.e, g.host.PAll, g.tailVecs(), vlen, 0, g.host.addressing())
	default:
		g.pushed = nil
		g.areaSize = 0
	}

	g.k.loadCoefs(g, g.cfg.Dir)
}

// scratchGPRs picks the aux GPRs from x30 down, skipping Host registers.
func (g *Injector) scratchGPRs() []asm.XReg {
	m := g.AuxGPRsCount()
	gprs := make([]asm.XReg, 0, m)
	for r := asm.X30; len(gprs) < m; r-- {
		if !g.host.reserved(r) {
			gprs = append(gprs, r)
		}
		if r == asm.X0 {
			break
		}
	}
	if len(gprs) != m {
		panic(fmt.Sprintf("eltwise: found %d of %d scratch general registers", len(gprs), m))
	}
	return gprs
}

// tailVecs returns the role registers that were borrowed from the window.
func (g *Injector) tailVecs() []asm.ZReg {
	return g.vecs[len(g.vecs)-g.tail:]
}

// tailBase is the SP offset of the first tail slot.
func (g *Injector) tailBase() int64 {
	if g.cfg.SaveState {
		return int64(len(g.vecs)-g.tail) * int64(g.target.VLen)
	}
	return 0
}

// preambleTail gives the borrowed registers their inputs back and moves
// their roles to the next window registers, which are already done and
// get parked in the same slots.
func (g *Injector) preambleTail(w []int) {
	vlen := g.target.VLen
	a := g.host.addressing()
	base := g.tailBase()

	stacking.LoadVecs(g.e, g.host.PAll, g.tailVecs(), vlen, base, a)
	copy(g.tailVecs(), lo.Map(w[g.tail:2*g.tail], toZ))
	stacking.StoreVecs(g.e, g.host.PAll, g.tailVecs(), vlen, base, a)

	g.k.loadCoefs(g, g.cfg.Dir)
}

// postamble undoes preamble. Registers whose roles moved in preambleTail
// are reloaded with their results.
func (g *Injector) postamble() {
	vlen := g.target.VLen
	a := g.host.addressing()
	switch {
	case g.cfg.SaveState:
		stacking.LoadVecs(g.e, g.host.PAll, g.vecs, vlen, 0, a)
		stacking.Free(g.e, g.areaSize, g.host.Addr)
		stacking.PopPairs(g.e, g.pushed)
	case g.tail > 0:
		stacking.LoadVecs(g.e, g.host.PAll, g.tailVecs(), vlen, 0, a)
		stacking.Free(g.e, g.areaSize, g.host.Addr)
	}
	g.vecs = nil
	g.tail = 0
}
