package stacking

import (
	"fmt"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
)

// Spec selects what a PreserveGuard saves.
type Spec struct {
	GPRs  []asm.XReg
	Preds []asm.PReg
	Vecs  []asm.ZReg
	// Scratch is extra space left at [SP] for the guarded code, rounded up
	// to 16 bytes.
	Scratch int64
	// PAll is set to all-true before vectors are moved. It is saved like any
	// other predicate when listed in Preds.
	PAll asm.PReg
	VLen int
	Addr Addressing
}

// PreserveGuard is a scope guard around code that clobbers registers, such
// as a call into a host function. Preserve emits the prologue; Release emits
// the matching epilogue. Guards nest strictly.
//
// Frame (view from SP while the guard is active):
//
//	+---------------------------+
//	| GPR pairs                 |
//	+---------------------------+
//	| predicate slots           |  SP + Scratch + vecSize
//	| vector slots              |  SP + Scratch
//	| scratch                   |  SP
//	+---------------------------+
type PreserveGuard struct {
	e        asm.Emitter
	spec     Spec
	gprSize  int64
	vecSize  int64
	areaSize int64
	released bool
}

// Preserve saves the registers named by spec and returns the guard.
func Preserve(e asm.Emitter, spec Spec) *PreserveGuard {
	if spec.VLen <= 0 {
		panic("stacking: guard needs a vector length")
	}
	g := &PreserveGuard{e: e, spec: spec}
	g.vecSize = int64(len(spec.Vecs)) * int64(spec.VLen)
	predSize := int64(len(spec.Preds)) * PredStride(spec.VLen)
	g.areaSize = alignUp(alignUp(spec.Scratch, stackAlignment)+g.vecSize+predSize, stackAlignment)

	g.gprSize = PushPairs(e, spec.GPRs)
	Reserve(e, g.areaSize, spec.Addr.Scratch)
	predBase := g.scratchSize() + g.vecSize
	StorePreds(e, spec.Preds, spec.VLen, predBase, spec.Addr)
	if len(spec.Vecs) > 0 {
		e.Append(asm.PTRUE{Pd: spec.PAll})
		StoreVecs(e, spec.PAll, spec.Vecs, spec.VLen, g.scratchSize(), spec.Addr)
	}
	return g
}

func (g *PreserveGuard) scratchSize() int64 {
	return alignUp(g.spec.Scratch, stackAlignment)
}

// StackSpaceOccupied returns how far the guard moved SP.
func (g *PreserveGuard) StackSpaceOccupied() int64 {
	return g.gprSize + g.areaSize
}

// VecSlot returns the SP offset where v was saved.
func (g *PreserveGuard) VecSlot(v asm.ZReg) int64 {
	for i, z := range g.spec.Vecs {
		if z == v {
			return g.scratchSize() + int64(i)*int64(g.spec.VLen)
		}
	}
	panic(fmt.Sprintf("stacking: %s not preserved by guard", v))
}

// Release restores everything Preserve saved, in reverse order. Releasing
// twice is a programming error.
func (g *PreserveGuard) Release() {
	if g.released {
		panic("stacking: guard released twice")
	}
	g.released = true
	e, spec := g.e, g.spec
	if len(spec.Vecs) > 0 {
		e.Append(asm.PTRUE{Pd: spec.PAll})
		LoadVecs(e, spec.PAll, spec.Vecs, spec.VLen, g.scratchSize(), spec.Addr)
	}
	LoadPreds(e, spec.Preds, spec.VLen, g.scratchSize()+g.vecSize, spec.Addr)
	Free(e, g.areaSize, spec.Addr.Scratch)
	PopPairs(e, spec.GPRs)
}
