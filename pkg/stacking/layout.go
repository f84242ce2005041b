// Package stacking lays out the stack areas generated code uses to preserve
// caller state: STP-paired GPR pushes, vector spill areas addressed through a
// small pool of temporary address registers, and a scope guard that saves
// everything a call may clobber.
package stacking

import (
	"fmt"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/samber/lo"
)

const (
	stackAlignment = 16 // ARM64 requires 16-byte stack alignment
	pointerSize    = 8  // 64-bit pointers
)

// Vector spill area (view from the current SP):
//
//	+---------------------------+  <- SP before the area was reserved
//	| slot n-1                  |
//	| ...                       |
//	| slot 0                    |  SP + base
//	+---------------------------+
//	| (optional scratch)        |
//	+---------------------------+  <- SP (16-byte aligned)
//
// Slot i lives at SP + base + i*vlen. Addresses are computed into the
// temporary registers first, one batch at a time, then the batch is stored
// or loaded.

// Addressing describes the registers spill helpers may clobber to form
// addresses.
type Addressing struct {
	// Tmps receive slot addresses; a batch never exceeds len(Tmps).
	Tmps []asm.XReg
	// Scratch materializes offsets that do not fit an add immediate. It must
	// not appear in Tmps.
	Scratch asm.XReg
}

func (a Addressing) check() {
	if len(a.Tmps) == 0 {
		panic("stacking: no temporary address registers")
	}
	if lo.Contains(a.Tmps, a.Scratch) {
		panic(fmt.Sprintf("stacking: scratch %s is also a temporary", a.Scratch))
	}
}

// batched computes sp+base+i*stride for i in [0, n) into the temporaries, a
// batch at a time, and calls op for each slot once its batch has addresses.
func batched(e asm.Emitter, a Addressing, n int, base, stride int64, op func(slot int, addr asm.XReg)) {
	a.check()
	for _, batch := range lo.Chunk(lo.Range(n), len(a.Tmps)) {
		for j, slot := range batch {
			asm.AddImm(e, a.Tmps[j], asm.SP, base+int64(slot)*stride, a.Scratch)
		}
		for j, slot := range batch {
			op(slot, a.Tmps[j])
		}
	}
}

// StoreVecs stores vecs[i] to slot i of the area at SP+base.
func StoreVecs(e asm.Emitter, pg asm.PReg, vecs []asm.ZReg, vlen int, base int64, a Addressing) {
	batched(e, a, len(vecs), base, int64(vlen), func(slot int, addr asm.XReg) {
		e.Append(asm.ZST1W{Zt: vecs[slot], Pg: pg, Rn: addr})
	})
}

// LoadVecs loads vecs[i] from slot i of the area at SP+base.
func LoadVecs(e asm.Emitter, pg asm.PReg, vecs []asm.ZReg, vlen int, base int64, a Addressing) {
	batched(e, a, len(vecs), base, int64(vlen), func(slot int, addr asm.XReg) {
		e.Append(asm.ZLD1W{Zt: vecs[slot], Pg: pg, Rn: addr})
	})
}

// StorePreds spills predicate registers, one predStride slot each.
func StorePreds(e asm.Emitter, preds []asm.PReg, vlen int, base int64, a Addressing) {
	batched(e, a, len(preds), base, PredStride(vlen), func(slot int, addr asm.XReg) {
		e.Append(asm.PSTR{Pt: preds[slot], Rn: addr})
	})
}

// LoadPreds fills predicate registers spilled by StorePreds.
func LoadPreds(e asm.Emitter, preds []asm.PReg, vlen int, base int64, a Addressing) {
	batched(e, a, len(preds), base, PredStride(vlen), func(slot int, addr asm.XReg) {
		e.Append(asm.PLDR{Pt: preds[slot], Rn: addr})
	})
}

// PredStride is the size of one predicate spill slot: one bit per vector byte.
func PredStride(vlen int) int64 {
	return int64(vlen / 8)
}

// VecAreaSize returns the 16-byte aligned size of n vector slots.
func VecAreaSize(n, vlen int) int64 {
	return alignUp(int64(n)*int64(vlen), stackAlignment)
}

// Reserve moves SP down by size bytes.
func Reserve(e asm.Emitter, size int64, scratch asm.XReg) {
	if size == 0 {
		return
	}
	asm.SubImm(e, asm.SP, asm.SP, size, scratch)
}

// Free moves SP up by size bytes.
func Free(e asm.Emitter, size int64, scratch asm.XReg) {
	if size == 0 {
		return
	}
	asm.AddImm(e, asm.SP, asm.SP, size, scratch)
}

// alignUp rounds n up to the nearest multiple of align
func alignUp(n, align int64) int64 {
	if align == 0 {
		return n
	}
	return ((n + align - 1) / align) * align
}
