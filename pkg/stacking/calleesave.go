package stacking

import (
	"slices"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/samber/lo"
)

// ARM64 AAPCS64 register classes:
// - X19-X28 callee-saved (integer)
// - X0-X18 and LR clobbered by a call
// - Z0-Z31 clobbered by a call, except the low 64 bits of Z8-Z15
// - P0-P15 clobbered by a call

// CalleeSaveRegs lists all ARM64 callee-saved integer registers
var CalleeSaveRegs = []asm.XReg{
	asm.X19, asm.X20, asm.X21, asm.X22, asm.X23,
	asm.X24, asm.X25, asm.X26, asm.X27, asm.X28,
}

// CallerSaveRegs lists the integer registers a call may clobber
var CallerSaveRegs = append(
	lo.Map(lo.Range(19), func(i int, _ int) asm.XReg { return asm.XReg(i) }),
	asm.X30,
)

// AllPreds lists p0-p15
var AllPreds = lo.Map(lo.Range(asm.NumPreds), func(i int, _ int) asm.PReg { return asm.PReg(i) })

// AllVecs lists z0-z31
var AllVecs = lo.Map(lo.Range(asm.NumVecs), func(i int, _ int) asm.ZReg { return asm.ZReg(i) })

// IsCalleeSaved returns true if the register is callee-saved
func IsCalleeSaved(reg asm.XReg) bool {
	return lo.Contains(CalleeSaveRegs, reg)
}

// CalleeSavedIn returns the callee-saved registers among regs, once each,
// in ascending order. A function that writes regs must save these.
func CalleeSavedIn(regs []asm.XReg) []asm.XReg {
	out := lo.Uniq(lo.Filter(regs, func(r asm.XReg, _ int) bool { return IsCalleeSaved(r) }))
	slices.Sort(out)
	return out
}

// PairBytes returns the stack space PushPairs uses for n registers: 16 bytes
// per pair, an odd register out still taking a full 16-byte slot.
func PairBytes(n int) int64 {
	return alignUp(int64(n)*pointerSize, stackAlignment)
}

// PushPairs pushes regs with pre-indexed STP, two at a time, and returns the
// number of bytes pushed. An odd register out gets a 16-byte slot of its own.
func PushPairs(e asm.Emitter, regs []asm.XReg) int64 {
	for _, pair := range lo.Chunk(regs, 2) {
		if len(pair) == 1 {
			e.Append(asm.STRpre{Rt: pair[0], Rn: asm.SP, Ofs: -16})
			continue
		}
		e.Append(asm.STPpre{Rt1: pair[0], Rt2: pair[1], Rn: asm.SP, Ofs: -16})
	}
	return PairBytes(len(regs))
}

// PopPairs restores registers pushed by PushPairs, in reverse order.
func PopPairs(e asm.Emitter, regs []asm.XReg) int64 {
	pairs := lo.Chunk(regs, 2)
	for i := len(pairs) - 1; i >= 0; i-- {
		pair := pairs[i]
		if len(pair) == 1 {
			e.Append(asm.LDRpost{Rt: pair[0], Rn: asm.SP, Ofs: 16})
			continue
		}
		e.Append(asm.LDPpost{Rt1: pair[0], Rt2: pair[1], Rn: asm.SP, Ofs: 16})
	}
	return PairBytes(len(regs))
}
