package asm

import "fmt"

// XReg is a 64-bit general-purpose register (x0-x30) or SP.
type XReg uint8

// ZReg is an SVE vector register (z0-z31).
type ZReg uint8

// PReg is an SVE predicate register (p0-p15).
type PReg uint8

const (
	X0 XReg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29 // FP
	X30 // LR
	SP
)

// NumVecs is the size of the SVE vector register file.
const NumVecs = 32

// NumPreds is the size of the SVE predicate register file.
const NumPreds = 16

func (r XReg) String() string {
	if r == SP {
		return "sp"
	}
	return fmt.Sprintf("x%d", uint8(r))
}

func (z ZReg) String() string { return fmt.Sprintf("z%d", uint8(z)) }

func (p PReg) String() string { return fmt.Sprintf("p%d", uint8(p)) }
