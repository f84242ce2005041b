package eltwise

import (
	"fmt"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

// kernel is one algorithm variant. Each variant carries only the parameters
// that change its instruction sequence; alpha, beta and scale values live in
// the constant table.
//
// auxVecs and auxGPRs return one more than the highest role the emitters
// touch for the given direction. The injector checks every role access
// against them.
type kernel interface {
	auxVecs(dir Direction) int
	auxGPRs(dir Direction) int
	// loadCoefs preloads per-variant coefficients into role registers after
	// roles are assigned.
	loadCoefs(g *Injector, dir Direction)
	forward(g *Injector, src asm.ZReg)
	backward(g *Injector, src asm.ZReg)
}

func newKernel(cfg Config) kernel {
	if cfg.UseDst && !cfg.Alg.HasUseDst() {
		panic(fmt.Sprintf("eltwise: %s has no use_dst variant", cfg.Alg))
	}
	if cfg.Dir == Backward && !cfg.Alg.HasBackward() {
		panic(fmt.Sprintf("eltwise: %s has no backward variant", cfg.Alg))
	}
	switch cfg.Alg {
	case Relu:
		return reluKernel{alphaZero: cfg.Alpha == 0}
	case Elu:
		return eluKernel{useDst: cfg.UseDst}
	case Tanh:
		return tanhKernel{useDst: cfg.UseDst}
	case Square:
		return squareKernel{}
	case Abs:
		return absKernel{}
	case Sqrt:
		return sqrtKernel{useDst: cfg.UseDst}
	case Linear:
		return linearKernel{}
	case BoundedRelu:
		return boundedReluKernel{}
	case SoftRelu:
		return softReluKernel{}
	case Logistic:
		return logisticKernel{useDst: cfg.UseDst}
	case Exp:
		return expKernel{useDst: cfg.UseDst}
	case GeluTanh:
		return geluTanhKernel{}
	case Swish:
		return swishKernel{}
	case Log:
		return logKernel{}
	case Clip:
		return clipKernel{}
	case Pow:
		return powKernel{beta: cfg.Beta}
	case GeluErf:
		return geluErfKernel{}
	case Round:
		return roundKernel{}
	}
	panic(fmt.Sprintf("eltwise: unsupported algorithm %s", cfg.Alg))
}

// noCoefs is embedded by variants that preload nothing.
type noCoefs struct{}

func (noCoefs) loadCoefs(*Injector, Direction) {}

// noGPRs is embedded by variants that need no general-purpose registers.
type noGPRs struct{}

func (noGPRs) auxGPRs(Direction) int { return 0 }

type reluKernel struct {
	noGPRs
	alphaZero bool
}

func (k reluKernel) auxVecs(dir Direction) int {
	if dir == Backward {
		return 1
	}
	if k.alphaZero {
		return 0
	}
	return 2
}

func (k reluKernel) loadCoefs(g *Injector, dir Direction) {
	if dir == Backward || !k.alphaZero {
		g.tableVal(table.Alpha, g.zTmp())
	}
}

func (k reluKernel) forward(g *Injector, src asm.ZReg) {
	if k.alphaZero {
		g.reluZeroNSFwd(src)
		return
	}
	g.reluFwd(src)
}

func (reluKernel) backward(g *Injector, src asm.ZReg) { g.reluBwd(src) }

type eluKernel struct {
	noGPRs
	useDst bool
}

func (k eluKernel) auxVecs(dir Direction) int {
	if dir == Forward {
		return 6
	}
	if k.useDst {
		return 1
	}
	return 4
}

func (eluKernel) loadCoefs(g *Injector, dir Direction) {
	if dir == Forward {
		g.tableVal(table.Alpha, g.aux(4))
	}
}

func (eluKernel) forward(g *Injector, src asm.ZReg)    { g.eluFwd(src) }
func (k eluKernel) backward(g *Injector, src asm.ZReg) { g.eluBwd(src, k.useDst) }

type tanhKernel struct {
	noCoefs
	useDst bool
}

func (k tanhKernel) auxVecs(dir Direction) int {
	if dir == Backward && k.useDst {
		return 2
	}
	return 6
}

func (k tanhKernel) auxGPRs(dir Direction) int {
	if dir == Backward && k.useDst {
		return 0
	}
	return 1
}

func (tanhKernel) forward(g *Injector, src asm.ZReg)    { g.tanhFwd(src) }
func (k tanhKernel) backward(g *Injector, src asm.ZReg) { g.tanhBwd(src, k.useDst) }

type squareKernel struct {
	noCoefs
	noGPRs
}

func (squareKernel) auxVecs(Direction) int               { return 0 }
func (squareKernel) forward(g *Injector, src asm.ZReg)  { g.squareFwd(src) }
func (squareKernel) backward(g *Injector, src asm.ZReg) { g.squareBwd(src) }

type absKernel struct {
	noCoefs
	noGPRs
}

func (absKernel) auxVecs(dir Direction) int {
	if dir == Backward {
		return 1
	}
	return 0
}

func (absKernel) forward(g *Injector, src asm.ZReg)  { g.absFwd(src) }
func (absKernel) backward(g *Injector, src asm.ZReg) { g.absBwd(src) }

type sqrtKernel struct {
	noCoefs
	noGPRs
	useDst bool
}

func (sqrtKernel) auxVecs(dir Direction) int {
	if dir == Backward {
		return 2
	}
	return 0
}

func (sqrtKernel) forward(g *Injector, src asm.ZReg)    { g.sqrtFwd(src) }
func (k sqrtKernel) backward(g *Injector, src asm.ZReg) { g.sqrtBwd(src, k.useDst) }

type linearKernel struct{ noGPRs }

func (linearKernel) auxVecs(dir Direction) int {
	if dir == Backward {
		return 0
	}
	return 2
}

func (linearKernel) loadCoefs(g *Injector, dir Direction) {
	if dir == Forward {
		g.tableVal(table.Alpha, g.zTmp())
		g.tableVal(table.Beta, g.aux(0))
	}
}

func (linearKernel) forward(g *Injector, src asm.ZReg)  { g.linearFwd(src) }
func (linearKernel) backward(g *Injector, src asm.ZReg) { g.linearBwd(src) }

type boundedReluKernel struct{ noGPRs }

func (boundedReluKernel) auxVecs(Direction) int { return 1 }

func (boundedReluKernel) loadCoefs(g *Injector, dir Direction) {
	if dir == Forward {
		g.tableVal(table.Alpha, g.zTmp())
	}
}

func (boundedReluKernel) forward(g *Injector, src asm.ZReg)  { g.boundedReluFwd(src) }
func (boundedReluKernel) backward(g *Injector, src asm.ZReg) { g.boundedReluBwd(src) }

type softReluKernel struct {
	noCoefs
	noGPRs
}

func (softReluKernel) auxVecs(Direction) int              { return 5 }
func (softReluKernel) forward(g *Injector, src asm.ZReg)  { g.softReluFwd(src) }
func (softReluKernel) backward(g *Injector, src asm.ZReg) { g.logisticFwd(src) }

type logisticKernel struct {
	noCoefs
	noGPRs
	useDst bool
}

func (k logisticKernel) auxVecs(dir Direction) int {
	if dir == Backward && k.useDst {
		return 2
	}
	return 5
}

func (logisticKernel) forward(g *Injector, src asm.ZReg)    { g.logisticFwd(src) }
func (k logisticKernel) backward(g *Injector, src asm.ZReg) { g.logisticBwd(src, k.useDst) }

type expKernel struct {
	noCoefs
	noGPRs
	useDst bool
}

func (k expKernel) auxVecs(dir Direction) int {
	if dir == Backward && k.useDst {
		return 0
	}
	return 4
}

func (expKernel) forward(g *Injector, src asm.ZReg) { g.expFwd(src) }

// The derivative of exp is exp itself, already in place with use_dst.
func (k expKernel) backward(g *Injector, src asm.ZReg) {
	if !k.useDst {
		g.expFwd(src)
	}
}

type geluTanhKernel struct{ noCoefs }

func (geluTanhKernel) auxVecs(Direction) int              { return 6 }
func (geluTanhKernel) auxGPRs(Direction) int              { return 1 }
func (geluTanhKernel) forward(g *Injector, src asm.ZReg)  { g.geluTanhFwd(src) }
func (geluTanhKernel) backward(g *Injector, src asm.ZReg) { g.geluTanhBwd(src) }

type swishKernel struct {
	noCoefs
	noGPRs
}

func (swishKernel) auxVecs(Direction) int              { return 5 }
func (swishKernel) forward(g *Injector, src asm.ZReg)  { g.swishFwd(src) }
func (swishKernel) backward(g *Injector, src asm.ZReg) { g.swishBwd(src) }

type logKernel struct{ noCoefs }

func (logKernel) auxVecs(dir Direction) int {
	if dir == Backward {
		return 1
	}
	return 5
}

func (logKernel) auxGPRs(dir Direction) int {
	if dir == Backward {
		return 0
	}
	return 1
}

func (logKernel) forward(g *Injector, src asm.ZReg)  { g.logFwd(src) }
func (logKernel) backward(g *Injector, src asm.ZReg) { g.logBwd(src) }

type clipKernel struct{ noGPRs }

func (clipKernel) auxVecs(dir Direction) int {
	if dir == Backward {
		return 3
	}
	return 2
}

func (clipKernel) loadCoefs(g *Injector, dir Direction) {
	if dir == Forward {
		g.tableVal(table.Alpha, g.zTmp())
		g.tableVal(table.Beta, g.aux(0))
		return
	}
	g.tableVal(table.Beta, g.zTmp())
	g.tableVal(table.Alpha, g.aux(0))
}

func (clipKernel) forward(g *Injector, src asm.ZReg)  { g.clipFwd(src) }
func (clipKernel) backward(g *Injector, src asm.ZReg) { g.clipBwd(src) }

// powKernel dispatches on beta: a handful of exponents have closed forms,
// everything else calls powf lane by lane.
type powKernel struct {
	noCoefs
	noGPRs
	beta float32
}

func (k powKernel) auxVecs(dir Direction) int {
	if dir == Forward {
		switch k.beta {
		case -1:
			return 2
		case 0:
			return 0
		}
		return 1
	}
	switch k.beta {
	case 0, 1:
		return 0
	case 0.5:
		return 2
	}
	return 3
}

func (k powKernel) forward(g *Injector, src asm.ZReg)  { g.powFwd(src, k.beta) }
func (k powKernel) backward(g *Injector, src asm.ZReg) { g.powBwd(src, k.beta) }

type geluErfKernel struct {
	noCoefs
	noGPRs
}

func (geluErfKernel) auxVecs(Direction) int              { return 6 }
func (geluErfKernel) forward(g *Injector, src asm.ZReg)  { g.geluErfFwd(src) }
func (geluErfKernel) backward(g *Injector, src asm.ZReg) { g.geluErfBwd(src) }

type roundKernel struct {
	noCoefs
	noGPRs
}

func (roundKernel) auxVecs(Direction) int             { return 0 }
func (roundKernel) forward(g *Injector, src asm.ZReg) { g.roundFwd(src) }

func (roundKernel) backward(*Injector, asm.ZReg) {
	panic("eltwise: round has no backward variant")
}
