// Package eltwise generates SVE code that applies an element-wise activation
// function, or its derivative, in place to a set of vector registers.
//
// An Injector is configured once with an algorithm and its parameters. Each
// ComputeVectorRange call emits a self-contained sequence into the caller's
// code: a preamble that picks and saves scratch registers, the body for
// every register in the window, and a postamble that restores what was
// saved. The coefficients the bodies read come from a constant table that
// PrepareTable emits once, after the caller's code.
package eltwise

import (
	"fmt"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/isa"
	"github.com/raymyers/ralph-eltwise/pkg/stacking"
	"github.com/raymyers/ralph-eltwise/pkg/table"
)

// Host names the registers the surrounding kernel sets aside for injected
// code. None of them are preserved across ComputeVectorRange.
type Host struct {
	// Table holds the constant table address while a body runs.
	Table asm.XReg
	// Tmp are address temporaries for batched spills; Tmp[0] also
	// materializes large immediates.
	Tmp []asm.XReg
	// Addr receives table entry addresses.
	Addr asm.XReg
	// PMask receives compare results, PTmp is a second compare target and
	// PAll is kept all-true.
	PMask, PTmp, PAll asm.PReg
}

// DefaultHost is the register convention the CLI and the tests use.
func DefaultHost() Host {
	return Host{
		Table: asm.X20,
		Tmp:   []asm.XReg{asm.X23, asm.X24, asm.X25, asm.X26, asm.X27},
		Addr:  asm.X28,
		PMask: 1,
		PTmp:  2,
		PAll:  7,
	}
}

func (h Host) reserved(r asm.XReg) bool {
	if r == h.Table || r == h.Addr {
		return true
	}
	for _, t := range h.Tmp {
		if r == t {
			return true
		}
	}
	return false
}

func (h Host) addressing() stacking.Addressing {
	return stacking.Addressing{Tmps: h.Tmp, Scratch: h.Addr}
}

// Config is the compile-time configuration of an Injector.
type Config struct {
	Alg Alg
	Dir Direction
	// Alpha and Beta parameterize the algorithm (slope, bounds, exponent).
	Alpha, Beta float32
	// Scale multiplies every result. Zero is read as 1.
	Scale float32
	// UseDst selects the backward variant that consumes the forward output.
	UseDst bool
	// SaveState makes every register outside the window, other than the
	// Host registers, predicates and flags, survive ComputeVectorRange.
	SaveState bool
	// TableLabel names the constant table. A fresh label is allocated when
	// empty.
	TableLabel asm.Label
	// Host defaults to DefaultHost when Tmp is empty.
	Host Host
}

// Injector emits eltwise code into an asm.Emitter.
type Injector struct {
	e      asm.Emitter
	target isa.ISA
	cfg    Config
	host   Host
	k      kernel
	tbl    *table.Table
	label  asm.Label

	tableEmitted bool

	// Allocation of the current ComputeVectorRange call. vecs is indexed by
	// role: vecs[0] is z_tmp, vecs[1+i] is aux i.
	vecs     []asm.ZReg
	gprs     []asm.XReg
	pushed   []asm.XReg
	tail     int
	areaSize int64

	// Highest role and aux GPR index referenced so far.
	rolePeak int
	gprPeak  int
	// Deepest stack a host-call guard has taken.
	callFrame int64
}

// New configures an injector for target. Invalid combinations, such as a
// use_dst variant of an algorithm that has none, panic. The vector length
// must be a power of two from 16 to 256 bytes; the log gather turns a table
// row into a lane index with a shift.
func New(e asm.Emitter, target isa.ISA, cfg Config) *Injector {
	if target.VLen < 16 || target.VLen > 256 || target.VLen&(target.VLen-1) != 0 {
		panic(fmt.Sprintf("eltwise: bad vector length %d for %s", target.VLen, target))
	}
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	if len(cfg.Host.Tmp) == 0 {
		cfg.Host = DefaultHost()
	}
	g := &Injector{
		e:        e,
		target:   target,
		cfg:      cfg,
		host:     cfg.Host,
		k:        newKernel(cfg),
		tbl:      table.New(target.VLen),
		label:    cfg.TableLabel,
		rolePeak: -1,
		gprPeak:  -1,
	}
	if g.label == "" {
		g.label = e.NewLabel("eltwise_table")
	}
	registerTable(g.tbl, cfg.Alg, cfg.Scale, cfg.Alpha, cfg.Beta)
	g.tbl.Finalize()
	return g
}

// Config returns the configuration with defaults applied.
func (g *Injector) Config() Config { return g.cfg }

// Table returns the finalized constant table.
func (g *Injector) Table() *table.Table { return g.tbl }

// TableLabel returns the label PrepareTable binds.
func (g *Injector) TableLabel() asm.Label { return g.label }

// AuxVecsCount returns the number of scratch vector registers the
// configured variant uses.
func (g *Injector) AuxVecsCount() int {
	n := g.k.auxVecs(g.cfg.Dir)
	if g.cfg.Scale != 1 && n < 1 {
		// the scale multiply reads z_tmp
		n = 1
	}
	return n
}

// AuxGPRsCount returns the number of scratch general-purpose registers the
// configured variant uses.
func (g *Injector) AuxGPRsCount() int {
	return g.k.auxGPRs(g.cfg.Dir)
}

// CallFrameSize returns the stack the general pow path takes around its
// host calls, on top of the preamble's frame. It is 0 until a
// ComputeVectorRange call has emitted such a path.
func (g *Injector) CallFrameSize() int64 { return g.callFrame }

// ClobberedGPRs lists the general registers a ComputeVectorRange call may
// leave changed: the Host temporaries always, and without SaveState also
// the table register and the aux GPRs.
func (g *Injector) ClobberedGPRs() []asm.XReg {
	out := append([]asm.XReg{g.host.Addr}, g.host.Tmp...)
	if !g.cfg.SaveState {
		out = append(out, g.host.Table)
		out = append(out, g.scratchGPRs()...)
	}
	return out
}

// LoadTableAddr loads the table address into Host.Table. Callers that run
// without SaveState must emit it before the first ComputeVectorRange.
func (g *Injector) LoadTableAddr() {
	g.e.Append(asm.ADR{Rd: g.host.Table, Target: g.label})
}

// ComputeRange transforms registers start..end-1.
func (g *Injector) ComputeRange(start, end int) {
	if start >= end {
		panic(fmt.Sprintf("eltwise: empty register range [%d, %d)", start, end))
	}
	g.ComputeVectorRange(RangeSet(start, end))
}

// ComputeVectorRange transforms every register in set in place.
func (g *Injector) ComputeVectorRange(set IndexSet) {
	if set.Len() == 0 {
		panic("eltwise: empty register set")
	}
	w := set.Slice()
	g.preamble(set, w)
	g.body(w[g.tail:])
	if g.tail > 0 {
		g.preambleTail(w)
		g.body(w[:g.tail])
	}
	g.postamble()
}

func (g *Injector) body(idxs []int) {
	for _, i := range idxs {
		src := asm.ZReg(i)
		if g.cfg.Dir == Forward {
			g.k.forward(g, src)
		} else {
			g.k.backward(g, src)
		}
		if g.cfg.Scale != 1 {
			g.e.Append(asm.ZFMUL{Zd: src, Zn: src, Zm: g.tableVal(table.Scale, g.zTmp())})
		}
	}
}

// PrepareTable emits the constant table at the injector's label when emit
// is set. It may emit at most once.
func (g *Injector) PrepareTable(emit bool) {
	if !emit {
		return
	}
	if g.tableEmitted {
		panic("eltwise: table emitted twice")
	}
	g.tableEmitted = true

	g.e.Append(asm.Align{Bytes: 64})
	g.e.AppendLabel(g.label)
	off := 0
	for _, ent := range g.tbl.Entries() {
		if ent.Off != off {
			panic(fmt.Sprintf("eltwise: table entry %s at %d, registered at %d", ent.Key, off, ent.Off))
		}
		n := g.tbl.EntryLen(ent)
		for d := 0; d < n; d += 4 {
			g.e.Append(asm.Word{Val: ent.Val})
		}
		off += n
	}
}
