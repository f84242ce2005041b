package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
	"github.com/raymyers/ralph-eltwise/pkg/eltwise"
	"github.com/raymyers/ralph-eltwise/pkg/isa"
	"github.com/raymyers/ralph-eltwise/pkg/jitdump"
	"github.com/raymyers/ralph-eltwise/pkg/sim"
	"github.com/raymyers/ralph-eltwise/pkg/stacking"
)

// kernel is one generated function: a single ComputeVectorRange call
// followed by the constant table.
type kernel struct {
	target isa.ISA
	cfg    eltwise.Config
	set    eltwise.IndexSet
	fn     *asm.Function
	g      *eltwise.Injector
	saved  []asm.XReg // callee-saved registers the kernel spills
}

func buildKernel(gc GenConfig) (*kernel, error) {
	target, cfg, set, err := gc.resolve()
	if err != nil {
		return nil, err
	}
	fn := asm.NewFunction(gc.functionName(cfg))
	g := eltwise.New(fn, target, cfg)
	if target.MaskInZ0 && set.Has(0) && g.AuxVecsCount() > 0 {
		return nil, fmt.Errorf("z0 is reserved on %s; choose a window without it", target)
	}

	saved := stacking.CalleeSavedIn(g.ClobberedGPRs())
	if !cfg.SaveState {
		// x30 may serve as a scratch register
		fn.Append(asm.STPpre{Rt1: asm.X29, Rt2: asm.X30, Rn: asm.SP, Ofs: -16})
	}
	stacking.PushPairs(fn, saved)
	if !cfg.SaveState {
		g.LoadTableAddr()
	}
	g.ComputeVectorRange(set)
	stacking.PopPairs(fn, saved)
	if !cfg.SaveState {
		fn.Append(asm.LDPpost{Rt1: asm.X29, Rt2: asm.X30, Rn: asm.SP, Ofs: 16})
	}
	fn.Append(asm.RET{})
	g.PrepareTable(true)

	slog.Debug("generated", "name", fn.Name, "isa", target.Name, "window", set.String(),
		"instructions", len(fn.Code), "aux_vecs", g.AuxVecsCount(), "aux_gprs", g.AuxGPRsCount())
	return &kernel{target: target, cfg: cfg, set: set, fn: fn, g: g, saved: saved}, nil
}

func (k *kernel) listing() string {
	var b strings.Builder
	asm.NewPrinter(&b).PrintProgram(&asm.Program{Functions: []asm.Function{*k.fn}})
	return b.String()
}

// load places the kernel in a fresh simulator and hands the image to
// jitdump.
func (k *kernel) load(opts sim.Options) (*sim.Machine, error) {
	opts.VLen = k.target.VLen
	m := sim.New(opts)
	if err := m.Load(k.fn); err != nil {
		return nil, fmt.Errorf("loading %s: %w", k.fn.Name, err)
	}
	jitdump.Register(jitdump.Code{
		Addr:   sim.CodeBase,
		Bytes:  m.Image(),
		Name:   k.fn.Name,
		Source: k.listing(),
	})
	return m, nil
}
