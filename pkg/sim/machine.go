// Package sim interprets generated SVE programs on any host. It models the
// subset of A64 and SVE that pkg/asm can express: the general-purpose and
// vector register files, predicates, NZCV, a code/data segment and a stack.
//
// Programs are laid out from an asm.Function the way an assembler would:
// every instruction takes four bytes, Align pads, Word emits data. Data words
// are readable through ADR, so a generated kernel and its constant table run
// exactly as emitted.
package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
)

var (
	// ErrFault is returned for out-of-bounds or misaligned accesses, branches
	// into data and unbalanced stacks.
	ErrFault = errors.New("fault")
	// ErrUnsupported is returned for instructions or host calls the
	// simulator does not model.
	ErrUnsupported = errors.New("unsupported")
	// ErrStepLimit is returned when a program runs longer than MaxSteps.
	ErrStepLimit = errors.New("step limit exceeded")
)

const (
	// CodeBase is where Load places the first instruction.
	CodeBase uint64 = 0x10000
	// StackTop is the initial SP.
	StackTop uint64 = 0x800000

	// returnSentinel is the link value that ends Run.
	returnSentinel uint64 = 0xfffffffffffffff0
)

// Options configures a Machine. Zero fields take defaults.
type Options struct {
	// VLen is the vector length in bytes.
	VLen int
	// StackSize is the size of the stack segment below StackTop.
	StackSize int
	// MaxSteps bounds the number of instructions one Run executes.
	MaxSteps int
}

// HostFunc implements an external symbol reached by BL. It reads its
// arguments from the machine and writes its results back.
type HostFunc func(m *Machine) error

// Machine is the architectural state plus memory.
type Machine struct {
	X  [31]uint64
	SP uint64
	Z  [asm.NumVecs][]uint32
	P  [asm.NumPreds][]bool

	// NZCV
	N, Zf, C, V bool

	Mem *Memory

	vlen     int
	lanes    int
	maxSteps int
	hosts    map[asm.Label]HostFunc

	code   map[uint64]asm.Instruction
	labels map[asm.Label]uint64
	entry  uint64
	size   int
	steps  int
	calls  map[asm.Label]int
}

// New returns a machine with zeroed registers and an empty stack. The powf
// host function is registered.
func New(opts Options) *Machine {
	if opts.VLen <= 0 || opts.VLen%16 != 0 {
		panic(fmt.Sprintf("sim: bad vector length %d", opts.VLen))
	}
	if opts.StackSize == 0 {
		opts.StackSize = 1 << 20
	}
	if opts.MaxSteps == 0 {
		opts.MaxSteps = 1 << 22
	}
	m := &Machine{
		SP:       StackTop,
		Mem:      &Memory{},
		vlen:     opts.VLen,
		lanes:    opts.VLen / 4,
		maxSteps: opts.MaxSteps,
		hosts:    map[asm.Label]HostFunc{},
		calls:    map[asm.Label]int{},
	}
	for i := range m.Z {
		m.Z[i] = make([]uint32, m.lanes)
	}
	for i := range m.P {
		m.P[i] = make([]bool, m.lanes)
	}
	m.Mem.add("stack", StackTop-uint64(opts.StackSize), opts.StackSize)
	m.RegisterHost("powf", hostPowf)
	return m
}

// VLen returns the vector length in bytes.
func (m *Machine) VLen() int { return m.vlen }

// Lanes returns the number of 32-bit lanes per vector.
func (m *Machine) Lanes() int { return m.lanes }

// Steps returns the number of instructions the last Run executed.
func (m *Machine) Steps() int { return m.steps }

// Calls returns how often the host symbol was called since New.
func (m *Machine) Calls(sym asm.Label) int { return m.calls[sym] }

// RegisterHost makes sym callable through BL.
func (m *Machine) RegisterHost(sym asm.Label, fn HostFunc) {
	m.hosts[sym] = fn
}

// Load lays out fn at CodeBase. Loading twice is a programming error.
func (m *Machine) Load(fn *asm.Function) error {
	if m.code != nil {
		panic("sim: program already loaded")
	}
	m.code = map[uint64]asm.Instruction{}
	m.labels = map[asm.Label]uint64{}

	type word struct {
		addr uint64
		val  uint32
	}
	var words []word
	addr := CodeBase
	for _, inst := range fn.Code {
		switch in := inst.(type) {
		case asm.LabelDef:
			if _, dup := m.labels[in.Name]; dup {
				return fmt.Errorf("label %s bound twice", in.Name)
			}
			m.labels[in.Name] = addr
		case asm.Align:
			if in.Bytes <= 0 || in.Bytes&(in.Bytes-1) != 0 {
				return fmt.Errorf("bad alignment %d", in.Bytes)
			}
			a := uint64(in.Bytes)
			addr = (addr + a - 1) &^ (a - 1)
		case asm.Word:
			words = append(words, word{addr, in.Val})
			addr += 4
		default:
			m.code[addr] = inst
			addr += 4
		}
	}
	// padded so a table load at the last entry stays in bounds
	size := int(addr-CodeBase) + m.vlen
	m.Mem.add("image", CodeBase, size)
	m.size = size
	for _, w := range words {
		if err := m.Mem.Write32(w.addr, w.val); err != nil {
			return err
		}
	}
	m.entry = CodeBase
	return nil
}

// Image returns a copy of the loaded image. Data words read back as
// emitted; instruction slots are zero since the machine runs instructions
// unencoded.
func (m *Machine) Image() []byte {
	if m.code == nil {
		return nil
	}
	b, err := m.Mem.ReadBytes(CodeBase, m.size)
	if err != nil {
		panic(fmt.Sprintf("sim: image unreadable: %v", err))
	}
	return b
}

// Label returns the address a label was bound to.
func (m *Machine) Label(l asm.Label) (uint64, bool) {
	a, ok := m.labels[l]
	return a, ok
}

// Run executes from the start of the loaded function until it returns
// through the initial link register. SP must be back at its initial value.
func (m *Machine) Run() error {
	if m.code == nil {
		panic("sim: nothing loaded")
	}
	m.X[30] = returnSentinel
	sp0 := m.SP
	pc := m.entry
	m.steps = 0
	for {
		if m.steps >= m.maxSteps {
			return fmt.Errorf("%w after %d instructions", ErrStepLimit, m.steps)
		}
		m.steps++
		inst, ok := m.code[pc]
		if !ok {
			return fmt.Errorf("%w: no instruction at %#x", ErrFault, pc)
		}
		next, done, err := m.step(pc, inst)
		if err != nil {
			return fmt.Errorf("at %#x (%T): %w", pc, inst, err)
		}
		if done {
			if m.SP != sp0 {
				return fmt.Errorf("%w: SP %#x at return, entered with %#x", ErrFault, m.SP, sp0)
			}
			return nil
		}
		pc = next
	}
}

// State is a comparable copy of the register state.
type State struct {
	X  [31]uint64
	SP uint64
	Z  [asm.NumVecs][]uint32
	P  [asm.NumPreds][]bool
}

// Snapshot copies the register state.
func (m *Machine) Snapshot() State {
	s := State{X: m.X, SP: m.SP}
	for i := range m.Z {
		s.Z[i] = append([]uint32(nil), m.Z[i]...)
	}
	for i := range m.P {
		s.P[i] = append([]bool(nil), m.P[i]...)
	}
	return s
}

// SetVec fills z from vals, repeating the slice across all lanes.
func (m *Machine) SetVec(z asm.ZReg, vals ...uint32) {
	if len(vals) == 0 {
		panic("sim: no lane values")
	}
	for i := range m.Z[z] {
		m.Z[z][i] = vals[i%len(vals)]
	}
}

// SetVecF is SetVec for float lanes.
func (m *Machine) SetVecF(z asm.ZReg, vals ...float32) {
	bits := make([]uint32, len(vals))
	for i, v := range vals {
		bits[i] = math.Float32bits(v)
	}
	m.SetVec(z, bits...)
}

// VecF returns the lanes of z as floats.
func (m *Machine) VecF(z asm.ZReg) []float32 {
	out := make([]float32, m.lanes)
	for i, b := range m.Z[z] {
		out[i] = math.Float32frombits(b)
	}
	return out
}

// Fill gives every register a distinct, deterministic value derived from
// seed, so that any unintended write shows up in a Snapshot diff.
func (m *Machine) Fill(seed uint64) {
	for i := range m.X {
		m.X[i] = seed*0x9e3779b97f4a7c15 + uint64(i)*0x1000193
	}
	for z := range m.Z {
		for l := range m.Z[z] {
			m.Z[z][l] = uint32(seed) ^ uint32(z)<<24 ^ uint32(l)<<8 ^ 0x5a5a00a5
		}
	}
	for p := range m.P {
		for l := range m.P[p] {
			m.P[p][l] = (uint64(p+l)+seed)%3 == 0
		}
	}
}
