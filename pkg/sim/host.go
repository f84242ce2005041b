package sim

import (
	"fmt"
	"math"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
)

// clobberPattern marks values a host call left behind.
const clobberPattern = 0xdeadbeef

// callHost runs a registered host function as if reached by BL: the link
// register points after the call, and on return everything the AAPCS64
// lets a callee destroy has been destroyed.
func (m *Machine) callHost(sym asm.Label, ret uint64) error {
	fn, ok := m.hosts[sym]
	if !ok {
		return fmt.Errorf("%w: call to unknown symbol %s", ErrUnsupported, sym)
	}
	if m.SP%16 != 0 {
		return fmt.Errorf("%w: call to %s with misaligned SP %#x", ErrFault, sym, m.SP)
	}
	m.X[30] = ret
	m.calls[sym]++
	return fn(m)
}

// Clobber overwrites the caller-saved state: x0-x18, every predicate, NZCV
// and every vector lane except the low 64 bits of z8-z15. Host functions
// call it before writing their results.
func (m *Machine) Clobber() {
	for i := 0; i <= 18; i++ {
		m.X[i] = clobberPattern<<32 | uint64(i)
	}
	for z := range m.Z {
		for l := range m.Z[z] {
			if z >= 8 && z <= 15 && l < 2 {
				continue
			}
			m.Z[z][l] = clobberPattern ^ uint32(z<<8|l)
		}
	}
	for p := range m.P {
		for l := range m.P[p] {
			m.P[p][l] = l%2 == 1
		}
	}
	m.N, m.Zf, m.C, m.V = true, false, true, false
}

// hostPowf is powf(s0, s1) -> s0.
func hostPowf(m *Machine) error {
	x := f32(m.Z[0][0])
	y := f32(m.Z[1][0])
	r := float32(math.Pow(float64(x), float64(y)))
	m.Clobber()
	m.Z[0][0] = u32(r)
	return nil
}
