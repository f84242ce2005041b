package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raymyers/ralph-eltwise/pkg/asm"
)

func load(t *testing.T, vlen int, build func(fn *asm.Function)) *Machine {
	t.Helper()
	fn := asm.NewFunction("t")
	build(fn)
	m := New(Options{VLen: vlen})
	if err := m.Load(fn); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestFloatArithmetic(t *testing.T) {
	m := load(t, 16, func(fn *asm.Function) {
		fn.Append(asm.PTRUE{Pd: 7})
		fn.Append(asm.ZFADD{Zd: 2, Zn: 0, Zm: 1})
		fn.Append(asm.ZFMUL{Zd: 3, Zn: 0, Zm: 1})
		fn.Append(asm.ZMOV{Zd: 4, Zn: 0})
		fn.Append(asm.ZFMAD{Zdn: 4, Pg: 7, Zm: 1, Za: 2})
		fn.Append(asm.ZFDIV{Zdn: 0, Pg: 7, Zm: 1})
		fn.Append(asm.RET{})
	})
	m.SetVecF(0, 1, 2, 3, 4)
	m.SetVecF(1, 2, 2, 2, -4)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		z    asm.ZReg
		want []float32
	}{
		{2, []float32{3, 4, 5, 0}},
		{3, []float32{2, 4, 6, -16}},
		{4, []float32{5, 8, 11, -16}},
		{0, []float32{0.5, 1, 1.5, -1}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, m.VecF(tt.z)); diff != "" {
			t.Errorf("z%d mismatch (-want +got):\n%s", tt.z, diff)
		}
	}
}

func TestPredicatedMerge(t *testing.T) {
	m := load(t, 16, func(fn *asm.Function) {
		fn.Append(asm.PTRUE{Pd: 7})
		fn.Append(asm.ZFCMz{Cond: asm.FCmpGT, Pd: 1, Pg: 7, Zn: 0})
		fn.Append(asm.ZFMOVm{Zd: 0, Pg: 1, Imm: 1})
		fn.Append(asm.ZSEL{Zd: 2, Pg: 1, Zn: 0, Zm: 3})
		fn.Append(asm.RET{})
	})
	m.SetVecF(0, -1, 5, float32(math.NaN()), 0)
	m.SetVecF(3, 9)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]bool{false, true, false, false}, m.P[1]); diff != "" {
		t.Errorf("p1 mismatch (-want +got):\n%s", diff)
	}
	got := m.VecF(2)
	if got[0] != 9 || got[1] != 1 || got[2] != 9 || got[3] != 9 {
		t.Errorf("z2 = %v", got)
	}
}

func TestMinMaxNumIgnoreNaN(t *testing.T) {
	nan := float32(math.NaN())
	if got := minNum(nan, 2); got != 2 {
		t.Errorf("minNum(NaN, 2) = %v", got)
	}
	if got := maxNum(3, nan); got != 3 {
		t.Errorf("maxNum(3, NaN) = %v", got)
	}
	if got := maxNum(float32(math.Copysign(0, -1)), 0); math.Signbit(float64(got)) {
		t.Errorf("maxNum(-0, +0) = -0")
	}
}

func TestConvertSaturates(t *testing.T) {
	tests := []struct {
		in   float32
		want int32
	}{
		{1.9, 1},
		{-1.9, -1},
		{float32(math.NaN()), 0},
		{1e20, math.MaxInt32},
		{-1e20, math.MinInt32},
	}
	for _, tt := range tests {
		if got := int32(cvtzs(tt.in)); got != tt.want {
			t.Errorf("cvtzs(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTableLoadThroughADR(t *testing.T) {
	m := load(t, 32, func(fn *asm.Function) {
		fn.Append(asm.PTRUE{Pd: 7})
		fn.Append(asm.ADR{Rd: asm.X20, Target: "tab"})
		fn.Append(asm.ADDi{Rd: asm.X28, Rn: asm.X20, Imm: 32})
		fn.Append(asm.ZLD1W{Zt: 5, Pg: 7, Rn: asm.X28})
		fn.Append(asm.ZLD1Wg{Zt: 8, Pg: 7, Rn: asm.X20, Zm: 6})
		fn.Append(asm.RET{})
		fn.Append(asm.Align{Bytes: 64})
		fn.AppendLabel("tab")
		for i := 0; i < 16; i++ {
			fn.Append(asm.Word{Val: uint32(100 + i)})
		}
	})
	m.SetVec(6, 9)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	addr, _ := m.Label("tab")
	if addr%64 != 0 {
		t.Errorf("tab at %#x, not 64-byte aligned", addr)
	}
	if diff := cmp.Diff([]uint32{108, 109, 110, 111, 112, 113, 114, 115}, m.Z[5]); diff != "" {
		t.Errorf("z5 mismatch (-want +got):\n%s", diff)
	}
	for i, v := range m.Z[8] {
		if v != 109 {
			t.Errorf("gather lane %d = %d, want 109", i, v)
		}
	}
}

func TestStackRoundTrip(t *testing.T) {
	m := load(t, 16, func(fn *asm.Function) {
		fn.Append(asm.STPpre{Rt1: asm.X19, Rt2: asm.X20, Rn: asm.SP, Ofs: -16})
		fn.Append(asm.SUBi{Rd: asm.SP, Rn: asm.SP, Imm: 16})
		fn.Append(asm.ZSTR{Zt: 3, Rn: asm.SP})
		fn.Append(asm.MOVi{Rd: asm.X19, Imm: 0})
		fn.Append(asm.MOVi{Rd: asm.X20, Imm: 0})
		fn.Append(asm.ZEOR{Zd: 3, Zn: 3, Zm: 3})
		fn.Append(asm.ZLDR{Zt: 3, Rn: asm.SP})
		fn.Append(asm.ADDi{Rd: asm.SP, Rn: asm.SP, Imm: 16})
		fn.Append(asm.LDPpost{Rt1: asm.X19, Rt2: asm.X20, Rn: asm.SP, Ofs: 16})
		fn.Append(asm.RET{})
	})
	m.Fill(3)
	before := m.Snapshot()
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	after := m.Snapshot()
	if after.X[19] != before.X[19] || after.X[20] != before.X[20] {
		t.Errorf("x19/x20 not restored: %#x %#x", after.X[19], after.X[20])
	}
	if diff := cmp.Diff(before.Z[3], after.Z[3]); diff != "" {
		t.Errorf("z3 not restored (-want +got):\n%s", diff)
	}
}

func TestPredicateSpillLayout(t *testing.T) {
	m := load(t, 32, func(fn *asm.Function) {
		fn.Append(asm.SUBi{Rd: asm.SP, Rn: asm.SP, Imm: 16})
		fn.Append(asm.PSTR{Pt: 3, Rn: asm.SP})
		fn.Append(asm.PLDR{Pt: 4, Rn: asm.SP})
		fn.Append(asm.ADDi{Rd: asm.SP, Rn: asm.SP, Imm: 16})
		fn.Append(asm.RET{})
	})
	copy(m.P[3], []bool{true, false, false, true, true, true, false, true})
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	b, err := m.Mem.ReadBytes(StackTop-16, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x01, 0x10, 0x11, 0x10}, b); diff != "" {
		t.Errorf("spill bytes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.P[3], m.P[4]); diff != "" {
		t.Errorf("p4 mismatch (-want +got):\n%s", diff)
	}
}

func TestPORRSFlagsAndBranch(t *testing.T) {
	build := func(fn *asm.Function) {
		fn.Append(asm.PTRUE{Pd: 7})
		fn.Append(asm.MOVi{Rd: asm.X0, Imm: 1})
		fn.Append(asm.PORRS{Pd: 2, Pg: 7, Pn: 1, Pm: 1})
		fn.Append(asm.Bcond{Cond: asm.CondEQ, Target: "skip"})
		fn.Append(asm.MOVi{Rd: asm.X0, Imm: 2})
		fn.AppendLabel("skip")
		fn.Append(asm.RET{})
	}
	tests := []struct {
		name string
		p1   []bool
		want uint64
	}{
		{"none set", []bool{false, false, false, false}, 1},
		{"one set", []bool{false, false, true, false}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := load(t, 16, build)
			copy(m.P[1], tt.p1)
			if err := m.Run(); err != nil {
				t.Fatal(err)
			}
			if m.X[0] != tt.want {
				t.Errorf("x0 = %d, want %d", m.X[0], tt.want)
			}
		})
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name  string
		build func(fn *asm.Function)
		want  error
	}{
		{"misaligned sp base", func(fn *asm.Function) {
			fn.Append(asm.SUBi{Rd: asm.SP, Rn: asm.SP, Imm: 8})
			fn.Append(asm.ZSTR{Zt: 0, Rn: asm.SP})
			fn.Append(asm.RET{})
		}, ErrFault},
		{"unbalanced stack", func(fn *asm.Function) {
			fn.Append(asm.SUBi{Rd: asm.SP, Rn: asm.SP, Imm: 16})
			fn.Append(asm.RET{})
		}, ErrFault},
		{"out of bounds", func(fn *asm.Function) {
			fn.Append(asm.MOVi{Rd: asm.X1, Imm: 16})
			fn.Append(asm.ZLDR{Zt: 0, Rn: asm.X1})
			fn.Append(asm.RET{})
		}, ErrFault},
		{"unknown symbol", func(fn *asm.Function) {
			fn.Append(asm.BL{Target: "expf", IsSymbol: true})
			fn.Append(asm.RET{})
		}, ErrUnsupported},
		{"endless loop", func(fn *asm.Function) {
			fn.AppendLabel("top")
			// NZCV starts clear, so NE is always taken
			fn.Append(asm.Bcond{Cond: asm.CondNE, Target: "top"})
		}, ErrStepLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := load(t, 16, tt.build)
			if err := m.Run(); !errors.Is(err, tt.want) {
				t.Errorf("Run() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPowfHostCall(t *testing.T) {
	m := load(t, 32, func(fn *asm.Function) {
		fn.Append(asm.SUBi{Rd: asm.SP, Rn: asm.SP, Imm: 16})
		fn.Append(asm.STPpre{Rt1: asm.X29, Rt2: asm.X30, Rn: asm.SP, Ofs: -16})
		fn.Append(asm.BL{Target: "powf", IsSymbol: true})
		fn.Append(asm.LDPpost{Rt1: asm.X29, Rt2: asm.X30, Rn: asm.SP, Ofs: 16})
		fn.Append(asm.ADDi{Rd: asm.SP, Rn: asm.SP, Imm: 16})
		fn.Append(asm.RET{})
	})
	m.Fill(7)
	m.SetVecF(0, 2)
	m.SetVecF(1, 10)
	before := m.Snapshot()
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if got := m.VecF(0)[0]; got != 1024 {
		t.Errorf("powf(2, 10) = %v", got)
	}
	if m.Calls("powf") != 1 {
		t.Errorf("Calls(powf) = %d", m.Calls("powf"))
	}
	// callee-saved state survives, caller-saved state does not
	if m.X[19] != before.X[19] || m.X[28] != before.X[28] {
		t.Error("callee-saved GPR changed")
	}
	if m.X[0] == before.X[0] {
		t.Error("x0 survived the call")
	}
	if diff := cmp.Diff(before.Z[9][:2], m.Z[9][:2]); diff != "" {
		t.Errorf("low half of z9 changed (-want +got):\n%s", diff)
	}
	if m.Z[9][2] == before.Z[9][2] {
		t.Error("upper half of z9 survived the call")
	}
}

func TestImageHoldsData(t *testing.T) {
	m := load(t, 16, func(fn *asm.Function) {
		fn.Append(asm.RET{})
		fn.Append(asm.Align{Bytes: 16})
		fn.AppendLabel("data")
		fn.Append(asm.Word{Val: 0x11223344})
	})
	img := m.Image()
	if len(img) != 16+4+16 {
		t.Fatalf("image is %d bytes", len(img))
	}
	if diff := cmp.Diff([]byte{0x44, 0x33, 0x22, 0x11}, img[16:20]); diff != "" {
		t.Errorf("data word (-want +got):\n%s", diff)
	}
	img[16] = 0
	if m.Image()[16] != 0x44 {
		t.Error("Image returned shared memory")
	}
}
