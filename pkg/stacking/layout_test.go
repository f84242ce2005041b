package stacking

import (
	"testing"

	"github.com/raymyers/ralph-eltwise/pkg/asm"
)

var testAddr = Addressing{
	Tmps:    []asm.XReg{asm.X23, asm.X24, asm.X25},
	Scratch: asm.X28,
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want int64
	}{
		{0, 8, 0},
		{1, 8, 8},
		{7, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{15, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{0, 16, 0},
		{5, 0, 5},
	}

	for _, tt := range tests {
		got := alignUp(tt.n, tt.align)
		if got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}

func TestStoreVecsBatches(t *testing.T) {
	fn := asm.NewFunction("k")
	vecs := []asm.ZReg{4, 5, 6, 7}
	StoreVecs(fn, 7, vecs, 64, 0, testAddr)

	// batch of three addresses, three stores, then one address and one store
	want := []asm.Instruction{
		asm.ADDi{Rd: asm.X23, Rn: asm.SP, Imm: 0},
		asm.ADDi{Rd: asm.X24, Rn: asm.SP, Imm: 64},
		asm.ADDi{Rd: asm.X25, Rn: asm.SP, Imm: 128},
		asm.ZST1W{Zt: 4, Pg: 7, Rn: asm.X23},
		asm.ZST1W{Zt: 5, Pg: 7, Rn: asm.X24},
		asm.ZST1W{Zt: 6, Pg: 7, Rn: asm.X25},
		asm.ADDi{Rd: asm.X23, Rn: asm.SP, Imm: 192},
		asm.ZST1W{Zt: 7, Pg: 7, Rn: asm.X23},
	}
	assertCode(t, fn.Code, want)
}

func TestLoadVecsLargeOffset(t *testing.T) {
	fn := asm.NewFunction("k")
	LoadVecs(fn, 7, []asm.ZReg{9}, 64, 8192, testAddr)
	want := []asm.Instruction{
		asm.MOVi{Rd: asm.X28, Imm: 8192},
		asm.ADD{Rd: asm.X23, Rn: asm.SP, Rm: asm.X28},
		asm.ZLD1W{Zt: 9, Pg: 7, Rn: asm.X23},
	}
	assertCode(t, fn.Code, want)
}

func TestPredSpill(t *testing.T) {
	fn := asm.NewFunction("k")
	StorePreds(fn, []asm.PReg{0, 1}, 32, 16, testAddr)
	want := []asm.Instruction{
		asm.ADDi{Rd: asm.X23, Rn: asm.SP, Imm: 16},
		asm.ADDi{Rd: asm.X24, Rn: asm.SP, Imm: 20},
		asm.PSTR{Pt: 0, Rn: asm.X23},
		asm.PSTR{Pt: 1, Rn: asm.X24},
	}
	assertCode(t, fn.Code, want)
}

func TestAddressingMisuse(t *testing.T) {
	tests := []struct {
		name string
		a    Addressing
	}{
		{"no temporaries", Addressing{Scratch: asm.X28}},
		{"scratch in temporaries", Addressing{Tmps: []asm.XReg{asm.X28}, Scratch: asm.X28}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			StoreVecs(asm.NewFunction("k"), 7, []asm.ZReg{1}, 16, 0, tt.a)
		})
	}
}

func TestReserveFree(t *testing.T) {
	fn := asm.NewFunction("k")
	Reserve(fn, 0, asm.X28)
	Free(fn, 0, asm.X28)
	if len(fn.Code) != 0 {
		t.Fatalf("zero-size reserve emitted %v", fn.Code)
	}
	Reserve(fn, 128, asm.X28)
	Free(fn, 128, asm.X28)
	assertCode(t, fn.Code, []asm.Instruction{
		asm.SUBi{Rd: asm.SP, Rn: asm.SP, Imm: 128},
		asm.ADDi{Rd: asm.SP, Rn: asm.SP, Imm: 128},
	})
}

func TestVecAreaSize(t *testing.T) {
	tests := []struct {
		n, vlen int
		want    int64
	}{
		{0, 64, 0},
		{3, 16, 48},
		{5, 64, 320},
	}
	for _, tt := range tests {
		if got := VecAreaSize(tt.n, tt.vlen); got != tt.want {
			t.Errorf("VecAreaSize(%d, %d) = %d, want %d", tt.n, tt.vlen, got, tt.want)
		}
	}
}

func assertCode(t *testing.T, got, want []asm.Instruction) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d instructions:\n%v\nwant %d:\n%v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %#v, want %#v", i, got[i], want[i])
		}
	}
}
