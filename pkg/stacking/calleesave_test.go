package stacking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raymyers/ralph-eltwise/pkg/asm"
)

func TestIsCalleeSaved(t *testing.T) {
	tests := []struct {
		reg  asm.XReg
		want bool
	}{
		{asm.X0, false},
		{asm.X18, false},
		{asm.X19, true},
		{asm.X28, true},
		{asm.X29, false}, // FP is not callee-saved (handled specially)
		{asm.X30, false}, // LR
		{asm.SP, false},
	}

	for _, tt := range tests {
		got := IsCalleeSaved(tt.reg)
		if got != tt.want {
			t.Errorf("IsCalleeSaved(%v) = %v, want %v", tt.reg, got, tt.want)
		}
	}
}

func TestCalleeSavedIn(t *testing.T) {
	tests := []struct {
		regs []asm.XReg
		want []asm.XReg
	}{
		{nil, []asm.XReg{}},
		{[]asm.XReg{asm.X0, asm.X30, asm.X29}, []asm.XReg{}},
		{[]asm.XReg{asm.X28, asm.X23, asm.X30, asm.X20, asm.X23}, []asm.XReg{asm.X20, asm.X23, asm.X28}},
		{CalleeSaveRegs, CalleeSaveRegs},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, CalleeSavedIn(tt.regs)); diff != "" {
			t.Errorf("CalleeSavedIn(%v) (-want +got):\n%s", tt.regs, diff)
		}
	}
}

func TestRegisterClasses(t *testing.T) {
	if len(CallerSaveRegs) != 20 {
		t.Errorf("len(CallerSaveRegs) = %d, want 20", len(CallerSaveRegs))
	}
	if CallerSaveRegs[19] != asm.X30 {
		t.Errorf("last caller-save reg = %s, want x30", CallerSaveRegs[19])
	}
	for _, r := range CallerSaveRegs {
		if IsCalleeSaved(r) {
			t.Errorf("%s is in both classes", r)
		}
	}
	if len(AllPreds) != asm.NumPreds || len(AllVecs) != asm.NumVecs {
		t.Errorf("AllPreds=%d AllVecs=%d", len(AllPreds), len(AllVecs))
	}
	if AllVecs[31] != 31 || AllPreds[15] != 15 {
		t.Errorf("register lists not in order")
	}
}

func TestPushPopPairs(t *testing.T) {
	tests := []struct {
		name     string
		regs     []asm.XReg
		wantPush []asm.Instruction
		wantPop  []asm.Instruction
		bytes    int64
	}{
		{
			name: "empty",
		},
		{
			name: "single",
			regs: []asm.XReg{asm.X20},
			wantPush: []asm.Instruction{
				asm.STRpre{Rt: asm.X20, Rn: asm.SP, Ofs: -16},
			},
			wantPop: []asm.Instruction{
				asm.LDRpost{Rt: asm.X20, Rn: asm.SP, Ofs: 16},
			},
			bytes: 16,
		},
		{
			name: "odd",
			regs: []asm.XReg{asm.X20, asm.X30, asm.X29},
			wantPush: []asm.Instruction{
				asm.STPpre{Rt1: asm.X20, Rt2: asm.X30, Rn: asm.SP, Ofs: -16},
				asm.STRpre{Rt: asm.X29, Rn: asm.SP, Ofs: -16},
			},
			wantPop: []asm.Instruction{
				asm.LDRpost{Rt: asm.X29, Rn: asm.SP, Ofs: 16},
				asm.LDPpost{Rt1: asm.X20, Rt2: asm.X30, Rn: asm.SP, Ofs: 16},
			},
			bytes: 32,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			push := asm.NewFunction("push")
			if got := PushPairs(push, tt.regs); got != tt.bytes {
				t.Errorf("PushPairs bytes = %d, want %d", got, tt.bytes)
			}
			assertCode(t, push.Code, tt.wantPush)

			pop := asm.NewFunction("pop")
			if got := PopPairs(pop, tt.regs); got != tt.bytes {
				t.Errorf("PopPairs bytes = %d, want %d", got, tt.bytes)
			}
			assertCode(t, pop.Code, tt.wantPop)
		})
	}
}

func TestPairBytes(t *testing.T) {
	tests := []struct {
		n    int
		want int64
	}{{0, 0}, {1, 16}, {2, 16}, {3, 32}, {20, 160}}
	for _, tt := range tests {
		if got := PairBytes(tt.n); got != tt.want {
			t.Errorf("PairBytes(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}
