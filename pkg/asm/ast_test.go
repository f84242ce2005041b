package asm

import "testing"

func TestCondCodeString(t *testing.T) {
	tests := []struct {
		cond CondCode
		want string
	}{
		{CondEQ, "eq"},
		{CondNE, "ne"},
		{CondMI, "mi"},
		{CondPL, "pl"},
		{CondCode(100), "??"}, // invalid
	}
	for _, tt := range tests {
		if got := tt.cond.String(); got != tt.want {
			t.Errorf("CondCode(%d).String() = %q, want %q", tt.cond, got, tt.want)
		}
	}
}

func TestFCmpString(t *testing.T) {
	tests := []struct {
		cond FCmp
		want string
	}{
		{FCmpEQ, "eq"},
		{FCmpNE, "ne"},
		{FCmpGT, "gt"},
		{FCmpGE, "ge"},
		{FCmpLT, "lt"},
		{FCmpLE, "le"},
		{FCmp(42), "??"},
	}
	for _, tt := range tests {
		if got := tt.cond.String(); got != tt.want {
			t.Errorf("FCmp(%d).String() = %q, want %q", tt.cond, got, tt.want)
		}
	}
}

func TestRegisterString(t *testing.T) {
	tests := []struct {
		reg  interface{ String() string }
		want string
	}{
		{X0, "x0"},
		{X20, "x20"},
		{X30, "x30"},
		{SP, "sp"},
		{ZReg(31), "z31"},
		{PReg(7), "p7"},
	}
	for _, tt := range tests {
		if got := tt.reg.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestInstructionInterface(t *testing.T) {
	// Verify all instruction types implement the Instruction interface
	var _ Instruction = ADD{}
	var _ Instruction = ADDi{}
	var _ Instruction = SUB{}
	var _ Instruction = SUBi{}
	var _ Instruction = MOVi{}
	var _ Instruction = MOVZ{}
	var _ Instruction = MOVK{}
	var _ Instruction = ADR{}
	var _ Instruction = STPpre{}
	var _ Instruction = LDPpost{}
	var _ Instruction = FLDRs{}
	var _ Instruction = FSTRs{}
	var _ Instruction = BL{}
	var _ Instruction = RET{}
	var _ Instruction = Bcond{}
	var _ Instruction = LabelDef{}
	var _ Instruction = Align{}
	var _ Instruction = Word{}
	var _ Instruction = PTRUE{}
	var _ Instruction = PORRS{}
	var _ Instruction = ZMOV{}
	var _ Instruction = ZSEL{}
	var _ Instruction = ZFMAD{}
	var _ Instruction = ZLD1Wg{}
	var _ Instruction = PSTR{}
}

func TestFunctionAppend(t *testing.T) {
	fn := NewFunction("k")
	fn.Append(PTRUE{Pd: 7})
	fn.AppendLabel(".Lk_end1")
	fn.Append(RET{})

	if len(fn.Code) != 3 {
		t.Fatalf("len(Code) = %d, want 3", len(fn.Code))
	}
	if def, ok := fn.Code[1].(LabelDef); !ok || def.Name != ".Lk_end1" {
		t.Errorf("Code[1] = %#v, want LabelDef .Lk_end1", fn.Code[1])
	}
}

func TestNewLabelIsUnique(t *testing.T) {
	fn := NewFunction("kern")
	a := fn.NewLabel("end")
	b := fn.NewLabel("end")
	if a == b {
		t.Errorf("labels collide: %s", a)
	}
	if a != ".Lkern_end1" {
		t.Errorf("first label = %q, want .Lkern_end1", a)
	}
}

func TestLoadImm(t *testing.T) {
	tests := []struct {
		name string
		val  uint64
		want []Instruction
	}{
		{"small", 42, []Instruction{MOVi{Rd: X28, Imm: 42}}},
		{"max 16-bit", 65535, []Instruction{MOVi{Rd: X28, Imm: 65535}}},
		{"two halves", 0x12345, []Instruction{
			MOVZ{Rd: X28, Imm: 0x2345},
			MOVK{Rd: X28, Imm: 0x1, Shift: 16},
		}},
		{"skip zero half", 0x1_0000_0000, []Instruction{
			MOVZ{Rd: X28, Imm: 0},
			MOVK{Rd: X28, Imm: 1, Shift: 32},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := NewFunction("k")
			LoadImm(fn, X28, tt.val)
			if len(fn.Code) != len(tt.want) {
				t.Fatalf("got %d instructions %v, want %v", len(fn.Code), fn.Code, tt.want)
			}
			for i := range tt.want {
				if fn.Code[i] != tt.want[i] {
					t.Errorf("[%d] = %#v, want %#v", i, fn.Code[i], tt.want[i])
				}
			}
		})
	}
}

func TestAddImm(t *testing.T) {
	tests := []struct {
		name string
		imm  int64
		want []Instruction
	}{
		{"small positive", 64, []Instruction{ADDi{Rd: X23, Rn: SP, Imm: 64}}},
		{"small negative", -16, []Instruction{SUBi{Rd: X23, Rn: SP, Imm: 16}}},
		{"large positive", 8192, []Instruction{
			MOVi{Rd: X28, Imm: 8192},
			ADD{Rd: X23, Rn: SP, Rm: X28},
		}},
		{"large negative", -8192, []Instruction{
			MOVi{Rd: X28, Imm: 8192},
			SUB{Rd: X23, Rn: SP, Rm: X28},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := NewFunction("k")
			AddImm(fn, X23, SP, tt.imm, X28)
			if len(fn.Code) != len(tt.want) {
				t.Fatalf("got %v, want %v", fn.Code, tt.want)
			}
			for i := range tt.want {
				if fn.Code[i] != tt.want[i] {
					t.Errorf("[%d] = %#v, want %#v", i, fn.Code[i], tt.want[i])
				}
			}
		})
	}
}
