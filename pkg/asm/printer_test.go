package asm

import (
	"bytes"
	"strings"
	"testing"
)

func printOne(inst Instruction) string {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.printInstruction(inst)
	return buf.String()
}

func TestPrintGeneralPurposeInstructions(t *testing.T) {
	tests := []struct {
		name string
		inst Instruction
		want string
	}{
		{"ADD", ADD{Rd: X0, Rn: X1, Rm: X2}, "\tadd\tx0, x1, x2\n"},
		{"ADD sp", ADD{Rd: X23, Rn: SP, Rm: X24}, "\tadd\tx23, sp, x24\n"},
		{"ADDi", ADDi{Rd: X0, Rn: X1, Imm: 16}, "\tadd\tx0, x1, #16\n"},
		{"SUB", SUB{Rd: SP, Rn: SP, Rm: X28}, "\tsub\tsp, sp, x28\n"},
		{"SUBi", SUBi{Rd: SP, Rn: SP, Imm: 64}, "\tsub\tsp, sp, #64\n"},
		{"MOVi", MOVi{Rd: X28, Imm: 4096}, "\tmov\tx28, #4096\n"},
		{"MOVZ", MOVZ{Rd: X28, Imm: 1}, "\tmovz\tx28, #1\n"},
		{"MOVK shifted", MOVK{Rd: X28, Imm: 2, Shift: 16}, "\tmovk\tx28, #2, lsl #16\n"},
		{"ADR", ADR{Rd: X20, Target: ".Lk_table1"}, "\tadr\tx20, .Lk_table1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := printOne(tt.inst); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintLoadStoreInstructions(t *testing.T) {
	tests := []struct {
		name string
		inst Instruction
		want string
	}{
		{"STP pre-index", STPpre{Rt1: X20, Rt2: X30, Rn: SP, Ofs: -16}, "\tstp\tx20, x30, [sp, #-16]!\n"},
		{"LDP post-index", LDPpost{Rt1: X20, Rt2: X30, Rn: SP, Ofs: 16}, "\tldp\tx20, x30, [sp], #16\n"},
		{"STR pre-index", STRpre{Rt: X20, Rn: SP, Ofs: -16}, "\tstr\tx20, [sp, #-16]!\n"},
		{"LDR post-index", LDRpost{Rt: X20, Rn: SP, Ofs: 16}, "\tldr\tx20, [sp], #16\n"},
		{"FLDRs no offset", FLDRs{Ft: 0, Rn: SP}, "\tldr\ts0, [sp]\n"},
		{"FLDRs with offset", FLDRs{Ft: 1, Rn: SP, Ofs: 64}, "\tldr\ts1, [sp, #64]\n"},
		{"FSTRs with offset", FSTRs{Ft: 0, Rn: SP, Ofs: 12}, "\tstr\ts0, [sp, #12]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := printOne(tt.inst); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintBranchInstructions(t *testing.T) {
	tests := []struct {
		name string
		inst Instruction
		want string
	}{
		{"BL local", BL{Target: ".Lf_sub2"}, "\tbl\t.Lf_sub2\n"},
		{"RET", RET{}, "\tret\n"},
		{"B.eq", Bcond{Cond: CondEQ, Target: ".Lf_end1"}, "\tb.eq\t.Lf_end1\n"},
		{"B.ne", Bcond{Cond: CondNE, Target: ".Lf_end1"}, "\tb.ne\t.Lf_end1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := printOne(tt.inst); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintSVEInstructions(t *testing.T) {
	tests := []struct {
		name string
		inst Instruction
		want string
	}{
		{"PTRUE", PTRUE{Pd: 7}, "\tptrue\tp7.s\n"},
		{"PORRS", PORRS{Pd: 2, Pg: 7, Pn: 1, Pm: 1}, "\torrs\tp2.b, p7/z, p1.b, p1.b\n"},
		{"ZMOV", ZMOV{Zd: 3, Zn: 0}, "\tmov\tz3.d, z0.d\n"},
		{"ZSEL", ZSEL{Zd: 0, Pg: 1, Zn: 2, Zm: 0}, "\tsel\tz0.s, p1, z2.s, z0.s\n"},
		{"ZMOVm", ZMOVm{Zd: 0, Pg: 1, Zn: 4}, "\tmov\tz0.s, p1/m, z4.s\n"},
		{"ZFMOVm", ZFMOVm{Zd: 0, Pg: 1, Imm: 1}, "\tfmov\tz0.s, p1/m, #1.0\n"},
		{"ZCPYm", ZCPYm{Zd: 5, Pg: 2, Imm: 0}, "\tmov\tz5.s, p2/m, #0\n"},
		{"ZFDUP", ZFDUP{Zd: 5, Imm: 0.5}, "\tfmov\tz5.s, #0.5\n"},
		{"ZFADD", ZFADD{Zd: 0, Zn: 1, Zm: 2}, "\tfadd\tz0.s, z1.s, z2.s\n"},
		{"ZFMUL", ZFMUL{Zd: 0, Zn: 0, Zm: 3}, "\tfmul\tz0.s, z0.s, z3.s\n"},
		{"ZFSUBi", ZFSUBi{Zdn: 0, Pg: 7, Imm: 1}, "\tfsub\tz0.s, p7/m, z0.s, #1.0\n"},
		{"ZFMULi", ZFMULi{Zdn: 0, Pg: 7, Imm: 0.5}, "\tfmul\tz0.s, p7/m, z0.s, #0.5\n"},
		{"ZFMAXNMi", ZFMAXNMi{Zdn: 0, Pg: 7, Imm: 0}, "\tfmaxnm\tz0.s, p7/m, z0.s, #0.0\n"},
		{"ZFMINNM", ZFMINNM{Zdn: 0, Pg: 7, Zm: 4}, "\tfminnm\tz0.s, p7/m, z0.s, z4.s\n"},
		{"ZFDIV", ZFDIV{Zdn: 0, Pg: 7, Zm: 4}, "\tfdiv\tz0.s, p7/m, z0.s, z4.s\n"},
		{"ZFMAD", ZFMAD{Zdn: 3, Pg: 7, Zm: 1, Za: 0}, "\tfmad\tz3.s, p7/m, z1.s, z0.s\n"},
		{"ZFMLA", ZFMLA{Zda: 3, Pg: 7, Zn: 1, Zm: 2}, "\tfmla\tz3.s, p7/m, z1.s, z2.s\n"},
		{"ZFMLS", ZFMLS{Zda: 3, Pg: 7, Zn: 1, Zm: 2}, "\tfmls\tz3.s, p7/m, z1.s, z2.s\n"},
		{"ZFABS", ZFABS{Zd: 0, Pg: 7, Zn: 0}, "\tfabs\tz0.s, p7/m, z0.s\n"},
		{"ZFRINTM", ZFRINTM{Zd: 1, Pg: 7, Zn: 0}, "\tfrintm\tz1.s, p7/m, z0.s\n"},
		{"ZFCVTZS", ZFCVTZS{Zd: 1, Pg: 7, Zn: 1}, "\tfcvtzs\tz1.s, p7/m, z1.s\n"},
		{"ZADD", ZADD{Zd: 1, Zn: 1, Zm: 2}, "\tadd\tz1.s, z1.s, z2.s\n"},
		{"ZAND", ZAND{Zd: 1, Zn: 1, Zm: 2}, "\tand\tz1.d, z1.d, z2.d\n"},
		{"ZANDi", ZANDi{Zdn: 4, Imm: 0x1f}, "\tand\tz4.s, z4.s, #0x1f\n"},
		{"ZLSLi", ZLSLi{Zd: 1, Zn: 1, Shift: 23}, "\tlsl\tz1.s, z1.s, #23\n"},
		{"ZLSRi", ZLSRi{Zd: 4, Zn: 4, Shift: 22}, "\tlsr\tz4.s, z4.s, #22\n"},
		{"ZFCM", ZFCM{Cond: FCmpGT, Pd: 1, Pg: 7, Zn: 0, Zm: 2}, "\tfcmgt\tp1.s, p7/z, z0.s, z2.s\n"},
		{"ZFCMz", ZFCMz{Cond: FCmpLE, Pd: 1, Pg: 7, Zn: 0}, "\tfcmle\tp1.s, p7/z, z0.s, #0.0\n"},
		{"ZCMPi", ZCMPi{Cond: FCmpEQ, Pd: 1, Pg: 7, Zn: 3, Imm: 0}, "\tcmpeq\tp1.s, p7/z, z3.s, #0\n"},
		{"ZLD1W", ZLD1W{Zt: 0, Pg: 7, Rn: X28}, "\tld1w\t{z0.s}, p7/z, [x28]\n"},
		{"ZST1W", ZST1W{Zt: 0, Pg: 7, Rn: X23}, "\tst1w\t{z0.s}, p7, [x23]\n"},
		{"ZLD1Wg", ZLD1Wg{Zt: 2, Pg: 7, Rn: X30, Zm: 4}, "\tld1w\t{z2.s}, p7/z, [x30, z4.s, uxtw #2]\n"},
		{"ZSTR", ZSTR{Zt: 9, Rn: X23}, "\tstr\tz9, [x23]\n"},
		{"PLDR", PLDR{Pt: 3, Rn: X24}, "\tldr\tp3, [x24]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := printOne(tt.inst); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintDataDirectives(t *testing.T) {
	tests := []struct {
		name string
		inst Instruction
		want string
	}{
		{"align 64", Align{Bytes: 64}, "\t.p2align\t6\n"},
		{"word", Word{Val: 0x3f800000}, "\t.word\t0x3f800000\n"},
		{"word small", Word{Val: 0x1f}, "\t.word\t0x0000001f\n"},
		{"label", LabelDef{Name: ".Lk_table1"}, ".Lk_table1:\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := printOne(tt.inst); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintSymbolCall(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf, isDarwin: false}
	p.printInstruction(BL{Target: "powf", IsSymbol: true})
	if got := buf.String(); got != "\tbl\tpowf\n" {
		t.Errorf("linux: got %q", got)
	}

	buf.Reset()
	p = &Printer{w: &buf, isDarwin: true}
	p.printInstruction(BL{Target: "powf", IsSymbol: true})
	if got := buf.String(); got != "\tbl\t_powf\n" {
		t.Errorf("darwin: got %q", got)
	}
}

func TestPrintFunction(t *testing.T) {
	fn := NewFunction("kernel")
	fn.Append(PTRUE{Pd: 7})
	fn.Append(ZFABS{Zd: 0, Pg: 7, Zn: 0})
	fn.Append(RET{})

	var buf bytes.Buffer
	p := &Printer{w: &buf, isDarwin: false}
	p.PrintProgram(&Program{Functions: []Function{*fn}})
	out := buf.String()

	for _, want := range []string{
		"\t.arch\tarmv8.2-a+sve\n",
		"\t.text\n",
		"\t.global\tkernel\n",
		"\t.type\tkernel, %function\n",
		"kernel:\n",
		"\tptrue\tp7.s\n",
		"\tfabs\tz0.s, p7/m, z0.s\n",
		"\tret\n",
		"\t.size\tkernel, .-kernel\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintUnknownInstruction(t *testing.T) {
	var unknown struct{ Instruction }
	got := printOne(unknown)
	if !strings.Contains(got, "unknown instruction") {
		t.Errorf("got %q", got)
	}
}

func TestLog2(t *testing.T) {
	tests := []struct{ in, want int }{{1, 0}, {4, 2}, {16, 4}, {64, 6}}
	for _, tt := range tests {
		if got := log2(tt.in); got != tt.want {
			t.Errorf("log2(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFloatImmediate(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{0, "#0.0"},
		{0.5, "#0.5"},
		{1, "#1.0"},
		{2, "#2.0"},
		{-1, "#-1.0"},
	}
	for _, tt := range tests {
		if got := fimm(tt.in); got != tt.want {
			t.Errorf("fimm(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
