package asm

import (
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
)

// Printer outputs AArch64/SVE assembly in GNU as syntax
type Printer struct {
	w        io.Writer
	isDarwin bool
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, isDarwin: runtime.GOOS == "darwin"}
}

// PrintProgram outputs an entire program
func (p *Printer) PrintProgram(prog *Program) {
	fmt.Fprintf(p.w, "\t.arch\tarmv8.2-a+sve\n")
	fmt.Fprintf(p.w, "\t.text\n")
	for _, f := range prog.Functions {
		p.PrintFunction(f)
	}
}

// log2 returns the base-2 logarithm of n (assumes n is a power of 2)
func log2(n int) int {
	r := 0
	for n > 1 {
		n >>= 1
		r++
	}
	return r
}

// symbolName returns the symbol name with platform-appropriate prefix
func (p *Printer) symbolName(name string) string {
	if p.isDarwin {
		return "_" + name
	}
	return name
}

// PrintFunction outputs one function, including any inline data
func (p *Printer) PrintFunction(f Function) {
	name := p.symbolName(f.Name)
	fmt.Fprintf(p.w, "\t.align\t2\n")
	fmt.Fprintf(p.w, "\t.global\t%s\n", name)
	if !p.isDarwin {
		fmt.Fprintf(p.w, "\t.type\t%s, %%function\n", name)
	}
	fmt.Fprintf(p.w, "%s:\n", name)

	for _, inst := range f.Code {
		p.printInstruction(inst)
	}

	if !p.isDarwin {
		fmt.Fprintf(p.w, "\t.size\t%s, .-%s\n", name, name)
	}
	fmt.Fprintf(p.w, "\n")
}

// fimm formats a float immediate the way GNU as expects (#1.0, #0.5)
func fimm(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return "#" + s
}

func zs(z ZReg) string { return fmt.Sprintf("z%d.s", z) }
func zd(z ZReg) string { return fmt.Sprintf("z%d.d", z) }

func (p *Printer) printInstruction(inst Instruction) {
	switch i := inst.(type) {
	// Labels and data
	case LabelDef:
		fmt.Fprintf(p.w, "%s:\n", i.Name)
	case Align:
		fmt.Fprintf(p.w, "\t.p2align\t%d\n", log2(i.Bytes))
	case Word:
		fmt.Fprintf(p.w, "\t.word\t0x%08x\n", i.Val)

	// General-purpose
	case ADD:
		fmt.Fprintf(p.w, "\tadd\t%s, %s, %s\n", i.Rd, i.Rn, i.Rm)
	case ADDi:
		fmt.Fprintf(p.w, "\tadd\t%s, %s, #%d\n", i.Rd, i.Rn, i.Imm)
	case SUB:
		fmt.Fprintf(p.w, "\tsub\t%s, %s, %s\n", i.Rd, i.Rn, i.Rm)
	case SUBi:
		fmt.Fprintf(p.w, "\tsub\t%s, %s, #%d\n", i.Rd, i.Rn, i.Imm)
	case MOVi:
		fmt.Fprintf(p.w, "\tmov\t%s, #%d\n", i.Rd, i.Imm)
	case MOVZ:
		if i.Shift == 0 {
			fmt.Fprintf(p.w, "\tmovz\t%s, #%d\n", i.Rd, i.Imm)
		} else {
			fmt.Fprintf(p.w, "\tmovz\t%s, #%d, lsl #%d\n", i.Rd, i.Imm, i.Shift)
		}
	case MOVK:
		if i.Shift == 0 {
			fmt.Fprintf(p.w, "\tmovk\t%s, #%d\n", i.Rd, i.Imm)
		} else {
			fmt.Fprintf(p.w, "\tmovk\t%s, #%d, lsl #%d\n", i.Rd, i.Imm, i.Shift)
		}
	case ADR:
		fmt.Fprintf(p.w, "\tadr\t%s, %s\n", i.Rd, i.Target)

	// Load/store
	case STPpre:
		fmt.Fprintf(p.w, "\tstp\t%s, %s, [%s, #%d]!\n", i.Rt1, i.Rt2, i.Rn, i.Ofs)
	case LDPpost:
		fmt.Fprintf(p.w, "\tldp\t%s, %s, [%s], #%d\n", i.Rt1, i.Rt2, i.Rn, i.Ofs)
	case STRpre:
		fmt.Fprintf(p.w, "\tstr\t%s, [%s, #%d]!\n", i.Rt, i.Rn, i.Ofs)
	case LDRpost:
		fmt.Fprintf(p.w, "\tldr\t%s, [%s], #%d\n", i.Rt, i.Rn, i.Ofs)
	case FLDRs:
		if i.Ofs == 0 {
			fmt.Fprintf(p.w, "\tldr\ts%d, [%s]\n", i.Ft, i.Rn)
		} else {
			fmt.Fprintf(p.w, "\tldr\ts%d, [%s, #%d]\n", i.Ft, i.Rn, i.Ofs)
		}
	case FSTRs:
		if i.Ofs == 0 {
			fmt.Fprintf(p.w, "\tstr\ts%d, [%s]\n", i.Ft, i.Rn)
		} else {
			fmt.Fprintf(p.w, "\tstr\ts%d, [%s, #%d]\n", i.Ft, i.Rn, i.Ofs)
		}

	// Branches
	case BL:
		if i.IsSymbol {
			fmt.Fprintf(p.w, "\tbl\t%s\n", p.symbolName(string(i.Target)))
		} else {
			fmt.Fprintf(p.w, "\tbl\t%s\n", i.Target)
		}
	case RET:
		fmt.Fprintf(p.w, "\tret\n")
	case Bcond:
		fmt.Fprintf(p.w, "\tb.%s\t%s\n", i.Cond, i.Target)

	// Predicates
	case PTRUE:
		fmt.Fprintf(p.w, "\tptrue\t%s.s\n", i.Pd)
	case PORRS:
		fmt.Fprintf(p.w, "\torrs\t%s.b, %s/z, %s.b, %s.b\n", i.Pd, i.Pg, i.Pn, i.Pm)

	// Moves and selects
	case ZMOV:
		fmt.Fprintf(p.w, "\tmov\t%s, %s\n", zd(i.Zd), zd(i.Zn))
	case ZSEL:
		fmt.Fprintf(p.w, "\tsel\t%s, %s, %s, %s\n", zs(i.Zd), i.Pg, zs(i.Zn), zs(i.Zm))
	case ZMOVm:
		fmt.Fprintf(p.w, "\tmov\t%s, %s/m, %s\n", zs(i.Zd), i.Pg, zs(i.Zn))
	case ZFMOVm:
		fmt.Fprintf(p.w, "\tfmov\t%s, %s/m, %s\n", zs(i.Zd), i.Pg, fimm(i.Imm))
	case ZCPYm:
		fmt.Fprintf(p.w, "\tmov\t%s, %s/m, #%d\n", zs(i.Zd), i.Pg, i.Imm)
	case ZFDUP:
		fmt.Fprintf(p.w, "\tfmov\t%s, %s\n", zs(i.Zd), fimm(i.Imm))

	// Float arithmetic
	case ZFADD:
		fmt.Fprintf(p.w, "\tfadd\t%s, %s, %s\n", zs(i.Zd), zs(i.Zn), zs(i.Zm))
	case ZFSUB:
		fmt.Fprintf(p.w, "\tfsub\t%s, %s, %s\n", zs(i.Zd), zs(i.Zn), zs(i.Zm))
	case ZFMUL:
		fmt.Fprintf(p.w, "\tfmul\t%s, %s, %s\n", zs(i.Zd), zs(i.Zn), zs(i.Zm))
	case ZFADDi:
		p.predImm("fadd", i.Zdn, i.Pg, i.Imm)
	case ZFSUBi:
		p.predImm("fsub", i.Zdn, i.Pg, i.Imm)
	case ZFMULi:
		p.predImm("fmul", i.Zdn, i.Pg, i.Imm)
	case ZFMAXNMi:
		p.predImm("fmaxnm", i.Zdn, i.Pg, i.Imm)
	case ZFMINNMi:
		p.predImm("fminnm", i.Zdn, i.Pg, i.Imm)
	case ZFMAXNM:
		p.predBin("fmaxnm", i.Zdn, i.Pg, i.Zm)
	case ZFMINNM:
		p.predBin("fminnm", i.Zdn, i.Pg, i.Zm)
	case ZFDIV:
		p.predBin("fdiv", i.Zdn, i.Pg, i.Zm)
	case ZFMAD:
		fmt.Fprintf(p.w, "\tfmad\t%s, %s/m, %s, %s\n", zs(i.Zdn), i.Pg, zs(i.Zm), zs(i.Za))
	case ZFMLA:
		fmt.Fprintf(p.w, "\tfmla\t%s, %s/m, %s, %s\n", zs(i.Zda), i.Pg, zs(i.Zn), zs(i.Zm))
	case ZFMLS:
		fmt.Fprintf(p.w, "\tfmls\t%s, %s/m, %s, %s\n", zs(i.Zda), i.Pg, zs(i.Zn), zs(i.Zm))

	// Unary
	case ZFABS:
		p.unary("fabs", i.Zd, i.Pg, i.Zn)
	case ZFNEG:
		p.unary("fneg", i.Zd, i.Pg, i.Zn)
	case ZFSQRT:
		p.unary("fsqrt", i.Zd, i.Pg, i.Zn)
	case ZFRINTM:
		p.unary("frintm", i.Zd, i.Pg, i.Zn)
	case ZFRINTI:
		p.unary("frinti", i.Zd, i.Pg, i.Zn)
	case ZFRINTN:
		p.unary("frintn", i.Zd, i.Pg, i.Zn)
	case ZFCVTZS:
		p.unary("fcvtzs", i.Zd, i.Pg, i.Zn)
	case ZSCVTF:
		p.unary("scvtf", i.Zd, i.Pg, i.Zn)

	// Integer and bitwise
	case ZADD:
		fmt.Fprintf(p.w, "\tadd\t%s, %s, %s\n", zs(i.Zd), zs(i.Zn), zs(i.Zm))
	case ZSUB:
		fmt.Fprintf(p.w, "\tsub\t%s, %s, %s\n", zs(i.Zd), zs(i.Zn), zs(i.Zm))
	case ZAND:
		fmt.Fprintf(p.w, "\tand\t%s, %s, %s\n", zd(i.Zd), zd(i.Zn), zd(i.Zm))
	case ZORR:
		fmt.Fprintf(p.w, "\torr\t%s, %s, %s\n", zd(i.Zd), zd(i.Zn), zd(i.Zm))
	case ZEOR:
		fmt.Fprintf(p.w, "\teor\t%s, %s, %s\n", zd(i.Zd), zd(i.Zn), zd(i.Zm))
	case ZANDi:
		fmt.Fprintf(p.w, "\tand\t%s, %s, #0x%x\n", zs(i.Zdn), zs(i.Zdn), i.Imm)
	case ZLSLi:
		fmt.Fprintf(p.w, "\tlsl\t%s, %s, #%d\n", zs(i.Zd), zs(i.Zn), i.Shift)
	case ZLSRi:
		fmt.Fprintf(p.w, "\tlsr\t%s, %s, #%d\n", zs(i.Zd), zs(i.Zn), i.Shift)

	// Compares
	case ZFCM:
		fmt.Fprintf(p.w, "\tfcm%s\t%s.s, %s/z, %s, %s\n", i.Cond, i.Pd, i.Pg, zs(i.Zn), zs(i.Zm))
	case ZFCMz:
		fmt.Fprintf(p.w, "\tfcm%s\t%s.s, %s/z, %s, #0.0\n", i.Cond, i.Pd, i.Pg, zs(i.Zn))
	case ZCMPi:
		fmt.Fprintf(p.w, "\tcmp%s\t%s.s, %s/z, %s, #%d\n", i.Cond, i.Pd, i.Pg, zs(i.Zn), i.Imm)

	// Memory
	case ZLD1W:
		fmt.Fprintf(p.w, "\tld1w\t{%s}, %s/z, [%s]\n", zs(i.Zt), i.Pg, i.Rn)
	case ZST1W:
		fmt.Fprintf(p.w, "\tst1w\t{%s}, %s, [%s]\n", zs(i.Zt), i.Pg, i.Rn)
	case ZLD1Wg:
		fmt.Fprintf(p.w, "\tld1w\t{%s}, %s/z, [%s, %s, uxtw #2]\n", zs(i.Zt), i.Pg, i.Rn, zs(i.Zm))
	case ZLDR:
		fmt.Fprintf(p.w, "\tldr\t%s, [%s]\n", i.Zt, i.Rn)
	case ZSTR:
		fmt.Fprintf(p.w, "\tstr\t%s, [%s]\n", i.Zt, i.Rn)
	case PLDR:
		fmt.Fprintf(p.w, "\tldr\t%s, [%s]\n", i.Pt, i.Rn)
	case PSTR:
		fmt.Fprintf(p.w, "\tstr\t%s, [%s]\n", i.Pt, i.Rn)

	default:
		fmt.Fprintf(p.w, "\t// unknown instruction %T\n", inst)
	}
}

func (p *Printer) predImm(op string, z ZReg, pg PReg, imm float32) {
	fmt.Fprintf(p.w, "\t%s\t%s, %s/m, %s, %s\n", op, zs(z), pg, zs(z), fimm(imm))
}

func (p *Printer) predBin(op string, z ZReg, pg PReg, zm ZReg) {
	fmt.Fprintf(p.w, "\t%s\t%s, %s/m, %s, %s\n", op, zs(z), pg, zs(z), zs(zm))
}

func (p *Printer) unary(op string, zd ZReg, pg PReg, zn ZReg) {
	fmt.Fprintf(p.w, "\t%s\t%s, %s/m, %s\n", op, zs(zd), pg, zs(zn))
}
