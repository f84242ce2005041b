package asm

import "fmt"

// Emitter is the code-emission surface generators write into.
// *Function implements it.
type Emitter interface {
	Append(inst Instruction)
	AppendLabel(name Label)
	NewLabel(hint string) Label
}

var _ Emitter = (*Function)(nil)

func fmtLabel(fn, hint string, n int) string {
	return fmt.Sprintf(".L%s_%s%d", fn, hint, n)
}

// LoadImm materializes a 64-bit constant into dest
func LoadImm(e Emitter, dest XReg, val uint64) {
	if val <= 65535 {
		e.Append(MOVi{Rd: dest, Imm: int64(val)})
		return
	}
	e.Append(MOVZ{Rd: dest, Imm: uint16(val & 0xFFFF), Shift: 0})
	for shift := 16; shift < 64; shift += 16 {
		if part := uint16(val >> shift); part != 0 {
			e.Append(MOVK{Rd: dest, Imm: part, Shift: shift})
		}
	}
}

// AddImm emits dest = src + imm. Immediates that do not fit the 12-bit
// encoding are materialized in tmp first, so tmp must differ from src.
func AddImm(e Emitter, dest, src XReg, imm int64, tmp XReg) {
	switch {
	case imm >= 0 && imm < 4096:
		e.Append(ADDi{Rd: dest, Rn: src, Imm: imm})
	case imm < 0 && imm > -4096:
		e.Append(SUBi{Rd: dest, Rn: src, Imm: -imm})
	case imm > 0:
		LoadImm(e, tmp, uint64(imm))
		e.Append(ADD{Rd: dest, Rn: src, Rm: tmp})
	default:
		LoadImm(e, tmp, uint64(-imm))
		e.Append(SUB{Rd: dest, Rn: src, Rm: tmp})
	}
}

// SubImm emits dest = src - imm
func SubImm(e Emitter, dest, src XReg, imm int64, tmp XReg) {
	AddImm(e, dest, src, -imm, tmp)
}
