// Package asm defines the AArch64/SVE assembly representation.
// Generated eltwise kernels are built as a list of these instructions and
// either printed in GNU as syntax or executed by pkg/sim.
package asm

// Label represents a branch or data target label
type Label string

// --- Instruction Interface ---

// Instruction is the interface for AArch64 and SVE instructions
type Instruction interface {
	implInstruction()
}

// --- General-Purpose Data Processing ---

// ADD - Add (64-bit)
type ADD struct {
	Rd, Rn, Rm XReg
}

// ADDi - Add immediate (0..4095)
type ADDi struct {
	Rd, Rn XReg
	Imm    int64
}

// SUBi - Subtract immediate (0..4095)
type SUBi struct {
	Rd, Rn XReg
	Imm    int64
}

// SUB - Subtract (64-bit)
type SUB struct {
	Rd, Rn, Rm XReg
}

// MOVi - Move immediate (0..65535)
type MOVi struct {
	Rd  XReg
	Imm int64
}

// MOVZ - Move wide with zero
type MOVZ struct {
	Rd    XReg
	Imm   uint16
	Shift int // 0, 16, 32, or 48
}

// MOVK - Move wide with keep
type MOVK struct {
	Rd    XReg
	Imm   uint16
	Shift int
}

// ADR - Compute PC-relative address
type ADR struct {
	Rd     XReg
	Target Label
}

// --- Load/Store ---

// STPpre - Store pair with pre-index: stp rt1, rt2, [rn, #ofs]!
type STPpre struct {
	Rt1, Rt2 XReg
	Rn       XReg
	Ofs      int64
}

// LDPpost - Load pair with post-index: ldp rt1, rt2, [rn], #ofs
type LDPpost struct {
	Rt1, Rt2 XReg
	Rn       XReg
	Ofs      int64
}

// STRpre - Store register with pre-index: str rt, [rn, #ofs]!
type STRpre struct {
	Rt  XReg
	Rn  XReg
	Ofs int64
}

// LDRpost - Load register with post-index: ldr rt, [rn], #ofs
type LDRpost struct {
	Rt  XReg
	Rn  XReg
	Ofs int64
}

// FLDRs - Load single-precision float into lane 0 of Ft (upper lanes zeroed)
type FLDRs struct {
	Ft  ZReg
	Rn  XReg
	Ofs int64
}

// FSTRs - Store lane 0 of Ft as a single-precision float
type FSTRs struct {
	Ft  ZReg
	Rn  XReg
	Ofs int64
}

// --- Branches ---

// BL - Branch with link (call). IsSymbol marks an external function.
type BL struct {
	Target   Label
	IsSymbol bool
}

// RET - Return (branch to LR)
type RET struct{}

// Bcond represents a conditional branch (B.cond)
type Bcond struct {
	Cond   CondCode
	Target Label
}

// CondCode represents ARM64 condition codes
type CondCode int

const (
	CondEQ CondCode = iota // Equal (Z=1)
	CondNE                 // Not equal (Z=0)
	CondMI                 // Minus / first active (N=1)
	CondPL                 // Plus / no first active (N=0)
)

func (c CondCode) String() string {
	names := []string{"eq", "ne", "mi", "pl"}
	if int(c) < len(names) {
		return names[c]
	}
	return "??"
}

// LabelDef defines a label at the current position
type LabelDef struct {
	Name Label
}

// --- Data Directives ---

// Align pads the current position to a multiple of Bytes
type Align struct {
	Bytes int
}

// Word emits one 32-bit little-endian data word
type Word struct {
	Val uint32
}

// --- SVE Predicates ---

// PTRUE - Set all .s elements of Pd active
type PTRUE struct {
	Pd PReg
}

// PORRS - Predicate OR, setting flags: orrs pd.b, pg/z, pn.b, pm.b
type PORRS struct {
	Pd, Pg, Pn, Pm PReg
}

// --- SVE Moves and Selects ---

// ZMOV - Copy whole vector: mov zd.d, zn.d
type ZMOV struct {
	Zd, Zn ZReg
}

// ZSEL - Select: zd = pg ? zn : zm
type ZSEL struct {
	Zd     ZReg
	Pg     PReg
	Zn, Zm ZReg
}

// ZMOVm - Merging move: active lanes of Zd take Zn
type ZMOVm struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// ZFMOVm - Merging float immediate move: fmov zd.s, pg/m, #imm
type ZFMOVm struct {
	Zd  ZReg
	Pg  PReg
	Imm float32
}

// ZCPYm - Merging integer immediate move: mov zd.s, pg/m, #imm
type ZCPYm struct {
	Zd  ZReg
	Pg  PReg
	Imm int32
}

// ZFDUP - Broadcast float immediate: fmov zd.s, #imm
type ZFDUP struct {
	Zd  ZReg
	Imm float32
}

// --- SVE Floating-Point Arithmetic (unpredicated) ---

// ZFADD - zd = zn + zm
type ZFADD struct {
	Zd, Zn, Zm ZReg
}

// ZFSUB - zd = zn - zm
type ZFSUB struct {
	Zd, Zn, Zm ZReg
}

// ZFMUL - zd = zn * zm
type ZFMUL struct {
	Zd, Zn, Zm ZReg
}

// --- SVE Floating-Point Arithmetic (predicated, destructive) ---

// ZFADDi - zdn += imm (imm is 0.5 or 1.0)
type ZFADDi struct {
	Zdn ZReg
	Pg  PReg
	Imm float32
}

// ZFSUBi - zdn -= imm (imm is 0.5 or 1.0)
type ZFSUBi struct {
	Zdn ZReg
	Pg  PReg
	Imm float32
}

// ZFMULi - zdn *= imm (imm is 0.5 or 2.0)
type ZFMULi struct {
	Zdn ZReg
	Pg  PReg
	Imm float32
}

// ZFMAXNMi - zdn = maxnm(zdn, imm) (imm is 0.0 or 1.0)
type ZFMAXNMi struct {
	Zdn ZReg
	Pg  PReg
	Imm float32
}

// ZFMINNMi - zdn = minnm(zdn, imm) (imm is 0.0 or 1.0)
type ZFMINNMi struct {
	Zdn ZReg
	Pg  PReg
	Imm float32
}

// ZFMAXNM - zdn = maxnm(zdn, zm)
type ZFMAXNM struct {
	Zdn ZReg
	Pg  PReg
	Zm  ZReg
}

// ZFMINNM - zdn = minnm(zdn, zm)
type ZFMINNM struct {
	Zdn ZReg
	Pg  PReg
	Zm  ZReg
}

// ZFDIV - zdn = zdn / zm
type ZFDIV struct {
	Zdn ZReg
	Pg  PReg
	Zm  ZReg
}

// ZFMAD - zdn = za + zdn * zm
type ZFMAD struct {
	Zdn ZReg
	Pg  PReg
	Zm  ZReg
	Za  ZReg
}

// ZFMLA - zda = zda + zn * zm
type ZFMLA struct {
	Zda    ZReg
	Pg     PReg
	Zn, Zm ZReg
}

// ZFMLS - zda = zda - zn * zm
type ZFMLS struct {
	Zda    ZReg
	Pg     PReg
	Zn, Zm ZReg
}

// --- SVE Unary (predicated, merging) ---

// ZFABS - Absolute value
type ZFABS struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// ZFNEG - Negate
type ZFNEG struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// ZFSQRT - Square root
type ZFSQRT struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// ZFRINTM - Round toward minus infinity
type ZFRINTM struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// ZFRINTI - Round using the current mode (nearest, ties to even)
type ZFRINTI struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// ZFRINTN - Round to nearest, ties to even
type ZFRINTN struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// ZFCVTZS - Float to signed int32, toward zero
type ZFCVTZS struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// ZSCVTF - Signed int32 to float
type ZSCVTF struct {
	Zd ZReg
	Pg PReg
	Zn ZReg
}

// --- SVE Integer and Bitwise ---

// ZADD - Integer add (.s)
type ZADD struct {
	Zd, Zn, Zm ZReg
}

// ZSUB - Integer subtract (.s)
type ZSUB struct {
	Zd, Zn, Zm ZReg
}

// ZAND - Bitwise AND (.d)
type ZAND struct {
	Zd, Zn, Zm ZReg
}

// ZORR - Bitwise OR (.d)
type ZORR struct {
	Zd, Zn, Zm ZReg
}

// ZEOR - Bitwise exclusive OR (.d)
type ZEOR struct {
	Zd, Zn, Zm ZReg
}

// ZANDi - Bitwise AND with a bitmask immediate (.s)
type ZANDi struct {
	Zdn ZReg
	Imm uint32
}

// ZLSLi - Logical shift left by immediate (.s)
type ZLSLi struct {
	Zd, Zn ZReg
	Shift  int
}

// ZLSRi - Logical shift right by immediate (.s)
type ZLSRi struct {
	Zd, Zn ZReg
	Shift  int
}

// --- SVE Compares ---

// FCmp is a floating-point vector comparison
type FCmp int

const (
	FCmpEQ FCmp = iota
	FCmpNE
	FCmpGT
	FCmpGE
	FCmpLT
	FCmpLE
)

func (c FCmp) String() string {
	switch c {
	case FCmpEQ:
		return "eq"
	case FCmpNE:
		return "ne"
	case FCmpGT:
		return "gt"
	case FCmpGE:
		return "ge"
	case FCmpLT:
		return "lt"
	case FCmpLE:
		return "le"
	}
	return "??"
}

// ZFCM - Float compare vectors: pd = pg && (zn <cond> zm)
type ZFCM struct {
	Cond   FCmp
	Pd, Pg PReg
	Zn, Zm ZReg
}

// ZFCMz - Float compare against #0.0
type ZFCMz struct {
	Cond   FCmp
	Pd, Pg PReg
	Zn     ZReg
}

// ZCMPi - Integer compare against an immediate (EQ or NE only)
type ZCMPi struct {
	Cond   FCmp
	Pd, Pg PReg
	Zn     ZReg
	Imm    int32
}

// --- SVE Memory ---

// ZLD1W - Contiguous load: ld1w {zt.s}, pg/z, [xn]
type ZLD1W struct {
	Zt ZReg
	Pg PReg
	Rn XReg
}

// ZST1W - Contiguous store: st1w {zt.s}, pg, [xn]
type ZST1W struct {
	Zt ZReg
	Pg PReg
	Rn XReg
}

// ZLD1Wg - Gather load of words at xn + zm*4: ld1w {zt.s}, pg/z, [xn, zm.s, uxtw #2]
type ZLD1Wg struct {
	Zt ZReg
	Pg PReg
	Rn XReg
	Zm ZReg
}

// ZLDR - Fill a whole vector register: ldr zt, [xn]
type ZLDR struct {
	Zt ZReg
	Rn XReg
}

// ZSTR - Spill a whole vector register: str zt, [xn]
type ZSTR struct {
	Zt ZReg
	Rn XReg
}

// PLDR - Fill a predicate register: ldr pt, [xn]
type PLDR struct {
	Pt PReg
	Rn XReg
}

// PSTR - Spill a predicate register: str pt, [xn]
type PSTR struct {
	Pt PReg
	Rn XReg
}

// --- Marker methods for Instruction interface ---

func (ADD) implInstruction()      {}
func (ADDi) implInstruction()     {}
func (SUBi) implInstruction()     {}
func (SUB) implInstruction()      {}
func (MOVi) implInstruction()     {}
func (MOVZ) implInstruction()     {}
func (MOVK) implInstruction()     {}
func (ADR) implInstruction()      {}
func (STPpre) implInstruction()   {}
func (LDPpost) implInstruction()  {}
func (STRpre) implInstruction()   {}
func (LDRpost) implInstruction()  {}
func (FLDRs) implInstruction()    {}
func (FSTRs) implInstruction()    {}
func (BL) implInstruction()       {}
func (RET) implInstruction()      {}
func (Bcond) implInstruction()    {}
func (LabelDef) implInstruction() {}
func (Align) implInstruction()    {}
func (Word) implInstruction()     {}
func (PTRUE) implInstruction()    {}
func (PORRS) implInstruction()    {}
func (ZMOV) implInstruction()     {}
func (ZSEL) implInstruction()     {}
func (ZMOVm) implInstruction()    {}
func (ZFMOVm) implInstruction()   {}
func (ZCPYm) implInstruction()    {}
func (ZFDUP) implInstruction()    {}
func (ZFADD) implInstruction()    {}
func (ZFSUB) implInstruction()    {}
func (ZFMUL) implInstruction()    {}
func (ZFADDi) implInstruction()   {}
func (ZFSUBi) implInstruction()   {}
func (ZFMULi) implInstruction()   {}
func (ZFMAXNMi) implInstruction() {}
func (ZFMINNMi) implInstruction() {}
func (ZFMAXNM) implInstruction()  {}
func (ZFMINNM) implInstruction()  {}
func (ZFDIV) implInstruction()    {}
func (ZFMAD) implInstruction()    {}
func (ZFMLA) implInstruction()    {}
func (ZFMLS) implInstruction()    {}
func (ZFABS) implInstruction()    {}
func (ZFNEG) implInstruction()    {}
func (ZFSQRT) implInstruction()   {}
func (ZFRINTM) implInstruction()  {}
func (ZFRINTI) implInstruction()  {}
func (ZFRINTN) implInstruction()  {}
func (ZFCVTZS) implInstruction()  {}
func (ZSCVTF) implInstruction()   {}
func (ZADD) implInstruction()     {}
func (ZSUB) implInstruction()     {}
func (ZAND) implInstruction()     {}
func (ZORR) implInstruction()     {}
func (ZEOR) implInstruction()     {}
func (ZANDi) implInstruction()    {}
func (ZLSLi) implInstruction()    {}
func (ZLSRi) implInstruction()    {}
func (ZFCM) implInstruction()     {}
func (ZFCMz) implInstruction()    {}
func (ZCMPi) implInstruction()    {}
func (ZLD1W) implInstruction()    {}
func (ZST1W) implInstruction()    {}
func (ZLD1Wg) implInstruction()   {}
func (ZLDR) implInstruction()     {}
func (ZSTR) implInstruction()     {}
func (PLDR) implInstruction()     {}
func (PSTR) implInstruction()     {}

// --- Function and Program ---

// Function represents an assembly function
type Function struct {
	Name   string
	Code   []Instruction
	labels int
}

// Program represents a complete assembly program
type Program struct {
	Functions []Function
}

// NewFunction creates a new assembly function
func NewFunction(name string) *Function {
	return &Function{
		Name: name,
		Code: make([]Instruction, 0),
	}
}

// Append adds an instruction to the function
func (f *Function) Append(inst Instruction) {
	f.Code = append(f.Code, inst)
}

// AppendLabel adds a label definition
func (f *Function) AppendLabel(name Label) {
	f.Code = append(f.Code, LabelDef{Name: name})
}

// NewLabel allocates a function-local label that has not been bound yet
func (f *Function) NewLabel(hint string) Label {
	f.labels++
	return Label(fmtLabel(f.Name, hint, f.labels))
}
