// Package isa describes the vector targets the eltwise generator can emit
// code for.
package isa

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/cpu"
)

// EnvVar overrides host detection in Detect.
const EnvVar = "RALPH_ELTWISE_ISA"

// ISA is a code generation target.
type ISA struct {
	Name string
	// VLen is the vector register width in bytes.
	VLen int
	// MaskInZ0 marks targets whose blend instruction reads its mask from
	// vector register 0, so z0 has to be reserved before anything else.
	MaskInZ0 bool
}

var (
	SVE128 = ISA{Name: "sve_128", VLen: 16}
	SVE256 = ISA{Name: "sve_256", VLen: 32}
	SVE512 = ISA{Name: "sve_512", VLen: 64}
	ASIMD  = ISA{Name: "asimd", VLen: 16, MaskInZ0: true}
)

// ErrUnknownISA is returned by Parse for names it does not recognize.
var ErrUnknownISA = errors.New("unknown isa")

// All lists the supported targets, narrowest first.
func All() []ISA {
	return []ISA{ASIMD, SVE128, SVE256, SVE512}
}

// Lanes returns the number of 32-bit lanes in one vector register.
func (t ISA) Lanes() int { return t.VLen / 4 }

func (t ISA) String() string { return t.Name }

// Parse maps a target name to its ISA. Names are case-insensitive and
// accept '-' in place of '_'.
func Parse(name string) (ISA, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for _, t := range All() {
		if t.Name == n {
			return t, nil
		}
	}
	return ISA{}, fmt.Errorf("%w %q", ErrUnknownISA, name)
}

// hasSVE is a variable so tests can pretend to run on other hosts.
var hasSVE = cpu.ARM64.HasSVE

// HostHasSVE reports whether the running CPU implements SVE.
func HostHasSVE() bool {
	return hasSVE
}

// Detect picks a target for the running host. RALPH_ELTWISE_ISA wins when
// set. SVE hosts get sve_512 because the vector length is not visible
// through the cpu feature bits; everything else gets asimd.
func Detect() (ISA, error) {
	if v := os.Getenv(EnvVar); v != "" && v != "auto" {
		return Parse(v)
	}
	if HostHasSVE() {
		return SVE512, nil
	}
	return ASIMD, nil
}

// Resolve is Parse with "auto" (or empty) delegating to Detect.
func Resolve(name string) (ISA, error) {
	if name == "" || strings.EqualFold(name, "auto") {
		return Detect()
	}
	return Parse(name)
}
