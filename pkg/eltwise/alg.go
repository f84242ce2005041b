package eltwise

import (
	"fmt"
	"strings"
)

// Alg is an element-wise algorithm kind.
type Alg int

const (
	Relu Alg = iota
	Elu
	Tanh
	Square
	Abs
	Sqrt
	Linear
	BoundedRelu
	SoftRelu
	Logistic
	Exp
	GeluTanh
	Swish
	Log
	Clip
	Pow
	GeluErf
	Round
	numAlgs
)

var algNames = [numAlgs]string{
	"relu", "elu", "tanh", "square", "abs", "sqrt", "linear",
	"bounded_relu", "soft_relu", "logistic", "exp", "gelu_tanh", "swish",
	"log", "clip", "pow", "gelu_erf", "round",
}

func (a Alg) String() string {
	if a >= 0 && a < numAlgs {
		return algNames[a]
	}
	return fmt.Sprintf("Alg(%d)", int(a))
}

// Algs lists every algorithm kind in declaration order.
func Algs() []Alg {
	out := make([]Alg, numAlgs)
	for i := range out {
		out[i] = Alg(i)
	}
	return out
}

// ParseAlg maps a name such as "gelu_tanh" (or "gelu-tanh") to its Alg.
func ParseAlg(name string) (Alg, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, s := range algNames {
		if s == n {
			return Alg(i), nil
		}
	}
	return 0, fmt.Errorf("unknown algorithm %q", name)
}

// HasUseDst reports whether a has a backward variant that consumes the
// forward output instead of the original input.
func (a Alg) HasUseDst() bool {
	switch a {
	case Relu, Elu, Tanh, Sqrt, Logistic, Exp:
		return true
	}
	return false
}

// HasBackward reports whether a derivative is defined for a.
func (a Alg) HasBackward() bool {
	return a != Round
}

// Direction selects the forward function or its derivative.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts "forward"/"fwd" and "backward"/"bwd".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "fwd", "":
		return Forward, nil
	case "backward", "bwd":
		return Backward, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}
