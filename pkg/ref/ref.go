// Package ref holds scalar reference implementations of every eltwise
// algorithm and its derivative, evaluated in float64.
package ref

import (
	"fmt"
	"math"

	"github.com/raymyers/ralph-eltwise/pkg/eltwise"
)

const (
	sqrt2OverPi   = 0.79788456080286535588 // sqrt(2/pi)
	geluTanhConst = 0.044715
)

func logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Forward returns f(x) for algorithm a.
func Forward(a eltwise.Alg, alpha, beta, x float64) float64 {
	switch a {
	case eltwise.Relu:
		if x > 0 {
			return x
		}
		return alpha * x
	case eltwise.Elu:
		if x > 0 {
			return x
		}
		return alpha * math.Expm1(x)
	case eltwise.Tanh:
		return math.Tanh(x)
	case eltwise.Square:
		return x * x
	case eltwise.Abs:
		return math.Abs(x)
	case eltwise.Sqrt:
		return math.Sqrt(x)
	case eltwise.Linear:
		return alpha*x + beta
	case eltwise.BoundedRelu:
		return math.Min(math.Max(x, 0), alpha)
	case eltwise.SoftRelu:
		if x > 30 {
			return x
		}
		return math.Log1p(math.Exp(x))
	case eltwise.Logistic:
		return logistic(x)
	case eltwise.Exp:
		return math.Exp(x)
	case eltwise.GeluTanh:
		return 0.5 * x * (1 + math.Tanh(sqrt2OverPi*x*(1+geluTanhConst*x*x)))
	case eltwise.Swish:
		return x * logistic(alpha*x)
	case eltwise.Log:
		return math.Log(x)
	case eltwise.Clip:
		return math.Min(math.Max(x, alpha), beta)
	case eltwise.Pow:
		return alpha * math.Pow(x, beta)
	case eltwise.GeluErf:
		return 0.5 * x * (1 + math.Erf(x/math.Sqrt2))
	case eltwise.Round:
		return math.RoundToEven(x)
	}
	panic(fmt.Sprintf("ref: no forward for %s", a))
}

// Backward returns f'(x) for algorithm a. Kinks take the value the
// generated code produces: the derivative is 0 at 0 for abs and the
// bounded variants, and alpha at 0 for relu.
func Backward(a eltwise.Alg, alpha, beta, x float64) float64 {
	switch a {
	case eltwise.Relu:
		if x > 0 {
			return 1
		}
		return alpha
	case eltwise.Elu:
		if x > 0 {
			return 1
		}
		return alpha * math.Exp(x)
	case eltwise.Tanh:
		t := math.Tanh(x)
		return 1 - t*t
	case eltwise.Square:
		return 2 * x
	case eltwise.Abs:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	case eltwise.Sqrt:
		return 0.5 / math.Sqrt(x)
	case eltwise.Linear:
		return alpha
	case eltwise.BoundedRelu:
		if x > 0 && x <= alpha {
			return 1
		}
		return 0
	case eltwise.SoftRelu:
		return logistic(x)
	case eltwise.Logistic:
		s := logistic(x)
		return s * (1 - s)
	case eltwise.Exp:
		return math.Exp(x)
	case eltwise.GeluTanh:
		g := sqrt2OverPi * x * (1 + 3*geluTanhConst*x*x)
		t := math.Tanh(sqrt2OverPi * x * (1 + geluTanhConst*x*x))
		return 0.5 * (1 + t) * (1 + g*(1-t))
	case eltwise.Swish:
		s := logistic(alpha * x)
		return s * (1 + alpha*x*(1-s))
	case eltwise.Log:
		return 1 / x
	case eltwise.Clip:
		if x > alpha && x <= beta {
			return 1
		}
		return 0
	case eltwise.Pow:
		if beta == 0 {
			return 0
		}
		return alpha * beta * math.Pow(x, beta-1)
	case eltwise.GeluErf:
		return 0.5*(1+math.Erf(x/math.Sqrt2)) + x*math.Exp(-x*x/2)/math.Sqrt(2*math.Pi)
	}
	panic(fmt.Sprintf("ref: no backward for %s", a))
}

// Eval dispatches on dir.
func Eval(a eltwise.Alg, dir eltwise.Direction, alpha, beta, x float64) float64 {
	if dir == eltwise.Backward {
		return Backward(a, alpha, beta, x)
	}
	return Forward(a, alpha, beta, x)
}

// Domain returns an interval of inputs on which a is defined and well
// conditioned enough to compare float32 code against.
func Domain(a eltwise.Alg) (lo, hi float64) {
	switch a {
	case eltwise.Sqrt, eltwise.Log, eltwise.Pow:
		return 0.05, 8
	case eltwise.Exp, eltwise.Elu:
		return -10, 10
	}
	return -6, 6
}
