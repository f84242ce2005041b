package ref

import (
	"math"
	"testing"

	"github.com/raymyers/ralph-eltwise/pkg/eltwise"
)

func TestKnownValues(t *testing.T) {
	tests := []struct {
		alg          eltwise.Alg
		dir          eltwise.Direction
		alpha, beta  float64
		x, want      float64
	}{
		{eltwise.Relu, eltwise.Forward, 0.1, 0, -2, -0.2},
		{eltwise.Relu, eltwise.Backward, 0.1, 0, 0, 0.1},
		{eltwise.Linear, eltwise.Forward, 2, 1, 1, 3},
		{eltwise.Clip, eltwise.Forward, -1, 1, 5, 1},
		{eltwise.Clip, eltwise.Backward, -1, 1, 1, 1},
		{eltwise.Clip, eltwise.Backward, -1, 1, -1, 0},
		{eltwise.BoundedRelu, eltwise.Backward, 6, 0, 0, 0},
		{eltwise.Pow, eltwise.Forward, 3, 2, 2, 12},
		{eltwise.Pow, eltwise.Backward, 3, 2, 2, 12},
		{eltwise.Pow, eltwise.Backward, 3, 0, 2, 0},
		{eltwise.Abs, eltwise.Backward, 0, 0, 0, 0},
		{eltwise.Logistic, eltwise.Forward, 0, 0, 0, 0.5},
		{eltwise.SoftRelu, eltwise.Forward, 0, 0, 0, math.Ln2},
		{eltwise.Round, eltwise.Forward, 0, 0, 2.5, 2},
		{eltwise.GeluErf, eltwise.Forward, 0, 0, 0, 0},
		{eltwise.GeluTanh, eltwise.Backward, 0, 0, 0, 0.5},
		{eltwise.Swish, eltwise.Forward, 1, 0, 0, 0},
	}
	for _, tt := range tests {
		got := Eval(tt.alg, tt.dir, tt.alpha, tt.beta, tt.x)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s %s(%v) = %v, want %v", tt.alg, tt.dir, tt.x, got, tt.want)
		}
	}
}

// Derivatives agree with central differences away from kinks.
func TestBackwardMatchesDifferences(t *testing.T) {
	const h = 1e-6
	for _, a := range eltwise.Algs() {
		if !a.HasBackward() {
			continue
		}
		lo, hi := Domain(a)
		for _, x := range []float64{lo + 0.013, (lo+hi)/3 + 0.31, hi - 0.017} {
			alpha, beta := 0.75, 2.5
			if a == eltwise.Clip {
				alpha, beta = lo-1, hi+1
			}
			if a == eltwise.BoundedRelu {
				alpha = hi + 1
			}
			num := (Forward(a, alpha, beta, x+h) - Forward(a, alpha, beta, x-h)) / (2 * h)
			got := Backward(a, alpha, beta, x)
			if a == eltwise.Abs || a == eltwise.BoundedRelu || a == eltwise.Clip || a == eltwise.Relu {
				// piecewise; fine as long as x is not on a kink
				if math.Abs(num-got) > 1e-6 {
					t.Errorf("%s'(%v) = %v, differences give %v", a, x, got, num)
				}
				continue
			}
			if math.Abs(num-got) > 1e-4*math.Max(1, math.Abs(got)) {
				t.Errorf("%s'(%v) = %v, differences give %v", a, x, got, num)
			}
		}
	}
}

func TestNoBackwardForRound(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Backward(eltwise.Round, 0, 0, 1)
}
