package eltwise

import "github.com/raymyers/ralph-eltwise/pkg/table"

// needs records which predefined sub-tables an algorithm reads, directly
// or through a shared subroutine.
type needs struct {
	exp, tanh, log, softRelu, geluTanh, geluErf bool
}

func needsOf(a Alg) needs {
	n := needs{
		exp:      a == Elu || a == Exp || a == Logistic || a == Swish,
		tanh:     a == Tanh,
		log:      a == Log,
		softRelu: a == SoftRelu,
		geluTanh: a == GeluTanh,
		geluErf:  a == GeluErf,
	}
	// soft_relu inlines the exp reduction; gelu_erf calls it.
	n.exp = n.exp || n.softRelu || n.geluErf
	n.tanh = n.tanh || n.geluTanh
	return n
}

// registerTable fills t with everything a needs. Scale, alpha and beta come
// first so their offsets do not depend on the algorithm.
func registerTable(t *table.Table, a Alg, scale, alpha, beta float32) {
	t.Push(table.Scale, table.F32(scale), true)
	t.Push(table.Alpha, table.F32(alpha), true)
	t.Push(table.Beta, table.F32(beta), true)
	t.PushAll(table.CommonValues)

	n := needsOf(a)
	if n.exp {
		t.PushAll(table.ExpConsts)
		t.PushAll(table.ExpPolynomial)
	}
	if n.tanh {
		t.PushAll(table.TanhConsts)
		t.PushAll(table.TanhPolynomialTable)
	}
	if n.softRelu {
		t.PushAll(table.SoftReluConsts)
		t.PushAll(table.SoftReluPolynomial)
	}
	if n.geluTanh {
		t.PushAll(table.GeluTanhConsts)
	}
	if n.geluErf {
		t.PushAll(table.GeluErfConsts)
		t.PushAll(table.GeluErfPolynomial)
	}
	if n.log {
		t.PushAll(table.LogConsts)
		t.PushAll(table.LogPolynomial)
		t.PushAll(table.LogPredefinedValues)
	}
}
