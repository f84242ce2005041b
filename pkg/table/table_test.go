package table

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func expectPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", want)
		}
		if msg, _ := r.(string); !strings.Contains(msg, want) {
			t.Fatalf("panic = %v, want it to contain %q", r, want)
		}
	}()
	fn()
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Scale, "scale"},
		{ExpLnFltMin, "exp_ln_flt_min_f"},
		{TanhPolTable, "tanh_pol_table"},
		{LogPredefinedVals, "log_predefined_vals"},
		{Key(999), "Key(999)"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("Key(%d).String() = %q, want %q", int(tt.key), got, tt.want)
		}
	}
}

func TestOrderIsKeyThenInsertion(t *testing.T) {
	tab := New(16)
	tab.Push(One, 1, true)
	tab.Push(Scale, 2, true)
	tab.Push(ExpPol, 3, true)
	tab.Push(One, 4, true)
	tab.Push(ExpPol, 5, true)
	tab.Finalize()

	var got []uint32
	for _, e := range tab.Entries() {
		got = append(got, e.Val)
	}
	want := []uint32{2, 1, 4, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestOffsets(t *testing.T) {
	tab := New(64)
	tab.Push(Scale, F32(1), true)
	tab.Push(TanhPolTable, 10, false)
	tab.Push(TanhPolTable, 11, false)
	tab.Push(LogPol, 12, true)
	tab.Finalize()

	tests := []struct {
		key  Key
		idx  int
		want int
	}{
		{Scale, 0, 0},
		{TanhPolTable, 0, 64},
		{TanhPolTable, 1, 68},
		{LogPol, 0, 72},
	}
	for _, tt := range tests {
		if got := tab.Off(tt.key, tt.idx); got != tt.want {
			t.Errorf("Off(%s, %d) = %d, want %d", tt.key, tt.idx, got, tt.want)
		}
	}
	if tab.Size() != 136 {
		t.Errorf("Size() = %d, want 136", tab.Size())
	}
	if len(tab.Bytes()) != tab.Size() {
		t.Errorf("len(Bytes()) = %d, want %d", len(tab.Bytes()), tab.Size())
	}
}

func TestBytesRoundTrip(t *testing.T) {
	for _, vlen := range []int{16, 32, 64} {
		tab := New(vlen)
		all := concat(CommonValues, ExpConsts, ExpPolynomial, TanhConsts,
			TanhPolynomialTable, SoftReluConsts, SoftReluPolynomial,
			GeluTanhConsts, GeluErfConsts, GeluErfPolynomial, LogConsts,
			LogPolynomial, LogPredefinedValues)
		tab.PushAll(all)
		tab.Finalize()
		img := tab.Bytes()

		seen := map[Key]int{}
		for _, e := range tab.Entries() {
			idx := seen[e.Key]
			seen[e.Key]++
			if off := tab.Off(e.Key, idx); off != e.Off {
				t.Fatalf("vlen %d: Off(%s, %d) = %d, entry says %d", vlen, e.Key, idx, off, e.Off)
			}
			for b := 0; b < tab.EntryLen(e); b += 4 {
				got := binary.LittleEndian.Uint32(img[e.Off+b:])
				if got != e.Val {
					t.Fatalf("vlen %d: %s[%d] byte %d = %#x, want %#x", vlen, e.Key, idx, b, got, e.Val)
				}
			}
		}
		if tab.Len() != len(all) {
			t.Errorf("vlen %d: Len() = %d, want %d", vlen, tab.Len(), len(all))
		}
	}
}

func TestSubTableShapes(t *testing.T) {
	tests := []struct {
		name string
		vals []Value
		want int
	}{
		{"common", CommonValues, 10},
		{"exp consts", ExpConsts, 3},
		{"exp pol", ExpPolynomial, 5},
		{"tanh consts", TanhConsts, 4},
		{"tanh bank", TanhPolynomialTable, (TanhDegree + 1) * TanhIntervals},
		{"soft_relu pol", SoftReluPolynomial, 9},
		{"gelu_erf pol", GeluErfPolynomial, 5},
		{"log consts", LogConsts, 5},
		{"log pol", LogPolynomial, 4},
		{"log table", LogPredefinedValues, 2 * LogTableSize},
	}
	for _, tt := range tests {
		if len(tt.vals) != tt.want {
			t.Errorf("%s: %d entries, want %d", tt.name, len(tt.vals), tt.want)
		}
	}
	for _, v := range TanhPolynomialTable {
		if v.Bcast {
			t.Fatal("tanh bank entries must be lane entries")
		}
	}
}

func TestKnownPatterns(t *testing.T) {
	if math.Float32frombits(CommonValues[2].Val) != 1 {
		t.Errorf("one = %#x", CommonValues[2].Val)
	}
	if got := math.Float32frombits(ExpConsts[0].Val); math.Abs(float64(got)-math.Log2E) > 1e-6 {
		t.Errorf("log2e = %v", got)
	}
	// bucket 0 of the log table is r = 1 with term -127*ln2
	if math.Float32frombits(LogPredefinedValues[0].Val) != 1 {
		t.Errorf("log r_0 = %#x", LogPredefinedValues[0].Val)
	}
	term := float64(math.Float32frombits(LogPredefinedValues[1].Val))
	if math.Abs(term+127*math.Ln2) > 1e-4 {
		t.Errorf("log term_0 = %v", term)
	}
	// last coefficient of the degree-0 row is tanh saturation
	if tanhBank[0][TanhIntervals-1] != 0x3f800000 {
		t.Errorf("tanh bank[0][31] = %#x", tanhBank[0][TanhIntervals-1])
	}
}

func TestMisuse(t *testing.T) {
	t.Run("push after finalize", func(t *testing.T) {
		tab := New(16)
		tab.Finalize()
		expectPanic(t, "after finalize", func() { tab.Push(One, 1, true) })
	})
	t.Run("off before finalize", func(t *testing.T) {
		tab := New(16)
		tab.Push(One, 1, true)
		expectPanic(t, "before finalize", func() { tab.Off(One, 0) })
	})
	t.Run("missing entry", func(t *testing.T) {
		tab := New(16)
		tab.Push(One, 1, true)
		tab.Finalize()
		expectPanic(t, "no entry", func() { tab.Off(One, 1) })
		expectPanic(t, "no entry", func() { tab.Off(LogPol, 0) })
	})
	t.Run("double finalize", func(t *testing.T) {
		tab := New(16)
		tab.Finalize()
		expectPanic(t, "finalized twice", tab.Finalize)
	})
	t.Run("bad vlen", func(t *testing.T) {
		expectPanic(t, "bad vector length", func() { New(6) })
	})
}

func TestHasAndCount(t *testing.T) {
	tab := New(16)
	tab.PushAll(ExpPolynomial)
	if !tab.Has(ExpPol) || tab.Has(LogPol) {
		t.Errorf("Has: exp_pol=%v log_pol=%v", tab.Has(ExpPol), tab.Has(LogPol))
	}
	if got := tab.Count(ExpPol); got != 5 {
		t.Errorf("Count(exp_pol) = %d, want 5", got)
	}
}
