// Package table builds the constant table that generated eltwise code reads
// its coefficients from.
//
// Entries are registered under an enumerated Key. Several entries may share a
// key, in which case they form an array addressed by index. Iteration order is
// key declaration order, then registration order within a key. Finalize
// assigns byte offsets in that order and Bytes renders the table image in the
// same order, so an offset always points at the bytes registered for it.
package table

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/btree"
)

// Key names a constant (or constant array) in the table.
type Key int

const (
	Scale Key = iota
	Alpha
	Beta
	Zero
	Half
	One
	Two
	MinusOne
	MinusTwo
	Ln2f
	PositiveMask
	SignMask
	ExponentBias
	ExpLog2ef
	ExpLnFltMax
	ExpLnFltMin
	ExpPol
	TanhIdxBias
	TanhIdxMask
	TanhLinearUbound
	TanhSaturationLbound
	TanhPolTable
	SoftReluOneTwentySix
	SoftReluMantissaSignMask
	SoftReluPol
	GeluTanhFittingConst
	GeluTanhFittingConstTimesThree
	GeluTanhSqrtTwoOverPi
	GeluErfApproxConst
	GeluErfOneOverSqrtTwo
	GeluErfOneOverSqrtPi
	GeluErfPol
	LogMinusInf
	LogQNaN
	LogMantissaMask
	LogFullKRegMask
	LogFiveBitOffset
	LogPol
	LogPredefinedVals
	numKeys
)

var keyNames = [numKeys]string{
	"scale", "alpha", "beta", "zero", "half", "one", "two", "minus_one",
	"minus_two", "ln2f", "positive_mask", "sign_mask", "exponent_bias",
	"exp_log2ef", "exp_ln_flt_max_f", "exp_ln_flt_min_f", "exp_pol",
	"tanh_idx_bias", "tanh_idx_mask", "tanh_linear_ubound",
	"tanh_saturation_lbound", "tanh_pol_table", "soft_relu_one_twenty_six",
	"soft_relu_mantissa_sign_mask", "soft_relu_pol", "gelu_tanh_fitting_const",
	"gelu_tanh_fitting_const_times_three", "gelu_tanh_sqrt_two_over_pi",
	"gelu_erf_approx_const", "gelu_erf_one_over_sqrt_two",
	"gelu_erf_one_over_sqrt_pi", "gelu_erf_pol", "log_minus_inf", "log_qnan",
	"log_mantissa_mask", "log_full_k_reg_mask", "log_five_bit_offset",
	"log_pol", "log_predefined_vals",
}

func (k Key) String() string {
	if k >= 0 && k < numKeys {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// Value is a registration request: a 32-bit pattern under a key, either
// broadcast to a whole vector or stored as a single lane.
type Value struct {
	Key   Key
	Val   uint32
	Bcast bool
}

// Entry is a registered value together with its byte offset. Off is only
// meaningful after Finalize.
type Entry struct {
	Key   Key
	Val   uint32
	Bcast bool
	Off   int
	seq   int
}

func entryLess(a, b Entry) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.seq < b.seq
}

// Table is an ordered multimap of constants. The zero value is not usable;
// call New.
type Table struct {
	vlen      int
	tree      *btree.BTreeG[Entry]
	seq       int
	size      int
	finalized bool
}

// New creates an empty table for vectors of vlen bytes.
func New(vlen int) *Table {
	if vlen <= 0 || vlen%4 != 0 {
		panic(fmt.Sprintf("table: bad vector length %d", vlen))
	}
	return &Table{
		vlen: vlen,
		tree: btree.NewG[Entry](8, entryLess),
	}
}

// F32 returns the bit pattern of f.
func F32(f float32) uint32 { return math.Float32bits(f) }

// VLen returns the vector width in bytes the table was laid out for.
func (t *Table) VLen() int { return t.vlen }

// Push registers one value. Pushing after Finalize is a programming error.
func (t *Table) Push(key Key, val uint32, bcast bool) {
	if t.finalized {
		panic(fmt.Sprintf("table: push of %s after finalize", key))
	}
	t.tree.ReplaceOrInsert(Entry{Key: key, Val: val, Bcast: bcast, seq: t.seq})
	t.seq++
}

// PushAll registers vals in order.
func (t *Table) PushAll(vals []Value) {
	for _, v := range vals {
		t.Push(v.Key, v.Val, v.Bcast)
	}
}

// EntryLen returns the number of bytes e occupies in the image.
func (t *Table) EntryLen(e Entry) int {
	if e.Bcast {
		return t.vlen
	}
	return 4
}

// Finalize assigns offsets. It may only be called once.
func (t *Table) Finalize() {
	if t.finalized {
		panic("table: finalized twice")
	}
	entries := t.collect()
	off := 0
	for _, e := range entries {
		e.Off = off
		off += t.EntryLen(e)
		t.tree.ReplaceOrInsert(e)
	}
	t.size = off
	t.finalized = true
}

// Finalized reports whether offsets have been assigned.
func (t *Table) Finalized() bool { return t.finalized }

func (t *Table) collect() []Entry {
	out := make([]Entry, 0, t.tree.Len())
	t.tree.Ascend(func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

func (t *Table) keyEntries(key Key) []Entry {
	var out []Entry
	t.tree.AscendRange(Entry{Key: key, seq: math.MinInt}, Entry{Key: key + 1, seq: math.MinInt}, func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Has reports whether at least one entry is registered under key.
func (t *Table) Has(key Key) bool {
	return t.Count(key) > 0
}

// Count returns the number of entries registered under key.
func (t *Table) Count(key Key) int {
	return len(t.keyEntries(key))
}

// Off returns the byte offset of the idx-th entry registered under key.
// Asking for an offset before Finalize, or for an entry that does not exist,
// is a programming error.
func (t *Table) Off(key Key, idx int) int {
	if !t.finalized {
		panic("table: offset requested before finalize")
	}
	es := t.keyEntries(key)
	if idx < 0 || idx >= len(es) {
		panic(fmt.Sprintf("table: no entry %s[%d] (have %d)", key, idx, len(es)))
	}
	return es[idx].Off
}

// Entries returns all entries in table order.
func (t *Table) Entries() []Entry {
	return t.collect()
}

// Len returns the number of registered entries.
func (t *Table) Len() int { return t.tree.Len() }

// Size returns the image size in bytes. Only valid after Finalize.
func (t *Table) Size() int { return t.size }

// Bytes renders the little-endian table image. Broadcast entries repeat
// their value across every 32-bit lane of a vector.
func (t *Table) Bytes() []byte {
	if !t.finalized {
		panic("table: bytes requested before finalize")
	}
	buf := make([]byte, 0, t.size)
	for _, e := range t.collect() {
		if len(buf) != e.Off {
			panic(fmt.Sprintf("table: %s at %d, expected offset %d", e.Key, len(buf), e.Off))
		}
		for n := t.EntryLen(e); n > 0; n -= 4 {
			buf = binary.LittleEndian.AppendUint32(buf, e.Val)
		}
	}
	return buf
}
