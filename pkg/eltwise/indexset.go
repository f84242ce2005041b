package eltwise

import (
	"fmt"

	"github.com/google/btree"
	"github.com/raymyers/ralph-eltwise/pkg/asm"
)

// IndexSet is an ordered set of vector register indices: the window a
// ComputeVectorRange call transforms in place.
type IndexSet struct {
	tree *btree.BTreeG[int]
}

// NewIndexSet returns a set holding idxs.
func NewIndexSet(idxs ...int) IndexSet {
	s := IndexSet{tree: btree.NewOrderedG[int](4)}
	for _, i := range idxs {
		s.Add(i)
	}
	return s
}

// RangeSet returns the set [start, end).
func RangeSet(start, end int) IndexSet {
	s := NewIndexSet()
	for i := start; i < end; i++ {
		s.Add(i)
	}
	return s
}

// Add inserts idx. Indices outside the register file are rejected.
func (s IndexSet) Add(idx int) {
	if idx < 0 || idx >= asm.NumVecs {
		panic(fmt.Sprintf("eltwise: register index %d out of range", idx))
	}
	s.tree.ReplaceOrInsert(idx)
}

// Len returns the number of indices in the set.
func (s IndexSet) Len() int {
	if s.tree == nil {
		return 0
	}
	return s.tree.Len()
}

// Has reports whether idx is in the set.
func (s IndexSet) Has(idx int) bool {
	return s.tree != nil && s.tree.Has(idx)
}

// Min returns the smallest index. The set must not be empty.
func (s IndexSet) Min() int {
	v, ok := s.tree.Min()
	if !ok {
		panic("eltwise: empty register set")
	}
	return v
}

// Max returns the largest index. The set must not be empty.
func (s IndexSet) Max() int {
	v, ok := s.tree.Max()
	if !ok {
		panic("eltwise: empty register set")
	}
	return v
}

// Slice returns the indices in ascending order.
func (s IndexSet) Slice() []int {
	out := make([]int, 0, s.Len())
	if s.tree == nil {
		return out
	}
	s.tree.Ascend(func(i int) bool {
		out = append(out, i)
		return true
	})
	return out
}

func (s IndexSet) String() string {
	return fmt.Sprint(s.Slice())
}
