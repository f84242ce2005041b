package sim

import (
	"encoding/binary"
	"fmt"
)

// segment is one contiguous, bounds-checked range of simulated memory.
type segment struct {
	name string
	base uint64
	data []byte
}

func (s *segment) contains(addr uint64, n int) bool {
	return addr >= s.base && addr+uint64(n) <= s.base+uint64(len(s.data))
}

// Memory is a small set of disjoint segments. Accesses that fall outside
// every segment fail with ErrFault.
type Memory struct {
	segs []*segment
}

func (m *Memory) add(name string, base uint64, size int) *segment {
	s := &segment{name: name, base: base, data: make([]byte, size)}
	m.segs = append(m.segs, s)
	return s
}

func (m *Memory) slice(addr uint64, n int) ([]byte, error) {
	for _, s := range m.segs {
		if s.contains(addr, n) {
			off := addr - s.base
			return s.data[off : off+uint64(n)], nil
		}
	}
	return nil, fmt.Errorf("%w: %d-byte access at %#x", ErrFault, n, addr)
}

// Read32 returns the little-endian word at addr.
func (m *Memory) Read32(addr uint64) (uint32, error) {
	b, err := m.slice(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Write32 stores a little-endian word at addr.
func (m *Memory) Write32(addr uint64, v uint32) error {
	b, err := m.slice(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

// Read64 returns the little-endian doubleword at addr.
func (m *Memory) Read64(addr uint64) (uint64, error) {
	b, err := m.slice(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Write64 stores a little-endian doubleword at addr.
func (m *Memory) Write64(addr uint64, v uint64) error {
	b, err := m.slice(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// ReadBytes copies n bytes starting at addr.
func (m *Memory) ReadBytes(addr uint64, n int) ([]byte, error) {
	b, err := m.slice(addr, n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}
