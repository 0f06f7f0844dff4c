package emu

import "github.com/CyberSME/flexus/timing/memop"

const (
	pageBits = 12
	pageSize = 1 << pageBits
)

// Memory is a sparse, little-endian byte-addressed memory. Bytes never
// written read as 0.
type Memory struct {
	pages map[uint64]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[pageSize]byte)}
}

func (m *Memory) page(addr uint64, create bool) *[pageSize]byte {
	n := addr >> pageBits

	p, ok := m.pages[n]
	if !ok && create {
		p = new([pageSize]byte)
		m.pages[n] = p
	}

	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}

	return p[addr&(pageSize-1)]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, v byte) {
	m.page(addr, true)[addr&(pageSize-1)] = v
}

// Read reads size bytes starting at addr.
func (m *Memory) Read(addr uint64, size memop.Size) uint64 {
	var v uint64
	for i := uint64(0); i < uint64(size); i++ {
		v |= uint64(m.Read8(addr+i)) << (8 * i)
	}

	return v
}

// Write writes the low size bytes of v starting at addr.
func (m *Memory) Write(addr uint64, size memop.Size, v uint64) {
	for i := uint64(0); i < uint64(size); i++ {
		m.Write8(addr+i, byte(v>>(8*i)))
	}
}

// Read32 reads a 32-bit value.
func (m *Memory) Read32(addr uint64) uint32 {
	return uint32(m.Read(addr, memop.Word))
}

// Write32 writes a 32-bit value.
func (m *Memory) Write32(addr uint64, v uint32) {
	m.Write(addr, memop.Word, uint64(v))
}

// Read64 reads a 64-bit value.
func (m *Memory) Read64(addr uint64) uint64 {
	return m.Read(addr, memop.DoubleWord)
}

// Write64 writes a 64-bit value.
func (m *Memory) Write64(addr uint64, v uint64) {
	m.Write(addr, memop.DoubleWord, v)
}

// Pages returns the number of pages that have been written.
func (m *Memory) Pages() int {
	return len(m.pages)
}
