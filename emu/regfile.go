// Package emu holds the architectural state that the timing cores read
// from and commit to: register files, a shared memory and the operations
// instructions apply to their operands.
package emu

import "github.com/CyberSME/flexus/timing/uarch"

// RegFile is the architectural register file of one thread.
type RegFile struct {
	// X holds the integer registers.
	X [uarch.NumIntRegs]uint64

	// F holds the raw bits of the floating point registers.
	F [uarch.NumFpRegs]uint64

	// PC is the address of the next instruction to commit.
	PC uint64
}

// ReadReg reads an architectural register. Unused slots read as 0.
func (r *RegFile) ReadReg(reg uarch.ArchReg) uint64 {
	switch {
	case reg < uarch.NumIntRegs:
		return r.X[reg]
	case reg < uarch.NumArchRegs:
		return r.F[reg-uarch.NumIntRegs]
	}

	return 0
}

// WriteReg writes an architectural register. Writes to unused slots are
// ignored.
func (r *RegFile) WriteReg(reg uarch.ArchReg, value uint64) {
	switch {
	case reg < uarch.NumIntRegs:
		r.X[reg] = value
	case reg < uarch.NumArchRegs:
		r.F[reg-uarch.NumIntRegs] = value
	}
}
