package emu

import (
	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/uarch"
)

// Thread is the architectural state of one hardware thread: its own
// registers over a memory it may share with other threads.
type Thread struct {
	Regs   *RegFile
	Memory *Memory

	committed uint64
}

// NewThread creates a thread with zeroed registers starting at pc.
func NewThread(memory *Memory, pc uint64) *Thread {
	return &Thread{
		Regs:   &RegFile{PC: pc},
		Memory: memory,
	}
}

// ReadRegister reads an architectural register.
func (t *Thread) ReadRegister(r uarch.ArchReg) uint64 {
	return t.Regs.ReadReg(r)
}

// WriteRegister commits a register value.
func (t *Thread) WriteRegister(r uarch.ArchReg, v uint64) {
	t.Regs.WriteReg(r, v)
}

// ReadMemory reads size bytes of memory.
func (t *Thread) ReadMemory(addr uint64, size memop.Size) uint64 {
	return t.Memory.Read(addr, size)
}

// WriteMemory writes size bytes of memory.
func (t *Thread) WriteMemory(addr uint64, size memop.Size, v uint64) {
	t.Memory.Write(addr, size, v)
}

// CommitPC records the retirement of one instruction.
func (t *Thread) CommitPC(pc uint64) {
	t.Regs.PC = pc
	t.committed++
}

// Committed returns the number of retired instructions.
func (t *Thread) Committed() uint64 {
	return t.committed
}
