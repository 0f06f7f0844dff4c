package uarch

import "github.com/CyberSME/flexus/timing/semantic"

type physReg struct {
	value   uint64
	ready   bool
	waiters []semantic.ActionID
}

// registerFile holds the renamed registers and the speculative rename map.
type registerFile struct {
	regs      []physReg
	free      []semantic.Reg
	renameMap [NumArchRegs]semantic.Reg
}

func newRegisterFile(numPhys int, backend FunctionalBackend) *registerFile {
	rf := &registerFile{
		regs: make([]physReg, numPhys),
	}

	for i := 0; i < NumArchRegs; i++ {
		rf.renameMap[i] = semantic.Reg(i)
		rf.regs[i].ready = true
		if backend != nil {
			rf.regs[i].value = backend.ReadRegister(ArchReg(i))
		}
	}

	for i := numPhys - 1; i >= NumArchRegs; i-- {
		rf.free = append(rf.free, semantic.Reg(i))
	}

	return rf
}

func (rf *registerFile) lookup(r ArchReg) semantic.Reg {
	return rf.renameMap[r]
}

// rename allocates a fresh register for r and returns it together with the
// mapping it replaces.
func (rf *registerFile) rename(r ArchReg) (newReg, oldReg semantic.Reg, ok bool) {
	n := len(rf.free)
	if n == 0 {
		return 0, 0, false
	}

	newReg = rf.free[n-1]
	rf.free = rf.free[:n-1]

	oldReg = rf.renameMap[r]
	rf.renameMap[r] = newReg

	p := &rf.regs[newReg]
	p.value = 0
	p.ready = false
	p.waiters = p.waiters[:0]

	return newReg, oldReg, true
}

// undo reverts one rename and frees the register it allocated.
func (rf *registerFile) undo(r ArchReg, newReg, oldReg semantic.Reg) {
	rf.renameMap[r] = oldReg
	rf.release(newReg)
}

func (rf *registerFile) release(reg semantic.Reg) {
	p := &rf.regs[reg]
	p.ready = false
	p.waiters = p.waiters[:0]
	rf.free = append(rf.free, reg)
}

func (rf *registerFile) snapshot() [NumArchRegs]semantic.Reg {
	return rf.renameMap
}

func (rf *registerFile) restore(m [NumArchRegs]semantic.Reg) {
	rf.renameMap = m
}

func (rf *registerFile) ready(reg semantic.Reg) bool {
	return rf.regs[reg].ready
}

func (rf *registerFile) wait(reg semantic.Reg, a semantic.ActionID) {
	p := &rf.regs[reg]
	p.waiters = append(p.waiters, a)
}

func (rf *registerFile) read(reg semantic.Reg) uint64 {
	return rf.regs[reg].value
}

// write publishes a value and returns the actions that were waiting for it.
func (rf *registerFile) write(reg semantic.Reg, v uint64) []semantic.ActionID {
	p := &rf.regs[reg]
	p.value = v
	p.ready = true

	waiters := p.waiters
	p.waiters = nil

	return waiters
}
