package frontend

import (
	"github.com/CyberSME/flexus/timing/uarch"
)

// Program is a static image of decoded instructions indexed by address.
type Program struct {
	entry uint64
	next  uint64
	insts map[uint64]uarch.DecodedInstruction
}

// NewProgram creates an empty program that starts at entry.
func NewProgram(entry uint64) *Program {
	return &Program{
		entry: entry,
		next:  entry,
		insts: make(map[uint64]uarch.DecodedInstruction),
	}
}

// Entry returns the address of the first instruction.
func (p *Program) Entry() uint64 {
	return p.entry
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.insts)
}

// Here returns the address the next appended instruction will take.
func (p *Program) Here() uint64 {
	return p.next
}

// Append places an instruction at the next address. The constructor
// receives that address.
func (p *Program) Append(inst func(pc uint64) uarch.DecodedInstruction) uint64 {
	pc := p.next
	p.Put(inst(pc))

	return pc
}

// Put places an instruction at its own address.
func (p *Program) Put(d uarch.DecodedInstruction) {
	p.insts[d.PC] = d

	if d.FallThrough() > p.next {
		p.next = d.FallThrough()
	}
}

// At returns the instruction at pc.
func (p *Program) At(pc uint64) (uarch.DecodedInstruction, bool) {
	d, ok := p.insts[pc]
	return d, ok
}
