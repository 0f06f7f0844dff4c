package frontend

import (
	"github.com/CyberSME/flexus/emu"
	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/uarch"
)

// Registers used by the synthetic workloads.
const (
	regBase  uarch.ArchReg = 1
	regCount uarch.ArchReg = 2
	regValue uarch.ArchReg = 3
	regOne   uarch.ArchReg = 4
)

func set(reg uarch.ArchReg, v uint64) func(uint64) uarch.DecodedInstruction {
	return func(pc uint64) uarch.DecodedInstruction {
		return uarch.ALU(pc, reg, uarch.NoReg, uarch.NoReg, v, emu.Add)
	}
}

func loopBack(p *Program, loop uint64) {
	p.Append(func(pc uint64) uarch.DecodedInstruction {
		return uarch.ALU(pc, regCount, regCount, uarch.NoReg, 1, emu.Sub)
	})
	p.Append(func(pc uint64) uarch.DecodedInstruction {
		return uarch.Branch(pc, pc+uarch.InstructionBytes,
			regCount, uarch.NoReg, loop, emu.BranchIf(emu.CondNE))
	})
}

// StreamLoop increments count doublewords starting at base, stride bytes
// apart.
func StreamLoop(entry, base uint64, count int, stride uint64) *Program {
	p := NewProgram(entry)

	p.Append(set(regBase, base))
	p.Append(set(regCount, uint64(count)))

	loop := p.Here()
	p.Append(func(pc uint64) uarch.DecodedInstruction {
		return uarch.Load(pc, regValue, regBase, 0, memop.DoubleWord, false)
	})
	p.Append(func(pc uint64) uarch.DecodedInstruction {
		return uarch.ALU(pc, regValue, regValue, uarch.NoReg, 1, emu.Add)
	})
	p.Append(func(pc uint64) uarch.DecodedInstruction {
		return uarch.Store(pc, regBase, regValue, 0, memop.DoubleWord)
	})
	p.Append(func(pc uint64) uarch.DecodedInstruction {
		return uarch.ALU(pc, regBase, regBase, uarch.NoReg, stride, emu.Add)
	})
	loopBack(p, loop)

	return p
}

// SharedCounter atomically adds one to the doubleword at addr the given
// number of times.
func SharedCounter(entry, addr uint64, iterations int) *Program {
	p := NewProgram(entry)

	p.Append(set(regBase, addr))
	p.Append(set(regCount, uint64(iterations)))
	p.Append(set(regOne, 1))

	loop := p.Here()
	p.Append(func(pc uint64) uarch.DecodedInstruction {
		return uarch.RMW(pc, regValue, regBase, regOne, 0, memop.DoubleWord, emu.Add)
	})
	loopBack(p, loop)

	return p
}

// Workloads lists the synthetic workloads by name.
var Workloads = []string{"stream", "counter"}

// Workload builds a named synthetic workload for one core. Stream cores
// work on disjoint regions; counter cores share one word.
func Workload(name string, core, iterations int) (*Program, bool) {
	entry := 0x10000 + uint64(core)*0x1000

	switch name {
	case "stream":
		return StreamLoop(entry, 0x100000+uint64(core)*0x10000, iterations, 8), true
	case "counter":
		return SharedCounter(entry, 0x200000, iterations), true
	}

	return nil, false
}
