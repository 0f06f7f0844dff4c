package semantic

import "github.com/CyberSME/flexus/timing/memop"

// ReadRegister creates an action that reads the renamed register named by
// regOperand into dest once the register is ready.
func (g *Graph) ReadRegister(inst *Instruction, regOperand, dest OperandCode) ActionID {
	a := g.newAction(inst, KindReadRegister, 1)
	a.reg = regOperand
	a.dest = dest

	return a.id
}

// WriteRegister creates an action that writes the first of sources that is
// set into the renamed register named by regOperand. When none is set the
// write is suppressed.
func (g *Graph) WriteRegister(inst *Instruction, regOperand OperandCode, sources ...OperandCode) ActionID {
	a := g.newAction(inst, KindWriteRegister, 0)
	a.reg = regOperand
	a.sources = append(a.sources, sources...)

	return a.id
}

// Compute creates an action that applies fn to sources on a functional unit
// and stores the result in dest.
func (g *Graph) Compute(
	inst *Instruction,
	fu FUClass,
	fn ComputeFunc,
	dest OperandCode,
	sources ...OperandCode,
) ActionID {
	a := g.newAction(inst, KindCompute, 0)
	a.fu = fu
	a.compute = fn
	a.dest = dest
	a.sources = append(a.sources, sources...)

	return a.id
}

// UpdateAddress creates an action that sums sources into the effective
// address of a memory instruction.
func (g *Graph) UpdateAddress(inst *Instruction, sources ...OperandCode) ActionID {
	a := g.newAction(inst, KindUpdateAddress, 0)
	a.dest = OperandAddress
	a.sources = append(a.sources, sources...)

	return a.id
}

// Load creates an action that receives the value of a load, shapes it to size
// and stores it in dest. When bypass is not OperandNone the shaped value is
// also forwarded to the register named by that operand.
func (g *Graph) Load(
	inst *Instruction,
	size memop.Size,
	signExtend bool,
	dest, bypass OperandCode,
) ActionID {
	a := g.newAction(inst, KindLoad, 1)
	a.size = size
	a.signExtend = signExtend
	a.dest = dest
	a.bypass = bypass
	a.label = "load"

	return a.id
}

// CAS creates the load half of a compare-and-swap. It receives the old
// memory value, which is masked to size and never sign extended.
func (g *Graph) CAS(inst *Instruction, size memop.Size, dest, bypass OperandCode) ActionID {
	return g.atomicLoad(inst, size, dest, bypass, "cas")
}

// RMW creates the load half of a read-modify-write. Like CAS it delivers the
// old memory value without sign extension.
func (g *Graph) RMW(inst *Instruction, size memop.Size, dest, bypass OperandCode) ActionID {
	return g.atomicLoad(inst, size, dest, bypass, "rmw")
}

func (g *Graph) atomicLoad(
	inst *Instruction,
	size memop.Size,
	dest, bypass OperandCode,
	label string,
) ActionID {
	a := g.newAction(inst, KindLoad, 1)
	a.size = size
	a.extended = true
	a.dest = dest
	a.bypass = bypass
	a.label = label

	return a.id
}

// Store creates an action that hands source, masked to size, to the store
// queue.
func (g *Graph) Store(inst *Instruction, size memop.Size, source OperandCode) ActionID {
	a := g.newAction(inst, KindStore, 0)
	a.size = size
	a.dest = OperandStoreValue
	a.sources = append(a.sources, source)

	return a.id
}

// Branch creates an action that resolves a branch from sources.
func (g *Graph) Branch(inst *Instruction, fn BranchFunc, sources ...OperandCode) ActionID {
	a := g.newAction(inst, KindBranch, 0)
	a.branch = fn
	a.sources = append(a.sources, sources...)

	return a.id
}

// Effect creates an action that runs fn on the instruction.
func (g *Graph) Effect(inst *Instruction, label string, fn EffectFunc) ActionID {
	a := g.newAction(inst, KindEffect, 0)
	a.effect = fn
	a.label = label

	return a.id
}
