package uarch

import (
	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/semantic"
)

// InstructionBytes is the length of every instruction.
const InstructionBytes = 4

// ArchReg names an architectural register. Integer registers come first,
// followed by the floating point registers.
type ArchReg uint16

// Architectural register space.
const (
	NumIntRegs  = 32
	NumFpRegs   = 32
	NumArchRegs = NumIntRegs + NumFpRegs

	// NoReg marks an unused register slot.
	NoReg ArchReg = 0xFFFF
)

// FpReg returns the architectural name of floating point register i.
func FpReg(i int) ArchReg {
	return ArchReg(NumIntRegs + i)
}

// Class is the execution class of a decoded instruction.
type Class uint8

// Instruction classes.
const (
	ClassNop Class = iota
	ClassALU
	ClassFP
	ClassLoad
	ClassStore
	ClassCAS
	ClassRMW
	ClassBranch
)

func (c Class) String() string {
	switch c {
	case ClassNop:
		return "Nop"
	case ClassALU:
		return "ALU"
	case ClassFP:
		return "FP"
	case ClassLoad:
		return "Load"
	case ClassStore:
		return "Store"
	case ClassCAS:
		return "CAS"
	case ClassRMW:
		return "RMW"
	case ClassBranch:
		return "Branch"
	}

	return "Unknown"
}

// IsMemory reports whether the class accesses memory.
func (c Class) IsMemory() bool {
	switch c {
	case ClassLoad, ClassStore, ClassCAS, ClassRMW:
		return true
	}

	return false
}

// IsAtomic reports whether the class is CAS or RMW.
func (c Class) IsAtomic() bool {
	return c == ClassCAS || c == ClassRMW
}

// DecodedInstruction is an instruction as delivered by the front end.
//
// Operands by class:
//   - ALU, FP: Dest = Op(Src1, Src2, Src3, Imm) on Unit.
//   - Load: Dest = mem[Src1+Imm].
//   - Store: mem[Src1+Imm] = Src2.
//   - CAS: Dest = mem[Src1+Imm]; if it equals Src2, mem[Src1+Imm] = Src3.
//   - RMW: Dest = mem[Src1+Imm]; mem[Src1+Imm] = Op(old, Src2, 0, 0).
//   - Branch: Branch(Src1, Src2, Imm) decides the outcome; Dest, if any,
//     receives the fall-through address.
//
// ALU, FP and Load instructions may name a predicate register in Pred. When
// it reads zero the instruction has no effect and Dest keeps its value; a
// predicated load still accesses memory.
//
// Unused source registers, Pred and Dest must be NoReg.
type DecodedInstruction struct {
	PC uint64

	// NextPC is the address fetch predicted to follow this instruction.
	NextPC uint64

	Class Class

	Src1, Src2, Src3 ArchReg
	Dest             ArchReg
	Pred             ArchReg
	Imm              uint64

	Unit   semantic.FUClass
	Op     semantic.ComputeFunc
	Branch semantic.BranchFunc

	Size       memop.Size
	SignExtend bool
	NAW        bool
}

// FallThrough returns the address of the sequentially next instruction.
func (d *DecodedInstruction) FallThrough() uint64 {
	return d.PC + InstructionBytes
}

func (d *DecodedInstruction) sources() [3]ArchReg {
	return [3]ArchReg{d.Src1, d.Src2, d.Src3}
}

// FunctionalBackend provides the architectural ground truth the core reads
// and commits to.
type FunctionalBackend interface {
	ReadRegister(r ArchReg) uint64
	WriteRegister(r ArchReg, v uint64)
	ReadMemory(addr uint64, size memop.Size) uint64
	WriteMemory(addr uint64, size memop.Size, v uint64)
	CommitPC(pc uint64)
}

// Nop returns a no-op at pc.
func Nop(pc uint64) DecodedInstruction {
	return DecodedInstruction{
		PC: pc, NextPC: pc + InstructionBytes, Class: ClassNop,
		Src1: NoReg, Src2: NoReg, Src3: NoReg, Dest: NoReg, Pred: NoReg,
	}
}

// Predicated returns d guarded by the predicate register pred.
func Predicated(d DecodedInstruction, pred ArchReg) DecodedInstruction {
	d.Pred = pred
	return d
}

// ALU returns an integer instruction computing dest = op(src1, src2, imm).
func ALU(pc uint64, dest, src1, src2 ArchReg, imm uint64, op semantic.ComputeFunc) DecodedInstruction {
	d := Nop(pc)
	d.Class = ClassALU
	d.Unit = semantic.FUIntAlu
	d.Dest, d.Src1, d.Src2 = dest, src1, src2
	d.Imm = imm
	d.Op = op

	return d
}

// Load returns a load of size bytes from base+imm into dest.
func Load(pc uint64, dest, base ArchReg, imm uint64, size memop.Size, signExtend bool) DecodedInstruction {
	d := Nop(pc)
	d.Class = ClassLoad
	d.Dest, d.Src1 = dest, base
	d.Imm = imm
	d.Size = size
	d.SignExtend = signExtend

	return d
}

// Store returns a store of size bytes of data to base+imm.
func Store(pc uint64, base, data ArchReg, imm uint64, size memop.Size) DecodedInstruction {
	d := Nop(pc)
	d.Class = ClassStore
	d.Src1, d.Src2 = base, data
	d.Imm = imm
	d.Size = size

	return d
}

// CAS returns a compare-and-swap at base+imm.
func CAS(pc uint64, dest, base, compare, swap ArchReg, imm uint64, size memop.Size) DecodedInstruction {
	d := Nop(pc)
	d.Class = ClassCAS
	d.Dest, d.Src1, d.Src2, d.Src3 = dest, base, compare, swap
	d.Imm = imm
	d.Size = size

	return d
}

// RMW returns a read-modify-write at base+imm.
func RMW(
	pc uint64,
	dest, base, operand ArchReg,
	imm uint64,
	size memop.Size,
	op semantic.ComputeFunc,
) DecodedInstruction {
	d := Nop(pc)
	d.Class = ClassRMW
	d.Dest, d.Src1, d.Src2 = dest, base, operand
	d.Imm = imm
	d.Size = size
	d.Op = op

	return d
}

// Branch returns a branch predicted to continue at predicted.
func Branch(pc, predicted uint64, src1, src2 ArchReg, imm uint64, fn semantic.BranchFunc) DecodedInstruction {
	d := Nop(pc)
	d.Class = ClassBranch
	d.NextPC = predicted
	d.Src1, d.Src2 = src1, src2
	d.Imm = imm
	d.Branch = fn

	return d
}
