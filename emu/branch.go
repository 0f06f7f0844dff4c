package emu

import "github.com/CyberSME/flexus/timing/semantic"

// Cond represents an ARM64 condition code.
type Cond uint8

// ARM64 condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Always (unconditional, reserved)
)

// PSTATE holds the NZCV condition flags.
type PSTATE struct {
	N bool
	Z bool
	C bool
	V bool
}

// SubFlags returns the flags a 64-bit compare of op1 with op2 sets.
func SubFlags(op1, op2 uint64) PSTATE {
	result := op1 - op2

	op1Sign := op1 >> 63
	op2Sign := op2 >> 63
	resultSign := result >> 63

	return PSTATE{
		N: resultSign == 1,
		Z: result == 0,
		// No borrow.
		C: op1 >= op2,
		V: op1Sign != op2Sign && op2Sign == resultSign,
	}
}

// Check evaluates a condition code against the flags.
func (p PSTATE) Check(cond Cond) bool {
	switch cond {
	case CondEQ:
		return p.Z
	case CondNE:
		return !p.Z
	case CondCS:
		return p.C
	case CondCC:
		return !p.C
	case CondMI:
		return p.N
	case CondPL:
		return !p.N
	case CondVS:
		return p.V
	case CondVC:
		return !p.V
	case CondHI:
		return p.C && !p.Z
	case CondLS:
		return !p.C || p.Z
	case CondGE:
		return p.N == p.V
	case CondLT:
		return p.N != p.V
	case CondGT:
		return !p.Z && p.N == p.V
	case CondLE:
		return p.Z || p.N != p.V
	case CondAL, CondNV:
		return true
	default:
		return false
	}
}

// Branch operands are rs1, rs2 and the target in the immediate.
const (
	branchLHS = iota
	branchRHS
	branchTarget
)

// BranchIf returns a branch taken to the immediate when rs1 compared with
// rs2 satisfies cond.
func BranchIf(cond Cond) semantic.BranchFunc {
	return func(in []uint64) (bool, uint64) {
		taken := SubFlags(in[branchLHS], in[branchRHS]).Check(cond)
		return taken, in[branchTarget]
	}
}

// Jump is an unconditional branch to the immediate.
func Jump(in []uint64) (bool, uint64) {
	return true, in[branchTarget]
}

// JumpRegister is an unconditional branch to rs1.
func JumpRegister(in []uint64) (bool, uint64) {
	return true, in[branchLHS]
}
