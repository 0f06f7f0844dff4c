// Package semantic implements the per-instruction dataflow graph of semantic
// actions.
//
// Every dispatched instruction is decomposed into actions linked by
// dependency edges. An action fires once all of its inputs are satisfied
// (and, for predicated actions, once its predicate resolved true). Firing an
// action applies its effect and satisfies the actions that depend on it.
//
// Instructions and actions live in an arena owned by a Graph and are
// referenced by generation-checked ids, so a reference held past retirement
// or squash is detected instead of silently reaching a recycled slot.
package semantic

import "fmt"

// InstID refers to an instruction in a Graph.
type InstID struct {
	Index uint32
	Gen   uint32
}

// Valid reports whether the id was ever assigned.
func (id InstID) Valid() bool {
	return id.Gen != 0
}

func (id InstID) String() string {
	return fmt.Sprintf("I%d.%d", id.Index, id.Gen)
}

// ActionID refers to an action in a Graph.
type ActionID struct {
	Index uint32
	Gen   uint32
}

// Valid reports whether the id was ever assigned.
func (id ActionID) Valid() bool {
	return id.Gen != 0
}

func (id ActionID) String() string {
	return fmt.Sprintf("A%d.%d", id.Index, id.Gen)
}

// State is the evaluation state of an action.
type State uint8

// Action states.
const (
	Unevaluated State = iota
	Waiting
	Ready
	Satisfied
	Cancelled
)

func (s State) String() string {
	switch s {
	case Unevaluated:
		return "Unevaluated"
	case Waiting:
		return "Waiting"
	case Ready:
		return "Ready"
	case Satisfied:
		return "Satisfied"
	case Cancelled:
		return "Cancelled"
	}

	return fmt.Sprintf("State(%d)", uint8(s))
}

// Kind selects the behavior of an action.
type Kind uint8

// Action kinds.
const (
	KindReadRegister Kind = iota
	KindWriteRegister
	KindCompute
	KindUpdateAddress
	KindLoad
	KindStore
	KindBranch
	KindEffect
)

func (k Kind) String() string {
	switch k {
	case KindReadRegister:
		return "ReadRegisterAction"
	case KindWriteRegister:
		return "WriteRegisterAction"
	case KindCompute:
		return "ComputeAction"
	case KindUpdateAddress:
		return "UpdateAddressAction"
	case KindLoad:
		return "LoadAction"
	case KindStore:
		return "StoreAction"
	case KindBranch:
		return "BranchAction"
	case KindEffect:
		return "EffectAction"
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// OperandCode names a slot of an instruction's operand map.
type OperandCode uint8

// Operand codes. OperandNone marks an unused operand reference.
const (
	OperandNone OperandCode = iota
	OperandRS1
	OperandRS2
	OperandRS3
	OperandPS1
	OperandPS2
	OperandPS3
	OperandPD
	OperandImm
	OperandAddress
	OperandResult
	OperandStoreValue
	OperandCompare
	OperandCondition
	OperandPCond
	OperandPOld
	OperandOldValue

	numOperands
)

// Reg is the name of a renamed (physical) register.
type Reg uint32

// FUClass is the functional unit a compute action executes on.
type FUClass uint8

// Functional unit classes. FUNone completes in the cycle it fires.
const (
	FUNone FUClass = iota
	FUIntAlu
	FUIntMult
	FUIntDiv
	FUFpAdd
	FUFpCmp
	FUFpCvt
	FUFpMult
	FUFpDiv
	FUFpSqrt

	NumFUClasses
)

func (c FUClass) String() string {
	switch c {
	case FUNone:
		return "None"
	case FUIntAlu:
		return "IntAlu"
	case FUIntMult:
		return "IntMult"
	case FUIntDiv:
		return "IntDiv"
	case FUFpAdd:
		return "FpAdd"
	case FUFpCmp:
		return "FpCmp"
	case FUFpCvt:
		return "FpCvt"
	case FUFpMult:
		return "FpMult"
	case FUFpDiv:
		return "FpDiv"
	case FUFpSqrt:
		return "FpSqrt"
	}

	return fmt.Sprintf("FUClass(%d)", uint8(c))
}

// ComputeFunc produces a value from the input operands of a compute action.
type ComputeFunc func(inputs []uint64) uint64

// BranchFunc resolves a branch from the input operands of a branch action.
type BranchFunc func(inputs []uint64) (taken bool, target uint64)

// EffectFunc applies a side effect to the instruction.
type EffectFunc func(inst *Instruction)
