package semantic

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Instruction is a dispatched instruction and the actions it decomposes
// into.
type Instruction struct {
	id  InstID
	seq uint64
	pc  uint64

	operands [numOperands]uint64
	present  uint32

	actions   []ActionID
	cancelled bool
	live      bool
}

// ID returns the id of the instruction.
func (i *Instruction) ID() InstID {
	return i.id
}

// Seq returns the program-order sequence number of the instruction.
func (i *Instruction) Seq() uint64 {
	return i.seq
}

// PC returns the program counter of the instruction.
func (i *Instruction) PC() uint64 {
	return i.pc
}

// Cancelled reports whether the instruction has been squashed.
func (i *Instruction) Cancelled() bool {
	return i.cancelled
}

// Actions returns the actions of the instruction in creation order.
func (i *Instruction) Actions() []ActionID {
	return i.actions
}

// SetOperand stores a value in the operand map.
func (i *Instruction) SetOperand(code OperandCode, v uint64) {
	i.operands[code] = v
	i.present |= 1 << code
}

// Operand returns the value of an operand and whether it has been set.
func (i *Instruction) Operand(code OperandCode) (uint64, bool) {
	return i.operands[code], i.present&(1<<code) != 0
}

// MustOperand returns the value of an operand that must have been set.
func (i *Instruction) MustOperand(code OperandCode) uint64 {
	v, ok := i.Operand(code)
	if !ok {
		panic(fmt.Sprintf("instruction %d: operand %d not set", i.seq, code))
	}

	return v
}

// Graph owns all in-flight instructions and their actions.
type Graph struct {
	core Core
	log  *logrus.Entry

	insts     []*Instruction
	freeInsts []uint32

	actions     []*Action
	freeActions []uint32

	scratch []uint64
}

// NewGraph creates an empty graph whose actions call into core.
func NewGraph(core Core, log *logrus.Entry) *Graph {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Graph{
		core: core,
		log:  log,
	}
}

// NewInstruction allocates an instruction.
func (g *Graph) NewInstruction(seq, pc uint64) *Instruction {
	var inst *Instruction

	if n := len(g.freeInsts); n > 0 {
		idx := g.freeInsts[n-1]
		g.freeInsts = g.freeInsts[:n-1]
		inst = g.insts[idx]
		gen := inst.id.Gen + 1
		actions := inst.actions[:0]
		*inst = Instruction{id: InstID{Index: idx, Gen: gen}, actions: actions}
	} else {
		inst = &Instruction{id: InstID{Index: uint32(len(g.insts)), Gen: 1}}
		g.insts = append(g.insts, inst)
	}

	inst.seq = seq
	inst.pc = pc
	inst.live = true

	return inst
}

// Instruction returns the instruction with the given id, or false if it has
// been released.
func (g *Graph) Instruction(id InstID) (*Instruction, bool) {
	if int(id.Index) >= len(g.insts) {
		return nil, false
	}

	inst := g.insts[id.Index]
	if !inst.live || inst.id.Gen != id.Gen {
		return nil, false
	}

	return inst, true
}

// Alive reports whether the instruction has not been released.
func (g *Graph) Alive(id InstID) bool {
	_, ok := g.Instruction(id)
	return ok
}

func (g *Graph) mustInstruction(id InstID) *Instruction {
	inst, ok := g.Instruction(id)
	if !ok {
		g.log.WithField("inst", id).Panic("use of a released instruction")
	}

	return inst
}

// ActionAlive reports whether the action belongs to an instruction that has
// not been released.
func (g *Graph) ActionAlive(id ActionID) bool {
	_, ok := g.lookupAction(id)
	return ok
}

// Action returns the action with the given id. It panics if the action was
// released.
func (g *Graph) Action(id ActionID) *Action {
	a, ok := g.lookupAction(id)
	if !ok {
		g.log.WithField("action", id).Panic("use of a released action")
	}

	return a
}

func (g *Graph) lookupAction(id ActionID) (*Action, bool) {
	if int(id.Index) >= len(g.actions) {
		return nil, false
	}

	a := g.actions[id.Index]
	if !a.live || a.id.Gen != id.Gen {
		return nil, false
	}

	return a, true
}

func (g *Graph) newAction(inst *Instruction, kind Kind, numInputs int) *Action {
	if numInputs > maxInputs {
		g.log.WithFields(logrus.Fields{
			"inst":   inst.seq,
			"kind":   kind,
			"inputs": numInputs,
		}).Panic("too many action inputs")
	}

	var a *Action

	if n := len(g.freeActions); n > 0 {
		idx := g.freeActions[n-1]
		g.freeActions = g.freeActions[:n-1]
		a = g.actions[idx]
		gen := a.id.Gen + 1
		deps := a.dependants[:0]
		srcs := a.sources[:0]
		*a = Action{id: ActionID{Index: idx, Gen: gen}, dependants: deps, sources: srcs}
	} else {
		a = &Action{id: ActionID{Index: uint32(len(g.actions)), Gen: 1}}
		g.actions = append(g.actions, a)
	}

	a.inst = inst.id
	a.kind = kind
	a.numInputs = uint8(numInputs)
	a.live = true
	inst.actions = append(inst.actions, a.id)

	return a
}

// Release frees an instruction and all of its actions. Ids referring to them
// become stale.
func (g *Graph) Release(id InstID) {
	inst := g.mustInstruction(id)

	for _, aid := range inst.actions {
		a := g.actions[aid.Index]
		if a.id != aid {
			continue
		}

		a.live = false
		g.freeActions = append(g.freeActions, aid.Index)
	}

	inst.live = false
	g.freeInsts = append(g.freeInsts, id.Index)
}

// CancelInstruction squashes an instruction: it is marked cancelled and all
// of its actions stop producing effects.
func (g *Graph) CancelInstruction(id InstID) {
	inst := g.mustInstruction(id)
	inst.cancelled = true

	for _, aid := range inst.actions {
		g.Cancel(aid)
	}
}

// Complete reports whether every action of the instruction is satisfied.
func (g *Graph) Complete(id InstID) bool {
	inst := g.mustInstruction(id)
	if inst.cancelled {
		return false
	}

	for _, aid := range inst.actions {
		if g.actions[aid.Index].state != Satisfied {
			return false
		}
	}

	return true
}

// EvaluateInstruction evaluates every action of the instruction in creation
// order.
func (g *Graph) EvaluateInstruction(id InstID) {
	inst := g.mustInstruction(id)

	for i := 0; i < len(inst.actions); i++ {
		g.Evaluate(inst.actions[i])
	}
}

// Live returns the number of instructions and actions that are allocated.
func (g *Graph) Live() (insts, actions int) {
	return len(g.insts) - len(g.freeInsts), len(g.actions) - len(g.freeActions)
}
