package semantic

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/memop"
)

const maxInputs = 8

// Reserved input ports. A register read waits on port 0 for the register to
// become ready; a load or atomic waits on port 0 for its value to arrive.
const (
	RegisterReadyPort uint8 = 0
	LoadValuePort     uint8 = 0
)

type predicateState uint8

const (
	predicateUnresolved predicateState = iota
	predicateTrue
	predicateFalse
)

func (p predicateState) String() string {
	switch p {
	case predicateTrue:
		return "true"
	case predicateFalse:
		return "false"
	}

	return "unresolved"
}

type edge struct {
	to        ActionID
	port      uint8
	predicate bool
}

// Action is one node of the dataflow graph.
type Action struct {
	id    ActionID
	inst  InstID
	kind  Kind
	state State
	live  bool

	numInputs uint8
	inputs    uint8

	predicated bool
	predicate  predicateState
	suppressed bool

	dependants []edge

	reg     OperandCode
	sources []OperandCode
	dest    OperandCode
	bypass  OperandCode

	fu      FUClass
	compute ComputeFunc
	branch  BranchFunc
	effect  EffectFunc
	label   string

	size       memop.Size
	signExtend bool
	extended   bool
}

// ID returns the id of the action.
func (a *Action) ID() ActionID { return a.id }

// Instruction returns the id of the instruction the action belongs to.
func (a *Action) Instruction() InstID { return a.inst }

// Kind returns the kind of the action.
func (a *Action) Kind() Kind { return a.kind }

// State returns the evaluation state of the action.
func (a *Action) State() State { return a.state }

// Predicated reports whether the action waits on a predicate.
func (a *Action) Predicated() bool { return a.predicated }

// Suppressed reports whether the action completed without applying its
// effect, either because its predicate resolved false or because a register
// write found none of its sources set.
func (a *Action) Suppressed() bool { return a.suppressed }

func (a *Action) allInputs() uint8 {
	return uint8((uint16(1) << a.numInputs) - 1)
}

// readyToFire is the single firing test shared by Satisfy, PredicateOn and
// Evaluate.
func (a *Action) readyToFire() bool {
	if a.state != Waiting {
		return false
	}

	if a.predicated {
		switch a.predicate {
		case predicateUnresolved:
			return false
		case predicateFalse:
			return true
		}
	}

	return a.inputs == a.allInputs()
}

// Connect makes consumer wait for producer. It returns the input port of
// consumer that producer satisfies.
func (g *Graph) Connect(producer, consumer ActionID) uint8 {
	p := g.Action(producer)
	c := g.Action(consumer)

	if c.state != Unevaluated {
		g.log.WithFields(logrus.Fields{
			"producer": g.Describe(producer),
			"consumer": g.Describe(consumer),
		}).Panic("connect to an evaluated action")
	}

	if int(c.numInputs) >= maxInputs {
		g.log.WithField("consumer", g.Describe(consumer)).
			Panic("too many action inputs")
	}

	port := c.numInputs
	c.numInputs++
	p.dependants = append(p.dependants, edge{to: consumer, port: port})

	return port
}

// Predicate makes consumer a predicated action whose predicate is the
// destination operand of producer: non-zero resolves true.
func (g *Graph) Predicate(producer, consumer ActionID) {
	p := g.Action(producer)
	c := g.Action(consumer)

	if c.state != Unevaluated {
		g.log.WithField("consumer", g.Describe(consumer)).
			Panic("predicate on an evaluated action")
	}

	c.predicated = true
	p.dependants = append(p.dependants, edge{to: consumer, predicate: true})
}

// Evaluate starts evaluation of an action. Evaluating an action twice has no
// effect.
func (g *Graph) Evaluate(id ActionID) {
	a := g.Action(id)
	if a.state != Unevaluated {
		return
	}

	a.state = Waiting

	if a.kind == KindReadRegister && a.inputs&1 == 0 {
		inst := g.insts[a.inst.Index]
		reg := Reg(inst.MustOperand(a.reg))

		if g.core.RegisterReady(reg, id) {
			a.inputs |= 1
		}
	}

	g.tryFire(a)
}

// Satisfy marks an input port of the action satisfied. Satisfying a port
// twice, or satisfying a cancelled or completed action, has no effect.
func (g *Graph) Satisfy(id ActionID, port uint8) {
	a := g.Action(id)
	if a.state == Cancelled || a.state == Satisfied {
		return
	}

	if port >= a.numInputs {
		g.log.WithFields(logrus.Fields{
			"action": g.Describe(id),
			"port":   port,
		}).Panic("satisfy on a port the action does not have")
	}

	bit := uint8(1) << port
	if a.inputs&bit != 0 {
		return
	}

	a.inputs |= bit
	g.tryFire(a)
}

// PredicateOn resolves the predicate of a predicated action. Only the first
// resolution counts.
func (g *Graph) PredicateOn(id ActionID, value bool) {
	a := g.Action(id)
	if a.state == Cancelled || a.state == Satisfied {
		return
	}

	if !a.predicated {
		g.log.WithField("action", g.Describe(id)).
			Panic("predicate on an unpredicated action")
	}

	if a.predicate != predicateUnresolved {
		return
	}

	if value {
		a.predicate = predicateTrue
	} else {
		a.predicate = predicateFalse
	}

	g.tryFire(a)
}

// Cancel stops an action from producing any further effect.
func (g *Graph) Cancel(id ActionID) {
	a := g.Action(id)
	a.state = Cancelled
}

// Finish completes a compute action that the core started with Execute.
// Finishing a cancelled action has no effect.
func (g *Graph) Finish(id ActionID) {
	a := g.Action(id)
	if a.state == Cancelled {
		return
	}

	if a.kind != KindCompute || a.state != Ready {
		g.log.WithField("action", g.Describe(id)).
			Panic("finish on an action that is not executing")
	}

	g.finishCompute(a)
}

// Describe returns a human readable description of the action.
func (g *Graph) Describe(id ActionID) string {
	a, ok := g.lookupAction(id)
	if !ok {
		return fmt.Sprintf("%s <released>", id)
	}

	seq := uint64(0)
	if inst, ok := g.Instruction(a.inst); ok {
		seq = inst.seq
	}

	s := fmt.Sprintf("#%d %s %s inputs=%0*b",
		seq, a.kind, a.state, int(a.numInputs), a.inputs)
	if a.label != "" {
		s += " " + a.label
	}
	if a.predicated {
		s += " pred=" + a.predicate.String()
	}

	return s
}

func (g *Graph) tryFire(a *Action) {
	if !a.readyToFire() {
		return
	}

	if a.predicated && a.predicate == predicateFalse {
		a.suppressed = true
		g.complete(a)

		return
	}

	g.fire(a)
}

func (g *Graph) fire(a *Action) {
	inst := g.insts[a.inst.Index]

	switch a.kind {
	case KindReadRegister:
		v := g.core.ReadRegister(Reg(inst.MustOperand(a.reg)))
		inst.SetOperand(a.dest, v)
		g.complete(a)

	case KindWriteRegister:
		v, ok := firstSet(inst, a.sources)
		if !ok {
			a.suppressed = true
			g.complete(a)

			return
		}

		g.core.WriteRegister(Reg(inst.MustOperand(a.reg)), v)
		g.complete(a)

	case KindCompute:
		if a.fu == FUNone {
			g.finishCompute(a)
			return
		}

		a.state = Ready
		g.core.Execute(a.id, a.fu)

	case KindUpdateAddress:
		var addr uint64
		for _, v := range g.gather(a) {
			addr += v
		}

		inst.SetOperand(OperandAddress, addr)
		g.core.ResolveAddress(inst.id, addr)
		g.complete(a)

	case KindLoad:
		g.fireLoad(inst, a)

	case KindStore:
		v := a.size.Shape(inst.MustOperand(a.sources[0]), false)
		inst.SetOperand(OperandStoreValue, v)
		g.core.ResolveStoreValue(inst.id, v)
		g.complete(a)

	case KindBranch:
		taken, target := a.branch(g.gather(a))
		g.core.ResolveBranch(inst.id, taken, target)
		g.complete(a)

	case KindEffect:
		a.effect(inst)
		g.complete(a)

	default:
		g.log.WithField("kind", a.kind).Panic("unknown action kind")
	}
}

func firstSet(inst *Instruction, codes []OperandCode) (uint64, bool) {
	for _, code := range codes {
		if v, ok := inst.Operand(code); ok {
			return v, true
		}
	}

	return 0, false
}

func (g *Graph) fireLoad(inst *Instruction, a *Action) {
	var v uint64
	if a.extended {
		v = a.size.Shape(g.core.RetrieveExtendedLoadValue(inst.id), false)
	} else {
		v = a.size.Shape(g.core.RetrieveLoadValue(inst.id), a.signExtend)
	}

	inst.SetOperand(a.dest, v)

	if a.bypass != OperandNone {
		g.core.Bypass(Reg(inst.MustOperand(a.bypass)), v)
	}

	g.complete(a)
}

func (g *Graph) finishCompute(a *Action) {
	inst := g.insts[a.inst.Index]
	inst.SetOperand(a.dest, a.compute(g.gather(a)))
	g.complete(a)
}

func (g *Graph) gather(a *Action) []uint64 {
	inst := g.insts[a.inst.Index]

	g.scratch = g.scratch[:0]
	for _, code := range a.sources {
		v, _ := inst.Operand(code)
		g.scratch = append(g.scratch, v)
	}

	return g.scratch
}

func (g *Graph) complete(a *Action) {
	a.state = Satisfied

	for _, e := range a.dependants {
		if !g.ActionAlive(e.to) {
			continue
		}

		if e.predicate {
			inst := g.insts[a.inst.Index]
			v, _ := inst.Operand(a.dest)
			g.PredicateOn(e.to, v != 0)

			continue
		}

		g.Satisfy(e.to, e.port)
	}
}
