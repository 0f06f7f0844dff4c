// Package uarch implements the out-of-order core: renaming, the reorder
// window, the load/store queue with store forwarding, the store buffer,
// functional units, speculative checkpoints and squash.
package uarch

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/semantic"
)

// Stats holds performance statistics of a core.
type Stats struct {
	Cycles        uint64
	SkippedCycles uint64
	Dispatched    uint64
	Retired       uint64
	Squashed      uint64
	Squashes      [numSquashCauses]uint64

	LoadsIssued      uint64
	StoresIssued     uint64
	AtomicsIssued    uint64
	PrefetchesIssued uint64
	ForwardedLoads   uint64

	CheckpointsTaken uint64
	Rollbacks        uint64

	RetireStallCycles uint64
	SBFullCycles      uint64
}

type robEntry struct {
	seq  uint64
	inst semantic.InstID
	d    DecodedInstruction

	newReg, oldReg semantic.Reg

	// value is the action that receives a load or atomic value.
	value semantic.ActionID

	mem       *lsqEntry
	evaluated bool
}

// MicroArch is one out-of-order core.
type MicroArch struct {
	sim.HookableBase

	name    string
	opts    *Options
	model   ConsistencyModel
	backend FunctionalBackend
	log     *logrus.Entry

	graph *semantic.Graph
	regs  *registerFile
	fus   *functionalUnits

	cycle   uint64
	nextSeq uint64

	rob    []*robEntry
	byInst map[semantic.InstID]*robEntry

	lsq         []*lsqEntry
	forwarding  map[uint64][]*lsqEntry
	storeBuffer []*lsqEntry
	nawStores   []*lsqEntry
	outstanding map[*memop.MemOp]*lsqEntry

	prefetchesOutstanding int

	outbound []*memop.MemOp
	snoops   []*memop.MemOp

	checkpoints []*Checkpoint
	pending     squashRequest

	signals Signals
	stalled bool
	stats   Stats
}

// New creates a core. The options must be valid.
func New(
	name string,
	opts *Options,
	backend FunctionalBackend,
	log *logrus.Entry,
) *MicroArch {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("node", name)

	if err := opts.Validate(); err != nil {
		log.WithError(err).Panic("invalid core options")
	}

	if backend == nil {
		log.Panic("core without a functional backend")
	}

	m := &MicroArch{
		name:        name,
		opts:        opts.Clone(),
		model:       opts.model(),
		backend:     backend,
		log:         log,
		nextSeq:     1,
		byInst:      make(map[semantic.InstID]*robEntry),
		forwarding:  make(map[uint64][]*lsqEntry),
		outstanding: make(map[*memop.MemOp]*lsqEntry),
	}

	m.graph = semantic.NewGraph(services{m}, log)
	m.regs = newRegisterFile(NumArchRegs+opts.ROBSize, backend)
	m.fus = newFunctionalUnits(opts)

	return m
}

// Name returns the name of the core.
func (m *MicroArch) Name() string {
	return m.name
}

// Options returns a copy of the options of the core.
func (m *MicroArch) Options() *Options {
	return m.opts.Clone()
}

// CurrentCycle returns the number of cycles the core has advanced.
func (m *MicroArch) CurrentCycle() uint64 {
	return m.cycle
}

// Stats returns the statistics of the core.
func (m *MicroArch) Stats() Stats {
	return m.stats
}

// AvailableROB returns the number of instructions that can be dispatched.
func (m *MicroArch) AvailableROB() int {
	return m.opts.ROBSize - len(m.rob)
}

// IsSynchronized reports whether the core has no instruction in flight and
// no store waiting in the store buffer.
func (m *MicroArch) IsSynchronized() bool {
	return len(m.rob) == 0 && len(m.storeBuffer) == 0 && len(m.nawStores) == 0
}

// PendingSnoops returns the number of snoop replies not yet taken by the
// memory interface.
func (m *MicroArch) PendingSnoops() int {
	return len(m.snoops)
}

// IsStalled reports whether the core holds instructions but retired none in
// the last cycle.
func (m *MicroArch) IsStalled() bool {
	return m.stalled
}

// ICount returns the number of instructions in the window.
func (m *MicroArch) ICount() int {
	return len(m.rob)
}

// RegisterValue returns the speculative value of an architectural register
// and whether it has been produced.
func (m *MicroArch) RegisterValue(r ArchReg) (uint64, bool) {
	reg := m.regs.lookup(r)
	return m.regs.read(reg), m.regs.ready(reg)
}

// Dispatch renames an instruction, builds its action graph and enters it
// into the window. It returns the sequence number of the instruction.
func (m *MicroArch) Dispatch(d DecodedInstruction) uint64 {
	if len(m.rob) >= m.opts.ROBSize {
		m.log.WithFields(logrus.Fields{
			"pc":  d.PC,
			"rob": len(m.rob),
		}).Panic("dispatch into a full window")
	}

	seq := m.nextSeq
	m.nextSeq++

	if d.Class == ClassLoad || d.Class.IsAtomic() {
		m.maybeCheckpoint(seq, d.PC)
	}

	e := &robEntry{seq: seq, d: d}
	inst := m.graph.NewInstruction(seq, d.PC)
	e.inst = inst.ID()

	m.build(e, inst)

	m.rob = append(m.rob, e)
	m.byInst[e.inst] = e
	m.stats.Dispatched++

	m.log.WithFields(logrus.Fields{
		"seq":   seq,
		"pc":    d.PC,
		"class": d.Class,
	}).Debug("dispatch")
	m.InvokeHook(sim.HookCtx{Domain: m, Pos: HookPosDispatch, Item: d, Detail: seq})

	if !m.opts.InOrderExecute {
		e.evaluated = true
		m.graph.EvaluateInstruction(e.inst)
		m.applySquash()
	}

	return seq
}

var (
	sourceOperands = [3]semantic.OperandCode{
		semantic.OperandRS1, semantic.OperandRS2, semantic.OperandRS3,
	}
	physOperands = [3]semantic.OperandCode{
		semantic.OperandPS1, semantic.OperandPS2, semantic.OperandPS3,
	}
)

func (m *MicroArch) build(e *robEntry, inst *semantic.Instruction) {
	g := m.graph
	d := &e.d

	var reads [3]semantic.ActionID
	for i, r := range d.sources() {
		if r == NoReg {
			continue
		}

		inst.SetOperand(physOperands[i], uint64(m.regs.lookup(r)))
		reads[i] = g.ReadRegister(inst, physOperands[i], sourceOperands[i])
	}
	inst.SetOperand(semantic.OperandImm, d.Imm)

	var pred semantic.ActionID
	if d.Pred != NoReg {
		switch d.Class {
		case ClassALU, ClassFP, ClassLoad:
		default:
			m.log.WithFields(logrus.Fields{
				"pc":    d.PC,
				"class": d.Class,
			}).Panic("predicate on an instruction class that cannot be predicated")
		}

		inst.SetOperand(semantic.OperandPCond, uint64(m.regs.lookup(d.Pred)))
		pred = g.ReadRegister(inst, semantic.OperandPCond, semantic.OperandCondition)
	}

	var old semantic.ActionID
	bypass := semantic.OperandNone
	if d.Dest != NoReg {
		newReg, oldReg, ok := m.regs.rename(d.Dest)
		if !ok {
			m.log.WithField("seq", e.seq).Panic("out of physical registers")
		}

		e.newReg, e.oldReg = newReg, oldReg
		inst.SetOperand(semantic.OperandPD, uint64(newReg))

		if pred.Valid() {
			inst.SetOperand(semantic.OperandPOld, uint64(oldReg))
			old = g.ReadRegister(inst, semantic.OperandPOld, semantic.OperandOldValue)
		} else {
			bypass = semantic.OperandPD
		}
	}

	after := func(from, to semantic.ActionID) {
		if from.Valid() {
			g.Connect(from, to)
		}
	}

	switch d.Class {
	case ClassALU, ClassFP:
		if d.Op == nil {
			m.log.WithField("pc", d.PC).Panic("compute instruction without an operation")
		}

		c := g.Compute(inst, d.Unit, d.Op, semantic.OperandResult,
			semantic.OperandRS1, semantic.OperandRS2, semantic.OperandRS3,
			semantic.OperandImm)
		for _, r := range reads {
			after(r, c)
		}
		if pred.Valid() {
			g.Predicate(pred, c)
		}
		m.writeBack(e, inst, c, old)

	case ClassLoad, ClassStore, ClassCAS, ClassRMW:
		m.buildMemory(e, inst, reads, bypass)

		if pred.Valid() {
			g.Predicate(pred, e.value)
			m.writeBack(e, inst, e.value, old)
		}

	case ClassBranch:
		if d.Branch == nil {
			m.log.WithField("pc", d.PC).Panic("branch without a resolver")
		}

		b := g.Branch(inst, d.Branch,
			semantic.OperandRS1, semantic.OperandRS2, semantic.OperandImm)
		for _, r := range reads {
			after(r, b)
		}

		if d.Dest != NoReg {
			fall := d.FallThrough()
			link := g.Compute(inst, semantic.FUNone,
				func([]uint64) uint64 { return fall }, semantic.OperandResult)
			m.writeBack(e, inst, link, semantic.ActionID{})
		}

	case ClassNop:
		g.Effect(inst, "nop", func(*semantic.Instruction) {})

	default:
		m.log.WithField("class", d.Class).Panic("unknown instruction class")
	}
}

// writeBack publishes the result of producer to the destination register.
// When old is valid it reads the previous mapping, whose value is written
// instead if producer was suppressed.
func (m *MicroArch) writeBack(e *robEntry, inst *semantic.Instruction, producer, old semantic.ActionID) {
	if e.d.Dest == NoReg {
		return
	}

	if !old.Valid() {
		w := m.graph.WriteRegister(inst, semantic.OperandPD, semantic.OperandResult)
		m.graph.Connect(producer, w)

		return
	}

	w := m.graph.WriteRegister(inst, semantic.OperandPD,
		semantic.OperandResult, semantic.OperandOldValue)
	m.graph.Connect(producer, w)
	m.graph.Connect(old, w)
}

func (m *MicroArch) buildMemory(
	e *robEntry,
	inst *semantic.Instruction,
	reads [3]semantic.ActionID,
	bypass semantic.OperandCode,
) {
	g := m.graph
	d := &e.d

	after := func(from, to semantic.ActionID) {
		if from.Valid() {
			g.Connect(from, to)
		}
	}

	if !d.Size.Valid() {
		m.log.WithFields(logrus.Fields{
			"pc":   d.PC,
			"size": d.Size,
		}).Panic("memory instruction with an invalid size")
	}

	e.mem = &lsqEntry{rob: e}
	m.lsq = append(m.lsq, e.mem)

	addr := g.UpdateAddress(inst, semantic.OperandRS1, semantic.OperandImm)
	after(reads[0], addr)

	switch d.Class {
	case ClassLoad:
		e.value = g.Load(inst, d.Size, d.SignExtend, semantic.OperandResult, bypass)

	case ClassStore:
		s := g.Store(inst, d.Size, semantic.OperandRS2)
		after(reads[1], s)

	case ClassCAS:
		s := g.Store(inst, d.Size, semantic.OperandRS3)
		after(reads[1], s)
		after(reads[2], s)
		e.value = g.CAS(inst, d.Size, semantic.OperandResult, bypass)

	case ClassRMW:
		if d.Op == nil {
			m.log.WithField("pc", d.PC).Panic("read-modify-write without an operation")
		}

		s := g.Store(inst, d.Size, semantic.OperandRS2)
		after(reads[1], s)
		e.value = g.RMW(inst, d.Size, semantic.OperandResult, bypass)
	}
}

// Cycle advances the core by one cycle.
func (m *MicroArch) Cycle() {
	for _, a := range m.fus.due(m.cycle) {
		if m.graph.ActionAlive(a) {
			m.graph.Finish(a)
		}
	}
	m.applySquash()

	m.fus.issue(m.cycle, m.graph.ActionAlive)

	if m.opts.InOrderExecute {
		m.evaluateInOrder()
		m.applySquash()
	}

	m.settleSpeculation()
	m.issueMemory()
	m.applySquash()

	m.retire()

	m.cycle++
	m.stats.Cycles++
}

// SkipCycle advances time without doing any work, as when another thread
// owns the cycle.
func (m *MicroArch) SkipCycle() {
	m.cycle++
	m.stats.Cycles++
	m.stats.SkippedCycles++
}

func (m *MicroArch) evaluateInOrder() {
	for i := 0; i < len(m.rob); i++ {
		e := m.rob[i]

		if !e.evaluated {
			e.evaluated = true
			m.graph.EvaluateInstruction(e.inst)
		}

		if m.pending.valid || i >= len(m.rob) || m.rob[i] != e {
			return
		}

		if !m.graph.Complete(e.inst) {
			return
		}
	}
}

func (m *MicroArch) retire() {
	retired := 0

	for retired < m.opts.RetireWidth && len(m.rob) > 0 {
		e := m.rob[0]

		if !m.readyToRetire(e) {
			break
		}

		m.commit(e)
		retired++
	}

	m.stalled = len(m.rob) > 0 && retired == 0
	if m.stalled {
		m.stats.RetireStallCycles++
	}
}

func (m *MicroArch) readyToRetire(e *robEntry) bool {
	if !m.graph.Complete(e.inst) {
		return false
	}

	mem := e.mem
	if mem == nil {
		return true
	}

	switch e.d.Class {
	case ClassLoad:
		if !mem.performed {
			return false
		}

		if mem.speculative && m.olderIncomplete(mem) {
			return false
		}

		mem.speculative = false

	case ClassStore:
		if e.d.NAW && m.opts.NAWBypassSB {
			return true
		}

		if len(m.storeBuffer) >= m.opts.SBSize {
			m.stats.SBFullCycles++
			return false
		}

	case ClassCAS, ClassRMW:
		return mem.performed
	}

	return true
}

func (m *MicroArch) commit(e *robEntry) {
	m.rob[0] = nil
	m.rob = m.rob[1:]

	if e.d.Dest != NoReg {
		m.backend.WriteRegister(e.d.Dest, m.regs.read(e.newReg))
		m.regs.release(e.oldReg)
	}

	next := e.d.FallThrough()
	if e.d.Class == ClassBranch {
		next = e.d.NextPC
	}
	m.backend.CommitPC(next)

	if mem := e.mem; mem != nil {
		m.lsq[0] = nil
		m.lsq = m.lsq[1:]

		if e.d.Class == ClassStore {
			mem.retired = true
			if e.d.NAW && m.opts.NAWBypassSB {
				m.nawStores = append(m.nawStores, mem)
			} else {
				m.storeBuffer = append(m.storeBuffer, mem)
			}
		}
	}

	m.slideCheckpoints(e)

	delete(m.byInst, e.inst)
	m.graph.Release(e.inst)
	m.stats.Retired++

	m.log.WithFields(logrus.Fields{
		"seq": e.seq,
		"pc":  e.d.PC,
	}).Debug("retire")
	m.InvokeHook(sim.HookCtx{Domain: m, Pos: HookPosRetire, Item: e.d, Detail: e.seq})
}
