package semantic_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/CyberSME/flexus/timing/memop"
	"github.com/CyberSME/flexus/timing/semantic"
)

func identity(in []uint64) uint64 { return in[0] }

func sum(in []uint64) uint64 {
	var s uint64
	for _, v := range in {
		s += v
	}

	return s
}

var _ = Describe("Graph", func() {
	var (
		mockCtrl *gomock.Controller
		core     *MockCore
		g        *semantic.Graph
		inst     *semantic.Instruction
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		core = NewMockCore(mockCtrl)
		g = semantic.NewGraph(core, nil)
		inst = g.NewInstruction(1, 0x400)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("loads", func() {
		It("should sign extend and bypass a narrow load exactly once", func() {
			inst.SetOperand(semantic.OperandPD, 7)
			load := g.Load(inst, memop.Byte, true,
				semantic.OperandResult, semantic.OperandPD)

			g.Evaluate(load)
			Expect(g.Action(load).State()).To(Equal(semantic.Waiting))

			core.EXPECT().RetrieveLoadValue(inst.ID()).Return(uint64(0x1FF))
			core.EXPECT().Bypass(semantic.Reg(7), uint64(0xFFFFFFFFFFFFFFFF))

			g.Satisfy(load, semantic.LoadValuePort)
			g.Satisfy(load, semantic.LoadValuePort)

			v, ok := inst.Operand(semantic.OperandResult)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(uint64(0xFFFFFFFFFFFFFFFF)))
			Expect(g.Action(load).State()).To(Equal(semantic.Satisfied))
			Expect(g.Complete(inst.ID())).To(BeTrue())
		})

		It("should not sign extend an atomic value", func() {
			load := g.CAS(inst, memop.Byte,
				semantic.OperandResult, semantic.OperandNone)
			g.Evaluate(load)

			core.EXPECT().RetrieveExtendedLoadValue(inst.ID()).Return(uint64(0x2FF))
			g.Satisfy(load, semantic.LoadValuePort)

			Expect(inst.MustOperand(semantic.OperandResult)).To(Equal(uint64(0xFF)))
		})

		It("should record an early arrival and fire on evaluation", func() {
			load := g.Load(inst, memop.Word, false,
				semantic.OperandResult, semantic.OperandNone)

			g.Satisfy(load, semantic.LoadValuePort)
			Expect(g.Action(load).State()).To(Equal(semantic.Unevaluated))

			core.EXPECT().RetrieveLoadValue(inst.ID()).Return(uint64(0x1234_5678_9ABC))
			g.Evaluate(load)

			Expect(inst.MustOperand(semantic.OperandResult)).
				To(Equal(uint64(0x5678_9ABC)))
		})
	})

	Context("cancellation", func() {
		It("should ignore satisfaction of a cancelled action", func() {
			load := g.Load(inst, memop.Word, false,
				semantic.OperandResult, semantic.OperandNone)
			g.Evaluate(load)

			g.Cancel(load)
			g.Satisfy(load, semantic.LoadValuePort)

			Expect(g.Action(load).State()).To(Equal(semantic.Cancelled))
			_, ok := inst.Operand(semantic.OperandResult)
			Expect(ok).To(BeFalse())
		})

		It("should ignore a late functional unit completion", func() {
			inst.SetOperand(semantic.OperandImm, 5)
			add := g.Compute(inst, semantic.FUIntAlu, identity,
				semantic.OperandResult, semantic.OperandImm)

			core.EXPECT().Execute(add, semantic.FUIntAlu)
			g.Evaluate(add)
			Expect(g.Action(add).State()).To(Equal(semantic.Ready))

			g.CancelInstruction(inst.ID())
			g.Finish(add)

			Expect(inst.Cancelled()).To(BeTrue())
			Expect(g.Complete(inst.ID())).To(BeFalse())
			_, ok := inst.Operand(semantic.OperandResult)
			Expect(ok).To(BeFalse())
		})
	})

	Context("predicates", func() {
		var (
			cond semantic.ActionID
			load semantic.ActionID
		)

		BeforeEach(func() {
			cond = g.Compute(inst, semantic.FUNone, identity,
				semantic.OperandCondition, semantic.OperandImm)
			load = g.Load(inst, memop.Word, false,
				semantic.OperandResult, semantic.OperandNone)
			g.Predicate(cond, load)
		})

		It("should suppress the effect when the predicate is false", func() {
			inst.SetOperand(semantic.OperandImm, 0)
			g.Evaluate(load)
			g.Satisfy(load, semantic.LoadValuePort)
			Expect(g.Action(load).State()).To(Equal(semantic.Waiting))

			g.Evaluate(cond)

			a := g.Action(load)
			Expect(a.State()).To(Equal(semantic.Satisfied))
			Expect(a.Suppressed()).To(BeTrue())
			_, ok := inst.Operand(semantic.OperandResult)
			Expect(ok).To(BeFalse())
		})

		It("should still wait for inputs when the predicate is true", func() {
			inst.SetOperand(semantic.OperandImm, 1)
			g.Evaluate(load)
			g.Evaluate(cond)
			Expect(g.Action(load).State()).To(Equal(semantic.Waiting))

			core.EXPECT().RetrieveLoadValue(inst.ID()).Return(uint64(9))
			g.Satisfy(load, semantic.LoadValuePort)

			Expect(g.Action(load).Suppressed()).To(BeFalse())
			Expect(inst.MustOperand(semantic.OperandResult)).To(Equal(uint64(9)))
		})

		It("should not write back the value of a suppressed load", func() {
			inst.SetOperand(semantic.OperandImm, 0)
			inst.SetOperand(semantic.OperandPD, 7)
			write := g.WriteRegister(inst, semantic.OperandPD, semantic.OperandResult)
			g.Connect(load, write)

			g.Evaluate(write)
			g.Evaluate(load)
			g.Evaluate(cond)

			Expect(g.Action(write).State()).To(Equal(semantic.Satisfied))
			Expect(g.Action(write).Suppressed()).To(BeTrue())
			Expect(g.Complete(inst.ID())).To(BeTrue())
		})

		It("should write the previous value when the load is suppressed", func() {
			inst.SetOperand(semantic.OperandImm, 0)
			inst.SetOperand(semantic.OperandPD, 7)
			inst.SetOperand(semantic.OperandOldValue, 31)
			write := g.WriteRegister(inst, semantic.OperandPD,
				semantic.OperandResult, semantic.OperandOldValue)
			g.Connect(load, write)

			core.EXPECT().WriteRegister(semantic.Reg(7), uint64(31))

			g.Evaluate(write)
			g.Evaluate(load)
			g.Evaluate(cond)

			Expect(g.Action(write).Suppressed()).To(BeFalse())
		})

		It("should keep the first predicate resolution", func() {
			g.Evaluate(load)
			g.PredicateOn(load, false)
			g.PredicateOn(load, true)

			Expect(g.Action(load).Suppressed()).To(BeTrue())
		})
	})

	Context("register dataflow", func() {
		It("should read, compute and write back through the core", func() {
			inst.SetOperand(semantic.OperandPS1, 3)
			inst.SetOperand(semantic.OperandPD, 4)
			inst.SetOperand(semantic.OperandImm, 10)

			read := g.ReadRegister(inst, semantic.OperandPS1, semantic.OperandRS1)
			add := g.Compute(inst, semantic.FUIntAlu, sum,
				semantic.OperandResult, semantic.OperandRS1, semantic.OperandImm)
			write := g.WriteRegister(inst, semantic.OperandPD, semantic.OperandResult)
			g.Connect(read, add)
			g.Connect(add, write)

			core.EXPECT().RegisterReady(semantic.Reg(3), read).Return(false)
			g.EvaluateInstruction(inst.ID())
			Expect(g.Complete(inst.ID())).To(BeFalse())

			core.EXPECT().ReadRegister(semantic.Reg(3)).Return(uint64(32))
			core.EXPECT().Execute(add, semantic.FUIntAlu)
			g.Satisfy(read, semantic.RegisterReadyPort)

			core.EXPECT().WriteRegister(semantic.Reg(4), uint64(42))
			g.Finish(add)

			Expect(g.Complete(inst.ID())).To(BeTrue())
		})

		It("should panic when finishing an action that is not executing", func() {
			add := g.Compute(inst, semantic.FUIntAlu, identity,
				semantic.OperandResult, semantic.OperandImm)

			Expect(func() { g.Finish(add) }).To(Panic())
		})
	})

	Context("memory dataflow", func() {
		It("should resolve the address and store value", func() {
			inst.SetOperand(semantic.OperandRS1, 0x1000)
			inst.SetOperand(semantic.OperandImm, 0x20)
			inst.SetOperand(semantic.OperandRS2, 0xABCD)

			addr := g.UpdateAddress(inst, semantic.OperandRS1, semantic.OperandImm)
			store := g.Store(inst, memop.Byte, semantic.OperandRS2)

			core.EXPECT().ResolveAddress(inst.ID(), uint64(0x1020))
			core.EXPECT().ResolveStoreValue(inst.ID(), uint64(0xCD))
			g.EvaluateInstruction(inst.ID())

			Expect(g.Action(addr).State()).To(Equal(semantic.Satisfied))
			Expect(g.Action(store).State()).To(Equal(semantic.Satisfied))
		})

		It("should resolve a branch", func() {
			inst.SetOperand(semantic.OperandRS1, 0)
			br := g.Branch(inst, func(in []uint64) (bool, uint64) {
				return in[0] == 0, 0x800
			}, semantic.OperandRS1)

			core.EXPECT().ResolveBranch(inst.ID(), true, uint64(0x800))
			g.Evaluate(br)
		})
	})

	Context("lifetime", func() {
		It("should reject stale ids after release", func() {
			load := g.Load(inst, memop.Word, false,
				semantic.OperandResult, semantic.OperandNone)
			id := inst.ID()

			g.Release(id)

			Expect(g.Alive(id)).To(BeFalse())
			Expect(g.ActionAlive(load)).To(BeFalse())
			Expect(func() { g.Satisfy(load, semantic.LoadValuePort) }).To(Panic())
			Expect(g.Describe(load)).To(ContainSubstring("released"))

			next := g.NewInstruction(2, 0x404)
			Expect(next.ID().Index).To(Equal(id.Index))
			Expect(next.ID().Gen).To(Equal(id.Gen + 1))
			Expect(next.Actions()).To(BeEmpty())

			insts, actions := g.Live()
			Expect(insts).To(Equal(1))
			Expect(actions).To(Equal(0))
		})

		It("should refuse to connect into an evaluated action", func() {
			a := g.Effect(inst, "nop", func(*semantic.Instruction) {})
			b := g.Effect(inst, "nop", func(*semantic.Instruction) {})
			g.Evaluate(b)

			Expect(func() { g.Connect(a, b) }).To(Panic())
		})

		It("should describe an action", func() {
			load := g.Load(inst, memop.Word, false,
				semantic.OperandResult, semantic.OperandNone)

			Expect(g.Describe(load)).To(ContainSubstring("#1 LoadAction Unevaluated"))
		})
	})
})
