package uarch

import (
	"github.com/sirupsen/logrus"

	"github.com/CyberSME/flexus/timing/semantic"
)

// services is the view of a MicroArch that its semantic actions use.
type services struct {
	m *MicroArch
}

func (s services) entry(inst semantic.InstID) *robEntry {
	e, ok := s.m.byInst[inst]
	if !ok {
		s.m.log.WithField("inst", inst).Panic("action of an instruction not in the window")
	}

	return e
}

func (s services) memEntry(inst semantic.InstID) *lsqEntry {
	e := s.entry(inst)
	if e.mem == nil {
		s.m.log.WithFields(logrus.Fields{
			"seq": e.seq,
			"pc":  e.d.PC,
		}).Panic("memory action of a non-memory instruction")
	}

	return e.mem
}

func (s services) RegisterReady(reg semantic.Reg, a semantic.ActionID) bool {
	if s.m.regs.ready(reg) {
		return true
	}

	s.m.regs.wait(reg, a)

	return false
}

func (s services) ReadRegister(reg semantic.Reg) uint64 {
	return s.m.regs.read(reg)
}

func (s services) WriteRegister(reg semantic.Reg, v uint64) {
	s.m.publish(reg, v)
}

func (s services) Bypass(reg semantic.Reg, v uint64) {
	s.m.publish(reg, v)
}

func (s services) Execute(a semantic.ActionID, fu semantic.FUClass) {
	s.m.fus.request(a, fu)
}

func (s services) ResolveAddress(inst semantic.InstID, addr uint64) {
	s.m.resolveAddress(s.memEntry(inst), addr)
}

func (s services) ResolveStoreValue(inst semantic.InstID, v uint64) {
	e := s.memEntry(inst)
	e.storeValue = v
	e.valueKnown = true
}

func (s services) RetrieveLoadValue(inst semantic.InstID) uint64 {
	return s.memEntry(inst).value
}

func (s services) RetrieveExtendedLoadValue(inst semantic.InstID) uint64 {
	e := s.memEntry(inst)
	if !e.performed && e.preloaded {
		return e.preloadValue
	}

	return e.value
}

func (s services) ResolveBranch(inst semantic.InstID, taken bool, target uint64) {
	m := s.m
	e := s.entry(inst)

	actual := e.d.FallThrough()
	if taken {
		actual = target
	}

	mispredicted := actual != e.d.NextPC
	m.emit(HookPosBranch, BranchFeedback{
		PC:           e.d.PC,
		Taken:        taken,
		Target:       target,
		Mispredicted: mispredicted,
	})

	if !mispredicted {
		return
	}

	e.d.NextPC = actual
	m.requestSquash(squashRequest{
		after:    e.seq,
		cause:    BranchMispredict,
		redirect: Redirect{PC: e.d.PC, NextPC: actual},
	})
}
